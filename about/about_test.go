package about_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/reglet-dev/reglet-command-host/about"
	"github.com/reglet-dev/reglet-command-host/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var listing = registry.Listing{
	"teleport": {Level: 2, AccessName: "Throttle"},
	"about":    {Level: 0, AccessName: "Allow"},
}

func TestRender_Text(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, about.Render(&buf, listing, about.FormatText))

	assert.Equal(t,
		"COMMAND   UNTRUSTED\n"+
			"about     Allow\n"+
			"teleport  Throttle\n",
		buf.String())
}

func TestRender_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, about.Render(&buf, listing, about.FormatJSON))

	var got map[string]map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, float64(2), got["teleport"]["untrusted"])
	assert.Equal(t, "Throttle", got["teleport"]["untrusted_str"])
}

func TestRender_YAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, about.Render(&buf, listing, about.FormatYAML))

	assert.Contains(t, buf.String(), "teleport:\n  untrusted_str: Throttle\n  untrusted: 2\n")
}

func TestRender_UnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, about.Render(&buf, listing, about.Format("xml")))
}

func TestParseFormat(t *testing.T) {
	f, err := about.ParseFormat("JSON")
	require.NoError(t, err)
	assert.Equal(t, about.FormatJSON, f)

	f, err = about.ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, about.FormatText, f)

	_, err = about.ParseFormat("xml")
	assert.Error(t, err)
}

func TestSchema(t *testing.T) {
	b, err := about.Schema()
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(b, &doc))
	assert.Equal(t, "object", doc["type"])
	assert.Equal(t, "SLURL command listing", doc["title"])
	assert.Contains(t, string(b), "untrusted_str")
}

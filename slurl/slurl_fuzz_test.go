package slurl_test

import (
	"testing"

	"github.com/reglet-dev/reglet-command-host/slurl"
)

func FuzzParse(f *testing.F) {
	f.Add("secondlife:///app/teleport/Ahern/128/128/20")
	f.Add("secondlife://Ahern/1/2/3")
	f.Add("http://slurl.com/secondlife/app/help?topic=x")
	f.Add("secondlife:///app/")
	f.Add("%%%")
	f.Add("secondlife://Da%20Boom/128/128/20")
	f.Add("secondlife:///app/browser/a%2Fb")

	f.Fuzz(func(t *testing.T, raw string) {
		cmd, err := slurl.Parse(raw)
		if err != nil {
			return
		}
		if cmd.Name == "" {
			t.Fatalf("Parse(%q) returned an empty command name", raw)
		}
	})
}

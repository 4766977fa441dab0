// Package about renders the registered command listing for debug pages.
package about

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/invopop/jsonschema"
	"github.com/reglet-dev/reglet-command-host/registry"
	"gopkg.in/yaml.v3"
)

// Format selects the rendering.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatText, FormatJSON, FormatYAML:
		return f, nil
	case "":
		return FormatText, nil
	default:
		return "", fmt.Errorf("unknown listing format %q", s)
	}
}

// Render writes the listing in the requested format.
func Render(w io.Writer, listing registry.Listing, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(listing); err != nil {
			return fmt.Errorf("failed to encode listing: %w", err)
		}
		return nil
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(listing); err != nil {
			return fmt.Errorf("failed to encode listing: %w", err)
		}
		return enc.Close()
	case FormatText, "":
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "COMMAND\tUNTRUSTED")
		for _, name := range listing.Names() {
			fmt.Fprintf(tw, "%s\t%s\n", name, listing[name].AccessName)
		}
		return tw.Flush()
	default:
		return fmt.Errorf("unknown listing format %q", format)
	}
}

// Schema returns the JSON schema of the listing document.
func Schema() ([]byte, error) {
	r := new(jsonschema.Reflector)
	r.DoNotReference = true
	s := r.Reflect(registry.Listing{})
	s.Title = "SLURL command listing"
	s.Description = "Registered commands keyed by name, with their untrusted-browser access."
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal listing schema: %w", err)
	}
	return b, nil
}

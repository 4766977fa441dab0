// Package command defines the handler contract shared by the registry, the
// dispatcher and the built-in UI commands.
package command

import (
	"context"
	"net/url"
	"strings"

	"github.com/reglet-dev/reglet-command-host/policy"
)

// Params are the positional path segments that follow the command name,
// e.g. "Ahern", "128", "128", "20" for secondlife:///app/teleport/Ahern/128/128/20.
type Params []string

// At returns the i-th parameter, or "" when out of range.
func (p Params) At(i int) string {
	if i < 0 || i >= len(p) {
		return ""
	}
	return p[i]
}

// Query holds the key/value pairs from the link's query string.
type Query map[string][]string

// QueryFromValues copies url.Values into a Query.
func QueryFromValues(v url.Values) Query {
	q := make(Query, len(v))
	for k, vals := range v {
		q[k] = append([]string(nil), vals...)
	}
	return q
}

// Get returns the first value for key, or "".
func (q Query) Get(key string) string {
	if vals := q[key]; len(vals) > 0 {
		return vals[0]
	}
	return ""
}

// Has reports whether key is present.
func (q Query) Has(key string) bool {
	_, ok := q[key]
	return ok
}

// Encode renders the query in URL form, sorted by key.
func (q Query) Encode() string {
	return url.Values(q).Encode()
}

// Browser is the embedded web view a link was clicked in. It is nil when the
// command did not originate from a browser (chat, script, event API).
type Browser interface {
	// CurrentURL returns the page the link was clicked on.
	CurrentURL() string
	// Navigate loads url in the same view.
	Navigate(url string)
}

// Handler runs a single command. The returned bool reports whether the
// command was handled; it is the only failure channel.
type Handler interface {
	Handle(ctx context.Context, params Params, query Query, web Browser) bool
}

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc func(ctx context.Context, params Params, query Query, web Browser) bool

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, params Params, query Query, web Browser) bool {
	return f(ctx, params, query, web)
}

// Descriptor is one row of the static command table registered at startup.
type Descriptor struct {
	Name    string
	Access  policy.Access
	Handler Handler
}

// String renders the descriptor as "name (Access)".
func (d Descriptor) String() string {
	var b strings.Builder
	b.WriteString(d.Name)
	b.WriteString(" (")
	b.WriteString(d.Access.String())
	b.WriteString(")")
	return b.String()
}

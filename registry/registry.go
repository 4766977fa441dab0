// Package registry implements the command handler registry.
package registry

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/reglet-dev/reglet-command-host/command"
	"github.com/reglet-dev/reglet-command-host/policy"
)

var _ CommandRegistry = (*Registry)(nil)

// Entry is a registered command. The registry does not own the handler.
type Entry struct {
	Handler command.Handler
	Name    string
	Access  policy.Access
}

// CommandInfo describes one command in an enumeration.
type CommandInfo struct {
	// AccessName is the access label without its "Untrusted" prefix.
	AccessName string `json:"untrusted_str" yaml:"untrusted_str" jsonschema:"enum=Allow,enum=Block,enum=Throttle"`
	// Level is the numeric access level.
	Level int `json:"untrusted" yaml:"untrusted" jsonschema:"minimum=0,maximum=2"`
}

// Access returns the access level as a policy.Access.
func (c CommandInfo) Access() policy.Access {
	return policy.Access(c.Level)
}

// Listing maps command names to their descriptions.
type Listing map[string]CommandInfo

// Names returns the listing keys, sorted.
func (l Listing) Names() []string {
	names := make([]string, 0, len(l))
	for n := range l {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Registry is an in-memory CommandRegistry. The zero value is ready to use;
// storage is allocated on first registration.
type Registry struct {
	entries map[string]Entry
	mu      sync.RWMutex
	logger  *slog.Logger
}

// RegistryOption configures the Registry.
type RegistryOption func(*Registry)

// WithLogger sets the logger used for registration traces.
func WithLogger(l *slog.Logger) RegistryOption {
	return func(r *Registry) {
		r.logger = l
	}
}

// NewRegistry creates a new command registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		entries: make(map[string]Entry),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Registry) log() *slog.Logger {
	if r.logger != nil {
		return r.logger
	}
	return slog.Default()
}

// Register adds or replaces the entry for name.
func (r *Registry) Register(name string, access policy.Access, handler command.Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.entries == nil {
		r.entries = make(map[string]Entry)
	}
	if prev, exists := r.entries[name]; exists {
		r.log().Debug("command handler replaced",
			"command", name,
			"previous_access", prev.Access.String(),
			"access", access.String())
	}
	r.entries[name] = Entry{Name: name, Access: access, Handler: handler}
}

// RegisterAll registers the descriptors in order.
func (r *Registry) RegisterAll(descs ...command.Descriptor) {
	for _, d := range descs {
		r.Register(d.Name, d.Access, d.Handler)
	}
}

// Lookup retrieves the entry for name.
func (r *Registry) Lookup(name string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	return e, ok
}

// Enumerate returns a snapshot of all registered commands.
func (r *Registry) Enumerate() Listing {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(Listing, len(r.entries))
	for name, e := range r.entries {
		out[name] = CommandInfo{Level: int(e.Access), AccessName: e.Access.String()}
	}
	return out
}

// Names returns all registered command names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.entries))
	for k := range r.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

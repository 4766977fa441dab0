package registry

import (
	"github.com/reglet-dev/reglet-command-host/command"
	"github.com/reglet-dev/reglet-command-host/policy"
)

// CommandRegistry maps command names to handlers and their untrusted access.
type CommandRegistry interface {
	// Register adds or replaces the entry for name. The last registration wins.
	Register(name string, access policy.Access, handler command.Handler)

	// RegisterAll registers every descriptor in order.
	RegisterAll(descs ...command.Descriptor)

	// Lookup returns the entry for name.
	Lookup(name string) (Entry, bool)

	// Enumerate returns a snapshot of all commands and their access levels.
	Enumerate() Listing

	// Names returns all registered names, sorted.
	Names() []string
}

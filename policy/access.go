package policy

import (
	"fmt"
	"strconv"
	"strings"
)

// Access controls what happens when a command arrives from an untrusted source.
type Access int

const (
	// UntrustedAllow lets the command through regardless of origin.
	UntrustedAllow Access = iota
	// UntrustedBlock ignores the command when it comes from an untrusted browser.
	UntrustedBlock
	// UntrustedThrottle allows untrusted commands, but only one per throttle window.
	UntrustedThrottle
)

// accessPrefix is stripped from the symbol names to build display labels.
const accessPrefix = "Untrusted"

var accessSymbols = []struct {
	symbol string
	value  Access
}{
	{"UntrustedAllow", UntrustedAllow},
	{"UntrustedBlock", UntrustedBlock},
	{"UntrustedThrottle", UntrustedThrottle},
}

// Accesses returns every known access level in declaration order.
func Accesses() []Access {
	out := make([]Access, 0, len(accessSymbols))
	for _, s := range accessSymbols {
		out = append(out, s.value)
	}
	return out
}

// String returns the symbol name without the "Untrusted" prefix ("Allow", "Block", "Throttle").
func (a Access) String() string {
	for _, s := range accessSymbols {
		if s.value == a {
			return strings.TrimPrefix(s.symbol, accessPrefix)
		}
	}
	return accessPrefix + "(" + strconv.Itoa(int(a)) + ")"
}

// Valid reports whether a is one of the declared access levels.
func (a Access) Valid() bool {
	for _, s := range accessSymbols {
		if s.value == a {
			return true
		}
	}
	return false
}

// ParseAccess converts a label such as "block", "Throttle" or "UNTRUSTED_ALLOW"
// into an Access.
func ParseAccess(s string) (Access, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.TrimPrefix(norm, "untrusted")
	norm = strings.TrimPrefix(norm, "_")
	for _, sym := range accessSymbols {
		if strings.EqualFold(norm, strings.TrimPrefix(sym.symbol, accessPrefix)) {
			return sym.value, nil
		}
	}
	return 0, fmt.Errorf("unknown untrusted access %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (a Access) MarshalText() ([]byte, error) {
	if !a.Valid() {
		return nil, fmt.Errorf("invalid untrusted access %d", int(a))
	}
	return []byte(strings.ToLower(a.String())), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Access) UnmarshalText(text []byte) error {
	v, err := ParseAccess(string(text))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

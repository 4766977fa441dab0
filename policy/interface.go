package policy

import "context"

// Decision is the outcome of a trust policy check.
type Decision int

const (
	// DecisionInvoke means the handler should run.
	DecisionInvoke Decision = iota
	// DecisionBlocked means the command was dropped because its access is UntrustedBlock.
	DecisionBlocked
	// DecisionThrottled means the command arrived inside the throttle window.
	DecisionThrottled
)

func (d Decision) String() string {
	switch d {
	case DecisionInvoke:
		return "invoke"
	case DecisionBlocked:
		return "blocked"
	case DecisionThrottled:
		return "throttled"
	default:
		return "unknown"
	}
}

// DenialKind identifies which rule rejected an untrusted command.
type DenialKind int

const (
	DenialBlocked DenialKind = iota
	DenialThrottled
)

// NoticeName returns the identifier of the user notification for this kind.
func (k DenialKind) NoticeName() string {
	if k == DenialThrottled {
		return "ThrottledSLURL"
	}
	return "BlockedSLURL"
}

func (k DenialKind) String() string {
	if k == DenialThrottled {
		return "throttled"
	}
	return "blocked"
}

// Policy decides whether a command may run given its access level and origin.
type Policy interface {
	// Check records the decision: it consumes the throttle slot on acceptance
	// and reports denials to the configured handler and notifier.
	Check(ctx context.Context, command string, access Access, trusted bool) Decision

	// Evaluate returns the decision Check would make, without side effects.
	Evaluate(ctx context.Context, command string, access Access, trusted bool) Decision
}

// DenialHandler is called every time a policy check rejects a command.
type DenialHandler interface {
	// OnDenial is called when an untrusted command is rejected.
	OnDenial(kind DenialKind, command string, reason string)
}

// Notifier surfaces a denial to the user. The gate calls it at most once per
// DenialKind for its lifetime.
type Notifier interface {
	NotifyDenial(ctx context.Context, kind DenialKind, command string)
}

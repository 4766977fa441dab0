// Package policy implements the untrusted-access rules applied to SLURL
// commands before their handlers run.
package policy

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultThrottleWindow is the minimum interval between accepted untrusted
// invocations of throttled commands.
const DefaultThrottleWindow = 15 * time.Second

var _ Policy = (*Gate)(nil)

// Gate is the process-wide trust gate. The throttle limiter and the
// notification flags are shared by every command: two different throttled
// commands issued back to back throttle each other.
type Gate struct {
	mu            sync.Mutex
	limiter       *rate.Limiter
	window        time.Duration
	now           func() time.Time
	denialHandler DenialHandler
	notifier      Notifier

	blockedNotified   bool
	throttledNotified bool
}

// Option configures a Gate.
type Option func(*Gate)

// WithThrottleWindow sets the throttle window. A non-positive window disables throttling.
func WithThrottleWindow(d time.Duration) Option {
	return func(g *Gate) { g.window = d }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(g *Gate) {
		if now != nil {
			g.now = now
		}
	}
}

// WithDenialHandler sets the handler called on every rejection.
func WithDenialHandler(h DenialHandler) Option {
	return func(g *Gate) { g.denialHandler = h }
}

// WithNotifier sets the one-shot user notifier.
func WithNotifier(n Notifier) Option {
	return func(g *Gate) { g.notifier = n }
}

// NewGate creates a gate in its fresh-process state.
func NewGate(opts ...Option) *Gate {
	g := &Gate{
		window:        DefaultThrottleWindow,
		now:           time.Now,
		denialHandler: &SlogDenialHandler{},
	}
	for _, opt := range opts {
		opt(g)
	}
	g.limiter = newLimiter(g.window)
	return g
}

// The limiter starts with a zero last-event time, so the first throttled
// command after construction is always accepted.
func newLimiter(window time.Duration) *rate.Limiter {
	if window <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(window), 1)
}

// Window returns the configured throttle window.
func (g *Gate) Window() time.Duration {
	return g.window
}

// Check applies the access rule and records its effects.
func (g *Gate) Check(ctx context.Context, command string, access Access, trusted bool) Decision {
	if trusted {
		return DecisionInvoke
	}

	g.mu.Lock()
	var (
		decision Decision
		reason   string
		notify   bool
	)
	switch access {
	case UntrustedBlock:
		decision = DecisionBlocked
		reason = "command is blocked for untrusted browsers"
		notify = !g.blockedNotified
		g.blockedNotified = true
	case UntrustedThrottle:
		now := g.now()
		if g.limiter.AllowN(now, 1) {
			decision = DecisionInvoke
			break
		}
		decision = DecisionThrottled
		reason = fmt.Sprintf("throttled, next command accepted in %s", g.waitLocked(now).Round(time.Millisecond))
		notify = !g.throttledNotified
		g.throttledNotified = true
	default:
		decision = DecisionInvoke
	}
	g.mu.Unlock()

	if decision == DecisionInvoke {
		return decision
	}

	kind := DenialBlocked
	if decision == DecisionThrottled {
		kind = DenialThrottled
	}
	if g.denialHandler != nil {
		g.denialHandler.OnDenial(kind, command, reason)
	}
	if notify && g.notifier != nil {
		g.notifier.NotifyDenial(ctx, kind, command)
	}
	return decision
}

// Evaluate predicts the decision without consuming the throttle slot or notifying.
func (g *Gate) Evaluate(_ context.Context, _ string, access Access, trusted bool) Decision {
	if trusted {
		return DecisionInvoke
	}
	switch access {
	case UntrustedBlock:
		return DecisionBlocked
	case UntrustedThrottle:
		g.mu.Lock()
		defer g.mu.Unlock()
		if g.limiter.TokensAt(g.now()) >= 1 {
			return DecisionInvoke
		}
		return DecisionThrottled
	default:
		return DecisionInvoke
	}
}

// Reset restores the fresh-process state: the throttle window is cleared and
// both notifications may be shown again.
func (g *Gate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.limiter = newLimiter(g.window)
	g.blockedNotified = false
	g.throttledNotified = false
}

// waitLocked estimates the time until the next throttled command is accepted.
func (g *Gate) waitLocked(now time.Time) time.Duration {
	missing := 1 - g.limiter.TokensAt(now)
	if missing <= 0 {
		return 0
	}
	return time.Duration(missing * float64(g.window))
}

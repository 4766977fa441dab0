// Package commandhost routes SLURL commands to registered UI handlers,
// applying each command's untrusted-access policy first.
package commandhost

import (
	"context"
	"log/slog"

	"github.com/reglet-dev/reglet-command-host/command"
	"github.com/reglet-dev/reglet-command-host/policy"
	"github.com/reglet-dev/reglet-command-host/registry"
)

// Outcome classifies how a dispatch ended.
type Outcome int

const (
	// OutcomeNotFound: no command is registered under the name.
	OutcomeNotFound Outcome = iota
	// OutcomeInvoked: the handler ran and reported success.
	OutcomeInvoked
	// OutcomeDeclined: the handler ran and reported failure.
	OutcomeDeclined
	// OutcomeBlocked: rejected by an UntrustedBlock policy.
	OutcomeBlocked
	// OutcomeThrottled: rejected inside the throttle window.
	OutcomeThrottled
	// OutcomeNoHandler: the entry exists but has no handler.
	OutcomeNoHandler
)

var outcomeNames = map[Outcome]string{
	OutcomeNotFound:  "not_found",
	OutcomeInvoked:   "invoked",
	OutcomeDeclined:  "declined",
	OutcomeBlocked:   "blocked",
	OutcomeThrottled: "throttled",
	OutcomeNoHandler: "no_handler",
}

func (o Outcome) String() string {
	if s, ok := outcomeNames[o]; ok {
		return s
	}
	return "unknown"
}

// Result is the detailed result of a dispatch.
type Result struct {
	Outcome Outcome
	// Handled is what Dispatch returns. Policy rejections count as handled so
	// the raw link is not shown to the user.
	Handled bool
}

// Dispatcher is the process-scoped command router. Build one at startup,
// register the command table, then share it by reference.
type Dispatcher struct {
	registry   registry.CommandRegistry
	policy     policy.Policy
	middleware []Middleware
	logger     *slog.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithRegistry sets the command registry.
func WithRegistry(r registry.CommandRegistry) Option {
	return func(d *Dispatcher) { d.registry = r }
}

// WithPolicy sets the trust policy.
func WithPolicy(p policy.Policy) Option {
	return func(d *Dispatcher) { d.policy = p }
}

// WithMiddleware appends handler middleware. The first one added is the outermost.
func WithMiddleware(mw ...Middleware) Option {
	return func(d *Dispatcher) { d.middleware = append(d.middleware, mw...) }
}

// WithLogger sets the logger for dispatch traces.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

// NewDispatcher creates a dispatcher. Without options it uses an empty
// registry and a Gate with the default throttle window.
func NewDispatcher(opts ...Option) *Dispatcher {
	d := &Dispatcher{}
	for _, opt := range opts {
		opt(d)
	}
	if d.registry == nil {
		d.registry = registry.NewRegistry(registry.WithLogger(d.logger))
	}
	if d.policy == nil {
		d.policy = policy.NewGate()
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	return d
}

// Registry returns the underlying registry.
func (d *Dispatcher) Registry() registry.CommandRegistry {
	return d.registry
}

// Register adds or replaces a command.
func (d *Dispatcher) Register(name string, access policy.Access, handler command.Handler) {
	d.registry.Register(name, access, handler)
}

// RegisterAll registers a command table.
func (d *Dispatcher) RegisterAll(descs ...command.Descriptor) {
	d.registry.RegisterAll(descs...)
}

// Enumerate lists the registered commands and their access levels.
func (d *Dispatcher) Enumerate() registry.Listing {
	return d.registry.Enumerate()
}

// Dispatch runs the named command and reports whether it was handled.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, params command.Params, query command.Query, web command.Browser, trusted bool) bool {
	return d.Route(ctx, name, params, query, web, trusted).Handled
}

// Route is Dispatch with the outcome exposed.
func (d *Dispatcher) Route(ctx context.Context, name string, params command.Params, query command.Query, web command.Browser, trusted bool) Result {
	res := d.route(ctx, name, params, query, web, trusted)
	d.logger.DebugContext(ctx, "SLURL command dispatched",
		"command", name,
		"trusted", trusted,
		"source", SourceFromContext(ctx),
		"outcome", res.Outcome.String())
	return res
}

func (d *Dispatcher) route(ctx context.Context, name string, params command.Params, query command.Query, web command.Browser, trusted bool) Result {
	entry, ok := d.registry.Lookup(name)
	if !ok {
		return Result{Outcome: OutcomeNotFound}
	}

	switch d.policy.Check(ctx, name, entry.Access, trusted) {
	case policy.DecisionBlocked:
		return Result{Outcome: OutcomeBlocked, Handled: true}
	case policy.DecisionThrottled:
		return Result{Outcome: OutcomeThrottled, Handled: true}
	}

	if entry.Handler == nil {
		return Result{Outcome: OutcomeNoHandler}
	}

	h := chain(entry.Handler, d.middleware)
	if h.Handle(WithCommandName(ctx, name), params, query, web) {
		return Result{Outcome: OutcomeInvoked, Handled: true}
	}
	return Result{Outcome: OutcomeDeclined}
}

// Preview predicts the policy outcome for name without running the handler,
// consuming the throttle window or notifying the user.
func (d *Dispatcher) Preview(ctx context.Context, name string, trusted bool) Outcome {
	entry, ok := d.registry.Lookup(name)
	if !ok {
		return OutcomeNotFound
	}
	switch d.policy.Evaluate(ctx, name, entry.Access, trusted) {
	case policy.DecisionBlocked:
		return OutcomeBlocked
	case policy.DecisionThrottled:
		return OutcomeThrottled
	}
	if entry.Handler == nil {
		return OutcomeNoHandler
	}
	return OutcomeInvoked
}

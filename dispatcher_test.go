package commandhost_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	commandhost "github.com/reglet-dev/reglet-command-host"
	"github.com/reglet-dev/reglet-command-host/command"
	"github.com/reglet-dev/reglet-command-host/policy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// spyHandler records its invocations and returns a fixed result.
type spyHandler struct {
	result bool
	calls  int
	params command.Params
	query  command.Query
	name   string
}

func (h *spyHandler) Handle(ctx context.Context, params command.Params, query command.Query, _ command.Browser) bool {
	h.calls++
	h.params = params
	h.query = query
	h.name = commandhost.CommandNameFromContext(ctx)
	return h.result
}

type notices struct {
	kinds []policy.DenialKind
}

func (n *notices) NotifyDenial(_ context.Context, kind policy.DenialKind, _ string) {
	n.kinds = append(n.kinds, kind)
}

type testEnv struct {
	d     *commandhost.Dispatcher
	now   time.Time
	notes *notices
}

func newTestEnv(opts ...commandhost.Option) *testEnv {
	env := &testEnv{
		now:   time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
		notes: &notices{},
	}
	gate := policy.NewGate(
		policy.WithClock(func() time.Time { return env.now }),
		policy.WithNotifier(env.notes),
		policy.WithDenialHandler(&policy.NopDenialHandler{}),
	)
	env.d = commandhost.NewDispatcher(append([]commandhost.Option{commandhost.WithPolicy(gate)}, opts...)...)
	return env
}

func (e *testEnv) advance(d time.Duration) { e.now = e.now.Add(d) }

func TestDispatch_Scenario(t *testing.T) {
	env := newTestEnv()
	teleport := &spyHandler{result: true}
	about := &spyHandler{result: true}
	hidden := &spyHandler{result: true}

	env.d.Register("teleport", policy.UntrustedThrottle, teleport)
	env.d.Register("about", policy.UntrustedAllow, about)
	env.d.Register("hidden", policy.UntrustedBlock, hidden)

	ctx := context.Background()

	assert.True(t, env.d.Dispatch(ctx, "about", nil, command.Query{}, nil, false))
	assert.Equal(t, 1, about.calls)

	assert.True(t, env.d.Dispatch(ctx, "hidden", nil, command.Query{}, nil, false))
	assert.Zero(t, hidden.calls)

	assert.True(t, env.d.Dispatch(ctx, "teleport", command.Params{"Ahern", "128", "128", "20"}, nil, nil, false))
	env.advance(time.Second)
	assert.True(t, env.d.Dispatch(ctx, "teleport", command.Params{"Ahern"}, nil, nil, false))
	assert.Equal(t, 1, teleport.calls)
	assert.Equal(t, command.Params{"Ahern", "128", "128", "20"}, teleport.params)
}

func TestDispatch_NotFound(t *testing.T) {
	env := newTestEnv()
	res := env.d.Route(context.Background(), "missing", nil, nil, nil, false)

	assert.False(t, res.Handled)
	assert.Equal(t, commandhost.OutcomeNotFound, res.Outcome)
	assert.Empty(t, env.notes.kinds)
}

func TestDispatch_ReturnsHandlerResult(t *testing.T) {
	env := newTestEnv()
	env.d.Register("ok", policy.UntrustedAllow, &spyHandler{result: true})
	env.d.Register("nope", policy.UntrustedAllow, &spyHandler{result: false})
	ctx := context.Background()

	res := env.d.Route(ctx, "ok", nil, nil, nil, false)
	assert.Equal(t, commandhost.Result{Outcome: commandhost.OutcomeInvoked, Handled: true}, res)

	res = env.d.Route(ctx, "nope", nil, nil, nil, false)
	assert.Equal(t, commandhost.Result{Outcome: commandhost.OutcomeDeclined, Handled: false}, res)
}

func TestDispatch_TrustedBypassesBlock(t *testing.T) {
	env := newTestEnv()
	h := &spyHandler{result: true}
	env.d.Register("hidden", policy.UntrustedBlock, h)

	assert.True(t, env.d.Dispatch(context.Background(), "hidden", nil, nil, nil, true))
	assert.Equal(t, 1, h.calls)
	assert.Empty(t, env.notes.kinds)
}

func TestDispatch_TrustedBypassesThrottle(t *testing.T) {
	env := newTestEnv()
	h := &spyHandler{result: true}
	env.d.Register("teleport", policy.UntrustedThrottle, h)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		assert.True(t, env.d.Dispatch(ctx, "teleport", nil, nil, nil, true))
	}
	assert.Equal(t, 3, h.calls)
}

func TestDispatch_BlockNotifiesOnce(t *testing.T) {
	env := newTestEnv()
	h := &spyHandler{result: true}
	env.d.Register("hidden", policy.UntrustedBlock, h)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		res := env.d.Route(ctx, "hidden", nil, nil, nil, false)
		assert.Equal(t, commandhost.Result{Outcome: commandhost.OutcomeBlocked, Handled: true}, res)
	}
	assert.Zero(t, h.calls)
	assert.Equal(t, []policy.DenialKind{policy.DenialBlocked}, env.notes.kinds)
}

func TestDispatch_ThrottleWindow(t *testing.T) {
	env := newTestEnv()
	h := &spyHandler{result: true}
	env.d.Register("teleport", policy.UntrustedThrottle, h)
	ctx := context.Background()

	require.Equal(t, commandhost.OutcomeInvoked, env.d.Route(ctx, "teleport", nil, nil, nil, false).Outcome)

	env.advance(10 * time.Second)
	assert.Equal(t, commandhost.OutcomeThrottled, env.d.Route(ctx, "teleport", nil, nil, nil, false).Outcome)
	assert.Equal(t, commandhost.OutcomeThrottled, env.d.Route(ctx, "teleport", nil, nil, nil, false).Outcome)

	env.advance(5 * time.Second)
	assert.Equal(t, commandhost.OutcomeInvoked, env.d.Route(ctx, "teleport", nil, nil, nil, false).Outcome)

	assert.Equal(t, 2, h.calls)
	assert.Equal(t, []policy.DenialKind{policy.DenialThrottled}, env.notes.kinds)
}

// Two distinct throttled commands share one window.
func TestDispatch_ThrottleIsSharedBetweenCommands(t *testing.T) {
	env := newTestEnv()
	teleport := &spyHandler{result: true}
	mapShow := &spyHandler{result: true}
	env.d.Register("teleport", policy.UntrustedThrottle, teleport)
	env.d.Register("worldmap", policy.UntrustedThrottle, mapShow)
	ctx := context.Background()

	assert.True(t, env.d.Dispatch(ctx, "teleport", nil, nil, nil, false))
	env.advance(2 * time.Second)
	assert.True(t, env.d.Dispatch(ctx, "worldmap", nil, nil, nil, false))

	assert.Equal(t, 1, teleport.calls)
	assert.Zero(t, mapShow.calls)
}

func TestDispatch_NilHandler(t *testing.T) {
	env := newTestEnv()
	env.d.Register("placeholder", policy.UntrustedAllow, nil)

	res := env.d.Route(context.Background(), "placeholder", nil, nil, nil, true)
	assert.Equal(t, commandhost.Result{Outcome: commandhost.OutcomeNoHandler, Handled: false}, res)
}

func TestDispatch_BlockedEntryWithoutHandler(t *testing.T) {
	env := newTestEnv()
	env.d.Register("placeholder", policy.UntrustedBlock, nil)
	ctx := context.Background()

	res := env.d.Route(ctx, "placeholder", nil, nil, nil, false)
	assert.Equal(t, commandhost.Result{Outcome: commandhost.OutcomeBlocked, Handled: true}, res)
	assert.True(t, env.d.Dispatch(ctx, "placeholder", nil, nil, nil, false))
	assert.Equal(t, []policy.DenialKind{policy.DenialBlocked}, env.notes.kinds)

	res = env.d.Route(ctx, "placeholder", nil, nil, nil, true)
	assert.Equal(t, commandhost.Result{Outcome: commandhost.OutcomeNoHandler, Handled: false}, res)
}

func TestDispatch_PassesArgumentsAndName(t *testing.T) {
	env := newTestEnv()
	h := &spyHandler{result: true}
	env.d.Register("inventory", policy.UntrustedAllow, h)

	q := command.Query{"select": {"1"}}
	env.d.Dispatch(context.Background(), "inventory", command.Params{"abc", "select"}, q, nil, false)

	assert.Equal(t, command.Params{"abc", "select"}, h.params)
	assert.Equal(t, q, h.query)
	assert.Equal(t, "inventory", h.name)
}

func TestDispatch_Enumerate(t *testing.T) {
	env := newTestEnv()
	env.d.RegisterAll(
		command.Descriptor{Name: "teleport", Access: policy.UntrustedThrottle, Handler: &spyHandler{}},
		command.Descriptor{Name: "about", Access: policy.UntrustedAllow, Handler: &spyHandler{}},
	)

	first := env.d.Enumerate()
	assert.Equal(t, []string{"about", "teleport"}, first.Names())

	env.d.Register("hidden", policy.UntrustedBlock, &spyHandler{})
	second := env.d.Enumerate()
	assert.Equal(t, []string{"about", "hidden", "teleport"}, second.Names())
	assert.Equal(t, "Block", second["hidden"].AccessName)
}

func TestDispatch_Preview(t *testing.T) {
	env := newTestEnv()
	h := &spyHandler{result: true}
	env.d.Register("teleport", policy.UntrustedThrottle, h)
	env.d.Register("hidden", policy.UntrustedBlock, h)
	ctx := context.Background()

	assert.Equal(t, commandhost.OutcomeInvoked, env.d.Preview(ctx, "teleport", false))
	assert.Equal(t, commandhost.OutcomeInvoked, env.d.Preview(ctx, "teleport", false))
	assert.Equal(t, commandhost.OutcomeBlocked, env.d.Preview(ctx, "hidden", false))
	assert.Equal(t, commandhost.OutcomeInvoked, env.d.Preview(ctx, "hidden", true))
	assert.Equal(t, commandhost.OutcomeNotFound, env.d.Preview(ctx, "missing", false))
	assert.Zero(t, h.calls)
	assert.Empty(t, env.notes.kinds)
}

func TestDispatch_Middleware(t *testing.T) {
	var order []string
	mark := func(tag string) commandhost.Middleware {
		return func(next command.Handler) command.Handler {
			return command.HandlerFunc(func(ctx context.Context, p command.Params, q command.Query, web command.Browser) bool {
				order = append(order, tag)
				return next.Handle(ctx, p, q, web)
			})
		}
	}

	env := newTestEnv(commandhost.WithMiddleware(mark("outer"), mark("inner")))
	env.d.Register("about", policy.UntrustedAllow, command.HandlerFunc(func(context.Context, command.Params, command.Query, command.Browser) bool {
		order = append(order, "handler")
		return true
	}))

	assert.True(t, env.d.Dispatch(context.Background(), "about", nil, nil, nil, false))
	assert.Equal(t, []string{"outer", "inner", "handler"}, order)
}

func TestPanicRecoveryMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	env := newTestEnv(commandhost.WithMiddleware(commandhost.PanicRecoveryMiddleware(logger)))
	env.d.Register("boom", policy.UntrustedAllow, command.HandlerFunc(func(context.Context, command.Params, command.Query, command.Browser) bool {
		panic("floater missing")
	}))

	res := env.d.Route(context.Background(), "boom", nil, nil, nil, true)
	assert.Equal(t, commandhost.OutcomeDeclined, res.Outcome)
	assert.False(t, res.Handled)
	assert.Contains(t, buf.String(), "floater missing")
	assert.Contains(t, buf.String(), "command=boom")
}

func TestLoggingMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	env := newTestEnv(commandhost.WithMiddleware(commandhost.LoggingMiddleware(logger)))
	env.d.Register("about", policy.UntrustedAllow, &spyHandler{result: true})

	env.d.Dispatch(context.Background(), "about", command.Params{"x"}, nil, nil, false)
	assert.Contains(t, buf.String(), "command=about")
	assert.Contains(t, buf.String(), "handled=true")
}

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, "unknown", commandhost.CommandNameFromContext(ctx))
	assert.Equal(t, "", commandhost.SourceFromContext(ctx))

	ctx = commandhost.WithSource(commandhost.WithCommandName(ctx, "teleport"), "chat")
	assert.Equal(t, "teleport", commandhost.CommandNameFromContext(ctx))
	assert.Equal(t, "chat", commandhost.SourceFromContext(ctx))
}

func TestOutcome_String(t *testing.T) {
	assert.Equal(t, "throttled", commandhost.OutcomeThrottled.String())
	assert.Equal(t, "unknown", commandhost.Outcome(99).String())
}

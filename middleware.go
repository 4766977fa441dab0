package commandhost

import (
	"context"
	"log/slog"
	"time"

	"github.com/reglet-dev/reglet-command-host/command"
)

// Middleware wraps a command.Handler to add cross-cutting behavior.
// Middleware executes in FIFO order (first registered wraps first, onion model).
//
// Example usage:
//
//	auditMiddleware := func(next command.Handler) command.Handler {
//	    return command.HandlerFunc(func(ctx context.Context, p command.Params, q command.Query, web command.Browser) bool {
//	        log.Printf("running %s", commandhost.CommandNameFromContext(ctx))
//	        return next.Handle(ctx, p, q, web)
//	    })
//	}
type Middleware func(next command.Handler) command.Handler

func chain(h command.Handler, mw []Middleware) command.Handler {
	for i := len(mw) - 1; i >= 0; i-- {
		h = mw[i](h)
	}
	return h
}

// PanicRecoveryMiddleware returns a middleware that converts a panicking
// handler into an unhandled command instead of crashing the viewer.
func PanicRecoveryMiddleware(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next command.Handler) command.Handler {
		return command.HandlerFunc(func(ctx context.Context, params command.Params, query command.Query, web command.Browser) (handled bool) {
			defer func() {
				if r := recover(); r != nil {
					logger.ErrorContext(ctx, "SLURL command handler panicked",
						"command", CommandNameFromContext(ctx),
						"panic", r)
					handled = false
				}
			}()
			return next.Handle(ctx, params, query, web)
		})
	}
}

// LoggingMiddleware returns a middleware that logs handler invocations.
func LoggingMiddleware(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next command.Handler) command.Handler {
		return command.HandlerFunc(func(ctx context.Context, params command.Params, query command.Query, web command.Browser) bool {
			name := CommandNameFromContext(ctx)
			start := time.Now()
			handled := next.Handle(ctx, params, query, web)
			logger.InfoContext(ctx, "SLURL command handler finished",
				"command", name,
				"params", []string(params),
				"handled", handled,
				"duration", time.Since(start))
			return handled
		})
	}
}

// Context helpers for command metadata propagation
type commandContextKey struct {
	name string
}

var (
	commandNameContextKey = &commandContextKey{name: "command_name"}
	sourceContextKey      = &commandContextKey{name: "source"}
)

// WithCommandName adds the command name to the context.
func WithCommandName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, commandNameContextKey, name)
}

// CommandNameFromContext returns the command name, or "unknown".
func CommandNameFromContext(ctx context.Context) string {
	if name, ok := ctx.Value(commandNameContextKey).(string); ok {
		return name
	}
	return "unknown"
}

// WithSource records where the link came from ("chat", "web", "event_api", ...).
func WithSource(ctx context.Context, source string) context.Context {
	return context.WithValue(ctx, sourceContextKey, source)
}

// SourceFromContext returns the link source, or "" when unset.
func SourceFromContext(ctx context.Context) string {
	src, _ := ctx.Value(sourceContextKey).(string)
	return src
}

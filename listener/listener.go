// Package listener exposes the dispatcher to external event pumps as a
// JSON request/response function.
package listener

import (
	"context"
	"encoding/json"
	"fmt"

	commandhost "github.com/reglet-dev/reglet-command-host"
	"github.com/reglet-dev/reglet-command-host/command"
	"github.com/reglet-dev/reglet-command-host/registry"
)

// Operations understood by the listener.
const (
	OpDispatch  = "dispatch"
	OpEnumerate = "enumerate"
	OpPreview   = "preview"
)

// Error codes returned in Response.Error.
const (
	CodeBadRequest = "bad_request"
	CodeUnknownOp  = "unknown_op"
)

// Request is the JSON request envelope.
type Request struct {
	Query   map[string][]string `json:"query,omitempty"`
	Op      string              `json:"op"`
	Cmd     string              `json:"cmd,omitempty"`
	Source  string              `json:"source,omitempty"`
	Params  []string            `json:"params,omitempty"`
	Trusted bool                `json:"trusted,omitempty"`
}

// Response is the JSON response envelope.
type Response struct {
	Error    *Error           `json:"error,omitempty"`
	Commands registry.Listing `json:"commands,omitempty"`
	Outcome  string           `json:"outcome,omitempty"`
	Handled  bool             `json:"handled"`
}

// Error describes a rejected request.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// Listener answers JSON requests against a dispatcher.
type Listener struct {
	dispatcher *commandhost.Dispatcher
}

// New creates a listener for d.
func New(d *commandhost.Dispatcher) *Listener {
	return &Listener{dispatcher: d}
}

// Handle decodes payload, runs the operation and encodes the response.
// Malformed requests produce an error response, not a Go error.
func (l *Listener) Handle(ctx context.Context, payload []byte) ([]byte, error) {
	var req Request
	if err := json.Unmarshal(payload, &req); err != nil {
		return encode(Response{Error: &Error{Code: CodeBadRequest, Message: fmt.Sprintf("invalid request: %v", err)}})
	}
	return encode(l.Do(ctx, req))
}

// Do runs a decoded request.
func (l *Listener) Do(ctx context.Context, req Request) Response {
	switch req.Op {
	case OpDispatch:
		if req.Cmd == "" {
			return Response{Error: &Error{Code: CodeBadRequest, Message: "dispatch requires cmd"}}
		}
		if req.Source != "" {
			ctx = commandhost.WithSource(ctx, req.Source)
		}
		res := l.dispatcher.Route(ctx, req.Cmd, command.Params(req.Params), command.Query(req.Query), nil, req.Trusted)
		return Response{Handled: res.Handled, Outcome: res.Outcome.String()}
	case OpPreview:
		if req.Cmd == "" {
			return Response{Error: &Error{Code: CodeBadRequest, Message: "preview requires cmd"}}
		}
		return Response{Outcome: l.dispatcher.Preview(ctx, req.Cmd, req.Trusted).String()}
	case OpEnumerate:
		return Response{Commands: l.dispatcher.Enumerate()}
	default:
		return Response{Error: &Error{Code: CodeUnknownOp, Message: fmt.Sprintf("unknown op %q", req.Op)}}
	}
}

func encode(resp Response) ([]byte, error) {
	b, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to encode response: %w", err)
	}
	return b, nil
}

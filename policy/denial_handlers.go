package policy

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
)

// Ensure implementations satisfy the interface.
var (
	_ DenialHandler = (*StderrDenialHandler)(nil)
	_ DenialHandler = (*NopDenialHandler)(nil)
	_ DenialHandler = (*SlogDenialHandler)(nil)
)

// StderrDenialHandler writes denials to stderr, or to Out when set.
type StderrDenialHandler struct {
	Out io.Writer
}

func (h *StderrDenialHandler) OnDenial(kind DenialKind, command string, reason string) {
	out := h.Out
	if out == nil {
		out = os.Stderr
	}
	fmt.Fprintf(out, "SLURL command %s [%s]: %s\n", kind, command, reason)
}

// NopDenialHandler does nothing.
type NopDenialHandler struct{}

func (h *NopDenialHandler) OnDenial(kind DenialKind, command string, reason string) {}

// SlogDenialHandler logs denials through a structured logger. The first
// rejection of each DenialKind is logged at warn level and later ones at
// debug. A nil Logger falls back to slog.Default().
type SlogDenialHandler struct {
	Logger *slog.Logger

	mu     sync.Mutex
	warned [2]bool
}

func (h *SlogDenialHandler) OnDenial(kind DenialKind, command string, reason string) {
	logger := h.Logger
	if logger == nil {
		logger = slog.Default()
	}

	level := slog.LevelDebug
	h.mu.Lock()
	if i := int(kind); i >= 0 && i < len(h.warned) && !h.warned[i] {
		h.warned[i] = true
		level = slog.LevelWarn
	}
	h.mu.Unlock()

	logger.Log(context.Background(), level, "untrusted SLURL command rejected",
		"kind", kind.String(),
		"command", command,
		"reason", reason)
}

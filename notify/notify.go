// Package notify shows the "command blocked" and "command throttled"
// notices to the user.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/gen2brain/beeep"
	"github.com/hako/durafmt"
	"github.com/reglet-dev/reglet-command-host/policy"
)

// Ensure implementations satisfy the interface.
var (
	_ policy.Notifier = (*Desktop)(nil)
	_ policy.Notifier = (*Log)(nil)
	_ policy.Notifier = (*Terminal)(nil)
	_ policy.Notifier = Multi(nil)
)

// Notice is the user-facing text for a denial.
type Notice struct {
	Name  string
	Title string
	Body  string
}

// NoticeFor builds the notice shown for kind. window is the throttle window
// quoted in the throttled notice.
func NoticeFor(kind policy.DenialKind, window time.Duration) Notice {
	if kind == policy.DenialThrottled {
		return Notice{
			Name:  kind.NoticeName(),
			Title: "SLURL throttled",
			Body: fmt.Sprintf("Multiple SLURLs were received from an untrusted browser within a short period. "+
				"They will be blocked for %s for your security.", durafmt.Parse(window).String()),
		}
	}
	return Notice{
		Name:  kind.NoticeName(),
		Title: "SLURL blocked",
		Body:  "A SLURL was received from an untrusted browser and has been blocked for your security.",
	}
}

// Desktop shows notices as desktop notifications.
type Desktop struct {
	Window time.Duration

	send func(title, body string) error
}

// NewDesktop creates a desktop notifier quoting window in throttle notices.
func NewDesktop(window time.Duration) *Desktop {
	return &Desktop{
		Window: window,
		send: func(title, body string) error {
			return beeep.Notify(title, body, "")
		},
	}
}

// NotifyDenial shows the notice, best-effort and non-fatal.
func (d *Desktop) NotifyDenial(ctx context.Context, kind policy.DenialKind, command string) {
	// Skip on headless Linux without DISPLAY; beeep would error.
	if runtime.GOOS == "linux" && os.Getenv("DISPLAY") == "" && os.Getenv("WAYLAND_DISPLAY") == "" {
		return
	}
	n := NoticeFor(kind, d.Window)
	if err := d.send(n.Title, n.Body); err != nil {
		slog.DebugContext(ctx, "desktop notification failed", "notice", n.Name, "error", err)
	}
}

// Log writes notices to a structured logger.
type Log struct {
	Logger *slog.Logger
	Window time.Duration
}

func (l *Log) NotifyDenial(ctx context.Context, kind policy.DenialKind, command string) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	n := NoticeFor(kind, l.Window)
	logger.InfoContext(ctx, n.Body, "notice", n.Name, "command", command)
}

// Multi fans a notice out to several notifiers in order.
type Multi []policy.Notifier

func (m Multi) NotifyDenial(ctx context.Context, kind policy.DenialKind, command string) {
	for _, n := range m {
		if n != nil {
			n.NotifyDenial(ctx, kind, command)
		}
	}
}

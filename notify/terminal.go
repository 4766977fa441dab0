package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"
	"github.com/reglet-dev/reglet-command-host/policy"
)

// Terminal shows notices as an interactive terminal note, or as plain text
// when In and Out are not both terminals.
type Terminal struct {
	Window time.Duration
	In     io.Reader
	Out    io.Writer

	interactive func() bool
	show        func(n Notice) error
}

// NewTerminal creates a terminal notifier writing its fallback text to stderr.
func NewTerminal(window time.Duration) *Terminal {
	t := &Terminal{
		Window: window,
		In:     os.Stdin,
		Out:    os.Stderr,
		show:   showNote,
	}
	t.interactive = func() bool { return isTerminal(t.In) && isTerminal(t.Out) }
	return t
}

// NotifyDenial shows the notice.
func (t *Terminal) NotifyDenial(_ context.Context, kind policy.DenialKind, _ string) {
	n := NoticeFor(kind, t.Window)
	if t.interactive != nil && t.interactive() && t.show != nil {
		if err := t.show(n); err == nil {
			return
		}
	}
	out := t.Out
	if out == nil {
		out = os.Stderr
	}
	fmt.Fprintf(out, "\033[1;33m%s\033[0m\n  %s\n", n.Title, n.Body)
}

func isTerminal(v any) bool {
	f, ok := v.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func showNote(n Notice) error {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title(n.Title).
				Description(n.Body).
				Next(true),
		),
	).Run()
}

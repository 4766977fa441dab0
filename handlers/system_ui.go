package handlers

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/pkg/browser"
	"github.com/reglet-dev/reglet-command-host/netutil"
)

var _ UI = (*SystemUI)(nil)

// SystemUI is a headless UI: panel and teleport requests are written to Out,
// URLs open in the system browser.
type SystemUI struct {
	Out    io.Writer
	Logger *slog.Logger

	// openURL is swapped in tests.
	openURL func(string) error
}

// NewSystemUI creates a SystemUI writing to out (stdout when nil).
func NewSystemUI(out io.Writer, logger *slog.Logger) *SystemUI {
	if out == nil {
		out = os.Stdout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SystemUI{Out: out, Logger: logger, openURL: browser.OpenURL}
}

// ShowPanel prints the panel request.
func (u *SystemUI) ShowPanel(name string, key map[string]string) bool {
	keys := make([]string, 0, len(key))
	for k := range key {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+key[k])
	}
	fmt.Fprintf(u.Out, "show panel %s {%s}\n", name, strings.Join(pairs, ", "))
	return true
}

// Teleport prints the teleport request.
func (u *SystemUI) Teleport(region string, x, y, z float64) bool {
	fmt.Fprintf(u.Out, "teleport %s (%g, %g, %g)\n", region, x, y, z)
	return true
}

// OpenURL opens rawURL in the system browser.
func (u *SystemUI) OpenURL(rawURL string) bool {
	open := u.openURL
	if open == nil {
		open = browser.OpenURL
	}
	if err := open(rawURL); err != nil {
		u.Logger.Warn("failed to open browser", "url", netutil.StripCredentials(rawURL), "error", err)
		return false
	}
	fmt.Fprintf(u.Out, "open url %s\n", rawURL)
	return true
}

package notify

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/reglet-dev/reglet-command-host/policy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoticeFor(t *testing.T) {
	blocked := NoticeFor(policy.DenialBlocked, 15*time.Second)
	assert.Equal(t, "BlockedSLURL", blocked.Name)
	assert.Contains(t, blocked.Body, "blocked for your security")

	throttled := NoticeFor(policy.DenialThrottled, 15*time.Second)
	assert.Equal(t, "ThrottledSLURL", throttled.Name)
	assert.Contains(t, throttled.Body, "blocked for 15 seconds")
}

func TestLog(t *testing.T) {
	var buf bytes.Buffer
	n := &Log{Logger: slog.New(slog.NewTextHandler(&buf, nil)), Window: 15 * time.Second}

	n.NotifyDenial(context.Background(), policy.DenialThrottled, "teleport")

	assert.Contains(t, buf.String(), "notice=ThrottledSLURL")
	assert.Contains(t, buf.String(), "command=teleport")
}

func TestDesktop_Send(t *testing.T) {
	t.Setenv("DISPLAY", ":0")

	var titles []string
	d := NewDesktop(15 * time.Second)
	d.send = func(title, body string) error {
		titles = append(titles, title)
		return errors.New("no notification daemon")
	}

	d.NotifyDenial(context.Background(), policy.DenialBlocked, "openfloater")
	assert.Equal(t, []string{"SLURL blocked"}, titles)
}

func TestTerminal_Fallback(t *testing.T) {
	var buf bytes.Buffer
	term := NewTerminal(15 * time.Second)
	term.Out = &buf
	term.interactive = func() bool { return false }
	term.show = func(Notice) error {
		t.Fatal("note form shown on a non-interactive terminal")
		return nil
	}

	term.NotifyDenial(context.Background(), policy.DenialThrottled, "teleport")
	assert.Contains(t, buf.String(), "SLURL throttled")
}

func TestTerminal_Interactive(t *testing.T) {
	var buf bytes.Buffer
	var shown []Notice
	term := NewTerminal(15 * time.Second)
	term.Out = &buf
	term.interactive = func() bool { return true }
	term.show = func(n Notice) error {
		shown = append(shown, n)
		return nil
	}

	term.NotifyDenial(context.Background(), policy.DenialBlocked, "browser")
	require.Len(t, shown, 1)
	assert.Equal(t, "BlockedSLURL", shown[0].Name)
	assert.Empty(t, buf.String())
}

type recorder struct{ kinds []policy.DenialKind }

func (r *recorder) NotifyDenial(_ context.Context, kind policy.DenialKind, _ string) {
	r.kinds = append(r.kinds, kind)
}

func TestMulti(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	m := Multi{a, nil, b}

	m.NotifyDenial(context.Background(), policy.DenialBlocked, "x")
	assert.Equal(t, []policy.DenialKind{policy.DenialBlocked}, a.kinds)
	assert.Equal(t, []policy.DenialKind{policy.DenialBlocked}, b.kinds)
}

// The gate shows each notice once even with several sinks attached.
func TestMulti_WithGate(t *testing.T) {
	r := &recorder{}
	g := policy.NewGate(
		policy.WithNotifier(Multi{r}),
		policy.WithDenialHandler(&policy.NopDenialHandler{}),
	)
	for i := 0; i < 3; i++ {
		g.Check(context.Background(), "openfloater", policy.UntrustedBlock, false)
	}
	assert.Len(t, r.kinds, 1)
}

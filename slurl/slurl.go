// Package slurl parses in-world links ("SLURLs") into dispatchable commands.
//
// Supported forms:
//
//	secondlife:///app/<command>/<param>/...?<query>
//	secondlife://<region>/<x>/<y>/<z>
//	http(s)://<map host>/secondlife/app/<command>/...
//	http(s)://<map host>/secondlife/<region>/<x>/<y>/<z>
//
// Location links are mapped to the "teleport" command.
package slurl

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	commandhost "github.com/reglet-dev/reglet-command-host"
	"github.com/reglet-dev/reglet-command-host/command"
)

const (
	// Scheme is the custom URL scheme used by in-world links.
	Scheme = "secondlife"
	// TeleportCommand is the command location links resolve to.
	TeleportCommand = "teleport"

	appSegment  = "app"
	webPrefix   = "/secondlife/"
	maxSegments = 64
)

// MapHosts lists the web hosts whose /secondlife/ paths are treated as SLURLs.
var MapHosts = []string{
	"slurl.com",
	"www.slurl.com",
	"maps.secondlife.com",
	"world.secondlife.com",
}

var (
	// ErrNotSLURL is returned for input that is not an in-world link.
	ErrNotSLURL = errors.New("not a SLURL")

	// ErrMissingCommand is returned for /app/ links without a command name.
	ErrMissingCommand = errors.New("SLURL has no command")
)

// ParseError describes why a link could not be parsed.
type ParseError struct {
	Err   error
	Input string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse SLURL %q: %v", e.Input, e.Err)
}

// Unwrap allows errors.Is(err, slurl.ErrNotSLURL).
func (e *ParseError) Unwrap() error {
	return e.Err
}

// Command is a parsed link.
type Command struct {
	Name   string
	Params command.Params
	Query  command.Query
}

// String renders the command back in secondlife:///app/ form.
func (c Command) String() string {
	var b strings.Builder
	b.WriteString(Scheme)
	b.WriteString(":///")
	b.WriteString(appSegment)
	b.WriteString("/")
	b.WriteString(url.PathEscape(c.Name))
	for _, p := range c.Params {
		b.WriteString("/")
		b.WriteString(url.PathEscape(p))
	}
	if len(c.Query) > 0 {
		b.WriteString("?")
		b.WriteString(c.Query.Encode())
	}
	return b.String()
}

// IsSLURL reports whether raw looks like an in-world link.
func IsSLURL(raw string) bool {
	_, err := Parse(raw)
	return err == nil
}

// Parse converts a link into a Command. Path segments are split before they
// are unescaped, so an encoded "/" stays inside its parameter.
func Parse(raw string) (Command, error) {
	trimmed := strings.TrimSpace(raw)

	// The region of secondlife://Region/x/y/z sits where url.Parse expects a
	// host, and region names may contain spaces, so this scheme is split by hand.
	if scheme, rest, ok := strings.Cut(trimmed, ":"); ok && strings.EqualFold(scheme, Scheme) {
		return parseScheme(raw, rest)
	}

	u, err := url.Parse(trimmed)
	if err != nil {
		return Command{}, &ParseError{Input: raw, Err: fmt.Errorf("%w: %w", ErrNotSLURL, err)}
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return Command{}, &ParseError{Input: raw, Err: ErrNotSLURL}
	}
	escaped := u.EscapedPath()
	if !isMapHost(u.Hostname()) || !strings.HasPrefix(escaped, webPrefix) {
		return Command{}, &ParseError{Input: raw, Err: ErrNotSLURL}
	}
	segments, err := splitEscaped(strings.TrimPrefix(escaped, webPrefix))
	if err != nil {
		return Command{}, &ParseError{Input: raw, Err: err}
	}
	return fromSegments(raw, segments, u.Query())
}

// parseScheme handles everything after "secondlife:".
func parseScheme(raw, rest string) (Command, error) {
	rest, _, _ = strings.Cut(rest, "#")
	rest, rawQuery, _ := strings.Cut(rest, "?")
	q, err := url.ParseQuery(rawQuery)
	if err != nil {
		return Command{}, &ParseError{Input: raw, Err: fmt.Errorf("%w: %w", ErrNotSLURL, err)}
	}
	if !strings.HasPrefix(rest, "//") {
		return Command{}, &ParseError{Input: raw, Err: ErrNotSLURL}
	}
	region, path, _ := strings.Cut(strings.TrimPrefix(rest, "//"), "/")

	segments, err := splitEscaped(path)
	if err != nil {
		return Command{}, &ParseError{Input: raw, Err: err}
	}
	if region == "" {
		return fromSegments(raw, segments, q)
	}
	name, err := url.PathUnescape(region)
	if err != nil {
		return Command{}, &ParseError{Input: raw, Err: fmt.Errorf("%w: %w", ErrNotSLURL, err)}
	}
	return location(raw, append([]string{name}, segments...), q)
}

// fromSegments builds a command from the unescaped path segments of an
// app or location link.
func fromSegments(raw string, segments []string, q url.Values) (Command, error) {
	if len(segments) == 0 {
		return Command{}, &ParseError{Input: raw, Err: ErrNotSLURL}
	}
	if segments[0] != appSegment {
		return location(raw, segments, q)
	}
	if len(segments) < 2 || segments[1] == "" {
		return Command{}, &ParseError{Input: raw, Err: ErrMissingCommand}
	}
	return Command{
		Name:   segments[1],
		Params: command.Params(segments[2:]),
		Query:  command.QueryFromValues(q),
	}, nil
}

// location maps region/x/y/z segments to a teleport command.
func location(raw string, segments []string, q url.Values) (Command, error) {
	if len(segments) == 0 || segments[0] == "" {
		return Command{}, &ParseError{Input: raw, Err: ErrNotSLURL}
	}
	if len(segments) > 4 {
		segments = segments[:4]
	}
	return Command{
		Name:   TeleportCommand,
		Params: command.Params(segments),
		Query:  command.QueryFromValues(q),
	}, nil
}

// splitEscaped splits an escaped path on "/" and unescapes each segment.
func splitEscaped(p string) ([]string, error) {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil, nil
	}
	parts := strings.Split(p, "/")
	if len(parts) > maxSegments {
		return nil, fmt.Errorf("%w: too many path segments", ErrNotSLURL)
	}
	for i, part := range parts {
		seg, err := url.PathUnescape(part)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrNotSLURL, err)
		}
		parts[i] = seg
	}
	return parts, nil
}

func isMapHost(host string) bool {
	host = strings.ToLower(host)
	for _, h := range MapHosts {
		if host == h {
			return true
		}
	}
	return false
}

// Dispatch parses raw and routes it through d. Links that do not parse are
// reported as an error and never reach the dispatcher.
func Dispatch(ctx context.Context, d *commandhost.Dispatcher, raw string, web command.Browser, trusted bool) (commandhost.Result, error) {
	cmd, err := Parse(raw)
	if err != nil {
		return commandhost.Result{Outcome: commandhost.OutcomeNotFound}, err
	}
	return d.Route(ctx, cmd.Name, cmd.Params, cmd.Query, web, trusted), nil
}

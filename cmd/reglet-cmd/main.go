// Command reglet-cmd dispatches SLURLs through the command host from the
// command line.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	commandhost "github.com/reglet-dev/reglet-command-host"
	"github.com/reglet-dev/reglet-command-host/about"
	"github.com/reglet-dev/reglet-command-host/config"
	"github.com/reglet-dev/reglet-command-host/handlers"
	"github.com/reglet-dev/reglet-command-host/listener"
	"github.com/reglet-dev/reglet-command-host/notify"
	"github.com/reglet-dev/reglet-command-host/policy"
	"github.com/reglet-dev/reglet-command-host/policystore"
	"github.com/reglet-dev/reglet-command-host/slurl"
)

const usage = `usage: reglet-cmd <command> [flags]

commands:
  dispatch [-untrusted] [-verbose] <slurl>...
                                     route SLURLs to their handlers
  list [-format text|json|yaml]      show registered commands
  schema [-kind listing|overrides]   print a JSON schema
  override <pattern> <access>        persist an access override
  serve                              answer JSON requests on stdin
  version                            print the host version
`

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}
	switch args[0] {
	case "dispatch":
		return dispatchCmd(ctx, args[1:], stdin, stdout, stderr)
	case "list":
		return listCmd(args[1:], stdout, stderr)
	case "schema":
		return schemaCmd(args[1:], stdout, stderr)
	case "override":
		return overrideCmd(args[1:], stdout, stderr)
	case "serve":
		return serveCmd(ctx, args[1:], stdin, stdout, stderr)
	case "version":
		fmt.Fprintln(stdout, commandhost.Version)
		return 0
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command %q\n%s", args[0], usage)
		return 2
	}
}

// host bundles the wired dispatcher with its settings.
type host struct {
	cfg        config.Config
	dispatcher *commandhost.Dispatcher
}

// newHost wires the dispatcher. Denial notes are interactive only when stdin
// and stderr are terminals. With verbose set every rejection is printed to
// stderr regardless of the log level.
func newHost(configPath string, verbose bool, stdin io.Reader, stdout, stderr io.Writer) (*host, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger := cfg.NewLogger(stderr)

	terminal := notify.NewTerminal(cfg.ThrottleWindow)
	terminal.In = stdin
	terminal.Out = stderr
	notifiers := notify.Multi{&notify.Log{Logger: logger, Window: cfg.ThrottleWindow}, terminal}
	if cfg.DesktopNotify {
		notifiers = append(notifiers, notify.NewDesktop(cfg.ThrottleWindow))
	}

	var denials policy.DenialHandler = &policy.SlogDenialHandler{Logger: logger}
	if verbose {
		denials = &policy.StderrDenialHandler{Out: stderr}
	}

	gate := policy.NewGate(
		policy.WithThrottleWindow(cfg.ThrottleWindow),
		policy.WithDenialHandler(denials),
		policy.WithNotifier(notifiers),
	)
	d := commandhost.NewDispatcher(
		commandhost.WithPolicy(gate),
		commandhost.WithLogger(logger),
		commandhost.WithMiddleware(
			commandhost.PanicRecoveryMiddleware(logger),
			commandhost.LoggingMiddleware(logger),
		),
	)
	d.RegisterAll(handlers.Builtins(handlers.NewSystemUI(stdout, logger))...)

	store := policystore.NewFileStore(policystore.WithPath(cfg.OverridesPath))
	overrides, err := store.Load()
	if err != nil {
		return nil, err
	}
	if err := overrides.CheckHost(commandhost.Version); err != nil {
		return nil, fmt.Errorf("%s: %w", store.ConfigPath(), err)
	}
	if changed := overrides.Apply(d.Registry()); len(changed) > 0 {
		logger.Debug("access overrides applied", "commands", changed, "path", store.ConfigPath())
	}

	return &host{cfg: cfg, dispatcher: d}, nil
}

func dispatchCmd(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("dispatch", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "YAML config file (optional)")
	untrusted := fs.Bool("untrusted", false, "treat the SLURLs as coming from an untrusted browser")
	source := fs.String("source", "cli", "origin recorded in dispatch logs")
	verbose := fs.Bool("verbose", false, "print every rejected command to stderr")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(stderr, "dispatch: missing slurl")
		return 2
	}

	h, err := newHost(*configPath, *verbose, stdin, stdout, stderr)
	if err != nil {
		fmt.Fprintln(stderr, "dispatch:", err)
		return 1
	}

	ctx = commandhost.WithSource(ctx, *source)
	status := 0
	for _, raw := range fs.Args() {
		res, err := slurl.Dispatch(ctx, h.dispatcher, raw, nil, !*untrusted)
		if err != nil {
			fmt.Fprintln(stderr, "dispatch:", err)
			status = 1
			continue
		}
		fmt.Fprintf(stdout, "%s\t%s\n", raw, res.Outcome)
		if !res.Handled {
			status = 1
		}
	}
	return status
}

func listCmd(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "YAML config file (optional)")
	format := fs.String("format", "text", "output format: text, json or yaml")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	f, err := about.ParseFormat(*format)
	if err != nil {
		fmt.Fprintln(stderr, "list:", err)
		return 2
	}

	h, err := newHost(*configPath, false, nil, stdout, stderr)
	if err != nil {
		fmt.Fprintln(stderr, "list:", err)
		return 1
	}
	if err := about.Render(stdout, h.dispatcher.Enumerate(), f); err != nil {
		fmt.Fprintln(stderr, "list:", err)
		return 1
	}
	return 0
}

func schemaCmd(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("schema", flag.ContinueOnError)
	fs.SetOutput(stderr)
	kind := fs.String("kind", "listing", "schema to print: listing or overrides")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	var (
		b   []byte
		err error
	)
	switch *kind {
	case "listing":
		b, err = about.Schema()
	case "overrides":
		b, err = policystore.Schema()
	default:
		fmt.Fprintf(stderr, "schema: unknown kind %q\n", *kind)
		return 2
	}
	if err != nil {
		fmt.Fprintln(stderr, "schema:", err)
		return 1
	}
	fmt.Fprintln(stdout, string(b))
	return 0
}

func overrideCmd(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("override", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "YAML config file (optional)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 2 {
		fmt.Fprintln(stderr, "override: expected <pattern> <access>")
		return 2
	}
	access, err := policy.ParseAccess(fs.Arg(1))
	if err != nil {
		fmt.Fprintln(stderr, "override:", err)
		return 2
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(stderr, "override:", err)
		return 1
	}
	store := policystore.NewFileStore(policystore.WithPath(cfg.OverridesPath))
	overrides, err := store.Load()
	if err != nil {
		fmt.Fprintln(stderr, "override:", err)
		return 1
	}
	overrides.Set(fs.Arg(0), access)
	if err := store.Save(overrides); err != nil {
		fmt.Fprintln(stderr, "override:", err)
		return 1
	}
	fmt.Fprintf(stdout, "%s -> %s (%s)\n", fs.Arg(0), access, store.ConfigPath())
	return 0
}

func serveCmd(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "YAML config file (optional)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	// stdin carries requests and stdout only responses.
	h, err := newHost(*configPath, false, nil, stderr, stderr)
	if err != nil {
		fmt.Fprintln(stderr, "serve:", err)
		return 1
	}
	l := listener.New(h.dispatcher)

	scanner := bufio.NewScanner(stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		out, err := l.Handle(ctx, []byte(line))
		if err != nil {
			fmt.Fprintln(stderr, "serve:", err)
			return 1
		}
		fmt.Fprintln(stdout, string(out))
	}
	if err := scanner.Err(); err != nil {
		fmt.Fprintln(stderr, "serve:", err)
		return 1
	}
	return 0
}

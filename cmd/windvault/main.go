package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/windvault/windvault/internal/buildinfo"
)

const usageText = `windvault is the CLI for windvaultd.

Usage:
  windvault --version
  windvault [--socket PATH] [--token TOKEN] [--json] [--timeout DURATION] status
  windvault [...] order list
  windvault [...] order show <order_id>
  windvault [...] order create --staff <staff_id> --amount <amount> [--date <rfc3339>] [--snapshot <window_id>=<balance> ...]
  windvault [...] order complete <order_id> [--result <window_id>=<consumed>:<end_balance> ...]
  windvault [...] order pause <order_id> --completed <amount>
  windvault [...] order resume <order_id> [--staff <staff_id>]
  windvault [...] order delete <order_id>
  windvault [...] window list [--machine <machine_id>]
  windvault [...] window show <window_id>
  windvault [...] window assign <window_id> [--staff <staff_id>]
  windvault [...] window recharge <window_id> --delta <coins>
  windvault [...] machine list
  windvault [...] machine buy --name <name> --count <n> [--provider <p>] [--balance <coins>] [--cost <cost>] [--note <note>]
  windvault [...] machine delete <machine_id>
  windvault [...] request submit --type <apply|release> [--window <window_id>]
  windvault [...] request list [--status <pending|approved|rejected>]
  windvault [...] request process <request_id> --approve|--reject
  windvault [...] staff list
  windvault [...] events [--limit <n>]
  windvault [...] sync

Global Flags:
  --socket PATH   Path to windvaultd socket (default /run/windvault/windvaultd.sock)
  --token TOKEN   Bearer token (default $WINDVAULT_TOKEN)
  --json          Output json
  --timeout       Request timeout (e.g. 30s, 2m)
`

type globalOptions struct {
	socketPath  string
	token       string
	jsonOutput  bool
	showVersion bool
	timeout     time.Duration
}

func main() {
	opts, args, err := parseGlobal(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		printUsage()
		os.Exit(2)
	}
	if opts.showVersion {
		fmt.Println(buildinfo.String())
		return
	}
	if len(args) == 0 || isHelpToken(args[0]) {
		printUsage()
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	base := commonFlags{
		socketPath: opts.socketPath,
		token:      opts.token,
		jsonOutput: opts.jsonOutput,
		timeout:    opts.timeout,
	}
	if err := dispatch(ctx, args, base); err != nil {
		if errors.Is(err, errHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func parseGlobal(args []string) (globalOptions, []string, error) {
	opts := globalOptions{socketPath: defaultSocketPath}
	fs := flag.NewFlagSet("windvault", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&opts.socketPath, "socket", defaultSocketPath, "path to windvaultd socket")
	fs.StringVar(&opts.token, "token", os.Getenv("WINDVAULT_TOKEN"), "bearer token")
	fs.BoolVar(&opts.jsonOutput, "json", false, jsonFlagDescription)
	fs.DurationVar(&opts.timeout, "timeout", defaultRequestTimeout, "request timeout (e.g. 30s, 2m)")
	fs.BoolVar(&opts.showVersion, "version", false, "print version and exit")
	if err := fs.Parse(args); err != nil {
		return opts, nil, err
	}
	if opts.socketPath == "" {
		opts.socketPath = defaultSocketPath
	}
	return opts, fs.Args(), nil
}

func dispatch(ctx context.Context, args []string, base commonFlags) error {
	switch args[0] {
	case "status":
		return runStatus(ctx, args[1:], base)
	case "order":
		return runOrderCommand(ctx, args[1:], base)
	case "window":
		return runWindowCommand(ctx, args[1:], base)
	case "machine":
		return runMachineCommand(ctx, args[1:], base)
	case "request":
		return runRequestCommand(ctx, args[1:], base)
	case "staff":
		return runStaffCommand(ctx, args[1:], base)
	case "events":
		return runEvents(ctx, args[1:], base)
	case "sync":
		return runSync(ctx, args[1:], base)
	default:
		printUsage()
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func isHelpToken(arg string) bool {
	switch arg {
	case "help", "--help", "-h":
		return true
	}
	return false
}

func printUsage() {
	_, _ = fmt.Fprint(os.Stdout, usageText)
}

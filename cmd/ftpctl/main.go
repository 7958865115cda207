// Command ftpctl drives the behavior-configuration surface of a running
// DittoFTP server: it lists and sets per-command fault injection, resets the
// table, tails the server log and opens an interactive shell.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/marmos91/dittoftp/pkg/control"
)

const usage = `ftpctl - DittoFTP behavior control

Usage:
  ftpctl [--addr URL] <command> [args]

Commands:
  list                                  Show every command's behavior
  set <CMD> [--error=BOOL] [--delay=N]  Change one command's behavior
  reset                                 Restore every command to the default
  logs [--follow]                       Print the server's recent log lines
  export                                Print behaviors as a config file fragment
  shell                                 Interactive prompt

Flags:
`

func main() {
	addr := flag.String("addr", envOr("DITTOFTP_CONTROL_ADDR", fmt.Sprintf("http://127.0.0.1:%d", control.DefaultPort)),
		"Control API base URL")
	noColor := flag.Bool("no-color", false, "Disable colored output")
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if *noColor {
		color.NoColor = true
	}

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app := &cli{client: control.NewClient(*addr), out: os.Stdout}
	if err := app.run(ctx, flag.Arg(0), flag.Args()[1:]); err != nil {
		errorColor.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

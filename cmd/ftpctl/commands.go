package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/marmos91/dittoftp/pkg/behavior"
	"github.com/marmos91/dittoftp/pkg/control"
	"gopkg.in/yaml.v3"
)

var (
	errorColor   = color.New(color.FgRed, color.Bold)
	successColor = color.New(color.FgGreen)
	infoColor    = color.New(color.FgCyan)
	warnColor    = color.New(color.FgYellow)
)

// cli executes ftpctl commands against one control surface.
type cli struct {
	client *control.Client
	out    io.Writer
}

func (c *cli) run(ctx context.Context, name string, args []string) error {
	switch strings.ToLower(name) {
	case "list", "ls":
		return c.list(ctx)
	case "set":
		return c.set(ctx, args)
	case "reset":
		return c.reset(ctx)
	case "logs":
		return c.logs(ctx, args)
	case "export":
		return c.export(ctx)
	case "shell":
		return c.shell(ctx)
	default:
		return fmt.Errorf("unknown command %q (try: list, set, reset, logs, export, shell)", name)
	}
}

func (c *cli) list(ctx context.Context) error {
	entries, err := c.client.Behaviors(ctx)
	if err != nil {
		return err
	}
	return renderBehaviors(c.out, entries)
}

// set parses "CMD [--error=BOOL] [--delay=N]". The command may also follow
// the flags.
func (c *cli) set(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("set", flag.ContinueOnError)
	fset.SetOutput(io.Discard)
	errFlag := fset.String("error", "", "Inject an error (true/false)")
	delayFlag := fset.Int("delay", -1, "Delay in seconds (0-10)")

	var command string
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		command, args = args[0], args[1:]
	}
	if err := fset.Parse(args); err != nil {
		return fmt.Errorf("set: %w", err)
	}
	if command == "" && fset.NArg() > 0 {
		command = fset.Arg(0)
	}
	if command == "" {
		return fmt.Errorf("set: missing command name (one of %s)", strings.Join(behavior.Commands, ", "))
	}

	var errorEnabled *bool
	if *errFlag != "" {
		v, err := strconv.ParseBool(*errFlag)
		if err != nil {
			return fmt.Errorf("set: --error must be true or false")
		}
		errorEnabled = &v
	}
	var delay *int
	if *delayFlag >= 0 {
		delay = delayFlag
	}
	if errorEnabled == nil && delay == nil {
		return fmt.Errorf("set: nothing to change, pass --error and/or --delay")
	}

	entry, err := c.client.SetBehavior(ctx, command, errorEnabled, delay)
	if err != nil {
		return err
	}

	successColor.Fprintf(c.out, "%s: error=%v delay=%ds\n", entry.Command, entry.ErrorEnabled, entry.DelaySeconds)
	if delay != nil && *delay != entry.DelaySeconds {
		warnColor.Fprintf(c.out, "delay clamped to %ds\n", entry.DelaySeconds)
	}
	return nil
}

func (c *cli) reset(ctx context.Context) error {
	entries, err := c.client.Reset(ctx)
	if err != nil {
		return err
	}
	successColor.Fprintln(c.out, "All behaviors reset")
	return renderBehaviors(c.out, entries)
}

func (c *cli) logs(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("logs", flag.ContinueOnError)
	fset.SetOutput(io.Discard)
	follow := fset.Bool("follow", false, "Keep polling for new lines")
	interval := fset.Duration("interval", time.Second, "Polling interval with --follow")
	if err := fset.Parse(args); err != nil {
		return fmt.Errorf("logs: %w", err)
	}

	var since uint64
	for {
		records, err := c.client.Logs(ctx, since)
		if err != nil {
			return err
		}
		for _, r := range records {
			printLogRecord(c.out, r)
			since = r.Seq
		}

		if !*follow {
			return nil
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(*interval):
		}
	}
}

// exportDocument is a config file fragment accepted under the top level.
type exportDocument struct {
	Behaviors struct {
		Commands map[string]behavior.CommandBehavior `yaml:"commands"`
	} `yaml:"behaviors"`
}

// export prints the non-default behaviors as YAML that can be pasted into
// the server config.
func (c *cli) export(ctx context.Context) error {
	entries, err := c.client.Behaviors(ctx)
	if err != nil {
		return err
	}

	var doc exportDocument
	doc.Behaviors.Commands = make(map[string]behavior.CommandBehavior)
	for _, e := range entries {
		if e.CommandBehavior != (behavior.CommandBehavior{}) {
			doc.Behaviors.Commands[e.Command] = e.CommandBehavior
		}
	}

	enc := yaml.NewEncoder(c.out)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode behaviors: %w", err)
	}
	return enc.Close()
}

func printLogRecord(w io.Writer, r control.LogRecord) {
	level := fmt.Sprintf("%-5s", r.Level)
	switch r.Level {
	case "ERROR":
		level = errorColor.Sprint(level)
	case "WARN":
		level = warnColor.Sprint(level)
	default:
		level = infoColor.Sprint(level)
	}
	fmt.Fprintf(w, "%s %s %s\n", r.Time.Local().Format("15:04:05"), level, r.Message)
}

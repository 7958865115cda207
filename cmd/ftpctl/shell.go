package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/c-bata/go-prompt"
	"github.com/marmos91/dittoftp/pkg/behavior"
)

var shellCommands = []prompt.Suggest{
	{Text: "list", Description: "Show every command's behavior"},
	{Text: "set", Description: "set <CMD> --error=BOOL --delay=N"},
	{Text: "reset", Description: "Restore every command to the default"},
	{Text: "logs", Description: "Print the server's recent log lines"},
	{Text: "export", Description: "Print behaviors as a config file fragment"},
	{Text: "help", Description: "Show available commands"},
	{Text: "exit", Description: "Leave the shell"},
}

var setFlags = []prompt.Suggest{
	{Text: "--error=true", Description: "Inject an error reply"},
	{Text: "--error=false", Description: "Stop injecting errors"},
	{Text: "--delay=", Description: "Delay in seconds (0-10)"},
}

// shell runs an interactive prompt until "exit" or Ctrl+D.
func (c *cli) shell(ctx context.Context) error {
	if err := c.client.Health(ctx); err != nil {
		return err
	}

	infoColor.Fprintln(c.out, "Connected to DittoFTP control API. Type 'help' for commands.")

	p := prompt.New(
		func(line string) { c.execute(ctx, line) },
		completer,
		prompt.OptionTitle("ftpctl"),
		prompt.OptionPrefix("ftpctl> "),
		prompt.OptionPrefixTextColor(prompt.Green),
		prompt.OptionPreviewSuggestionTextColor(prompt.Blue),
		prompt.OptionSelectedSuggestionBGColor(prompt.LightGray),
		prompt.OptionSuggestionBGColor(prompt.DarkGray),
		prompt.OptionSetExitCheckerOnInput(func(in string, breakline bool) bool {
			return breakline && isExit(in)
		}),
	)
	p.Run()
	return nil
}

func (c *cli) execute(ctx context.Context, line string) {
	fields := strings.Fields(line)
	if len(fields) == 0 || isExit(line) {
		return
	}

	if fields[0] == "help" {
		for _, s := range shellCommands {
			fmt.Fprintf(c.out, "  %-8s %s\n", s.Text, s.Description)
		}
		return
	}
	if fields[0] == "shell" {
		warnColor.Fprintln(c.out, "Already in the shell")
		return
	}

	if err := c.run(ctx, fields[0], fields[1:]); err != nil {
		errorColor.Fprintf(c.out, "Error: %v\n", err)
	}
}

func completer(d prompt.Document) []prompt.Suggest {
	words := strings.Fields(d.TextBeforeCursor())
	word := d.GetWordBeforeCursor()

	// Completing the first word
	if len(words) == 0 || (len(words) == 1 && word != "") {
		return prompt.FilterHasPrefix(shellCommands, word, true)
	}

	if words[0] != "set" {
		return nil
	}
	if len(words) == 1 || (len(words) == 2 && word != "") {
		suggests := make([]prompt.Suggest, 0, len(behavior.Commands))
		for _, cmd := range behavior.Commands {
			suggests = append(suggests, prompt.Suggest{Text: cmd})
		}
		return prompt.FilterHasPrefix(suggests, word, true)
	}
	return prompt.FilterHasPrefix(setFlags, word, true)
}

func isExit(line string) bool {
	switch strings.TrimSpace(line) {
	case "exit", "quit":
		return true
	}
	return false
}

package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/marmos91/dittoftp/pkg/behavior"
	"github.com/olekukonko/tablewriter"
)

// renderBehaviors prints entries as a Command/Error/Delay table.
func renderBehaviors(w io.Writer, entries []behavior.Entry) error {
	table := tablewriter.NewWriter(w)
	table.Header("Command", "Error", "Delay")

	for _, e := range entries {
		errCell := "off"
		if e.ErrorEnabled {
			errCell = color.RedString("ON")
		}
		delayCell := "-"
		if e.DelaySeconds > 0 {
			delayCell = color.YellowString(fmt.Sprintf("%ds", e.DelaySeconds))
		}
		if err := table.Append([]string{e.Command, errCell, delayCell}); err != nil {
			return err
		}
	}

	return table.Render()
}

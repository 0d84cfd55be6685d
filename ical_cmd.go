package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conductorapp/conductor/event"
)

var icalCmd = &cobra.Command{
	Use:   "ical <token|url|file>",
	Short: "Export an event as an iCalendar document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ev, err := loadEventArg(args[0])
		if err != nil {
			return err
		}
		fmt.Print(event.ExportICS(ev))
		return nil
	},
}

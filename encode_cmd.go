package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conductorapp/conductor/event"
	"github.com/conductorapp/conductor/event/token"
)

var encodeCmd = &cobra.Command{
	Use:   "encode <file>",
	Short: "Encode an event file (JSON, YAML, or text schedule) as a shareable token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ev, err := loadEventArg(args[0])
		if err != nil {
			return err
		}
		tok, err := token.Encode(ev)
		if err != nil {
			return err
		}
		fmt.Println(tok)
		fmt.Fprintf(cmd.ErrOrStderr(), "%d chars, %d actions\n", len(tok), len(ev.Timeline))
		return nil
	},
}

var decodeCmd = &cobra.Command{
	Use:   "decode <token|url|file>",
	Short: "Decode a shared event token back into readable JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ev, err := loadEventArg(args[0])
		if err != nil {
			return err
		}
		out, err := prettyEvent(ev)
		if err != nil {
			return err
		}
		fmt.Println(out)
		return nil
	},
}

// prettyEvent renders the wire form indented for human reading.
func prettyEvent(ev event.Event) (string, error) {
	compact, err := event.MarshalCompact(ev)
	if err != nil {
		return "", err
	}
	var buf map[string]any
	if err := json.Unmarshal(compact, &buf); err != nil {
		return "", err
	}
	pretty, err := json.MarshalIndent(buf, "", "  ")
	if err != nil {
		return "", err
	}
	return string(pretty), nil
}

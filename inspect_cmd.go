package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/conductorapp/conductor/event"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true)
	subtleStyle   = lipgloss.NewStyle().Faint(true)
	emphasisStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	alertStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <token|url|file>",
	Short: "Show an event's timeline",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ev, err := loadEventArg(args[0])
		if err != nil {
			return err
		}
		fmt.Println(renderEvent(ev))
		return nil
	},
}

func renderEvent(ev event.Event) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(ev.Title) + "\n")
	if ev.Description != "" {
		b.WriteString(subtleStyle.Render(ev.Description) + "\n")
	}
	loc := time.UTC
	if ev.Timezone != "" {
		if l, err := time.LoadLocation(ev.Timezone); err == nil {
			loc = l
		}
	}
	b.WriteString(subtleStyle.Render(fmt.Sprintf("%s — %s (%s)\n",
		ev.StartTime.In(loc).Format("Mon 15:04:05"),
		ev.EndTime.In(loc).Format("15:04:05"),
		loc)))
	b.WriteString("\n")

	for _, a := range ev.Timeline {
		offset := a.Time.Sub(ev.StartTime).Round(time.Second)
		line := fmt.Sprintf("%8s  %s", "+"+offset.String(), actionLabel(a))
		var extras []string
		if a.CountdownBeeps {
			extras = append(extras, "countdown")
		}
		if a.Cue != "" {
			extras = append(extras, fmt.Sprintf("cue=%s/%s", a.Pack, a.Cue))
		}
		if a.HapticPattern != event.HapticSingle {
			extras = append(extras, "haptic="+string(a.HapticPattern))
		}
		if len(extras) > 0 {
			line += "  " + subtleStyle.Render("["+strings.Join(extras, " ")+"]")
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}

func actionLabel(a event.Action) string {
	text := a.Action
	if a.Icon != "" {
		text = a.Icon + " " + text
	}
	switch a.Style {
	case event.StyleEmphasis:
		return emphasisStyle.Render(text)
	case event.StyleAlert:
		return alertStyle.Render(text)
	default:
		return text
	}
}

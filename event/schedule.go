package event

import (
	"bufio"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Alternate authoring formats. Both are conveniences ahead of
// ValidateAndComplete: a YAML schedule for hand-edited files and a terse
// line-oriented text schedule for quick drafts. Action times may be given
// relative to the event start ("+20s"), which is how rehearsal scripts are
// usually written.

type yamlSchedule struct {
	ID                   string       `yaml:"id"`
	Title                string       `yaml:"title"`
	Description          string       `yaml:"description"`
	Start                string       `yaml:"start"`
	End                  string       `yaml:"end"`
	Timezone             string       `yaml:"timezone"`
	DefaultNoticeSeconds int          `yaml:"defaultNoticeSeconds"`
	Actions              []yamlAction `yaml:"actions"`
}

type yamlAction struct {
	ID                 string `yaml:"id"`
	At                 string `yaml:"at"` // "+20s" offset or absolute RFC 3339
	Action             string `yaml:"action"`
	Style              string `yaml:"style"`
	Haptic             string `yaml:"haptic"`
	AudioAnnounce      *bool  `yaml:"audioAnnounce"`
	AnnounceActionName *bool  `yaml:"announceActionName"`
	Countdown          bool   `yaml:"countdown"`
	CountdownSeconds   []int  `yaml:"countdownSeconds"`
	Cue                string `yaml:"cue"`
	Pack               string `yaml:"pack"`
	NoticeSeconds      int    `yaml:"noticeSeconds"`
	Color              string `yaml:"color"`
	Icon               string `yaml:"icon"`
}

// ParseYAMLSchedule parses the YAML authoring format and validates the
// resulting event.
func ParseYAMLSchedule(data []byte) (Event, error) {
	var ys yamlSchedule
	if err := yaml.Unmarshal(data, &ys); err != nil {
		return Event{}, fmt.Errorf("parse yaml schedule: %w", err)
	}

	start, err := parseWireTime(ys.Start, "start")
	if err != nil {
		return Event{}, err
	}

	ev := Event{
		ID:                   ys.ID,
		Title:                ys.Title,
		Description:          ys.Description,
		StartTime:            start,
		Timezone:             ys.Timezone,
		DefaultNoticeSeconds: ys.DefaultNoticeSeconds,
		Timeline:             make([]Action, 0, len(ys.Actions)),
	}
	if ys.End != "" {
		if ev.EndTime, err = parseWireTime(ys.End, "end"); err != nil {
			return Event{}, err
		}
	}

	for i, ya := range ys.Actions {
		at, err := resolveAt(ya.At, start, fmt.Sprintf("actions[%d].at", i))
		if err != nil {
			return Event{}, err
		}
		ev.Timeline = append(ev.Timeline, Action{
			ID:                 ya.ID,
			Time:               at,
			Action:             ya.Action,
			Style:              Style(ya.Style),
			HapticPattern:      HapticPattern(ya.Haptic),
			AudioAnnounce:      boolOr(ya.AudioAnnounce, true),
			AnnounceActionName: boolOr(ya.AnnounceActionName, true),
			CountdownBeeps:     ya.Countdown,
			CountdownSeconds:   ya.CountdownSeconds,
			Cue:                ya.Cue,
			Pack:               ya.Pack,
			NoticeSeconds:      ya.NoticeSeconds,
			Color:              ya.Color,
			Icon:               ya.Icon,
		})
	}

	return ValidateAndComplete(ev)
}

// ParseTextSchedule parses the line-oriented draft format:
//
//	title: Demo Flash Mob
//	start: 2026-03-01T18:00:00Z
//	+0s   Raise your hand  !emphasis
//	+20s  Wave slowly
//
// Header lines are "key: value"; each "+offset" line adds an action at
// start+offset, with an optional trailing "!style" marker.
func ParseTextSchedule(text string) (Event, error) {
	ev := Event{}
	var start time.Time

	sc := bufio.NewScanner(strings.NewReader(text))
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if strings.HasPrefix(line, "+") {
			if start.IsZero() {
				return Event{}, invalid("start", "line %d: action before start time", lineNo)
			}
			rest := line[1:]
			sep := strings.IndexAny(rest, " \t")
			if sep < 0 {
				return Event{}, invalid("timeline", "line %d: expected \"+offset text\"", lineNo)
			}
			offStr, text := rest[:sep], rest[sep+1:]
			off, err := time.ParseDuration(offStr)
			if err != nil || off < 0 {
				return Event{}, invalid("timeline", "line %d: bad offset %q", lineNo, offStr)
			}
			a := Action{
				Time:               start.Add(off),
				Action:             strings.TrimSpace(text),
				AudioAnnounce:      true,
				AnnounceActionName: true,
			}
			if idx := strings.LastIndex(a.Action, "!"); idx >= 0 {
				style := Style(strings.TrimSpace(a.Action[idx+1:]))
				if validStyle(style) {
					a.Style = style
					a.Action = strings.TrimSpace(a.Action[:idx])
				}
			}
			ev.Timeline = append(ev.Timeline, a)
			continue
		}

		key, val, ok := strings.Cut(line, ":")
		if !ok {
			return Event{}, invalid("", "line %d: expected \"key: value\" or \"+offset text\"", lineNo)
		}
		val = strings.TrimSpace(val)
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "title":
			ev.Title = val
		case "description":
			ev.Description = val
		case "timezone":
			ev.Timezone = val
		case "start":
			t, err := parseWireTime(val, "start")
			if err != nil {
				return Event{}, err
			}
			start = t
			ev.StartTime = t
		default:
			return Event{}, invalid("", "line %d: unknown header %q", lineNo, strings.TrimSpace(key))
		}
	}
	if err := sc.Err(); err != nil {
		return Event{}, fmt.Errorf("read text schedule: %w", err)
	}

	return ValidateAndComplete(ev)
}

// resolveAt turns a schedule time, either "+offset" or absolute RFC 3339, into an
// absolute instant.
func resolveAt(at string, start time.Time, field string) (time.Time, error) {
	at = strings.TrimSpace(at)
	if at == "" {
		return time.Time{}, invalid(field, "missing time")
	}
	if strings.HasPrefix(at, "+") {
		off, err := time.ParseDuration(at[1:])
		if err != nil || off < 0 {
			return time.Time{}, invalid(field, "bad offset %q", at)
		}
		return start.Add(off), nil
	}
	return parseWireTime(at, field)
}

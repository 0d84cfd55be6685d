package event

import (
	"encoding/json"
	"fmt"
	"time"
)

// Wire format notes: the JSON form omits every field equal to its documented
// default so encoded tokens stay small enough for QR transport. Booleans that
// default to true travel as pointers so absence and false stay distinct.

type wireEvent struct {
	ID                   string       `json:"id,omitempty"`
	Title                string       `json:"title"`
	Description          string       `json:"description,omitempty"`
	StartTime            string       `json:"startTime"`
	EndTime              string       `json:"endTime,omitempty"`
	Timezone             string       `json:"timezone,omitempty"`
	DefaultNoticeSeconds int          `json:"defaultNoticeSeconds,omitempty"`
	Timeline             []wireAction `json:"timeline"`
}

type wireAction struct {
	ID                 string `json:"id,omitempty"`
	Time               string `json:"time"`
	Action             string `json:"action"`
	Style              string `json:"style,omitempty"`
	HapticPattern      string `json:"hapticPattern,omitempty"`
	AudioAnnounce      *bool  `json:"audioAnnounce,omitempty"`
	AnnounceActionName *bool  `json:"announceActionName,omitempty"`
	CountdownBeeps     bool   `json:"countdownBeeps,omitempty"`
	CountdownSeconds   []int  `json:"countdownSeconds,omitempty"`
	Cue                string `json:"cue,omitempty"`
	Pack               string `json:"pack,omitempty"`
	NoticeSeconds      int    `json:"noticeSeconds,omitempty"`
	Color              string `json:"color,omitempty"`
	Icon               string `json:"icon,omitempty"`
}

// wireTime is the instant format on the wire: RFC 3339 in UTC, whole seconds.
const wireTime = "2006-01-02T15:04:05Z"

// MarshalCompact renders e as compact, default-omitting JSON, the canonical
// payload the token codec compresses.
func MarshalCompact(e Event) ([]byte, error) {
	w := wireEvent{
		ID:          e.ID,
		Title:       e.Title,
		Description: e.Description,
		StartTime:   e.StartTime.UTC().Format(wireTime),
		Timezone:    e.Timezone,
		Timeline:    make([]wireAction, 0, len(e.Timeline)),
	}
	if !e.EndTime.IsZero() {
		w.EndTime = e.EndTime.UTC().Format(wireTime)
	}
	if e.DefaultNoticeSeconds != DefaultNoticeSeconds {
		w.DefaultNoticeSeconds = e.DefaultNoticeSeconds
	}
	for _, a := range e.Timeline {
		wa := wireAction{
			ID:               a.ID,
			Time:             a.Time.UTC().Format(wireTime),
			Action:           a.Action,
			CountdownBeeps:   a.CountdownBeeps,
			CountdownSeconds: a.CountdownSeconds,
			Cue:              a.Cue,
			Pack:             a.Pack,
			NoticeSeconds:    a.NoticeSeconds,
			Color:            a.Color,
			Icon:             a.Icon,
		}
		if a.Style != StyleNormal {
			wa.Style = string(a.Style)
		}
		if a.HapticPattern != HapticSingle {
			wa.HapticPattern = string(a.HapticPattern)
		}
		if !a.AudioAnnounce {
			wa.AudioAnnounce = ptr(false)
		}
		if !a.AnnounceActionName {
			wa.AnnounceActionName = ptr(false)
		}
		w.Timeline = append(w.Timeline, wa)
	}
	return json.Marshal(w)
}

// ParseJSON decodes the wire JSON form, restores omitted defaults, and runs
// the result through ValidateAndComplete.
func ParseJSON(data []byte) (Event, error) {
	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return Event{}, fmt.Errorf("parse event json: %w", err)
	}

	ev := Event{
		ID:                   w.ID,
		Title:                w.Title,
		Description:          w.Description,
		Timezone:             w.Timezone,
		DefaultNoticeSeconds: w.DefaultNoticeSeconds,
		Timeline:             make([]Action, 0, len(w.Timeline)),
	}

	var err error
	if ev.StartTime, err = parseWireTime(w.StartTime, "startTime"); err != nil {
		return Event{}, err
	}
	if w.EndTime != "" {
		if ev.EndTime, err = parseWireTime(w.EndTime, "endTime"); err != nil {
			return Event{}, err
		}
	}

	for i, wa := range w.Timeline {
		a := Action{
			ID:                 wa.ID,
			Action:             wa.Action,
			Style:              Style(wa.Style),
			HapticPattern:      HapticPattern(wa.HapticPattern),
			AudioAnnounce:      boolOr(wa.AudioAnnounce, true),
			AnnounceActionName: boolOr(wa.AnnounceActionName, true),
			CountdownBeeps:     wa.CountdownBeeps,
			CountdownSeconds:   wa.CountdownSeconds,
			Cue:                wa.Cue,
			Pack:               wa.Pack,
			NoticeSeconds:      wa.NoticeSeconds,
			Color:              wa.Color,
			Icon:               wa.Icon,
		}
		if a.Time, err = parseWireTime(wa.Time, fmt.Sprintf("timeline[%d].time", i)); err != nil {
			return Event{}, err
		}
		ev.Timeline = append(ev.Timeline, a)
	}

	return ValidateAndComplete(ev)
}

func parseWireTime(s, field string) (time.Time, error) {
	if s == "" {
		return time.Time{}, invalid(field, "missing timestamp")
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, invalid(field, "unparsable timestamp %q", s)
	}
	return t, nil
}

func ptr(b bool) *bool { return &b }

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

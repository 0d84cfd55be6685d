package event

import (
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"
)

// ExportICS renders the event as an iCalendar document: one spanning VEVENT
// for the whole piece plus one VEVENT per action, so participants can drop
// the full script into their calendar app ahead of time.
func ExportICS(e Event) string {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//conductor//event//EN")

	now := time.Now().UTC()

	span := cal.AddEvent(fmt.Sprintf("%s@conductor", e.ID))
	span.SetDtStampTime(now)
	span.SetStartAt(e.StartTime.UTC())
	span.SetEndAt(e.EndTime.UTC())
	span.SetSummary(e.Title)
	if e.Description != "" {
		span.SetDescription(e.Description)
	}

	for _, a := range e.Timeline {
		ve := cal.AddEvent(fmt.Sprintf("%s-%s@conductor", e.ID, a.ID))
		ve.SetDtStampTime(now)
		ve.SetStartAt(a.Time.UTC())
		// Give each instruction a visible one-minute block.
		ve.SetEndAt(a.Time.UTC().Add(time.Minute))
		summary := a.Action
		if a.Icon != "" {
			summary = a.Icon + " " + summary
		}
		ve.SetSummary(summary)
	}

	return cal.Serialize()
}

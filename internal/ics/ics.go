// Package ics converts calendar events to and from iCalendar (RFC 5545) text.
package ics

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"scan2cal/calendar-app/internal/domain"
)

const (
	ProductID = "-//Scan2cal//EN"
	uidDomain = "scan2cal.local"
)

// ErrEmpty is returned by Import for an empty payload.
var ErrEmpty = errors.New("empty ICS body")

// Export serializes events into a VCALENDAR. stamp becomes every DTSTAMP.
// All-day events use VALUE=DATE, timed events are written in UTC.
func Export(name string, events []domain.Event, stamp time.Time) []byte {
	cal := ical.NewCalendar()
	cal.SetProductId(ProductID)
	cal.SetVersion("2.0")
	if name != "" {
		cal.SetXWRCalName(name)
	}

	for idx, ev := range events {
		vevent := cal.AddEvent(eventUID(ev, idx))
		vevent.SetDtStampTime(stamp.UTC())

		if start, err := ev.StartTime(); err == nil {
			setTime(vevent, ical.ComponentPropertyDtStart, start, ev.AllDay)
		}
		if end, ok, err := ev.EndTime(); err == nil && ok {
			setTime(vevent, ical.ComponentPropertyDtEnd, end, ev.AllDay)
		}

		title := strings.TrimSpace(ev.Title)
		if title == "" {
			title = domain.DefaultEventTitle
		}
		vevent.SetSummary(title)
		if loc := domain.StringValue(ev.ExtendedProps.Location); loc != "" {
			vevent.SetLocation(loc)
		}
		if raw := domain.StringValue(ev.ExtendedProps.RawLine); raw != "" {
			vevent.SetDescription(raw)
		}
	}
	return []byte(cal.Serialize())
}

func eventUID(ev domain.Event, idx int) string {
	id := strings.TrimSpace(ev.ID)
	if id == "" {
		id = fmt.Sprintf("scan2cal-%d", idx)
	}
	return id + "@" + uidDomain
}

func setTime(vevent *ical.VEvent, prop ical.ComponentProperty, t time.Time, allDay bool) {
	if allDay {
		vevent.SetProperty(prop, t.Format("20060102"), ical.WithValue(string(ical.ValueDataTypeDate)))
		return
	}
	vevent.SetProperty(prop, t.UTC().Format("20060102T150405Z"))
}

// Import reads every VEVENT of an iCalendar payload. Events without a usable
// DTSTART are skipped. SUMMARY, LOCATION and DESCRIPTION map to title,
// location and raw_line; course is always empty.
func Import(data []byte) ([]domain.Event, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmpty
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse ics: %w", err)
	}

	events := make([]domain.Event, 0)
	for _, ve := range cal.Events() {
		ev, ok := importEvent(ve)
		if !ok {
			continue
		}
		normalized, err := domain.NormalizeEvent(ev)
		if err != nil {
			continue
		}
		events = append(events, normalized)
	}
	return events, nil
}

func importEvent(ve *ical.VEvent) (domain.Event, bool) {
	startProp := ve.GetProperty(ical.ComponentPropertyDtStart)
	if startProp == nil || strings.TrimSpace(startProp.Value) == "" {
		return domain.Event{}, false
	}
	allDay := isDateValue(startProp)

	var ev domain.Event
	ev.AllDay = allDay

	if allDay {
		start, err := parseDate(startProp.Value)
		if err != nil {
			return domain.Event{}, false
		}
		ev.Start = start
		if endProp := ve.GetProperty(ical.ComponentPropertyDtEnd); endProp != nil {
			if end, err := parseDate(endProp.Value); err == nil {
				ev.End = &end
			}
		}
	} else {
		start, err := ve.GetStartAt()
		if err != nil {
			return domain.Event{}, false
		}
		ev.Start = start.UTC().Format(time.RFC3339)
		if ve.GetProperty(ical.ComponentPropertyDtEnd) != nil {
			if end, err := ve.GetEndAt(); err == nil {
				formatted := end.UTC().Format(time.RFC3339)
				ev.End = &formatted
			}
		}
	}

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		ev.Title = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyLocation); p != nil && p.Value != "" {
		ev.ExtendedProps.Location = domain.StringPtr(p.Value)
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil && p.Value != "" {
		ev.ExtendedProps.RawLine = domain.StringPtr(p.Value)
	}
	return ev, true
}

// isDateValue detects all-day values: VALUE=DATE or no time part.
func isDateValue(p *ical.IANAProperty) bool {
	if vs, ok := p.ICalParameters[string(ical.ParameterValue)]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		return true
	}
	return !strings.Contains(p.Value, "T")
}

func parseDate(v string) (string, error) {
	v = strings.TrimSpace(v)
	if len(v) >= 8 {
		v = v[:8]
	}
	t, err := time.Parse("20060102", v)
	if err != nil {
		return "", err
	}
	return t.Format(domain.DateLayout), nil
}

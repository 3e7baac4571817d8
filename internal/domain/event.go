package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DefaultEventTitle is used whenever an event arrives with a blank title.
const DefaultEventTitle = "Untitled event"

// Layouts events are exchanged with. All-day values carry only a date,
// timed values carry date and time with seconds (and optionally a zone).
const (
	DateLayout       = "2006-01-02"
	DateTimeLayout   = "2006-01-02T15:04:05"
	LocalInputLayout = "2006-01-02T15:04" // what a datetime-local form field produces
)

// ErrInvalidEvent is the sentinel wrapped by every EventError.
var ErrInvalidEvent = errors.New("invalid event")

// EventError describes why a single event was rejected.
type EventError struct {
	Field  string
	Reason string
}

func (e *EventError) Error() string {
	return fmt.Sprintf("invalid event %s: %s", e.Field, e.Reason)
}

func (e *EventError) Unwrap() error {
	return ErrInvalidEvent
}

// Event is a single calendar entry. It is never persisted on its own,
// it always lives inside a Calendar's event array.
type Event struct {
	ID            string        `bson:"id,omitempty" json:"id,omitempty"`
	Title         string        `bson:"title" json:"title"`
	Start         string        `bson:"start" json:"start"`
	End           *string       `bson:"end" json:"end"`
	AllDay        bool          `bson:"allDay" json:"allDay"`
	ExtendedProps ExtendedProps `bson:"extendedProps" json:"extendedProps"`
}

// ExtendedProps is the optional bag attached to every event.
type ExtendedProps struct {
	Course   *string `bson:"course" json:"course"`
	Location *string `bson:"location" json:"location"`
	RawLine  *string `bson:"raw_line" json:"raw_line"`
}

// StartTime parses the event start.
func (e Event) StartTime() (time.Time, error) {
	t, _, _, err := ParseInstant(e.Start)
	return t, err
}

// EndTime parses the event end. ok is false when the event has no end.
func (e Event) EndTime() (t time.Time, ok bool, err error) {
	if e.End == nil || strings.TrimSpace(*e.End) == "" {
		return time.Time{}, false, nil
	}
	t, _, _, err = ParseInstant(*e.End)
	if err != nil {
		return time.Time{}, false, err
	}
	return t, true, nil
}

// ParseInstant accepts the ISO-8601 shapes used across the system:
// a bare date, a local date-time (with or without seconds) or an RFC 3339
// timestamp. dateOnly reports a bare date, zoned reports an explicit offset.
func ParseInstant(value string) (t time.Time, dateOnly bool, zoned bool, err error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false, false, errors.New("empty timestamp")
	}
	if t, err = time.Parse(time.RFC3339, value); err == nil {
		return t, false, true, nil
	}
	if t, err = time.Parse(DateTimeLayout, value); err == nil {
		return t, false, false, nil
	}
	if t, err = time.Parse(LocalInputLayout, value); err == nil {
		return t, false, false, nil
	}
	if t, err = time.Parse(DateLayout, value); err == nil {
		return t, true, false, nil
	}
	return time.Time{}, false, false, fmt.Errorf("unrecognized timestamp %q", value)
}

// FormatInstant renders t the way events store it.
func FormatInstant(t time.Time, allDay, zoned bool) string {
	switch {
	case allDay:
		return t.Format(DateLayout)
	case zoned:
		return t.Format(time.RFC3339)
	default:
		return t.Format(DateTimeLayout)
	}
}

// NormalizeEvent validates an event against the event invariants and returns
// its canonical form: a non-empty title, date-only values for all-day events,
// date+time values with seconds for timed events, an end that does not precede
// the start, and nil instead of blank optional strings.
func NormalizeEvent(e Event) (Event, error) {
	out := e
	out.ID = strings.TrimSpace(e.ID)
	out.Title = strings.TrimSpace(e.Title)
	if out.Title == "" {
		out.Title = DefaultEventTitle
	}

	start, _, startZoned, err := ParseInstant(e.Start)
	if err != nil {
		return Event{}, &EventError{Field: "start", Reason: err.Error()}
	}
	out.Start = FormatInstant(start, e.AllDay, startZoned)

	out.End = nil
	if e.End != nil && strings.TrimSpace(*e.End) != "" {
		end, _, endZoned, err := ParseInstant(*e.End)
		if err != nil {
			return Event{}, &EventError{Field: "end", Reason: err.Error()}
		}
		if end.Before(start) {
			return Event{}, &EventError{Field: "end", Reason: "end precedes start"}
		}
		formatted := FormatInstant(end, e.AllDay, endZoned)
		out.End = &formatted
	}

	out.ExtendedProps = ExtendedProps{
		Course:   trimmedOrNil(e.ExtendedProps.Course),
		Location: trimmedOrNil(e.ExtendedProps.Location),
		RawLine:  trimmedOrNil(e.ExtendedProps.RawLine),
	}
	return out, nil
}

// NormalizeEvents normalizes every event and fails on the first malformed one.
// The result is never nil.
func NormalizeEvents(events []Event) ([]Event, error) {
	out := make([]Event, 0, len(events))
	for i, e := range events {
		n, err := NormalizeEvent(e)
		if err != nil {
			return nil, fmt.Errorf("event %d: %w", i, err)
		}
		out = append(out, n)
	}
	return out, nil
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string {
	return &s
}

// StringValue dereferences p, returning "" for nil.
func StringValue(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func trimmedOrNil(p *string) *string {
	if p == nil {
		return nil
	}
	v := strings.TrimSpace(*p)
	if v == "" {
		return nil
	}
	return &v
}

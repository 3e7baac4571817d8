// Package editor is the client-side state machine behind the calendar
// editing screen. It owns the display and save buffers, the event draft, the
// extraction panel and the pending flags of the long-running commands. UI
// toolkits drive it through commands and read it back through accessors.
package editor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"scan2cal/calendar-app/internal/domain"
	"scan2cal/calendar-app/internal/logging"
)

const (
	// DefaultCalendarName is saved when neither input nor current name is set.
	DefaultCalendarName = "Untitled calendar"

	MsgNoEventsGenerated = "LLM finished but returned no events."
)

var (
	// ErrBusy rejects a command while the same command is still pending.
	ErrBusy         = errors.New("operation already in progress")
	ErrNoDraft      = errors.New("no event draft is open")
	ErrInvalidDraft = errors.New("invalid draft")
	ErrInvalidRange = errors.New("invalid event range")
	ErrPanelClosed  = errors.New("extraction panel is closed")
	ErrNoSources    = errors.New("no cleaned files selected")
	ErrNoEvents     = errors.New(MsgNoEventsGenerated)
)

// Mode is the top-level state of the screen.
type Mode int

const (
	Viewing Mode = iota
	Editing
)

func (m Mode) String() string {
	if m == Editing {
		return "editing"
	}
	return "viewing"
}

// Prompter asks the user synchronous questions. ok is false on cancel.
type Prompter interface {
	PromptTitle() (title string, ok bool)
	PromptCalendarName(defaultName string) (name string, ok bool)
	Confirm(message string) bool
}

// CalendarAPI is the server side of the editor.
type CalendarAPI interface {
	SaveCalendar(ctx context.Context, id, name string, events []domain.Event) (*domain.Calendar, error)
	DeleteCalendar(ctx context.Context, id string) error
	PreviewExtraction(ctx context.Context, calendarID, cleanKey string) ([]domain.Event, error)
}

// Navigator leaves the editing screen.
type Navigator interface {
	ToCalendarList()
}

// Draft is the event form. Start and End use 2006-01-02 for all-day events
// and 2006-01-02T15:04 otherwise.
type Draft struct {
	EventID  string
	Title    string
	Start    string
	End      string
	AllDay   bool
	Location string
	Notes    string
}

// StatusKind classifies the banner shown after extraction.
type StatusKind int

const (
	StatusNone StatusKind = iota
	StatusSuccess
	StatusError
)

type Status struct {
	Kind    StatusKind
	Message string
}

// Config seeds an Editor with a loaded calendar.
type Config struct {
	CalendarID string
	Name       string
	Events     []domain.Event
	Log        logging.Logger
}

// Editor is safe for concurrent use. Network calls never run under its lock.
type Editor struct {
	mu sync.Mutex

	grid   Grid
	prompt Prompter
	api    CalendarAPI
	nav    Navigator
	log    logging.Logger

	calendarID string
	name       string
	mode       Mode
	display    []domain.Event
	buffer     []domain.Event
	snapshot   []domain.Event
	draft      *Draft

	panelOpen bool
	panelGen  int
	status    Status
	ops       map[Op]OpState
}

func New(cfg Config, grid Grid, prompt Prompter, api CalendarAPI, nav Navigator) *Editor {
	log := cfg.Log
	if log == nil {
		log = logging.Nop()
	}
	e := &Editor{
		grid:       grid,
		prompt:     prompt,
		api:        api,
		nav:        nav,
		log:        log.With("component", "editor", "calendar_id", cfg.CalendarID),
		calendarID: cfg.CalendarID,
		name:       cfg.Name,
		ops:        make(map[Op]OpState),
	}
	grid.Reset(cfg.Events)
	e.mu.Lock()
	e.resyncLocked()
	e.snapshot = cloneEvents(e.buffer)
	e.mu.Unlock()
	return e
}

// --- accessors ---

func (e *Editor) Mode() Mode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mode
}

func (e *Editor) Name() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.name
}

// Events is the display buffer.
func (e *Editor) Events() []domain.Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	return cloneEvents(e.display)
}

// SaveBuffer is exactly what SaveCalendar will send.
func (e *Editor) SaveBuffer() []domain.Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	return cloneEvents(e.buffer)
}

func (e *Editor) Draft() (Draft, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.draft == nil {
		return Draft{}, false
	}
	return *e.draft, true
}

func (e *Editor) LLMPanelOpen() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.panelOpen
}

func (e *Editor) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

func (e *Editor) Op(op Op) OpState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ops[op]
}

// --- buffers ---

// Resync copies the grid into the display and save buffers. Entries that
// fail event validation are dropped.
func (e *Editor) Resync() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.resyncLocked()
}

func (e *Editor) resyncLocked() {
	live := e.grid.Events()
	events := make([]domain.Event, 0, len(live))
	for _, ev := range live {
		n, err := domain.NormalizeEvent(ev)
		if err != nil {
			e.log.Warn(context.Background(), "dropping malformed grid event", "event_id", ev.ID, "error", err)
			continue
		}
		events = append(events, n)
	}
	e.display = events
	e.buffer = cloneEvents(events)
}

// BeginEdit switches to Editing without touching the grid.
func (e *Editor) BeginEdit() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.mode = Editing
}

// --- grid interactions ---

// Select creates an event over a selected range after asking for its title.
// A cancelled or blank title creates nothing and reports false.
func (e *Editor) Select(start, end time.Time, allDay bool) bool {
	title, ok := e.prompt.PromptTitle()
	title = strings.TrimSpace(title)
	if !ok || title == "" {
		return false
	}

	ev := domain.Event{
		Title:  title,
		Start:  domain.FormatInstant(start, allDay, false),
		AllDay: allDay,
	}
	if !end.IsZero() {
		ev.End = domain.StringPtr(domain.FormatInstant(end, allDay, false))
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.grid.Add(ev)
	e.mode = Editing
	e.resyncLocked()
	return true
}

// ClickEvent opens a draft seeded from the event.
func (e *Editor) ClickEvent(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	ev, ok := e.findLocked(id)
	if !ok {
		return ErrEventNotFound
	}
	e.draft = &Draft{
		EventID:  ev.ID,
		Title:    ev.Title,
		Start:    draftValue(ev.Start, ev.AllDay),
		End:      draftValue(domain.StringValue(ev.End), ev.AllDay),
		AllDay:   ev.AllDay,
		Location: domain.StringValue(ev.ExtendedProps.Location),
		Notes:    domain.StringValue(ev.ExtendedProps.RawLine),
	}
	e.mode = Editing
	return nil
}

// EditDraft replaces the form contents. The grid is not touched.
func (e *Editor) EditDraft(d Draft) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.draft == nil {
		return ErrNoDraft
	}
	d.EventID = e.draft.EventID
	e.draft = &d
	return nil
}

// SaveDraft applies the draft to its event.
func (e *Editor) SaveDraft() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.draft == nil {
		return ErrNoDraft
	}
	d := *e.draft

	ev, ok := e.findLocked(d.EventID)
	if !ok {
		e.draft = nil
		return ErrEventNotFound
	}

	start, err := parseDraftValue(d.Start, d.AllDay)
	if err != nil {
		return fmt.Errorf("%w: start: %v", ErrInvalidDraft, err)
	}
	ev.Start = domain.FormatInstant(start, d.AllDay, false)
	ev.End = nil
	if strings.TrimSpace(d.End) != "" {
		end, err := parseDraftValue(d.End, d.AllDay)
		if err != nil {
			return fmt.Errorf("%w: end: %v", ErrInvalidDraft, err)
		}
		if end.Before(start) {
			return fmt.Errorf("%w: end precedes start", ErrInvalidDraft)
		}
		ev.End = domain.StringPtr(domain.FormatInstant(end, d.AllDay, false))
	}
	ev.Title = strings.TrimSpace(d.Title)
	if ev.Title == "" {
		ev.Title = domain.DefaultEventTitle
	}
	ev.AllDay = d.AllDay
	ev.ExtendedProps.Location = optional(d.Location)
	ev.ExtendedProps.RawLine = optional(d.Notes)

	if err := e.grid.Update(ev); err != nil {
		return err
	}
	e.draft = nil
	e.resyncLocked()
	return nil
}

// DeleteDraftEvent removes the drafted event from the grid.
func (e *Editor) DeleteDraftEvent() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.draft == nil {
		return ErrNoDraft
	}
	id := e.draft.EventID
	e.draft = nil
	if err := e.grid.Remove(id); err != nil {
		return err
	}
	e.resyncLocked()
	return nil
}

func (e *Editor) CancelDraft() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.draft = nil
}

// Drag reschedules or resizes an event. A zero end clears it. A range the
// buffers would reject leaves the grid untouched.
func (e *Editor) Drag(id string, start, end time.Time) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	ev, ok := e.findLocked(id)
	if !ok {
		return ErrEventNotFound
	}
	if !end.IsZero() && end.Before(start) {
		return fmt.Errorf("%w: end precedes start", ErrInvalidRange)
	}
	ev.Start = domain.FormatInstant(start, ev.AllDay, false)
	ev.End = nil
	if !end.IsZero() {
		ev.End = domain.StringPtr(domain.FormatInstant(end, ev.AllDay, false))
	}
	if _, err := domain.NormalizeEvent(ev); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRange, err)
	}
	if err := e.grid.Update(ev); err != nil {
		return err
	}
	e.mode = Editing
	e.resyncLocked()
	return nil
}

// Discard restores the last loaded or saved events.
func (e *Editor) Discard() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.grid.Reset(e.snapshot)
	e.draft = nil
	e.mode = Viewing
	e.resyncLocked()
}

// --- server commands ---

// SaveCalendar pushes the save buffer as-is. On failure the buffer is kept
// and the error is shown inline; nothing is retried.
func (e *Editor) SaveCalendar(ctx context.Context) error {
	current := e.Name()
	input, ok := e.prompt.PromptCalendarName(current)
	if !ok {
		return nil
	}
	name := strings.TrimSpace(input)
	if name == "" {
		name = strings.TrimSpace(current)
	}
	if name == "" {
		name = DefaultCalendarName
	}

	e.mu.Lock()
	if e.ops[OpSave].Pending {
		e.mu.Unlock()
		return ErrBusy
	}
	e.ops[OpSave] = Reduce(e.ops[OpSave], OpEvent{Phase: Started})
	id, events := e.calendarID, cloneEvents(e.buffer)
	e.mu.Unlock()

	saved, err := e.api.SaveCalendar(ctx, id, name, events)

	e.mu.Lock()
	if err != nil {
		e.ops[OpSave] = Reduce(e.ops[OpSave], OpEvent{Phase: Failed, Err: "Failed to save calendar: " + err.Error()})
		e.mu.Unlock()
		e.log.Warn(ctx, "save failed", "error", err)
		return err
	}
	e.ops[OpSave] = Reduce(e.ops[OpSave], OpEvent{Phase: Succeeded})
	e.name = name
	if saved != nil && saved.Name != "" {
		e.name = saved.Name
	}
	e.snapshot = events
	e.mode = Viewing
	e.mu.Unlock()

	e.nav.ToCalendarList()
	return nil
}

// DeleteCalendar asks for confirmation, deletes and leaves the screen.
func (e *Editor) DeleteCalendar(ctx context.Context) error {
	if !e.prompt.Confirm(fmt.Sprintf("Delete calendar %q? This cannot be undone.", e.Name())) {
		return nil
	}

	e.mu.Lock()
	if e.ops[OpDelete].Pending {
		e.mu.Unlock()
		return ErrBusy
	}
	e.ops[OpDelete] = Reduce(e.ops[OpDelete], OpEvent{Phase: Started})
	id := e.calendarID
	e.mu.Unlock()

	err := e.api.DeleteCalendar(ctx, id)

	e.mu.Lock()
	if err != nil {
		e.ops[OpDelete] = Reduce(e.ops[OpDelete], OpEvent{Phase: Failed, Err: "Failed to delete calendar: " + err.Error()})
		e.mu.Unlock()
		e.log.Warn(ctx, "delete failed", "error", err)
		return err
	}
	e.ops[OpDelete] = Reduce(e.ops[OpDelete], OpEvent{Phase: Succeeded})
	e.mu.Unlock()

	e.nav.ToCalendarList()
	return nil
}

func (e *Editor) OpenLLMPanel() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.panelOpen = true
}

// CloseLLMPanel hides the panel. A generation still in flight keeps running
// but its result is thrown away.
func (e *Editor) CloseLLMPanel() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.panelOpen = false
	e.panelGen++
}

// GenerateEvents previews every cleaned key in order and replaces the grid
// with the combined result.
func (e *Editor) GenerateEvents(ctx context.Context, cleanKeys []string) error {
	e.mu.Lock()
	switch {
	case e.ops[OpGenerate].Pending:
		e.mu.Unlock()
		return ErrBusy
	case !e.panelOpen:
		e.mu.Unlock()
		return ErrPanelClosed
	case len(cleanKeys) == 0:
		e.mu.Unlock()
		return ErrNoSources
	}
	e.ops[OpGenerate] = Reduce(e.ops[OpGenerate], OpEvent{Phase: Started})
	e.status = Status{}
	gen, id := e.panelGen, e.calendarID
	e.mu.Unlock()

	var (
		events []domain.Event
		err    error
	)
	for _, key := range cleanKeys {
		var got []domain.Event
		got, err = e.api.PreviewExtraction(ctx, id, key)
		if err != nil {
			err = fmt.Errorf("%s: %w", key, err)
			break
		}
		events = append(events, got...)
	}
	// Previews of different files may reuse ids; the grid assigns fresh ones.
	usable := events[:0]
	for _, ev := range events {
		ev.ID = ""
		if _, nerr := domain.NormalizeEvent(ev); nerr != nil {
			e.log.Warn(ctx, "dropping malformed extracted event", "title", ev.Title, "error", nerr)
			continue
		}
		usable = append(usable, ev)
	}
	events = usable

	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.panelOpen || gen != e.panelGen {
		e.ops[OpGenerate] = Reduce(e.ops[OpGenerate], OpEvent{Phase: Succeeded})
		e.log.Debug(ctx, "discarding extraction result for closed panel")
		return nil
	}
	if err != nil {
		msg := "Failed to generate events: " + err.Error()
		e.ops[OpGenerate] = Reduce(e.ops[OpGenerate], OpEvent{Phase: Failed, Err: msg})
		e.status = Status{Kind: StatusError, Message: msg}
		return err
	}
	if len(events) == 0 {
		e.ops[OpGenerate] = Reduce(e.ops[OpGenerate], OpEvent{Phase: Failed, Err: MsgNoEventsGenerated})
		e.status = Status{Kind: StatusError, Message: MsgNoEventsGenerated}
		return ErrNoEvents
	}

	e.grid.Reset(events)
	e.draft = nil
	e.mode = Editing
	e.resyncLocked()
	e.ops[OpGenerate] = Reduce(e.ops[OpGenerate], OpEvent{Phase: Succeeded})
	e.status = Status{Kind: StatusSuccess, Message: fmt.Sprintf("Loaded %d events from %d file(s).", len(e.display), len(cleanKeys))}
	return nil
}

// --- helpers ---

func (e *Editor) findLocked(id string) (domain.Event, bool) {
	for _, ev := range e.grid.Events() {
		if ev.ID == id {
			return ev, true
		}
	}
	return domain.Event{}, false
}

func draftValue(value string, allDay bool) string {
	if strings.TrimSpace(value) == "" {
		return ""
	}
	t, _, _, err := domain.ParseInstant(value)
	if err != nil {
		return value
	}
	if allDay {
		return t.Format(domain.DateLayout)
	}
	return t.Format(domain.LocalInputLayout)
}

func parseDraftValue(value string, allDay bool) (time.Time, error) {
	value = strings.TrimSpace(value)
	if allDay {
		if len(value) > len(domain.DateLayout) {
			value = value[:len(domain.DateLayout)]
		}
		return time.Parse(domain.DateLayout, value)
	}
	t, dateOnly, _, err := domain.ParseInstant(value)
	if err != nil {
		return time.Time{}, err
	}
	if dateOnly {
		return time.Time{}, fmt.Errorf("time of day is required")
	}
	return t, nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func cloneEvents(events []domain.Event) []domain.Event {
	return append([]domain.Event{}, events...)
}

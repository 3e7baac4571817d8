package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"scan2cal/calendar-app/internal/domain"
	"scan2cal/calendar-app/internal/ics"
	"scan2cal/calendar-app/internal/logging"
	"scan2cal/calendar-app/internal/repository"
	"scan2cal/calendar-app/internal/storage"
)

const (
	// DefaultImportName names imported calendars when the caller gives none.
	DefaultImportName = "Imported calendar"
	// MsgNoEvents is reported for an ICS file without a usable VEVENT.
	MsgNoEvents = "File contains no events."
)

// SaveRequest replaces name and events of a calendar. With ExpectedVersion
// set the save only succeeds against that exact version.
type SaveRequest struct {
	ID              string         `json:"id"`
	Name            string         `json:"name"`
	Events          []domain.Event `json:"events"`
	ExpectedVersion *int64         `json:"expectedVersion,omitempty"`
}

// DeletedCalendar identifies what a delete removed.
type DeletedCalendar struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type CalendarService interface {
	Create(ctx context.Context, p domain.Principal, name, description string) (*domain.Calendar, error)
	List(ctx context.Context, p domain.Principal) ([]domain.CalendarSummary, error)
	Get(ctx context.Context, p domain.Principal, id string) (*domain.Calendar, error)
	Save(ctx context.Context, p domain.Principal, req SaveRequest) (*domain.Calendar, error)
	Delete(ctx context.Context, p domain.Principal, id string) (*DeletedCalendar, error)
	ImportICS(ctx context.Context, p domain.Principal, name string, data []byte) (*domain.Calendar, error)
	ExportICS(ctx context.Context, p domain.Principal, id string) (filename string, data []byte, err error)
}

type calendarService struct {
	calendarRepo repository.CalendarRepository
	now          func() time.Time
	log          logging.Logger
}

func NewCalendarService(calendarRepo repository.CalendarRepository, log logging.Logger) CalendarService {
	if log == nil {
		log = logging.Nop()
	}
	return &calendarService{calendarRepo: calendarRepo, now: time.Now, log: log}
}

func (s *calendarService) Create(ctx context.Context, p domain.Principal, name, description string) (*domain.Calendar, error) {
	if p.IsZero() {
		return nil, ErrUnauthorized
	}
	log := serviceLogger(ctx, s.log, "calendar", "create", "account_id", p.AccountID)

	name = strings.TrimSpace(name)
	if name == "" {
		err := newValidationError("name", "name is required")
		logFailure(ctx, log, "create rejected", err)
		return nil, err
	}
	return s.insert(ctx, log, &domain.Calendar{
		AccountID:   p.AccountID,
		Name:        name,
		Description: strings.TrimSpace(description),
		Events:      []domain.Event{},
	})
}

func (s *calendarService) insert(ctx context.Context, log logging.Logger, cal *domain.Calendar) (*domain.Calendar, error) {
	now := s.now().UTC()
	cal.CreatedAt, cal.UpdatedAt = now, now
	id, err := s.calendarRepo.Create(ctx, cal)
	if err != nil {
		err = fromRepo("create calendar", err)
		logFailure(ctx, log, "create failed", err)
		return nil, err
	}
	cal.ID = id
	if cal.Version == 0 {
		cal.Version = 1
	}
	log.Info(ctx, "calendar created", "calendar_id", id, "events", len(cal.Events))
	return cal, nil
}

func (s *calendarService) List(ctx context.Context, p domain.Principal) ([]domain.CalendarSummary, error) {
	if p.IsZero() {
		return nil, ErrUnauthorized
	}
	summaries, err := s.calendarRepo.ListByAccount(ctx, p.AccountID)
	if err != nil {
		err = fromRepo("list calendars", err)
		logFailure(ctx, serviceLogger(ctx, s.log, "calendar", "list", "account_id", p.AccountID), "list failed", err)
		return nil, err
	}
	if summaries == nil {
		summaries = []domain.CalendarSummary{}
	}
	return summaries, nil
}

// Get returns the calendar only when the caller owns it.
func (s *calendarService) Get(ctx context.Context, p domain.Principal, id string) (*domain.Calendar, error) {
	if p.IsZero() {
		return nil, ErrUnauthorized
	}
	cal, err := s.calendarRepo.GetByIDForAccount(ctx, id, p.AccountID)
	if err != nil {
		err = fromRepo("get calendar", err)
		logFailure(ctx, serviceLogger(ctx, s.log, "calendar", "get", "account_id", p.AccountID, "calendar_id", id), "get failed", err)
		return nil, err
	}
	return cal, nil
}

// Save overwrites the whole event array, inserting the calendar when the id
// is new. Every event is validated before anything is written.
func (s *calendarService) Save(ctx context.Context, p domain.Principal, req SaveRequest) (*domain.Calendar, error) {
	if p.IsZero() {
		return nil, ErrUnauthorized
	}
	id := strings.TrimSpace(req.ID)
	log := serviceLogger(ctx, s.log, "calendar", "save", "account_id", p.AccountID, "calendar_id", id)

	verr := &ValidationError{}
	if id == "" {
		verr.add("id", "id is required")
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		verr.add("name", "name is required")
	}
	events := make([]domain.Event, 0, len(req.Events))
	for i, ev := range req.Events {
		normalized, err := domain.NormalizeEvent(ev)
		if err != nil {
			verr.add(eventField(i, err), err.Error())
			continue
		}
		events = append(events, normalized)
	}
	if err := verr.orNil(); err != nil {
		logFailure(ctx, log, "save rejected", err)
		return nil, err
	}

	saved, err := s.calendarRepo.Save(ctx, &domain.Calendar{
		ID:        id,
		AccountID: p.AccountID,
		Name:      name,
		Events:    events,
		UpdatedAt: s.now().UTC(),
	}, req.ExpectedVersion)
	if err != nil {
		err = fromRepo("save calendar", err)
		logFailure(ctx, log, "save failed", err)
		return nil, err
	}
	log.Info(ctx, "calendar saved", "events", len(events), "version", saved.Version)
	return saved, nil
}

func eventField(i int, err error) string {
	var evErr *domain.EventError
	if errors.As(err, &evErr) {
		return fmt.Sprintf("events[%d].%s", i, evErr.Field)
	}
	return fmt.Sprintf("events[%d]", i)
}

// Delete removes a calendar the caller owns. Foreign and missing ids both
// yield ErrNotFound.
func (s *calendarService) Delete(ctx context.Context, p domain.Principal, id string) (*DeletedCalendar, error) {
	if p.IsZero() {
		return nil, ErrUnauthorized
	}
	log := serviceLogger(ctx, s.log, "calendar", "delete", "account_id", p.AccountID, "calendar_id", id)

	deleted, err := s.calendarRepo.DeleteForAccount(ctx, id, p.AccountID)
	if err != nil {
		err = fromRepo("delete calendar", err)
		logFailure(ctx, log, "delete failed", err)
		return nil, err
	}
	log.Info(ctx, "calendar deleted")
	return &DeletedCalendar{ID: deleted.ID, Name: deleted.Name}, nil
}

// ImportICS creates a new calendar holding every event of an iCalendar file.
func (s *calendarService) ImportICS(ctx context.Context, p domain.Principal, name string, data []byte) (*domain.Calendar, error) {
	if p.IsZero() {
		return nil, ErrUnauthorized
	}
	log := serviceLogger(ctx, s.log, "calendar", "import", "account_id", p.AccountID)

	events, err := ics.Import(data)
	switch {
	case errors.Is(err, ics.ErrEmpty):
		err = newValidationError("ics", "file is empty")
	case err != nil:
		err = newValidationError("ics", "file is not a valid iCalendar document")
	case len(events) == 0:
		err = newValidationError("ics", MsgNoEvents)
	}
	if err != nil {
		logFailure(ctx, log, "import rejected", err)
		return nil, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultImportName
	}
	return s.insert(ctx, log, &domain.Calendar{
		AccountID: p.AccountID,
		Name:      name,
		Events:    events,
	})
}

// ExportICS renders an owned calendar as iCalendar text.
func (s *calendarService) ExportICS(ctx context.Context, p domain.Principal, id string) (string, []byte, error) {
	cal, err := s.Get(ctx, p, id)
	if err != nil {
		return "", nil, err
	}
	filename := storage.SanitizeFilename(cal.Name + ".ics")
	return filename, ics.Export(cal.Name, cal.Events, s.now()), nil
}

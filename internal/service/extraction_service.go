package service

import (
	"context"

	"scan2cal/calendar-app/internal/domain"
	"scan2cal/calendar-app/internal/logging"
	"scan2cal/calendar-app/internal/repository"
)

// Extractor turns document text into events; *extraction.Engine implements it.
type Extractor interface {
	Extract(ctx context.Context, text string) ([]domain.Event, error)
}

// ExtractionResult is what a preview returns. Nothing is persisted.
type ExtractionResult struct {
	Events []domain.Event `json:"events"`
}

type ExtractionService interface {
	Preview(ctx context.Context, p domain.Principal, calendarID, cleanKey string) (*ExtractionResult, error)
}

type extractionService struct {
	calendarRepo repository.CalendarRepository
	texts        TextService
	extractor    Extractor
	log          logging.Logger
}

func NewExtractionService(calendarRepo repository.CalendarRepository, texts TextService, extractor Extractor, log logging.Logger) ExtractionService {
	if log == nil {
		log = logging.Nop()
	}
	return &extractionService{calendarRepo: calendarRepo, texts: texts, extractor: extractor, log: log}
}

// Preview runs extraction over one cleaned text on behalf of a calendar the
// caller owns. The calendar is not modified.
func (s *extractionService) Preview(ctx context.Context, p domain.Principal, calendarID, cleanKey string) (*ExtractionResult, error) {
	if p.IsZero() {
		return nil, ErrUnauthorized
	}
	log := serviceLogger(ctx, s.log, "extraction", "preview",
		"account_id", p.AccountID, "calendar_id", calendarID, "key", cleanKey)

	// 1. Ownership
	if _, err := s.calendarRepo.GetByIDForAccount(ctx, calendarID, p.AccountID); err != nil {
		err = fromRepo("get calendar", err)
		logFailure(ctx, log, "preview rejected", err)
		return nil, err
	}

	// 2. Text, NotFound passes through untouched
	text, err := s.texts.GetText(ctx, p, cleanKey)
	if err != nil {
		return nil, err
	}

	// 3. Model
	events, err := s.extractor.Extract(ctx, text)
	if err != nil {
		logFailure(ctx, log, "extraction failed", err)
		return nil, err
	}
	if events == nil {
		events = []domain.Event{}
	}
	log.Info(ctx, "extraction preview ready", "events", len(events))
	return &ExtractionResult{Events: events}, nil
}

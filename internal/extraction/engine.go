// Package extraction turns free-form document text into calendar events with
// the help of a language model.
package extraction

import (
	"context"
	"fmt"
	"unicode/utf8"

	"scan2cal/calendar-app/internal/config"
	"scan2cal/calendar-app/internal/domain"
	"scan2cal/calendar-app/internal/llm"
	"scan2cal/calendar-app/internal/logging"
)

// Engine runs normalize, prompt, model call and parse for one document.
// It holds no per-call state and is safe for concurrent use.
type Engine struct {
	completer llm.Completer
	maxLines  int
	minChars  int
	log       logging.Logger
}

func NewEngine(completer llm.Completer, cfg config.ExtractionConfig, log logging.Logger) *Engine {
	e := &Engine{
		completer: completer,
		maxLines:  cfg.MaxLines,
		minChars:  cfg.MinChars,
		log:       log,
	}
	if e.maxLines <= 0 {
		e.maxLines = DefaultMaxLines
	}
	if e.minChars <= 0 {
		e.minChars = DefaultMinChars
	}
	if e.log == nil {
		e.log = logging.Nop()
	}
	return e
}

// Extract returns the events the model finds in text, never nil on success.
// Text shorter than the minimum after normalization returns no events without
// calling the model.
func (e *Engine) Extract(ctx context.Context, text string) ([]domain.Event, error) {
	log := logging.FromContextOr(ctx, e.log).With("component", "extraction")

	normalized := Normalize(text, e.maxLines)
	if n := utf8.RuneCountInString(normalized); n < e.minChars {
		log.Debug(ctx, "text too short, skipping model call", "chars", n)
		return []domain.Event{}, nil
	}

	raw, err := e.completer.Complete(ctx, llm.Request{
		System: SystemPrompt,
		Prompt: BuildPrompt(normalized),
		JSON:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrModelUnavailable, err)
	}

	events, rejected, err := ParseEvents(raw)
	if err != nil {
		log.Warn(ctx, "model output rejected", "error", err, "bytes", len(raw))
		return nil, err
	}
	for _, r := range rejected {
		log.Warn(ctx, "skipping malformed event", "index", r.Index, "error", r.Err)
	}
	log.Info(ctx, "extraction finished", "events", len(events), "skipped", len(rejected))
	return events, nil
}

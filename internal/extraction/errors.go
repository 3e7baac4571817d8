package extraction

import (
	"errors"
	"fmt"
)

// Kind classifies extraction failures.
type Kind string

// KindInvalidModelOutput means the model answered with text that is not JSON.
// It is surfaced to the caller for a manual re-run, never retried here.
const KindInvalidModelOutput Kind = "invalid_model_output"

// ErrModelUnavailable wraps transport failures of the model call.
var ErrModelUnavailable = errors.New("language model unavailable")

// Error is returned when the model output cannot be used at all.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("extraction failed: %s", e.Kind)
	}
	return fmt.Sprintf("extraction failed: %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsInvalidModelOutput reports whether err carries KindInvalidModelOutput.
func IsInvalidModelOutput(err error) bool {
	var xErr *Error
	return errors.As(err, &xErr) && xErr.Kind == KindInvalidModelOutput
}

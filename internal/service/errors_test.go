package service

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"scan2cal/calendar-app/internal/extraction"
	"scan2cal/calendar-app/internal/repository"
)

func TestErrorKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{ErrUnauthorized, "unauthorized"},
		{fmt.Errorf("wrapped: %w", ErrNotFound), "not_found"},
		{ErrConflict, "conflict"},
		{&extraction.Error{Kind: extraction.KindInvalidModelOutput}, "invalid_model_output"},
		{fmt.Errorf("%w: timeout", extraction.ErrModelUnavailable), "model_unavailable"},
		{newValidationError("name", "required"), "validation"},
		{infraErr("read", errors.New("boom")), "infrastructure"},
		{errors.New("boom"), "unexpected"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ErrorKind(tt.err), "%v", tt.err)
	}
}

func TestFromRepo(t *testing.T) {
	assert.NoError(t, fromRepo("op", nil))
	assert.ErrorIs(t, fromRepo("op", repository.ErrNotFound), ErrNotFound)
	assert.ErrorIs(t, fromRepo("op", fmt.Errorf("x: %w", repository.ErrConflict)), ErrConflict)

	cause := errors.New("socket closed")
	err := fromRepo("save calendar", cause)
	var iErr *InfrastructureError
	assert.ErrorAs(t, err, &iErr)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "save calendar: socket closed", err.Error())
}

func TestValidationError_MessageIsSorted(t *testing.T) {
	v := &ValidationError{}
	assert.NoError(t, v.orNil())
	v.add("name", "name is required")
	v.add("id", "id is required")
	assert.Equal(t, "validation failed: id: id is required; name: name is required", v.Error())
}

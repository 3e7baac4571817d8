package repository

import (
	"context"

	"scan2cal/calendar-app/internal/domain"
)

// Error constants for the repository layer. Implementations translate
// driver-specific "no rows" / "no documents" into ErrNotFound.
var (
	ErrNotFound = RepositoryError("not found")
	// ErrConflict is returned by a compare-and-swap save whose expected version is stale.
	ErrConflict = RepositoryError("version conflict")
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// AccountRepository persists identity-provider accounts.
type AccountRepository interface {
	// UpsertBySubject inserts the account or, when the subject already exists,
	// refreshes its token fields. The stored account is returned.
	UpsertBySubject(ctx context.Context, account *domain.Account) (*domain.Account, error)
	GetByID(ctx context.Context, id string) (*domain.Account, error)
}

// UploadRepository persists upload metadata. Every lookup carries the owning
// account so that "not owned" and "absent" are indistinguishable.
type UploadRepository interface {
	Create(ctx context.Context, upload *domain.Upload) (string, error)
	GetByIDForAccount(ctx context.Context, id, accountID string) (*domain.Upload, error)
	ListByAccount(ctx context.Context, accountID string) ([]domain.Upload, error) // oldest first
	DeleteForAccount(ctx context.Context, id, accountID string) error
}

// CalendarRepository persists calendars with their embedded events.
type CalendarRepository interface {
	Create(ctx context.Context, calendar *domain.Calendar) (string, error)
	ListByAccount(ctx context.Context, accountID string) ([]domain.CalendarSummary, error)
	GetByIDForAccount(ctx context.Context, id, accountID string) (*domain.Calendar, error)

	// Save inserts the calendar or replaces name and events of the existing one,
	// bumping its version. An id owned by a different account yields ErrNotFound.
	// With a non-nil expectedVersion nothing is inserted and a stale version
	// yields ErrConflict.
	Save(ctx context.Context, calendar *domain.Calendar, expectedVersion *int64) (*domain.Calendar, error)

	// DeleteForAccount removes the calendar and returns what was deleted.
	DeleteForAccount(ctx context.Context, id, accountID string) (*domain.Calendar, error)
}

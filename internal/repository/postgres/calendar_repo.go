package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"scan2cal/calendar-app/internal/domain"
	"scan2cal/calendar-app/internal/repository"
)

const calendarColumns = `id, account_id, name, description, events, version, created_at, updated_at`

// CalendarRepository implements repository.CalendarRepository over a DBTX.
// The event array lives in a JSONB column and is always replaced whole.
type CalendarRepository struct {
	db DBTX
}

func NewCalendarRepository(db DBTX) *CalendarRepository {
	return &CalendarRepository{db: db}
}

func (r *CalendarRepository) Create(ctx context.Context, calendar *domain.Calendar) (string, error) {
	if calendar.AccountID == "" {
		return "", errors.New("calendar requires account_id")
	}
	if calendar.ID == "" {
		calendar.ID = uuid.NewString()
	}
	events, err := encodeEvents(calendar.Events)
	if err != nil {
		return "", err
	}

	query := `
		INSERT INTO calendars (id, account_id, name, description, events)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING version, created_at, updated_at`
	err = r.db.QueryRowContext(ctx, query, calendar.ID, calendar.AccountID, calendar.Name, calendar.Description, events).
		Scan(&calendar.Version, &calendar.CreatedAt, &calendar.UpdatedAt)
	if err != nil {
		return "", fmt.Errorf("db error: %w", err)
	}
	if calendar.Events == nil {
		calendar.Events = []domain.Event{}
	}
	return calendar.ID, nil
}

func (r *CalendarRepository) ListByAccount(ctx context.Context, accountID string) ([]domain.CalendarSummary, error) {
	query := `
		SELECT id, name, description, created_at, jsonb_array_length(events)
		FROM calendars WHERE account_id = $1 ORDER BY created_at ASC`
	rows, err := r.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to select calendars: %w", err)
	}
	defer rows.Close()

	summaries := []domain.CalendarSummary{}
	for rows.Next() {
		var s domain.CalendarSummary
		if err := rows.Scan(&s.ID, &s.Name, &s.Description, &s.CreatedAt, &s.EventCount); err != nil {
			return nil, err
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return summaries, nil
}

func (r *CalendarRepository) GetByIDForAccount(ctx context.Context, id, accountID string) (*domain.Calendar, error) {
	query := `SELECT ` + calendarColumns + ` FROM calendars WHERE id = $1 AND account_id = $2`
	c, err := scanCalendar(r.db.QueryRowContext(ctx, query, id, accountID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return c, nil
}

// Save upserts by id. The conflict branch only fires for the owning account,
// so a foreign id returns no row and surfaces as ErrNotFound.
func (r *CalendarRepository) Save(ctx context.Context, calendar *domain.Calendar, expectedVersion *int64) (*domain.Calendar, error) {
	events, err := encodeEvents(calendar.Events)
	if err != nil {
		return nil, err
	}

	var row *sql.Row
	if expectedVersion == nil {
		query := `
			INSERT INTO calendars (id, account_id, name, events)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (id)
			DO UPDATE SET
				name = EXCLUDED.name,
				events = EXCLUDED.events,
				version = calendars.version + 1,
				updated_at = now()
				WHERE calendars.account_id = EXCLUDED.account_id
			RETURNING ` + calendarColumns
		row = r.db.QueryRowContext(ctx, query, calendar.ID, calendar.AccountID, calendar.Name, events)
	} else {
		query := `
			UPDATE calendars
			SET name = $3, events = $4, version = version + 1, updated_at = now()
			WHERE id = $1 AND account_id = $2 AND version = $5
			RETURNING ` + calendarColumns
		row = r.db.QueryRowContext(ctx, query, calendar.ID, calendar.AccountID, calendar.Name, events, *expectedVersion)
	}

	saved, err := scanCalendar(row)
	if err == nil {
		return saved, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("db error: %w", err)
	}
	if expectedVersion == nil {
		return nil, repository.ErrNotFound
	}

	var exists bool
	err = r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM calendars WHERE id = $1 AND account_id = $2)`,
		calendar.ID, calendar.AccountID,
	).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	if exists {
		return nil, repository.ErrConflict
	}
	return nil, repository.ErrNotFound
}

func (r *CalendarRepository) DeleteForAccount(ctx context.Context, id, accountID string) (*domain.Calendar, error) {
	deleted := domain.Calendar{AccountID: accountID}
	err := r.db.QueryRowContext(ctx,
		`DELETE FROM calendars WHERE id = $1 AND account_id = $2 RETURNING id, name`, id, accountID,
	).Scan(&deleted.ID, &deleted.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &deleted, nil
}

func encodeEvents(events []domain.Event) (string, error) {
	if events == nil {
		events = []domain.Event{}
	}
	b, err := json.Marshal(events)
	if err != nil {
		return "", fmt.Errorf("encode events: %w", err)
	}
	return string(b), nil
}

func scanCalendar(row scanner) (*domain.Calendar, error) {
	var (
		c      domain.Calendar
		events []byte
	)
	if err := row.Scan(&c.ID, &c.AccountID, &c.Name, &c.Description, &events, &c.Version, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.Events = []domain.Event{}
	if len(events) > 0 {
		if err := json.Unmarshal(events, &c.Events); err != nil {
			return nil, fmt.Errorf("decode events: %w", err)
		}
	}
	return &c, nil
}

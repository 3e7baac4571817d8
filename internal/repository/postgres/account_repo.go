package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"scan2cal/calendar-app/internal/domain"
	"scan2cal/calendar-app/internal/repository"
)

// AccountRepository implements repository.AccountRepository over a DBTX.
type AccountRepository struct {
	db DBTX
}

func NewAccountRepository(db DBTX) *AccountRepository {
	return &AccountRepository{db: db}
}

// UpsertBySubject inserts the account or refreshes the token fields of the
// existing row for the same subject. id and created_at never change.
func (r *AccountRepository) UpsertBySubject(ctx context.Context, account *domain.Account) (*domain.Account, error) {
	if account.Subject == "" {
		return nil, errors.New("account subject is required")
	}

	query := `
		INSERT INTO accounts (id, subject, access_token, refresh_token, id_token, token_type, scope, session_state, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (subject)
		DO UPDATE SET
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			id_token = EXCLUDED.id_token,
			token_type = EXCLUDED.token_type,
			scope = EXCLUDED.scope,
			session_state = EXCLUDED.session_state,
			expires_at = EXCLUDED.expires_at,
			updated_at = now()
		RETURNING id, created_at, updated_at`

	var expires sql.NullInt64
	if account.ExpiresAt != nil {
		expires = sql.NullInt64{Int64: *account.ExpiresAt, Valid: true}
	}

	stored := *account
	err := r.db.QueryRowContext(ctx, query,
		uuid.NewString(), account.Subject, account.AccessToken, account.RefreshToken, account.IDToken,
		account.TokenType, account.Scope, account.SessionState, expires,
	).Scan(&stored.ID, &stored.CreatedAt, &stored.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &stored, nil
}

func (r *AccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	query := `
		SELECT id, subject, access_token, refresh_token, id_token, token_type, scope, session_state, expires_at, created_at, updated_at
		FROM accounts WHERE id = $1`

	var (
		a       domain.Account
		expires sql.NullInt64
	)
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&a.ID, &a.Subject, &a.AccessToken, &a.RefreshToken, &a.IDToken, &a.TokenType,
		&a.Scope, &a.SessionState, &expires, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	if expires.Valid {
		a.ExpiresAt = &expires.Int64
	}
	return &a, nil
}

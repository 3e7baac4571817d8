package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"scan2cal/calendar-app/internal/domain"
	"scan2cal/calendar-app/internal/logging"
	"scan2cal/calendar-app/internal/repository"
)

// ErrTokenGeneration is returned when signing the access token fails.
var ErrTokenGeneration = errors.New("failed to generate authentication token")

// SignInRequest carries what the identity provider handed back after a
// successful sign-in. Only Subject is required.
type SignInRequest struct {
	Subject      string `json:"subject" binding:"required"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	IDToken      string `json:"id_token"`
	TokenType    string `json:"token_type"`
	Scope        string `json:"scope"`
	SessionState string `json:"session_state"`
	ExpiresAt    *int64 `json:"expires_at"`
}

// SignInResult is the issued API token and the stored account.
type SignInResult struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expiresAt"`
	Account   *domain.Account `json:"account"`
}

// AccessClaims are the custom JWT claims of an API token.
type AccessClaims struct {
	AccountID string `json:"uid"`
	Folder    string `json:"folder"`
	jwt.RegisteredClaims
}

type AccountService interface {
	SignIn(ctx context.Context, req SignInRequest) (*SignInResult, error)
}

type accountService struct {
	accountRepo   repository.AccountRepository
	jwtSecret     string
	jwtExpiration time.Duration
	now           func() time.Time
	log           logging.Logger
}

// NewAccountService panics on an empty secret; the server cannot run without one.
func NewAccountService(accountRepo repository.AccountRepository, jwtSecret string, jwtExpiration time.Duration, log logging.Logger) AccountService {
	if jwtSecret == "" {
		panic("JWT secret cannot be empty")
	}
	if jwtExpiration <= 0 {
		jwtExpiration = time.Hour
	}
	if log == nil {
		log = logging.Nop()
	}
	return &accountService{
		accountRepo:   accountRepo,
		jwtSecret:     jwtSecret,
		jwtExpiration: jwtExpiration,
		now:           time.Now,
		log:           log,
	}
}

// SignIn upserts the account by subject and issues an HS256 token for it.
func (s *accountService) SignIn(ctx context.Context, req SignInRequest) (*SignInResult, error) {
	log := serviceLogger(ctx, s.log, "account", "sign_in")

	subject := strings.TrimSpace(req.Subject)
	if subject == "" {
		err := newValidationError("subject", "subject is required")
		logFailure(ctx, log, "sign-in rejected", err)
		return nil, err
	}

	account, err := s.accountRepo.UpsertBySubject(ctx, &domain.Account{
		Subject:      subject,
		AccessToken:  req.AccessToken,
		RefreshToken: req.RefreshToken,
		IDToken:      req.IDToken,
		TokenType:    req.TokenType,
		Scope:        req.Scope,
		SessionState: req.SessionState,
		ExpiresAt:    req.ExpiresAt,
	})
	if err != nil {
		err = fromRepo("upsert account", err)
		logFailure(ctx, log, "sign-in failed", err)
		return nil, err
	}

	token, expiresAt, err := s.issueToken(account)
	if err != nil {
		log.Error(ctx, "token signing failed", "error", err)
		return nil, ErrTokenGeneration
	}

	log.Info(ctx, "account signed in", "account_id", account.ID)
	return &SignInResult{Token: token, ExpiresAt: expiresAt, Account: account}, nil
}

func (s *accountService) issueToken(account *domain.Account) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.jwtExpiration)
	claims := AccessClaims{
		AccountID: account.ID,
		Folder:    account.FolderKey(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   account.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ParseAccessToken validates an API token and returns the caller it names.
func ParseAccessToken(secret, tokenString string) (domain.Principal, error) {
	claims := &AccessClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return domain.Principal{}, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	if !token.Valid || claims.AccountID == "" {
		return domain.Principal{}, ErrUnauthorized
	}
	return domain.Principal{AccountID: claims.AccountID, FolderKey: claims.Folder}, nil
}

package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func TestSignIn_IssuesTokenForAccount(t *testing.T) {
	repo := newFakeAccountRepo()
	svc := NewAccountService(repo, testSecret, time.Hour, nil)

	res, err := svc.SignIn(context.Background(), SignInRequest{Subject: " u42 ", AccessToken: "at-1"})
	require.NoError(t, err)
	assert.Equal(t, "acc-1", res.Account.ID)
	assert.Equal(t, "u42", res.Account.Subject)

	p, err := ParseAccessToken(testSecret, res.Token)
	require.NoError(t, err)
	assert.Equal(t, "acc-1", p.AccountID)
	assert.Equal(t, "u42", p.Folder())

	again, err := svc.SignIn(context.Background(), SignInRequest{Subject: "u42", AccessToken: "at-2"})
	require.NoError(t, err)
	assert.Equal(t, res.Account.ID, again.Account.ID)
	assert.Equal(t, "at-2", repo.bySubject["u42"].AccessToken)
}

func TestSignIn_Failures(t *testing.T) {
	repo := newFakeAccountRepo()
	svc := NewAccountService(repo, testSecret, time.Hour, nil)

	_, err := svc.SignIn(context.Background(), SignInRequest{})
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)

	repo.err = errors.New("mongo down")
	_, err = svc.SignIn(context.Background(), SignInRequest{Subject: "u42"})
	var iErr *InfrastructureError
	assert.ErrorAs(t, err, &iErr)
}

func TestNewAccountService_PanicsWithoutSecret(t *testing.T) {
	assert.Panics(t, func() { NewAccountService(newFakeAccountRepo(), "", time.Hour, nil) })
}

func TestParseAccessToken_Rejects(t *testing.T) {
	svc := NewAccountService(newFakeAccountRepo(), testSecret, time.Hour, nil)
	res, err := svc.SignIn(context.Background(), SignInRequest{Subject: "u42"})
	require.NoError(t, err)

	_, err = ParseAccessToken("other-secret", res.Token)
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = ParseAccessToken(testSecret, "not-a-token")
	assert.ErrorIs(t, err, ErrUnauthorized)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, AccessClaims{
		AccountID: "acc-1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})
	signed, err := expired.SignedString([]byte(testSecret))
	require.NoError(t, err)
	_, err = ParseAccessToken(testSecret, signed)
	assert.ErrorIs(t, err, ErrUnauthorized)

	anonymous := jwt.NewWithClaims(jwt.SigningMethodHS256, AccessClaims{})
	signed, err = anonymous.SignedString([]byte(testSecret))
	require.NoError(t, err)
	_, err = ParseAccessToken(testSecret, signed)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

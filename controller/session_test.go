package controller

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	accounts "github.com/goliatone/go-accounts"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTSessionIssuerRoundTrip(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	issuer := NewJWTSessionIssuer("test-signing-key")
	issuer.Clock = func() time.Time { return now }

	account := &accounts.UserAccount{ID: uuid.New(), Email: "jane@example.com"}

	token, expires, err := issuer.SignToken(account)
	require.NoError(t, err)
	assert.Equal(t, now.Add(defaultSessionDuration), expires)

	claims, err := issuer.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, account.ID.String(), claims.Subject)
	assert.Equal(t, "jane@example.com", claims.Email)
	assert.Equal(t, defaultSessionIssuer, claims.Issuer)
}

func TestJWTSessionIssuerRejectsTokens(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	issuer := NewJWTSessionIssuer("test-signing-key")
	issuer.Clock = func() time.Time { return now }

	account := &accounts.UserAccount{ID: uuid.New(), Email: "jane@example.com"}
	token, _, err := issuer.SignToken(account)
	require.NoError(t, err)

	t.Run("expired", func(t *testing.T) {
		later := NewJWTSessionIssuer("test-signing-key")
		later.Clock = func() time.Time { return now.Add(48 * time.Hour) }

		_, err := later.ParseToken(token)
		require.ErrorIs(t, err, jwt.ErrTokenExpired)
	})

	t.Run("wrong key", func(t *testing.T) {
		other := NewJWTSessionIssuer("other-key")
		other.Clock = issuer.Clock

		_, err := other.ParseToken(token)
		require.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		other := NewJWTSessionIssuer("test-signing-key")
		other.Issuer = "someone-else"
		other.Clock = issuer.Clock

		_, err := other.ParseToken(token)
		require.ErrorIs(t, err, jwt.ErrTokenInvalidIssuer)
	})
}

func TestJWTSessionIssuerRequiresKeyAndAccount(t *testing.T) {
	_, _, err := NewJWTSessionIssuer("").SignToken(&accounts.UserAccount{})
	require.ErrorIs(t, err, ErrMissingSigningKey)

	_, _, err = NewJWTSessionIssuer("key").SignToken(nil)
	require.ErrorIs(t, err, accounts.ErrNilAccount)

	_, err = NewJWTSessionIssuer("").ParseToken("whatever")
	require.ErrorIs(t, err, ErrMissingSigningKey)
}

func TestJWTSessionIssuerValidate(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	issuer := NewJWTSessionIssuer("test-signing-key")
	issuer.Clock = func() time.Time { return now }

	account := &accounts.UserAccount{ID: uuid.New(), Email: "jane@example.com"}
	token, _, err := issuer.SignToken(account)
	require.NoError(t, err)

	claims, err := issuer.Validate(token)
	require.NoError(t, err)
	sub, err := claims.GetSubject()
	require.NoError(t, err)
	assert.Equal(t, account.ID.String(), sub)

	claims, err = issuer.Validate("nope")
	require.Error(t, err)
	assert.Nil(t, claims)

	assert.Equal(t, "cookie:accounts_session,header:Authorization", issuer.TokenLookup())
}

package controller

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	accounts "github.com/goliatone/go-accounts"
	"github.com/goliatone/go-accounts/middleware/jwtware"
	"github.com/goliatone/go-router"
)

const (
	defaultSessionCookie   = "accounts_session"
	defaultSessionDuration = 24 * time.Hour
	defaultSessionIssuer   = "go-accounts"
)

// ErrMissingSigningKey is returned when the issuer has no key to sign with
var ErrMissingSigningKey = errors.New("missing session signing key")

// SessionClaims are the claims carried by a session token
type SessionClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// JWTSessionIssuer stores an HS256 signed token in an HTTP only cookie
type JWTSessionIssuer struct {
	SigningKey []byte
	CookieName string
	Issuer     string
	Duration   time.Duration
	Clock      accounts.Clock
}

var (
	_ SessionIssuer          = (*JWTSessionIssuer)(nil)
	_ jwtware.TokenValidator = (*JWTSessionIssuer)(nil)
)

// NewJWTSessionIssuer creates an issuer with the default cookie and duration
func NewJWTSessionIssuer(signingKey string) *JWTSessionIssuer {
	return &JWTSessionIssuer{
		SigningKey: []byte(signingKey),
		CookieName: defaultSessionCookie,
		Issuer:     defaultSessionIssuer,
		Duration:   defaultSessionDuration,
	}
}

// IssueSession implements SessionIssuer.
func (j *JWTSessionIssuer) IssueSession(ctx router.Context, account *accounts.UserAccount) error {
	token, expires, err := j.SignToken(account)
	if err != nil {
		return err
	}

	ctx.Cookie(&router.Cookie{
		Name:     j.cookieName(),
		Value:    token,
		Expires:  expires,
		HTTPOnly: true,
	})

	return nil
}

// SignToken returns a signed session token for account and its expiry
func (j *JWTSessionIssuer) SignToken(account *accounts.UserAccount) (string, time.Time, error) {
	if len(j.SigningKey) == 0 {
		return "", time.Time{}, ErrMissingSigningKey
	}
	if account == nil {
		return "", time.Time{}, accounts.ErrNilAccount
	}

	now := j.now()
	expires := now.Add(j.duration())

	claims := SessionClaims{
		Email: account.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    j.Issuer,
			Subject:   account.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(j.SigningKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session token: %w", err)
	}

	return signed, expires, nil
}

// ParseToken validates a token produced by SignToken
func (j *JWTSessionIssuer) ParseToken(raw string) (*SessionClaims, error) {
	if len(j.SigningKey) == 0 {
		return nil, ErrMissingSigningKey
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.now),
	}
	if j.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(j.Issuer))
	}

	claims := &SessionClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return j.SigningKey, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("parse session token: %w", err)
	}

	return claims, nil
}

// Validate implements jwtware.TokenValidator so the session cookie can be
// read back on later requests.
func (j *JWTSessionIssuer) Validate(tokenString string) (jwt.Claims, error) {
	claims, err := j.ParseToken(tokenString)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// TokenLookup is the jwtware lookup string matching where sessions are stored
func (j *JWTSessionIssuer) TokenLookup() string {
	return "cookie:" + j.cookieName() + ",header:" + router.HeaderAuthorization
}

func (j *JWTSessionIssuer) cookieName() string {
	if j.CookieName == "" {
		return defaultSessionCookie
	}
	return j.CookieName
}

func (j *JWTSessionIssuer) duration() time.Duration {
	if j.Duration <= 0 {
		return defaultSessionDuration
	}
	return j.Duration
}

func (j *JWTSessionIssuer) now() time.Time {
	if j.Clock != nil {
		return j.Clock()
	}
	return time.Now()
}

package accounts

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Logger is the logging contract used across the package
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Clock supplies the current time. Inject a fixed clock in tests.
type Clock func() time.Time

// AccountStore persists user accounts.
//
// Loaders return an error wrapping ErrAccountNotFound when no account matches.
// Create returns an error wrapping ErrAccountConflict when the email is taken.
type AccountStore interface {
	LoadByEmailWithExternal(ctx context.Context, email string) (*UserAccount, error)
	LoadByVerificationKey(ctx context.Context, key string) (*UserAccount, error)
	Create(ctx context.Context, account *UserAccount) (*UserAccount, error)
	Update(ctx context.Context, account *UserAccount) (*UserAccount, error)
	DeleteByID(ctx context.Context, id uuid.UUID) error
	// RunInTx runs fn against a store bound to a single transaction. Stores
	// without transactions must serialize fn instead.
	RunInTx(ctx context.Context, fn func(ctx context.Context, store AccountStore) error) error
}

// CredentialHasher hashes and verifies plaintext passwords
type CredentialHasher interface {
	Hash(plaintext string, iterations int) (string, error)
	Verify(plaintext, digest string) bool
}

// TokenCodec produces opaque verification keys
type TokenCodec interface {
	GenerateOpaqueKey() (string, error)
	NormalizeKey(key string) string
}

// ReturnURLValidator decides if a caller provided return URL can be honored
type ReturnURLValidator interface {
	IsValidReturnURL(returnURL string) bool
}

// ReturnURLValidatorFunc adapts a function to ReturnURLValidator
type ReturnURLValidatorFunc func(returnURL string) bool

// IsValidReturnURL implements ReturnURLValidator.
func (f ReturnURLValidatorFunc) IsValidReturnURL(returnURL string) bool {
	if f == nil {
		return false
	}
	return f(returnURL)
}

type defLogger struct{}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] ACCOUNTS "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] ACCOUNTS "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] ACCOUNTS "+newline(format), args...)
}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] ACCOUNTS "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}

package accounts

import (
	"errors"
	"time"
)

// ErrNilAccount is returned when a verification is attached to a nil account
var ErrNilAccount = errors.New("account is nil")

// VerificationTokenManager attaches and clears the single pending verification
// of an account. Purpose and expiry checks belong to the caller.
type VerificationTokenManager struct {
	codec TokenCodec
}

// NewVerificationTokenManager creates a manager using codec to mint keys
func NewVerificationTokenManager(codec TokenCodec) *VerificationTokenManager {
	if codec == nil {
		codec = NewRandomTokenCodec()
	}
	return &VerificationTokenManager{codec: codec}
}

// Attach mints a key and replaces any verification pending on account
func (m *VerificationTokenManager) Attach(account *UserAccount, purpose VerificationPurpose, storage string, issuedAt time.Time) error {
	if account == nil {
		return ErrNilAccount
	}

	key, err := m.codec.GenerateOpaqueKey()
	if err != nil {
		return err
	}

	sentAt := issuedAt
	account.Verification = Verification{
		Key:     key,
		Purpose: purpose,
		SentAt:  &sentAt,
		Storage: storage,
	}

	return nil
}

// Clear removes the pending verification from account
func (m *VerificationTokenManager) Clear(account *UserAccount) {
	if account == nil {
		return
	}
	account.Verification = Verification{}
}

// NormalizeKey applies the codec normalization to a key read back from a link
func (m *VerificationTokenManager) NormalizeKey(key string) string {
	return m.codec.NormalizeKey(key)
}

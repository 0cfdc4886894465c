package accounts

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
)

// CancelVerificationMessage carries the key read back from a cancel link
type CancelVerificationMessage struct {
	Key string `json:"key" example:"x7Kq9vB2mNp4LrT8wZ3cYd6FhJ1sAeU5" doc:"Verification key from the confirmation email."`
}

// Type returns the message type
func (e CancelVerificationMessage) Type() string {
	return "accounts.verification.cancel"
}

// CancelVerification rolls back a registration that was never used by
// deleting the account that owns the key.
func (s *RegistrationService) CancelVerification(ctx context.Context, msg CancelVerificationMessage) (*Result, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled during registration cancellation")
	default:
		return s.cancelVerification(ctx, msg)
	}
}

func (s *RegistrationService) cancelVerification(ctx context.Context, msg CancelVerificationMessage) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, operationTimeout)
	defer cancel()

	key := s.verifications.NormalizeKey(msg.Key)
	if key == "" {
		s.recordTokenFailure(ctx, "cancel", "empty_key")
		return nil, ErrInvalidToken
	}

	var removed *UserAccount
	err := s.store.RunInTx(ctx, func(ctx context.Context, store AccountStore) error {
		account, err := s.loadPendingConfirmation(ctx, store, key)
		if err != nil {
			return err
		}

		// only accounts without authentication history can be rolled back
		if account.LastLoginAt != nil {
			return ErrCannotCancel
		}

		if err := store.DeleteByID(ctx, account.ID); err != nil {
			return dependencyUnavailable(err, "failed to delete account")
		}

		removed = account
		return nil
	})

	if err != nil {
		if IsInvalidToken(err) || IsCannotCancel(err) {
			s.recordTokenFailure(ctx, "cancel", textCode(err))
		}

		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, err
		}
		return nil, dependencyUnavailable(err, "failed to cancel registration")
	}

	s.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventRegistrationCancelled,
		Kind:      ActivityKindInformation,
		UserID:    removed.ID.String(),
		Email:     removed.Email,
	})

	storage := removed.Verification.Storage
	returnURL := ""
	if s.validReturnURL(storage) {
		returnURL = storage
	}

	return &Result{
		Account:    removed,
		ReturnURL:  storage,
		RedirectTo: s.loginRedirect(returnURL),
	}, nil
}

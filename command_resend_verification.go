package accounts

import (
	"context"
	"errors"

	goerrors "github.com/goliatone/go-errors"
)

// ResendVerificationMessage asks for a fresh confirmation key
type ResendVerificationMessage struct {
	Email string `json:"email" example:"jane@example.com" doc:"Email address of the pending account."`
}

// Type returns the message type
func (e ResendVerificationMessage) Type() string {
	return "accounts.verification.resend"
}

// ResendVerification issues a new ConfirmAccount key for a pending account
// and dispatches it. The result is the same whether or not the email belongs
// to a pending account.
func (s *RegistrationService) ResendVerification(ctx context.Context, msg ResendVerificationMessage) (*Result, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled during verification resend")
	default:
		return s.resendVerification(ctx, msg)
	}
}

func (s *RegistrationService) resendVerification(ctx context.Context, msg ResendVerificationMessage) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, operationTimeout)
	defer cancel()

	email := NormalizeEmail(msg.Email)
	now := s.now()

	var pending *UserAccount
	err := s.store.RunInTx(ctx, func(ctx context.Context, store AccountStore) error {
		account, err := store.LoadByEmailWithExternal(ctx, email)
		if err != nil {
			if errors.Is(err, ErrAccountNotFound) {
				return nil
			}
			return dependencyUnavailable(err, "failed to load account by email")
		}

		if account.IsEmailVerified || account.Verification.Purpose != PurposeConfirmAccount {
			return nil
		}

		// a new key invalidates the one sent before
		storage := account.Verification.Storage
		if err := s.verifications.Attach(account, PurposeConfirmAccount, storage, now); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate verification key")
		}
		account.Touch(now)

		pending, err = store.Update(ctx, account)
		if err != nil {
			return dependencyUnavailable(err, "failed to update pending account")
		}
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, err
		}
		return nil, dependencyUnavailable(err, "failed to resend verification")
	}

	res := &Result{
		ProviderHint: EmailDomain(email),
		RedirectTo:   s.successRedirect("", EmailDomain(email)),
	}

	if pending == nil {
		s.logger.Debug("verification resend skipped, no pending account for request")
		return res, nil
	}

	res.DeliveryErr = s.dispatchVerification(ctx, pending, ActivityEventVerificationResent)

	s.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventVerificationResent,
		Kind:      ActivityKindInformation,
		UserID:    pending.ID.String(),
		Email:     pending.Email,
		Metadata: map[string]any{
			"delivered": res.DeliveryErr == nil,
		},
	})

	return res, nil
}

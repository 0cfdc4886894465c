package accounts

import (
	"context"
	"errors"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// ConfirmVerificationMessage carries the key read back from a confirmation link
type ConfirmVerificationMessage struct {
	Key string `json:"key" example:"x7Kq9vB2mNp4LrT8wZ3cYd6FhJ1sAeU5" doc:"Verification key from the confirmation email."`
}

// Type returns the message type
func (e ConfirmVerificationMessage) Type() string {
	return "accounts.verification.confirm"
}

// ConfirmVerification consumes a ConfirmAccount key, marking the account
// email as verified and allowing it to log in.
func (s *RegistrationService) ConfirmVerification(ctx context.Context, msg ConfirmVerificationMessage) (*Result, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled during account confirmation")
	default:
		return s.confirmVerification(ctx, msg)
	}
}

func (s *RegistrationService) confirmVerification(ctx context.Context, msg ConfirmVerificationMessage) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, operationTimeout)
	defer cancel()

	key := s.verifications.NormalizeKey(msg.Key)
	if key == "" {
		s.recordTokenFailure(ctx, "confirm", "empty_key")
		return nil, ErrInvalidToken
	}

	now := s.now()

	var confirmed *UserAccount
	var storage string
	err := s.store.RunInTx(ctx, func(ctx context.Context, store AccountStore) error {
		account, err := s.loadPendingConfirmation(ctx, store, key)
		if err != nil {
			return err
		}

		if s.isExpired(account, now) {
			s.logger.Debug("verification key for account %s expired", account.ID)
			if s.config.GetRevealExpiredTokens() {
				return ErrExpiredToken
			}
			return ErrInvalidToken
		}

		// read before clearing, it holds the return URL
		storage = account.Verification.Storage

		account.MarkEmailVerified(now)
		s.verifications.Clear(account)
		account.Touch(now)

		confirmed, err = store.Update(ctx, account)
		if err != nil {
			return dependencyUnavailable(err, "failed to update confirmed account")
		}
		return nil
	})

	if err != nil {
		if IsInvalidToken(err) || IsExpiredToken(err) {
			s.recordTokenFailure(ctx, "confirm", textCode(err))
		}

		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, err
		}
		return nil, dependencyUnavailable(err, "failed to confirm account")
	}

	s.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventVerificationConfirmed,
		Kind:      ActivityKindSuccess,
		UserID:    confirmed.ID.String(),
		Email:     confirmed.Email,
	})

	res := &Result{
		Account:      confirmed,
		ReturnURL:    storage,
		ProviderHint: confirmed.EmailDomain(),
	}

	if s.config.GetLoginAfterAccountConfirmation() {
		res.IssueSession = true
		res.RedirectTo = s.routes().Login
		if s.validReturnURL(storage) {
			res.RedirectTo = storage
		}
		return res, nil
	}

	returnURL := ""
	if s.validReturnURL(storage) {
		returnURL = storage
	}
	res.RedirectTo = s.loginRedirect(returnURL)

	return res, nil
}

// loadPendingConfirmation loads the account owning key, accepting only
// ConfirmAccount keys. Unknown and wrong purpose keys look the same.
func (s *RegistrationService) loadPendingConfirmation(ctx context.Context, store AccountStore, key string) (*UserAccount, error) {
	account, err := store.LoadByVerificationKey(ctx, key)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, dependencyUnavailable(err, "failed to load account by verification key")
	}

	if account.Verification.Purpose != PurposeConfirmAccount || account.Verification.Key != key {
		return nil, ErrInvalidToken
	}

	return account, nil
}

func (s *RegistrationService) isExpired(account *UserAccount, now time.Time) bool {
	maxAge := s.config.GetVerificationKeyMaxAge()
	if maxAge <= 0 {
		return false
	}
	if account.Verification.SentAt == nil {
		return true
	}
	return IsOutsideThresholdPeriod(now, *account.Verification.SentAt, maxAge)
}

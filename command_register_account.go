package accounts

import (
	"context"
	"errors"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
)

// RegisterAccountMessage carries a validated registration request
type RegisterAccountMessage struct {
	Email     string `json:"email" example:"jane@example.com" doc:"Email address used to sign in."`
	Password  string `json:"password" example:"Secret1!" doc:"Plaintext password, hashed before storage."`
	ReturnURL string `json:"return_url,omitempty" example:"/dashboard" doc:"Where to go once the account is confirmed."`
}

// Type returns the message type
func (e RegisterAccountMessage) Type() string {
	return "accounts.register"
}

// Register creates a new account pending email confirmation and dispatches
// the confirmation key to the given address.
func (s *RegistrationService) Register(ctx context.Context, msg RegisterAccountMessage) (*Result, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled during account registration")
	default:
		return s.register(ctx, msg)
	}
}

func (s *RegistrationService) register(ctx context.Context, msg RegisterAccountMessage) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, operationTimeout)
	defer cancel()

	email := NormalizeEmail(msg.Email)
	now := s.now()

	var created *UserAccount
	err := s.store.RunInTx(ctx, func(ctx context.Context, store AccountStore) error {
		existing, err := store.LoadByEmailWithExternal(ctx, email)
		switch {
		case err == nil:
			return s.rejectExisting(existing)
		case !errors.Is(err, ErrAccountNotFound):
			return dependencyUnavailable(err, "failed to load account by email")
		}

		account, err := s.newAccount(email, msg, now)
		if err != nil {
			return err
		}

		created, err = store.Create(ctx, account)
		if err != nil {
			// lost the race against a concurrent registration
			if errors.Is(err, ErrAccountConflict) {
				return ErrAccountExists
			}
			return dependencyUnavailable(err, "failed to create account")
		}
		return nil
	})

	if err != nil {
		if IsAccountExists(err) || IsAccountNotEligible(err) {
			s.recordActivity(ctx, ActivityEvent{
				EventType: ActivityEventRegistrationRejected,
				Kind:      ActivityKindFailure,
				Email:     email,
				Metadata: map[string]any{
					"reason": textCode(err),
				},
			})
		}

		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, err
		}
		return nil, dependencyUnavailable(err, "failed to register account")
	}

	res := &Result{
		Account:      created,
		ReturnURL:    msg.ReturnURL,
		ProviderHint: created.EmailDomain(),
	}

	// the account is committed, a delivery failure only needs a resend
	res.DeliveryErr = s.dispatchVerification(ctx, created, ActivityEventAccountRegistered)

	s.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventAccountRegistered,
		Kind:      ActivityKindSuccess,
		UserID:    created.ID.String(),
		Email:     created.Email,
		Metadata: map[string]any{
			"login_allowed": created.IsLoginAllowed,
			"delivered":     res.DeliveryErr == nil,
		},
	})

	if s.config.GetLoginAfterAccountCreation() {
		res.IssueSession = true
		res.RedirectTo = s.routes().Landing
		if s.validReturnURL(msg.ReturnURL) {
			res.RedirectTo = msg.ReturnURL
		}
		return res, nil
	}

	returnURL := ""
	if s.validReturnURL(msg.ReturnURL) {
		returnURL = msg.ReturnURL
	}
	res.RedirectTo = s.successRedirect(returnURL, res.ProviderHint)

	return res, nil
}

// rejectExisting picks the error returned when email already has an account
func (s *RegistrationService) rejectExisting(existing *UserAccount) error {
	if !existing.IsLoginAllowed {
		if existing.IsEmailVerified {
			return ErrAccountDisabled
		}
		return ErrAccountUnconfirmed
	}

	if !existing.HasPassword() {
		return NewAccountExistsError(existing.ProviderNames())
	}

	return ErrAccountExists
}

func (s *RegistrationService) newAccount(email string, msg RegisterAccountMessage, now time.Time) (*UserAccount, error) {
	hash, err := s.hasher.Hash(msg.Password, s.config.GetPasswordHashingIterationCount())
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	account := &UserAccount{
		ID:               s.newAccountID(email),
		Email:            email,
		IsEmailVerified:  false,
		IsLoginAllowed:   s.config.GetLoginAfterAccountCreation(),
		FailedLoginCount: 0,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	account.SetPassword(hash, now)

	if err := s.verifications.Attach(account, PurposeConfirmAccount, msg.ReturnURL, now); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate verification key")
	}

	return account, nil
}

func (s *RegistrationService) newAccountID(email string) uuid.UUID {
	if s.config.GetUseHashid() {
		if id, err := hashid.NewUUID(email); err == nil {
			return id
		}
		s.logger.Warn("failed to derive account id from email, falling back to random id")
	}
	return uuid.New()
}

func textCode(err error) string {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr.TextCode
	}
	return ""
}

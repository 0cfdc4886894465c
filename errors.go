package accounts

import (
	"errors"

	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeAccountExists         = "ACCOUNT_EXISTS"
	TextCodeAccountUnconfirmed    = "ACCOUNT_NOT_ELIGIBLE_UNCONFIRMED"
	TextCodeAccountDisabled       = "ACCOUNT_NOT_ELIGIBLE_DISABLED"
	TextCodeInvalidToken          = "INVALID_TOKEN"
	TextCodeExpiredToken          = "EXPIRED_TOKEN"
	TextCodeCannotCancel          = "CANNOT_CANCEL"
	TextCodeDependencyUnavailable = "DEPENDENCY_UNAVAILABLE"
)

// metadata key holding provider names on ErrAccountExists errors
const providersMetadataKey = "providers"

// ErrAccountNotFound is returned by stores when no account matches
var ErrAccountNotFound = errors.New("account not found")

// ErrAccountConflict is returned by stores when the email is already taken
var ErrAccountConflict = errors.New("account conflict")

// ErrAccountExists is returned when registering an email that already has an account
var ErrAccountExists = goerrors.New("an account with this email already exists", goerrors.CategoryConflict).
	WithTextCode(TextCodeAccountExists).
	WithCode(goerrors.CodeConflict)

// ErrAccountUnconfirmed is returned when the existing account still waits for email confirmation
var ErrAccountUnconfirmed = goerrors.New("please confirm your email account", goerrors.CategoryValidation).
	WithTextCode(TextCodeAccountUnconfirmed).
	WithCode(goerrors.CodeBadRequest)

// ErrAccountDisabled is returned when the existing account is verified but not allowed to log in
var ErrAccountDisabled = goerrors.New("your user account has been disabled", goerrors.CategoryValidation).
	WithTextCode(TextCodeAccountDisabled).
	WithCode(goerrors.CodeBadRequest)

// ErrInvalidToken covers unknown, cleared and wrong-purpose verification keys
var ErrInvalidToken = goerrors.New("invalid or expired verification link", goerrors.CategoryNotFound).
	WithTextCode(TextCodeInvalidToken).
	WithCode(goerrors.CodeNotFound)

// ErrExpiredToken is only surfaced when Config.GetRevealExpiredTokens is on
var ErrExpiredToken = goerrors.New("verification link has expired", goerrors.CategoryValidation).
	WithTextCode(TextCodeExpiredToken).
	WithCode(goerrors.CodeBadRequest)

// ErrCannotCancel is returned when cancelling a registration that was already used
var ErrCannotCancel = goerrors.New("registration can no longer be cancelled", goerrors.CategoryConflict).
	WithTextCode(TextCodeCannotCancel).
	WithCode(goerrors.CodeConflict)

// NewAccountExistsError returns an ErrAccountExists variant carrying the
// provider names of linked external accounts as a sign-in hint.
func NewAccountExistsError(providers []string) error {
	if len(providers) == 0 {
		return ErrAccountExists
	}
	hint := make([]string, len(providers))
	copy(hint, providers)

	return goerrors.New(ErrAccountExists.Message, goerrors.CategoryConflict).
		WithTextCode(TextCodeAccountExists).
		WithCode(goerrors.CodeConflict).
		WithMetadata(map[string]any{
			providersMetadataKey: hint,
		})
}

func dependencyUnavailable(err error, message string) error {
	return goerrors.Wrap(err, goerrors.CategoryInternal, message).
		WithTextCode(TextCodeDependencyUnavailable).
		WithCode(goerrors.CodeInternal)
}

// ProviderHints returns the provider names attached to an ErrAccountExists error
func ProviderHints(err error) []string {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) || richErr.TextCode != TextCodeAccountExists {
		return nil
	}
	providers, _ := richErr.Metadata[providersMetadataKey].([]string)
	return providers
}

// IsAccountExists checks for ErrAccountExists and its hint carrying variants
func IsAccountExists(err error) bool {
	return hasTextCode(err, TextCodeAccountExists)
}

// IsAccountNotEligible checks for ErrAccountUnconfirmed and ErrAccountDisabled
func IsAccountNotEligible(err error) bool {
	return hasTextCode(err, TextCodeAccountUnconfirmed) || hasTextCode(err, TextCodeAccountDisabled)
}

// IsInvalidToken checks for ErrInvalidToken
func IsInvalidToken(err error) bool {
	return hasTextCode(err, TextCodeInvalidToken)
}

// IsExpiredToken checks for ErrExpiredToken
func IsExpiredToken(err error) bool {
	return hasTextCode(err, TextCodeExpiredToken)
}

// IsCannotCancel checks for ErrCannotCancel
func IsCannotCancel(err error) bool {
	return hasTextCode(err, TextCodeCannotCancel)
}

// IsDependencyUnavailable checks for store or transport failures. These are retryable.
func IsDependencyUnavailable(err error) bool {
	return hasTextCode(err, TextCodeDependencyUnavailable)
}

func hasTextCode(err error, code string) bool {
	if err == nil {
		return false
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr.TextCode == code
	}
	return false
}

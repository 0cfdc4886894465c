package controller

import (
	"errors"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	accounts "github.com/goliatone/go-accounts"
)

const (
	minPasswordLength = 8
	maxPasswordLength = 100
)

// RegisterRequest is the registration form payload
type RegisterRequest struct {
	Email           string `form:"email" json:"email"`
	Password        string `form:"password" json:"password"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password"`
	ReturnURL       string `form:"return_url" json:"return_url"`
}

// Validate will validate the payload
func (r RegisterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, validation.Length(3, 254), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(minPasswordLength, maxPasswordLength)),
		validation.Field(
			&r.ConfirmPassword,
			validation.Required,
			validation.By(ValidateStringEquals(r.Password)),
		),
		validation.Field(&r.ReturnURL, validation.Length(0, 2048)),
	)
}

// Message builds the engine input
func (r RegisterRequest) Message() accounts.RegisterAccountMessage {
	return accounts.RegisterAccountMessage{
		Email:     r.Email,
		Password:  r.Password,
		ReturnURL: r.ReturnURL,
	}
}

// Sanitized drops the secrets before the payload is rendered back
func (r *RegisterRequest) Sanitized() RegisterRequest {
	if r == nil {
		return RegisterRequest{}
	}
	return RegisterRequest{
		Email:     r.Email,
		ReturnURL: r.ReturnURL,
	}
}

// ResendRequest asks for a new confirmation link
type ResendRequest struct {
	Email string `form:"email" json:"email"`
}

// Validate will validate the payload
func (r ResendRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
	)
}

// ValidateStringEquals will check that both values match
func ValidateStringEquals(str string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != str {
			return errors.New("values must match")
		}
		return nil
	}
}

// FormatValidationErrorToMap flattens ozzo errors into field -> message.
// Anything else is reported under "form".
func FormatValidationErrorToMap(err error) map[string]string {
	out := map[string]string{}
	if err == nil {
		return out
	}

	var errs validation.Errors
	if !errors.As(err, &errs) {
		out["form"] = err.Error()
		return out
	}

	for field, fieldErr := range errs {
		if fieldErr == nil {
			continue
		}
		out[field] = fieldErr.Error()
	}

	return out
}

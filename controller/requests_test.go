package controller

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterRequestValidate(t *testing.T) {
	t.Run("valid payload", func(t *testing.T) {
		req := RegisterRequest{
			Email:           "jane@example.com",
			Password:        "Secret1!",
			ConfirmPassword: "Secret1!",
			ReturnURL:       "/dashboard",
		}
		require.NoError(t, req.Validate())
	})

	t.Run("field errors", func(t *testing.T) {
		req := RegisterRequest{
			Email:           "not-an-email",
			Password:        "short",
			ConfirmPassword: "different",
		}
		err := req.Validate()
		require.Error(t, err)

		fields := FormatValidationErrorToMap(err)
		assert.Contains(t, fields, "email")
		assert.Contains(t, fields, "password")
		assert.Equal(t, "values must match", fields["confirm_password"])
		assert.NotContains(t, fields, "return_url")
	})

	t.Run("missing values", func(t *testing.T) {
		fields := FormatValidationErrorToMap(RegisterRequest{}.Validate())
		assert.Contains(t, fields, "email")
		assert.Contains(t, fields, "password")
		assert.Contains(t, fields, "confirm_password")
	})
}

func TestRegisterRequestMessageAndSanitized(t *testing.T) {
	req := &RegisterRequest{
		Email:           "jane@example.com",
		Password:        "Secret1!",
		ConfirmPassword: "Secret1!",
		ReturnURL:       "/next",
	}

	msg := req.Message()
	assert.Equal(t, "jane@example.com", msg.Email)
	assert.Equal(t, "Secret1!", msg.Password)
	assert.Equal(t, "/next", msg.ReturnURL)

	clean := req.Sanitized()
	assert.Empty(t, clean.Password)
	assert.Empty(t, clean.ConfirmPassword)
	assert.Equal(t, "jane@example.com", clean.Email)

	var missing *RegisterRequest
	assert.Equal(t, RegisterRequest{}, missing.Sanitized())
}

func TestResendRequestValidate(t *testing.T) {
	require.NoError(t, ResendRequest{Email: "jane@example.com"}.Validate())

	fields := FormatValidationErrorToMap(ResendRequest{Email: "nope"}.Validate())
	assert.Contains(t, fields, "email")
}

func TestFormatValidationErrorToMap(t *testing.T) {
	assert.Empty(t, FormatValidationErrorToMap(nil))

	fields := FormatValidationErrorToMap(errors.New("boom"))
	assert.Equal(t, map[string]string{"form": "boom"}, fields)
}

func TestValidateStringEquals(t *testing.T) {
	rule := ValidateStringEquals("abc")
	assert.NoError(t, rule("abc"))
	assert.Error(t, rule("abd"))
	assert.Error(t, rule(42))
}

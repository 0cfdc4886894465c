package controller

import (
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation"
	accounts "github.com/goliatone/go-accounts"
	goerrors "github.com/goliatone/go-errors"
)

// StatusForError maps engine errors to an HTTP status
func StatusForError(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var verrs validation.Errors
	if goerrors.As(err, &verrs) {
		return http.StatusBadRequest
	}

	switch {
	case accounts.IsAccountExists(err), accounts.IsCannotCancel(err):
		return http.StatusConflict
	case accounts.IsAccountNotEligible(err), accounts.IsExpiredToken(err):
		return http.StatusBadRequest
	case accounts.IsInvalidToken(err):
		return http.StatusNotFound
	case accounts.IsDependencyUnavailable(err):
		return http.StatusServiceUnavailable
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr.Code >= 400 {
		return richErr.Code
	}

	return http.StatusInternalServerError
}

// MessageForError returns the text safe to show to the user
func MessageForError(err error) string {
	if err == nil {
		return ""
	}

	if accounts.IsDependencyUnavailable(err) {
		return "The service is temporarily unavailable, please try again later"
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr.Category != goerrors.CategoryInternal {
		return richErr.Message
	}

	return "Something went wrong"
}

func accountsTextCode(err error) string {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr.TextCode
	}
	return ""
}

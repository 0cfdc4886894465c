package controller

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	accounts "github.com/goliatone/go-accounts"
	"github.com/goliatone/go-accounts/middleware/csrf"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/goliatone/go-router/flash"
)

func (a *RegistrationController) RegistrationShow(ctx router.Context) error {
	return ctx.Render(a.Views.Register, formContext(ctx, router.ViewContext{
		"errors": []string{},
		"record": RegisterRequest{ReturnURL: ctx.Query("returnUrl")},
	}))
}

func (a *RegistrationController) RegistrationCreate(ctx router.Context) error {
	payload := new(RegisterRequest)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("register account parse payload: %v", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error parsing body",
		}).Status(fiber.StatusBadRequest).Render(a.Views.Register, formContext(ctx, router.ViewContext{
			"errors": []string{"Failed to parse form"},
			"record": payload.Sanitized(),
		}))
	}

	if err := payload.Validate(); err != nil {
		errors := FormatValidationErrorToMap(err)
		a.Logger.Debug("register account validate payload: %v", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error validating payload",
		}).Status(fiber.StatusBadRequest).Render(a.Views.Register, formContext(ctx, router.ViewContext{
			"record":     payload.Sanitized(),
			"validation": errors,
		}))
	}

	res, err := a.Service.Register(ctx.Context(), payload.Message())
	if err != nil {
		a.Logger.Info("register account rejected: %v", err)

		if accounts.IsDependencyUnavailable(err) {
			return a.ErrorHandler(ctx, err)
		}

		return flash.WithError(ctx, router.ViewContext{
			"error_message":  MessageForError(err),
			"system_message": "Error creating account",
		}).Status(StatusForError(err)).Render(a.Views.Register, formContext(ctx, router.ViewContext{
			"record":    payload.Sanitized(),
			"errors":    []string{MessageForError(err)},
			"providers": accounts.ProviderHints(err),
		}))
	}

	if res.DeliveryErr != nil {
		a.Logger.Warn("account %s created but confirmation email not delivered: %v", res.Account.ID, res.DeliveryErr)
	}

	a.debug("REGISTER ACCOUNT", res)

	return a.finish(ctx, res, "Successful account registration")
}

func (a *RegistrationController) RegistrationSuccess(ctx router.Context) error {
	provider := ctx.Query("provider")
	return ctx.Render(a.Views.Success, formContext(ctx, router.ViewContext{
		"provider":   provider,
		"webmail":    WebmailURL(provider),
		"return_url": ctx.Query("returnUrl"),
		"resend":     a.Routes.Resend,
	}))
}

func (a *RegistrationController) ConfirmVerification(ctx router.Context) error {
	key := ctx.Param("key", "")

	res, err := a.Service.ConfirmVerification(ctx.Context(), accounts.ConfirmVerificationMessage{Key: key})
	if err != nil {
		return a.renderVerificationError(ctx, err)
	}

	a.debug("CONFIRM ACCOUNT", res)

	return a.finish(ctx, res, "Your account has been confirmed")
}

func (a *RegistrationController) CancelVerification(ctx router.Context) error {
	key := ctx.Param("key", "")

	res, err := a.Service.CancelVerification(ctx.Context(), accounts.CancelVerificationMessage{Key: key})
	if err != nil {
		return a.renderVerificationError(ctx, err)
	}

	a.debug("CANCEL REGISTRATION", res)

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": "Your registration has been cancelled",
	}).Redirect(res.RedirectTo, fiber.StatusSeeOther)
}

func (a *RegistrationController) ResendVerification(ctx router.Context) error {
	payload := new(ResendRequest)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("resend verification parse payload: %v", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error parsing body",
		}).Status(fiber.StatusBadRequest).Render(a.Views.Success, formContext(ctx, router.ViewContext{
			"validation": map[string]string{"email": "Failed to parse form"},
			"resend":     a.Routes.Resend,
		}))
	}

	if err := payload.Validate(); err != nil {
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error validating payload",
		}).Status(fiber.StatusBadRequest).Render(a.Views.Success, formContext(ctx, router.ViewContext{
			"validation": FormatValidationErrorToMap(err),
			"resend":     a.Routes.Resend,
		}))
	}

	res, err := a.Service.ResendVerification(ctx.Context(), accounts.ResendVerificationMessage{Email: payload.Email})
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	if res.DeliveryErr != nil {
		a.Logger.Warn("confirmation email not delivered on resend: %v", res.DeliveryErr)
	}

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": "If an account is waiting for confirmation we sent a new link",
	}).Redirect(res.RedirectTo, fiber.StatusSeeOther)
}

// finish issues a session when asked to and redirects to the result target
func (a *RegistrationController) finish(ctx router.Context, res *accounts.Result, message string) error {
	if res.IssueSession {
		if a.Sessions == nil {
			a.Logger.Warn("session requested for account %s but no session issuer configured", res.Account.ID)
		} else if err := a.Sessions.IssueSession(ctx, res.Account); err != nil {
			a.Logger.Error("issue session for account %s: %v", res.Account.ID, err)
			return a.ErrorHandler(ctx, err)
		}
	}

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": message,
	}).Redirect(res.RedirectTo, fiber.StatusSeeOther)
}

func (a *RegistrationController) renderVerificationError(ctx router.Context, err error) error {
	if accounts.IsDependencyUnavailable(err) {
		a.Logger.Error("verification link: %v", err)
		return a.ErrorHandler(ctx, err)
	}

	a.Logger.Info("verification link rejected: %v", err)

	return ctx.Status(StatusForError(err)).Render(a.Views.Invalid, formContext(ctx, router.ViewContext{
		"message": MessageForError(err),
		"code":    accountsTextCode(err),
		"resend":  a.Routes.Resend,
	}))
}

// formContext adds the CSRF values the form views post back
func formContext(ctx router.Context, vc router.ViewContext) router.ViewContext {
	for k, v := range csrf.TemplateValues(ctx, "") {
		if _, ok := vc[k]; !ok {
			vc[k] = v
		}
	}
	return vc
}

func (a *RegistrationController) debug(title string, v any) {
	if !a.Debug {
		return
	}
	fmt.Printf("======= %s ======\n", title)
	fmt.Println(print.MaybePrettyJSON(v))
	fmt.Println("=========================")
}

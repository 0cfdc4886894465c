package controller

import (
	"context"
	"fmt"

	accounts "github.com/goliatone/go-accounts"
	"github.com/goliatone/go-router"
)

// Service is the part of accounts.RegistrationService the controller drives
type Service interface {
	Register(ctx context.Context, msg accounts.RegisterAccountMessage) (*accounts.Result, error)
	ConfirmVerification(ctx context.Context, msg accounts.ConfirmVerificationMessage) (*accounts.Result, error)
	CancelVerification(ctx context.Context, msg accounts.CancelVerificationMessage) (*accounts.Result, error)
	ResendVerification(ctx context.Context, msg accounts.ResendVerificationMessage) (*accounts.Result, error)
}

var _ Service = (*accounts.RegistrationService)(nil)

// SessionIssuer signs an account in on the current request
type SessionIssuer interface {
	IssueSession(ctx router.Context, account *accounts.UserAccount) error
}

// RegisterRoutes mounts the registration endpoints on app
func RegisterRoutes[T any](app router.Router[T], opts ...RegistrationControllerOption) {
	controller := NewRegistrationController(opts...)

	app.Get(controller.Routes.Register, controller.RegistrationShow).
		SetName("register.get")
	app.Post(controller.Routes.Register, controller.RegistrationCreate).
		SetName("register.post")

	app.Get(controller.Routes.Success, controller.RegistrationSuccess).
		SetName("register-success.get")

	app.Get(fmt.Sprintf("%s/:key", controller.Routes.Confirm), controller.ConfirmVerification).
		SetName("register-confirm.get")
	app.Get(fmt.Sprintf("%s/:key", controller.Routes.Cancel), controller.CancelVerification).
		SetName("register-cancel.get")

	app.Post(controller.Routes.Resend, controller.ResendVerification).
		SetName("register-resend.post")
}

type RegistrationControllerRoutes struct {
	Register string
	Success  string
	Confirm  string
	Cancel   string
	Resend   string
}

type RegistrationControllerViews struct {
	Register string
	Success  string
	Invalid  string
}

type RegistrationController struct {
	Debug        bool
	Logger       accounts.Logger
	Service      Service
	Sessions     SessionIssuer
	Routes       *RegistrationControllerRoutes
	Views        *RegistrationControllerViews
	ErrorHandler router.ErrorHandler
}

type RegistrationControllerOption func(*RegistrationController) *RegistrationController

// WithService sets the registration service, required
func WithService(service Service) RegistrationControllerOption {
	return func(c *RegistrationController) *RegistrationController {
		c.Service = service
		return c
	}
}

// WithSessionIssuer sets the issuer used when a result asks for a session
func WithSessionIssuer(issuer SessionIssuer) RegistrationControllerOption {
	return func(c *RegistrationController) *RegistrationController {
		c.Sessions = issuer
		return c
	}
}

func WithLogger(logger accounts.Logger) RegistrationControllerOption {
	return func(c *RegistrationController) *RegistrationController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

func WithDebug(debug bool) RegistrationControllerOption {
	return func(c *RegistrationController) *RegistrationController {
		c.Debug = debug
		return c
	}
}

// WithRoutes overrides the mounted paths. Empty fields keep their default.
func WithRoutes(routes RegistrationControllerRoutes) RegistrationControllerOption {
	return func(c *RegistrationController) *RegistrationController {
		c.Routes = mergeRoutes(c.Routes, routes)
		return c
	}
}

// WithViews overrides the rendered templates. Empty fields keep their default.
func WithViews(views RegistrationControllerViews) RegistrationControllerOption {
	return func(c *RegistrationController) *RegistrationController {
		if views.Register != "" {
			c.Views.Register = views.Register
		}
		if views.Success != "" {
			c.Views.Success = views.Success
		}
		if views.Invalid != "" {
			c.Views.Invalid = views.Invalid
		}
		return c
	}
}

func WithErrorHandler(handler router.ErrorHandler) RegistrationControllerOption {
	return func(c *RegistrationController) *RegistrationController {
		if handler != nil {
			c.ErrorHandler = handler
		}
		return c
	}
}

// RoutesFromConfig aligns the controller paths with the redirect targets
// the service builds from cfg
func RoutesFromConfig(cfg accounts.Config) RegistrationControllerRoutes {
	routes := cfg.GetRoutes()
	return RegistrationControllerRoutes{
		Success: routes.RegisterSuccess,
		Confirm: routes.Confirm,
		Cancel:  routes.Cancel,
	}
}

func NewRegistrationController(opts ...RegistrationControllerOption) *RegistrationController {
	c := &RegistrationController{
		Logger:       nopLogger{},
		ErrorHandler: defaultErrHandler,
		Routes:       defaultRoutes(),
		Views: &RegistrationControllerViews{
			Register: "register",
			Success:  "register_success",
			Invalid:  "register_invalid",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Service == nil {
		panic("Missing Service in registration controller...")
	}

	return c
}

func defaultRoutes() *RegistrationControllerRoutes {
	return &RegistrationControllerRoutes{
		Register: "/register",
		Success:  "/register/success",
		Confirm:  "/register/confirm",
		Cancel:   "/register/cancel",
		Resend:   "/register/resend",
	}
}

func mergeRoutes(base *RegistrationControllerRoutes, routes RegistrationControllerRoutes) *RegistrationControllerRoutes {
	if base == nil {
		base = defaultRoutes()
	}
	if routes.Register != "" {
		base.Register = routes.Register
	}
	if routes.Success != "" {
		base.Success = routes.Success
	}
	if routes.Confirm != "" {
		base.Confirm = routes.Confirm
	}
	if routes.Cancel != "" {
		base.Cancel = routes.Cancel
	}
	if routes.Resend != "" {
		base.Resend = routes.Resend
	}
	return base
}

func defaultErrHandler(c router.Context, err error) error {
	return c.Status(StatusForError(err)).Render("errors/500", router.ViewContext{
		"message": MessageForError(err),
	})
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

package accounts

import (
	"net/url"
	"strings"
	"time"
)

// Config holds registration policy
type Config interface {
	GetPasswordHashingIterationCount() int
	GetLoginAfterAccountCreation() bool
	GetLoginAfterAccountConfirmation() bool
	GetVerificationKeyMaxAge() time.Duration
	GetRevealExpiredTokens() bool
	GetUseHashid() bool
	GetBaseURL() string
	GetRoutes() Routes
	GetAllowedReturnHosts() []string
}

// Routes are the paths the caller is redirected to
type Routes struct {
	Login           string
	Landing         string
	RegisterSuccess string
	Confirm         string
	Cancel          string
}

// Options is the default Config implementation
type Options struct {
	PasswordHashingIterationCount int
	LoginAfterAccountCreation     bool
	LoginAfterAccountConfirmation bool
	// VerificationKeyMaxAge of zero disables key expiry
	VerificationKeyMaxAge time.Duration
	// RevealExpiredTokens returns ErrExpiredToken instead of ErrInvalidToken
	// for expired keys
	RevealExpiredTokens bool
	UseHashid           bool
	BaseURL             string
	Routes              Routes
	// AllowedReturnHosts lists the hosts absolute return URLs may point to
	AllowedReturnHosts []string
}

var _ Config = Options{}

// DefaultOptions returns the default registration policy
func DefaultOptions() Options {
	return Options{
		PasswordHashingIterationCount: DefaultHashIterations,
		LoginAfterAccountCreation:     false,
		LoginAfterAccountConfirmation: true,
		Routes:                        DefaultRoutes(),
	}
}

// DefaultRoutes returns the default redirect paths
func DefaultRoutes() Routes {
	return Routes{
		Login:           "/login",
		Landing:         "/",
		RegisterSuccess: "/register/success",
		Confirm:         "/register/confirm",
		Cancel:          "/register/cancel",
	}
}

func (o Options) GetPasswordHashingIterationCount() int {
	return o.PasswordHashingIterationCount
}

func (o Options) GetLoginAfterAccountCreation() bool {
	return o.LoginAfterAccountCreation
}

func (o Options) GetLoginAfterAccountConfirmation() bool {
	return o.LoginAfterAccountConfirmation
}

func (o Options) GetVerificationKeyMaxAge() time.Duration {
	return o.VerificationKeyMaxAge
}

func (o Options) GetRevealExpiredTokens() bool {
	return o.RevealExpiredTokens
}

func (o Options) GetUseHashid() bool {
	return o.UseHashid
}

func (o Options) GetBaseURL() string {
	return o.BaseURL
}

func (o Options) GetRoutes() Routes {
	return o.Routes.withDefaults()
}

func (o Options) GetAllowedReturnHosts() []string {
	return o.AllowedReturnHosts
}

func (r Routes) withDefaults() Routes {
	def := DefaultRoutes()
	if r.Login == "" {
		r.Login = def.Login
	}
	if r.Landing == "" {
		r.Landing = def.Landing
	}
	if r.RegisterSuccess == "" {
		r.RegisterSuccess = def.RegisterSuccess
	}
	if r.Confirm == "" {
		r.Confirm = def.Confirm
	}
	if r.Cancel == "" {
		r.Cancel = def.Cancel
	}
	return r
}

// LocalReturnURLValidator accepts local paths and absolute URLs whose host is
// listed in AllowedHosts.
type LocalReturnURLValidator struct {
	AllowedHosts []string
}

// IsValidReturnURL implements ReturnURLValidator.
func (v LocalReturnURLValidator) IsValidReturnURL(returnURL string) bool {
	returnURL = strings.TrimSpace(returnURL)
	if returnURL == "" {
		return false
	}

	// protocol relative and backslash tricks
	if strings.HasPrefix(returnURL, "//") || strings.Contains(returnURL, "\\") {
		return false
	}

	u, err := url.Parse(returnURL)
	if err != nil {
		return false
	}

	if !u.IsAbs() && u.Host == "" {
		return strings.HasPrefix(u.Path, "/")
	}

	if u.Scheme != "https" && u.Scheme != "http" {
		return false
	}

	for _, host := range v.AllowedHosts {
		if strings.EqualFold(host, u.Host) {
			return true
		}
	}
	return false
}

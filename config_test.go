package accounts_test

import (
	"testing"
	"time"

	accounts "github.com/goliatone/go-accounts"
	"github.com/stretchr/testify/assert"
)

func TestDefaultOptions(t *testing.T) {
	opts := accounts.DefaultOptions()

	assert.Equal(t, accounts.DefaultHashIterations, opts.GetPasswordHashingIterationCount())
	assert.False(t, opts.GetLoginAfterAccountCreation())
	assert.True(t, opts.GetLoginAfterAccountConfirmation())
	assert.Equal(t, time.Duration(0), opts.GetVerificationKeyMaxAge())
	assert.False(t, opts.GetRevealExpiredTokens())
	assert.False(t, opts.GetUseHashid())
	assert.Equal(t, accounts.DefaultRoutes(), opts.GetRoutes())
}

func TestRoutesFillDefaults(t *testing.T) {
	opts := accounts.Options{Routes: accounts.Routes{Login: "/sign-in"}}
	routes := opts.GetRoutes()

	assert.Equal(t, "/sign-in", routes.Login)
	assert.Equal(t, "/", routes.Landing)
	assert.Equal(t, "/register/success", routes.RegisterSuccess)
	assert.Equal(t, "/register/confirm", routes.Confirm)
	assert.Equal(t, "/register/cancel", routes.Cancel)
}

func TestLocalReturnURLValidator(t *testing.T) {
	validator := accounts.LocalReturnURLValidator{AllowedHosts: []string{"app.example.com"}}

	tests := []struct {
		url   string
		valid bool
	}{
		{"/dashboard", true},
		{"/dashboard?tab=1#top", true},
		{"  /padded  ", true},
		{"https://app.example.com/home", true},
		{"http://APP.example.com/home", true},
		{"", false},
		{"dashboard", false},
		{"//evil.example.net", false},
		{"/\\evil.example.net", false},
		{"https://evil.example.net/steal", false},
		{"javascript:alert(1)", false},
		{"ftp://app.example.com/file", false},
		{"https://app.example.com.evil.net/", false},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.valid, validator.IsValidReturnURL(tt.url))
		})
	}

	assert.False(t, accounts.LocalReturnURLValidator{}.IsValidReturnURL("https://app.example.com/home"))
}

func TestReturnURLValidatorFunc(t *testing.T) {
	var nilFunc accounts.ReturnURLValidatorFunc
	assert.False(t, nilFunc.IsValidReturnURL("/x"))

	allowAll := accounts.ReturnURLValidatorFunc(func(string) bool { return true })
	assert.True(t, allowAll.IsValidReturnURL("https://anywhere.example.net"))

	f := newFixture(accounts.DefaultOptions(), accounts.WithReturnURLValidator(allowAll))
	res := register(t, f, "jane@example.com", "https://anywhere.example.net")
	assert.Contains(t, res.RedirectTo, "returnUrl=https%3A%2F%2Fanywhere.example.net")
}

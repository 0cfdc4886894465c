package controller

import "strings"

var webmailProviders = map[string]string{
	"gmail.com":      "https://mail.google.com",
	"googlemail.com": "https://mail.google.com",
	"outlook.com":    "https://outlook.live.com/mail",
	"hotmail.com":    "https://outlook.live.com/mail",
	"live.com":       "https://outlook.live.com/mail",
	"yahoo.com":      "https://mail.yahoo.com",
	"icloud.com":     "https://www.icloud.com/mail",
	"me.com":         "https://www.icloud.com/mail",
	"proton.me":      "https://mail.proton.me",
	"protonmail.com": "https://mail.proton.me",
	"aol.com":        "https://mail.aol.com",
}

// WebmailURL returns the webmail inbox for a known email domain, or "" if
// the provider is unknown.
func WebmailURL(domain string) string {
	return webmailProviders[strings.ToLower(strings.TrimSpace(domain))]
}

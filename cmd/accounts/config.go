package main

import (
	"errors"
	"io/fs"
	"os"
	"time"

	accounts "github.com/goliatone/go-accounts"
	"github.com/goliatone/go-accounts/notification"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	// Application
	Addr    string `env:"ACCOUNTS_ADDR" env-default:":8080"`
	BaseURL string `env:"ACCOUNTS_BASE_URL" env-default:"http://localhost:8080"`
	Debug   bool   `env:"ACCOUNTS_DEBUG" env-default:"false"`

	// Logging
	LogLevel string `env:"LOG_LEVEL" env-default:"info"`
	LogDev   bool   `env:"LOG_DEV" env-default:"false"`

	// Database
	DBDriver string `env:"ACCOUNTS_DB_DRIVER" env-default:"sqlite"`
	DBDSN    string `env:"ACCOUNTS_DB_DSN" env-default:"file:accounts.db?cache=shared"`

	// Email
	MailMode         string        `env:"ACCOUNTS_MAIL_MODE" env-default:"console"`
	EmailHost        string        `env:"EMAIL_HOST" env-default:"localhost"`
	EmailPort        int           `env:"EMAIL_PORT" env-default:"1025"`
	EmailUsername    string        `env:"EMAIL_USERNAME" env-default:""`
	EmailPassword    string        `env:"EMAIL_PASSWORD" env-default:""`
	EmailFrom        string        `env:"EMAIL_FROM" env-default:"noreply@example.com"`
	EmailTLS         bool          `env:"EMAIL_TLS" env-default:"false"`
	EmailInsecureTLS bool          `env:"EMAIL_INSECURE_TLS" env-default:"false"`
	EmailTimeout     time.Duration `env:"EMAIL_TIMEOUT" env-default:"30s"`

	// Session
	JWTSecret      string        `env:"JWT_SECRET" env-default:""`
	JWTIssuer      string        `env:"JWT_ISSUER" env-default:"go-accounts"`
	SessionCookie  string        `env:"SESSION_COOKIE" env-default:"accounts_session"`
	SessionTimeout time.Duration `env:"SESSION_TIMEOUT" env-default:"24h"`

	// Forms
	CSRFSecret     string        `env:"CSRF_SECRET" env-default:""`
	CSRFExpiration time.Duration `env:"CSRF_EXPIRATION" env-default:"2h"`

	// Registration policy
	HashIterations         int           `env:"PASSWORD_HASH_ITERATIONS" env-default:"100000"`
	LoginAfterCreation     bool          `env:"LOGIN_AFTER_ACCOUNT_CREATION" env-default:"false"`
	LoginAfterConfirmation bool          `env:"LOGIN_AFTER_ACCOUNT_CONFIRMATION" env-default:"true"`
	VerificationKeyMaxAge  time.Duration `env:"VERIFICATION_KEY_MAX_AGE" env-default:"48h"`
	RevealExpiredTokens    bool          `env:"REVEAL_EXPIRED_TOKENS" env-default:"false"`
	UseHashid              bool          `env:"USE_HASHID" env-default:"false"`
	AllowedReturnHosts     []string      `env:"ALLOWED_RETURN_HOSTS" env-separator:","`
	RaiseSuccessEvents     bool          `env:"RAISE_SUCCESS_EVENTS" env-default:"true"`
	RaiseFailureEvents     bool          `env:"RAISE_FAILURE_EVENTS" env-default:"true"`
	RaiseInformationEvents bool          `env:"RAISE_INFORMATION_EVENTS" env-default:"true"`
	RaiseErrorEvents       bool          `env:"RAISE_ERROR_EVENTS" env-default:"true"`
}

// loadConfig reads envFile when present and then the process environment
func loadConfig(envFile string) (Config, error) {
	var cfg Config

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return cfg, err
		}
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}

func (c Config) accountsOptions() accounts.Options {
	opts := accounts.DefaultOptions()
	opts.PasswordHashingIterationCount = c.HashIterations
	opts.LoginAfterAccountCreation = c.LoginAfterCreation
	opts.LoginAfterAccountConfirmation = c.LoginAfterConfirmation
	opts.VerificationKeyMaxAge = c.VerificationKeyMaxAge
	opts.RevealExpiredTokens = c.RevealExpiredTokens
	opts.UseHashid = c.UseHashid
	opts.BaseURL = c.BaseURL
	opts.AllowedReturnHosts = c.AllowedReturnHosts
	return opts
}

func (c Config) eventOptions() accounts.EventOptions {
	return accounts.EventOptions{
		RaiseSuccessEvents:     c.RaiseSuccessEvents,
		RaiseFailureEvents:     c.RaiseFailureEvents,
		RaiseInformationEvents: c.RaiseInformationEvents,
		RaiseErrorEvents:       c.RaiseErrorEvents,
	}
}

func (c Config) smtpConfig() notification.SMTPConfig {
	return notification.SMTPConfig{
		Host:               c.EmailHost,
		Port:               c.EmailPort,
		TLS:                c.EmailTLS,
		InsecureSkipVerify: c.EmailInsecureTLS,
		Username:           c.EmailUsername,
		Password:           c.EmailPassword,
		From:               c.EmailFrom,
		Timeout:            c.EmailTimeout,
	}
}

func envFilePath() string {
	if v := os.Getenv("ACCOUNTS_ENV_FILE"); v != "" {
		return v
	}
	return ".env"
}

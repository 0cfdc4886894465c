package csrf

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"html"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-router"
)

var (
	ErrTokenMismatch = errors.New("CSRF token mismatch")
	ErrTokenMissing  = errors.New("CSRF token missing")
	ErrTokenExpired  = errors.New("CSRF token expired")
)

// DefaultNonceLength is the number of random bytes mixed into each token
const DefaultNonceLength = 16

// DefaultContextKey is the default key for storing CSRF tokens in context
const DefaultContextKey = "csrf_token"

// DefaultFormFieldName is the default name for the CSRF token form field
const DefaultFormFieldName = "_token"

// DefaultHeaderName is the default header name for CSRF tokens
const DefaultHeaderName = "X-CSRF-Token"

// DefaultCookieName is the cookie that identifies anonymous browsers
const DefaultCookieName = "accounts_csrf"

// MinSecureKeyLength is the shortest HMAC key accepted
const MinSecureKeyLength = 32

// Config defines the configuration for CSRF middleware
type Config struct {
	// Skip defines a function to skip middleware
	Skip func(router.Context) bool

	// SecureKey signs the tokens. Tokens do not survive a restart when it is
	// generated at startup, so multi instance deployments must share one.
	SecureKey []byte

	// Expiration defines how long a rendered form stays valid
	Expiration time.Duration

	// ContextKey defines the key for storing the token in context
	ContextKey string

	// FormFieldName defines the name of the form field containing the token
	FormFieldName string

	// HeaderName defines the header name for the token
	HeaderName string

	// CookieName holds the random client id tokens are bound to when the
	// request has no session
	CookieName string

	// CookieSecure marks the client id cookie as HTTPS only
	CookieSecure bool

	// SafeMethods defines HTTP methods that don't require CSRF protection
	SafeMethods []string

	// ErrorHandler defines the error handler
	ErrorHandler router.ErrorHandler

	// Now is the time source used to stamp and expire tokens
	Now func() time.Time
}

// New creates a CSRF middleware using signed stateless tokens.
// The token is bound to the session id when one is present in context and to
// a random client cookie otherwise, which is what anonymous registration forms get.
func New(config ...Config) router.MiddlewareFunc {
	cfg := configDefault(config...)

	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			if cfg.Skip != nil && cfg.Skip(ctx) {
				return ctx.Next()
			}

			binding, err := bindingKey(ctx, cfg)
			if err != nil {
				return cfg.ErrorHandler(ctx, err)
			}

			token, err := generateToken(cfg, binding)
			if err != nil {
				return cfg.ErrorHandler(ctx, err)
			}

			ctx.Locals(cfg.ContextKey, token)
			ctx.Locals(cfg.ContextKey+"_field", cfg.FormFieldName)

			method := strings.ToUpper(ctx.Method())
			if slices.Contains(cfg.SafeMethods, method) {
				return ctx.Next()
			}

			if err := validateToken(cfg, binding, extractToken(ctx, cfg)); err != nil {
				return cfg.ErrorHandler(ctx, err)
			}

			return ctx.Next()
		}
	}
}

// TemplateValues exposes the request token to views. Use the result with
// {{ csrf_field|safe }} inside forms.
func TemplateValues(ctx router.Context, contextKey string) map[string]any {
	if contextKey == "" {
		contextKey = DefaultContextKey
	}

	token, _ := ctx.Locals(contextKey).(string)
	fieldName := DefaultFormFieldName
	if v, ok := ctx.Locals(contextKey + "_field").(string); ok && v != "" {
		fieldName = v
	}

	return map[string]any{
		"csrf_token": token,
		"csrf_field": `<input type="hidden" name="` + html.EscapeString(fieldName) + `" value="` + html.EscapeString(token) + `">`,
	}
}

func generateToken(cfg Config, binding string) (string, error) {
	nonce, err := randomHex(DefaultNonceLength)
	if err != nil {
		return "", err
	}

	payload := fmt.Sprintf("%d:%s:%s", cfg.Now().UTC().Unix(), nonce, binding)
	token := payload + ":" + hex.EncodeToString(sign(cfg.SecureKey, payload))
	return base64.RawURLEncoding.EncodeToString([]byte(token)), nil
}

func validateToken(cfg Config, binding, token string) error {
	if token == "" {
		return ErrTokenMissing
	}

	decoded, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return ErrTokenMismatch
	}

	parts := strings.Split(string(decoded), ":")
	if len(parts) != 4 {
		return ErrTokenMismatch
	}

	issuedAt, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return ErrTokenMismatch
	}

	signature, err := hex.DecodeString(parts[3])
	if err != nil {
		return ErrTokenMismatch
	}

	if !hmac.Equal(signature, sign(cfg.SecureKey, strings.Join(parts[:3], ":"))) {
		return ErrTokenMismatch
	}

	if subtle.ConstantTimeCompare([]byte(parts[2]), []byte(binding)) != 1 {
		return ErrTokenMismatch
	}

	if cfg.Expiration > 0 && cfg.Now().UTC().After(time.Unix(issuedAt, 0).Add(cfg.Expiration)) {
		return ErrTokenExpired
	}

	return nil
}

func sign(key []byte, payload string) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(payload))
	return mac.Sum(nil)
}

func extractToken(ctx router.Context, cfg Config) string {
	if token := ctx.FormValue(cfg.FormFieldName); token != "" {
		return token
	}
	return ctx.Header(cfg.HeaderName)
}

// bindingKey issues the client cookie on first contact. A request that had
// no cookie gets a fresh id, so any token it carries cannot match.
func bindingKey(ctx router.Context, cfg Config) (string, error) {
	if id, ok := ctx.Locals("session_id").(string); ok && id != "" {
		return "sid_" + id, nil
	}

	if id := ctx.Cookies(cfg.CookieName); id != "" {
		return "cid_" + id, nil
	}

	id, err := randomHex(DefaultNonceLength)
	if err != nil {
		return "", err
	}

	ctx.Cookie(&router.Cookie{
		Name:        cfg.CookieName,
		Value:       id,
		Path:        "/",
		Secure:      cfg.CookieSecure,
		HTTPOnly:    true,
		SameSite:    "Lax",
		SessionOnly: true,
	})

	return "cid_" + id, nil
}

func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func configDefault(config ...Config) Config {
	var cfg Config
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = DefaultContextKey
	}

	if cfg.FormFieldName == "" {
		cfg.FormFieldName = DefaultFormFieldName
	}

	if cfg.HeaderName == "" {
		cfg.HeaderName = DefaultHeaderName
	}

	if cfg.CookieName == "" {
		cfg.CookieName = DefaultCookieName
	}

	if cfg.SafeMethods == nil {
		cfg.SafeMethods = []string{"GET", "HEAD", "OPTIONS", "TRACE"}
	}

	if cfg.Expiration == 0 {
		cfg.Expiration = 2 * time.Hour
	}

	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = defaultErrorHandler
	}

	cfg.SecureKey = initializeSecureKey(cfg.SecureKey)

	return cfg
}

func defaultErrorHandler(ctx router.Context, err error) error {
	switch {
	case errors.Is(err, ErrTokenMissing):
		return ctx.Status(router.StatusBadRequest).SendString("CSRF token missing")
	case errors.Is(err, ErrTokenMismatch):
		return ctx.Status(router.StatusForbidden).SendString("CSRF token mismatch")
	case errors.Is(err, ErrTokenExpired):
		return ctx.Status(router.StatusForbidden).SendString("Form expired, reload the page and try again")
	default:
		return ctx.Status(router.StatusInternalServerError).SendString("CSRF validation error")
	}
}

func initializeSecureKey(current []byte) []byte {
	if len(current) > 0 {
		if len(current) < MinSecureKeyLength {
			panic(fmt.Errorf("csrf: secure key must be at least %d bytes, got %d", MinSecureKeyLength, len(current)))
		}
		return current
	}
	key := make([]byte, MinSecureKeyLength)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		panic(fmt.Errorf("csrf: unable to initialize secure key: %w", err))
	}
	return key
}

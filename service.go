package accounts

import (
	"context"
	"net/url"
	"strings"
	"time"
)

const operationTimeout = time.Second * 10

// Result tells the caller how to finish a successful operation
type Result struct {
	Account *UserAccount
	// RedirectTo is the target the caller should redirect to
	RedirectTo string
	// IssueSession asks the caller to sign the account in before redirecting
	IssueSession bool
	// ReturnURL is the caller provided return URL, if any
	ReturnURL string
	// ProviderHint is the email domain, used to suggest a webmail provider
	ProviderHint string
	// DeliveryErr is set when the account was persisted but the notification
	// could not be dispatched. The operation still succeeded.
	DeliveryErr error
}

// RegistrationService orchestrates account creation and verification
type RegistrationService struct {
	store         AccountStore
	config        Config
	hasher        CredentialHasher
	verifications *VerificationTokenManager
	dispatcher    NotificationDispatcher
	activity      ActivitySink
	returnURLs    ReturnURLValidator
	logger        Logger
	now           Clock
}

// ServiceOption customizes service construction.
type ServiceOption func(*RegistrationService)

// WithConfig sets the registration policy
func WithConfig(cfg Config) ServiceOption {
	return func(s *RegistrationService) {
		if cfg != nil {
			s.config = cfg
		}
	}
}

// WithCredentialHasher overrides the password hasher
func WithCredentialHasher(h CredentialHasher) ServiceOption {
	return func(s *RegistrationService) {
		if h != nil {
			s.hasher = h
		}
	}
}

// WithTokenCodec overrides how verification keys are minted
func WithTokenCodec(codec TokenCodec) ServiceOption {
	return func(s *RegistrationService) {
		if codec != nil {
			s.verifications = NewVerificationTokenManager(codec)
		}
	}
}

// WithNotificationDispatcher sets the dispatcher used to deliver verification keys
func WithNotificationDispatcher(d NotificationDispatcher) ServiceOption {
	return func(s *RegistrationService) {
		if d != nil {
			s.dispatcher = d
		}
	}
}

// WithActivitySink sets the ActivitySink used to publish registration events.
func WithActivitySink(sink ActivitySink) ServiceOption {
	return func(s *RegistrationService) {
		s.activity = normalizeActivitySink(sink)
	}
}

// WithReturnURLValidator overrides how return URLs are validated
func WithReturnURLValidator(v ReturnURLValidator) ServiceOption {
	return func(s *RegistrationService) {
		if v != nil {
			s.returnURLs = v
		}
	}
}

// WithLogger overrides the logger used by the service.
func WithLogger(logger Logger) ServiceOption {
	return func(s *RegistrationService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock injects a custom clock (useful for tests).
func WithClock(clock Clock) ServiceOption {
	return func(s *RegistrationService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// NewRegistrationService returns a service backed by store
func NewRegistrationService(store AccountStore, opts ...ServiceOption) *RegistrationService {
	if store == nil {
		panic("accounts: missing AccountStore in registration service")
	}

	s := &RegistrationService{
		store:         store,
		config:        DefaultOptions(),
		hasher:        NewPBKDF2Hasher(),
		verifications: NewVerificationTokenManager(NewRandomTokenCodec()),
		dispatcher:    noopDispatcher{},
		activity:      noopActivitySink{},
		logger:        defLogger{},
		now:           utcNow,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	if s.returnURLs == nil {
		s.returnURLs = LocalReturnURLValidator{AllowedHosts: s.config.GetAllowedReturnHosts()}
	}

	return s
}

func (s *RegistrationService) routes() Routes {
	return s.config.GetRoutes()
}

func (s *RegistrationService) validReturnURL(returnURL string) bool {
	return returnURL != "" && s.returnURLs.IsValidReturnURL(returnURL)
}

// loginRedirect points to login carrying returnURL as a query parameter
func (s *RegistrationService) loginRedirect(returnURL string) string {
	return withQuery(s.routes().Login, map[string]string{"returnUrl": returnURL})
}

func (s *RegistrationService) successRedirect(returnURL, provider string) string {
	return withQuery(s.routes().RegisterSuccess, map[string]string{
		"returnUrl": returnURL,
		"provider":  provider,
	})
}

// verificationLinks builds the absolute confirm and cancel links for key
func (s *RegistrationService) verificationLinks(key string) (string, string) {
	base := strings.TrimRight(s.config.GetBaseURL(), "/")
	routes := s.routes()
	escaped := url.PathEscape(key)
	confirm := base + strings.TrimRight(routes.Confirm, "/") + "/" + escaped
	cancel := base + strings.TrimRight(routes.Cancel, "/") + "/" + escaped
	return confirm, cancel
}

func (s *RegistrationService) dispatchVerification(ctx context.Context, account *UserAccount, eventType ActivityEventType) error {
	confirmURL, cancelURL := s.verificationLinks(account.Verification.Key)
	data := map[string]any{
		"Token":      account.Verification.Key,
		"Email":      account.Email,
		"ConfirmURL": confirmURL,
		"CancelURL":  cancelURL,
	}

	err := s.dispatcher.Send(ctx, TemplateAccountCreated, account.Email, data)
	if err == nil {
		return nil
	}

	s.logger.Error("verification notification for account %s not delivered: %v", account.ID, err)
	s.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventNotificationFailed,
		Kind:      ActivityKindError,
		UserID:    account.ID.String(),
		Email:     account.Email,
		Metadata: map[string]any{
			"template": TemplateAccountCreated,
			"trigger":  string(eventType),
			"error":    err.Error(),
		},
	})

	return dependencyUnavailable(err, "failed to dispatch verification notification")
}

func (s *RegistrationService) recordActivity(ctx context.Context, event ActivityEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = s.now()
	}

	if err := normalizeActivitySink(s.activity).Record(ctx, event); err != nil {
		s.logger.Warn("activity sink error on %s: %v", event.EventType, err)
	}
}

func (s *RegistrationService) recordTokenFailure(ctx context.Context, operation, reason string) {
	s.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventVerificationFailed,
		Kind:      ActivityKindFailure,
		Metadata: map[string]any{
			"operation": operation,
			"reason":    reason,
		},
	})
}

// withQuery appends the non empty params to path
func withQuery(path string, params map[string]string) string {
	values := url.Values{}
	for k, v := range params {
		if v != "" {
			values.Set(k, v)
		}
	}
	if len(values) == 0 {
		return path
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + values.Encode()
}

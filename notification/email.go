package notification

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	accounts "github.com/goliatone/go-accounts"
	"github.com/wneessen/go-mail"
)

// SMTPConfig holds the SMTP connection settings
type SMTPConfig struct {
	Host               string
	Port               int
	TLS                bool
	InsecureSkipVerify bool
	Username           string
	Password           string
	From               string
	Timeout            time.Duration
}

// Sender delivers a composed message
type Sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// EmailDispatcher implements accounts.NotificationDispatcher over SMTP
type EmailDispatcher struct {
	config   SMTPConfig
	sender   Sender
	renderer *TemplateRenderer
	logger   accounts.Logger
}

var _ accounts.NotificationDispatcher = (*EmailDispatcher)(nil)

// EmailOption customizes the dispatcher
type EmailOption func(*EmailDispatcher)

// WithSender replaces the SMTP client, mostly useful in tests
func WithSender(sender Sender) EmailOption {
	return func(d *EmailDispatcher) {
		if sender != nil {
			d.sender = sender
		}
	}
}

// WithRenderer sets the template renderer
func WithRenderer(renderer *TemplateRenderer) EmailOption {
	return func(d *EmailDispatcher) {
		if renderer != nil {
			d.renderer = renderer
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger accounts.Logger) EmailOption {
	return func(d *EmailDispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// NewEmailDispatcher creates a dispatcher sending through the SMTP server in config
func NewEmailDispatcher(config SMTPConfig, opts ...EmailOption) (*EmailDispatcher, error) {
	d := &EmailDispatcher{
		config: config,
		logger: nopLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}

	if d.renderer == nil {
		renderer, err := NewTemplateRenderer(nil, nil)
		if err != nil {
			return nil, err
		}
		d.renderer = renderer
	}

	if d.sender == nil {
		client, err := newSMTPClient(config)
		if err != nil {
			return nil, err
		}
		d.sender = client
	}

	return d, nil
}

func newSMTPClient(config SMTPConfig) (*mail.Client, error) {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	opts := []mail.Option{
		mail.WithPort(config.Port),
		mail.WithTimeout(timeout),
	}

	if config.Username != "" && config.Password != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthLogin),
			mail.WithUsername(config.Username),
			mail.WithPassword(config.Password),
		)
	}

	policy := mail.NoTLS
	if config.TLS {
		policy = mail.TLSMandatory
	}

	opts = append(opts,
		mail.WithTLSPolicy(policy),
		mail.WithTLSConfig(&tls.Config{
			ServerName:         config.Host,
			InsecureSkipVerify: config.InsecureSkipVerify,
		}),
	)

	return mail.NewClient(config.Host, opts...)
}

// Send implements accounts.NotificationDispatcher.
func (d *EmailDispatcher) Send(ctx context.Context, templateName, recipient string, data map[string]any) error {
	if recipient == "" {
		return fmt.Errorf("email notification requires a recipient")
	}

	rendered, err := d.renderer.Render(templateName, data)
	if err != nil {
		return err
	}

	msg, err := d.compose(recipient, rendered)
	if err != nil {
		return err
	}

	if err := d.sender.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send %s email: %w", templateName, err)
	}

	d.logger.Info("email %s sent to %s via %s:%d", templateName, recipient, d.config.Host, d.config.Port)
	return nil
}

func (d *EmailDispatcher) compose(recipient string, rendered Message) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(d.config.From); err != nil {
		return nil, fmt.Errorf("set from address: %w", err)
	}
	if err := msg.To(recipient); err != nil {
		return nil, fmt.Errorf("set to address: %w", err)
	}
	msg.Subject(rendered.Subject)
	msg.SetDate()
	msg.SetMessageID()

	switch {
	case rendered.Text != "" && rendered.HTML != "":
		msg.SetBodyString(mail.TypeTextPlain, rendered.Text)
		msg.AddAlternativeString(mail.TypeTextHTML, rendered.HTML)
	case rendered.HTML != "":
		msg.SetBodyString(mail.TypeTextHTML, rendered.HTML)
	default:
		msg.SetBodyString(mail.TypeTextPlain, rendered.Text)
	}

	return msg, nil
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

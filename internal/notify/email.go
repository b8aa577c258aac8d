package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/wolfman30/portfolio-contact/pkg/logging"
)

var emailTracer = otel.Tracer("portfolio.internal.notify.email")

// EmailSender defines the interface for sending emails.
// Implementations can be swapped (SMTP, SendGrid, SES, Resend) without changing callers.
// Send returns the provider's message id when it reports one.
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) (string, error)
}

// EmailMessage represents an email to be sent.
type EmailMessage struct {
	To      string
	ToName  string
	ReplyTo string
	Subject string
	Body    string // Plain text body
	HTML    string // Optional HTML body
}

// EmailChannel alerts the site owner by email.
type EmailChannel struct {
	sender EmailSender
	to     string
	logger *logging.Logger
}

// NewEmailChannel builds the email channel. A nil sender or empty recipient
// leaves the channel unconfigured.
func NewEmailChannel(sender EmailSender, to string, logger *logging.Logger) *EmailChannel {
	if logger == nil {
		logger = logging.Default()
	}
	return &EmailChannel{
		sender: sender,
		to:     strings.TrimSpace(to),
		logger: logger,
	}
}

func (c *EmailChannel) Kind() Kind { return KindEmail }

// Configured reports whether Notify will attempt a send.
func (c *EmailChannel) Configured() bool {
	return c.sender != nil && c.to != ""
}

// Notify sends exactly one email describing the submission.
func (c *EmailChannel) Notify(ctx context.Context, p Payload) (Outcome, error) {
	if !c.Configured() {
		return Outcome{}, notConfigured(KindEmail)
	}

	ctx, span := emailTracer.Start(ctx, "notify.email.send")
	defer span.End()
	span.SetAttributes(attribute.String("portfolio.contact_id", p.ContactID))

	msg := FormatEmail(p)
	msg.To = c.to

	ref, err := c.sender.Send(ctx, msg)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "email send failed")
		return Outcome{}, transportError(KindEmail, err)
	}
	return delivered(KindEmail, ref), nil
}

// SendGridSender sends emails via SendGrid API.
type SendGridSender struct {
	client    *sendgrid.Client
	fromEmail string
	fromName  string
	logger    *logging.Logger
}

// SendGridConfig holds configuration for SendGrid.
type SendGridConfig struct {
	APIKey    string
	FromEmail string
	FromName  string
}

// NewSendGridSender creates a new SendGrid email sender.
func NewSendGridSender(cfg SendGridConfig, logger *logging.Logger) *SendGridSender {
	if cfg.APIKey == "" || cfg.FromEmail == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.FromName == "" {
		cfg.FromName = defaultFromName
	}
	return &SendGridSender{
		client:    sendgrid.NewSendClient(cfg.APIKey),
		fromEmail: cfg.FromEmail,
		fromName:  cfg.FromName,
		logger:    logger,
	}
}

// Send sends an email via SendGrid.
func (s *SendGridSender) Send(ctx context.Context, msg EmailMessage) (string, error) {
	if s == nil || s.client == nil {
		return "", ErrNotConfigured
	}

	from := mail.NewEmail(s.fromName, s.fromEmail)
	to := mail.NewEmail(msg.ToName, msg.To)

	text := msg.Body
	htmlBody := msg.HTML
	if htmlBody == "" {
		htmlBody = text
	}
	message := mail.NewSingleEmail(from, msg.Subject, to, text, htmlBody)
	if msg.ReplyTo != "" {
		message.SetReplyTo(mail.NewEmail("", msg.ReplyTo))
	}

	response, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		s.logger.Error("sendgrid send failed", "error", err, "to", msg.To)
		return "", fmt.Errorf("notify: sendgrid send failed: %w", err)
	}

	if response.StatusCode >= 400 {
		s.logger.Error("sendgrid returned error status", "status", response.StatusCode, "body", response.Body, "to", msg.To)
		return "", fmt.Errorf("notify: sendgrid returned status %d", response.StatusCode)
	}

	var messageID string
	if ids := response.Headers["X-Message-Id"]; len(ids) > 0 {
		messageID = ids[0]
	}
	s.logger.Info("email sent via sendgrid", "to", msg.To, "subject", msg.Subject, "status", response.StatusCode)
	return messageID, nil
}

// StubEmailSender is a no-op sender for local development.
type StubEmailSender struct {
	logger *logging.Logger
}

// NewStubEmailSender creates a stub email sender that logs but doesn't send.
func NewStubEmailSender(logger *logging.Logger) *StubEmailSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &StubEmailSender{logger: logger}
}

// Send logs the email but doesn't actually send it.
func (s *StubEmailSender) Send(ctx context.Context, msg EmailMessage) (string, error) {
	s.logger.Info("stub email sender: would send email", "to", msg.To, "subject", msg.Subject)
	return "stub-" + uuid.NewString(), nil
}

const defaultFromName = "Portfolio Contact"

var (
	_ EmailSender = (*SendGridSender)(nil)
	_ EmailSender = (*StubEmailSender)(nil)
	_ Channel     = (*EmailChannel)(nil)
)

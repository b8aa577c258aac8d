package notify

import (
	"context"
	"fmt"

	"github.com/resend/resend-go/v2"

	"github.com/wolfman30/portfolio-contact/pkg/logging"
)

// ResendSender sends emails through the Resend API.
type ResendSender struct {
	client *resend.Client
	from   string
	logger *logging.Logger
}

// ResendConfig holds configuration for Resend.
type ResendConfig struct {
	APIKey    string
	FromEmail string
	FromName  string
}

// NewResendSender returns nil when the API key or sender address is missing.
func NewResendSender(cfg ResendConfig, logger *logging.Logger) *ResendSender {
	if cfg.APIKey == "" || cfg.FromEmail == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.FromName == "" {
		cfg.FromName = defaultFromName
	}
	return &ResendSender{
		client: resend.NewClient(cfg.APIKey),
		from:   fmt.Sprintf("%s <%s>", cfg.FromName, cfg.FromEmail),
		logger: logger,
	}
}

// Send sends an email via Resend.
func (s *ResendSender) Send(ctx context.Context, msg EmailMessage) (string, error) {
	if s == nil || s.client == nil {
		return "", ErrNotConfigured
	}

	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    msg.HTML,
		Text:    msg.Body,
		ReplyTo: msg.ReplyTo,
	}

	sent, err := s.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		s.logger.Error("resend send failed", "error", err, "to", msg.To)
		return "", fmt.Errorf("notify: resend send failed: %w", err)
	}

	s.logger.Info("email sent via resend", "to", msg.To, "subject", msg.Subject, "message_id", sent.Id)
	return sent.Id, nil
}

var _ EmailSender = (*ResendSender)(nil)

package bootstrap

import (
	appconfig "github.com/wolfman30/portfolio-contact/internal/config"
	"github.com/wolfman30/portfolio-contact/internal/notify"
	"github.com/wolfman30/portfolio-contact/pkg/logging"
)

// BuildEmailSender picks the email transport named by EMAIL_PROVIDER. It
// returns nil when the chosen provider lacks credentials so the email channel
// reports "not configured" instead of failing on every submission.
func BuildEmailSender(cfg *appconfig.Config, ses notify.SESAPI, logger *logging.Logger) notify.EmailSender {
	if logger == nil {
		logger = logging.Default()
	}

	var sender notify.EmailSender
	switch cfg.EmailProvider {
	case "stub":
		return notify.NewStubEmailSender(logger)
	case "sendgrid":
		if s := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.MailFrom,
			FromName:  cfg.MailFromName,
		}, logger); s != nil {
			sender = s
		}
	case "ses":
		if s := notify.NewSESSender(ses, notify.SESConfig{
			FromEmail: cfg.MailFrom,
			FromName:  cfg.MailFromName,
		}, logger); s != nil {
			sender = s
		}
	case "resend":
		if s := notify.NewResendSender(notify.ResendConfig{
			APIKey:    cfg.ResendAPIKey,
			FromEmail: cfg.MailFrom,
			FromName:  cfg.MailFromName,
		}, logger); s != nil {
			sender = s
		}
	case "smtp", "":
		if s := notify.NewSMTPSender(notify.SMTPConfig{
			Host:      cfg.SMTPHost,
			Port:      cfg.SMTPPort,
			Username:  cfg.SMTPUser,
			Password:  cfg.SMTPPassword,
			FromEmail: cfg.MailFrom,
			FromName:  cfg.MailFromName,
		}, logger); s != nil {
			sender = s
		}
	default:
		logger.Warn("unknown email provider; email notifications disabled", "provider", cfg.EmailProvider)
		return nil
	}

	if sender == nil {
		logger.Warn("email provider missing credentials; email notifications disabled", "provider", cfg.EmailProvider)
	}
	return sender
}

// BuildChannels returns the notification channels in dispatch order.
func BuildChannels(cfg *appconfig.Config, sender notify.EmailSender, logger *logging.Logger) []notify.Channel {
	email := notify.NewEmailChannel(sender, cfg.ContactNotifyEmail, logger)
	whatsapp := notify.NewWhatsAppChannel(notify.WhatsAppConfig{
		AccountSID: cfg.TwilioAccountSID,
		AuthToken:  cfg.TwilioAuthToken,
		From:       cfg.TwilioWhatsAppFrom,
		To:         cfg.TwilioWhatsAppTo,
	}, logger)

	if logger != nil {
		logger.Info("notification channels",
			"email_configured", email.Configured(),
			"whatsapp_configured", whatsapp.Configured(),
		)
	}
	return []notify.Channel{email, whatsapp}
}

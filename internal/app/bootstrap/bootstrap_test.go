package bootstrap

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appconfig "github.com/wolfman30/portfolio-contact/internal/config"
	"github.com/wolfman30/portfolio-contact/internal/contact"
	"github.com/wolfman30/portfolio-contact/internal/notify"
	"github.com/wolfman30/portfolio-contact/internal/ratelimit"
	"github.com/wolfman30/portfolio-contact/pkg/logging"
)

type fakeSES struct{}

func (fakeSES) SendEmail(context.Context, *sesv2.SendEmailInput, ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	return &sesv2.SendEmailOutput{}, nil
}

func TestBuildEmailSender(t *testing.T) {
	logger := logging.Discard()
	tests := []struct {
		name string
		cfg  appconfig.Config
		want any
	}{
		{"stub", appconfig.Config{EmailProvider: "stub"}, &notify.StubEmailSender{}},
		{"smtp", appconfig.Config{EmailProvider: "smtp", SMTPHost: "smtp.example.com", SMTPPort: 587, SMTPUser: "me@example.com", SMTPPassword: "pw", MailFrom: "me@example.com"}, &notify.SMTPSender{}},
		{"sendgrid", appconfig.Config{EmailProvider: "sendgrid", SendGridAPIKey: "SG.x", MailFrom: "me@example.com"}, &notify.SendGridSender{}},
		{"resend", appconfig.Config{EmailProvider: "resend", ResendAPIKey: "re_x", MailFrom: "me@example.com"}, &notify.ResendSender{}},
		{"ses", appconfig.Config{EmailProvider: "ses", MailFrom: "me@example.com"}, &notify.SESSender{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := BuildEmailSender(&tt.cfg, fakeSES{}, logger)
			require.NotNil(t, sender)
			assert.IsType(t, tt.want, sender)
		})
	}
}

func TestBuildEmailSender_MissingCredentialsIsNilInterface(t *testing.T) {
	for _, provider := range []string{"smtp", "sendgrid", "resend", "ses", "carrier-pigeon"} {
		cfg := appconfig.Config{EmailProvider: provider}
		sender := BuildEmailSender(&cfg, nil, logging.Discard())
		assert.Nil(t, sender, provider)

		email := notify.NewEmailChannel(sender, "owner@example.com", logging.Discard())
		assert.False(t, email.Configured(), provider)
	}
}

func TestBuildChannels_Order(t *testing.T) {
	cfg := &appconfig.Config{ContactNotifyEmail: "owner@example.com"}
	channels := BuildChannels(cfg, nil, logging.Discard())
	require.Len(t, channels, 2)
	assert.Equal(t, notify.KindEmail, channels[0].Kind())
	assert.Equal(t, notify.KindWhatsApp, channels[1].Kind())
}

func TestBuildRedisClientAndLimiter(t *testing.T) {
	logger := logging.Discard()
	cfg := &appconfig.Config{ContactRateLimit: 5, ContactRateWindow: 15 * time.Minute}

	assert.Nil(t, BuildRedisClient(context.Background(), cfg, logger, true))
	assert.IsType(t, &ratelimit.MemoryLimiter{}, BuildRateLimiter(cfg, nil, logger))

	mr := miniredis.RunT(t)
	cfg.RedisAddr = mr.Addr()
	client := BuildRedisClient(context.Background(), cfg, logger, true)
	require.NotNil(t, client)
	t.Cleanup(func() { _ = client.Close() })
	assert.IsType(t, &ratelimit.RedisLimiter{}, BuildRateLimiter(cfg, client, logger))

	cfg.RedisAddr = "127.0.0.1:1"
	assert.Nil(t, BuildRedisClient(context.Background(), cfg, logger, true))
}

func TestBuildRepository_FallsBackToMemory(t *testing.T) {
	assert.Nil(t, ConnectPostgresPool(context.Background(), "", logging.Discard()))
	assert.IsType(t, &contact.InMemoryRepository{}, BuildRepository(nil, logging.Discard()))
}

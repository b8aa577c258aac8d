package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/wolfman30/portfolio-contact/pkg/logging"
)

var whatsappTracer = otel.Tracer("portfolio.internal.notify.whatsapp")

const twilioAPIBase = "https://api.twilio.com"

// WhatsAppConfig holds the Twilio credentials and the two WhatsApp endpoints.
type WhatsAppConfig struct {
	AccountSID string
	AuthToken  string
	From       string
	To         string
	// BaseURL overrides the Twilio API host (tests, proxies).
	BaseURL string
}

// WhatsAppChannel posts a WhatsApp message through Twilio's REST API.
type WhatsAppChannel struct {
	accountSID string
	authToken  string
	from       string
	to         string
	baseURL    string
	httpClient *http.Client
	logger     *logging.Logger
}

// NewWhatsAppChannel builds the channel with a 10s HTTP timeout. http.Client is
// safe for concurrent use so the channel can be shared across requests.
func NewWhatsAppChannel(cfg WhatsAppConfig, logger *logging.Logger) *WhatsAppChannel {
	if logger == nil {
		logger = logging.Default()
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = twilioAPIBase
	}
	return &WhatsAppChannel{
		accountSID: strings.TrimSpace(cfg.AccountSID),
		authToken:  strings.TrimSpace(cfg.AuthToken),
		from:       whatsappAddress(cfg.From),
		to:         whatsappAddress(cfg.To),
		baseURL:    baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
}

func (c *WhatsAppChannel) Kind() Kind { return KindWhatsApp }

// Configured reports whether Notify will attempt a send.
func (c *WhatsAppChannel) Configured() bool {
	return c.accountSID != "" && c.authToken != "" && c.from != "" && c.to != ""
}

// Notify performs exactly one POST to the Messages endpoint. There is no retry.
func (c *WhatsAppChannel) Notify(ctx context.Context, p Payload) (Outcome, error) {
	if !c.Configured() {
		return Outcome{}, notConfigured(KindWhatsApp)
	}

	ctx, span := whatsappTracer.Start(ctx, "notify.whatsapp.send")
	defer span.End()
	span.SetAttributes(attribute.String("portfolio.contact_id", p.ContactID))

	sid, err := c.send(ctx, FormatChat(p))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "whatsapp send failed")
		c.logger.Error("twilio whatsapp send failed", "error", err, "contact_id", p.ContactID)
		return Outcome{}, transportError(KindWhatsApp, err)
	}
	c.logger.Info("twilio whatsapp sent", "contact_id", p.ContactID, "sid", sid)
	return delivered(KindWhatsApp, sid), nil
}

func (c *WhatsAppChannel) send(ctx context.Context, body string) (string, error) {
	payload := url.Values{}
	payload.Set("To", c.to)
	payload.Set("From", c.from)
	payload.Set("Body", body)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", c.baseURL, c.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(payload.Encode()))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.accountSID, c.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("twilio send failed: %s", formatTwilioError(resp.StatusCode, respBody))
	}

	var parsed struct {
		SID    string `json:"sid"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("twilio response decode: %w", err)
	}
	return parsed.SID, nil
}

type twilioAPIError struct {
	Code     int    `json:"code"`
	Message  string `json:"message"`
	MoreInfo string `json:"more_info"`
	Status   int    `json:"status"`
}

func formatTwilioError(status int, body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return fmt.Sprintf("status %d", status)
	}
	var parsed twilioAPIError
	if err := json.Unmarshal([]byte(trimmed), &parsed); err == nil && parsed.Message != "" {
		if parsed.Code != 0 {
			return fmt.Sprintf("status %d code %d: %s", status, parsed.Code, parsed.Message)
		}
		return fmt.Sprintf("status %d: %s", status, parsed.Message)
	}
	return fmt.Sprintf("status %d: %s", status, trimmed)
}

// whatsappAddress adds Twilio's channel prefix to a bare E.164 number.
func whatsappAddress(number string) string {
	number = strings.TrimSpace(number)
	if number == "" || strings.HasPrefix(number, "whatsapp:") {
		return number
	}
	return "whatsapp:" + number
}

var _ Channel = (*WhatsAppChannel)(nil)

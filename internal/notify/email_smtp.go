package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"net"
	"net/mail"
	"net/smtp"
	"net/textproto"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/portfolio-contact/pkg/logging"
)

// SMTPConfig holds configuration for a plain SMTP relay.
type SMTPConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	FromEmail string
	FromName  string
}

// smtpTimeout bounds a delivery whose context carries no deadline.
const smtpTimeout = 30 * time.Second

type smtpSendFunc func(ctx context.Context, addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPSender delivers mail through an authenticated SMTP relay.
type SMTPSender struct {
	addr     string
	host     string
	auth     smtp.Auth
	from     mail.Address
	sendMail smtpSendFunc
	logger   *logging.Logger
}

// NewSMTPSender returns nil when host, credentials or sender address are missing.
func NewSMTPSender(cfg SMTPConfig, logger *logging.Logger) *SMTPSender {
	if cfg.Host == "" || cfg.Username == "" || cfg.Password == "" {
		return nil
	}
	if cfg.FromEmail == "" {
		cfg.FromEmail = cfg.Username
	}
	if cfg.FromName == "" {
		cfg.FromName = defaultFromName
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if logger == nil {
		logger = logging.Default()
	}
	s := &SMTPSender{
		addr:   net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		host:   cfg.Host,
		auth:   smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host),
		from:   mail.Address{Name: cfg.FromName, Address: cfg.FromEmail},
		logger: logger,
	}
	s.sendMail = s.deliver
	return s
}

// Send writes one multipart/alternative message to the relay and returns the
// generated Message-ID.
func (s *SMTPSender) Send(ctx context.Context, msg EmailMessage) (string, error) {
	if s == nil || s.sendMail == nil {
		return "", ErrNotConfigured
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	messageID := fmt.Sprintf("<%s@%s>", uuid.NewString(), s.host)
	raw, err := buildMIMEMessage(s.from, messageID, msg)
	if err != nil {
		return "", fmt.Errorf("notify: build smtp message: %w", err)
	}

	if err := s.sendMail(ctx, s.addr, s.auth, s.from.Address, []string{msg.To}, raw); err != nil {
		s.logger.Error("smtp send failed", "error", err, "to", msg.To)
		return "", fmt.Errorf("notify: smtp send failed: %w", err)
	}

	s.logger.Info("email sent via smtp", "to", msg.To, "subject", msg.Subject, "message_id", messageID)
	return messageID, nil
}

// deliver runs one SMTP session over a connection bound to ctx. The socket
// carries the context deadline and is closed on cancellation, so a relay that
// stalls mid-conversation cannot pin the sending goroutine.
func (s *SMTPSender) deliver(ctx context.Context, addr string, a smtp.Auth, from string, to []string, msg []byte) (err error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, smtpTimeout)
		defer cancel()
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	defer func() {
		if err == nil {
			return
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = fmt.Errorf("%w: %v", ctxErr, err)
		} else if errors.Is(err, os.ErrDeadlineExceeded) {
			err = fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
		}
	}()

	deadline, _ := ctx.Deadline()
	if err := conn.SetDeadline(deadline); err != nil {
		conn.Close()
		return err
	}
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	c, err := smtp.NewClient(conn, s.host)
	if err != nil {
		conn.Close()
		return err
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: s.host}); err != nil {
			return err
		}
	}
	if a != nil {
		if ok, _ := c.Extension("AUTH"); ok {
			if err := c.Auth(a); err != nil {
				return err
			}
		}
	}
	if err := c.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := c.Rcpt(rcpt); err != nil {
			return err
		}
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}

func buildMIMEMessage(from mail.Address, messageID string, msg EmailMessage) ([]byte, error) {
	var buf bytes.Buffer
	to := mail.Address{Name: msg.ToName, Address: msg.To}

	headers := []struct{ k, v string }{
		{"From", from.String()},
		{"To", to.String()},
		{"Subject", mime.QEncoding.Encode("utf-8", msg.Subject)},
		{"Date", time.Now().UTC().Format(time.RFC1123Z)},
		{"Message-ID", messageID},
		{"MIME-Version", "1.0"},
	}
	if msg.ReplyTo != "" {
		headers = append(headers, struct{ k, v string }{"Reply-To", (&mail.Address{Address: msg.ReplyTo}).String()})
	}

	mw := multipart.NewWriter(&buf)
	headers = append(headers, struct{ k, v string }{"Content-Type", "multipart/alternative; boundary=" + mw.Boundary()})
	var head bytes.Buffer
	for _, h := range headers {
		fmt.Fprintf(&head, "%s: %s\r\n", h.k, h.v)
	}
	head.WriteString("\r\n")

	parts := []struct{ contentType, body string }{
		{"text/plain; charset=UTF-8", msg.Body},
	}
	if msg.HTML != "" {
		parts = append(parts, struct{ contentType, body string }{"text/html; charset=UTF-8", msg.HTML})
	}
	for _, part := range parts {
		w, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {part.contentType},
			"Content-Transfer-Encoding": {"8bit"},
		})
		if err != nil {
			return nil, err
		}
		if _, err := w.Write([]byte(part.body)); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	return append(head.Bytes(), buf.Bytes()...), nil
}

var _ EmailSender = (*SMTPSender)(nil)

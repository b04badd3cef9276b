package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/mail"
	"net/smtp"
	"net/url"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/MrEthical07/blogauth"
)

// SMTPConfig configures SMTPNotifier.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string

	// ResetURL is the frontend page that accepts ?token=<reset token>.
	ResetURL string
	// OTPExpiry and ResetExpiry are printed in the matching mail. They should
	// equal the engine's pending-signup and reset-ticket TTLs; zero means 5m.
	OTPExpiry   time.Duration
	ResetExpiry time.Duration
}

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type SMTPNotifier struct {
	cfg      SMTPConfig
	from     *mail.Address
	resetURL *url.URL
	send     sendMailFunc
}

var _ blogauth.Notifier = (*SMTPNotifier)(nil)

var (
	otpTemplate = template.Must(template.New("otp").Parse(
		`Your verification code is {{.Code}}.

It expires in {{.Expiry}}. If you did not sign up, ignore this mail.
`))
	resetTemplate = template.Must(template.New("reset").Parse(
		`We received a request to reset your password.

Open the link below to choose a new one. It expires in {{.Expiry}}.

{{.Link}}

If you did not ask for this, ignore this mail.
`))
)

func NewSMTPNotifier(cfg SMTPConfig) (*SMTPNotifier, error) {
	if strings.TrimSpace(cfg.Host) == "" {
		return nil, errors.New("smtp host required")
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, errors.New("smtp port out of range")
	}
	from, err := mail.ParseAddress(cfg.From)
	if err != nil {
		return nil, fmt.Errorf("smtp from address: %w", err)
	}
	resetURL, err := url.Parse(cfg.ResetURL)
	if err != nil || resetURL.Scheme == "" || resetURL.Host == "" {
		return nil, errors.New("reset url must be absolute")
	}
	if cfg.OTPExpiry <= 0 {
		cfg.OTPExpiry = 5 * time.Minute
	}
	if cfg.ResetExpiry <= 0 {
		cfg.ResetExpiry = 5 * time.Minute
	}

	return &SMTPNotifier{
		cfg:      cfg,
		from:     from,
		resetURL: resetURL,
		send:     smtp.SendMail,
	}, nil
}

func (n *SMTPNotifier) SendOTP(ctx context.Context, email, code string) error {
	var body bytes.Buffer
	if err := otpTemplate.Execute(&body, struct {
		Code   string
		Expiry time.Duration
	}{code, n.cfg.OTPExpiry}); err != nil {
		return fmt.Errorf("render otp mail: %w", err)
	}
	return n.deliver(ctx, email, "Your verification code", body.Bytes())
}

func (n *SMTPNotifier) SendResetLink(ctx context.Context, email, token string) error {
	var body bytes.Buffer
	if err := resetTemplate.Execute(&body, struct {
		Link   string
		Expiry time.Duration
	}{n.ResetLink(token), n.cfg.ResetExpiry}); err != nil {
		return fmt.Errorf("render reset mail: %w", err)
	}
	return n.deliver(ctx, email, "Reset your password", body.Bytes())
}

// ResetLink returns ResetURL with token set as the "token" query parameter.
func (n *SMTPNotifier) ResetLink(token string) string {
	u := *n.resetURL
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String()
}

func (n *SMTPNotifier) deliver(ctx context.Context, to, subject string, body []byte) error {
	rcpt, err := mail.ParseAddress(to)
	if err != nil {
		return fmt.Errorf("recipient address: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var msg bytes.Buffer
	msg.WriteString("From: " + n.from.String() + "\r\n")
	msg.WriteString("To: " + rcpt.String() + "\r\n")
	msg.WriteString("Subject: " + subject + "\r\n")
	msg.WriteString("Date: " + time.Now().UTC().Format(time.RFC1123Z) + "\r\n")
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	msg.WriteString("\r\n")
	msg.Write(bytes.ReplaceAll(body, []byte("\n"), []byte("\r\n")))

	var auth smtp.Auth
	if n.cfg.Username != "" {
		auth = smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)
	}

	addr := net.JoinHostPort(n.cfg.Host, strconv.Itoa(n.cfg.Port))
	if err := n.send(addr, auth, n.from.Address, []string{rcpt.Address}, msg.Bytes()); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

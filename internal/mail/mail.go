// Package mail relays contact form submissions to the site owner over SMTP.
package mail

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/tls"
	"encoding/hex"
	"errors"
	"fmt"
	"html/template"
	"mime"
	"mime/quotedprintable"
	"net"
	netmail "net/mail"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrNotConfigured is returned when SMTP credentials are missing.
var ErrNotConfigured = errors.New("SMTP credentials not configured")

// Contact is a contact form submission.
type Contact struct {
	Name    string `json:"name" binding:"required"`
	Email   string `json:"email" binding:"required"`
	Message string `json:"message" binding:"required"`
}

// Sender delivers a contact submission.
type Sender interface {
	Send(ctx context.Context, c Contact) error
}

// Config holds SMTP relay settings.
type Config struct {
	Host      string
	Port      int
	User      string
	Pass      string
	Recipient string
	Timeout   time.Duration
}

// SMTPSender sends messages through an authenticated SMTP relay. Port 465
// uses implicit TLS, other ports upgrade with STARTTLS.
type SMTPSender struct {
	cfg    Config
	logger *zap.Logger
}

// NewSMTPSender returns an SMTPSender. Credentials are checked on each send
// so that the server can start without them.
func NewSMTPSender(cfg Config, logger *zap.Logger) *SMTPSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.Recipient == "" {
		cfg.Recipient = cfg.User
	}
	return &SMTPSender{cfg: cfg, logger: logger.Named("mail")}
}

// Send composes and delivers c.
func (s *SMTPSender) Send(ctx context.Context, c Contact) error {
	if s.cfg.User == "" || s.cfg.Pass == "" {
		return ErrNotConfigured
	}

	msg, err := Compose(s.cfg.User, s.cfg.Recipient, c)
	if err != nil {
		return err
	}

	if err := s.deliver(ctx, msg); err != nil {
		s.logger.Error("error sending email", zap.Error(err))
		return err
	}

	s.logger.Info("email sent", zap.String("name", c.Name), zap.String("reply_to", c.Email))
	return nil
}

func (s *SMTPSender) deliver(ctx context.Context, msg []byte) error {
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	tlsConfig := &tls.Config{ServerName: s.cfg.Host}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	var conn net.Conn
	var err error
	if s.cfg.Port == 465 {
		d := &tls.Dialer{Config: tlsConfig}
		conn, err = d.DialContext(ctx, "tcp", addr)
	} else {
		var d net.Dialer
		conn, err = d.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to start SMTP session: %w", err)
	}
	defer client.Close()

	if s.cfg.Port != 465 {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(tlsConfig); err != nil {
				return fmt.Errorf("failed to start TLS: %w", err)
			}
		}
	}

	auth := smtp.PlainAuth("", s.cfg.User, s.cfg.Pass, s.cfg.Host)
	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("SMTP auth failed: %w", err)
	}
	if err := client.Mail(s.cfg.User); err != nil {
		return fmt.Errorf("MAIL FROM failed: %w", err)
	}
	if err := client.Rcpt(s.cfg.Recipient); err != nil {
		return fmt.Errorf("RCPT TO failed: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("DATA failed: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		w.Close()
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finish message: %w", err)
	}
	return client.Quit()
}

var htmlBody = template.Must(template.New("contact").Parse(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2 style="color: #333;">New Contact Message from Portfolio</h2>
  <div style="background: #f5f5f5; padding: 20px; border-radius: 5px; margin: 20px 0;">
    <p style="margin: 10px 0;"><strong>Name:</strong> {{.Name}}</p>
    <p style="margin: 10px 0;"><strong>Email:</strong> {{.Email}}</p>
  </div>
  <div style="background: #fff; padding: 20px; border: 1px solid #ddd; border-radius: 5px;">
    <p style="margin: 0 0 10px 0;"><strong>Message:</strong></p>
    <p style="margin: 0; white-space: pre-wrap;">{{.Message}}</p>
  </div>
</div>
`))

// Compose renders c as a multipart/alternative message from the relay
// account to recipient, with Reply-To set to the submitter.
func Compose(from, recipient string, c Contact) ([]byte, error) {
	name := headerSafe(c.Name)
	replyTo := headerSafe(c.Email)

	var html bytes.Buffer
	if err := htmlBody.Execute(&html, c); err != nil {
		return nil, fmt.Errorf("failed to render message: %w", err)
	}
	text := fmt.Sprintf("Name: %s\nEmail: %s\n\nMessage:\n%s\n", c.Name, c.Email, c.Message)

	boundary, err := newBoundary()
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	sender := netmail.Address{Name: name, Address: from}
	writeHeader(&buf, "From", sender.String())
	writeHeader(&buf, "To", recipient)
	writeHeader(&buf, "Reply-To", replyTo)
	writeHeader(&buf, "Subject", mime.QEncoding.Encode("utf-8", "Portfolio Contact: Message from "+name))
	writeHeader(&buf, "Date", time.Now().Format(time.RFC1123Z))
	writeHeader(&buf, "MIME-Version", "1.0")
	writeHeader(&buf, "Content-Type", `multipart/alternative; boundary="`+boundary+`"`)
	buf.WriteString("\r\n")

	for _, part := range []struct {
		contentType string
		body        string
	}{
		{"text/plain; charset=utf-8", text},
		{"text/html; charset=utf-8", html.String()},
	} {
		buf.WriteString("--" + boundary + "\r\n")
		writeHeader(&buf, "Content-Type", part.contentType)
		writeHeader(&buf, "Content-Transfer-Encoding", "quoted-printable")
		buf.WriteString("\r\n")
		qp := quotedprintable.NewWriter(&buf)
		if _, err := qp.Write([]byte(part.body)); err != nil {
			return nil, fmt.Errorf("failed to encode message: %w", err)
		}
		if err := qp.Close(); err != nil {
			return nil, fmt.Errorf("failed to encode message: %w", err)
		}
		buf.WriteString("\r\n")
	}
	buf.WriteString("--" + boundary + "--\r\n")

	return buf.Bytes(), nil
}

func writeHeader(buf *bytes.Buffer, key, value string) {
	buf.WriteString(key + ": " + value + "\r\n")
}

// headerSafe strips line breaks so submitted values cannot add headers.
func headerSafe(s string) string {
	return strings.Join(strings.FieldsFunc(s, func(r rune) bool { return r == '\r' || r == '\n' }), " ")
}

func newBoundary() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate boundary: %w", err)
	}
	return hex.EncodeToString(b), nil
}

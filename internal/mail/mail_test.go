package mail

import (
	"bytes"
	"context"
	"io"
	"mime"
	"mime/multipart"
	"net"
	netmail "net/mail"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCompose(t *testing.T) {
	msg, err := Compose("relay@mail.ru", "owner@mail.ru", Contact{
		Name:    "Ann",
		Email:   "ann@example.com",
		Message: "Hello <script>alert(1)</script>",
	})
	require.NoError(t, err)

	m, err := netmail.ReadMessage(bytes.NewReader(msg))
	require.NoError(t, err)
	assert.Equal(t, `"Ann" <relay@mail.ru>`, m.Header.Get("From"))
	assert.Equal(t, "owner@mail.ru", m.Header.Get("To"))
	assert.Equal(t, "ann@example.com", m.Header.Get("Reply-To"))
	assert.Equal(t, "Portfolio Contact: Message from Ann", m.Header.Get("Subject"))

	mediaType, params, err := mime.ParseMediaType(m.Header.Get("Content-Type"))
	require.NoError(t, err)
	assert.Equal(t, "multipart/alternative", mediaType)

	parts := map[string]string{}
	mr := multipart.NewReader(m.Body, params["boundary"])
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		body, err := io.ReadAll(p)
		require.NoError(t, err)
		parts[p.Header.Get("Content-Type")] = string(body)
	}

	require.Len(t, parts, 2)
	assert.Contains(t, parts["text/plain; charset=utf-8"], "Hello <script>alert(1)</script>")
	assert.Contains(t, parts["text/html; charset=utf-8"], "Hello &lt;script&gt;alert(1)&lt;/script&gt;")
	assert.NotContains(t, parts["text/html; charset=utf-8"], "<script>")
}

func TestCompose_StripsHeaderInjection(t *testing.T) {
	msg, err := Compose("relay@mail.ru", "owner@mail.ru", Contact{
		Name:    "Eve\r\nBcc: victim@example.com",
		Email:   "eve@example.com\nX-Evil: 1",
		Message: "hi",
	})
	require.NoError(t, err)

	head, _, _ := strings.Cut(string(msg), "\r\n\r\n")
	for _, line := range strings.Split(head, "\r\n") {
		assert.False(t, strings.HasPrefix(line, "Bcc:"), line)
		assert.False(t, strings.HasPrefix(line, "X-Evil:"), line)
	}
}

func TestCompose_EncodesNonASCIIName(t *testing.T) {
	msg, err := Compose("relay@mail.ru", "owner@mail.ru", Contact{Name: "Мария", Email: "m@example.com", Message: "Привет"})
	require.NoError(t, err)
	s := string(msg)

	assert.Contains(t, s, "Subject: =?utf-8?q?")
	assert.NotContains(t, s, "Subject: Portfolio Contact: Message from Мария")
}

func TestHeaderSafe(t *testing.T) {
	assert.Equal(t, "a b", headerSafe("a\r\nb"))
	assert.Equal(t, "plain", headerSafe("plain"))
}

func TestSMTPSender_NotConfigured(t *testing.T) {
	s := NewSMTPSender(Config{Host: "smtp.mail.ru", Port: 465}, zap.NewNop())

	err := s.Send(context.Background(), Contact{Name: "a", Email: "b", Message: "c"})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestSMTPSender_ConnectionFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	s := NewSMTPSender(Config{Host: "127.0.0.1", Port: port, User: "u", Pass: "p"}, zap.NewNop())
	err = s.Send(context.Background(), Contact{Name: "a", Email: "b", Message: "c"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect")
}

func TestNewSMTPSender_RecipientDefaultsToUser(t *testing.T) {
	s := NewSMTPSender(Config{User: "me@mail.ru"}, nil)
	assert.Equal(t, "me@mail.ru", s.cfg.Recipient)
}

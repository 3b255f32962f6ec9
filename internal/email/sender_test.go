package email

import (
	"bufio"
	"context"
	"net"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"tunishield/internal/config"
)

// fakeSMTP accepts a single session and records the envelope and data.
type fakeSMTP struct {
	ln       net.Listener
	done     chan struct{}
	mailFrom string
	rcptTo   string
	data     string
}

func startFakeSMTP(t *testing.T) *fakeSMTP {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	f := &fakeSMTP{ln: ln, done: make(chan struct{})}
	go f.serve()
	t.Cleanup(func() { _ = ln.Close() })
	return f
}

func (f *fakeSMTP) port() int {
	return f.ln.Addr().(*net.TCPAddr).Port
}

func (f *fakeSMTP) serve() {
	defer close(f.done)
	conn, err := f.ln.Accept()
	if err != nil {
		return
	}
	defer conn.Close()

	r := bufio.NewReader(conn)
	write := func(line string) { _, _ = conn.Write([]byte(line + "\r\n")) }
	write("220 localhost ESMTP")

	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		cmd := strings.TrimRight(line, "\r\n")
		upper := strings.ToUpper(cmd)
		switch {
		case strings.HasPrefix(upper, "EHLO"), strings.HasPrefix(upper, "HELO"):
			write("250 localhost")
		case strings.HasPrefix(upper, "MAIL FROM:"):
			f.mailFrom = cmd[len("MAIL FROM:"):]
			write("250 OK")
		case strings.HasPrefix(upper, "RCPT TO:"):
			f.rcptTo = cmd[len("RCPT TO:"):]
			write("250 OK")
		case upper == "DATA":
			write("354 go ahead")
			var body strings.Builder
			for {
				dl, err := r.ReadString('\n')
				if err != nil {
					return
				}
				if dl == ".\r\n" {
					break
				}
				body.WriteString(dl)
			}
			f.data = body.String()
			write("250 queued")
		case upper == "QUIT":
			write("221 bye")
			return
		default:
			write("502 unsupported")
		}
	}
}

func TestSMTPSenderDelivers(t *testing.T) {
	srv := startFakeSMTP(t)

	sender := NewSMTPSender(config.EmailConfig{
		Host: "127.0.0.1",
		Port: srv.port(),
		From: `"TuniShield" <no-reply@tunishield.tn>`,
	})

	err := sender.Send(context.Background(), "amira@example.tn", "Your TuniShield Login Code", "code 123456", "<b>123456</b>")
	require.NoError(t, err)
	<-srv.done

	assert.Equal(t, "<no-reply@tunishield.tn>", strings.TrimSpace(srv.mailFrom))
	assert.Equal(t, "<amira@example.tn>", strings.TrimSpace(srv.rcptTo))
	assert.Contains(t, srv.data, "Subject: Your TuniShield Login Code")
	assert.Contains(t, srv.data, "multipart/alternative")
	assert.Contains(t, srv.data, "<b>123456</b>")
}

func TestSMTPSenderNotConfigured(t *testing.T) {
	err := NewSMTPSender(config.EmailConfig{}).Send(context.Background(), "a@b.tn", "s", "t", "")
	assert.Error(t, err)
}

func TestSMTPSenderDialFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	sender := NewSMTPSender(config.EmailConfig{Host: "127.0.0.1", Port: port, From: "no-reply@tunishield.tn"})
	err = sender.Send(context.Background(), "a@b.tn", "s", "t", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dial smtp")
}

func TestBuildMessage(t *testing.T) {
	plain := buildMessage("from@x.tn", "to@x.tn", "Hello", "body", "")
	assert.Contains(t, plain, "Content-Type: text/plain")
	assert.NotContains(t, plain, "multipart")

	html := buildMessage("from@x.tn", "to@x.tn", "Hello", "", "<p>hi</p>")
	assert.Contains(t, html, "Content-Type: text/html")

	encoded := buildMessage("from@x.tn", "to@x.tn", "Code de connexion à TuniShield", "t", "")
	assert.Contains(t, encoded, "Subject: =?utf-8?q?")
}

func TestNewFallsBackToNoop(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	sender := New(config.EmailConfig{Port: 587}, zap.New(core))

	noop, ok := sender.(*NoopSender)
	require.True(t, ok)
	require.NoError(t, noop.Send(context.Background(), "a@b.tn", "subject", "text", ""))
	assert.Equal(t, 2, logs.Len())

	_, ok = New(config.EmailConfig{Host: "smtp", Port: 25, From: "x@y.tn"}, zap.NewNop()).(*SMTPSender)
	assert.True(t, ok)
}

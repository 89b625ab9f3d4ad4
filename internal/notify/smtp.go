package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"net/url"
	"strings"
)

// SMTPSender delivers email over SMTP. The connection mode follows the
// URL scheme: smtps uses implicit TLS, smtp and submission upgrade with
// STARTTLS.
type SMTPSender struct {
	host     string
	port     string
	username string
	password string
	useTLS   bool
	from     string
}

// NewSMTPSender parses an smtp://, smtps://, or submission:// URL with
// optional credentials.
func NewSMTPSender(rawURL, from string) (*SMTPSender, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse smtp url: %w", err)
	}
	scheme := strings.ToLower(parsed.Scheme)
	switch scheme {
	case "smtp", "smtps", "submission":
	default:
		return nil, fmt.Errorf("unsupported smtp scheme %q", scheme)
	}
	if parsed.Hostname() == "" {
		return nil, fmt.Errorf("smtp url missing hostname")
	}
	if from == "" {
		return nil, fmt.Errorf("from address is required")
	}

	sender := &SMTPSender{
		host:   parsed.Hostname(),
		port:   parsed.Port(),
		useTLS: scheme == "smtps",
		from:   from,
	}
	if sender.port == "" {
		if sender.useTLS {
			sender.port = "465"
		} else {
			sender.port = "587"
		}
	}
	if user := parsed.User; user != nil {
		sender.username = user.Username()
		sender.password, _ = user.Password()
	}
	return sender, nil
}

// Send delivers the payload to its recipient.
func (s *SMTPSender) Send(ctx context.Context, payload Payload) error {
	address := net.JoinHostPort(s.host, s.port)

	var (
		client *smtp.Client
		err    error
	)
	if s.useTLS {
		dialer := &tls.Dialer{NetDialer: &net.Dialer{}, Config: &tls.Config{ServerName: s.host}}
		conn, dialErr := dialer.DialContext(ctx, "tcp", address)
		if dialErr != nil {
			return fmt.Errorf("dial smtps: %w", dialErr)
		}
		client, err = smtp.NewClient(conn, s.host)
		if err != nil {
			conn.Close()
			return fmt.Errorf("smtp handshake: %w", err)
		}
	} else {
		dialer := &net.Dialer{}
		conn, dialErr := dialer.DialContext(ctx, "tcp", address)
		if dialErr != nil {
			return fmt.Errorf("dial smtp: %w", dialErr)
		}
		client, err = smtp.NewClient(conn, s.host)
		if err != nil {
			conn.Close()
			return fmt.Errorf("smtp handshake: %w", err)
		}
		if err := client.StartTLS(&tls.Config{ServerName: s.host}); err != nil {
			client.Close()
			return fmt.Errorf("starttls: %w", err)
		}
	}
	defer client.Close()

	if s.username != "" {
		auth := smtp.PlainAuth("", s.username, s.password, s.host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}

	if err := client.Mail(s.from); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	if err := client.Rcpt(payload.To); err != nil {
		return fmt.Errorf("smtp rcpt to: %w", err)
	}
	writer, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := writer.Write(buildMessage(s.from, payload)); err != nil {
		writer.Close()
		return fmt.Errorf("write message: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close message: %w", err)
	}
	return client.Quit()
}

func buildMessage(from string, payload Payload) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + payload.To + "\r\n")
	b.WriteString("Subject: " + payload.Subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(payload.Body, "\n", "\r\n"))
	return []byte(b.String())
}

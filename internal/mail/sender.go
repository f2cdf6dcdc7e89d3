// Package mail delivers notification emails over SMTP.
package mail

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"strings"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/spec-kit/helpdesk-service/internal/config"
)

// ErrDisabled is returned when mail delivery is turned off.
var ErrDisabled = errors.New("mail delivery disabled")

// Message is a single outgoing email.
type Message struct {
	To      []string
	Subject string
	Text    string
	HTML    string
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPSender sends through a gomail dialer.
type SMTPSender struct {
	cfg    config.MailConfig
	dialer *gomail.Dialer
}

// NewSMTPSender builds a sender from configuration.
func NewSMTPSender(cfg config.MailConfig) *SMTPSender {
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	if cfg.UseTLS {
		d.TLSConfig = &tls.Config{ServerName: cfg.Host, MinVersion: tls.VersionTLS12}
	}
	return &SMTPSender{cfg: cfg, dialer: d}
}

// Send delivers msg, giving up at the configured timeout or ctx deadline, whichever is sooner.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if !s.cfg.Enabled {
		return ErrDisabled
	}
	m, err := buildMessage(s.cfg.From, msg)
	if err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() {
		done <- s.dialer.DialAndSend(m)
	}()

	wait := s.cfg.Timeout()
	if dl, ok := ctx.Deadline(); ok {
		if d := time.Until(dl); d > 0 && d < wait {
			wait = d
		}
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp send: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return fmt.Errorf("smtp send: timed out after %s", wait)
	}
}

func buildMessage(from string, msg Message) (*gomail.Message, error) {
	var to []string
	for _, addr := range msg.To {
		if addr = strings.TrimSpace(addr); addr != "" {
			to = append(to, addr)
		}
	}
	if len(to) == 0 {
		return nil, errors.New("mail: no recipients")
	}
	if strings.TrimSpace(msg.Subject) == "" {
		return nil, errors.New("mail: empty subject")
	}

	m := gomail.NewMessage()
	m.SetHeader("From", from)
	m.SetHeader("To", to...)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Text)
	if msg.HTML != "" {
		m.AddAlternative("text/html", msg.HTML)
	}
	return m, nil
}

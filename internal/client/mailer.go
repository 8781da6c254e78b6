package client

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/fusecpt/ats/internal/config"
)

// EmailMessage is a single plain text email.
type EmailMessage struct {
	From    string
	To      []string
	Subject string
	Body    string
}

// EmailSender delivers email.
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// SMTPClient sends mail through an SMTP relay.
type SMTPClient struct {
	addr string
	auth smtp.Auth
}

func NewSMTPClient(cfg *config.MailConfig) *SMTPClient {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	var auth smtp.Auth
	if cfg.Username != "" && cfg.Password != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return &SMTPClient{addr: addr, auth: auth}
}

func (c *SMTPClient) Send(ctx context.Context, msg EmailMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(msg.To) == 0 {
		return fmt.Errorf("email has no recipients")
	}
	if err := smtp.SendMail(c.addr, c.auth, msg.From, msg.To, []byte(buildEmailData(msg))); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

func buildEmailData(msg EmailMessage) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("From: %s\r\n", msg.From))
	b.WriteString(fmt.Sprintf("To: %s\r\n", strings.Join(msg.To, ",")))
	b.WriteString(fmt.Sprintf("Subject: %s\r\n", msg.Subject))
	b.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString(msg.Body)
	return b.String()
}

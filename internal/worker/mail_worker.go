package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/fusecpt/ats/internal/client"
	"github.com/fusecpt/ats/internal/config"
	"github.com/fusecpt/ats/internal/model"
)

// MailWorker delivers invitation and password reset mails.
type MailWorker struct {
	sender client.EmailSender
	from   string
	appURL string
	logger *zap.Logger
}

func NewMailWorker(sender client.EmailSender, cfg *config.MailConfig, logger *zap.Logger) *MailWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MailWorker{
		sender: sender,
		from:   cfg.From,
		appURL: strings.TrimSuffix(cfg.AppURL, "/"),
		logger: logger,
	}
}

// ProcessTask handles a mail task. Malformed tasks are not retried.
func (w *MailWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload model.MailTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal mail payload: %v: %w", err, asynq.SkipRetry)
	}

	msg, err := w.compose(&payload)
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	if err := w.sender.Send(ctx, msg); err != nil {
		w.logger.Warn("mail delivery failed",
			zap.String("kind", payload.Kind),
			zap.String("user_id", payload.UserID),
			zap.Error(err),
		)
		return err
	}

	w.logger.Info("mail sent",
		zap.String("kind", payload.Kind),
		zap.String("user_id", payload.UserID),
	)
	return nil
}

func (w *MailWorker) compose(p *model.MailTaskPayload) (client.EmailMessage, error) {
	if p.Email == "" || p.Token == "" {
		return client.EmailMessage{}, fmt.Errorf("mail task for user %q is missing email or token", p.UserID)
	}

	name := p.Name
	if name == "" {
		name = p.Email
	}
	expires := p.ExpiresAt.UTC().Format("2 Jan 2006 15:04 MST")

	var subject, body string
	switch p.Kind {
	case model.MailKindInvite:
		subject = "You have been invited to the recruiting dashboard"
		body = fmt.Sprintf("Hi %s,\n\nAn account has been created for you. Choose a password to sign in:\n\n%s\n\nThe link expires on %s.\n",
			name, w.link("/set-password", p.Token), expires)
	case model.MailKindPasswordReset:
		subject = "Reset your password"
		body = fmt.Sprintf("Hi %s,\n\nWe received a request to reset your password. Use this link to choose a new one:\n\n%s\n\nThe link expires on %s. If you did not ask for this, ignore this email.\n",
			name, w.link("/reset-password", p.Token), expires)
	default:
		return client.EmailMessage{}, fmt.Errorf("unknown mail kind %q", p.Kind)
	}

	return client.EmailMessage{
		From:    w.from,
		To:      []string{p.Email},
		Subject: subject,
		Body:    body,
	}, nil
}

func (w *MailWorker) link(path, token string) string {
	return w.appURL + path + "?token=" + url.QueryEscape(token)
}

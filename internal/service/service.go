package service

import (
	"context"
	"errors"
	"time"

	"github.com/fusecpt/ats/internal/model"
	"github.com/fusecpt/ats/internal/storage"
	"github.com/fusecpt/ats/pkg/apperr"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// BoardPublisher receives candidate board events.
type BoardPublisher interface {
	PublishBoard(msg model.WSBoardMessage)
}

// MailEnqueuer schedules an outgoing mail for background delivery.
type MailEnqueuer interface {
	EnqueueMail(ctx context.Context, payload *model.MailTaskPayload) error
}

type nopPublisher struct{}

func (nopPublisher) PublishBoard(model.WSBoardMessage) {}

// mapStoreErr turns storage.ErrNotFound into a NotFound application error and
// wraps anything else unrecognised as a server error.
func mapStoreErr(err error, notFoundMsg string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, storage.ErrNotFound) {
		return apperr.NotFound(notFoundMsg)
	}
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}
	return apperr.Server("", err)
}

func utcNow() time.Time {
	return time.Now().UTC()
}

package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/fusecpt/ats/internal/model"
)

// Task types
const (
	TaskTypeMail = "mail:send"
)

// MailQueue is the name of the asynq queue carrying mail tasks.
const MailQueue = "mail"

// AsynqMailQueue enqueues mail tasks on redis through asynq.
type AsynqMailQueue struct {
	client *asynq.Client
}

func NewAsynqMailQueue(client *asynq.Client) *AsynqMailQueue {
	return &AsynqMailQueue{client: client}
}

func (q *AsynqMailQueue) EnqueueMail(ctx context.Context, payload *model.MailTaskPayload) error {
	task, err := NewMailTask(payload)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	_, err = q.client.EnqueueContext(ctx, task,
		asynq.Queue(MailQueue),
		asynq.MaxRetry(5),
		asynq.Timeout(30*time.Second),
		asynq.Retention(24*time.Hour),
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}
	return nil
}

// NewMailTask encodes payload as a mail task.
func NewMailTask(payload *model.MailTaskPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeMail, data), nil
}

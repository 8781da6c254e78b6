package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fusecpt/ats/internal/model"
	"github.com/fusecpt/ats/internal/storage"
)

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func openTestStore(t *testing.T) *storage.Store {
	t.Helper()
	s, err := storage.Open("sqlite", ":memory:")
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// clock returns a now func that advances one minute per call.
func clock() func() time.Time {
	var mu sync.Mutex
	current := t0
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		current = current.Add(time.Minute)
		return current
	}
}

type recordingBoard struct {
	mu       sync.Mutex
	messages []model.WSBoardMessage
}

func (b *recordingBoard) PublishBoard(msg model.WSBoardMessage) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages = append(b.messages, msg)
}

func (b *recordingBoard) events() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.messages))
	for _, m := range b.messages {
		out = append(out, m.Event)
	}
	return out
}

type fakeMail struct {
	mu       sync.Mutex
	err      error
	payloads []model.MailTaskPayload
}

func (f *fakeMail) EnqueueMail(_ context.Context, p *model.MailTaskPayload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.payloads = append(f.payloads, *p)
	return nil
}

func (f *fakeMail) last() model.MailTaskPayload {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.payloads[len(f.payloads)-1]
}

var errQueueDown = errors.New("redis unavailable")

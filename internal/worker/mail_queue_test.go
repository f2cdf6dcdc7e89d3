package worker

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/mail"
)

type recordingSender struct {
	mu    sync.Mutex
	sent  []mail.Message
	block chan struct{}
	err   error
}

func (s *recordingSender) Send(_ context.Context, msg mail.Message) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, msg)
	return s.err
}

func (s *recordingSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

func TestMailQueueDeliversBeforeStop(t *testing.T) {
	sender := &recordingSender{}
	q := NewMailQueue(sender, zap.NewNop(), nil, 2, 10)
	q.Start(context.Background())

	for i := 0; i < 5; i++ {
		assert.True(t, q.Enqueue(mail.Message{To: []string{"a@b.c"}, Subject: "s"}))
	}
	q.Stop()

	assert.Equal(t, 5, sender.count())
	assert.False(t, q.Enqueue(mail.Message{Subject: "late"}), "stopped queue rejects work")
}

func TestMailQueueDropsWhenFull(t *testing.T) {
	sender := &recordingSender{block: make(chan struct{})}
	q := NewMailQueue(sender, zap.NewNop(), nil, 1, 1)
	q.Start(context.Background())

	accepted := 0
	for i := 0; i < 5; i++ {
		if q.Enqueue(mail.Message{Subject: "s"}) {
			accepted++
		}
	}
	assert.Less(t, accepted, 5)

	close(sender.block)
	q.Stop()
	assert.Equal(t, accepted, sender.count())
}

func TestMailQueueSurvivesSendErrors(t *testing.T) {
	sender := &recordingSender{err: errors.New("smtp down")}
	q := NewMailQueue(sender, zap.NewNop(), nil, 1, 4)
	q.Start(context.Background())

	assert.True(t, q.Enqueue(mail.Message{Subject: "one"}))
	assert.True(t, q.Enqueue(mail.Message{Subject: "two"}))
	q.Stop()

	assert.Equal(t, 2, sender.count())
}

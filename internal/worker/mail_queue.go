package worker

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/mail"
	"github.com/spec-kit/helpdesk-service/internal/observability"
)

// MailQueue delivers notification emails on background goroutines so that
// ticket requests never wait on SMTP.
type MailQueue struct {
	sender  mail.Sender
	logger  *zap.Logger
	metrics *observability.Metrics
	workers int

	mu     sync.RWMutex
	jobs   chan mail.Message
	closed bool
	wg     sync.WaitGroup
}

// NewMailQueue builds a queue holding at most size pending messages.
func NewMailQueue(sender mail.Sender, logger *zap.Logger, metrics *observability.Metrics, workers, size int) *MailQueue {
	if workers <= 0 {
		workers = 1
	}
	if size <= 0 {
		size = 1
	}
	return &MailQueue{
		sender:  sender,
		logger:  logger,
		metrics: metrics,
		workers: workers,
		jobs:    make(chan mail.Message, size),
	}
}

// Start launches the workers. They exit once Stop has drained the queue.
func (q *MailQueue) Start(ctx context.Context) {
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.run(ctx)
	}
}

// Enqueue hands msg to the workers without blocking. It reports false when the
// queue is full or stopped.
func (q *MailQueue) Enqueue(msg mail.Message) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return false
	}
	select {
	case q.jobs <- msg:
		return true
	default:
		q.metrics.RecordMail("dropped")
		q.logger.Warn("mail queue full; dropping notification", zap.String("subject", msg.Subject))
		return false
	}
}

// Stop rejects new messages and waits for queued ones to be processed.
func (q *MailQueue) Stop() {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.jobs)
	}
	q.mu.Unlock()
	q.wg.Wait()
}

func (q *MailQueue) run(ctx context.Context) {
	defer q.wg.Done()
	for msg := range q.jobs {
		err := q.sender.Send(ctx, msg)
		switch {
		case err == nil:
			q.metrics.RecordMail("sent")
		case errors.Is(err, mail.ErrDisabled):
			q.metrics.RecordMail("disabled")
		default:
			q.metrics.RecordMail("failed")
			q.logger.Error("notification email failed", zap.String("subject", msg.Subject), zap.Error(err))
		}
	}
}

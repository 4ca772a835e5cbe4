// Package audit writes the login-attempt trail. Recording is best-effort:
// a failed or dropped write is logged and never surfaces to the caller.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vpnpanel/auth-service/internal/store"
)

// Entry describes one login attempt, successful or not.
type Entry struct {
	Email         string
	OperatorID    *uuid.UUID
	IPAddress     string
	UserAgent     string
	Success       bool
	FailureReason string
	OccurredAt    time.Time
}

// Recorder buffers audit entries on a bounded queue drained by Run. The
// queue decouples audit persistence from the login path: when the queue
// is full, entries are dropped with a warning rather than blocking.
type Recorder struct {
	attempts store.LoginAttemptStore
	logger   *zap.Logger
	queue    chan Entry
	done     chan struct{}
}

// New constructs a Recorder with the given queue capacity.
func New(attempts store.LoginAttemptStore, logger *zap.Logger, queueSize int) *Recorder {
	if queueSize <= 0 {
		queueSize = 256
	}
	return &Recorder{
		attempts: attempts,
		logger:   logger,
		queue:    make(chan Entry, queueSize),
		done:     make(chan struct{}),
	}
}

// Record enqueues an entry without blocking.
func (r *Recorder) Record(entry Entry) {
	if entry.OccurredAt.IsZero() {
		entry.OccurredAt = time.Now().UTC()
	}
	select {
	case r.queue <- entry:
	default:
		r.logger.Warn("audit queue full, dropping login attempt record",
			zap.String("email", entry.Email),
			zap.Bool("success", entry.Success),
		)
	}
}

// Run drains the queue until ctx is cancelled, then flushes what remains.
func (r *Recorder) Run(ctx context.Context) {
	defer close(r.done)
	for {
		select {
		case entry := <-r.queue:
			r.persist(entry)
		case <-ctx.Done():
			for {
				select {
				case entry := <-r.queue:
					r.persist(entry)
				default:
					return
				}
			}
		}
	}
}

// Wait blocks until Run has returned.
func (r *Recorder) Wait() {
	<-r.done
}

func (r *Recorder) persist(entry Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := r.attempts.Insert(ctx, &store.LoginAttempt{
		ID:            uuid.New(),
		Email:         entry.Email,
		OperatorID:    entry.OperatorID,
		IPAddress:     entry.IPAddress,
		UserAgent:     entry.UserAgent,
		Success:       entry.Success,
		FailureReason: entry.FailureReason,
		OccurredAt:    entry.OccurredAt,
	})
	if err != nil {
		r.logger.Warn("failed to persist login attempt", zap.Error(err))
	}
}

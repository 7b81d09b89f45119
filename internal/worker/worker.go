package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/deskly/backend/internal/models"
	"github.com/deskly/backend/pkg/queue"
)

// NotificationStore writes the notification record for each processed job.
type NotificationStore interface {
	Create(ctx context.Context, userID *uuid.UUID, kind string, payload json.RawMessage) (*models.Notification, error)
}

// Processor consumes notification jobs: each booking event and password-reset
// delivery becomes a notifications row.
type Processor struct {
	store  NotificationStore
	queue  *queue.Queue
	logger *zap.Logger
}

// NewProcessor creates a notification job processor.
func NewProcessor(store NotificationStore, q *queue.Queue, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{store: store, queue: q, logger: logger}
}

// Process executes one job.
func (p *Processor) Process(ctx context.Context, job *queue.Job) error {
	switch job.Type {
	case queue.JobTypeBookingEvent:
		return p.processBookingEvent(ctx, job)
	case queue.JobTypePasswordReset:
		return p.processPasswordReset(ctx, job)
	default:
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
}

func (p *Processor) processBookingEvent(ctx context.Context, job *queue.Job) error {
	var payload queue.BookingEventPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}
	if _, err := p.store.Create(ctx, payload.UserID, payload.Event, job.Payload); err != nil {
		return fmt.Errorf("store notification: %w", err)
	}
	p.logger.Info("booking event processed",
		zap.String("job_id", job.ID),
		zap.String("event", payload.Event),
		zap.String("booking_id", payload.BookingID.String()))
	return nil
}

func (p *Processor) processPasswordReset(ctx context.Context, job *queue.Job) error {
	var payload queue.PasswordResetPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}
	// Delivery is a notifications row; the reset token itself never lands
	// in the record.
	record, err := json.Marshal(map[string]string{"recipient_email": payload.RecipientEmail})
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	if _, err := p.store.Create(ctx, &payload.UserID, "password_reset", record); err != nil {
		return fmt.Errorf("store notification: %w", err)
	}
	p.logger.Info("password reset processed",
		zap.String("job_id", job.ID),
		zap.String("user_id", payload.UserID.String()))
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *Processor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("notification worker stopping")
			return
		default:
		}

		job, _, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			time.Sleep(queue.RetryBackoff)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			if reErr := p.queue.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			time.Sleep(queue.RetryBackoff)
			continue
		}
	}
}

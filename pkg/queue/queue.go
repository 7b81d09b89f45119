package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// QueueNotifications is the Redis list key for notification jobs.
	QueueNotifications = "worker:notifications"
	// QueueDLQ is the dead-letter queue for failed jobs after retries.
	QueueDLQ = "worker:dlq"
	// MaxRetries is the number of times to retry a job before moving to DLQ.
	MaxRetries = 3
	// RetryBackoff is the delay between retries.
	RetryBackoff = 10 * time.Second
)

// JobType identifies the job kind.
type JobType string

const (
	JobTypeBookingEvent  JobType = "booking_event"
	JobTypePasswordReset JobType = "password_reset"
)

// BookingEventPayload is the payload for office-booking activity jobs.
type BookingEventPayload struct {
	Event     string     `json:"event"` // booking_created, booking_deleted
	OfficeID  uuid.UUID  `json:"office_id"`
	BookingID uuid.UUID  `json:"booking_id"`
	UserID    *uuid.UUID `json:"user_id,omitempty"`
	StartTime time.Time  `json:"start_time"`
	EndTime   time.Time  `json:"end_time"`
}

// PasswordResetPayload is the payload for password-reset delivery jobs.
type PasswordResetPayload struct {
	UserID         uuid.UUID `json:"user_id"`
	RecipientEmail string    `json:"recipient_email"`
	ResetToken     string    `json:"reset_token"`
}

// Job is a generic job envelope.
type Job struct {
	ID        string          `json:"id"`
	Type      JobType         `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Attempt   int             `json:"attempt"`
	CreatedAt time.Time       `json:"created_at"`
}

// Queue enqueues and dequeues jobs via Redis.
type Queue struct {
	client *redis.Client
	logger *zap.Logger
}

// NewQueue creates a new Redis-backed job queue.
func NewQueue(client *redis.Client, logger *zap.Logger) *Queue {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{client: client, logger: logger}
}

// EnqueueBookingEvent enqueues an office-booking activity job.
func (q *Queue) EnqueueBookingEvent(ctx context.Context, payload BookingEventPayload) error {
	job, err := newJob(JobTypeBookingEvent, payload)
	if err != nil {
		return err
	}
	if err := q.push(ctx, job); err != nil {
		return err
	}
	q.logger.Debug("enqueued booking event job",
		zap.String("job_id", job.ID),
		zap.String("event", payload.Event),
		zap.String("booking_id", payload.BookingID.String()))
	return nil
}

// EnqueuePasswordReset enqueues a password-reset delivery job.
func (q *Queue) EnqueuePasswordReset(ctx context.Context, payload PasswordResetPayload) error {
	job, err := newJob(JobTypePasswordReset, payload)
	if err != nil {
		return err
	}
	if err := q.push(ctx, job); err != nil {
		return err
	}
	q.logger.Debug("enqueued password reset job",
		zap.String("job_id", job.ID),
		zap.String("user_id", payload.UserID.String()))
	return nil
}

func newJob(t JobType, payload interface{}) (*Job, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return &Job{
		ID:        uuid.New().String(),
		Type:      t,
		Payload:   body,
		Attempt:   0,
		CreatedAt: time.Now(),
	}, nil
}

func (q *Queue) push(ctx context.Context, job *Job) error {
	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := q.client.RPush(ctx, QueueNotifications, raw).Err(); err != nil {
		return fmt.Errorf("rpush: %w", err)
	}
	return nil
}

// Dequeue blocks until a job is available or ctx is done. Returns job and key (queue name).
func (q *Queue) Dequeue(ctx context.Context) (*Job, string, error) {
	result, err := q.client.BLPop(ctx, 0, QueueNotifications).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, "", nil
		}
		return nil, "", err
	}
	if len(result) < 2 {
		return nil, "", nil
	}
	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		q.logger.Warn("invalid job payload", zap.String("raw", result[1]), zap.Error(err))
		return nil, "", nil
	}
	return &job, result[0], nil
}

// Retry re-enqueues a job with incremented attempt. If attempt >= MaxRetries, pushes to DLQ instead.
func (q *Queue) Retry(ctx context.Context, job *Job) error {
	job.Attempt++
	raw, err := json.Marshal(job)
	if err != nil {
		return err
	}
	if job.Attempt >= MaxRetries {
		if err := q.client.RPush(ctx, QueueDLQ, raw).Err(); err != nil {
			q.logger.Error("dlq push failed", zap.Error(err), zap.String("job_id", job.ID))
			return err
		}
		q.logger.Warn("job moved to DLQ", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt))
		return nil
	}
	if err := q.client.RPush(ctx, QueueNotifications, raw).Err(); err != nil {
		return err
	}
	q.logger.Info("job retried", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt))
	return nil
}

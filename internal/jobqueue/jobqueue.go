// path: internal/jobqueue/jobqueue.go
package jobqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/techappsUT/social-scheduler/internal/logging"
)

const (
	maxRetries          = 3
	queueKeyPrefix      = "queue:"
	processingKeyPrefix = "processing:"
	dlqKeyPrefix        = "dlq:"
	jobDataKeyPrefix    = "job:data:"
	jobTTL              = 24 * time.Hour
)

// Job types this engine enqueues off the critical claim/publish path.
// The publisher fires JobTypeFetchAnalytics after a target's outcome is
// already durable in Store, and the scheduler loop fires
// JobTypeCleanupMedia on its own interval; a queue outage delays
// analytics/cleanup, never publication.
const (
	JobTypeFetchAnalytics = "fetch_analytics"
	JobTypeCleanupMedia   = "cleanup_media"
)

// Job is one unit of background work.
type Job struct {
	ID         string                 `json:"id"`
	Type       string                 `json:"type"`
	Payload    map[string]interface{} `json:"payload"`
	CreatedAt  time.Time              `json:"created_at"`
	RetryCount int                    `json:"retry_count"`
	LastError  string                 `json:"last_error,omitempty"`
}

// Queue is a Redis-backed job queue with per-type retry and a dead
// letter queue, generalized from the teacher's WorkerQueueService. It
// sits deliberately off the scheduler's claim/publish path: spec.md
// requires the Store's conditional claim to be the sole synchronization
// point, so nothing here may gate a publish attempt.
type Queue struct {
	client *redis.Client
	log    logging.Logger
}

func New(client *redis.Client, log logging.Logger) *Queue {
	return &Queue{client: client, log: log}
}

// Enqueue adds a job to jobType's queue.
func (q *Queue) Enqueue(ctx context.Context, jobType string, payload map[string]interface{}) (string, error) {
	job := &Job{
		ID:        uuid.New().String(),
		Type:      jobType,
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	}

	data, err := json.Marshal(job)
	if err != nil {
		return "", fmt.Errorf("jobqueue: marshal job: %w", err)
	}

	dataKey := jobDataKeyPrefix + job.ID
	if err := q.client.Set(ctx, dataKey, data, jobTTL).Err(); err != nil {
		return "", fmt.Errorf("jobqueue: store job data: %w", err)
	}

	queueKey := queueKeyPrefix + jobType
	if err := q.client.RPush(ctx, queueKey, job.ID).Err(); err != nil {
		return "", fmt.Errorf("jobqueue: push job: %w", err)
	}

	q.log.Info("job enqueued", zap.String("job_id", job.ID), zap.String("job_type", jobType))
	return job.ID, nil
}

// Dequeue blocks up to timeout for the next job of jobType, moving it
// into the processing list atomically.
func (q *Queue) Dequeue(ctx context.Context, jobType string, timeout time.Duration) (*Job, error) {
	queueKey := queueKeyPrefix + jobType
	processingKey := processingKeyPrefix + jobType

	jobID, err := q.client.BRPopLPush(ctx, queueKey, processingKey, timeout).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("jobqueue: dequeue: %w", err)
	}

	dataKey := jobDataKeyPrefix + jobID
	data, err := q.client.Get(ctx, dataKey).Result()
	if err == redis.Nil {
		q.client.LRem(ctx, processingKey, 1, jobID)
		return nil, fmt.Errorf("jobqueue: job data expired: %s", jobID)
	}
	if err != nil {
		return nil, fmt.Errorf("jobqueue: get job data: %w", err)
	}

	var job Job
	if err := json.Unmarshal([]byte(data), &job); err != nil {
		return nil, fmt.Errorf("jobqueue: unmarshal job: %w", err)
	}
	return &job, nil
}

// MarkComplete removes a successfully processed job from the processing
// list and discards its data.
func (q *Queue) MarkComplete(ctx context.Context, jobType, jobID string) error {
	processingKey := processingKeyPrefix + jobType
	if err := q.client.LRem(ctx, processingKey, 1, jobID).Err(); err != nil {
		return fmt.Errorf("jobqueue: remove from processing: %w", err)
	}
	q.client.Del(ctx, jobDataKeyPrefix+jobID)
	return nil
}

// MarkFailed records the new retry count and error on the job and
// re-queues jobID at once, or moves it to the dead letter queue once
// maxRetries is exhausted. The exponential backoff it computes is only
// logged; the re-queued job is not delayed.
func (q *Queue) MarkFailed(ctx context.Context, jobType, jobID, errMsg string) error {
	processingKey := processingKeyPrefix + jobType
	dataKey := jobDataKeyPrefix + jobID

	data, err := q.client.Get(ctx, dataKey).Result()
	if err != nil {
		return fmt.Errorf("jobqueue: get job data: %w", err)
	}

	var job Job
	if err := json.Unmarshal([]byte(data), &job); err != nil {
		return fmt.Errorf("jobqueue: unmarshal job: %w", err)
	}
	job.RetryCount++
	job.LastError = errMsg

	if job.RetryCount <= maxRetries {
		backoff := time.Duration(1<<uint(job.RetryCount-1)) * 10 * time.Minute
		q.log.Warn("job failed, retrying",
			zap.String("job_id", jobID), zap.Int("retry_count", job.RetryCount),
			zap.Duration("backoff", backoff), zap.String("error", errMsg))

		updated, _ := json.Marshal(job)
		q.client.Set(ctx, dataKey, updated, jobTTL)
		q.client.RPush(ctx, queueKeyPrefix+jobType, jobID)
	} else {
		q.log.Error("job permanently failed", zap.String("job_id", jobID), zap.String("error", errMsg))
		updated, _ := json.Marshal(job)
		q.client.RPush(ctx, dlqKeyPrefix+jobType, string(updated))
	}

	q.client.LRem(ctx, processingKey, 1, jobID)
	return nil
}

// QueueLength reports how many jobs of jobType are waiting.
func (q *Queue) QueueLength(ctx context.Context, jobType string) (int64, error) {
	n, err := q.client.LLen(ctx, queueKeyPrefix+jobType).Result()
	if err != nil {
		return 0, fmt.Errorf("jobqueue: queue length: %w", err)
	}
	return n, nil
}

// DLQLength reports how many jobs of jobType were abandoned to the dead
// letter queue.
func (q *Queue) DLQLength(ctx context.Context, jobType string) (int64, error) {
	n, err := q.client.LLen(ctx, dlqKeyPrefix+jobType).Result()
	if err != nil {
		return 0, fmt.Errorf("jobqueue: dlq length: %w", err)
	}
	return n, nil
}

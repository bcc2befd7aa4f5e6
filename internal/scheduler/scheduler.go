// path: internal/scheduler/scheduler.go
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/techappsUT/social-scheduler/internal/jobqueue"
	"github.com/techappsUT/social-scheduler/internal/logging"
	"github.com/techappsUT/social-scheduler/internal/metrics"
	"github.com/techappsUT/social-scheduler/internal/publisher"
	"github.com/techappsUT/social-scheduler/internal/store"
)

// jobEnqueuer is the subset of jobqueue.Queue the loop needs to signal
// the background media sweep; a nil enqueuer just skips that signal.
type jobEnqueuer interface {
	Enqueue(ctx context.Context, jobType string, payload map[string]interface{}) (string, error)
}

// Loop is the single long-lived scheduler task: on each tick it sweeps
// posts stuck in publishing past the configured threshold, atomically
// claims due posts, and hands each to the Publisher. Posts claimed in
// the same tick are published concurrently; targets within one post are
// always sequential (enforced inside Publisher).
type Loop struct {
	store        store.Store
	publisher    *publisher.Publisher
	log          logging.Logger
	pollInterval time.Duration
	stuckAfter   time.Duration
	batchSize    int

	jobs            jobEnqueuer
	cleanupEvery    time.Duration
	lastCleanupScan time.Time

	stop chan struct{}
	done chan struct{}
}

func New(s store.Store, pub *publisher.Publisher, log logging.Logger, pollInterval, stuckAfter time.Duration, batchSize int) *Loop {
	return &Loop{
		store:        s,
		publisher:    pub,
		log:          log,
		pollInterval: pollInterval,
		stuckAfter:   stuckAfter,
		batchSize:    batchSize,
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
	}
}

// WithMediaCleanup enqueues a jobqueue.JobTypeCleanupMedia job at most
// once per interval, off the claim/publish path, so the worker's media
// sweep has something to consume.
func (l *Loop) WithMediaCleanup(q jobEnqueuer, interval time.Duration) *Loop {
	l.jobs = q
	l.cleanupEvery = interval
	return l
}

// Run blocks, ticking immediately and then on pollInterval, until ctx is
// canceled or Stop is called. A canceled ctx stops new ticks and, since
// the same ctx is passed to PublishPost, also cancels the adapter calls
// of an in-flight tick's publish passes; Stop leaves them to finish.
func (l *Loop) Run(ctx context.Context) {
	defer close(l.done)

	l.tick(ctx)

	ticker := time.NewTicker(l.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-l.stop:
			return
		case <-ticker.C:
			l.tick(ctx)
		}
	}
}

// Stop signals the loop to stop accepting ticks and waits for Run to
// return, letting any in-flight tick's publish passes finish.
func (l *Loop) Stop() {
	close(l.stop)
	<-l.done
}

func (l *Loop) tick(ctx context.Context) {
	metrics.Ticks.Inc()

	l.maybeEnqueueCleanup(ctx)

	if l.stuckAfter > 0 {
		swept, err := l.store.SweepStuckPublishing(ctx, l.stuckAfter)
		if err != nil {
			l.log.Error("stuck-publishing sweep failed", zap.Error(err))
		} else if swept > 0 {
			l.log.Warn("swept stuck-publishing posts", zap.Int64("count", swept))
		}
	}

	claimStart := time.Now()
	posts, err := l.store.ClaimDuePosts(ctx, time.Now(), l.batchSize)
	metrics.ClaimDuration.Observe(time.Since(claimStart).Seconds())
	if err != nil {
		l.log.Error("claim due posts failed", zap.Error(err))
		return
	}
	if len(posts) == 0 {
		return
	}

	metrics.PostsClaimed.Add(float64(len(posts)))
	l.log.Info("claimed due posts", zap.Int("count", len(posts)))

	var wg sync.WaitGroup
	for _, post := range posts {
		wg.Add(1)
		go func(id uuid.UUID) {
			defer wg.Done()
			if err := l.publisher.PublishPost(ctx, id); err != nil {
				l.log.Error("publish pass failed, marking post failed", zap.String("post_id", id.String()), zap.Error(err))
				if setErr := l.store.SetPostStatus(ctx, id, store.PostStatusFailed); setErr != nil {
					l.log.Error("failed to mark post failed after pipeline error", zap.String("post_id", id.String()), zap.Error(setErr))
				}
			}
		}(post.ID)
	}
	wg.Wait()
}

func (l *Loop) maybeEnqueueCleanup(ctx context.Context) {
	if l.jobs == nil || l.cleanupEvery <= 0 {
		return
	}
	if !l.lastCleanupScan.IsZero() && time.Since(l.lastCleanupScan) < l.cleanupEvery {
		return
	}
	l.lastCleanupScan = time.Now()

	if _, err := l.jobs.Enqueue(ctx, jobqueue.JobTypeCleanupMedia, nil); err != nil {
		l.log.Warn("failed to enqueue media cleanup job", zap.Error(err))
	}
}

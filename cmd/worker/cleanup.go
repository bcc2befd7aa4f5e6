// path: cmd/worker/cleanup.go
package main

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/techappsUT/social-scheduler/internal/jobqueue"
	"github.com/techappsUT/social-scheduler/internal/logging"
	"github.com/techappsUT/social-scheduler/internal/store"
)

const dequeueTimeout = 5 * time.Second

// cleanupProcessor drains jobqueue.JobTypeCleanupMedia jobs: each job is
// a signal to sweep every registered media asset and delete the ones no
// post still scheduled or publishing references.
type cleanupProcessor struct {
	store store.Store
	queue *jobqueue.Queue
	log   logging.Logger
}

func newCleanupProcessor(s store.Store, q *jobqueue.Queue, log logging.Logger) *cleanupProcessor {
	return &cleanupProcessor{store: s, queue: q, log: log}
}

func (p *cleanupProcessor) Name() string { return "media-cleanup" }

func (p *cleanupProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		job, err := p.queue.Dequeue(ctx, jobqueue.JobTypeCleanupMedia, dequeueTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			p.log.Warn("cleanup dequeue failed", zap.Error(err))
			continue
		}
		if job == nil {
			continue
		}

		if err := p.sweepOrphanedMedia(ctx); err != nil {
			p.log.Error("media sweep failed", zap.String("job_id", job.ID), zap.Error(err))
			if merr := p.queue.MarkFailed(ctx, jobqueue.JobTypeCleanupMedia, job.ID, err.Error()); merr != nil {
				p.log.Error("failed to mark cleanup job failed", zap.Error(merr))
			}
			continue
		}

		if err := p.queue.MarkComplete(ctx, jobqueue.JobTypeCleanupMedia, job.ID); err != nil {
			p.log.Error("failed to mark cleanup job complete", zap.Error(err))
		}
	}
}

func (p *cleanupProcessor) sweepOrphanedMedia(ctx context.Context) error {
	assets, err := p.store.ListMediaAssets(ctx)
	if err != nil {
		return err
	}

	deleted := 0
	for _, a := range assets {
		inUse, err := p.store.MediaInUse(ctx, a.ID)
		if err != nil {
			p.log.Warn("media in-use check failed, skipping", zap.String("media_id", a.ID.String()), zap.Error(err))
			continue
		}
		if inUse {
			continue
		}
		if err := p.store.DeleteMediaAsset(ctx, a.ID); err != nil {
			p.log.Warn("failed to delete orphaned media asset", zap.String("media_id", a.ID.String()), zap.Error(err))
			continue
		}
		deleted++
	}

	p.log.Info("media sweep complete", zap.Int("scanned", len(assets)), zap.Int("deleted", deleted))
	return nil
}

// analyticsSinkProcessor drains jobqueue.JobTypeFetchAnalytics jobs.
// Cross-post analytics is out of scope for this engine; this sink only
// exists so the publisher's post-publish enqueue never accumulates an
// unbounded backlog, and marks every job complete without fetching
// anything from the platform.
type analyticsSinkProcessor struct {
	queue *jobqueue.Queue
	log   logging.Logger
}

func newAnalyticsSinkProcessor(q *jobqueue.Queue, log logging.Logger) *analyticsSinkProcessor {
	return &analyticsSinkProcessor{queue: q, log: log}
}

func (p *analyticsSinkProcessor) Name() string { return "analytics-sink" }

func (p *analyticsSinkProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		job, err := p.queue.Dequeue(ctx, jobqueue.JobTypeFetchAnalytics, dequeueTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			p.log.Warn("analytics dequeue failed", zap.Error(err))
			continue
		}
		if job == nil {
			continue
		}

		p.log.Debug("analytics fetch job drained (no-op, out of scope)", zap.String("job_id", job.ID))
		if err := p.queue.MarkComplete(ctx, jobqueue.JobTypeFetchAnalytics, job.ID); err != nil {
			p.log.Error("failed to mark analytics job complete", zap.Error(err))
		}
	}
}

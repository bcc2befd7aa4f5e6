// path: internal/publisher/publisher.go
package publisher

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/techappsUT/social-scheduler/internal/jobqueue"
	"github.com/techappsUT/social-scheduler/internal/logging"
	"github.com/techappsUT/social-scheduler/internal/media"
	"github.com/techappsUT/social-scheduler/internal/metrics"
	"github.com/techappsUT/social-scheduler/internal/platform"
	"github.com/techappsUT/social-scheduler/internal/security"
	"github.com/techappsUT/social-scheduler/internal/store"
)

const maxReasonLength = 500

// jobEnqueuer is the subset of jobqueue.Queue the publisher needs. It is
// an interface so the pipeline never depends on Redis being reachable:
// a nil enqueuer just skips the post-publish background work.
type jobEnqueuer interface {
	Enqueue(ctx context.Context, jobType string, payload map[string]interface{}) (string, error)
}

// Publisher runs the per-post pipeline described in the scheduler/publisher
// engine: resolve effective content per target, validate, upload, publish,
// record the attempt, then reduce the post to a final status.
type Publisher struct {
	store      store.Store
	registry   *platform.Registry
	creds      *security.CredentialResolver
	media      *media.Library
	log        logging.Logger
	maxRetries int
	jobs       jobEnqueuer
}

func New(s store.Store, reg *platform.Registry, creds *security.CredentialResolver, lib *media.Library, log logging.Logger, maxRetries int) *Publisher {
	return &Publisher{
		store:      s,
		registry:   reg,
		creds:      creds,
		media:      lib,
		log:        log,
		maxRetries: maxRetries,
	}
}

// WithJobQueue attaches a background job enqueuer for non-critical,
// off-pipeline work (analytics fetch) fired after a successful publish.
// Scheduling it this way, rather than inline, keeps the Store's
// conditional claim the only synchronization point in the publish path.
func (p *Publisher) WithJobQueue(q jobEnqueuer) *Publisher {
	p.jobs = q
	return p
}

// PublishPost runs the pipeline for one claimed post. Targets are
// processed strictly sequentially: concurrent targets on the same post
// would let adapters that cache upload ids across calls duplicate work.
func (p *Publisher) PublishPost(ctx context.Context, postID uuid.UUID) error {
	post, err := p.store.LoadPost(ctx, postID)
	if err != nil {
		return err
	}

	for i := range post.Targets {
		target := &post.Targets[i]
		if target.Status != store.TargetStatusPending && target.Status != store.TargetStatusFailed {
			continue
		}
		if err := p.runTarget(ctx, post, target); err != nil {
			p.log.Error("target pipeline error", zap.String("target_id", target.ID.String()), zap.Error(err))
		}
	}

	return p.reducePostStatus(ctx, post.ID)
}

func (p *Publisher) runTarget(ctx context.Context, post *store.Post, target *store.PlatformTarget) error {
	start := time.Now()

	// Retry gate: a target that has already exhausted its attempts is
	// left untouched rather than re-entered.
	if target.Status == store.TargetStatusFailed {
		attempts, err := p.store.CountAttempts(ctx, target.ID)
		if err != nil {
			return err
		}
		if attempts >= p.maxRetries {
			return nil
		}
	}

	now := time.Now()
	target.Status = store.TargetStatusPublishing
	target.LastAttemptAt = &now
	if err := p.store.UpdateTarget(ctx, target); err != nil {
		return err
	}

	content, err := p.resolveContent(ctx, post, target)
	if err != nil {
		return err
	}

	adapter, cred, perr := p.resolveAdapter(ctx, target)
	if perr != nil {
		return p.finish(ctx, target, start, nil, perr)
	}

	if err := adapter.ValidatePost(ctx, cred, content); err != nil {
		return p.finish(ctx, target, start, nil, toPlatformError(err, platform.ErrCodeValidationFailed))
	}

	if limiter := p.registry.Limiter(target.Platform); limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			return p.finish(ctx, target, start, nil, &platform.Error{Code: platform.ErrCodePlatformUnavailable, Message: "rate limiter wait canceled", Cause: err})
		}
	}

	mediaHandles, err := p.uploadMedia(ctx, adapter, cred, content)
	if err != nil {
		return p.finish(ctx, target, start, nil, toPlatformError(err, platform.ErrCodeMediaUploadFailed))
	}

	result, err := adapter.Publish(ctx, cred, content, mediaHandles)
	if err != nil {
		return p.finish(ctx, target, start, nil, toPlatformError(err, platform.ErrCodeUnknown))
	}

	return p.finish(ctx, target, start, result, nil)
}

func (p *Publisher) resolveAdapter(ctx context.Context, target *store.PlatformTarget) (platform.Adapter, platform.Credential, *platform.Error) {
	adapter, err := p.registry.Get(target.Platform)
	if err != nil {
		return nil, platform.Credential{}, &platform.Error{Code: platform.ErrCodePlatformUnavailable, Message: "no adapter registered", Cause: err}
	}

	cred, err := p.creds.Resolve(ctx, target.Platform, store.DefaultAccountRef)
	if errors.Is(err, store.ErrCredentialMissing) {
		return nil, platform.Credential{}, &platform.Error{Code: platform.ErrCodePlatformUnavailable, Message: "no credentials configured for platform"}
	}
	if err != nil {
		return nil, platform.Credential{}, &platform.Error{Code: platform.ErrCodePlatformUnavailable, Message: "credential resolution failed", Cause: err}
	}

	return adapter, cred, nil
}

// resolveContent implements the override-resolution rule: overrideContent
// wins only when non-empty after trimming; overrideMediaRefs wins only
// when it resolves to at least one still-existing asset, otherwise the
// post's base ordered media is used; options default to {}.
func (p *Publisher) resolveContent(ctx context.Context, post *store.Post, target *store.PlatformTarget) (platform.Content, error) {
	text := post.Content
	if target.ContentOverride != nil && strings.TrimSpace(*target.ContentOverride) != "" {
		text = *target.ContentOverride
	}

	assets := baseMedia(post)
	if len(target.OverrideMediaIDs) > 0 {
		overridden, err := p.store.GetMediaAssets(ctx, target.OverrideMediaIDs)
		if err != nil {
			return platform.Content{}, err
		}
		if len(overridden) > 0 {
			assets = overridden
		}
	}

	resolved := make([]platform.ResolvedMedia, 0, len(assets))
	for _, a := range assets {
		resolved = append(resolved, platform.ResolvedMedia{
			AssetID:     a.ID.String(),
			Type:        a.Type,
			StoragePath: p.media.Resolve(a.StoragePath),
			MimeType:    a.MimeType,
		})
	}

	options := target.Options
	if options == nil {
		options = store.JSONMap{}
	}

	return platform.Content{Text: text, Media: resolved, Options: options}, nil
}

// baseMedia returns the post's ordered base media, keyed by the
// preloaded PostMediaLink.Position.
func baseMedia(post *store.Post) []store.MediaAsset {
	links := make([]store.PostMediaLink, len(post.MediaLinks))
	copy(links, post.MediaLinks)
	sort.Slice(links, func(i, j int) bool { return links[i].Position < links[j].Position })

	assets := make([]store.MediaAsset, 0, len(links))
	for _, l := range links {
		assets = append(assets, l.Media)
	}
	return assets
}

func (p *Publisher) uploadMedia(ctx context.Context, adapter platform.Adapter, cred platform.Credential, content platform.Content) ([]string, error) {
	handles := make([]string, 0, len(content.Media))
	for _, m := range content.Media {
		handle, err := adapter.UploadMedia(ctx, cred, m)
		if err != nil {
			return nil, err
		}
		handles = append(handles, handle)
	}
	return handles, nil
}

func (p *Publisher) finish(ctx context.Context, target *store.PlatformTarget, start time.Time, result *platform.PublishResult, perr *platform.Error) error {
	attempt := &store.PublishAttempt{
		TargetID:   target.ID,
		AttemptNum: target.RetryCount + 1,
		StartedAt:  start,
		FinishedAt: time.Now(),
	}

	now := time.Now()

	outcome := "success"
	if perr != nil {
		outcome = "failure"
		msg := truncate(perr.Error(), maxReasonLength)
		attempt.Success = false
		attempt.ErrorCode = &perr.Code
		attempt.ErrorMsg = &msg
		attempt.Retryable = perr.Retryable

		target.Status = store.TargetStatusFailed
		target.LastError = &msg
		target.RetryCount++
	} else {
		attempt.Success = true
		target.Status = store.TargetStatusPublished
		target.PlatformPostID = &result.PlatformPostID
		target.PlatformURL = &result.URL
		target.LastError = nil
		target.PublishedAt = &now
	}

	target.UpdatedAt = now

	metrics.TargetOutcomes.WithLabelValues(string(target.Platform), outcome).Inc()
	metrics.PublishDuration.WithLabelValues(string(target.Platform)).Observe(time.Since(start).Seconds())

	if err := p.store.AppendAttempt(ctx, attempt); err != nil {
		return err
	}
	if err := p.store.UpdateTarget(ctx, target); err != nil {
		return err
	}
	if perr == nil {
		p.enqueueAnalyticsFetch(ctx, target)
	}
	return nil
}

// reducePostStatus implements the §4.5 reduction: all-published wins,
// all-failed wins, anything else is partially_published. `publishing`
// should never survive this pass; if it does, leave the post untouched
// for the next tick to re-enter.
func (p *Publisher) reducePostStatus(ctx context.Context, postID uuid.UUID) error {
	post, err := p.store.LoadPost(ctx, postID)
	if err != nil {
		return err
	}

	if len(post.Targets) == 0 {
		return nil
	}

	allPublished, allFailed := true, true
	for _, t := range post.Targets {
		switch t.Status {
		case store.TargetStatusPublishing:
			p.log.Error("target left in publishing state after pipeline pass", zap.String("post_id", postID.String()))
			return nil
		case store.TargetStatusPublished:
			allFailed = false
		case store.TargetStatusFailed:
			allPublished = false
		default:
			allPublished, allFailed = false, false
		}
	}

	switch {
	case allPublished:
		return p.store.SetPostStatus(ctx, postID, store.PostStatusPublished)
	case allFailed:
		return p.store.SetPostStatus(ctx, postID, store.PostStatusFailed)
	default:
		return p.store.SetPostStatus(ctx, postID, store.PostStatusPartiallyPublished)
	}
}

// enqueueAnalyticsFetch fires a background job to fetch post metrics
// later. Failure to enqueue is logged, not propagated: it must never
// turn a successful publish into a failed one.
func (p *Publisher) enqueueAnalyticsFetch(ctx context.Context, target *store.PlatformTarget) {
	if p.jobs == nil || target.PlatformPostID == nil {
		return
	}
	payload := map[string]interface{}{
		"target_id":        target.ID.String(),
		"platform":         string(target.Platform),
		"platform_post_id": *target.PlatformPostID,
	}
	if _, err := p.jobs.Enqueue(ctx, jobqueue.JobTypeFetchAnalytics, payload); err != nil {
		p.log.Warn("failed to enqueue analytics fetch job", zap.String("target_id", target.ID.String()), zap.Error(err))
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

// toPlatformError normalizes an arbitrary error into a *platform.Error,
// preserving one returned by an adapter and defaulting everything else
// to the supplied code.
func toPlatformError(err error, fallbackCode string) *platform.Error {
	var perr *platform.Error
	if errors.As(err, &perr) {
		return perr
	}
	return &platform.Error{Code: fallbackCode, Message: err.Error(), Cause: err}
}

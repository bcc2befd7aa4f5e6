// path: internal/store/store.go
package store

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store is the single synchronization point for claiming due posts and
// recording publish outcomes. Every method that can race with another
// scheduler tick (ClaimDuePosts, SweepStuckPublishing) must be backed by
// a single conditional UPDATE so two processes can never believe they
// both own the same post.
type Store interface {
	// ClaimDuePosts atomically transitions up to limit posts whose
	// scheduled_at has passed and whose status is scheduled or
	// partially_published into publishing, and returns them with their
	// targets preloaded. A post claimed by this call will not be
	// returned by a concurrent call until it leaves publishing again.
	ClaimDuePosts(ctx context.Context, now time.Time, limit int) ([]Post, error)

	// SweepStuckPublishing forces posts stuck in publishing for longer
	// than olderThan back to partially_published so the ordinary claim
	// path can pick them up again. Returns the number of posts swept.
	SweepStuckPublishing(ctx context.Context, olderThan time.Duration) (int64, error)

	LoadPost(ctx context.Context, id uuid.UUID) (*Post, error)

	// CreatePost inserts a post together with its targets and media links
	// in one transaction.
	CreatePost(ctx context.Context, post *Post) error

	// UpdatePost replaces a post's content, schedule, targets, and media
	// links in one transaction. Callers must confirm the post is still
	// editable (status == scheduled) before calling this; ErrNotEditable
	// is returned if it no longer is.
	UpdatePost(ctx context.Context, post *Post) error

	// DeletePost cascades to the post's targets, media links, and their
	// attempts (invariant 4); media assets themselves are untouched.
	DeletePost(ctx context.Context, id uuid.UUID) error

	// ListPosts returns every post with its targets and media preloaded,
	// newest scheduled first.
	ListPosts(ctx context.Context) ([]Post, error)

	// GetMediaAssets resolves a list of media asset ids, in the order
	// requested, silently dropping any id that no longer exists.
	GetMediaAssets(ctx context.Context, ids []uuid.UUID) ([]MediaAsset, error)

	// CreateMediaAsset registers a media file already placed on disk.
	CreateMediaAsset(ctx context.Context, asset *MediaAsset) error

	// MediaInUse reports whether id is linked (base or override) to any
	// post still scheduled or publishing, per §6's deletion guard.
	MediaInUse(ctx context.Context, id uuid.UUID) (bool, error)

	// ListMediaAssets returns every registered media asset, for the
	// background cleanup job to scan for orphans.
	ListMediaAssets(ctx context.Context) ([]MediaAsset, error)

	// DeleteMediaAsset removes a media asset row. Callers must confirm
	// MediaInUse is false first; this does not re-check.
	DeleteMediaAsset(ctx context.Context, id uuid.UUID) error

	UpdateTarget(ctx context.Context, target *PlatformTarget) error

	AppendAttempt(ctx context.Context, attempt *PublishAttempt) error
	CountAttempts(ctx context.Context, targetID uuid.UUID) (int, error)

	SetPostStatus(ctx context.Context, postID uuid.UUID, status PostStatus) error

	GetCredential(ctx context.Context, platform Platform, accountRef string) (*PlatformCredential, error)
	PutCredential(ctx context.Context, cred *PlatformCredential) error
	DeleteCredential(ctx context.Context, platform Platform, accountRef string) error
	ListConfiguredPlatforms(ctx context.Context) ([]Platform, error)
}

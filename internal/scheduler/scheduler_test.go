// path: internal/scheduler/scheduler_test.go
package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/techappsUT/social-scheduler/internal/logging"
	"github.com/techappsUT/social-scheduler/internal/media"
	"github.com/techappsUT/social-scheduler/internal/platform"
	"github.com/techappsUT/social-scheduler/internal/publisher"
	"github.com/techappsUT/social-scheduler/internal/security"
	"github.com/techappsUT/social-scheduler/internal/store"
)

// fakeClaimStore is a minimal in-memory Store exercising both what the
// loop touches directly (claim, sweep, set-status) and what the
// publisher it drives needs to run a full pipeline pass.
type fakeClaimStore struct {
	toClaim       []store.Post
	posts         map[uuid.UUID]*store.Post
	claimCalls    int32
	sweepCalls    int32
	statusUpdates []store.PostStatus
}

func (f *fakeClaimStore) ClaimDuePosts(ctx context.Context, now time.Time, limit int) ([]store.Post, error) {
	atomic.AddInt32(&f.claimCalls, 1)
	claimed := f.toClaim
	f.toClaim = nil

	if f.posts == nil {
		f.posts = map[uuid.UUID]*store.Post{}
	}
	for i := range claimed {
		p := claimed[i]
		f.posts[p.ID] = &p
	}
	return claimed, nil
}
func (f *fakeClaimStore) SweepStuckPublishing(ctx context.Context, olderThan time.Duration) (int64, error) {
	atomic.AddInt32(&f.sweepCalls, 1)
	return 0, nil
}
func (f *fakeClaimStore) LoadPost(ctx context.Context, id uuid.UUID) (*store.Post, error) {
	p, ok := f.posts[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *p
	cp.Targets = append([]store.PlatformTarget(nil), p.Targets...)
	return &cp, nil
}
func (f *fakeClaimStore) GetMediaAssets(ctx context.Context, ids []uuid.UUID) ([]store.MediaAsset, error) {
	return nil, nil
}
func (f *fakeClaimStore) UpdateTarget(ctx context.Context, target *store.PlatformTarget) error {
	p, ok := f.posts[target.PostID]
	if !ok {
		return store.ErrNotFound
	}
	for i := range p.Targets {
		if p.Targets[i].ID == target.ID {
			p.Targets[i] = *target
			return nil
		}
	}
	return store.ErrNotFound
}
func (f *fakeClaimStore) AppendAttempt(ctx context.Context, attempt *store.PublishAttempt) error {
	return nil
}
func (f *fakeClaimStore) CountAttempts(ctx context.Context, targetID uuid.UUID) (int, error) {
	return 0, nil
}
func (f *fakeClaimStore) SetPostStatus(ctx context.Context, postID uuid.UUID, status store.PostStatus) error {
	f.statusUpdates = append(f.statusUpdates, status)
	return nil
}
func (f *fakeClaimStore) GetCredential(ctx context.Context, p store.Platform, accountRef string) (*store.PlatformCredential, error) {
	return nil, store.ErrCredentialMissing
}
func (f *fakeClaimStore) PutCredential(ctx context.Context, cred *store.PlatformCredential) error {
	return nil
}
func (f *fakeClaimStore) DeleteCredential(ctx context.Context, p store.Platform, accountRef string) error {
	return nil
}
func (f *fakeClaimStore) ListConfiguredPlatforms(ctx context.Context) ([]store.Platform, error) {
	return nil, nil
}
func (f *fakeClaimStore) CreatePost(ctx context.Context, post *store.Post) error {
	if f.posts == nil {
		f.posts = map[uuid.UUID]*store.Post{}
	}
	if post.ID == uuid.Nil {
		post.ID = uuid.New()
	}
	f.posts[post.ID] = post
	return nil
}
func (f *fakeClaimStore) UpdatePost(ctx context.Context, post *store.Post) error {
	if _, ok := f.posts[post.ID]; !ok {
		return store.ErrNotFound
	}
	f.posts[post.ID] = post
	return nil
}
func (f *fakeClaimStore) DeletePost(ctx context.Context, id uuid.UUID) error {
	delete(f.posts, id)
	return nil
}
func (f *fakeClaimStore) ListPosts(ctx context.Context) ([]store.Post, error) {
	out := make([]store.Post, 0, len(f.posts))
	for _, p := range f.posts {
		out = append(out, *p)
	}
	return out, nil
}
func (f *fakeClaimStore) CreateMediaAsset(ctx context.Context, asset *store.MediaAsset) error {
	return nil
}
func (f *fakeClaimStore) MediaInUse(ctx context.Context, id uuid.UUID) (bool, error) {
	return false, nil
}
func (f *fakeClaimStore) ListMediaAssets(ctx context.Context) ([]store.MediaAsset, error) {
	return nil, nil
}
func (f *fakeClaimStore) DeleteMediaAsset(ctx context.Context, id uuid.UUID) error {
	return nil
}

func newTestLoop(t *testing.T, fs *fakeClaimStore, pollInterval time.Duration) *Loop {
	t.Helper()
	cipher, err := security.NewCredentialCipher("01234567890123456789012345678901")
	require.NoError(t, err)
	resolver := security.NewCredentialResolver(fs, cipher)
	lib := media.NewLibrary(t.TempDir())
	reg := platform.NewRegistry()
	pub := publisher.New(fs, reg, resolver, lib, logging.NewNop(), 3)
	return New(fs, pub, logging.NewNop(), pollInterval, 10*time.Minute, 25)
}

func TestLoop_TicksImmediatelyThenOnInterval(t *testing.T) {
	fs := &fakeClaimStore{}
	l := newTestLoop(t, fs, 20*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 55*time.Millisecond)
	defer cancel()
	l.Run(ctx)

	assert.GreaterOrEqual(t, int(atomic.LoadInt32(&fs.claimCalls)), 2)
	assert.GreaterOrEqual(t, int(atomic.LoadInt32(&fs.sweepCalls)), 2)
}

func TestLoop_NoAdapterMarksPostFailedThroughPublisher(t *testing.T) {
	postID := uuid.New()
	fs := &fakeClaimStore{toClaim: []store.Post{{
		ID:     postID,
		Status: store.PostStatusPublishing,
		Targets: []store.PlatformTarget{
			{ID: uuid.New(), PostID: postID, Platform: store.PlatformTwitter, Status: store.TargetStatusPending},
		},
	}}}
	l := newTestLoop(t, fs, time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	l.tick(ctx)

	require.NotEmpty(t, fs.statusUpdates)
	assert.Equal(t, store.PostStatusFailed, fs.statusUpdates[len(fs.statusUpdates)-1])
}

func TestLoop_StopEndsRunPromptly(t *testing.T) {
	fs := &fakeClaimStore{}
	l := newTestLoop(t, fs, time.Hour)

	done := make(chan struct{})
	go func() {
		l.Run(context.Background())
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	l.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Stop")
	}
}

// path: internal/publisher/publisher_test.go
package publisher

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/techappsUT/social-scheduler/internal/logging"
	"github.com/techappsUT/social-scheduler/internal/media"
	"github.com/techappsUT/social-scheduler/internal/platform"
	"github.com/techappsUT/social-scheduler/internal/security"
	"github.com/techappsUT/social-scheduler/internal/store"
)

// fakeStore is an in-memory Store good enough to drive the publisher
// pipeline end to end without a real database, mirroring the teacher's
// preference for interface fakes over mocking frameworks in service tests.
type fakeStore struct {
	posts       map[uuid.UUID]*store.Post
	attempts    []*store.PublishAttempt
	credentials map[string]*store.PlatformCredential
	media       map[uuid.UUID]store.MediaAsset
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		posts:       map[uuid.UUID]*store.Post{},
		credentials: map[string]*store.PlatformCredential{},
		media:       map[uuid.UUID]store.MediaAsset{},
	}
}

func credKey(p store.Platform, accountRef string) string { return string(p) + "/" + accountRef }

func (f *fakeStore) ClaimDuePosts(ctx context.Context, now time.Time, limit int) ([]store.Post, error) {
	return nil, nil
}
func (f *fakeStore) SweepStuckPublishing(ctx context.Context, olderThan time.Duration) (int64, error) {
	return 0, nil
}
func (f *fakeStore) LoadPost(ctx context.Context, id uuid.UUID) (*store.Post, error) {
	p, ok := f.posts[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *p
	cp.Targets = append([]store.PlatformTarget(nil), p.Targets...)
	cp.MediaLinks = append([]store.PostMediaLink(nil), p.MediaLinks...)
	return &cp, nil
}
func (f *fakeStore) GetMediaAssets(ctx context.Context, ids []uuid.UUID) ([]store.MediaAsset, error) {
	out := make([]store.MediaAsset, 0, len(ids))
	for _, id := range ids {
		if m, ok := f.media[id]; ok {
			out = append(out, m)
		}
	}
	return out, nil
}
func (f *fakeStore) UpdateTarget(ctx context.Context, target *store.PlatformTarget) error {
	p := f.posts[target.PostID]
	for i := range p.Targets {
		if p.Targets[i].ID == target.ID {
			p.Targets[i] = *target
			return nil
		}
	}
	return store.ErrNotFound
}
func (f *fakeStore) AppendAttempt(ctx context.Context, attempt *store.PublishAttempt) error {
	f.attempts = append(f.attempts, attempt)
	return nil
}
func (f *fakeStore) CountAttempts(ctx context.Context, targetID uuid.UUID) (int, error) {
	n := 0
	for _, a := range f.attempts {
		if a.TargetID == targetID {
			n++
		}
	}
	return n, nil
}
func (f *fakeStore) SetPostStatus(ctx context.Context, postID uuid.UUID, status store.PostStatus) error {
	p, ok := f.posts[postID]
	if !ok {
		return store.ErrNotFound
	}
	p.Status = status
	return nil
}
func (f *fakeStore) GetCredential(ctx context.Context, p store.Platform, accountRef string) (*store.PlatformCredential, error) {
	c, ok := f.credentials[credKey(p, accountRef)]
	if !ok {
		return nil, store.ErrCredentialMissing
	}
	return c, nil
}
func (f *fakeStore) PutCredential(ctx context.Context, cred *store.PlatformCredential) error {
	f.credentials[credKey(cred.Platform, cred.AccountRef)] = cred
	return nil
}
func (f *fakeStore) DeleteCredential(ctx context.Context, p store.Platform, accountRef string) error {
	delete(f.credentials, credKey(p, accountRef))
	return nil
}
func (f *fakeStore) ListConfiguredPlatforms(ctx context.Context) ([]store.Platform, error) {
	return nil, nil
}
func (f *fakeStore) CreatePost(ctx context.Context, post *store.Post) error {
	if post.ID == uuid.Nil {
		post.ID = uuid.New()
	}
	f.posts[post.ID] = post
	return nil
}
func (f *fakeStore) UpdatePost(ctx context.Context, post *store.Post) error {
	if _, ok := f.posts[post.ID]; !ok {
		return store.ErrNotFound
	}
	f.posts[post.ID] = post
	return nil
}
func (f *fakeStore) DeletePost(ctx context.Context, id uuid.UUID) error {
	delete(f.posts, id)
	return nil
}
func (f *fakeStore) ListPosts(ctx context.Context) ([]store.Post, error) {
	out := make([]store.Post, 0, len(f.posts))
	for _, p := range f.posts {
		out = append(out, *p)
	}
	return out, nil
}
func (f *fakeStore) CreateMediaAsset(ctx context.Context, asset *store.MediaAsset) error {
	if asset.ID == uuid.Nil {
		asset.ID = uuid.New()
	}
	f.media[asset.ID] = *asset
	return nil
}
func (f *fakeStore) MediaInUse(ctx context.Context, id uuid.UUID) (bool, error) {
	return false, nil
}
func (f *fakeStore) ListMediaAssets(ctx context.Context) ([]store.MediaAsset, error) {
	out := make([]store.MediaAsset, 0, len(f.media))
	for _, m := range f.media {
		out = append(out, m)
	}
	return out, nil
}
func (f *fakeStore) DeleteMediaAsset(ctx context.Context, id uuid.UUID) error {
	delete(f.media, id)
	return nil
}

// fakeAdapter is a scriptable platform.Adapter for exercising the
// pipeline's validate/upload/publish sequencing and error mapping.
type fakeAdapter struct {
	platform      store.Platform
	validateErr   error
	publishErr    error
	publishResult *platform.PublishResult
	uploadCalls   int
	publishCalls  int
	seenHandles   []string
}

func (a *fakeAdapter) Platform() store.Platform                  { return a.platform }
func (a *fakeAdapter) CredentialFields() []platform.CredentialField { return nil }
func (a *fakeAdapter) OptionFields() []platform.OptionField         { return nil }
func (a *fakeAdapter) CharacterLimits() platform.CharacterLimits {
	return platform.CharacterLimits{MaxTextLength: 280}
}
func (a *fakeAdapter) VerifyCredentials(ctx context.Context, cred platform.Credential) error {
	return nil
}
func (a *fakeAdapter) ValidatePost(ctx context.Context, cred platform.Credential, content platform.Content) error {
	return a.validateErr
}
func (a *fakeAdapter) UploadMedia(ctx context.Context, cred platform.Credential, m platform.ResolvedMedia) (string, error) {
	a.uploadCalls++
	return "handle-" + m.AssetID, nil
}
func (a *fakeAdapter) Publish(ctx context.Context, cred platform.Credential, content platform.Content, mediaHandles []string) (*platform.PublishResult, error) {
	a.publishCalls++
	a.seenHandles = mediaHandles
	if a.publishErr != nil {
		return nil, a.publishErr
	}
	return a.publishResult, nil
}

func newTestPublisher(t *testing.T, fs *fakeStore, reg *platform.Registry) *Publisher {
	t.Helper()
	cipher, err := security.NewCredentialCipher("01234567890123456789012345678901")
	require.NoError(t, err)
	resolver := security.NewCredentialResolver(fs, cipher)
	lib := media.NewLibrary(t.TempDir())
	return New(fs, reg, resolver, lib, logging.NewNop(), 3)
}

func seedPost(fs *fakeStore, content string, targets ...store.PlatformTarget) uuid.UUID {
	id := uuid.New()
	for i := range targets {
		targets[i].PostID = id
		if targets[i].ID == uuid.Nil {
			targets[i].ID = uuid.New()
		}
		if targets[i].Status == "" {
			targets[i].Status = store.TargetStatusPending
		}
	}
	fs.posts[id] = &store.Post{ID: id, Content: content, Status: store.PostStatusPublishing, Targets: targets}
	return id
}

func TestPublishPost_HappyPath(t *testing.T) {
	fs := newFakeStore()
	reg := platform.NewRegistry()
	adapter := &fakeAdapter{platform: store.PlatformTelegram, publishResult: &platform.PublishResult{PlatformPostID: "42", URL: "https://t.me/x/42"}}
	reg.Register(adapter)

	require.NoError(t, fs.PutCredential(context.Background(), &store.PlatformCredential{Platform: store.PlatformTelegram, AccountRef: store.DefaultAccountRef, EncryptedBlob: mustSeal(t, map[string]string{"bot_token": "abc"})}))

	postID := seedPost(fs, "Hello", store.PlatformTarget{Platform: store.PlatformTelegram})

	p := newTestPublisher(t, fs, reg)
	require.NoError(t, p.PublishPost(context.Background(), postID))

	post := fs.posts[postID]
	assert.Equal(t, store.PostStatusPublished, post.Status)
	assert.Equal(t, store.TargetStatusPublished, post.Targets[0].Status)
	require.NotNil(t, post.Targets[0].PlatformPostID)
	assert.Equal(t, "42", *post.Targets[0].PlatformPostID)
	assert.Len(t, fs.attempts, 1)
	assert.True(t, fs.attempts[0].Success)
}

func TestPublishPost_ValidationFailureSkipsUploadAndPublish(t *testing.T) {
	fs := newFakeStore()
	reg := platform.NewRegistry()
	adapter := &fakeAdapter{platform: store.PlatformTwitter, validateErr: &platform.Error{Code: platform.ErrCodeValidationFailed, Message: "text exceeds 280 characters"}}
	reg.Register(adapter)

	require.NoError(t, fs.PutCredential(context.Background(), &store.PlatformCredential{Platform: store.PlatformTwitter, AccountRef: store.DefaultAccountRef, EncryptedBlob: mustSeal(t, map[string]string{"api_key": "k"})}))

	postID := seedPost(fs, "too long", store.PlatformTarget{Platform: store.PlatformTwitter})

	p := newTestPublisher(t, fs, reg)
	require.NoError(t, p.PublishPost(context.Background(), postID))

	post := fs.posts[postID]
	assert.Equal(t, store.PostStatusFailed, post.Status)
	assert.Equal(t, store.TargetStatusFailed, post.Targets[0].Status)
	assert.Equal(t, 0, adapter.uploadCalls)
	assert.Equal(t, 0, adapter.publishCalls)
	require.Len(t, fs.attempts, 1)
	require.NotNil(t, fs.attempts[0].ErrorCode)
	assert.Equal(t, platform.ErrCodeValidationFailed, *fs.attempts[0].ErrorCode)
}

func TestPublishPost_PartialAcrossTwoPlatforms(t *testing.T) {
	fs := newFakeStore()
	reg := platform.NewRegistry()
	okAdapter := &fakeAdapter{platform: store.PlatformTelegram, publishResult: &platform.PublishResult{PlatformPostID: "1", URL: "https://t.me/x/1"}}
	failAdapter := &fakeAdapter{platform: store.PlatformTwitter, publishErr: &platform.Error{Code: platform.ErrCodeRateLimited, Message: "rate limited", Retryable: true}}
	reg.Register(okAdapter)
	reg.Register(failAdapter)

	require.NoError(t, fs.PutCredential(context.Background(), &store.PlatformCredential{Platform: store.PlatformTelegram, AccountRef: store.DefaultAccountRef, EncryptedBlob: mustSeal(t, map[string]string{"bot_token": "abc"})}))
	require.NoError(t, fs.PutCredential(context.Background(), &store.PlatformCredential{Platform: store.PlatformTwitter, AccountRef: store.DefaultAccountRef, EncryptedBlob: mustSeal(t, map[string]string{"api_key": "k"})}))

	postID := seedPost(fs, "hi", store.PlatformTarget{Platform: store.PlatformTelegram}, store.PlatformTarget{Platform: store.PlatformTwitter})

	p := newTestPublisher(t, fs, reg)
	require.NoError(t, p.PublishPost(context.Background(), postID))

	post := fs.posts[postID]
	assert.Equal(t, store.PostStatusPartiallyPublished, post.Status)
}

func TestPublishPost_RetryGateSkipsExhaustedTarget(t *testing.T) {
	fs := newFakeStore()
	reg := platform.NewRegistry()
	adapter := &fakeAdapter{platform: store.PlatformTwitter, publishErr: &platform.Error{Code: platform.ErrCodeRateLimited, Message: "rate limited", Retryable: true}}
	reg.Register(adapter)
	require.NoError(t, fs.PutCredential(context.Background(), &store.PlatformCredential{Platform: store.PlatformTwitter, AccountRef: store.DefaultAccountRef, EncryptedBlob: mustSeal(t, map[string]string{"api_key": "k"})}))

	targetID := uuid.New()
	postID := seedPost(fs, "hi", store.PlatformTarget{ID: targetID, Platform: store.PlatformTwitter, Status: store.TargetStatusFailed})
	for i := 0; i < 3; i++ {
		fs.attempts = append(fs.attempts, &store.PublishAttempt{TargetID: targetID, Success: false})
	}

	p := newTestPublisher(t, fs, reg)
	require.NoError(t, p.PublishPost(context.Background(), postID))

	assert.Equal(t, 0, adapter.publishCalls)
	assert.Len(t, fs.attempts, 3)
}

func mustSeal(t *testing.T, values map[string]string) []byte {
	t.Helper()
	cipher, err := security.NewCredentialCipher("01234567890123456789012345678901")
	require.NoError(t, err)
	blob, err := cipher.Seal(values)
	require.NoError(t, err)
	return blob
}

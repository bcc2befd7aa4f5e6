// path: internal/store/gorm_store.go
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// gormStore is the GORM-backed Store, grounded on the teacher's use of
// gorm.io/gorm+driver/postgres for all persistence, generalized with a
// SQLite fallback for the embedded local-file-database requirement.
type gormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

// AutoMigrate creates or updates the schema for all six entities.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Post{},
		&PlatformTarget{},
		&PublishAttempt{},
		&MediaAsset{},
		&PostMediaLink{},
		&PlatformCredential{},
	)
}

// ClaimDuePosts is the sole synchronization point in the whole pipeline:
// one UPDATE ... RETURNING, guarded by status IN (...), so two scheduler
// ticks racing each other can never both claim the same post.
func (s *gormStore) ClaimDuePosts(ctx context.Context, now time.Time, limit int) ([]Post, error) {
	var ids []uuid.UUID

	err := s.db.WithContext(ctx).Raw(`
		UPDATE posts
		SET status = ?, updated_at = ?
		WHERE id IN (
			SELECT id FROM posts
			WHERE status IN (?, ?)
			  AND scheduled_at IS NOT NULL
			  AND scheduled_at <= ?
			  AND deleted_at IS NULL
			ORDER BY scheduled_at ASC
			LIMIT ?
		)
		RETURNING id
	`, PostStatusPublishing, now, PostStatusScheduled, PostStatusPartiallyPublished, now, limit).
		Scan(&ids).Error
	if err != nil {
		return nil, fmt.Errorf("store: claim due posts: %w", err)
	}

	if len(ids) == 0 {
		return nil, nil
	}

	var posts []Post
	if err := s.db.WithContext(ctx).Preload("Targets").Preload("MediaLinks.Media").Where("id IN ?", ids).Find(&posts).Error; err != nil {
		return nil, fmt.Errorf("store: load claimed posts: %w", err)
	}
	return posts, nil
}

// SweepStuckPublishing resolves the stuck-publishing open question: any
// post that has sat in publishing past the threshold is forced back to
// partially_published so ClaimDuePosts' normal path can retry it.
func (s *gormStore) SweepStuckPublishing(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)
	res := s.db.WithContext(ctx).Model(&Post{}).
		Where("status = ? AND updated_at < ?", PostStatusPublishing, cutoff).
		Updates(map[string]interface{}{"status": PostStatusPartiallyPublished, "updated_at": time.Now()})
	if res.Error != nil {
		return 0, fmt.Errorf("store: sweep stuck publishing: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (s *gormStore) LoadPost(ctx context.Context, id uuid.UUID) (*Post, error) {
	var post Post
	err := s.db.WithContext(ctx).Preload("Targets").Preload("MediaLinks.Media").
		First(&post, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: load post: %w", err)
	}
	return &post, nil
}

// CreatePost inserts a post with its targets and media links in one
// transaction so a crash mid-insert can never leave a post with only
// some of its targets persisted.
func (s *gormStore) CreatePost(ctx context.Context, post *Post) error {
	if post.ID == uuid.Nil {
		post.ID = uuid.New()
	}
	for i := range post.Targets {
		if post.Targets[i].ID == uuid.Nil {
			post.Targets[i].ID = uuid.New()
		}
		post.Targets[i].PostID = post.ID
		if post.Targets[i].Status == "" {
			post.Targets[i].Status = TargetStatusPending
		}
	}
	for i := range post.MediaLinks {
		if post.MediaLinks[i].ID == uuid.Nil {
			post.MediaLinks[i].ID = uuid.New()
		}
		post.MediaLinks[i].PostID = post.ID
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Omit("Targets.Media", "MediaLinks.Media").Create(post).Error
	})
	if err != nil {
		return fmt.Errorf("store: create post: %w", err)
	}
	return nil
}

// UpdatePost replaces a scheduled post's content, schedule, targets, and
// media links, rejecting posts that have left the scheduled state so a
// target that already published can never be silently rewritten.
func (s *gormStore) UpdatePost(ctx context.Context, post *Post) error {
	for i := range post.Targets {
		if post.Targets[i].ID == uuid.Nil {
			post.Targets[i].ID = uuid.New()
		}
		post.Targets[i].PostID = post.ID
		if post.Targets[i].Status == "" {
			post.Targets[i].Status = TargetStatusPending
		}
	}
	for i := range post.MediaLinks {
		if post.MediaLinks[i].ID == uuid.Nil {
			post.MediaLinks[i].ID = uuid.New()
		}
		post.MediaLinks[i].PostID = post.ID
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing Post
		if err := tx.First(&existing, "id = ?", post.ID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if existing.Status != PostStatusScheduled {
			return ErrNotEditable
		}

		if err := tx.Where("post_id = ?", post.ID).Delete(&PlatformTarget{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", post.ID).Delete(&PostMediaLink{}).Error; err != nil {
			return err
		}

		post.UpdatedAt = time.Now()
		return tx.Omit("Targets.Media", "MediaLinks.Media").Save(post).Error
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrNotEditable) {
			return err
		}
		return fmt.Errorf("store: update post: %w", err)
	}
	return nil
}

// DeletePost cascades to targets, media links, and attempts (invariant
// 4); media assets themselves are left in the library.
func (s *gormStore) DeletePost(ctx context.Context, id uuid.UUID) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(`
			DELETE FROM publish_attempts
			WHERE target_id IN (SELECT id FROM platform_targets WHERE post_id = ?)
		`, id).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&PlatformTarget{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&PostMediaLink{}).Error; err != nil {
			return err
		}
		return tx.Delete(&Post{}, "id = ?", id).Error
	})
	if err != nil {
		return fmt.Errorf("store: delete post: %w", err)
	}
	return nil
}

// ListPosts returns every post with targets and media preloaded, most
// recently scheduled first.
func (s *gormStore) ListPosts(ctx context.Context) ([]Post, error) {
	var posts []Post
	err := s.db.WithContext(ctx).Preload("Targets").Preload("MediaLinks.Media").
		Order("scheduled_at DESC NULLS LAST, created_at DESC").Find(&posts).Error
	if err != nil {
		return nil, fmt.Errorf("store: list posts: %w", err)
	}
	return posts, nil
}

// CreateMediaAsset registers a media file already placed on disk by the
// (external) ingestion layer.
func (s *gormStore) CreateMediaAsset(ctx context.Context, asset *MediaAsset) error {
	if asset.ID == uuid.Nil {
		asset.ID = uuid.New()
	}
	if asset.Type == "" {
		asset.Type = DeriveMediaType(asset.MimeType)
	}
	if err := s.db.WithContext(ctx).Create(asset).Error; err != nil {
		return fmt.Errorf("store: create media asset: %w", err)
	}
	return nil
}

// MediaInUse reports whether a media id is referenced, as base media or
// as a target override, by any post still scheduled or publishing.
func (s *gormStore) MediaInUse(ctx context.Context, id uuid.UUID) (bool, error) {
	var linkCount int64
	err := s.db.WithContext(ctx).Model(&PostMediaLink{}).
		Joins("JOIN posts ON posts.id = post_media_links.post_id").
		Where("post_media_links.media_id = ? AND posts.status IN ? AND posts.deleted_at IS NULL",
			id, []PostStatus{PostStatusScheduled, PostStatusPublishing}).
		Count(&linkCount).Error
	if err != nil {
		return false, fmt.Errorf("store: check media base links: %w", err)
	}
	if linkCount > 0 {
		return true, nil
	}

	var targets []PlatformTarget
	err = s.db.WithContext(ctx).Model(&PlatformTarget{}).
		Joins("JOIN posts ON posts.id = platform_targets.post_id").
		Where("posts.status IN ? AND posts.deleted_at IS NULL", []PostStatus{PostStatusScheduled, PostStatusPublishing}).
		Find(&targets).Error
	if err != nil {
		return false, fmt.Errorf("store: check media overrides: %w", err)
	}
	for _, t := range targets {
		for _, mid := range t.OverrideMediaIDs {
			if mid == id {
				return true, nil
			}
		}
	}
	return false, nil
}

// GetMediaAssets resolves ids in the order given, dropping any that no
// longer exist rather than erroring the whole lookup.
func (s *gormStore) GetMediaAssets(ctx context.Context, ids []uuid.UUID) ([]MediaAsset, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var rows []MediaAsset
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("store: get media assets: %w", err)
	}

	byID := make(map[uuid.UUID]MediaAsset, len(rows))
	for _, r := range rows {
		byID[r.ID] = r
	}

	ordered := make([]MediaAsset, 0, len(ids))
	for _, id := range ids {
		if m, ok := byID[id]; ok {
			ordered = append(ordered, m)
		}
	}
	return ordered, nil
}

func (s *gormStore) ListMediaAssets(ctx context.Context) ([]MediaAsset, error) {
	var rows []MediaAsset
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("store: list media assets: %w", err)
	}
	return rows, nil
}

func (s *gormStore) DeleteMediaAsset(ctx context.Context, id uuid.UUID) error {
	if err := s.db.WithContext(ctx).Delete(&MediaAsset{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("store: delete media asset: %w", err)
	}
	return nil
}

func (s *gormStore) UpdateTarget(ctx context.Context, target *PlatformTarget) error {
	res := s.db.WithContext(ctx).Save(target)
	if res.Error != nil {
		return fmt.Errorf("store: update target: %w", res.Error)
	}
	return nil
}

func (s *gormStore) AppendAttempt(ctx context.Context, attempt *PublishAttempt) error {
	if attempt.ID == uuid.Nil {
		attempt.ID = uuid.New()
	}
	if err := s.db.WithContext(ctx).Create(attempt).Error; err != nil {
		return fmt.Errorf("store: append attempt: %w", err)
	}
	return nil
}

func (s *gormStore) CountAttempts(ctx context.Context, targetID uuid.UUID) (int, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&PublishAttempt{}).Where("target_id = ?", targetID).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("store: count attempts: %w", err)
	}
	return int(count), nil
}

func (s *gormStore) SetPostStatus(ctx context.Context, postID uuid.UUID, status PostStatus) error {
	res := s.db.WithContext(ctx).Model(&Post{}).Where("id = ?", postID).
		Updates(map[string]interface{}{"status": status, "updated_at": time.Now()})
	if res.Error != nil {
		return fmt.Errorf("store: set post status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *gormStore) GetCredential(ctx context.Context, platform Platform, accountRef string) (*PlatformCredential, error) {
	var cred PlatformCredential
	err := s.db.WithContext(ctx).First(&cred, "platform = ? AND account_ref = ?", platform, accountRef).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCredentialMissing
	}
	if err != nil {
		return nil, fmt.Errorf("store: get credential: %w", err)
	}
	return &cred, nil
}

func (s *gormStore) PutCredential(ctx context.Context, cred *PlatformCredential) error {
	if cred.ID == uuid.Nil {
		cred.ID = uuid.New()
	}
	err := s.db.WithContext(ctx).
		Where("platform = ? AND account_ref = ?", cred.Platform, cred.AccountRef).
		Assign(map[string]interface{}{"encrypted_blob": cred.EncryptedBlob, "updated_at": time.Now()}).
		FirstOrCreate(cred).Error
	if err != nil {
		return fmt.Errorf("store: put credential: %w", err)
	}
	return nil
}

func (s *gormStore) DeleteCredential(ctx context.Context, platform Platform, accountRef string) error {
	res := s.db.WithContext(ctx).Where("platform = ? AND account_ref = ?", platform, accountRef).Delete(&PlatformCredential{})
	if res.Error != nil {
		return fmt.Errorf("store: delete credential: %w", res.Error)
	}
	return nil
}

func (s *gormStore) ListConfiguredPlatforms(ctx context.Context) ([]Platform, error) {
	var platforms []Platform
	err := s.db.WithContext(ctx).Model(&PlatformCredential{}).Distinct().Pluck("platform", &platforms).Error
	if err != nil {
		return nil, fmt.Errorf("store: list configured platforms: %w", err)
	}
	return platforms, nil
}

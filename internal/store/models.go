// path: internal/store/models.go
package store

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PostStatus is the lifecycle state of a Post, reduced from the status of
// its PlatformTargets per the all-published/all-failed/mixed rule.
type PostStatus string

const (
	PostStatusDraft               PostStatus = "draft"
	PostStatusScheduled           PostStatus = "scheduled"
	PostStatusPublishing          PostStatus = "publishing"
	PostStatusPublished           PostStatus = "published"
	PostStatusPartiallyPublished  PostStatus = "partially_published"
	PostStatusFailed              PostStatus = "failed"
	PostStatusCanceled            PostStatus = "canceled"
)

// TargetStatus is the lifecycle state of a single PlatformTarget.
type TargetStatus string

const (
	TargetStatusPending    TargetStatus = "pending"
	TargetStatusPublishing TargetStatus = "publishing"
	TargetStatusPublished  TargetStatus = "published"
	TargetStatusFailed     TargetStatus = "failed"
	TargetStatusSkipped    TargetStatus = "skipped"
)

// Platform identifies one of the eight supported destinations.
type Platform string

const (
	PlatformTwitter   Platform = "twitter"
	PlatformTelegram  Platform = "telegram"
	PlatformInstagram Platform = "instagram"
	PlatformFacebook  Platform = "facebook"
	PlatformMastodon  Platform = "mastodon"
	PlatformBluesky   Platform = "bluesky"
	PlatformDiscord   Platform = "discord"
	PlatformThreads   Platform = "threads"
)

// Post is the author-facing unit of scheduling: one piece of default
// content fanned out across one or more PlatformTargets.
type Post struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Content     string     `gorm:"type:text;not null"`
	Status      PostStatus `gorm:"type:varchar(32);not null;index"`
	ScheduledAt *time.Time `gorm:"index"`
	CreatedAt   time.Time
	UpdatedAt   time.Time `gorm:"index"`
	DeletedAt   gorm.DeletedAt `gorm:"index"`

	Targets    []PlatformTarget `gorm:"foreignKey:PostID"`
	MediaLinks []PostMediaLink  `gorm:"foreignKey:PostID"`
}

// PlatformTarget is one (post, platform, account) destination, carrying
// its own override content, option values, and publish lifecycle state
// independent of its siblings.
type PlatformTarget struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey"`
	PostID   uuid.UUID `gorm:"type:uuid;not null;index"`
	Platform Platform  `gorm:"type:varchar(32);not null"`

	// ContentOverride, when non-nil, replaces Post.Content for this target.
	ContentOverride *string `gorm:"type:text"`

	// OverrideMediaIDs, when non-empty, replaces the post's base ordered
	// media for this target. Stored as a JSON array of media asset ids;
	// any id that no longer resolves is dropped, and an empty result
	// falls back to the post's base media.
	OverrideMediaIDs UUIDList `gorm:"type:jsonb"`

	// Options holds platform-specific option values (e.g. Telegram
	// parse_mode, Mastodon visibility) serialized as JSON.
	Options JSONMap `gorm:"type:jsonb"`

	Status       TargetStatus `gorm:"type:varchar(32);not null;index"`
	RetryCount   int          `gorm:"not null;default:0"`
	LastError    *string      `gorm:"type:text"`
	LastAttemptAt  *time.Time
	PlatformPostID *string    `gorm:"type:varchar(255)"`
	PlatformURL    *string    `gorm:"type:text"`
	PublishedAt    *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// PublishAttempt is an immutable audit record of one publish try against
// one PlatformTarget.
type PublishAttempt struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	TargetID   uuid.UUID `gorm:"type:uuid;not null;index"`
	AttemptNum int       `gorm:"not null"`
	Success    bool      `gorm:"not null"`
	ErrorCode  *string   `gorm:"type:varchar(64)"`
	ErrorMsg   *string   `gorm:"type:text"`
	Retryable  bool      `gorm:"not null;default:false"`
	StartedAt  time.Time
	FinishedAt time.Time
	CreatedAt  time.Time
}

// MediaType classifies a MediaAsset for the adapters' media count/type
// mixing rules (§4.2, §6.3) — a platform like Twitter or Mastodon needs to
// tell "4 images" from "1 video" apart, not just count items.
type MediaType string

const (
	MediaTypeImage MediaType = "image"
	MediaTypeVideo MediaType = "video"
)

// MediaAsset is a reference to a local file the publisher can attach to a
// target. Ingestion of bytes onto disk is out of scope; this row only
// names where they already live.
type MediaAsset struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey"`
	Type            MediaType `gorm:"type:varchar(16);not null"`
	StoragePath     string    `gorm:"type:text;not null"`
	MimeType        string    `gorm:"type:varchar(128);not null"`
	SizeBytes       int64     `gorm:"not null"`
	DurationSeconds *float64
	CreatedAt       time.Time
}

// DeriveMediaType classifies a MIME type as image or video at ingestion
// time. An unrecognized MIME type derives to "", which counts toward
// neither an adapter's image nor video limit — the upload step itself
// will reject bytes the platform can't handle.
func DeriveMediaType(mimeType string) MediaType {
	switch {
	case strings.HasPrefix(mimeType, "video/"):
		return MediaTypeVideo
	case strings.HasPrefix(mimeType, "image/"):
		return MediaTypeImage
	default:
		return ""
	}
}

// PostMediaLink orders a Post's base MediaAssets. Per-target overrides
// reference media ids directly (PlatformTarget.OverrideMediaIDs) rather
// than through their own link rows.
type PostMediaLink struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	PostID    uuid.UUID `gorm:"type:uuid;not null;index"`
	MediaID   uuid.UUID `gorm:"type:uuid;not null"`
	Position  int       `gorm:"not null;default:0"`
	CreatedAt time.Time

	Media MediaAsset `gorm:"foreignKey:MediaID"`
}

// PlatformCredential is an encrypted-at-rest credential bundle for one
// platform/account pair, keyed by (Platform, AccountRef) so the
// security.CredentialResolver can look up and decrypt the right bundle.
type PlatformCredential struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	Platform       Platform  `gorm:"type:varchar(32);not null;uniqueIndex:idx_platform_account"`
	AccountRef     string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_platform_account"`
	EncryptedBlob  []byte    `gorm:"type:bytea;not null"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (Post) TableName() string               { return "posts" }
func (PlatformTarget) TableName() string      { return "platform_targets" }
func (PublishAttempt) TableName() string      { return "publish_attempts" }
func (MediaAsset) TableName() string          { return "media_assets" }
func (PostMediaLink) TableName() string       { return "post_media_links" }
func (PlatformCredential) TableName() string  { return "platform_credentials" }

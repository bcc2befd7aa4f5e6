// path: internal/platform/adapter.go
package platform

import (
	"context"

	"github.com/techappsUT/social-scheduler/internal/store"
)

// OptionType is the closed set of value kinds a platform option field can
// carry. It describes an OptionField for clients; adapters' ValidatePost
// methods do not switch on it.
type OptionType string

const (
	OptionTypeString      OptionType = "string"
	OptionTypeEnum        OptionType = "enum"
	OptionTypeBool        OptionType = "bool"
	OptionTypeStringArray OptionType = "string_array"
)

// OptionField describes one per-platform option a PlatformTarget may set
// (e.g. Telegram parse_mode, Mastodon visibility, Bluesky languages) so a
// credentials/composition UI can render the right form without hardcoding
// per-platform knowledge.
type OptionField struct {
	Key      string
	Type     OptionType
	Allowed  []string // populated when Type == OptionTypeEnum
	Required bool
	Default  interface{}
}

// CredentialField describes one field a platform's credential bundle
// needs (API key, bot token, instance URL, ...), generalized from the
// teacher's OAuth/PlatformCapabilities scaffolding.
type CredentialField struct {
	Key      string
	Label    string
	Secret   bool
	Required bool
}

// CharacterLimits describes a platform's text-length and media
// constraints. RequiresMedia is descriptive metadata only: the adapter's
// own ValidatePost is the sole enforcement authority.
type CharacterLimits struct {
	MaxTextLength int
	MaxMediaCount int
	RequiresMedia bool
}

// Content is the resolved, ready-to-send payload for one target: the
// effective text (after override resolution) plus its ordered media and
// option values.
type Content struct {
	Text    string
	Media   []ResolvedMedia
	Options store.JSONMap
}

// ResolvedMedia is one media item with bytes accessible through Open.
type ResolvedMedia struct {
	AssetID     string
	Type        store.MediaType
	StoragePath string
	MimeType    string
}

// PublishResult is what a successful adapter Publish call returns to be
// recorded on the PlatformTarget.
type PublishResult struct {
	PlatformPostID string
	URL            string
}

// Error is the adapter-side error classification attached to each
// PublishAttempt. It is a parallel, domain-specific taxonomy alongside Go's
// own error values, not a replacement for them.
type Error struct {
	Code      string
	Message   string
	Retryable bool
	Cause     error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

const (
	ErrCodeValidationFailed     = "VALIDATION_FAILED"
	ErrCodePlatformUnavailable  = "PLATFORM_UNAVAILABLE"
	ErrCodeRateLimited          = "RATE_LIMITED"
	ErrCodeAuthFailed           = "AUTH_FAILED"
	ErrCodeMediaUploadFailed    = "MEDIA_UPLOAD_FAILED"
	ErrCodeMediaNotReady        = "MEDIA_NOT_READY"
	ErrCodeUnknown              = "UNKNOWN"
)

// Adapter is the contract every platform implementation satisfies,
// generalized from the teacher's SocialAdapter interface: OAuth token
// plumbing is replaced by a resolved Credential (§1 out-of-scope
// acquisition UX), and PostContent is split into the pipeline's own
// validate/upload/publish steps so the publisher can interleave them with
// attempt bookkeeping.
type Adapter interface {
	Platform() store.Platform

	CredentialFields() []CredentialField
	OptionFields() []OptionField
	CharacterLimits() CharacterLimits

	// VerifyCredentials succeeds iff cred can authenticate against the
	// remote service, independent of whether every CredentialFields
	// entry happens to be present. Used by the credentials API before a
	// save.
	VerifyCredentials(ctx context.Context, cred Credential) error

	// ValidatePost is the sole authority on whether Content is
	// publishable to this platform, independent of CharacterLimits'
	// descriptive metadata.
	ValidatePost(ctx context.Context, cred Credential, content Content) error

	// UploadMedia uploads one media item ahead of Publish, returning a
	// platform-specific handle (media ID, container ID, blob ref) that
	// Publish or a PollUntilReady caller can reference.
	UploadMedia(ctx context.Context, cred Credential, media ResolvedMedia) (string, error)

	// Publish sends the resolved content (with any uploaded media
	// handles already folded into content/implementation state) and
	// returns the platform's own post identifiers.
	Publish(ctx context.Context, cred Credential, content Content, mediaHandles []string) (*PublishResult, error)
}

// Credential is the decrypted, in-memory form of a PlatformCredential row,
// scoped to a single adapter call and never persisted outside Store.
type Credential struct {
	AccountRef string
	Values     map[string]string
}

// path: internal/httpapi/dto.go
package httpapi

import "github.com/techappsUT/social-scheduler/internal/store"

// targetRequest is one platform target as accepted from createPost /
// updatePost, mirroring spec.md §6.1's
// {platform, overrideContent?, overrideMediaRefs?, overrideOptions?}.
type targetRequest struct {
	Platform         string                 `json:"platform" validate:"required,oneof=twitter telegram instagram facebook mastodon bluesky discord threads"`
	OverrideContent  *string                `json:"overrideContent,omitempty"`
	OverrideMediaIDs []string               `json:"overrideMediaRefs,omitempty" validate:"dive,uuid4"`
	OverrideOptions  map[string]interface{} `json:"overrideOptions,omitempty"`
}

// createPostRequest is the body for POST /posts.
type createPostRequest struct {
	BaseContent    string          `json:"baseContent" validate:"required"`
	ScheduledAtUTC string          `json:"scheduledAtUtc" validate:"required"`
	MediaIDs       []string        `json:"mediaIds,omitempty" validate:"dive,uuid4"`
	Targets        []targetRequest `json:"targets" validate:"required,min=1,dive"`
}

// updatePostRequest is the body for PUT /posts/{id}. Nil slices mean
// "leave unchanged" is NOT supported: per spec.md §6.1, an update that
// supplies targets or media replaces them wholesale.
type updatePostRequest struct {
	BaseContent    string          `json:"baseContent" validate:"required"`
	ScheduledAtUTC string          `json:"scheduledAtUtc" validate:"required"`
	MediaIDs       []string        `json:"mediaIds,omitempty" validate:"dive,uuid4"`
	Targets        []targetRequest `json:"targets" validate:"required,min=1,dive"`
}

// setCredentialsRequest is the body for PUT /credentials/{platform}.
type setCredentialsRequest struct {
	Values map[string]string `json:"values" validate:"required"`
}

type mediaAssetResponse struct {
	ID          string `json:"id"`
	StoragePath string `json:"storagePath"`
	MimeType    string `json:"mimeType"`
	SizeBytes   int64  `json:"sizeBytes"`
}

type targetResponse struct {
	ID               string                 `json:"id"`
	Platform         string                 `json:"platform"`
	OverrideContent  *string                `json:"overrideContent,omitempty"`
	OverrideMediaIDs []string               `json:"overrideMediaRefs,omitempty"`
	Options          map[string]interface{} `json:"overrideOptions,omitempty"`
	Status           string                 `json:"status"`
	RetryCount       int                    `json:"retryCount"`
	LastError        *string                `json:"failureReason,omitempty"`
	LastAttemptAt    *string                `json:"lastAttemptAt,omitempty"`
	PlatformPostID   *string                `json:"remotePostId,omitempty"`
	PlatformURL      *string                `json:"remoteUrl,omitempty"`
	PublishedAt      *string                `json:"publishedAt,omitempty"`
}

type postResponse struct {
	ID          string               `json:"id"`
	BaseContent string               `json:"baseContent"`
	Status      string               `json:"status"`
	ScheduledAt *string              `json:"scheduledAtUtc,omitempty"`
	CreatedAt   string               `json:"createdAt"`
	UpdatedAt   string               `json:"updatedAt"`
	Media       []mediaAssetResponse `json:"media"`
	Targets     []targetResponse     `json:"targets"`
}

func toPostResponse(p *store.Post) postResponse {
	out := postResponse{
		ID:          p.ID.String(),
		BaseContent: p.Content,
		Status:      string(p.Status),
		CreatedAt:   p.CreatedAt.UTC().Format(timeLayout),
		UpdatedAt:   p.UpdatedAt.UTC().Format(timeLayout),
	}
	if p.ScheduledAt != nil {
		s := p.ScheduledAt.UTC().Format(timeLayout)
		out.ScheduledAt = &s
	}

	out.Media = make([]mediaAssetResponse, 0, len(p.MediaLinks))
	for _, l := range p.MediaLinks {
		out.Media = append(out.Media, mediaAssetResponse{
			ID:          l.Media.ID.String(),
			StoragePath: l.Media.StoragePath,
			MimeType:    l.Media.MimeType,
			SizeBytes:   l.Media.SizeBytes,
		})
	}

	out.Targets = make([]targetResponse, 0, len(p.Targets))
	for _, t := range p.Targets {
		tr := targetResponse{
			ID:              t.ID.String(),
			Platform:        string(t.Platform),
			OverrideContent: t.ContentOverride,
			Status:          string(t.Status),
			RetryCount:      t.RetryCount,
			LastError:       t.LastError,
			PlatformPostID:  t.PlatformPostID,
			PlatformURL:     t.PlatformURL,
		}
		if len(t.OverrideMediaIDs) > 0 {
			ids := make([]string, len(t.OverrideMediaIDs))
			for i, id := range t.OverrideMediaIDs {
				ids[i] = id.String()
			}
			tr.OverrideMediaIDs = ids
		}
		if len(t.Options) > 0 {
			tr.Options = t.Options
		}
		if t.LastAttemptAt != nil {
			s := t.LastAttemptAt.UTC().Format(timeLayout)
			tr.LastAttemptAt = &s
		}
		if t.PublishedAt != nil {
			s := t.PublishedAt.UTC().Format(timeLayout)
			tr.PublishedAt = &s
		}
		out.Targets = append(out.Targets, tr)
	}

	return out
}

const timeLayout = "2006-01-02T15:04:05.999999999Z07:00"

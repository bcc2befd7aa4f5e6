// path: internal/platform/adapters/mastodon.go
package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"
	"unicode/utf8"

	"github.com/techappsUT/social-scheduler/internal/platform"
	"github.com/techappsUT/social-scheduler/internal/store"
)

// MastodonAdapter targets the v2 media endpoint, which processes larger
// attachments asynchronously and must be polled before the status can
// reference them, the same container-then-poll shape as Instagram/Threads
// but scoped to media rather than the whole post.
type MastodonAdapter struct {
	httpClient *http.Client
}

func NewMastodonAdapter() *MastodonAdapter {
	return &MastodonAdapter{httpClient: &http.Client{Timeout: 30 * time.Second}}
}

func (m *MastodonAdapter) Platform() store.Platform { return store.PlatformMastodon }

func (m *MastodonAdapter) CredentialFields() []platform.CredentialField {
	return []platform.CredentialField{
		{Key: "instance_url", Label: "Instance URL", Secret: false, Required: true},
		{Key: "access_token", Label: "Access Token", Secret: true, Required: true},
	}
}

func (m *MastodonAdapter) OptionFields() []platform.OptionField {
	return []platform.OptionField{
		{Key: "visibility", Type: platform.OptionTypeEnum, Allowed: []string{"public", "unlisted", "private", "direct"}, Default: "public"},
	}
}

func (m *MastodonAdapter) CharacterLimits() platform.CharacterLimits {
	return platform.CharacterLimits{MaxTextLength: 500, MaxMediaCount: 4}
}

func (m *MastodonAdapter) VerifyCredentials(ctx context.Context, cred platform.Credential) error {
	endpoint := cred.Values["instance_url"] + "/api/v1/accounts/verify_credentials"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return &platform.Error{Code: platform.ErrCodeUnknown, Message: "build verify request", Cause: err}
	}
	req.Header.Set("Authorization", "Bearer "+cred.Values["access_token"])

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return &platform.Error{Code: platform.ErrCodePlatformUnavailable, Message: "mastodon verify request failed", Retryable: true, Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return &platform.Error{Code: platform.ErrCodeAuthFailed, Message: "mastodon credentials rejected"}
	}
	if resp.StatusCode != http.StatusOK {
		return &platform.Error{Code: platform.ErrCodePlatformUnavailable, Message: fmt.Sprintf("mastodon verify returned %d", resp.StatusCode), Retryable: true}
	}
	return nil
}

func (m *MastodonAdapter) ValidatePost(ctx context.Context, cred platform.Credential, content platform.Content) error {
	if utf8.RuneCountInString(content.Text) > 500 {
		return &platform.Error{Code: platform.ErrCodeValidationFailed, Message: "toot exceeds 500 characters"}
	}
	if images, videos := countMediaByType(content.Media); images > 0 && videos > 0 {
		return &platform.Error{Code: platform.ErrCodeValidationFailed, Message: "toot cannot mix images and video"}
	} else if len(content.Media) > 4 {
		return &platform.Error{Code: platform.ErrCodeValidationFailed, Message: "toot supports at most 4 media items"}
	}
	if vis, ok := content.Options["visibility"]; ok {
		v, _ := vis.(string)
		switch v {
		case "", "public", "unlisted", "private", "direct":
		default:
			return &platform.Error{Code: platform.ErrCodeValidationFailed, Message: "invalid visibility"}
		}
	}
	return nil
}

func (m *MastodonAdapter) UploadMedia(ctx context.Context, cred platform.Credential, media platform.ResolvedMedia) (string, error) {
	file, err := os.Open(media.StoragePath)
	if err != nil {
		return "", &platform.Error{Code: platform.ErrCodeMediaUploadFailed, Message: "read media file", Cause: err}
	}
	defer file.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filepath.Base(media.StoragePath))
	if err != nil {
		return "", &platform.Error{Code: platform.ErrCodeMediaUploadFailed, Message: "build multipart request", Cause: err}
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", &platform.Error{Code: platform.ErrCodeMediaUploadFailed, Message: "copy media bytes", Cause: err}
	}
	_ = writer.Close()

	endpoint := cred.Values["instance_url"] + "/api/v2/media"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return "", &platform.Error{Code: platform.ErrCodeMediaUploadFailed, Message: "build media request", Cause: err}
	}
	req.Header.Set("Authorization", "Bearer "+cred.Values["access_token"])
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return "", &platform.Error{Code: platform.ErrCodeMediaUploadFailed, Message: "mastodon media upload failed", Retryable: true, Cause: err}
	}
	defer resp.Body.Close()

	var result struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", &platform.Error{Code: platform.ErrCodeUnknown, Message: "decode media response", Cause: err}
	}

	if resp.StatusCode == http.StatusAccepted {
		if err := m.waitForAttachment(ctx, cred, result.ID); err != nil {
			return "", err
		}
	}

	return result.ID, nil
}

func (m *MastodonAdapter) waitForAttachment(ctx context.Context, cred platform.Credential, attachmentID string) error {
	endpoint := fmt.Sprintf("%s/api/v1/media/%s", cred.Values["instance_url"], attachmentID)

	return platform.PollUntilReady(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+cred.Values["access_token"])

		resp, err := m.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusPartialContent {
			return platform.ErrNotReady
		}
		if resp.StatusCode != http.StatusOK {
			return &platform.Error{Code: platform.ErrCodeMediaNotReady, Message: "mastodon attachment failed processing"}
		}
		return nil
	})
}

func (m *MastodonAdapter) Publish(ctx context.Context, cred platform.Credential, content platform.Content, mediaHandles []string) (*platform.PublishResult, error) {
	visibility := "public"
	if v, ok := content.Options["visibility"].(string); ok && v != "" {
		visibility = v
	}

	payload := map[string]interface{}{
		"status":     content.Text,
		"visibility": visibility,
	}
	if len(mediaHandles) > 0 {
		payload["media_ids"] = mediaHandles
	}

	body, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cred.Values["instance_url"]+"/api/v1/statuses", bytes.NewReader(body))
	if err != nil {
		return nil, &platform.Error{Code: platform.ErrCodeUnknown, Message: "build status request", Cause: err}
	}
	req.Header.Set("Authorization", "Bearer "+cred.Values["access_token"])
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, &platform.Error{Code: platform.ErrCodePlatformUnavailable, Message: "mastodon publish failed", Retryable: true, Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &platform.Error{Code: platform.ErrCodeRateLimited, Message: "mastodon rate limited", Retryable: true}
	}
	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(resp.Body)
		return nil, &platform.Error{Code: platform.ErrCodeValidationFailed, Message: fmt.Sprintf("mastodon rejected status: %s", string(b))}
	}

	var result struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &platform.Error{Code: platform.ErrCodeUnknown, Message: "decode status response", Cause: err}
	}

	return &platform.PublishResult{PlatformPostID: result.ID, URL: result.URL}, nil
}

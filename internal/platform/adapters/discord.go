// path: internal/platform/adapters/discord.go
package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"
	"unicode/utf8"

	"github.com/techappsUT/social-scheduler/internal/platform"
	"github.com/techappsUT/social-scheduler/internal/store"
)

// DiscordAdapter publishes through an incoming webhook. No Discord SDK
// is present in the retrieval pack, so this is a deliberate stdlib
// net/http client (see DESIGN.md).
type DiscordAdapter struct {
	httpClient *http.Client
}

func NewDiscordAdapter() *DiscordAdapter {
	return &DiscordAdapter{httpClient: &http.Client{Timeout: 30 * time.Second}}
}

func (d *DiscordAdapter) Platform() store.Platform { return store.PlatformDiscord }

func (d *DiscordAdapter) CredentialFields() []platform.CredentialField {
	return []platform.CredentialField{
		{Key: "webhook_url", Label: "Webhook URL", Secret: true, Required: true},
	}
}

func (d *DiscordAdapter) OptionFields() []platform.OptionField { return nil }

func (d *DiscordAdapter) CharacterLimits() platform.CharacterLimits {
	return platform.CharacterLimits{MaxTextLength: 2000, MaxMediaCount: 10}
}

func (d *DiscordAdapter) VerifyCredentials(ctx context.Context, cred platform.Credential) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cred.Values["webhook_url"], nil)
	if err != nil {
		return &platform.Error{Code: platform.ErrCodeUnknown, Message: "build verify request", Cause: err}
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return &platform.Error{Code: platform.ErrCodePlatformUnavailable, Message: "discord verify request failed", Retryable: true, Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusNotFound {
		return &platform.Error{Code: platform.ErrCodeAuthFailed, Message: "discord webhook rejected"}
	}
	if resp.StatusCode != http.StatusOK {
		return &platform.Error{Code: platform.ErrCodePlatformUnavailable, Message: fmt.Sprintf("discord verify returned %d", resp.StatusCode), Retryable: true}
	}
	return nil
}

func (d *DiscordAdapter) ValidatePost(ctx context.Context, cred platform.Credential, content platform.Content) error {
	if len(content.Text) == 0 && len(content.Media) == 0 {
		return &platform.Error{Code: platform.ErrCodeValidationFailed, Message: "message requires content or media"}
	}
	if utf8.RuneCountInString(content.Text) > 2000 {
		return &platform.Error{Code: platform.ErrCodeValidationFailed, Message: "message exceeds 2000 characters"}
	}
	return nil
}

// UploadMedia for Discord is a no-op handle: attachments ride along in
// the same multipart webhook request as the message.
func (d *DiscordAdapter) UploadMedia(ctx context.Context, cred platform.Credential, media platform.ResolvedMedia) (string, error) {
	return media.StoragePath, nil
}

func (d *DiscordAdapter) Publish(ctx context.Context, cred platform.Credential, content platform.Content, mediaHandles []string) (*platform.PublishResult, error) {
	endpoint := cred.Values["webhook_url"] + "?wait=true"

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	payload := map[string]interface{}{"content": content.Text}
	payloadJSON, _ := json.Marshal(payload)
	_ = writer.WriteField("payload_json", string(payloadJSON))

	for idx, path := range mediaHandles {
		file, err := os.Open(path)
		if err != nil {
			return nil, &platform.Error{Code: platform.ErrCodeMediaUploadFailed, Message: "read media file", Cause: err}
		}
		part, err := writer.CreateFormFile(fmt.Sprintf("files[%d]", idx), filepath.Base(path))
		if err != nil {
			file.Close()
			return nil, &platform.Error{Code: platform.ErrCodeMediaUploadFailed, Message: "build multipart file", Cause: err}
		}
		if _, err := copyAndClose(part, file); err != nil {
			return nil, &platform.Error{Code: platform.ErrCodeMediaUploadFailed, Message: "copy media bytes", Cause: err}
		}
	}
	_ = writer.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return nil, &platform.Error{Code: platform.ErrCodeUnknown, Message: "build webhook request", Cause: err}
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, &platform.Error{Code: platform.ErrCodePlatformUnavailable, Message: "discord webhook failed", Retryable: true, Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &platform.Error{Code: platform.ErrCodeRateLimited, Message: "discord rate limited", Retryable: true}
	}
	if resp.StatusCode >= 400 {
		return nil, &platform.Error{Code: platform.ErrCodeValidationFailed, Message: fmt.Sprintf("discord rejected message: %d", resp.StatusCode)}
	}

	var result struct {
		ID        string `json:"id"`
		ChannelID string `json:"channel_id"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&result)

	return &platform.PublishResult{
		PlatformPostID: result.ID,
		URL:            fmt.Sprintf("https://discord.com/channels/@me/%s/%s", result.ChannelID, result.ID),
	}, nil
}

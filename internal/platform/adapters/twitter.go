// path: internal/platform/adapters/twitter.go
package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"
	"unicode/utf8"

	gotwitter "github.com/dghubble/go-twitter/twitter"
	"github.com/dghubble/oauth1"
	"github.com/techappsUT/social-scheduler/internal/platform"
	"github.com/techappsUT/social-scheduler/internal/store"
)

// TwitterAdapter publishes through the v1.1 media/upload endpoint (via
// dghubble/go-twitter + oauth1, the only client in the pack that speaks
// v1.1 media) followed by a raw v2 tweet create call, matching the split
// the teacher's own adapter hints at but never implements.
type TwitterAdapter struct {
	httpClient *http.Client
}

func NewTwitterAdapter() *TwitterAdapter {
	return &TwitterAdapter{httpClient: &http.Client{Timeout: 30 * time.Second}}
}

func (t *TwitterAdapter) Platform() store.Platform { return store.PlatformTwitter }

func (t *TwitterAdapter) CredentialFields() []platform.CredentialField {
	return []platform.CredentialField{
		{Key: "api_key", Label: "API Key", Secret: true, Required: true},
		{Key: "api_secret", Label: "API Secret", Secret: true, Required: true},
		{Key: "access_token", Label: "Access Token", Secret: true, Required: true},
		{Key: "access_token_secret", Label: "Access Token Secret", Secret: true, Required: true},
	}
}

func (t *TwitterAdapter) OptionFields() []platform.OptionField { return nil }

func (t *TwitterAdapter) CharacterLimits() platform.CharacterLimits {
	return platform.CharacterLimits{MaxTextLength: 280, MaxMediaCount: 4}
}

func (t *TwitterAdapter) VerifyCredentials(ctx context.Context, cred platform.Credential) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://api.twitter.com/2/users/me", nil)
	if err != nil {
		return &platform.Error{Code: platform.ErrCodeUnknown, Message: "build verify request", Cause: err}
	}

	resp, err := t.oauthClient(cred).Do(req)
	if err != nil {
		return &platform.Error{Code: platform.ErrCodePlatformUnavailable, Message: "twitter verify request failed", Retryable: true, Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return &platform.Error{Code: platform.ErrCodeAuthFailed, Message: "twitter credentials rejected"}
	}
	if resp.StatusCode != http.StatusOK {
		return &platform.Error{Code: platform.ErrCodePlatformUnavailable, Message: fmt.Sprintf("twitter verify returned %d", resp.StatusCode), Retryable: true}
	}
	return nil
}

func (t *TwitterAdapter) ValidatePost(ctx context.Context, cred platform.Credential, content platform.Content) error {
	if utf8.RuneCountInString(content.Text) == 0 && len(content.Media) == 0 {
		return &platform.Error{Code: platform.ErrCodeValidationFailed, Message: "tweet requires text or media"}
	}
	if utf8.RuneCountInString(content.Text) > 280 {
		return &platform.Error{Code: platform.ErrCodeValidationFailed, Message: "tweet exceeds 280 characters"}
	}
	if images, videos := countMediaByType(content.Media); videos > 0 && images > 0 {
		return &platform.Error{Code: platform.ErrCodeValidationFailed, Message: "tweet cannot mix images and video"}
	} else if videos > 1 {
		return &platform.Error{Code: platform.ErrCodeValidationFailed, Message: "tweet supports at most 1 video"}
	} else if videos == 0 && images > 4 {
		return &platform.Error{Code: platform.ErrCodeValidationFailed, Message: "tweet supports at most 4 images"}
	}
	return nil
}

func (t *TwitterAdapter) oauthClient(cred platform.Credential) *http.Client {
	config := oauth1.NewConfig(cred.Values["api_key"], cred.Values["api_secret"])
	token := oauth1.NewToken(cred.Values["access_token"], cred.Values["access_token_secret"])
	return config.Client(oauth1.NoContext, token)
}

func (t *TwitterAdapter) UploadMedia(ctx context.Context, cred platform.Credential, media platform.ResolvedMedia) (string, error) {
	data, err := os.ReadFile(media.StoragePath)
	if err != nil {
		return "", &platform.Error{Code: platform.ErrCodeMediaUploadFailed, Message: "read media file", Cause: err}
	}

	client := gotwitter.NewClient(t.oauthClient(cred))
	uploaded, _, err := client.Media.Upload(data, media.MimeType)
	if err != nil {
		return "", &platform.Error{Code: platform.ErrCodeMediaUploadFailed, Message: "twitter media upload failed", Retryable: true, Cause: err}
	}
	return uploaded.MediaIDString, nil
}

func (t *TwitterAdapter) Publish(ctx context.Context, cred platform.Credential, content platform.Content, mediaHandles []string) (*platform.PublishResult, error) {
	payload := map[string]interface{}{"text": content.Text}
	if len(mediaHandles) > 0 {
		payload["media"] = map[string]interface{}{"media_ids": mediaHandles}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &platform.Error{Code: platform.ErrCodeUnknown, Message: "encode tweet payload", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://api.twitter.com/2/tweets", bytes.NewReader(body))
	if err != nil {
		return nil, &platform.Error{Code: platform.ErrCodeUnknown, Message: "build tweet request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.oauthClient(cred).Do(req)
	if err != nil {
		return nil, &platform.Error{Code: platform.ErrCodePlatformUnavailable, Message: "tweet request failed", Retryable: true, Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &platform.Error{Code: platform.ErrCodeRateLimited, Message: "twitter rate limited", Retryable: true}
	}
	if resp.StatusCode >= 500 {
		return nil, &platform.Error{Code: platform.ErrCodePlatformUnavailable, Message: fmt.Sprintf("twitter returned %d", resp.StatusCode), Retryable: true}
	}
	if resp.StatusCode >= 400 {
		return nil, &platform.Error{Code: platform.ErrCodeValidationFailed, Message: fmt.Sprintf("twitter rejected tweet: %d", resp.StatusCode)}
	}

	var result struct {
		Data struct {
			ID   string `json:"id"`
			Text string `json:"text"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &platform.Error{Code: platform.ErrCodeUnknown, Message: "decode tweet response", Cause: err}
	}

	return &platform.PublishResult{
		PlatformPostID: result.Data.ID,
		URL:            fmt.Sprintf("https://twitter.com/i/status/%s", result.Data.ID),
	}, nil
}

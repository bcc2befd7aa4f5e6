// path: internal/platform/adapters/instagram.go
package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
	"unicode/utf8"

	"github.com/techappsUT/social-scheduler/internal/platform"
	"github.com/techappsUT/social-scheduler/internal/store"
)

// InstagramAdapter follows the Graph API container pattern: create a
// media container, poll its status_code until FINISHED, then publish it.
// Container lookups are grounded on the other_examples Instagram importer
// reading media through the same Graph API shape.
type InstagramAdapter struct {
	httpClient *http.Client
	graphHost  string
}

func NewInstagramAdapter() *InstagramAdapter {
	return &InstagramAdapter{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		graphHost:  "https://graph.facebook.com/v19.0",
	}
}

func (i *InstagramAdapter) Platform() store.Platform { return store.PlatformInstagram }

func (i *InstagramAdapter) CredentialFields() []platform.CredentialField {
	return []platform.CredentialField{
		{Key: "access_token", Label: "Access Token", Secret: true, Required: true},
		{Key: "business_account_id", Label: "Business Account ID", Secret: false, Required: true},
	}
}

func (i *InstagramAdapter) OptionFields() []platform.OptionField { return nil }

func (i *InstagramAdapter) CharacterLimits() platform.CharacterLimits {
	return platform.CharacterLimits{MaxTextLength: 2200, MaxMediaCount: 10, RequiresMedia: true}
}

func (i *InstagramAdapter) VerifyCredentials(ctx context.Context, cred platform.Credential) error {
	endpoint := fmt.Sprintf("%s/%s?fields=id&access_token=%s", i.graphHost, cred.Values["business_account_id"], cred.Values["access_token"])
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return &platform.Error{Code: platform.ErrCodeUnknown, Message: "build verify request", Cause: err}
	}

	resp, err := i.httpClient.Do(req)
	if err != nil {
		return &platform.Error{Code: platform.ErrCodePlatformUnavailable, Message: "instagram verify request failed", Retryable: true, Cause: err}
	}
	defer resp.Body.Close()

	var result struct {
		ID    string `json:"id"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return &platform.Error{Code: platform.ErrCodeUnknown, Message: "decode instagram verify response", Cause: err}
	}
	if result.Error != nil || result.ID == "" {
		return &platform.Error{Code: platform.ErrCodeAuthFailed, Message: "instagram credentials rejected"}
	}
	return nil
}

func (i *InstagramAdapter) ValidatePost(ctx context.Context, cred platform.Credential, content platform.Content) error {
	if len(content.Media) == 0 {
		return &platform.Error{Code: platform.ErrCodeValidationFailed, Message: "instagram requires at least one image or video"}
	}
	if utf8.RuneCountInString(content.Text) > 2200 {
		return &platform.Error{Code: platform.ErrCodeValidationFailed, Message: "caption exceeds 2200 characters"}
	}
	if len(content.Media) > 10 {
		return &platform.Error{Code: platform.ErrCodeValidationFailed, Message: "instagram carousel supports at most 10 media items"}
	}
	return nil
}

// UploadMedia creates a media container, waits for it to become ready
// via waitForContainer, and returns its container ID.
func (i *InstagramAdapter) UploadMedia(ctx context.Context, cred platform.Credential, media platform.ResolvedMedia) (string, error) {
	form := url.Values{}
	form.Set("access_token", cred.Values["access_token"])
	form.Set("image_url", media.StoragePath)

	endpoint := fmt.Sprintf("%s/%s/media", i.graphHost, cred.Values["business_account_id"])
	resp, err := i.httpClient.PostForm(endpoint, form)
	if err != nil {
		return "", &platform.Error{Code: platform.ErrCodeMediaUploadFailed, Message: "create instagram container", Retryable: true, Cause: err}
	}
	defer resp.Body.Close()

	var result struct {
		ID    string `json:"id"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", &platform.Error{Code: platform.ErrCodeUnknown, Message: "decode container response", Cause: err}
	}
	if result.Error != nil {
		return "", &platform.Error{Code: platform.ErrCodeMediaUploadFailed, Message: result.Error.Message}
	}

	if err := i.waitForContainer(ctx, cred, result.ID); err != nil {
		return "", err
	}

	return result.ID, nil
}

func (i *InstagramAdapter) waitForContainer(ctx context.Context, cred platform.Credential, containerID string) error {
	endpoint := fmt.Sprintf("%s/%s?fields=status_code&access_token=%s", i.graphHost, containerID, cred.Values["access_token"])

	return platform.PollUntilReady(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return err
		}
		resp, err := i.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		var status struct {
			StatusCode string `json:"status_code"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
			return err
		}

		switch status.StatusCode {
		case "FINISHED":
			return nil
		case "ERROR", "EXPIRED":
			return &platform.Error{Code: platform.ErrCodeMediaNotReady, Message: "instagram container failed processing"}
		default:
			return platform.ErrNotReady
		}
	})
}

func (i *InstagramAdapter) Publish(ctx context.Context, cred platform.Credential, content platform.Content, mediaHandles []string) (*platform.PublishResult, error) {
	if len(mediaHandles) == 0 {
		return nil, &platform.Error{Code: platform.ErrCodeValidationFailed, Message: "no media container to publish"}
	}

	form := url.Values{}
	form.Set("access_token", cred.Values["access_token"])
	form.Set("creation_id", mediaHandles[0])

	endpoint := fmt.Sprintf("%s/%s/media_publish", i.graphHost, cred.Values["business_account_id"])
	resp, err := i.httpClient.PostForm(endpoint, form)
	if err != nil {
		return nil, &platform.Error{Code: platform.ErrCodePlatformUnavailable, Message: "instagram publish failed", Retryable: true, Cause: err}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	var result struct {
		ID    string `json:"id"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, &platform.Error{Code: platform.ErrCodeUnknown, Message: "decode publish response", Cause: err}
	}
	if result.Error != nil {
		return nil, &platform.Error{Code: platform.ErrCodePlatformUnavailable, Message: result.Error.Message, Retryable: true}
	}
	if result.ID == "" {
		return nil, &platform.Error{Code: platform.ErrCodeUnknown, Message: "instagram publish returned no id", Cause: errors.New(string(body))}
	}

	return &platform.PublishResult{
		PlatformPostID: result.ID,
		URL:            fmt.Sprintf("https://www.instagram.com/p/%s/", result.ID),
	}, nil
}

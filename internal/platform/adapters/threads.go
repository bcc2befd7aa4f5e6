// path: internal/platform/adapters/threads.go
package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
	"unicode/utf8"

	"github.com/techappsUT/social-scheduler/internal/platform"
	"github.com/techappsUT/social-scheduler/internal/store"
)

// ThreadsAdapter mirrors Instagram's Graph-API-derived container pattern:
// create a media container, poll until it finishes processing, then
// publish it.
type ThreadsAdapter struct {
	httpClient *http.Client
	apiHost    string
}

func NewThreadsAdapter() *ThreadsAdapter {
	return &ThreadsAdapter{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		apiHost:    "https://graph.threads.net/v1.0",
	}
}

func (t *ThreadsAdapter) Platform() store.Platform { return store.PlatformThreads }

func (t *ThreadsAdapter) CredentialFields() []platform.CredentialField {
	return []platform.CredentialField{
		{Key: "access_token", Label: "Access Token", Secret: true, Required: true},
		{Key: "user_id", Label: "Threads User ID", Secret: false, Required: true},
	}
}

func (t *ThreadsAdapter) OptionFields() []platform.OptionField { return nil }

func (t *ThreadsAdapter) CharacterLimits() platform.CharacterLimits {
	return platform.CharacterLimits{MaxTextLength: 500, MaxMediaCount: 20}
}

func (t *ThreadsAdapter) VerifyCredentials(ctx context.Context, cred platform.Credential) error {
	endpoint := fmt.Sprintf("%s/%s?fields=id&access_token=%s", t.apiHost, cred.Values["user_id"], cred.Values["access_token"])
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return &platform.Error{Code: platform.ErrCodeUnknown, Message: "build verify request", Cause: err}
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return &platform.Error{Code: platform.ErrCodePlatformUnavailable, Message: "threads verify request failed", Retryable: true, Cause: err}
	}
	defer resp.Body.Close()

	var result struct {
		ID    string `json:"id"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return &platform.Error{Code: platform.ErrCodeUnknown, Message: "decode threads verify response", Cause: err}
	}
	if result.Error != nil || result.ID == "" {
		return &platform.Error{Code: platform.ErrCodeAuthFailed, Message: "threads credentials rejected"}
	}
	return nil
}

func (t *ThreadsAdapter) ValidatePost(ctx context.Context, cred platform.Credential, content platform.Content) error {
	if len(content.Text) == 0 && len(content.Media) == 0 {
		return &platform.Error{Code: platform.ErrCodeValidationFailed, Message: "thread requires text or media"}
	}
	if utf8.RuneCountInString(content.Text) > 500 {
		return &platform.Error{Code: platform.ErrCodeValidationFailed, Message: "thread exceeds 500 characters"}
	}
	if images, videos := countMediaByType(content.Media); videos > 0 && images > 0 {
		return &platform.Error{Code: platform.ErrCodeValidationFailed, Message: "thread cannot mix images and video"}
	} else if videos > 1 {
		return &platform.Error{Code: platform.ErrCodeValidationFailed, Message: "thread supports at most 1 video"}
	} else if videos == 0 && images > 20 {
		return &platform.Error{Code: platform.ErrCodeValidationFailed, Message: "thread supports at most 20 images"}
	}
	return nil
}

func (t *ThreadsAdapter) UploadMedia(ctx context.Context, cred platform.Credential, media platform.ResolvedMedia) (string, error) {
	form := url.Values{}
	form.Set("access_token", cred.Values["access_token"])
	form.Set("media_type", "IMAGE")
	form.Set("image_url", media.StoragePath)

	endpoint := fmt.Sprintf("%s/%s/threads", t.apiHost, cred.Values["user_id"])
	resp, err := t.httpClient.PostForm(endpoint, form)
	if err != nil {
		return "", &platform.Error{Code: platform.ErrCodeMediaUploadFailed, Message: "create threads container", Retryable: true, Cause: err}
	}
	defer resp.Body.Close()

	var result struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", &platform.Error{Code: platform.ErrCodeUnknown, Message: "decode container response", Cause: err}
	}

	if err := t.waitForContainer(ctx, cred, result.ID); err != nil {
		return "", err
	}

	return result.ID, nil
}

func (t *ThreadsAdapter) waitForContainer(ctx context.Context, cred platform.Credential, containerID string) error {
	endpoint := fmt.Sprintf("%s/%s?fields=status&access_token=%s", t.apiHost, containerID, cred.Values["access_token"])

	return platform.PollUntilReady(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return err
		}
		resp, err := t.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		var status struct {
			Status string `json:"status"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
			return err
		}

		switch status.Status {
		case "FINISHED":
			return nil
		case "ERROR", "EXPIRED":
			return &platform.Error{Code: platform.ErrCodeMediaNotReady, Message: "threads container failed processing"}
		default:
			return platform.ErrNotReady
		}
	})
}

func (t *ThreadsAdapter) Publish(ctx context.Context, cred platform.Credential, content platform.Content, mediaHandles []string) (*platform.PublishResult, error) {
	form := url.Values{}
	form.Set("access_token", cred.Values["access_token"])

	var creationID string
	if len(mediaHandles) > 0 {
		creationID = mediaHandles[0]
	} else {
		form.Set("media_type", "TEXT")
		form.Set("text", content.Text)
		endpoint := fmt.Sprintf("%s/%s/threads", t.apiHost, cred.Values["user_id"])
		resp, err := t.httpClient.PostForm(endpoint, form)
		if err != nil {
			return nil, &platform.Error{Code: platform.ErrCodePlatformUnavailable, Message: "create text container failed", Retryable: true, Cause: err}
		}
		defer resp.Body.Close()
		var result struct {
			ID string `json:"id"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return nil, &platform.Error{Code: platform.ErrCodeUnknown, Message: "decode container response", Cause: err}
		}
		creationID = result.ID
	}

	publishForm := url.Values{}
	publishForm.Set("access_token", cred.Values["access_token"])
	publishForm.Set("creation_id", creationID)

	endpoint := fmt.Sprintf("%s/%s/threads_publish", t.apiHost, cred.Values["user_id"])
	resp, err := t.httpClient.PostForm(endpoint, publishForm)
	if err != nil {
		return nil, &platform.Error{Code: platform.ErrCodePlatformUnavailable, Message: "threads publish failed", Retryable: true, Cause: err}
	}
	defer resp.Body.Close()

	var result struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &platform.Error{Code: platform.ErrCodeUnknown, Message: "decode publish response", Cause: err}
	}
	if result.ID == "" {
		return nil, &platform.Error{Code: platform.ErrCodeUnknown, Message: "threads publish returned no id"}
	}

	return &platform.PublishResult{
		PlatformPostID: result.ID,
		URL:            fmt.Sprintf("https://www.threads.net/t/%s", result.ID),
	}, nil
}

// path: internal/platform/adapters/facebook.go
package adapters

import (
	"context"
	"fmt"
	"os"
	"unicode/utf8"

	fb "github.com/huandu/facebook/v2"
	"github.com/techappsUT/social-scheduler/internal/platform"
	"github.com/techappsUT/social-scheduler/internal/store"
)

// FacebookAdapter publishes to a Page feed through huandu/facebook/v2,
// replacing the teacher's facebook_adapter.go TODO stubs with real Graph
// API calls.
type FacebookAdapter struct {
	session *fb.Session
}

func NewFacebookAdapter(appID, appSecret string) *FacebookAdapter {
	app := fb.New(appID, appSecret)
	return &FacebookAdapter{session: app.Session("")}
}

func (f *FacebookAdapter) Platform() store.Platform { return store.PlatformFacebook }

func (f *FacebookAdapter) CredentialFields() []platform.CredentialField {
	return []platform.CredentialField{
		{Key: "page_token", Label: "Page Access Token", Secret: true, Required: true},
		{Key: "page_id", Label: "Page ID", Secret: false, Required: true},
	}
}

func (f *FacebookAdapter) OptionFields() []platform.OptionField { return nil }

func (f *FacebookAdapter) CharacterLimits() platform.CharacterLimits {
	return platform.CharacterLimits{MaxTextLength: 63206, MaxMediaCount: 10}
}

func (f *FacebookAdapter) ValidatePost(ctx context.Context, cred platform.Credential, content platform.Content) error {
	if len(content.Text) == 0 && len(content.Media) == 0 {
		return &platform.Error{Code: platform.ErrCodeValidationFailed, Message: "post requires text or media"}
	}
	if utf8.RuneCountInString(content.Text) > 63206 {
		return &platform.Error{Code: platform.ErrCodeValidationFailed, Message: "post exceeds 63206 characters"}
	}
	if images, videos := countMediaByType(content.Media); videos > 0 && images > 0 {
		return &platform.Error{Code: platform.ErrCodeValidationFailed, Message: "post cannot mix images and video"}
	} else if videos > 1 {
		return &platform.Error{Code: platform.ErrCodeValidationFailed, Message: "post supports at most 1 video"}
	} else if videos == 0 && images > 10 {
		return &platform.Error{Code: platform.ErrCodeValidationFailed, Message: "post supports at most 10 images"}
	}
	return nil
}

func (f *FacebookAdapter) VerifyCredentials(ctx context.Context, cred platform.Credential) error {
	session := f.sessionWithToken(cred)
	res, err := session.Get(fmt.Sprintf("/%s", cred.Values["page_id"]), fb.Params{
		"access_token": cred.Values["page_token"],
		"fields":       "id",
	})
	if err != nil {
		return &platform.Error{Code: platform.ErrCodeAuthFailed, Message: "facebook credentials rejected", Cause: err}
	}
	if id, _ := res.Get("id").(string); id == "" {
		return &platform.Error{Code: platform.ErrCodeAuthFailed, Message: "facebook credentials rejected"}
	}
	return nil
}

func (f *FacebookAdapter) sessionWithToken(cred platform.Credential) *fb.Session {
	s := f.session
	s.Version = "v19.0"
	return s
}

func (f *FacebookAdapter) UploadMedia(ctx context.Context, cred platform.Credential, media platform.ResolvedMedia) (string, error) {
	data, err := os.ReadFile(media.StoragePath)
	if err != nil {
		return "", &platform.Error{Code: platform.ErrCodeMediaUploadFailed, Message: "read media file", Cause: err}
	}

	session := f.sessionWithToken(cred)
	params := fb.Params{
		"access_token": cred.Values["page_token"],
		"published":    false,
		"source":       fb.Binary(media.StoragePath, fb.BinaryData(data)),
	}

	res, err := session.Post(fmt.Sprintf("/%s/photos", cred.Values["page_id"]), params)
	if err != nil {
		return "", &platform.Error{Code: platform.ErrCodeMediaUploadFailed, Message: "facebook media upload failed", Retryable: true, Cause: err}
	}

	id, _ := res.Get("id").(string)
	return id, nil
}

func (f *FacebookAdapter) Publish(ctx context.Context, cred platform.Credential, content platform.Content, mediaHandles []string) (*platform.PublishResult, error) {
	session := f.sessionWithToken(cred)

	params := fb.Params{
		"access_token": cred.Values["page_token"],
		"message":      content.Text,
	}
	if len(mediaHandles) > 0 {
		attached := make(fb.Params)
		for idx, id := range mediaHandles {
			attached[fmt.Sprintf("attached_media[%d]", idx)] = fmt.Sprintf(`{"media_fbid":"%s"}`, id)
		}
		for k, v := range attached {
			params[k] = v
		}
	}

	res, err := session.Post(fmt.Sprintf("/%s/feed", cred.Values["page_id"]), params)
	if err != nil {
		return nil, &platform.Error{Code: platform.ErrCodePlatformUnavailable, Message: "facebook publish failed", Retryable: true, Cause: err}
	}

	id, _ := res.Get("id").(string)
	if id == "" {
		return nil, &platform.Error{Code: platform.ErrCodeUnknown, Message: "facebook publish returned no id"}
	}

	return &platform.PublishResult{
		PlatformPostID: id,
		URL:            fmt.Sprintf("https://www.facebook.com/%s", id),
	}, nil
}

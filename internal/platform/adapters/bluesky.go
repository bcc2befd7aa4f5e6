// path: internal/platform/adapters/bluesky.go
package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/techappsUT/social-scheduler/internal/platform"
	"github.com/techappsUT/social-scheduler/internal/store"
)

// BlueskyAdapter speaks the AT Protocol's com.atproto / app.bsky XRPC
// surface directly over HTTP: uploadBlob for media, then
// createRecord for the post, with a small facet detector for mentions
// and links the way bluesky-social client libraries compute byte-range
// facets client-side before submission.
type BlueskyAdapter struct {
	httpClient *http.Client
}

func NewBlueskyAdapter() *BlueskyAdapter {
	return &BlueskyAdapter{httpClient: &http.Client{Timeout: 30 * time.Second}}
}

func (b *BlueskyAdapter) Platform() store.Platform { return store.PlatformBluesky }

func (b *BlueskyAdapter) CredentialFields() []platform.CredentialField {
	return []platform.CredentialField{
		{Key: "pds_host", Label: "PDS Host", Secret: false, Required: true},
		{Key: "handle", Label: "Handle", Secret: false, Required: true},
		{Key: "access_jwt", Label: "Access JWT", Secret: true, Required: true},
		{Key: "did", Label: "DID", Secret: false, Required: true},
	}
}

func (b *BlueskyAdapter) OptionFields() []platform.OptionField {
	return []platform.OptionField{
		{Key: "languages", Type: platform.OptionTypeStringArray},
	}
}

func (b *BlueskyAdapter) CharacterLimits() platform.CharacterLimits {
	return platform.CharacterLimits{MaxTextLength: 300, MaxMediaCount: 4}
}

func (b *BlueskyAdapter) VerifyCredentials(ctx context.Context, cred platform.Credential) error {
	endpoint := cred.Values["pds_host"] + "/xrpc/com.atproto.server.getSession"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return &platform.Error{Code: platform.ErrCodeUnknown, Message: "build verify request", Cause: err}
	}
	req.Header.Set("Authorization", "Bearer "+cred.Values["access_jwt"])

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return &platform.Error{Code: platform.ErrCodePlatformUnavailable, Message: "bluesky verify request failed", Retryable: true, Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return &platform.Error{Code: platform.ErrCodeAuthFailed, Message: "bluesky credentials rejected"}
	}
	if resp.StatusCode != http.StatusOK {
		return &platform.Error{Code: platform.ErrCodePlatformUnavailable, Message: fmt.Sprintf("bluesky verify returned %d", resp.StatusCode), Retryable: true}
	}
	return nil
}

func (b *BlueskyAdapter) ValidatePost(ctx context.Context, cred platform.Credential, content platform.Content) error {
	if len([]rune(content.Text)) > 300 {
		return &platform.Error{Code: platform.ErrCodeValidationFailed, Message: "post exceeds 300 characters"}
	}
	if _, videos := countMediaByType(content.Media); videos > 0 {
		return &platform.Error{Code: platform.ErrCodeValidationFailed, Message: "bluesky does not support video"}
	}
	if len(content.Media) > 4 {
		return &platform.Error{Code: platform.ErrCodeValidationFailed, Message: "post supports at most 4 images"}
	}
	return nil
}

func (b *BlueskyAdapter) UploadMedia(ctx context.Context, cred platform.Credential, media platform.ResolvedMedia) (string, error) {
	data, err := os.ReadFile(media.StoragePath)
	if err != nil {
		return "", &platform.Error{Code: platform.ErrCodeMediaUploadFailed, Message: "read media file", Cause: err}
	}

	endpoint := cred.Values["pds_host"] + "/xrpc/com.atproto.repo.uploadBlob"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return "", &platform.Error{Code: platform.ErrCodeMediaUploadFailed, Message: "build blob request", Cause: err}
	}
	req.Header.Set("Authorization", "Bearer "+cred.Values["access_jwt"])
	req.Header.Set("Content-Type", media.MimeType)

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return "", &platform.Error{Code: platform.ErrCodeMediaUploadFailed, Message: "bluesky blob upload failed", Retryable: true, Cause: err}
	}
	defer resp.Body.Close()

	var result struct {
		Blob json.RawMessage `json:"blob"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", &platform.Error{Code: platform.ErrCodeUnknown, Message: "decode blob response", Cause: err}
	}

	return string(result.Blob), nil
}

var (
	mentionPattern = regexp.MustCompile(`@[a-zA-Z0-9.\-]+`)
	linkPattern    = regexp.MustCompile(`https?://[^\s]+`)
)

type facet struct {
	Index struct {
		ByteStart int `json:"byteStart"`
		ByteEnd   int `json:"byteEnd"`
	} `json:"index"`
	Features []map[string]string `json:"features"`
}

// detectFacets scans text for mentions and links and returns byte-range
// facets, mirroring what a Bluesky client library computes before a post
// is submitted to the AT Protocol.
func detectFacets(text string) []facet {
	var facets []facet

	for _, m := range linkPattern.FindAllStringIndex(text, -1) {
		facets = append(facets, facet{
			Index: struct {
				ByteStart int `json:"byteStart"`
				ByteEnd   int `json:"byteEnd"`
			}{ByteStart: m[0], ByteEnd: m[1]},
			Features: []map[string]string{{
				"$type": "app.bsky.richtext.facet#link",
				"uri":   text[m[0]:m[1]],
			}},
		})
	}

	for _, m := range mentionPattern.FindAllStringIndex(text, -1) {
		handle := strings.TrimPrefix(text[m[0]:m[1]], "@")
		facets = append(facets, facet{
			Index: struct {
				ByteStart int `json:"byteStart"`
				ByteEnd   int `json:"byteEnd"`
			}{ByteStart: m[0], ByteEnd: m[1]},
			Features: []map[string]string{{
				"$type": "app.bsky.richtext.facet#mention",
				"did":   handle,
			}},
		})
	}

	return facets
}

func (b *BlueskyAdapter) Publish(ctx context.Context, cred platform.Credential, content platform.Content, mediaHandles []string) (*platform.PublishResult, error) {
	record := map[string]interface{}{
		"$type":     "app.bsky.feed.post",
		"text":      content.Text,
		"createdAt": time.Now().UTC().Format(time.RFC3339),
	}
	if facets := detectFacets(content.Text); len(facets) > 0 {
		record["facets"] = facets
	}
	if langs, ok := content.Options["languages"]; ok {
		record["langs"] = langs
	}
	if len(mediaHandles) > 0 {
		images := make([]map[string]interface{}, 0, len(mediaHandles))
		for _, h := range mediaHandles {
			images = append(images, map[string]interface{}{"image": json.RawMessage(h), "alt": ""})
		}
		record["embed"] = map[string]interface{}{
			"$type":  "app.bsky.embed.images",
			"images": images,
		}
	}

	payload := map[string]interface{}{
		"repo":       cred.Values["did"],
		"collection": "app.bsky.feed.post",
		"record":     record,
	}
	body, _ := json.Marshal(payload)

	endpoint := cred.Values["pds_host"] + "/xrpc/com.atproto.repo.createRecord"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &platform.Error{Code: platform.ErrCodeUnknown, Message: "build createRecord request", Cause: err}
	}
	req.Header.Set("Authorization", "Bearer "+cred.Values["access_jwt"])
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, &platform.Error{Code: platform.ErrCodePlatformUnavailable, Message: "bluesky publish failed", Retryable: true, Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, &platform.Error{Code: platform.ErrCodePlatformUnavailable, Message: "bluesky unavailable", Retryable: true}
	}
	if resp.StatusCode >= 400 {
		return nil, &platform.Error{Code: platform.ErrCodeValidationFailed, Message: fmt.Sprintf("bluesky rejected record: %d", resp.StatusCode)}
	}

	var result struct {
		URI string `json:"uri"`
		CID string `json:"cid"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &platform.Error{Code: platform.ErrCodeUnknown, Message: "decode createRecord response", Cause: err}
	}

	rkey := result.URI
	if idx := strings.LastIndex(result.URI, "/"); idx != -1 {
		rkey = result.URI[idx+1:]
	}

	return &platform.PublishResult{
		PlatformPostID: result.URI,
		URL:            fmt.Sprintf("https://bsky.app/profile/%s/post/%s", cred.Values["handle"], rkey),
	}, nil
}

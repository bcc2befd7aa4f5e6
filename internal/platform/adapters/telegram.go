// path: internal/platform/adapters/telegram.go
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

// TelegramAdapter talks to the Bot API directly over HTTP. No SDK in the
// retrieval pack speaks the Telegram Bot API, so this is a deliberate
// stdlib net/http client (see DESIGN.md).
type TelegramAdapter struct {
	httpClient *http.Client
	apiHost    string
}

func NewTelegramAdapter() *TelegramAdapter {
	return &TelegramAdapter{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		apiHost:    "https://api.telegram.org",
	}
}

// NewTelegramAdapterWithHost lets tests point the adapter at an
// httptest server instead of the real Bot API.
func NewTelegramAdapterWithHost(apiHost string) *TelegramAdapter {
	a := NewTelegramAdapter()
	a.apiHost = apiHost
	return a
}

func (t *TelegramAdapter) Platform() store.Platform { return store.PlatformTelegram }

func (t *TelegramAdapter) CredentialFields() []platform.CredentialField {
	return []platform.CredentialField{
		{Key: "bot_token", Label: "Bot Token", Secret: true, Required: true},
		{Key: "chat_id", Label: "Chat ID", Secret: false, Required: true},
	}
}

func (t *TelegramAdapter) OptionFields() []platform.OptionField {
	return []platform.OptionField{
		{Key: "parse_mode", Type: platform.OptionTypeEnum, Allowed: []string{"Markdown", "MarkdownV2", "HTML"}},
	}
}

func (t *TelegramAdapter) CharacterLimits() platform.CharacterLimits {
	return platform.CharacterLimits{MaxTextLength: 4096, MaxMediaCount: 10}
}

func (t *TelegramAdapter) VerifyCredentials(ctx context.Context, cred platform.Credential) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.apiURL(cred, "getMe"), nil)
	if err != nil {
		return &platform.Error{Code: platform.ErrCodeUnknown, Message: "build verify request", Cause: err}
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return &platform.Error{Code: platform.ErrCodePlatformUnavailable, Message: "telegram verify request failed", Retryable: true, Cause: err}
	}
	defer resp.Body.Close()

	var result struct {
		OK bool `json:"ok"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return &platform.Error{Code: platform.ErrCodeUnknown, Message: "decode telegram verify response", Cause: err}
	}
	if !result.OK {
		return &platform.Error{Code: platform.ErrCodeAuthFailed, Message: "telegram bot token rejected"}
	}
	return nil
}

func (t *TelegramAdapter) ValidatePost(ctx context.Context, cred platform.Credential, content platform.Content) error {
	if utf8.RuneCountInString(content.Text) > 4096 {
		return &platform.Error{Code: platform.ErrCodeValidationFailed, Message: "message exceeds 4096 characters"}
	}
	if mode, ok := content.Options["parse_mode"]; ok {
		m, _ := mode.(string)
		if m != "" && m != "Markdown" && m != "MarkdownV2" && m != "HTML" {
			return &platform.Error{Code: platform.ErrCodeValidationFailed, Message: "invalid parse_mode"}
		}
	}
	return nil
}

func (t *TelegramAdapter) apiURL(cred platform.Credential, method string) string {
	return fmt.Sprintf("%s/bot%s/%s", t.apiHost, cred.Values["bot_token"], method)
}

// UploadMedia for Telegram is a no-op handle: the bot API accepts media
// inline on the send call rather than via a separate upload step.
func (t *TelegramAdapter) UploadMedia(ctx context.Context, cred platform.Credential, media platform.ResolvedMedia) (string, error) {
	return media.StoragePath, nil
}

func (t *TelegramAdapter) Publish(ctx context.Context, cred platform.Credential, content platform.Content, mediaHandles []string) (*platform.PublishResult, error) {
	var (
		resp *http.Response
		err  error
	)

	if len(mediaHandles) > 0 {
		resp, err = t.sendPhoto(ctx, cred, content, mediaHandles[0])
	} else {
		resp, err = t.sendMessage(ctx, cred, content)
	}
	if err != nil {
		return nil, &platform.Error{Code: platform.ErrCodePlatformUnavailable, Message: "telegram request failed", Retryable: true, Cause: err}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &platform.Error{Code: platform.ErrCodeRateLimited, Message: "telegram rate limited", Retryable: true}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &platform.Error{Code: platform.ErrCodeValidationFailed, Message: fmt.Sprintf("telegram error: %s", string(body))}
	}

	var result struct {
		OK     bool `json:"ok"`
		Result struct {
			MessageID int `json:"message_id"`
			Chat      struct {
				Username string `json:"username"`
			} `json:"chat"`
		} `json:"result"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, &platform.Error{Code: platform.ErrCodeUnknown, Message: "decode telegram response", Cause: err}
	}

	return &platform.PublishResult{
		PlatformPostID: fmt.Sprintf("%d", result.Result.MessageID),
		URL:            fmt.Sprintf("https://t.me/%s/%d", result.Result.Chat.Username, result.Result.MessageID),
	}, nil
}

func (t *TelegramAdapter) sendMessage(ctx context.Context, cred platform.Credential, content platform.Content) (*http.Response, error) {
	payload := map[string]interface{}{
		"chat_id": cred.Values["chat_id"],
		"text":    content.Text,
	}
	if mode, ok := content.Options["parse_mode"]; ok {
		payload["parse_mode"] = mode
	}
	body, _ := json.Marshal(payload)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.apiURL(cred, "sendMessage"), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return t.httpClient.Do(req)
}

func (t *TelegramAdapter) sendPhoto(ctx context.Context, cred platform.Credential, content platform.Content, storagePath string) (*http.Response, error) {
	file, err := os.Open(storagePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	_ = writer.WriteField("chat_id", cred.Values["chat_id"])
	_ = writer.WriteField("caption", content.Text)

	part, err := writer.CreateFormFile("photo", filepath.Base(storagePath))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.apiURL(cred, "sendPhoto"), &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return t.httpClient.Do(req)
}

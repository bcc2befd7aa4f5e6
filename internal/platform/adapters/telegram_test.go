// path: internal/platform/adapters/telegram_test.go
package adapters

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/techappsUT/social-scheduler/internal/platform"
)

func TestTelegramAdapter_Publish_SendsMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/sendMessage")
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"ok": true,
			"result": map[string]interface{}{
				"message_id": 42,
				"chat":       map[string]interface{}{"username": "testchannel"},
			},
		})
	}))
	defer server.Close()

	adapter := NewTelegramAdapterWithHost(server.URL)
	cred := platform.Credential{Values: map[string]string{"bot_token": "abc", "chat_id": "123"}}

	result, err := adapter.Publish(context.Background(), cred, platform.Content{Text: "hello"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "42", result.PlatformPostID)
	assert.Equal(t, "https://t.me/testchannel/42", result.URL)
}

func TestTelegramAdapter_Publish_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	adapter := NewTelegramAdapterWithHost(server.URL)
	cred := platform.Credential{Values: map[string]string{"bot_token": "abc", "chat_id": "123"}}

	_, err := adapter.Publish(context.Background(), cred, platform.Content{Text: "hello"}, nil)
	require.Error(t, err)

	var perr *platform.Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, platform.ErrCodeRateLimited, perr.Code)
	assert.True(t, perr.Retryable)
}

func TestTelegramAdapter_ValidatePost_RejectsOversizeText(t *testing.T) {
	adapter := NewTelegramAdapter()
	big := make([]byte, 4097)
	for i := range big {
		big[i] = 'a'
	}

	err := adapter.ValidatePost(context.Background(), platform.Credential{}, platform.Content{Text: string(big)})
	require.Error(t, err)
}

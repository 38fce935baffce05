package intent

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResultFromCompletion(t *testing.T) {
	tests := []struct {
		in   string
		want Result
	}{
		{"Мы работаем с 9 до 18.", Result{Reply: "Мы работаем с 9 до 18."}},
		{"  FALLBACK ", Result{Reply: "FALLBACK", IsFallback: true}},
		{"fallback.", Result{Reply: "fallback.", IsFallback: true}},
		{"", Result{IsFallback: true}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, resultFromCompletion(tt.in), tt.in)
	}
}

func TestSystemPrompt_Custom(t *testing.T) {
	assert.Equal(t, "be brief", systemPrompt("be brief"))
	assert.Contains(t, systemPrompt(""), fallbackToken)
}

func TestSessionID(t *testing.T) {
	assert.Equal(t, "vk-42", SessionID("vk", 42))
	assert.Equal(t, "tg--7", SessionID("tg", -7))
}

func newAnthropicServer(t *testing.T, reply string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		if r.Header.Get("X-Api-Key") != "test-key" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var reqBody map[string]any
		json.NewDecoder(r.Body).Decode(&reqBody)

		resp := map[string]any{
			"id":          "msg_test",
			"type":        "message",
			"role":        "assistant",
			"model":       reqBody["model"],
			"stop_reason": "end_turn",
			"content": []map[string]any{
				{"type": "text", "text": reply},
			},
			"usage": map[string]any{
				"input_tokens":  12,
				"output_tokens": 4,
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestAnthropic_DetectIntent(t *testing.T) {
	server := newAnthropicServer(t, "Пароль можно сбросить в настройках.")
	defer server.Close()

	a := NewAnthropic("test-key", server.URL, "", "")
	res, err := a.DetectIntent(t.Context(), "vk-42", "Забыл пароль")
	require.NoError(t, err)
	assert.Equal(t, Result{Reply: "Пароль можно сбросить в настройках."}, res)
}

func TestAnthropic_DetectIntentFallback(t *testing.T) {
	server := newAnthropicServer(t, "FALLBACK")
	defer server.Close()

	a := NewAnthropic("test-key", server.URL, "claude-haiku-4-5", "")
	res, err := a.DetectIntent(t.Context(), "tg-1", "asdfgh")
	require.NoError(t, err)
	assert.True(t, res.IsFallback)
}

func TestAnthropic_DetectIntentHTTPError(t *testing.T) {
	server := newAnthropicServer(t, "unused")
	defer server.Close()

	a := NewAnthropic("wrong-key", server.URL, "", "")
	_, err := a.DetectIntent(t.Context(), "vk-1", "hi")
	assert.ErrorContains(t, err, "claude API call")
}

func TestAnthropic_NormalizesV1Suffix(t *testing.T) {
	a := NewAnthropic("k", "https://api.anthropic.com/v1/", "", "")
	assert.Equal(t, "https://api.anthropic.com", a.BaseURL())

	a = NewAnthropic("k", "", "", "")
	assert.Equal(t, defaultAnthropicBaseURL, a.BaseURL())
}

func TestOpenAI_DetectIntent(t *testing.T) {
	var gotModel string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		var reqBody map[string]any
		json.NewDecoder(r.Body).Decode(&reqBody)
		gotModel, _ = reqBody["model"].(string)

		resp := map[string]any{
			"id":      "chatcmpl-test",
			"object":  "chat.completion",
			"created": 1700000000,
			"model":   gotModel,
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": "FALLBACK"},
			}},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	o := NewOpenAI("test-key", server.URL, "", "")
	res, err := o.DetectIntent(t.Context(), "vk-3", "???")
	require.NoError(t, err)
	assert.True(t, res.IsFallback)
	assert.Equal(t, defaultOpenAIModel, gotModel)
}

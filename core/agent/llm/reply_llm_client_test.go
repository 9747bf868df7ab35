package llm

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reply_server/core/port/out"
	"reply_server/pkg/apperr"
)

func testRequest() out.CompletionRequest {
	return out.CompletionRequest{
		Model:            "gpt-4o-mini",
		SystemPrompt:     "system text",
		UserPrompt:       "user text",
		MaxTokens:        500,
		Temperature:      0.85,
		PresencePenalty:  0.6,
		FrequencyPenalty: 0.4,
	}
}

func TestCompleteSendsChatRequest(t *testing.T) {
	var (
		gotAuth string
		gotPath string
		body    map[string]any
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"model": "gpt-4o-mini",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "Hey there,\nSure.\nCheers,\nAlex"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 120, "completion_tokens": 30, "total_tokens": 150}
		}`))
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{BaseURL: srv.URL + "/v1"})
	got, err := client.Complete(context.Background(), "sk-user", testRequest())
	require.NoError(t, err)

	assert.Equal(t, "Hey there,\nSure.\nCheers,\nAlex", got)
	assert.Equal(t, "Bearer sk-user", gotAuth)
	assert.Equal(t, "/v1/chat/completions", gotPath)

	assert.Equal(t, "gpt-4o-mini", body["model"])
	assert.EqualValues(t, 500, body["max_tokens"])
	assert.InDelta(t, 0.85, body["temperature"], 1e-6)
	assert.InDelta(t, 0.6, body["presence_penalty"], 1e-6)
	assert.InDelta(t, 0.4, body["frequency_penalty"], 1e-6)

	messages, ok := body["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].(map[string]any)["role"])
	assert.Equal(t, "system text", messages[0].(map[string]any)["content"])
	assert.Equal(t, "user", messages[1].(map[string]any)["role"])
	assert.Equal(t, "user text", messages[1].(map[string]any)["content"])

	usage := client.Usage()
	assert.EqualValues(t, 150, usage.TotalTokens)
	assert.EqualValues(t, 1, usage.RequestCount)
	assert.EqualValues(t, 150, usage.ModelTokens["gpt-4o-mini"])
	assert.EqualValues(t, 1, client.Latency().Count)
}

func TestCompleteProviderErrorIsUpstream(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"invalid api key","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{BaseURL: srv.URL})
	_, err := client.Complete(context.Background(), "sk-bad", testRequest())
	require.Error(t, err)

	appErr := apperr.AsAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, apperr.CodeUpstream, appErr.Code)
	assert.Equal(t, "invalid api key", appErr.Message)
	assert.Equal(t, http.StatusUnauthorized, appErr.Details["provider_status"])
	assert.Equal(t, 1, calls, "no retry expected")
}

func TestCompleteUndecodableErrorUsesGenericMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`<html>oops</html>`))
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{BaseURL: srv.URL})
	_, err := client.Complete(context.Background(), "sk", testRequest())

	appErr := apperr.AsAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, apperr.CodeUpstream, appErr.Code)
	assert.Equal(t, "failed to generate reply", appErr.Message)
}

func TestCompleteEmptyChoicesIsUpstream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","choices":[]}`))
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{BaseURL: srv.URL})
	_, err := client.Complete(context.Background(), "sk", testRequest())
	assert.True(t, apperr.HasCode(err, apperr.CodeUpstream))
}

func TestCompleteUnreachableIsNetwork(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	client := NewClient(ClientConfig{BaseURL: url})
	_, err := client.Complete(context.Background(), "sk", testRequest())
	assert.True(t, apperr.HasCode(err, apperr.CodeNetwork))
}

func TestBreakerIgnoresClientErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"invalid api key"}}`))
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{BaseURL: srv.URL})
	for i := 0; i < 12; i++ {
		_, err := client.Complete(context.Background(), "sk-bad", testRequest())
		require.True(t, apperr.HasCode(err, apperr.CodeUpstream))
	}
	assert.Equal(t, "closed", client.BreakerState())
}

func TestBreakerOpensOnTransportFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	client := NewClient(ClientConfig{BaseURL: url})
	for i := 0; i < 7; i++ {
		_, _ = client.Complete(context.Background(), "sk", testRequest())
	}
	assert.Equal(t, "open", client.BreakerState())

	_, err := client.Complete(context.Background(), "sk", testRequest())
	assert.True(t, apperr.HasCode(err, apperr.CodeNetwork))
}

func TestQuotaErrorsOnOneKeyDoNotBlockOthers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.Header.Get("Authorization") == "Bearer sk-broke" {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":{"message":"You exceeded your current quota","type":"insufficient_quota","code":"insufficient_quota"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"id":"x","choices":[{"index":0,"message":{"role":"assistant","content":"Hi,\nOk.\nCheers,\nAlex"}}]}`))
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{BaseURL: srv.URL})
	for i := 0; i < 12; i++ {
		_, err := client.Complete(context.Background(), "sk-broke", testRequest())
		require.True(t, apperr.HasCode(err, apperr.CodeUpstream))
	}
	assert.Equal(t, "closed", client.BreakerState())

	got, err := client.Complete(context.Background(), "sk-good", testRequest())
	require.NoError(t, err)
	assert.Equal(t, "Hi,\nOk.\nCheers,\nAlex", got)
}

func TestCompleteMalformedSuccessBodyIsUpstream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html>gateway</html>`))
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{BaseURL: srv.URL})
	for i := 0; i < 12; i++ {
		_, err := client.Complete(context.Background(), "sk", testRequest())
		appErr := apperr.AsAppError(err)
		require.Equal(t, apperr.CodeUpstream, appErr.Code)
		assert.Equal(t, "failed to generate reply", appErr.Message)
	}
	assert.Equal(t, "closed", client.BreakerState())
}

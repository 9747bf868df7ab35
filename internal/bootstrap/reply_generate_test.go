package bootstrap

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reply_server/pkg/apperr"
)

const localSettings = `users:
  local:
    api_key: sk-local
    active_persona: default
    personas:
      default:
        name: Alex
        role: engineer
        tone_presets:
          default:
            style: professional
`

func fakeCompletionServer(t *testing.T, calls *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"model": "gpt-4o-mini",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "Hi Sam,\nFriday works.\nCheers,\nAlex"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 100, "completion_tokens": 20, "total_tokens": 120}
		}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRunGenerate(t *testing.T) {
	var calls int32
	srv := fakeCompletionServer(t, &calls)

	cfg := fileConfig(t)
	cfg.OpenAIBaseURL = srv.URL + "/v1"
	require.NoError(t, os.WriteFile(cfg.SettingsFile, []byte(localSettings), 0o600))

	var out bytes.Buffer
	err := RunGenerate(context.Background(), cfg, GenerateOptions{UserID: "local"}, strings.NewReader("Can we meet Friday?"), &out)
	require.NoError(t, err)

	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
	assert.Equal(t, "Hi Sam,<div><br></div>\n<div>Friday works.</div>\n<div><br></div>Cheers,<div><br></div>Alex\n", out.String())
}

func TestRunGeneratePreviewMakesNoCall(t *testing.T) {
	var calls int32
	srv := fakeCompletionServer(t, &calls)

	cfg := fileConfig(t)
	cfg.OpenAIBaseURL = srv.URL + "/v1"
	require.NoError(t, os.WriteFile(cfg.SettingsFile, []byte(localSettings), 0o600))

	raw := "From: Sam <sam@example.com>\r\nSubject: Outage\r\nContent-Type: text/plain\r\n\r\nThe export is broken, urgent fix needed.\r\n"

	var out bytes.Buffer
	err := RunGenerate(context.Background(), cfg, GenerateOptions{UserID: "local", RawMIME: true, Preview: true}, strings.NewReader(raw), &out)
	require.NoError(t, err)

	assert.Zero(t, atomic.LoadInt32(&calls))
	assert.Contains(t, out.String(), "as Alex.")
	assert.Contains(t, out.String(), "Subject: Outage")
	assert.Contains(t, out.String(), "The export is broken")
}

func TestRunGenerateMissingSettings(t *testing.T) {
	var calls int32
	srv := fakeCompletionServer(t, &calls)

	cfg := fileConfig(t)
	cfg.OpenAIBaseURL = srv.URL + "/v1"

	err := RunGenerate(context.Background(), cfg, GenerateOptions{UserID: "local"}, strings.NewReader("Hello"), &bytes.Buffer{})
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, apperr.CodeConfiguration))
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestRunGenerateEmptyInput(t *testing.T) {
	cfg := fileConfig(t)

	err := RunGenerate(context.Background(), cfg, GenerateOptions{UserID: "local"}, strings.NewReader("  \n"), &bytes.Buffer{})
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, apperr.CodeExtraction))
}

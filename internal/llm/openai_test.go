package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Lllllllleong/docinsight/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOpenAIGenerator_RequiresKey(t *testing.T) {
	_, err := NewOpenAIGenerator("", "", "gpt-4o-mini")
	assert.ErrorIs(t, err, ErrAPIKeyNotSet)

	_, err = NewOpenAIGenerator("key", "", "")
	assert.Error(t, err)
}

func TestOpenAIGenerator_Generate(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"), r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "cmpl-1",
			"object": "chat.completion",
			"created": 1,
			"model": "test-model",
			"choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": "  Paris.\n"}}],
			"usage": {"prompt_tokens": 3, "completion_tokens": 2, "total_tokens": 5}
		}`))
	}))
	defer server.Close()

	gen, err := NewOpenAIGenerator("key", server.URL+"/v1", "test-model")
	require.NoError(t, err)

	answer, err := gen.Generate(context.Background(), "Capital of France?", models.GenerationOptions{MaxTokens: 512, Temperature: 0.25})
	require.NoError(t, err)
	assert.Equal(t, "Paris.", answer)

	assert.Equal(t, "test-model", got["model"])
	assert.EqualValues(t, 512, got["max_tokens"])
	assert.InDelta(t, 0.25, got["temperature"], 1e-9)
	_, hasTopP := got["top_p"]
	assert.False(t, hasTopP)
}

package classifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequiresKey(t *testing.T) {
	_, err := New("")
	assert.ErrorContains(t, err, "ANTHROPIC_API_KEY")
}

func TestClassify(t *testing.T) {
	var got apiRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "sk-test", r.Header.Get("x-api-key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		text := "```json\n" + `{"tags":[{"name":"Cell Biology","confidence":0.9},{"name":"lecture","confidence":0.4}]}` + "\n```"
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"content": []map[string]string{{"type": "text", "text": text}},
		})
	}))
	defer srv.Close()

	c, err := New("sk-test", WithEndpoint(srv.URL), WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	result, err := c.Classify(context.Background(), "Mitosis", "Prophase, metaphase", []string{"biology"})
	require.NoError(t, err)

	require.Len(t, got.Messages, 1)
	assert.Contains(t, got.Messages[0].Content, "Title: Mitosis")
	assert.Contains(t, got.Messages[0].Content, "- biology")

	require.Len(t, result.Tags, 2)
	assert.Equal(t, "cell-biology", result.Tags[0].Name)
	assert.Equal(t, []string{"cell-biology"}, result.Names(0.5))
}

func TestClassifyAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"overloaded"}}`, http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c, err := New("sk-test", WithEndpoint(srv.URL))
	require.NoError(t, err)

	_, err = c.Classify(context.Background(), "t", "c", nil)
	assert.ErrorContains(t, err, "status 503")
}

func TestParseResponseRejectsProse(t *testing.T) {
	_, err := parseResponse("Sure! Here are some tags.")
	assert.ErrorContains(t, err, "parse json")
}

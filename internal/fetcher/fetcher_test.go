package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want, errMsg string
	}{
		{"https://canvas.example.edu/courses/1", "https://canvas.example.edu/courses/1", ""},
		{"  www.example.edu ", "https://www.example.edu", ""},
		{"ftp://example.edu", "", "unsupported scheme"},
		{"https://", "", "missing host"},
	}
	for _, tt := range tests {
		got, err := Normalize(tt.in)
		if tt.errMsg != "" {
			assert.ErrorContains(t, err, tt.errMsg, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "pulsetrack/1.0", r.Header.Get("User-Agent"))
		w.Write([]byte(`<html><head><title>
			BIO 101 | Syllabus </title><script>var x=1</script></head>
			<body><nav>Menu</nav><h1>Week 1</h1><p>Read chapter 2.</p></body></html>`))
	}))
	defer srv.Close()

	c := New(srv.Client())
	page, err := c.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "BIO 101 | Syllabus", page.Title)
	assert.Equal(t, "Week 1 Read chapter 2.", page.Text)

	title, err := c.FetchTitle(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "BIO 101 | Syllabus", title)
}

func TestFetchTitleFallsBackToHost(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<p>no title</p>`))
	}))
	defer srv.Close()

	title, err := New(srv.Client()).FetchTitle(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, strings.TrimPrefix(srv.URL, "http://"), title)
}

func TestPageSummary(t *testing.T) {
	p := &Page{Text: "Week 1 Read chapter 2 and answer the review questions."}
	assert.Equal(t, p.Text, p.Summary(200))
	assert.Equal(t, "Week 1 Read...", p.Summary(13))
	assert.Equal(t, "", (&Page{}).Summary(10))
}

func TestPageLabel(t *testing.T) {
	assert.Equal(t, "Portal", (&Page{URL: "https://lms.example.edu/c/1", Title: "Portal"}).Label())
	assert.Equal(t, "lms.example.edu", (&Page{URL: "https://lms.example.edu/c/1"}).Label())
}

func TestFetchHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := New(nil).Fetch(context.Background(), srv.URL)
	assert.ErrorContains(t, err, "HTTP 404")
}

func TestIsURL(t *testing.T) {
	assert.True(t, IsURL("https://example.edu"))
	assert.True(t, IsURL("www.example.edu"))
	assert.False(t, IsURL("Office hours Tuesday"))
}

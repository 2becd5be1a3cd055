// Package fetcher reads web pages linked from classes.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// Page is the readable part of a fetched page
type Page struct {
	URL   string
	Title string
	Text  string
}

// Client fetches pages over HTTP
type Client struct {
	http *http.Client
}

// New creates a Client. A nil http.Client gets a 30s timeout.
func New(client *http.Client) *Client {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{http: client}
}

// Normalize adds a missing https scheme and rejects anything but http(s).
func Normalize(rawURL string) (string, error) {
	rawURL = strings.TrimSpace(rawURL)
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme == "" {
		u, err = url.Parse("https://" + rawURL)
		if err != nil {
			return "", fmt.Errorf("invalid URL: %w", err)
		}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid URL: missing host")
	}
	return u.String(), nil
}

// Fetch retrieves a page and extracts its title and readable text.
func (c *Client) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	target, err := Normalize(rawURL)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "pulsetrack/1.0")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	// 5MB is plenty for a course page
	body, err := io.ReadAll(io.LimitReader(resp.Body, 5*1024*1024))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	doc, err := html.Parse(strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	return &Page{URL: target, Title: findTitle(doc), Text: extractText(doc)}, nil
}

// FetchTitle returns the page title, falling back to the host name.
func (c *Client) FetchTitle(ctx context.Context, rawURL string) (string, error) {
	page, err := c.Fetch(ctx, rawURL)
	if err != nil {
		return "", err
	}
	return page.Label(), nil
}

// Label is the page title, or the host name when the page has none.
func (p *Page) Label() string {
	if p.Title != "" {
		return p.Title
	}
	u, _ := url.Parse(p.URL)
	return u.Host
}

// Summary returns at most max bytes of the page text, cut at a word boundary.
func (p *Page) Summary(max int) string {
	if len(p.Text) <= max {
		return p.Text
	}
	cut := p.Text[:max]
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		cut = cut[:i]
	}
	return cut + "..."
}

// IsURL checks if a string looks like a URL
func IsURL(s string) bool {
	s = strings.TrimSpace(s)
	return strings.HasPrefix(s, "http://") ||
		strings.HasPrefix(s, "https://") ||
		strings.HasPrefix(s, "www.")
}

func findTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "title" && n.FirstChild != nil {
		return strings.Join(strings.Fields(n.FirstChild.Data), " ")
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := findTitle(c); t != "" {
			return t
		}
	}
	return ""
}

// extractText returns the readable text of a document
func extractText(doc *html.Node) string {
	var sb strings.Builder
	var extract func(*html.Node)

	// Non-content tags
	skipTags := map[string]bool{
		"script": true, "style": true, "nav": true,
		"header": true, "footer": true, "aside": true,
		"noscript": true, "iframe": true, "title": true,
	}

	extract = func(n *html.Node) {
		if n.Type == html.ElementNode && skipTags[n.Data] {
			return
		}

		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				sb.WriteString(text)
				sb.WriteString(" ")
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}

	extract(doc)

	result := strings.Join(strings.Fields(sb.String()), " ")
	if len(result) > 10*1024 {
		result = result[:10*1024] + "..."
	}
	return result
}

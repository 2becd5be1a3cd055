package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const anthropicAPI = "https://api.anthropic.com/v1/messages"

// TagSuggestion is a suggested note tag
type TagSuggestion struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

// ClassifyResult holds the classification output
type ClassifyResult struct {
	Tags []TagSuggestion `json:"tags"`
}

// Classifier suggests note tags via the Anthropic API
type Classifier struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
}

// Option configures a Classifier
type Option func(*Classifier)

// WithEndpoint overrides the messages endpoint.
func WithEndpoint(url string) Option {
	return func(c *Classifier) { c.endpoint = url }
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Classifier) { c.client = client }
}

// New creates a Classifier. It fails without an API key so callers can skip
// tagging.
func New(apiKey string, opts ...Option) (*Classifier, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY not set")
	}

	c := &Classifier{
		apiKey:   apiKey,
		model:    "claude-sonnet-4-20250514",
		endpoint: anthropicAPI,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Classify suggests tags for a note, preferring tags already in use.
func (c *Classifier) Classify(ctx context.Context, title, content string, existingTags []string) (*ClassifyResult, error) {
	prompt := buildPrompt(title, content, existingTags)

	resp, err := c.callAPI(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("api call: %w", err)
	}

	return parseResponse(resp)
}

// Names returns the suggested tag names at or above minConfidence.
func (r *ClassifyResult) Names(minConfidence float64) []string {
	var names []string
	for _, t := range r.Tags {
		if t.Confidence >= minConfidence && t.Name != "" {
			names = append(names, t.Name)
		}
	}
	return names
}

func buildPrompt(title, content string, existingTags []string) string {
	var sb strings.Builder

	sb.WriteString("Suggest tags for this student's study note. Return JSON only.\n\n")
	sb.WriteString("Title: ")
	sb.WriteString(title)
	sb.WriteString("\n\nContent:\n")
	sb.WriteString(content)
	sb.WriteString("\n\n")

	if len(existingTags) > 0 {
		sb.WriteString("Tags already used on other notes (prefer reusing these):\n")
		for _, tag := range existingTags {
			sb.WriteString("- ")
			sb.WriteString(tag)
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	sb.WriteString(`Return a JSON object with this structure:
{
  "tags": [
    {"name": "tag-name", "confidence": 0.9}
  ]
}

Rules:
- Use lowercase, hyphenated tag names (e.g., "cell-biology" not "Cell Biology")
- Suggest 1-4 tags: subject, topic, or kind of material (e.g., "lecture", "exam-prep")
- Confidence is 0.0-1.0 based on how certain the tag is
- Reuse existing tags when they fit

Return ONLY the JSON, no other text.`)

	return sb.String()
}

type apiRequest struct {
	Model     string       `json:"model"`
	MaxTokens int          `json:"max_tokens"`
	Messages  []apiMessage `json:"messages"`
}

type apiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type apiResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *Classifier) callAPI(ctx context.Context, prompt string) (string, error) {
	reqBody := apiRequest{
		Model:     c.model,
		MaxTokens: 512,
		Messages: []apiMessage{
			{Role: "user", Content: prompt},
		},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("api error (status %d): %s", resp.StatusCode, string(body))
	}

	var apiResp apiResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}

	if apiResp.Error != nil {
		return "", fmt.Errorf("api error: %s", apiResp.Error.Message)
	}

	if len(apiResp.Content) == 0 {
		return "", fmt.Errorf("empty response")
	}

	return apiResp.Content[0].Text, nil
}

func parseResponse(resp string) (*ClassifyResult, error) {
	// Models sometimes wrap the JSON in a markdown fence
	resp = strings.TrimSpace(resp)
	resp = strings.TrimPrefix(resp, "```json")
	resp = strings.TrimPrefix(resp, "```")
	resp = strings.TrimSuffix(resp, "```")
	resp = strings.TrimSpace(resp)

	var result ClassifyResult
	if err := json.Unmarshal([]byte(resp), &result); err != nil {
		return nil, fmt.Errorf("parse json: %w (response: %s)", err, resp)
	}

	for i, t := range result.Tags {
		result.Tags[i].Name = strings.ToLower(strings.Join(strings.Fields(t.Name), "-"))
	}
	return &result, nil
}

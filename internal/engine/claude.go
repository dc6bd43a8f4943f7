package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/dgallion1/bddgen/internal/bdd"
)

const defaultClaudeURL = "https://api.anthropic.com/v1/messages"

// ClaudeClient calls the Anthropic Messages API.
type ClaudeClient struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client

	// Stats records the latency of every successful call.
	Stats *LLMStats
}

// NewClaudeClient creates a client. A zero statsWindow keeps an hour of
// samples.
func NewClaudeClient(apiKey, model string, statsWindow time.Duration) *ClaudeClient {
	return &ClaudeClient{
		apiKey:  apiKey,
		model:   model,
		baseURL: defaultClaudeURL,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		Stats: NewLLMStats(statsWindow),
	}
}

// WithBaseURL points the client at a different Messages endpoint.
func (c *ClaudeClient) WithBaseURL(url string) *ClaudeClient {
	c.baseURL = url
	return c
}

// Model returns the configured model name.
func (c *ClaudeClient) Model() string { return c.model }

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Complete sends one user prompt and returns the text of the reply.
func (c *ClaudeClient) Complete(ctx context.Context, system, prompt string) (string, error) {
	reqBody := anthropicRequest{
		Model:     c.model,
		MaxTokens: 4096,
		System:    system,
		Messages: []anthropicMessage{
			{Role: "user", Content: prompt},
		},
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("claude api: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return "", &RetryableError{
			StatusCode: resp.StatusCode,
			Message:    string(respBody),
		}
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("claude api status %d: %s", resp.StatusCode, truncate(string(respBody), 200))
	}

	var apiResp anthropicResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if apiResp.Error != nil {
		return "", fmt.Errorf("claude error: %s: %s", apiResp.Error.Type, apiResp.Error.Message)
	}
	if len(apiResp.Content) == 0 {
		return "", fmt.Errorf("empty response from claude")
	}
	if c.Stats != nil {
		c.Stats.Record(time.Since(start).Milliseconds())
	}

	return stripCodeBlock(apiResp.Content[0].Text), nil
}

var codeBlockRe = regexp.MustCompile("(?s)^```(?:gherkin|feature)?\\s*(.*?)\\s*```$")

func stripCodeBlock(s string) string {
	s = strings.TrimSpace(s)
	if m := codeBlockRe.FindStringSubmatch(s); len(m) > 1 {
		return m[1]
	}
	return s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// Close releases resources.
func (c *ClaudeClient) Close() {
	c.httpClient.CloseIdleConnections()
}

// DefaultMaxPromptTokens bounds the document size sent to the model.
const DefaultMaxPromptTokens = 150000

// ClaudeWriter writes features with Claude and falls back to the rule-based
// writer when the model fails or returns something that is not Gherkin.
type ClaudeWriter struct {
	client   *ClaudeClient
	fallback RuleWriter
	log      *slog.Logger
	sleep    func(context.Context, time.Duration) error

	// MaxPromptTokens routes larger documents straight to the rules.
	MaxPromptTokens int
}

// NewClaudeWriter wraps client as a FeatureWriter.
func NewClaudeWriter(client *ClaudeClient, log *slog.Logger) *ClaudeWriter {
	return &ClaudeWriter{
		client:          client,
		log:             log,
		sleep:           sleepCtx,
		MaxPromptTokens: DefaultMaxPromptTokens,
	}
}

// WriteFeature implements FeatureWriter.
func (w *ClaudeWriter) WriteFeature(ctx context.Context, text string, category bdd.DocumentCategory, name string) (*bdd.FeatureArtifact, error) {
	if !category.Valid() {
		return nil, fmt.Errorf("%w: %q", bdd.ErrUnknownCategory, category)
	}
	if err := checkPromptSize(text, w.MaxPromptTokens); err != nil {
		w.log.Info("skipping claude", "reason", err)
		return w.fallback.WriteFeature(ctx, text, category, name)
	}
	prompt := BuildFeaturePrompt(category, featureTitle(name, category), text)

	content, err := withRetries(ctx, w.log, w.sleep, func() (string, error) {
		return w.client.Complete(ctx, FeatureSystemPrompt, prompt)
	})
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if err == nil {
		err = ValidateFeature(content)
	}
	if err != nil {
		w.recordFailure()
		w.log.Warn("claude feature unusable, using rules", "error", err)
		return w.fallback.WriteFeature(ctx, text, category, name)
	}

	content = strings.TrimSpace(content) + "\n"
	return &bdd.FeatureArtifact{
		Content:        content,
		SuggestedSteps: SuggestSteps(content),
	}, nil
}

func (w *ClaudeWriter) recordFailure() {
	if w.client.Stats != nil {
		w.client.Stats.RecordFailure()
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

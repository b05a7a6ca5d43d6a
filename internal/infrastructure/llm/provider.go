// Package llm is the polymorphic client over the supported summarization
// backends. Each provider variant maps to one HTTP chat/completion API with
// its own request/response shape, default model, and auth header scheme.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"newsbot/internal/domain"
	"newsbot/internal/ports"
)

const (
	defaultOpenAIBaseURL    = "https://api.openai.com/v1"
	defaultDeepSeekBaseURL  = "https://api.deepseek.com"
	defaultGeminiBaseURL    = "https://generativelanguage.googleapis.com"
	defaultAnthropicBaseURL = "https://api.anthropic.com"

	anthropicVersion   = "2023-06-01"
	anthropicMaxTokens = 4096
)

// Config lets tests and unusual deployments point the client at alternate
// endpoints; zero values select the real vendor APIs.
type Config struct {
	HTTPClient       *http.Client
	OpenAIBaseURL    string
	DeepSeekBaseURL  string
	GeminiBaseURL    string
	AnthropicBaseURL string
}

// Client implements ports.SummaryProvider across all provider variants.
type Client struct {
	httpClient       *http.Client
	openaiBaseURL    string
	deepseekBaseURL  string
	geminiBaseURL    string
	anthropicBaseURL string
}

var _ ports.SummaryProvider = (*Client)(nil)

// NewClient builds a provider client from configuration.
func NewClient(cfg Config) *Client {
	c := &Client{
		httpClient:       cfg.HTTPClient,
		openaiBaseURL:    cfg.OpenAIBaseURL,
		deepseekBaseURL:  cfg.DeepSeekBaseURL,
		geminiBaseURL:    cfg.GeminiBaseURL,
		anthropicBaseURL: cfg.AnthropicBaseURL,
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: 120 * time.Second}
	}
	if c.openaiBaseURL == "" {
		c.openaiBaseURL = defaultOpenAIBaseURL
	}
	if c.deepseekBaseURL == "" {
		c.deepseekBaseURL = defaultDeepSeekBaseURL
	}
	if c.geminiBaseURL == "" {
		c.geminiBaseURL = defaultGeminiBaseURL
	}
	if c.anthropicBaseURL == "" {
		c.anthropicBaseURL = defaultAnthropicBaseURL
	}
	return c
}

// buildItemsText joins the filtered items into the single textual block the
// provider summarizes: title, summary, and URL per item.
func buildItemsText(items []domain.NewsItem) string {
	lines := make([]string, 0, len(items))
	for _, item := range items {
		lines = append(lines, fmt.Sprintf("- %s\n  %s\n  %s", item.Title, item.Summary, item.URL))
	}
	return strings.Join(lines, "\n")
}

// Summarize issues one request with the config set's prompt as the system
// instruction and the joined items as the user message.
func (c *Client) Summarize(ctx context.Context, items []domain.NewsItem, prompt string, auth domain.ProviderAuth) (string, error) {
	return c.Chat(ctx, prompt, "News items:\n"+buildItemsText(items), auth)
}

// Chat dispatches one system+user exchange to the selected provider and
// returns the extracted text.
func (c *Client) Chat(ctx context.Context, system, user string, auth domain.ProviderAuth) (string, error) {
	switch auth.Provider {
	case domain.ProviderOpenAI:
		return c.chatOpenAICompat(ctx, system, user, auth, c.openaiBaseURL)
	case domain.ProviderDeepSeek:
		return c.chatOpenAICompat(ctx, system, user, auth, c.deepseekBaseURL)
	case domain.ProviderGemini:
		return c.chatGemini(ctx, system, user, auth)
	case domain.ProviderAnthropic:
		return c.chatAnthropic(ctx, system, user, auth)
	default:
		return "", fmt.Errorf("unsupported LLM provider: %q", auth.Provider)
	}
}

func (c *Client) chatOpenAICompat(ctx context.Context, system, user string, auth domain.ProviderAuth, baseURL string) (string, error) {
	cfg := openai.DefaultConfig(auth.APIKey)
	cfg.BaseURL = baseURL
	cfg.HTTPClient = c.httpClient
	client := openai.NewClientWithConfig(cfg)

	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: auth.ResolvedModel(),
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	})
	if err != nil {
		return "", fmt.Errorf("%s API failed: %w", auth.Provider, err)
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("%s response missing text", auth.Provider)
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *Client) chatGemini(ctx context.Context, system, user string, auth domain.ProviderAuth) (string, error) {
	// Gemini's generateContent has no separate system slot in this shape;
	// the instruction is prepended to the user text.
	body := map[string]any{
		"contents": []map[string]any{
			{"parts": []map[string]string{{"text": system + "\n\n" + user}}},
		},
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s",
		c.geminiBaseURL, auth.ResolvedModel(), auth.APIKey)

	var parsed struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := c.postJSON(ctx, endpoint, nil, body, &parsed, "gemini"); err != nil {
		return "", err
	}

	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 ||
		parsed.Candidates[0].Content.Parts[0].Text == "" {
		return "", fmt.Errorf("gemini response missing text")
	}
	return parsed.Candidates[0].Content.Parts[0].Text, nil
}

func (c *Client) chatAnthropic(ctx context.Context, system, user string, auth domain.ProviderAuth) (string, error) {
	body := map[string]any{
		"model":      auth.ResolvedModel(),
		"max_tokens": anthropicMaxTokens,
		"system":     system,
		"messages": []map[string]string{
			{"role": "user", "content": user},
		},
	}

	headers := map[string]string{
		"x-api-key":         auth.APIKey,
		"anthropic-version": anthropicVersion,
	}

	var parsed struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := c.postJSON(ctx, c.anthropicBaseURL+"/v1/messages", headers, body, &parsed, "anthropic"); err != nil {
		return "", err
	}

	for _, block := range parsed.Content {
		if block.Type == "text" && block.Text != "" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("anthropic response missing text")
}

func (c *Client) postJSON(ctx context.Context, endpoint string, headers map[string]string, body, out any, provider string) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", provider, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s request: %w", provider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%s API failed (%d): %s", provider, resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", provider, err)
	}
	return nil
}

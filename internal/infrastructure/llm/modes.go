package llm

import (
	"context"
	"strings"

	"newsbot/internal/domain"
)

const polishSystemPrompt = "You are a prompt engineer. Rewrite the following prompt to be clearer, " +
	"more specific, and more effective for instructing an AI to summarize news items. " +
	"Return ONLY the improved prompt text, nothing else."

const queryInductionSystemPrompt = "You are a search query generator. Given a news digest prompt, " +
	"produce a concise web search query (max 5-8 words) that would find the most relevant recent " +
	"news articles. Return ONLY the search query text, nothing else."

// Polish rewrites a digest prompt for clarity using the same call shape as
// the summarize mode.
func (c *Client) Polish(ctx context.Context, prompt string, auth domain.ProviderAuth) (string, error) {
	out, err := c.Chat(ctx, polishSystemPrompt, prompt, auth)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// InduceQuery derives a short web-search query from the digest prompt.
func (c *Client) InduceQuery(ctx context.Context, prompt string, auth domain.ProviderAuth) (string, error) {
	out, err := c.Chat(ctx, queryInductionSystemPrompt, "Prompt:\n"+prompt, auth)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

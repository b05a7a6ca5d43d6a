package usecase

import (
	"context"
	"errors"
	"fmt"
)

// PolishPrompt rewrites a draft digest prompt with the configured provider.
func (r *Runner) PolishPrompt(ctx context.Context, prompt string) (string, error) {
	settings, err := r.store.GlobalSettings(ctx)
	if err != nil {
		return "", fmt.Errorf("load global settings: %w", err)
	}
	if settings.ProviderAPIKey == "" {
		return "", errors.New("global settings missing provider API key")
	}
	return r.provider.Polish(ctx, prompt, settings.Auth())
}

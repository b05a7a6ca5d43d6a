package domain

import "time"

// Run statuses. Progress entries are free-form human-readable strings; the
// terminal labels below are the only statuses after which no transition may
// occur. "success" and "cancelled" are accepted as terminal for rows written
// by earlier deployments.
const (
	StatusSent      = "sent"
	StatusError     = "error"
	StatusFailed    = "failed"
	StatusStarting  = "Starting run"
	StatusSettings  = "Loading global settings"
	StatusSources   = "Loading sources and recipients"
	StatusSummarize = "Summarizing content"
	StatusRender    = "Generating html"
)

// TerminalStatuses is the closed set of statuses a run never leaves.
var TerminalStatuses = []string{StatusSent, "success", StatusError, StatusFailed, "cancelled"}

// IsTerminalStatus reports whether status ends a run's lifecycle.
func IsTerminalStatus(status string) bool {
	for _, s := range TerminalStatuses {
		if status == s {
			return true
		}
	}
	return false
}

// Run is one execution attempt of a ConfigSet. StatusHistory is ordered and
// append-only; Status always equals its last entry and the history is never
// empty once the run exists.
type Run struct {
	ID            int64
	ConfigSetID   int64
	ConfigName    string
	StartedAt     time.Time
	Status        string
	StatusHistory []string
	ItemCount     int
	ErrorMessage  string
	EmailID       string
}

// Provider selects one of the supported summarization backends.
type Provider string

const (
	ProviderGemini    Provider = "gemini"
	ProviderDeepSeek  Provider = "deepseek"
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
)

// DefaultModels resolves the model used when no override is stored.
var DefaultModels = map[Provider]string{
	ProviderGemini:    "gemini-2.0-flash",
	ProviderDeepSeek:  "deepseek-chat",
	ProviderOpenAI:    "gpt-4o-mini",
	ProviderAnthropic: "claude-sonnet-4-5-20250929",
}

// ProviderAuth carries everything an adapter needs to issue one request.
type ProviderAuth struct {
	Provider Provider
	APIKey   string
	Model    string
}

// ResolvedModel returns the override when present, else the provider default.
func (a ProviderAuth) ResolvedModel() string {
	if a.Model != "" {
		return a.Model
	}
	return DefaultModels[a.Provider]
}

const defaultSourceItemsLimit = 20

// GlobalSettings is the singleton row holding transport and provider
// credentials plus the two run-tuning knobs.
type GlobalSettings struct {
	ResendAPIKey       string
	Provider           Provider
	ProviderAPIKey     string
	Model              string
	DefaultSender      string
	AdminEmail         string
	TavilyAPIKey       string
	SourceItemsLimit   int
	SourceLookbackDays int // 0 disables the lookback filter
}

// ItemsLimit applies the documented fallback for a missing or non-positive
// per-source cap.
func (g GlobalSettings) ItemsLimit() int {
	if g.SourceItemsLimit > 0 {
		return g.SourceItemsLimit
	}
	return defaultSourceItemsLimit
}

// Auth bundles the stored provider selection for the adapter.
func (g GlobalSettings) Auth() ProviderAuth {
	return ProviderAuth{Provider: g.Provider, APIKey: g.ProviderAPIKey, Model: g.Model}
}

package app

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"newsbot/internal/domain"
	"newsbot/internal/ports"
	"newsbot/internal/usecase"
)

// stubStore backs one config set with one source, enough to drive a full
// run through the dispatcher.
type stubStore struct {
	configSet domain.ConfigSet
	source    domain.Source
	settings  domain.GlobalSettings
	runStatus string
}

func (s *stubStore) CreateRun(context.Context, int64, time.Time, string) (int64, error) {
	s.runStatus = domain.StatusStarting
	return 1, nil
}

func (s *stubStore) AppendRunStatus(_ context.Context, _ int64, status string) (bool, error) {
	if domain.IsTerminalStatus(s.runStatus) {
		return false, nil
	}
	s.runStatus = status
	return true, nil
}

func (s *stubStore) CompleteRun(context.Context, int64, int, string) (bool, error) {
	s.runStatus = domain.StatusSent
	return true, nil
}

func (s *stubStore) FailRun(_ context.Context, _ int64, status, _ string) (bool, error) {
	s.runStatus = status
	return true, nil
}

func (s *stubStore) ReclaimStaleRuns(context.Context, time.Time, string) (int64, error) {
	return 0, nil
}

func (s *stubStore) ListRuns(context.Context, int, int) ([]domain.Run, error) {
	return nil, nil
}

func (s *stubStore) ConfigSetByID(_ context.Context, id int64) (*domain.ConfigSet, error) {
	if id != s.configSet.ID {
		return nil, nil
	}
	cs := s.configSet
	return &cs, nil
}

func (s *stubStore) EnabledConfigSets(context.Context, string) ([]domain.ConfigSet, error) {
	return nil, nil
}

func (s *stubStore) ConfigSources(context.Context, int64) ([]domain.Source, error) {
	return []domain.Source{s.source}, nil
}

func (s *stubStore) UpdateSourceTest(context.Context, int64, time.Time, string, string) error {
	return nil
}

func (s *stubStore) GlobalSettings(context.Context) (*domain.GlobalSettings, error) {
	g := s.settings
	return &g, nil
}

type stubFetcher struct{}

func (stubFetcher) Fetch(context.Context, domain.Source, int) (ports.FetchResult, error) {
	return ports.FetchResult{
		Items:     []domain.NewsItem{{Title: "One", URL: "https://example.com/1"}},
		Total:     1,
		Processed: 1,
	}, nil
}

type stubProvider struct{}

func (stubProvider) Summarize(context.Context, []domain.NewsItem, string, domain.ProviderAuth) (string, error) {
	return "stub summary", nil
}

func (stubProvider) Chat(context.Context, string, string, domain.ProviderAuth) (string, error) {
	return "", nil
}

func (stubProvider) Polish(context.Context, string, domain.ProviderAuth) (string, error) {
	return "", nil
}

func (stubProvider) InduceQuery(context.Context, string, domain.ProviderAuth) (string, error) {
	return "", nil
}

type stubMailer struct{}

func (stubMailer) Send(context.Context, string, ports.Email) (string, error) {
	return "email-1", nil
}

func TestRunOnceWritesDigestHTML(t *testing.T) {
	t.Parallel()

	store := &stubStore{
		configSet: domain.ConfigSet{ID: 1, Name: "Preview", RecipientsJSON: `["a@example.com"]`},
		source:    domain.Source{Type: domain.SourceTypeFeed, URL: "https://a.example.com/rss"},
		settings: domain.GlobalSettings{
			ResendAPIKey:   "re_key",
			Provider:       domain.ProviderGemini,
			ProviderAPIKey: "llm_key",
			DefaultSender:  "digest@example.com",
		},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	runner := usecase.NewRunner(usecase.RunnerDeps{
		Store: store,
		Fetchers: map[domain.SourceType]ports.SourceFetcher{
			domain.SourceTypeFeed: stubFetcher{},
		},
		Provider: stubProvider{},
		Mailer:   stubMailer{},
		Logger:   logger,
	})
	a := &Application{
		log: logger,
		dispatcher: usecase.NewDispatcher(usecase.DispatcherDeps{
			Store:      store,
			Runner:     runner,
			RunTimeout: 15 * time.Minute,
			Logger:     logger,
		}),
	}

	var out strings.Builder
	if err := a.RunOnce(context.Background(), 1, &out); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	html := out.String()
	if !strings.Contains(html, "https://example.com/1") {
		t.Errorf("digest preview missing item URL")
	}
	if !strings.Contains(html, "stub summary") {
		t.Errorf("digest preview missing summary")
	}
	if !strings.Contains(html, "Preview") {
		t.Errorf("digest preview missing config set name")
	}
}

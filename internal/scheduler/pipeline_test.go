package scheduler

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"nodeseek_bot/internal/fetcher"
	"nodeseek_bot/internal/model"
	"nodeseek_bot/internal/storage"
)

// --- mocks ---

type mockSender struct {
	mu    sync.Mutex
	calls []model.Post
	err   error
}

func (m *mockSender) SendPostNotification(_ context.Context, post model.Post, _ []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.calls = append(m.calls, post)
	return nil
}

func (m *mockSender) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func (m *mockSender) setErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

type mockTransport struct {
	body       string
	statusCode int
	err        error
}

func (m *mockTransport) Do(_ *http.Request) (*http.Response, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &http.Response{
		StatusCode: m.statusCode,
		Body:       io.NopCloser(bytes.NewBufferString(m.body)),
	}, nil
}

// --- helpers ---

func loadSampleXML(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile("../../testdata/sample.xml")
	if err != nil {
		t.Fatalf("read sample xml: %v", err)
	}
	return string(data)
}

func newTestPipeline(t *testing.T, feedBody string) (*Pipeline, *storage.SQLite, *mockSender) {
	t.Helper()
	store, err := storage.NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("new sqlite: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	sender := &mockSender{}
	fetch := fetcher.New(&mockTransport{body: feedBody, statusCode: 200}, "https://example.com/rss")
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(store, fetch, sender, log), store, sender
}

func seedConfig(t *testing.T, store *storage.SQLite, cfg model.Config) {
	t.Helper()
	if err := store.CreateConfig(context.Background(), &cfg); err != nil {
		t.Fatalf("seed config: %v", err)
	}
}

func seedSubscription(t *testing.T, store *storage.SQLite, sub model.Subscription) model.Subscription {
	t.Helper()
	if err := store.CreateSubscription(context.Background(), &sub); err != nil {
		t.Fatalf("seed subscription: %v", err)
	}
	return sub
}

func readyConfig() model.Config {
	return model.Config{Username: "admin", Password: "pw", BotToken: "123:abc", ChatID: 100}
}

func hasError(report Report, substr string) bool {
	for _, e := range report.Errors {
		if strings.Contains(e, substr) {
			return true
		}
	}
	return false
}

// --- tests ---

func TestProcessFeedGuards(t *testing.T) {
	ctx := context.Background()

	t.Run("not initialized", func(t *testing.T) {
		p, _, _ := newTestPipeline(t, loadSampleXML(t))
		report := p.ProcessFeed(ctx)
		if !hasError(report, "system not initialized") {
			t.Errorf("expected init error, got %v", report.Errors)
		}
	})

	t.Run("no subscriptions", func(t *testing.T) {
		p, store, _ := newTestPipeline(t, loadSampleXML(t))
		seedConfig(t, store, readyConfig())

		report := p.ProcessFeed(ctx)
		if !hasError(report, "no subscription rules") {
			t.Errorf("expected subscription error, got %v", report.Errors)
		}
	})

	t.Run("fetch failure is fatal for the run", func(t *testing.T) {
		store, err := storage.NewSQLite(":memory:")
		if err != nil {
			t.Fatalf("new sqlite: %v", err)
		}
		t.Cleanup(func() { _ = store.Close() })
		seedConfig(t, store, readyConfig())
		seedSubscription(t, store, model.Subscription{Keyword1: "vps"})

		fetch := fetcher.New(&mockTransport{err: io.ErrUnexpectedEOF}, "https://example.com/rss")
		p := New(store, fetch, &mockSender{}, slog.New(slog.NewTextHandler(io.Discard, nil)))

		report := p.ProcessFeed(ctx)
		if !hasError(report, "fetch feed") {
			t.Errorf("expected fetch error, got %v", report.Errors)
		}
		if report.Processed != 0 {
			t.Errorf("expected nothing processed, got %d", report.Processed)
		}
	})

	t.Run("unparseable document", func(t *testing.T) {
		p, store, _ := newTestPipeline(t, "not xml at all")
		seedConfig(t, store, readyConfig())
		seedSubscription(t, store, model.Subscription{Keyword1: "vps"})

		report := p.ProcessFeed(ctx)
		if !hasError(report, "parse feed") {
			t.Errorf("expected parse error, got %v", report.Errors)
		}
	})

	t.Run("overlapping run is refused", func(t *testing.T) {
		p, store, _ := newTestPipeline(t, loadSampleXML(t))
		seedConfig(t, store, readyConfig())
		seedSubscription(t, store, model.Subscription{Keyword1: "vps"})

		p.running.Store(true)
		report := p.ProcessFeed(ctx)
		if !hasError(report, "already in progress") {
			t.Errorf("expected overlap error, got %v", report.Errors)
		}
		p.running.Store(false)

		report = p.ProcessFeed(ctx)
		if hasError(report, "already in progress") {
			t.Error("expected run to proceed after the previous one finished")
		}
	})
}

func TestProcessFeed(t *testing.T) {
	ctx := context.Background()
	p, store, sender := newTestPipeline(t, loadSampleXML(t))
	seedConfig(t, store, readyConfig())
	sub := seedSubscription(t, store, model.Subscription{Keyword1: "甲骨文"})

	report := p.ProcessFeed(ctx)

	if len(report.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", report.Errors)
	}
	// The fixture yields 4 ingestable items; only one mentions the keyword.
	if diff := cmp.Diff(4, report.Processed); diff != "" {
		t.Errorf("processed mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(1, report.Matched); diff != "" {
		t.Errorf("matched mismatch (-want +got):\n%s", diff)
	}
	if sender.count() != 1 {
		t.Fatalf("expected 1 notification, got %d", sender.count())
	}

	pushed, err := store.GetPostByPostID(ctx, 482)
	if err != nil {
		t.Fatalf("get pushed post: %v", err)
	}
	if pushed.PushStatus != model.StatusPushed {
		t.Errorf("expected pushed status, got %v", pushed.PushStatus)
	}
	if pushed.SubID != sub.ID {
		t.Errorf("expected sub id %d recorded, got %d", sub.ID, pushed.SubID)
	}
	if pushed.PushDate == nil {
		t.Error("expected push date set")
	}

	for _, id := range []int64{483, 484, 485} {
		got, err := store.GetPostByPostID(ctx, id)
		if err != nil {
			t.Fatalf("get post %d: %v", id, err)
		}
		if got.PushStatus != model.StatusSkipped {
			t.Errorf("post %d: expected skipped, got %v", id, got.PushStatus)
		}
	}
}

func TestProcessFeedIdempotent(t *testing.T) {
	ctx := context.Background()
	p, store, sender := newTestPipeline(t, loadSampleXML(t))
	seedConfig(t, store, readyConfig())
	seedSubscription(t, store, model.Subscription{Keyword1: "甲骨文"})

	first := p.ProcessFeed(ctx)
	second := p.ProcessFeed(ctx)

	if first.Processed != 4 || second.Processed != 0 {
		t.Errorf("processed: first %d, second %d", first.Processed, second.Processed)
	}
	if second.Matched != 0 {
		t.Errorf("second run matched %d, want 0", second.Matched)
	}
	if sender.count() != 1 {
		t.Errorf("expected exactly 1 notification across runs, got %d", sender.count())
	}

	posts, err := store.ListRecentPosts(ctx, 100)
	if err != nil {
		t.Fatalf("list posts: %v", err)
	}
	if len(posts) != 4 {
		t.Errorf("expected 4 stored posts, got %d", len(posts))
	}
}

func TestProcessFeedDispatchFailureRetries(t *testing.T) {
	ctx := context.Background()
	p, store, sender := newTestPipeline(t, loadSampleXML(t))
	seedConfig(t, store, readyConfig())
	seedSubscription(t, store, model.Subscription{Keyword1: "甲骨文"})

	sender.setErr(errors.New("telegram down"))
	report := p.ProcessFeed(ctx)

	if !hasError(report, "push failed") {
		t.Fatalf("expected push failure entry, got %v", report.Errors)
	}
	got, err := store.GetPostByPostID(ctx, 482)
	if err != nil {
		t.Fatalf("get post: %v", err)
	}
	if got.PushStatus != model.StatusPending {
		t.Fatalf("failed dispatch should leave the post pending, got %v", got.PushStatus)
	}

	// The next run retries the pending post without re-ingesting it.
	sender.setErr(nil)
	report = p.ProcessFeed(ctx)

	if len(report.Errors) != 0 {
		t.Fatalf("unexpected errors on retry: %v", report.Errors)
	}
	if report.Processed != 0 {
		t.Errorf("retry should not count as processed, got %d", report.Processed)
	}
	if sender.count() != 1 {
		t.Errorf("expected 1 successful delivery, got %d", sender.count())
	}

	got, err = store.GetPostByPostID(ctx, 482)
	if err != nil {
		t.Fatalf("get post after retry: %v", err)
	}
	if got.PushStatus != model.StatusPushed {
		t.Errorf("expected pushed after retry, got %v", got.PushStatus)
	}
}

func TestProcessFeedPushDisabled(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		cfg  model.Config
	}{
		{
			name: "no chat bound",
			cfg:  model.Config{Username: "admin", Password: "pw", BotToken: "123:abc"},
		},
		{
			name: "push stopped",
			cfg:  model.Config{Username: "admin", Password: "pw", BotToken: "123:abc", ChatID: 100, StopPush: true},
		},
		{
			name: "no bot token",
			cfg:  model.Config{Username: "admin", Password: "pw", ChatID: 100},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, store, sender := newTestPipeline(t, loadSampleXML(t))
			seedConfig(t, store, tt.cfg)
			sub := seedSubscription(t, store, model.Subscription{Keyword1: "甲骨文"})

			report := p.ProcessFeed(ctx)

			if report.Matched != 1 {
				t.Fatalf("expected 1 match, got %d", report.Matched)
			}
			if sender.count() != 0 {
				t.Errorf("expected no deliveries, got %d", sender.count())
			}

			got, err := store.GetPostByPostID(ctx, 482)
			if err != nil {
				t.Fatalf("get post: %v", err)
			}
			if got.PushStatus != model.StatusSkipped {
				t.Errorf("expected skipped, got %v", got.PushStatus)
			}
			if got.SubID != sub.ID {
				t.Errorf("matched sub id should still be recorded, got %d", got.SubID)
			}
		})
	}
}

func TestProcessFeedOnlyTitle(t *testing.T) {
	ctx := context.Background()
	cfg := readyConfig()
	cfg.OnlyTitle = true

	p, store, sender := newTestPipeline(t, loadSampleXML(t))
	seedConfig(t, store, cfg)
	// "sandbox" appears only in one item's description.
	seedSubscription(t, store, model.Subscription{Keyword1: "sandbox"})

	report := p.ProcessFeed(ctx)

	if report.Matched != 0 {
		t.Errorf("expected no title matches, got %d", report.Matched)
	}
	if sender.count() != 0 {
		t.Errorf("expected no deliveries, got %d", sender.count())
	}
}

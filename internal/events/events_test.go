package events

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// --- モック定義 ---

type mockValidator struct {
	validateFn func(rawURL string) error
}

func (m *mockValidator) ValidateURL(rawURL string) error {
	if m.validateFn != nil {
		return m.validateFn(rawURL)
	}
	return nil
}

type passthroughSanitizer struct{}

func (passthroughSanitizer) Sanitize(raw string) string { return raw }

const sampleRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Events</title>
    <item>
      <title>Spring Meetup</title>
      <link>https://events.example.com/spring</link>
      <description>Registration is open</description>
      <pubDate>Mon, 02 Mar 2026 10:00:00 +0900</pubDate>
    </item>
    <item>
      <title>Summer Conference</title>
      <link>https://events.example.com/summer</link>
      <description>Call for papers</description>
      <pubDate>Wed, 01 Jul 2026 10:00:00 +0900</pubDate>
    </item>
  </channel>
</rss>`

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(t *testing.T, url string, client *http.Client, ttl time.Duration) *Service {
	t.Helper()
	return NewService(url, client, &mockValidator{}, passthroughSanitizer{}, ttl, 1<<20, testLogger())
}

// --- テスト ---

func TestLatest_ParsesFeedItems(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(sampleRSS))
	}))
	defer ts.Close()

	svc := newTestService(t, ts.URL, ts.Client(), time.Minute)

	items := svc.Latest(context.Background(), 10)
	if len(items) != 2 {
		t.Fatalf("expected 2 announcements, got %d", len(items))
	}
	if items[0].Title != "Spring Meetup" {
		t.Errorf("title = %q, want Spring Meetup", items[0].Title)
	}
	if items[0].Link != "https://events.example.com/spring" {
		t.Errorf("link = %q", items[0].Link)
	}
	if items[0].Summary != "Registration is open" {
		t.Errorf("summary = %q", items[0].Summary)
	}
	if items[0].Published.IsZero() {
		t.Error("expected parsed publish date")
	}
}

func TestLatest_RespectsLimit(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sampleRSS))
	}))
	defer ts.Close()

	svc := newTestService(t, ts.URL, ts.Client(), time.Minute)

	items := svc.Latest(context.Background(), 1)
	if len(items) != 1 {
		t.Fatalf("expected 1 announcement with limit=1, got %d", len(items))
	}
}

func TestLatest_CachesWithinTTL(t *testing.T) {
	var hits atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(sampleRSS))
	}))
	defer ts.Close()

	svc := newTestService(t, ts.URL, ts.Client(), time.Hour)

	svc.Latest(context.Background(), 10)
	svc.Latest(context.Background(), 10)
	svc.Latest(context.Background(), 10)

	if got := hits.Load(); got != 1 {
		t.Errorf("expected 1 upstream fetch within TTL, got %d", got)
	}
}

func TestLatest_RefetchesAfterTTL(t *testing.T) {
	var hits atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(sampleRSS))
	}))
	defer ts.Close()

	svc := newTestService(t, ts.URL, ts.Client(), time.Minute)

	base := time.Now()
	svc.now = func() time.Time { return base }
	svc.Latest(context.Background(), 10)

	svc.now = func() time.Time { return base.Add(2 * time.Minute) }
	svc.Latest(context.Background(), 10)

	if got := hits.Load(); got != 2 {
		t.Errorf("expected refetch after TTL, got %d fetches", got)
	}
}

func TestLatest_FetchFailure_ReturnsStaleCache(t *testing.T) {
	var fail atomic.Bool
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(sampleRSS))
	}))
	defer ts.Close()

	svc := newTestService(t, ts.URL, ts.Client(), time.Minute)

	base := time.Now()
	svc.now = func() time.Time { return base }
	first := svc.Latest(context.Background(), 10)
	if len(first) != 2 {
		t.Fatalf("priming fetch failed: got %d items", len(first))
	}

	fail.Store(true)
	svc.now = func() time.Time { return base.Add(2 * time.Minute) }
	stale := svc.Latest(context.Background(), 10)
	if len(stale) != 2 {
		t.Errorf("expected stale cache on fetch failure, got %d items", len(stale))
	}
}

func TestLatest_Disabled_ReturnsNil(t *testing.T) {
	svc := newTestService(t, "", http.DefaultClient, time.Minute)

	if svc.Enabled() {
		t.Error("expected Enabled()=false for empty feed URL")
	}
	if items := svc.Latest(context.Background(), 10); items != nil {
		t.Errorf("expected nil announcements when disabled, got %v", items)
	}
}

func TestLatest_ValidatorRejection_ReturnsEmpty(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sampleRSS))
	}))
	defer ts.Close()

	svc := NewService(ts.URL, ts.Client(), &mockValidator{
		validateFn: func(string) error { return context.Canceled },
	}, passthroughSanitizer{}, time.Minute, 1<<20, testLogger())

	if items := svc.Latest(context.Background(), 10); len(items) != 0 {
		t.Errorf("expected no announcements when URL validation fails, got %d", len(items))
	}
}

func TestLatest_SanitizesTitleAndSummary(t *testing.T) {
	dirty := strings.Replace(sampleRSS, "Registration is open",
		"Registration <![CDATA[<script>alert(1)</script>]]> open", 1)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(dirty))
	}))
	defer ts.Close()

	var seen []string
	svc := NewService(ts.URL, ts.Client(), &mockValidator{}, sanitizerFunc(func(raw string) string {
		seen = append(seen, raw)
		return raw
	}), time.Minute, 1<<20, testLogger())

	svc.Latest(context.Background(), 10)
	if len(seen) == 0 {
		t.Fatal("expected sanitizer to be applied to feed content")
	}
}

type sanitizerFunc func(string) string

func (f sanitizerFunc) Sanitize(raw string) string { return f(raw) }

// Package events はお知らせフィードの取得とキャッシュを提供する。
//
// ランディングページの告知カードに表示するイベント情報を、
// 外部のRSS/Atomフィードから取得する。フィードURLは設定で指定し、
// 未設定の場合はカードを表示しない。
package events

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"
)

// Announcement は告知カードに表示する1件分のお知らせ。
type Announcement struct {
	Title     string
	Link      string
	Summary   string
	Published time.Time
}

// URLValidator はフェッチ前のURL検証インターフェース。
type URLValidator interface {
	ValidateURL(rawURL string) error
}

// Sanitizer はお知らせ本文のサニタイズインターフェース。
type Sanitizer interface {
	Sanitize(rawHTML string) string
}

// Service はお知らせフィードを取得し、TTL付きでキャッシュする。
// 取得失敗時は期限切れキャッシュがあればそれを返し、なければ空を返す。
// お知らせはベストエフォートであり、取得失敗がページ表示を妨げることはない。
type Service struct {
	feedURL   string
	client    *http.Client
	guard     URLValidator
	sanitizer Sanitizer
	parser    *gofeed.Parser
	ttl       time.Duration
	maxBody   int64
	logger    *slog.Logger
	now       func() time.Time

	mu        sync.Mutex
	cached    []Announcement
	fetchedAt time.Time
}

// NewService はServiceを生成する。
// clientにはSSRF防止付きのHTTPクライアントを渡すことを想定している。
func NewService(
	feedURL string,
	client *http.Client,
	guard URLValidator,
	sanitizer Sanitizer,
	ttl time.Duration,
	maxBody int64,
	logger *slog.Logger,
) *Service {
	return &Service{
		feedURL:   feedURL,
		client:    client,
		guard:     guard,
		sanitizer: sanitizer,
		parser:    gofeed.NewParser(),
		ttl:       ttl,
		maxBody:   maxBody,
		logger:    logger,
		now:       time.Now,
	}
}

// Enabled はお知らせフィードが設定されているかを返す。
func (s *Service) Enabled() bool {
	return s.feedURL != ""
}

// Latest は最新のお知らせを最大limit件返す。
// キャッシュが有効期間内であればフェッチせずキャッシュを返す。
func (s *Service) Latest(ctx context.Context, limit int) []Announcement {
	if !s.Enabled() {
		return nil
	}

	s.mu.Lock()
	if s.cached != nil && s.now().Sub(s.fetchedAt) < s.ttl {
		defer s.mu.Unlock()
		return clip(s.cached, limit)
	}
	s.mu.Unlock()

	items, err := s.fetch(ctx)
	if err != nil {
		s.logger.Warn("failed to fetch announcements feed",
			slog.String("feed_url", s.feedURL),
			slog.String("error", err.Error()),
		)
		s.mu.Lock()
		defer s.mu.Unlock()
		return clip(s.cached, limit)
	}

	s.mu.Lock()
	s.cached = items
	s.fetchedAt = s.now()
	s.mu.Unlock()

	return clip(items, limit)
}

// fetch はフィードを取得してパースする。
func (s *Service) fetch(ctx context.Context) ([]Announcement, error) {
	if err := s.guard.ValidateURL(s.feedURL); err != nil {
		return nil, fmt.Errorf("URL validation failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "FeedMatters/1.0")
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml, text/xml, */*")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBody))
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}

	feed, err := s.parser.ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	announcements := make([]Announcement, 0, len(feed.Items))
	for _, item := range feed.Items {
		a := Announcement{
			Title:   s.sanitizer.Sanitize(item.Title),
			Link:    item.Link,
			Summary: s.sanitizer.Sanitize(item.Description),
		}
		if item.PublishedParsed != nil {
			a.Published = *item.PublishedParsed
		}
		announcements = append(announcements, a)
	}

	return announcements, nil
}

func clip(items []Announcement, limit int) []Announcement {
	if limit <= 0 || len(items) <= limit {
		return items
	}
	return items[:limit]
}

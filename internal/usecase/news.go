package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"tgn-site/internal/domain"
)

// FeedFetcher returns external articles; failures surface as an empty list.
type FeedFetcher interface {
	Fetch(ctx context.Context) []domain.NewsItem
}

// PostLister reads the local article collection.
type PostLister interface {
	ListPosts(ctx context.Context) ([]domain.Post, error)
}

// NewsService merges the external feed with the local article store into one
// date-ordered list.
type NewsService struct {
	feed   FeedFetcher
	posts  PostLister
	logger *slog.Logger
}

func NewNewsService(feed FeedFetcher, posts PostLister, logger *slog.Logger) (*NewsService, error) {
	if feed == nil {
		return nil, fmt.Errorf("usecase: feed fetcher must not be nil")
	}
	if posts == nil {
		return nil, fmt.Errorf("usecase: post lister must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &NewsService{feed: feed, posts: posts, logger: logger}, nil
}

// Unified returns feed items and local posts merged and sorted descending by
// date. A feed outage degrades to local posts only; a store outage is an
// internal error.
func (s *NewsService) Unified(ctx context.Context) ([]domain.NewsItem, error) {
	external := s.feed.Fetch(ctx)

	posts, err := s.posts.ListPosts(ctx)
	if err != nil {
		return nil, newError(ErrorInternal, "post_list_error", err)
	}

	items := make([]domain.NewsItem, 0, len(external)+len(posts))
	items = append(items, external...)
	for _, p := range posts {
		items = append(items, postToNewsItem(p))
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Date.After(items[j].Date)
	})
	return items, nil
}

func postToNewsItem(p domain.Post) domain.NewsItem {
	date := p.CreatedAt
	if p.PublishedAt != nil {
		if parsed, err := time.Parse("2006-01-02", *p.PublishedAt); err == nil {
			date = parsed
		}
	}
	return domain.NewsItem{
		ID:          fmt.Sprintf("post-%d", p.ID),
		Title:       p.Title,
		Date:        date,
		Description: teaser(p.Content),
		Category:    p.Category,
		Href:        fmt.Sprintf("/news/admin/%d", p.ID),
		IsExternal:  false,
	}
}

// teaser flattens the article body into a short single-line description.
func teaser(content string) string {
	flat := strings.Join(strings.Fields(content), " ")
	runes := []rune(flat)
	if len(runes) <= 100 {
		return flat
	}
	return string(runes[:100])
}

// Package feed extracts news items from the external note.com RSS feed.
//
// The parser is deliberately regex-based, best-effort extraction: the feed is
// loosely structured and a malformed document must degrade to an empty item
// list rather than failing the news page.
package feed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"tgn-site/internal/domain"
)

const (
	defaultFeedURL = "https://note.com/tkbgradnet/rss"

	// Descriptions are teasers; anything past 100 runes is noise.
	maxDescriptionRunes = 100
)

var (
	reItem = regexp.MustCompile(`(?s)<item>(.*?)</item>`)

	reTitleCDATA = regexp.MustCompile(`(?s)<title><!\[CDATA\[(.*?)\]\]></title>`)
	reTitle      = regexp.MustCompile(`(?s)<title>(.*?)</title>`)
	reLink       = regexp.MustCompile(`(?s)<link>(.*?)</link>`)
	rePubDate    = regexp.MustCompile(`(?s)<pubDate>(.*?)</pubDate>`)
	reDescCDATA  = regexp.MustCompile(`(?s)<description><!\[CDATA\[(.*?)\]\]></description>`)
	reDesc       = regexp.MustCompile(`(?s)<description>(.*?)</description>`)
	reTag        = regexp.MustCompile(`<[^>]*>`)
)

// Fetcher returns the external articles as unified news items.
type Fetcher interface {
	Fetch(ctx context.Context) []domain.NewsItem
}

// Client fetches and extracts the note.com feed.
type Client struct {
	feedURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

type Option func(*Client)

func WithFeedURL(u string) Option {
	return func(c *Client) {
		c.feedURL = strings.TrimSpace(u)
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func New(logger *slog.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		feedURL:    defaultFeedURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch downloads the feed and extracts its items. Any failure is logged and
// reported as an empty list; the caller renders from local articles alone.
func (c *Client) Fetch(ctx context.Context) []domain.NewsItem {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.feedURL, nil)
	if err != nil {
		c.logger.Error("feed: create request", "err", err)
		return nil
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("feed: fetch", "url", c.feedURL, "err", err)
		return nil
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		c.logger.Error("feed: unexpected status", "url", c.feedURL, "status", res.StatusCode)
		return nil
	}

	raw, err := io.ReadAll(io.LimitReader(res.Body, 4<<20))
	if err != nil {
		c.logger.Error("feed: read body", "err", err)
		return nil
	}

	return Extract(string(raw))
}

// Extract pulls items out of a raw RSS document. Fields that cannot be
// matched stay empty; an unparseable date yields the zero time, which sorts
// last in the merged list.
func Extract(xml string) []domain.NewsItem {
	blocks := reItem.FindAllStringSubmatch(xml, -1)
	items := make([]domain.NewsItem, 0, len(blocks))

	for i, block := range blocks {
		body := block[1]
		items = append(items, domain.NewsItem{
			ID:          fmt.Sprintf("note-%d", i),
			Title:       firstMatch(body, reTitleCDATA, reTitle),
			Date:        parsePubDate(firstMatch(body, rePubDate)),
			Description: shorten(stripTags(firstMatch(body, reDescCDATA, reDesc))),
			Category:    "note",
			Href:        firstMatch(body, reLink),
			IsExternal:  true,
		})
	}
	return items
}

func firstMatch(s string, patterns ...*regexp.Regexp) string {
	for _, re := range patterns {
		if m := re.FindStringSubmatch(s); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}

func stripTags(s string) string {
	return reTag.ReplaceAllString(s, "")
}

func shorten(s string) string {
	runes := []rune(s)
	if len(runes) <= maxDescriptionRunes {
		return s
	}
	return string(runes[:maxDescriptionRunes])
}

func parsePubDate(s string) time.Time {
	for _, layout := range []string{time.RFC1123Z, time.RFC1123, time.RFC822Z, time.RFC822} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

package client

import (
	"context"
	"fmt"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/newsmill/newsmill/internal/service"
)

// LocalFeed parses RSS/Atom feeds in-process. Used when no content API is
// configured, so a bare deployment can still ingest feeds.
type LocalFeed struct {
	parser    *gofeed.Parser
	userAgent string
}

func NewLocalFeed(userAgent string) *LocalFeed {
	parser := gofeed.NewParser()
	parser.UserAgent = userAgent
	return &LocalFeed{
		parser:    parser,
		userAgent: userAgent,
	}
}

func (f *LocalFeed) FetchFeed(ctx context.Context, feedURL string, limit int, keywords string) ([]service.FeedItem, error) {
	feed, err := f.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed %s: %w", feedURL, err)
	}

	filters := parseKeywords(keywords)

	items := make([]service.FeedItem, 0, limit)
	for _, item := range feed.Items {
		if limit > 0 && len(items) >= limit {
			break
		}

		link := strings.TrimSpace(item.Link)
		title := strings.TrimSpace(item.Title)
		if link == "" || title == "" {
			continue
		}
		if !matchesKeywords(item, filters) {
			continue
		}

		// Strip tracking parameters so the dedup ledger sees a stable URL
		if idx := strings.Index(link, "?utm_"); idx > 0 {
			link = link[:idx]
		}

		out := service.FeedItem{
			Link:        link,
			Title:       title,
			Description: strings.TrimSpace(item.Description),
		}
		if item.PublishedParsed != nil {
			published := *item.PublishedParsed
			out.Published = &published
		}
		items = append(items, out)
	}

	return items, nil
}

func (f *LocalFeed) TestFeed(ctx context.Context, feedURL string) error {
	feed, err := f.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return fmt.Errorf("failed to parse feed %s: %w", feedURL, err)
	}
	if len(feed.Items) == 0 {
		return fmt.Errorf("feed %s has no items", feedURL)
	}
	return nil
}

func parseKeywords(keywords string) []string {
	var filters []string
	for _, kw := range strings.Split(keywords, ",") {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			filters = append(filters, kw)
		}
	}
	return filters
}

// matchesKeywords keeps an item when any keyword appears in its title or
// description. No keywords means keep everything.
func matchesKeywords(item *gofeed.Item, filters []string) bool {
	if len(filters) == 0 {
		return true
	}
	haystack := strings.ToLower(item.Title + " " + item.Description)
	for _, kw := range filters {
		if strings.Contains(haystack, kw) {
			return true
		}
	}
	return false
}

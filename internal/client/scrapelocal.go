package client

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/newsmill/newsmill/internal/service"
)

// Selectors tried in order when looking for the article body.
var articleSelectors = []string{
	"article",
	"main .post-content",
	"main .entry-content",
	".article-body",
	".post-body",
	"main",
}

// LocalScraper extracts article content with a DOM query, the fallback path
// when no content API is configured.
type LocalScraper struct {
	client      *http.Client
	userAgent   string
	fetchImages bool
}

func NewLocalScraper(userAgent string, fetchImages bool) *LocalScraper {
	return &LocalScraper{
		client:      &http.Client{},
		userAgent:   userAgent,
		fetchImages: fetchImages,
	}
}

func (s *LocalScraper) ScrapeArticle(ctx context.Context, url string) (*service.ScrapedArticle, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch of %s returned status %d", url, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", url, err)
	}

	article := &service.ScrapedArticle{
		URL:    url,
		Title:  extractTitle(doc),
		Author: strings.TrimSpace(doc.Find(`meta[name="author"]`).AttrOr("content", "")),
	}

	if published := doc.Find(`meta[property="article:published_time"]`).AttrOr("content", ""); published != "" {
		if t, err := time.Parse(time.RFC3339, published); err == nil {
			article.Date = &t
		}
	}

	body := findArticleBody(doc)
	if body == nil {
		return nil, fmt.Errorf("no article body found at %s", url)
	}

	var paragraphs []string
	body.Find("p").Each(func(_ int, sel *goquery.Selection) {
		text := strings.TrimSpace(sel.Text())
		if text != "" {
			paragraphs = append(paragraphs, text)
		}
	})
	article.Content = strings.Join(paragraphs, "\n\n")
	if article.Content == "" {
		return nil, fmt.Errorf("no article text found at %s", url)
	}

	if s.fetchImages {
		body.Find("img[src]").Each(func(_ int, sel *goquery.Selection) {
			src := sel.AttrOr("src", "")
			if !strings.HasPrefix(src, "http") {
				return
			}
			article.Images = append(article.Images, service.ScrapedImage{
				URL:     src,
				Alt:     sel.AttrOr("alt", ""),
				Caption: strings.TrimSpace(sel.Parent().Find("figcaption").Text()),
			})
		})
	}

	return article, nil
}

func extractTitle(doc *goquery.Document) string {
	if title := doc.Find(`meta[property="og:title"]`).AttrOr("content", ""); title != "" {
		return strings.TrimSpace(title)
	}
	if title := doc.Find("h1").First().Text(); strings.TrimSpace(title) != "" {
		return strings.TrimSpace(title)
	}
	return strings.TrimSpace(doc.Find("title").Text())
}

func findArticleBody(doc *goquery.Document) *goquery.Selection {
	for _, selector := range articleSelectors {
		sel := doc.Find(selector).First()
		if sel.Length() > 0 && strings.TrimSpace(sel.Text()) != "" {
			return sel
		}
	}
	return nil
}

// Package client holds the collaborator implementations: the scrape/AI
// sidecar, the blog platform, and the built-in fallbacks used when no sidecar
// is configured.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/newsmill/newsmill/internal/config"
	"github.com/newsmill/newsmill/internal/service"
)

// ContentAPI talks to the scrape/AI sidecar service. It implements the
// Scraper, FeedFetcher and Generator contracts.
type ContentAPI struct {
	baseURL string
	apiKey  string
	cfg     *config.ScraperConfig
	client  *http.Client
}

func NewContentAPI(cfg *config.ScraperConfig, apiKey string) *ContentAPI {
	return &ContentAPI{
		baseURL: cfg.APIURL,
		apiKey:  apiKey,
		cfg:     cfg,
		// Per-call deadlines come from the caller's context.
		client: &http.Client{},
	}
}

func (c *ContentAPI) ScrapeArticle(ctx context.Context, url string) (*service.ScrapedArticle, error) {
	body := map[string]any{
		"url":                 url,
		"fetch_images":        c.cfg.FetchImages,
		"fetch_social_embeds": c.cfg.FetchSocialEmbeds,
	}

	var scraped service.ScrapedArticle
	if err := c.post(ctx, "/scrape", body, &scraped); err != nil {
		return nil, err
	}
	if scraped.URL == "" {
		scraped.URL = url
	}
	return &scraped, nil
}

func (c *ContentAPI) FetchFeed(ctx context.Context, feedURL string, limit int, keywords string) ([]service.FeedItem, error) {
	body := map[string]any{
		"feed_url": feedURL,
		"limit":    limit,
		"keywords": keywords,
	}

	var response struct {
		Items []service.FeedItem `json:"items"`
	}
	if err := c.post(ctx, "/scrape/rss", body, &response); err != nil {
		return nil, err
	}
	return response.Items, nil
}

func (c *ContentAPI) TestFeed(ctx context.Context, feedURL string) error {
	body := map[string]any{"feed_url": feedURL}
	var response struct {
		Valid bool `json:"valid"`
	}
	if err := c.post(ctx, "/scrape/rss/test", body, &response); err != nil {
		return err
	}
	if !response.Valid {
		return fmt.Errorf("feed %s is not a valid RSS/Atom feed", feedURL)
	}
	return nil
}

func (c *ContentAPI) GenerateContent(ctx context.Context, req *service.GenerateRequest) (*service.GeneratedContent, error) {
	var generated service.GeneratedContent
	if err := c.post(ctx, "/ai/generate", req, &generated); err != nil {
		return nil, err
	}
	return &generated, nil
}

func (c *ContentAPI) GenerateImage(ctx context.Context, prompt, model, style string) (string, error) {
	body := map[string]any{
		"prompt":  prompt,
		"model":   model,
		"style":   style,
		"api_key": c.apiKey,
	}

	var response struct {
		URL string `json:"url"`
	}
	if err := c.post(ctx, "/ai/generate_image", body, &response); err != nil {
		return "", err
	}
	if response.URL == "" {
		return "", fmt.Errorf("image API returned no url")
	}
	return response.URL, nil
}

func (c *ContentAPI) GenerateInternalLinks(ctx context.Context, content string) (string, error) {
	body := map[string]any{"content": content}

	var response struct {
		Content string `json:"content"`
	}
	if err := c.post(ctx, "/ai/internal_links", body, &response); err != nil {
		return "", err
	}
	if response.Content == "" {
		return content, nil
	}
	return response.Content, nil
}

// Status probes the sidecar's health endpoint.
func (c *ContentAPI) Status(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/status", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach content API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("content API returned status %d", resp.StatusCode)
	}
	return nil
}

func (c *ContentAPI) post(ctx context.Context, endpoint string, body, out any) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewBuffer(jsonBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("content API returned status %d: %s", resp.StatusCode, string(respBody))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path"

	"github.com/newsmill/newsmill/internal/config"
	"github.com/newsmill/newsmill/internal/service"
	"github.com/newsmill/newsmill/pkg/util"
)

// WordPress writes finished posts into a WordPress site through its REST API,
// authenticated with an application password.
type WordPress struct {
	cfg    *config.WordPressConfig
	client *http.Client
}

func NewWordPress(cfg *config.WordPressConfig) *WordPress {
	return &WordPress{
		cfg:    cfg,
		client: &http.Client{},
	}
}

func (w *WordPress) CreatePost(ctx context.Context, draft *service.PostDraft) (int64, error) {
	categoryIDs, err := w.resolveTerms(ctx, "categories", draft.Categories)
	if err != nil {
		return 0, err
	}
	tagIDs, err := w.resolveTerms(ctx, "tags", draft.Tags)
	if err != nil {
		return 0, err
	}

	body := map[string]any{
		"title":   draft.Title,
		"content": draft.Content,
		"status":  draft.Status,
		"author":  draft.Author,
	}
	if len(categoryIDs) > 0 {
		body["categories"] = categoryIDs
	}
	if len(tagIDs) > 0 {
		body["tags"] = tagIDs
	}

	var created struct {
		ID int64 `json:"id"`
	}
	if err := w.request(ctx, http.MethodPost, "/wp-json/wp/v2/posts", body, &created); err != nil {
		return 0, err
	}
	if created.ID == 0 {
		return 0, fmt.Errorf("wordpress returned no post id")
	}
	return created.ID, nil
}

func (w *WordPress) UpdatePost(ctx context.Context, postID int64, update service.PostUpdate) error {
	body := map[string]any{}
	if update.Title != nil {
		body["title"] = *update.Title
	}
	if update.Content != nil {
		body["content"] = *update.Content
	}
	if len(body) == 0 {
		return nil
	}

	endpoint := fmt.Sprintf("/wp-json/wp/v2/posts/%d", postID)
	return w.request(ctx, http.MethodPost, endpoint, body, &struct{}{})
}

// SetFeaturedImage downloads the image, uploads it to the media library and
// attaches it to the post.
func (w *WordPress) SetFeaturedImage(ctx context.Context, postID int64, imageURL string) error {
	mediaID, err := w.uploadMedia(ctx, imageURL)
	if err != nil {
		return err
	}

	endpoint := fmt.Sprintf("/wp-json/wp/v2/posts/%d", postID)
	body := map[string]any{"featured_media": mediaID}
	return w.request(ctx, http.MethodPost, endpoint, body, &struct{}{})
}

func (w *WordPress) uploadMedia(ctx context.Context, imageURL string) (int64, error) {
	imgReq, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create image request: %w", err)
	}
	imgResp, err := w.client.Do(imgReq)
	if err != nil {
		return 0, fmt.Errorf("failed to download image: %w", err)
	}
	defer imgResp.Body.Close()
	if imgResp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("image download returned status %d", imgResp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(imgResp.Body, 20<<20))
	if err != nil {
		return 0, fmt.Errorf("failed to read image: %w", err)
	}

	filename := path.Base(imageURL)
	if filename == "" || filename == "." || filename == "/" {
		filename = "featured-image.jpg"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.cfg.BaseURL+"/wp-json/wp/v2/media", bytes.NewReader(data))
	if err != nil {
		return 0, fmt.Errorf("failed to create media request: %w", err)
	}
	req.SetBasicAuth(w.cfg.Username, w.cfg.AppPassword)
	req.Header.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	contentType := imgResp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/jpeg"
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := w.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to upload media: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return 0, fmt.Errorf("media upload returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var media struct {
		ID int64 `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&media); err != nil {
		return 0, fmt.Errorf("failed to decode media response: %w", err)
	}
	return media.ID, nil
}

// resolveTerms maps category/tag names to term ids, creating missing terms.
// Feed auto-categorization depends on the create path.
func (w *WordPress) resolveTerms(ctx context.Context, taxonomy string, names []string) ([]int64, error) {
	var ids []int64
	for _, name := range names {
		if name == "" {
			continue
		}
		id, err := w.findTerm(ctx, taxonomy, name)
		if err != nil {
			return nil, err
		}
		if id == 0 {
			id, err = w.createTerm(ctx, taxonomy, name)
			if err != nil {
				return nil, err
			}
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (w *WordPress) findTerm(ctx context.Context, taxonomy, name string) (int64, error) {
	endpoint := fmt.Sprintf("/wp-json/wp/v2/%s?slug=%s", taxonomy, util.GenerateSlug(name))

	var terms []struct {
		ID int64 `json:"id"`
	}
	if err := w.request(ctx, http.MethodGet, endpoint, nil, &terms); err != nil {
		return 0, err
	}
	if len(terms) == 0 {
		return 0, nil
	}
	return terms[0].ID, nil
}

func (w *WordPress) createTerm(ctx context.Context, taxonomy, name string) (int64, error) {
	endpoint := fmt.Sprintf("/wp-json/wp/v2/%s", taxonomy)
	body := map[string]any{"name": name, "slug": util.GenerateSlug(name)}

	var term struct {
		ID int64 `json:"id"`
	}
	if err := w.request(ctx, http.MethodPost, endpoint, body, &term); err != nil {
		return 0, err
	}
	return term.ID, nil
}

func (w *WordPress) request(ctx context.Context, method, endpoint string, body, out any) error {
	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, w.cfg.BaseURL+endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth(w.cfg.Username, w.cfg.AppPassword)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("wordpress returned status %d: %s", resp.StatusCode, string(respBody))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newsmill/newsmill/internal/config"
	"github.com/newsmill/newsmill/internal/service"
)

func newWordPress(serverURL string) *WordPress {
	return NewWordPress(&config.WordPressConfig{
		BaseURL:     serverURL,
		Username:    "bot",
		AppPassword: "app-password",
	})
}

func TestCreatePostResolvesTerms(t *testing.T) {
	var createdPost map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		require.Equal(t, "bot", user)
		require.Equal(t, "app-password", pass)

		switch {
		case r.URL.Path == "/wp-json/wp/v2/categories" && r.Method == http.MethodGet:
			// Existing category.
			require.Equal(t, "technology", r.URL.Query().Get("slug"))
			fmt.Fprint(w, `[{"id":11}]`)
		case r.URL.Path == "/wp-json/wp/v2/tags" && r.Method == http.MethodGet:
			// Unknown tag; forces the create path.
			fmt.Fprint(w, `[]`)
		case r.URL.Path == "/wp-json/wp/v2/tags" && r.Method == http.MethodPost:
			w.WriteHeader(http.StatusCreated)
			fmt.Fprint(w, `{"id":23}`)
		case r.URL.Path == "/wp-json/wp/v2/posts" && r.Method == http.MethodPost:
			require.NoError(t, json.NewDecoder(r.Body).Decode(&createdPost))
			w.WriteHeader(http.StatusCreated)
			fmt.Fprint(w, `{"id":1001}`)
		default:
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))
	defer srv.Close()

	wp := newWordPress(srv.URL)
	postID, err := wp.CreatePost(context.Background(), &service.PostDraft{
		Title:      "Headline",
		Content:    "Body",
		Status:     "publish",
		Categories: []string{"Technology"},
		Tags:       []string{"Economy"},
		Author:     3,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1001), postID)

	assert.Equal(t, "Headline", createdPost["title"])
	assert.Equal(t, []any{float64(11)}, createdPost["categories"])
	assert.Equal(t, []any{float64(23)}, createdPost["tags"])
	assert.Equal(t, float64(3), createdPost["author"])
}

func TestCreatePostErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"code":"rest_cannot_create"}`, http.StatusForbidden)
	}))
	defer srv.Close()

	wp := newWordPress(srv.URL)
	_, err := wp.CreatePost(context.Background(), &service.PostDraft{Title: "x", Content: "y"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestUpdatePostAppendsContent(t *testing.T) {
	var updated map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/wp-json/wp/v2/posts/1001", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&updated))
		fmt.Fprint(w, `{"id":1001}`)
	}))
	defer srv.Close()

	wp := newWordPress(srv.URL)
	content := "Body with footer"
	err := wp.UpdatePost(context.Background(), 1001, service.PostUpdate{Content: &content})
	require.NoError(t, err)
	assert.Equal(t, "Body with footer", updated["content"])
}

func TestUpdatePostEmptyIsNoop(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected for an empty update")
	}))
	defer srv.Close()

	wp := newWordPress(srv.URL)
	require.NoError(t, wp.UpdatePost(context.Background(), 1001, service.PostUpdate{}))
}

func TestSetFeaturedImage(t *testing.T) {
	imgSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("png-bytes"))
	}))
	defer imgSrv.Close()

	var featured float64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/wp-json/wp/v2/media":
			require.Equal(t, "image/png", r.Header.Get("Content-Type"))
			require.Contains(t, r.Header.Get("Content-Disposition"), "lead.png")
			w.WriteHeader(http.StatusCreated)
			fmt.Fprint(w, `{"id":555}`)
		case "/wp-json/wp/v2/posts/1001":
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			featured = body["featured_media"].(float64)
			fmt.Fprint(w, `{"id":1001}`)
		default:
			t.Fatalf("unexpected request %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	wp := newWordPress(srv.URL)
	err := wp.SetFeaturedImage(context.Background(), 1001, imgSrv.URL+"/lead.png")
	require.NoError(t, err)
	assert.Equal(t, float64(555), featured)
}

func TestSetFeaturedImageDownloadFailure(t *testing.T) {
	imgSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer imgSrv.Close()

	wp := newWordPress("http://unused.invalid")
	err := wp.SetFeaturedImage(context.Background(), 1001, imgSrv.URL+"/missing.png")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

package client

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Example Tech News</title>
  <link>https://news.example.com</link>
  <item>
    <title>Chip maker posts record quarter</title>
    <link>https://news.example.com/chips?utm_source=rss&amp;utm_medium=feed</link>
    <description>Semiconductor earnings beat estimates.</description>
    <pubDate>Mon, 02 Mar 2026 08:00:00 GMT</pubDate>
  </item>
  <item>
    <title>Local bakery wins award</title>
    <link>https://news.example.com/bakery</link>
    <description>Sourdough triumph downtown.</description>
  </item>
  <item>
    <title>New datacenter breaks ground</title>
    <link>https://news.example.com/datacenter</link>
    <description>Cloud capacity expansion announced.</description>
  </item>
  <item>
    <title>Untitled item</title>
    <link></link>
  </item>
</channel>
</rss>`

func newFeedServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, testRSS)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestLocalFeedFetch(t *testing.T) {
	srv := newFeedServer(t)
	f := NewLocalFeed("newsmill-test")

	items, err := f.FetchFeed(context.Background(), srv.URL, 10, "")
	require.NoError(t, err)
	require.Len(t, items, 3)

	// Tracking parameters are stripped so the ledger sees a stable URL.
	assert.Equal(t, "https://news.example.com/chips", items[0].Link)
	require.NotNil(t, items[0].Published)

	assert.Equal(t, "https://news.example.com/bakery", items[1].Link)
	assert.Nil(t, items[1].Published)
}

func TestLocalFeedKeywordFilter(t *testing.T) {
	srv := newFeedServer(t)
	f := NewLocalFeed("newsmill-test")

	items, err := f.FetchFeed(context.Background(), srv.URL, 10, "cloud, semiconductor")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Chip maker posts record quarter", items[0].Title)
	assert.Equal(t, "New datacenter breaks ground", items[1].Title)
}

func TestLocalFeedLimit(t *testing.T) {
	srv := newFeedServer(t)
	f := NewLocalFeed("newsmill-test")

	items, err := f.FetchFeed(context.Background(), srv.URL, 1, "")
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestLocalFeedTest(t *testing.T) {
	srv := newFeedServer(t)
	f := NewLocalFeed("newsmill-test")
	assert.NoError(t, f.TestFeed(context.Background(), srv.URL))
}

func TestLocalFeedTestRejectsNonFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><body>not a feed</body></html>")
	}))
	defer srv.Close()

	f := NewLocalFeed("newsmill-test")
	assert.Error(t, f.TestFeed(context.Background(), srv.URL))
}

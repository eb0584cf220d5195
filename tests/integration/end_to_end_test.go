package integration

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nhkeasy/pkg/config"
	"nhkeasy/pkg/scraper"
)

const articleHTML = `<html><head><title>ページ</title></head><body>
<h1 id="news_title">%TITLE%</h1>
<p class="article-main__date"><time datetime="2026-08-27T10:00:00+09:00">8月27日</time></p>
<div id="js-article-body">
<p>きのう、東京で大きな地震がありました。建物が揺れました。</p>
<p>けがをした人はいませんでした。電車は普通に動いています。</p>
</div>
</body></html>`

// newNewsSite stands in for the real site: feed, article pages and images.
func newNewsSite(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	mux.HandleFunc("/news/easy/news-list.json", func(w http.ResponseWriter, r *http.Request) {
		feed := `[{"2026-08-27": [
			{"news_id": "k10001", "title": "地震のニュース", "title_with_ruby": "地震のニュース", "news_publication_time": "2026-08-27T10:00:00+09:00", "has_news_easy_image": true, "news_easy_image_uri": "` + server.URL + `/images/quake.jpg"},
			{"news_id": "k10002", "title": "天気のニュース"}
		]}]`
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(feed))
	})
	mux.HandleFunc("/news/easy/k10001/k10001.html", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(replaceTitle(articleHTML, "地震のニュース")))
	})
	mux.HandleFunc("/news/easy/k10002/k10002.html", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(replaceTitle(articleHTML, "天気のニュース")))
	})
	mux.HandleFunc("/images/quake.jpg", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("jpeg bytes"))
	})

	return server
}

func replaceTitle(html, title string) string {
	return strings.ReplaceAll(html, "%TITLE%", title)
}

func siteConfig(t *testing.T, server *httptest.Server) *config.Config {
	t.Helper()

	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Auth.Enabled = false
	cfg.Scraper.BaseURL = server.URL + "/news/easy/"
	cfg.Scraper.FeedURL = server.URL + "/news/easy/news-list.json"
	cfg.Scraper.MaxArticles = 10
	cfg.Scraper.Timeout = 10 * time.Second
	cfg.Output.DataFile = filepath.Join(dir, "data", "articles.json")
	cfg.Output.ImagesDir = filepath.Join(dir, "images")
	cfg.RateLimit.RequestsPerMinute = 0
	return cfg
}

func TestPipelineEndToEnd(t *testing.T) {
	server := newNewsSite(t)
	cfg := siteConfig(t, server)

	s, err := scraper.New(cfg)
	require.NoError(t, err)

	result, err := s.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, result.Discovered)
	assert.Equal(t, 2, result.Extracted)
	assert.Equal(t, 0, result.Skipped)
	assert.Equal(t, 1, result.ImagesFetched)

	require.NoError(t, s.Save(result))

	articles, err := scraper.ReadArticles(cfg.Output.DataFile)
	require.NoError(t, err)
	require.Len(t, articles, 2)

	first := articles[0]
	assert.Equal(t, "k10001", first.NewsID)
	assert.Equal(t, "地震のニュース", first.Title)
	assert.Contains(t, first.Content, "大きな地震")
	assert.Equal(t, "2026-08-27", first.Date)
	assert.Equal(t, "2026-08-27T10:00:00+09:00", first.PublicationTime)
	require.NotNil(t, first.LocalImagePath)
	assert.Equal(t, "images/k10001_quake.jpg", *first.LocalImagePath)

	data, err := os.ReadFile(filepath.Join(cfg.Output.ImagesDir, "k10001_quake.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "jpeg bytes", string(data))

	second := articles[1]
	assert.Equal(t, "k10002", second.NewsID)
	assert.Nil(t, second.LocalImagePath)
}

func TestPipelineRerunUsesImageCache(t *testing.T) {
	server := newNewsSite(t)
	cfg := siteConfig(t, server)

	s, err := scraper.New(cfg)
	require.NoError(t, err)
	result, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.ImagesFetched)

	// second run over the same cache directory still reports the cached image
	s2, err := scraper.New(cfg)
	require.NoError(t, err)
	result2, err := s2.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result2.ImagesFetched)

	require.NotNil(t, result2.Articles[0].LocalImagePath)
	assert.Equal(t, "images/k10001_quake.jpg", *result2.Articles[0].LocalImagePath)
}

func TestPipelineFeedOutageFallsBackToListing(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/news/easy/news-list.json", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	mux.HandleFunc("/news/easy/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><a href="/news/easy/k10009/k10009.html">代わりの記事</a></body></html>`))
	})
	mux.HandleFunc("/news/easy/k10009/k10009.html", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(replaceTitle(articleHTML, "代わりの記事")))
	})

	cfg := siteConfig(t, server)
	cfg.Scraper.BaseURL = server.URL + "/news/easy/"
	cfg.Scraper.FeedURL = server.URL + "/news/easy/news-list.json"

	s, err := scraper.New(cfg)
	require.NoError(t, err)

	result, err := s.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, result.Articles, 1)
	assert.Equal(t, "k10009", result.Articles[0].NewsID)
	assert.Contains(t, result.Articles[0].Content, "大きな地震")
}

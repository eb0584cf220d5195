package scraper

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nhkeasy/pkg/auth"
	"nhkeasy/pkg/config"
	"nhkeasy/pkg/logger"
	"nhkeasy/pkg/nhk"
	"nhkeasy/pkg/ratelimit"
)

type mockTokenSource struct {
	cred  *auth.Credential
	err   error
	calls int
}

func (m *mockTokenSource) AcquireCredential(ctx context.Context) (*auth.Credential, error) {
	m.calls++
	return m.cred, m.err
}

type mockDiscovery struct {
	refs []nhk.ArticleReference
	err  error
}

func (m *mockDiscovery) Discover() ([]nhk.ArticleReference, error) {
	return m.refs, m.err
}

type mockExtractor struct {
	records map[string]*nhk.ArticleRecord
	errs    map[string]error
}

func (m *mockExtractor) Extract(ref nhk.ArticleReference) (*nhk.ArticleRecord, error) {
	if err := m.errs[ref.NewsID]; err != nil {
		return nil, err
	}
	record := m.records[ref.NewsID]
	if record == nil {
		return &nhk.ArticleRecord{URL: ref.URL}, nil
	}
	copied := *record
	return &copied, nil
}

type mockMedia struct {
	path  string
	calls []string
}

func (m *mockMedia) Fetch(imageURL, articleID string) string {
	m.calls = append(m.calls, articleID)
	return m.path
}

func newTestScraper(tokens TokenSource, discovery Discovery, extractor Extractor, mediaFetcher MediaFetcher, authEnabled bool) *Scraper {
	cfg := config.DefaultConfig()
	cfg.Auth.Enabled = authEnabled

	return &Scraper{
		cfg:       cfg,
		client:    nhk.NewClient(10*time.Second, logger.NewTestLogger()),
		tokens:    tokens,
		discovery: discovery,
		extractor: extractor,
		media:     mediaFetcher,
		limiter:   ratelimit.ForRate(0),
		logger:    logger.NewTestLogger(),
	}
}

func contentRecord(newsID, content string) *nhk.ArticleRecord {
	return &nhk.ArticleRecord{
		Title:   "抽出した見出し " + newsID,
		Content: content,
	}
}

func TestRunHappyPath(t *testing.T) {
	refs := []nhk.ArticleReference{
		{NewsID: "k10001", Title: "一つ目", URL: "https://example.test/k10001.html", ImageURL: "https://img.test/a.jpg", ImageSource: nhk.ImageSourceEasy, FeedPosition: 0},
		{NewsID: "k10002", Title: "二つ目", URL: "https://example.test/k10002.html", FeedPosition: 1},
	}
	tokens := &mockTokenSource{cred: &auth.Credential{Token: "tok"}}
	mediaFetcher := &mockMedia{path: "images/k10001_a.jpg"}
	s := newTestScraper(tokens, &mockDiscovery{refs: refs}, &mockExtractor{
		records: map[string]*nhk.ArticleRecord{
			"k10001": contentRecord("k10001", "本文その一"),
			"k10002": contentRecord("k10002", "本文その二"),
		},
	}, mediaFetcher, true)

	result, err := s.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, tokens.calls)
	assert.Equal(t, 2, result.Discovered)
	assert.Equal(t, 2, result.Extracted)
	assert.Equal(t, 0, result.Skipped)
	require.Len(t, result.Articles, 2)

	// discovery metadata merged into the extracted record
	assert.Equal(t, "k10001", result.Articles[0].NewsID)
	assert.Equal(t, "抽出した見出し k10001", result.Articles[0].Title)
	assert.Equal(t, 0, result.Articles[0].FeedPosition)

	// only the article with an image touched the media fetcher
	assert.Equal(t, []string{"k10001"}, mediaFetcher.calls)
	assert.Equal(t, 1, result.ImagesFetched)
	require.NotNil(t, result.Articles[0].LocalImagePath)
	assert.Equal(t, "images/k10001_a.jpg", *result.Articles[0].LocalImagePath)
	assert.Nil(t, result.Articles[1].LocalImagePath)
}

func TestRunSkipsFailedExtraction(t *testing.T) {
	refs := []nhk.ArticleReference{
		{NewsID: "k10001", URL: "https://example.test/k10001.html"},
		{NewsID: "k10002", URL: "https://example.test/k10002.html"},
	}
	s := newTestScraper(&mockTokenSource{}, &mockDiscovery{refs: refs}, &mockExtractor{
		records: map[string]*nhk.ArticleRecord{"k10002": contentRecord("k10002", "本文")},
		errs:    map[string]error{"k10001": fmt.Errorf("fetch failed")},
	}, &mockMedia{}, false)

	result, err := s.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, result.Discovered)
	assert.Equal(t, 1, result.Extracted)
	assert.Equal(t, 1, result.Skipped)
	require.Len(t, result.Articles, 1)
	assert.Equal(t, "k10002", result.Articles[0].NewsID)
}

func TestRunSkipsEmptyContent(t *testing.T) {
	refs := []nhk.ArticleReference{{NewsID: "k10001", URL: "https://example.test/k10001.html"}}
	s := newTestScraper(&mockTokenSource{}, &mockDiscovery{refs: refs}, &mockExtractor{}, &mockMedia{}, false)

	result, err := s.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Skipped)
	assert.Empty(t, result.Articles)
}

func TestRunFallsBackToReferenceTitle(t *testing.T) {
	refs := []nhk.ArticleReference{{NewsID: "k10001", Title: "フィードの見出し", URL: "https://example.test/k10001.html"}}
	s := newTestScraper(&mockTokenSource{}, &mockDiscovery{refs: refs}, &mockExtractor{
		records: map[string]*nhk.ArticleRecord{"k10001": {Content: "本文"}},
	}, &mockMedia{}, false)

	result, err := s.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, result.Articles, 1)
	assert.Equal(t, "フィードの見出し", result.Articles[0].Title)
}

func TestRunBootstrapFailureIsFatal(t *testing.T) {
	tokens := &mockTokenSource{err: fmt.Errorf("consent flow failed")}
	s := newTestScraper(tokens, &mockDiscovery{}, &mockExtractor{}, &mockMedia{}, true)

	_, err := s.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "credential bootstrap failed")
}

func TestRunDiscoveryFailureIsFatal(t *testing.T) {
	s := newTestScraper(&mockTokenSource{}, &mockDiscovery{err: fmt.Errorf("feed unreachable")}, &mockExtractor{}, &mockMedia{}, false)

	_, err := s.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "discovery failed")
}

func TestRunAuthDisabledSkipsBootstrap(t *testing.T) {
	tokens := &mockTokenSource{}
	s := newTestScraper(tokens, &mockDiscovery{}, &mockExtractor{}, &mockMedia{}, false)

	result, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, tokens.calls)
	assert.Equal(t, 0, result.Discovered)
}

func TestWriteAndReadArticles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "articles.json")
	local := "images/k10001_a.jpg"
	articles := []nhk.ArticleRecord{
		{NewsID: "k10001", Title: "見出し", Content: "本文", LocalImagePath: &local, ImageSource: nhk.ImageSourceEasy},
		{NewsID: "k10002", Title: "二つ目", Content: "本文二", ImageSource: nhk.ImageSourceNone},
	}

	require.NoError(t, WriteArticles(path, articles, logger.NewTestLogger()))

	got, err := ReadArticles(path)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "k10001", got[0].NewsID)
	require.NotNil(t, got[0].LocalImagePath)
	assert.Equal(t, local, *got[0].LocalImagePath)
	assert.Nil(t, got[1].LocalImagePath)

	// atomic write leaves no temp file
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestWriteArticlesNilWritesEmptyArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "articles.json")
	require.NoError(t, WriteArticles(path, nil, nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

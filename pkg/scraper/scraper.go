package scraper

import (
	"context"
	"fmt"

	"nhkeasy/pkg/auth"
	"nhkeasy/pkg/config"
	"nhkeasy/pkg/logger"
	"nhkeasy/pkg/media"
	"nhkeasy/pkg/nhk"
	"nhkeasy/pkg/ratelimit"
	"nhkeasy/pkg/storage"
)

// Scraper orchestrates one pipeline run: credential bootstrap, article
// discovery, sequential extraction, image caching and the final write of
// the article collection.
type Scraper struct {
	cfg       *config.Config
	client    *nhk.Client
	tokens    TokenSource
	discovery Discovery
	extractor Extractor
	media     MediaFetcher
	limiter   ratelimit.Limiter
	logger    logger.Logger
}

// Result summarizes a pipeline run
type Result struct {
	Articles      []nhk.ArticleRecord
	Discovered    int
	Extracted     int
	Skipped       int
	ImagesFetched int
}

// New creates a scraper wired to the live site per the given configuration
func New(cfg *config.Config) (*Scraper, error) {
	log := logger.GetLogger()

	client := nhk.NewClientWithConfig(cfg.Scraper.Timeout, &cfg.Retry, log)
	if cfg.Scraper.UserAgent != "" {
		client.SetHeader("User-Agent", cfg.Scraper.UserAgent)
	}

	store, err := storage.NewManager(cfg.Output.ImagesDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create image cache: %w", err)
	}

	return &Scraper{
		cfg:       cfg,
		client:    client,
		tokens:    auth.NewBootstrapper(&cfg.Auth, log),
		discovery: nhk.NewDiscovery(client, &cfg.Scraper, log),
		extractor: nhk.NewExtractor(client, log),
		media:     media.NewFetcher(client, store, log),
		limiter:   ratelimit.ForRate(cfg.RateLimit.RequestsPerMinute),
		logger:    log,
	}, nil
}

// Run executes the pipeline. Articles are processed strictly in feed order,
// one at a time; a failed or empty article is skipped, not fatal. The
// returned result holds every article that produced usable content.
func (s *Scraper) Run(ctx context.Context) (*Result, error) {
	if s.cfg.Auth.Enabled {
		s.logger.Info("acquiring access credential")
		cred, err := s.tokens.AcquireCredential(ctx)
		if err != nil {
			return nil, fmt.Errorf("credential bootstrap failed: %w", err)
		}
		s.client.SetCredential(cred, s.cfg.Auth.CookieName)
	} else {
		s.logger.Warn("authentication disabled, proceeding without credential")
	}

	s.limiter.Wait()
	refs, err := s.discovery.Discover()
	if err != nil {
		return nil, fmt.Errorf("discovery failed: %w", err)
	}

	result := &Result{Discovered: len(refs)}
	s.logger.InfoWithFields("starting extraction", map[string]interface{}{
		"articles": len(refs),
	})

	for _, ref := range refs {
		s.limiter.Wait()

		record, err := s.extractor.Extract(ref)
		if err != nil {
			s.logger.WarnWithFields("skipping article after fetch failure", map[string]interface{}{
				"news_id": ref.NewsID,
				"url":     ref.URL,
				"error":   err.Error(),
			})
			result.Skipped++
			continue
		}

		record.MergeReference(ref)
		if record.Title == "" {
			record.Title = ref.Title
		}

		if record.Content == "" {
			s.logger.WarnWithFields("skipping article without body text", map[string]interface{}{
				"news_id": ref.NewsID,
				"url":     ref.URL,
			})
			result.Skipped++
			continue
		}

		if record.ImageURL != "" {
			s.limiter.Wait()
			if localPath := s.media.Fetch(record.ImageURL, record.NewsID); localPath != "" {
				record.LocalImagePath = &localPath
				result.ImagesFetched++
			}
		}

		result.Articles = append(result.Articles, *record)
		result.Extracted++

		s.logger.InfoWithFields("article extracted", map[string]interface{}{
			"news_id":  record.NewsID,
			"title":    record.Title,
			"position": record.FeedPosition,
		})
	}

	s.logger.InfoWithFields("pipeline finished", map[string]interface{}{
		"discovered":     result.Discovered,
		"extracted":      result.Extracted,
		"skipped":        result.Skipped,
		"images_fetched": result.ImagesFetched,
	})

	return result, nil
}

// Save writes the run's articles to the configured output file
func (s *Scraper) Save(result *Result) error {
	return WriteArticles(s.cfg.Output.DataFile, result.Articles, s.logger)
}

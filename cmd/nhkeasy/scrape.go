package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"nhkeasy/pkg/logger"
	"nhkeasy/pkg/scraper"
)

var (
	// Scrape command flags
	scrapeLimit     int
	scrapeOutput    string
	scrapeImagesDir string
	scrapeRateLimit int
	scrapeHeadless  bool
	scrapeNoAuth    bool
)

// scrapeCmd represents the scrape command
var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Fetch recent articles and write them to the output file",
	Long: `Fetch recent articles from NHK News Web Easy.

The run acquires an access credential through the browser consent flow,
discovers recent articles from the news-list feed (falling back to the
listing page when the feed is unavailable), extracts each article's title,
body and date, caches article images locally and writes the collection to
a single JSON file.`,
	Example: `  # Scrape with default settings
  nhkeasy scrape

  # Limit to ten articles, write somewhere else
  nhkeasy scrape --limit 10 --output /tmp/articles.json

  # Watch the browser work through the consent flow
  nhkeasy scrape --headless=false

  # Skip the consent flow entirely (only works outside gated regions)
  nhkeasy scrape --no-auth`,
	Args: cobra.NoArgs,
	RunE: runScrape,
}

func init() {
	rootCmd.AddCommand(scrapeCmd)

	scrapeCmd.Flags().IntVarP(&scrapeLimit, "limit", "n", 0, "maximum number of articles to scrape")
	scrapeCmd.Flags().StringVarP(&scrapeOutput, "output", "o", "", "output JSON file")
	scrapeCmd.Flags().StringVar(&scrapeImagesDir, "images-dir", "", "directory for cached article images")
	scrapeCmd.Flags().IntVar(&scrapeRateLimit, "rate-limit", 0, "requests per minute")
	scrapeCmd.Flags().BoolVar(&scrapeHeadless, "headless", true, "run the consent-flow browser headless")
	scrapeCmd.Flags().BoolVar(&scrapeNoAuth, "no-auth", false, "skip the credential bootstrap")
}

func runScrape(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if scrapeLimit > 0 {
		cfg.Scraper.MaxArticles = scrapeLimit
	}
	if scrapeOutput != "" {
		cfg.Output.DataFile = scrapeOutput
	}
	if scrapeImagesDir != "" {
		cfg.Output.ImagesDir = scrapeImagesDir
	}
	if scrapeRateLimit > 0 {
		cfg.RateLimit.RequestsPerMinute = scrapeRateLimit
	}
	if cmd.Flags().Changed("headless") {
		cfg.Auth.Headless = scrapeHeadless
	}
	if scrapeNoAuth {
		cfg.Auth.Enabled = false
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log := logger.GetLogger()
	log.InfoWithFields("starting scrape", map[string]interface{}{
		"max_articles": cfg.Scraper.MaxArticles,
		"output":       cfg.Output.DataFile,
		"auth":         cfg.Auth.Enabled,
	})

	s, err := scraper.New(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := s.Run(ctx)
	if err != nil {
		log.WithError(err).Error("scrape failed")
		return err
	}

	if err := s.Save(result); err != nil {
		log.WithError(err).Error("failed to write output")
		return err
	}

	fmt.Printf("Scraped %d of %d articles (%d skipped, %d images) -> %s\n",
		result.Extracted, result.Discovered, result.Skipped, result.ImagesFetched, cfg.Output.DataFile)
	return nil
}

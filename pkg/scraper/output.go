package scraper

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"nhkeasy/pkg/logger"
	"nhkeasy/pkg/nhk"
)

// WriteArticles serializes the article collection to path as indented JSON.
// The write goes through a temporary file and a rename, so a crash mid-write
// never corrupts the previous run's output. A run with zero articles still
// writes an empty array.
func WriteArticles(path string, articles []nhk.ArticleRecord, log logger.Logger) error {
	if articles == nil {
		articles = []nhk.ArticleRecord{}
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(articles, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal articles: %w", err)
	}

	tempFile := path + ".tmp"
	if err := os.WriteFile(tempFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}

	if err := os.Rename(tempFile, path); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to rename output file: %w", err)
	}

	if log != nil {
		log.InfoWithFields("articles written", map[string]interface{}{
			"path":  path,
			"count": len(articles),
			"bytes": len(data),
		})
	}

	return nil
}

// ReadArticles loads a previously written article collection
func ReadArticles(path string) ([]nhk.ArticleRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read articles file: %w", err)
	}

	var articles []nhk.ArticleRecord
	if err := json.Unmarshal(data, &articles); err != nil {
		return nil, fmt.Errorf("failed to unmarshal articles: %w", err)
	}

	return articles, nil
}

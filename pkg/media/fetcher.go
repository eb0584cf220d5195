package media

import (
	"bytes"
	"path"

	"nhkeasy/pkg/logger"
	"nhkeasy/pkg/nhk"
	"nhkeasy/pkg/storage"
)

// Downloader fetches raw bytes from a URL. Satisfied by the session client.
type Downloader interface {
	DownloadBytes(url string) ([]byte, error)
}

// Fetcher downloads article images into the local cache. Fetching is best
// effort: a missing or failed image never fails the pipeline, the article
// record simply carries no local image path.
type Fetcher struct {
	client  Downloader
	storage *storage.Manager
	logger  logger.Logger
}

// NewFetcher creates an image fetcher backed by the given downloader and cache
func NewFetcher(client Downloader, store *storage.Manager, log logger.Logger) *Fetcher {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Fetcher{
		client:  client,
		storage: store,
		logger:  log,
	}
}

// Fetch downloads the image for an article and returns the path recorded in
// the article output, relative to the output document root. Returns "" when
// there is nothing to fetch or the download fails. Already cached images are
// returned without touching the network.
func (f *Fetcher) Fetch(imageURL, articleID string) string {
	if imageURL == "" || articleID == "" {
		return ""
	}

	filename := nhk.ImageFilename(imageURL)
	if filename == "" {
		f.logger.DebugWithFields("image URL has no usable filename", map[string]interface{}{
			"url": imageURL,
		})
		return ""
	}

	name := storage.ImageName(articleID, filename)
	if f.storage.IsCached(name) {
		f.logger.DebugWithFields("image already cached", map[string]interface{}{
			"article_id": articleID,
			"file":       name,
		})
		return relativePath(name)
	}

	data, err := f.client.DownloadBytes(imageURL)
	if err != nil {
		f.logger.WarnWithFields("image download failed", map[string]interface{}{
			"article_id": articleID,
			"url":        imageURL,
			"error":      err.Error(),
		})
		return ""
	}

	if err := f.storage.SaveImage(bytes.NewReader(data), name); err != nil {
		f.logger.WarnWithFields("failed to store image", map[string]interface{}{
			"article_id": articleID,
			"file":       name,
			"error":      err.Error(),
		})
		return ""
	}

	f.logger.InfoWithFields("image fetched", map[string]interface{}{
		"article_id": articleID,
		"file":       name,
		"bytes":      len(data),
	})
	return relativePath(name)
}

// relativePath is the path stored in article records, relative to the
// document root that serves the output.
func relativePath(name string) string {
	return path.Join("images", name)
}

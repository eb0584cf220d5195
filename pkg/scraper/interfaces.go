package scraper

import (
	"context"

	"nhkeasy/pkg/auth"
	"nhkeasy/pkg/nhk"
)

// TokenSource produces the access credential the session client needs.
// The production implementation drives a real browser through the consent
// flow; tests substitute a canned credential.
type TokenSource interface {
	AcquireCredential(ctx context.Context) (*auth.Credential, error)
}

// Discovery lists recent articles
type Discovery interface {
	Discover() ([]nhk.ArticleReference, error)
}

// Extractor turns one article reference into a record
type Extractor interface {
	Extract(ref nhk.ArticleReference) (*nhk.ArticleRecord, error)
}

// MediaFetcher caches an article's image locally, returning the relative
// path to record, or "" when nothing was fetched
type MediaFetcher interface {
	Fetch(imageURL, articleID string) string
}

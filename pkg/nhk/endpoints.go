package nhk

import (
	"path"
	"strings"
)

const (
	// DefaultBaseURL is the human-facing listing page
	DefaultBaseURL = "https://news.web.nhk/news/easy/"

	// DefaultFeedURL is the structured article feed
	DefaultFeedURL = "https://news.web.nhk/news/easy/news-list.json"
)

// ArticleURL constructs the canonical article page URL from a news id.
// Articles live at {base}/{id}/{id}.html.
func ArticleURL(baseURL, newsID string) string {
	base := strings.TrimSuffix(baseURL, "/")
	return base + "/" + newsID + "/" + newsID + ".html"
}

// IsArticleHref reports whether a scraped href plausibly points at an
// article page. News ids start with "k10".
func IsArticleHref(href string) bool {
	return strings.Contains(href, "k10")
}

// ImageFilename extracts the remote filename from an image URL. Returns ""
// when the URL has no discernible dotted filename, which callers treat as
// "no image to fetch".
func ImageFilename(imageURL string) string {
	if imageURL == "" {
		return ""
	}

	trimmed := imageURL
	if i := strings.IndexAny(trimmed, "?#"); i >= 0 {
		trimmed = trimmed[:i]
	}

	filename := path.Base(trimmed)
	if filename == "." || filename == "/" || !strings.Contains(filename, ".") {
		return ""
	}
	return filename
}

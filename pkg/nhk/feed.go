package nhk

import (
	"encoding/json"
	"io"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"nhkeasy/pkg/config"
	"nhkeasy/pkg/errors"
	"nhkeasy/pkg/logger"
)

// fallbackSelectors are tried in order against the listing page when the
// structured feed is unavailable. The first selector whose anchors yield
// at least one article wins.
var fallbackSelectors = []string{
	"a[href*='k10']",
	"a[href*='/news/easy/']",
	".article-link",
	".news-item a",
}

var newsIDPattern = regexp.MustCompile(`k10\d+`)

// Discovery finds recent articles, preferring the structured news-list feed
// and falling back to scraping the listing page when the feed fails.
type Discovery struct {
	client *Client
	cfg    *config.ScraperConfig
	logger logger.Logger
}

// NewDiscovery creates a discovery stage backed by the given session client
func NewDiscovery(client *Client, cfg *config.ScraperConfig, log logger.Logger) *Discovery {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Discovery{
		client: client,
		cfg:    cfg,
		logger: log,
	}
}

// Discover returns up to MaxArticles references in feed order. A feed
// failure is not fatal: the listing page is scraped instead, producing
// references that carry only URL, title and news id.
func (d *Discovery) Discover() ([]ArticleReference, error) {
	refs, err := d.fromFeed()
	if err != nil {
		d.logger.WarnWithFields("feed discovery failed, scraping listing page instead", map[string]interface{}{
			"feed_url": d.cfg.FeedURL,
			"error":    err.Error(),
		})
		return d.listingPageOrEmpty()
	}

	if len(refs) == 0 {
		d.logger.Warn("feed returned no articles, scraping listing page instead")
		return d.listingPageOrEmpty()
	}

	d.logger.InfoWithFields("discovered articles from feed", map[string]interface{}{
		"count": len(refs),
	})
	return refs, nil
}

// fromFeed fetches and parses the news-list feed. The feed is a JSON array
// of objects keyed by date, each date holding an ordered list of entries.
// Parsing is streamed so that entries past the article cap are never read.
func (d *Discovery) fromFeed() ([]ArticleReference, error) {
	resp, err := d.client.Get(d.cfg.FeedURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := d.client.checkResponseStatus(resp); err != nil {
		return nil, err
	}

	return d.parseFeed(resp.Body, d.cfg.MaxArticles)
}

func (d *Discovery) parseFeed(r io.Reader, limit int) ([]ArticleReference, error) {
	dec := json.NewDecoder(r)

	tok, err := dec.Token()
	if err != nil {
		return nil, errors.NewParsingError("invalid feed JSON: %v", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		return nil, errors.NewParsingError("feed JSON is not an array")
	}

	refs := make([]ArticleReference, 0, limit)
	for dec.More() {
		if len(refs) >= limit {
			break
		}
		if err := d.parseDateGroup(dec, limit, &refs); err != nil {
			return nil, err
		}
	}

	return refs, nil
}

// parseDateGroup consumes one date-keyed object from the feed. Key order
// within the object is preserved, which is why the object is walked token
// by token rather than decoded into a map.
func (d *Discovery) parseDateGroup(dec *json.Decoder, limit int, refs *[]ArticleReference) error {
	tok, err := dec.Token()
	if err != nil {
		return errors.NewParsingError("invalid feed group: %v", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errors.NewParsingError("feed group is not an object")
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return errors.NewParsingError("invalid feed group key: %v", err)
		}
		date, ok := keyTok.(string)
		if !ok {
			return errors.NewParsingError("feed group key is not a string")
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return errors.NewParsingError("invalid feed group value: %v", err)
		}

		trimmed := strings.TrimSpace(string(raw))
		if !strings.HasPrefix(trimmed, "[") {
			continue
		}

		var rawEntries []json.RawMessage
		if err := json.Unmarshal(raw, &rawEntries); err != nil {
			continue
		}

		for _, rawEntry := range rawEntries {
			if len(*refs) >= limit {
				return nil
			}

			var entry FeedEntry
			if err := json.Unmarshal(rawEntry, &entry); err != nil {
				d.logger.DebugWithFields("skipping malformed feed entry", map[string]interface{}{
					"date":  date,
					"error": err.Error(),
				})
				continue
			}
			if entry.NewsID == "" || entry.Title == "" {
				continue
			}

			*refs = append(*refs, d.referenceFromEntry(entry, date, len(*refs)))
		}
	}

	// consume the closing brace
	if _, err := dec.Token(); err != nil {
		return errors.NewParsingError("invalid feed group: %v", err)
	}
	return nil
}

// referenceFromEntry maps a feed entry to a discovery reference. The easy
// edition image is preferred; the web edition image is a fallback.
func (d *Discovery) referenceFromEntry(entry FeedEntry, date string, position int) ArticleReference {
	ref := ArticleReference{
		NewsID:          entry.NewsID,
		Title:           entry.Title,
		TitleWithRuby:   entry.TitleWithRuby,
		URL:             ArticleURL(d.cfg.BaseURL, entry.NewsID),
		Date:            date,
		PublicationTime: entry.PublicationTime,
		HasVoice:        entry.HasVoice,
		HasImage:        entry.HasImage,
		VoiceURL:        entry.VoiceURI,
		OriginalWebURL:  entry.WebURL,
		ImageSource:     ImageSourceNone,
		FeedPosition:    position,
	}

	// The easy URI wins whenever present, regardless of the has-image
	// flag; the flag and the URI are not always set together.
	switch {
	case entry.EasyImageURI != "":
		ref.ImageURL = entry.EasyImageURI
		ref.ImageSource = ImageSourceEasy
	case entry.WebImageURI != "":
		ref.ImageURL = entry.WebImageURI
		ref.ImageSource = ImageSourceWeb
	}

	return ref
}

// listingPageOrEmpty runs the listing-page scrape and absorbs its failure.
// With both the feed and the listing page down there is nothing to scrape;
// the run completes with an empty collection rather than an error.
func (d *Discovery) listingPageOrEmpty() ([]ArticleReference, error) {
	refs, err := d.fromListingPage()
	if err != nil {
		d.logger.ErrorWithFields("listing page scrape failed", map[string]interface{}{
			"base_url": d.cfg.BaseURL,
			"error":    err.Error(),
		})
		return nil, nil
	}
	return refs, nil
}

// fromListingPage scrapes article links off the human-facing listing page.
// References built here carry no feed metadata.
func (d *Discovery) fromListingPage() ([]ArticleReference, error) {
	doc, _, err := d.client.GetDocument(d.cfg.BaseURL)
	if err != nil {
		return nil, err
	}

	base, err := url.Parse(d.cfg.BaseURL)
	if err != nil {
		return nil, errors.NewParsingError("invalid base URL: %v", err)
	}

	for _, selector := range fallbackSelectors {
		refs := d.collectAnchors(doc, base, selector)
		if len(refs) > 0 {
			d.logger.InfoWithFields("discovered articles from listing page", map[string]interface{}{
				"selector": selector,
				"count":    len(refs),
			})
			return refs, nil
		}
	}

	d.logger.Warn("no article links found on listing page")
	return nil, nil
}

func (d *Discovery) collectAnchors(doc *goquery.Document, base *url.URL, selector string) []ArticleReference {
	var refs []ArticleReference
	seen := make(map[string]bool)

	doc.Find(selector).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if len(refs) >= d.cfg.MaxArticles {
			return false
		}

		href, ok := sel.Attr("href")
		if !ok || !IsArticleHref(href) {
			return true
		}

		hrefURL, err := url.Parse(href)
		if err != nil {
			return true
		}
		absolute := base.ResolveReference(hrefURL).String()
		if seen[absolute] {
			return true
		}
		seen[absolute] = true

		refs = append(refs, ArticleReference{
			NewsID:       newsIDPattern.FindString(href),
			Title:        strings.TrimSpace(sel.Text()),
			URL:          absolute,
			ImageSource:  ImageSourceNone,
			FeedPosition: len(refs),
		})
		return true
	})

	return refs
}

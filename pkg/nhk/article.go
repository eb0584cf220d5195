package nhk

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"nhkeasy/pkg/logger"
)

// Selector cascades for article markup. NHK has shipped several layouts
// over the years; each list runs most-specific first and the first
// structural match wins, even when its text turns out empty.
var (
	titleSelectors = []string{
		"h1#news_title",
		".article-main__title",
		"h1",
		".news-title",
		"title",
	}

	bodySelectors = []string{
		"#js-article-body",
		".article-main__body",
		".article-body",
		"#news_body",
		".content-body",
		"article .body",
	}

	dateSelectors = []string{
		".article-main__date",
		".news-date",
		"time",
		".date",
		"[datetime]",
	}
)

const (
	// minFragmentRunes filters out share buttons, captions and other
	// stray short nodes inside the body container.
	minFragmentRunes = 10

	// minBodyRunes is the floor for accepting a container's flattened
	// text when no individual fragment qualified.
	minBodyRunes = 50
)

var (
	whitespacePattern = regexp.MustCompile(`\s+`)
	noisePattern      = regexp.MustCompile(`シェアする|ツイートする|シェア|ツイート|印刷|メールで送る|メール|\S*さんの\S*`)
)

// Extractor pulls title, body text and publication date out of an article
// page.
type Extractor struct {
	client *Client
	logger logger.Logger
}

// NewExtractor creates an extractor backed by the given session client
func NewExtractor(client *Client, log logger.Logger) *Extractor {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Extractor{
		client: client,
		logger: log,
	}
}

// Extract fetches the article page and builds a record from it. A page
// whose body cannot be located still yields a record, with empty content;
// only fetch and HTML parse failures return an error.
func (e *Extractor) Extract(ref ArticleReference) (*ArticleRecord, error) {
	doc, raw, err := e.client.GetDocument(ref.URL)
	if err != nil {
		e.logger.WarnWithFields("failed to fetch article page", map[string]interface{}{
			"url":   ref.URL,
			"error": err.Error(),
		})
		return nil, err
	}

	record := &ArticleRecord{
		URL:         ref.URL,
		Title:       e.extractTitle(doc),
		Date:        e.extractDate(doc),
		ImageSource: ImageSourceNone,
		RawHTML:     string(raw),
		ScrapedAt:   time.Now().UTC(),
	}
	record.Content = e.extractBody(doc)

	if record.Content == "" {
		e.logger.WarnWithFields("no article body found", map[string]interface{}{
			"url": ref.URL,
		})
	}

	return record, nil
}

func (e *Extractor) extractTitle(doc *goquery.Document) string {
	for _, selector := range titleSelectors {
		sel := doc.Find(selector)
		if sel.Length() > 0 {
			return normalizeText(sel.First().Text())
		}
	}
	return ""
}

// extractBody walks the body selector cascade. A container holding block
// children decides the outcome: its qualifying fragments become the body,
// and when none qualify the body is empty. Only a container with no block
// children at all falls back to its flattened text, and an empty one lets
// a later, more generic selector try.
func (e *Extractor) extractBody(doc *goquery.Document) string {
	for _, selector := range bodySelectors {
		sel := doc.Find(selector)
		if sel.Length() == 0 {
			continue
		}
		container := sel.First()

		blocks := container.Find("p, div")
		if blocks.Length() > 0 {
			var fragments []string
			blocks.Each(func(_ int, frag *goquery.Selection) {
				text := strings.TrimSpace(frag.Text())
				if utf8.RuneCountInString(text) > minFragmentRunes {
					fragments = append(fragments, text)
				}
			})
			return normalizeText(strings.Join(fragments, "\n"))
		}

		flat := normalizeText(container.Text())
		if utf8.RuneCountInString(flat) > minBodyRunes {
			return flat
		}
	}

	return ""
}

// extractDate prefers a machine-readable datetime attribute over the
// element's display text.
func (e *Extractor) extractDate(doc *goquery.Document) string {
	for _, selector := range dateSelectors {
		sel := doc.Find(selector)
		if sel.Length() == 0 {
			continue
		}
		first := sel.First()
		if dt, ok := first.Attr("datetime"); ok && strings.TrimSpace(dt) != "" {
			return strings.TrimSpace(dt)
		}
		return normalizeText(first.Text())
	}
	return ""
}

// normalizeText collapses runs of whitespace and strips boilerplate share
// and print labels.
func normalizeText(s string) string {
	s = noisePattern.ReplaceAllString(s, "")
	s = whitespacePattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

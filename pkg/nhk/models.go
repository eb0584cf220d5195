package nhk

import "time"

// ImageSource records which feed field supplied an article's image URL.
type ImageSource string

const (
	ImageSourceEasy ImageSource = "easy"
	ImageSourceWeb  ImageSource = "web"
	ImageSourceNone ImageSource = "none"
)

// FeedEntry is a single article entry in the news-list feed. The feed is
// undocumented; only the fields this pipeline consumes are mapped.
type FeedEntry struct {
	NewsID          string `json:"news_id"`
	Title           string `json:"title"`
	TitleWithRuby   string `json:"title_with_ruby"`
	PublicationTime string `json:"news_publication_time"`
	HasVoice        bool   `json:"has_news_easy_voice"`
	HasImage        bool   `json:"has_news_easy_image"`
	EasyImageURI    string `json:"news_easy_image_uri"`
	WebImageURI     string `json:"news_web_image_uri"`
	VoiceURI        string `json:"news_easy_voice_uri"`
	WebURL          string `json:"news_web_url"`
}

// ArticleReference is a discovery-stage record: enough to locate an article
// and its media, before any content has been fetched. References produced
// by the HTML fallback carry only URL and Title.
type ArticleReference struct {
	NewsID          string
	Title           string
	TitleWithRuby   string
	URL             string
	Date            string
	PublicationTime string
	HasVoice        bool
	HasImage        bool
	ImageURL        string
	ImageSource     ImageSource
	VoiceURL        string
	OriginalWebURL  string

	// FeedPosition is the zero-based position in the discovery result,
	// preserving feed order up to the article cap.
	FeedPosition int
}

// ArticleRecord is the extraction-stage record and the terminal artifact of
// the pipeline. All fields are serialized; nullable fields stay explicit so
// downstream consumers see them.
type ArticleRecord struct {
	URL             string      `json:"url"`
	NewsID          string      `json:"news_id"`
	Title           string      `json:"title"`
	TitleWithRuby   string      `json:"title_with_ruby"`
	Content         string      `json:"content"`
	Date            string      `json:"date"`
	PublicationTime string      `json:"publication_time"`
	HasVoice        bool        `json:"has_voice"`
	HasImage        bool        `json:"has_image"`
	ImageURL        string      `json:"image_url"`
	ImageSource     ImageSource `json:"image_source"`
	VoiceURL        string      `json:"voice_url"`
	OriginalWebURL  string      `json:"original_web_url"`
	FeedPosition    int         `json:"feed_position"`
	LocalImagePath  *string     `json:"local_image_path"`
	RawHTML         string      `json:"raw_html"`
	ScrapedAt       time.Time   `json:"scraped_at"`
}

// MergeReference copies discovery metadata into the record. The extracted
// title stays; the date key from the feed wins over whatever the page
// markup offered, because the feed's grouping is the date downstream
// rendering sorts by.
func (r *ArticleRecord) MergeReference(ref ArticleReference) {
	r.NewsID = ref.NewsID
	r.TitleWithRuby = ref.TitleWithRuby
	if ref.Date != "" {
		r.Date = ref.Date
	}
	r.PublicationTime = ref.PublicationTime
	r.HasVoice = ref.HasVoice
	r.HasImage = ref.HasImage
	r.ImageURL = ref.ImageURL
	r.ImageSource = ref.ImageSource
	r.VoiceURL = ref.VoiceURL
	r.OriginalWebURL = ref.OriginalWebURL
	r.FeedPosition = ref.FeedPosition
	if r.ImageSource == "" {
		r.ImageSource = ImageSourceNone
	}
}

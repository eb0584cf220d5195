// Package ratelimit paces outbound requests so the pipeline stays polite
// to the news site. The scraper calls Wait before every article and image
// fetch; the sliding window keeps the long-run rate at or below the
// configured requests per minute.
package ratelimit

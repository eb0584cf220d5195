// Package nhk talks to NHK News Web Easy: the authenticated session client,
// article discovery via the news-list feed (with a listing-page scrape as
// fallback), and extraction of title, body and date from article pages.
package nhk

// Package scrape contains the storefront extractors. Each storefront has a
// fixed page layout, so extraction is a bounded page loop over a bounded
// slot loop with hand-written selectors — this is deliberately not a
// pluggable crawling framework.
package scrape

import (
	"context"
	"errors"
	"time"

	"github.com/erbolatt/gamewatch/internal/catalog"
)

// RawListing is one (title, price text, detail url) tuple lifted off a
// storefront page. The title is the join key downstream.
type RawListing struct {
	Title     string
	PriceText string
	DetailURL string
}

// Extractor is the common capability of the three storefront scrapers.
type Extractor interface {
	Store() catalog.StoreKey
	// FetchListings walks the given number of listing pages in ascending
	// order and returns every listing it could extract. Individual broken
	// slots are skipped; a page-load timeout ends the run with whatever was
	// collected so far.
	FetchListings(ctx context.Context, pages int) ([]RawListing, error)
}

// Renderer opens storefront pages in a browser. Extractors depend on this
// interface only, so tests can drive them without Chrome.
type Renderer interface {
	Open(ctx context.Context, url string) (Page, error)
}

// Page is one rendered storefront page.
type Page interface {
	// Text returns the trimmed text of the first element matching the CSS
	// selector; ErrNotFound if nothing matches in time.
	Text(selector string) (string, error)
	// TextX is Text for an XPath expression.
	TextX(xpath string) (string, error)
	// Href returns the href attribute of the first CSS match.
	Href(selector string) (string, error)
	// HrefX is Href for an XPath expression.
	HrefX(xpath string) (string, error)
	// Scroll nudges the page down to trigger lazy-loaded content.
	Scroll(times int, pause time.Duration)
	// URL is the address the page was opened with.
	URL() string
	Close()
}

var (
	// ErrNotFound means the element is absent from the rendered page.
	ErrNotFound = errors.New("scrape: element not found")

	// ErrPageTimeout means the page did not finish loading in time.
	ErrPageTimeout = errors.New("scrape: page load timed out")
)

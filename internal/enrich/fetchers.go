package enrich

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/erbolatt/gamewatch/internal/catalog"
	"github.com/erbolatt/gamewatch/internal/scrape"
)

// descriptionTargets maps each enrichable store to the element holding the
// description text, plus an optional block to strip out of it (the GOG page
// appends a legal-copyrights paragraph inside the description div).
var descriptionTargets = map[catalog.StoreKey]struct {
	selector string
	strip    string
}{
	catalog.StoreSteam: {selector: "#game_area_description"},
	catalog.StoreGOG:   {selector: "div.description", strip: "p.description__copyrights"},
}

// NewEnricherFor builds the enricher for one store: rendered fetch as the
// primary strategy, plain HTTP+parse as the fallback.
func NewEnricherFor(spec catalog.StoreSpec, c Catalog, r scrape.Renderer) (*Enricher, error) {
	target, ok := descriptionTargets[spec.Key]
	if !ok {
		if spec.DetailURLMarker != "" {
			return nil, fmt.Errorf("enrich: no description target for store %q", spec.Key)
		}
		// не обогащаемый магазин — Enrich станет no-op
		return &Enricher{Catalog: c}, nil
	}
	return &Enricher{
		Catalog:  c,
		Primary:  &RenderedFetcher{Renderer: r, Selector: target.selector},
		Fallback: &HTTPFetcher{Selector: target.selector, Strip: target.strip},
	}, nil
}

// RenderedFetcher loads the detail page in the browser and reads the
// description element after rendering.
type RenderedFetcher struct {
	Renderer scrape.Renderer
	Selector string
}

func (f *RenderedFetcher) FetchDescription(ctx context.Context, url string) (string, error) {
	pg, err := f.Renderer.Open(ctx, url)
	if err != nil {
		return "", err
	}
	defer pg.Close()

	text, err := pg.Text(f.Selector)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// HTTPFetcher grabs the detail page without a browser. Works for pages that
// ship the description in the initial HTML.
type HTTPFetcher struct {
	Selector string
	Strip    string
	Timeout  time.Duration
}

func (f *HTTPFetcher) FetchDescription(ctx context.Context, url string) (string, error) {
	c := colly.NewCollector(colly.UserAgent("Mozilla/5.0 (Windows NT 10.0; Win64; x64)"))
	timeout := f.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c.SetRequestTimeout(timeout)

	var description string
	c.OnHTML(f.Selector, func(e *colly.HTMLElement) {
		if description != "" {
			return
		}
		sel := e.DOM
		if f.Strip != "" {
			sel.Find(f.Strip).Remove()
		}
		description = strings.TrimSpace(sel.Text())
	})
	c.OnRequest(func(r *colly.Request) {
		select {
		case <-ctx.Done():
			r.Abort()
		default:
		}
	})

	if err := c.Visit(url); err != nil {
		return "", err
	}
	c.Wait()

	if description == "" {
		return "", fmt.Errorf("enrich: %s not found at %s", f.Selector, url)
	}
	return description, nil
}

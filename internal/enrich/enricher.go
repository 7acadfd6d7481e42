// Package enrich fills in missing product descriptions from detail pages.
package enrich

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/erbolatt/gamewatch/internal/catalog"
)

// Catalog is the slice of the data-access layer the enricher needs.
type Catalog interface {
	ListProductsNeedingEnrichment(ctx context.Context, storeID int, urlMarker string) ([]catalog.Product, error)
	UpdateProductDescription(ctx context.Context, id int, description string) error
}

// DescriptionFetcher extracts the free-text description from one product
// detail page.
type DescriptionFetcher interface {
	FetchDescription(ctx context.Context, url string) (string, error)
}

// Enricher walks products that still lack a description and tries the
// primary (rendered) fetch, then the fallback (plain HTTP) fetch. Success
// sets the description and flips the enrichment flag once; failure leaves
// the row untouched so the next scheduled run picks it up again. That rerun
// is the only retry mechanism, and it is unbounded.
type Enricher struct {
	Catalog  Catalog
	Primary  DescriptionFetcher
	Fallback DescriptionFetcher
}

var errEmptyDescription = errors.New("enrich: empty description")

// Enrich processes every enrichment candidate for the store and returns how
// many products were enriched. Stores without a detail-URL shape are not
// enrichable at all: candidates would only ever be listing-page fallbacks.
func (e *Enricher) Enrich(ctx context.Context, store catalog.Store, spec catalog.StoreSpec) (int, error) {
	if spec.DetailURLMarker == "" {
		log.Printf("enrich: %s: store has no detail pages, nothing to do", store.Name)
		return 0, nil
	}

	products, err := e.Catalog.ListProductsNeedingEnrichment(ctx, store.ID, spec.DetailURLMarker)
	if err != nil {
		return 0, fmt.Errorf("listing enrichment candidates for %s: %w", store.Name, err)
	}
	log.Printf("enrich: %s: %d products to enrich", store.Name, len(products))

	enriched := 0
	for _, p := range products {
		select {
		case <-ctx.Done():
			return enriched, ctx.Err()
		default:
		}

		description, err := e.fetch(ctx, p.URL)
		if err != nil {
			log.Printf("enrich: %s: skipped %q: %v", store.Name, p.Name, err)
			continue
		}
		if err := e.Catalog.UpdateProductDescription(ctx, p.ID, description); err != nil {
			log.Printf("enrich: %s: saving %q failed: %v", store.Name, p.Name, err)
			continue
		}
		enriched++
	}

	log.Printf("enrich: %s: done, %d enriched", store.Name, enriched)
	return enriched, nil
}

// fetch tries the rendering strategy first and the plain HTTP one second;
// the first non-empty description wins.
func (e *Enricher) fetch(ctx context.Context, url string) (string, error) {
	var firstErr error
	for _, f := range []DescriptionFetcher{e.Primary, e.Fallback} {
		if f == nil {
			continue
		}
		description, err := f.FetchDescription(ctx, url)
		if err == nil && description != "" {
			return description, nil
		}
		if err == nil {
			err = errEmptyDescription
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	if firstErr == nil {
		firstErr = errEmptyDescription
	}
	return "", firstErr
}

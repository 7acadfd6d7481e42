// Package search rebuilds the per-store full-text search vectors.
package search

import (
	"context"
	"fmt"
	"log"

	"github.com/erbolatt/gamewatch/internal/catalog"
)

type Catalog interface {
	FindStore(ctx context.Context, name string) (catalog.Store, bool, error)
	UpdateSearchVector(ctx context.Context, storeID int, analyzer string) error
}

// Indexer recomputes search_vector from the current descriptions with each
// store's language analyzer. Products without a description end up with an
// empty vector, which is fine: they stay reachable by substring search at
// the query layer.
type Indexer struct {
	Catalog Catalog
}

func (ix *Indexer) RebuildVectors(ctx context.Context) error {
	for _, spec := range catalog.Specs() {
		if spec.Analyzer == "" {
			continue
		}

		store, ok, err := ix.Catalog.FindStore(ctx, spec.Name)
		if err != nil {
			return fmt.Errorf("looking up store %q: %w", spec.Name, err)
		}
		if !ok {
			// индексировать нечего и не для кого — это ошибка конфигурации
			return fmt.Errorf("search: store %q not found", spec.Name)
		}

		if err := ix.Catalog.UpdateSearchVector(ctx, store.ID, spec.Analyzer); err != nil {
			return err
		}
		log.Printf("search: %s vectors rebuilt (%s)", spec.Name, spec.Analyzer)
	}
	return nil
}

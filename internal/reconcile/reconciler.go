// Package reconcile upserts freshly scraped listings into the catalog.
package reconcile

import (
	"context"
	"fmt"
	"log"

	"github.com/shopspring/decimal"

	"github.com/erbolatt/gamewatch/internal/catalog"
)

// NormalizedListing is a scraped listing after price normalization.
type NormalizedListing struct {
	Title string
	Price decimal.Decimal
	URL   string
}

// Catalog is the slice of the data-access layer the reconciler needs.
type Catalog interface {
	FindProductByNameAndStore(ctx context.Context, name string, storeID int) (catalog.Product, bool, error)
	InsertProduct(ctx context.Context, p *catalog.Product) (int, error)
	UpdateProductPrice(ctx context.Context, id int, price decimal.Decimal) error
}

type Result struct {
	Created int
	Updated int
	Failed  int
}

// Reconciler matches listings against existing products by exact
// (name, store) and updates the price in place, inserting new rows
// otherwise. Each item's read-then-write is independent; there is no batch
// transaction, and concurrent runs against the same store must be
// serialized by the caller.
type Reconciler struct {
	Catalog Catalog

	// ContinueOnError keeps the batch going when one item's write fails
	// (the failure is logged and counted). When false the first failure
	// aborts the batch.
	ContinueOnError bool
}

func New(c Catalog) *Reconciler {
	return &Reconciler{Catalog: c, ContinueOnError: true}
}

func (r *Reconciler) Reconcile(ctx context.Context, store catalog.Store, currency string, items []NormalizedListing) (Result, error) {
	var res Result

	for _, item := range items {
		if err := r.reconcileOne(ctx, store, currency, item, &res); err != nil {
			res.Failed++
			if !r.ContinueOnError {
				return res, err
			}
			log.Printf("reconcile: %s: item %q failed: %v", store.Name, item.Title, err)
		}
	}

	log.Printf("reconcile: %s: created=%d updated=%d failed=%d",
		store.Name, res.Created, res.Updated, res.Failed)
	return res, nil
}

func (r *Reconciler) reconcileOne(ctx context.Context, store catalog.Store, currency string, item NormalizedListing, res *Result) error {
	existing, found, err := r.Catalog.FindProductByNameAndStore(ctx, item.Title, store.ID)
	if err != nil {
		return fmt.Errorf("lookup: %w", err)
	}

	if found {
		if err := r.Catalog.UpdateProductPrice(ctx, existing.ID, item.Price); err != nil {
			return fmt.Errorf("update: %w", err)
		}
		res.Updated++
		return nil
	}

	p := &catalog.Product{
		Name:     item.Title,
		Price:    item.Price,
		Currency: currency,
		URL:      item.URL,
		StoreID:  store.ID,
	}
	if _, err := r.Catalog.InsertProduct(ctx, p); err != nil {
		return fmt.Errorf("insert: %w", err)
	}
	res.Created++
	return nil
}

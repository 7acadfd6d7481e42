package reconcile

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erbolatt/gamewatch/internal/catalog"
)

type memCatalog struct {
	nextID   int
	products map[string]catalog.Product // key = name|storeID

	failInsertFor string
}

func newMemCatalog() *memCatalog {
	return &memCatalog{nextID: 1, products: make(map[string]catalog.Product)}
}

func (m *memCatalog) key(name string, storeID int) string {
	return fmt.Sprintf("%s|%d", name, storeID)
}

func (m *memCatalog) FindProductByNameAndStore(_ context.Context, name string, storeID int) (catalog.Product, bool, error) {
	p, ok := m.products[m.key(name, storeID)]
	return p, ok, nil
}

func (m *memCatalog) InsertProduct(_ context.Context, p *catalog.Product) (int, error) {
	if p.Name == m.failInsertFor {
		return 0, errors.New("duplicate key value violates unique constraint")
	}
	p.ID = m.nextID
	m.nextID++
	m.products[m.key(p.Name, p.StoreID)] = *p
	return p.ID, nil
}

func (m *memCatalog) UpdateProductPrice(_ context.Context, id int, price decimal.Decimal) error {
	for k, p := range m.products {
		if p.ID == id {
			p.Price = price
			m.products[k] = p
			return nil
		}
	}
	return errors.New("no such product")
}

func listings(prices map[string]string) []NormalizedListing {
	var out []NormalizedListing
	for title, p := range prices {
		d, _ := decimal.NewFromString(p)
		out = append(out, NormalizedListing{Title: title, Price: d, URL: "https://example.com/" + title})
	}
	return out
}

func TestReconcileCreatesThenUpdates(t *testing.T) {
	ctx := context.Background()
	mem := newMemCatalog()
	r := New(mem)
	store := catalog.Store{ID: 1, Name: "Steam"}

	first, err := r.Reconcile(ctx, store, "KZT", listings(map[string]string{
		"Foo": "100",
		"Bar": "250.5",
	}))
	require.NoError(t, err)
	assert.Equal(t, Result{Created: 2}, first)

	// повторный прогон с новой ценой — только обновления
	second, err := r.Reconcile(ctx, store, "KZT", listings(map[string]string{
		"Foo": "90",
		"Bar": "250.5",
	}))
	require.NoError(t, err)
	assert.Equal(t, Result{Updated: 2}, second)

	p, found, err := mem.FindProductByNameAndStore(ctx, "Foo", store.ID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "90", p.Price.String())
	assert.Equal(t, "KZT", p.Currency)
}

func TestReconcileIdempotent(t *testing.T) {
	ctx := context.Background()
	mem := newMemCatalog()
	r := New(mem)
	store := catalog.Store{ID: 2, Name: "GOG"}
	in := listings(map[string]string{"Foo": "19.99"})

	_, err := r.Reconcile(ctx, store, "USD", in)
	require.NoError(t, err)
	res, err := r.Reconcile(ctx, store, "USD", in)
	require.NoError(t, err)

	assert.Equal(t, 0, res.Created)
	assert.Equal(t, 1, res.Updated)
	assert.Len(t, mem.products, 1)
}

func TestReconcileSameNameDifferentStores(t *testing.T) {
	ctx := context.Background()
	mem := newMemCatalog()
	r := New(mem)
	in := listings(map[string]string{"Foo": "10"})

	_, err := r.Reconcile(ctx, catalog.Store{ID: 1, Name: "Steam"}, "KZT", in)
	require.NoError(t, err)
	_, err = r.Reconcile(ctx, catalog.Store{ID: 2, Name: "GOG"}, "USD", in)
	require.NoError(t, err)

	// одна строка на пару (name, store)
	assert.Len(t, mem.products, 2)
}

func TestReconcileContinueOnError(t *testing.T) {
	ctx := context.Background()
	mem := newMemCatalog()
	mem.failInsertFor = "Broken"
	r := New(mem)
	store := catalog.Store{ID: 1, Name: "Steam"}

	res, err := r.Reconcile(ctx, store, "KZT", []NormalizedListing{
		{Title: "Good", Price: decimal.NewFromInt(10)},
		{Title: "Broken", Price: decimal.NewFromInt(20)},
		{Title: "AlsoGood", Price: decimal.NewFromInt(30)},
	})
	require.NoError(t, err)
	assert.Equal(t, Result{Created: 2, Failed: 1}, res)
}

func TestReconcileAbortsWhenConfigured(t *testing.T) {
	ctx := context.Background()
	mem := newMemCatalog()
	mem.failInsertFor = "Broken"
	r := New(mem)
	r.ContinueOnError = false
	store := catalog.Store{ID: 1, Name: "Steam"}

	res, err := r.Reconcile(ctx, store, "KZT", []NormalizedListing{
		{Title: "Broken", Price: decimal.NewFromInt(20)},
		{Title: "Good", Price: decimal.NewFromInt(10)},
	})
	require.Error(t, err)
	assert.Equal(t, Result{Failed: 1}, res)
}

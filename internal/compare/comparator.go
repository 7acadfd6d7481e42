// Package compare finds cross-store price differences and fans out
// notifications to wishlist owners.
package compare

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/erbolatt/gamewatch/internal/catalog"
	"github.com/erbolatt/gamewatch/internal/price"
)

// Catalog is the read-only slice of the data-access layer the comparator
// needs.
type Catalog interface {
	ListAllProducts(ctx context.Context) ([]catalog.Product, error)
	WishlistsContaining(ctx context.Context, productID int) ([]catalog.Wishlist, error)
	WishlistOwner(ctx context.Context, wishlistID int) (int, bool, error)
}

// Notifier is the external notification sink. The pipeline only persists
// the event; delivery beyond that is someone else's concern.
type Notifier interface {
	CreateNotification(ctx context.Context, n catalog.Notification) (catalog.Notification, error)
}

// Comparator groups catalog products by case-insensitive name, converts
// their prices into the reference currency and notifies wishlist owners of
// the cheapest product about every pricier alternative. Notifications are
// not deduplicated across runs.
type Comparator struct {
	Catalog   Catalog
	Notifier  Notifier
	Rates     price.RateSource
	Reference string

	// Consolidate switches from the historical one-notification-per-pricier-
	// competitor fan-out to a single best-price notification per user per
	// group.
	Consolidate bool
}

// CompareAndNotify runs one comparison pass and returns the number of
// notifications created.
func (c *Comparator) CompareAndNotify(ctx context.Context) (int, error) {
	products, err := c.Catalog.ListAllProducts(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing products: %w", err)
	}

	groups := make(map[string][]catalog.Product)
	for _, p := range products {
		if p.Price.IsZero() {
			continue
		}
		key := strings.ToLower(p.Name)
		groups[key] = append(groups[key], p)
	}

	// один курс на весь прогон
	rate := c.Rates.USDToReference(ctx)

	created := 0
	for _, group := range groups {
		if len(group) < 2 {
			continue
		}

		sort.SliceStable(group, func(i, j int) bool {
			return c.convert(group[i], rate).LessThan(c.convert(group[j], rate))
		})
		cheapest := group[0]
		cheapestPrice := c.convert(cheapest, rate)

		for _, other := range group[1:] {
			if other.StoreID == cheapest.StoreID {
				continue
			}
			// strictly cheaper only: a tie is not a better deal
			if !cheapestPrice.LessThan(c.convert(other, rate)) {
				continue
			}

			n, err := c.notifyWishlists(ctx, cheapest, other)
			if err != nil {
				return created, err
			}
			created += n

			if c.Consolidate {
				break
			}
		}
	}

	log.Printf("compare: run complete, %d notifications created", created)
	return created, nil
}

// convert brings a product's price into the reference currency. The
// reference currency passes through; everything else is USD-denominated and
// multiplied by the USD rate.
func (c *Comparator) convert(p catalog.Product, rate decimal.Decimal) decimal.Decimal {
	if p.Currency == c.Reference {
		return p.Price
	}
	return p.Price.Mul(rate)
}

func (c *Comparator) notifyWishlists(ctx context.Context, cheapest, other catalog.Product) (int, error) {
	wishlists, err := c.Catalog.WishlistsContaining(ctx, cheapest.ID)
	if err != nil {
		return 0, fmt.Errorf("listing wishlists for product %d: %w", cheapest.ID, err)
	}

	created := 0
	for _, w := range wishlists {
		userID, ok, err := c.Catalog.WishlistOwner(ctx, w.ID)
		if err != nil {
			return created, fmt.Errorf("resolving owner of wishlist %d: %w", w.ID, err)
		}
		if !ok {
			continue
		}

		message := fmt.Sprintf(
			"🎮 %s сейчас дешевле в %s — %s %s!\nВ %s стоит %s %s.\nСсылка: %s",
			cheapest.Name, cheapest.StoreName, cheapest.Price, cheapest.Currency,
			other.StoreName, other.Price, other.Currency, cheapest.URL)

		if _, err := c.Notifier.CreateNotification(ctx, catalog.Notification{
			UserID:    userID,
			ProductID: cheapest.ID,
			Message:   message,
		}); err != nil {
			return created, fmt.Errorf("creating notification for user %d: %w", userID, err)
		}
		created++
	}
	return created, nil
}

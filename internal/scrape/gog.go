package scrape

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/erbolatt/gamewatch/internal/catalog"
)

// GOG walks the catalog grid. The grid renders product-tile custom elements
// addressable only by position, hence the indexed XPath probes. Tiles whose
// anchor cannot be resolved fall back to the listing page URL, which makes
// them permanently unenrichable — the enricher filters those out by URL
// shape.
type GOG struct {
	Renderer     Renderer
	SlotsPerPage int
}

const (
	gogCatalogURL = "https://www.gog.com/en/games?page=%d"
	gogTileXPath  = `//*[@id="Catalog"]/div/div[2]/paginated-products-grid/div/product-tile[%d]`
)

func NewGOG(r Renderer) *GOG {
	return &GOG{Renderer: r, SlotsPerPage: 50}
}

func (g *GOG) Store() catalog.StoreKey { return catalog.StoreGOG }

func (g *GOG) FetchListings(ctx context.Context, pages int) ([]RawListing, error) {
	var out []RawListing

	for page := 1; page <= pages; page++ {
		url := fmt.Sprintf(gogCatalogURL, page)
		pg, err := g.Renderer.Open(ctx, url)
		if errors.Is(err, ErrPageTimeout) {
			log.Printf("gog: page %d timed out, returning %d listings", page, len(out))
			return out, nil
		}
		if err != nil {
			log.Printf("gog: page %d failed: %v", page, err)
			continue
		}

		for i := 1; i <= g.SlotsPerPage; i++ {
			tile := fmt.Sprintf(gogTileXPath, i)

			title, err := pg.TextX(tile + `/a/div[2]/div[1]/product-title/span`)
			if err != nil || title == "" {
				continue
			}

			priceText, err := pg.TextX(tile + `/a/div[2]/div[2]/div/product-price/price-value/span`)
			if err != nil {
				log.Printf("gog: no price for %q on page %d: %v", title, page, err)
				priceText = ""
			}

			detailURL, err := pg.HrefX(tile + `/a`)
			if err != nil {
				detailURL = pg.URL()
			}

			out = append(out, RawListing{Title: title, PriceText: priceText, DetailURL: detailURL})
		}
		pg.Close()
	}
	return out, nil
}

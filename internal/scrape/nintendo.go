package scrape

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"time"

	"github.com/erbolatt/gamewatch/internal/catalog"
)

// Nintendo walks the best-sellers grid. The grid lazy-loads, so every page
// is scrolled a fixed number of times before the slot loop. The page does
// not expose per-product anchors reliably; the detail URL is always the
// listing page itself, so Nintendo products are never enrichable.
type Nintendo struct {
	Renderer     Renderer
	SlotsPerPage int
	ScrollPasses int
	ScrollPause  time.Duration
}

const (
	nintendoBestSellersURL = "https://www.nintendo.com/us/store/games/best-sellers/#sort=df&p=%d"
	nintendoSlotXPath      = `//*[@id="main"]/div[3]/section/div[2]/div[2]/div[%d]/div/a/div[3]/div`
)

// Price text on the tile mixes labels and discount chatter; the actual
// amount is the first $N,NNN.NN match.
var nintendoPriceRe = regexp.MustCompile(`\$[0-9,]+\.[0-9]{2}`)

func NewNintendo(r Renderer) *Nintendo {
	return &Nintendo{
		Renderer:     r,
		SlotsPerPage: 99,
		ScrollPasses: 10,
		ScrollPause:  2 * time.Second,
	}
}

func (n *Nintendo) Store() catalog.StoreKey { return catalog.StoreNintendo }

func (n *Nintendo) FetchListings(ctx context.Context, pages int) ([]RawListing, error) {
	var out []RawListing

	for page := 1; page <= pages; page++ {
		url := fmt.Sprintf(nintendoBestSellersURL, page)
		pg, err := n.Renderer.Open(ctx, url)
		if errors.Is(err, ErrPageTimeout) {
			log.Printf("nintendo: page %d timed out, returning %d listings", page, len(out))
			return out, nil
		}
		if err != nil {
			log.Printf("nintendo: page %d failed: %v", page, err)
			continue
		}

		pg.Scroll(n.ScrollPasses, n.ScrollPause)

		for i := 1; i <= n.SlotsPerPage; i++ {
			slot := fmt.Sprintf(nintendoSlotXPath, i)

			title, err := pg.TextX(slot + `/div[1]/h2`)
			if err != nil || title == "" {
				continue
			}

			priceText := ""
			if raw, err := pg.TextX(slot + `/div[3]/div/div/span`); err == nil {
				priceText = nintendoPriceRe.FindString(raw)
			} else {
				log.Printf("nintendo: no price for %q on page %d: %v", title, page, err)
			}

			out = append(out, RawListing{Title: title, PriceText: priceText, DetailURL: pg.URL()})
		}
		pg.Close()
	}
	return out, nil
}

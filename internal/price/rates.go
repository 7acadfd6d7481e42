package price

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/shopspring/decimal"
)

// RateSource delivers the USD -> reference-currency rate used to compare
// prices across stores.
type RateSource interface {
	USDToReference(ctx context.Context) decimal.Decimal
}

// StaticRate always returns a fixed rate. Used in tests and offline runs.
type StaticRate struct {
	Rate decimal.Decimal
}

func (s StaticRate) USDToReference(_ context.Context) decimal.Decimal {
	return s.Rate
}

// XRatesSource scrapes a currency-converter page for the current rate. Any
// failure degrades to the fixed fallback: a dead rate source must not stop
// the comparison run.
type XRatesSource struct {
	URL      string
	Fallback decimal.Decimal
	Timeout  time.Duration
}

func NewXRatesSource(url string, fallback decimal.Decimal) *XRatesSource {
	return &XRatesSource{URL: url, Fallback: fallback, Timeout: 10 * time.Second}
}

func (x *XRatesSource) USDToReference(ctx context.Context) decimal.Decimal {
	rate, err := x.fetch(ctx)
	if err != nil {
		log.Printf("rates: falling back to %s: %v", x.Fallback, err)
		return x.Fallback
	}
	return rate
}

func (x *XRatesSource) fetch(ctx context.Context) (decimal.Decimal, error) {
	c := colly.NewCollector(colly.UserAgent("Mozilla/5.0"))
	c.SetRequestTimeout(x.Timeout)

	var raw string
	c.OnHTML("span.ccOutputRslt", func(e *colly.HTMLElement) {
		if raw == "" {
			raw = e.Text
		}
	})
	c.OnRequest(func(r *colly.Request) {
		select {
		case <-ctx.Done():
			r.Abort()
		default:
		}
	})

	if err := c.Visit(x.URL); err != nil {
		return decimal.Zero, err
	}
	c.Wait()

	// The converter output keeps the trailing currency code in a nested
	// span, e.g. "449.871460 KZT"; the US locale page uses "," for
	// thousands, so the last separator is the decimal point.
	rate := NormalizeWith(raw, LastSeparatorWins)
	if rate.IsZero() {
		return decimal.Zero, fmt.Errorf("rates: unparseable converter output %q", raw)
	}
	return rate, nil
}

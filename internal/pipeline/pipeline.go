// Package pipeline wires the scraping, reconciliation, enrichment,
// comparison and indexing stages into schedulable jobs.
package pipeline

import (
	"context"
	"fmt"

	"github.com/erbolatt/gamewatch/internal/catalog"
	"github.com/erbolatt/gamewatch/internal/compare"
	"github.com/erbolatt/gamewatch/internal/config"
	"github.com/erbolatt/gamewatch/internal/enrich"
	"github.com/erbolatt/gamewatch/internal/price"
	"github.com/erbolatt/gamewatch/internal/reconcile"
	"github.com/erbolatt/gamewatch/internal/scheduler"
	"github.com/erbolatt/gamewatch/internal/scrape"
	"github.com/erbolatt/gamewatch/internal/search"
)

type Deps struct {
	Repo     *catalog.Repository
	Renderer scrape.Renderer
	Rates    price.RateSource
	Settings config.Settings
}

// Jobs builds the full beat table: one scrape job per storefront, one
// enrichment job per enrichable store, the comparator and the search-vector
// rebuild.
func Jobs(d Deps) ([]scheduler.Job, error) {
	cfg := d.Settings

	jobs := []scheduler.Job{
		{
			Name:     "scrape:steam",
			Spec:     cfg.SteamCron,
			StoreKey: string(catalog.StoreSteam),
			Run:      scrapeJob(d, scrape.NewSteam(d.Renderer), cfg.SteamPages, price.CommaDecimal),
		},
		{
			Name:     "scrape:gog",
			Spec:     cfg.GogCron,
			StoreKey: string(catalog.StoreGOG),
			// на странице GOG разделитель зависит от локали, решает последний
			Run: scrapeJob(d, scrape.NewGOG(d.Renderer), cfg.GogPages, price.LastSeparatorWins),
		},
		{
			Name:     "scrape:nintendo",
			Spec:     cfg.NintendoCron,
			StoreKey: string(catalog.StoreNintendo),
			// цены в US-формате ("$1,299.99"): запятая отделяет тысячи
			Run: scrapeJob(d, scrape.NewNintendo(d.Renderer), cfg.NintendoPages, price.LastSeparatorWins),
		},
		{
			Name:     "enrich:steam",
			Spec:     cfg.EnrichSteamCron,
			StoreKey: string(catalog.StoreSteam),
			Run:      enrichJob(d, catalog.StoreSteam),
		},
		{
			Name:     "enrich:gog",
			Spec:     cfg.EnrichGogCron,
			StoreKey: string(catalog.StoreGOG),
			Run:      enrichJob(d, catalog.StoreGOG),
		},
		{
			Name: "compare",
			Spec: cfg.CompareCron,
			Run:  compareJob(d),
		},
		{
			Name: "search-vector",
			Spec: cfg.VectorCron,
			Run:  vectorJob(d),
		},
	}
	return jobs, nil
}

func scrapeJob(d Deps, ex scrape.Extractor, pages int, policy price.SeparatorPolicy) func(context.Context) error {
	return func(ctx context.Context) error {
		spec, ok := catalog.SpecFor(ex.Store())
		if !ok {
			return fmt.Errorf("pipeline: unknown store %q", ex.Store())
		}

		// магазин создаётся лениво при первом прогоне
		store, err := d.Repo.GetOrCreateStore(ctx, spec)
		if err != nil {
			return err
		}

		raw, err := ex.FetchListings(ctx, pages)
		if err != nil {
			return err
		}

		items := make([]reconcile.NormalizedListing, 0, len(raw))
		for _, l := range raw {
			items = append(items, reconcile.NormalizedListing{
				Title: l.Title,
				Price: price.NormalizeWith(l.PriceText, policy),
				URL:   l.DetailURL,
			})
		}

		_, err = reconcile.New(d.Repo).Reconcile(ctx, store, spec.Currency, items)
		return err
	}
}

func enrichJob(d Deps, key catalog.StoreKey) func(context.Context) error {
	return func(ctx context.Context) error {
		spec, ok := catalog.SpecFor(key)
		if !ok {
			return fmt.Errorf("pipeline: unknown store %q", key)
		}

		// обогащение не создаёт магазин: если его нет, нечего обогащать
		store, found, err := d.Repo.FindStore(ctx, spec.Name)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("pipeline: store %q not found", spec.Name)
		}

		enricher, err := enrich.NewEnricherFor(spec, d.Repo, d.Renderer)
		if err != nil {
			return err
		}
		_, err = enricher.Enrich(ctx, store, spec)
		return err
	}
}

func compareJob(d Deps) func(context.Context) error {
	cmp := &compare.Comparator{
		Catalog:     d.Repo,
		Notifier:    d.Repo,
		Rates:       d.Rates,
		Reference:   d.Settings.ReferenceCurrency,
		Consolidate: d.Settings.Consolidate,
	}
	return func(ctx context.Context) error {
		_, err := cmp.CompareAndNotify(ctx)
		return err
	}
}

func vectorJob(d Deps) func(context.Context) error {
	ix := &search.Indexer{Catalog: d.Repo}
	return ix.RebuildVectors
}

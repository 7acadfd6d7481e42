package catalog

// StoreKey identifies one of the supported storefronts. All per-store
// behavior (extraction, enrichment, currency, search analyzer) hangs off the
// spec for that key, so nothing else in the pipeline branches on store names.
type StoreKey string

const (
	StoreSteam    StoreKey = "steam"
	StoreGOG      StoreKey = "gog"
	StoreNintendo StoreKey = "nintendo"
)

// StoreSpec describes one storefront's fixed properties.
type StoreSpec struct {
	Key      StoreKey
	Name     string
	URL      string
	Currency string

	// Analyzer is the Postgres text-search config for this store's
	// descriptions; empty means the store is not full-text indexed.
	Analyzer string

	// DetailURLMarker is the substring a product URL must contain to be a
	// real detail page. Empty means enrichment is impossible for this store
	// (captured URLs are listing-page fallbacks).
	DetailURLMarker string
}

var storeSpecs = []StoreSpec{
	{
		Key:             StoreSteam,
		Name:            "Steam",
		URL:             "https://store.steampowered.com",
		Currency:        "KZT",
		Analyzer:        "russian",
		DetailURLMarker: "store.steampowered.com/app/",
	},
	{
		Key:             StoreGOG,
		Name:            "GOG",
		URL:             "https://www.gog.com",
		Currency:        "USD",
		Analyzer:        "english",
		DetailURLMarker: "/game/",
	},
	{
		Key:      StoreNintendo,
		Name:     "Nintendo Store",
		URL:      "https://www.nintendo.com/us/store/games/best-sellers/",
		Currency: "USD",
		// Nintendo listings only ever capture the listing page URL, so the
		// store is neither enrichable nor indexed.
	},
}

func Specs() []StoreSpec {
	out := make([]StoreSpec, len(storeSpecs))
	copy(out, storeSpecs)
	return out
}

func SpecFor(key StoreKey) (StoreSpec, bool) {
	for _, s := range storeSpecs {
		if s.Key == key {
			return s, true
		}
	}
	return StoreSpec{}, false
}

package config

import (
	"os"
	"strconv"
	"strings"
)

// Settings собирает все настройки пайплайна из окружения.
type Settings struct {
	Port     string
	Timezone string

	// Scraping
	Headless       bool
	SteamPages     int
	GogPages       int
	NintendoPages  int
	PageTimeoutSec int
	RenderRPS      float64

	// Comparison
	ReferenceCurrency string
	RateURL           string
	FallbackRate      string
	Consolidate       bool

	// Schedules (crontab syntax, local time zone)
	SteamCron       string
	GogCron         string
	NintendoCron    string
	EnrichSteamCron string
	EnrichGogCron   string
	CompareCron     string
	VectorCron      string
}

func FromEnv() Settings {
	return Settings{
		Port:     envString("PORT", "8080"),
		Timezone: envString("TIMEZONE", "Asia/Almaty"),

		Headless:       envBool("SCRAPE_HEADLESS", true),
		SteamPages:     envInt("STEAM_PAGES", 3),
		GogPages:       envInt("GOG_PAGES", 3),
		NintendoPages:  envInt("NINTENDO_PAGES", 3),
		PageTimeoutSec: envInt("PAGE_TIMEOUT_SEC", 25),
		RenderRPS:      envFloat("RENDER_RPS", 0.5),

		ReferenceCurrency: envString("REFERENCE_CURRENCY", "KZT"),
		RateURL:           envString("RATE_URL", "https://www.x-rates.com/calculator/?from=USD&to=KZT&amount=1"),
		FallbackRate:      envString("RATE_FALLBACK", "450"),
		Consolidate:       envBool("COMPARE_CONSOLIDATE", false),

		SteamCron:       envString("STEAM_CRON", "0 17 * * *"),
		GogCron:         envString("GOG_CRON", "52 17 * * *"),
		NintendoCron:    envString("NINTENDO_CRON", "10 18 * * *"),
		EnrichSteamCron: envString("ENRICH_STEAM_CRON", "45 18 * * *"),
		EnrichGogCron:   envString("ENRICH_GOG_CRON", "30 18 * * *"),
		CompareCron:     envString("COMPARE_CRON", "0 19 * * *"),
		VectorCron:      envString("VECTOR_CRON", "15 3 * * *"),
	}
}

func envString(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func envFloat(key string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	switch strings.ToLower(v) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return def
	}
}

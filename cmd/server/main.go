package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/erbolatt/gamewatch/internal/catalog"
	"github.com/erbolatt/gamewatch/internal/config"
	"github.com/erbolatt/gamewatch/internal/database"
	"github.com/erbolatt/gamewatch/internal/pipeline"
	"github.com/erbolatt/gamewatch/internal/price"
	"github.com/erbolatt/gamewatch/internal/scheduler"
	"github.com/erbolatt/gamewatch/internal/scrape"
	"github.com/erbolatt/gamewatch/internal/server"
)

func main() {
	_ = godotenv.Load() // load .env if present; not fatal if missing

	cfg := config.FromEnv()

	// graceful shutdown coordination
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// connect to DB
	pool, err := database.Connect(ctx)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	repo := catalog.NewRepository(pool)

	if err := repo.SeedCurrencies(ctx); err != nil {
		log.Fatalf("seeding currencies: %v", err)
	}

	// headless browser for the extractors and the primary enrichment path
	browser, err := scrape.NewBrowser(scrape.BrowserOptions{
		Headless:    cfg.Headless,
		LoadTimeout: time.Duration(cfg.PageTimeoutSec) * time.Second,
		RPS:         cfg.RenderRPS,
	})
	if err != nil {
		log.Fatalf("browser: %v", err)
	}
	defer browser.Close()

	fallback, err := decimal.NewFromString(cfg.FallbackRate)
	if err != nil {
		log.Fatalf("bad RATE_FALLBACK %q: %v", cfg.FallbackRate, err)
	}
	rates := price.NewXRatesSource(cfg.RateURL, fallback)

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Fatalf("bad TIMEZONE %q: %v", cfg.Timezone, err)
	}

	sched := scheduler.New(loc, repo)
	jobs, err := pipeline.Jobs(pipeline.Deps{
		Repo:     repo,
		Renderer: browser,
		Rates:    rates,
		Settings: cfg,
	})
	if err != nil {
		log.Fatalf("building jobs: %v", err)
	}
	for _, j := range jobs {
		if err := sched.Register(j); err != nil {
			log.Fatalf("registering job: %v", err)
		}
	}
	sched.Start(ctx)

	// job trigger surface
	h := server.NewHandler(sched, pool)

	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(os.Getenv("GIN_MODE"))
	}
	r := gin.Default()

	r.GET("/healthz", h.Health)
	api := r.Group("/api")
	{
		api.GET("/jobs", h.ListJobs)
		api.POST("/jobs/:name/run", h.TriggerJob)
		api.GET("/runs", h.ListRuns)
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	// start server
	go func() {
		log.Printf("Server started on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server ListenAndServe: %v", err)
		}
	}()

	// wait for interrupt
	<-ctx.Done()
	log.Println("shutdown signal received")

	// stop accepting new requests, allow 15s to finish
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server Shutdown: %v", err)
	}

	// wait for in-flight jobs (they react to ctx)
	sched.Stop(shutdownCtx)

	// close DB pool (blocks until connections returned)
	pool.Close()

	log.Println("graceful shutdown complete")
}

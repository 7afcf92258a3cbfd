// Elevation API
//
// Bi-national elevation microservice: given a geographic point (or a
// batch / line / path of them) returns a ground elevation in metres by
// selecting the best available DEM, fetching the relevant raster tile from
// remote object storage, and sampling it.
package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/jcom-dev/elevation-api/internal/config"
	"github.com/jcom-dev/elevation-api/internal/elevation"
	"github.com/jcom-dev/elevation-api/internal/handlers"
	custommw "github.com/jcom-dev/elevation-api/internal/middleware"
	"github.com/jcom-dev/elevation-api/internal/provider"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	ctx := context.Background()

	p, err := provider.New(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to start provider: %v", err)
	}

	svc := elevation.New(p.Orchestrator(), p.QueryConcurrency(), p.BatchMaxPoints())
	h := handlers.New(svc, p)

	r := chi.NewRouter()
	r.Use(custommw.RequestID)
	r.Use(custommw.RealIP)
	r.Use(custommw.Logger)
	r.Use(custommw.Recoverer)
	r.Use(custommw.Timeout(30 * time.Second))
	r.Use(custommw.SecurityHeaders)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/api/v1/health", h.Health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(custommw.ContentType("application/json"))

		r.Get("/elevation", h.GetElevation)
		r.Post("/elevation/points", h.PostElevationPoints)
		r.Post("/elevation/line", h.PostElevationLine)
		r.Post("/elevation/path", h.PostElevationPath)
		r.Get("/elevation/campaigns", h.ListCampaigns)
		r.Get("/elevation/campaigns/{id}", h.GetCampaign)
	})

	srv := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("starting server", "addr", srv.Addr, "environment", cfg.Server.Environment)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	if err := p.Close(shutdownCtx); err != nil {
		slog.Error("error closing provider", "error", err)
	}

	slog.Info("server exited")
}

package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	"transit-route-service/internal/api"
	"transit-route-service/internal/config"
	"transit-route-service/internal/persistence"
	"transit-route-service/internal/platform/obs"
)

// main is the query-service composition root.
// It loads a prebuilt snapshot once and serves read-only queries over it.
func main() {
	obs.InitLogging(os.Stdout)

	configPath := flag.String("config", "", "path to config.yml (default $TRANSIT_CONFIG)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// A corrupt or partial snapshot is fatal: nothing is served from it.
	snap, err := persistence.Load(ctx, cfg.Snapshot.Path)
	if err != nil {
		log.Fatal(err)
	}

	router := api.NewRouter(snap, api.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		RouteTTL:       cfg.Cache.RouteTTL(),
	})

	log.Printf("Server listening addr=:%s stops=%d buses=%d", cfg.Server.Port, snap.Catalogue.StopCount(), snap.Catalogue.BusCount())
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown err=%v", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
	log.Println("Server stopped")
}

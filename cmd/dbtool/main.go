package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"transit-route-service/internal/adapters/repositories"
	"transit-route-service/internal/adapters/source"
	"transit-route-service/internal/config"
	"transit-route-service/internal/platform/db"
	"transit-route-service/internal/platform/obs"
)

// dbtool creates the network schema and seeds it from a base document,
// so make_base can later build from the database with -source db.
func main() {
	obs.InitLogging(os.Stdout)

	configPath := flag.String("config", "", "path to config.yml (default $TRANSIT_CONFIG)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()

	conn, err := db.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		log.Fatal(err)
	}
	defer conn.Close()

	seedPath := config.Get("SEED_PATH", "data/seeds/base_requests.json")
	if err := initAndSeed(ctx, conn, cfg.Database.Driver, seedPath); err != nil {
		log.Fatal(err)
	}
}

func initAndSeed(ctx context.Context, conn *sql.DB, driver, seedPath string) error {
	log.Println("Initializing database schema...")
	if err := repositories.InitSchema(ctx, conn); err != nil {
		return fmt.Errorf("schema initialization failed: %w", err)
	}
	log.Println("Schema ready.")

	f, err := os.Open(seedPath)
	if err != nil {
		return fmt.Errorf("open seed: %w", err)
	}
	defer f.Close()

	doc, err := source.ReadBaseDocument(f)
	if err != nil {
		return fmt.Errorf("read seed %q: %w", seedPath, err)
	}

	network, err := doc.LoadNetwork(ctx)
	if err != nil {
		return fmt.Errorf("read seed %q: %w", seedPath, err)
	}

	log.Println("Seeding database...")
	if err := repositories.SeedNetwork(ctx, conn, driver, network); err != nil {
		return fmt.Errorf("seeding failed: %w", err)
	}
	log.Printf("Seeding complete. stops=%d buses=%d", len(network.Stops), len(network.Buses))

	return nil
}

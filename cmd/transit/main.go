package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"transit-route-service/internal/adapters/repositories"
	"transit-route-service/internal/adapters/source"
	"transit-route-service/internal/config"
	"transit-route-service/internal/persistence"
	"transit-route-service/internal/platform/db"
	"transit-route-service/internal/platform/obs"
	"transit-route-service/internal/ports"
	"transit-route-service/internal/services"
)

const usage = `usage: transit [-config file] [-source stdin|db] make_base|process_requests

  make_base         read a base document from stdin, build the routing base and save it
  process_requests  read a stat document from stdin, answer it from the saved base on stdout

With -source db, make_base takes stops and buses from the configured database
and only settings from the stdin document.`

// main is the batch composition root: stdin in, snapshot file or stdout out.
func main() {
	obs.InitLogging(os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("transit", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to config.yml (default $TRANSIT_CONFIG)")
	sourceKind := fs.String("source", "stdin", "where make_base reads stops and buses: stdin or db")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New(usage)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	switch fs.Arg(0) {
	case "make_base":
		return makeBase(ctx, cfg, *sourceKind, stdin)
	case "process_requests":
		return processRequests(ctx, cfg, stdin, stdout)
	default:
		return fmt.Errorf("unknown command %q\n%s", fs.Arg(0), usage)
	}
}

func makeBase(ctx context.Context, cfg config.Config, sourceKind string, stdin io.Reader) error {
	doc, err := source.ReadBaseDocument(stdin)
	if err != nil {
		return fmt.Errorf("make_base: %w", err)
	}

	settings := cfg.Routing
	if doc.RoutingSettings != nil {
		settings = *doc.RoutingSettings
	}
	path := snapshotPath(cfg, doc.SerializationSettings)

	var src ports.NetworkSource = doc
	if sourceKind == "db" {
		conn, err := db.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
		if err != nil {
			return fmt.Errorf("make_base: %w", err)
		}
		defer conn.Close()
		src = repositories.NewSQLNetworkRepository(conn, cfg.Database.Driver)
	} else if sourceKind != "stdin" {
		return fmt.Errorf("make_base: unknown source %q", sourceKind)
	}

	snap, err := services.BuildBase(ctx, src, services.BuildBaseRequest{
		Settings:       settings,
		Workers:        cfg.Precompute.Workers,
		RenderSettings: doc.RenderSettingsBytes(),
	})
	if err != nil {
		return fmt.Errorf("make_base: %w", err)
	}

	if err := persistence.Save(ctx, path, snap); err != nil {
		return fmt.Errorf("make_base: %w", err)
	}

	log.Printf("base saved path=%s stops=%d buses=%d", path, snap.Catalogue.StopCount(), snap.Catalogue.BusCount())
	return nil
}

func processRequests(ctx context.Context, cfg config.Config, stdin io.Reader, stdout io.Writer) error {
	doc, err := source.ReadStatDocument(stdin)
	if err != nil {
		return fmt.Errorf("process_requests: %w", err)
	}

	snap, err := persistence.Load(ctx, snapshotPath(cfg, doc.SerializationSettings))
	if err != nil {
		return fmt.Errorf("process_requests: %w", err)
	}

	responses, err := services.ProcessStatRequests(ctx, snap, doc.Requests())
	if err != nil {
		return fmt.Errorf("process_requests: %w", err)
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "    ")
	if err := enc.Encode(responses); err != nil {
		return fmt.Errorf("process_requests: write responses: %w", err)
	}
	return nil
}

// snapshotPath prefers the document's serialization_settings.file over config.
func snapshotPath(cfg config.Config, s *source.SerializationSettings) string {
	if s != nil && s.File != "" {
		return s.File
	}
	return cfg.Snapshot.Path
}

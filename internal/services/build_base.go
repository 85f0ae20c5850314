package services

import (
	"context"
	"errors"
	"fmt"
	"transit-route-service/internal/catalogue"
	"transit-route-service/internal/domain"
	"transit-route-service/internal/persistence"
	"transit-route-service/internal/platform/obs"
	"transit-route-service/internal/ports"
	"transit-route-service/internal/transit"
)

type BuildBaseRequest struct {
	Settings transit.Settings
	// Workers bounds the precomputation goroutines; <= 0 means GOMAXPROCS.
	Workers        int
	RenderSettings []byte
}

// BuildBase runs the whole build phase: it loads the network definition,
// populates a catalogue, builds the routing graph and precomputes all routes.
// Any malformed definition aborts the build.
func BuildBase(
	ctx context.Context,
	src ports.NetworkSource,
	req BuildBaseRequest,
) (_ *persistence.Snapshot, err error) {
	defer obs.Time(ctx, "services.BuildBase")(&err)

	if src == nil {
		return nil, errors.New("build base: network source is nil")
	}

	network, err := src.LoadNetwork(ctx)
	if err != nil {
		return nil, fmt.Errorf("build base: load network: %w", err)
	}

	cat, err := PopulateCatalogue(ctx, network)
	if err != nil {
		return nil, fmt.Errorf("build base: %w", err)
	}

	router, err := buildRouter(ctx, cat, req)
	if err != nil {
		return nil, fmt.Errorf("build base: %w", err)
	}

	return &persistence.Snapshot{
		Catalogue:      cat,
		Router:         router,
		RenderSettings: req.RenderSettings,
	}, nil
}

// PopulateCatalogue adds every stop, then every road distance, then every bus,
// so distances and buses may reference stops defined later in the input.
func PopulateCatalogue(ctx context.Context, network *domain.Network) (_ *catalogue.Catalogue, err error) {
	defer obs.Time(ctx, "services.PopulateCatalogue")(&err)

	if network == nil {
		return nil, errors.New("populate catalogue: network is nil")
	}

	cat := catalogue.New()

	for _, s := range network.Stops {
		if _, err := cat.AddStop(s.Name, s.Coordinates); err != nil {
			return nil, fmt.Errorf("populate catalogue: %w", err)
		}
	}

	for _, s := range network.Stops {
		for to, meters := range s.RoadDistances {
			if err := cat.SetStopDistance(s.Name, to, meters); err != nil {
				return nil, fmt.Errorf("populate catalogue: stop %q: %w", s.Name, err)
			}
		}
	}

	for _, b := range network.Buses {
		if _, err := cat.AddBusRoute(b.Name, b.Stops, b.IsRoundtrip); err != nil {
			return nil, fmt.Errorf("populate catalogue: %w", err)
		}
	}

	return cat, nil
}

func buildRouter(ctx context.Context, cat *catalogue.Catalogue, req BuildBaseRequest) (_ *transit.TransportRouter, err error) {
	defer obs.Time(ctx, "services.BuildRouter")(&err)

	return transit.Build(ctx, cat, req.Settings, req.Workers)
}

package ports

import (
	"context"
	"transit-route-service/internal/domain"
)

// Port: a boundary for retrieving the stop and bus definitions of a network.
type NetworkSource interface {
	// Return every stop and bus definition, stops first in the order they
	// should receive catalogue IDs.
	LoadNetwork(ctx context.Context) (*domain.Network, error)
}

// Package source reads the JSON request documents consumed by the two
// command verbs and exposes the base document as a NetworkSource.
package source

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"transit-route-service/internal/domain"
	"transit-route-service/internal/transit"

	"github.com/go-playground/validator/v10"
)

const (
	RequestStop = "Stop"
	RequestBus  = "Bus"
)

var validate = validator.New()

type SerializationSettings struct {
	File string `json:"file" validate:"required"`
}

// BaseRequest is one entry of base_requests: either a Stop or a Bus.
type BaseRequest struct {
	Type string `json:"type" validate:"required,oneof=Stop Bus"`
	Name string `json:"name" validate:"required"`

	// Stop fields.
	Latitude      *float64       `json:"latitude,omitempty"`
	Longitude     *float64       `json:"longitude,omitempty"`
	RoadDistances map[string]int `json:"road_distances,omitempty" validate:"dive,gte=0"`

	// Bus fields.
	Stops       []string `json:"stops,omitempty" validate:"dive,required"`
	IsRoundtrip bool     `json:"is_roundtrip,omitempty"`
}

// BaseDocument is the make_base input.
type BaseDocument struct {
	BaseRequests          []BaseRequest          `json:"base_requests" validate:"dive"`
	RoutingSettings       *transit.Settings      `json:"routing_settings,omitempty"`
	RenderSettings        json.RawMessage        `json:"render_settings,omitempty"`
	SerializationSettings *SerializationSettings `json:"serialization_settings,omitempty"`
}

// StatRequest is one entry of stat_requests.
type StatRequest struct {
	ID   int    `json:"id"`
	Type string `json:"type" validate:"required,oneof=Bus Stop Route Map"`
	Name string `json:"name,omitempty"`
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
}

// StatDocument is the process_requests input.
type StatDocument struct {
	SerializationSettings *SerializationSettings `json:"serialization_settings,omitempty"`
	StatRequests          []StatRequest          `json:"stat_requests" validate:"dive"`
}

// ReadBaseDocument decodes and validates a make_base document.
func ReadBaseDocument(r io.Reader) (*BaseDocument, error) {
	var doc BaseDocument
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("read base document: parse json: %w", err)
	}
	if err := doc.Validate(); err != nil {
		return nil, fmt.Errorf("read base document: %w", err)
	}
	return &doc, nil
}

func (d *BaseDocument) Validate() error {
	if d.RoutingSettings != nil {
		if err := d.RoutingSettings.Validate(); err != nil {
			return err
		}
	}
	if err := validate.Struct(d); err != nil {
		return err
	}

	for i, req := range d.BaseRequests {
		switch req.Type {
		case RequestStop:
			if req.Latitude == nil || req.Longitude == nil {
				return fmt.Errorf("base request %d: stop %q: latitude and longitude are required", i, req.Name)
			}
		case RequestBus:
			if len(req.Stops) == 0 {
				return fmt.Errorf("base request %d: bus %q: stops must be non-empty", i, req.Name)
			}
		}
	}

	// render_settings is passed through untouched but must be an object.
	if rs := bytes.TrimSpace(d.RenderSettings); len(rs) > 0 && !bytes.Equal(rs, []byte("null")) && rs[0] != '{' {
		return errors.New("render_settings must be an object")
	}

	return nil
}

// Network converts the base requests into definitions, keeping the document's
// stop order and bus order.
func (d *BaseDocument) Network() *domain.Network {
	n := &domain.Network{}
	for _, req := range d.BaseRequests {
		switch req.Type {
		case RequestStop:
			def := domain.StopDefinition{
				Name:          req.Name,
				Coordinates:   domain.Coordinates{Lat: *req.Latitude, Lng: *req.Longitude},
				RoadDistances: make(map[string]int, len(req.RoadDistances)),
			}
			for to, meters := range req.RoadDistances {
				def.RoadDistances[to] = meters
			}
			n.Stops = append(n.Stops, def)
		case RequestBus:
			n.Buses = append(n.Buses, domain.BusDefinition{
				Name:        req.Name,
				Stops:       append([]string(nil), req.Stops...),
				IsRoundtrip: req.IsRoundtrip,
			})
		}
	}
	return n
}

// LoadNetwork makes a BaseDocument usable as a ports.NetworkSource.
func (d *BaseDocument) LoadNetwork(ctx context.Context) (*domain.Network, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return d.Network(), nil
}

// RenderSettingsBytes returns the render settings verbatim, or nil when absent.
func (d *BaseDocument) RenderSettingsBytes() []byte {
	trimmed := bytes.TrimSpace(d.RenderSettings)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	return append([]byte(nil), trimmed...)
}

// Requests returns the stat requests as domain queries, in document order.
func (d *StatDocument) Requests() []domain.StatRequest {
	out := make([]domain.StatRequest, len(d.StatRequests))
	for i, r := range d.StatRequests {
		out[i] = domain.StatRequest{ID: r.ID, Type: r.Type, Name: r.Name, From: r.From, To: r.To}
	}
	return out
}

// ReadStatDocument decodes and validates a process_requests document.
func ReadStatDocument(r io.Reader) (*StatDocument, error) {
	var doc StatDocument
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("read stat document: parse json: %w", err)
	}
	if err := validate.Struct(&doc); err != nil {
		return nil, fmt.Errorf("read stat document: %w", err)
	}
	return &doc, nil
}

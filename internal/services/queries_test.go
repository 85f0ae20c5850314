package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"transit-route-service/internal/catalogue"
	"transit-route-service/internal/domain"
	"transit-route-service/internal/transit"
)

type staticSource struct {
	network *domain.Network
	err     error
}

func (s staticSource) LoadNetwork(ctx context.Context) (*domain.Network, error) {
	return s.network, s.err
}

// lineNetwork: A -600m- B -600m- C served by roundtrip bus "1", plus an
// isolated stop D and a single-stop bus "solo" at E.
func lineNetwork() *domain.Network {
	return &domain.Network{
		Stops: []domain.StopDefinition{
			{Name: "A", Coordinates: domain.Coordinates{Lat: 0, Lng: 0}, RoadDistances: map[string]int{"B": 600}},
			{Name: "B", Coordinates: domain.Coordinates{Lat: 0, Lng: 0.005}, RoadDistances: map[string]int{"C": 600}},
			{Name: "C", Coordinates: domain.Coordinates{Lat: 0, Lng: 0.01}},
			{Name: "D", Coordinates: domain.Coordinates{Lat: 1, Lng: 1}},
			{Name: "E", Coordinates: domain.Coordinates{Lat: 2, Lng: 2}},
		},
		Buses: []domain.BusDefinition{
			{Name: "1", Stops: []string{"A", "B", "C"}, IsRoundtrip: true},
			{Name: "solo", Stops: []string{"E"}, IsRoundtrip: true},
		},
	}
}

// 36 km/h is 10 m/s, so 600 m take exactly one minute.
var tenMetersPerSecond = transit.Settings{BusWaitTime: 1, BusVelocity: 36}

func TestBuildBase(t *testing.T) {
	snap, err := BuildBase(context.Background(), staticSource{network: lineNetwork()}, BuildBaseRequest{
		Settings:       tenMetersPerSecond,
		Workers:        2,
		RenderSettings: []byte(`{"width":10}`),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := snap.Catalogue.StopCount(); got != 5 {
		t.Fatalf("StopCount = %d, want 5", got)
	}
	if got := snap.Router.Graph().VertexCount(); got != 10 {
		t.Fatalf("VertexCount = %d, want 10", got)
	}
	if string(snap.RenderSettings) != `{"width":10}` {
		t.Fatalf("RenderSettings = %q", snap.RenderSettings)
	}
}

func TestBuildBaseFailsFast(t *testing.T) {
	tests := []struct {
		name    string
		src     staticSource
		wantErr error
	}{
		{"source error", staticSource{err: errors.New("boom")}, nil},
		{"unknown distance target", staticSource{network: &domain.Network{
			Stops: []domain.StopDefinition{{Name: "A", RoadDistances: map[string]int{"Z": 5}}},
		}}, catalogue.ErrStopNotFound},
		{"unknown bus stop", staticSource{network: &domain.Network{
			Stops: []domain.StopDefinition{{Name: "A"}},
			Buses: []domain.BusDefinition{{Name: "1", Stops: []string{"A", "Z"}}},
		}}, catalogue.ErrStopNotFound},
		{"duplicate stop", staticSource{network: &domain.Network{
			Stops: []domain.StopDefinition{{Name: "A"}, {Name: "A"}},
		}}, catalogue.ErrDuplicateStop},
		{"nil network", staticSource{}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildBase(context.Background(), tt.src, BuildBaseRequest{Settings: tenMetersPerSecond})
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}

	_, err := BuildBase(context.Background(), staticSource{network: lineNetwork()}, BuildBaseRequest{})
	if !errors.Is(err, transit.ErrInvalidSettings) {
		t.Fatalf("err = %v, want %v", err, transit.ErrInvalidSettings)
	}
}

func TestProcessStatRequests(t *testing.T) {
	snap, err := BuildBase(context.Background(), staticSource{network: lineNetwork()}, BuildBaseRequest{Settings: tenMetersPerSecond})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	reqs := []domain.StatRequest{
		{ID: 1, Type: domain.StatBus, Name: "1"},
		{ID: 2, Type: domain.StatBus, Name: "nope"},
		{ID: 3, Type: domain.StatStop, Name: "B"},
		{ID: 4, Type: domain.StatStop, Name: "D"},
		{ID: 5, Type: domain.StatStop, Name: "nope"},
		{ID: 6, Type: domain.StatRoute, From: "A", To: "C"},
		{ID: 7, Type: domain.StatRoute, From: "A", To: "D"},
		{ID: 8, Type: domain.StatRoute, From: "A", To: "nope"},
		{ID: 9, Type: domain.StatMap},
		{ID: 10, Type: domain.StatBus, Name: "solo"},
	}

	got, err := ProcessStatRequests(context.Background(), snap, reqs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != len(reqs) {
		t.Fatalf("got %d responses, want %d", len(got), len(reqs))
	}

	bus, ok := got[0].(BusResponse)
	if !ok {
		t.Fatalf("response 1 = %T, want BusResponse", got[0])
	}
	if bus.RequestID != 1 || bus.RouteLength != 1200 || bus.StopCount != 3 || bus.UniqueStopCount != 3 {
		t.Fatalf("bus response = %+v", bus)
	}
	if bus.Curvature < 1 {
		t.Fatalf("curvature = %v, want >= 1", bus.Curvature)
	}

	wantErrors := map[int]string{
		1: MessageNotFound,
		4: MessageNotFound,
		6: MessageNotFound,
		7: MessageNotFound,
		8: MessageMapUnavailable,
	}
	for i, msg := range wantErrors {
		e, ok := got[i].(ErrorResponse)
		if !ok {
			t.Fatalf("response %d = %T, want ErrorResponse", i+1, got[i])
		}
		if e.RequestID != reqs[i].ID || e.ErrorMessage != msg {
			t.Fatalf("response %d = %+v, want message %q", i+1, e, msg)
		}
	}

	stop := got[2].(StopResponse)
	if len(stop.Buses) != 1 || stop.Buses[0] != "1" {
		t.Fatalf("stop B buses = %v, want [1]", stop.Buses)
	}
	empty := got[3].(StopResponse)
	if empty.Buses == nil || len(empty.Buses) != 0 {
		t.Fatalf("stop D buses = %#v, want empty non-nil", empty.Buses)
	}

	solo := got[9].(BusResponse)
	if solo.StopCount != 1 || solo.RouteLength != 0 || solo.Curvature != 0 {
		t.Fatalf("solo bus = %+v", solo)
	}

	route := got[5].(RouteResponse)
	raw, err := json.Marshal(route)
	if err != nil {
		t.Fatalf("marshal route: %v", err)
	}
	const want = `{"request_id":6,"total_time":3,"items":[` +
		`{"type":"Wait","stop_name":"A","time":1},` +
		`{"type":"Bus","bus":"1","span_count":2,"time":2}]}`
	if string(raw) != want {
		t.Fatalf("route json =\n%s\nwant\n%s", raw, want)
	}
}

func TestProcessStatRequestsEmptyDocument(t *testing.T) {
	snap, err := BuildBase(context.Background(), staticSource{network: lineNetwork()}, BuildBaseRequest{Settings: tenMetersPerSecond})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := ProcessStatRequests(context.Background(), snap, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	raw, _ := json.Marshal(got)
	if string(raw) != "[]" {
		t.Fatalf("json = %s, want []", raw)
	}

	if _, err := ProcessStatRequests(context.Background(), nil, nil); err == nil {
		t.Fatal("expected error for nil snapshot")
	}
}

package services

import (
	"context"
	"errors"
	"fmt"
	"transit-route-service/internal/catalogue"
	"transit-route-service/internal/domain"
	"transit-route-service/internal/persistence"
	"transit-route-service/internal/platform/obs"
	"transit-route-service/internal/transit"
)

const (
	MessageNotFound       = "not found"
	MessageMapUnavailable = "map rendering is not available"
)

var ErrUnknownRequest = errors.New("unknown request type")

// DescribeBus answers a Bus query. A bus whose route has a single stop
// reports zero length and curvature.
func DescribeBus(cat *catalogue.Catalogue, name string) (BusInfo, error) {
	bus, ok := cat.FindBusRoute(name)
	if !ok {
		return BusInfo{}, fmt.Errorf("describe bus %q: %w", name, catalogue.ErrBusNotFound)
	}

	stats, err := cat.GetRouteStats(bus)
	if err != nil && !errors.Is(err, catalogue.ErrRouteTooShort) {
		return BusInfo{}, fmt.Errorf("describe bus %q: %w", name, err)
	}

	return BusInfo{
		Curvature:       stats.Curvature,
		RouteLength:     stats.RouteLength,
		StopCount:       len(bus.Route),
		UniqueStopCount: len(bus.UniqueStops),
	}, nil
}

// DescribeStop answers a Stop query with the sorted names of serving buses.
func DescribeStop(cat *catalogue.Catalogue, name string) (StopInfo, error) {
	stop, ok := cat.FindStop(name)
	if !ok {
		return StopInfo{}, fmt.Errorf("describe stop %q: %w", name, catalogue.ErrStopNotFound)
	}
	return StopInfo{Buses: cat.GetStopInfo(stop)}, nil
}

// FindRoute answers a Route query.
func FindRoute(router *transit.TransportRouter, from, to string) (RouteInfo, error) {
	it, err := router.BuildItinerary(from, to)
	if err != nil {
		return RouteInfo{}, fmt.Errorf("find route: %w", err)
	}
	return routeInfo(it), nil
}

func routeInfo(it domain.Itinerary) RouteInfo {
	info := RouteInfo{TotalTime: it.TotalTime, Items: make([]any, 0, len(it.Segments))}
	for _, seg := range it.Segments {
		switch seg.Kind {
		case domain.SegmentWait:
			info.Items = append(info.Items, WaitItem{
				Type:     seg.Kind.String(),
				StopName: seg.StopName,
				Time:     seg.Time,
			})
		case domain.SegmentRide:
			info.Items = append(info.Items, BusItem{
				Type:      seg.Kind.String(),
				Bus:       seg.BusName,
				SpanCount: seg.SpanCount,
				Time:      seg.Time,
			})
		}
	}
	return info
}

// ProcessStatRequests answers a batch of queries in order. Every request gets
// exactly one response; lookups that fail become error responses.
func ProcessStatRequests(ctx context.Context, snap *persistence.Snapshot, reqs []domain.StatRequest) (_ []any, err error) {
	defer obs.Time(ctx, "services.ProcessStatRequests")(&err)

	if snap == nil || snap.Catalogue == nil || snap.Router == nil {
		return nil, errors.New("process stat requests: snapshot is incomplete")
	}

	out := make([]any, 0, len(reqs))
	for _, req := range reqs {
		out = append(out, answer(snap, req))
	}
	return out, nil
}

func answer(snap *persistence.Snapshot, req domain.StatRequest) any {
	var (
		res any
		err error
	)

	switch req.Type {
	case domain.StatBus:
		var info BusInfo
		info, err = DescribeBus(snap.Catalogue, req.Name)
		res = BusResponse{RequestID: req.ID, BusInfo: info}
	case domain.StatStop:
		var info StopInfo
		info, err = DescribeStop(snap.Catalogue, req.Name)
		res = StopResponse{RequestID: req.ID, StopInfo: info}
	case domain.StatRoute:
		var info RouteInfo
		info, err = FindRoute(snap.Router, req.From, req.To)
		res = RouteResponse{RequestID: req.ID, RouteInfo: info}
	case domain.StatMap:
		return ErrorResponse{RequestID: req.ID, ErrorMessage: MessageMapUnavailable}
	default:
		return ErrorResponse{RequestID: req.ID, ErrorMessage: ErrUnknownRequest.Error()}
	}

	if err != nil {
		return ErrorResponse{RequestID: req.ID, ErrorMessage: MessageNotFound}
	}
	return res
}

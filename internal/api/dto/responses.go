package dto

import "transit-route-service/internal/services"

// Response bodies are the service answers unchanged.
type (
	BusInfo       = services.BusInfo
	StopInfo      = services.StopInfo
	RouteInfo     = services.RouteInfo
	WaitItem      = services.WaitItem
	BusItem       = services.BusItem
	BusResponse   = services.BusResponse
	StopResponse  = services.StopResponse
	RouteResponse = services.RouteResponse
	ErrorResponse = services.ErrorResponse
)

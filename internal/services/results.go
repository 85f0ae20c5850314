package services

// Answers produced by the query services. They are printed by the
// process_requests command and served over HTTP as they are.

type BusInfo struct {
	Curvature       float64 `json:"curvature"`
	RouteLength     int     `json:"route_length"`
	StopCount       int     `json:"stop_count"`
	UniqueStopCount int     `json:"unique_stop_count"`
}

type StopInfo struct {
	Buses []string `json:"buses"`
}

type WaitItem struct {
	Type     string  `json:"type"`
	StopName string  `json:"stop_name"`
	Time     float64 `json:"time"`
}

type BusItem struct {
	Type      string  `json:"type"`
	Bus       string  `json:"bus"`
	SpanCount int     `json:"span_count"`
	Time      float64 `json:"time"`
}

// RouteInfo items are WaitItem or BusItem values in travel order.
type RouteInfo struct {
	TotalTime float64 `json:"total_time"`
	Items     []any   `json:"items"`
}

// Batch responses carry the id of the request they answer.

type BusResponse struct {
	RequestID int `json:"request_id"`
	BusInfo
}

type StopResponse struct {
	RequestID int `json:"request_id"`
	StopInfo
}

type RouteResponse struct {
	RequestID int `json:"request_id"`
	RouteInfo
}

type ErrorResponse struct {
	RequestID    int    `json:"request_id"`
	ErrorMessage string `json:"error_message"`
}

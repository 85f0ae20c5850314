package dto

import "transit-route-service/internal/domain"

// StatRequest is one query of a batch: Bus and Stop use Name, Route uses
// From and To, Map takes no arguments.
type StatRequest struct {
	ID   int    `json:"id"`
	Type string `json:"type" validate:"required,oneof=Bus Stop Route Map"`
	Name string `json:"name,omitempty"`
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
}

// StatBatchRequest is the POST /stat body.
type StatBatchRequest struct {
	StatRequests []StatRequest `json:"stat_requests" validate:"dive"`
}

// Requests converts the body into domain queries, keeping their order.
func (b StatBatchRequest) Requests() []domain.StatRequest {
	out := make([]domain.StatRequest, len(b.StatRequests))
	for i, r := range b.StatRequests {
		out[i] = domain.StatRequest{ID: r.ID, Type: r.Type, Name: r.Name, From: r.From, To: r.To}
	}
	return out
}

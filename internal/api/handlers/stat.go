package handlers

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"transit-route-service/internal/api/dto"
	"transit-route-service/internal/services"

	"github.com/go-playground/validator/v10"
)

const maxStatBody = 1 << 20

var validate = validator.New()

// Stat answers a batch of Bus/Stop/Route/Map queries, in request order, with
// the same response objects the process_requests command prints.
func (h *NetworkHandler) Stat(w http.ResponseWriter, r *http.Request) {
	var req dto.StatBatchRequest

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxStatBody))
	defer r.Body.Close()
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid json body")
		return
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		writeError(w, r, http.StatusBadRequest, "body must contain only one JSON object")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	responses, err := services.ProcessStatRequests(r.Context(), h.Snapshot, req.Requests())
	if err != nil {
		log.Printf("stat failed: method=%s path=%s err=%v", r.Method, r.URL.Path, err)
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, r, http.StatusOK, responses)
}

package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"time"
	"transit-route-service/internal/api/dto"
	"transit-route-service/internal/catalogue"
	"transit-route-service/internal/persistence"
	"transit-route-service/internal/services"
	"transit-route-service/internal/transit"

	"github.com/go-chi/chi/v5"
	"github.com/patrickmn/go-cache"
)

// NetworkHandler serves read-only queries over a loaded snapshot.
type NetworkHandler struct {
	Snapshot *persistence.Snapshot
	// Routes memoizes answered route queries by (from, to).
	Routes *cache.Cache
}

func NewNetworkHandler(snap *persistence.Snapshot, routeTTL time.Duration) *NetworkHandler {
	h := &NetworkHandler{Snapshot: snap}
	if routeTTL > 0 {
		h.Routes = cache.New(routeTTL, 2*routeTTL)
	}
	return h
}

// Health reports liveness and the size of the loaded network.
func (h *NetworkHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]any{
		"status": "ok",
		"stops":  h.Snapshot.Catalogue.StopCount(),
		"buses":  h.Snapshot.Catalogue.BusCount(),
	})
}

func (h *NetworkHandler) Bus(w http.ResponseWriter, r *http.Request) {
	info, err := services.DescribeBus(h.Snapshot.Catalogue, pathParam(r, "name"))
	if err != nil {
		writeLookupError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, info)
}

func (h *NetworkHandler) Stop(w http.ResponseWriter, r *http.Request) {
	info, err := services.DescribeStop(h.Snapshot.Catalogue, pathParam(r, "name"))
	if err != nil {
		writeLookupError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, info)
}

// Route handles GET /route?from=&to=.
func (h *NetworkHandler) Route(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, to := q.Get("from"), q.Get("to")
	if from == "" || to == "" {
		writeError(w, r, http.StatusBadRequest, "from and to are required")
		return
	}

	key := from + "\x00" + to
	if h.Routes != nil {
		if v, ok := h.Routes.Get(key); ok {
			w.Header().Set("X-Cache", "hit")
			writeJSON(w, r, http.StatusOK, v.(dto.RouteInfo))
			return
		}
	}

	info, err := services.FindRoute(h.Snapshot.Router, from, to)
	if err != nil {
		writeLookupError(w, r, err)
		return
	}

	if h.Routes != nil {
		h.Routes.SetDefault(key, info)
		w.Header().Set("X-Cache", "miss")
	}
	writeJSON(w, r, http.StatusOK, info)
}

func writeLookupError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, catalogue.ErrStopNotFound), errors.Is(err, catalogue.ErrBusNotFound):
		writeError(w, r, http.StatusNotFound, services.MessageNotFound)
	case errors.Is(err, transit.ErrNoRoute):
		writeError(w, r, http.StatusUnprocessableEntity, "no route")
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}

// pathParam returns the decoded value of a chi URL parameter. chi matches on
// the raw path when one is present, leaving escapes such as %2F in place.
func pathParam(r *http.Request, key string) string {
	v := chi.URLParam(r, key)
	if r.URL.RawPath == "" {
		return v
	}
	if unescaped, err := url.PathUnescape(v); err == nil {
		return unescaped
	}
	return v
}

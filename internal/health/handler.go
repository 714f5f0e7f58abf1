package health

import (
	"context"
	"net/http"
	"time"

	httputil "kitchenrent/pkg/http"
	"kitchenrent/pkg/logger"

	"github.com/julienschmidt/httprouter"
)

const readyTimeout = 2 * time.Second

type HealthResponse struct {
	Status       string            `json:"status"`
	Dependencies map[string]string `json:"dependencies,omitempty"`
}

// Pinger is one dependency readiness check.
type Pinger func(ctx context.Context) error

type HealthHandler struct {
	checks map[string]Pinger
	// optional dependencies degrade the service without failing readiness
	optional map[string]bool
	log      *logger.Logger
}

func NewHealthHandler(log *logger.Logger) *HealthHandler {
	return &HealthHandler{
		checks:   make(map[string]Pinger),
		optional: make(map[string]bool),
		log:      log,
	}
}

// Require adds a dependency whose failure makes the service unready.
func (h *HealthHandler) Require(name string, ping Pinger) *HealthHandler {
	h.checks[name] = ping
	return h
}

// Observe adds a dependency that is reported but never fails readiness.
func (h *HealthHandler) Observe(name string, ping Pinger) *HealthHandler {
	h.checks[name] = ping
	h.optional[name] = true
	return h
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if err := httputil.WriteJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
	}); err != nil {
		h.log.Error("failed to write JSON response", "handler", "Health", "operation", "WriteJSON", "error", err)
	}
}

func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	status := http.StatusOK
	resp := HealthResponse{Status: "ready", Dependencies: make(map[string]string, len(h.checks))}

	for name, ping := range h.checks {
		if err := ping(ctx); err != nil {
			h.log.Error("Dependency health check failed",
				"dependency", name,
				"error", err,
				"path", r.URL.Path,
			)
			resp.Dependencies[name] = "error"
			if !h.optional[name] {
				status = http.StatusServiceUnavailable
				resp.Status = "unavailable"
			} else if resp.Status == "ready" {
				resp.Status = "degraded"
			}
			continue
		}
		resp.Dependencies[name] = "ok"
	}

	if err := httputil.WriteJSON(w, status, resp); err != nil {
		h.log.Error("failed to write JSON response", "handler", "Ready", "operation", "WriteJSON", "error", err)
	}
}

func (h *HealthHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/health", h.Health)
	router.GET("/ready", h.Ready)
}

package http

import (
	"net/http"
	"time"

	"github.com/go-chi/render"
)

// HealthHandler reports process health and build info.
type HealthHandler struct {
	version      string
	storeEnabled bool
	webhookSet   bool
	started      time.Time
}

// NewHealthHandler creates a health handler.
func NewHealthHandler(version string, storeEnabled, webhookSet bool) *HealthHandler {
	return &HealthHandler{
		version:      version,
		storeEnabled: storeEnabled,
		webhookSet:   webhookSet,
		started:      time.Now(),
	}
}

// HealthCheck handles GET /api/health.
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]interface{}{
		"status":          "healthy",
		"version":         h.version,
		"uptime_seconds":  int(time.Since(h.started).Seconds()),
		"sheets_enabled":  h.storeEnabled,
		"webhook_enabled": h.webhookSet,
	})
}

// LivenessCheck handles GET /api/health/live.
func (h *HealthHandler) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]interface{}{"status": "alive"})
}

// ReadinessCheck handles GET /api/health/ready. The service is ready once
// its spreadsheet store is reachable; without one configured it still
// serves uploads against an empty history, so readiness never blocks on it.
func (h *HealthHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]interface{}{
		"status":         "ready",
		"sheets_enabled": h.storeEnabled,
	})
}

// Version handles GET /api/version.
func (h *HealthHandler) Version(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]interface{}{"version": h.version})
}

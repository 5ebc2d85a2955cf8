package rest

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/frahmantamala/employee-portal/internal/transport"
)

type HealthStatus string

const (
	HealthHealthy   HealthStatus = "healthy"
	HealthUnhealthy HealthStatus = "unhealthy"
)

type HealthResponse struct {
	Status     HealthStatus          `json:"status"`
	CheckedAt  time.Time             `json:"checked_at"`
	Components map[string]CheckEntry `json:"components"`
}

type CheckEntry struct {
	Status     HealthStatus `json:"status"`
	Message    string       `json:"message,omitempty"`
	CheckedAt  time.Time    `json:"checked_at"`
	DurationMs int64        `json:"duration_ms"`
}

// Check probes one dependency. A nil error means healthy.
type Check func(ctx context.Context) error

type HealthHandler struct {
	*transport.BaseHandler
	checks  map[string]Check
	timeout time.Duration
}

// NewHealthHandler reports on the named checks, e.g. "portal_api" pinging
// the remote API and "storage" pinging the session database.
func NewHealthHandler(base *transport.BaseHandler, checks map[string]Check) *HealthHandler {
	return &HealthHandler{BaseHandler: base, checks: checks, timeout: 2 * time.Second}
}

// HandleLiveness → just says the process is up
func (h *HealthHandler) pingHandler(w http.ResponseWriter, r *http.Request) {
	h.WriteJSON(w, http.StatusOK, map[string]string{"status": "OK"})
}

// HandleReadiness → runs every check
func (h *HealthHandler) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	resp := HealthResponse{
		Status:     HealthHealthy,
		Components: make(map[string]CheckEntry, len(names)),
	}
	for _, name := range names {
		entry := h.run(r.Context(), h.checks[name])
		if entry.Status == HealthUnhealthy {
			resp.Status = HealthUnhealthy
			h.Logger.Warn("health check failed", "component", name, "error", entry.Message)
		}
		resp.Components[name] = entry
	}
	resp.CheckedAt = time.Now()

	statusCode := http.StatusOK
	if resp.Status == HealthUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}
	h.WriteJSON(w, statusCode, resp)
}

func (h *HealthHandler) run(ctx context.Context, check Check) CheckEntry {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	start := time.Now()
	err := check(ctx)

	entry := CheckEntry{
		Status:     HealthHealthy,
		CheckedAt:  time.Now(),
		DurationMs: time.Since(start).Milliseconds(),
	}
	if err != nil {
		entry.Status = HealthUnhealthy
		entry.Message = err.Error()
	}
	return entry
}

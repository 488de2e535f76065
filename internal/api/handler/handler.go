// Package handler provides HTTP handlers for the alert service endpoints.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/albapepper/scoracle-alerts/internal/alerts"
	"github.com/albapepper/scoracle-alerts/internal/api/respond"
)

// Cycler runs and reports alert cycles. *alerts.Orchestrator implements it.
type Cycler interface {
	RunCycle(ctx context.Context) alerts.CycleResult
	Running() bool
	Status() map[string]interface{}
}

// HealthChecker is an optional backend probe. *db.Pool implements it.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Handler holds shared dependencies for all endpoint handlers.
type Handler struct {
	cycles Cycler
	policy alerts.PollPolicy
	db     HealthChecker
	now    func() time.Time
}

// New creates a Handler. db may be nil when no database is configured.
func New(cycles Cycler, policy alerts.PollPolicy, db HealthChecker) *Handler {
	return &Handler{cycles: cycles, policy: policy, db: db, now: time.Now}
}

// HealthCheck returns basic health status, including the database when one
// is configured.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	body := map[string]interface{}{
		"status":    "healthy",
		"timestamp": h.now().UTC().Format(time.RFC3339),
	}
	if h.db == nil {
		respond.WriteJSONObject(w, http.StatusOK, body)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()
	if err := h.db.HealthCheck(ctx); err != nil {
		body["status"] = "unhealthy"
		body["database"] = "disconnected"
		respond.WriteJSONObject(w, http.StatusServiceUnavailable, body)
		return
	}
	body["database"] = "connected"
	respond.WriteJSONObject(w, http.StatusOK, body)
}

// RunCycle triggers one cycle and returns its counts. A call that overlaps a
// running cycle gets all-zero counts with skipped set.
// @Summary Run one alert cycle
// @Description Runs discovery, spam filtering and dispatch once. A call that overlaps a running cycle returns zero counts with skipped set.
// @Tags cycle
// @Produce json
// @Success 200 {object} alerts.CycleResult
// @Failure 429 {object} respond.ErrorResponse
// @Router /cycle [post]
func (h *Handler) RunCycle(w http.ResponseWriter, r *http.Request) {
	if h.cycles.Running() {
		respond.WriteJSONObject(w, http.StatusOK, cycleResponse{Skipped: true})
		return
	}
	// The cycle continues if the caller disconnects.
	res := h.cycles.RunCycle(context.WithoutCancel(r.Context()))
	respond.WriteJSONObject(w, http.StatusOK, cycleResponse{CycleResult: res})
}

type cycleResponse struct {
	alerts.CycleResult
	Skipped bool `json:"skipped,omitempty"`
}

// GetInterval returns the advisory delay before the next cycle.
// @Summary Recommended polling interval
// @Tags cycle
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /interval [get]
func (h *Handler) GetInterval(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	d := h.policy.RecommendedInterval(now)
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"interval_seconds": int(d.Seconds()),
		"in_game_window":   h.policy.InGameWindow(now),
	})
}

// GetStatus returns the last cycle snapshot.
// @Summary Orchestrator status
// @Tags cycle
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /status [get]
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, h.cycles.Status())
}

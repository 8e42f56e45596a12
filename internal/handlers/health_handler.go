package handlers

import (
	"database/sql"
	"net/http"

	"go.uber.org/zap"
)

// HealthHandler reports service liveness and store reachability
type HealthHandler struct {
	BaseHandler
	db *sql.DB
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db *sql.DB, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		BaseHandler: BaseHandler{Logger: logger},
		db:          db,
	}
}

// Healthz handles GET /healthz
// @Summary Health check
// @Description Reports whether the service and its database are reachable.
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string "Service healthy"
// @Failure 503 {object} map[string]string "Database unreachable"
// @Router /healthz [get]
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	if err := h.db.PingContext(r.Context()); err != nil {
		h.Logger.Error("health check failed", zap.Error(err))
		h.RespondError(w, http.StatusServiceUnavailable, "database unreachable")
		return
	}

	h.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

package http

import (
	"context"
	"net/http"
	"time"

	"shortlink-backend/internal/analytics"

	"go.uber.org/zap"
)

// Pinger проверка доступности хранилища
type Pinger interface {
	Ping(ctx context.Context) error
}

// ProcessorStats источник состояния конвейера аналитики
type ProcessorStats interface {
	Stats() analytics.Stats
}

// HealthHandler обработчик health checks
type HealthHandler struct {
	storage   Pinger
	processor ProcessorStats
	version   string
	startTime time.Time
	log       *zap.Logger
}

// NewHealthHandler создает новый health handler
func NewHealthHandler(storage Pinger, processor ProcessorStats, version string, log *zap.Logger) *HealthHandler {
	return &HealthHandler{
		storage:   storage,
		processor: processor,
		version:   version,
		startTime: time.Now(),
		log:       log.With(zap.String("component", "health")),
	}
}

// HealthResponse структура ответа health check
type HealthResponse struct {
	Status         string           `json:"status"`
	Timestamp      time.Time        `json:"timestamp"`
	Version        string           `json:"version"`
	DatabaseStatus string           `json:"database_status"`
	Uptime         string           `json:"uptime"`
	Analytics      *analytics.Stats `json:"analytics,omitempty"`
}

// Health основной health check endpoint
//
//	@Summary	Service health
//	@Tags		Health
//	@Produce	json
//	@Success	200	{object}	HealthResponse
//	@Failure	503	{object}	HealthResponse
//	@Router		/health [get]
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	dbStatus := h.databaseStatus(r.Context())

	response := HealthResponse{
		Status:         "healthy",
		Timestamp:      time.Now(),
		Version:        h.version,
		DatabaseStatus: dbStatus,
		Uptime:         time.Since(h.startTime).Round(time.Second).String(),
	}
	if h.processor != nil {
		stats := h.processor.Stats()
		response.Analytics = &stats
	}

	statusCode := http.StatusOK
	if dbStatus != "healthy" {
		response.Status = "unhealthy"
		statusCode = http.StatusServiceUnavailable
		h.log.Warn("health check failed", zap.String("database_status", dbStatus))
	}

	writeJSON(w, response, statusCode)
}

// Ready readiness probe: хранилище отвечает и конвейер аналитики запущен
//
//	@Summary	Readiness probe
//	@Tags		Health
//	@Produce	json
//	@Success	200	{object}	map[string]string
//	@Failure	503	{object}	map[string]string
//	@Router		/ready [get]
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.databaseStatus(r.Context()) != "healthy" {
		writeJSON(w, map[string]string{"status": "not ready", "reason": "database unavailable"}, http.StatusServiceUnavailable)
		return
	}
	if h.processor != nil && !h.processor.Stats().Started {
		writeJSON(w, map[string]string{"status": "not ready", "reason": "analytics processor stopped"}, http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, map[string]string{"status": "ready"}, http.StatusOK)
}

func (h *HealthHandler) databaseStatus(ctx context.Context) string {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := h.storage.Ping(ctx); err != nil {
		h.log.Error("database health check failed", zap.Error(err))
		return "unhealthy"
	}
	return "healthy"
}

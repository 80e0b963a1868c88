package rest

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"time"
)

type HealthStatus string

const (
	HealthHealthy   HealthStatus = "healthy"
	HealthUnhealthy HealthStatus = "unhealthy"
)

type ReadinessResponse struct {
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

type HealthResponse struct {
	Status            HealthStatus `json:"status"`
	SubscriptionPrice float64      `json:"subscription_price"`
}

type RootResponse struct {
	Message string `json:"message"`
	Version string `json:"version"`
	Docs    string `json:"docs"`
}

type CORSInfoResponse struct {
	CORSOrigins      []string `json:"cors_origins"`
	Raw              string   `json:"raw"`
	AllowCredentials bool     `json:"allow_credentials"`
}

// HealthInfo is the static data served by the diagnostic endpoints.
type HealthInfo struct {
	AppName           string
	Version           string
	SubscriptionPrice float64
	CORSOrigins       []string
	RawCORSOrigins    string
}

type HealthHandler struct {
	db   *sql.DB
	info HealthInfo
}

func NewHealthHandler(db *sql.DB, info HealthInfo) *HealthHandler {
	return &HealthHandler{db: db, info: info}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (h *HealthHandler) root(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, RootResponse{
		Message: h.info.AppName + " API",
		Version: h.info.Version,
		Docs:    "/swagger/index.html",
	})
}

// health is static: it does not touch the database.
func (h *HealthHandler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:            HealthHealthy,
		SubscriptionPrice: h.info.SubscriptionPrice,
	})
}

func (h *HealthHandler) corsInfo(w http.ResponseWriter, _ *http.Request) {
	origins := h.info.CORSOrigins
	if origins == nil {
		origins = []string{}
	}
	writeJSON(w, http.StatusOK, CORSInfoResponse{
		CORSOrigins:      origins,
		Raw:              h.info.RawCORSOrigins,
		AllowCredentials: true,
	})
}

// ready pings the database.
func (h *HealthHandler) ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	start := time.Now()
	entry := CheckEntry{Status: HealthHealthy}
	if h.db == nil {
		entry.Status = HealthUnhealthy
		entry.Message = "database not configured"
	} else if err := h.db.PingContext(ctx); err != nil {
		entry.Status = HealthUnhealthy
		entry.Message = err.Error()
	}
	entry.CheckedAt = time.Now().UTC()
	entry.DurationMs = time.Since(start).Milliseconds()

	statusCode := http.StatusOK
	if entry.Status == HealthUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}

	writeJSON(w, statusCode, ReadinessResponse{
		Status:     entry.Status,
		CheckedAt:  entry.CheckedAt,
		Components: map[string]CheckEntry{"postgres": entry},
	})
}

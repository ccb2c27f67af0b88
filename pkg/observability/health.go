package observability

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/derekgallardo01/converge-gateway/internal/adapters/ports"
)

// HealthStatus represents the health status of the service
type HealthStatus struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
}

// HealthChecker manages health checks for the service
type HealthChecker struct {
	dbPool  *pgxpool.Pool
	secrets ports.SecretManager
}

// NewHealthChecker creates a new HealthChecker. Either dependency may be nil
// when that backend is not configured.
func NewHealthChecker(dbPool *pgxpool.Pool, secrets ports.SecretManager) *HealthChecker {
	return &HealthChecker{
		dbPool:  dbPool,
		secrets: secrets,
	}
}

// Check performs health checks and returns the status
func (h *HealthChecker) Check(ctx context.Context) HealthStatus {
	checks := make(map[string]string)
	overallStatus := "healthy"

	if h.dbPool != nil {
		dbCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()

		if err := h.dbPool.Ping(dbCtx); err != nil {
			checks["database"] = "unhealthy: " + err.Error()
			overallStatus = "unhealthy"
		} else {
			checks["database"] = "healthy"
		}
	} else {
		checks["database"] = "not configured"
	}

	if h.secrets != nil {
		smCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()

		if err := h.secrets.HealthCheck(smCtx); err != nil {
			checks["secrets"] = "unhealthy: " + err.Error()
			overallStatus = "unhealthy"
		} else {
			checks["secrets"] = "healthy"
		}
	} else {
		checks["secrets"] = "not configured"
	}

	return HealthStatus{
		Status:    overallStatus,
		Timestamp: time.Now(),
		Checks:    checks,
	}
}

// HealthHandler returns an HTTP handler for health checks
func (h *HealthChecker) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := h.Check(r.Context())

		w.Header().Set("Content-Type", "application/json")
		if status.Status != "healthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}

		json.NewEncoder(w).Encode(status)
	}
}

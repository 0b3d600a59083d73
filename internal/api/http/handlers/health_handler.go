package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/meditrack/staffcore/internal/observability"
	"github.com/meditrack/staffcore/internal/persistence"
)

// Pinger checks a dependency.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler responds to liveness and readiness checks.
type HealthHandler struct {
	serviceName string
	version     string
	postgres    Pinger
	redis       *persistence.Redis
	pool        func() persistence.PoolStats
	metrics     *observability.Metrics
	logger      *zap.Logger
}

// HealthDependencies groups what the readiness check inspects.
type HealthDependencies struct {
	Postgres  Pinger
	Redis     *persistence.Redis
	PoolStats func() persistence.PoolStats
	Metrics   *observability.Metrics
	Logger    *zap.Logger
}

const dependencyUnavailable = "unavailable"

// NewHealthHandler returns a new handler instance.
func NewHealthHandler(serviceName, version string, deps HealthDependencies) *HealthHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HealthHandler{
		serviceName: serviceName,
		version:     version,
		postgres:    deps.Postgres,
		redis:       deps.Redis,
		pool:        deps.PoolStats,
		metrics:     deps.Metrics,
		logger:      logger.Named("health"),
	}
}

// Live reports service liveness.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success":   true,
		"message":   "Server is running",
		"status":    "alive",
		"service":   h.serviceName,
		"version":   h.version,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// Ready reports service readiness by checking dependencies. Redis is only
// checked when configured.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	depStatus := fiber.Map{}
	ready := true

	if err := h.postgres.Ping(ctx); err != nil {
		h.logger.Warn("postgres readiness check failed", zap.Error(err))
		depStatus["postgres"] = dependencyUnavailable
		ready = false
	} else {
		depStatus["postgres"] = "ok"
	}

	if h.redis.Enabled() {
		if err := h.redis.Ping(ctx); err != nil {
			h.logger.Warn("redis readiness check failed", zap.Error(err))
			depStatus["redis"] = dependencyUnavailable
			ready = false
		} else {
			depStatus["redis"] = "ok"
		}
	}

	body := fiber.Map{"dependencies": depStatus}
	if h.pool != nil {
		body["pool"] = h.pool()
	}
	if h.metrics != nil {
		body["requests"] = h.metrics.Snapshot()
	}

	if ready {
		body["success"] = true
		body["status"] = "ready"
		return c.JSON(body)
	}

	body["success"] = false
	body["code"] = "DEPENDENCY_UNAVAILABLE"
	body["message"] = "one or more dependencies unavailable"
	return c.Status(fiber.StatusServiceUnavailable).JSON(body)
}

package health

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"fixwala-backend/internal/cache"
	"fixwala-backend/internal/monitoring"
)

const (
	statusHealthy   = "healthy"
	statusUnhealthy = "unhealthy"
	statusDisabled  = "disabled"
)

type HealthChecker struct {
	store     monitoring.Pinger
	redis     *redis.Client
	driver    string
	startedAt time.Time
}

type HealthStatus struct {
	Status   string          `json:"status"`
	Database ComponentHealth `json:"database"`
	Redis    ComponentHealth `json:"redis"`
}

type ComponentHealth struct {
	Status       string `json:"status"`
	Driver       string `json:"driver,omitempty"`
	ResponseTime int64  `json:"response_time_ms"`
}

type DetailedStatus struct {
	HealthStatus
	System monitoring.SystemStats `json:"system"`
	Alerts []monitoring.Alert     `json:"alerts"`
}

// NewHealthChecker builds a checker over the invoice store. redisClient may
// be nil when rate limiting runs in process.
func NewHealthChecker(store monitoring.Pinger, driver string, redisClient *redis.Client) *HealthChecker {
	return &HealthChecker{
		store:     store,
		redis:     redisClient,
		driver:    driver,
		startedAt: time.Now(),
	}
}

// CheckBasic reports unhealthy when the store is down. Redis only degrades
// rate limiting, so it does not affect the overall status.
func (h *HealthChecker) CheckBasic(ctx context.Context) HealthStatus {
	dbHealth := h.checkDatabase(ctx)

	status := statusHealthy
	if dbHealth.Status != statusHealthy {
		status = statusUnhealthy
	}

	return HealthStatus{
		Status:   status,
		Database: dbHealth,
		Redis:    h.checkRedis(ctx),
	}
}

func (h *HealthChecker) CheckDetailed(ctx context.Context, watchdog *monitoring.Watchdog) DetailedStatus {
	detailed := DetailedStatus{
		HealthStatus: h.CheckBasic(ctx),
		System:       monitoring.CollectSystemStats(ctx, h.startedAt),
		Alerts:       []monitoring.Alert{},
	}
	if watchdog != nil {
		detailed.Alerts = watchdog.Alerts()
	}
	return detailed
}

func (h *HealthChecker) checkDatabase(ctx context.Context) ComponentHealth {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	start := time.Now()
	err := h.store.Ping(ctx)
	responseTime := time.Since(start).Milliseconds()

	if err != nil {
		return ComponentHealth{
			Status:       statusUnhealthy,
			Driver:       h.driver,
			ResponseTime: responseTime,
		}
	}

	return ComponentHealth{
		Status:       statusHealthy,
		Driver:       h.driver,
		ResponseTime: responseTime,
	}
}

func (h *HealthChecker) checkRedis(ctx context.Context) ComponentHealth {
	if h.redis == nil {
		return ComponentHealth{Status: statusDisabled}
	}

	start := time.Now()
	ok := cache.IsHealthy(ctx, h.redis)
	responseTime := time.Since(start).Milliseconds()
	if !ok {
		return ComponentHealth{Status: statusUnhealthy, ResponseTime: responseTime}
	}
	return ComponentHealth{Status: statusHealthy, ResponseTime: responseTime}
}

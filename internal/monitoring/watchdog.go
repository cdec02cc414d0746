package monitoring

import (
	"context"
	"fmt"
	"sync"
	"time"

	"fixwala-backend/internal/logger"
	"fixwala-backend/internal/metrics"
)

const maxAlerts = 50

// Pinger is anything whose reachability can be probed
type Pinger interface {
	Ping(ctx context.Context) error
}

type Alert struct {
	Severity  string    `json:"severity"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Watchdog pings the invoice store on an interval, exports the result as
// metrics and keeps the most recent alerts.
type Watchdog struct {
	store            Pinger
	interval         time.Duration
	latencyThreshold time.Duration

	mu     sync.RWMutex
	alerts []Alert
}

func NewWatchdog(store Pinger, interval, latencyThreshold time.Duration) *Watchdog {
	return &Watchdog{
		store:            store,
		interval:         interval,
		latencyThreshold: latencyThreshold,
	}
}

// Run checks until ctx is cancelled
func (w *Watchdog) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Check(ctx)
		}
	}
}

// Check performs one probe
func (w *Watchdog) Check(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	start := time.Now()
	err := w.store.Ping(ctx)
	elapsed := time.Since(start)

	metrics.StorePingSeconds.Set(elapsed.Seconds())
	if err != nil {
		metrics.StoreUp.Set(0)
		w.raise("critical", "store_down", fmt.Sprintf("Invoice store is unreachable: %v", err))
		return
	}
	metrics.StoreUp.Set(1)

	if elapsed > w.latencyThreshold {
		w.raise("warning", "high_latency", fmt.Sprintf("Invoice store response time: %dms", elapsed.Milliseconds()))
	}
}

func (w *Watchdog) raise(severity, alertType, message string) {
	alert := Alert{
		Severity:  severity,
		Type:      alertType,
		Message:   message,
		Timestamp: time.Now().UTC(),
	}

	log := logger.WithComponent("watchdog")
	if severity == "critical" {
		log.Error().Str("type", alertType).Msg(message)
	} else {
		log.Warn().Str("type", alertType).Msg(message)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.alerts = append(w.alerts, alert)
	if len(w.alerts) > maxAlerts {
		w.alerts = w.alerts[len(w.alerts)-maxAlerts:]
	}
}

// Alerts returns the retained alerts, oldest first
func (w *Watchdog) Alerts() []Alert {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]Alert, len(w.alerts))
	copy(out, w.alerts)
	return out
}

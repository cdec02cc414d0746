package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"fixwala-backend/internal/monitoring"
)

type fakeStore struct{ err error }

func (f fakeStore) Ping(context.Context) error { return f.err }

func TestCheckBasic(t *testing.T) {
	checker := NewHealthChecker(fakeStore{}, "memory", nil)
	status := checker.CheckBasic(context.Background())

	assert.Equal(t, "healthy", status.Status)
	assert.Equal(t, "healthy", status.Database.Status)
	assert.Equal(t, "memory", status.Database.Driver)
	assert.Equal(t, "disabled", status.Redis.Status)
}

func TestCheckBasicStoreDown(t *testing.T) {
	checker := NewHealthChecker(fakeStore{err: errors.New("refused")}, "postgres", nil)
	status := checker.CheckBasic(context.Background())

	assert.Equal(t, "unhealthy", status.Status)
	assert.Equal(t, "unhealthy", status.Database.Status)
}

func TestCheckDetailedIncludesAlerts(t *testing.T) {
	store := fakeStore{err: errors.New("refused")}
	watchdog := monitoring.NewWatchdog(store, time.Minute, time.Second)
	watchdog.Check(context.Background())

	checker := NewHealthChecker(store, "mongo", nil)
	detailed := checker.CheckDetailed(context.Background(), watchdog)

	assert.Equal(t, "unhealthy", detailed.Status)
	assert.Len(t, detailed.Alerts, 1)
	assert.Positive(t, detailed.System.Goroutines)

	detailed = checker.CheckDetailed(context.Background(), nil)
	assert.NotNil(t, detailed.Alerts)
	assert.Empty(t, detailed.Alerts)
}

package maintenance

import (
	"context"
	"testing"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"habitat-backend/config"
	"habitat-backend/internal/catalog"
	"habitat-backend/internal/engine"
	"habitat-backend/internal/habitat"
	"habitat-backend/internal/model"
	"habitat-backend/internal/notification"
	"habitat-backend/internal/registry"
	"habitat-backend/internal/store"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&model.HabitatRecord{}, &model.PushSubscription{}))
	return store.NewGormStore(db)
}

func newTestManager(t *testing.T, st store.Store, now *time.Time) *habitat.Manager {
	t.Helper()
	cat := catalog.NewWithSeed(1)
	eng := engine.New(engine.Config{
		HungerThreshold: 12 * time.Hour,
		FeedExtension:   6 * time.Hour,
		EventRetention:  72 * time.Hour,
	}, cat)
	reg, err := registry.FromConfig(config.Default().Zones)
	require.NoError(t, err)

	m := habitat.NewManager(eng, cat, reg, st)
	m.SetNowFunc(func() time.Time { return *now })
	return m
}

func TestRunOnce_DispatchesHungerNotifications(t *testing.T) {
	st := newTestStore(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m := newTestManager(t, st, &now)
	ctx := context.Background()

	require.NoError(t, m.Initialize(ctx, "guild-1"))
	stats, err := m.Statistics(ctx, "guild-1")
	require.NoError(t, err)
	total := stats.TotalEntities

	// Pool sized to hold every job so RunOnce never blocks on dispatch.
	pool := notification.NewWorkerPool(total+1, st, &webpush.Options{})
	svc := NewService(config.Default(), m, pool)

	now = now.Add(13 * time.Hour)
	svc.RunOnce(ctx)

	var messages []string
	for len(pool.Jobs()) > 0 {
		job := <-pool.Jobs()
		assert.Equal(t, "guild-1", job.TenantID)
		messages = append(messages, job.Message)
	}
	assert.Len(t, messages, total)
	assert.Contains(t, messages[0], "hungry")

	// Same hunger episode on the next pass: no duplicates.
	svc.RunOnce(ctx)
	assert.Empty(t, pool.Jobs())
}

func TestRunOnce_DispatchesDepartureNotifications(t *testing.T) {
	st := newTestStore(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m := newTestManager(t, st, &now)
	ctx := context.Background()

	require.NoError(t, m.Initialize(ctx, "guild-1"))
	stats, err := m.Statistics(ctx, "guild-1")
	require.NoError(t, err)
	total := stats.TotalEntities

	// Far past every departure; the same pass also detects the fresh
	// replacements are not hungry, so only departures are reported.
	pool := notification.NewWorkerPool(2*total+1, st, &webpush.Options{})
	svc := NewService(config.Default(), m, pool)

	now = now.Add(100 * time.Hour)
	svc.RunOnce(ctx)

	departures := 0
	for len(pool.Jobs()) > 0 {
		job := <-pool.Jobs()
		assert.Contains(t, job.Message, "left")
		departures++
	}
	assert.Equal(t, total, departures)
}

func TestRunOnce_NilPoolStillMaintains(t *testing.T) {
	st := newTestStore(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m := newTestManager(t, st, &now)
	ctx := context.Background()

	require.NoError(t, m.Initialize(ctx, "guild-1"))
	svc := NewService(config.Default(), m, nil)

	now = now.Add(100 * time.Hour)
	svc.RunOnce(ctx) // must not panic without a worker pool

	state, err := m.GetState(ctx, "guild-1")
	require.NoError(t, err)
	for _, zone := range state.Zones {
		assert.Len(t, zone.Occupants, zone.Capacity)
	}
}

func TestRun_RespectsDisabledFlag(t *testing.T) {
	cfg := config.Default()
	cfg.Maintenance.Enabled = false
	svc := NewService(cfg, nil, nil)

	done := make(chan struct{})
	go func() {
		svc.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run should return immediately when maintenance is disabled")
	}
}

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"habitat-backend/internal/engine"
	"habitat-backend/internal/model"
)

// newTestDB opens an isolated in-memory SQLite database. Limiting the pool
// to one connection keeps every query on the same :memory: instance.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&model.HabitatRecord{}, &model.PushSubscription{}))
	return db
}

func sampleState() *engine.HabitatState {
	arrival := time.Date(2026, 3, 1, 8, 30, 0, 123456789, time.UTC)
	fed := time.Date(2026, 3, 1, 20, 30, 0, 987654321, time.UTC)
	return &engine.HabitatState{
		Zones: []*engine.Zone{
			{
				Name:     "forest",
				Capacity: 5,
				Habitat:  "forest",
				Occupants: []*engine.Entity{
					{
						ID:             "abc123def456",
						Species:        "owl",
						Zone:           "forest",
						ArrivalTime:    arrival,
						BaseStay:       36 * time.Hour,
						StayExtension:  9 * time.Hour,
						LastFedAt:      fed,
						FeedCount:      3,
						HungerNotified: true,
						Activity:       "dozing in a hollow",
					},
				},
			},
			{Name: "waterside", Capacity: 5, Habitat: "waterside", Occupants: []*engine.Entity{}},
		},
		Events: []engine.Event{
			{Time: arrival, Kind: engine.EventAdmitted, Entity: "abc123def456", Species: "owl", Zone: "forest", Message: "an owl settled into the forest"},
		},
		LastUpdate: fed,
	}
}

func TestSaveLoadState_RoundTripIsExact(t *testing.T) {
	s := NewGormStore(newTestDB(t))
	ctx := context.Background()
	original := sampleState()

	require.NoError(t, s.SaveState(ctx, "tenant-a", original))

	loaded, err := s.LoadState(ctx, "tenant-a")
	require.NoError(t, err)

	// Field-for-field, nanosecond timestamps included. A lossy encoding here
	// would silently shift hunger and departure computations.
	assert.Equal(t, original, loaded)
}

func TestSaveState_OverwritesPreviousRecord(t *testing.T) {
	s := NewGormStore(newTestDB(t))
	ctx := context.Background()

	first := sampleState()
	require.NoError(t, s.SaveState(ctx, "tenant-a", first))

	second := sampleState()
	second.Zones[0].Occupants[0].FeedCount = 7
	require.NoError(t, s.SaveState(ctx, "tenant-a", second))

	loaded, err := s.LoadState(ctx, "tenant-a")
	require.NoError(t, err)
	assert.Equal(t, 7, loaded.Zones[0].Occupants[0].FeedCount)
}

func TestLoadState_UnknownTenant(t *testing.T) {
	s := NewGormStore(newTestDB(t))

	_, err := s.LoadState(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrTenantNotFound)
}

func TestLoadState_CorruptRecord(t *testing.T) {
	db := newTestDB(t)
	s := NewGormStore(db)

	require.NoError(t, db.Create(&model.HabitatRecord{
		TenantID:  "tenant-a",
		State:     []byte("{not json"),
		UpdatedAt: time.Now().UTC(),
	}).Error)

	_, err := s.LoadState(context.Background(), "tenant-a")
	assert.ErrorIs(t, err, ErrCorruptRecord)
}

func TestTenantIDs(t *testing.T) {
	s := NewGormStore(newTestDB(t))
	ctx := context.Background()

	ids, err := s.TenantIDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)

	require.NoError(t, s.SaveState(ctx, "tenant-a", sampleState()))
	require.NoError(t, s.SaveState(ctx, "tenant-b", sampleState()))

	ids, err = s.TenantIDs(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"tenant-a", "tenant-b"}, ids)
}

func TestSubscriptions_CRUD(t *testing.T) {
	s := NewGormStore(newTestDB(t))
	ctx := context.Background()

	sub := model.PushSubscription{
		Endpoint: "https://example.com/push/1",
		TenantID: "tenant-a",
		P256DH:   "key",
		Auth:     "auth",
	}
	require.NoError(t, s.UpsertSubscription(ctx, sub))

	// Upsert may retarget an endpoint to another tenant.
	sub.TenantID = "tenant-b"
	require.NoError(t, s.UpsertSubscription(ctx, sub))

	got, err := s.GetSubscription(ctx, sub.Endpoint)
	require.NoError(t, err)
	assert.Equal(t, "tenant-b", got.TenantID)

	subs, err := s.SubscriptionsForTenant(ctx, "tenant-b")
	require.NoError(t, err)
	require.Len(t, subs, 1)

	subs, err = s.SubscriptionsForTenant(ctx, "tenant-a")
	require.NoError(t, err)
	assert.Empty(t, subs)

	require.NoError(t, s.DeleteSubscription(ctx, sub.Endpoint))
	_, err = s.GetSubscription(ctx, sub.Endpoint)
	assert.Error(t, err)
}

// Package habitat owns the per-tenant habitat states: lazy initialization,
// in-memory caching, per-tenant locking and explicit persistence. All
// simulation logic lives in the engine package; this package decides when
// state is loaded, mutated and saved.
package habitat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"habitat-backend/internal/catalog"
	"habitat-backend/internal/engine"
	"habitat-backend/internal/registry"
	"habitat-backend/internal/store"
)

// PersistenceError wraps a storage failure. The in-memory state is always
// left valid when one of these is returned; callers may retry later.
type PersistenceError struct {
	Op       string
	TenantID string
	Err      error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s for tenant %s: %v", e.Op, e.TenantID, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Stats is the aggregate view exposed to reporting callers.
type Stats struct {
	TotalEntities  int            `json:"total_entities"`
	HungryEntities int            `json:"hungry_entities"`
	RecentEvents   []engine.Event `json:"recent_events"`
}

// MaintenanceReport lists what a maintenance pass changed, for notification
// purposes.
type MaintenanceReport struct {
	Departed []engine.Entity
	Hungry   []engine.Entity
	Admitted int
}

// recentEventCount bounds how many log entries Statistics returns.
const recentEventCount = 10

// Manager maps tenant ids to habitat states. Each tenant has its own lock,
// so unrelated tenants never block each other; saves happen inside the
// tenant's critical section, which guarantees at most one in-flight save
// per tenant.
type Manager struct {
	eng   *engine.Engine
	cat   *catalog.Catalog
	reg   *registry.Registry
	store store.Store

	mu      sync.Mutex
	tenants map[string]*tenant

	nowFn func() time.Time
}

type tenant struct {
	mu    sync.Mutex
	state *engine.HabitatState
}

// NewManager creates a manager over the given engine, catalog, zone schema
// and persistence store.
func NewManager(eng *engine.Engine, cat *catalog.Catalog, reg *registry.Registry, st store.Store) *Manager {
	return &Manager{
		eng:     eng,
		cat:     cat,
		reg:     reg,
		store:   st,
		tenants: make(map[string]*tenant),
		nowFn:   func() time.Time { return time.Now().UTC() },
	}
}

// SetNowFunc overrides the clock, for tests.
func (m *Manager) SetNowFunc(fn func() time.Time) {
	m.nowFn = fn
}

func (m *Manager) entry(tenantID string) *tenant {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tenants[tenantID]
	if !ok {
		t = &tenant{}
		m.tenants[tenantID] = t
	}
	return t
}

// ensureState loads or creates the tenant's state. Must be called with the
// tenant lock held. Returns true when a fresh default state was created.
func (m *Manager) ensureState(ctx context.Context, t *tenant, tenantID string) (bool, error) {
	if t.state != nil {
		return false, nil
	}

	st, err := m.store.LoadState(ctx, tenantID)
	switch {
	case err == nil:
		t.state = st
		return false, nil
	case errors.Is(err, store.ErrTenantNotFound):
		// First access for this tenant.
	case errors.Is(err, store.ErrCorruptRecord):
		// One corrupt record degrades to re-initializing this tenant only.
		log.Printf("corrupt habitat record for tenant %s, re-initializing: %v", tenantID, err)
	default:
		return false, &PersistenceError{Op: "load", TenantID: tenantID, Err: err}
	}

	now := m.nowFn()
	fresh := m.eng.NewState(m.reg.Zones(), now)
	m.eng.Repopulate(fresh, now)
	t.state = fresh
	return true, nil
}

// Initialize makes sure the tenant has a habitat state, creating and
// persisting a default-populated one on first access. Idempotent: when
// state already exists it is a no-op.
func (m *Manager) Initialize(ctx context.Context, tenantID string) error {
	t := m.entry(tenantID)
	t.mu.Lock()
	defer t.mu.Unlock()

	created, err := m.ensureState(ctx, t, tenantID)
	if err != nil {
		return err
	}
	if !created {
		return nil
	}
	if err := m.store.SaveState(ctx, tenantID, t.state); err != nil {
		return &PersistenceError{Op: "save", TenantID: tenantID, Err: err}
	}
	return nil
}

// GetState returns a snapshot of the tenant's state after a read-time
// refresh: due occupants are evicted, empty slots repopulated and stale
// events pruned. A failed save is logged and the refreshed in-memory state
// is still returned; the next successful save catches up.
func (m *Manager) GetState(ctx context.Context, tenantID string) (*engine.HabitatState, error) {
	t := m.entry(tenantID)
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, err := m.ensureState(ctx, t, tenantID); err != nil {
		return nil, err
	}

	now := m.nowFn()
	departed := m.eng.EvictDue(t.state, now)
	admitted := m.eng.Repopulate(t.state, now)
	m.eng.PruneEvents(t.state, now)

	if len(departed) > 0 || len(admitted) > 0 {
		if err := m.store.SaveState(ctx, tenantID, t.state); err != nil {
			log.Printf("saving refreshed state for tenant %s failed, keeping in-memory state: %v", tenantID, err)
		}
	}
	return t.state.Clone(), nil
}

// Admit places a new occupant of the named species into the named zone.
func (m *Manager) Admit(ctx context.Context, tenantID, zoneName, speciesName string) (engine.Entity, error) {
	sp, ok := m.cat.Lookup(speciesName)
	if !ok {
		return engine.Entity{}, fmt.Errorf("species %q: %w", speciesName, engine.ErrNotFound)
	}

	t := m.entry(tenantID)
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, err := m.ensureState(ctx, t, tenantID); err != nil {
		return engine.Entity{}, err
	}

	zone := t.state.Zone(zoneName)
	if zone == nil {
		return engine.Entity{}, fmt.Errorf("zone %q: %w", zoneName, engine.ErrNotFound)
	}

	now := m.nowFn()
	// Departures are processed first so capacity reflects reality.
	m.eng.EvictDue(t.state, now)

	ent, err := m.eng.Admit(t.state, zone, sp, now)
	if err != nil {
		return engine.Entity{}, err
	}
	admitted := *ent
	if err := m.store.SaveState(ctx, tenantID, t.state); err != nil {
		return admitted, &PersistenceError{Op: "save", TenantID: tenantID, Err: err}
	}
	return admitted, nil
}

// Feed records a feeding for the entity with the given id.
func (m *Manager) Feed(ctx context.Context, tenantID, entityID, food string) (engine.FeedResult, error) {
	t := m.entry(tenantID)
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, err := m.ensureState(ctx, t, tenantID); err != nil {
		return engine.FeedResult{}, err
	}

	now := m.nowFn()
	// An entity past its departure cannot be fed; evict first so the lookup
	// reports NotFound rather than extending a stay that already ended.
	m.eng.EvictDue(t.state, now)

	res, err := m.eng.Feed(t.state, entityID, food, now)
	if err != nil {
		return engine.FeedResult{}, err
	}
	fed := *res.Entity
	res.Entity = &fed
	if err := m.store.SaveState(ctx, tenantID, t.state); err != nil {
		return res, &PersistenceError{Op: "save", TenantID: tenantID, Err: err}
	}
	return res, nil
}

// ForceHunger marks every entity matching the filter hungry, exactly as if
// the hunger threshold had elapsed naturally.
func (m *Manager) ForceHunger(ctx context.Context, tenantID, filter string) (int, error) {
	return m.adjustHunger(ctx, tenantID, filter, true)
}

// ResetHunger clears hunger for every entity matching the filter, exactly
// as a feeding would.
func (m *Manager) ResetHunger(ctx context.Context, tenantID, filter string) (int, error) {
	return m.adjustHunger(ctx, tenantID, filter, false)
}

func (m *Manager) adjustHunger(ctx context.Context, tenantID, filter string, hungry bool) (int, error) {
	t := m.entry(tenantID)
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, err := m.ensureState(ctx, t, tenantID); err != nil {
		return 0, err
	}

	now := m.nowFn()
	var n int
	if hungry {
		n = m.eng.ForceHunger(t.state, filter, now)
	} else {
		n = m.eng.ResetHunger(t.state, filter, now)
	}
	if n == 0 {
		return 0, nil
	}
	if err := m.store.SaveState(ctx, tenantID, t.state); err != nil {
		return n, &PersistenceError{Op: "save", TenantID: tenantID, Err: err}
	}
	return n, nil
}

// Statistics derives the aggregate view without mutating state.
func (m *Manager) Statistics(ctx context.Context, tenantID string) (Stats, error) {
	t := m.entry(tenantID)
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, err := m.ensureState(ctx, t, tenantID); err != nil {
		return Stats{}, err
	}

	now := m.nowFn()
	var stats Stats
	for _, zone := range t.state.Zones {
		for _, ent := range zone.Occupants {
			stats.TotalEntities++
			if m.eng.ComputeStatus(ent, now).IsHungry {
				stats.HungryEntities++
			}
		}
	}
	events := t.state.Events
	if len(events) > recentEventCount {
		events = events[len(events)-recentEventCount:]
	}
	stats.RecentEvents = make([]engine.Event, len(events))
	copy(stats.RecentEvents, events)
	return stats, nil
}

// RunMaintenance performs one maintenance pass for a tenant: eviction,
// repopulation, hunger-episode detection and event pruning. Safe to call on
// a fixed interval without further coordination.
func (m *Manager) RunMaintenance(ctx context.Context, tenantID string) (MaintenanceReport, error) {
	t := m.entry(tenantID)
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, err := m.ensureState(ctx, t, tenantID); err != nil {
		return MaintenanceReport{}, err
	}

	now := m.nowFn()
	var report MaintenanceReport
	for _, ent := range m.eng.EvictDue(t.state, now) {
		report.Departed = append(report.Departed, *ent)
	}
	report.Admitted = len(m.eng.Repopulate(t.state, now))
	for _, ent := range m.eng.CollectHungry(t.state, now) {
		report.Hungry = append(report.Hungry, *ent)
	}
	m.eng.PruneEvents(t.state, now)

	if err := m.store.SaveState(ctx, tenantID, t.state); err != nil {
		return report, &PersistenceError{Op: "save", TenantID: tenantID, Err: err}
	}
	return report, nil
}

// TenantIDs returns every known tenant: cached in memory or persisted.
func (m *Manager) TenantIDs(ctx context.Context) ([]string, error) {
	persisted, err := m.store.TenantIDs(ctx)
	if err != nil {
		return nil, &PersistenceError{Op: "list", TenantID: "", Err: err}
	}

	seen := make(map[string]bool, len(persisted))
	var ids []string
	for _, id := range persisted {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	m.mu.Lock()
	for id := range m.tenants {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	m.mu.Unlock()
	return ids, nil
}

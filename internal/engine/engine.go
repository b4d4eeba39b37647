// Package engine implements the habitat lifecycle simulation: admission into
// capacity-limited zones, lazy hunger decay, feeding-driven stay extension
// and scheduled departure. All state is computed from timestamps on read;
// there is no background tick and no I/O in this package.
package engine

import (
	"fmt"
	"strings"
	"time"

	"habitat-backend/internal/catalog"
	"habitat-backend/internal/registry"
)

// Config carries the fixed simulation constants.
type Config struct {
	HungerThreshold time.Duration
	FeedExtension   time.Duration
	EventRetention  time.Duration
}

// Engine computes derived state and enforces the lifecycle invariants.
// Every mutating method takes an explicit "now" so behavior is deterministic
// and testable without a clock.
type Engine struct {
	cfg Config
	cat *catalog.Catalog
}

// New creates an engine over the given catalog.
func New(cfg Config, cat *catalog.Catalog) *Engine {
	return &Engine{cfg: cfg, cat: cat}
}

// baseStay is the fixed admission policy: stay length is a pure lookup over
// the species' size class.
//
//	small  24h
//	medium 36h
//	large  48h
func baseStay(size catalog.SizeClass) time.Duration {
	switch size {
	case catalog.SizeMedium:
		return 36 * time.Hour
	case catalog.SizeLarge:
		return 48 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// ComputeStatus derives an entity's current status. Side-effect free.
func (e *Engine) ComputeStatus(ent *Entity, now time.Time) Status {
	departure := ent.ScheduledDeparture()
	remaining := departure.Sub(now)
	if remaining < 0 {
		remaining = 0
	}
	return Status{
		IsHungry:      now.Sub(ent.LastFedAt) >= e.cfg.HungerThreshold,
		IsDue:         !now.Before(departure),
		TimeRemaining: remaining,
	}
}

// NewState creates an empty state for the given zone schema. Callers seed
// the population with Repopulate.
func (e *Engine) NewState(zones []registry.ZoneSpec, now time.Time) *HabitatState {
	st := &HabitatState{LastUpdate: now}
	for _, z := range zones {
		st.Zones = append(st.Zones, &Zone{
			Name:     z.Name,
			Capacity: z.Capacity,
			Habitat:  z.Habitat,
		})
	}
	return st
}

// Admit places a new occupant of the given species into the zone.
// It fails with ErrCapacityExceeded when the zone is full and with
// ErrIncompatibleHabitat when the species cannot live there; in both cases
// the zone is left unchanged.
func (e *Engine) Admit(st *HabitatState, zone *Zone, sp catalog.Species, now time.Time) (*Entity, error) {
	if len(zone.Occupants) >= zone.Capacity {
		return nil, fmt.Errorf("admit %s to %s: %w", sp.Name, zone.Name, ErrCapacityExceeded)
	}
	if !sp.LivesIn(zone.Habitat) {
		return nil, fmt.Errorf("admit %s to %s: %w", sp.Name, zone.Name, ErrIncompatibleHabitat)
	}

	ent := &Entity{
		ID:          e.cat.RandomID(),
		Species:     sp.Name,
		Zone:        zone.Name,
		ArrivalTime: now,
		BaseStay:    baseStay(sp.SizeClass),
		LastFedAt:   now,
		Activity:    e.cat.RandomActivity(sp),
	}
	zone.Occupants = append(zone.Occupants, ent)
	e.appendEvent(st, Event{
		Time:    now,
		Kind:    EventAdmitted,
		Entity:  ent.ID,
		Species: ent.Species,
		Zone:    zone.Name,
		Message: fmt.Sprintf("a %s settled into the %s", ent.Species, zone.Name),
	}, now)
	st.LastUpdate = now
	return ent, nil
}

// Feed records a feeding for the entity with the given id. The feeding
// resets hunger, clears the pending notification flag and extends the stay.
//
// The extension is the configured amount scaled by preference tier:
//
//	favorite   2x
//	acceptable 1x
//	disliked   1/2x
func (e *Engine) Feed(st *HabitatState, entityID, food string, now time.Time) (FeedResult, error) {
	ent, zone := findEntity(st, entityID)
	if ent == nil {
		return FeedResult{}, fmt.Errorf("feed %s: %w", entityID, ErrNotFound)
	}

	sp, _ := e.cat.Lookup(ent.Species)
	tier := feedTier(sp, food)
	extension := e.cfg.FeedExtension
	switch tier {
	case TierFavorite:
		extension *= 2
	case TierDisliked:
		extension /= 2
	}

	ent.LastFedAt = now
	ent.HungerNotified = false
	ent.FeedCount++
	ent.StayExtension += extension
	ent.Activity = e.cat.RandomActivity(sp)

	e.appendEvent(st, Event{
		Time:    now,
		Kind:    EventFed,
		Entity:  ent.ID,
		Species: ent.Species,
		Zone:    zone.Name,
		Message: fmt.Sprintf("the %s was fed (%s)", ent.Species, tier),
	}, now)
	st.LastUpdate = now

	return FeedResult{
		Entity:             ent,
		Tier:               tier,
		Extension:          extension,
		ScheduledDeparture: ent.ScheduledDeparture(),
	}, nil
}

func feedTier(sp catalog.Species, food string) FeedTier {
	f := strings.ToLower(strings.TrimSpace(food))
	if f == "" {
		return TierAcceptable
	}
	for _, fav := range sp.FavoriteFoods {
		if strings.EqualFold(fav, f) {
			return TierFavorite
		}
	}
	for _, dis := range sp.DislikedFoods {
		if strings.EqualFold(dis, f) {
			return TierDisliked
		}
	}
	return TierAcceptable
}

// EvictDue removes every occupant whose scheduled departure has passed and
// logs a departure event for each. It must run before any admission so that
// capacity reflects reality; Repopulate relies on this ordering.
func (e *Engine) EvictDue(st *HabitatState, now time.Time) []*Entity {
	var departed []*Entity
	for _, zone := range st.Zones {
		kept := zone.Occupants[:0]
		for _, ent := range zone.Occupants {
			if e.ComputeStatus(ent, now).IsDue {
				departed = append(departed, ent)
				e.appendEvent(st, Event{
					Time:    now,
					Kind:    EventDeparted,
					Entity:  ent.ID,
					Species: ent.Species,
					Zone:    zone.Name,
					Message: fmt.Sprintf("the %s left the %s after %d feedings", ent.Species, zone.Name, ent.FeedCount),
				}, now)
				continue
			}
			kept = append(kept, ent)
		}
		zone.Occupants = kept
	}
	if len(departed) > 0 {
		st.LastUpdate = now
	}
	return departed
}

// Repopulate fills every zone below capacity with freshly drawn compatible
// species. Zones whose habitat no species can live in are left as they are.
func (e *Engine) Repopulate(st *HabitatState, now time.Time) []*Entity {
	var admitted []*Entity
	for _, zone := range st.Zones {
		for len(zone.Occupants) < zone.Capacity {
			sp, ok := e.cat.RandomCompatible(zone.Habitat)
			if !ok {
				break
			}
			ent, err := e.Admit(st, zone, sp, now)
			if err != nil {
				break
			}
			admitted = append(admitted, ent)
		}
	}
	return admitted
}

// ForceHunger rewinds LastFedAt for every entity matching the filter so the
// derived hunger computation reports hungry. It touches exactly the fields
// natural decay uses, so forced and organic hunger are indistinguishable.
// Returns the number of entities affected.
func (e *Engine) ForceHunger(st *HabitatState, filter string, now time.Time) int {
	n := 0
	for _, zone := range st.Zones {
		for _, ent := range zone.Occupants {
			if !matchesFilter(ent, filter) {
				continue
			}
			ent.LastFedAt = now.Add(-e.cfg.HungerThreshold)
			ent.HungerNotified = false
			n++
		}
	}
	if n > 0 {
		st.LastUpdate = now
	}
	return n
}

// ResetHunger clears hunger for every entity matching the filter, exactly as
// a feeding would, but without the stay extension or feed count.
func (e *Engine) ResetHunger(st *HabitatState, filter string, now time.Time) int {
	n := 0
	for _, zone := range st.Zones {
		for _, ent := range zone.Occupants {
			if !matchesFilter(ent, filter) {
				continue
			}
			ent.LastFedAt = now
			ent.HungerNotified = false
			n++
		}
	}
	if n > 0 {
		st.LastUpdate = now
	}
	return n
}

// CollectHungry returns every entity that is hungry and has not yet been
// notified about this hunger episode, marking each as notified and logging
// a hunger event. Used by the maintenance job to gate duplicate
// notifications.
func (e *Engine) CollectHungry(st *HabitatState, now time.Time) []*Entity {
	var hungry []*Entity
	for _, zone := range st.Zones {
		for _, ent := range zone.Occupants {
			if ent.HungerNotified || !e.ComputeStatus(ent, now).IsHungry {
				continue
			}
			ent.HungerNotified = true
			hungry = append(hungry, ent)
			e.appendEvent(st, Event{
				Time:    now,
				Kind:    EventHungry,
				Entity:  ent.ID,
				Species: ent.Species,
				Zone:    zone.Name,
				Message: fmt.Sprintf("the %s is getting hungry", ent.Species),
			}, now)
		}
	}
	if len(hungry) > 0 {
		st.LastUpdate = now
	}
	return hungry
}

// PruneEvents drops log entries older than the retention window.
func (e *Engine) PruneEvents(st *HabitatState, now time.Time) {
	cutoff := now.Add(-e.cfg.EventRetention)
	kept := st.Events[:0]
	for _, ev := range st.Events {
		if !ev.Time.Before(cutoff) {
			kept = append(kept, ev)
		}
	}
	st.Events = kept
}

// FindEntity locates an occupant by id across all zones.
func (e *Engine) FindEntity(st *HabitatState, entityID string) (*Entity, error) {
	ent, _ := findEntity(st, entityID)
	if ent == nil {
		return nil, fmt.Errorf("entity %s: %w", entityID, ErrNotFound)
	}
	return ent, nil
}

func findEntity(st *HabitatState, entityID string) (*Entity, *Zone) {
	for _, zone := range st.Zones {
		for _, ent := range zone.Occupants {
			if ent.ID == entityID {
				return ent, zone
			}
		}
	}
	return nil, nil
}

// matchesFilter reports whether the entity matches an administrative filter:
// empty or "all" matches everything, otherwise id or species name.
func matchesFilter(ent *Entity, filter string) bool {
	f := strings.ToLower(strings.TrimSpace(filter))
	if f == "" || f == "all" {
		return true
	}
	return strings.EqualFold(ent.ID, f) || strings.EqualFold(ent.Species, f)
}

func (e *Engine) appendEvent(st *HabitatState, ev Event, now time.Time) {
	st.Events = append(st.Events, ev)
	e.PruneEvents(st, now)
}

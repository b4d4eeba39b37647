package engine

import "time"

// Entity is a single occupant of a zone.
//
// IsHungry is not stored: it is derived from LastFedAt on every read, so a
// reload from persistence can never disagree with the in-memory computation.
type Entity struct {
	ID             string        `json:"id"`
	Species        string        `json:"species"`
	Zone           string        `json:"zone"`
	ArrivalTime    time.Time     `json:"arrival_time"`
	BaseStay       time.Duration `json:"base_stay"`
	StayExtension  time.Duration `json:"stay_extension"`
	LastFedAt      time.Time     `json:"last_fed_at"`
	FeedCount      int           `json:"feed_count"`
	HungerNotified bool          `json:"hunger_notified"`
	Activity       string        `json:"activity"`
}

// ScheduledDeparture is the single formula every caller goes through:
// arrival + base stay + accumulated feeding extension.
func (e *Entity) ScheduledDeparture() time.Time {
	return e.ArrivalTime.Add(e.BaseStay + e.StayExtension)
}

// Zone is a capacity-limited area. Occupant count never exceeds Capacity.
type Zone struct {
	Name      string    `json:"name"`
	Capacity  int       `json:"capacity"`
	Habitat   string    `json:"habitat"`
	Occupants []*Entity `json:"occupants"`
}

// EventKind classifies a notable transition in the event log.
type EventKind string

const (
	EventAdmitted EventKind = "admitted"
	EventFed      EventKind = "fed"
	EventDeparted EventKind = "departed"
	EventHungry   EventKind = "hungry"
)

// Event is one time-stamped entry of the bounded event log.
type Event struct {
	Time    time.Time `json:"time"`
	Kind    EventKind `json:"kind"`
	Entity  string    `json:"entity"`
	Species string    `json:"species"`
	Zone    string    `json:"zone"`
	Message string    `json:"message"`
}

// HabitatState is one tenant's entire simulation state. It is owned by
// exactly one tenant; no instance inside it is ever shared across tenants.
type HabitatState struct {
	Zones      []*Zone   `json:"zones"`
	Events     []Event   `json:"events"`
	LastUpdate time.Time `json:"last_update"`
}

// Clone returns a deep copy. Callers that hand state out past the tenant
// lock must hand out a clone.
func (s *HabitatState) Clone() *HabitatState {
	out := &HabitatState{LastUpdate: s.LastUpdate}
	out.Zones = make([]*Zone, len(s.Zones))
	for i, z := range s.Zones {
		zc := &Zone{Name: z.Name, Capacity: z.Capacity, Habitat: z.Habitat}
		zc.Occupants = make([]*Entity, len(z.Occupants))
		for j, ent := range z.Occupants {
			ec := *ent
			zc.Occupants[j] = &ec
		}
		out.Zones[i] = zc
	}
	out.Events = make([]Event, len(s.Events))
	copy(out.Events, s.Events)
	return out
}

// Zone returns the zone with the given name, or nil.
func (s *HabitatState) Zone(name string) *Zone {
	for _, z := range s.Zones {
		if z.Name == name {
			return z
		}
	}
	return nil
}

// Status is the derived, read-only view of one entity at a point in time.
type Status struct {
	IsHungry      bool          `json:"is_hungry"`
	IsDue         bool          `json:"is_due"`
	TimeRemaining time.Duration `json:"time_remaining"`
}

// FeedTier classifies how well a feeding matched the species' preferences.
type FeedTier string

const (
	TierFavorite   FeedTier = "favorite"
	TierAcceptable FeedTier = "acceptable"
	TierDisliked   FeedTier = "disliked"
)

// FeedResult reports the outcome of a successful feeding.
type FeedResult struct {
	Entity             *Entity       `json:"entity"`
	Tier               FeedTier      `json:"tier"`
	Extension          time.Duration `json:"extension"`
	ScheduledDeparture time.Time     `json:"scheduled_departure"`
}

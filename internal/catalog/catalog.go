package catalog

import (
	"math/rand"
	"strings"
	"sync"
	"time"
)

// SizeClass buckets species for the base-stay policy.
type SizeClass string

const (
	SizeSmall  SizeClass = "small"
	SizeMedium SizeClass = "medium"
	SizeLarge  SizeClass = "large"
)

// Species is a static catalog record. Records never change at runtime; the
// engine consults them only for habitat compatibility, size class and food
// preferences.
type Species struct {
	Name          string
	SizeClass     SizeClass
	Habitats      []string
	FavoriteFoods []string
	DislikedFoods []string
	Activities    []string
}

// LivesIn reports whether the species can occupy a zone with the given
// habitat class.
func (s Species) LivesIn(habitat string) bool {
	for _, h := range s.Habitats {
		if h == habitat {
			return true
		}
	}
	return false
}

// Catalog holds the static species set and a seedable RNG for random draws.
type Catalog struct {
	mu      sync.Mutex
	rng     *rand.Rand
	species []Species
	byName  map[string]Species
}

// New creates a catalog over the built-in species set.
func New() *Catalog {
	return NewWithSeed(time.Now().UnixNano())
}

// NewWithSeed creates a catalog whose random draws are reproducible.
func NewWithSeed(seed int64) *Catalog {
	c := &Catalog{
		rng:     rand.New(rand.NewSource(seed)),
		species: builtinSpecies,
		byName:  make(map[string]Species, len(builtinSpecies)),
	}
	for _, s := range c.species {
		c.byName[strings.ToLower(s.Name)] = s
	}
	return c
}

// Lookup returns the species record for a name, case-insensitively.
func (c *Catalog) Lookup(name string) (Species, bool) {
	s, ok := c.byName[strings.ToLower(strings.TrimSpace(name))]
	return s, ok
}

// Compatible returns every species that can live in the given habitat class.
func (c *Catalog) Compatible(habitat string) []Species {
	var out []Species
	for _, s := range c.species {
		if s.LivesIn(habitat) {
			out = append(out, s)
		}
	}
	return out
}

// RandomCompatible draws a random species compatible with the habitat class.
// The second return value is false when no species is compatible.
func (c *Catalog) RandomCompatible(habitat string) (Species, bool) {
	candidates := c.Compatible(habitat)
	if len(candidates) == 0 {
		return Species{}, false
	}
	c.mu.Lock()
	i := c.rng.Intn(len(candidates))
	c.mu.Unlock()
	return candidates[i], true
}

// RandomActivity picks a cosmetic activity label for the species.
func (c *Catalog) RandomActivity(s Species) string {
	pool := s.Activities
	if len(pool) == 0 {
		pool = defaultActivities
	}
	c.mu.Lock()
	i := c.rng.Intn(len(pool))
	c.mu.Unlock()
	return pool[i]
}

// RandomID generates an opaque identifier for a new occupant.
func (c *Catalog) RandomID() string {
	const hex = "0123456789abcdef"
	b := make([]byte, 12)
	c.mu.Lock()
	for i := range b {
		b[i] = hex[c.rng.Intn(len(hex))]
	}
	c.mu.Unlock()
	return string(b)
}

var defaultActivities = []string{
	"preening",
	"napping",
	"foraging",
	"singing",
	"stretching its wings",
}

var builtinSpecies = []Species{
	{
		Name:          "sparrow",
		SizeClass:     SizeSmall,
		Habitats:      []string{"forest", "grassland"},
		FavoriteFoods: []string{"millet", "sunflower seeds"},
		DislikedFoods: []string{"fish"},
		Activities:    []string{"hopping between branches", "dust bathing"},
	},
	{
		Name:          "robin",
		SizeClass:     SizeSmall,
		Habitats:      []string{"forest", "grassland"},
		FavoriteFoods: []string{"mealworms", "berries"},
		DislikedFoods: []string{"fish"},
		Activities:    []string{"pulling worms", "singing from a fence post"},
	},
	{
		Name:          "kingfisher",
		SizeClass:     SizeSmall,
		Habitats:      []string{"waterside"},
		FavoriteFoods: []string{"minnows", "fish"},
		DislikedFoods: []string{"seeds"},
		Activities:    []string{"diving for fish", "perching over the water"},
	},
	{
		Name:          "mallard",
		SizeClass:     SizeMedium,
		Habitats:      []string{"waterside", "grassland"},
		FavoriteFoods: []string{"duckweed", "grain"},
		DislikedFoods: []string{"citrus"},
		Activities:    []string{"dabbling", "paddling in circles"},
	},
	{
		Name:          "heron",
		SizeClass:     SizeLarge,
		Habitats:      []string{"waterside"},
		FavoriteFoods: []string{"fish", "frogs"},
		DislikedFoods: []string{"seeds"},
		Activities:    []string{"standing perfectly still", "wading the shallows"},
	},
	{
		Name:          "owl",
		SizeClass:     SizeMedium,
		Habitats:      []string{"forest"},
		FavoriteFoods: []string{"mice", "crickets"},
		DislikedFoods: []string{"fruit"},
		Activities:    []string{"dozing in a hollow", "swiveling its head"},
	},
	{
		Name:          "woodpecker",
		SizeClass:     SizeSmall,
		Habitats:      []string{"forest"},
		FavoriteFoods: []string{"grubs", "suet"},
		DislikedFoods: []string{"fish"},
		Activities:    []string{"drumming on a trunk"},
	},
	{
		Name:          "pheasant",
		SizeClass:     SizeMedium,
		Habitats:      []string{"grassland"},
		FavoriteFoods: []string{"grain", "berries"},
		DislikedFoods: []string{"fish"},
		Activities:    []string{"strutting through tall grass"},
	},
	{
		Name:          "crane",
		SizeClass:     SizeLarge,
		Habitats:      []string{"grassland", "waterside"},
		FavoriteFoods: []string{"grain", "small fish"},
		DislikedFoods: []string{"suet"},
		Activities:    []string{"dancing", "calling at dawn"},
	},
	{
		Name:          "eagle",
		SizeClass:     SizeLarge,
		Habitats:      []string{"forest", "grassland"},
		FavoriteFoods: []string{"rabbit", "fish"},
		DislikedFoods: []string{"seeds"},
		Activities:    []string{"riding thermals", "surveying from a snag"},
	},
}

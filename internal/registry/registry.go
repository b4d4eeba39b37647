// Package registry defines the fixed zone schema shared by every tenant.
// Zones are configuration, not tenant state: two tenants always see the same
// zone names, capacities and habitat classes.
package registry

import (
	"fmt"

	"habitat-backend/config"
)

// ZoneSpec describes one zone of the schema.
type ZoneSpec struct {
	Name     string
	Capacity int
	Habitat  string
}

// Registry is the validated zone schema.
type Registry struct {
	zones  []ZoneSpec
	byName map[string]ZoneSpec
}

// FromConfig builds a registry from configuration, rejecting duplicate names
// and non-positive capacities.
func FromConfig(zones []config.ZoneConfig) (*Registry, error) {
	if len(zones) == 0 {
		return nil, fmt.Errorf("zone registry requires at least one zone")
	}
	r := &Registry{byName: make(map[string]ZoneSpec, len(zones))}
	for _, z := range zones {
		if z.Name == "" {
			return nil, fmt.Errorf("zone with empty name")
		}
		if z.Capacity <= 0 {
			return nil, fmt.Errorf("zone %q has non-positive capacity %d", z.Name, z.Capacity)
		}
		if _, dup := r.byName[z.Name]; dup {
			return nil, fmt.Errorf("duplicate zone name %q", z.Name)
		}
		habitat := z.Habitat
		if habitat == "" {
			habitat = z.Name
		}
		spec := ZoneSpec{Name: z.Name, Capacity: z.Capacity, Habitat: habitat}
		r.zones = append(r.zones, spec)
		r.byName[z.Name] = spec
	}
	return r, nil
}

// Default returns the registry for the default three-zone schema.
func Default() *Registry {
	r, err := FromConfig(config.Default().Zones)
	if err != nil {
		panic(err) // defaults are static and always valid
	}
	return r
}

// Zones returns the schema in declaration order.
func (r *Registry) Zones() []ZoneSpec {
	out := make([]ZoneSpec, len(r.zones))
	copy(out, r.zones)
	return out
}

// Lookup returns the spec for a zone name.
func (r *Registry) Lookup(name string) (ZoneSpec, bool) {
	z, ok := r.byName[name]
	return z, ok
}

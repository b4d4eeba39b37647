package engine

import "errors"

// Recoverable outcomes of normal operation. A full zone or feeding an
// entity that already departed is routine, not a bug; callers match these
// with errors.Is and decide their own fallback.
var (
	ErrCapacityExceeded    = errors.New("zone is at capacity")
	ErrIncompatibleHabitat = errors.New("species cannot live in this zone")
	ErrNotFound            = errors.New("not found")
)

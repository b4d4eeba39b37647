package model

import "time"

// HabitatRecord is the durable form of one tenant's habitat state: a single
// serialized JSON document per tenant. The document round-trips every engine
// field exactly; timestamps keep nanosecond precision through JSON encoding.
type HabitatRecord struct {
	TenantID  string    `gorm:"primaryKey;size:64"`
	State     []byte    `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

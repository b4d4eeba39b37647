package model

import "time"

// PushSubscription holds a browser push subscription, tied to the tenant
// whose habitat the subscriber follows.
type PushSubscription struct {
	Endpoint  string    `gorm:"primaryKey"`
	TenantID  string    `gorm:"index;size:64;not null"`
	P256DH    string    `gorm:"column:p256dh;not null"`
	Auth      string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
}

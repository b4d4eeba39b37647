package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"habitat-backend/internal/engine"
	"habitat-backend/internal/model"
)

// ErrTenantNotFound is returned by LoadState when no record exists for the
// tenant.
var ErrTenantNotFound = errors.New("no habitat record for tenant")

// ErrCorruptRecord is returned when a persisted record exists but cannot be
// decoded. Callers are expected to degrade to re-initializing that one
// tenant rather than failing the whole process.
var ErrCorruptRecord = errors.New("habitat record is corrupt")

// Store defines the interface for all database operations.
type Store interface {
	LoadState(ctx context.Context, tenantID string) (*engine.HabitatState, error)
	SaveState(ctx context.Context, tenantID string, state *engine.HabitatState) error
	TenantIDs(ctx context.Context) ([]string, error)

	SubscriptionsForTenant(ctx context.Context, tenantID string) ([]model.PushSubscription, error)
	UpsertSubscription(ctx context.Context, sub model.PushSubscription) error
	GetSubscription(ctx context.Context, endpoint string) (model.PushSubscription, error)
	DeleteSubscription(ctx context.Context, endpoint string) error

	DB() *gorm.DB
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

// LoadState fetches and decodes one tenant's habitat document.
func (s *gormStore) LoadState(ctx context.Context, tenantID string) (*engine.HabitatState, error) {
	var record model.HabitatRecord
	err := s.db.WithContext(ctx).First(&record, "tenant_id = ?", tenantID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("load state for %s: %w", tenantID, ErrTenantNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load state for %s: %w", tenantID, err)
	}

	var state engine.HabitatState
	if err := json.Unmarshal(record.State, &state); err != nil {
		return nil, fmt.Errorf("load state for %s: %w: %v", tenantID, ErrCorruptRecord, err)
	}
	return &state, nil
}

// SaveState serializes and upserts one tenant's habitat document.
func (s *gormStore) SaveState(ctx context.Context, tenantID string, state *engine.HabitatState) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("serialize state for %s: %w", tenantID, err)
	}

	record := model.HabitatRecord{
		TenantID:  tenantID,
		State:     payload,
		UpdatedAt: time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tenant_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"state", "updated_at"}),
	}).Create(&record).Error; err != nil {
		return fmt.Errorf("save state for %s: %w", tenantID, err)
	}
	return nil
}

// TenantIDs lists every tenant with a persisted habitat record.
func (s *gormStore) TenantIDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := s.db.WithContext(ctx).
		Model(&model.HabitatRecord{}).
		Pluck("tenant_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}
	return ids, nil
}

// SubscriptionsForTenant fetches the push subscriptions following a tenant's
// habitat.
func (s *gormStore) SubscriptionsForTenant(ctx context.Context, tenantID string) ([]model.PushSubscription, error) {
	var subs []model.PushSubscription
	if err := s.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Find(&subs).Error; err != nil {
		return nil, fmt.Errorf("fetch subscriptions for %s: %w", tenantID, err)
	}
	return subs, nil
}

// UpsertSubscription creates or replaces a subscription by endpoint.
func (s *gormStore) UpsertSubscription(ctx context.Context, sub model.PushSubscription) error {
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{"tenant_id", "p256dh", "auth"}),
	}).Create(&sub).Error; err != nil {
		return fmt.Errorf("upsert subscription %s: %w", sub.Endpoint, err)
	}
	return nil
}

// GetSubscription fetches a subscription by endpoint.
func (s *gormStore) GetSubscription(ctx context.Context, endpoint string) (model.PushSubscription, error) {
	var sub model.PushSubscription
	err := s.db.WithContext(ctx).First(&sub, "endpoint = ?", endpoint).Error
	if err != nil {
		// gorm.ErrRecordNotFound is wrapped so callers can errors.Is on it.
		return model.PushSubscription{}, fmt.Errorf("subscription %s: %w", endpoint, err)
	}
	return sub, nil
}

// DeleteSubscription removes a subscription by endpoint.
func (s *gormStore) DeleteSubscription(ctx context.Context, endpoint string) error {
	if err := s.db.WithContext(ctx).
		Delete(&model.PushSubscription{Endpoint: endpoint}).Error; err != nil {
		return fmt.Errorf("delete subscription %s: %w", endpoint, err)
	}
	return nil
}

// Package maintenance runs the periodic habitat upkeep job: it walks every
// known tenant, applies one maintenance pass and hands the resulting
// departure and hunger notifications to the worker pool. All simulation
// decisions are made by the engine via the manager; this package only
// supplies the schedule.
package maintenance

import (
	"context"
	"fmt"
	"log"
	"time"

	"habitat-backend/config"
	"habitat-backend/internal/engine"
	"habitat-backend/internal/habitat"
	"habitat-backend/internal/notification"
)

// Service triggers maintenance passes on a fixed interval.
type Service struct {
	cfg        *config.Config
	manager    *habitat.Manager
	workerPool *notification.WorkerPool // nil when push is not configured
}

// NewService creates a maintenance service. workerPool may be nil, in which
// case maintenance still runs but no notifications are delivered.
func NewService(cfg *config.Config, manager *habitat.Manager, workerPool *notification.WorkerPool) *Service {
	return &Service{
		cfg:        cfg,
		manager:    manager,
		workerPool: workerPool,
	}
}

// Run starts the maintenance loop. It blocks until the context is
// cancelled.
func (s *Service) Run(ctx context.Context) {
	if !s.cfg.Maintenance.Enabled {
		log.Println("Maintenance is disabled. Not starting.")
		return
	}
	log.Println("Starting maintenance service...")

	if s.workerPool != nil {
		s.workerPool.Start(ctx)
	}

	s.RunOnce(ctx)

	timer := time.NewTimer(s.cfg.Maintenance.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Maintenance service shutting down.")
			return
		case <-timer.C:
			s.RunOnce(ctx)
			timer.Reset(s.cfg.Maintenance.Interval)
		}
	}
}

// RunOnce performs a single maintenance pass over every known tenant. An
// error in one tenant's state never blocks the others.
func (s *Service) RunOnce(ctx context.Context) {
	log.Println("Executing maintenance cycle...")

	tenantIDs, err := s.manager.TenantIDs(ctx)
	if err != nil {
		log.Printf("Error listing tenants: %v", err)
		return
	}

	for _, tenantID := range tenantIDs {
		report, err := s.manager.RunMaintenance(ctx, tenantID)
		if err != nil {
			log.Printf("Error maintaining tenant %s: %v", tenantID, err)
			continue
		}
		s.dispatch(tenantID, report)
	}

	log.Println("Maintenance cycle finished.")
}

func (s *Service) dispatch(tenantID string, report habitat.MaintenanceReport) {
	if s.workerPool == nil {
		return
	}
	for _, ent := range report.Departed {
		s.workerPool.Dispatch(notification.Job{
			TenantID: tenantID,
			Message:  departureMessage(ent),
		})
	}
	for _, ent := range report.Hungry {
		s.workerPool.Dispatch(notification.Job{
			TenantID: tenantID,
			Message:  hungerMessage(ent),
		})
	}
}

func departureMessage(ent engine.Entity) string {
	return fmt.Sprintf("The %s has left the %s.", ent.Species, ent.Zone)
}

func hungerMessage(ent engine.Entity) string {
	return fmt.Sprintf("The %s in the %s is hungry!", ent.Species, ent.Zone)
}

package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"habitat-backend/internal/engine"
)

// entityResponse is the flattened view of one occupant, with the derived
// status fields callers would otherwise recompute.
type entityResponse struct {
	ID                 string    `json:"id"`
	Species            string    `json:"species"`
	Zone               string    `json:"zone"`
	Activity           string    `json:"activity"`
	ArrivalTime        time.Time `json:"arrivalTime"`
	ScheduledDeparture time.Time `json:"scheduledDeparture"`
	IsHungry           bool      `json:"isHungry"`
	IsDue              bool      `json:"isDue"`
	TimeRemainingSecs  int       `json:"timeRemainingSeconds"`
	FeedCount          int       `json:"feedCount"`
}

type zoneResponse struct {
	Name      string           `json:"name"`
	Habitat   string           `json:"habitat"`
	Capacity  int              `json:"capacity"`
	Occupants []entityResponse `json:"occupants"`
}

type habitatResponse struct {
	TenantID   string         `json:"tenantId"`
	Zones      []zoneResponse `json:"zones"`
	Events     []engine.Event `json:"events"`
	LastUpdate time.Time      `json:"lastUpdate"`
}

func (h *Handler) entityView(ent *engine.Entity, now time.Time) entityResponse {
	status := h.engine.ComputeStatus(ent, now)
	return entityResponse{
		ID:                 ent.ID,
		Species:            ent.Species,
		Zone:               ent.Zone,
		Activity:           ent.Activity,
		ArrivalTime:        ent.ArrivalTime,
		ScheduledDeparture: ent.ScheduledDeparture(),
		IsHungry:           status.IsHungry,
		IsDue:              status.IsDue,
		TimeRemainingSecs:  int(status.TimeRemaining.Seconds()),
		FeedCount:          ent.FeedCount,
	}
}

// GetHabitat handles GET /api/habitats/:tenant_id. Reading is a refresh:
// due occupants depart and empty slots are repopulated before the state is
// returned.
func (h *Handler) GetHabitat(c *gin.Context) {
	tenantID := c.Param("tenant_id")

	state, err := h.manager.GetState(c.Request.Context(), tenantID)
	if err != nil {
		abortWithDomainError(c, err)
		return
	}

	now := time.Now().UTC()
	resp := habitatResponse{
		TenantID:   tenantID,
		Events:     state.Events,
		LastUpdate: state.LastUpdate,
	}
	for _, zone := range state.Zones {
		zv := zoneResponse{
			Name:      zone.Name,
			Habitat:   zone.Habitat,
			Capacity:  zone.Capacity,
			Occupants: make([]entityResponse, 0, len(zone.Occupants)),
		}
		for _, ent := range zone.Occupants {
			zv.Occupants = append(zv.Occupants, h.entityView(ent, now))
		}
		resp.Zones = append(resp.Zones, zv)
	}
	c.JSON(http.StatusOK, resp)
}

// GetStatistics handles GET /api/habitats/:tenant_id/statistics.
func (h *Handler) GetStatistics(c *gin.Context) {
	tenantID := c.Param("tenant_id")

	stats, err := h.manager.Statistics(c.Request.Context(), tenantID)
	if err != nil {
		abortWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

type admitRequest struct {
	Species string `json:"species" binding:"required"`
}

// AdmitEntity handles POST /api/habitats/:tenant_id/zones/:zone/entities.
func (h *Handler) AdmitEntity(c *gin.Context) {
	var req admitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ent, err := h.manager.Admit(c.Request.Context(), c.Param("tenant_id"), c.Param("zone"), req.Species)
	if err != nil {
		abortWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, h.entityView(&ent, time.Now().UTC()))
}

type feedRequest struct {
	Food string `json:"food"`
}

type feedResponse struct {
	Entity             entityResponse `json:"entity"`
	Tier               string         `json:"tier"`
	ExtensionSecs      int            `json:"extensionSeconds"`
	ScheduledDeparture time.Time      `json:"scheduledDeparture"`
}

// FeedEntity handles POST /api/habitats/:tenant_id/entities/:entity_id/feed.
func (h *Handler) FeedEntity(c *gin.Context) {
	var req feedRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.manager.Feed(c.Request.Context(), c.Param("tenant_id"), c.Param("entity_id"), req.Food)
	if err != nil {
		abortWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, feedResponse{
		Entity:             h.entityView(res.Entity, time.Now().UTC()),
		Tier:               string(res.Tier),
		ExtensionSecs:      int(res.Extension.Seconds()),
		ScheduledDeparture: res.ScheduledDeparture,
	})
}

type hungerRequest struct {
	Action string `json:"action" binding:"required,oneof=force reset"`
	Filter string `json:"filter"`
}

// SetHunger handles POST /api/habitats/:tenant_id/hunger, the
// administrative force/reset operations. Both go through the same fields
// the natural decay and feed paths use.
func (h *Handler) SetHunger(c *gin.Context) {
	var req hungerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tenantID := c.Param("tenant_id")
	var (
		affected int
		err      error
	)
	if req.Action == "force" {
		affected, err = h.manager.ForceHunger(c.Request.Context(), tenantID, req.Filter)
	} else {
		affected, err = h.manager.ResetHunger(c.Request.Context(), tenantID, req.Filter)
	}
	if err != nil {
		abortWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"affected": affected})
}

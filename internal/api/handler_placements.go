package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ccstock-backend/internal/mw"
	"ccstock-backend/internal/projection"
	"ccstock-backend/internal/scan"
)

type placeRequest struct {
	MachineID  string `json:"machine_id"`
	LocationID string `json:"location_id"`
}

type deliverRequest struct {
	MachineID string `json:"machine_id"`
}

// CreatePlacement handles POST /api/placements, a manually entered pair.
func (h *Handler) CreatePlacement(c *gin.Context) {
	var req placeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	// No session means no pending side to preserve.
	pair, err := scan.NewPairer().ExplicitPair(req.MachineID, req.LocationID)
	if err != nil {
		respondError(c, err, nil)
		return
	}
	p, err := h.svc.PlaceMachine(c.Request.Context(), pair.MachineID, pair.LocationID, mw.User(c))
	if err != nil {
		respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// CreateDelivery handles POST /api/deliveries.
func (h *Handler) CreateDelivery(c *gin.Context) {
	var req deliverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	p, err := h.svc.DeliverMachine(c.Request.Context(), req.MachineID, mw.User(c))
	if err != nil {
		respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// ListPlacements handles GET /api/placements, newest first.
func (h *Handler) ListPlacements(c *gin.Context) {
	events, err := h.svc.History(c.Request.Context(), c.Query("machine"))
	if err != nil {
		respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, events)
}

// GetCurrent handles GET /api/current: every machine not yet delivered with its
// latest location.
func (h *Handler) GetCurrent(c *gin.Context) {
	machines, err := h.svc.Machines(c.Request.Context())
	if err != nil {
		respondError(c, err, nil)
		return
	}

	var snapshot projection.Projection
	if h.live != nil {
		snapshot = h.live.Snapshot()
	} else {
		events, err := h.svc.History(c.Request.Context(), "")
		if err != nil {
			respondError(c, err, nil)
			return
		}
		snapshot = projection.Project(events)
	}

	c.JSON(http.StatusOK, projection.Current(machines, snapshot, c.Query("q")))
}

package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type createMachineRequest struct {
	ID string `json:"id" binding:"required"`
}

type createLocationRequest struct {
	ID       string `json:"id" binding:"required"`
	Capacity int    `json:"capacity"`
}

type importRequest struct {
	IDs string `json:"ids" binding:"required"`
}

// ListMachines handles GET /api/machines.
func (h *Handler) ListMachines(c *gin.Context) {
	machines, err := h.svc.Machines(c.Request.Context())
	if err != nil {
		respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, machines)
}

// CreateMachine handles POST /api/machines.
func (h *Handler) CreateMachine(c *gin.Context) {
	var req createMachineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	m, err := h.svc.AddMachine(c.Request.Context(), req.ID)
	if err != nil {
		respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusCreated, m)
}

// ImportMachines handles POST /api/import/machines.
func (h *Handler) ImportMachines(c *gin.Context) {
	var req importRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	res, err := h.svc.ImportMachines(c.Request.Context(), req.IDs)
	if err != nil {
		respondError(c, err, gin.H{"rejected": res.Rejected})
		return
	}
	c.JSON(http.StatusOK, res)
}

// ListLocations handles GET /api/locations.
func (h *Handler) ListLocations(c *gin.Context) {
	locations, err := h.svc.Locations(c.Request.Context())
	if err != nil {
		respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, locations)
}

// CreateLocation handles POST /api/locations.
func (h *Handler) CreateLocation(c *gin.Context) {
	var req createLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	l, err := h.svc.AddLocation(c.Request.Context(), req.ID, req.Capacity)
	if err != nil {
		respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusCreated, l)
}

// ImportLocations handles POST /api/import/locations.
func (h *Handler) ImportLocations(c *gin.Context) {
	var req importRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	res, err := h.svc.ImportLocations(c.Request.Context(), req.IDs)
	if err != nil {
		respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, res)
}

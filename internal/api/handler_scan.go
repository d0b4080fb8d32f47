package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ccstock-backend/internal/model"
	"ccstock-backend/internal/mw"
	"ccstock-backend/internal/scan"
)

type captureRequest struct {
	Code string `json:"code"`
}

type sessionResponse struct {
	SessionID string           `json:"session_id"`
	State     scan.State       `json:"state"`
	Placement *model.Placement `json:"placement,omitempty"`
}

// CreateScanSession handles POST /api/scan/sessions.
func (h *Handler) CreateScanSession(c *gin.Context) {
	id := h.sessions.Create()
	h.metrics.SetScanSessions(h.sessions.Len())
	c.JSON(http.StatusCreated, sessionResponse{SessionID: id})
}

// GetScanSession handles GET /api/scan/sessions/:id.
func (h *Handler) GetScanSession(c *gin.Context) {
	id := c.Param("id")
	st, err := h.sessions.Get(id)
	if err != nil {
		respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, sessionResponse{SessionID: id, State: st})
}

// CaptureLocation handles POST /api/scan/sessions/:id/location.
func (h *Handler) CaptureLocation(c *gin.Context) {
	h.capture(c, "location", (*scan.Pairer).CaptureLocation)
}

// CaptureMachine handles POST /api/scan/sessions/:id/machine.
func (h *Handler) CaptureMachine(c *gin.Context) {
	h.capture(c, "machine", (*scan.Pairer).CaptureMachine)
}

func (h *Handler) capture(c *gin.Context, side string, fn func(*scan.Pairer, string) (scan.Pair, bool, error)) {
	var req captureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	id := c.Param("id")
	var (
		pair     scan.Pair
		complete bool
		rejected error
		st       scan.State
	)
	err := h.sessions.Do(id, func(p *scan.Pairer) error {
		pair, complete, rejected = fn(p, req.Code)
		st = p.State()
		return nil
	})
	if err != nil {
		respondError(c, err, nil)
		return
	}

	resp := sessionResponse{SessionID: id, State: st}
	switch {
	case rejected != nil:
		h.metrics.ScanCaptured(side, "rejected")
		respondError(c, rejected, gin.H{"session_id": id, "state": st})
		return
	case !complete:
		h.metrics.ScanCaptured(side, "pending")
		c.JSON(http.StatusOK, resp)
		return
	}

	h.metrics.ScanCaptured(side, "paired")
	p, err := h.svc.PlaceMachine(c.Request.Context(), pair.MachineID, pair.LocationID, mw.User(c))
	if err != nil {
		respondError(c, err, gin.H{"session_id": id, "state": st, "pair": pair})
		return
	}
	resp.Placement = &p
	c.JSON(http.StatusCreated, resp)
}

// PairScanSession handles POST /api/scan/sessions/:id/pair, where both fields
// were typed in by hand. Any pending scan is kept.
func (h *Handler) PairScanSession(c *gin.Context) {
	var req placeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	id := c.Param("id")
	var (
		pair     scan.Pair
		rejected error
		st       scan.State
	)
	err := h.sessions.Do(id, func(p *scan.Pairer) error {
		pair, rejected = p.ExplicitPair(req.MachineID, req.LocationID)
		st = p.State()
		return nil
	})
	if err != nil {
		respondError(c, err, nil)
		return
	}
	if rejected != nil {
		respondError(c, rejected, gin.H{"session_id": id, "state": st})
		return
	}

	p, err := h.svc.PlaceMachine(c.Request.Context(), pair.MachineID, pair.LocationID, mw.User(c))
	if err != nil {
		respondError(c, err, gin.H{"session_id": id, "state": st, "pair": pair})
		return
	}
	c.JSON(http.StatusCreated, sessionResponse{SessionID: id, State: st, Placement: &p})
}

// CancelScanSession handles POST /api/scan/sessions/:id/cancel.
func (h *Handler) CancelScanSession(c *gin.Context) {
	id := c.Param("id")
	var st scan.State
	err := h.sessions.Do(id, func(p *scan.Pairer) error {
		p.Cancel()
		st = p.State()
		return nil
	})
	if err != nil {
		respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, sessionResponse{SessionID: id, State: st})
}

// DeleteScanSession handles DELETE /api/scan/sessions/:id.
func (h *Handler) DeleteScanSession(c *gin.Context) {
	h.sessions.Delete(c.Param("id"))
	h.metrics.SetScanSessions(h.sessions.Len())
	c.Status(http.StatusNoContent)
}

package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"ccstock-backend/internal/model"
	"ccstock-backend/internal/parse"
	"ccstock-backend/internal/store"
)

type subscriptionRequest struct {
	Endpoint string   `json:"endpoint" binding:"required"`
	P256DH   string   `json:"p256dh" binding:"required"`
	Auth     string   `json:"auth" binding:"required"`
	Machines []string `json:"subscribed_machines"`
}

type endpointRequest struct {
	Endpoint string `json:"endpoint" binding:"required"`
}

type followingResponse struct {
	Machines []string `json:"subscribed_machines"`
}

// PutSubscription handles PUT /api/subscriptions. Unregistered machines are
// dropped from the follow list and the kept ids are echoed back.
func (h *Handler) PutSubscription(c *gin.Context) {
	var req subscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	ids := make([]string, 0, len(req.Machines))
	for _, raw := range req.Machines {
		id, err := parse.MachineID(raw)
		if err != nil {
			respondError(c, err, nil)
			return
		}
		ids = append(ids, id)
	}

	sub := model.PushSubscription{Endpoint: req.Endpoint, P256DH: req.P256DH, Auth: req.Auth}
	kept, err := h.subs.Save(c.Request.Context(), &sub, ids)
	if err != nil {
		respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusCreated, followingResponse{Machines: kept})
}

// DeleteSubscription handles DELETE /api/subscriptions.
func (h *Handler) DeleteSubscription(c *gin.Context) {
	var req endpointRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.subs.Delete(c.Request.Context(), req.Endpoint); err != nil {
		respondError(c, err, nil)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetSubscription handles GET /api/subscriptions?endpoint=...
func (h *Handler) GetSubscription(c *gin.Context) {
	endpoint := rawQueryParam(c.Request.URL.RawQuery, "endpoint")
	if endpoint == "" {
		badRequest(c, errors.New("endpoint is required"))
		return
	}
	machines, err := h.subs.Following(c.Request.Context(), endpoint)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "subscription not found", "code": "subscription_not_found"})
		return
	}
	if err != nil {
		respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, followingResponse{Machines: machines})
}

// rawQueryParam returns key's value undecoded; push endpoints must match byte
// for byte.
func rawQueryParam(rawQuery, key string) string {
	for _, kv := range strings.Split(rawQuery, "&") {
		if v, ok := strings.CutPrefix(kv, key+"="); ok {
			return v
		}
	}
	return ""
}

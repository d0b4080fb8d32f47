package api

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"ccstock-backend/internal/model"
)

const (
	eventBuffer       = 32
	heartbeatInterval = 25 * time.Second
)

// StreamEvents handles GET /api/events, a Server-Sent Events stream of new
// placements. Slow clients miss events rather than stall the feed.
func (h *Handler) StreamEvents(c *gin.Context) {
	events := make(chan model.Placement, eventBuffer)
	unsubscribe := h.hub.Subscribe(func(p model.Placement) {
		select {
		case events <- p:
		default:
			log.Warn().Str("client_ip", c.ClientIP()).Int64("placement_id", p.ID).Msg("event stream client too slow; dropping event")
		}
	})
	defer unsubscribe()

	h.metrics.SubscriberAdded()
	defer h.metrics.SubscriberRemoved()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case p := <-events:
			c.SSEvent("placement", p)
			return true
		case <-heartbeat.C:
			c.SSEvent("heartbeat", gin.H{"at": time.Now().UTC()})
			return true
		}
	})
}

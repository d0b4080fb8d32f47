package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"ccstock-backend/config"
	"ccstock-backend/internal/mw"
)

// NewRouter creates and configures a new Gin router. gatherer may be nil to
// omit /metrics.
func NewRouter(h *Handler, cfg config.ServerConfig, gatherer prometheus.Gatherer) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), mw.RequestLogger(h.metrics))

	r.GET("/healthz", h.Healthz)
	if gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst)

	// Reference data reads are cached and flushed by any successful write.
	cacheStore := cache.New(cfg.CacheTTL, 2*cfg.CacheTTL)
	caching := mw.Cache(cacheStore, cfg.CacheTTL)

	api := r.Group("/api")
	api.Use(mw.Identity(cfg.UserHeader), mw.Invalidate(cacheStore))
	{
		// The event stream is long-lived and exempt from rate limiting.
		api.GET("/events", h.StreamEvents)

		limited := api.Group("")
		limited.Use(rateLimiter)

		limited.GET("/machines", caching, h.ListMachines)
		limited.POST("/machines", h.CreateMachine)
		limited.GET("/locations", caching, h.ListLocations)
		limited.POST("/locations", h.CreateLocation)
		limited.POST("/import/machines", h.ImportMachines)
		limited.POST("/import/locations", h.ImportLocations)

		limited.GET("/placements", h.ListPlacements)
		limited.POST("/placements", h.CreatePlacement)
		limited.POST("/deliveries", h.CreateDelivery)
		limited.GET("/current", h.GetCurrent)

		limited.POST("/scan/sessions", h.CreateScanSession)
		limited.GET("/scan/sessions/:id", h.GetScanSession)
		limited.POST("/scan/sessions/:id/location", h.CaptureLocation)
		limited.POST("/scan/sessions/:id/machine", h.CaptureMachine)
		limited.POST("/scan/sessions/:id/pair", h.PairScanSession)
		limited.POST("/scan/sessions/:id/cancel", h.CancelScanSession)
		limited.DELETE("/scan/sessions/:id", h.DeleteScanSession)

		limited.GET("/subscriptions", h.GetSubscription)
		limited.PUT("/subscriptions", h.PutSubscription)
		limited.DELETE("/subscriptions", h.DeleteSubscription)
		limited.GET("/vapid_public_key", h.GetVAPIDPublicKey)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found", "code": "not_found"})
	})
	return r
}

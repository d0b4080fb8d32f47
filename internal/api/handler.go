package api

import (
	"github.com/SherClockHolmes/webpush-go"

	"ccstock-backend/internal/feed"
	"ccstock-backend/internal/metrics"
	"ccstock-backend/internal/placement"
	"ccstock-backend/internal/projection"
	"ccstock-backend/internal/scan"
	"ccstock-backend/internal/store"
)

// Deps are the collaborators shared by the API handlers. Only Store is needed
// by the subscription endpoints; the rest may be nil when unused.
type Deps struct {
	Store    store.Store
	Service  *placement.Service
	Live     *projection.Live
	Sessions *scan.Registry
	Hub      *feed.Hub
	Metrics  *metrics.Metrics
	WebPush  *webpush.Options
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store    store.Store
	subs     *store.Subscriptions
	svc      *placement.Service
	live     *projection.Live
	sessions *scan.Registry
	hub      *feed.Hub
	metrics  *metrics.Metrics
	webpush  *webpush.Options
}

// NewHandler creates a new API handler.
func NewHandler(d Deps) *Handler {
	var subs *store.Subscriptions
	if d.Store != nil {
		subs = store.NewSubscriptions(d.Store.DB())
	}
	return &Handler{
		subs:     subs,
		store:    d.Store,
		svc:      d.Service,
		live:     d.Live,
		sessions: d.Sessions,
		hub:      d.Hub,
		metrics:  d.Metrics,
		webpush:  d.WebPush,
	}
}

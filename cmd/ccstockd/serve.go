package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"ccstock-backend/internal/api"
	"ccstock-backend/internal/feed"
	"ccstock-backend/internal/metrics"
	"ccstock-backend/internal/model"
	"ccstock-backend/internal/notification"
	"ccstock-backend/internal/placement"
	"ccstock-backend/internal/projection"
	"ccstock-backend/internal/scan"
	"ccstock-backend/internal/store"
)

const shutdownTimeout = 5 * time.Second

func newServeCommand(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			gormDB, closeDB, err := openDatabase(cfg)
			if err != nil {
				return err
			}
			defer closeDB()
			appStore := store.NewGormStore(gormDB)

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
			m := metrics.New(reg)

			history, err := appStore.ListPlacements(ctx)
			if err != nil {
				return fmt.Errorf("load placement history: %w", err)
			}
			live := projection.NewLive(history)
			log.Info().Int("events", len(history)).Int("machines", len(live.Snapshot())).Msg("projection seeded")

			hub := feed.NewHub()
			hub.Subscribe(func(p model.Placement) { live.Apply(p) })

			var relay *feed.Relay
			if cfg.NATS.URL != "" {
				relay, err = feed.NewRelay(cfg.NATS.URL, cfg.NATS.Stream, cfg.NATS.Subject, hub)
				if err != nil {
					return err
				}
				if err := relay.Start(ctx); err != nil {
					relay.Close()
					return err
				}
				log.Info().Str("url", cfg.NATS.URL).Str("subject", cfg.NATS.Subject).Msg("placement relay connected")
			}

			var (
				webpushOptions *webpush.Options
				pool           *notification.WorkerPool
			)
			if cfg.Push.Enabled() {
				webpushOptions = &webpush.Options{
					VAPIDPublicKey:  cfg.Push.PublicKey,
					VAPIDPrivateKey: cfg.Push.PrivateKey,
					Subscriber:      cfg.Push.Subject,
					TTL:             cfg.Push.TTL,
				}
				pool = notification.NewWorkerPool(cfg.WorkerPool.Size, gormDB, webpushOptions, m)
				pool.Start(ctx)
			} else {
				log.Warn().Msg("VAPID keys not configured; push notifications disabled")
			}

			svc := placement.NewService(appStore, localPublishers(hub, pool, relay), m)
			handler := api.NewHandler(api.Deps{
				Store:    appStore,
				Service:  svc,
				Live:     live,
				Sessions: scan.NewRegistry(cfg.Scan.SessionTTL, scan.WithPendingTTL(cfg.Scan.PendingTTL)),
				Hub:      hub,
				Metrics:  m,
				WebPush:  webpushOptions,
			})

			gin.SetMode(gin.ReleaseMode)
			server := &http.Server{
				Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
				Handler:           api.NewRouter(handler, cfg.Server, reg),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				log.Info().Int("port", cfg.Server.Port).Msg("HTTP server starting")
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					return fmt.Errorf("http server: %w", err)
				}
			case <-ctx.Done():
				log.Info().Msg("shutdown signal received, stopping services")
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("http server shutdown: %w", err)
			}
			relay.Close()

			log.Info().Msg("server gracefully stopped")
			return nil
		},
	}
}

// localPublishers is where the service publishes placements made here. Relayed
// placements reach the hub only, so a follower is pushed once by the instance
// that recorded the move.
func localPublishers(hub *feed.Hub, pool *notification.WorkerPool, relay *feed.Relay) feed.Publisher {
	return feed.Multi{hub, pool, relay}
}

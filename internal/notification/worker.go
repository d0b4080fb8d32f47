// Package notification sends web push messages to browsers that follow a
// machine whenever that machine is moved or delivered.
package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"ccstock-backend/internal/metrics"
	"ccstock-backend/internal/model"
)

// jobsPerWorker sizes the job buffer so bursts of placements do not block
// the publisher.
const jobsPerWorker = 64

// NotificationSender defines the interface for sending a web push notification.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of NotificationSender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// Message is the JSON payload delivered to the browser.
type Message struct {
	Title      string  `json:"title"`
	Body       string  `json:"body"`
	MachineID  string  `json:"machine_id"`
	LocationID *string `json:"location_id"`
	By         string  `json:"by"`
}

// NewMessage describes a placement for a human reader.
func NewMessage(p model.Placement) Message {
	msg := Message{
		Title:      p.MachineID,
		MachineID:  p.MachineID,
		LocationID: p.LocationID,
		By:         p.UserEmail,
	}
	if p.Delivered() {
		msg.Body = fmt.Sprintf("%s was delivered", p.MachineID)
	} else {
		msg.Body = fmt.Sprintf("%s moved to %s", p.MachineID, p.Location())
	}
	return msg
}

// WorkerPool manages a pool of workers for sending notifications.
type WorkerPool struct {
	size    int
	jobs    chan model.Placement
	db      *gorm.DB
	webpush *webpush.Options
	sender  NotificationSender
	metrics *metrics.Metrics
}

// NewWorkerPool creates a new worker pool. m may be nil.
func NewWorkerPool(size int, db *gorm.DB, webpushOptions *webpush.Options, m *metrics.Metrics) *WorkerPool {
	if size <= 0 {
		size = 1
	}
	return &WorkerPool{
		size:    size,
		jobs:    make(chan model.Placement, size*jobsPerWorker),
		db:      db,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
		metrics: m,
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	log.Debug().Int("worker", id).Msg("notification worker started")
	for {
		select {
		case p := <-wp.jobs:
			wp.notifyFollowers(ctx, p)
		case <-ctx.Done():
			log.Debug().Int("worker", id).Msg("notification worker shutting down")
			return
		}
	}
}

// Dispatch queues a placement for notification. It never blocks: when the queue
// is full the placement is dropped and logged.
func (wp *WorkerPool) Dispatch(p model.Placement) {
	select {
	case wp.jobs <- p:
	default:
		wp.metrics.NotificationResult("dropped")
		log.Warn().Str("machine_id", p.MachineID).Int64("placement_id", p.ID).Msg("notification queue full; dropping")
	}
}

// Publish makes the pool a feed.Publisher. A nil pool ignores placements.
func (wp *WorkerPool) Publish(p model.Placement) {
	if wp == nil {
		return
	}
	wp.Dispatch(p)
}

// Jobs returns the jobs channel for testing.
func (wp *WorkerPool) Jobs() chan model.Placement {
	return wp.jobs
}

func (wp *WorkerPool) notifyFollowers(ctx context.Context, p model.Placement) {
	var subscriptions []model.PushSubscription
	err := wp.db.WithContext(ctx).
		Joins("JOIN subscription_machine_mapping smm ON smm.push_subscription_endpoint = push_subscriptions.endpoint").
		Where("smm.machine_id = ?", p.MachineID).
		Find(&subscriptions).Error
	if err != nil {
		log.Error().Err(err).Str("machine_id", p.MachineID).Msg("fetch subscriptions")
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	payload, err := json.Marshal(NewMessage(p))
	if err != nil {
		log.Error().Err(err).Str("machine_id", p.MachineID).Msg("encode notification")
		return
	}

	log.Debug().Int("count", len(subscriptions)).Str("machine_id", p.MachineID).Msg("sending notifications")
	for _, sub := range subscriptions {
		wp.sendNotification(ctx, sub, payload)
	}
}

func (wp *WorkerPool) sendNotification(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		wp.metrics.NotificationResult("failed")
		log.Warn().Err(err).Str("endpoint", sub.Endpoint).Msg("send notification")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone {
		wp.metrics.NotificationResult("expired")
		log.Info().Str("endpoint", sub.Endpoint).Msg("subscription expired; deleting")
		if err := wp.db.WithContext(ctx).Delete(&sub).Error; err != nil {
			log.Error().Err(err).Str("endpoint", sub.Endpoint).Msg("delete expired subscription")
		}
		return
	}
	wp.metrics.NotificationResult("sent")
}

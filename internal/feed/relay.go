package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"ccstock-backend/internal/model"
)

const publishTimeout = 5 * time.Second

type envelope struct {
	Origin    string          `json:"origin"`
	Placement model.Placement `json:"placement"`
}

// Relay shares placements between service instances through a NATS JetStream
// subject. Local placements are published to NATS; placements from other
// instances are republished on the local hub. Redelivery is possible, which the
// projection tolerates.
type Relay struct {
	origin  string
	subject string
	hub     *Hub

	conn *nats.Conn
	js   nats.JetStreamContext

	subMu sync.Mutex
	sub   *nats.Subscription
}

// NewRelay connects to url and ensures a stream named stream captures subject.
func NewRelay(url, stream, subject string, hub *Hub, opts ...nats.Option) (*Relay, error) {
	if hub == nil {
		return nil, errors.New("hub is required")
	}
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	if _, err := js.StreamInfo(stream); err != nil {
		if !errors.Is(err, nats.ErrStreamNotFound) {
			nc.Close()
			return nil, fmt.Errorf("stream info %s: %w", stream, err)
		}
		if _, err := js.AddStream(&nats.StreamConfig{
			Name:     stream,
			Subjects: []string{subject},
			MaxAge:   24 * time.Hour,
		}); err != nil {
			nc.Close()
			return nil, fmt.Errorf("add stream %s: %w", stream, err)
		}
	}

	return &Relay{
		origin:  uuid.NewString(),
		subject: subject,
		hub:     hub,
		conn:    nc,
		js:      js,
	}, nil
}

// Start subscribes to placements from other instances until ctx is cancelled.
func (r *Relay) Start(ctx context.Context) error {
	sub, err := r.js.Subscribe(r.subject, func(msg *nats.Msg) {
		if err := r.handle(msg.Data); err != nil {
			log.Warn().Err(err).Msg("dropping malformed relay message")
			_ = msg.Term()
			return
		}
		_ = msg.Ack()
	}, nats.DeliverNew(), nats.ManualAck(), nats.AckExplicit())
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", r.subject, err)
	}

	r.subMu.Lock()
	r.sub = sub
	r.subMu.Unlock()

	go func() {
		<-ctx.Done()
		r.Close()
	}()
	return nil
}

// Publish sends a locally inserted placement to the other instances.
func (r *Relay) Publish(p model.Placement) {
	if r == nil {
		return
	}
	data, err := json.Marshal(envelope{Origin: r.origin, Placement: p})
	if err != nil {
		log.Error().Err(err).Int64("placement_id", p.ID).Msg("encode relay message")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if _, err := r.js.Publish(r.subject, data, nats.Context(ctx)); err != nil {
		log.Error().Err(err).Int64("placement_id", p.ID).Msg("relay publish failed")
	}
}

// handle decodes one message and republishes foreign placements locally.
func (r *Relay) handle(data []byte) error {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	if env.Placement.MachineID == "" {
		return errors.New("placement without machine_id")
	}
	if env.Origin == r.origin {
		return nil
	}
	r.hub.Publish(env.Placement)
	return nil
}

// Close drains the subscription and the connection.
func (r *Relay) Close() {
	if r == nil {
		return
	}
	r.subMu.Lock()
	if r.sub != nil {
		_ = r.sub.Drain()
		r.sub = nil
	}
	r.subMu.Unlock()

	if r.conn != nil {
		if err := r.conn.Drain(); err != nil {
			r.conn.Close()
		}
	}
}

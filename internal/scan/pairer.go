// Package scan pairs a location scan and a machine scan, captured in either
// order, into a single placement request.
package scan

import (
	"fmt"
	"time"

	"ccstock-backend/internal/parse"
)

// Kind enumerates the pairing states.
type Kind int

const (
	Empty Kind = iota
	LocationPending
	MachinePending
)

func (k Kind) String() string {
	switch k {
	case LocationPending:
		return "location_pending"
	case MachinePending:
		return "machine_pending"
	default:
		return "empty"
	}
}

// MarshalText renders the kind as its name in JSON responses.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText parses a kind name produced by MarshalText.
func (k *Kind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "empty":
		*k = Empty
	case "location_pending":
		*k = LocationPending
	case "machine_pending":
		*k = MachinePending
	default:
		return fmt.Errorf("unknown scan state %q", text)
	}
	return nil
}

// State is the pending side, if any. Value is empty when Kind is Empty.
type State struct {
	Kind  Kind      `json:"kind"`
	Value string    `json:"value,omitempty"`
	Since time.Time `json:"since,omitzero"`
}

// Pair is a completed (machine, location) scan ready to be placed.
type Pair struct {
	MachineID  string `json:"machine_id"`
	LocationID string `json:"location_id"`
}

// Option configures a Pairer.
type Option func(*Pairer)

// WithPendingTTL discards a pending side once it is older than ttl. Zero keeps
// it until it is paired, overwritten, or cancelled.
func WithPendingTTL(ttl time.Duration) Option {
	return func(p *Pairer) { p.ttl = ttl }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *Pairer) { p.now = now }
}

// Pairer holds at most one pending half scan. It is not safe for concurrent
// use; each session owns its own instance and serialises calls.
type Pairer struct {
	state State
	ttl   time.Duration
	now   func() time.Time
}

// NewPairer returns a Pairer in the Empty state.
func NewPairer(opts ...Option) *Pairer {
	p := &Pairer{now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// State returns the current pending side.
func (p *Pairer) State() State {
	p.expire()
	return p.state
}

// CaptureLocation records a scanned location. If a machine is pending, the pair
// is emitted and the state returns to Empty. An invalid code leaves the state
// untouched.
func (p *Pairer) CaptureLocation(text string) (Pair, bool, error) {
	loc, err := parse.LocationID(text)
	if err != nil {
		return Pair{}, false, err
	}
	p.expire()
	if p.state.Kind == MachinePending {
		pair := Pair{MachineID: p.state.Value, LocationID: loc}
		p.state = State{}
		return pair, true, nil
	}
	p.state = State{Kind: LocationPending, Value: loc, Since: p.now()}
	return Pair{}, false, nil
}

// CaptureMachine records a scanned machine; the mirror of CaptureLocation.
func (p *Pairer) CaptureMachine(text string) (Pair, bool, error) {
	machine, err := parse.MachineID(text)
	if err != nil {
		return Pair{}, false, err
	}
	p.expire()
	if p.state.Kind == LocationPending {
		pair := Pair{MachineID: machine, LocationID: p.state.Value}
		p.state = State{}
		return pair, true, nil
	}
	p.state = State{Kind: MachinePending, Value: machine, Since: p.now()}
	return Pair{}, false, nil
}

// Cancel drops any pending side.
func (p *Pairer) Cancel() {
	p.state = State{}
}

// ExplicitPair validates a manually entered pair without touching the pending
// state.
func (p *Pairer) ExplicitPair(machine, location string) (Pair, error) {
	m, err := parse.MachineID(machine)
	if err != nil {
		return Pair{}, err
	}
	l, err := parse.LocationID(location)
	if err != nil {
		return Pair{}, err
	}
	return Pair{MachineID: m, LocationID: l}, nil
}

func (p *Pairer) expire() {
	if p.ttl <= 0 || p.state.Kind == Empty {
		return
	}
	if p.now().Sub(p.state.Since) >= p.ttl {
		p.state = State{}
	}
}

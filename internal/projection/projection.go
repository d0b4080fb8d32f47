// Package projection derives the current location of every machine from the
// placement log. The derivation is a pure fold: the result depends only on the
// set of events seen, not on their order or on how often each was seen.
package projection

import (
	"sort"
	"strings"
	"sync"

	"ccstock-backend/internal/model"
)

// Projection maps a machine id to its latest placement.
type Projection map[string]model.Placement

// Newer reports whether a supersedes b: a later timestamp, or the same timestamp
// with a higher sequence id.
func Newer(a, b model.Placement) bool {
	if !a.Timestamp.Equal(b.Timestamp) {
		return a.Timestamp.After(b.Timestamp)
	}
	return a.ID > b.ID
}

// Project folds events into a fresh projection. Input order is irrelevant.
func Project(events []model.Placement) Projection {
	p := make(Projection, len(events))
	for _, e := range events {
		Merge(p, e)
	}
	return p
}

// Merge applies a single event and reports whether it changed the projection.
// Re-applying an event already reflected is a no-op.
func Merge(p Projection, e model.Placement) bool {
	if prev, ok := p[e.MachineID]; ok && !Newer(e, prev) {
		return false
	}
	p[e.MachineID] = e
	return true
}

// Clone returns an independent copy.
func (p Projection) Clone() Projection {
	out := make(Projection, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Live is a projection shared between the feed subscriber and readers.
type Live struct {
	mu sync.RWMutex
	p  Projection
}

// NewLive seeds a live projection from a replay of the log.
func NewLive(events []model.Placement) *Live {
	return &Live{p: Project(events)}
}

// Apply merges one event received from the feed.
func (l *Live) Apply(e model.Placement) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Merge(l.p, e)
}

// Get returns the latest placement for a machine.
func (l *Live) Get(machineID string) (model.Placement, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	e, ok := l.p[machineID]
	return e, ok
}

// Snapshot returns a copy safe to read without holding the lock.
func (l *Live) Snapshot() Projection {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.p.Clone()
}

// Row is one line of the current-location view.
type Row struct {
	Machine model.Machine    `json:"machine"`
	Latest  *model.Placement `json:"latest"`
}

// Current joins machines with their latest placement. Delivered machines are
// hidden; filter is a case-insensitive substring match on the machine id or the
// current location id.
func Current(machines []model.Machine, p Projection, filter string) []Row {
	term := strings.ToLower(strings.TrimSpace(filter))
	rows := make([]Row, 0, len(machines))
	for _, m := range machines {
		if m.Status == model.StatusDelivered {
			continue
		}
		var latest *model.Placement
		if e, ok := p[m.ID]; ok {
			e := e
			latest = &e
		}
		if term != "" {
			loc := ""
			if latest != nil {
				loc = latest.Location()
			}
			if !strings.Contains(strings.ToLower(m.ID), term) && !strings.Contains(strings.ToLower(loc), term) {
				continue
			}
		}
		rows = append(rows, Row{Machine: m, Latest: latest})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Machine.ID < rows[j].Machine.ID })
	return rows
}

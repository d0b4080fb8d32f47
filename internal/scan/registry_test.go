package scan

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_SessionsAreIndependent(t *testing.T) {
	r := NewRegistry(time.Hour)
	a := r.Create()
	b := r.Create()
	require.NotEqual(t, a, b)

	require.NoError(t, r.Do(a, func(p *Pairer) error {
		_, _, err := p.CaptureMachine("CC0001")
		return err
	}))

	var done bool
	require.NoError(t, r.Do(b, func(p *Pairer) error {
		var err error
		_, done, err = p.CaptureLocation("A1")
		return err
	}))
	assert.False(t, done, "session b must not see session a's pending machine")

	var pair Pair
	require.NoError(t, r.Do(a, func(p *Pairer) error {
		var err error
		pair, done, err = p.CaptureLocation("A9")
		return err
	}))
	assert.True(t, done)
	assert.Equal(t, Pair{MachineID: "CC0001", LocationID: "A9"}, pair)
}

func TestRegistry_UnknownAndDeleted(t *testing.T) {
	r := NewRegistry(time.Hour)
	err := r.Do("nope", func(*Pairer) error { return nil })
	assert.ErrorIs(t, err, ErrSessionNotFound)

	id := r.Create()
	assert.Equal(t, 1, r.Len())
	r.Delete(id)
	assert.ErrorIs(t, r.Do(id, func(*Pairer) error { return nil }), ErrSessionNotFound)
	assert.Equal(t, 0, r.Len())
}

func TestRegistry_IdleExpiry(t *testing.T) {
	r := NewRegistry(50 * time.Millisecond)
	id := r.Create()
	time.Sleep(80 * time.Millisecond)
	assert.ErrorIs(t, r.Do(id, func(*Pairer) error { return nil }), ErrSessionNotFound)
}

func TestRegistry_PairerOptionsApplied(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	r := NewRegistry(time.Hour, WithPendingTTL(time.Second), WithClock(func() time.Time { return now }))
	id := r.Create()

	require.NoError(t, r.Do(id, func(p *Pairer) error {
		_, _, err := p.CaptureLocation("A1")
		return err
	}))
	now = now.Add(2 * time.Second)

	var state State
	require.NoError(t, r.Do(id, func(p *Pairer) error {
		state = p.State()
		return nil
	}))
	assert.Equal(t, Empty, state.Kind)
}

func TestRegistry_SerialisesCallsPerSession(t *testing.T) {
	r := NewRegistry(time.Hour)
	id := r.Create()

	var wg sync.WaitGroup
	pairs := make(chan Pair, 100)
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = r.Do(id, func(p *Pairer) error {
				if pair, ok, _ := p.CaptureMachine("CC0001"); ok {
					pairs <- pair
				}
				return nil
			})
		}()
		go func() {
			defer wg.Done()
			_ = r.Do(id, func(p *Pairer) error {
				if pair, ok, _ := p.CaptureLocation("A1"); ok {
					pairs <- pair
				}
				return nil
			})
		}()
	}
	wg.Wait()
	close(pairs)

	for pair := range pairs {
		assert.Equal(t, Pair{MachineID: "CC0001", LocationID: "A1"}, pair)
	}
}

func TestRegistry_DeleteWinsOverConcurrentUse(t *testing.T) {
	r := NewRegistry(time.Hour)
	id := r.Create()

	holding := make(chan struct{})
	release := make(chan struct{})
	first := make(chan error, 1)
	go func() {
		first <- r.Do(id, func(p *Pairer) error {
			close(holding)
			<-release
			return nil
		})
	}()
	<-holding

	second := make(chan error, 1)
	ran := false
	go func() {
		second <- r.Do(id, func(p *Pairer) error {
			ran = true
			return nil
		})
	}()

	r.Delete(id)
	close(release)

	require.NoError(t, <-first)
	assert.ErrorIs(t, <-second, ErrSessionNotFound)
	assert.False(t, ran)
	assert.Zero(t, r.Len(), "a deleted session must not come back")
	_, err := r.Get(id)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRegistry_Get(t *testing.T) {
	r := NewRegistry(time.Hour)
	id := r.Create()

	st, err := r.Get(id)
	require.NoError(t, err)
	assert.Equal(t, Empty, st.Kind)

	require.NoError(t, r.Do(id, func(p *Pairer) error {
		_, _, err := p.CaptureLocation(" B7 ")
		return err
	}))
	st, err = r.Get(id)
	require.NoError(t, err)
	assert.Equal(t, LocationPending, st.Kind)
	assert.Equal(t, "B7", st.Value)

	_, err = r.Get("missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

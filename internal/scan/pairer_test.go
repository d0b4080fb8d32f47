package scan

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ccstock-backend/internal/parse"
)

func TestPairer_LocationThenMachine(t *testing.T) {
	p := NewPairer()

	_, done, err := p.CaptureLocation("A3")
	require.NoError(t, err)
	assert.False(t, done)
	assert.Equal(t, LocationPending, p.State().Kind)
	assert.Equal(t, "A3", p.State().Value)

	pair, done, err := p.CaptureMachine("CC0012")
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, Pair{MachineID: "CC0012", LocationID: "A3"}, pair)
	assert.Equal(t, Empty, p.State().Kind)
}

func TestPairer_OrderDoesNotMatter(t *testing.T) {
	a := NewPairer()
	_, _, _ = a.CaptureLocation("A3")
	first, _, _ := a.CaptureMachine("CC0012")

	b := NewPairer()
	_, _, _ = b.CaptureMachine("CC0012")
	second, done, err := b.CaptureLocation("A3")
	require.NoError(t, err)
	require.True(t, done)

	assert.Equal(t, first, second)
}

func TestPairer_NoAutoCompleteAfterPair(t *testing.T) {
	p := NewPairer()
	_, _, _ = p.CaptureMachine("CC0001")
	_, done, _ := p.CaptureLocation("A1")
	require.True(t, done)

	_, done, err := p.CaptureLocation("A2")
	require.NoError(t, err)
	assert.False(t, done)
	assert.Equal(t, State{Kind: LocationPending, Value: "A2", Since: p.State().Since}, p.State())
}

func TestPairer_SameSideOverwrites(t *testing.T) {
	p := NewPairer()
	_, _, _ = p.CaptureMachine("CC0001")
	_, done, _ := p.CaptureMachine("CC0002")
	assert.False(t, done)

	pair, done, _ := p.CaptureLocation("B7")
	require.True(t, done)
	assert.Equal(t, "CC0002", pair.MachineID)
}

func TestPairer_InvalidCaptureKeepsState(t *testing.T) {
	p := NewPairer()
	_, _, _ = p.CaptureLocation("A3")
	before := p.State()

	_, done, err := p.CaptureMachine("cc0012")
	assert.ErrorIs(t, err, parse.ErrInvalidMachineID)
	assert.False(t, done)
	assert.Equal(t, before, p.State())

	_, _, err = p.CaptureLocation("   ")
	assert.ErrorIs(t, err, parse.ErrInvalidLocationID)
	assert.Equal(t, before, p.State())
}

func TestPairer_TrimsCapturedText(t *testing.T) {
	p := NewPairer()
	_, _, _ = p.CaptureLocation("  A3\n")
	pair, done, err := p.CaptureMachine(" CC0099 ")
	require.NoError(t, err)
	require.True(t, done)
	assert.Equal(t, Pair{MachineID: "CC0099", LocationID: "A3"}, pair)
}

func TestPairer_CancelFromAnyState(t *testing.T) {
	for _, setup := range []func(*Pairer){
		func(*Pairer) {},
		func(p *Pairer) { _, _, _ = p.CaptureLocation("A1") },
		func(p *Pairer) { _, _, _ = p.CaptureMachine("CC0001") },
	} {
		p := NewPairer()
		setup(p)
		p.Cancel()
		assert.Equal(t, State{}, p.State())

		_, done, _ := p.CaptureLocation("A2")
		assert.False(t, done, "cancel must not leave anything to pair with")
	}
}

func TestPairer_ExplicitPairLeavesPendingAlone(t *testing.T) {
	p := NewPairer()
	_, _, _ = p.CaptureLocation("A1")
	before := p.State()

	pair, err := p.ExplicitPair(" CC0005", "B2 ")
	require.NoError(t, err)
	assert.Equal(t, Pair{MachineID: "CC0005", LocationID: "B2"}, pair)
	assert.Equal(t, before, p.State())

	_, err = p.ExplicitPair("CC5", "B2")
	assert.ErrorIs(t, err, parse.ErrInvalidMachineID)
	_, err = p.ExplicitPair("CC0005", "")
	assert.ErrorIs(t, err, parse.ErrInvalidLocationID)
}

func TestPairer_PendingTTL(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	p := NewPairer(WithPendingTTL(time.Minute), WithClock(func() time.Time { return now }))

	_, _, _ = p.CaptureMachine("CC0001")
	now = now.Add(30 * time.Second)
	assert.Equal(t, MachinePending, p.State().Kind)

	now = now.Add(31 * time.Second)
	assert.Equal(t, Empty, p.State().Kind)

	_, done, err := p.CaptureLocation("A1")
	require.NoError(t, err)
	assert.False(t, done, "a stale machine must not pair with a later location")
	assert.Equal(t, LocationPending, p.State().Kind)
}

func TestPairer_ZeroTTLNeverExpires(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	p := NewPairer(WithClock(func() time.Time { return now }))

	_, _, _ = p.CaptureLocation("A1")
	now = now.Add(365 * 24 * time.Hour)

	_, done, _ := p.CaptureMachine("CC0001")
	assert.True(t, done)
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "empty", Empty.String())
	assert.Equal(t, "location_pending", LocationPending.String())
	assert.Equal(t, "machine_pending", MachinePending.String())
}

func TestState_JSONRoundTrip(t *testing.T) {
	in := State{Kind: MachinePending, Value: "CC0001", Since: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
	data, err := json.Marshal(in)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"kind":"machine_pending"`)

	var out State
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, in, out)

	empty, err := json.Marshal(State{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"empty"}`, string(empty))

	var k Kind
	assert.Error(t, k.UnmarshalText([]byte("bogus")))
}

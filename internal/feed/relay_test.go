package feed

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ccstock-backend/internal/model"
)

func TestRelay_HandleRepublishesForeignPlacements(t *testing.T) {
	hub := NewHub()
	r := &Relay{origin: "self", hub: hub}

	var got []model.Placement
	hub.Subscribe(func(p model.Placement) { got = append(got, p) })

	foreign, err := json.Marshal(envelope{Origin: "other", Placement: placement(5, "CC0005")})
	require.NoError(t, err)
	own, err := json.Marshal(envelope{Origin: "self", Placement: placement(6, "CC0006")})
	require.NoError(t, err)

	require.NoError(t, r.handle(foreign))
	require.NoError(t, r.handle(own))

	require.Len(t, got, 1)
	assert.Equal(t, "CC0005", got[0].MachineID)
	assert.Equal(t, "A1", got[0].Location())
}

func TestRelay_ForeignPlacementsSkipLocalOnlyPublishers(t *testing.T) {
	hub := NewHub()
	var live []model.Placement
	hub.Subscribe(func(p model.Placement) { live = append(live, p) })

	pushes := &recorder{}
	local := Multi{hub, pushes}
	r := &Relay{origin: "instance-B", hub: hub}

	local.Publish(placement(1, "CC0001"))
	foreign, err := json.Marshal(envelope{Origin: "instance-A", Placement: placement(2, "CC0002")})
	require.NoError(t, err)
	require.NoError(t, r.handle(foreign))

	assert.Len(t, live, 2, "the hub sees local and relayed placements")
	require.Len(t, pushes.got, 1, "placements from other instances are pushed there")
	assert.Equal(t, "CC0001", pushes.got[0].MachineID)
}

func TestRelay_HandleRejectsMalformed(t *testing.T) {
	r := &Relay{origin: "self", hub: NewHub()}

	assert.Error(t, r.handle([]byte("not json")))
	assert.Error(t, r.handle([]byte(`{"origin":"x","placement":{}}`)))
}

func TestRelay_NilIsNoop(t *testing.T) {
	var r *Relay
	assert.NotPanics(t, func() {
		r.Publish(placement(1, "CC0001"))
		r.Close()
	})
}

func TestNewRelay_RequiresHub(t *testing.T) {
	_, err := NewRelay("nats://127.0.0.1:1", "S", "s", nil)
	assert.Error(t, err)
}

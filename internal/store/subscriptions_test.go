package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ccstock-backend/internal/model"
)

func TestSubscriptions_SaveReplacesFollowList(t *testing.T) {
	s := newSQLiteStore(t)
	subs := NewSubscriptions(s.DB())
	ctx := context.Background()
	_, err := s.UpsertMachines(ctx, []model.Machine{{ID: "CC0001"}, {ID: "CC0002"}})
	require.NoError(t, err)

	sub := model.PushSubscription{Endpoint: "https://push.example/1", P256DH: "k", Auth: "a"}
	kept, err := subs.Save(ctx, &sub, []string{"CC0002", "CC0404", "CC0001"})
	require.NoError(t, err)
	assert.Equal(t, []string{"CC0001", "CC0002"}, kept)

	rotated := model.PushSubscription{Endpoint: "https://push.example/1", P256DH: "k2", Auth: "a2"}
	kept, err = subs.Save(ctx, &rotated, []string{"CC0002"})
	require.NoError(t, err)
	assert.Equal(t, []string{"CC0002"}, kept)

	following, err := subs.Following(ctx, "https://push.example/1")
	require.NoError(t, err)
	assert.Equal(t, []string{"CC0002"}, following)

	var stored model.PushSubscription
	require.NoError(t, s.DB().First(&stored, "endpoint = ?", "https://push.example/1").Error)
	assert.Equal(t, "k2", stored.P256DH, "keys are rotated in place")
}

func TestSubscriptions_DeleteAndMissing(t *testing.T) {
	s := newSQLiteStore(t)
	subs := NewSubscriptions(s.DB())
	ctx := context.Background()
	_, err := s.UpsertMachines(ctx, []model.Machine{{ID: "CC0001"}})
	require.NoError(t, err)

	sub := model.PushSubscription{Endpoint: "e1", P256DH: "k", Auth: "a"}
	_, err = subs.Save(ctx, &sub, []string{"CC0001"})
	require.NoError(t, err)

	require.NoError(t, subs.Delete(ctx, "e1"))
	_, err = subs.Following(ctx, "e1")
	assert.ErrorIs(t, err, ErrNotFound)

	var links int64
	require.NoError(t, s.DB().Table("subscription_machine_mapping").Count(&links).Error)
	assert.Zero(t, links)

	assert.NoError(t, subs.Delete(ctx, "never-existed"))
}

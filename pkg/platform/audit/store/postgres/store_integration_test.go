//go:build integration

package postgres

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"haven/pkg/domain"
	"haven/pkg/platform/audit"
	"haven/pkg/testutil/containers"
)

func TestPostgresStoreIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	pc := containers.NewPostgresContainer(t)

	store := New(pc.DB)
	require.NoError(t, store.EnsureSchema(ctx))

	t.Run("append and list newest first", func(t *testing.T) {
		for i := 0; i < 5; i++ {
			require.NoError(t, store.Append(ctx, audit.Entry{
				FromMode: domain.ModeNormal,
				ToMode:   domain.ModeStealth,
				Trigger:  "t" + strconv.Itoa(i),
				Outcome:  audit.OutcomeCommitted,
			}))
		}

		entries, err := store.ListRecent(ctx, 3)
		require.NoError(t, err)
		require.Len(t, entries, 3)
		assert.Equal(t, "t4", entries[0].Trigger)
		assert.Equal(t, "t2", entries[2].Trigger)
	})

	t.Run("round trips all fields", func(t *testing.T) {
		entry := audit.Entry{
			FromMode:  domain.ModeStealth,
			ToMode:    domain.ModeStealth,
			Trigger:   "emergency_trigger:button",
			Outcome:   audit.OutcomeCommitted,
			Reason:    "",
			RunID:     domain.NewRunID().String(),
			Device:    "iOS / Safari",
			RequestID: "req-123",
		}
		require.NoError(t, store.Append(ctx, entry))

		entries, err := store.ListRecent(ctx, 1)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		got := entries[0]
		assert.Equal(t, entry.Trigger, got.Trigger)
		assert.Equal(t, entry.RunID, got.RunID)
		assert.Equal(t, entry.Device, got.Device)
		assert.Equal(t, entry.RequestID, got.RequestID)
		assert.False(t, got.Timestamp.IsZero())
	})
}

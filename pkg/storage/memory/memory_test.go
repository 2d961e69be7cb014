package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evomem-labs/evomem-go/pkg/storage"
	memoryStore "github.com/evomem-labs/evomem-go/pkg/storage/memory"
)

func sampleState(userID string) *storage.MemoryState {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return &storage.MemoryState{
		UserID:                userID,
		Dimension:             3,
		Vector:                []float64{0.6, 0.8, 0},
		LastUpdateAt:          now,
		EventCount:            5,
		SignificantEventCount: 2,
		CreatedAt:             now.AddDate(0, 0, -7),
	}
}

func TestMemoryStateRoundTrip(t *testing.T) {
	store := memoryStore.NewStore()
	ctx := context.Background()

	require.NoError(t, store.SaveMemoryState(ctx, sampleState("u1")))

	loaded, err := store.LoadMemoryState(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, sampleState("u1"), loaded)
}

func TestMemoryStateNotFound(t *testing.T) {
	store := memoryStore.NewStore()

	_, err := store.LoadMemoryState(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestMemoryStateDelete(t *testing.T) {
	store := memoryStore.NewStore()
	ctx := context.Background()

	require.NoError(t, store.SaveMemoryState(ctx, sampleState("u1")))
	require.NoError(t, store.DeleteMemoryState(ctx, "u1"))

	_, err := store.LoadMemoryState(ctx, "u1")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	// Deleting an absent state is not an error.
	assert.NoError(t, store.DeleteMemoryState(ctx, "u1"))
}

func TestMemoryStateDefensiveCopies(t *testing.T) {
	store := memoryStore.NewStore()
	ctx := context.Background()

	original := sampleState("u1")
	require.NoError(t, store.SaveMemoryState(ctx, original))

	// Mutating the saved struct must not affect the stored copy.
	original.Vector[0] = 99

	loaded, err := store.LoadMemoryState(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 0.6, loaded.Vector[0])

	// Mutating a loaded vector must not affect later loads.
	loaded.Vector[1] = 99
	again, err := store.LoadMemoryState(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 0.8, again.Vector[1])
}

func TestThresholdRoundTrip(t *testing.T) {
	store := memoryStore.NewStore()
	ctx := context.Background()

	_, err := store.LoadThreshold(ctx, "u1")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	threshold := &storage.ThresholdState{
		UserID:    "u1",
		Theta:     0.62,
		UpdatedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.SaveThreshold(ctx, threshold))

	loaded, err := store.LoadThreshold(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, threshold, loaded)

	require.NoError(t, store.DeleteThreshold(ctx, "u1"))
	_, err = store.LoadThreshold(ctx, "u1")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestLedgerAbsentIsEmptyNotError(t *testing.T) {
	store := memoryStore.NewStore()

	ledger, err := store.LoadLedger(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Equal(t, "nobody", ledger.UserID)
	assert.Empty(t, ledger.Epsilons)
}

func TestLedgerAppendPreservesOrder(t *testing.T) {
	store := memoryStore.NewStore()
	ctx := context.Background()

	require.NoError(t, store.AppendLedger(ctx, "u1", 1.0))
	require.NoError(t, store.AppendLedger(ctx, "u1", 0.33, 0.05))

	ledger, err := store.LoadLedger(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []float64{1.0, 0.33, 0.05}, ledger.Epsilons)
}

func TestLedgersAreIsolatedPerUser(t *testing.T) {
	store := memoryStore.NewStore()
	ctx := context.Background()

	require.NoError(t, store.AppendLedger(ctx, "u1", 1.0))

	other, err := store.LoadLedger(ctx, "u2")
	require.NoError(t, err)
	assert.Empty(t, other.Epsilons)
}

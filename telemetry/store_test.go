package telemetry

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store := NewStore(filepath.Join(t.TempDir(), "telemetry.db"))
	require.NoError(t, store.Init(context.Background()))
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

func TestStoreLineage(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.SaveBirths(ctx, 0, []Birth{{Identifier: 0}, {Identifier: 1}}))
	require.NoError(t, store.SaveBirths(ctx, 1, []Birth{{
		Identifier: 0,
		ParentA:    &GenomeRef{Generation: 0, Identifier: 1},
		ParentB:    &GenomeRef{Generation: 0, Identifier: 0},
	}}))
	require.NoError(t, store.SaveDeaths(ctx, 0, []GenomeRef{{Generation: 0, Identifier: 1}}))

	individuals, err := store.Individuals(ctx)
	require.NoError(t, err)
	require.Len(t, individuals, 3)

	require.Nil(t, individuals[0].ParentA, "Initial individuals have no parents")
	require.Nil(t, individuals[0].KilledIn, "Survivor should not be marked dead")
	require.NotNil(t, individuals[1].KilledIn, "Killed individual should be marked")
	require.Equal(t, 0, *individuals[1].KilledIn)
	require.Equal(t, &GenomeRef{Generation: 0, Identifier: 1}, individuals[2].ParentA)
	require.Equal(t, &GenomeRef{Generation: 0, Identifier: 0}, individuals[2].ParentB)
}

func TestStoreFitnessAndReset(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.SaveFitness(ctx, 3, []Fitness{
		{Individual: GenomeRef{Generation: 2, Identifier: 4}, RawFitness: 1.5},
		{Individual: GenomeRef{Generation: 3, Identifier: 0}, RawFitness: 0.25},
	}))

	history, err := store.FitnessHistory(ctx)
	require.NoError(t, err)
	require.Equal(t, []FitnessRecord{
		{Individual: GenomeRef{Generation: 2, Identifier: 4}, Generation: 3, Fitness: 1.5},
		{Individual: GenomeRef{Generation: 3, Identifier: 0}, Generation: 3, Fitness: 0.25},
	}, history)

	require.NoError(t, store.SaveBirths(ctx, 0, []Birth{{Identifier: 0}}))
	require.NoError(t, store.Reset(ctx))

	history, err = store.FitnessHistory(ctx)
	require.NoError(t, err)
	require.Empty(t, history, "Reset should clear fitness history")
	individuals, err := store.Individuals(ctx)
	require.NoError(t, err)
	require.Empty(t, individuals, "Reset should clear lineage")
}

func TestStoreRequiresInit(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "telemetry.db"))

	err := store.Reset(context.Background())

	require.Error(t, err, "Writes before Init should fail")
	require.Error(t, NewStore("").Init(context.Background()), "Empty path should be rejected")
}

func TestStoreSink(t *testing.T) {
	t.Run("forwards events", func(t *testing.T) {
		store := newTestStore(t)
		sink := NewStoreSink(store)

		sink.Reset()
		sink.Birth(0, []Birth{{Identifier: 0}, {Identifier: 1}})
		sink.FitnessReport(0, []Fitness{{Individual: GenomeRef{Identifier: 0}, RawFitness: 2}})
		sink.Death(0, []GenomeRef{{Identifier: 1}})

		individuals, err := store.Individuals(context.Background())
		require.NoError(t, err)
		require.Len(t, individuals, 2)
		require.NotNil(t, individuals[1].KilledIn)
		require.True(t, sink.Enabled())
	})

	t.Run("failure disables the sink", func(t *testing.T) {
		store := newTestStore(t)
		sink := NewStoreSink(store)
		require.NoError(t, store.Close())

		sink.Birth(0, []Birth{{Identifier: 0}})
		require.False(t, sink.Enabled(), "Failed write should trip the latch")

		require.NoError(t, store.Init(context.Background()))
		sink.Birth(0, []Birth{{Identifier: 0}})
		individuals, err := store.Individuals(context.Background())
		require.NoError(t, err)
		require.Empty(t, individuals, "Disabled sink should not write again")
	})
}

func TestRecorder(t *testing.T) {
	r := NewRecorder()
	r.Reset()
	r.Birth(0, []Birth{{Identifier: 0}})
	r.Death(0, nil)

	require.Equal(t, []string{"reset", "birth", "death"}, r.Kinds())
}

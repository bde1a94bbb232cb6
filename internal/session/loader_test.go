package session

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/til/internal/fact"
	"github.com/roach88/til/internal/queryir"
	"github.com/roach88/til/internal/repository"
	"github.com/roach88/til/internal/testutil"
)

func TestLoader_StartSelectsAll(t *testing.T) {
	f := newFixture(t)
	mustStart(t, f)

	assert.Equal(t, "all", f.session.Loader.Selected())
	assert.Equal(t, Idle, f.session.Loader.State())
	assert.Equal(t, []string{"1", "2", "3"}, ids(f.session.Facts.Snapshot()))
}

func TestLoader_StartUsesConfiguredDefault(t *testing.T) {
	f := newFixture(t, WithDefaultCategory("society"))
	mustStart(t, f)

	assert.Equal(t, "society", f.session.Loader.Selected())
	assert.Equal(t, []string{"2", "3"}, ids(f.session.Facts.Snapshot()))
}

func TestLoader_SelectReplacesCollection(t *testing.T) {
	f := newFixture(t)
	mustStart(t, f)

	require.NoError(t, f.session.Loader.Select(context.Background(), "technology"))
	assert.Equal(t, []string{"1"}, ids(f.session.Facts.Snapshot()))

	require.NoError(t, f.session.Loader.Select(context.Background(), "history"))
	assert.Empty(t, f.session.Facts.Snapshot())
}

func TestLoader_RejectsUnknownCategory(t *testing.T) {
	f := newFixture(t)

	err := f.session.Loader.Select(context.Background(), "cooking")
	assert.ErrorIs(t, err, ErrUnknownCategory)
	assert.Equal(t, 0, f.remote.Calls(testutil.OpSelect))
	assert.Equal(t, "", f.session.Loader.Selected())
}

func TestLoader_FailureKeepsCollectionAndNotifies(t *testing.T) {
	f := newFixture(t)
	mustStart(t, f)
	before := f.session.Facts.Snapshot()

	f.remote.FailNext(testutil.OpSelect, errors.New("connection reset"))
	err := f.session.Loader.Select(context.Background(), "society")

	var remoteErr *repository.RemoteError
	require.ErrorAs(t, err, &remoteErr)
	assert.Equal(t, before, f.session.Facts.Snapshot())
	assert.Equal(t, []string{"1", "2", "3"}, ids(f.session.Facts.Snapshot()))
	assert.Equal(t, []string{NoticeLoadFailed}, f.notifier.Notices())
	assert.Equal(t, Idle, f.session.Loader.State())
}

func TestLoader_FirstLoadFailureLeavesEmpty(t *testing.T) {
	f := newFixture(t)
	f.remote.FailNext(testutil.OpSelect, errors.New("offline"))

	assert.Error(t, f.session.Loader.Start(context.Background()))
	assert.Empty(t, f.session.Facts.Snapshot())
	assert.Equal(t, Idle, f.session.Loader.State())
}

func TestLoader_LoadingWhileInFlight(t *testing.T) {
	f := newFixture(t)
	f.remote.Hold(testutil.OpSelect)

	var states []State
	cancel := f.session.Loader.OnState(func(s State) { states = append(states, s) })
	defer cancel()

	done := async(func() error { return f.session.Loader.Select(context.Background(), "science") })
	call := f.nextCall(t)
	assert.Equal(t, Loading, f.session.Loader.State())

	call.Release()
	require.NoError(t, wait(t, done))
	assert.Equal(t, Idle, f.session.Loader.State())
	assert.Equal(t, []State{Loading, Idle}, states)
}

func categoryOf(t *testing.T, call *testutil.Call) any {
	t.Helper()
	q, ok := call.Query.(queryir.Select)
	require.True(t, ok, "expected a select, got %T", call.Query)
	v, _ := queryir.Lookup(q.Filter, fact.ColumnCategory)
	return v
}

func TestLoader_OverlappingResultsApplyInCompletionOrder(t *testing.T) {
	f := newFixture(t)
	f.remote.Hold(testutil.OpSelect)
	ctx := context.Background()

	first := async(func() error { return f.session.Loader.Select(ctx, "technology") })
	older := f.nextCall(t)
	assert.Equal(t, "technology", categoryOf(t, older))

	second := async(func() error { return f.session.Loader.Select(ctx, "society") })
	newer := f.nextCall(t)
	assert.Equal(t, "society", categoryOf(t, newer))
	assert.Equal(t, "society", f.session.Loader.Selected())

	newer.Release()
	require.NoError(t, wait(t, second))
	assert.Equal(t, []string{"2", "3"}, ids(f.session.Facts.Snapshot()))
	assert.Equal(t, Loading, f.session.Loader.State(), "older load still in flight")

	older.Release()
	require.NoError(t, wait(t, first))
	assert.Equal(t, []string{"1"}, ids(f.session.Facts.Snapshot()), "late result overwrites")
	assert.Equal(t, Idle, f.session.Loader.State())
}

func TestLoader_DiscardStaleDropsSupersededResult(t *testing.T) {
	f := newFixture(t, WithDiscardStale())
	f.remote.Hold(testutil.OpSelect)
	ctx := context.Background()

	first := async(func() error { return f.session.Loader.Select(ctx, "technology") })
	older := f.nextCall(t)
	second := async(func() error { return f.session.Loader.Select(ctx, "society") })
	newer := f.nextCall(t)

	newer.Release()
	require.NoError(t, wait(t, second))
	older.Release()
	require.NoError(t, wait(t, first))

	assert.Equal(t, []string{"2", "3"}, ids(f.session.Facts.Snapshot()))
	assert.Equal(t, Idle, f.session.Loader.State())
}

func TestLoader_DiscardStaleSilencesSupersededFailure(t *testing.T) {
	f := newFixture(t, WithDiscardStale())
	f.remote.Hold(testutil.OpSelect)
	ctx := context.Background()

	first := async(func() error { return f.session.Loader.Select(ctx, "technology") })
	older := f.nextCall(t)
	second := async(func() error { return f.session.Loader.Select(ctx, "society") })
	newer := f.nextCall(t)

	newer.Release()
	require.NoError(t, wait(t, second))
	older.Fail(errors.New("timeout"))
	assert.Error(t, wait(t, first))

	assert.Empty(t, f.notifier.Notices())
	assert.Equal(t, []string{"2", "3"}, ids(f.session.Facts.Snapshot()))
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "loading", Loading.String())
	assert.Equal(t, "State(9)", State(9).String())
}

package testutil

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/til/internal/fact"
	"github.com/roach88/til/internal/queryir"
)

func seedRemote() *FakeRemote {
	return NewFakeRemote(
		fact.Fact{ID: "1", Text: "a", Category: "society", VotesInteresting: 3},
		fact.Fact{ID: "2", Text: "b", Category: "science", VotesInteresting: 9},
		fact.Fact{ID: "3", Text: "c", Category: "society", VotesInteresting: 3},
	)
}

func TestFakeRemote_SelectFiltersAndOrders(t *testing.T) {
	r := seedRemote()

	got, err := r.Select(context.Background(), queryir.Select{
		From:    "facts",
		OrderBy: []queryir.Order{{Field: fact.ColumnVotesInteresting, Descending: true}},
	})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "2", got[0].ID)
	assert.Equal(t, "1", got[1].ID)
	assert.Equal(t, "3", got[2].ID)

	got, err = r.Select(context.Background(), queryir.Select{
		From:   "facts",
		Filter: queryir.Eq(fact.ColumnCategory, "society"),
		Limit:  1,
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "1", got[0].ID)
	assert.Equal(t, 2, r.Calls(OpSelect))
}

func TestFakeRemote_InsertAssignsID(t *testing.T) {
	r := NewFakeRemote()

	got, err := r.Insert(context.Background(), queryir.Insert{
		Into: "facts",
		Values: []queryir.Assignment{
			{Field: fact.ColumnID, Value: "ignored"},
			{Field: fact.ColumnText, Value: "t"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "new-1", got.ID)
	assert.Equal(t, 2026, got.CreatedIn)
	assert.Len(t, r.Facts(), 1)
}

func TestFakeRemote_UpdateEchoesRow(t *testing.T) {
	r := seedRemote()

	got, err := r.Update(context.Background(), queryir.Update{
		Table:  "facts",
		Set:    []queryir.Assignment{{Field: fact.ColumnVotesFalse, Value: int64(4)}},
		Filter: queryir.Eq(fact.ColumnID, "3"),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(4), got.VotesFalse)

	stored, ok := r.Get("3")
	require.True(t, ok)
	assert.Equal(t, int64(4), stored.VotesFalse)

	_, err = r.Update(context.Background(), queryir.Update{
		Table:  "facts",
		Set:    []queryir.Assignment{{Field: fact.ColumnVotesFalse, Value: int64(1)}},
		Filter: queryir.Eq(fact.ColumnID, "missing"),
	})
	assert.ErrorIs(t, err, ErrNoRow)
}

func TestFakeRemote_FailNext(t *testing.T) {
	r := seedRemote()
	boom := errors.New("boom")
	r.FailNext(OpSelect, boom)

	_, err := r.Select(context.Background(), queryir.Select{From: "facts"})
	assert.ErrorIs(t, err, boom)

	_, err = r.Select(context.Background(), queryir.Select{From: "facts"})
	assert.NoError(t, err)
}

func TestFakeRemote_HoldAndRelease(t *testing.T) {
	r := seedRemote()
	r.Hold(OpSelect)

	done := make(chan error, 1)
	go func() {
		_, err := r.Select(context.Background(), queryir.Select{From: "facts"})
		done <- err
	}()

	call := <-r.Pending()
	assert.Equal(t, OpSelect, call.Op)
	select {
	case <-done:
		t.Fatal("held call returned before release")
	default:
	}

	call.Release()
	assert.NoError(t, <-done)
}

func TestFakeRemote_HeldCallFails(t *testing.T) {
	r := seedRemote()
	r.Hold(OpUpdate)
	boom := errors.New("offline")

	done := make(chan error, 1)
	go func() {
		_, err := r.Update(context.Background(), queryir.Update{
			Table:  "facts",
			Set:    []queryir.Assignment{{Field: fact.ColumnVotesFalse, Value: int64(1)}},
			Filter: queryir.Eq(fact.ColumnID, "1"),
		})
		done <- err
	}()

	(<-r.Pending()).Fail(boom)
	assert.ErrorIs(t, <-done, boom)

	stored, _ := r.Get("1")
	assert.Equal(t, int64(0), stored.VotesFalse)
}

func TestRecordingNotifier(t *testing.T) {
	var n RecordingNotifier
	assert.Empty(t, n.Notices())

	n.Notice("first")
	n.Notice("second")
	assert.Equal(t, []string{"first", "second"}, n.Notices())
}

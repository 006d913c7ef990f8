package data

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/workmarket/internal/core"
	"github.com/target/workmarket/internal/domain/model"
	apperrors "github.com/target/workmarket/internal/errors"
	"github.com/target/workmarket/internal/testutil"
)

// The contract tests run against every implementation of a port, so the memory
// repositories stay interchangeable with the Postgres ones.

func testEventRepoContract(t *testing.T, repo core.JobEventRepository) {
	t.Helper()
	ctx := context.Background()
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	jobA := uuid.NewString()
	jobB := uuid.NewString()
	seqA := testutil.NewEventSequence(jobA, start).Created("Job A", "creator", 5).Claimed("agent-1").Events()
	seqB := testutil.NewEventSequence(jobB, start).Created("Job B", "creator", 7).Events()

	t.Run("append assigns increasing seq", func(t *testing.T) {
		require.NoError(t, repo.Append(ctx, seqA[0]))
		require.NoError(t, repo.Append(ctx, seqB[0]))
		require.NoError(t, repo.Append(ctx, seqA[1]))
		assert.Less(t, seqA[0].Seq, seqB[0].Seq)
		assert.Less(t, seqB[0].Seq, seqA[1].Seq)
	})

	t.Run("list by job in version order", func(t *testing.T) {
		events, err := repo.ListByJob(ctx, jobA)
		require.NoError(t, err)
		require.Len(t, events, 2)
		assert.Equal(t, model.EventCreated, events[0].Type)
		assert.Equal(t, model.EventClaimed, events[1].Type)
		assert.Equal(t, "agent-1", events[1].Actor)
		assert.JSONEq(t, string(seqA[1].Data), string(events[1].Data))
		assert.True(t, seqA[1].CreatedAt.Equal(events[1].CreatedAt))
	})

	t.Run("list all in append order", func(t *testing.T) {
		events, err := repo.ListAll(ctx)
		require.NoError(t, err)
		require.Len(t, events, 3)
		assert.Equal(t, []string{jobA, jobB, jobA}, []string{events[0].JobID, events[1].JobID, events[2].JobID})
	})

	t.Run("stale version is a conflict", func(t *testing.T) {
		dup, err := model.NewJobEvent(jobA, 2, model.EventCancelled, "admin", model.CancelledData{By: "admin"}, start)
		require.NoError(t, err)
		err = repo.Append(ctx, dup)
		require.Error(t, err)
		assert.True(t, apperrors.IsVersionConflict(err), "got %v", err)

		events, err := repo.ListByJob(ctx, jobA)
		require.NoError(t, err)
		assert.Len(t, events, 2)
	})

	t.Run("skipping a version is a conflict", func(t *testing.T) {
		gap, err := model.NewJobEvent(jobB, 3, model.EventCancelled, "admin", model.CancelledData{By: "admin"}, start)
		require.NoError(t, err)
		assert.True(t, apperrors.IsVersionConflict(repo.Append(ctx, gap)))
	})

	t.Run("batch append is atomic", func(t *testing.T) {
		claimed, err := model.NewJobEvent(jobB, 2, model.EventClaimed, "agent-2", model.ClaimedData{Agent: "agent-2"}, start)
		require.NoError(t, err)
		submitted, err := model.NewJobEvent(jobB, 3, model.EventSubmitted, "agent-2",
			model.SubmittedData{Agent: "agent-2", Submission: "done"}, start)
		require.NoError(t, err)
		require.NoError(t, repo.Append(ctx, claimed, submitted))

		events, err := repo.ListByJob(ctx, jobB)
		require.NoError(t, err)
		assert.Len(t, events, 3)
	})

	t.Run("invalid batches are rejected", func(t *testing.T) {
		require.ErrorIs(t, repo.Append(ctx), ErrNoEvents)

		e1, _ := model.NewJobEvent(jobA, 3, model.EventSubmitted, "agent-1", model.SubmittedData{}, start)
		e2, _ := model.NewJobEvent(jobB, 4, model.EventReviewed, "admin", model.ReviewedData{}, start)
		require.Error(t, repo.Append(ctx, e1, e2))
	})
}

func testLedgerRepoContract(t *testing.T, repo core.LedgerRepository) {
	t.Helper()
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	entry := func(typ model.EntryType, from, to string, amount float64, ref string) *model.EconomyEntry {
		return &model.EconomyEntry{
			ID: uuid.NewString(), Type: typ, Amount: amount,
			FromID: from, ToID: to, RefKey: ref, CreatedAt: now,
		}
	}

	t.Run("balances are derived", func(t *testing.T) {
		ok, err := repo.Append(ctx, entry(model.EntryGenesis, "", "alice", 100, "genesis:alice"))
		require.NoError(t, err)
		assert.True(t, ok)
		_, err = repo.Append(ctx, entry(model.EntryTransfer, "alice", "bob", 30.25, ""))
		require.NoError(t, err)
		_, err = repo.Append(ctx, entry(model.EntryAward, "treasury", "bob", 5, "settle:j1:award"))
		require.NoError(t, err)

		alice, err := repo.Balance(ctx, "alice")
		require.NoError(t, err)
		assert.InDelta(t, 69.75, alice, 1e-9)
		bob, err := repo.Balance(ctx, "bob")
		require.NoError(t, err)
		assert.InDelta(t, 35.25, bob, 1e-9)
		nobody, err := repo.Balance(ctx, "nobody")
		require.NoError(t, err)
		assert.Zero(t, nobody)
	})

	t.Run("duplicate ref key is skipped", func(t *testing.T) {
		ok, err := repo.Append(ctx, entry(model.EntryAward, "treasury", "bob", 5, "settle:j1:award"))
		require.NoError(t, err)
		assert.False(t, ok)

		bob, err := repo.Balance(ctx, "bob")
		require.NoError(t, err)
		assert.InDelta(t, 35.25, bob, 1e-9)

		has, err := repo.HasRef(ctx, "settle:j1:award")
		require.NoError(t, err)
		assert.True(t, has)
		has, err = repo.HasRef(ctx, "settle:j2:award")
		require.NoError(t, err)
		assert.False(t, has)
	})

	t.Run("entries without ref key never collide", func(t *testing.T) {
		for range 2 {
			ok, err := repo.Append(ctx, entry(model.EntryTransfer, "alice", "carol", 1, ""))
			require.NoError(t, err)
			assert.True(t, ok)
		}
	})

	t.Run("list by account newest first", func(t *testing.T) {
		entries, err := repo.ListByAccount(ctx, "alice", 0)
		require.NoError(t, err)
		require.Len(t, entries, 4)
		assert.Equal(t, model.EntryGenesis, entries[3].Type)
		for i := 1; i < len(entries); i++ {
			assert.Greater(t, entries[i-1].Seq, entries[i].Seq)
		}

		limited, err := repo.ListByAccount(ctx, "alice", 1)
		require.NoError(t, err)
		require.Len(t, limited, 1)
		assert.Equal(t, "carol", limited[0].ToID)
	})

	t.Run("list all matches fold", func(t *testing.T) {
		all, err := repo.ListAll(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 5)
		assert.InDelta(t, 67.75, model.Balance(all, "alice"), 1e-9)
		assert.Equal(t, "genesis:alice", all[0].RefKey)
	})

	t.Run("invalid entries", func(t *testing.T) {
		_, err := repo.Append(ctx, nil)
		require.ErrorIs(t, err, ErrNilEntry)
		_, err = repo.Append(ctx, entry("bogus", "", "alice", 1, ""))
		assert.True(t, apperrors.IsValidation(err))
		_, err = repo.Append(ctx, entry(model.EntryTransfer, "alice", "bob", -1, ""))
		assert.True(t, apperrors.Is(err, apperrors.ErrCodeInvalidAmount))
	})
}

func testNoteRepoContract(t *testing.T, repo core.NoteRepository) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	for i, msg := range []string{"first", "second", "third"} {
		require.NoError(t, repo.Create(ctx, &model.OperatorNote{
			ID:         uuid.NewString(),
			Kind:       "redo_cap_reached",
			Importance: model.ImportanceHigh,
			RootJobID:  "root-1",
			JobID:      "job-" + msg,
			Message:    msg,
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.ErrorIs(t, repo.Create(ctx, nil), ErrNilNote)

	notes, err := repo.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.Equal(t, "third", notes[0].Message)
	assert.Equal(t, "second", notes[1].Message)
	assert.Equal(t, model.ImportanceHigh, notes[0].Importance)
	assert.Equal(t, "root-1", notes[0].RootJobID)

	all, err := repo.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

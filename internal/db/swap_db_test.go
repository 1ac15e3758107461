package db

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/desmond009/Twin-up/internal/models"
)

var swapRowColumns = []string{
	"id", "from_user_id", "to_user_id", "skills_offered", "skills_requested", "message",
	"status", "feedback_from_user", "feedback_to_user", "accepted_at", "completed_at",
	"created_at", "updated_at",
}

func swapRow(id, from, to uuid.UUID, status models.SwapStatus) *pgxmock.Rows {
	now := fixedNow
	return pgxmock.NewRows(swapRowColumns).AddRow(
		id, from, to, []string{"Go"}, []string{"Guitar"}, "Let's swap",
		string(status), false, false, &now, nil, now, now,
	)
}

func TestSwapStore_Transition(t *testing.T) {
	id, from, to := uuid.New(), uuid.New(), uuid.New()

	t.Run("accepted", func(t *testing.T) {
		mock := newMock(t)
		store := NewSwapStore(mock)

		mock.ExpectQuery(sqlText("SET status = $1, updated_at = $2, accepted_at = $3")).
			WithArgs("accepted", fixedNow, fixedNow, id, "pending").
			WillReturnRows(swapRow(id, from, to, models.SwapAccepted))

		sw, err := store.Transition(context.Background(), id, models.SwapPending, models.SwapAccepted, fixedNow)
		require.NoError(t, err)
		assert.Equal(t, models.SwapAccepted, sw.Status)
		require.NotNil(t, sw.AcceptedAt)
	})

	t.Run("lost race on accept", func(t *testing.T) {
		mock := newMock(t)
		store := NewSwapStore(mock)

		mock.ExpectQuery(sqlText("UPDATE swap_requests AS s")).
			WithArgs("accepted", fixedNow, fixedNow, id, "pending").
			WillReturnError(pgx.ErrNoRows)

		_, err := store.Transition(context.Background(), id, models.SwapPending, models.SwapAccepted, fixedNow)
		assert.ErrorIs(t, err, models.ErrInvalidState)
		assert.EqualError(t, err, "Swap request is not pending")
	})

	t.Run("lost race on complete", func(t *testing.T) {
		mock := newMock(t)
		store := NewSwapStore(mock)

		mock.ExpectQuery(sqlText("completed_at = $3")).
			WithArgs("completed", fixedNow, fixedNow, id, "accepted").
			WillReturnError(pgx.ErrNoRows)

		_, err := store.Transition(context.Background(), id, models.SwapAccepted, models.SwapCompleted, fixedNow)
		assert.ErrorIs(t, err, models.ErrInvalidState)
		assert.EqualError(t, err, "Swap must be accepted before completion")
	})
}

func TestSwapStore_CreateDuplicatePending(t *testing.T) {
	mock := newMock(t)
	store := NewSwapStore(mock)
	from, to := uuid.New(), uuid.New()

	mock.ExpectQuery(sqlText("INSERT INTO swap_requests")).
		WithArgs(pgxmock.AnyArg(), from, to, []string{"Go"}, []string{"Guitar"}, "Let's swap", fixedNow).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "swap_requests_one_pending_idx"})

	_, err := store.Create(context.Background(), models.NewSwap{
		FromUserID:      from,
		ToUserID:        to,
		SkillsOffered:   []string{" Go "},
		SkillsRequested: []string{"Guitar"},
		Message:         "Let's swap",
	}, fixedNow)

	assert.ErrorIs(t, err, models.ErrConflict)
	assert.EqualError(t, err, "You already have a pending swap request with this user")
}

func TestSwapStore_MarkFeedbackSubmitted(t *testing.T) {
	id := uuid.New()

	t.Run("first submission", func(t *testing.T) {
		mock := newMock(t)
		store := NewSwapStore(mock)

		mock.ExpectExec(sqlText("UPDATE swap_requests SET feedback_from_user = $1")).
			WithArgs(true, false, id, "completed").
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		assert.NoError(t, store.MarkFeedbackSubmitted(context.Background(), id, models.DirectionFromUser))
	})

	t.Run("already submitted", func(t *testing.T) {
		mock := newMock(t)
		store := NewSwapStore(mock)

		mock.ExpectExec(sqlText("feedback_to_user = $1")).
			WithArgs(true, false, id, "completed").
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := store.MarkFeedbackSubmitted(context.Background(), id, models.DirectionToUser)
		assert.ErrorIs(t, err, models.ErrInvalidState)
		assert.EqualError(t, err, "You have already submitted feedback for this swap")
	})
}

func TestSwapStore_DeleteOwn(t *testing.T) {
	mock := newMock(t)
	store := NewSwapStore(mock)
	id := uuid.New()

	mock.ExpectExec(sqlText("DELETE FROM swap_requests WHERE id = $1 AND status IN ('pending', 'cancelled')")).
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	err := store.DeleteOwn(context.Background(), id)
	assert.ErrorIs(t, err, models.ErrInvalidState)
}

func TestSwapStore_Stats(t *testing.T) {
	mock := newMock(t)
	store := NewSwapStore(mock)
	userID := uuid.New()

	mock.ExpectQuery(sqlText("SELECT status, COUNT(*) FROM swap_requests")).
		WithArgs(userID, userID).
		WillReturnRows(pgxmock.NewRows([]string{"status", "count"}).
			AddRow("pending", 2).
			AddRow("completed", 3))

	stats, err := store.Stats(context.Background(), &userID)
	require.NoError(t, err)
	assert.Equal(t, models.SwapStats{Total: 5, Pending: 2, Completed: 3}, stats)
}

func TestSwapStore_GetByIDNotFound(t *testing.T) {
	mock := newMock(t)
	store := NewSwapStore(mock)
	id := uuid.New()

	mock.ExpectQuery(sqlText("FROM swap_requests s JOIN accounts fu")).
		WithArgs(id).
		WillReturnError(pgx.ErrNoRows)

	_, err := store.GetByID(context.Background(), id)
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.EqualError(t, err, "Swap request not found")
}

package db

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/desmond009/Twin-up/internal/models"
)

var feedbackRowColumns = []string{
	"id", "account_id", "from_user_id", "from_user_name", "from_user_photo", "to_user_name",
	"swap_id", "stars", "comment", "created_at", "updated_at",
}

func TestAccountStore_AddFeedback(t *testing.T) {
	mock := newMock(t)
	store := NewAccountStore(mock)
	target, rater, swapID := uuid.New(), uuid.New(), uuid.New()

	fb := &models.Feedback{
		AccountID:  target,
		FromUserID: rater,
		SwapID:     &swapID,
		Stars:      4,
		Comment:    "Great mentor",
		CreatedAt:  fixedNow,
	}

	mock.ExpectExec(sqlText("SET rating_sum = a.rating_sum + $8, rating_count = a.rating_count + $9")).
		WithArgs(pgxmock.AnyArg(), target, rater, &swapID, 4, "Great mentor", fixedNow, 4, 1).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, store.AddFeedback(context.Background(), fb))
	assert.NotEqual(t, uuid.Nil, fb.ID)
	assert.Equal(t, fixedNow, fb.UpdatedAt)
}

func TestAccountStore_ReviseFeedbackAppliesDelta(t *testing.T) {
	mock := newMock(t)
	store := NewAccountStore(mock)
	later := fixedNow.Add(time.Hour)

	fb := &models.Feedback{ID: uuid.New(), Stars: 5, Comment: "Great", CreatedAt: fixedNow}

	mock.ExpectExec(sqlText("UPDATE feedback SET stars = $2, comment = $3, updated_at = $4")).
		WithArgs(fb.ID, 2, "Changed my mind", later, -3, 0).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, store.ReviseFeedback(context.Background(), fb, 2, "Changed my mind", later))
	assert.Equal(t, 2, fb.Stars)
	assert.Equal(t, "Changed my mind", fb.Comment)
	assert.Equal(t, later, fb.UpdatedAt)
}

func TestAccountStore_RemoveFeedbackAppliesDelta(t *testing.T) {
	mock := newMock(t)
	store := NewAccountStore(mock)
	fb := &models.Feedback{ID: uuid.New(), Stars: 3}

	mock.ExpectExec(sqlText("DELETE FROM feedback WHERE id = $1 RETURNING account_id")).
		WithArgs(fb.ID, -3, -1, fixedNow).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	assert.NoError(t, store.RemoveFeedback(context.Background(), fb, fixedNow))
}

func TestAccountStore_GetFeedbackForUpdate(t *testing.T) {
	mock := newMock(t)
	store := NewAccountStore(mock)
	id, target, rater := uuid.New(), uuid.New(), uuid.New()

	mock.ExpectQuery(sqlText("WHERE f.id = $1 FOR UPDATE OF f")).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows(feedbackRowColumns).AddRow(
			id, target, rater, "Ann", "", "Bob", nil, 5, "Great", fixedNow, fixedNow,
		))

	fb, err := store.GetFeedback(context.Background(), id, true)
	require.NoError(t, err)
	assert.Equal(t, "Ann", fb.FromUserName)
	assert.Equal(t, "Bob", fb.ToUserName)
	assert.Nil(t, fb.SwapID)
	assert.Equal(t, 5, fb.Stars)
}

func TestAccountStore_GetFeedbackMissing(t *testing.T) {
	mock := newMock(t)
	store := NewAccountStore(mock)
	id := uuid.New()

	mock.ExpectQuery(sqlText("WHERE f.id = $1")).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows(feedbackRowColumns))

	_, err := store.GetFeedback(context.Background(), id, false)
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.EqualError(t, err, "Feedback not found")
}

package db

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/desmond009/Twin-up/internal/models"
)

var accountRowColumns = []string{
	"id", "name", "email", "password_hash", "telegram_id", "location", "profile_photo",
	"skills_offered", "skills_wanted", "availability", "is_public", "rating_sum", "rating_count",
	"is_banned", "ban_reason", "is_verified", "last_active", "created_at", "updated_at",
}

func accountRow(id uuid.UUID, name string, sum, count int) *pgxmock.Rows {
	return pgxmock.NewRows(accountRowColumns).AddRow(
		id, name, "ann@example.com", "hash", nil, "Berlin", "",
		[]string{"Go"}, []string{"Guitar"}, "busy", true, sum, count,
		false, "", false, fixedNow, fixedNow, fixedNow,
	)
}

func TestAccountStore_GetByID(t *testing.T) {
	id := uuid.New()

	t.Run("found", func(t *testing.T) {
		mock := newMock(t)
		store := NewAccountStore(mock)

		mock.ExpectQuery(sqlText("FROM accounts WHERE id = $1")).
			WithArgs(id).
			WillReturnRows(accountRow(id, "Ann", 9, 2))

		a, err := store.GetByID(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, "Ann", a.Name)
		assert.Equal(t, models.Busy, a.Availability)
		assert.Equal(t, 4.5, a.AverageRating())
		assert.Nil(t, a.TelegramID)
	})

	t.Run("not found", func(t *testing.T) {
		mock := newMock(t)
		store := NewAccountStore(mock)

		mock.ExpectQuery(sqlText("FROM accounts WHERE id = $1")).
			WithArgs(id).
			WillReturnError(pgx.ErrNoRows)

		_, err := store.GetByID(context.Background(), id)
		assert.ErrorIs(t, err, models.ErrNotFound)
	})
}

func TestAccountStore_DeleteCascade(t *testing.T) {
	mock := newMock(t)
	store := NewAccountStore(mock)
	tm := NewTxManager(mock)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(sqlText("DELETE FROM feedback WHERE from_user_id = $1 RETURNING account_id, stars")).
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 2))
	mock.ExpectExec(sqlText("DELETE FROM notifications WHERE user_id = $1")).
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("DELETE", 4))
	mock.ExpectExec(sqlText("DELETE FROM swap_requests WHERE from_user_id = $1 OR to_user_id = $1")).
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))
	mock.ExpectExec(sqlText("DELETE FROM accounts WHERE id = $1")).
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectCommit()

	err := tm.RunInTx(context.Background(), func(ctx context.Context) error {
		return store.Delete(ctx, id)
	})
	assert.NoError(t, err)
}

func TestAccountStore_DeleteMissingRollsBack(t *testing.T) {
	mock := newMock(t)
	store := NewAccountStore(mock)
	tm := NewTxManager(mock)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(sqlText("DELETE FROM feedback")).WithArgs(id).WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectExec(sqlText("DELETE FROM notifications")).WithArgs(id).WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec(sqlText("DELETE FROM swap_requests")).WithArgs(id).WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec(sqlText("DELETE FROM accounts")).WithArgs(id).WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectRollback()

	err := tm.RunInTx(context.Background(), func(ctx context.Context) error {
		return store.Delete(ctx, id)
	})
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestAccountStore_SearchExcludesCaller(t *testing.T) {
	mock := newMock(t)
	store := NewAccountStore(mock)
	caller, other := uuid.New(), uuid.New()

	mock.ExpectQuery(sqlText("SELECT COUNT(*) FROM accounts WHERE")).
		WithArgs(false, true, caller, "%guitar%", "%guitar%", "%guitar%", "%guitar%").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(sqlText("ORDER BY CASE WHEN rating_count = 0")).
		WithArgs(false, true, caller, "%guitar%", "%guitar%", "%guitar%", "%guitar%").
		WillReturnRows(accountRow(other, "Bob", 5, 1))

	accounts, total, err := store.Search(context.Background(), models.AccountSearch{
		Query:     "guitar",
		ExcludeID: &caller,
		Page:      models.NewPage(1, 10, 10),
	})

	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, accounts, 1)
	assert.Equal(t, other, accounts[0].ID)
}

func TestAccountStore_SetPasswordMissing(t *testing.T) {
	mock := newMock(t)
	store := NewAccountStore(mock)
	id := uuid.New()

	mock.ExpectExec(sqlText("UPDATE accounts SET password_hash = $2")).
		WithArgs(id, "new-hash").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := store.SetPassword(context.Background(), id, "new-hash")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

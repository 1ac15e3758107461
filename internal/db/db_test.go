package db

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/desmond009/Twin-up/internal/models"
)

var fixedNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		mock.Close()
	})
	return mock
}

func sqlText(s string) string {
	return regexp.QuoteMeta(s)
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"no rows", pgx.ErrNoRows, models.ErrNotFound},
		{"unique", &pgconn.PgError{Code: "23505"}, models.ErrConflict},
		{"foreign key", &pgconn.PgError{Code: "23503"}, models.ErrNotFound},
		{"check", &pgconn.PgError{Code: "23514"}, models.ErrValidation},
		{"deadline", context.DeadlineExceeded, context.DeadlineExceeded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, mapError(tt.err, "account"), tt.want)
		})
	}

	assert.NoError(t, mapError(nil, "account"))

	other := errors.New("boom")
	assert.ErrorIs(t, mapError(other, "account"), other)
}

func TestTxManager_CommitsOnSuccess(t *testing.T) {
	mock := newMock(t)
	tm := NewTxManager(mock)
	store := NewNotificationStore(mock)

	mock.ExpectBegin()
	mock.ExpectExec(sqlText("DELETE FROM notifications WHERE read AND created_at < $1")).
		WithArgs(pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))
	mock.ExpectCommit()

	var removed int64
	err := tm.RunInTx(context.Background(), func(ctx context.Context) error {
		var err error
		removed, err = store.DeleteReadOlderThan(ctx, fixedNow)
		return err
	})

	require.NoError(t, err)
	assert.Equal(t, int64(3), removed)
}

func TestTxManager_RollsBackOnError(t *testing.T) {
	mock := newMock(t)
	tm := NewTxManager(mock)
	failure := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := tm.RunInTx(context.Background(), func(ctx context.Context) error {
		return failure
	})

	assert.ErrorIs(t, err, failure)
}

func TestTxManager_RollsBackOnPanic(t *testing.T) {
	mock := newMock(t)
	tm := NewTxManager(mock)

	mock.ExpectBegin()
	mock.ExpectRollback()

	assert.Panics(t, func() {
		_ = tm.RunInTx(context.Background(), func(ctx context.Context) error {
			panic("boom")
		})
	})
}

func TestLikePattern(t *testing.T) {
	assert.Equal(t, "%go%", likePattern("go"))
	assert.Equal(t, `%50\%\_off\\%`, likePattern(`50%_off\`))
}

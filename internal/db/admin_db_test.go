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

var adminRowColumns = []string{
	"id", "name", "email", "password_hash", "role", "permissions", "is_active",
	"login_attempts", "lock_until", "last_login", "created_at", "updated_at",
}

func TestAdminStore_RegisterFailedLoginLocks(t *testing.T) {
	mock := newMock(t)
	store := NewAdminStore(mock)
	id := uuid.New()
	lockUntil := fixedNow.Add(models.LoginLockPeriod)

	mock.ExpectQuery(sqlText("login_attempts = CASE")).
		WithArgs(id, fixedNow, models.MaxLoginAttempts, (2 * time.Hour).Seconds()).
		WillReturnRows(pgxmock.NewRows(adminRowColumns).AddRow(
			id, "Root", "root@example.com", "hash", "moderator", []string{"view_reports"}, true,
			5, &lockUntil, nil, fixedNow, fixedNow,
		))

	a, err := store.RegisterFailedLogin(context.Background(), id, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, 5, a.LoginAttempts)
	assert.True(t, a.IsLocked(fixedNow))
	assert.False(t, a.IsLocked(fixedNow.Add(2*time.Hour)))
	assert.Equal(t, []models.Permission{models.PermViewReports}, a.Permissions)
}

func TestAdminStore_RegisterSuccessfulLogin(t *testing.T) {
	mock := newMock(t)
	store := NewAdminStore(mock)
	id := uuid.New()

	mock.ExpectExec(sqlText("SET login_attempts = 0, lock_until = NULL, last_login = $2")).
		WithArgs(id, fixedNow).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	assert.NoError(t, store.RegisterSuccessfulLogin(context.Background(), id, fixedNow))
}

func TestAdminStore_DeleteMissing(t *testing.T) {
	mock := newMock(t)
	store := NewAdminStore(mock)
	id := uuid.New()

	mock.ExpectExec(sqlText("DELETE FROM admins WHERE id = $1")).
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	err := store.Delete(context.Background(), id)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

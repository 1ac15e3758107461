package db

import (
	"context"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/desmond009/Twin-up/internal/models"
)

var adminColumns = []string{
	"id", "name", "email", "password_hash", "role", "permissions", "is_active",
	"login_attempts", "lock_until", "last_login", "created_at", "updated_at",
}

var adminReturning = "RETURNING " + strings.Join(adminColumns, ", ")

// AdminStore хранит учетные записи администраторов
type AdminStore struct {
	pool Querier
}

// NewAdminStore создает AdminStore
func NewAdminStore(pool Querier) *AdminStore {
	return &AdminStore{pool: pool}
}

func (s *AdminStore) q(ctx context.Context) Querier {
	return querier(ctx, s.pool)
}

func scanAdmin(row pgx.Row) (*models.Admin, error) {
	var a models.Admin
	var role string
	var perms []string

	err := row.Scan(&a.ID, &a.Name, &a.Email, &a.PasswordHash, &role, &perms, &a.IsActive,
		&a.LoginAttempts, &a.LockUntil, &a.LastLogin, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}

	a.Role = models.AdminRole(role)
	a.Permissions = make([]models.Permission, 0, len(perms))
	for _, p := range perms {
		a.Permissions = append(a.Permissions, models.Permission(p))
	}
	return &a, nil
}

func permissionStrings(perms []models.Permission) []string {
	out := make([]string, 0, len(perms))
	for _, p := range perms {
		out = append(out, string(p))
	}
	return out
}

func (s *AdminStore) one(ctx context.Context, query string, args ...any) (*models.Admin, error) {
	a, err := scanAdmin(s.q(ctx).QueryRow(ctx, query, args...))
	if err != nil {
		err = mapError(err, "admin")
		switch {
		case isKind(err, models.ErrNotFound):
			return nil, models.Errorf(models.ErrNotFound, "Admin not found")
		case isKind(err, models.ErrConflict):
			return nil, models.Errorf(models.ErrConflict, "Admin with this email already exists")
		}
		return nil, err
	}
	return a, nil
}

// Create создает администратора
func (s *AdminStore) Create(ctx context.Context, n models.NewAdmin) (*models.Admin, error) {
	return s.one(ctx, `
		INSERT INTO admins (id, name, email, password_hash, role, permissions)
		VALUES ($1, $2, $3, $4, $5, $6)
	`+adminReturning,
		uuid.New(), strings.TrimSpace(n.Name), models.NormalizeEmail(n.Email), n.PasswordHash,
		string(n.Role), permissionStrings(n.Permissions),
	)
}

// GetByID возвращает администратора
func (s *AdminStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Admin, error) {
	return s.one(ctx, `SELECT `+strings.Join(adminColumns, ", ")+` FROM admins WHERE id = $1`, id)
}

// GetByEmail возвращает администратора по email
func (s *AdminStore) GetByEmail(ctx context.Context, email string) (*models.Admin, error) {
	return s.one(ctx, `SELECT `+strings.Join(adminColumns, ", ")+` FROM admins WHERE email = $1`,
		models.NormalizeEmail(email))
}

// List возвращает всех администраторов
func (s *AdminStore) List(ctx context.Context) ([]*models.Admin, error) {
	rows, err := s.q(ctx).Query(ctx,
		`SELECT `+strings.Join(adminColumns, ", ")+` FROM admins ORDER BY created_at`)
	if err != nil {
		return nil, mapError(err, "admin")
	}
	defer rows.Close()

	admins := []*models.Admin{}
	for rows.Next() {
		a, err := scanAdmin(rows)
		if err != nil {
			return nil, mapError(err, "admin")
		}
		admins = append(admins, a)
	}
	return admins, mapError(rows.Err(), "admin")
}

// Update меняет имя, роль, права или активность
func (s *AdminStore) Update(ctx context.Context, id uuid.UUID, u models.AdminUpdate) (*models.Admin, error) {
	upd := psql.Update("admins").Set("updated_at", sq.Expr("now()")).Where(sq.Eq{"id": id})
	if u.Name != nil {
		upd = upd.Set("name", strings.TrimSpace(*u.Name))
	}
	if u.Role != nil {
		upd = upd.Set("role", string(*u.Role))
	}
	if u.Permissions != nil {
		upd = upd.Set("permissions", permissionStrings(*u.Permissions))
	}
	if u.IsActive != nil {
		upd = upd.Set("is_active", *u.IsActive)
	}

	query, args, err := upd.Suffix(adminReturning).ToSql()
	if err != nil {
		return nil, err
	}
	return s.one(ctx, query, args...)
}

// Delete удаляет администратора
func (s *AdminStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.q(ctx).Exec(ctx, `DELETE FROM admins WHERE id = $1`, id)
	if err != nil {
		return mapError(err, "admin")
	}
	if tag.RowsAffected() == 0 {
		return models.Errorf(models.ErrNotFound, "Admin not found")
	}
	return nil
}

// RegisterFailedLogin увеличивает счетчик неудачных входов одним запросом.
// На MaxLoginAttempts-й попытке вход блокируется на LoginLockPeriod,
// после истечения блокировки счет начинается заново.
func (s *AdminStore) RegisterFailedLogin(ctx context.Context, id uuid.UUID, now time.Time) (*models.Admin, error) {
	return s.one(ctx, `
		UPDATE admins SET
			login_attempts = CASE
				WHEN lock_until IS NOT NULL AND lock_until <= $2 THEN 1
				ELSE login_attempts + 1
			END,
			lock_until = CASE
				WHEN lock_until IS NOT NULL AND lock_until <= $2 THEN NULL
				WHEN login_attempts + 1 >= $3 AND lock_until IS NULL THEN $2 + make_interval(secs => $4)
				ELSE lock_until
			END,
			updated_at = $2
		WHERE id = $1
	`+adminReturning, id, now, models.MaxLoginAttempts, models.LoginLockPeriod.Seconds())
}

// RegisterSuccessfulLogin сбрасывает счетчик и блокировку
func (s *AdminStore) RegisterSuccessfulLogin(ctx context.Context, id uuid.UUID, now time.Time) error {
	_, err := s.q(ctx).Exec(ctx, `
		UPDATE admins SET login_attempts = 0, lock_until = NULL, last_login = $2, updated_at = $2
		WHERE id = $1
	`, id, now)
	return mapError(err, "admin")
}

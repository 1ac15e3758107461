package db

import (
	"context"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/desmond009/Twin-up/internal/models"
)

var accountColumns = []string{
	"id", "name", "COALESCE(email, '')", "password_hash", "telegram_id", "location", "profile_photo",
	"skills_offered", "skills_wanted", "availability", "is_public", "rating_sum", "rating_count",
	"is_banned", "ban_reason", "is_verified", "last_active", "created_at", "updated_at",
}

var accountReturning = "RETURNING " + strings.Join(accountColumns, ", ")

// averageRatingExpr - средняя оценка для сортировки
const averageRatingExpr = "CASE WHEN rating_count = 0 THEN 0 ELSE rating_sum::float8 / rating_count END"

// AccountStore хранит аккаунты и принадлежащие им отзывы
type AccountStore struct {
	pool Querier
}

// NewAccountStore создает AccountStore
func NewAccountStore(pool Querier) *AccountStore {
	return &AccountStore{pool: pool}
}

func (s *AccountStore) q(ctx context.Context) Querier {
	return querier(ctx, s.pool)
}

func scanAccount(row pgx.Row) (*models.Account, error) {
	var a models.Account
	var availability string

	err := row.Scan(
		&a.ID, &a.Name, &a.Email, &a.PasswordHash, &a.TelegramID, &a.Location, &a.ProfilePhoto,
		&a.SkillsOffered, &a.SkillsWanted, &availability, &a.IsPublic, &a.RatingSum, &a.RatingCount,
		&a.IsBanned, &a.BanReason, &a.IsVerified, &a.LastActive, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	a.Availability = models.Availability(availability)
	if a.SkillsOffered == nil {
		a.SkillsOffered = []string{}
	}
	if a.SkillsWanted == nil {
		a.SkillsWanted = []string{}
	}
	return &a, nil
}

func (s *AccountStore) getOne(ctx context.Context, where sq.Sqlizer) (*models.Account, error) {
	query, args, err := psql.Select(accountColumns...).From("accounts").Where(where).ToSql()
	if err != nil {
		return nil, err
	}
	a, err := scanAccount(s.q(ctx).QueryRow(ctx, query, args...))
	if err != nil {
		return nil, mapError(err, "account")
	}
	return a, nil
}

// Create создает аккаунт
func (s *AccountStore) Create(ctx context.Context, n models.NewAccount) (*models.Account, error) {
	if n.Availability == "" {
		n.Availability = models.Available
	}
	skillsOffered := models.NormalizeSkills(n.SkillsOffered)
	skillsWanted := models.NormalizeSkills(n.SkillsWanted)

	row := s.q(ctx).QueryRow(ctx, `
		INSERT INTO accounts (id, name, email, password_hash, telegram_id, location, profile_photo,
		                      skills_offered, skills_wanted, availability)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8, $9, $10)
	`+accountReturning,
		uuid.New(), strings.TrimSpace(n.Name), n.Email, n.PasswordHash, n.TelegramID,
		strings.TrimSpace(n.Location), n.ProfilePhoto, skillsOffered, skillsWanted, string(n.Availability),
	)

	a, err := scanAccount(row)
	if err != nil {
		return nil, mapError(err, "account")
	}
	return a, nil
}

// GetByID возвращает аккаунт по ID
func (s *AccountStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	return s.getOne(ctx, sq.Eq{"id": id})
}

// GetByEmail возвращает аккаунт по email
func (s *AccountStore) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	return s.getOne(ctx, sq.Eq{"email": models.NormalizeEmail(email)})
}

// GetByTelegramID возвращает аккаунт, связанный с Telegram
func (s *AccountStore) GetByTelegramID(ctx context.Context, telegramID int64) (*models.Account, error) {
	return s.getOne(ctx, sq.Eq{"telegram_id": telegramID})
}

// UpdateProfile применяет частичное обновление профиля
func (s *AccountStore) UpdateProfile(ctx context.Context, id uuid.UUID, u models.ProfileUpdate) (*models.Account, error) {
	upd := psql.Update("accounts").Set("updated_at", sq.Expr("now()"))

	if u.Name != nil {
		upd = upd.Set("name", strings.TrimSpace(*u.Name))
	}
	if u.Location != nil {
		upd = upd.Set("location", strings.TrimSpace(*u.Location))
	}
	if u.SkillsOffered != nil {
		upd = upd.Set("skills_offered", models.NormalizeSkills(*u.SkillsOffered))
	}
	if u.SkillsWanted != nil {
		upd = upd.Set("skills_wanted", models.NormalizeSkills(*u.SkillsWanted))
	}
	if u.Availability != nil {
		upd = upd.Set("availability", *u.Availability)
	}
	if u.IsPublic != nil {
		upd = upd.Set("is_public", *u.IsPublic)
	}

	return s.updateReturning(ctx, upd.Where(sq.Eq{"id": id}))
}

// SetProfilePhoto сохраняет ссылку на фото профиля
func (s *AccountStore) SetProfilePhoto(ctx context.Context, id uuid.UUID, url string) (*models.Account, error) {
	upd := psql.Update("accounts").
		Set("profile_photo", url).
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"id": id})
	return s.updateReturning(ctx, upd)
}

// SetPassword сохраняет новый хеш пароля
func (s *AccountStore) SetPassword(ctx context.Context, id uuid.UUID, hash string) error {
	tag, err := s.q(ctx).Exec(ctx, `
		UPDATE accounts SET password_hash = $2, updated_at = now() WHERE id = $1
	`, id, hash)
	if err != nil {
		return mapError(err, "account")
	}
	if tag.RowsAffected() == 0 {
		return models.Errorf(models.ErrNotFound, "User not found")
	}
	return nil
}

// TouchLastActive отмечает активность пользователя
func (s *AccountStore) TouchLastActive(ctx context.Context, id uuid.UUID) error {
	_, err := s.q(ctx).Exec(ctx, `UPDATE accounts SET last_active = now() WHERE id = $1`, id)
	return mapError(err, "account")
}

// LinkTelegram связывает аккаунт с Telegram ID
func (s *AccountStore) LinkTelegram(ctx context.Context, id uuid.UUID, telegramID int64) error {
	_, err := s.q(ctx).Exec(ctx, `
		UPDATE accounts SET telegram_id = $2, updated_at = now() WHERE id = $1
	`, id, telegramID)
	return mapError(err, "account")
}

// Moderate меняет флаги блокировки и верификации
func (s *AccountStore) Moderate(ctx context.Context, id uuid.UUID, m models.Moderation) (*models.Account, error) {
	upd := psql.Update("accounts").Set("updated_at", sq.Expr("now()"))
	if m.IsBanned != nil {
		upd = upd.Set("is_banned", *m.IsBanned)
		if *m.IsBanned {
			upd = upd.Set("ban_reason", m.BanReason)
		} else {
			upd = upd.Set("ban_reason", "")
		}
	}
	if m.IsVerified != nil {
		upd = upd.Set("is_verified", *m.IsVerified)
	}
	return s.updateReturning(ctx, upd.Where(sq.Eq{"id": id}))
}

func (s *AccountStore) updateReturning(ctx context.Context, upd sq.UpdateBuilder) (*models.Account, error) {
	query, args, err := upd.Suffix(accountReturning).ToSql()
	if err != nil {
		return nil, err
	}
	a, err := scanAccount(s.q(ctx).QueryRow(ctx, query, args...))
	if err != nil {
		return nil, mapError(err, "account")
	}
	return a, nil
}

// Delete удаляет аккаунт вместе с его обменами и уведомлениями.
// Отзывы автора снимаются с агрегатов получателей в том же запросе.
// Вызывать внутри транзакции.
func (s *AccountStore) Delete(ctx context.Context, id uuid.UUID) error {
	q := s.q(ctx)

	if _, err := q.Exec(ctx, `
		WITH removed AS (
			DELETE FROM feedback WHERE from_user_id = $1 RETURNING account_id, stars
		), totals AS (
			SELECT account_id, SUM(stars)::int AS stars, COUNT(*)::int AS n
			FROM removed GROUP BY account_id
		)
		UPDATE accounts a
		SET rating_sum = a.rating_sum - t.stars, rating_count = a.rating_count - t.n, updated_at = now()
		FROM totals t
		WHERE a.id = t.account_id
	`, id); err != nil {
		return mapError(err, "feedback")
	}

	if _, err := q.Exec(ctx, `DELETE FROM notifications WHERE user_id = $1`, id); err != nil {
		return mapError(err, "notification")
	}

	if _, err := q.Exec(ctx, `DELETE FROM swap_requests WHERE from_user_id = $1 OR to_user_id = $1`, id); err != nil {
		return mapError(err, "swap")
	}

	tag, err := q.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return mapError(err, "account")
	}
	if tag.RowsAffected() == 0 {
		return models.Errorf(models.ErrNotFound, "User not found")
	}
	return nil
}

// Search ищет публичные незаблокированные аккаунты
func (s *AccountStore) Search(ctx context.Context, f models.AccountSearch) ([]*models.Account, int, error) {
	where := sq.And{sq.Eq{"is_public": true, "is_banned": false}}

	if f.ExcludeID != nil {
		where = append(where, sq.NotEq{"id": *f.ExcludeID})
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		pattern := likePattern(q)
		where = append(where, sq.Or{
			sq.ILike{"name": pattern},
			sq.ILike{"location": pattern},
			sq.Expr("array_to_string(skills_offered, ' ') ILIKE ?", pattern),
			sq.Expr("array_to_string(skills_wanted, ' ') ILIKE ?", pattern),
		})
	}
	if len(f.SkillsOffered) > 0 {
		where = append(where, sq.Expr("skills_offered && ?", f.SkillsOffered))
	}
	if len(f.SkillsWanted) > 0 {
		where = append(where, sq.Expr("skills_wanted && ?", f.SkillsWanted))
	}
	if f.Availability != nil {
		where = append(where, sq.Eq{"availability": string(*f.Availability)})
	}
	if loc := strings.TrimSpace(f.Location); loc != "" {
		where = append(where, sq.ILike{"location": likePattern(loc)})
	}

	return s.list(ctx, where, f.Page, averageRatingExpr+" DESC", "created_at DESC")
}

// List возвращает аккаунты для админки с поиском и фильтром статуса
func (s *AccountStore) List(ctx context.Context, f models.AccountFilter) ([]*models.Account, int, error) {
	where := sq.And{}

	if q := strings.TrimSpace(f.Search); q != "" {
		pattern := likePattern(q)
		where = append(where, sq.Or{
			sq.ILike{"name": pattern},
			sq.ILike{"email": pattern},
			sq.ILike{"location": pattern},
		})
	}
	switch f.Status {
	case "active":
		where = append(where, sq.Eq{"is_banned": false})
	case "banned":
		where = append(where, sq.Eq{"is_banned": true})
	case "unverified":
		where = append(where, sq.Eq{"is_verified": false})
	}

	return s.list(ctx, where, f.Page, "created_at DESC")
}

func (s *AccountStore) list(ctx context.Context, where sq.And, page models.Page, orderBy ...string) ([]*models.Account, int, error) {
	count := psql.Select("COUNT(*)").From("accounts")
	sel := psql.Select(accountColumns...).From("accounts").
		OrderBy(orderBy...).
		Limit(uint64(page.Limit)).
		Offset(uint64(page.Offset()))
	if len(where) > 0 {
		count = count.Where(where)
		sel = sel.Where(where)
	}

	total, err := countRows(ctx, s.q(ctx), count)
	if err != nil {
		return nil, 0, mapError(err, "account")
	}

	query, args, err := sel.ToSql()
	if err != nil {
		return nil, 0, err
	}
	rows, err := s.q(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, mapError(err, "account")
	}
	defer rows.Close()

	accounts := make([]*models.Account, 0, page.Limit)
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, 0, mapError(err, "account")
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, mapError(err, "account")
	}
	return accounts, total, nil
}

func countRows(ctx context.Context, q Querier, b sq.SelectBuilder) (int, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return 0, err
	}
	var total int
	if err := q.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern экранирует спецсимволы LIKE и оборачивает в %...%
func likePattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

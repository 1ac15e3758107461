package db

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"github.com/desmond009/Twin-up/internal/models"
)

// ReportStore выполняет агрегирующие запросы только для чтения
type ReportStore struct {
	pool Querier
}

// NewReportStore создает ReportStore
func NewReportStore(pool Querier) *ReportStore {
	return &ReportStore{pool: pool}
}

func (s *ReportStore) q(ctx context.Context) Querier {
	return querier(ctx, s.pool)
}

// UserTotals считает всех, активных и заблокированных пользователей
func (s *ReportStore) UserTotals(ctx context.Context) (models.UserTotals, error) {
	var t models.UserTotals
	err := s.q(ctx).QueryRow(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE NOT is_banned),
		       COUNT(*) FILTER (WHERE is_banned)
		FROM accounts
	`).Scan(&t.Total, &t.Active, &t.Banned)
	return t, mapError(err, "report")
}

// PeriodCounts считает новых пользователей, новые и завершенные обмены с момента since
func (s *ReportStore) PeriodCounts(ctx context.Context, since time.Time) (models.PeriodCounts, error) {
	var c models.PeriodCounts
	err := s.q(ctx).QueryRow(ctx, `
		SELECT (SELECT COUNT(*) FROM accounts WHERE created_at >= $1),
		       (SELECT COUNT(*) FROM swap_requests WHERE created_at >= $1),
		       (SELECT COUNT(*) FROM swap_requests WHERE status = 'completed' AND completed_at >= $1)
	`, since).Scan(&c.NewUsers, &c.NewSwaps, &c.CompletedSwaps)
	return c, mapError(err, "report")
}

// NotificationsByType считает уведомления по типам
func (s *ReportStore) NotificationsByType(ctx context.Context) (map[string]int, error) {
	rows, err := s.q(ctx).Query(ctx, `SELECT type, COUNT(*) FROM notifications GROUP BY type`)
	if err != nil {
		return nil, mapError(err, "report")
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var t string
		var n int
		if err := rows.Scan(&t, &n); err != nil {
			return nil, mapError(err, "report")
		}
		counts[t] = n
	}
	return counts, mapError(rows.Err(), "report")
}

// TopSkills возвращает самые частые предлагаемые (wanted=false) или желаемые навыки
func (s *ReportStore) TopSkills(ctx context.Context, wanted bool, limit int) ([]models.SkillCount, error) {
	column := "skills_offered"
	if wanted {
		column = "skills_wanted"
	}

	items := []models.SkillCount{}
	err := pgxscan.Select(ctx, s.q(ctx), &items, `
		SELECT skill, COUNT(*)::int AS count
		FROM accounts, unnest(`+column+`) AS skill
		GROUP BY skill
		ORDER BY count DESC, skill
		LIMIT $1
	`, limit)
	return items, mapError(err, "report")
}

func rangeWhere(column string, r models.ReportRange) sq.And {
	where := sq.And{}
	if r.From != nil {
		where = append(where, sq.GtOrEq{column: *r.From})
	}
	if r.To != nil {
		where = append(where, sq.Lt{column: *r.To})
	}
	return where
}

func (s *ReportStore) selectInto(ctx context.Context, dst any, sel sq.SelectBuilder, where sq.And) error {
	if len(where) > 0 {
		sel = sel.Where(where)
	}
	query, args, err := sel.ToSql()
	if err != nil {
		return err
	}
	return mapError(pgxscan.Select(ctx, s.q(ctx), dst, query, args...), "report")
}

// UserReport выгружает пользователей с количеством их обменов
func (s *ReportStore) UserReport(ctx context.Context, r models.ReportRange) (models.UserReport, error) {
	rows := models.UserReport{}
	sel := psql.Select(
		"a.id", "a.name", "COALESCE(a.email, '') AS email", "a.location", "a.availability",
		"a.rating_sum", "a.rating_count", "a.is_banned", "a.is_verified", "a.created_at",
		"(SELECT COUNT(*) FROM swap_requests s WHERE s.from_user_id = a.id OR s.to_user_id = a.id)::int AS swap_count",
	).From("accounts a").OrderBy("a.created_at DESC")
	err := s.selectInto(ctx, &rows, sel, rangeWhere("a.created_at", r))
	return rows, err
}

// SwapReport выгружает обмены с именами участников
func (s *ReportStore) SwapReport(ctx context.Context, r models.ReportRange) (models.SwapReport, error) {
	rows := models.SwapReport{}
	sel := psql.Select(
		"s.id", "fu.name AS from_user", "tu.name AS to_user", "s.skills_offered", "s.skills_requested",
		"s.status", "s.created_at", "s.completed_at",
	).From("swap_requests s").
		Join("accounts fu ON fu.id = s.from_user_id").
		Join("accounts tu ON tu.id = s.to_user_id").
		OrderBy("s.created_at DESC")
	err := s.selectInto(ctx, &rows, sel, rangeWhere("s.created_at", r))
	return rows, err
}

// FeedbackReport выгружает отзывы с именами автора и получателя
func (s *ReportStore) FeedbackReport(ctx context.Context, r models.ReportRange) (models.FeedbackReport, error) {
	rows := models.FeedbackReport{}
	sel := psql.Select(
		"f.id", "f.account_id", "f.from_user_id",
		"u.name AS from_user_name", "u.profile_photo AS from_user_photo", "t.name AS to_user_name",
		"f.swap_id", "f.stars", "f.comment", "f.created_at", "f.updated_at",
	).From("feedback f").
		Join("accounts u ON u.id = f.from_user_id").
		Join("accounts t ON t.id = f.account_id").
		OrderBy("f.created_at DESC")
	err := s.selectInto(ctx, &rows, sel, rangeWhere("f.created_at", r))
	return rows, err
}

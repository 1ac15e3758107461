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

var swapColumns = []string{
	"s.id", "s.from_user_id", "s.to_user_id", "s.skills_offered", "s.skills_requested", "s.message",
	"s.status", "s.feedback_from_user", "s.feedback_to_user", "s.accepted_at", "s.completed_at",
	"s.created_at", "s.updated_at",
}

// partyColumns - краткие данные обоих участников
var partyColumns = []string{
	"fu.name", "fu.profile_photo", "fu.location", "fu.rating_sum", "fu.rating_count",
	"tu.name", "tu.profile_photo", "tu.location", "tu.rating_sum", "tu.rating_count",
}

var swapReturning = "RETURNING " + strings.Join(swapColumns, ", ")

// SwapStore хранит запросы на обмен
type SwapStore struct {
	pool Querier
}

// NewSwapStore создает SwapStore
func NewSwapStore(pool Querier) *SwapStore {
	return &SwapStore{pool: pool}
}

func (s *SwapStore) q(ctx context.Context) Querier {
	return querier(ctx, s.pool)
}

func swapDest(sw *models.Swap, status *string) []any {
	return []any{
		&sw.ID, &sw.FromUserID, &sw.ToUserID, &sw.SkillsOffered, &sw.SkillsRequested, &sw.Message,
		status, &sw.FeedbackSubmitted.FromUser, &sw.FeedbackSubmitted.ToUser, &sw.AcceptedAt, &sw.CompletedAt,
		&sw.CreatedAt, &sw.UpdatedAt,
	}
}

func scanSwap(row pgx.Row) (*models.Swap, error) {
	var sw models.Swap
	var status string
	if err := row.Scan(swapDest(&sw, &status)...); err != nil {
		return nil, err
	}
	sw.Status = models.SwapStatus(status)
	return &sw, nil
}

type partyRow struct {
	name, photo, location string
	sum, count            int
}

func (p partyRow) summary(id uuid.UUID) *models.AccountSummary {
	a := models.Account{ID: id, Name: p.name, ProfilePhoto: p.photo, Location: p.location, RatingSum: p.sum, RatingCount: p.count}
	return a.Summary()
}

func scanSwapWithParties(row pgx.Row) (*models.Swap, error) {
	var sw models.Swap
	var status string
	var from, to partyRow

	dest := append(swapDest(&sw, &status),
		&from.name, &from.photo, &from.location, &from.sum, &from.count,
		&to.name, &to.photo, &to.location, &to.sum, &to.count,
	)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	sw.Status = models.SwapStatus(status)
	sw.FromUser = from.summary(sw.FromUserID)
	sw.ToUser = to.summary(sw.ToUserID)
	return &sw, nil
}

func selectSwaps() sq.SelectBuilder {
	return psql.Select(append(append([]string{}, swapColumns...), partyColumns...)...).
		From("swap_requests s").
		Join("accounts fu ON fu.id = s.from_user_id").
		Join("accounts tu ON tu.id = s.to_user_id")
}

// Create сохраняет новый запрос в статусе pending
func (s *SwapStore) Create(ctx context.Context, n models.NewSwap, now time.Time) (*models.Swap, error) {
	row := s.q(ctx).QueryRow(ctx, `
		INSERT INTO swap_requests AS s (id, from_user_id, to_user_id, skills_offered, skills_requested,
		                                message, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, 'pending', $7, $7)
	`+swapReturning,
		uuid.New(), n.FromUserID, n.ToUserID,
		models.NormalizeSkills(n.SkillsOffered), models.NormalizeSkills(n.SkillsRequested),
		strings.TrimSpace(n.Message), now,
	)

	sw, err := scanSwap(row)
	if err != nil {
		err = mapError(err, "swap")
		if isKind(err, models.ErrConflict) {
			return nil, models.Errorf(models.ErrConflict, "You already have a pending swap request with this user")
		}
		return nil, err
	}
	return sw, nil
}

// HasPending проверяет наличие ожидающего запроса from -> to
func (s *SwapStore) HasPending(ctx context.Context, fromID, toID uuid.UUID) (bool, error) {
	var exists bool
	err := s.q(ctx).QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM swap_requests
			WHERE from_user_id = $1 AND to_user_id = $2 AND status = 'pending'
		)
	`, fromID, toID).Scan(&exists)
	if err != nil {
		return false, mapError(err, "swap")
	}
	return exists, nil
}

// GetByID возвращает обмен с данными участников
func (s *SwapStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Swap, error) {
	query, args, err := selectSwaps().Where(sq.Eq{"s.id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	sw, err := scanSwapWithParties(s.q(ctx).QueryRow(ctx, query, args...))
	if err != nil {
		err = mapError(err, "swap")
		if isKind(err, models.ErrNotFound) {
			return nil, models.Errorf(models.ErrNotFound, "Swap request not found")
		}
		return nil, err
	}
	return sw, nil
}

// Transition меняет статус, только если он все еще равен from.
// Проигравший в гонке получает ErrInvalidState.
func (s *SwapStore) Transition(ctx context.Context, id uuid.UUID, from, to models.SwapStatus, now time.Time) (*models.Swap, error) {
	upd := psql.Update("swap_requests AS s").
		Set("status", string(to)).
		Set("updated_at", now).
		Where(sq.Eq{"s.id": id, "s.status": string(from)})

	switch to {
	case models.SwapAccepted:
		upd = upd.Set("accepted_at", now)
	case models.SwapCompleted:
		upd = upd.Set("completed_at", now)
	}

	query, args, err := upd.Suffix(swapReturning).ToSql()
	if err != nil {
		return nil, err
	}

	sw, err := scanSwap(s.q(ctx).QueryRow(ctx, query, args...))
	if err != nil {
		err = mapError(err, "swap")
		if isKind(err, models.ErrNotFound) {
			if to == models.SwapCompleted {
				return nil, models.Errorf(models.ErrInvalidState, "Swap must be accepted before completion")
			}
			return nil, models.Errorf(models.ErrInvalidState, "Swap request is not pending")
		}
		return nil, err
	}
	return sw, nil
}

// MarkFeedbackSubmitted ставит флаг отзыва участника завершенного обмена.
// Повторная отметка возвращает ErrInvalidState.
func (s *SwapStore) MarkFeedbackSubmitted(ctx context.Context, id uuid.UUID, d models.FeedbackDirection) error {
	column := "feedback_to_user"
	if d == models.DirectionFromUser {
		column = "feedback_from_user"
	}

	query, args, err := psql.Update("swap_requests").
		Set(column, true).
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"id": id, "status": string(models.SwapCompleted), column: false}).
		ToSql()
	if err != nil {
		return err
	}

	tag, err := s.q(ctx).Exec(ctx, query, args...)
	if err != nil {
		return mapError(err, "swap")
	}
	if tag.RowsAffected() == 0 {
		return models.Errorf(models.ErrInvalidState, "You have already submitted feedback for this swap")
	}
	return nil
}

// DeleteOwn удаляет запрос в статусе pending или cancelled
func (s *SwapStore) DeleteOwn(ctx context.Context, id uuid.UUID) error {
	tag, err := s.q(ctx).Exec(ctx, `
		DELETE FROM swap_requests WHERE id = $1 AND status IN ('pending', 'cancelled')
	`, id)
	if err != nil {
		return mapError(err, "swap")
	}
	if tag.RowsAffected() == 0 {
		return models.Errorf(models.ErrInvalidState, "Cannot delete swap request in current status")
	}
	return nil
}

// Delete удаляет запрос в любом статусе (модерация)
func (s *SwapStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.q(ctx).Exec(ctx, `DELETE FROM swap_requests WHERE id = $1`, id)
	if err != nil {
		return mapError(err, "swap")
	}
	if tag.RowsAffected() == 0 {
		return models.Errorf(models.ErrNotFound, "Swap request not found")
	}
	return nil
}

func swapWhere(f models.SwapFilter) sq.And {
	where := sq.And{}
	if f.UserID != nil {
		switch f.Type {
		case "sent":
			where = append(where, sq.Eq{"s.from_user_id": *f.UserID})
		case "received":
			where = append(where, sq.Eq{"s.to_user_id": *f.UserID})
		default:
			where = append(where, sq.Or{
				sq.Eq{"s.from_user_id": *f.UserID},
				sq.Eq{"s.to_user_id": *f.UserID},
			})
		}
	}
	if f.Status != nil {
		where = append(where, sq.Eq{"s.status": string(*f.Status)})
	}
	return where
}

// List возвращает обмены по фильтру, новые первыми
func (s *SwapStore) List(ctx context.Context, f models.SwapFilter) ([]*models.Swap, int, error) {
	where := swapWhere(f)
	count := psql.Select("COUNT(*)").From("swap_requests s")
	sel := selectSwaps().OrderBy("s.created_at DESC").
		Limit(uint64(f.Page.Limit)).
		Offset(uint64(f.Page.Offset()))
	if len(where) > 0 {
		count = count.Where(where)
		sel = sel.Where(where)
	}

	total, err := countRows(ctx, s.q(ctx), count)
	if err != nil {
		return nil, 0, mapError(err, "swap")
	}

	swaps, err := s.query(ctx, sel)
	if err != nil {
		return nil, 0, err
	}
	return swaps, total, nil
}

// ListPendingFeedback возвращает завершенные обмены, где пользователь еще не оставил отзыв
func (s *SwapStore) ListPendingFeedback(ctx context.Context, userID uuid.UUID, page models.Page) ([]*models.Swap, int, error) {
	where := sq.And{
		sq.Eq{"s.status": string(models.SwapCompleted)},
		sq.Or{
			sq.Eq{"s.from_user_id": userID, "s.feedback_from_user": false},
			sq.Eq{"s.to_user_id": userID, "s.feedback_to_user": false},
		},
	}

	total, err := countRows(ctx, s.q(ctx), psql.Select("COUNT(*)").From("swap_requests s").Where(where))
	if err != nil {
		return nil, 0, mapError(err, "swap")
	}

	swaps, err := s.query(ctx, selectSwaps().Where(where).
		OrderBy("s.completed_at DESC").
		Limit(uint64(page.Limit)).
		Offset(uint64(page.Offset())))
	if err != nil {
		return nil, 0, err
	}
	return swaps, total, nil
}

func (s *SwapStore) query(ctx context.Context, sel sq.SelectBuilder) ([]*models.Swap, error) {
	query, args, err := sel.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.q(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(err, "swap")
	}
	defer rows.Close()

	swaps := []*models.Swap{}
	for rows.Next() {
		sw, err := scanSwapWithParties(rows)
		if err != nil {
			return nil, mapError(err, "swap")
		}
		swaps = append(swaps, sw)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "swap")
	}
	return swaps, nil
}

// Stats считает обмены по статусам. userID == nil - по всей платформе.
func (s *SwapStore) Stats(ctx context.Context, userID *uuid.UUID) (models.SwapStats, error) {
	sel := psql.Select("status", "COUNT(*)").From("swap_requests").GroupBy("status")
	if userID != nil {
		sel = sel.Where(sq.Or{sq.Eq{"from_user_id": *userID}, sq.Eq{"to_user_id": *userID}})
	}

	var stats models.SwapStats
	query, args, err := sel.ToSql()
	if err != nil {
		return stats, err
	}
	rows, err := s.q(ctx).Query(ctx, query, args...)
	if err != nil {
		return stats, mapError(err, "swap")
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return stats, mapError(err, "swap")
		}
		stats.Add(models.SwapStatus(status), n)
	}
	return stats, mapError(rows.Err(), "swap")
}

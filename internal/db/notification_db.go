package db

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"

	"github.com/desmond009/Twin-up/internal/models"
)

const notificationColumns = `id, user_id, type, title, message, read, related_user_id, related_swap_id, data, read_at, created_at`

// NotificationStore хранит уведомления пользователей
type NotificationStore struct {
	pool Querier
}

// NewNotificationStore создает NotificationStore
func NewNotificationStore(pool Querier) *NotificationStore {
	return &NotificationStore{pool: pool}
}

func (s *NotificationStore) q(ctx context.Context) Querier {
	return querier(ctx, s.pool)
}

// Create сохраняет уведомление. Вызывающий должен выполнить Prepare.
func (s *NotificationStore) Create(ctx context.Context, n models.NewNotification, now time.Time) (*models.Notification, error) {
	data := n.Data
	if data == nil {
		data = map[string]any{}
	}

	var out models.Notification
	err := pgxscan.Get(ctx, s.q(ctx), &out, `
		INSERT INTO notifications (id, user_id, type, title, message, related_user_id, related_swap_id, data, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+notificationColumns,
		uuid.New(), n.UserID, string(n.Type), n.Title, n.Message, n.RelatedUserID, n.RelatedSwapID, data, now,
	)
	if err != nil {
		return nil, mapError(err, "notification")
	}
	return &out, nil
}

// GetByID возвращает уведомление
func (s *NotificationStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Notification, error) {
	var n models.Notification
	err := pgxscan.Get(ctx, s.q(ctx), &n,
		`SELECT `+notificationColumns+` FROM notifications WHERE id = $1`, id)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, models.Errorf(models.ErrNotFound, "Notification not found")
		}
		return nil, mapError(err, "notification")
	}
	return &n, nil
}

// List возвращает уведомления пользователя, новые первыми
func (s *NotificationStore) List(ctx context.Context, f models.NotificationFilter) ([]models.Notification, int, error) {
	where := sq.And{sq.Eq{"user_id": f.UserID}}
	if f.Type != nil {
		where = append(where, sq.Eq{"type": string(*f.Type)})
	}
	if f.Read != nil {
		where = append(where, sq.Eq{"read": *f.Read})
	}

	total, err := countRows(ctx, s.q(ctx), psql.Select("COUNT(*)").From("notifications").Where(where))
	if err != nil {
		return nil, 0, mapError(err, "notification")
	}

	query, args, err := psql.Select(notificationColumns).From("notifications").Where(where).
		OrderBy("created_at DESC").
		Limit(uint64(f.Page.Limit)).
		Offset(uint64(f.Page.Offset())).
		ToSql()
	if err != nil {
		return nil, 0, err
	}

	items := []models.Notification{}
	if err := pgxscan.Select(ctx, s.q(ctx), &items, query, args...); err != nil {
		return nil, 0, mapError(err, "notification")
	}
	return items, total, nil
}

// CountUnread считает непрочитанные уведомления пользователя
func (s *NotificationStore) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	var n int
	err := s.q(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND NOT read`, userID,
	).Scan(&n)
	return n, mapError(err, "notification")
}

// MarkRead отмечает уведомления прочитанными. ids == nil - все уведомления пользователя.
// Чужие и уже прочитанные уведомления не затрагиваются.
func (s *NotificationStore) MarkRead(ctx context.Context, userID uuid.UUID, ids []uuid.UUID, now time.Time) (int, error) {
	upd := psql.Update("notifications").
		Set("read", true).
		Set("read_at", now).
		Where(sq.Eq{"user_id": userID, "read": false})
	if ids != nil {
		upd = upd.Where("id = ANY(?)", ids)
	}

	query, args, err := upd.ToSql()
	if err != nil {
		return 0, err
	}
	tag, err := s.q(ctx).Exec(ctx, query, args...)
	if err != nil {
		return 0, mapError(err, "notification")
	}
	return int(tag.RowsAffected()), nil
}

// Delete удаляет одно уведомление
func (s *NotificationStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.q(ctx).Exec(ctx, `DELETE FROM notifications WHERE id = $1`, id)
	if err != nil {
		return mapError(err, "notification")
	}
	if tag.RowsAffected() == 0 {
		return models.Errorf(models.ErrNotFound, "Notification not found")
	}
	return nil
}

// CountNotOwned считает, сколько из ids существуют и принадлежат другим пользователям
func (s *NotificationStore) CountNotOwned(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (int, error) {
	var n int
	err := s.q(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE id = ANY($1) AND user_id <> $2`, ids, userID,
	).Scan(&n)
	return n, mapError(err, "notification")
}

// DeleteOwned удаляет уведомления пользователя из списка ids
func (s *NotificationStore) DeleteOwned(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (int, error) {
	tag, err := s.q(ctx).Exec(ctx,
		`DELETE FROM notifications WHERE id = ANY($1) AND user_id = $2`, ids, userID)
	if err != nil {
		return 0, mapError(err, "notification")
	}
	return int(tag.RowsAffected()), nil
}

// Broadcast создает уведомление каждому незаблокированному получателю
// и возвращает их ID. Пустой userIDs означает всех пользователей.
func (s *NotificationStore) Broadcast(ctx context.Context, b models.Broadcast, now time.Time) ([]uuid.UUID, error) {
	sel := psql.Select().
		Column("gen_random_uuid()").
		Column("id").
		Column("?", string(b.Type)).
		Column("?", b.Title).
		Column("?", b.Message).
		Column("?::timestamptz", now).
		Column(`'{"adminMessage": true}'::jsonb`).
		From("accounts").
		Where(sq.Eq{"is_banned": false})
	if !b.SendToAll {
		sel = sel.Where("id = ANY(?)", b.UserIDs)
	}

	query, args, err := psql.Insert("notifications").
		Columns("id", "user_id", "type", "title", "message", "created_at", "data").
		Select(sel).
		Suffix("RETURNING user_id").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.q(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(err, "notification")
	}
	defer rows.Close()

	recipients := []uuid.UUID{}
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, mapError(err, "notification")
		}
		recipients = append(recipients, id)
	}
	return recipients, mapError(rows.Err(), "notification")
}

// DeleteReadOlderThan удаляет прочитанные уведомления старше cutoff
func (s *NotificationStore) DeleteReadOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.q(ctx).Exec(ctx,
		`DELETE FROM notifications WHERE read AND created_at < $1`, cutoff)
	if err != nil {
		return 0, mapError(err, "notification")
	}
	return tag.RowsAffected(), nil
}

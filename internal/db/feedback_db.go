package db

import (
	"context"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"

	"github.com/desmond009/Twin-up/internal/models"
)

// Отзывы хранятся в отдельной таблице, но меняются только через AccountStore:
// каждая запись сопровождается изменением агрегата рейтинга в том же запросе.

const feedbackSelect = `
	SELECT f.id, f.account_id, f.from_user_id,
	       u.name AS from_user_name, u.profile_photo AS from_user_photo,
	       t.name AS to_user_name,
	       f.swap_id, f.stars, f.comment, f.created_at, f.updated_at
	FROM feedback f
	JOIN accounts u ON u.id = f.from_user_id
	JOIN accounts t ON t.id = f.account_id`

// AddFeedback добавляет отзыв и обновляет рейтинг получателя
func (s *AccountStore) AddFeedback(ctx context.Context, fb *models.Feedback) error {
	if fb.ID == uuid.Nil {
		fb.ID = uuid.New()
	}
	fb.UpdatedAt = fb.CreatedAt
	d := models.FeedbackAdded(fb.Stars)

	tag, err := s.q(ctx).Exec(ctx, `
		WITH inserted AS (
			INSERT INTO feedback (id, account_id, from_user_id, swap_id, stars, comment, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
			RETURNING account_id
		)
		UPDATE accounts a
		SET rating_sum = a.rating_sum + $8, rating_count = a.rating_count + $9, updated_at = $7
		FROM inserted
		WHERE a.id = inserted.account_id
	`, fb.ID, fb.AccountID, fb.FromUserID, fb.SwapID, fb.Stars, fb.Comment, fb.CreatedAt, d.Sum, d.Count)
	if err != nil {
		return mapError(err, "feedback")
	}
	if tag.RowsAffected() == 0 {
		return models.Errorf(models.ErrNotFound, "User not found")
	}
	return nil
}

// GetFeedback возвращает отзыв. С forUpdate строка блокируется до конца транзакции.
func (s *AccountStore) GetFeedback(ctx context.Context, id uuid.UUID, forUpdate bool) (*models.Feedback, error) {
	query := feedbackSelect + ` WHERE f.id = $1`
	if forUpdate {
		query += ` FOR UPDATE OF f`
	}

	var fb models.Feedback
	if err := pgxscan.Get(ctx, s.q(ctx), &fb, query, id); err != nil {
		if pgxscan.NotFound(err) {
			return nil, models.Errorf(models.ErrNotFound, "Feedback not found")
		}
		return nil, mapError(err, "feedback")
	}
	return &fb, nil
}

// ReviseFeedback меняет оценку и комментарий. fb - текущее состояние,
// прочитанное через GetFeedback(forUpdate) в той же транзакции.
func (s *AccountStore) ReviseFeedback(ctx context.Context, fb *models.Feedback, stars int, comment string, now time.Time) error {
	d := models.FeedbackRevised(fb.Stars, stars)

	tag, err := s.q(ctx).Exec(ctx, `
		WITH revised AS (
			UPDATE feedback SET stars = $2, comment = $3, updated_at = $4
			WHERE id = $1
			RETURNING account_id
		)
		UPDATE accounts a
		SET rating_sum = a.rating_sum + $5, rating_count = a.rating_count + $6, updated_at = $4
		FROM revised
		WHERE a.id = revised.account_id
	`, fb.ID, stars, comment, now, d.Sum, d.Count)
	if err != nil {
		return mapError(err, "feedback")
	}
	if tag.RowsAffected() == 0 {
		return models.Errorf(models.ErrNotFound, "Feedback not found")
	}

	fb.Stars = stars
	fb.Comment = comment
	fb.UpdatedAt = now
	return nil
}

// RemoveFeedback удаляет отзыв и вычитает его из рейтинга получателя
func (s *AccountStore) RemoveFeedback(ctx context.Context, fb *models.Feedback, now time.Time) error {
	d := models.FeedbackRemoved(fb.Stars)

	tag, err := s.q(ctx).Exec(ctx, `
		WITH removed AS (
			DELETE FROM feedback WHERE id = $1 RETURNING account_id
		)
		UPDATE accounts a
		SET rating_sum = a.rating_sum + $2, rating_count = a.rating_count + $3, updated_at = $4
		FROM removed
		WHERE a.id = removed.account_id
	`, fb.ID, d.Sum, d.Count, now)
	if err != nil {
		return mapError(err, "feedback")
	}
	if tag.RowsAffected() == 0 {
		return models.Errorf(models.ErrNotFound, "Feedback not found")
	}
	return nil
}

// ListFeedback возвращает отзывы о пользователе, новые первыми
func (s *AccountStore) ListFeedback(ctx context.Context, accountID uuid.UUID, page models.Page) ([]models.Feedback, int, error) {
	var total int
	if err := s.q(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM feedback WHERE account_id = $1`, accountID,
	).Scan(&total); err != nil {
		return nil, 0, mapError(err, "feedback")
	}

	items := []models.Feedback{}
	if err := pgxscan.Select(ctx, s.q(ctx), &items,
		feedbackSelect+` WHERE f.account_id = $1 ORDER BY f.created_at DESC LIMIT $2 OFFSET $3`,
		accountID, page.Limit, page.Offset(),
	); err != nil {
		return nil, 0, mapError(err, "feedback")
	}
	return items, total, nil
}

// RecentFeedback возвращает последние limit отзывов о пользователе
func (s *AccountStore) RecentFeedback(ctx context.Context, accountID uuid.UUID, limit int) ([]models.Feedback, error) {
	items := []models.Feedback{}
	if err := pgxscan.Select(ctx, s.q(ctx), &items,
		feedbackSelect+` WHERE f.account_id = $1 ORDER BY f.created_at DESC LIMIT $2`,
		accountID, limit,
	); err != nil {
		return nil, mapError(err, "feedback")
	}
	return items, nil
}

// FeedbackBetween возвращает отзывы автора fromID о пользователе accountID
func (s *AccountStore) FeedbackBetween(ctx context.Context, accountID, fromID uuid.UUID) ([]models.Feedback, error) {
	items := []models.Feedback{}
	if err := pgxscan.Select(ctx, s.q(ctx), &items,
		feedbackSelect+` WHERE f.account_id = $1 AND f.from_user_id = $2 ORDER BY f.created_at DESC`,
		accountID, fromID,
	); err != nil {
		return nil, mapError(err, "feedback")
	}
	return items, nil
}

// ListAllFeedback возвращает все отзывы платформы для модерации
func (s *AccountStore) ListAllFeedback(ctx context.Context, page models.Page) ([]models.Feedback, int, error) {
	var total int
	if err := s.q(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM feedback`).Scan(&total); err != nil {
		return nil, 0, mapError(err, "feedback")
	}

	items := []models.Feedback{}
	if err := pgxscan.Select(ctx, s.q(ctx), &items,
		feedbackSelect+` ORDER BY f.created_at DESC LIMIT $1 OFFSET $2`,
		page.Limit, page.Offset(),
	); err != nil {
		return nil, 0, mapError(err, "feedback")
	}
	return items, total, nil
}

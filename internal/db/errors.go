package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/desmond009/Twin-up/internal/models"
)

// mapError переводит ошибки pgx в доменные категории.
// Ошибки контекста передаются как есть.
func mapError(err error, entity string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", entity, err)
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", entity, models.ErrNotFound)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("%s: %w", entity, models.ErrConflict)
		case "23503": // foreign_key_violation
			return fmt.Errorf("%s: %w", entity, models.ErrNotFound)
		case "23514": // check_violation
			return fmt.Errorf("%s: %w", entity, models.ErrValidation)
		}
	}

	return fmt.Errorf("%s: %w", entity, err)
}

func isKind(err, kind error) bool {
	return errors.Is(err, kind)
}

package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

type txCtxKey struct{}

// querier возвращает транзакцию из контекста или пул
func querier(ctx context.Context, pool Querier) Querier {
	if tx, ok := ctx.Value(txCtxKey{}).(pgx.Tx); ok {
		return tx
	}
	return pool
}

// TxManager выполняет функции в транзакции, передавая ее через контекст.
// Вложенные RunInTx не поддерживаются.
type TxManager struct {
	pool Pool
}

// NewTxManager создает TxManager
func NewTxManager(pool Pool) *TxManager {
	return &TxManager{pool: pool}
}

// RunInTx фиксирует транзакцию, если fn вернула nil, иначе откатывает
func (m *TxManager) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}

	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback(ctx)
			panic(r)
		}
	}()

	if err := fn(context.WithValue(ctx, txCtxKey{}, tx)); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("ошибка отката транзакции: %w (исходная ошибка: %v)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("ошибка фиксации транзакции: %w", err)
	}
	return nil
}

package infrastructure

import (
	"context"

	database "github.com/sebuszqo/ExpenseTracker/internal/db"
	"github.com/sebuszqo/ExpenseTracker/internal/finance/domain"
)

type Store struct {
	runner database.TxRunner
	conn   database.DBTX
	inTx   bool
}

func NewStore(runner database.TxRunner) *Store {
	return &Store{runner: runner, conn: runner.Conn()}
}

func (s *Store) Categories() domain.CategoryRepository {
	return NewCategoryRepository(s.conn)
}

func (s *Store) Transactions() domain.TransactionRepository {
	return NewTransactionRepository(s.conn)
}

func (s *Store) Bind(tx database.DBTX) domain.Store {
	return &Store{runner: s.runner, conn: tx, inTx: true}
}

func (s *Store) InTx(ctx context.Context, fn func(store domain.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	return s.runner.WithTx(ctx, func(tx database.DBTX) error {
		return fn(s.Bind(tx))
	})
}

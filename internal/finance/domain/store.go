package domain

import (
	"context"

	database "github.com/sebuszqo/ExpenseTracker/internal/db"
)

// Store hands out repositories that share one connection or transaction.
type Store interface {
	Categories() CategoryRepository
	Transactions() TransactionRepository
	// Bind returns a store running on a transaction owned by someone else.
	Bind(tx database.DBTX) Store
	// InTx runs fn inside a single transaction. A store that is already bound
	// to a transaction reuses it.
	InTx(ctx context.Context, fn func(store Store) error) error
}

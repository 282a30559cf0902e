package infrastructure

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	database "github.com/sebuszqo/ExpenseTracker/internal/db"
	"github.com/sebuszqo/ExpenseTracker/internal/finance/domain"
)

type TransactionRepository struct {
	db database.DBTX
}

func NewTransactionRepository(db database.DBTX) *TransactionRepository {
	return &TransactionRepository{db: db}
}

const selectTransaction = `
	SELECT t.id, t.label, t.date, t.amount, t.category_id, c.label, t.user_id, u.role, t.created_at
	FROM transactions t
	JOIN categories c ON c.id = t.category_id
	JOIN users u ON u.id = t.user_id
`

func scanTransaction(row rowScanner) (*domain.Transaction, error) {
	var (
		transaction domain.Transaction
		date        time.Time
	)
	err := row.Scan(&transaction.ID, &transaction.Label, &date, &transaction.Amount, &transaction.CategoryID,
		&transaction.CategoryLabel, &transaction.UserID, &transaction.OwnerRole, &transaction.CreatedAt)
	if err != nil {
		return nil, err
	}
	transaction.Date = domain.NewDate(date.UTC())
	transaction.CreatedAt = transaction.CreatedAt.UTC()
	return &transaction, nil
}

func (r *TransactionRepository) Save(ctx context.Context, transaction *domain.Transaction) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO transactions (user_id, category_id, label, date, amount, created_at)
        VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		transaction.UserID, transaction.CategoryID, transaction.Label, transaction.Date.Time, transaction.Amount, transaction.CreatedAt,
	).Scan(&transaction.ID)
	if err != nil {
		return fmt.Errorf("could not save transaction: %w", err)
	}
	return nil
}

func (r *TransactionRepository) FindByID(ctx context.Context, transactionID int64) (*domain.Transaction, error) {
	transaction, err := scanTransaction(r.db.QueryRowContext(ctx, selectTransaction+" WHERE t.id = $1", transactionID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("could not find transaction: %w", err)
	}
	return transaction, nil
}

func (r *TransactionRepository) findMany(ctx context.Context, query string, args ...any) ([]domain.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	transactions := []domain.Transaction{}
	for rows.Next() {
		transaction, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, *transaction)
	}
	return transactions, rows.Err()
}

func (r *TransactionRepository) FindByUser(ctx context.Context, userID int64) ([]domain.Transaction, error) {
	return r.findMany(ctx, selectTransaction+" WHERE t.user_id = $1 ORDER BY t.date, t.id", userID)
}

func (r *TransactionRepository) FindAll(ctx context.Context) ([]domain.Transaction, error) {
	return r.findMany(ctx, selectTransaction+" ORDER BY t.id")
}

func (r *TransactionRepository) GetTransactionsInDateRange(ctx context.Context, userID int64, startDate, endDate time.Time) ([]domain.Transaction, error) {
	return r.findMany(ctx, selectTransaction+" WHERE t.user_id = $1 AND t.date >= $2 AND t.date <= $3 ORDER BY t.date, t.id",
		userID, domain.NewDate(startDate).Time, domain.NewDate(endDate).Time)
}

func (r *TransactionRepository) Update(ctx context.Context, transaction *domain.Transaction) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET label = $1, date = $2, amount = $3, category_id = $4 WHERE id = $5`,
		transaction.Label, transaction.Date.Time, transaction.Amount, transaction.CategoryID, transaction.ID,
	)
	if err != nil {
		return fmt.Errorf("could not update transaction: %w", err)
	}
	return expectAffected(result, domain.ErrTransactionNotFound)
}

func (r *TransactionRepository) Delete(ctx context.Context, transactionID int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = $1`, transactionID)
	if err != nil {
		return fmt.Errorf("could not delete transaction: %w", err)
	}
	return expectAffected(result, domain.ErrTransactionNotFound)
}

func (r *TransactionRepository) MoveToCategory(ctx context.Context, fromCategoryID, toCategoryID int64) (int64, error) {
	result, err := r.db.ExecContext(ctx, `UPDATE transactions SET category_id = $1 WHERE category_id = $2`, toCategoryID, fromCategoryID)
	if err != nil {
		return 0, fmt.Errorf("could not move transactions: %w", err)
	}
	return result.RowsAffected()
}

func (r *TransactionRepository) DeleteByCategory(ctx context.Context, categoryID int64) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE category_id = $1`, categoryID)
	if err != nil {
		return 0, fmt.Errorf("could not delete transactions: %w", err)
	}
	return result.RowsAffected()
}

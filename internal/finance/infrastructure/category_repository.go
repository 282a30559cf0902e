package infrastructure

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	database "github.com/sebuszqo/ExpenseTracker/internal/db"
	"github.com/sebuszqo/ExpenseTracker/internal/finance/domain"
)

type CategoryRepository struct {
	db database.DBTX
}

func NewCategoryRepository(db database.DBTX) *CategoryRepository {
	return &CategoryRepository{db: db}
}

const selectCategory = `
	SELECT c.id, c.label, c.user_id, u.role, c.created_at
	FROM categories c
	JOIN users u ON u.id = c.user_id
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCategory(row rowScanner) (*domain.Category, error) {
	var category domain.Category
	if err := row.Scan(&category.ID, &category.Label, &category.UserID, &category.OwnerRole, &category.CreatedAt); err != nil {
		return nil, err
	}
	category.CreatedAt = category.CreatedAt.UTC()
	return &category, nil
}

func (r *CategoryRepository) Save(ctx context.Context, category *domain.Category) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO categories (user_id, label, created_at) VALUES ($1, $2, $3) RETURNING id`,
		category.UserID, category.Label, category.CreatedAt,
	).Scan(&category.ID)
	if err != nil {
		return fmt.Errorf("could not save category: %w", err)
	}
	return nil
}

func (r *CategoryRepository) findOne(ctx context.Context, where string, args ...any) (*domain.Category, error) {
	category, err := scanCategory(r.db.QueryRowContext(ctx, selectCategory+" WHERE "+where, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrCategoryNotFound
		}
		return nil, fmt.Errorf("could not find category: %w", err)
	}
	return category, nil
}

func (r *CategoryRepository) FindByID(ctx context.Context, categoryID int64) (*domain.Category, error) {
	return r.findOne(ctx, "c.id = $1", categoryID)
}

func (r *CategoryRepository) FindByUserAndLabel(ctx context.Context, userID int64, label string) (*domain.Category, error) {
	return r.findOne(ctx, "c.user_id = $1 AND c.label = $2", userID, label)
}

func (r *CategoryRepository) findMany(ctx context.Context, query string, args ...any) ([]domain.Category, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := []domain.Category{}
	for rows.Next() {
		category, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, *category)
	}
	return categories, rows.Err()
}

func (r *CategoryRepository) FindByUser(ctx context.Context, userID int64) ([]domain.Category, error) {
	return r.findMany(ctx, selectCategory+" WHERE c.user_id = $1 ORDER BY c.id", userID)
}

func (r *CategoryRepository) FindAll(ctx context.Context) ([]domain.Category, error) {
	return r.findMany(ctx, selectCategory+" ORDER BY c.id")
}

func (r *CategoryRepository) UpdateLabel(ctx context.Context, categoryID int64, label string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE categories SET label = $1 WHERE id = $2`, label, categoryID)
	if err != nil {
		return fmt.Errorf("could not update category: %w", err)
	}
	return expectAffected(result, domain.ErrCategoryNotFound)
}

func (r *CategoryRepository) Delete(ctx context.Context, categoryID int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, categoryID)
	if err != nil {
		return fmt.Errorf("could not delete category: %w", err)
	}
	return expectAffected(result, domain.ErrCategoryNotFound)
}

func expectAffected(result sql.Result, notFound error) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return notFound
	}
	return nil
}

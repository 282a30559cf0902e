package domain

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	appErrors "github.com/sebuszqo/ExpenseTracker/internal/errors"
	"github.com/sebuszqo/ExpenseTracker/internal/policy"
)

// OtherCategoryLabel is the catch-all category every user owns exactly once.
// It can be neither renamed nor deleted.
const OtherCategoryLabel = "Other"

const maxCategoryLabelLength = 50

var ErrCategoryNotFound = errors.New("category not found")

type Category struct {
	ID        int64       `json:"id"`
	Label     string      `json:"label"`
	UserID    int64       `json:"user_id"`
	OwnerRole policy.Role `json:"-"`
	CreatedAt time.Time   `json:"created_at"`
}

func (c *Category) Owner() policy.Owner {
	return policy.Owner{ID: c.UserID, Role: c.OwnerRole}
}

func (c *Category) IsOther() bool {
	return c.Label == OtherCategoryLabel
}

// NormalizeCategoryLabel trims the label and checks its length. Labels are
// compared case-sensitively.
func NormalizeCategoryLabel(label string) (string, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return "", appErrors.NewValidationError("Category label must not be empty")
	}
	if utf8.RuneCountInString(label) > maxCategoryLabelLength {
		return "", appErrors.NewValidationError("Category label must be of length less than 50")
	}
	return label, nil
}

type CategoryRepository interface {
	Save(ctx context.Context, category *Category) error
	FindByID(ctx context.Context, categoryID int64) (*Category, error)
	FindByUserAndLabel(ctx context.Context, userID int64, label string) (*Category, error)
	FindByUser(ctx context.Context, userID int64) ([]Category, error)
	FindAll(ctx context.Context) ([]Category, error)
	UpdateLabel(ctx context.Context, categoryID int64, label string) error
	Delete(ctx context.Context, categoryID int64) error
}

package domain

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"time"

	appErrors "github.com/sebuszqo/ExpenseTracker/internal/errors"
	"github.com/sebuszqo/ExpenseTracker/internal/policy"
)

const dateLayout = "2006-01-02"

var ErrTransactionNotFound = errors.New("transaction not found")

// Transaction belongs to exactly one category and to that category's owner.
// A negative amount is an expense, a positive one an income.
type Transaction struct {
	ID            int64       `json:"id"`
	Label         string      `json:"label"`
	Date          Date        `json:"date"`
	Amount        float64     `json:"amount"`
	CategoryID    int64       `json:"category_id"`
	CategoryLabel string      `json:"category_label"`
	UserID        int64       `json:"user_id"`
	OwnerRole     policy.Role `json:"-"`
	CreatedAt     time.Time   `json:"created_at"`
}

func (t *Transaction) Owner() policy.Owner {
	return policy.Owner{ID: t.UserID, Role: t.OwnerRole}
}

func (t *Transaction) IsIncome() bool {
	return t.Amount > 0
}

func (t *Transaction) RoundToTwoDecimalPlaces() {
	t.Amount = math.Round(t.Amount*100) / 100
}

func (t *Transaction) Validate() error {
	t.Label = strings.TrimSpace(t.Label)
	if t.Label == "" {
		return appErrors.NewValidationError("Label must not be empty")
	}
	if len(t.Label) > 200 {
		return appErrors.NewValidationError("Label must be of length less than 200")
	}
	if t.Date.IsZero() {
		return appErrors.NewValidationError("Date is required")
	}
	if math.IsNaN(t.Amount) || math.IsInf(t.Amount, 0) {
		return appErrors.NewValidationError("Amount must be a finite number")
	}
	return nil
}

// Date is a calendar day in UTC, encoded as YYYY-MM-DD.
type Date struct {
	time.Time
}

func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Time: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

func ParseDate(value string) (Date, error) {
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		t, err = time.Parse(time.RFC3339, value)
		if err != nil {
			return Date{}, appErrors.NewValidationError("Date must be formatted as YYYY-MM-DD")
		}
	}
	return NewDate(t), nil
}

func (d Date) String() string {
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var value string
	if err := json.Unmarshal(data, &value); err != nil {
		return err
	}
	if value == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(value)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

type TransactionRepository interface {
	Save(ctx context.Context, transaction *Transaction) error
	FindByID(ctx context.Context, transactionID int64) (*Transaction, error)
	FindByUser(ctx context.Context, userID int64) ([]Transaction, error)
	FindAll(ctx context.Context) ([]Transaction, error)
	GetTransactionsInDateRange(ctx context.Context, userID int64, startDate, endDate time.Time) ([]Transaction, error)
	Update(ctx context.Context, transaction *Transaction) error
	Delete(ctx context.Context, transactionID int64) error
	// MoveToCategory re-points every transaction of one category onto another
	// and reports how many rows moved.
	MoveToCategory(ctx context.Context, fromCategoryID, toCategoryID int64) (int64, error)
	DeleteByCategory(ctx context.Context, categoryID int64) (int64, error)
}

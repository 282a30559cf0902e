package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sebuszqo/ExpenseTracker/internal/clock"
	appErrors "github.com/sebuszqo/ExpenseTracker/internal/errors"
	"github.com/sebuszqo/ExpenseTracker/internal/finance/domain"
	"github.com/sebuszqo/ExpenseTracker/internal/logging"
	"github.com/sebuszqo/ExpenseTracker/internal/policy"
)

var (
	errTransactionNotFound         = appErrors.NewNotFoundError("Transaction not found")
	errTransactionToUpdateNotFound = appErrors.NewNotFoundError("Transaction you want to update does not exist")
	errTransactionToDeleteNotFound = appErrors.NewNotFoundError("Transaction you want to delete does not exist")
	errCategoryLabelRequired       = appErrors.NewValidationError("Category label is required")
)

type CategoryServiceInterface interface {
	GetUserCategories(ctx context.Context, userID int64) ([]domain.Category, error)
	GetUserCategoryByLabel(ctx context.Context, userID int64, label string) (*domain.Category, error)
}

type CreateTransactionInput struct {
	Label         string      `json:"label"`
	Date          domain.Date `json:"date"`
	Amount        float64     `json:"amount"`
	CategoryLabel string      `json:"category_label"`
}

// UpdateTransactionInput is a patch: nil fields are left untouched.
type UpdateTransactionInput struct {
	Label         *string      `json:"label,omitempty"`
	Date          *domain.Date `json:"date,omitempty"`
	Amount        *float64     `json:"amount,omitempty"`
	CategoryLabel *string      `json:"category_label,omitempty"`
}

type TransactionService struct {
	store           domain.Store
	categoryService CategoryServiceInterface
	clock           clock.Clock
	logger          *slog.Logger
}

func NewTransactionService(store domain.Store, categoryService CategoryServiceInterface, clk clock.Clock, logger *slog.Logger) *TransactionService {
	return &TransactionService{
		store:           store,
		categoryService: categoryService,
		clock:           clock.Resolve(clk),
		logger:          logging.Resolve(logger),
	}
}

func (s *TransactionService) newTransaction(input CreateTransactionInput) (*domain.Transaction, string, error) {
	transaction := &domain.Transaction{
		Label:     input.Label,
		Date:      input.Date,
		Amount:    input.Amount,
		CreatedAt: s.clock.Now(),
	}
	transaction.RoundToTwoDecimalPlaces()
	if err := transaction.Validate(); err != nil {
		return nil, "", err
	}
	label := strings.TrimSpace(input.CategoryLabel)
	if label == "" {
		return nil, "", errCategoryLabelRequired
	}
	return transaction, label, nil
}

// CreateTransaction resolves the category by label among the user's own
// categories. Owner and category ids are never taken from the caller.
func (s *TransactionService) CreateTransaction(ctx context.Context, userID int64, input CreateTransactionInput) (*domain.Transaction, error) {
	transaction, label, err := s.newTransaction(input)
	if err != nil {
		return nil, err
	}

	category, err := s.categoryService.GetUserCategoryByLabel(ctx, userID, label)
	if err != nil {
		return nil, err
	}
	transaction.CategoryID = category.ID
	transaction.CategoryLabel = category.Label
	transaction.UserID = category.UserID
	transaction.OwnerRole = category.OwnerRole

	if err := s.store.Transactions().Save(ctx, transaction); err != nil {
		s.logger.Error("Error saving transaction", "user_id", userID, "error", err)
		return nil, ErrInternalError
	}
	return transaction, nil
}

// CreateTransactionsBulk stores all transactions or none of them. Every
// invalid row is reported with its 1-based position.
func (s *TransactionService) CreateTransactionsBulk(ctx context.Context, userID int64, inputs []CreateTransactionInput) ([]domain.Transaction, error) {
	if len(inputs) == 0 {
		return nil, appErrors.NewValidationError("No transactions provided")
	}

	userCategories, err := s.categoryService.GetUserCategories(ctx, userID)
	if err != nil {
		return nil, err
	}
	categoryMap := make(map[string]domain.Category, len(userCategories))
	for _, category := range userCategories {
		categoryMap[category.Label] = category
	}

	var validationErrors = &appErrors.ValidationErrors{}
	transactions := make([]*domain.Transaction, 0, len(inputs))
	for i, input := range inputs {
		transaction, label, err := s.newTransaction(input)
		if err != nil {
			validationErrors.Add(appErrors.NewIndexedValidationError(i+1, err.Error()))
			continue
		}
		category, exists := categoryMap[label]
		if !exists {
			validationErrors.Add(appErrors.NewIndexedValidationError(i+1, fmt.Sprintf("Category %s does not exist", label)))
			continue
		}
		transaction.CategoryID = category.ID
		transaction.CategoryLabel = category.Label
		transaction.UserID = category.UserID
		transaction.OwnerRole = category.OwnerRole
		transactions = append(transactions, transaction)
	}
	if len(validationErrors.Errors) > 0 {
		return nil, validationErrors
	}

	err = s.store.InTx(ctx, func(store domain.Store) error {
		repo := store.Transactions()
		for i, transaction := range transactions {
			if err := repo.Save(ctx, transaction); err != nil {
				return fmt.Errorf("database error at transaction %d: %w", i+1, err)
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Error saving transactions", "user_id", userID, "error", err)
		return nil, ErrInternalError
	}

	created := make([]domain.Transaction, len(transactions))
	for i, transaction := range transactions {
		created[i] = *transaction
	}
	return created, nil
}

func (s *TransactionService) findInScope(ctx context.Context, id int64, actor policy.Actor, notFound error) (*domain.Transaction, error) {
	transaction, err := s.store.Transactions().FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrTransactionNotFound) {
			return nil, notFound
		}
		s.logger.Error("Error looking up transaction", "transaction_id", id, "error", err)
		return nil, ErrInternalError
	}
	if !policy.InScope(actor, transaction.UserID) {
		return nil, notFound
	}
	return transaction, nil
}

func (s *TransactionService) GetTransaction(ctx context.Context, id int64, actor policy.Actor) (*domain.Transaction, error) {
	return s.findInScope(ctx, id, actor, errTransactionNotFound)
}

func (s *TransactionService) GetUserTransactions(ctx context.Context, userID int64) ([]domain.Transaction, error) {
	transactions, err := s.store.Transactions().FindByUser(ctx, userID)
	if err != nil {
		s.logger.Error("Error listing transactions", "user_id", userID, "error", err)
		return nil, ErrInternalError
	}
	return transactions, nil
}

func (s *TransactionService) GetAllTransactions(ctx context.Context, actor policy.Actor) ([]domain.Transaction, error) {
	if err := policy.RequireAdmin(actor).Err(); err != nil {
		return nil, err
	}
	transactions, err := s.store.Transactions().FindAll(ctx)
	if err != nil {
		s.logger.Error("Error listing transactions", "error", err)
		return nil, ErrInternalError
	}
	return transactions, nil
}

// UpdateTransaction applies the patch. A new category label is resolved
// against the transaction's existing owner, not against the caller.
func (s *TransactionService) UpdateTransaction(ctx context.Context, id int64, input UpdateTransactionInput, actor policy.Actor) (*domain.Transaction, error) {
	transaction, err := s.findInScope(ctx, id, actor, errTransactionToUpdateNotFound)
	if err != nil {
		return nil, err
	}
	if err := policy.CanAct(actor, policy.ActionUpdate, transaction.Owner()).Err(); err != nil {
		return nil, err
	}

	if input.Label != nil {
		transaction.Label = *input.Label
	}
	if input.Date != nil {
		transaction.Date = *input.Date
	}
	if input.Amount != nil {
		transaction.Amount = *input.Amount
		transaction.RoundToTwoDecimalPlaces()
	}
	if err := transaction.Validate(); err != nil {
		return nil, err
	}

	if input.CategoryLabel != nil {
		label := strings.TrimSpace(*input.CategoryLabel)
		if label == "" {
			return nil, errCategoryLabelRequired
		}
		category, err := s.categoryService.GetUserCategoryByLabel(ctx, transaction.UserID, label)
		if err != nil {
			return nil, err
		}
		transaction.CategoryID = category.ID
		transaction.CategoryLabel = category.Label
	}

	if err := s.store.Transactions().Update(ctx, transaction); err != nil {
		if errors.Is(err, domain.ErrTransactionNotFound) {
			return nil, errTransactionToUpdateNotFound
		}
		s.logger.Error("Error updating transaction", "transaction_id", id, "error", err)
		return nil, ErrInternalError
	}
	return transaction, nil
}

func (s *TransactionService) DeleteTransaction(ctx context.Context, id int64, actor policy.Actor) error {
	transaction, err := s.findInScope(ctx, id, actor, errTransactionToDeleteNotFound)
	if err != nil {
		return err
	}
	if err := policy.CanAct(actor, policy.ActionDelete, transaction.Owner()).Err(); err != nil {
		return err
	}

	if err := s.store.Transactions().Delete(ctx, id); err != nil {
		if errors.Is(err, domain.ErrTransactionNotFound) {
			return errTransactionToDeleteNotFound
		}
		s.logger.Error("Error deleting transaction", "transaction_id", id, "error", err)
		return ErrInternalError
	}
	return nil
}

type TransactionSummary struct {
	Year         int                     `json:"year"`
	IncomeTotal  float64                 `json:"income_total"`
	ExpenseTotal float64                 `json:"expense_total"`
	Months       map[string]MonthSummary `json:"months"`
}

type MonthSummary struct {
	IncomeTotal  float64       `json:"income_total"`
	ExpenseTotal float64       `json:"expense_total"`
	Weeks        []WeekSummary `json:"weeks"`
}

type WeekSummary struct {
	Week         int     `json:"week"`
	IncomeTotal  float64 `json:"income_total"`
	ExpenseTotal float64 `json:"expense_total"`
}

func (s *TransactionService) GetTransactionSummary(ctx context.Context, userID int64, startDate, endDate time.Time) (map[int]TransactionSummary, error) {
	if endDate.Before(startDate) {
		return nil, appErrors.NewValidationError("End date must not be before start date")
	}
	transactions, err := s.store.Transactions().GetTransactionsInDateRange(ctx, userID, startDate, endDate)
	if err != nil {
		s.logger.Error("Error loading transactions for summary", "user_id", userID, "error", err)
		return nil, ErrInternalError
	}
	return summarize(transactions), nil
}

// summarize groups totals by year, month and ISO week. Expenses are reported
// as positive totals.
func summarize(transactions []domain.Transaction) map[int]TransactionSummary {
	summary := make(map[int]TransactionSummary)

	for _, transaction := range transactions {
		year := transaction.Date.Year()
		month := transaction.Date.Month().String()
		_, week := transaction.Date.ISOWeek()

		var income, expense float64
		if transaction.IsIncome() {
			income = transaction.Amount
		} else {
			expense = -transaction.Amount
		}

		yearSummary, exists := summary[year]
		if !exists {
			yearSummary = TransactionSummary{
				Year:   year,
				Months: make(map[string]MonthSummary),
			}
		}
		yearSummary.IncomeTotal += income
		yearSummary.ExpenseTotal += expense

		monthSummary := yearSummary.Months[month]
		if monthSummary.Weeks == nil {
			monthSummary.Weeks = []WeekSummary{}
		}
		monthSummary.IncomeTotal += income
		monthSummary.ExpenseTotal += expense

		found := false
		for i := range monthSummary.Weeks {
			if monthSummary.Weeks[i].Week == week {
				monthSummary.Weeks[i].IncomeTotal += income
				monthSummary.Weeks[i].ExpenseTotal += expense
				found = true
				break
			}
		}
		if !found {
			monthSummary.Weeks = append(monthSummary.Weeks, WeekSummary{
				Week:         week,
				IncomeTotal:  income,
				ExpenseTotal: expense,
			})
		}

		yearSummary.Months[month] = monthSummary
		summary[year] = yearSummary
	}

	return summary
}

package interfaces

import (
	"context"
	"errors"
	"fmt"
	"time"

	appErrors "github.com/sebuszqo/ExpenseTracker/internal/errors"
	"github.com/sebuszqo/ExpenseTracker/internal/finance/application"
	"github.com/sebuszqo/ExpenseTracker/internal/finance/domain"
	"github.com/sebuszqo/ExpenseTracker/internal/policy"
)

type MockTransactionService struct {
	transactions []domain.Transaction
	summary      map[int]application.TransactionSummary
	shouldFail   bool

	summaryStart time.Time
	summaryEnd   time.Time
}

var userCategoryLabels = map[string]int64{
	"Groceries": 10,
	"Other":     20,
}

func (m *MockTransactionService) CreateTransaction(_ context.Context, userID int64, input application.CreateTransactionInput) (*domain.Transaction, error) {
	if m.shouldFail {
		return nil, errors.New("service error")
	}
	categoryID, exists := userCategoryLabels[input.CategoryLabel]
	if !exists {
		return nil, appErrors.NewNotFoundError(fmt.Sprintf("Category %s does not exist", input.CategoryLabel))
	}
	transaction := domain.Transaction{
		ID:            int64(len(m.transactions) + 1),
		Label:         input.Label,
		Date:          input.Date,
		Amount:        input.Amount,
		CategoryID:    categoryID,
		CategoryLabel: input.CategoryLabel,
		UserID:        userID,
	}
	m.transactions = append(m.transactions, transaction)
	return &transaction, nil
}

func (m *MockTransactionService) CreateTransactionsBulk(_ context.Context, userID int64, inputs []application.CreateTransactionInput) ([]domain.Transaction, error) {
	var validationErrors = &appErrors.ValidationErrors{}
	created := make([]domain.Transaction, 0, len(inputs))

	for i, input := range inputs {
		transaction := domain.Transaction{Label: input.Label, Date: input.Date, Amount: input.Amount, UserID: userID}
		if err := transaction.Validate(); err != nil {
			validationErrors.Add(appErrors.NewIndexedValidationError(i+1, err.Error()))
			continue
		}
		categoryID, exists := userCategoryLabels[input.CategoryLabel]
		if !exists {
			validationErrors.Add(appErrors.NewIndexedValidationError(i+1, fmt.Sprintf("Category %s does not exist", input.CategoryLabel)))
			continue
		}
		transaction.CategoryID = categoryID
		transaction.CategoryLabel = input.CategoryLabel
		created = append(created, transaction)
	}

	if len(validationErrors.Errors) > 0 {
		return nil, validationErrors
	}
	m.transactions = append(m.transactions, created...)
	return created, nil
}

func (m *MockTransactionService) GetTransaction(_ context.Context, id int64, actor policy.Actor) (*domain.Transaction, error) {
	for i := range m.transactions {
		if m.transactions[i].ID == id && policy.InScope(actor, m.transactions[i].UserID) {
			return &m.transactions[i], nil
		}
	}
	return nil, appErrors.NewNotFoundError("Transaction not found")
}

func (m *MockTransactionService) GetUserTransactions(_ context.Context, userID int64) ([]domain.Transaction, error) {
	if m.shouldFail {
		return nil, errors.New("service error")
	}
	transactions := []domain.Transaction{}
	for _, transaction := range m.transactions {
		if transaction.UserID == userID {
			transactions = append(transactions, transaction)
		}
	}
	return transactions, nil
}

func (m *MockTransactionService) GetAllTransactions(_ context.Context, actor policy.Actor) ([]domain.Transaction, error) {
	if err := policy.RequireAdmin(actor).Err(); err != nil {
		return nil, err
	}
	return m.transactions, nil
}

func (m *MockTransactionService) UpdateTransaction(ctx context.Context, id int64, input application.UpdateTransactionInput, actor policy.Actor) (*domain.Transaction, error) {
	transaction, err := m.GetTransaction(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	if err := policy.CanAct(actor, policy.ActionUpdate, transaction.Owner()).Err(); err != nil {
		return nil, err
	}
	if input.Label != nil {
		transaction.Label = *input.Label
	}
	if input.Amount != nil {
		transaction.Amount = *input.Amount
	}
	return transaction, nil
}

func (m *MockTransactionService) DeleteTransaction(ctx context.Context, id int64, actor policy.Actor) error {
	transaction, err := m.GetTransaction(ctx, id, actor)
	if err != nil {
		return err
	}
	return policy.CanAct(actor, policy.ActionDelete, transaction.Owner()).Err()
}

func (m *MockTransactionService) GetTransactionSummary(_ context.Context, _ int64, startDate, endDate time.Time) (map[int]application.TransactionSummary, error) {
	m.summaryStart, m.summaryEnd = startDate, endDate
	if m.shouldFail {
		return nil, errors.New("service error")
	}
	return m.summary, nil
}

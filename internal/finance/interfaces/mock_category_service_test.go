package interfaces

import (
	"context"
	"errors"

	appErrors "github.com/sebuszqo/ExpenseTracker/internal/errors"
	"github.com/sebuszqo/ExpenseTracker/internal/finance/domain"
	"github.com/sebuszqo/ExpenseTracker/internal/policy"
)

type MockCategoryService struct {
	categories []domain.Category
	defaults   []string
	shouldFail bool
}

func (m *MockCategoryService) fail() error {
	if m.shouldFail {
		return errors.New("service error")
	}
	return nil
}

func (m *MockCategoryService) find(id int64, actor policy.Actor) (*domain.Category, error) {
	for i := range m.categories {
		if m.categories[i].ID == id && policy.InScope(actor, m.categories[i].UserID) {
			return &m.categories[i], nil
		}
	}
	return nil, appErrors.NewNotFoundError("Category not found")
}

func (m *MockCategoryService) CreateCategory(_ context.Context, userID int64, label string) (*domain.Category, error) {
	if err := m.fail(); err != nil {
		return nil, err
	}
	for _, category := range m.categories {
		if category.UserID == userID && category.Label == label {
			return nil, appErrors.NewConflictError("Category " + label + " already exists")
		}
	}
	category := domain.Category{ID: int64(len(m.categories) + 1), Label: label, UserID: userID}
	m.categories = append(m.categories, category)
	return &category, nil
}

func (m *MockCategoryService) GetCategory(_ context.Context, id int64, actor policy.Actor) (*domain.Category, error) {
	if err := m.fail(); err != nil {
		return nil, err
	}
	return m.find(id, actor)
}

func (m *MockCategoryService) GetUserCategories(_ context.Context, userID int64) ([]domain.Category, error) {
	if err := m.fail(); err != nil {
		return nil, err
	}
	categories := []domain.Category{}
	for _, category := range m.categories {
		if category.UserID == userID {
			categories = append(categories, category)
		}
	}
	return categories, nil
}

func (m *MockCategoryService) GetAllCategories(_ context.Context, actor policy.Actor) ([]domain.Category, error) {
	if err := policy.RequireAdmin(actor).Err(); err != nil {
		return nil, err
	}
	return m.categories, m.fail()
}

func (m *MockCategoryService) UpdateCategory(_ context.Context, id int64, label string, actor policy.Actor) (*domain.Category, error) {
	category, err := m.find(id, actor)
	if err != nil {
		return nil, err
	}
	if category.IsOther() {
		return nil, appErrors.NewForbiddenError(`You can't rename the "Other" category`)
	}
	category.Label = label
	return category, nil
}

func (m *MockCategoryService) DeleteCategory(_ context.Context, id int64, actor policy.Actor) error {
	category, err := m.find(id, actor)
	if err != nil {
		return err
	}
	if category.IsOther() {
		return appErrors.NewForbiddenError(`You can't delete the "Other" category`)
	}
	return m.fail()
}

func (m *MockCategoryService) DefaultCategories() []string {
	return m.defaults
}

func (m *MockCategoryService) UpdateDefaultCategories(actor policy.Actor, labels []string) ([]string, error) {
	if err := policy.RequireAdmin(actor).Err(); err != nil {
		return nil, err
	}
	m.defaults = labels
	return labels, nil
}

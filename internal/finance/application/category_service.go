package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/sebuszqo/ExpenseTracker/internal/clock"
	database "github.com/sebuszqo/ExpenseTracker/internal/db"
	appErrors "github.com/sebuszqo/ExpenseTracker/internal/errors"
	"github.com/sebuszqo/ExpenseTracker/internal/finance/domain"
	"github.com/sebuszqo/ExpenseTracker/internal/logging"
	"github.com/sebuszqo/ExpenseTracker/internal/policy"
)

var (
	ErrInternalError               = errors.New("internal Server Error")
	errCategoryToUpdateNotFound    = appErrors.NewNotFoundError("Category you want to update does not exist")
	errCategoryToDeleteNotFound    = appErrors.NewNotFoundError("Category you want to delete does not exist")
	errCategoryNotFound            = appErrors.NewNotFoundError("Category not found")
	errOtherCategoryIsNotRenamable = appErrors.NewForbiddenError(`You can't rename the "Other" category`)
	errOtherCategoryIsNotDeletable = appErrors.NewForbiddenError(`You can't delete the "Other" category`)
)

type CategoryService struct {
	store  domain.Store
	clock  clock.Clock
	logger *slog.Logger

	// defaults is the process-wide template new users are seeded with.
	mu       sync.RWMutex
	defaults []string
}

func NewCategoryService(store domain.Store, defaults []string, clk clock.Clock, logger *slog.Logger) *CategoryService {
	s := &CategoryService{
		store:  store,
		clock:  clock.Resolve(clk),
		logger: logging.Resolve(logger),
	}
	s.defaults = sanitizeDefaults(defaults)
	return s
}

func categoryExists(label string) error {
	return appErrors.NewConflictError(fmt.Sprintf("Category %s already exists", label))
}

func (s *CategoryService) CreateCategory(ctx context.Context, userID int64, label string) (*domain.Category, error) {
	label, err := domain.NormalizeCategoryLabel(label)
	if err != nil {
		return nil, err
	}

	categories := s.store.Categories()
	_, err = categories.FindByUserAndLabel(ctx, userID, label)
	if err == nil {
		return nil, categoryExists(label)
	}
	if !errors.Is(err, domain.ErrCategoryNotFound) {
		s.logger.Error("Error looking up category", "user_id", userID, "error", err)
		return nil, ErrInternalError
	}

	category := &domain.Category{Label: label, UserID: userID, CreatedAt: s.clock.Now()}
	if err := categories.Save(ctx, category); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, categoryExists(label)
		}
		s.logger.Error("Error saving category", "user_id", userID, "error", err)
		return nil, ErrInternalError
	}
	return category, nil
}

// ProvisionDefaults creates the template categories and "Other" for a new
// user on the caller's transaction.
func (s *CategoryService) ProvisionDefaults(ctx context.Context, tx database.DBTX, userID int64) error {
	categories := s.store.Bind(tx).Categories()
	now := s.clock.Now()

	for _, label := range append(s.DefaultCategories(), domain.OtherCategoryLabel) {
		if err := categories.Save(ctx, &domain.Category{Label: label, UserID: userID, CreatedAt: now}); err != nil {
			return fmt.Errorf("could not provision category %q: %w", label, err)
		}
	}
	return nil
}

// findInScope loads a category and hides it from actors outside its scope.
func (s *CategoryService) findInScope(ctx context.Context, categories domain.CategoryRepository, id int64, actor policy.Actor, notFound error) (*domain.Category, error) {
	category, err := categories.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrCategoryNotFound) {
			return nil, notFound
		}
		s.logger.Error("Error looking up category", "category_id", id, "error", err)
		return nil, ErrInternalError
	}
	if !policy.InScope(actor, category.UserID) {
		return nil, notFound
	}
	return category, nil
}

func (s *CategoryService) GetCategory(ctx context.Context, id int64, actor policy.Actor) (*domain.Category, error) {
	return s.findInScope(ctx, s.store.Categories(), id, actor, errCategoryNotFound)
}

func (s *CategoryService) GetUserCategories(ctx context.Context, userID int64) ([]domain.Category, error) {
	categories, err := s.store.Categories().FindByUser(ctx, userID)
	if err != nil {
		s.logger.Error("Error listing categories", "user_id", userID, "error", err)
		return nil, ErrInternalError
	}
	return categories, nil
}

func (s *CategoryService) GetAllCategories(ctx context.Context, actor policy.Actor) ([]domain.Category, error) {
	if err := policy.RequireAdmin(actor).Err(); err != nil {
		return nil, err
	}
	categories, err := s.store.Categories().FindAll(ctx)
	if err != nil {
		s.logger.Error("Error listing categories", "error", err)
		return nil, ErrInternalError
	}
	return categories, nil
}

func (s *CategoryService) GetUserCategoryByLabel(ctx context.Context, userID int64, label string) (*domain.Category, error) {
	category, err := s.store.Categories().FindByUserAndLabel(ctx, userID, label)
	if err != nil {
		if errors.Is(err, domain.ErrCategoryNotFound) {
			return nil, appErrors.NewNotFoundError(fmt.Sprintf("Category %s does not exist", label))
		}
		s.logger.Error("Error looking up category", "user_id", userID, "error", err)
		return nil, ErrInternalError
	}
	return category, nil
}

func (s *CategoryService) UpdateCategory(ctx context.Context, id int64, label string, actor policy.Actor) (*domain.Category, error) {
	categories := s.store.Categories()
	category, err := s.findInScope(ctx, categories, id, actor, errCategoryToUpdateNotFound)
	if err != nil {
		return nil, err
	}
	if err := policy.CanAct(actor, policy.ActionUpdate, category.Owner()).Err(); err != nil {
		return nil, err
	}
	if category.IsOther() {
		return nil, errOtherCategoryIsNotRenamable
	}

	label, err = domain.NormalizeCategoryLabel(label)
	if err != nil {
		return nil, err
	}
	if label == category.Label {
		return category, nil
	}

	_, err = categories.FindByUserAndLabel(ctx, category.UserID, label)
	if err == nil {
		return nil, categoryExists(label)
	}
	if !errors.Is(err, domain.ErrCategoryNotFound) {
		s.logger.Error("Error looking up category", "category_id", id, "error", err)
		return nil, ErrInternalError
	}

	if err := categories.UpdateLabel(ctx, id, label); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, categoryExists(label)
		}
		s.logger.Error("Error updating category", "category_id", id, "error", err)
		return nil, ErrInternalError
	}
	category.Label = label
	return category, nil
}

// DeleteCategory moves the category's transactions onto the owner's "Other"
// category and removes it. Both steps commit or roll back together. If the
// owner has no "Other", the transactions are deleted with the category.
func (s *CategoryService) DeleteCategory(ctx context.Context, id int64, actor policy.Actor) error {
	var moved int64
	err := s.store.InTx(ctx, func(store domain.Store) error {
		categories := store.Categories()
		category, err := s.findInScope(ctx, categories, id, actor, errCategoryToDeleteNotFound)
		if err != nil {
			return err
		}
		if err := policy.CanAct(actor, policy.ActionDelete, category.Owner()).Err(); err != nil {
			return err
		}
		if category.IsOther() {
			return errOtherCategoryIsNotDeletable
		}

		other, err := categories.FindByUserAndLabel(ctx, category.UserID, domain.OtherCategoryLabel)
		switch {
		case err == nil:
			moved, err = store.Transactions().MoveToCategory(ctx, category.ID, other.ID)
			if err != nil {
				return err
			}
		case errors.Is(err, domain.ErrCategoryNotFound):
			// no Other to merge into: the transactions go with the category
			removed, err := store.Transactions().DeleteByCategory(ctx, category.ID)
			if err != nil {
				return err
			}
			s.logger.Warn("Owner has no Other category, deleted category transactions", "user_id", category.UserID, "deleted_transactions", removed)
		default:
			return err
		}

		return categories.Delete(ctx, category.ID)
	})
	if err != nil {
		if appErrors.KindOf(err) != appErrors.KindInternal {
			return err
		}
		s.logger.Error("Error deleting category", "category_id", id, "error", err)
		return ErrInternalError
	}

	s.logger.Info("Category deleted", "category_id", id, "moved_transactions", moved, "actor_id", actor.ID)
	return nil
}

func (s *CategoryService) DefaultCategories() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.defaults...)
}

// UpdateDefaultCategories replaces the template list. "Other" is always
// provisioned separately and is dropped from the input.
func (s *CategoryService) UpdateDefaultCategories(actor policy.Actor, labels []string) ([]string, error) {
	if err := policy.RequireAdmin(actor).Err(); err != nil {
		return nil, err
	}
	for _, label := range labels {
		if _, err := domain.NormalizeCategoryLabel(label); err != nil {
			return nil, err
		}
	}

	defaults := sanitizeDefaults(labels)
	s.mu.Lock()
	s.defaults = defaults
	s.mu.Unlock()

	s.logger.Info("Default categories updated", "categories", defaults, "actor_id", actor.ID)
	return append([]string(nil), defaults...), nil
}

func sanitizeDefaults(labels []string) []string {
	seen := make(map[string]struct{}, len(labels))
	defaults := make([]string, 0, len(labels))
	for _, label := range labels {
		label, err := domain.NormalizeCategoryLabel(label)
		if err != nil || label == domain.OtherCategoryLabel {
			continue
		}
		if _, ok := seen[label]; ok {
			continue
		}
		seen[label] = struct{}{}
		defaults = append(defaults, label)
	}
	return defaults
}

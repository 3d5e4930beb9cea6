// Package services sits between the dispatcher and the category store and
// applies the store retry policy.
package services

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/filestash/internal/bot/models"
	"github.com/dmitrijs2005/filestash/internal/bot/repositories/categories"
	"github.com/dmitrijs2005/filestash/internal/common"
	"github.com/dmitrijs2005/filestash/internal/logging"
	"github.com/sethvargo/go-retry"
)

const defaultRetryDelay = 200 * time.Millisecond

// CategoryService retries a store call once when it fails with
// common.ErrStoreUnavailable. Other errors are returned as is.
type CategoryService struct {
	repo   categories.Repository
	logger logging.Logger
	delay  time.Duration
}

func NewCategoryService(repo categories.Repository, logger logging.Logger, retryDelay time.Duration) *CategoryService {
	if retryDelay <= 0 {
		retryDelay = defaultRetryDelay
	}
	return &CategoryService{
		repo:   repo,
		logger: logger.With("module", "category_service"),
		delay:  retryDelay,
	}
}

func withRetry[T any](ctx context.Context, s *CategoryService, op string, fn func(context.Context) (T, error)) (T, error) {
	var out T
	attempt := 0
	err := retry.Do(ctx, retry.WithMaxRetries(1, retry.NewConstant(s.delay)), func(ctx context.Context) error {
		attempt++
		v, err := fn(ctx)
		if err == nil {
			out = v
			return nil
		}
		if errors.Is(err, common.ErrStoreUnavailable) {
			s.logger.Warn(ctx, "store call failed", "op", op, "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		return err
	})
	return out, err
}

func (s *CategoryService) ListCategories(ctx context.Context, userID string) ([]string, error) {
	return withRetry(ctx, s, "list_categories", func(ctx context.Context) ([]string, error) {
		return s.repo.ListCategories(ctx, userID)
	})
}

// Overview returns every category of the user with its files, for views that
// show counts.
func (s *CategoryService) Overview(ctx context.Context, userID string) (models.Categories, error) {
	doc, err := withRetry(ctx, s, "get_user", func(ctx context.Context) (*models.UserDocument, error) {
		return s.repo.GetUser(ctx, userID)
	})
	if err != nil {
		return nil, err
	}
	return doc.Categories, nil
}

func (s *CategoryService) CreateCategory(ctx context.Context, userID, name string) (bool, error) {
	created, err := withRetry(ctx, s, "create_category", func(ctx context.Context) (bool, error) {
		return s.repo.CreateCategory(ctx, userID, name)
	})
	if err == nil && created {
		s.logger.Info(ctx, "category created", "user", userID, "category", name)
	}
	return created, err
}

// AddFile appends rec. Retrying is safe because the store ignores a second
// record with the same archive message id.
func (s *CategoryService) AddFile(ctx context.Context, userID, category string, rec models.FileRecord) (bool, error) {
	return withRetry(ctx, s, "add_file", func(ctx context.Context) (bool, error) {
		return s.repo.AddFile(ctx, userID, category, rec)
	})
}

func (s *CategoryService) ListFiles(ctx context.Context, userID, category string) ([]models.FileRecord, error) {
	return withRetry(ctx, s, "list_files", func(ctx context.Context) ([]models.FileRecord, error) {
		return s.repo.ListFiles(ctx, userID, category)
	})
}

func (s *CategoryService) DeleteCategory(ctx context.Context, userID, category string) (bool, error) {
	existed, err := withRetry(ctx, s, "delete_category", func(ctx context.Context) (bool, error) {
		return s.repo.DeleteCategory(ctx, userID, category)
	})
	if err == nil && existed {
		s.logger.Info(ctx, "category deleted", "user", userID, "category", category)
	}
	return existed, err
}

package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/noah-isme/heritage-api/internal/models"
	appErrors "github.com/noah-isme/heritage-api/pkg/errors"
)

// DashboardCachePattern matches every cached dashboard payload.
const DashboardCachePattern = "dash:*"

const pqUniqueViolation = "23505"

// dashboardInvalidator drops cached overviews after writes that feed them.
type dashboardInvalidator interface {
	Invalidate(ctx context.Context, pattern string) error
}

func paginate(req models.PageRequest, total int) *models.Pagination {
	n := req.Normalize()
	return &models.Pagination{Page: n.Page, Limit: n.Limit, Total: total}
}

func validationError(err error, message string) *appErrors.Error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
}

// lookupError maps sql.ErrNoRows to NOT_FOUND and everything else to INTERNAL_ERROR.
func lookupError(err error, notFound, failure string) *appErrors.Error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, notFound)
	}
	return appErrors.Internal(err, failure)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation
}

func requireUUID(id, field string) error {
	if _, err := uuid.Parse(id); err != nil {
		return validationError(err, field+" must be a valid id")
	}
	return nil
}

func newValidator(v *validator.Validate) *validator.Validate {
	if v == nil {
		return validator.New()
	}
	return v
}

func newLogger(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}

func invalidateDashboard(ctx context.Context, cache dashboardInvalidator, logger *zap.Logger) {
	if cache == nil {
		return
	}
	if err := cache.Invalidate(ctx, DashboardCachePattern); err != nil {
		logger.Warn("dashboard cache invalidation failed", zap.Error(err))
	}
}

// existenceChecker reports whether a referenced record is stored.
type existenceChecker interface {
	Exists(ctx context.Context, id string) (bool, error)
}

func requireExisting(ctx context.Context, repo existenceChecker, id, field, notFound string) error {
	if err := requireUUID(id, field); err != nil {
		return err
	}
	ok, err := repo.Exists(ctx, id)
	if err != nil {
		return appErrors.Internal(err, "failed to verify "+field)
	}
	if !ok {
		return appErrors.Clone(appErrors.ErrNotFound, notFound)
	}
	return nil
}

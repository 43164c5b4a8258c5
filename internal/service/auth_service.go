package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/noah-isme/heritage-api/internal/models"
	appErrors "github.com/noah-isme/heritage-api/pkg/errors"
	"github.com/noah-isme/heritage-api/pkg/identity"
)

type userByClerkID interface {
	FindByClerkID(ctx context.Context, clerkID string) (*models.User, error)
}

// AuthService resolves bearer tokens to active internal users.
type AuthService struct {
	verifier identity.Verifier
	users    userByClerkID
	metrics  *MetricsService
	logger   *zap.Logger
}

// NewAuthService creates an instance of AuthService.
func NewAuthService(verifier identity.Verifier, users userByClerkID, metrics *MetricsService, logger *zap.Logger) *AuthService {
	return &AuthService{verifier: verifier, users: users, metrics: metrics, logger: newLogger(logger)}
}

// Authenticate verifies token and returns the matching active user. Every failure
// is reported as UNAUTHORIZED.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	claims, err := s.verifier.Verify(ctx, token)
	if err != nil {
		s.metrics.RecordAuthFailure("invalid_token")
		s.logger.Debug("token rejected", zap.Error(err))
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired token")
	}

	user, err := s.users.FindByClerkID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.metrics.RecordAuthFailure("unknown_user")
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "user not found")
		}
		return nil, appErrors.Internal(err, "failed to resolve user")
	}
	if !user.IsActive {
		s.metrics.RecordAuthFailure("inactive_user")
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "user account is deactivated")
	}
	return user, nil
}

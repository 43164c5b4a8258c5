package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/heritage-api/internal/dto"
	"github.com/noah-isme/heritage-api/internal/models"
	appErrors "github.com/noah-isme/heritage-api/pkg/errors"
)

// Fallbacks applied when a lifecycle event lacks a name or address.
const (
	UnknownUserName   = "Unknown"
	DefaultSyncedRole = models.RoleSiteOfficer
)

// PlaceholderEmail keeps the unique email constraint satisfiable for accounts without an address.
func PlaceholderEmail(clerkID string) string {
	return "no-email+" + strings.ToLower(clerkID) + "@example.com"
}

type userRepository interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByClerkID(ctx context.Context, clerkID string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	Deactivate(ctx context.Context, id string) error
}

// CreateUserRequest represents payload for creating users.
type CreateUserRequest struct {
	ClerkID string          `json:"clerkId" validate:"required"`
	Name    string          `json:"name" validate:"required"`
	Email   string          `json:"email" validate:"required,email"`
	Role    models.UserRole `json:"role" validate:"required,oneof=NATIONAL_ADMIN STATE_ADMIN SITE_OFFICER"`
	StateID *string         `json:"stateId"`
	SiteID  *string         `json:"siteId" validate:"omitempty,uuid"`
}

// UpdateUserRequest payload for updating users.
type UpdateUserRequest struct {
	Name     *string          `json:"name" validate:"omitempty,min=1"`
	Email    *string          `json:"email" validate:"omitempty,email"`
	Role     *models.UserRole `json:"role" validate:"omitempty,oneof=NATIONAL_ADMIN STATE_ADMIN SITE_OFFICER"`
	StateID  *string          `json:"stateId"`
	SiteID   *string          `json:"siteId" validate:"omitempty,uuid"`
	IsActive *bool            `json:"isActive"`
}

// UserService handles user management workflows.
type UserService struct {
	repo      userRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService creates an instance of UserService.
func NewUserService(repo userRepository, validate *validator.Validate, logger *zap.Logger) *UserService {
	return &UserService{repo: repo, validator: newValidator(validate), logger: newLogger(logger)}
}

// List returns paginated users and pagination metadata.
func (s *UserService) List(ctx context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list users")
	}
	if users == nil {
		users = []models.User{}
	}
	return users, paginate(filter.PageRequest, total), nil
}

// Get returns a user by ID.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	if err := requireUUID(id, "id"); err != nil {
		return nil, err
	}
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "user not found", "failed to load user")
	}
	return user, nil
}

// Create adds a new user. Duplicate external ids or emails are conflicts.
func (s *UserService) Create(ctx context.Context, req CreateUserRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid create user payload")
	}
	user := &models.User{
		ClerkID:  req.ClerkID,
		Name:     strings.TrimSpace(req.Name),
		Email:    strings.ToLower(strings.TrimSpace(req.Email)),
		Role:     req.Role,
		StateID:  req.StateID,
		SiteID:   req.SiteID,
		IsActive: true,
	}
	if err := s.insert(ctx, user); err != nil {
		return nil, err
	}
	s.logger.Info("user created", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))
	return user, nil
}

func (s *UserService) insert(ctx context.Context, user *models.User) error {
	if _, err := s.repo.FindByClerkID(ctx, user.ClerkID); err == nil {
		return appErrors.Clone(appErrors.ErrConflict, "user with this clerk id already exists")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return appErrors.Internal(err, "failed to check clerk id uniqueness")
	}
	if _, err := s.repo.FindByEmail(ctx, user.Email); err == nil {
		return appErrors.Clone(appErrors.ErrConflict, "email already exists")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return appErrors.Internal(err, "failed to check email uniqueness")
	}

	if err := s.repo.Create(ctx, user); err != nil {
		if isUniqueViolation(err) {
			return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "user already exists")
		}
		return appErrors.Internal(err, "failed to create user")
	}
	return nil
}

// Update modifies mutable user fields.
func (s *UserService) Update(ctx context.Context, id string, req UpdateUserRequest) (*models.User, error) {
	if err := requireUUID(id, "id"); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid update user payload")
	}
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "user not found", "failed to load user")
	}

	if req.Name != nil {
		user.Name = strings.TrimSpace(*req.Name)
	}
	if req.Email != nil {
		user.Email = strings.ToLower(strings.TrimSpace(*req.Email))
	}
	if req.Role != nil {
		user.Role = *req.Role
	}
	if req.StateID != nil {
		user.StateID = req.StateID
	}
	if req.SiteID != nil {
		user.SiteID = req.SiteID
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}
	if err := s.save(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) save(ctx context.Context, user *models.User) error {
	if err := s.repo.Update(ctx, user); err != nil {
		if isUniqueViolation(err) {
			return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "email already exists")
		}
		return lookupError(err, "user not found", "failed to update user")
	}
	return nil
}

// Delete deactivates a user.
func (s *UserService) Delete(ctx context.Context, id string) error {
	if err := requireUUID(id, "id"); err != nil {
		return err
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return lookupError(err, "user not found", "failed to deactivate user")
	}
	s.logger.Info("user deactivated", zap.String("user_id", id))
	return nil
}

// FindByClerkID resolves the internal user for an external identity.
func (s *UserService) FindByClerkID(ctx context.Context, clerkID string) (*models.User, error) {
	user, err := s.repo.FindByClerkID(ctx, clerkID)
	if err != nil {
		return nil, lookupError(err, "user not found", "failed to load user")
	}
	return user, nil
}

// HandleLifecycleEvent mirrors an identity provider event. Unknown event types are
// logged and acknowledged.
func (s *UserService) HandleLifecycleEvent(ctx context.Context, event dto.WebhookEvent) error {
	if event.Data.ID == "" && (event.Type == dto.EventUserCreated || event.Type == dto.EventUserUpdated || event.Type == dto.EventUserDeleted) {
		return appErrors.Clone(appErrors.ErrValidation, "webhook payload is missing the user id")
	}
	switch event.Type {
	case dto.EventUserCreated:
		return s.syncCreated(ctx, event.Data)
	case dto.EventUserUpdated:
		return s.syncUpdated(ctx, event.Data)
	case dto.EventUserDeleted:
		return s.syncDeleted(ctx, event.Data.ID)
	default:
		s.logger.Warn("unhandled webhook event type", zap.String("type", event.Type))
		return nil
	}
}

func (s *UserService) syncCreated(ctx context.Context, data dto.WebhookUserData) error {
	user := &models.User{
		ClerkID:  data.ID,
		Name:     data.FullName(),
		Email:    strings.ToLower(data.PrimaryEmail()),
		Role:     models.UserRole(data.MetadataRole()),
		IsActive: true,
	}
	if user.Name == "" {
		user.Name = UnknownUserName
	}
	if user.Email == "" {
		user.Email = PlaceholderEmail(data.ID)
	}
	if !user.Role.Valid() {
		user.Role = DefaultSyncedRole
	}
	if err := s.insert(ctx, user); err != nil {
		return err
	}
	s.logger.Info("user synced from identity provider", zap.String("clerk_id", data.ID), zap.String("user_id", user.ID))
	return nil
}

func (s *UserService) syncUpdated(ctx context.Context, data dto.WebhookUserData) error {
	user, err := s.repo.FindByClerkID(ctx, data.ID)
	if err != nil {
		return lookupError(err, "user not found", "failed to load user")
	}
	if name := data.FullName(); name != "" {
		user.Name = name
	}
	if email := data.PrimaryEmail(); email != "" {
		user.Email = strings.ToLower(email)
	}
	if role := models.UserRole(data.MetadataRole()); role.Valid() {
		user.Role = role
	}
	if err := s.save(ctx, user); err != nil {
		return err
	}
	s.logger.Info("user updated from identity provider", zap.String("clerk_id", data.ID))
	return nil
}

func (s *UserService) syncDeleted(ctx context.Context, clerkID string) error {
	user, err := s.repo.FindByClerkID(ctx, clerkID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Info("ignoring delete for unknown identity", zap.String("clerk_id", clerkID))
			return nil
		}
		return appErrors.Internal(err, "failed to load user")
	}
	if err := s.repo.Deactivate(ctx, user.ID); err != nil {
		return lookupError(err, "user not found", "failed to deactivate user")
	}
	s.logger.Info("user deactivated from identity provider", zap.String("clerk_id", clerkID))
	return nil
}

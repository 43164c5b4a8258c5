package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/heritage-api/internal/models"
	appErrors "github.com/noah-isme/heritage-api/pkg/errors"
)

type approvalRepository interface {
	List(ctx context.Context, filter models.ApprovalFilter) ([]models.Approval, int, error)
	FindByID(ctx context.Context, id string) (*models.Approval, error)
	Create(ctx context.Context, approval *models.Approval) error
	Review(ctx context.Context, approval *models.Approval) error
	Delete(ctx context.Context, id string) error
}

// SubjectResolver knows how to check and load one kind of approval subject.
type SubjectResolver struct {
	Exists func(ctx context.Context, id string) (bool, error)
	Load   func(ctx context.Context, id string) (interface{}, error)
}

// SubjectResolvers is keyed by subject type. Types without an entry have no backing record.
type SubjectResolvers map[models.SubjectType]SubjectResolver

// IncidentSubject resolves INCIDENT approvals.
func IncidentSubject(repo existenceChecker, incidents *IncidentService) SubjectResolver {
	return SubjectResolver{
		Exists: repo.Exists,
		Load: func(ctx context.Context, id string) (interface{}, error) {
			return incidents.Get(ctx, id)
		},
	}
}

// ConservationSubject resolves CONSERVATION approvals.
func ConservationSubject(repo existenceChecker, projects *ConservationService) SubjectResolver {
	return SubjectResolver{
		Exists: repo.Exists,
		Load: func(ctx context.Context, id string) (interface{}, error) {
			return projects.Get(ctx, id)
		},
	}
}

// CreateApprovalRequest is the payload for submitting an approval.
type CreateApprovalRequest struct {
	Type        models.SubjectType `json:"type" validate:"required,oneof=CONSERVATION INCIDENT REPORT BUDGET"`
	ReferenceID string             `json:"referenceId" validate:"required"`
	Title       string             `json:"title" validate:"required,max=200"`
	Description string             `json:"description"`
	IsPriority  bool               `json:"isPriority"`
}

// ReviewApprovalRequest records a decision.
type ReviewApprovalRequest struct {
	Status      models.ApprovalStatus `json:"status" validate:"required,oneof=APPROVED REJECTED"`
	ReviewNotes *string               `json:"reviewNotes"`
}

// ApprovalService manages the approval workflow.
type ApprovalService struct {
	repo      approvalRepository
	subjects  SubjectResolvers
	cache     dashboardInvalidator
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewApprovalService creates an instance of ApprovalService.
func NewApprovalService(repo approvalRepository, subjects SubjectResolvers, cache dashboardInvalidator, validate *validator.Validate, logger *zap.Logger) *ApprovalService {
	if subjects == nil {
		subjects = SubjectResolvers{}
	}
	return &ApprovalService{repo: repo, subjects: subjects, cache: cache, validator: newValidator(validate), logger: newLogger(logger), now: time.Now}
}

// List returns approvals with priority items first.
func (s *ApprovalService) List(ctx context.Context, filter models.ApprovalFilter) ([]models.Approval, *models.Pagination, error) {
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list approvals")
	}
	for i := range items {
		items[i].WithRefs()
	}
	if items == nil {
		items = []models.Approval{}
	}
	return items, paginate(filter.PageRequest, total), nil
}

// Get returns an approval, optionally with its subject record attached.
func (s *ApprovalService) Get(ctx context.Context, id string, expandSubject bool) (*models.Approval, error) {
	if err := requireUUID(id, "id"); err != nil {
		return nil, err
	}
	approval, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "approval not found", "failed to load approval")
	}
	approval.WithRefs()
	if expandSubject {
		resolved, err := s.ResolveSubject(ctx, approval.Subject)
		if err != nil {
			return nil, err
		}
		approval.Resolved = resolved
	}
	return approval, nil
}

// ResolveSubject loads the record an approval points at. Subjects without a
// backing table resolve to the reference itself.
func (s *ApprovalService) ResolveSubject(ctx context.Context, subject models.ApprovalSubject) (interface{}, error) {
	resolver, ok := s.subjects[subject.Type]
	if !ok || resolver.Load == nil {
		return subject, nil
	}
	return resolver.Load(ctx, subject.ID)
}

// Create submits a PENDING approval on behalf of actorID.
func (s *ApprovalService) Create(ctx context.Context, req CreateApprovalRequest, actorID string) (*models.Approval, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid approval payload")
	}
	if resolver, ok := s.subjects[req.Type]; ok && resolver.Exists != nil {
		if err := requireExisting(ctx, existsFunc(resolver.Exists), req.ReferenceID, "referenceId", string(req.Type)+" reference not found"); err != nil {
			return nil, err
		}
	}

	approval := &models.Approval{
		SubjectType: req.Type,
		SubjectID:   req.ReferenceID,
		Title:       req.Title,
		Description: req.Description,
		Status:      models.ApprovalPending,
		IsPriority:  req.IsPriority,
	}
	if actorID != "" {
		approval.SubmittedBy = &actorID
	}
	if err := s.repo.Create(ctx, approval); err != nil {
		return nil, appErrors.Internal(err, "failed to create approval")
	}
	invalidateDashboard(ctx, s.cache, s.logger)
	s.logger.Info("approval submitted", zap.String("approval_id", approval.ID), zap.String("subject", string(approval.SubjectType)))
	return s.Get(ctx, approval.ID, false)
}

// Review records the decision of reviewerID. An approval is reviewed at most once.
func (s *ApprovalService) Review(ctx context.Context, id string, req ReviewApprovalRequest, reviewerID string) (*models.Approval, error) {
	if err := requireUUID(id, "id"); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid review payload")
	}
	approval, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "approval not found", "failed to load approval")
	}
	if approval.Status != models.ApprovalPending {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "approval has already been reviewed")
	}

	reviewedAt := s.now().UTC()
	approval.Status = req.Status
	approval.ReviewedAt = &reviewedAt
	approval.ReviewNotes = req.ReviewNotes
	if reviewerID != "" {
		approval.ReviewedBy = &reviewerID
	}

	if err := s.repo.Review(ctx, approval); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidState, "approval has already been reviewed")
		}
		return nil, appErrors.Internal(err, "failed to review approval")
	}
	invalidateDashboard(ctx, s.cache, s.logger)
	s.logger.Info("approval reviewed", zap.String("approval_id", id), zap.String("status", string(req.Status)))
	return s.Get(ctx, id, false)
}

// Delete removes an approval.
func (s *ApprovalService) Delete(ctx context.Context, id string) error {
	if err := requireUUID(id, "id"); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return lookupError(err, "approval not found", "failed to delete approval")
	}
	invalidateDashboard(ctx, s.cache, s.logger)
	return nil
}

type existsFunc func(ctx context.Context, id string) (bool, error)

func (f existsFunc) Exists(ctx context.Context, id string) (bool, error) {
	return f(ctx, id)
}

package models

import (
	"fmt"
	"time"
)

// SubjectType names the kind of record an approval refers to.
type SubjectType string

const (
	SubjectConservation SubjectType = "CONSERVATION"
	SubjectIncident     SubjectType = "INCIDENT"
	SubjectReport       SubjectType = "REPORT"
	SubjectBudget       SubjectType = "BUDGET"
)

// Valid reports whether the subject type is known.
func (t SubjectType) Valid() bool {
	switch t {
	case SubjectConservation, SubjectIncident, SubjectReport, SubjectBudget:
		return true
	}
	return false
}

// ApprovalStatus moves from PENDING to APPROVED or REJECTED exactly once.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "PENDING"
	ApprovalApproved ApprovalStatus = "APPROVED"
	ApprovalRejected ApprovalStatus = "REJECTED"
)

// ApprovalSubject points at the record under review.
type ApprovalSubject struct {
	Type SubjectType `json:"type"`
	ID   string      `json:"referenceId"`
}

func (s ApprovalSubject) String() string {
	return fmt.Sprintf("%s:%s", s.Type, s.ID)
}

// Approval is a review request for a subject record.
type Approval struct {
	ID          string         `db:"id" json:"id"`
	SubjectType SubjectType    `db:"subject_type" json:"-"`
	SubjectID   string         `db:"subject_id" json:"-"`
	Title       string         `db:"title" json:"title"`
	Description string         `db:"description" json:"description"`
	Status      ApprovalStatus `db:"status" json:"status"`
	IsPriority  bool           `db:"is_priority" json:"isPriority"`
	SubmittedBy *string        `db:"submitted_by" json:"submittedBy,omitempty"`
	ReviewedBy  *string        `db:"reviewed_by" json:"reviewedBy,omitempty"`
	ReviewedAt  *time.Time     `db:"reviewed_at" json:"reviewedAt,omitempty"`
	ReviewNotes *string        `db:"review_notes" json:"reviewNotes,omitempty"`
	CreatedAt   time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updatedAt"`

	SubmitterName *string `db:"submitter_name" json:"-"`
	SubmitterMail *string `db:"submitter_email" json:"-"`
	ReviewerName  *string `db:"reviewer_name" json:"-"`
	ReviewerMail  *string `db:"reviewer_email" json:"-"`

	Subject   ApprovalSubject `db:"-" json:"subject"`
	Submitter *UserRef        `db:"-" json:"submitter,omitempty"`
	Reviewer  *UserRef        `db:"-" json:"reviewer,omitempty"`
	Resolved  interface{}     `db:"-" json:"resolvedSubject,omitempty"`
}

// WithRefs lifts flat storage columns into their response shapes.
func (a *Approval) WithRefs() *Approval {
	a.Subject = ApprovalSubject{Type: a.SubjectType, ID: a.SubjectID}
	if a.SubmittedBy != nil && a.SubmitterName != nil {
		a.Submitter = &UserRef{ID: *a.SubmittedBy, Name: *a.SubmitterName, Email: deref(a.SubmitterMail)}
	}
	if a.ReviewedBy != nil && a.ReviewerName != nil {
		a.Reviewer = &UserRef{ID: *a.ReviewedBy, Name: *a.ReviewerName, Email: deref(a.ReviewerMail)}
	}
	return a
}

// ApprovalFilter captures list filters for approvals.
type ApprovalFilter struct {
	Status ApprovalStatus
	Type   SubjectType
	PageRequest
}

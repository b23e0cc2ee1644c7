package services

import (
	"context"
	"time"

	"qube-quest/models"
)

// AccountStore is the durable, per-key atomic record of balances and cube counts.
// Writes are conditional on the account version read beforehand; a lost race
// returns ErrVersionConflict and leaves the record untouched.
type AccountStore interface {
	// CreateAccount inserts acct unless a record with the same address exists.
	// created reports whether this call inserted it.
	CreateAccount(ctx context.Context, acct *models.UserAccount) (created bool, err error)
	GetAccount(ctx context.Context, address string) (*models.UserAccount, error)
	// ApplySpin replaces the account with next if its version is still
	// expectedVersion and appends rec, as one unit.
	ApplySpin(ctx context.Context, expectedVersion int64, next *models.UserAccount, rec *models.SpinRecord) error
	ListSpins(ctx context.Context, address string, limit int) ([]models.SpinRecord, error)
}

// Review is a status change on a submission plus, for approvals, the credited account.
type Review struct {
	SubmissionID string
	To           models.SubmissionStatus
	At           time.Time

	// SubmittedAt and Points identify the revision that was reviewed. A
	// resubmission since then makes the commit a version conflict.
	SubmittedAt time.Time
	Points      int64

	// Account and ExpectedVersion are set for approvals only.
	Account         *models.UserAccount
	ExpectedVersion int64
}

type SubmissionFilter struct {
	Status      models.SubmissionStatus
	UserAddress string
	QuestID     string
	Limit       int
}

// SubmissionStore persists task submissions keyed by their triple-derived id.
type SubmissionStore interface {
	// PutSubmission writes sub at sub.ID, replacing a pending or rejected record.
	// An approved record is never replaced: ErrInvalidTransition.
	PutSubmission(ctx context.Context, sub *models.TaskSubmission) error
	GetSubmission(ctx context.Context, id string) (*models.TaskSubmission, error)
	ListSubmissions(ctx context.Context, filter SubmissionFilter) ([]models.TaskSubmission, error)
	// CommitReview moves a pending submission to r.To and, for approvals, writes
	// r.Account at r.ExpectedVersion, as one unit. ErrVersionConflict if the
	// submission was resubmitted or reviewed meanwhile, or the account moved on.
	CommitReview(ctx context.Context, r Review) error
}

// Store is the full persistence capability the core needs.
type Store interface {
	AccountStore
	SubmissionStore
}

package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"qube-quest/models"

	"go.uber.org/zap"
)

// SubmissionID derives the record key of (user, quest, task): hex sha256 of "user-quest-task".
func SubmissionID(userAddress, questID, taskID string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s-%s-%s", userAddress, questID, taskID)))
	return hex.EncodeToString(sum[:])
}

// SubmitRequest is one proof of completion for a task.
type SubmitRequest struct {
	UserAddress string
	QuestID     string
	TaskID      string
	TaskType    models.TaskType
	Method      models.VerificationMethod
	Proof       map[string]interface{} // stored as-is; "imageUrl" for screenshot tasks
	Points      int64
}

// SubmissionLedger records one submission per (user, quest, task) and credits
// the user's balance when a submission is approved.
type SubmissionLedger struct {
	store       Store
	publisher   AccountPublisher
	logger      *zap.Logger
	metrics     *Metrics
	maxAttempts int
	now         func() time.Time
}

func NewSubmissionLedger(store Store, publisher AccountPublisher, logger *zap.Logger, metrics *Metrics) *SubmissionLedger {
	return &SubmissionLedger{
		store:       store,
		publisher:   publisher,
		logger:      logger,
		metrics:     metrics,
		maxAttempts: DefaultSpinAttempts,
		now:         time.Now,
	}
}

// Submit stores the proof at the triple's key as a pending submission, replacing a
// pending or rejected one. Approved submissions cannot be replaced: ErrInvalidTransition.
func (l *SubmissionLedger) Submit(ctx context.Context, req SubmitRequest) (*models.TaskSubmission, error) {
	addr, err := NormalizeAddress(req.UserAddress)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.QuestID) == "" || strings.TrimSpace(req.TaskID) == "" {
		return nil, fmt.Errorf("%w: quest and task ids are required", ErrInvalidArgument)
	}
	if req.Points < 0 {
		return nil, fmt.Errorf("%w: negative point value %d", ErrInvalidArgument, req.Points)
	}
	if _, err := l.store.GetAccount(ctx, addr); err != nil {
		return nil, err
	}

	taskType := req.TaskType
	if taskType == "" {
		taskType = models.TaskTypeScreenshot
	}
	method := req.Method
	if method == "" {
		method = models.VerificationManual
	}
	payload := make(map[string]interface{}, len(req.Proof))
	for k, v := range req.Proof {
		payload[k] = v
	}

	sub := &models.TaskSubmission{
		ID:          SubmissionID(addr, req.QuestID, req.TaskID),
		UserAddress: addr,
		QuestID:     req.QuestID,
		TaskID:      req.TaskID,
		TaskType:    taskType,
		Payload:     payload,
		Method:      method,
		Points:      req.Points,
		Status:      models.SubmissionPending,
		SubmittedAt: l.now().UTC(),
	}
	if err := l.store.PutSubmission(ctx, sub); err != nil {
		if errors.Is(err, ErrInvalidTransition) {
			return nil, fmt.Errorf("%w: submission %s is already approved", ErrInvalidTransition, sub.ID)
		}
		return nil, err
	}

	l.logger.Info("📝 submission stored",
		zap.String("id", sub.ID),
		zap.String("address", addr),
		zap.String("quest_id", req.QuestID),
		zap.String("task_id", req.TaskID))
	return sub, nil
}

// Get returns the submission of (user, quest, task).
func (l *SubmissionLedger) Get(ctx context.Context, userAddress, questID, taskID string) (*models.TaskSubmission, error) {
	addr, err := NormalizeAddress(userAddress)
	if err != nil {
		return nil, err
	}
	return l.store.GetSubmission(ctx, SubmissionID(addr, questID, taskID))
}

func (l *SubmissionLedger) List(ctx context.Context, filter SubmissionFilter) ([]models.TaskSubmission, error) {
	return l.store.ListSubmissions(ctx, filter)
}

// Approve moves a pending submission to approved and credits its points to the
// owner in the same commit. Approving an approved submission is a no-op;
// approving a rejected one is ErrInvalidTransition.
func (l *SubmissionLedger) Approve(ctx context.Context, submissionID string) (*models.TaskSubmission, error) {
	for attempt := 1; attempt <= l.maxAttempts; attempt++ {
		sub, err := l.store.GetSubmission(ctx, submissionID)
		if err != nil {
			return nil, err
		}
		switch sub.Status {
		case models.SubmissionApproved:
			return sub, nil
		case models.SubmissionRejected:
			return nil, fmt.Errorf("%w: submission %s is rejected", ErrInvalidTransition, submissionID)
		}

		acct, err := l.store.GetAccount(ctx, sub.UserAddress)
		if err != nil {
			return nil, err
		}
		now := l.now().UTC()
		next := acct.Clone()
		next.Points += sub.Points
		next.UpdatedAt = now

		err = l.store.CommitReview(ctx, Review{
			SubmissionID:    submissionID,
			To:              models.SubmissionApproved,
			At:              now,
			SubmittedAt:     sub.SubmittedAt,
			Points:          sub.Points,
			Account:         next,
			ExpectedVersion: acct.Version,
		})
		if errors.Is(err, ErrVersionConflict) {
			continue
		}
		if err != nil {
			return nil, err
		}

		sub.Status = models.SubmissionApproved
		sub.ApprovedAt = &now
		l.metrics.ObserveReview(string(models.SubmissionApproved), sub.Points)
		if l.publisher != nil {
			l.publisher.Publish(ctx, next.Snapshot())
		}
		l.logger.Info("✅ submission approved",
			zap.String("id", submissionID),
			zap.String("address", sub.UserAddress),
			zap.Int64("points", sub.Points),
			zap.Int64("balance", next.Points))
		return sub, nil
	}
	return nil, fmt.Errorf("%w: approve %s after %d attempts", ErrConcurrencyExhausted, submissionID, l.maxAttempts)
}

// Reject moves a pending submission to rejected. Rejecting a rejected submission
// is a no-op; rejecting an approved one is ErrInvalidTransition.
func (l *SubmissionLedger) Reject(ctx context.Context, submissionID string) (*models.TaskSubmission, error) {
	for attempt := 1; attempt <= l.maxAttempts; attempt++ {
		sub, err := l.store.GetSubmission(ctx, submissionID)
		if err != nil {
			return nil, err
		}
		switch sub.Status {
		case models.SubmissionRejected:
			return sub, nil
		case models.SubmissionApproved:
			return nil, fmt.Errorf("%w: submission %s is approved", ErrInvalidTransition, submissionID)
		}

		now := l.now().UTC()
		err = l.store.CommitReview(ctx, Review{
			SubmissionID: submissionID,
			To:           models.SubmissionRejected,
			At:           now,
			SubmittedAt:  sub.SubmittedAt,
			Points:       sub.Points,
		})
		if errors.Is(err, ErrVersionConflict) {
			continue
		}
		if err != nil {
			return nil, err
		}

		sub.Status = models.SubmissionRejected
		sub.RejectedAt = &now
		l.metrics.ObserveReview(string(models.SubmissionRejected), 0)
		l.logger.Info("🚫 submission rejected", zap.String("id", submissionID), zap.String("address", sub.UserAddress))
		return sub, nil
	}
	return nil, fmt.Errorf("%w: reject %s after %d attempts", ErrConcurrencyExhausted, submissionID, l.maxAttempts)
}

package services

import (
	"context"
	"errors"
	"fmt"

	"qube-quest/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const defaultListLimit = 100

// GormStore implements Store on postgres (production) or sqlite (local, tests).
// Every account write is an UPDATE conditioned on the version the caller read.
type GormStore struct {
	DB *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{DB: db}
}

func (s *GormStore) CreateAccount(ctx context.Context, acct *models.UserAccount) (bool, error) {
	res := s.DB.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "address"}}, DoNothing: true}).
		Create(acct)
	if res.Error != nil {
		return false, storeErr("create account", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (s *GormStore) GetAccount(ctx context.Context, address string) (*models.UserAccount, error) {
	var acct models.UserAccount
	if err := s.DB.WithContext(ctx).First(&acct, "address = ?", address).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, storeErr("get account", err)
	}
	return &acct, nil
}

func (s *GormStore) ApplySpin(ctx context.Context, expectedVersion int64, next *models.UserAccount, rec *models.SpinRecord) error {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := updateAccountAt(tx, expectedVersion, next); err != nil {
			return err
		}
		if rec != nil {
			if err := tx.Create(rec).Error; err != nil {
				return fmt.Errorf("append spin record: %w", err)
			}
		}
		return nil
	})
	return storeErr("apply spin", err)
}

func (s *GormStore) ListSpins(ctx context.Context, address string, limit int) ([]models.SpinRecord, error) {
	if limit <= 0 || limit > defaultListLimit {
		limit = defaultListLimit
	}
	var spins []models.SpinRecord
	err := s.DB.WithContext(ctx).
		Where("user_address = ?", address).
		Order("created_at DESC").
		Limit(limit).
		Find(&spins).Error
	if err != nil {
		return nil, storeErr("list spins", err)
	}
	return spins, nil
}

func (s *GormStore) PutSubmission(ctx context.Context, sub *models.TaskSubmission) error {
	res := s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"user_address", "quest_id", "task_id", "task_type", "payload",
			"verification_method", "points", "status",
			"submitted_at", "approved_at", "rejected_at",
		}),
		// an approved proof has already been paid out and stays as it is
		Where: clause.Where{Exprs: []clause.Expression{
			clause.Neq{
				Column: clause.Column{Table: "task_submissions", Name: "status"},
				Value:  models.SubmissionApproved,
			},
		}},
	}).Create(sub)
	if res.Error != nil {
		return storeErr("put submission", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrInvalidTransition
	}
	return nil
}

func (s *GormStore) GetSubmission(ctx context.Context, id string) (*models.TaskSubmission, error) {
	var sub models.TaskSubmission
	if err := s.DB.WithContext(ctx).First(&sub, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubmissionNotFound
		}
		return nil, storeErr("get submission", err)
	}
	return &sub, nil
}

func (s *GormStore) ListSubmissions(ctx context.Context, filter SubmissionFilter) ([]models.TaskSubmission, error) {
	q := s.DB.WithContext(ctx).Model(&models.TaskSubmission{})
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.UserAddress != "" {
		q = q.Where("user_address = ?", filter.UserAddress)
	}
	if filter.QuestID != "" {
		q = q.Where("quest_id = ?", filter.QuestID)
	}
	limit := filter.Limit
	if limit <= 0 || limit > defaultListLimit {
		limit = defaultListLimit
	}

	var subs []models.TaskSubmission
	if err := q.Order("submitted_at DESC").Limit(limit).Find(&subs).Error; err != nil {
		return nil, storeErr("list submissions", err)
	}
	return subs, nil
}

func (s *GormStore) CommitReview(ctx context.Context, r Review) error {
	atColumn, err := reviewTimestampColumn(r.To)
	if err != nil {
		return err
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.TaskSubmission{}).
			Where("id = ? AND status = ? AND submitted_at = ? AND points = ?",
				r.SubmissionID, models.SubmissionPending, r.SubmittedAt, r.Points).
			Updates(map[string]interface{}{"status": r.To, atColumn: r.At})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var n int64
			if err := tx.Model(&models.TaskSubmission{}).Where("id = ?", r.SubmissionID).Count(&n).Error; err != nil {
				return err
			}
			if n == 0 {
				return ErrSubmissionNotFound
			}
			return ErrVersionConflict
		}

		if r.To == models.SubmissionApproved && r.Account != nil {
			return updateAccountAt(tx, r.ExpectedVersion, r.Account)
		}
		return nil
	})
	return storeErr("commit review", err)
}

// updateAccountAt writes next over the row only if the row is still at expectedVersion.
func updateAccountAt(tx *gorm.DB, expectedVersion int64, next *models.UserAccount) error {
	if next.Points < 0 {
		return fmt.Errorf("%w: negative balance for %s", ErrInvalidArgument, next.Address)
	}
	next.Version = expectedVersion + 1

	res := tx.Model(&models.UserAccount{}).
		Where("address = ? AND version = ?", next.Address, expectedVersion).
		Updates(map[string]interface{}{
			"points":           next.Points,
			"cubes_common":     next.Cubes.Common,
			"cubes_rare":       next.Cubes.Rare,
			"cubes_super_rare": next.Cubes.SuperRare,
			"cubes_legendary":  next.Cubes.Legendary,
			"version":          next.Version,
			"updated_at":       next.UpdatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrVersionConflict
	}
	return nil
}

func reviewTimestampColumn(to models.SubmissionStatus) (string, error) {
	switch to {
	case models.SubmissionApproved:
		return "approved_at", nil
	case models.SubmissionRejected:
		return "rejected_at", nil
	}
	return "", fmt.Errorf("%w: review to %q", ErrInvalidTransition, to)
}

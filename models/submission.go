package models

import (
	"time"

	"gorm.io/datatypes"
)

type SubmissionStatus string

const (
	SubmissionPending  SubmissionStatus = "pending"
	SubmissionApproved SubmissionStatus = "approved"
	SubmissionRejected SubmissionStatus = "rejected"
)

// TaskType is the mechanism a task is completed with.
type TaskType string

const (
	TaskTypeScreenshot  TaskType = "screenshot"
	TaskTypeURL         TaskType = "url"
	TaskTypeFollowX     TaskType = "follow_x"
	TaskTypeJoinDiscord TaskType = "join_discord"
	TaskTypeButtonClick TaskType = "button_click"
	TaskTypeOther       TaskType = "other"
)

func (t TaskType) Valid() bool {
	switch t {
	case TaskTypeScreenshot, TaskTypeURL, TaskTypeFollowX, TaskTypeJoinDiscord, TaskTypeButtonClick, TaskTypeOther:
		return true
	}
	return false
}

type VerificationMethod string

const (
	VerificationManual     VerificationMethod = "manual"
	VerificationXAPI       VerificationMethod = "x_api"
	VerificationDiscordAPI VerificationMethod = "discord_api"
	VerificationOther      VerificationMethod = "other"
)

// TaskSubmission is a user's proof for one quest task. ID is derived from
// (user, quest, task) so a user can only ever hold one record per task.
type TaskSubmission struct {
	ID          string             `gorm:"primaryKey;type:varchar(64)" json:"id"`
	UserAddress string             `gorm:"index;not null;type:varchar(64)" json:"user_id"`
	QuestID     string             `gorm:"index;not null" json:"quest_id"`
	TaskID      string             `gorm:"not null" json:"task_id"`
	TaskType    TaskType           `gorm:"type:varchar(32);not null;default:'screenshot'" json:"task_type"`
	Payload     datatypes.JSONMap  `json:"payload"` // {"imageUrl": "..."} plus task-specific fields
	Method      VerificationMethod `gorm:"column:verification_method;type:varchar(32);not null;default:'manual'" json:"verification_method"`
	Points      int64              `gorm:"not null;default:0" json:"points"`
	Status      SubmissionStatus   `gorm:"type:varchar(16);index;not null;default:'pending'" json:"status"`

	SubmittedAt time.Time  `gorm:"not null" json:"submitted_at"`
	ApprovedAt  *time.Time `json:"approved_at"`
	RejectedAt  *time.Time `json:"rejected_at"`
}

// ImageURL returns the stored proof image reference, if any.
func (s *TaskSubmission) ImageURL() string {
	if s.Payload == nil {
		return ""
	}
	v, _ := s.Payload["imageUrl"].(string)
	return v
}

func (s *TaskSubmission) Clone() *TaskSubmission {
	if s == nil {
		return nil
	}
	cp := *s
	if s.Payload != nil {
		cp.Payload = make(datatypes.JSONMap, len(s.Payload))
		for k, v := range s.Payload {
			cp.Payload[k] = v
		}
	}
	if s.ApprovedAt != nil {
		t := *s.ApprovedAt
		cp.ApprovedAt = &t
	}
	if s.RejectedAt != nil {
		t := *s.RejectedAt
		cp.RejectedAt = &t
	}
	return &cp
}

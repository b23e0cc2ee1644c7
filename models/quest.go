// models/quest.go
package models

import (
	"time"

	"gorm.io/gorm"
)

type QuestStatus string

const (
	QuestStatusDraft     QuestStatus = "draft"
	QuestStatusScheduled QuestStatus = "scheduled" // becomes active at StartAt
	QuestStatusActive    QuestStatus = "active"
	QuestStatusEnded     QuestStatus = "ended"
	QuestStatusArchived  QuestStatus = "archived"
)

// Quest is a themed set of tasks published by a partner project.
type Quest struct {
	ID   string `json:"id" gorm:"primaryKey"`
	Slug string `json:"slug" gorm:"uniqueIndex;not null"`

	// 🏷️ Project that owns the quest
	ProjectName    string `json:"project_name" gorm:"not null"`
	ProjectLogoURL string `json:"project_logo_url"`

	Title       string `json:"title" gorm:"not null"`
	Description string `json:"description"`
	Catchphrase string `json:"catchphrase"`

	// 🎛️ Visibility and lifecycle
	IsVisible         bool        `json:"is_visible" gorm:"default:false"`
	HeroCarouselOrder *int        `json:"hero_carousel_order,omitempty"` // nil = not in the hero carousel
	Status            QuestStatus `json:"status" gorm:"type:varchar(16);index;default:'draft'"`
	StartAt           *time.Time  `json:"start_at,omitempty"`
	EndAt             *time.Time  `json:"end_at,omitempty"`

	Tasks []QuestTask `json:"tasks" gorm:"foreignKey:QuestID"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// QuestTask is one completable action inside a quest.
type QuestTask struct {
	ID          string   `json:"id" gorm:"primaryKey"`
	QuestID     string   `json:"quest_id" gorm:"index;not null"`
	Label       string   `json:"label" gorm:"not null"`
	Type        TaskType `json:"type" gorm:"type:varchar(32);default:'screenshot'"`
	Points      int64    `json:"points" gorm:"not null;default:0"`
	ActionLabel string   `json:"action_label,omitempty"`
	ActionURL   string   `json:"action_url,omitempty"`
	SortOrder   int      `json:"sort_order" gorm:"column:sort_order;default:0"`
}

// AcceptsSubmissions reports whether users can currently submit proofs.
func (q *Quest) AcceptsSubmissions(now time.Time) bool {
	if q.Status != QuestStatusActive {
		return false
	}
	if q.EndAt != nil && !now.Before(*q.EndAt) {
		return false
	}
	return true
}

// Task returns the task with the given id, or nil.
func (q *Quest) Task(taskID string) *QuestTask {
	for i := range q.Tasks {
		if q.Tasks[i].ID == taskID {
			return &q.Tasks[i]
		}
	}
	return nil
}

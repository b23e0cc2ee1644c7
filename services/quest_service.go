package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"qube-quest/models"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MaxVisibleQuests caps the public quest listing.
const MaxVisibleQuests = 20

type QuestService struct {
	DB     *gorm.DB
	logger *zap.Logger
	now    func() time.Time
}

func NewQuestService(db *gorm.DB, logger *zap.Logger) *QuestService {
	return &QuestService{DB: db, logger: logger, now: time.Now}
}

// NewQuestTask is one task in a CreateQuestInput.
type NewQuestTask struct {
	Label       string          `json:"label"`
	Type        models.TaskType `json:"type"`
	Points      int64           `json:"points"`
	ActionLabel string          `json:"action_label"`
	ActionURL   string          `json:"action_url"`
}

type CreateQuestInput struct {
	ProjectName       string         `json:"project_name"`
	ProjectLogoURL    string         `json:"project_logo_url"`
	Title             string         `json:"title"`
	Description       string         `json:"description"`
	Catchphrase       string         `json:"catchphrase"`
	IsVisible         bool           `json:"is_visible"`
	HeroCarouselOrder *int           `json:"hero_carousel_order"`
	StartAt           *time.Time     `json:"start_at"`
	EndAt             *time.Time     `json:"end_at"`
	Tasks             []NewQuestTask `json:"tasks"`
}

func (in CreateQuestInput) validate() error {
	if strings.TrimSpace(in.Title) == "" || strings.TrimSpace(in.ProjectName) == "" {
		return fmt.Errorf("%w: title and project_name are required", ErrInvalidArgument)
	}
	if len(in.Tasks) == 0 {
		return fmt.Errorf("%w: a quest needs at least one task", ErrInvalidArgument)
	}
	if in.StartAt != nil && in.EndAt != nil && !in.EndAt.After(*in.StartAt) {
		return fmt.Errorf("%w: end_at must be after start_at", ErrInvalidArgument)
	}
	for i, t := range in.Tasks {
		if strings.TrimSpace(t.Label) == "" {
			return fmt.Errorf("%w: task %d has no label", ErrInvalidArgument, i)
		}
		if t.Points < 0 {
			return fmt.Errorf("%w: task %d has negative points", ErrInvalidArgument, i)
		}
		if t.Type != "" && !t.Type.Valid() {
			return fmt.Errorf("%w: task %d has unknown type %q", ErrInvalidArgument, i, t.Type)
		}
	}
	return nil
}

// CreateQuest stores a new quest with its tasks. A quest without StartAt, or
// whose StartAt has passed, is active immediately; otherwise it is scheduled.
func (s *QuestService) CreateQuest(ctx context.Context, in CreateQuestInput) (*models.Quest, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	now := s.now().UTC()

	status := models.QuestStatusActive
	if in.StartAt != nil && in.StartAt.After(now) {
		status = models.QuestStatusScheduled
	}

	quest := &models.Quest{
		ID:                uuid.NewString(),
		ProjectName:       strings.TrimSpace(in.ProjectName),
		ProjectLogoURL:    in.ProjectLogoURL,
		Title:             strings.TrimSpace(in.Title),
		Description:       in.Description,
		Catchphrase:       in.Catchphrase,
		IsVisible:         in.IsVisible,
		HeroCarouselOrder: in.HeroCarouselOrder,
		Status:            status,
		StartAt:           in.StartAt,
		EndAt:             in.EndAt,
	}
	for i, t := range in.Tasks {
		taskType := t.Type
		if taskType == "" {
			taskType = models.TaskTypeScreenshot
		}
		quest.Tasks = append(quest.Tasks, models.QuestTask{
			ID:          strings.ReplaceAll(uuid.NewString(), "-", "")[:12],
			QuestID:     quest.ID,
			Label:       strings.TrimSpace(t.Label),
			Type:        taskType,
			Points:      t.Points,
			ActionLabel: t.ActionLabel,
			ActionURL:   t.ActionURL,
			SortOrder:   i,
		})
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sl, err := uniqueQuestSlug(tx, quest.Title)
		if err != nil {
			return err
		}
		quest.Slug = sl
		return tx.Create(quest).Error
	})
	if err != nil {
		return nil, storeErr("create quest", err)
	}

	s.logger.Info("🗺️ quest created",
		zap.String("id", quest.ID),
		zap.String("slug", quest.Slug),
		zap.String("status", string(quest.Status)),
		zap.Int("tasks", len(quest.Tasks)))
	return quest, nil
}

// uniqueQuestSlug slugifies title and appends -2, -3... until unused.
func uniqueQuestSlug(tx *gorm.DB, title string) (string, error) {
	base := slug.Make(title)
	if base == "" {
		base = "quest"
	}
	candidate := base
	for i := 2; ; i++ {
		var count int64
		if err := tx.Unscoped().Model(&models.Quest{}).Where("slug = ?", candidate).Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
}

// ListVisible returns visible quests that are active or scheduled, newest first.
func (s *QuestService) ListVisible(ctx context.Context) ([]models.Quest, error) {
	var quests []models.Quest
	err := s.DB.WithContext(ctx).
		Preload("Tasks", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order ASC") }).
		Where("is_visible = ? AND status IN ?", true, []models.QuestStatus{models.QuestStatusActive, models.QuestStatusScheduled}).
		Order("created_at DESC").
		Limit(MaxVisibleQuests).
		Find(&quests).Error
	if err != nil {
		return nil, storeErr("list quests", err)
	}
	return quests, nil
}

// GetQuest looks a quest up by id or slug.
func (s *QuestService) GetQuest(ctx context.Context, idOrSlug string) (*models.Quest, error) {
	var quest models.Quest
	err := s.DB.WithContext(ctx).
		Preload("Tasks", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order ASC") }).
		Where("id = ? OR slug = ?", idOrSlug, idOrSlug).
		First(&quest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrQuestNotFound, idOrSlug)
	}
	if err != nil {
		return nil, storeErr("get quest", err)
	}
	return &quest, nil
}

// OpenTask returns the quest and task a user may submit a proof for right now.
func (s *QuestService) OpenTask(ctx context.Context, questID, taskID string) (*models.Quest, *models.QuestTask, error) {
	quest, err := s.GetQuest(ctx, questID)
	if err != nil {
		return nil, nil, err
	}
	task := quest.Task(taskID)
	if task == nil {
		return nil, nil, fmt.Errorf("%w: %s in quest %s", ErrTaskNotFound, taskID, quest.ID)
	}
	if !quest.AcceptsSubmissions(s.now()) {
		return nil, nil, fmt.Errorf("%w: quest %s is %s", ErrQuestClosed, quest.ID, quest.Status)
	}
	return quest, task, nil
}

// AdvanceLifecycle activates scheduled quests whose start has passed and ends
// active quests whose end has passed. It returns how many quests changed.
func (s *QuestService) AdvanceLifecycle(ctx context.Context) (activated, ended int64, err error) {
	now := s.now().UTC()
	db := s.DB.WithContext(ctx)

	res := db.Model(&models.Quest{}).
		Where("status = ? AND start_at IS NOT NULL AND start_at <= ?", models.QuestStatusScheduled, now).
		Where("end_at IS NULL OR end_at > ?", now).
		Updates(map[string]interface{}{"status": models.QuestStatusActive, "updated_at": now})
	if res.Error != nil {
		return 0, 0, storeErr("activate quests", res.Error)
	}
	activated = res.RowsAffected

	res = db.Model(&models.Quest{}).
		Where("status IN ? AND end_at IS NOT NULL AND end_at <= ?",
			[]models.QuestStatus{models.QuestStatusActive, models.QuestStatusScheduled}, now).
		Updates(map[string]interface{}{"status": models.QuestStatusEnded, "updated_at": now})
	if res.Error != nil {
		return activated, 0, storeErr("end quests", res.Error)
	}
	ended = res.RowsAffected

	if activated > 0 || ended > 0 {
		s.logger.Info("⏱️ quest lifecycle advanced", zap.Int64("activated", activated), zap.Int64("ended", ended))
	}
	return activated, ended, nil
}

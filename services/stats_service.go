package services

import (
	"context"
	"errors"
	"time"

	"qube-quest/models"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// EconomyOverview is the admin dashboard summary.
type EconomyOverview struct {
	Accounts            int64                        `json:"accounts"`
	Tasks               int64                        `json:"tasks"`
	Submissions         int64                        `json:"submissions"`
	PointsOutstanding   int64                        `json:"points_outstanding"`
	Cubes               map[models.Tier]int64        `json:"cubes"`
	Spins               int64                        `json:"spins"`
	PointsSpent         int64                        `json:"points_spent"`
	SubmissionsByStatus map[string]int64             `json:"submissions_by_status"`
	Quests              map[models.QuestStatus]int64 `json:"quests"`
}

// QuestStats summarises submissions for one quest.
type QuestStats struct {
	QuestID          string           `json:"quest_id"`
	Tasks            int64            `json:"tasks"`
	Submissions      int64            `json:"submissions"`
	Participants     int64            `json:"participants"`
	ByStatus         map[string]int64 `json:"by_status"`
	PointsAwarded    int64            `json:"points_awarded"`
	LastSubmissionAt *time.Time       `json:"last_submission_at"`
}

type StatsService struct {
	DB *gorm.DB
}

func NewStatsService(db *gorm.DB) *StatsService {
	return &StatsService{DB: db}
}

type statusCount struct {
	Status string
	Count  int64
}

// Overview runs the independent aggregate queries concurrently.
func (s *StatsService) Overview(ctx context.Context) (*EconomyOverview, error) {
	out := &EconomyOverview{
		Cubes:               map[models.Tier]int64{},
		SubmissionsByStatus: map[string]int64{},
		Quests:              map[models.QuestStatus]int64{},
	}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var row struct {
			Accounts       int64
			Points         int64
			CubesCommon    int64
			CubesRare      int64
			CubesSuperRare int64
			CubesLegendary int64
		}
		err := s.DB.WithContext(gctx).Model(&models.UserAccount{}).
			Select(`COUNT(*) AS accounts,
				COALESCE(SUM(points), 0) AS points,
				COALESCE(SUM(cubes_common), 0) AS cubes_common,
				COALESCE(SUM(cubes_rare), 0) AS cubes_rare,
				COALESCE(SUM(cubes_super_rare), 0) AS cubes_super_rare,
				COALESCE(SUM(cubes_legendary), 0) AS cubes_legendary`).
			Scan(&row).Error
		if err != nil {
			return err
		}
		out.Accounts = row.Accounts
		out.PointsOutstanding = row.Points
		out.Cubes[models.TierCommon] = row.CubesCommon
		out.Cubes[models.TierRare] = row.CubesRare
		out.Cubes[models.TierSuperRare] = row.CubesSuperRare
		out.Cubes[models.TierLegendary] = row.CubesLegendary
		return nil
	})

	g.Go(func() error {
		var row struct {
			Spins int64
			Spent int64
		}
		err := s.DB.WithContext(gctx).Model(&models.SpinRecord{}).
			Select("COUNT(*) AS spins, COALESCE(SUM(cost), 0) AS spent").
			Scan(&row).Error
		if err != nil {
			return err
		}
		out.Spins = row.Spins
		out.PointsSpent = row.Spent
		return nil
	})

	// each query fills a disjoint part of out
	g.Go(func() error {
		var rows []statusCount
		err := s.DB.WithContext(gctx).Model(&models.TaskSubmission{}).
			Select("status, COUNT(*) AS count").Group("status").
			Scan(&rows).Error
		if err != nil {
			return err
		}
		for _, r := range rows {
			out.SubmissionsByStatus[r.Status] = r.Count
			out.Submissions += r.Count
		}
		return nil
	})

	g.Go(func() error {
		return s.DB.WithContext(gctx).Model(&models.QuestTask{}).
			Joins("JOIN quests ON quests.id = quest_tasks.quest_id AND quests.deleted_at IS NULL").
			Count(&out.Tasks).Error
	})

	g.Go(func() error {
		var rows []statusCount
		err := s.DB.WithContext(gctx).Model(&models.Quest{}).
			Select("status, COUNT(*) AS count").Group("status").
			Scan(&rows).Error
		if err != nil {
			return err
		}
		for _, r := range rows {
			out.Quests[models.QuestStatus(r.Status)] = r.Count
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, storeErr("economy overview", err)
	}
	return out, nil
}

// ForQuest aggregates submissions of one quest.
func (s *StatsService) ForQuest(ctx context.Context, questID string) (*QuestStats, error) {
	var quest models.Quest
	if err := s.DB.WithContext(ctx).Select("id").First(&quest, "id = ?", questID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrQuestNotFound
		}
		return nil, storeErr("quest stats", err)
	}

	out := &QuestStats{QuestID: questID, ByStatus: map[string]int64{}}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var rows []statusCount
		if err := s.DB.WithContext(gctx).Model(&models.TaskSubmission{}).
			Select("status, COUNT(*) AS count").
			Where("quest_id = ?", questID).Group("status").
			Scan(&rows).Error; err != nil {
			return err
		}
		for _, r := range rows {
			out.ByStatus[r.Status] = r.Count
			out.Submissions += r.Count
		}
		return nil
	})
	g.Go(func() error {
		return s.DB.WithContext(gctx).Model(&models.QuestTask{}).
			Where("quest_id = ?", questID).
			Count(&out.Tasks).Error
	})
	g.Go(func() error {
		var last models.TaskSubmission
		err := s.DB.WithContext(gctx).
			Select("submitted_at").
			Where("quest_id = ?", questID).
			Order("submitted_at DESC").
			Limit(1).
			Find(&last).Error
		if err != nil {
			return err
		}
		if !last.SubmittedAt.IsZero() {
			at := last.SubmittedAt
			out.LastSubmissionAt = &at
		}
		return nil
	})
	g.Go(func() error {
		return s.DB.WithContext(gctx).Model(&models.TaskSubmission{}).
			Where("quest_id = ?", questID).
			Distinct("user_address").
			Count(&out.Participants).Error
	})
	g.Go(func() error {
		return s.DB.WithContext(gctx).Model(&models.TaskSubmission{}).
			Select("COALESCE(SUM(points), 0)").
			Where("quest_id = ? AND status = ?", questID, models.SubmissionApproved).
			Scan(&out.PointsAwarded).Error
	})

	if err := g.Wait(); err != nil {
		return nil, storeErr("quest stats", err)
	}
	return out, nil
}

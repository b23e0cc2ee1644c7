package services

import (
	"context"
	"testing"
	"time"

	"qube-quest/models"
	"qube-quest/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newQuestService(t *testing.T, now time.Time) *QuestService {
	s := NewQuestService(testutil.OpenDB(t), zap.NewNop())
	s.now = func() time.Time { return now }
	return s
}

func questInput(title string) CreateQuestInput {
	return CreateQuestInput{
		ProjectName: "Qube Labs",
		Title:       title,
		IsVisible:   true,
		Tasks: []NewQuestTask{
			{Label: "Follow on X", Type: models.TaskTypeFollowX, Points: 10, ActionLabel: "Follow", ActionURL: "https://x.com/qube"},
			{Label: "Share a screenshot", Points: 25},
		},
	}
}

func TestCreateQuest(t *testing.T) {
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	s := newQuestService(t, now)
	ctx := context.Background()

	q, err := s.CreateQuest(ctx, questInput("Launch Week: Day 1!"))
	require.NoError(t, err)
	assert.Equal(t, "launch-week-day-1", q.Slug)
	assert.Equal(t, models.QuestStatusActive, q.Status)
	require.Len(t, q.Tasks, 2)
	assert.Equal(t, models.TaskTypeScreenshot, q.Tasks[1].Type)
	assert.Len(t, q.Tasks[0].ID, 12)
	assert.NotEqual(t, q.Tasks[0].ID, q.Tasks[1].ID)

	dup, err := s.CreateQuest(ctx, questInput("Launch Week: Day 1!"))
	require.NoError(t, err)
	assert.Equal(t, "launch-week-day-1-2", dup.Slug)

	bySlug, err := s.GetQuest(ctx, q.Slug)
	require.NoError(t, err)
	assert.Equal(t, q.ID, bySlug.ID)
	require.Len(t, bySlug.Tasks, 2)
	assert.Equal(t, "Follow on X", bySlug.Tasks[0].Label)

	_, err = s.GetQuest(ctx, "nope")
	assert.ErrorIs(t, err, ErrQuestNotFound)
}

func TestCreateQuestValidation(t *testing.T) {
	s := newQuestService(t, time.Now())
	ctx := context.Background()

	noTasks := questInput("x")
	noTasks.Tasks = nil
	_, err := s.CreateQuest(ctx, noTasks)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	badType := questInput("x")
	badType.Tasks[0].Type = "telepathy"
	_, err = s.CreateQuest(ctx, badType)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	start := time.Now()
	backwards := questInput("x")
	backwards.StartAt = &start
	end := start.Add(-time.Hour)
	backwards.EndAt = &end
	_, err = s.CreateQuest(ctx, backwards)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestListVisible(t *testing.T) {
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	s := newQuestService(t, now)
	ctx := context.Background()

	_, err := s.CreateQuest(ctx, questInput("first"))
	require.NoError(t, err)
	hidden := questInput("hidden")
	hidden.IsVisible = false
	_, err = s.CreateQuest(ctx, hidden)
	require.NoError(t, err)
	s.now = func() time.Time { return now.Add(time.Minute) }
	_, err = s.CreateQuest(ctx, questInput("second"))
	require.NoError(t, err)

	list, err := s.ListVisible(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	for _, q := range list {
		assert.True(t, q.IsVisible)
		assert.NotEmpty(t, q.Tasks)
	}
}

func TestOpenTaskAndLifecycle(t *testing.T) {
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	s := newQuestService(t, now)
	ctx := context.Background()

	in := questInput("timed")
	start, end := now.Add(time.Hour), now.Add(2*time.Hour)
	in.StartAt, in.EndAt = &start, &end
	q, err := s.CreateQuest(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, models.QuestStatusScheduled, q.Status)

	_, _, err = s.OpenTask(ctx, q.ID, q.Tasks[0].ID)
	assert.ErrorIs(t, err, ErrQuestClosed)
	_, _, err = s.OpenTask(ctx, q.ID, "missing")
	assert.ErrorIs(t, err, ErrTaskNotFound)

	s.now = func() time.Time { return start.Add(time.Minute) }
	activated, ended, err := s.AdvanceLifecycle(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, activated)
	assert.Zero(t, ended)

	_, task, err := s.OpenTask(ctx, q.ID, q.Tasks[0].ID)
	require.NoError(t, err)
	assert.EqualValues(t, 10, task.Points)

	s.now = func() time.Time { return end }
	activated, ended, err = s.AdvanceLifecycle(ctx)
	require.NoError(t, err)
	assert.Zero(t, activated)
	assert.EqualValues(t, 1, ended)

	got, err := s.GetQuest(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, models.QuestStatusEnded, got.Status)
}

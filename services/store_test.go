package services

import (
	"context"
	"testing"
	"time"

	"qube-quest/models"
	"qube-quest/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pendingSubmission(user, quest, task string, points int64, at time.Time) *models.TaskSubmission {
	return &models.TaskSubmission{
		ID:          SubmissionID(user, quest, task),
		UserAddress: user,
		QuestID:     quest,
		TaskID:      task,
		TaskType:    models.TaskTypeScreenshot,
		Payload:     map[string]interface{}{"imageUrl": "https://cdn/" + task + ".png"},
		Method:      models.VerificationManual,
		Points:      points,
		Status:      models.SubmissionPending,
		SubmittedAt: at,
	}
}

func TestStoreCreateAccountOnce(t *testing.T) {
	for _, sc := range storeCases() {
		t.Run(sc.name, func(t *testing.T) {
			store := sc.open(t)
			ctx := context.Background()

			created, err := store.CreateAccount(ctx, models.NewUserAccount(alice, "a@x", time.Now().UTC()))
			require.NoError(t, err)
			assert.True(t, created)

			created, err = store.CreateAccount(ctx, models.NewUserAccount(alice, "b@x", time.Now().UTC()))
			require.NoError(t, err)
			assert.False(t, created)

			acct, err := store.GetAccount(ctx, alice)
			require.NoError(t, err)
			assert.Equal(t, "a@x", acct.Email)
			assert.EqualValues(t, 1, acct.Version)
		})
	}
}

func TestStoreApplySpinIsConditional(t *testing.T) {
	for _, sc := range storeCases() {
		t.Run(sc.name, func(t *testing.T) {
			store := sc.open(t)
			ctx := context.Background()
			acct := seedAccount(t, store, alice, 100)

			stale := acct.Clone()
			stale.Points = 1
			require.ErrorIs(t, store.ApplySpin(ctx, acct.Version-1, stale, nil), ErrVersionConflict)

			negative := acct.Clone()
			negative.Points = -50
			require.ErrorIs(t, store.ApplySpin(ctx, acct.Version, negative, nil), ErrInvalidArgument)

			next := acct.Clone()
			next.Points = 50
			next.Cubes.Add(models.TierRare, 1)
			require.NoError(t, store.ApplySpin(ctx, acct.Version, next, &models.SpinRecord{
				ID: "spin-1", UserAddress: alice, Tier: models.TierRare, Cost: 50,
				BalanceBefore: 100, BalanceAfter: 50, Roll: 12.5, CreatedAt: time.Now().UTC(),
			}))
			assert.Equal(t, acct.Version+1, next.Version)

			got, err := store.GetAccount(ctx, alice)
			require.NoError(t, err)
			assert.EqualValues(t, 50, got.Points)
			assert.EqualValues(t, 1, got.Cubes.Rare)
			assert.Equal(t, acct.Version+1, got.Version)

			spins, err := store.ListSpins(ctx, alice, 0)
			require.NoError(t, err)
			require.Len(t, spins, 1)
			assert.Equal(t, models.TierRare, spins[0].Tier)

			err = store.ApplySpin(ctx, 1, models.NewUserAccount(bob, "", time.Now()), nil)
			assert.Error(t, err)
		})
	}
}

func TestStoreCommitReviewIsAllOrNothing(t *testing.T) {
	for _, sc := range storeCases() {
		t.Run(sc.name, func(t *testing.T) {
			store := sc.open(t)
			ctx := context.Background()
			acct := seedAccount(t, store, alice, 0)
			sub := pendingSubmission(alice, "q1", "t1", 10, time.Now().UTC())
			require.NoError(t, store.PutSubmission(ctx, sub))

			credited := acct.Clone()
			credited.Points = 10
			err := store.CommitReview(ctx, Review{
				SubmissionID:    sub.ID,
				To:              models.SubmissionApproved,
				At:              time.Now().UTC(),
				SubmittedAt:     sub.SubmittedAt,
				Points:          sub.Points,
				Account:         credited,
				ExpectedVersion: acct.Version + 7,
			})
			require.ErrorIs(t, err, ErrVersionConflict)

			got, err := store.GetSubmission(ctx, sub.ID)
			require.NoError(t, err)
			assert.Equal(t, models.SubmissionPending, got.Status)
			assert.Nil(t, got.ApprovedAt)

			after, err := store.GetAccount(ctx, alice)
			require.NoError(t, err)
			assert.Zero(t, after.Points)

			stale := Review{
				SubmissionID: sub.ID,
				To:           models.SubmissionRejected,
				At:           time.Now().UTC(),
				SubmittedAt:  sub.SubmittedAt.Add(-time.Second),
				Points:       sub.Points,
			}
			require.ErrorIs(t, store.CommitReview(ctx, stale), ErrVersionConflict)
			stale.SubmittedAt, stale.Points = sub.SubmittedAt, sub.Points+1
			require.ErrorIs(t, store.CommitReview(ctx, stale), ErrVersionConflict)

			require.NoError(t, store.CommitReview(ctx, Review{
				SubmissionID:    sub.ID,
				To:              models.SubmissionApproved,
				At:              time.Now().UTC(),
				SubmittedAt:     sub.SubmittedAt,
				Points:          sub.Points,
				Account:         acct.Clone(),
				ExpectedVersion: acct.Version,
			}))
			require.ErrorIs(t, store.CommitReview(ctx, Review{SubmissionID: sub.ID, To: models.SubmissionRejected, At: time.Now()}), ErrVersionConflict)
			require.ErrorIs(t, store.CommitReview(ctx, Review{SubmissionID: sub.ID, To: models.SubmissionPending}), ErrInvalidTransition)
			require.ErrorIs(t, store.CommitReview(ctx, Review{SubmissionID: "missing", To: models.SubmissionRejected}), ErrSubmissionNotFound)
		})
	}
}

func TestStoreListSubmissionsFilters(t *testing.T) {
	for _, sc := range storeCases() {
		t.Run(sc.name, func(t *testing.T) {
			store := sc.open(t)
			ctx := context.Background()
			seedAccount(t, store, alice, 0)
			seedAccount(t, store, bob, 0)

			base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
			require.NoError(t, store.PutSubmission(ctx, pendingSubmission(alice, "q1", "t1", 5, base)))
			require.NoError(t, store.PutSubmission(ctx, pendingSubmission(alice, "q2", "t1", 5, base.Add(time.Minute))))
			require.NoError(t, store.PutSubmission(ctx, pendingSubmission(bob, "q1", "t1", 5, base.Add(2*time.Minute))))
			require.NoError(t, store.CommitReview(ctx, Review{
				SubmissionID: SubmissionID(bob, "q1", "t1"), To: models.SubmissionRejected, At: base,
				SubmittedAt: base.Add(2 * time.Minute), Points: 5,
			}))

			all, err := store.ListSubmissions(ctx, SubmissionFilter{})
			require.NoError(t, err)
			require.Len(t, all, 3)
			assert.Equal(t, bob, all[0].UserAddress, "newest first")

			pending, err := store.ListSubmissions(ctx, SubmissionFilter{Status: models.SubmissionPending})
			require.NoError(t, err)
			assert.Len(t, pending, 2)

			q1, err := store.ListSubmissions(ctx, SubmissionFilter{QuestID: "q1", UserAddress: alice})
			require.NoError(t, err)
			require.Len(t, q1, 1)
			assert.Equal(t, "q1", q1[0].QuestID)

			limited, err := store.ListSubmissions(ctx, SubmissionFilter{Limit: 1})
			require.NoError(t, err)
			assert.Len(t, limited, 1)
		})
	}
}

func TestGormStoreUnavailable(t *testing.T) {
	db := testutil.OpenDB(t)
	store := NewGormStore(db)
	seedAccount(t, store, alice, 10)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	_, err = store.GetAccount(context.Background(), alice)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	_, err = store.CreateAccount(context.Background(), models.NewUserAccount(bob, "", time.Now()))
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}

func TestMemoryStoreHonoursContext(t *testing.T) {
	store := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.GetAccount(ctx, alice)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.ErrorIs(t, err, context.Canceled)
}

// workers/quest_lifecycle_worker.go
package workers

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

// LifecycleAdvancer moves quests between scheduled, active and ended.
// *services.QuestService implements it.
type LifecycleAdvancer interface {
	AdvanceLifecycle(ctx context.Context) (activated, ended int64, err error)
}

type QuestLifecycleWorker struct {
	quests   LifecycleAdvancer
	interval time.Duration
	logger   *zap.Logger
}

func NewQuestLifecycleWorker(quests LifecycleAdvancer, interval time.Duration, logger *zap.Logger) *QuestLifecycleWorker {
	if interval <= 0 {
		interval = time.Minute
	}
	return &QuestLifecycleWorker{quests: quests, interval: interval, logger: logger}
}

// Sweep runs one lifecycle pass.
func (w *QuestLifecycleWorker) Sweep(ctx context.Context) {
	sweepCtx, cancel := context.WithTimeout(ctx, w.interval)
	defer cancel()
	if _, _, err := w.quests.AdvanceLifecycle(sweepCtx); err != nil {
		w.logger.Error("[Scheduler] quest lifecycle sweep failed", zap.Error(err))
	}
}

// Start sweeps once immediately and then every interval until ctx is done.
// The returned scheduler is already running; Start shuts it down when ctx ends.
func (w *QuestLifecycleWorker) Start(ctx context.Context) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	_, err = sched.NewJob(
		gocron.DurationJob(w.interval),
		gocron.NewTask(func() { w.Sweep(ctx) }),
		gocron.WithName("quest-lifecycle"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		_ = sched.Shutdown()
		return nil, fmt.Errorf("schedule quest lifecycle job: %w", err)
	}

	sched.Start()
	w.logger.Info("⏱️ quest lifecycle worker running", zap.Duration("interval", w.interval))

	go func() {
		<-ctx.Done()
		if err := sched.Shutdown(); err != nil {
			w.logger.Warn("[Scheduler] shutdown", zap.Error(err))
		}
		w.logger.Info("⏹️ quest lifecycle worker stopped")
	}()
	return sched, nil
}

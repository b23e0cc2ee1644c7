package workers

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type countingAdvancer struct {
	calls atomic.Int64
	err   error
}

func (a *countingAdvancer) AdvanceLifecycle(ctx context.Context) (int64, int64, error) {
	a.calls.Add(1)
	return 0, 0, a.err
}

func TestQuestLifecycleWorkerRunsImmediately(t *testing.T) {
	adv := &countingAdvancer{}
	w := NewQuestLifecycleWorker(adv, time.Hour, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := w.Start(ctx)
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return adv.calls.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestQuestLifecycleWorkerSweepSurvivesErrors(t *testing.T) {
	adv := &countingAdvancer{err: errors.New("db down")}
	w := NewQuestLifecycleWorker(adv, time.Second, zap.NewNop())

	w.Sweep(context.Background())
	w.Sweep(context.Background())
	assert.EqualValues(t, 2, adv.calls.Load())
}

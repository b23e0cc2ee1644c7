package services

import (
	"context"
	"testing"

	"qube-quest/models"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestEconomyMetricsCountCommittedEvents(t *testing.T) {
	m := EconomyMetrics()
	require.Same(t, m, EconomyMetrics())

	// the registry is process-wide, so only deltas are checked
	accounts := testutil.ToFloat64(m.accounts)
	legendary := testutil.ToFloat64(m.spins.WithLabelValues(string(models.TierLegendary)))
	spent := testutil.ToFloat64(m.pointsSpent)
	broke := testutil.ToFloat64(m.spinFailures.WithLabelValues("insufficient_balance"))
	approved := testutil.ToFloat64(m.reviews.WithLabelValues(string(models.SubmissionApproved)))
	credited := testutil.ToFloat64(m.pointsCredited)

	ctx := context.Background()
	store := NewMemoryStore()
	log := zap.NewNop()

	created, err := NewIdentityResolver(store, log, m).EnsureUser(ctx, alice, "")
	require.NoError(t, err)
	require.True(t, created)

	ledger := NewSubmissionLedger(store, nil, log, m)
	sub, err := ledger.Submit(ctx, screenshot(alice, "q1", "t1", "https://cdn/a.png", 60))
	require.NoError(t, err)
	_, err = ledger.Approve(ctx, sub.ID)
	require.NoError(t, err)

	engine := NewGachaEngine(store, NewSelector(&fixedSource{Values: []float64{0.003}}), nil, GachaConfig{}, log, m)
	_, err = engine.Spin(ctx, alice)
	require.NoError(t, err)
	_, err = engine.Spin(ctx, alice)
	require.ErrorIs(t, err, ErrInsufficientBalance)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.accounts)-accounts)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.reviews.WithLabelValues(string(models.SubmissionApproved)))-approved)
	assert.Equal(t, 60.0, testutil.ToFloat64(m.pointsCredited)-credited)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.spins.WithLabelValues(string(models.TierLegendary)))-legendary)
	assert.Equal(t, float64(DefaultSpinCost), testutil.ToFloat64(m.pointsSpent)-spent)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.spinFailures.WithLabelValues("insufficient_balance"))-broke)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveSpin("common", 50)
		m.ObserveSpinConflict()
		m.ObserveSpinFailure("")
		m.ObserveReview("approved", 10)
		m.ObserveAccountCreated()
	})
}

package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"qube-quest/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// DefaultSpinCost is the point price of one spin.
	DefaultSpinCost int64 = 50
	// DefaultSpinAttempts bounds retries after losing a version race.
	DefaultSpinAttempts = 5
)

type GachaConfig struct {
	SpinCost    int64
	MaxAttempts int
}

func (c GachaConfig) withDefaults() GachaConfig {
	if c.SpinCost <= 0 {
		c.SpinCost = DefaultSpinCost
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultSpinAttempts
	}
	return c
}

// SpinResult is what a committed spin returns to the caller.
type SpinResult struct {
	Tier    models.Tier
	Account *models.UserAccount
	Record  *models.SpinRecord
}

// GachaEngine exchanges points for a random cube tier. A spin either commits the
// debit, the cube credit and the spin record together, or changes nothing.
type GachaEngine struct {
	store     AccountStore
	selector  *Selector
	publisher AccountPublisher
	cfg       GachaConfig
	logger    *zap.Logger
	metrics   *Metrics
	now       func() time.Time
}

func NewGachaEngine(store AccountStore, selector *Selector, publisher AccountPublisher, cfg GachaConfig, logger *zap.Logger, metrics *Metrics) *GachaEngine {
	if selector == nil {
		selector = NewSelector(nil)
	}
	return &GachaEngine{
		store:     store,
		selector:  selector,
		publisher: publisher,
		cfg:       cfg.withDefaults(),
		logger:    logger,
		metrics:   metrics,
		now:       time.Now,
	}
}

// SpinCost is the configured price of one spin.
func (e *GachaEngine) SpinCost() int64 { return e.cfg.SpinCost }

// Spin debits the spin cost from address, draws a tier and credits one cube of it.
// Fails with ErrUserNotFound, ErrInsufficientBalance, ErrConcurrencyExhausted or
// ErrStoreUnavailable; on any error the account is unchanged.
func (e *GachaEngine) Spin(ctx context.Context, address string) (*SpinResult, error) {
	addr, err := NormalizeAddress(address)
	if err != nil {
		return nil, err
	}

	for attempt := 1; attempt <= e.cfg.MaxAttempts; attempt++ {
		res, err := e.trySpin(ctx, addr)
		if err == nil {
			e.metrics.ObserveSpin(string(res.Tier), e.cfg.SpinCost)
			if e.publisher != nil {
				e.publisher.Publish(ctx, res.Account.Snapshot())
			}
			e.logger.Info("🎲 spin committed",
				zap.String("address", addr),
				zap.String("tier", string(res.Tier)),
				zap.Int64("balance", res.Account.Points),
				zap.Int("attempt", attempt))
			return res, nil
		}
		if !errors.Is(err, ErrVersionConflict) {
			e.metrics.ObserveSpinFailure(failureReason(err))
			return nil, err
		}
		e.metrics.ObserveSpinConflict()
		e.logger.Debug("spin lost version race, retrying", zap.String("address", addr), zap.Int("attempt", attempt))
	}

	e.metrics.ObserveSpinFailure("conflict_exhausted")
	e.logger.Warn("spin retry budget exhausted", zap.String("address", addr), zap.Int("attempts", e.cfg.MaxAttempts))
	return nil, fmt.Errorf("%w: spin for %s after %d attempts", ErrConcurrencyExhausted, addr, e.cfg.MaxAttempts)
}

// trySpin runs one read-validate-draw-write pass. ErrVersionConflict means the
// account moved since it was read and nothing was written.
func (e *GachaEngine) trySpin(ctx context.Context, addr string) (*SpinResult, error) {
	current, err := e.store.GetAccount(ctx, addr)
	if err != nil {
		return nil, err
	}
	if current.Points < e.cfg.SpinCost {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrInsufficientBalance, current.Points, e.cfg.SpinCost)
	}

	tier, roll := e.selector.Draw()
	now := e.now().UTC()

	next := current.Clone()
	next.Points -= e.cfg.SpinCost
	next.Cubes.Add(tier, 1)
	next.UpdatedAt = now

	rec := &models.SpinRecord{
		ID:            uuid.NewString(),
		UserAddress:   addr,
		Tier:          tier,
		Cost:          e.cfg.SpinCost,
		BalanceBefore: current.Points,
		BalanceAfter:  next.Points,
		Roll:          roll,
		CreatedAt:     now,
	}
	if err := e.store.ApplySpin(ctx, current.Version, next, rec); err != nil {
		return nil, err
	}
	return &SpinResult{Tier: tier, Account: next, Record: rec}, nil
}

// History returns the most recent committed spins of address.
func (e *GachaEngine) History(ctx context.Context, address string, limit int) ([]models.SpinRecord, error) {
	addr, err := NormalizeAddress(address)
	if err != nil {
		return nil, err
	}
	return e.store.ListSpins(ctx, addr, limit)
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, ErrUserNotFound):
		return "user_not_found"
	case errors.Is(err, ErrStoreUnavailable):
		return "store_unavailable"
	}
	return "other"
}

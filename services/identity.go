package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"qube-quest/models"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
)

// NormalizeAddress validates a hex wallet address and returns its EIP-55 checksummed form,
// so the same wallet always maps to the same account key.
func NormalizeAddress(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if !common.IsHexAddress(raw) {
		return "", fmt.Errorf("%w: %q", ErrInvalidIdentity, raw)
	}
	return common.HexToAddress(raw).Hex(), nil
}

// IdentityResolver maps a wallet address to its account, creating it on first sight.
type IdentityResolver struct {
	store   AccountStore
	logger  *zap.Logger
	metrics *Metrics
	now     func() time.Time
}

func NewIdentityResolver(store AccountStore, logger *zap.Logger, metrics *Metrics) *IdentityResolver {
	return &IdentityResolver{store: store, logger: logger, metrics: metrics, now: time.Now}
}

// EnsureUser creates the account for address if it does not exist yet.
// Concurrent calls for one address create exactly one record and exactly one
// of them reports created=true; an existing balance is never reset.
func (r *IdentityResolver) EnsureUser(ctx context.Context, address, email string) (created bool, err error) {
	addr, err := NormalizeAddress(address)
	if err != nil {
		return false, err
	}

	if _, err := r.store.GetAccount(ctx, addr); err == nil {
		return false, nil
	} else if !errors.Is(err, ErrUserNotFound) {
		return false, err
	}

	// Casers carry state, so each call folds with its own.
	acct := models.NewUserAccount(addr, cases.Fold().String(strings.TrimSpace(email)), r.now().UTC())
	created, err = r.store.CreateAccount(ctx, acct)
	if err != nil {
		r.logger.Error("ensure user failed", zap.String("address", addr), zap.Error(err))
		return false, err
	}
	if created {
		r.metrics.ObserveAccountCreated()
		r.logger.Info("👤 account created", zap.String("address", addr))
	}
	return created, nil
}

// Account returns the current account state for address.
func (r *IdentityResolver) Account(ctx context.Context, address string) (*models.UserAccount, error) {
	addr, err := NormalizeAddress(address)
	if err != nil {
		return nil, err
	}
	return r.store.GetAccount(ctx, addr)
}

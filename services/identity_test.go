package services

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNormalizeAddress(t *testing.T) {
	got, err := NormalizeAddress("  " + strings.ToLower(alice) + " ")
	require.NoError(t, err)
	assert.Equal(t, alice, got)

	for _, bad := range []string{"", "0x123", "alice", "0xZZAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"} {
		_, err := NormalizeAddress(bad)
		assert.ErrorIs(t, err, ErrInvalidIdentity, "input %q", bad)
	}
}

func TestEnsureUserIsIdempotent(t *testing.T) {
	for _, sc := range storeCases() {
		t.Run(sc.name, func(t *testing.T) {
			store := sc.open(t)
			r := NewIdentityResolver(store, zap.NewNop(), nil)
			ctx := context.Background()

			created, err := r.EnsureUser(ctx, strings.ToLower(alice), "  Alice@Example.COM ")
			require.NoError(t, err)
			assert.True(t, created)

			acct, err := r.Account(ctx, alice)
			require.NoError(t, err)
			assert.Equal(t, alice, acct.Address)
			assert.Equal(t, "alice@example.com", acct.Email)
			assert.Zero(t, acct.Points)
			assert.Zero(t, acct.Cubes.Total())

			// a balance earned since must survive a repeated ensure
			next := acct.Clone()
			next.Points = 40
			require.NoError(t, store.ApplySpin(ctx, acct.Version, next, nil))

			created, err = r.EnsureUser(ctx, alice, "other@example.com")
			require.NoError(t, err)
			assert.False(t, created)

			acct, err = r.Account(ctx, alice)
			require.NoError(t, err)
			assert.EqualValues(t, 40, acct.Points)
			assert.Equal(t, "alice@example.com", acct.Email)
		})
	}
}

func TestEnsureUserConcurrent(t *testing.T) {
	for _, sc := range storeCases() {
		t.Run(sc.name, func(t *testing.T) {
			store := sc.open(t)
			r := NewIdentityResolver(store, zap.NewNop(), nil)

			const n = 16
			var createdCount atomic.Int32
			var wg sync.WaitGroup
			for i := 0; i < n; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					created, err := r.EnsureUser(context.Background(), bob, "")
					if err != nil {
						t.Errorf("ensure: %v", err)
						return
					}
					if created {
						createdCount.Add(1)
					}
				}()
			}
			wg.Wait()

			assert.EqualValues(t, 1, createdCount.Load())
			acct, err := store.GetAccount(context.Background(), bob)
			require.NoError(t, err)
			assert.Zero(t, acct.Points)
		})
	}
}

func TestEnsureUserRejectsBadAddress(t *testing.T) {
	r := NewIdentityResolver(NewMemoryStore(), zap.NewNop(), nil)
	_, err := r.EnsureUser(context.Background(), "nope", "")
	assert.ErrorIs(t, err, ErrInvalidIdentity)

	_, err = r.Account(context.Background(), alice)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

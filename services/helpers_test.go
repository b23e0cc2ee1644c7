package services

import (
	"context"
	"testing"
	"time"

	"qube-quest/models"
	"qube-quest/testutil"

	"github.com/stretchr/testify/require"
)

const (
	alice = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
	bob   = "0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359"
)

type storeCase struct {
	name string
	open func(t *testing.T) Store
}

// storeCases runs a test against both Store implementations.
func storeCases() []storeCase {
	return []storeCase{
		{name: "memory", open: func(t *testing.T) Store { return NewMemoryStore() }},
		{name: "gorm", open: func(t *testing.T) Store { return NewGormStore(testutil.OpenDB(t)) }},
	}
}

// seedAccount creates address with the given balance.
func seedAccount(t *testing.T, store AccountStore, address string, points int64) *models.UserAccount {
	t.Helper()
	ctx := context.Background()

	created, err := store.CreateAccount(ctx, models.NewUserAccount(address, "", time.Now().UTC()))
	require.NoError(t, err)
	require.True(t, created)

	cur, err := store.GetAccount(ctx, address)
	require.NoError(t, err)
	next := cur.Clone()
	next.Points = points
	require.NoError(t, store.ApplySpin(ctx, cur.Version, next, nil))

	acct, err := store.GetAccount(ctx, address)
	require.NoError(t, err)
	return acct
}

// recordingPublisher keeps every published snapshot.
type recordingPublisher struct {
	snaps chan models.AccountSnapshot
}

func newRecordingPublisher() *recordingPublisher {
	return &recordingPublisher{snaps: make(chan models.AccountSnapshot, 64)}
}

func (p *recordingPublisher) Publish(_ context.Context, s models.AccountSnapshot) {
	p.snaps <- s
}

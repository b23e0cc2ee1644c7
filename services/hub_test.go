package services

import (
	"context"
	"testing"

	"qube-quest/models"

	"github.com/stretchr/testify/assert"
)

func TestHubDeliversToAddressSubscribers(t *testing.T) {
	hub := NewHub()
	var gotAlice, gotBob []int64

	unsubAlice := hub.Subscribe(alice, func(s models.AccountSnapshot) { gotAlice = append(gotAlice, s.Points) })
	hub.Subscribe(bob, func(s models.AccountSnapshot) { gotBob = append(gotBob, s.Points) })
	assert.Equal(t, 1, hub.Subscribers(alice))

	hub.Publish(context.Background(), models.AccountSnapshot{Address: alice, Points: 10})
	hub.Publish(context.Background(), models.AccountSnapshot{Address: bob, Points: 20})

	unsubAlice()
	unsubAlice()
	hub.Publish(context.Background(), models.AccountSnapshot{Address: alice, Points: 30})

	assert.Equal(t, []int64{10}, gotAlice)
	assert.Equal(t, []int64{20}, gotBob)
	assert.Zero(t, hub.Subscribers(alice))
}

func TestHubSubscriberMayUnsubscribeDuringPublish(t *testing.T) {
	hub := NewHub()
	calls := 0
	var unsub func()
	unsub = hub.Subscribe(alice, func(models.AccountSnapshot) {
		calls++
		unsub()
	})

	hub.Publish(context.Background(), models.AccountSnapshot{Address: alice})
	hub.Publish(context.Background(), models.AccountSnapshot{Address: alice})
	assert.Equal(t, 1, calls)
}

func TestSpinPublishesThroughHub(t *testing.T) {
	store := NewMemoryStore()
	seedAccount(t, store, alice, 60)
	hub := NewHub()
	got := make(chan models.AccountSnapshot, 1)
	defer hub.Subscribe(alice, func(s models.AccountSnapshot) { got <- s })()

	_, err := newEngine(store, &fixedSource{Values: []float64{0.9}}, hub).Spin(context.Background(), alice)
	assert.NoError(t, err)

	snap := <-got
	assert.EqualValues(t, 10, snap.Points)
	assert.EqualValues(t, 1, snap.Cubes.Common)
}

func TestAccountChannel(t *testing.T) {
	assert.Equal(t, "qube:account:"+alice, AccountChannel(alice))
}

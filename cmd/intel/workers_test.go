package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	app_service "onchain-intel/internal/application/service"
	"onchain-intel/internal/domain/entity"
	domain_service "onchain-intel/internal/domain/service"
	"onchain-intel/internal/infrastructure/logger"
	"onchain-intel/internal/infrastructure/memory"
	"onchain-intel/internal/infrastructure/messaging"
)

const tracked = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"

func TestShardForIsCaseInsensitive(t *testing.T) {
	upper := "0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"
	for _, n := range []int{1, 3, 8} {
		assert.Equal(t, shardFor(tracked, n), shardFor(upper, n))
		assert.Less(t, shardFor(tracked, n), n)
	}
}

func TestProcessFragmentsAppliesInOrder(t *testing.T) {
	log := logger.NewNopLogger()
	store := memory.NewAddressStore(log)
	require.NoError(t, store.Upsert(&entity.AddressRecord{
		ID:      "1",
		Address: tracked,
		Stats:   domain_service.DefaultStats(tracked, time.Now()),
	}))
	addresses := app_service.NewAddressService(store, nil, nil, log)

	msgs := make(chan *messaging.FragmentMessage, 8)
	done := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		processFragments(context.Background(), msgs, done, addresses, 4, log)
	}()

	msgs <- &messaging.FragmentMessage{Address: tracked, Source: "a", Fragment: entity.StatsFragment{entity.StatWinRate: entity.Num(0.1)}}
	msgs <- &messaging.FragmentMessage{Address: "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb", Source: "a", Fragment: entity.StatsFragment{entity.StatWinRate: entity.Num(0.9)}}
	msgs <- &messaging.FragmentMessage{Address: tracked, Source: "b", Fragment: entity.StatsFragment{entity.StatWinRate: entity.Num(0.6)}}

	require.Eventually(t, func() bool {
		rec, err := store.Get("1")
		return err == nil && rec.Stats.Float(entity.StatWinRate) == 0.6
	}, 2*time.Second, 10*time.Millisecond)

	close(done)
	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("fragment workers did not stop")
	}
}

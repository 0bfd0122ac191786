package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"onchain-intel/internal/domain/entity"
	"onchain-intel/internal/infrastructure/logger"
	"onchain-intel/internal/infrastructure/memory"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

func newResolver(t *testing.T, store *memory.AddressStore, lookup *TagLookup) *Resolver {
	t.Helper()
	addresses := NewAddressService(store, nil, nil, logger.NewNopLogger())
	r := NewResolver(addresses, lookup, 10*time.Millisecond, logger.NewNopLogger())
	t.Cleanup(r.Close)
	return r
}

func statusIs(r *Resolver, status entity.SearchStatus, address string) func() bool {
	return func() bool {
		st := r.State()
		return st.Status == status && st.Address == address
	}
}

func TestResolver_DropsStaleResult(t *testing.T) {
	src := newGatedTagSource()
	src.result[addrA] = &entity.WalletTags{Address: addrA, Tags: []entity.SourceTag{{TagName: "Stale"}}}
	src.result[addrB] = &entity.WalletTags{Address: addrB, Tags: []entity.SourceTag{{TagName: "Fresh", Count: 1}}}
	r := newResolver(t, newStore(t), NewTagLookup(src, waitFor))

	r.SetInput(addrA)
	require.Eventually(t, statusIs(r, entity.SearchLoading, addrA), waitFor, tick)

	r.SetInput(addrB)
	require.Eventually(t, statusIs(r, entity.SearchLoading, addrB), waitFor, tick)

	src.release(addrB)
	require.Eventually(t, statusIs(r, entity.SearchFound, addrB), waitFor, tick)

	src.release(addrA)
	assert.Never(t, func() bool {
		st := r.State()
		return st.Address != addrB || st.Status != entity.SearchFound
	}, 100*time.Millisecond, tick)

	st := r.State()
	require.Len(t, st.Tags, 1)
	assert.Equal(t, "Fresh", st.Tags[0].TagName)
}

func TestResolver_SettlesToIdle(t *testing.T) {
	existing := sampleRecord("1", addrC)
	tests := []struct {
		name  string
		input string
	}{
		{name: "not an address", input: "vitalik"},
		{name: "short hex", input: "0xabc"},
		{name: "already tracked", input: "0xCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCC"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := newGatedTagSource()
			r := newResolver(t, newStore(t, existing), NewTagLookup(src, waitFor))

			r.SetInput(tt.input)
			assert.Never(t, func() bool {
				return r.State().Status != entity.SearchIdle
			}, 80*time.Millisecond, tick)
			assert.Zero(t, src.callCount(tt.input))
		})
	}
}

func TestResolver_Outcomes(t *testing.T) {
	tests := []struct {
		name    string
		source  staticTagSource
		status  entity.SearchStatus
		message string
	}{
		{
			name:   "found",
			source: staticTagSource{tags: &entity.WalletTags{Tags: []entity.SourceTag{{TagName: "KOL"}}}},
			status: entity.SearchFound,
		},
		{
			name:    "not found",
			source:  staticTagSource{tags: &entity.WalletTags{}},
			status:  entity.SearchNotFound,
			message: "No tags were found for this address",
		},
		{
			name:    "error",
			source:  staticTagSource{err: errors.New("connection refused")},
			status:  entity.SearchError,
			message: "Failed to query the address: connection refused",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newResolver(t, newStore(t), NewTagLookup(tt.source, waitFor))
			r.SetInput(addrA)
			require.Eventually(t, statusIs(r, tt.status, addrA), waitFor, tick)
			assert.Equal(t, tt.message, r.State().Message)
		})
	}
}

func TestResolver_NewInputResetsToIdle(t *testing.T) {
	src := newGatedTagSource()
	r := newResolver(t, newStore(t), NewTagLookup(src, waitFor))

	r.SetInput(addrA)
	require.Eventually(t, statusIs(r, entity.SearchLoading, addrA), waitFor, tick)
	before := r.State().Seq

	r.SetInput(addrA + "0")
	st := r.State()
	assert.Equal(t, entity.SearchIdle, st.Status)
	assert.Greater(t, st.Seq, before)
	src.release(addrA)
}

func TestResolver_AcceptFoundCreatesRecord(t *testing.T) {
	store := newStore(t)
	source := staticTagSource{tags: &entity.WalletTags{Tags: []entity.SourceTag{{TagName: "Whale", Count: 4}}}}
	r := newResolver(t, store, NewTagLookup(source, waitFor))

	_, err := r.AcceptFound(context.Background())
	assert.ErrorIs(t, err, entity.ErrInvalidInput)

	r.SetInput(addrA)
	require.Eventually(t, statusIs(r, entity.SearchFound, addrA), waitFor, tick)

	rec, err := r.AcceptFound(context.Background())
	require.NoError(t, err)
	assert.Equal(t, addrA, rec.ID)
	require.Len(t, rec.CommunityTags, 1)
	assert.Equal(t, uint64(4), rec.CommunityTags[0].Upvotes)
	assert.Equal(t, entity.SearchIdle, r.State().Status)

	_, err = store.GetByAddress(addrA)
	assert.NoError(t, err)
}

func TestResolver_AcceptNotFoundCreatesEmptyRecord(t *testing.T) {
	store := newStore(t)
	r := newResolver(t, store, NewTagLookup(staticTagSource{tags: &entity.WalletTags{}}, waitFor))

	r.SetInput(addrB)
	require.Eventually(t, statusIs(r, entity.SearchNotFound, addrB), waitFor, tick)

	rec, err := r.AcceptNotFound(context.Background())
	require.NoError(t, err)
	assert.Empty(t, rec.CommunityTags)
	assert.Equal(t, entity.SearchIdle, r.State().Status)
}

func TestResolver_SubscribersSeeTransitions(t *testing.T) {
	source := staticTagSource{tags: &entity.WalletTags{Tags: []entity.SourceTag{{TagName: "OG"}}}}
	r := newResolver(t, newStore(t), NewTagLookup(source, waitFor))

	states, unsubscribe := r.Subscribe()
	defer unsubscribe()

	r.SetInput(addrA)

	var seen []entity.SearchStatus
	timeout := time.After(waitFor)
	for len(seen) < 3 {
		select {
		case st := <-states:
			seen = append(seen, st.Status)
		case <-timeout:
			t.Fatalf("timed out after %v", seen)
		}
	}
	assert.Equal(t, []entity.SearchStatus{entity.SearchIdle, entity.SearchLoading, entity.SearchFound}, seen)
}

func TestResolver_CloseEndsSubscriptions(t *testing.T) {
	r := newResolver(t, newStore(t), NewTagLookup(staticTagSource{}, waitFor))
	states, _ := r.Subscribe()
	r.Close()

	_, ok := <-states
	assert.False(t, ok)
}

func TestTagLookup_JoinsInFlightRequest(t *testing.T) {
	src := newGatedTagSource()
	src.result[addrC] = &entity.WalletTags{Tags: []entity.SourceTag{{TagName: "Hunter"}}}
	lookup := NewTagLookup(src, waitFor)

	first := newResolver(t, newStore(t), lookup)
	second := newResolver(t, newStore(t), lookup)

	first.SetInput(addrC)
	second.SetInput(addrC)
	require.Eventually(t, statusIs(first, entity.SearchLoading, addrC), waitFor, tick)
	require.Eventually(t, statusIs(second, entity.SearchLoading, addrC), waitFor, tick)
	time.Sleep(50 * time.Millisecond)

	src.release(addrC)
	require.Eventually(t, statusIs(first, entity.SearchFound, addrC), waitFor, tick)
	require.Eventually(t, statusIs(second, entity.SearchFound, addrC), waitFor, tick)
	assert.Equal(t, 1, src.callCount(addrC))
}

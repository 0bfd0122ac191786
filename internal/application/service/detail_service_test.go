package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"onchain-intel/internal/domain/entity"
	"onchain-intel/internal/infrastructure/logger"
)

func TestDetailService_LoadDetail(t *testing.T) {
	bare := sampleRecord("1", addrA)
	bare.CommunityTags = nil
	store := newStore(t, bare)

	tags := staticTagSource{tags: &entity.WalletTags{Tags: []entity.SourceTag{{TagName: "Farmer", Count: 2}}}}
	stats := fakeStatsSource{fragment: entity.StatsFragment{entity.StatFollowersCount: entity.Num(77)}}
	addresses := NewAddressService(store, tags, stats, logger.NewNopLogger())
	transfers := &fakeTransferSource{total: 3, transfers: transfersFrom(addrA, 3)}
	svc := NewDetailService(addresses, NewTransferPaginator(transfers, 16, logger.NewNopLogger()), logger.NewNopLogger())

	detail, err := svc.LoadDetail(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, StatsMerged, detail.Refresh.Status)
	assert.Equal(t, PageLoaded, detail.Page.Status)
	assert.Equal(t, TagsLoaded, detail.Tags.Status)
	assert.Equal(t, 77.0, detail.Record.Stats.Float(entity.StatFollowersCount))
	require.Len(t, detail.Record.CommunityTags, 1)
	assert.Equal(t, "Farmer", detail.Record.CommunityTags[0].Text)
}

func TestDetailService_SourceFailuresAreStates(t *testing.T) {
	store := newStore(t, sampleRecord("1", addrA))
	addresses := NewAddressService(store, nil, fakeStatsSource{err: entity.ErrNotFound}, logger.NewNopLogger())
	transfers := &fakeTransferSource{err: assert.AnError}
	svc := NewDetailService(addresses, NewTransferPaginator(transfers, 16, logger.NewNopLogger()), logger.NewNopLogger())

	detail, err := svc.LoadDetail(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, StatsFailed, detail.Refresh.Status)
	assert.Equal(t, PageError, detail.Page.Status)
	assert.Equal(t, TagsLoaded, detail.Tags.Status)

	_, err = svc.LoadDetail(context.Background(), "missing")
	assert.ErrorIs(t, err, entity.ErrNotFound)
}

func TestDetailService_TagBackfillFailureIsReported(t *testing.T) {
	bare := sampleRecord("1", addrA)
	bare.CommunityTags = nil
	store := newStore(t, bare)

	unavailable := &entity.TransportError{Source: "tag source", StatusCode: 503, Message: "unavailable"}
	addresses := NewAddressService(store, staticTagSource{err: unavailable}, fakeStatsSource{fragment: entity.StatsFragment{}}, logger.NewNopLogger())
	transfers := &fakeTransferSource{total: 1, transfers: transfersFrom(addrA, 1)}
	svc := NewDetailService(addresses, NewTransferPaginator(transfers, 16, logger.NewNopLogger()), logger.NewNopLogger())

	detail, err := svc.LoadDetail(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, TagsError, detail.Tags.Status)
	assert.Contains(t, detail.Tags.Message, "status 503")
	assert.Empty(t, detail.Record.CommunityTags)
	assert.Equal(t, PageLoaded, detail.Page.Status)

	addresses = NewAddressService(store, staticTagSource{tags: &entity.WalletTags{Address: addrA}}, nil, logger.NewNopLogger())
	svc = NewDetailService(addresses, NewTransferPaginator(transfers, 16, logger.NewNopLogger()), logger.NewNopLogger())
	detail, err = svc.LoadDetail(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, TagsEmpty, detail.Tags.Status)
}

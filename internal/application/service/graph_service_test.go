package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"onchain-intel/internal/domain/entity"
	"onchain-intel/internal/infrastructure/logger"
)

type fakeGraphRepo struct {
	saved []*entity.InteractionGraph
	err   error
}

func (f *fakeGraphRepo) SaveGraph(_ context.Context, g *entity.InteractionGraph) error {
	f.saved = append(f.saved, g)
	return f.err
}

func (f *fakeGraphRepo) GetWalletConnections(context.Context, string, int) ([]*entity.WalletConnection, error) {
	return []*entity.WalletConnection{{FromAddress: addrB, ToAddress: addrA, TxCount: 2}}, f.err
}

func TestGraphService_Build(t *testing.T) {
	store := newStore(t, sampleRecord("1", addrA))
	src := &fakeTransferSource{total: 5, transfers: transfersFrom(addrA, 5)}
	repo := &fakeGraphRepo{}
	svc := NewGraphService(store, NewTransferPaginator(src, 16, logger.NewNopLogger()), repo, logger.NewNopLogger())

	view, err := svc.Build(context.Background(), "1", 0)
	require.NoError(t, err)
	require.NotNil(t, view.Graph)
	assert.Equal(t, PageLoaded, view.Page.Status)
	assert.Len(t, view.Graph.Nodes, 6)
	assert.Len(t, view.Graph.Edges, 5)
	assert.Equal(t, entity.NodeCategoryFocal, view.Graph.Nodes[0].Category)
	assert.Equal(t, uint64(5), view.SeenCounterparties)
	require.Len(t, repo.saved, 1)
}

func TestGraphService_PersistFailureDoesNotFailBuild(t *testing.T) {
	store := newStore(t, sampleRecord("1", addrA))
	src := &fakeTransferSource{total: 2, transfers: transfersFrom(addrA, 2)}
	repo := &fakeGraphRepo{err: errors.New("neo4j unavailable")}
	svc := NewGraphService(store, NewTransferPaginator(src, 16, logger.NewNopLogger()), repo, logger.NewNopLogger())

	view, err := svc.Build(context.Background(), "1", 0)
	require.NoError(t, err)
	assert.Len(t, view.Graph.Edges, 2)
}

func TestGraphService_PageErrorHasNoGraph(t *testing.T) {
	store := newStore(t, sampleRecord("1", addrA))
	src := &fakeTransferSource{err: errors.New("boom")}
	svc := NewGraphService(store, NewTransferPaginator(src, 16, logger.NewNopLogger()), nil, logger.NewNopLogger())

	view, err := svc.Build(context.Background(), "1", 0)
	require.NoError(t, err)
	assert.Equal(t, PageError, view.Page.Status)
	assert.Nil(t, view.Graph)
}

func TestGraphService_EmptyPageKeepsFocalNode(t *testing.T) {
	store := newStore(t, sampleRecord("1", addrA))
	svc := NewGraphService(store, NewTransferPaginator(&fakeTransferSource{}, 16, logger.NewNopLogger()), nil, logger.NewNopLogger())

	view, err := svc.Build(context.Background(), "1", 0)
	require.NoError(t, err)
	assert.Equal(t, PageEmpty, view.Page.Status)
	require.Len(t, view.Graph.Nodes, 1)
	assert.Empty(t, view.Graph.Edges)

	_, err = svc.Build(context.Background(), "missing", 0)
	assert.ErrorIs(t, err, entity.ErrNotFound)
}

func TestGraphService_Connections(t *testing.T) {
	store := newStore(t, sampleRecord("1", addrA))
	p := NewTransferPaginator(&fakeTransferSource{}, 16, logger.NewNopLogger())

	conns, err := NewGraphService(store, p, &fakeGraphRepo{}, logger.NewNopLogger()).Connections(context.Background(), "1", 10)
	require.NoError(t, err)
	assert.Len(t, conns, 1)

	conns, err = NewGraphService(store, p, nil, logger.NewNopLogger()).Connections(context.Background(), "1", 10)
	require.NoError(t, err)
	assert.Empty(t, conns)
}

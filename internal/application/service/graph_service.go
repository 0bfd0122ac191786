package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"onchain-intel/internal/domain/entity"
	"onchain-intel/internal/domain/repository"
	"onchain-intel/internal/domain/service"
	"onchain-intel/internal/infrastructure/logger"
)

// GraphView is an interaction graph with the page it was built from.
// Graph is nil when the page could not be loaded.
type GraphView struct {
	Graph              *entity.InteractionGraph `json:"graph,omitempty"`
	Page               PageResult               `json:"page"`
	SeenCounterparties uint64                   `json:"seen_counterparties"`
}

// GraphService builds interaction graphs from the current transfer page
type GraphService struct {
	store          repository.AddressRepository
	paginator      *TransferPaginator
	graphRepo      repository.GraphRepository
	persistTimeout time.Duration
	logger         *logger.Logger
}

// NewGraphService creates a graph service. graphRepo may be nil when persistence is disabled.
func NewGraphService(
	store repository.AddressRepository,
	paginator *TransferPaginator,
	graphRepo repository.GraphRepository,
	logger *logger.Logger,
) *GraphService {
	return &GraphService{
		store:          store,
		paginator:      paginator,
		graphRepo:      graphRepo,
		persistTimeout: 10 * time.Second,
		logger:         logger.WithComponent("graph-service"),
	}
}

// Build returns the interaction graph of record id for the page at offset
func (s *GraphService) Build(ctx context.Context, id string, offset int) (*GraphView, error) {
	rec, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}

	page := s.paginator.Page(ctx, rec.Address, offset)
	view := &GraphView{Page: page}
	if page.Status == PageError {
		return view, nil
	}

	var transfers []entity.Transfer
	if page.Page != nil {
		transfers = page.Page.Transfers
	}
	view.Graph = service.BuildInteractionGraph(rec, transfers)
	view.SeenCounterparties = s.paginator.SeenCounterparties(rec.Address)

	if s.graphRepo != nil && len(view.Graph.Edges) > 0 {
		persistCtx, cancel := context.WithTimeout(ctx, s.persistTimeout)
		defer cancel()
		if err := s.graphRepo.SaveGraph(persistCtx, view.Graph); err != nil {
			s.logger.Warn("Failed to persist interaction graph",
				zap.String("address", rec.Canonical()),
				zap.Int("edge_count", len(view.Graph.Edges)),
				zap.Error(err))
		}
	}
	return view, nil
}

// Connections returns persisted wallet connections of a record's address
func (s *GraphService) Connections(ctx context.Context, id string, limit int) ([]*entity.WalletConnection, error) {
	rec, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	if s.graphRepo == nil {
		return nil, nil
	}
	return s.graphRepo.GetWalletConnections(ctx, rec.Canonical(), limit)
}

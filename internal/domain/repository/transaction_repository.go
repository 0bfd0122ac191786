package repository

import (
	"context"

	"onchain-intel/internal/domain/entity"
)

// GraphRepository persists interaction graphs for bubble-map exploration
type GraphRepository interface {
	// SaveGraph merges the graph's wallets and transfers into the store
	SaveGraph(ctx context.Context, graph *entity.InteractionGraph) error

	// GetWalletConnections retrieves aggregated connections for a wallet
	GetWalletConnections(ctx context.Context, address string, limit int) ([]*entity.WalletConnection, error)
}

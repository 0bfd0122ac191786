package database

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"onchain-intel/internal/domain/entity"
	"onchain-intel/internal/domain/repository"
	"onchain-intel/internal/infrastructure/logger"
)

// Neo4JGraphRepository implements GraphRepository interface
type Neo4JGraphRepository struct {
	client *Neo4JClient
	logger *logger.Logger
}

// NewNeo4JGraphRepository creates a new Neo4J interaction graph repository
func NewNeo4JGraphRepository(client *Neo4JClient, logger *logger.Logger) repository.GraphRepository {
	return &Neo4JGraphRepository{
		client: client,
		logger: logger.WithComponent("neo4j-graph-repo"),
	}
}

const mergeWalletsQuery = `
	UNWIND $wallets as w
	MERGE (n:Wallet {address: w.address})
	ON CREATE SET n.first_seen = datetime(w.seen_at)
	SET n.display_name = w.display_name,
		n.category = w.category,
		n.risk_flag = w.risk_flag,
		n.tags = w.tags,
		n.last_seen = datetime(w.seen_at)
`

const mergeTransfersQuery = `
	UNWIND $transfers as t
	MATCH (from:Wallet {address: t.from_address})
	MATCH (to:Wallet {address: t.to_address})
	MERGE (from)-[r:TRANSFERRED {tx_hash: t.tx_hash}]->(to)
	ON CREATE SET r.first_seen = datetime(t.seen_at)
	SET r.usd_value = t.usd_value,
		r.chain = t.chain,
		r.seen_at = datetime(t.seen_at)
`

// SaveGraph merges the graph's wallets and transfers in one write transaction
func (r *Neo4JGraphRepository) SaveGraph(ctx context.Context, graph *entity.InteractionGraph) error {
	wallets, transfers := graphParams(graph, time.Now())

	session := r.client.NewSession(ctx)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if _, err := tx.Run(ctx, mergeWalletsQuery, map[string]interface{}{"wallets": wallets}); err != nil {
			return nil, err
		}
		return tx.Run(ctx, mergeTransfersQuery, map[string]interface{}{"transfers": transfers})
	})
	if err != nil {
		return fmt.Errorf("failed to save interaction graph: %w", err)
	}

	r.logger.Debug("Interaction graph saved",
		zap.String("address", graph.Focal),
		zap.Int("wallet_count", len(wallets)),
		zap.Int("transfer_count", len(transfers)))
	return nil
}

// GetWalletConnections retrieves aggregated transfers between a wallet and its counterparties
func (r *Neo4JGraphRepository) GetWalletConnections(ctx context.Context, address string, limit int) ([]*entity.WalletConnection, error) {
	session := r.client.NewSession(ctx)
	defer session.Close(ctx)

	query := `
		MATCH (from:Wallet)-[r:TRANSFERRED]->(to:Wallet)
		WHERE from.address = $address OR to.address = $address
		RETURN from.address AS from_address,
			to.address AS to_address,
			sum(r.usd_value) AS total_usd,
			count(r) AS tx_count,
			min(r.first_seen) AS first_tx,
			max(r.seen_at) AS last_tx
		ORDER BY total_usd DESC
		LIMIT $limit
	`

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, map[string]interface{}{
			"address": entity.CanonicalAddress(address),
			"limit":   limit,
		})
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}

		connections := make([]*entity.WalletConnection, 0, len(records))
		for _, record := range records {
			conn, err := connectionFromRecord(record)
			if err != nil {
				return nil, err
			}
			connections = append(connections, conn)
		}
		return connections, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet connections: %w", err)
	}

	return result.([]*entity.WalletConnection), nil
}

// graphParams flattens a graph into query parameters
func graphParams(graph *entity.InteractionGraph, now time.Time) ([]map[string]interface{}, []map[string]interface{}) {
	seenAt := now.UTC().Format("2006-01-02T15:04:05.000Z")

	wallets := make([]map[string]interface{}, 0, len(graph.Nodes))
	for _, n := range graph.Nodes {
		tags := n.Tags
		if tags == nil {
			tags = []string{}
		}
		wallets = append(wallets, map[string]interface{}{
			"address":      n.ID,
			"display_name": n.DisplayName,
			"category":     n.Category.String(),
			"risk_flag":    n.RiskFlag,
			"tags":         tags,
			"seen_at":      seenAt,
		})
	}

	transfers := make([]map[string]interface{}, 0, len(graph.Edges))
	for _, e := range graph.Edges {
		transfers = append(transfers, map[string]interface{}{
			"from_address": e.Source,
			"to_address":   e.Target,
			"tx_hash":      e.TransactionHash,
			"usd_value":    e.USDValue,
			"chain":        e.Chain,
			"seen_at":      seenAt,
		})
	}
	return wallets, transfers
}

func connectionFromRecord(record *neo4j.Record) (*entity.WalletConnection, error) {
	from, _, err := neo4j.GetRecordValue[string](record, "from_address")
	if err != nil {
		return nil, err
	}
	to, _, err := neo4j.GetRecordValue[string](record, "to_address")
	if err != nil {
		return nil, err
	}
	total, _, err := neo4j.GetRecordValue[float64](record, "total_usd")
	if err != nil {
		return nil, err
	}
	count, _, err := neo4j.GetRecordValue[int64](record, "tx_count")
	if err != nil {
		return nil, err
	}

	conn := &entity.WalletConnection{
		FromAddress: from,
		ToAddress:   to,
		TotalUSD:    total,
		TxCount:     count,
	}
	if v, ok := record.Get("first_tx"); ok {
		conn.FirstTx, _ = v.(time.Time)
	}
	if v, ok := record.Get("last_tx"); ok {
		conn.LastTx, _ = v.(time.Time)
	}
	return conn, nil
}

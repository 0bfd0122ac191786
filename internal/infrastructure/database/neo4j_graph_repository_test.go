package database

import (
	"testing"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"onchain-intel/internal/domain/entity"
)

func TestGraphParams(t *testing.T) {
	graph := &entity.InteractionGraph{
		Focal: "0xaa",
		Nodes: []entity.GraphNode{
			{ID: "0xaa", DisplayName: "vitalik.eth", Category: entity.NodeCategoryFocal, Tags: []string{"OG"}},
			{ID: "0xbb", DisplayName: "Tornado Mixer", Category: entity.NodeCategoryRisk, RiskFlag: true},
		},
		Edges: []entity.GraphEdge{
			{Source: "0xbb", Target: "0xaa", USDValue: 1200.5, TransactionHash: "0x01", Chain: "ethereum"},
		},
	}
	now := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

	wallets, transfers := graphParams(graph, now)
	require.Len(t, wallets, 2)
	require.Len(t, transfers, 1)

	assert.Equal(t, "0xaa", wallets[0]["address"])
	assert.Equal(t, graph.Nodes[0].Category.String(), wallets[0]["category"])
	assert.Equal(t, true, wallets[1]["risk_flag"])
	assert.Equal(t, []string{}, wallets[1]["tags"])
	assert.Equal(t, "2025-03-14T09:30:00.000Z", wallets[1]["seen_at"])

	assert.Equal(t, "0xbb", transfers[0]["from_address"])
	assert.Equal(t, "0xaa", transfers[0]["to_address"])
	assert.Equal(t, "0x01", transfers[0]["tx_hash"])
	assert.Equal(t, 1200.5, transfers[0]["usd_value"])
}

func TestConnectionFromRecord(t *testing.T) {
	first := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	last := first.Add(48 * time.Hour)
	record := &neo4j.Record{
		Keys:   []string{"from_address", "to_address", "total_usd", "tx_count", "first_tx", "last_tx"},
		Values: []any{"0xbb", "0xaa", 2400.0, int64(3), first, last},
	}

	conn, err := connectionFromRecord(record)
	require.NoError(t, err)
	assert.Equal(t, &entity.WalletConnection{
		FromAddress: "0xbb",
		ToAddress:   "0xaa",
		TotalUSD:    2400,
		TxCount:     3,
		FirstTx:     first,
		LastTx:      last,
	}, conn)
}

func TestConnectionFromRecord_WrongType(t *testing.T) {
	record := &neo4j.Record{
		Keys:   []string{"from_address", "to_address", "total_usd", "tx_count"},
		Values: []any{"0xbb", "0xaa", "lots", int64(1)},
	}
	_, err := connectionFromRecord(record)
	assert.Error(t, err)
}

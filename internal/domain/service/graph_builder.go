package service

import (
	"math"
	"strings"

	"onchain-intel/internal/domain/entity"
)

// MinEdgeWidth is the thinnest edge drawn for any transfer
const MinEdgeWidth = 0.75

// EdgeWidth maps a USD value to a visual thickness; monotonic in usd
func EdgeWidth(usd float64) float64 {
	if usd < 0 {
		usd = 0
	}
	return math.Max(MinEdgeWidth, math.Log(usd+1)/2.5)
}

// ExplorerLink returns the block explorer URL of a transaction on the given chain
func ExplorerLink(chain, txHash string) string {
	switch strings.ToLower(chain) {
	case "solana":
		return "https://solscan.io/tx/" + txHash
	case "bsc":
		return "https://bscscan.com/tx/" + txHash
	case "polygon":
		return "https://polygonscan.com/tx/" + txHash
	case "arbitrum":
		return "https://arbiscan.io/tx/" + txHash
	case "optimism":
		return "https://optimistic.etherscan.io/tx/" + txHash
	case "avalanche":
		return "https://snowtrace.io/tx/" + txHash
	default:
		return "https://etherscan.io/tx/" + txHash
	}
}

// DisplayName returns the ENS name, the profile name, or the short address of a record
func DisplayName(record *entity.AddressRecord) string {
	for _, key := range []entity.StatKey{entity.StatENS, entity.StatName} {
		v := strings.TrimSpace(record.Stats.TextOf(key))
		if v != "" && !strings.EqualFold(v, "n/a") {
			return v
		}
	}
	return ShortAddress(record.Address)
}

// BuildInteractionGraph derives the interaction graph of a focal record from a transfer page.
// The focal node comes first, counterparties follow in first-seen order and every transfer
// produces one edge. The result depends only on its inputs.
func BuildInteractionGraph(record *entity.AddressRecord, transfers []entity.Transfer) *entity.InteractionGraph {
	focal := record.Canonical()
	graph := &entity.InteractionGraph{
		Focal: focal,
		Nodes: []entity.GraphNode{{
			ID:          focal,
			Address:     record.Address,
			DisplayName: DisplayName(record),
			Weight:      entity.FocalNodeWeight,
			Category:    entity.NodeCategoryFocal,
			Fixed:       true,
			Tags:        append([]string(nil), record.OfficialTags...),
		}},
		Edges: make([]entity.GraphEdge, 0, len(transfers)),
	}

	seen := map[string]bool{focal: true}
	addNode := func(ep entity.Endpoint, sender bool) {
		id := entity.CanonicalAddress(ep.Address)
		if seen[id] {
			return
		}
		seen[id] = true
		category := ClassifyCounterparty(ep, sender)
		graph.Nodes = append(graph.Nodes, entity.GraphNode{
			ID:          id,
			Address:     ep.Address,
			DisplayName: CounterpartyName(ep),
			Weight:      entity.CounterpartyNodeWeight,
			Category:    category,
			RiskFlag:    category == entity.NodeCategoryRisk,
			Tags:        CounterpartyTags(ep),
		})
	}

	for _, tx := range transfers {
		from := entity.CanonicalAddress(tx.From.Address)
		to := entity.CanonicalAddress(tx.To.Address)

		// both endpoints become nodes so every edge refers to a node of the graph
		if from != focal {
			addNode(tx.From, true)
		}
		if to != focal {
			addNode(tx.To, false)
		}

		graph.Edges = append(graph.Edges, entity.GraphEdge{
			Source:          from,
			Target:          to,
			USDValue:        tx.USDValue,
			Width:           EdgeWidth(tx.USDValue),
			TransactionHash: tx.TransactionHash,
			Chain:           tx.Chain,
			ExplorerURL:     ExplorerLink(tx.Chain, tx.TransactionHash),
		})
	}

	return graph
}

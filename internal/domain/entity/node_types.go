package entity

// NodeCategory classifies a node of the interaction graph
type NodeCategory int

const (
	NodeCategoryFocal       NodeCategory = 0 // The address the graph is built around
	NodeCategorySource      NodeCategory = 1 // Sent funds to the focal address
	NodeCategoryDestination NodeCategory = 2 // Received funds from the focal address
	NodeCategoryRisk        NodeCategory = 3 // Matched a risk keyword
)

// String returns the display name of the category
func (c NodeCategory) String() string {
	switch c {
	case NodeCategoryFocal:
		return "Focal"
	case NodeCategorySource:
		return "Source"
	case NodeCategoryDestination:
		return "Destination"
	case NodeCategoryRisk:
		return "Risk"
	default:
		return "Unknown"
	}
}

// Node weights
const (
	FocalNodeWeight        = 60
	CounterpartyNodeWeight = 40
)

// GraphNode represents an address in the interaction graph
type GraphNode struct {
	ID          string       `json:"id"`
	Address     string       `json:"address"`
	DisplayName string       `json:"display_name"`
	Weight      int          `json:"weight"`
	Category    NodeCategory `json:"category"`
	RiskFlag    bool         `json:"risk_flag"`
	Fixed       bool         `json:"fixed"`
	Tags        []string     `json:"tags,omitempty"`
}

// GraphEdge represents one transfer between two nodes
type GraphEdge struct {
	Source          string  `json:"source"`
	Target          string  `json:"target"`
	USDValue        float64 `json:"usd_value"`
	Width           float64 `json:"width"`
	TransactionHash string  `json:"transaction_hash"`
	Chain           string  `json:"chain"`
	ExplorerURL     string  `json:"explorer_url"`
}

// InteractionGraph is derived from a focal record and a transfer page. Never mutated in place.
type InteractionGraph struct {
	Focal string      `json:"focal"`
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

// Node returns the node with the given id
func (g *InteractionGraph) Node(id string) (GraphNode, bool) {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return GraphNode{}, false
}

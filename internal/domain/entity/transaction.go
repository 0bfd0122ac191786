package entity

import (
	"time"
)

// KnownEntity is an attributed owner of an address, e.g. an exchange
type KnownEntity struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// AddressLabel is a free-form label attached to an address
type AddressLabel struct {
	Name      string `json:"name"`
	Address   string `json:"address"`
	ChainType string `json:"chain_type"`
}

// Endpoint is one side of a transfer
type Endpoint struct {
	Address string        `json:"address"`
	Chain   string        `json:"chain"`
	Entity  *KnownEntity  `json:"entity,omitempty"`
	Label   *AddressLabel `json:"label,omitempty"`
}

// Transfer represents a fund movement between two endpoints. Immutable once fetched.
type Transfer struct {
	ID              string    `json:"id"`
	TransactionHash string    `json:"transaction_hash"`
	From            Endpoint  `json:"from"`
	To              Endpoint  `json:"to"`
	TokenAddress    string    `json:"token_address"`
	TokenName       string    `json:"token_name"`
	TokenSymbol     string    `json:"token_symbol"`
	TokenDecimals   int       `json:"token_decimals"`
	Timestamp       time.Time `json:"timestamp"`
	BlockNumber     uint64    `json:"block_number"`
	USDValue        float64   `json:"usd_value"`
	Chain           string    `json:"chain"`
}

// TransferPage is one page of transfers plus the upstream total
type TransferPage struct {
	Address   string     `json:"address"`
	Offset    int        `json:"offset"`
	Limit     int        `json:"limit"`
	Total     int        `json:"total"`
	Transfers []Transfer `json:"transfers"`
	FetchedAt time.Time  `json:"fetched_at"`
}

// HasMore reports whether another page exists after this one
func (p *TransferPage) HasMore() bool {
	return p.Offset+len(p.Transfers) < p.Total
}

package sources

import (
	"context"
	"encoding/binary"
	"fmt"
	"math/rand"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"onchain-intel/internal/domain/entity"
	"onchain-intel/internal/domain/service"
)

const simulatedTransferCount = 124

type simulatedToken struct {
	name     string
	symbol   string
	address  string
	decimals int
}

var simulatedTokens = []simulatedToken{
	{"Tether USD", "USDT", "0x55d398326f99059fF775485246999027B3197955", 18},
	{"Wrapped Ether", "WETH", "0x2170Ed0880ac9A755fd29B2688956BD959F933F8", 18},
	{"Pepe", "PEPE", "0x6982508145454Ce325dDbE47a25d4ec3d2311933", 18},
	{"Binance Coin", "BNB", "0xbb4CdB9CBd36B01bD1cBaEBF2De08d9173bc095c", 18},
	{"Dogecoin", "DOGE", "0xba2ae424d960c26247dd6c32edc70b295c744c43", 8},
}

var simulatedEntities = []entity.KnownEntity{
	{ID: "binance", Name: "Binance", Type: "cex"},
	{ID: "uniswap", Name: "Uniswap", Type: "dex"},
	{ID: "mev-bot", Name: "MEV Bot", Type: "bot"},
	{ID: "wintermute", Name: "Wintermute", Type: "market-maker"},
	{ID: "tornado", Name: "Tornado Cash", Type: "mixer"},
}

var simulatedLabels = []entity.AddressLabel{
	{Name: "Hot Wallet", Address: "0x0000000000000000000000000000000000000001", ChainType: "bsc"},
	{Name: "Cold Wallet", Address: "0x0000000000000000000000000000000000000002", ChainType: "bsc"},
	{Name: "Router", Address: "0x0000000000000000000000000000000000000003", ChainType: "bsc"},
	{Name: "Staking", Address: "0x0000000000000000000000000000000000000004", ChainType: "bsc"},
}

// SimulatedTransfers serves a stable synthetic transfer history per address.
// Used for local development when no transfer API key is configured.
type SimulatedTransfers struct {
	anchor time.Time
}

var _ service.TransferSource = (*SimulatedTransfers)(nil)

// NewSimulatedTransfers creates the synthetic source; timestamps count back from anchor
func NewSimulatedTransfers(anchor time.Time) *SimulatedTransfers {
	return &SimulatedTransfers{anchor: anchor}
}

// ListTransfers returns the requested slice of the synthetic history
func (s *SimulatedTransfers) ListTransfers(ctx context.Context, address string, offset, limit int) (*entity.TransferPage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	page := &entity.TransferPage{
		Address:   address,
		Offset:    offset,
		Limit:     limit,
		Total:     simulatedTransferCount,
		FetchedAt: s.anchor,
	}
	for i := offset; i < offset+limit && i < simulatedTransferCount; i++ {
		page.Transfers = append(page.Transfers, s.transfer(address, i))
	}
	return page, nil
}

func (s *SimulatedTransfers) transfer(base string, index int) entity.Transfer {
	seed := crypto.Keccak256([]byte(fmt.Sprintf("%s/%d", entity.CanonicalAddress(base), index)))
	rng := rand.New(rand.NewSource(int64(binary.BigEndian.Uint64(seed[:8]))))

	counterparty := common.BytesToAddress(crypto.Keccak256(seed)[12:]).Hex()
	token := simulatedTokens[rng.Intn(len(simulatedTokens))]
	ent := simulatedEntities[rng.Intn(len(simulatedEntities))]
	label := simulatedLabels[rng.Intn(len(simulatedLabels))]
	txHash := common.BytesToHash(seed).Hex()

	self := entity.Endpoint{Address: base, Chain: "bsc"}
	other := entity.Endpoint{Address: counterparty, Chain: "bsc", Entity: &ent, Label: &label}
	from, to := other, self
	if rng.Float64() > 0.5 {
		from, to = self, other
	}

	return entity.Transfer{
		ID:              fmt.Sprintf("%s_%d", txHash, index),
		TransactionHash: txHash,
		From:            from,
		To:              to,
		TokenAddress:    token.address,
		TokenName:       token.name,
		TokenSymbol:     token.symbol,
		TokenDecimals:   token.decimals,
		Timestamp:       s.anchor.Add(-time.Duration(index) * time.Duration(5+rng.Intn(55)) * time.Minute),
		BlockNumber:     uint64(53506149 - index),
		USDValue:        1 + rng.Float64()*99999,
		Chain:           "bsc",
	}
}

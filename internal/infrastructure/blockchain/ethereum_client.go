package blockchain

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"

	"onchain-intel/internal/domain/entity"
	"onchain-intel/internal/domain/service"
	"onchain-intel/internal/infrastructure/logger"
)

// EthereumClient provides blockchain interaction capabilities over JSON-RPC
type EthereumClient struct {
	*ethclient.Client
	rpcURL string
	logger *logger.Logger
}

// NewEthereumClient dials the RPC endpoint
func NewEthereumClient(ctx context.Context, rpcURL string, logger *logger.Logger) (*EthereumClient, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", rpcURL, err)
	}
	return &EthereumClient{
		Client: client,
		rpcURL: rpcURL,
		logger: logger.WithComponent("ethereum-client"),
	}, nil
}

// chainReader is the part of the RPC client the statistics source needs
type chainReader interface {
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error)
}

// ChainStatsSource reads the native balance and contract flag of an address from the chain
type ChainStatsSource struct {
	reader  chainReader
	balance entity.StatKey
	logger  *logger.Logger
}

var _ service.StatsSource = (*ChainStatsSource)(nil)

// NewChainStatsSource creates a statistics source backed by the RPC node of chain
func NewChainStatsSource(reader chainReader, chain string, logger *logger.Logger) *ChainStatsSource {
	balance := entity.StatEthBalance
	switch chain {
	case "bsc", "bnb":
		balance = entity.StatBnbBalance
	}
	return &ChainStatsSource{
		reader:  reader,
		balance: balance,
		logger:  logger.WithComponent("chain-stats"),
	}
}

// Name implements service.StatsSource
func (s *ChainStatsSource) Name() string {
	return "rpc"
}

// FetchStats implements service.StatsSource
func (s *ChainStatsSource) FetchStats(ctx context.Context, address string) (entity.StatsFragment, error) {
	if !common.IsHexAddress(address) {
		return nil, errors.New("invalid Ethereum address")
	}
	account := common.HexToAddress(address)

	wei, err := s.reader.BalanceAt(ctx, account, nil)
	if err != nil {
		return nil, &entity.TransportError{Source: s.Name(), Message: "failed to get balance", Err: err}
	}
	code, err := s.reader.CodeAt(ctx, account, nil)
	if err != nil {
		return nil, &entity.TransportError{Source: s.Name(), Message: "failed to get code", Err: err}
	}

	isContract := 0.0
	if len(code) > 0 {
		isContract = 1
	}

	s.logger.Debug("Chain stats fetched",
		zap.String("address", entity.CanonicalAddress(address)),
		zap.String("balance_wei", wei.String()),
		zap.Bool("is_contract", isContract == 1))

	return entity.StatsFragment{
		s.balance:             entity.Text(FormatEther(wei)),
		entity.StatIsContract: entity.Num(isContract),
	}, nil
}

// FormatEther renders a wei amount in whole units with four decimals
func FormatEther(wei *big.Int) string {
	if wei == nil {
		return "0.0000"
	}
	f := new(big.Float).SetInt(wei)
	f.Quo(f, big.NewFloat(1e18))
	return f.Text('f', 4)
}

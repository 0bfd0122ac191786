package blockchain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"onchain-intel/internal/domain/entity"
	"onchain-intel/internal/domain/service"
	"onchain-intel/internal/infrastructure/config"
	"onchain-intel/internal/infrastructure/logger"
)

const infoTokenABI = `[
	{"inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"name":"allowance","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"name":"approve","outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable","type":"function"}
]`

const tagRegistryABI = `[
	{"inputs":[],"name":"TAG_SUBMIT_COST","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"name":"tag","type":"string"}],"name":"submitTag","outputs":[],"stateMutability":"nonpayable","type":"function"},
	{"inputs":[{"name":"target","type":"address"}],"name":"voteUp","outputs":[],"stateMutability":"nonpayable","type":"function"},
	{"inputs":[{"name":"target","type":"address"}],"name":"voteDown","outputs":[],"stateMutability":"nonpayable","type":"function"}
]`

// ChainBackend is what the ledger needs from an RPC client; *ethclient.Client satisfies it
type ChainBackend interface {
	bind.ContractBackend
	bind.DeployBackend
}

// TagRegistryLedger submits tags and votes to the tag registry contract, paying the
// submit cost in the registry's token from a relayer account
type TagRegistryLedger struct {
	backend  ChainBackend
	token    *bind.BoundContract
	registry *bind.BoundContract

	registryAddr common.Address
	key          *ecdsa.PrivateKey
	account      common.Address
	chainID      *big.Int

	receiptTimeout time.Duration

	// serializes relayer transactions so nonces are assigned in order
	txMu sync.Mutex

	logger *logger.Logger
}

var _ service.Ledger = (*TagRegistryLedger)(nil)

func parseABI(raw string) (abi.ABI, error) {
	return abi.JSON(strings.NewReader(raw))
}

// NewTagRegistryLedger binds the token and registry contracts configured in cfg
func NewTagRegistryLedger(backend ChainBackend, cfg *config.LedgerConfig, logger *logger.Logger) (*TagRegistryLedger, error) {
	if !common.IsHexAddress(cfg.TokenAddress) || !common.IsHexAddress(cfg.RegistryAddress) {
		return nil, fmt.Errorf("ledger token and registry addresses are required: %w", entity.ErrInvalidInput)
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.RelayerKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse relayer key: %w", err)
	}

	tokenABI, err := parseABI(infoTokenABI)
	if err != nil {
		return nil, fmt.Errorf("failed to parse token ABI: %w", err)
	}
	registryABI, err := parseABI(tagRegistryABI)
	if err != nil {
		return nil, fmt.Errorf("failed to parse registry ABI: %w", err)
	}

	tokenAddr := common.HexToAddress(cfg.TokenAddress)
	registryAddr := common.HexToAddress(cfg.RegistryAddress)

	timeout := cfg.ReceiptTimeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}

	return &TagRegistryLedger{
		backend:        backend,
		token:          bind.NewBoundContract(tokenAddr, tokenABI, backend, backend, backend),
		registry:       bind.NewBoundContract(registryAddr, registryABI, backend, backend, backend),
		registryAddr:   registryAddr,
		key:            key,
		account:        crypto.PubkeyToAddress(key.PublicKey),
		chainID:        big.NewInt(cfg.ChainID),
		receiptTimeout: timeout,
		logger:         logger.WithComponent("tag-ledger"),
	}, nil
}

// Account implements service.Ledger
func (l *TagRegistryLedger) Account() string {
	return l.account.Hex()
}

// TagSubmitCost implements service.Ledger
func (l *TagRegistryLedger) TagSubmitCost(ctx context.Context) (*big.Int, error) {
	var out []interface{}
	if err := l.registry.Call(&bind.CallOpts{Context: ctx}, &out, "TAG_SUBMIT_COST"); err != nil {
		return nil, fmt.Errorf("failed to call TAG_SUBMIT_COST: %w", err)
	}
	return firstBigInt(out, "TAG_SUBMIT_COST")
}

// Allowance implements service.Ledger
func (l *TagRegistryLedger) Allowance(ctx context.Context, owner string) (*big.Int, error) {
	if !common.IsHexAddress(owner) {
		return nil, fmt.Errorf("invalid owner %q: %w", owner, entity.ErrInvalidInput)
	}
	var out []interface{}
	err := l.token.Call(&bind.CallOpts{Context: ctx}, &out, "allowance", common.HexToAddress(owner), l.registryAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to call allowance: %w", err)
	}
	return firstBigInt(out, "allowance")
}

// Approve implements service.Ledger
func (l *TagRegistryLedger) Approve(ctx context.Context, amount *big.Int) (service.TxStatus, error) {
	return l.transact(ctx, l.token, "approve", l.registryAddr, amount)
}

// SubmitTag implements service.Ledger. The registry records the text only; address is
// kept for logging.
func (l *TagRegistryLedger) SubmitTag(ctx context.Context, address, text string) (service.TxStatus, error) {
	l.logger.Debug("Submitting tag", zap.String("address", entity.CanonicalAddress(address)))
	return l.transact(ctx, l.registry, "submitTag", text)
}

// SubmitVote implements service.Ledger
func (l *TagRegistryLedger) SubmitVote(ctx context.Context, address string, direction entity.VoteDirection) (service.TxStatus, error) {
	if !common.IsHexAddress(address) {
		return service.TxStatusFailed, fmt.Errorf("invalid vote target %q: %w", address, entity.ErrInvalidInput)
	}
	method := "voteUp"
	if direction == entity.VoteDown {
		method = "voteDown"
	}
	return l.transact(ctx, l.registry, method, common.HexToAddress(address))
}

// transact sends a transaction and waits for its receipt
func (l *TagRegistryLedger) transact(ctx context.Context, contract *bind.BoundContract, method string, args ...interface{}) (service.TxStatus, error) {
	l.txMu.Lock()
	defer l.txMu.Unlock()

	opts, err := bind.NewKeyedTransactorWithChainID(l.key, l.chainID)
	if err != nil {
		return service.TxStatusFailed, fmt.Errorf("failed to create transactor: %w", err)
	}
	opts.Context = ctx

	tx, err := contract.Transact(opts, method, args...)
	if err != nil {
		return service.TxStatusFailed, fmt.Errorf("failed to send %s: %w", method, err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, l.receiptTimeout)
	defer cancel()

	receipt, err := bind.WaitMined(waitCtx, l.backend, tx)
	if err != nil {
		return service.TxStatusFailed, fmt.Errorf("failed to wait for %s receipt: %w", method, err)
	}

	if receipt.Status != types.ReceiptStatusSuccessful {
		l.logger.Warn("Ledger transaction reverted",
			zap.String("method", method),
			zap.String("tx_hash", tx.Hash().Hex()),
			zap.Uint64("block_number", receipt.BlockNumber.Uint64()))
		return service.TxStatusReverted, nil
	}

	l.logger.Info("Ledger transaction confirmed",
		zap.String("method", method),
		zap.String("tx_hash", tx.Hash().Hex()),
		zap.Uint64("gas_used", receipt.GasUsed))
	return service.TxStatusSuccess, nil
}

func firstBigInt(out []interface{}, method string) (*big.Int, error) {
	if len(out) == 0 {
		return nil, fmt.Errorf("%s returned no values", method)
	}
	v, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%s returned %T, want *big.Int", method, out[0])
	}
	return v, nil
}

// NoopLedger accepts every submission without touching a chain.
// It is used when the ledger is disabled.
type NoopLedger struct {
	logger *logger.Logger
}

var _ service.Ledger = (*NoopLedger)(nil)

// NewNoopLedger creates a ledger that confirms everything locally
func NewNoopLedger(logger *logger.Logger) *NoopLedger {
	return &NoopLedger{logger: logger.WithComponent("noop-ledger")}
}

// Account implements service.Ledger
func (l *NoopLedger) Account() string {
	return common.Address{}.Hex()
}

// TagSubmitCost implements service.Ledger
func (l *NoopLedger) TagSubmitCost(context.Context) (*big.Int, error) {
	return new(big.Int), nil
}

// Allowance implements service.Ledger
func (l *NoopLedger) Allowance(context.Context, string) (*big.Int, error) {
	return new(big.Int), nil
}

// Approve implements service.Ledger
func (l *NoopLedger) Approve(context.Context, *big.Int) (service.TxStatus, error) {
	return service.TxStatusSuccess, nil
}

// SubmitTag implements service.Ledger
func (l *NoopLedger) SubmitTag(_ context.Context, address, _ string) (service.TxStatus, error) {
	l.logger.Debug("Tag accepted without ledger", zap.String("address", entity.CanonicalAddress(address)))
	return service.TxStatusSuccess, nil
}

// SubmitVote implements service.Ledger
func (l *NoopLedger) SubmitVote(_ context.Context, address string, direction entity.VoteDirection) (service.TxStatus, error) {
	l.logger.Debug("Vote accepted without ledger",
		zap.String("address", entity.CanonicalAddress(address)),
		zap.String("direction", string(direction)))
	return service.TxStatusSuccess, nil
}

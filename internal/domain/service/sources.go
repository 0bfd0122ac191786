package service

import (
	"context"
	"math/big"

	"onchain-intel/internal/domain/entity"
)

// TagSource looks up third-party tags of an address
type TagSource interface {
	// LookupTags returns the tags known for address. An address without tags
	// yields a result with an empty tag list, not an error.
	LookupTags(ctx context.Context, address string) (*entity.WalletTags, error)
}

// StatsSource fetches a statistics fragment of an address.
// A non-nil fragment returned with a *entity.PartialResultError is usable.
type StatsSource interface {
	Name() string
	FetchStats(ctx context.Context, address string) (entity.StatsFragment, error)
}

// TransferSource lists transfers of an address, newest first
type TransferSource interface {
	ListTransfers(ctx context.Context, address string, offset, limit int) (*entity.TransferPage, error)
}

// TxStatus is the terminal status of a ledger transaction
type TxStatus string

const (
	TxStatusSuccess  TxStatus = "success"
	TxStatusReverted TxStatus = "reverted"
	TxStatusFailed   TxStatus = "failed"
)

// Ledger is the on-chain tag registry collaborator.
// Every mutating call resolves to a terminal status; anything other than
// TxStatusSuccess is a failure.
type Ledger interface {
	// Account returns the address paying for ledger transactions
	Account() string

	// TagSubmitCost returns the token amount charged per submitted tag
	TagSubmitCost(ctx context.Context) (*big.Int, error)

	// Allowance returns how much of owner's token the registry may spend
	Allowance(ctx context.Context, owner string) (*big.Int, error)

	// Approve lets the registry spend amount of the paying account's token
	Approve(ctx context.Context, amount *big.Int) (TxStatus, error)

	// SubmitTag registers a tag text for an address
	SubmitTag(ctx context.Context, address, text string) (TxStatus, error)

	// SubmitVote records a vote on an address
	SubmitVote(ctx context.Context, address string, direction entity.VoteDirection) (TxStatus, error)
}

// Summarizer produces a narrative summary of an address record
type Summarizer interface {
	Summarize(ctx context.Context, record *entity.AddressRecord) (string, error)
}

// Authenticator establishes a caller identity from a signed message
type Authenticator interface {
	// Verify returns the verified identity for address if signature is valid.
	// issuedAt is the unix timestamp the signed message carries.
	Verify(address, signature, issuedAt string) (string, error)
}

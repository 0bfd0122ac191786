package service

import (
	"context"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"onchain-intel/internal/domain/entity"
	"onchain-intel/internal/domain/service"
	"onchain-intel/internal/infrastructure/logger"
	"onchain-intel/internal/infrastructure/memory"
)

const (
	addrA = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	addrB = "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	addrC = "0xcccccccccccccccccccccccccccccccccccccccc"
	voter = "0x1111111111111111111111111111111111111111"
)

var fixedNow = time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

func newStore(t *testing.T, records ...*entity.AddressRecord) *memory.AddressStore {
	t.Helper()
	store := memory.NewAddressStore(logger.NewNopLogger())
	for _, rec := range records {
		require.NoError(t, store.Upsert(rec))
	}
	return store
}

func sampleRecord(id, address string) *entity.AddressRecord {
	return &entity.AddressRecord{
		ID:           id,
		Address:      address,
		Stats:        service.DefaultStats(address, fixedNow),
		OfficialTags: []string{"Smart Money"},
		CommunityTags: []entity.Tag{
			{ID: "ct-1", Text: "Sniper", Category: entity.TagCategoryBehavior, Upvotes: 3, Downvotes: 1, SubmittedBy: entity.SubmitterMemeRadar},
		},
	}
}

// gatedTagSource blocks each lookup until its address is released
type gatedTagSource struct {
	mu     sync.Mutex
	gates  map[string]chan struct{}
	result map[string]*entity.WalletTags
	errs   map[string]error
	calls  map[string]int
}

func newGatedTagSource() *gatedTagSource {
	return &gatedTagSource{
		gates:  map[string]chan struct{}{},
		result: map[string]*entity.WalletTags{},
		errs:   map[string]error{},
		calls:  map[string]int{},
	}
}

func (g *gatedTagSource) gate(address string) chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	key := entity.CanonicalAddress(address)
	ch, ok := g.gates[key]
	if !ok {
		ch = make(chan struct{})
		g.gates[key] = ch
	}
	return ch
}

func (g *gatedTagSource) release(address string) {
	close(g.gate(address))
}

func (g *gatedTagSource) callCount(address string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[entity.CanonicalAddress(address)]
}

func (g *gatedTagSource) LookupTags(ctx context.Context, address string) (*entity.WalletTags, error) {
	key := entity.CanonicalAddress(address)
	g.mu.Lock()
	g.calls[key]++
	g.mu.Unlock()

	select {
	case <-g.gate(address):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.errs[key]; err != nil {
		return nil, err
	}
	if res, ok := g.result[key]; ok {
		return res, nil
	}
	return &entity.WalletTags{Address: address}, nil
}

// staticTagSource answers immediately
type staticTagSource struct {
	tags *entity.WalletTags
	err  error
}

func (s staticTagSource) LookupTags(context.Context, string) (*entity.WalletTags, error) {
	return s.tags, s.err
}

type fakeStatsSource struct {
	fragment entity.StatsFragment
	err      error
}

func (f fakeStatsSource) Name() string { return "fake" }

func (f fakeStatsSource) FetchStats(context.Context, string) (entity.StatsFragment, error) {
	return f.fragment, f.err
}

type fakeTransferSource struct {
	mu        sync.Mutex
	total     int
	err       error
	calls     int
	transfers func(offset, limit int) []entity.Transfer
}

func (f *fakeTransferSource) ListTransfers(_ context.Context, address string, offset, limit int) (*entity.TransferPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	var txs []entity.Transfer
	if f.transfers != nil {
		txs = f.transfers(offset, limit)
	}
	return &entity.TransferPage{
		Address:   address,
		Offset:    offset,
		Limit:     limit,
		Total:     f.total,
		Transfers: txs,
		FetchedAt: fixedNow,
	}, nil
}

func (f *fakeTransferSource) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// transfersFrom produces transfers from a distinct counterparty per position
func transfersFrom(focal string, total int) func(offset, limit int) []entity.Transfer {
	return func(offset, limit int) []entity.Transfer {
		var out []entity.Transfer
		for i := offset; i < offset+limit && i < total; i++ {
			peer := big.NewInt(int64(i + 1)).Text(16)
			for len(peer) < 40 {
				peer = "0" + peer
			}
			out = append(out, entity.Transfer{
				ID:              "tx-" + peer,
				TransactionHash: "0x" + peer,
				From:            entity.Endpoint{Address: "0x" + peer},
				To:              entity.Endpoint{Address: focal},
				USDValue:        float64(i+1) * 10,
				Chain:           "ethereum",
			})
		}
		return out
	}
}

type fakeLedger struct {
	mu sync.Mutex

	cost       *big.Int
	allowance  *big.Int
	approveSt  service.TxStatus
	approveErr error
	submitSt   service.TxStatus
	submitErr  error
	voteSt     service.TxStatus
	voteErr    error

	approvals int
	submits   int
	votes     int
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		cost:      big.NewInt(100),
		allowance: big.NewInt(0),
		approveSt: service.TxStatusSuccess,
		submitSt:  service.TxStatusSuccess,
		voteSt:    service.TxStatusSuccess,
	}
}

func (l *fakeLedger) Account() string { return voter }

func (l *fakeLedger) TagSubmitCost(context.Context) (*big.Int, error) {
	return new(big.Int).Set(l.cost), nil
}

func (l *fakeLedger) Allowance(context.Context, string) (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return new(big.Int).Set(l.allowance), nil
}

func (l *fakeLedger) Approve(_ context.Context, amount *big.Int) (service.TxStatus, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.approvals++
	if l.approveErr == nil && l.approveSt == service.TxStatusSuccess {
		l.allowance = new(big.Int).Set(amount)
	}
	return l.approveSt, l.approveErr
}

func (l *fakeLedger) SubmitTag(context.Context, string, string) (service.TxStatus, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.submits++
	return l.submitSt, l.submitErr
}

func (l *fakeLedger) SubmitVote(context.Context, string, entity.VoteDirection) (service.TxStatus, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.votes++
	return l.voteSt, l.voteErr
}

type fakeSummarizer struct {
	text  string
	err   error
	calls int
}

func (f *fakeSummarizer) Summarize(context.Context, *entity.AddressRecord) (string, error) {
	f.calls++
	return f.text, f.err
}

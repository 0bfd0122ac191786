package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"onchain-intel/internal/domain/entity"
	"onchain-intel/internal/domain/service"
	"onchain-intel/internal/infrastructure/logger"
)

var addressPattern = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)

const subscriberBuffer = 16

// IsAddress reports whether s is a literal EVM address
func IsAddress(s string) bool {
	return addressPattern.MatchString(s)
}

// TagLookup deduplicates concurrent tag lookups of the same address across resolver sessions
type TagLookup struct {
	source  service.TagSource
	group   singleflight.Group
	timeout time.Duration
}

// NewTagLookup creates a shared lookup; timeout bounds each upstream request
func NewTagLookup(source service.TagSource, timeout time.Duration) *TagLookup {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &TagLookup{source: source, timeout: timeout}
}

// Lookup returns the tags of address, joining an in-flight request for the same address.
// The upstream request is not tied to ctx, so abandoning interest does not cancel it.
func (l *TagLookup) Lookup(ctx context.Context, address string) (*entity.WalletTags, error) {
	key := entity.CanonicalAddress(address)
	ch := l.group.DoChan(key, func() (any, error) {
		reqCtx, cancel := context.WithTimeout(context.Background(), l.timeout)
		defer cancel()
		return l.source.LookupTags(reqCtx, address)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*entity.WalletTags), nil
	}
}

// Resolver is the per-session search state machine.
// Every input change bumps a sequence number; a lookup result applies only while its
// sequence number is still current.
type Resolver struct {
	mu       sync.Mutex
	state    entity.SearchState
	seq      uint64
	timer    *time.Timer
	debounce time.Duration

	addresses *AddressService
	lookup    *TagLookup

	ctx    context.Context
	cancel context.CancelFunc

	subscribers map[int]chan entity.SearchState
	nextSubID   int
	closed      bool

	logger *logger.Logger
}

// NewResolver creates an idle resolver session
func NewResolver(addresses *AddressService, lookup *TagLookup, debounce time.Duration, logger *logger.Logger) *Resolver {
	ctx, cancel := context.WithCancel(context.Background())
	return &Resolver{
		state:       entity.SearchState{Status: entity.SearchIdle},
		debounce:    debounce,
		addresses:   addresses,
		lookup:      lookup,
		ctx:         ctx,
		cancel:      cancel,
		subscribers: make(map[int]chan entity.SearchState),
		logger:      logger.WithComponent("address-resolver"),
	}
}

// State returns the current state
func (r *Resolver) State() entity.SearchState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return copyState(r.state)
}

// Subscribe returns a channel receiving every state transition and a function to stop receiving.
// A slow subscriber loses its oldest pending states, never the newest.
func (r *Resolver) Subscribe() (<-chan entity.SearchState, func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ch := make(chan entity.SearchState, subscriberBuffer)
	if r.closed {
		close(ch)
		return ch, func() {}
	}
	id := r.nextSubID
	r.nextSubID++
	r.subscribers[id] = ch

	return ch, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if sub, ok := r.subscribers[id]; ok {
			delete(r.subscribers, id)
			close(sub)
		}
	}
}

// SetInput resets the resolver to Idle and schedules a debounced settle of input
func (r *Resolver) SetInput(input string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}

	r.seq++
	seq := r.seq
	r.setState(entity.SearchState{Status: entity.SearchIdle, Input: input})

	if r.timer != nil {
		r.timer.Stop()
	}
	r.timer = time.AfterFunc(r.debounce, func() {
		r.settle(seq, input)
	})
}

func (r *Resolver) settle(seq uint64, input string) {
	r.mu.Lock()
	if r.closed || seq != r.seq {
		r.mu.Unlock()
		return
	}

	candidate := strings.TrimSpace(input)
	if !IsAddress(candidate) || r.addresses.Exists(candidate) {
		if r.state.Status != entity.SearchIdle {
			r.setState(entity.SearchState{Status: entity.SearchIdle, Input: input})
		}
		r.mu.Unlock()
		return
	}

	r.setState(entity.SearchState{Status: entity.SearchLoading, Input: input, Address: candidate})
	r.mu.Unlock()

	r.logger.Debug("Looking up address", zap.String("address", candidate), zap.Uint64("seq", seq))
	go func() {
		tags, err := r.lookup.Lookup(r.ctx, candidate)
		r.complete(seq, input, candidate, tags, err)
	}()
}

func (r *Resolver) complete(seq uint64, input, address string, tags *entity.WalletTags, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed || seq != r.seq {
		r.logger.Debug("Discarding lookup result",
			zap.String("address", address),
			zap.Uint64("seq", seq),
			zap.Uint64("current_seq", r.seq),
			zap.Error(entity.ErrStaleResult))
		return
	}

	next := entity.SearchState{Input: input, Address: address}
	switch {
	case err != nil:
		r.logger.Warn("Address lookup failed", zap.String("address", address), zap.Error(err))
		next.Status = entity.SearchError
		next.Message = fmt.Sprintf("Failed to query the address: %v", err)
	case tags == nil || len(tags.Tags) == 0:
		next.Status = entity.SearchNotFound
		next.Message = "No tags were found for this address"
	default:
		next.Status = entity.SearchFound
		next.Tags = append([]entity.SourceTag(nil), tags.Tags...)
	}
	r.setState(next)
}

// AcceptFound creates a record from the found tags and returns the resolver to Idle
func (r *Resolver) AcceptFound(ctx context.Context) (*entity.AddressRecord, error) {
	return r.accept(ctx, entity.SearchFound)
}

// AcceptNotFound creates an untagged record for manual tagging and returns the resolver to Idle
func (r *Resolver) AcceptNotFound(ctx context.Context) (*entity.AddressRecord, error) {
	return r.accept(ctx, entity.SearchNotFound)
}

func (r *Resolver) accept(ctx context.Context, want entity.SearchStatus) (*entity.AddressRecord, error) {
	r.mu.Lock()
	if r.state.Status != want {
		status := r.state.Status
		r.mu.Unlock()
		return nil, fmt.Errorf("resolver is %s, not %s: %w", status, want, entity.ErrInvalidInput)
	}
	seq := r.seq
	st := copyState(r.state)
	r.mu.Unlock()

	rec, err := r.addresses.CreateFromRemoteTags(ctx, st.Address, st.Tags)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	if seq == r.seq && !r.closed {
		r.seq++
		r.setState(entity.SearchState{Status: entity.SearchIdle, Input: st.Input})
	}
	r.mu.Unlock()
	return rec, nil
}

// Close stops the session and closes all subscriber channels
func (r *Resolver) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	r.cancel()
	if r.timer != nil {
		r.timer.Stop()
	}
	for id, ch := range r.subscribers {
		delete(r.subscribers, id)
		close(ch)
	}
}

// setState must be called with r.mu held
func (r *Resolver) setState(st entity.SearchState) {
	st.Seq = r.seq
	r.state = st
	for _, ch := range r.subscribers {
		out := copyState(st)
		select {
		case ch <- out:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- out:
			default:
			}
		}
	}
}

func copyState(st entity.SearchState) entity.SearchState {
	if st.Tags != nil {
		st.Tags = append([]entity.SourceTag(nil), st.Tags...)
	}
	return st
}

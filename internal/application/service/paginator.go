package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/axiomhq/hyperloglog"
	"go.uber.org/zap"

	"onchain-intel/internal/domain/entity"
	"onchain-intel/internal/domain/service"
	"onchain-intel/internal/infrastructure/logger"
)

// DefaultPageSize is the number of transfers per page
const DefaultPageSize = 16

// PageStatus tells a loaded page apart from an empty or failed one
type PageStatus string

const (
	PageLoaded PageStatus = "loaded"
	PageEmpty  PageStatus = "empty"
	PageError  PageStatus = "error"
)

// PageResult is the outcome of a page request
type PageResult struct {
	Status  PageStatus           `json:"status"`
	Page    *entity.TransferPage `json:"page,omitempty"`
	Message string               `json:"message,omitempty"`
}

type pageKey struct {
	address string
	offset  int
}

// TransferPaginator fetches and caches transfer pages per (address, offset).
// Cached pages are never modified; a refetch replaces them wholesale.
type TransferPaginator struct {
	source   service.TransferSource
	pageSize int

	mu       sync.RWMutex
	pages    map[pageKey]*entity.TransferPage
	totals   map[string]int
	sketches map[string]*hyperloglog.Sketch

	logger *logger.Logger
}

// NewTransferPaginator creates a paginator with a fixed page size
func NewTransferPaginator(source service.TransferSource, pageSize int, logger *logger.Logger) *TransferPaginator {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &TransferPaginator{
		source:   source,
		pageSize: pageSize,
		pages:    make(map[pageKey]*entity.TransferPage),
		totals:   make(map[string]int),
		sketches: make(map[string]*hyperloglog.Sketch),
		logger:   logger.WithComponent("transfer-paginator"),
	}
}

// PageSize returns the fixed page size
func (p *TransferPaginator) PageSize() int {
	return p.pageSize
}

// Page returns the transfers of address starting at offset.
// An offset at or past the known total yields PageEmpty without a fetch.
func (p *TransferPaginator) Page(ctx context.Context, address string, offset int) PageResult {
	if offset < 0 {
		return PageResult{Status: PageError, Message: fmt.Sprintf("Invalid offset %d", offset)}
	}
	key := pageKey{address: entity.CanonicalAddress(address), offset: offset}

	p.mu.RLock()
	cached, ok := p.pages[key]
	total, knownTotal := p.totals[key.address]
	p.mu.RUnlock()

	if ok {
		return resultFor(cached)
	}
	if knownTotal && offset >= total {
		return PageResult{Status: PageEmpty, Page: &entity.TransferPage{
			Address: address, Offset: offset, Limit: p.pageSize, Total: total,
		}}
	}
	return p.fetch(ctx, address, key)
}

// Refetch drops the cached page and loads it again
func (p *TransferPaginator) Refetch(ctx context.Context, address string, offset int) PageResult {
	if offset < 0 {
		return PageResult{Status: PageError, Message: fmt.Sprintf("Invalid offset %d", offset)}
	}
	key := pageKey{address: entity.CanonicalAddress(address), offset: offset}
	p.mu.Lock()
	delete(p.pages, key)
	p.mu.Unlock()
	return p.fetch(ctx, address, key)
}

// SeenCounterparties estimates the distinct counterparties across all fetched pages of address
func (p *TransferPaginator) SeenCounterparties(address string) uint64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	sk, ok := p.sketches[entity.CanonicalAddress(address)]
	if !ok {
		return 0
	}
	return sk.Estimate()
}

// Forget drops every cached page of address
func (p *TransferPaginator) Forget(address string) {
	canonical := entity.CanonicalAddress(address)
	p.mu.Lock()
	defer p.mu.Unlock()
	for k := range p.pages {
		if k.address == canonical {
			delete(p.pages, k)
		}
	}
	delete(p.totals, canonical)
	delete(p.sketches, canonical)
}

func (p *TransferPaginator) fetch(ctx context.Context, address string, key pageKey) PageResult {
	page, err := p.source.ListTransfers(ctx, address, key.offset, p.pageSize)
	if err != nil {
		p.logger.Warn("Failed to fetch transfers",
			zap.String("address", key.address),
			zap.Int("offset", key.offset),
			zap.Error(err))
		return PageResult{Status: PageError, Message: fmt.Sprintf("Failed to load transfers: %v", err)}
	}

	p.mu.Lock()
	p.pages[key] = page
	p.totals[key.address] = page.Total
	sk, ok := p.sketches[key.address]
	if !ok {
		sk = hyperloglog.New14()
		p.sketches[key.address] = sk
	}
	for _, tx := range page.Transfers {
		from := entity.CanonicalAddress(tx.From.Address)
		to := entity.CanonicalAddress(tx.To.Address)
		if from != key.address {
			sk.Insert([]byte(from))
		}
		if to != key.address {
			sk.Insert([]byte(to))
		}
	}
	p.mu.Unlock()

	return resultFor(page)
}

func resultFor(page *entity.TransferPage) PageResult {
	if len(page.Transfers) == 0 {
		return PageResult{Status: PageEmpty, Page: page}
	}
	return PageResult{Status: PageLoaded, Page: page}
}

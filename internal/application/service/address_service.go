package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"onchain-intel/internal/domain/entity"
	"onchain-intel/internal/domain/repository"
	"onchain-intel/internal/domain/service"
	"onchain-intel/internal/infrastructure/logger"
)

// StatsRefreshStatus reports whether a statistics refresh was applied
type StatsRefreshStatus string

const (
	StatsMerged StatsRefreshStatus = "merged"
	StatsFailed StatsRefreshStatus = "failed"
)

// StatsRefreshResult is the outcome of RefreshStats. On failure Record is the unchanged record.
type StatsRefreshResult struct {
	Status  StatsRefreshStatus    `json:"status"`
	Message string                `json:"message,omitempty"`
	Source  string                `json:"source,omitempty"`
	Record  *entity.AddressRecord `json:"record,omitempty"`

	// Failures lists sources that failed while the merged ones answered
	Failures []entity.SourceFailure `json:"failures,omitempty"`
}

// ListQuery selects and orders address records
type ListQuery struct {
	Term      string
	SortKey   repository.SortKey
	Direction repository.SortDirection
}

// AddressService creates address records and keeps their statistics and tags current
type AddressService struct {
	store  repository.AddressRepository
	tags   service.TagSource
	stats  service.StatsSource
	now    func() time.Time
	logger *logger.Logger
}

// NewAddressService creates a new address service
func NewAddressService(
	store repository.AddressRepository,
	tags service.TagSource,
	stats service.StatsSource,
	logger *logger.Logger,
) *AddressService {
	return &AddressService{
		store:  store,
		tags:   tags,
		stats:  stats,
		now:    time.Now,
		logger: logger.WithComponent("address-service"),
	}
}

// DisplayAddress returns the checksummed form of an EVM address, or the input unchanged
func DisplayAddress(address string) string {
	address = strings.TrimSpace(address)
	if common.IsHexAddress(address) {
		return common.HexToAddress(address).Hex()
	}
	return address
}

// List returns the records matching the query in the requested order
func (s *AddressService) List(q ListQuery) []*entity.AddressRecord {
	key := q.SortKey
	if key == "" {
		key = repository.SortByInfluence
	}
	dir := q.Direction
	if dir == "" {
		dir = repository.SortDesc
	}
	return service.SortRecords(s.store.Search(q.Term), key, dir)
}

// Get returns a record by id
func (s *AddressService) Get(id string) (*entity.AddressRecord, error) {
	return s.store.Get(id)
}

// CreateFromRemoteTags creates a record for an address discovered through the tag source.
// The record id is the lower-cased address.
func (s *AddressService) CreateFromRemoteTags(ctx context.Context, address string, tags []entity.SourceTag) (*entity.AddressRecord, error) {
	canonical := entity.CanonicalAddress(address)
	rec := &entity.AddressRecord{
		ID:            canonical,
		Address:       DisplayAddress(address),
		Stats:         service.DefaultStats(canonical, s.now()),
		CommunityTags: make([]entity.Tag, 0, len(tags)),
	}
	for _, t := range tags {
		rec.CommunityTags = append(rec.CommunityTags, service.CommunityTagFromSource(canonical, t))
	}

	if err := s.store.Upsert(rec); err != nil {
		return nil, fmt.Errorf("failed to store record for %s: %w", address, err)
	}

	s.logger.Info("Address record created",
		zap.String("address", canonical),
		zap.Int("tag_count", len(tags)))
	return s.store.Get(rec.ID)
}

// RefreshStats fetches a statistics fragment and merges it into the record.
// A fetch failure leaves the record untouched and is reported as StatsFailed.
func (s *AddressService) RefreshStats(ctx context.Context, id string) (StatsRefreshResult, error) {
	rec, err := s.store.Get(id)
	if err != nil {
		return StatsRefreshResult{}, err
	}
	if s.stats == nil {
		return StatsRefreshResult{Status: StatsFailed, Message: "No statistics source is configured", Record: rec}, nil
	}

	fragment, err := s.stats.FetchStats(ctx, rec.Address)
	var partial *entity.PartialResultError
	if err != nil && (fragment == nil || !errors.As(err, &partial)) {
		s.logger.Warn("Failed to fetch stats",
			zap.String("address", rec.Canonical()),
			zap.String("source", s.stats.Name()),
			zap.Error(err))
		msg := fmt.Sprintf("Failed to fetch statistics: %v", err)
		if errors.Is(err, entity.ErrNotFound) {
			msg = "No statistics are available for this address"
		}
		return StatsRefreshResult{Status: StatsFailed, Message: msg, Source: s.stats.Name(), Record: rec}, nil
	}

	updated, err := s.merge(id, fragment)
	if err != nil {
		return StatsRefreshResult{}, err
	}
	res := StatsRefreshResult{Status: StatsMerged, Source: s.stats.Name(), Record: updated}
	if partial != nil {
		res.Failures = partial.Failures
		res.Message = "Some statistics sources failed: " + partial.Error()
	}
	return res, nil
}

// ApplyFragment merges a fragment pushed by an external producer into the record of address
func (s *AddressService) ApplyFragment(ctx context.Context, address, source string, fragment entity.StatsFragment) (*entity.AddressRecord, error) {
	rec, err := s.store.GetByAddress(address)
	if err != nil {
		return nil, err
	}

	updated, err := s.merge(rec.ID, fragment)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Fragment applied",
		zap.String("address", rec.Canonical()),
		zap.String("source", source),
		zap.Int("key_count", len(fragment)))
	return updated, nil
}

func (s *AddressService) merge(id string, fragment entity.StatsFragment) (*entity.AddressRecord, error) {
	for _, key := range fragment.Keys() {
		if !key.IsKnown() {
			s.logger.Debug("Ignoring unknown stat key", zap.String("record_id", id), zap.String("key", string(key)))
		}
	}
	updated, err := s.store.Update(id, func(r *entity.AddressRecord) error {
		r.Stats = service.MergeStats(r.Stats, fragment)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to merge stats into %s: %w", id, err)
	}
	return updated, nil
}

// BackfillCommunityTags loads source tags for a record created without community tags.
// Tags already present are kept; a record that has community tags is returned as is.
func (s *AddressService) BackfillCommunityTags(ctx context.Context, id string) (*entity.AddressRecord, error) {
	rec, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	if len(rec.CommunityTags) > 0 || s.tags == nil {
		return rec, nil
	}

	found, err := s.tags.LookupTags(ctx, rec.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to look up tags for %s: %w", rec.Canonical(), err)
	}
	if found == nil || len(found.Tags) == 0 {
		return rec, nil
	}

	return s.store.Update(id, func(r *entity.AddressRecord) error {
		canonical := r.Canonical()
		for _, t := range found.Tags {
			tag := service.CommunityTagFromSource(canonical, t)
			if r.FindTag(tag.ID) >= 0 {
				continue
			}
			r.CommunityTags = append(r.CommunityTags, tag)
		}
		return nil
	})
}

// Exists reports whether a record with address is tracked
func (s *AddressService) Exists(address string) bool {
	_, err := s.store.GetByAddress(address)
	return err == nil
}

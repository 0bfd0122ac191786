package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"onchain-intel/internal/domain/entity"
	"onchain-intel/internal/infrastructure/logger"
)

// TagBackfillStatus tells whether the record has community tags after a backfill
type TagBackfillStatus string

const (
	TagsLoaded TagBackfillStatus = "loaded"
	TagsEmpty  TagBackfillStatus = "empty"
	TagsError  TagBackfillStatus = "error"
)

// TagBackfillResult is the outcome of the community tag backfill
type TagBackfillResult struct {
	Status  TagBackfillStatus `json:"status"`
	Message string            `json:"message,omitempty"`
}

// Detail is everything the detail view shows for one record
type Detail struct {
	Record  *entity.AddressRecord `json:"record"`
	Refresh StatsRefreshResult    `json:"refresh"`
	Tags    TagBackfillResult     `json:"tags"`
	Page    PageResult            `json:"page"`
}

// DetailService loads a record's detail view, refreshing stats, tags and the first
// transfer page concurrently
type DetailService struct {
	addresses *AddressService
	paginator *TransferPaginator
	logger    *logger.Logger
}

// NewDetailService creates a detail service
func NewDetailService(addresses *AddressService, paginator *TransferPaginator, logger *logger.Logger) *DetailService {
	return &DetailService{
		addresses: addresses,
		paginator: paginator,
		logger:    logger.WithComponent("detail-service"),
	}
}

// LoadDetail returns the detail of record id. Source failures are reported in the
// result states; only a missing record is an error.
func (s *DetailService) LoadDetail(ctx context.Context, id string) (*Detail, error) {
	rec, err := s.addresses.Get(id)
	if err != nil {
		return nil, err
	}

	var (
		refresh StatsRefreshResult
		tags    TagBackfillResult
		page    PageResult
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		refresh, err = s.addresses.RefreshStats(gctx, id)
		return err
	})
	g.Go(func() error {
		tags = s.backfill(gctx, id)
		return nil
	})
	g.Go(func() error {
		page = s.paginator.Page(gctx, rec.Address, 0)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	latest, err := s.addresses.Get(id)
	if err != nil {
		return nil, err
	}
	return &Detail{Record: latest, Refresh: refresh, Tags: tags, Page: page}, nil
}

func (s *DetailService) backfill(ctx context.Context, id string) TagBackfillResult {
	rec, err := s.addresses.BackfillCommunityTags(ctx, id)
	if err != nil {
		s.logger.Warn("Failed to backfill community tags", zap.String("record_id", id), zap.Error(err))
		return TagBackfillResult{Status: TagsError, Message: fmt.Sprintf("Failed to load community tags: %v", err)}
	}
	if len(rec.CommunityTags) == 0 {
		return TagBackfillResult{Status: TagsEmpty, Message: "No community tags were found for this address"}
	}
	return TagBackfillResult{Status: TagsLoaded}
}

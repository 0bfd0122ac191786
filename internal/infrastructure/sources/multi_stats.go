package sources

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"onchain-intel/internal/domain/entity"
	"onchain-intel/internal/domain/service"
	"onchain-intel/internal/infrastructure/logger"
)

// MultiStatsSource queries several statistics sources concurrently and merges their
// fragments. Later sources win on conflicting keys. It fails only when every source fails;
// when some fail the merged fragment comes with a *entity.PartialResultError.
type MultiStatsSource struct {
	sources []service.StatsSource
	logger  *logger.Logger
}

var _ service.StatsSource = (*MultiStatsSource)(nil)

// NewMultiStatsSource combines sources in priority order, lowest first
func NewMultiStatsSource(logger *logger.Logger, sources ...service.StatsSource) *MultiStatsSource {
	return &MultiStatsSource{
		sources: sources,
		logger:  logger.WithComponent("multi-stats"),
	}
}

// Name implements service.StatsSource
func (m *MultiStatsSource) Name() string {
	names := make([]string, 0, len(m.sources))
	for _, s := range m.sources {
		names = append(names, s.Name())
	}
	return strings.Join(names, "+")
}

// FetchStats implements service.StatsSource
func (m *MultiStatsSource) FetchStats(ctx context.Context, address string) (entity.StatsFragment, error) {
	fragments := make([]entity.StatsFragment, len(m.sources))
	errs := make([]error, len(m.sources))

	var g errgroup.Group
	for i, src := range m.sources {
		g.Go(func() error {
			fragments[i], errs[i] = src.FetchStats(ctx, address)
			return nil
		})
	}
	_ = g.Wait()

	var (
		merged   entity.StatsFragment
		firstErr error
		failures []entity.SourceFailure
	)
	for i, src := range m.sources {
		if errs[i] != nil {
			if firstErr == nil {
				firstErr = errs[i]
			}
			failures = append(failures, entity.SourceFailure{Source: src.Name(), Message: errs[i].Error()})
			m.logger.Warn("Stats source failed",
				zap.String("source", src.Name()),
				zap.String("address", entity.CanonicalAddress(address)),
				zap.Error(errs[i]))
			continue
		}
		if merged == nil {
			merged = entity.StatsFragment{}
		}
		for k, v := range fragments[i] {
			merged[k] = v
		}
	}
	if merged == nil {
		if firstErr == nil {
			firstErr = entity.ErrNotFound
		}
		return nil, firstErr
	}
	if len(failures) > 0 {
		return merged, &entity.PartialResultError{Failures: failures}
	}
	return merged, nil
}

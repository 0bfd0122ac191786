package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"onchain-intel/internal/domain/entity"
	"onchain-intel/internal/domain/repository"
	"onchain-intel/internal/domain/service"
	"onchain-intel/internal/infrastructure/logger"
)

// SummaryResult is a summary or the reason none is available
type SummaryResult struct {
	Text    string `json:"text,omitempty"`
	Cached  bool   `json:"cached"`
	Message string `json:"message,omitempty"`
}

// SummaryService produces record summaries and caches successful ones by record id
type SummaryService struct {
	store      repository.AddressRepository
	summarizer service.Summarizer
	cache      repository.SummaryCache
	logger     *logger.Logger
}

// NewSummaryService creates a summary service. A nil summarizer disables generation.
func NewSummaryService(
	store repository.AddressRepository,
	summarizer service.Summarizer,
	cache repository.SummaryCache,
	logger *logger.Logger,
) *SummaryService {
	return &SummaryService{
		store:      store,
		summarizer: summarizer,
		cache:      cache,
		logger:     logger.WithComponent("summary-service"),
	}
}

// Summary returns the summary of record id. Generation failures are reported in
// Message and are not cached.
func (s *SummaryService) Summary(ctx context.Context, id string) (SummaryResult, error) {
	rec, err := s.store.Get(id)
	if err != nil {
		return SummaryResult{}, err
	}

	if s.cache != nil {
		text, ok, err := s.cache.Get(ctx, id)
		if err != nil {
			s.logger.Warn("Failed to read summary cache", zap.String("record_id", id), zap.Error(err))
		} else if ok {
			return SummaryResult{Text: text, Cached: true}, nil
		}
	}

	if s.summarizer == nil {
		return SummaryResult{Message: "Summaries are not available"}, nil
	}

	text, err := s.summarizer.Summarize(ctx, rec)
	if err != nil {
		s.logger.Warn("Failed to summarize record", zap.String("record_id", id), zap.Error(err))
		return SummaryResult{Message: fmt.Sprintf("Failed to generate summary: %v", err)}, nil
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, id, text); err != nil {
			s.logger.Warn("Failed to write summary cache", zap.String("record_id", id), zap.Error(err))
		}
	}
	return SummaryResult{Text: text}, nil
}

// TemplateSummarizer writes a trader persona from a record's statistics and tags
type TemplateSummarizer struct{}

var _ service.Summarizer = TemplateSummarizer{}

// Summarize implements service.Summarizer
func (TemplateSummarizer) Summarize(_ context.Context, rec *entity.AddressRecord) (string, error) {
	if rec == nil {
		return "", fmt.Errorf("no record to summarize: %w", entity.ErrInvalidInput)
	}
	st := rec.Stats
	var b strings.Builder

	fmt.Fprintf(&b, "%s is %s.", service.DisplayName(rec), persona(st))

	winRate := st.Float(entity.StatWinRate)
	fmt.Fprintf(&b, " Over 30 days it made %d buys and %d sells with a %.0f%% win rate",
		int64(st.Float(entity.StatBuy30d)), int64(st.Float(entity.StatSell30d)), winRate*100)
	fmt.Fprintf(&b, " and %s realized profit on %s volume.",
		usd(st.Float(entity.StatRealizedProfit30d)), usd(st.Float(entity.StatTotalVolume)))

	if hp := st.Float(entity.StatRiskTokenHoneypotRatio); hp > 0.2 {
		fmt.Fprintf(&b, " %.0f%% of traded tokens were honeypots.", hp*100)
	}
	if fast := st.Float(entity.StatRiskFastTxRatio); fast > 0.5 {
		b.WriteString(" Most trades close within seconds, typical of bot activity.")
	}

	ranked := service.RankTags(rec.OfficialTags, rec.CommunityTags)
	if len(ranked) > 0 {
		n := min(len(ranked), 3)
		names := make([]string, 0, n)
		for _, t := range ranked[:n] {
			names = append(names, t.Text)
		}
		fmt.Fprintf(&b, " Known as: %s.", strings.Join(names, ", "))
	}
	return b.String(), nil
}

func persona(st entity.Stats) string {
	switch {
	case st.Float(entity.StatRiskFastTxRatio) > 0.5:
		return "a high-frequency trader"
	case st.Float(entity.StatTotalVolume) >= 1_000_000:
		return "a high-volume trader"
	case st.Float(entity.StatWinRate) >= 0.6:
		return "a consistently profitable trader"
	case st.Float(entity.StatAvgHoldingPeriod) >= 7*24*3600:
		return "a long-term holder"
	default:
		return "an occasional trader"
	}
}

func usd(v float64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	switch {
	case v >= 1_000_000:
		return fmt.Sprintf("%s$%.1fM", sign, v/1_000_000)
	case v >= 1_000:
		return fmt.Sprintf("%s$%.1fK", sign, v/1_000)
	default:
		return fmt.Sprintf("%s$%.0f", sign, v)
	}
}

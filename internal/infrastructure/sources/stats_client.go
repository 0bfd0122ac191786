package sources

import (
	"context"
	"net/url"
	"strconv"

	"onchain-intel/internal/domain/entity"
	"onchain-intel/internal/domain/service"
	"onchain-intel/internal/infrastructure/config"
	"onchain-intel/internal/infrastructure/logger"
)

type marketStats struct {
	Address             string  `json:"address"`
	Balance             float64 `json:"balance"`
	Pnl7d               float64 `json:"pnl_7d"`
	Pnl30d              float64 `json:"pnl_30d"`
	RealizedProfit7d    float64 `json:"realized_profit_7d"`
	RealizedProfit30d   float64 `json:"realized_profit_30d"`
	Winrate7d           float64 `json:"winrate_7d"`
	Winrate30d          float64 `json:"winrate_30d"`
	BuyTimes7d          float64 `json:"buy_times_7d"`
	SellTimes7d         float64 `json:"sell_times_7d"`
	BuyTimes30d         float64 `json:"buy_times_30d"`
	SellTimes30d        float64 `json:"sell_times_30d"`
	BuyVolume7d         float64 `json:"buy_volume_7d"`
	SellVolume7d        float64 `json:"sell_volume_7d"`
	BuyVolume30d        float64 `json:"buy_volume_30d"`
	SellVolume30d       float64 `json:"sell_volume_30d"`
	PnlLtMinusDot5Num   float64 `json:"pnl_lt_minus_dot5_num"`
	PnlMinusDot50xNum   float64 `json:"pnl_minus_dot5_0x_num"`
	PnlLt2xNum          float64 `json:"pnl_lt_2x_num"`
	Pnl2x5xNum          float64 `json:"pnl_2x_5x_num"`
	PnlGt5xNum          float64 `json:"pnl_gt_5x_num"`
	TokenNum            float64 `json:"token_num"`
	TotalProfit         float64 `json:"total_profit"`
	UnrealizedProfit    float64 `json:"unrealized_profit"`
	LastActiveTimestamp float64 `json:"last_active_timestamp"`
}

type marketStatsResponse struct {
	Code        int          `json:"code"`
	Description string       `json:"description"`
	Data        *marketStats `json:"data"`
}

// StatsClient fetches market statistics of a wallet
type StatsClient struct {
	endpoint string
	chain    string
	client   *jsonClient
	logger   *logger.Logger
}

var _ service.StatsSource = (*StatsClient)(nil)

// NewStatsClient creates a statistics source client
func NewStatsClient(cfg *config.SourcesConfig, hc httpDoer, logger *logger.Logger) *StatsClient {
	log := logger.WithComponent("stats-source")
	return &StatsClient{
		endpoint: cfg.StatsURL,
		chain:    cfg.Chain,
		client:   newJSONClient("stats source", hc, cfg.MaxRetries, cfg.RetryDelay, log),
		logger:   log,
	}
}

// Name identifies the source in logs and fragment metadata
func (c *StatsClient) Name() string {
	return "debot"
}

// FetchStats returns the 7 day market statistics of address as a fragment
func (c *StatsClient) FetchStats(ctx context.Context, address string) (entity.StatsFragment, error) {
	query := url.Values{}
	query.Set("chain", c.chain)
	query.Set("wallet", address)
	query.Set("duration", "7D")

	var resp marketStatsResponse
	if err := c.client.get(ctx, c.endpoint, query, &resp); err != nil {
		return nil, err
	}
	if resp.Code != 0 {
		return nil, &entity.TransportError{Source: "stats source", Message: resp.Description}
	}
	if resp.Data == nil {
		return nil, entity.ErrNotFound
	}
	return toFragment(resp.Data), nil
}

// toFragment maps source fields onto the stats vocabulary. Derived totals are computed here.
func toFragment(d *marketStats) entity.StatsFragment {
	return entity.StatsFragment{
		entity.StatPnl7d:               entity.Num(d.Pnl7d),
		entity.StatPnl30d:              entity.Num(d.Pnl30d),
		entity.StatRealizedProfit:      entity.Num(d.TotalProfit),
		entity.StatRealizedProfit7d:    entity.Num(d.RealizedProfit7d),
		entity.StatRealizedProfit30d:   entity.Num(d.RealizedProfit30d),
		entity.StatUnrealizedProfit:    entity.Num(d.UnrealizedProfit),
		entity.StatWinRate:             entity.Num(d.Winrate7d),
		entity.StatBuy7d:               entity.Num(d.BuyTimes7d),
		entity.StatSell7d:              entity.Num(d.SellTimes7d),
		entity.StatBuy30d:              entity.Num(d.BuyTimes30d),
		entity.StatSell30d:             entity.Num(d.SellTimes30d),
		entity.StatTotalVolume:         entity.Num(d.BuyVolume30d + d.SellVolume30d),
		entity.StatPnlLtMinusDot5Num:   entity.Num(d.PnlLtMinusDot5Num),
		entity.StatPnlMinusDot50xNum:   entity.Num(d.PnlMinusDot50xNum),
		entity.StatPnlLt2xNum:          entity.Num(d.PnlLt2xNum),
		entity.StatPnl2x5xNum:          entity.Num(d.Pnl2x5xNum),
		entity.StatPnlGt5xNum:          entity.Num(d.PnlGt5xNum),
		entity.StatTokenNum:            entity.Num(d.TokenNum),
		entity.StatLastActiveTimestamp: entity.Num(d.LastActiveTimestamp),
		entity.StatBalance:             entity.Text(strconv.FormatFloat(d.Balance, 'f', -1, 64)),
	}
}

package sources

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"onchain-intel/internal/domain/entity"
	"onchain-intel/internal/domain/service"
	"onchain-intel/internal/infrastructure/config"
	"onchain-intel/internal/infrastructure/logger"
)

type wireEntity struct {
	Name string `json:"name"`
	ID   string `json:"id"`
	Type string `json:"type"`
}

type wireLabel struct {
	Name      string `json:"name"`
	Address   string `json:"address"`
	ChainType string `json:"chainType"`
}

type wireAddress struct {
	Address      string      `json:"address"`
	Chain        string      `json:"chain"`
	ArkhamEntity *wireEntity `json:"arkhamEntity"`
	ArkhamLabel  *wireLabel  `json:"arkhamLabel"`
}

type wireTransfer struct {
	ID              string      `json:"id"`
	BlockTimestamp  time.Time   `json:"blockTimestamp"`
	BlockNumber     uint64      `json:"blockNumber"`
	TransactionHash string      `json:"transactionHash"`
	FromAddress     wireAddress `json:"fromAddress"`
	ToAddress       wireAddress `json:"toAddress"`
	TokenAddress    string      `json:"tokenAddress"`
	TokenName       string      `json:"tokenName"`
	TokenSymbol     string      `json:"tokenSymbol"`
	TokenDecimals   int         `json:"tokenDecimals"`
	HistoricalUSD   float64     `json:"historicalUSD"`
	Chain           string      `json:"chain"`
}

type transfersResponse struct {
	Transfers []wireTransfer `json:"transfers"`
	Count     int            `json:"count"`
}

// TransferClient lists transfers from the intelligence API
type TransferClient struct {
	endpoint string
	minUSD   float64
	client   *jsonClient
	now      func() time.Time
	logger   *logger.Logger
}

var _ service.TransferSource = (*TransferClient)(nil)

// NewTransferClient creates a transfer source client
func NewTransferClient(cfg *config.SourcesConfig, hc httpDoer, logger *logger.Logger) *TransferClient {
	log := logger.WithComponent("transfer-source")
	client := newJSONClient("transfer source", hc, cfg.MaxRetries, cfg.RetryDelay, log)
	if cfg.TransferKey != "" {
		client.headers["API-Key"] = cfg.TransferKey
	}
	return &TransferClient{
		endpoint: cfg.TransferURL + "/transfers",
		minUSD:   cfg.MinUSD,
		client:   client,
		now:      time.Now,
		logger:   log,
	}
}

// ListTransfers returns one page of transfers touching address, newest first
func (c *TransferClient) ListTransfers(ctx context.Context, address string, offset, limit int) (*entity.TransferPage, error) {
	query := url.Values{}
	query.Set("usdGte", strconv.FormatFloat(c.minUSD, 'f', -1, 64))
	query.Set("sortKey", "time")
	query.Set("sortDir", "desc")
	query.Set("limit", strconv.Itoa(limit))
	query.Set("offset", strconv.Itoa(offset))
	query.Set("flow", "all")
	query.Set("base", address)

	var resp transfersResponse
	if err := c.client.get(ctx, c.endpoint, query, &resp); err != nil {
		return nil, err
	}

	page := &entity.TransferPage{
		Address:   address,
		Offset:    offset,
		Limit:     limit,
		Total:     resp.Count,
		Transfers: make([]entity.Transfer, 0, len(resp.Transfers)),
		FetchedAt: c.now(),
	}
	for _, wt := range resp.Transfers {
		page.Transfers = append(page.Transfers, wt.toEntity())
	}

	c.logger.Debug("Transfers fetched",
		zap.String("address", address),
		zap.Int("offset", offset),
		zap.Int("count", len(page.Transfers)),
		zap.Int("total", page.Total))
	return page, nil
}

func (w wireTransfer) toEntity() entity.Transfer {
	return entity.Transfer{
		ID:              w.ID,
		TransactionHash: w.TransactionHash,
		From:            w.FromAddress.toEntity(),
		To:              w.ToAddress.toEntity(),
		TokenAddress:    w.TokenAddress,
		TokenName:       w.TokenName,
		TokenSymbol:     w.TokenSymbol,
		TokenDecimals:   w.TokenDecimals,
		Timestamp:       w.BlockTimestamp,
		BlockNumber:     w.BlockNumber,
		USDValue:        w.HistoricalUSD,
		Chain:           w.Chain,
	}
}

func (w wireAddress) toEntity() entity.Endpoint {
	ep := entity.Endpoint{Address: w.Address, Chain: w.Chain}
	if w.ArkhamEntity != nil {
		ep.Entity = &entity.KnownEntity{ID: w.ArkhamEntity.ID, Name: w.ArkhamEntity.Name, Type: w.ArkhamEntity.Type}
	}
	if w.ArkhamLabel != nil {
		ep.Label = &entity.AddressLabel{Name: w.ArkhamLabel.Name, Address: w.ArkhamLabel.Address, ChainType: w.ArkhamLabel.ChainType}
	}
	return ep
}

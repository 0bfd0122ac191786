package sources

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"onchain-intel/internal/domain/entity"
	"onchain-intel/internal/domain/service"
	"onchain-intel/internal/infrastructure/config"
	"onchain-intel/internal/infrastructure/logger"
)

type walletTagsRequest struct {
	WalletAddresses []string `json:"walletAddresses"`
	Chain           string   `json:"chain"`
}

type walletTagsResponse struct {
	ReqID string `json:"reqId"`
	Code  int    `json:"code"`
	Msg   string `json:"msg"`
	Data  struct {
		Chain      string              `json:"chain"`
		WalletTags []entity.WalletTags `json:"walletTags"`
	} `json:"data"`
}

// TagClient queries the wallet tag service
type TagClient struct {
	endpoint string
	chain    string
	client   *jsonClient
	logger   *logger.Logger
}

var _ service.TagSource = (*TagClient)(nil)

// NewTagClient creates a tag source client
func NewTagClient(cfg *config.SourcesConfig, hc httpDoer, logger *logger.Logger) *TagClient {
	log := logger.WithComponent("tag-source")
	return &TagClient{
		endpoint: cfg.TagURL,
		chain:    cfg.Chain,
		client:   newJSONClient("tag source", hc, cfg.MaxRetries, cfg.RetryDelay, log),
		logger:   log,
	}
}

// LookupTags returns the tags of address. An unknown address yields an empty tag list.
func (c *TagClient) LookupTags(ctx context.Context, address string) (*entity.WalletTags, error) {
	found, err := c.LookupBatch(ctx, []string{address})
	if err != nil {
		return nil, err
	}

	for _, wt := range found {
		if strings.EqualFold(wt.Address, address) {
			c.logger.Debug("Tags found",
				zap.String("address", address),
				zap.Int("tag_count", len(wt.Tags)))
			out := wt
			out.Address = address
			return &out, nil
		}
	}
	return &entity.WalletTags{Address: address}, nil
}

// LookupBatch returns the tags of several addresses in one request
func (c *TagClient) LookupBatch(ctx context.Context, addresses []string) ([]entity.WalletTags, error) {
	var resp walletTagsResponse
	req := walletTagsRequest{WalletAddresses: addresses, Chain: c.chain}
	if err := c.client.post(ctx, c.endpoint, req, &resp); err != nil {
		return nil, err
	}
	if resp.Code != 0 {
		return nil, &entity.TransportError{Source: "tag source", Message: resp.Msg}
	}
	return resp.Data.WalletTags, nil
}

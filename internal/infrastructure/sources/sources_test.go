package sources

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"onchain-intel/internal/domain/entity"
	"onchain-intel/internal/infrastructure/config"
	"onchain-intel/internal/infrastructure/logger"
)

const testAddr = "0xf977814e90da44bfa03b6295a0616a897441acec"

func testConfig(url string) *config.SourcesConfig {
	return &config.SourcesConfig{
		TagURL:      url,
		StatsURL:    url,
		TransferURL: url,
		Chain:       "bsc",
		MaxRetries:  2,
		RetryDelay:  time.Millisecond,
		MinUSD:      0.1,
	}
}

func TestTagClientLookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var req walletTagsRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "bsc", req.Chain)
		assert.Equal(t, []string{"0xF977814E90DA44BFA03B6295A0616A897441ACEC"}, req.WalletAddresses)

		_, _ = w.Write([]byte(`{"code":0,"msg":"ok","data":{"chain":"bsc","walletTags":[
			{"address":"` + testAddr + `","count":15,"tags":[{"tagName":"币安","category":99,"count":13},{"tagName":"PEPE项目方","category":99,"count":2}]}
		]}}`))
	}))
	defer srv.Close()

	c := NewTagClient(testConfig(srv.URL), srv.Client(), logger.NewNopLogger())
	tags, err := c.LookupTags(context.Background(), "0xF977814E90DA44BFA03B6295A0616A897441ACEC")
	require.NoError(t, err)
	require.Len(t, tags.Tags, 2)
	assert.Equal(t, "币安", tags.Tags[0].TagName)
	assert.Equal(t, int64(13), tags.Tags[0].Count)
}

func TestTagClientEmptyAndError(t *testing.T) {
	var mode atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if mode.Load() == 0 {
			_, _ = w.Write([]byte(`{"code":0,"data":{"chain":"bsc","walletTags":[]}}`))
			return
		}
		_, _ = w.Write([]byte(`{"code":1001,"msg":"rate limited"}`))
	}))
	defer srv.Close()

	c := NewTagClient(testConfig(srv.URL), srv.Client(), logger.NewNopLogger())
	tags, err := c.LookupTags(context.Background(), testAddr)
	require.NoError(t, err)
	assert.Empty(t, tags.Tags)

	mode.Store(1)
	_, err = c.LookupTags(context.Background(), testAddr)
	var te *entity.TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "rate limited", te.Message)
}

func TestClientRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"code":0,"data":{"walletTags":[]}}`))
	}))
	defer srv.Close()

	c := NewTagClient(testConfig(srv.URL), srv.Client(), logger.NewNopLogger())
	_, err := c.LookupTags(context.Background(), testAddr)
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClientDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad wallet", http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewStatsClient(testConfig(srv.URL), srv.Client(), logger.NewNopLogger())
	_, err := c.FetchStats(context.Background(), testAddr)
	var te *entity.TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, http.StatusBadRequest, te.StatusCode)
	assert.Equal(t, int32(1), calls.Load())
}

func TestStatsClientMapsFragment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "bsc", r.URL.Query().Get("chain"))
		assert.Equal(t, testAddr, r.URL.Query().Get("wallet"))
		assert.Equal(t, "7D", r.URL.Query().Get("duration"))
		_, _ = w.Write([]byte(`{"code":0,"description":"","data":{
			"balance":3.5,"pnl_7d":0.12,"total_profit":1000,"winrate_7d":0.66,
			"buy_times_7d":4,"buy_volume_30d":100,"sell_volume_30d":50,"last_active_timestamp":1721433600}}`))
	}))
	defer srv.Close()

	c := NewStatsClient(testConfig(srv.URL), srv.Client(), logger.NewNopLogger())
	frag, err := c.FetchStats(context.Background(), testAddr)
	require.NoError(t, err)

	assert.Equal(t, 0.12, frag[entity.StatPnl7d].Float())
	assert.Equal(t, 1000.0, frag[entity.StatRealizedProfit].Float())
	assert.Equal(t, 0.66, frag[entity.StatWinRate].Float())
	assert.Equal(t, 150.0, frag[entity.StatTotalVolume].Float())
	assert.Equal(t, "3.5", frag[entity.StatBalance].String())
	assert.True(t, frag[entity.StatBalance].IsText)
	_, hasFollowers := frag[entity.StatFollowersCount]
	assert.False(t, hasFollowers)
}

func TestStatsClientNonZeroCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code":500,"description":"wallet not indexed"}`))
	}))
	defer srv.Close()

	c := NewStatsClient(testConfig(srv.URL), srv.Client(), logger.NewNopLogger())
	_, err := c.FetchStats(context.Background(), testAddr)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wallet not indexed")
}

func TestTransferClientPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/transfers", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "16", q.Get("limit"))
		assert.Equal(t, "32", q.Get("offset"))
		assert.Equal(t, "desc", q.Get("sortDir"))
		assert.Equal(t, "0.1", q.Get("usdGte"))
		assert.Equal(t, testAddr, q.Get("base"))
		assert.Equal(t, "secret", r.Header.Get("API-Key"))
		_, _ = w.Write([]byte(`{"count":40,"transfers":[{
			"id":"t1","blockTimestamp":"2024-07-20T00:00:00Z","blockNumber":100,"transactionHash":"0xabc",
			"fromAddress":{"address":"0x1111111111111111111111111111111111111111","chain":"bsc",
				"arkhamEntity":{"name":"Tornado Cash","id":"tornado","type":"mixer"}},
			"toAddress":{"address":"` + testAddr + `","chain":"bsc","arkhamLabel":{"name":"Hot Wallet","address":"x","chainType":"bsc"}},
			"tokenSymbol":"USDT","tokenDecimals":18,"historicalUSD":12.5,"chain":"bsc"}]}`))
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.TransferKey = "secret"
	c := NewTransferClient(cfg, srv.Client(), logger.NewNopLogger())
	page, err := c.ListTransfers(context.Background(), testAddr, 32, 16)
	require.NoError(t, err)

	assert.Equal(t, 40, page.Total)
	require.Len(t, page.Transfers, 1)
	tx := page.Transfers[0]
	assert.Equal(t, "0xabc", tx.TransactionHash)
	assert.Equal(t, 12.5, tx.USDValue)
	require.NotNil(t, tx.From.Entity)
	assert.Equal(t, "mixer", tx.From.Entity.Type)
	require.NotNil(t, tx.To.Label)
	assert.Equal(t, "Hot Wallet", tx.To.Label.Name)
	assert.Nil(t, tx.To.Entity)
	assert.True(t, page.HasMore())
}

func TestSimulatedTransfersStable(t *testing.T) {
	s := NewSimulatedTransfers(time.Unix(1721989723, 0))
	a, err := s.ListTransfers(context.Background(), testAddr, 0, 16)
	require.NoError(t, err)
	b, err := s.ListTransfers(context.Background(), testAddr, 0, 16)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a.Transfers, 16)
	assert.Equal(t, simulatedTransferCount, a.Total)

	last, err := s.ListTransfers(context.Background(), testAddr, 120, 16)
	require.NoError(t, err)
	assert.Len(t, last.Transfers, 4)

	for _, tx := range a.Transfers {
		assert.True(t, tx.From.Address == testAddr || tx.To.Address == testAddr)
	}
}

type stubStats struct {
	name     string
	fragment entity.StatsFragment
	err      error
}

func (s stubStats) Name() string { return s.name }

func (s stubStats) FetchStats(context.Context, string) (entity.StatsFragment, error) {
	return s.fragment, s.err
}

func TestMultiStatsSource(t *testing.T) {
	market := stubStats{name: "debot", fragment: entity.StatsFragment{
		entity.StatWinRate:    entity.Num(0.7),
		entity.StatBnbBalance: entity.Text("1.0000"),
	}}
	chain := stubStats{name: "rpc", fragment: entity.StatsFragment{
		entity.StatBnbBalance: entity.Text("2.5000"),
		entity.StatIsContract: entity.Num(0),
	}}
	down := stubStats{name: "down", err: errors.New("unreachable")}

	m := NewMultiStatsSource(logger.NewNopLogger(), market, down, chain)
	assert.Equal(t, "debot+down+rpc", m.Name())

	fragment, err := m.FetchStats(context.Background(), "0x00000000000000000000000000000000000000aa")
	var partial *entity.PartialResultError
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, []entity.SourceFailure{{Source: "down", Message: "unreachable"}}, partial.Failures)
	assert.Equal(t, 0.7, fragment[entity.StatWinRate].Float())
	assert.Equal(t, "2.5000", fragment[entity.StatBnbBalance].String())
	assert.Len(t, fragment, 3)

	_, err = NewMultiStatsSource(logger.NewNopLogger(), down).FetchStats(context.Background(), "0x00000000000000000000000000000000000000aa")
	assert.EqualError(t, err, "unreachable")

	fragment, err = NewMultiStatsSource(logger.NewNopLogger(), market, chain).FetchStats(context.Background(), "0x00000000000000000000000000000000000000aa")
	require.NoError(t, err)
	assert.Len(t, fragment, 3)
}

package entity

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// StatKey names one metric of the statistics vocabulary
type StatKey string

// Profit and volume
const (
	StatBuy                StatKey = "buy"
	StatBuy1d              StatKey = "buy_1d"
	StatBuy7d              StatKey = "buy_7d"
	StatBuy30d             StatKey = "buy_30d"
	StatSell               StatKey = "sell"
	StatSell1d             StatKey = "sell_1d"
	StatSell7d             StatKey = "sell_7d"
	StatSell30d            StatKey = "sell_30d"
	StatPnl                StatKey = "pnl"
	StatPnl1d              StatKey = "pnl_1d"
	StatPnl7d              StatKey = "pnl_7d"
	StatPnl30d             StatKey = "pnl_30d"
	StatAllPnl             StatKey = "all_pnl"
	StatRealizedProfit     StatKey = "realized_profit"
	StatRealizedProfit1d   StatKey = "realized_profit_1d"
	StatRealizedProfit7d   StatKey = "realized_profit_7d"
	StatRealizedProfit30d  StatKey = "realized_profit_30d"
	StatUnrealizedProfit   StatKey = "unrealized_profit"
	StatUnrealizedPnl      StatKey = "unrealized_pnl"
	StatTotalProfit        StatKey = "total_profit"
	StatTotalProfitPnl     StatKey = "total_profit_pnl"
	StatTotalVolume        StatKey = "total_volume"
	StatTotalValue         StatKey = "total_value"
	StatWinRate            StatKey = "winrate"
	StatTokenSoldAvgProfit StatKey = "token_sold_avg_profit"
	StatHistoryBoughtCost  StatKey = "history_bought_cost"
	StatTokenAvgCost       StatKey = "token_avg_cost"
	StatGasCost            StatKey = "gas_cost"
)

// Balances
const (
	StatBalance    StatKey = "balance"
	StatEthBalance StatKey = "eth_balance"
	StatSolBalance StatKey = "sol_balance"
	StatTrxBalance StatKey = "trx_balance"
	StatBnbBalance StatKey = "bnb_balance"
)

// Trade outcome distribution
const (
	StatTokenNum          StatKey = "token_num"
	StatProfitNum         StatKey = "profit_num"
	StatPnlLtMinusDot5Num StatKey = "pnl_lt_minus_dot5_num"
	StatPnlMinusDot50xNum StatKey = "pnl_minus_dot5_0x_num"
	StatPnlLt2xNum        StatKey = "pnl_lt_2x_num"
	StatPnl2x5xNum        StatKey = "pnl_2x_5x_num"
	StatPnlGt5xNum        StatKey = "pnl_gt_5x_num"
)

// Risk sub-metrics
const (
	StatRiskTokenActive        StatKey = "risk.token_active"
	StatRiskTokenHoneypot      StatKey = "risk.token_honeypot"
	StatRiskTokenHoneypotRatio StatKey = "risk.token_honeypot_ratio"
	StatRiskNoBuyHold          StatKey = "risk.no_buy_hold"
	StatRiskNoBuyHoldRatio     StatKey = "risk.no_buy_hold_ratio"
	StatRiskSellPassBuy        StatKey = "risk.sell_pass_buy"
	StatRiskSellPassBuyRatio   StatKey = "risk.sell_pass_buy_ratio"
	StatRiskFastTx             StatKey = "risk.fast_tx"
	StatRiskFastTxRatio        StatKey = "risk.fast_tx_ratio"
)

// Activity, identity and social
const (
	StatLastActiveTimestamp StatKey = "last_active_timestamp"
	StatAvgHoldingPeriod    StatKey = "avg_holding_period"
	StatUpdatedAt           StatKey = "updated_at"
	StatFollowCount         StatKey = "follow_count"
	StatRemarkCount         StatKey = "remark_count"
	StatFollowersCount      StatKey = "followers_count"
	StatCreatorCreatedCount StatKey = "creator_created_count"
	StatIsContract          StatKey = "is_contract"
	StatName                StatKey = "name"
	StatENS                 StatKey = "ens"
	StatAvatar              StatKey = "avatar"
	StatTwitterName         StatKey = "twitter_name"
	StatTwitterUsername     StatKey = "twitter_username"
)

var textKeys = map[StatKey]bool{
	StatBalance:         true,
	StatEthBalance:      true,
	StatSolBalance:      true,
	StatTrxBalance:      true,
	StatBnbBalance:      true,
	StatName:            true,
	StatENS:             true,
	StatAvatar:          true,
	StatTwitterName:     true,
	StatTwitterUsername: true,
}

// StatKeys is the complete metric vocabulary, in display order
var StatKeys = []StatKey{
	StatBuy, StatBuy1d, StatBuy7d, StatBuy30d,
	StatSell, StatSell1d, StatSell7d, StatSell30d,
	StatPnl, StatPnl1d, StatPnl7d, StatPnl30d, StatAllPnl,
	StatRealizedProfit, StatRealizedProfit1d, StatRealizedProfit7d, StatRealizedProfit30d,
	StatUnrealizedProfit, StatUnrealizedPnl, StatTotalProfit, StatTotalProfitPnl,
	StatTotalVolume, StatTotalValue, StatWinRate, StatTokenSoldAvgProfit,
	StatHistoryBoughtCost, StatTokenAvgCost, StatGasCost,
	StatBalance, StatEthBalance, StatSolBalance, StatTrxBalance, StatBnbBalance,
	StatTokenNum, StatProfitNum, StatPnlLtMinusDot5Num, StatPnlMinusDot50xNum,
	StatPnlLt2xNum, StatPnl2x5xNum, StatPnlGt5xNum,
	StatRiskTokenActive, StatRiskTokenHoneypot, StatRiskTokenHoneypotRatio,
	StatRiskNoBuyHold, StatRiskNoBuyHoldRatio, StatRiskSellPassBuy,
	StatRiskSellPassBuyRatio, StatRiskFastTx, StatRiskFastTxRatio,
	StatLastActiveTimestamp, StatAvgHoldingPeriod, StatUpdatedAt,
	StatFollowCount, StatRemarkCount, StatFollowersCount, StatCreatorCreatedCount,
	StatIsContract, StatName, StatENS, StatAvatar, StatTwitterName, StatTwitterUsername,
}

var knownKeys = func() map[StatKey]bool {
	m := make(map[StatKey]bool, len(StatKeys))
	for _, k := range StatKeys {
		m[k] = true
	}
	return m
}()

// IsKnown reports whether the key belongs to the vocabulary
func (k StatKey) IsKnown() bool {
	return knownKeys[k]
}

// IsText reports whether the key holds a string metric
func (k StatKey) IsText() bool {
	return textKeys[k]
}

// StatValue is a numeric or string metric value
type StatValue struct {
	Number float64
	Text   string
	IsText bool
}

// Num builds a numeric value
func Num(v float64) StatValue {
	return StatValue{Number: v}
}

// Text builds a string value
func Text(s string) StatValue {
	return StatValue{Text: s, IsText: true}
}

// Float returns the numeric form of the value; text values are parsed when possible
func (v StatValue) Float() float64 {
	if !v.IsText {
		return v.Number
	}
	f, err := strconv.ParseFloat(v.Text, 64)
	if err != nil {
		return 0
	}
	return f
}

// String returns the display form of the value
func (v StatValue) String() string {
	if v.IsText {
		return v.Text
	}
	return strconv.FormatFloat(v.Number, 'f', -1, 64)
}

// MarshalJSON encodes text values as JSON strings and numbers as JSON numbers
func (v StatValue) MarshalJSON() ([]byte, error) {
	if v.IsText {
		return json.Marshal(v.Text)
	}
	return json.Marshal(v.Number)
}

// UnmarshalJSON accepts a JSON string, number or boolean
func (v *StatValue) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch x := raw.(type) {
	case string:
		*v = Text(x)
	case float64:
		*v = Num(x)
	case bool:
		if x {
			*v = Num(1)
		} else {
			*v = Num(0)
		}
	case nil:
		*v = Num(0)
	default:
		return fmt.Errorf("unsupported stat value: %s", string(data))
	}
	return nil
}

// Stats is the full statistics set of an address record.
// Every key of StatKeys is always present.
type Stats map[StatKey]StatValue

// StatsFragment is a partial statistics set from one data source
type StatsFragment map[StatKey]StatValue

// Get returns the value for key, or the zero value
func (s Stats) Get(key StatKey) StatValue {
	return s[key]
}

// Float returns the numeric value for key
func (s Stats) Float(key StatKey) float64 {
	return s[key].Float()
}

// TextOf returns the string value for key
func (s Stats) TextOf(key StatKey) string {
	return s[key].String()
}

// Clone returns a copy of the stats map
func (s Stats) Clone() Stats {
	out := make(Stats, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Missing returns the vocabulary keys absent from the set
func (s Stats) Missing() []StatKey {
	var missing []StatKey
	for _, k := range StatKeys {
		if _, ok := s[k]; !ok {
			missing = append(missing, k)
		}
	}
	return missing
}

// Keys returns the fragment keys in vocabulary order, followed by unknown keys
func (f StatsFragment) Keys() []StatKey {
	keys := make([]StatKey, 0, len(f))
	for _, k := range StatKeys {
		if _, ok := f[k]; ok {
			keys = append(keys, k)
		}
	}
	for k := range f {
		if !k.IsKnown() {
			keys = append(keys, k)
		}
	}
	return keys
}

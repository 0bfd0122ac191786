package service

import (
	"encoding/binary"
	"math"
	"math/rand"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/crypto"

	"onchain-intel/internal/domain/entity"
)

// MergeStats returns a new statistics set with every known fragment key overwritten.
// Keys absent from the fragment keep their prior value. Unknown keys are ignored.
// Neither input is mutated.
func MergeStats(existing entity.Stats, fragment entity.StatsFragment) entity.Stats {
	merged := existing.Clone()
	for key, value := range fragment {
		if !key.IsKnown() {
			continue
		}
		merged[key] = value
	}
	return merged
}

// CompleteStats fills every missing vocabulary key of stats from the address defaults
func CompleteStats(address string, stats entity.Stats) entity.Stats {
	if len(stats.Missing()) == 0 {
		return stats.Clone()
	}
	defaults := DefaultStats(address, time.Now())
	for k, v := range stats {
		defaults[k] = v
	}
	return defaults
}

// DefaultStats seeds every vocabulary key with a plausible value.
// Values are derived from the keccak hash of the lower-cased address, so the same
// address always yields the same numbers; timestamps are relative to now.
func DefaultStats(address string, now time.Time) entity.Stats {
	canonical := entity.CanonicalAddress(address)
	seed := crypto.Keccak256([]byte(canonical))
	rng := rand.New(rand.NewSource(int64(binary.BigEndian.Uint64(seed[:8]))))
	between := func(min, max float64) float64 {
		return rng.Float64()*(max-min) + min
	}
	whole := func(min, max float64) float64 {
		return math.Floor(between(min, max))
	}
	fixed := func(min, max float64) entity.StatValue {
		return entity.Text(strconv.FormatFloat(between(min, max), 'f', 4, 64))
	}

	realized := between(-50000, 200000)
	volume := between(100000, 50000000)
	winrate := between(0.4, 0.95)
	followers := whole(100, 50000)

	isContract := 0.0
	if canonical == "0x000000000000000000000000000000000000dead" {
		isContract = 1
	}

	s := entity.Stats{
		entity.StatBuy:                    entity.Num(between(10000, 500000)),
		entity.StatBuy1d:                  entity.Num(between(1000, 50000)),
		entity.StatBuy7d:                  entity.Num(between(5000, 200000)),
		entity.StatBuy30d:                 entity.Num(between(10000, 500000)),
		entity.StatSell:                   entity.Num(between(10000, 500000)),
		entity.StatSell1d:                 entity.Num(between(1000, 50000)),
		entity.StatSell7d:                 entity.Num(between(5000, 200000)),
		entity.StatSell30d:                entity.Num(between(10000, 500000)),
		entity.StatPnl:                    entity.Num(between(-0.1, 0.5)),
		entity.StatPnl1d:                  entity.Num(between(-0.05, 0.05)),
		entity.StatPnl7d:                  entity.Num(between(-0.1, 0.2)),
		entity.StatPnl30d:                 entity.Num(between(-0.1, 0.5)),
		entity.StatAllPnl:                 entity.Num(between(-0.1, 0.5)),
		entity.StatRealizedProfit:         entity.Num(realized),
		entity.StatRealizedProfit1d:       entity.Num(realized * between(-0.1, 0.1)),
		entity.StatRealizedProfit7d:       entity.Num(realized * between(0.1, 0.5)),
		entity.StatRealizedProfit30d:      entity.Num(realized * between(0.2, 1)),
		entity.StatUnrealizedProfit:       entity.Num(between(-10000, 10000)),
		entity.StatUnrealizedPnl:          entity.Num(between(-0.01, 0.01)),
		entity.StatTotalProfit:            entity.Num(realized + between(-5000, 5000)),
		entity.StatTotalProfitPnl:         entity.Num(winrate * between(0.01, 0.05)),
		entity.StatBalance:                fixed(1, 100),
		entity.StatEthBalance:             fixed(1, 100),
		entity.StatSolBalance:             fixed(0, 50),
		entity.StatTrxBalance:             fixed(0, 1000),
		entity.StatBnbBalance:             fixed(0, 20),
		entity.StatTotalValue:             entity.Num(between(1000, 100000)),
		entity.StatWinRate:                entity.Num(winrate),
		entity.StatTokenSoldAvgProfit:     entity.Num(between(-100, 1000)),
		entity.StatHistoryBoughtCost:      entity.Num(between(100000, 10000000)),
		entity.StatTokenAvgCost:           entity.Num(between(100, 50000)),
		entity.StatTokenNum:               entity.Num(whole(10, 500)),
		entity.StatProfitNum:              entity.Num(math.Floor(winrate * between(10, 500))),
		entity.StatPnlLtMinusDot5Num:      entity.Num(whole(0, 50)),
		entity.StatPnlMinusDot50xNum:      entity.Num(whole(10, 150)),
		entity.StatPnlLt2xNum:             entity.Num(whole(20, 300)),
		entity.StatPnl2x5xNum:             entity.Num(whole(0, 20)),
		entity.StatPnlGt5xNum:             entity.Num(whole(0, 10)),
		entity.StatGasCost:                entity.Num(between(10, 1000)),
		entity.StatRiskTokenActive:        entity.Num(whole(10, 500)),
		entity.StatRiskTokenHoneypot:      entity.Num(whole(0, 5)),
		entity.StatRiskTokenHoneypotRatio: entity.Num(between(0, 0.05)),
		entity.StatRiskNoBuyHold:          entity.Num(whole(0, 10)),
		entity.StatRiskNoBuyHoldRatio:     entity.Num(between(0, 0.1)),
		entity.StatRiskSellPassBuy:        entity.Num(whole(0, 5)),
		entity.StatRiskSellPassBuyRatio:   entity.Num(between(0, 0.05)),
		entity.StatRiskFastTx:             entity.Num(whole(10, 400)),
		entity.StatRiskFastTxRatio:        entity.Num(between(0.2, 0.98)),
		entity.StatLastActiveTimestamp:    entity.Num(float64(now.Unix()) - whole(3600, 86400*30)),
		entity.StatAvgHoldingPeriod:       entity.Num(between(3600, 86400*7)),
		entity.StatUpdatedAt:              entity.Num(float64(now.Unix())),
		entity.StatFollowCount:            entity.Num(whole(0, 100)),
		entity.StatRemarkCount:            entity.Num(whole(0, 50)),
		entity.StatFollowersCount:         entity.Num(followers),
		entity.StatCreatorCreatedCount:    entity.Num(0),
		entity.StatIsContract:             entity.Num(isContract),
		entity.StatTotalVolume:            entity.Num(volume),
		entity.StatName:                   entity.Text(""),
		entity.StatENS:                    entity.Text(""),
		entity.StatAvatar:                 entity.Text("https://picsum.photos/seed/" + address + "/64/64"),
		entity.StatTwitterName:            entity.Text("N/A"),
		entity.StatTwitterUsername:        entity.Text("N/A"),
	}
	return s
}

package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"onchain-intel/internal/domain/entity"
)

const sampleAddress = "0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045"

func TestDefaultStatsIsComplete(t *testing.T) {
	stats := DefaultStats(sampleAddress, time.Unix(1721989723, 0))
	assert.Empty(t, stats.Missing())
	for _, key := range entity.StatKeys {
		assert.Equal(t, key.IsText(), stats[key].IsText, key)
	}
}

func TestDefaultStatsDeterministic(t *testing.T) {
	now := time.Unix(1721989723, 0)
	a := DefaultStats(sampleAddress, now)
	b := DefaultStats("0xd8da6bf26964af9d7eed9e03e53415d37aa96045", now)
	c := DefaultStats("0x1ab4973a48dc892cd9971ece8e01dcc7688f8f23", now)

	assert.Equal(t, a[entity.StatRealizedProfit], b[entity.StatRealizedProfit])
	assert.NotEqual(t, a[entity.StatRealizedProfit], c[entity.StatRealizedProfit])

	winrate := a.Float(entity.StatWinRate)
	assert.GreaterOrEqual(t, winrate, 0.4)
	assert.Less(t, winrate, 0.95)
}

func TestMergeStatsNonDestructive(t *testing.T) {
	existing := DefaultStats(sampleAddress, time.Unix(1721989723, 0))
	fragment := entity.StatsFragment{
		entity.StatPnl7d:   entity.Num(0.42),
		entity.StatBalance: entity.Text("12.5"),
	}

	merged := MergeStats(existing, fragment)

	assert.Equal(t, 0.42, merged.Float(entity.StatPnl7d))
	assert.Equal(t, "12.5", merged.TextOf(entity.StatBalance))
	for _, key := range entity.StatKeys {
		if _, ok := fragment[key]; ok {
			continue
		}
		assert.Equal(t, existing[key], merged[key], key)
	}
	assert.NotEqual(t, 0.42, existing.Float(entity.StatPnl7d), "input must not be mutated")
}

func TestMergeStatsIdempotent(t *testing.T) {
	existing := DefaultStats(sampleAddress, time.Unix(1721989723, 0))
	fragment := entity.StatsFragment{
		entity.StatWinRate:     entity.Num(0.61),
		entity.StatTotalVolume: entity.Num(1234),
	}

	once := MergeStats(existing, fragment)
	twice := MergeStats(once, fragment)
	assert.Equal(t, once, twice)
}

func TestMergeStatsIgnoresUnknownKeys(t *testing.T) {
	existing := DefaultStats(sampleAddress, time.Unix(1721989723, 0))
	merged := MergeStats(existing, entity.StatsFragment{"bogus_metric": entity.Num(1)})
	_, ok := merged["bogus_metric"]
	assert.False(t, ok)
	assert.Len(t, merged, len(entity.StatKeys))
}

func TestCompleteStatsKeepsProvidedValues(t *testing.T) {
	partial := entity.Stats{entity.StatName: entity.Text("Vitalik Buterin")}
	full := CompleteStats(sampleAddress, partial)
	require.Empty(t, full.Missing())
	assert.Equal(t, "Vitalik Buterin", full.TextOf(entity.StatName))
}

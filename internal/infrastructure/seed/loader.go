package seed

import (
	_ "embed"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"onchain-intel/internal/domain/entity"
	"onchain-intel/internal/domain/repository"
	"onchain-intel/internal/domain/service"
	"onchain-intel/internal/infrastructure/logger"
)

//go:embed wallet_tags.json
var builtinWalletTags []byte

const historyDays = 30

// walletTagsFile is the tag source export format
type walletTagsFile struct {
	Code int `json:"code"`
	Data struct {
		Chain      string              `json:"chain"`
		WalletTags []entity.WalletTags `json:"walletTags"`
	} `json:"data"`
}

// Loader fills an address store with the seed dataset
type Loader struct {
	store  repository.AddressRepository
	now    func() time.Time
	logger *logger.Logger
}

// NewLoader creates a seed loader
func NewLoader(store repository.AddressRepository, logger *logger.Logger) *Loader {
	return &Loader{
		store:  store,
		now:    time.Now,
		logger: logger.WithComponent("seed-loader"),
	}
}

// Load reads the wallet tags file at path, or the built-in dataset when path is empty,
// and upserts the resulting records. It returns the number of records stored.
func (l *Loader) Load(path string) (int, error) {
	data := builtinWalletTags
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return 0, fmt.Errorf("failed to read seed file: %w", err)
		}
		data = raw
	}

	wallets, err := Parse(data)
	if err != nil {
		return 0, err
	}

	stored := 0
	for _, rec := range Records(wallets, l.now()) {
		if err := l.store.Upsert(rec); err != nil {
			l.logger.Warn("Skipping seed record",
				zap.String("id", rec.ID),
				zap.String("address", rec.Canonical()),
				zap.Error(err))
			continue
		}
		stored++
	}

	l.logger.Info("Seed dataset loaded",
		zap.String("path", path),
		zap.Int("record_count", stored))
	return stored, nil
}

// Parse decodes a wallet tags export
func Parse(data []byte) ([]entity.WalletTags, error) {
	var file walletTagsFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}
	if file.Code != 0 {
		return nil, fmt.Errorf("seed file has error code %d: %w", file.Code, entity.ErrInvalidInput)
	}
	return file.Data.WalletTags, nil
}

// Records builds the seed records: a well-known founder profile followed by one record per
// wallet, with ids "1", "2", ... in file order. Generated values depend only on the inputs.
func Records(wallets []entity.WalletTags, now time.Time) []*entity.AddressRecord {
	known := make([]string, 0, len(wallets))
	for _, w := range wallets {
		known = append(known, w.Address)
	}

	records := make([]*entity.AddressRecord, 0, len(wallets)+1)
	records = append(records, vitalikRecord(now, known))

	for i, w := range wallets {
		canonical := entity.CanonicalAddress(w.Address)
		rng := rngFor(canonical)

		rec := &entity.AddressRecord{
			ID:           fmt.Sprintf("%d", i+1),
			Address:      w.Address,
			Stats:        service.DefaultStats(canonical, now),
			OfficialTags: make([]string, 0, len(w.Tags)),
		}

		rec.CommunityTags = append(rec.CommunityTags,
			seededTag(rng, now, known, entity.Tag{
				ID:          fmt.Sprintf("ct-%d-1", i),
				Text:        "Community Insight",
				Category:    entity.TagCategoryGeneral,
				Upvotes:     uint64(5 + rng.Intn(45)),
				Downvotes:   uint64(rng.Intn(10)),
				SubmittedBy: "0x1a1a1a1a1a1a1a1a1a1a1a1a1a1a1a1a1a1a1a1a",
			}),
			seededTag(rng, now, known, entity.Tag{
				ID:          fmt.Sprintf("ct-%d-2", i),
				Text:        "Needs Review",
				Category:    entity.TagCategoryWarning,
				Upvotes:     uint64(rng.Intn(15)),
				Downvotes:   uint64(rng.Intn(5)),
				SubmittedBy: "0x2b2b2b2b2b2b2b2b2b2b2b2b2b2b2b2b2b2b2b2b",
			}),
		)

		for _, src := range w.Tags {
			rec.OfficialTags = append(rec.OfficialTags, src.TagName)

			tag := service.NormalizeTag(src.TagName)
			tag.ID = "memeradar-" + w.Address + "-" + src.TagName
			tag.IsOfficial = false
			tag.SubmittedBy = entity.SubmitterMemeRadar
			if src.Count > 0 {
				tag.Upvotes = uint64(src.Count)
				tag.Downvotes = uint64(rng.Int63n(src.Count/10 + 1))
			}
			rec.CommunityTags = append(rec.CommunityTags, seededTag(rng, now, known, tag))
		}

		records = append(records, rec)
	}
	return records
}

func vitalikRecord(now time.Time, known []string) *entity.AddressRecord {
	const address = "0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045"

	stats := service.DefaultStats(address, now)
	for k, v := range map[entity.StatKey]entity.StatValue{
		entity.StatBuy:                    entity.Num(51052),
		entity.StatSell:                   entity.Num(51066),
		entity.StatPnl:                    entity.Num(0.00313),
		entity.StatAllPnl:                 entity.Num(0.0032),
		entity.StatRealizedProfit:         entity.Num(25000000),
		entity.StatUnrealizedProfit:       entity.Num(-1.07),
		entity.StatTotalProfit:            entity.Num(24999998.93),
		entity.StatTotalProfitPnl:         entity.Num(0.0032),
		entity.StatBalance:                entity.Text("3250.7"),
		entity.StatEthBalance:             entity.Text("3250.7"),
		entity.StatSolBalance:             entity.Text("0"),
		entity.StatTrxBalance:             entity.Text("0"),
		entity.StatBnbBalance:             entity.Text("0"),
		entity.StatTotalValue:             entity.Num(9752100),
		entity.StatWinRate:                entity.Num(0.85),
		entity.StatTokenSoldAvgProfit:     entity.Num(150000),
		entity.StatHistoryBoughtCost:      entity.Num(50000000),
		entity.StatTokenAvgCost:           entity.Num(100000),
		entity.StatTokenNum:               entity.Num(150),
		entity.StatProfitNum:              entity.Num(127),
		entity.StatPnlLtMinusDot5Num:      entity.Num(2),
		entity.StatPnlMinusDot50xNum:      entity.Num(20),
		entity.StatPnlLt2xNum:             entity.Num(100),
		entity.StatPnl2x5xNum:             entity.Num(25),
		entity.StatPnlGt5xNum:             entity.Num(3),
		entity.StatGasCost:                entity.Num(15000),
		entity.StatName:                   entity.Text("Vitalik Buterin"),
		entity.StatENS:                    entity.Text("vitalik.eth"),
		entity.StatTwitterName:            entity.Text("Vitalik Buterin"),
		entity.StatTwitterUsername:        entity.Text("VitalikButerin"),
		entity.StatFollowersCount:         entity.Num(5000000),
		entity.StatIsContract:             entity.Num(0),
		entity.StatLastActiveTimestamp:    entity.Num(1721433600),
		entity.StatRiskTokenActive:        entity.Num(150),
		entity.StatRiskTokenHoneypot:      entity.Num(0),
		entity.StatRiskTokenHoneypotRatio: entity.Num(0),
		entity.StatRiskNoBuyHold:          entity.Num(5),
		entity.StatRiskNoBuyHoldRatio:     entity.Num(0.03),
		entity.StatRiskSellPassBuy:        entity.Num(1),
		entity.StatRiskSellPassBuyRatio:   entity.Num(0.006),
		entity.StatRiskFastTx:             entity.Num(10),
		entity.StatRiskFastTxRatio:        entity.Num(0.06),
		entity.StatAvgHoldingPeriod:       entity.Num(31536000),
		entity.StatUpdatedAt:              entity.Num(1721989723),
		entity.StatFollowCount:            entity.Num(1),
		entity.StatRemarkCount:            entity.Num(999),
		entity.StatTotalVolume:            entity.Num(150000000),
		entity.StatCreatorCreatedCount:    entity.Num(1),
		entity.StatBuy1d:                  entity.Num(0),
		entity.StatBuy7d:                  entity.Num(10000),
		entity.StatBuy30d:                 entity.Num(50000),
		entity.StatSell1d:                 entity.Num(0),
		entity.StatSell7d:                 entity.Num(25000),
		entity.StatSell30d:                entity.Num(100000),
		entity.StatPnl1d:                  entity.Num(0),
		entity.StatPnl7d:                  entity.Num(0.01),
		entity.StatPnl30d:                 entity.Num(0.05),
		entity.StatRealizedProfit1d:       entity.Num(0),
		entity.StatRealizedProfit7d:       entity.Num(1000),
		entity.StatRealizedProfit30d:      entity.Num(5000),
		entity.StatUnrealizedPnl:          entity.Num(0),
	} {
		stats[k] = v
	}

	rng := rngFor(entity.CanonicalAddress(address))
	return &entity.AddressRecord{
		ID:           "vitalik",
		Address:      address,
		Stats:        stats,
		OfficialTags: []string{"Ethereum Founder", "OG"},
		CommunityTags: []entity.Tag{
			seededTag(rng, now, known, entity.Tag{
				ID:          "ct-vitalik-1",
				Text:        "Public Figure",
				Category:    entity.TagCategoryIdentity,
				Upvotes:     999,
				Downvotes:   10,
				SubmittedBy: "0x1ab4973a48dc892cd9971ece8e01dcc7688f8f23",
			}),
		},
	}
}

// seededTag attaches generated voters and a 30 day vote history to tag
func seededTag(rng *rand.Rand, now time.Time, known []string, tag entity.Tag) entity.Tag {
	tag.Voters = generateVoters(rng, tag.Upvotes, known)
	tag.Ballots = make(map[string]entity.VoteDirection, len(tag.Voters))
	for _, v := range tag.Voters {
		tag.Ballots[entity.CanonicalAddress(v)] = entity.VoteUp
	}
	tag.VoteHistory = generateVoteHistory(rng, now, tag.Upvotes)
	return tag
}

func generateVoters(rng *rand.Rand, upvotes uint64, known []string) []string {
	count := min(int(upvotes), 3+rng.Intn(5))
	seen := make(map[string]bool, count)
	voters := make([]string, 0, count)
	for len(voters) < count {
		var v string
		if rng.Float64() < 0.7 && len(known) > len(voters) {
			v = known[rng.Intn(len(known))]
		} else {
			buf := make([]byte, 20)
			rng.Read(buf)
			v = "0x" + hex.EncodeToString(buf)
		}
		key := entity.CanonicalAddress(v)
		if seen[key] {
			continue
		}
		seen[key] = true
		voters = append(voters, v)
	}
	return voters
}

func generateVoteHistory(rng *rand.Rand, now time.Time, total uint64) []entity.VotePoint {
	current := float64(total) - float64(5+rng.Intn(45))
	if current < 0 {
		current = 0
	}
	history := make([]entity.VotePoint, 0, historyDays)
	for i := historyDays - 1; i >= 0; i-- {
		current += rng.Float64() * 3
		if current > float64(total) {
			current = float64(total)
		}
		history = append(history, entity.VotePoint{
			Date:  now.UTC().AddDate(0, 0, -i).Format("2006-01-02"),
			Count: int64(current),
		})
	}
	history[len(history)-1].Count = int64(total)
	return history
}

func rngFor(canonical string) *rand.Rand {
	seed := crypto.Keccak256([]byte("seed:" + canonical))
	return rand.New(rand.NewSource(int64(binary.BigEndian.Uint64(seed[:8]))))
}

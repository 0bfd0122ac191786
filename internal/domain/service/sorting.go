package service

import (
	"sort"

	"onchain-intel/internal/domain/entity"
	"onchain-intel/internal/domain/repository"
)

// SortRecords orders records by the statistic behind key. The input slice is not modified.
func SortRecords(records []*entity.AddressRecord, key repository.SortKey, dir repository.SortDirection) []*entity.AddressRecord {
	stat := key.StatKey()
	out := append([]*entity.AddressRecord(nil), records...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Stats.Float(stat), out[j].Stats.Float(stat)
		if dir == repository.SortAsc {
			return a < b
		}
		return a > b
	})
	return out
}

// NextSort returns the ordering after selecting key: selecting the active key flips the
// direction, any other key starts descending
func NextSort(activeKey repository.SortKey, activeDir repository.SortDirection, selected repository.SortKey) (repository.SortKey, repository.SortDirection) {
	if selected == activeKey {
		if activeDir == repository.SortDesc {
			return selected, repository.SortAsc
		}
		return selected, repository.SortDesc
	}
	return selected, repository.SortDesc
}

package repository

import (
	"onchain-intel/internal/domain/entity"
)

// SortKey selects the statistic used to order address records
type SortKey string

const (
	SortByInfluence  SortKey = "influence"
	SortByProfit     SortKey = "profit"
	SortByVolume     SortKey = "volume"
	SortByLastActive SortKey = "lastActive"
	SortByWinRate    SortKey = "winRate"
)

// StatKey returns the statistic backing the sort key; unknown keys fall back to influence
func (k SortKey) StatKey() entity.StatKey {
	switch k {
	case SortByProfit:
		return entity.StatRealizedProfit
	case SortByVolume:
		return entity.StatTotalVolume
	case SortByLastActive:
		return entity.StatLastActiveTimestamp
	case SortByWinRate:
		return entity.StatWinRate
	default:
		return entity.StatFollowersCount
	}
}

// SortDirection is ascending or descending
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// AddressRepository defines the interface for address record storage.
// Readers always receive copies; mutations replace whole records.
type AddressRepository interface {
	// List returns all records in insertion order
	List() []*entity.AddressRecord

	// Get retrieves a record by id
	Get(id string) (*entity.AddressRecord, error)

	// GetByAddress retrieves a record by address, ignoring case
	GetByAddress(address string) (*entity.AddressRecord, error)

	// Upsert inserts a record or replaces the one with the same id
	Upsert(record *entity.AddressRecord) error

	// Update applies fn to a copy of the record and publishes the result
	Update(id string, fn func(*entity.AddressRecord) error) (*entity.AddressRecord, error)

	// Filter returns the records matching the predicate
	Filter(predicate func(*entity.AddressRecord) bool) []*entity.AddressRecord

	// Search returns the records matching a free-text term
	Search(term string) []*entity.AddressRecord

	// Version returns the snapshot version, incremented on every mutation
	Version() uint64
}

package memory

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"onchain-intel/internal/domain/entity"
	"onchain-intel/internal/domain/repository"
	"onchain-intel/internal/domain/service"
	"onchain-intel/internal/infrastructure/logger"
)

// snapshot is an immutable view of the store. Records inside are never modified
// after publication; writers build a new snapshot and swap it in.
type snapshot struct {
	version uint64
	order   []string
	byID    map[string]*entity.AddressRecord
	byAddr  map[string]string
}

// AddressStore is a versioned copy-on-write address record store.
// Readers never block and never observe a partially applied mutation.
type AddressStore struct {
	current atomic.Pointer[snapshot]
	writeMu sync.Mutex
	now     func() time.Time
	logger  *logger.Logger
}

// NewAddressStore creates an empty store
func NewAddressStore(logger *logger.Logger) *AddressStore {
	s := &AddressStore{
		now:    time.Now,
		logger: logger.WithComponent("address-store"),
	}
	s.current.Store(&snapshot{
		byID:   map[string]*entity.AddressRecord{},
		byAddr: map[string]string{},
	})
	return s
}

var _ repository.AddressRepository = (*AddressStore)(nil)

// List returns copies of all records in insertion order
func (s *AddressStore) List() []*entity.AddressRecord {
	snap := s.current.Load()
	out := make([]*entity.AddressRecord, 0, len(snap.order))
	for _, id := range snap.order {
		out = append(out, snap.byID[id].Clone())
	}
	return out
}

// Get retrieves a record by id
func (s *AddressStore) Get(id string) (*entity.AddressRecord, error) {
	rec, ok := s.current.Load().byID[id]
	if !ok {
		return nil, fmt.Errorf("address record %s: %w", id, entity.ErrNotFound)
	}
	return rec.Clone(), nil
}

// GetByAddress retrieves a record by address, ignoring case
func (s *AddressStore) GetByAddress(address string) (*entity.AddressRecord, error) {
	snap := s.current.Load()
	id, ok := snap.byAddr[entity.CanonicalAddress(address)]
	if !ok {
		return nil, fmt.Errorf("address %s: %w", address, entity.ErrNotFound)
	}
	return snap.byID[id].Clone(), nil
}

// Upsert inserts a record or replaces the record with the same id.
// The address of an existing record cannot change. Missing stats keys are filled
// from the address defaults.
func (s *AddressStore) Upsert(record *entity.AddressRecord) error {
	if record == nil || record.ID == "" || record.Address == "" {
		return fmt.Errorf("record requires id and address: %w", entity.ErrInvalidInput)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	snap := s.current.Load()
	canonical := record.Canonical()

	if existing, ok := snap.byID[record.ID]; ok && existing.Canonical() != canonical {
		return fmt.Errorf("record %s: %w", record.ID, entity.ErrAddressImmutable)
	}
	if owner, ok := snap.byAddr[canonical]; ok && owner != record.ID {
		return fmt.Errorf("address %s already tracked by %s: %w", record.Address, owner, entity.ErrInvalidInput)
	}

	next := s.fork(snap)
	stored := record.Clone()
	stored.Stats = service.CompleteStats(canonical, stored.Stats)
	now := s.now()
	if existing, ok := snap.byID[record.ID]; ok {
		stored.CreatedAt = existing.CreatedAt
	} else {
		next.order = append(next.order, record.ID)
		if stored.CreatedAt.IsZero() {
			stored.CreatedAt = now
		}
	}
	stored.UpdatedAt = now
	next.byID[record.ID] = stored
	next.byAddr[canonical] = record.ID
	s.current.Store(next)

	s.logger.Debug("Record upserted",
		zap.String("id", record.ID),
		zap.String("address", canonical),
		zap.Uint64("version", next.version))
	return nil
}

// Update applies fn to a copy of the record and publishes the result.
// If fn returns an error nothing is published.
func (s *AddressStore) Update(id string, fn func(*entity.AddressRecord) error) (*entity.AddressRecord, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	snap := s.current.Load()
	existing, ok := snap.byID[id]
	if !ok {
		return nil, fmt.Errorf("address record %s: %w", id, entity.ErrNotFound)
	}

	draft := existing.Clone()
	if err := fn(draft); err != nil {
		return nil, err
	}
	if draft.ID != existing.ID || draft.Canonical() != existing.Canonical() {
		return nil, fmt.Errorf("record %s: %w", id, entity.ErrAddressImmutable)
	}
	if missing := draft.Stats.Missing(); len(missing) > 0 {
		return nil, fmt.Errorf("record %s is missing %d stats keys: %w", id, len(missing), entity.ErrInvalidInput)
	}

	draft.CreatedAt = existing.CreatedAt
	draft.UpdatedAt = s.now()

	next := s.fork(snap)
	next.byID[id] = draft
	s.current.Store(next)

	return draft.Clone(), nil
}

// Filter returns copies of the records matching the predicate
func (s *AddressStore) Filter(predicate func(*entity.AddressRecord) bool) []*entity.AddressRecord {
	var out []*entity.AddressRecord
	for _, rec := range s.List() {
		if predicate(rec) {
			out = append(out, rec)
		}
	}
	return out
}

// Search returns the records whose address, ENS, name or tags contain term, ignoring case.
// An empty term matches every record.
func (s *AddressStore) Search(term string) []*entity.AddressRecord {
	needle := strings.ToLower(strings.TrimSpace(term))
	if needle == "" {
		return s.List()
	}
	return s.Filter(func(rec *entity.AddressRecord) bool {
		return MatchesTerm(rec, needle)
	})
}

// Version returns the current snapshot version
func (s *AddressStore) Version() uint64 {
	return s.current.Load().version
}

// fork copies the index maps of snap into a new, unpublished snapshot
func (s *AddressStore) fork(snap *snapshot) *snapshot {
	next := &snapshot{
		version: snap.version + 1,
		order:   append([]string(nil), snap.order...),
		byID:    make(map[string]*entity.AddressRecord, len(snap.byID)+1),
		byAddr:  make(map[string]string, len(snap.byAddr)+1),
	}
	for k, v := range snap.byID {
		next.byID[k] = v
	}
	for k, v := range snap.byAddr {
		next.byAddr[k] = v
	}
	return next
}

// MatchesTerm reports whether a lower-cased term occurs in the searchable fields of rec
func MatchesTerm(rec *entity.AddressRecord, term string) bool {
	if strings.Contains(strings.ToLower(rec.Address), term) {
		return true
	}
	for _, key := range []entity.StatKey{entity.StatENS, entity.StatName} {
		v := strings.ToLower(rec.Stats.TextOf(key))
		if v != "" && v != "n/a" && strings.Contains(v, term) {
			return true
		}
	}
	for _, raw := range rec.OfficialTags {
		if strings.Contains(strings.ToLower(raw), term) {
			return true
		}
	}
	for _, tag := range rec.CommunityTags {
		if strings.Contains(strings.ToLower(tag.Text), term) {
			return true
		}
	}
	return false
}

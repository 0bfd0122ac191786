package memory

import (
	"container/list"
	"context"
	"sync"
	"time"

	"onchain-intel/internal/domain/repository"
)

const defaultSummaryCacheSize = 1024

type summaryEntry struct {
	key       string
	value     string
	expiresAt time.Time
}

// SummaryCache is a bounded in-process TTL cache with LRU eviction
type SummaryCache struct {
	mu      sync.Mutex
	max     int
	ttl     time.Duration
	prefix  string
	entries map[string]*list.Element
	ordered *list.List
	now     func() time.Time
}

var _ repository.SummaryCache = (*SummaryCache)(nil)

// NewSummaryCache creates a cache holding at most max entries for ttl each
func NewSummaryCache(max int, ttl time.Duration, prefix string) *SummaryCache {
	if max <= 0 {
		max = defaultSummaryCacheSize
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SummaryCache{
		max:     max,
		ttl:     ttl,
		prefix:  prefix,
		entries: make(map[string]*list.Element, max),
		ordered: list.New(),
		now:     time.Now,
	}
}

// Get returns the cached value; expired entries read as a miss
func (c *SummaryCache) Get(_ context.Context, key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[c.prefix+key]
	if !ok {
		return "", false, nil
	}
	e := el.Value.(*summaryEntry)
	if !c.now().Before(e.expiresAt) {
		c.removeElement(el)
		return "", false, nil
	}
	c.ordered.MoveToFront(el)
	return e.value, true, nil
}

// Set stores value under key with a fresh TTL
func (c *SummaryCache) Set(_ context.Context, key, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	full := c.prefix + key
	if el, ok := c.entries[full]; ok {
		e := el.Value.(*summaryEntry)
		e.value = value
		e.expiresAt = now.Add(c.ttl)
		c.ordered.MoveToFront(el)
		return nil
	}
	el := c.ordered.PushFront(&summaryEntry{key: full, value: value, expiresAt: now.Add(c.ttl)})
	c.entries[full] = el
	c.evict(now)
	return nil
}

func (c *SummaryCache) evict(now time.Time) {
	for el := c.ordered.Back(); el != nil; {
		prev := el.Prev()
		if now.Before(el.Value.(*summaryEntry).expiresAt) {
			break
		}
		c.removeElement(el)
		el = prev
	}
	for c.ordered.Len() > c.max {
		c.removeElement(c.ordered.Back())
	}
}

func (c *SummaryCache) removeElement(el *list.Element) {
	delete(c.entries, el.Value.(*summaryEntry).key)
	c.ordered.Remove(el)
}

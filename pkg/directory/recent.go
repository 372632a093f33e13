package directory

import "sync"

// RecentCache tracks which entities were used last. Access order is a
// plain monotonic counter; wall-clock time is irrelevant here, only
// relative recency.
type RecentCache struct {
	mu         sync.Mutex
	access     map[string]int64
	counter    int64
	maxEntries int
}

// NewRecentCache creates a cache bounded to maxEntries IDs.
func NewRecentCache(maxEntries int) *RecentCache {
	return &RecentCache{
		access:     make(map[string]int64, maxEntries),
		maxEntries: maxEntries,
	}
}

// Touch marks an ID as most recently used, evicting the oldest entry when
// the cache is full.
func (rc *RecentCache) Touch(id string) {
	if id == "" {
		return
	}
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if _, ok := rc.access[id]; !ok && len(rc.access) >= rc.maxEntries {
		rc.evictOldestLocked()
	}
	rc.counter++
	rc.access[id] = rc.counter
}

// Recent returns up to limit IDs, most recently touched first.
func (rc *RecentCache) Recent(limit int) []string {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	type entry struct {
		id string
		at int64
	}
	entries := make([]entry, 0, len(rc.access))
	for id, at := range rc.access {
		entries = append(entries, entry{id: id, at: at})
	}
	// insertion sort by access descending; the cache is small
	for i := 1; i < len(entries); i++ {
		for j := i; j > 0 && entries[j].at > entries[j-1].at; j-- {
			entries[j], entries[j-1] = entries[j-1], entries[j]
		}
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.id
	}
	return out
}

// Stats reports cache usage counters.
func (rc *RecentCache) Stats() map[string]int {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return map[string]int{
		"recentEntries": len(rc.access),
		"recentMax":     rc.maxEntries,
		"recentTouches": int(rc.counter),
	}
}

func (rc *RecentCache) evictOldestLocked() {
	var oldestID string
	var oldestAt int64 = 9223372036854775807

	for id, at := range rc.access {
		if at < oldestAt {
			oldestAt = at
			oldestID = id
		}
	}
	if oldestID != "" {
		delete(rc.access, oldestID)
	}
}

package utils

// SeenFilter provides dedup of candidate IDs while merging results from
// several category indexes
type SeenFilter struct {
	seen map[string]bool
}

// NewSeenFilter creates a new filter instance
func NewSeenFilter() *SeenFilter {
	return &SeenFilter{seen: make(map[string]bool)}
}

// ShouldInclude checks if an ID should be included in results (not a duplicate)
// Returns true on first sight, false afterwards
func (f *SeenFilter) ShouldInclude(id string) bool {
	if f.seen[id] {
		return false
	}
	f.seen[id] = true
	return true
}

// CreateRankList creates a slice of ranks based on position.
// The rank starts at 1 for the first item and increments for subsequent items.
// Useful for ranking items that are already sorted.
func CreateRankList(count int) []uint16 {
	if count <= 0 {
		return []uint16{}
	}
	ranks := make([]uint16, count)
	for i := 0; i < count; i++ {
		ranks[i] = uint16(i + 1)
	}
	return ranks
}

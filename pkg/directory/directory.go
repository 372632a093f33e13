// Package directory is the builtin entity search backend: an in-memory,
// trie-indexed directory of stakeholders, deals, and accounts that
// implements the mention.Resolver contract with case-insensitive prefix
// matching and confidence ranking.
package directory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/tchap/go-patricia/v2/patricia"

	"github.com/microwavekid/mentionserve/internal/utils"
	"github.com/microwavekid/mentionserve/pkg/mention"
)

const (
	defaultMaxResults = 8
	defaultRecentSize = 64
)

// Directory indexes entities per category in patricia tries keyed by
// lowercased name. Multiple entities may share a name, so trie items hold
// ID slices rather than single entries.
type Directory struct {
	mu         sync.RWMutex
	tries      map[mention.Category]*patricia.Trie
	entities   map[string]mention.Entity
	recent     *RecentCache
	maxResults int
}

// Option tweaks directory construction.
type Option func(*Directory)

// WithMaxResults caps how many candidates Resolve returns.
func WithMaxResults(n int) Option {
	return func(d *Directory) {
		if n > 0 {
			d.maxResults = n
		}
	}
}

// WithRecentSize bounds the recency cache backing empty-query defaults.
func WithRecentSize(n int) Option {
	return func(d *Directory) {
		if n > 0 {
			d.recent = NewRecentCache(n)
		}
	}
}

// New creates an empty directory.
func New(opts ...Option) *Directory {
	d := &Directory{
		tries:      make(map[mention.Category]*patricia.Trie),
		entities:   make(map[string]mention.Entity),
		recent:     NewRecentCache(defaultRecentSize),
		maxResults: defaultMaxResults,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Add indexes an entity. An empty ID gets a generated one; the stored
// entity is returned. Re-adding an existing ID replaces the old entry and
// its index key.
func (d *Directory) Add(e mention.Entity) (mention.Entity, error) {
	if strings.TrimSpace(e.Name) == "" {
		return mention.Entity{}, fmt.Errorf("entity name is required")
	}
	if e.Type == mention.CategoryAny {
		return mention.Entity{}, fmt.Errorf("entity %q needs a category", e.Name)
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if old, ok := d.entities[e.ID]; ok {
		d.removeFromTrieLocked(old)
	}
	d.entities[e.ID] = e

	trie, ok := d.tries[e.Type]
	if !ok {
		trie = patricia.NewTrie()
		d.tries[e.Type] = trie
	}
	key := patricia.Prefix(strings.ToLower(e.Name))
	if item := trie.Get(key); item != nil {
		ids := item.([]string)
		trie.Set(key, append(ids, e.ID))
	} else {
		trie.Insert(key, []string{e.ID})
	}
	return e, nil
}

func (d *Directory) removeFromTrieLocked(e mention.Entity) {
	trie, ok := d.tries[e.Type]
	if !ok {
		return
	}
	key := patricia.Prefix(strings.ToLower(e.Name))
	item := trie.Get(key)
	if item == nil {
		return
	}
	ids := item.([]string)
	kept := ids[:0]
	for _, id := range ids {
		if id != e.ID {
			kept = append(kept, id)
		}
	}
	if len(kept) == 0 {
		trie.Delete(key)
	} else {
		trie.Set(key, kept)
	}
}

// Get returns the entity with the given ID.
func (d *Directory) Get(id string) (mention.Entity, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	e, ok := d.entities[id]
	return e, ok
}

// Len returns the number of indexed entities.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.entities)
}

// Touch records that an entity was just used (committed into a document),
// promoting it in the empty-query default set.
func (d *Directory) Touch(id string) {
	d.recent.Touch(id)
}

// Stats returns counters about the directory, in the shape logging and the
// server's directory ops expect.
func (d *Directory) Stats() map[string]int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	stats := map[string]int{
		"entities":   len(d.entities),
		"categories": len(d.tries),
		"maxResults": d.maxResults,
	}
	for k, v := range d.recent.Stats() {
		stats[k] = v
	}
	return stats
}

// Resolve implements mention.Resolver. Prefix matches come back ordered by
// confidence descending with name as tiebreaker; an empty query yields the
// recently used set padded with the highest-confidence entities. Garbage
// queries (digits only, symbols) resolve to nothing rather than erroring.
func (d *Directory) Resolve(ctx context.Context, query string, category mention.Category) ([]mention.Entity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	query = strings.TrimSpace(query)
	if !utils.IsValidQuery(query) {
		return nil, nil
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	if query == "" {
		return d.defaultsLocked(category), nil
	}

	lowered := strings.ToLower(query)
	filter := utils.NewSeenFilter()
	var out []mention.Entity
	for cat, trie := range d.tries {
		if category != mention.CategoryAny && cat != category {
			continue
		}
		err := trie.VisitSubtree(patricia.Prefix(lowered), func(p patricia.Prefix, item patricia.Item) error {
			for _, id := range item.([]string) {
				if !filter.ShouldInclude(id) {
					continue
				}
				if e, ok := d.entities[id]; ok {
					out = append(out, e)
				}
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("visiting %s index: %w", cat, err)
		}
	}

	sortByRelevance(out)
	if len(out) == 0 {
		out = d.substringFallbackLocked(query, category)
	}
	if len(out) > d.maxResults {
		out = out[:d.maxResults]
	}
	return out, nil
}

// substringFallbackLocked runs when no name starts with the query:
// case-insensitive substring search over the full set, so "Martinez" still
// finds "Sarah Martinez". Matches where a word of the name starts with the
// query rank above mid-word hits.
func (d *Directory) substringFallbackLocked(query string, category mention.Category) []mention.Entity {
	var wordPrefixed, contained []mention.Entity
	for _, e := range d.entities {
		if category != mention.CategoryAny && e.Type != category {
			continue
		}
		if !utils.StringContainsIgnoreCase(e.Name, query) {
			continue
		}
		if wordPrefixMatch(e.Name, query) {
			wordPrefixed = append(wordPrefixed, e)
		} else {
			contained = append(contained, e)
		}
	}
	sortByRelevance(wordPrefixed)
	sortByRelevance(contained)
	return append(wordPrefixed, contained...)
}

func wordPrefixMatch(name, query string) bool {
	for _, word := range strings.FieldsFunc(name, utils.IsSeparator) {
		if utils.HasPrefixIgnoreCase(word, query) {
			return true
		}
	}
	return false
}

// defaultsLocked builds the empty-query candidate set: most recently used
// first, padded with top-confidence entities until the limit.
func (d *Directory) defaultsLocked(category mention.Category) []mention.Entity {
	filter := utils.NewSeenFilter()
	var out []mention.Entity

	for _, id := range d.recent.Recent(d.maxResults * 2) {
		e, ok := d.entities[id]
		if !ok {
			continue
		}
		if category != mention.CategoryAny && e.Type != category {
			continue
		}
		if filter.ShouldInclude(id) {
			out = append(out, e)
		}
		if len(out) >= d.maxResults {
			return out
		}
	}

	var rest []mention.Entity
	for id, e := range d.entities {
		if category != mention.CategoryAny && e.Type != category {
			continue
		}
		if filter.ShouldInclude(id) {
			rest = append(rest, e)
		}
	}
	sortByRelevance(rest)
	for _, e := range rest {
		out = append(out, e)
		if len(out) >= d.maxResults {
			break
		}
	}
	return out
}

// sortByRelevance orders candidates confidence-first. Name and ID
// tiebreakers keep the output stable across map iteration order.
func sortByRelevance(entities []mention.Entity) {
	sort.Slice(entities, func(i, j int) bool {
		if entities[i].Confidence != entities[j].Confidence {
			return entities[i].Confidence > entities[j].Confidence
		}
		if entities[i].Name != entities[j].Name {
			return entities[i].Name < entities[j].Name
		}
		return entities[i].ID < entities[j].ID
	})
}

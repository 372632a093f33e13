// Package mention is the core engine for entity-mention autocomplete:
// trigger scanning, candidate resolution with debounce and staleness rules,
// highlight span projection, ghost text, and mention commit/unlink.
package mention

// Category classifies an entity and ties it to one trigger character.
type Category string

const (
	CategoryStakeholder Category = "stakeholder"
	CategoryDeal        Category = "deal"
	CategoryAccount     Category = "account"

	// CategoryAny matches every category; used when no type filter is locked.
	CategoryAny Category = ""
)

// Entity is a resolved mention target. Confidence is display-only and plays
// no part in prefix matching. Attributes is an open bag of category-specific
// metadata (title, email, deal value) that the engine never inspects.
type Entity struct {
	ID         string
	Type       Category
	Name       string
	Confidence float64
	Attributes map[string]string
}

// TriggerSet maps trigger characters to categories. Iteration order is
// stable so span computation stays deterministic.
type TriggerSet struct {
	byRune     map[rune]Category
	byCategory map[Category]rune
	order      []rune
}

// NewTriggerSet builds a set from explicit pairs. Later duplicates of a rune
// or category overwrite earlier ones.
func NewTriggerSet(pairs map[rune]Category) TriggerSet {
	ts := TriggerSet{
		byRune:     make(map[rune]Category, len(pairs)),
		byCategory: make(map[Category]rune, len(pairs)),
	}
	// insertion in fixed rune order keeps behavior reproducible
	for _, r := range []rune{'@', '#', '+', '!', '$', '%', '&', '~', '^'} {
		if cat, ok := pairs[r]; ok {
			ts.put(r, cat)
		}
	}
	for r, cat := range pairs {
		if _, ok := ts.byRune[r]; !ok {
			ts.put(r, cat)
		}
	}
	return ts
}

func (ts *TriggerSet) put(r rune, cat Category) {
	if _, seen := ts.byRune[r]; !seen {
		ts.order = append(ts.order, r)
	}
	ts.byRune[r] = cat
	ts.byCategory[cat] = r
}

// DefaultTriggers returns the stock mapping: @ stakeholder, # deal, + account.
func DefaultTriggers() TriggerSet {
	return NewTriggerSet(map[rune]Category{
		'@': CategoryStakeholder,
		'#': CategoryDeal,
		'+': CategoryAccount,
	})
}

// IsTrigger reports whether r begins a mention.
func (ts TriggerSet) IsTrigger(r rune) bool {
	_, ok := ts.byRune[r]
	return ok
}

// Category returns the category locked by trigger r.
func (ts TriggerSet) Category(r rune) (Category, bool) {
	cat, ok := ts.byRune[r]
	return cat, ok
}

// TriggerFor returns the trigger character associated with cat.
func (ts TriggerSet) TriggerFor(cat Category) (rune, bool) {
	r, ok := ts.byCategory[cat]
	return r, ok
}

// Runes returns the trigger characters in stable order.
func (ts TriggerSet) Runes() []rune {
	out := make([]rune, len(ts.order))
	copy(out, ts.order)
	return out
}

// LinkedSet is the ordered collection of entities linked to one document.
// Adding an entity whose ID is already present is a no-op, so re-accepting
// the same mention never duplicates the link.
type LinkedSet struct {
	entities []Entity
	index    map[string]int
}

// NewLinkedSet creates a set seeded with the given entities, deduplicated
// by ID in order of first appearance.
func NewLinkedSet(seed ...Entity) *LinkedSet {
	ls := &LinkedSet{index: make(map[string]int)}
	for _, e := range seed {
		ls.Add(e)
	}
	return ls
}

// Add links e. Returns false when an entity with the same ID already exists;
// the existing entry is kept untouched.
func (ls *LinkedSet) Add(e Entity) bool {
	if e.ID == "" {
		return false
	}
	if _, ok := ls.index[e.ID]; ok {
		return false
	}
	ls.index[e.ID] = len(ls.entities)
	ls.entities = append(ls.entities, e)
	return true
}

// Remove unlinks the entity with the given ID. The document text is never
// touched by an unlink; the literal characters simply stop highlighting.
func (ls *LinkedSet) Remove(id string) bool {
	pos, ok := ls.index[id]
	if !ok {
		return false
	}
	ls.entities = append(ls.entities[:pos], ls.entities[pos+1:]...)
	delete(ls.index, id)
	for i := pos; i < len(ls.entities); i++ {
		ls.index[ls.entities[i].ID] = i
	}
	return true
}

// Contains reports whether an entity with the given ID is linked.
func (ls *LinkedSet) Contains(id string) bool {
	_, ok := ls.index[id]
	return ok
}

// Get returns the linked entity with the given ID.
func (ls *LinkedSet) Get(id string) (Entity, bool) {
	pos, ok := ls.index[id]
	if !ok {
		return Entity{}, false
	}
	return ls.entities[pos], true
}

// Entities returns a copy of the linked entities in link order.
func (ls *LinkedSet) Entities() []Entity {
	out := make([]Entity, len(ls.entities))
	copy(out, ls.entities)
	return out
}

// Len returns the number of linked entities.
func (ls *LinkedSet) Len() int {
	return len(ls.entities)
}

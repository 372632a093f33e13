package mention

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

const (
	defaultDebounce       = 100 * time.Millisecond
	defaultResolveTimeout = 5 * time.Second
	defaultMaxCandidates  = 8
)

// Options configures a Session. The zero value works: default triggers, a
// resolver that yields nothing, 100ms debounce, 5s resolve bound.
type Options struct {
	Triggers TriggerSet
	Resolver Resolver

	// Debounce is the quiet period after the last context change before a
	// resolve fires. ResolveTimeout bounds the resolver call itself; a
	// result arriving after a newer request is discarded regardless.
	Debounce       time.Duration
	ResolveTimeout time.Duration

	// MaxCandidates caps the applied candidate list. The resolver's own
	// ranking is authoritative; the session only truncates.
	MaxCandidates int

	// Scheduler drives the debounce. Nil means real timers.
	Scheduler Scheduler

	// OnChange fires after every committed mutation: typing, accept,
	// unlink. It never fires for ghost preview or candidate changes.
	OnChange func(text string, linked []Entity)

	// Disabled suppresses trigger scanning and commits.
	Disabled bool
}

// Session owns one document's editing state: text, caret, linked entities,
// the active trigger context, and the candidate list. All mutation happens
// under one mutex so the resolver goroutine and the input path never race;
// results apply last-request-wins via a monotonically increasing token.
type Session struct {
	mu       sync.Mutex
	triggers TriggerSet
	resolver Resolver
	timeout  time.Duration
	maxCands int
	onChange func(text string, linked []Entity)
	disabled bool

	text   string
	caret  int
	linked *LinkedSet

	active     TriggerContext
	hasActive  bool
	candidates []Entity

	debounce *Debouncer
	token    uint64
}

// NewSession creates a session with empty text and the given initial links.
func NewSession(opts Options, seed ...Entity) *Session {
	if len(opts.Triggers.order) == 0 {
		opts.Triggers = DefaultTriggers()
	}
	if opts.Resolver == nil {
		opts.Resolver = ResolverFunc(func(context.Context, string, Category) ([]Entity, error) {
			return nil, nil
		})
	}
	if opts.Debounce <= 0 {
		opts.Debounce = defaultDebounce
	}
	if opts.ResolveTimeout <= 0 {
		opts.ResolveTimeout = defaultResolveTimeout
	}
	if opts.MaxCandidates <= 0 {
		opts.MaxCandidates = defaultMaxCandidates
	}
	return &Session{
		triggers: opts.Triggers,
		resolver: opts.Resolver,
		timeout:  opts.ResolveTimeout,
		maxCands: opts.MaxCandidates,
		onChange: opts.OnChange,
		disabled: opts.Disabled,
		linked:   NewLinkedSet(seed...),
		debounce: NewDebouncer(opts.Debounce, opts.Scheduler),
	}
}

// SetText is the free-typing path: the host pushes the full buffer and the
// caret after every edit. The scan re-evaluates immediately; resolution is
// debounced.
func (s *Session) SetText(text string, caret int) {
	s.mu.Lock()
	s.text = text
	s.caret = clamp(caret, 0, len(text))
	s.rescanLocked()
	cb, linked := s.onChange, s.linked.Entities()
	s.mu.Unlock()

	if cb != nil {
		cb(text, linked)
	}
}

// MoveCaret repositions the caret without editing. Moving outside the
// mention span destroys the active context.
func (s *Session) MoveCaret(caret int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.caret = clamp(caret, 0, len(s.text))
	s.rescanLocked()
}

// AcceptTop commits the top candidate, the Tab-key path. Returns false when
// there is nothing to accept so the host can fall through to its default
// key behavior.
func (s *Session) AcceptTop() bool {
	s.mu.Lock()
	if s.disabled || !s.hasActive || len(s.candidates) == 0 {
		s.mu.Unlock()
		return false
	}
	top := s.candidates[0]
	return s.commitLocked(top)
}

// Accept commits a specific entity picked from a displayed list, regardless
// of its rank.
func (s *Session) Accept(e Entity) bool {
	s.mu.Lock()
	if s.disabled || !s.hasActive {
		s.mu.Unlock()
		return false
	}
	return s.commitLocked(e)
}

// commitLocked finishes a commit and releases the mutex. The change
// callback runs outside the lock so hosts can call back into the session.
func (s *Session) commitLocked(e Entity) bool {
	newText, newCaret, ok := Commit(s.text, s.active, e, s.linked)
	if !ok {
		s.clearActiveLocked()
		s.mu.Unlock()
		return false
	}
	s.text = newText
	s.caret = newCaret
	s.clearActiveLocked()
	cb, linked := s.onChange, s.linked.Entities()
	s.mu.Unlock()

	if cb != nil {
		cb(newText, linked)
	}
	return true
}

// Cancel clears the active context and candidates without touching the
// text, the Escape-key path.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearActiveLocked()
}

// Unlink removes the entity from the linked set. The literal characters
// remain in the text; they just stop rendering as an entity span.
func (s *Session) Unlink(id string) bool {
	s.mu.Lock()
	removed := s.linked.Remove(id)
	cb, text, linked := s.onChange, s.text, s.linked.Entities()
	s.mu.Unlock()

	if removed && cb != nil {
		cb(text, linked)
	}
	return removed
}

// SetDisabled toggles the engine. Disabling destroys any active context.
func (s *Session) SetDisabled(disabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disabled = disabled
	s.rescanLocked()
}

// Close cancels pending debounced work and invalidates in-flight resolves.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearActiveLocked()
}

// Text returns the current document text.
func (s *Session) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.text
}

// Caret returns the current caret position.
func (s *Session) Caret() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.caret
}

// Linked returns a copy of the linked entities in link order.
func (s *Session) Linked() []Entity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.linked.Entities()
}

// ActiveContext returns the current trigger context, if any.
func (s *Session) ActiveContext() (TriggerContext, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active, s.hasActive
}

// Candidates returns a copy of the applied candidate list in resolver order.
func (s *Session) Candidates() []Entity {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entity, len(s.candidates))
	copy(out, s.candidates)
	return out
}

// TopCandidate returns the best-ranked candidate, if any.
func (s *Session) TopCandidate() (Entity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.candidates) == 0 {
		return Entity{}, false
	}
	return s.candidates[0], true
}

// Ghost returns the inline completion preview for the top candidate, empty
// when the query is not a strict case-insensitive prefix of its name.
func (s *Session) Ghost() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasActive || len(s.candidates) == 0 {
		return ""
	}
	return GhostSuffix(strings.TrimSpace(s.active.Query), s.candidates[0].Name)
}

// Spans recomputes the highlight partition of the current text against the
// linked set. Pure projection, recomputed per call.
func (s *Session) Spans() []Span {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ComputeSpans(s.text, s.linked.Entities(), s.triggers)
}

// rescanLocked re-evaluates the trigger context after any text, caret, or
// disabled change. A genuinely new context schedules a debounced resolve; a
// vanished one cancels everything pending.
func (s *Session) rescanLocked() {
	if s.disabled {
		s.clearActiveLocked()
		return
	}
	tc, ok := Scan(s.text, s.caret, s.triggers)
	if !ok || !tc.Valid(s.text) {
		s.clearActiveLocked()
		return
	}
	if s.hasActive && tc == s.active {
		return
	}
	s.active = tc
	s.hasActive = true
	s.candidates = nil
	s.token++
	tok := s.token
	s.debounce.Trigger(func() { s.resolve(tok, tc) })
}

// clearActiveLocked destroys the active context and tosses any pending or
// in-flight resolution.
func (s *Session) clearActiveLocked() {
	s.active = TriggerContext{}
	s.hasActive = false
	s.candidates = nil
	s.token++
	s.debounce.Cancel()
}

// resolve runs off the input path once the debounce fires. The token is
// compared before and after the resolver call: only the newest request may
// apply its result, late arrivals are dropped on the floor.
func (s *Session) resolve(tok uint64, tc TriggerContext) {
	s.mu.Lock()
	if tok != s.token {
		s.mu.Unlock()
		return
	}
	resolver, timeout, limit := s.resolver, s.timeout, s.maxCands
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	cands, err := safeResolve(ctx, resolver, strings.TrimSpace(tc.Query), tc.Category)

	s.mu.Lock()
	defer s.mu.Unlock()
	if tok != s.token {
		log.Debugf("discarding stale resolve for %q", tc.Query)
		return
	}
	if err != nil {
		log.Errorf("resolve %q failed: %v", tc.Query, err)
		s.candidates = nil
		return
	}
	if len(cands) > limit {
		cands = cands[:limit]
	}
	s.candidates = cands
}

// safeResolve shields the keystroke path from a panicking resolver
// callback; a panic degrades to a logged resolver failure.
func safeResolve(ctx context.Context, r Resolver, query string, cat Category) (ents []Entity, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Errorf("resolver panic for %q: %v", query, rec)
			ents, err = nil, nil
		}
	}()
	return r.Resolve(ctx, query, cat)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

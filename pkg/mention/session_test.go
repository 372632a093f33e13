package mention

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/require"
)

func init() {
	log.SetLevel(log.FatalLevel)
}

// manualScheduler lets tests drive the debounce by hand instead of waiting
// on real timers.
type manualScheduler struct {
	mu    sync.Mutex
	tasks []*manualTask
}

type manualTask struct {
	fn        func()
	cancelled bool
}

func (m *manualScheduler) Schedule(d time.Duration, fn func()) CancelFunc {
	m.mu.Lock()
	defer m.mu.Unlock()
	task := &manualTask{fn: fn}
	m.tasks = append(m.tasks, task)
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		task.cancelled = true
	}
}

func (m *manualScheduler) take() []*manualTask {
	m.mu.Lock()
	defer m.mu.Unlock()
	pending := m.tasks
	m.tasks = nil
	return pending
}

// fireSync runs pending non-cancelled tasks on the calling goroutine.
func (m *manualScheduler) fireSync() int {
	ran := 0
	for _, task := range m.take() {
		if !task.cancelled {
			task.fn()
			ran++
		}
	}
	return ran
}

// fire runs pending non-cancelled tasks on their own goroutines, the way
// real timer callbacks arrive.
func (m *manualScheduler) fire() {
	for _, task := range m.take() {
		if !task.cancelled {
			go task.fn()
		}
	}
}

func staticResolver(ents ...Entity) Resolver {
	return ResolverFunc(func(context.Context, string, Category) ([]Entity, error) {
		return ents, nil
	})
}

func TestSessionDebounceCoalescesKeystrokes(t *testing.T) {
	ms := &manualScheduler{}
	var mu sync.Mutex
	var queries []string
	resolver := ResolverFunc(func(_ context.Context, q string, _ Category) ([]Entity, error) {
		mu.Lock()
		queries = append(queries, q)
		mu.Unlock()
		return []Entity{stakeholder("s1", "Sarah Martinez")}, nil
	})
	s := NewSession(Options{Resolver: resolver, Scheduler: ms})

	s.SetText("@S", 2)
	s.SetText("@Sa", 3)
	s.SetText("@Sar", 4)
	ran := ms.fireSync()

	require.Equal(t, 1, ran, "only the newest scheduled resolve should survive")
	require.Equal(t, []string{"Sar"}, queries)
	require.Len(t, s.Candidates(), 1)
}

func TestSessionAcceptTop(t *testing.T) {
	ms := &manualScheduler{}
	s := NewSession(Options{
		Resolver:  staticResolver(stakeholder("s1", "Sarah Martinez"), stakeholder("s2", "Sarah Kim")),
		Scheduler: ms,
	})

	s.SetText("met @Sar", 8)
	ms.fireSync()

	require.Equal(t, "ah Martinez", s.Ghost())
	require.True(t, s.AcceptTop())
	require.Equal(t, "met @Sarah Martinez", s.Text())
	require.Equal(t, 19, s.Caret())
	require.Len(t, s.Linked(), 1)

	_, active := s.ActiveContext()
	require.False(t, active, "commit must destroy the trigger context")
	require.Empty(t, s.Ghost())
	require.False(t, s.AcceptTop(), "nothing left to accept")
}

func TestSessionRelinkIsIdempotent(t *testing.T) {
	ms := &manualScheduler{}
	sarah := stakeholder("s1", "Sarah Martinez")
	s := NewSession(Options{Resolver: staticResolver(sarah), Scheduler: ms})

	s.SetText("met @Sar", 8)
	ms.fireSync()
	require.True(t, s.AcceptTop())

	text := s.Text() + " and @Sar"
	s.SetText(text, len(text))
	ms.fireSync()
	require.True(t, s.AcceptTop())

	require.Equal(t, "met @Sarah Martinez and @Sarah Martinez", s.Text())
	require.Len(t, s.Linked(), 1, "relinking the same entity must not duplicate it")
}

func TestSessionStaleResolveDiscarded(t *testing.T) {
	ms := &manualScheduler{}
	gates := map[string]chan struct{}{
		"old": make(chan struct{}),
		"new": make(chan struct{}),
	}
	resolver := ResolverFunc(func(_ context.Context, q string, _ Category) ([]Entity, error) {
		if gate, ok := gates[q]; ok {
			<-gate
		}
		return []Entity{{ID: q, Type: CategoryStakeholder, Name: q}}, nil
	})
	s := NewSession(Options{Resolver: resolver, Scheduler: ms})

	s.SetText("@old", 4)
	ms.fire()
	s.SetText("@new", 4)
	ms.fire()

	close(gates["new"])
	require.Eventually(t, func() bool {
		c := s.Candidates()
		return len(c) == 1 && c[0].ID == "new"
	}, time.Second, 5*time.Millisecond)

	close(gates["old"])
	require.Never(t, func() bool {
		c := s.Candidates()
		return len(c) != 1 || c[0].ID != "new"
	}, 150*time.Millisecond, 10*time.Millisecond, "stale result overwrote the newer one")
}

func TestSessionResolverFailureDegrades(t *testing.T) {
	ms := &manualScheduler{}
	fail := true
	resolver := ResolverFunc(func(context.Context, string, Category) ([]Entity, error) {
		if fail {
			return nil, errors.New("directory unavailable")
		}
		return []Entity{stakeholder("s1", "Sarah Martinez")}, nil
	})
	s := NewSession(Options{Resolver: resolver, Scheduler: ms})

	s.SetText("@Sar", 4)
	ms.fireSync()
	require.Empty(t, s.Candidates())
	require.Empty(t, s.Ghost())
	require.False(t, s.AcceptTop())

	// the session keeps working once the resolver recovers
	fail = false
	s.SetText("@Sara", 5)
	ms.fireSync()
	require.Len(t, s.Candidates(), 1)
}

func TestSessionResolverPanicRecovered(t *testing.T) {
	ms := &manualScheduler{}
	resolver := ResolverFunc(func(context.Context, string, Category) ([]Entity, error) {
		panic("resolver bug")
	})
	s := NewSession(Options{Resolver: resolver, Scheduler: ms})

	s.SetText("@Sar", 4)
	require.NotPanics(t, func() { ms.fireSync() })
	require.Empty(t, s.Candidates())
	require.Equal(t, "@Sar", s.Text(), "text must survive a resolver panic")
}

func TestSessionEmptyQueryStillResolves(t *testing.T) {
	ms := &manualScheduler{}
	var gotQuery string
	var gotCat Category
	resolver := ResolverFunc(func(_ context.Context, q string, cat Category) ([]Entity, error) {
		gotQuery, gotCat = q, cat
		return []Entity{{ID: "d1", Type: CategoryDeal, Name: "Acme Renewal FY26"}}, nil
	})
	s := NewSession(Options{Resolver: resolver, Scheduler: ms})

	s.SetText("#", 1)
	ms.fireSync()

	require.Equal(t, "", gotQuery, "bare trigger resolves with an empty query")
	require.Equal(t, CategoryDeal, gotCat)
	require.Len(t, s.Candidates(), 1)
}

func TestSessionCancelKeepsText(t *testing.T) {
	ms := &manualScheduler{}
	s := NewSession(Options{Resolver: staticResolver(stakeholder("s1", "Ana")), Scheduler: ms})

	s.SetText("hi @An", 6)
	ms.fireSync()
	require.NotEmpty(t, s.Candidates())

	s.Cancel()
	require.Equal(t, "hi @An", s.Text())
	require.Empty(t, s.Candidates())
	_, active := s.ActiveContext()
	require.False(t, active)
	require.False(t, s.AcceptTop())
}

func TestSessionCaretMoveDestroysContext(t *testing.T) {
	ms := &manualScheduler{}
	s := NewSession(Options{Resolver: staticResolver(stakeholder("s1", "Ana")), Scheduler: ms})

	s.SetText("hi @An", 6)
	_, active := s.ActiveContext()
	require.True(t, active)

	s.MoveCaret(2)
	_, active = s.ActiveContext()
	require.False(t, active)

	s.MoveCaret(6)
	tc, active := s.ActiveContext()
	require.True(t, active, "moving back inside the span reactivates the context")
	require.Equal(t, "An", tc.Query)
}

func TestSessionUnlinkKeepsText(t *testing.T) {
	ms := &manualScheduler{}
	sarah := stakeholder("s1", "Sarah Martinez")
	s := NewSession(Options{Resolver: staticResolver(sarah), Scheduler: ms})

	s.SetText("met @Sar", 8)
	ms.fireSync()
	require.True(t, s.AcceptTop())
	require.Len(t, s.Linked(), 1)

	require.True(t, s.Unlink("s1"))
	require.Equal(t, "met @Sarah Martinez", s.Text(), "unlink must not edit the text")
	require.Empty(t, s.Linked())
	require.False(t, s.Unlink("s1"), "second unlink is a no-op")

	for _, sp := range s.Spans() {
		require.False(t, sp.IsEntity, "unlinked mention still rendered as entity span")
	}
}

func TestSessionDisabled(t *testing.T) {
	ms := &manualScheduler{}
	s := NewSession(Options{
		Resolver:  staticResolver(stakeholder("s1", "Ana")),
		Scheduler: ms,
		Disabled:  true,
	})

	s.SetText("hi @An", 6)
	require.Equal(t, 0, ms.fireSync(), "disabled session must not schedule resolves")
	_, active := s.ActiveContext()
	require.False(t, active)
	require.False(t, s.AcceptTop())

	s.SetDisabled(false)
	s.MoveCaret(6)
	_, active = s.ActiveContext()
	require.True(t, active)
}

func TestSessionOnChangeContract(t *testing.T) {
	ms := &manualScheduler{}
	var calls []string
	s := NewSession(Options{
		Resolver:  staticResolver(stakeholder("s1", "Sarah Martinez")),
		Scheduler: ms,
		OnChange: func(text string, linked []Entity) {
			calls = append(calls, text)
		},
	})

	s.SetText("met @Sar", 8)
	require.Len(t, calls, 1)

	// candidate arrival is preview only, never a document change
	ms.fireSync()
	require.Len(t, calls, 1)

	require.True(t, s.AcceptTop())
	require.Len(t, calls, 2)
	require.Equal(t, "met @Sarah Martinez", calls[1])

	s.Unlink("s1")
	require.Len(t, calls, 3)
	s.Unlink("s1")
	require.Len(t, calls, 3, "failed unlink must not fire the callback")
}

func TestSessionMaxCandidatesTruncates(t *testing.T) {
	ms := &manualScheduler{}
	many := make([]Entity, 10)
	for i := range many {
		many[i] = Entity{ID: string(rune('a' + i)), Type: CategoryStakeholder, Name: "X"}
	}
	s := NewSession(Options{
		Resolver:      staticResolver(many...),
		Scheduler:     ms,
		MaxCandidates: 3,
	})

	s.SetText("@X", 2)
	ms.fireSync()
	require.Len(t, s.Candidates(), 3)
}

func TestSessionSeedLinks(t *testing.T) {
	s := NewSession(Options{}, stakeholder("s1", "Sarah Martinez"))
	s.SetText("note on @Sarah Martinez here", 0)

	var entitySpans int
	for _, sp := range s.Spans() {
		if sp.IsEntity {
			entitySpans++
		}
	}
	require.Equal(t, 1, entitySpans)
}

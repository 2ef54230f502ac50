package session_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aretw0/steve"
	"github.com/aretw0/steve/internal/testutils"
	"github.com/aretw0/steve/pkg/adapters/memory"
	"github.com/aretw0/steve/pkg/domain"
	"github.com/aretw0/steve/pkg/ports"
	"github.com/aretw0/steve/pkg/session"
	"github.com/aretw0/steve/pkg/turn"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var template = &domain.ConversationState{
	SteveState:          domain.StateDefaultStasis,
	ConversationSummary: "Steve is stuck on his art assignment about himself.",
}

// countingEngine advances the loop counter by one per turn and detects overlapping calls.
type countingEngine struct {
	active  atomic.Int32
	overlap atomic.Bool
	calls   atomic.Int32
}

func (e *countingEngine) RunTurn(ctx context.Context, current *domain.ConversationState, input string) domain.TurnResult {
	if e.active.Add(1) > 1 {
		e.overlap.Store(true)
	}
	defer e.active.Add(-1)
	e.calls.Add(1)

	time.Sleep(time.Millisecond) // Widen the race window

	next := current.Clone()
	next.LoopCount++
	return domain.TurnResult{
		NewState:    next,
		Dialogue:    "Yeah... " + input,
		VisualState: domain.VisualFor(next.SteveState),
		Outcome:     domain.OutcomeOK,
		Attempts:    1,
	}
}

// failingStore refuses to save.
type failingStore struct {
	*memory.Store
}

func (f failingStore) Save(ctx context.Context, state *domain.ConversationState) error {
	return fmt.Errorf("%w: disk full", domain.ErrPersistence)
}

// recordingLocker counts lock cycles.
type recordingLocker struct {
	mu       sync.Mutex
	held     bool
	locks    int
	unlocks  int
	failWith error
}

func (l *recordingLocker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	if l.failWith != nil {
		return nil, l.failWith
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held {
		return nil, errors.New("lock already held")
	}
	l.held = true
	l.locks++
	return func(ctx context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.held = false
		l.unlocks++
		return nil
	}, nil
}

func TestSession_Start(t *testing.T) {
	store := memory.NewStore(template)
	s := session.New(store, &countingEngine{})

	assert.Nil(t, s.Current())

	state, err := s.Start(context.Background())
	require.NoError(t, err)
	if diff := cmp.Diff(template, state); diff != "" {
		t.Errorf("Start() mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, template, s.Current())

	persisted, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, template, persisted)
}

func TestSession_StartWithoutTemplate(t *testing.T) {
	s := session.New(memory.NewStore(nil), &countingEngine{})

	_, err := s.Start(context.Background())
	assert.ErrorIs(t, err, domain.ErrTemplateMissing)
}

func TestSession_TurnPersists(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore(template)
	s := session.New(store, &countingEngine{})
	_, err := s.Start(ctx)
	require.NoError(t, err)

	result, err := s.Turn(ctx, "hello")
	require.NoError(t, err)
	assert.Equal(t, "Yeah... hello", result.Dialogue)

	persisted, err := store.Load(ctx)
	require.NoError(t, err)
	if diff := cmp.Diff(result.NewState, persisted); diff != "" {
		t.Errorf("persisted state mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, persisted, s.Current())
}

func TestSession_TurnWithoutStartLoadsStore(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore(template)
	saved := template.Clone()
	saved.LoopCount = 2
	require.NoError(t, store.Save(ctx, saved))

	s := session.New(store, &countingEngine{})
	result, err := s.Turn(ctx, "hi")
	require.NoError(t, err)
	assert.Equal(t, 3, result.NewState.LoopCount)
}

func TestSession_TurnWithoutAnySavedStateUsesTemplate(t *testing.T) {
	s := session.New(memory.NewStore(template), &countingEngine{})

	result, err := s.Turn(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, 1, result.NewState.LoopCount)
}

func TestSession_Resume(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore(template)
	saved := &domain.ConversationState{SteveState: domain.StateConsidering, LastUserSuggestion: "clay"}
	require.NoError(t, store.Save(ctx, saved))

	s := session.New(store, &countingEngine{})
	state, err := s.Resume(ctx)
	require.NoError(t, err)
	assert.Equal(t, saved, state)
}

func TestSession_SaveFailureStillDelivers(t *testing.T) {
	ctx := context.Background()
	s := session.New(failingStore{memory.NewStore(template)}, &countingEngine{})

	result, err := s.Turn(ctx, "hello")
	assert.ErrorIs(t, err, domain.ErrPersistence)
	assert.Equal(t, "Yeah... hello", result.Dialogue)
	assert.Equal(t, 1, s.Current().LoopCount, "memory keeps the new state")
}

func TestSession_ConcurrentTurnsAreSerialized(t *testing.T) {
	ctx := context.Background()
	engine := &countingEngine{}
	store := memory.NewStore(template)
	s := session.New(store, engine)
	_, err := s.Start(ctx)
	require.NoError(t, err)

	const n = 25
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.Turn(ctx, fmt.Sprintf("message %d", i))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.False(t, engine.overlap.Load(), "turns overlapped")
	assert.EqualValues(t, n, engine.calls.Load())

	// No lost updates: each turn saw the previous turn's state.
	persisted, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, n, persisted.LoopCount)
}

func TestSession_DistributedLock(t *testing.T) {
	ctx := context.Background()
	locker := &recordingLocker{}
	store := memory.NewStore(template)
	s := session.New(store, &countingEngine{}, session.WithLocker(locker))

	_, err := s.Start(ctx)
	require.NoError(t, err)

	// Another replica advances the shared state.
	other := template.Clone()
	other.LoopCount = 7
	require.NoError(t, store.Save(ctx, other))

	result, err := s.Turn(ctx, "hi")
	require.NoError(t, err)
	assert.Equal(t, 8, result.NewState.LoopCount, "state is reloaded under the lock")
	assert.Equal(t, 2, locker.locks)
	assert.Equal(t, 2, locker.unlocks)
}

func TestSession_LockFailure(t *testing.T) {
	locker := &recordingLocker{failWith: domain.ErrLockAcquire}
	engine := &countingEngine{}
	s := session.New(memory.NewStore(template), engine, session.WithLocker(locker))

	_, err := s.Turn(context.Background(), "hi")
	assert.ErrorIs(t, err, domain.ErrLockAcquire)
	assert.Zero(t, engine.calls.Load())
}

// TestSession_Scenarios runs the end-to-end scenarios through the real engine.
func TestSession_Scenarios(t *testing.T) {
	ctx := context.Background()

	t.Run("No newState keeps state and storage aligned", func(t *testing.T) {
		store := memory.NewStore(template)
		eng, err := steve.New(testutils.NewScriptedGenerator(testutils.Respond(`{"dialogue": "hi"}`)))
		require.NoError(t, err)
		s := session.New(store, eng)
		before, err := s.Start(ctx)
		require.NoError(t, err)

		result, err := s.Turn(ctx, "hello")
		require.NoError(t, err)
		assert.Equal(t, turn.DialogueIncomplete, result.Dialogue)

		persisted, err := store.Load(ctx)
		require.NoError(t, err)
		if diff := cmp.Diff(before, persisted); diff != "" {
			t.Errorf("state changed on incomplete response (-want +got):\n%s", diff)
		}
		assert.Equal(t, before, s.Current())
	})

	t.Run("Exhausted retries keep state", func(t *testing.T) {
		store := memory.NewStore(template)
		gen := testutils.NewScriptedGenerator(testutils.Unavailable())
		eng, err := steve.New(gen, steve.WithRetryPolicy(turn.DefaultRetryPolicy().NoDelay()))
		require.NoError(t, err)
		s := session.New(store, eng)
		before, err := s.Start(ctx)
		require.NoError(t, err)

		result, err := s.Turn(ctx, "hello")
		require.NoError(t, err)
		assert.Equal(t, turn.DialogueExhausted, result.Dialogue)
		assert.Equal(t, 3, gen.Calls())
		assert.Equal(t, before, s.Current())
	})
}

package bot

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mutableClock is a settable clock for TTL tests.
type mutableClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *mutableClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *mutableClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestClock() *mutableClock {
	return &mutableClock{t: time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)}
}

func TestStore_NewSessionStartsInNew(t *testing.T) {
	s := NewStore(StoreOptions{}, newTestClock())

	var seen Session
	s.With(7, func(sess *Session) { seen = *sess })

	assert.Equal(t, int64(7), seen.ChatID)
	assert.Equal(t, StateNew, seen.State)
	assert.Equal(t, 1, s.Len())
}

func TestStore_WritesPersist(t *testing.T) {
	clock := newTestClock()
	s := NewStore(StoreOptions{}, clock)

	s.With(7, func(sess *Session) { sess.State = StateAwaitingCity })

	got, ok := s.Get(7)
	require.True(t, ok)
	assert.Equal(t, StateAwaitingCity, got.State)
	assert.Equal(t, clock.Now(), got.LastSeen)

	_, ok = s.Get(8)
	assert.False(t, ok)
}

func TestStore_InvalidStateNormalizesToNew(t *testing.T) {
	s := NewStore(StoreOptions{}, newTestClock())
	s.With(7, func(sess *Session) { sess.State = State(99) })

	var seen State
	s.With(7, func(sess *Session) { seen = sess.State })
	assert.Equal(t, StateNew, seen)
}

func TestStore_SweepEvictsIdleSessions(t *testing.T) {
	clock := newTestClock()
	s := NewStore(StoreOptions{TTL: time.Hour}, clock)

	s.With(1, func(*Session) {})
	clock.Advance(30 * time.Minute)
	s.With(2, func(*Session) {})
	clock.Advance(45 * time.Minute)

	assert.Equal(t, 1, s.Sweep())
	_, ok := s.Get(1)
	assert.False(t, ok)
	_, ok = s.Get(2)
	assert.True(t, ok)
}

func TestStore_SweepNeverEvictsBusySession(t *testing.T) {
	clock := newTestClock()
	s := NewStore(StoreOptions{TTL: time.Minute}, clock)

	inside := make(chan struct{})
	done := make(chan struct{})
	go s.With(1, func(*Session) {
		close(inside)
		<-done
	})
	<-inside
	clock.Advance(time.Hour)

	assert.Equal(t, 0, s.Sweep())
	close(done)
}

func TestStore_MaxSessionsEvictsLeastRecentlyUsed(t *testing.T) {
	s := NewStore(StoreOptions{MaxSessions: 2}, newTestClock())

	s.With(1, func(*Session) {})
	s.With(2, func(*Session) {})
	s.With(1, func(*Session) {}) // 1 becomes most recent
	s.With(3, func(*Session) {})

	assert.Equal(t, 2, s.Len())
	_, ok := s.Get(2)
	assert.False(t, ok, "least recently used session should be evicted")
	_, ok = s.Get(1)
	assert.True(t, ok)
	_, ok = s.Get(3)
	assert.True(t, ok)
}

func TestStore_SameChatIsSerialized(t *testing.T) {
	s := NewStore(StoreOptions{}, newTestClock())

	var (
		active  int32
		overlap int32
		wg      sync.WaitGroup
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.With(1, func(sess *Session) {
				if atomic.AddInt32(&active, 1) > 1 {
					atomic.StoreInt32(&overlap, 1)
				}
				time.Sleep(100 * time.Microsecond)
				atomic.AddInt32(&active, -1)
			})
		}()
	}
	wg.Wait()
	assert.Zero(t, atomic.LoadInt32(&overlap))
}

func TestStore_DifferentChatsRunConcurrently(t *testing.T) {
	s := NewStore(StoreOptions{}, newTestClock())

	inside := make(chan struct{})
	release := make(chan struct{})
	go s.With(1, func(*Session) {
		close(inside)
		<-release
	})
	<-inside

	finished := make(chan struct{})
	go func() {
		s.With(2, func(*Session) {})
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("chat 2 blocked behind chat 1")
	}
	close(release)
}

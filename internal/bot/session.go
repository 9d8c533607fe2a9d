package bot

import (
	"container/list"
	"context"
	"sync"
	"time"

	"velobrief/internal/types"
)

// Session is the per-chat conversation record.
type Session struct {
	ChatID int64
	State  State
	// PendingCity is set while the next text is expected to be a place name.
	PendingCity bool
	LastSeen    time.Time
}

type entry struct {
	// mu serializes events of one chat. It is held for the whole event,
	// including provider and delivery calls.
	mu      sync.Mutex
	session Session

	// Guarded by Store.mu.
	refs     int
	lastSeen time.Time
	elem     *list.Element
}

// StoreOptions bounds the store. Zero values disable the bound.
type StoreOptions struct {
	TTL         time.Duration
	MaxSessions int
}

// Store holds sessions keyed by chat id. The store mutex only guards the
// index; events of different chats never wait on each other.
type Store struct {
	mu      sync.Mutex
	entries map[int64]*entry
	lru     *list.List // front is most recently used; values are chat ids
	opts    StoreOptions
	clock   types.Clock
}

// NewStore creates an empty store.
func NewStore(opts StoreOptions, clock types.Clock) *Store {
	if clock == nil {
		clock = types.RealClock{}
	}
	return &Store{
		entries: make(map[int64]*entry),
		lru:     list.New(),
		opts:    opts,
		clock:   clock,
	}
}

// With runs fn with exclusive access to the chat's session, creating a NEW
// session on first contact. Calls for the same chat are serialized in
// arrival order of lock acquisition.
func (s *Store) With(chatID int64, fn func(*Session)) {
	e := s.acquire(chatID)
	e.mu.Lock()
	defer func() {
		e.session.LastSeen = s.clock.Now()
		e.mu.Unlock()
		s.release(e)
	}()
	if !e.session.State.Valid() {
		e.session.State = StateNew
	}
	fn(&e.session)
}

// Get returns a snapshot of the chat's session. It waits for an in-flight
// event of that chat to finish.
func (s *Store) Get(chatID int64) (Session, bool) {
	s.mu.Lock()
	e, ok := s.entries[chatID]
	s.mu.Unlock()
	if !ok {
		return Session{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session, true
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Sweep evicts idle sessions older than the TTL and returns how many were
// removed. Sessions with an event in flight are never evicted.
func (s *Store) Sweep() int {
	if s.opts.TTL <= 0 {
		return 0
	}
	cutoff := s.clock.Now().Add(-s.opts.TTL)

	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for el := s.lru.Back(); el != nil; {
		prev := el.Prev()
		e := s.entries[el.Value.(int64)]
		if e.refs == 0 && e.lastSeen.Before(cutoff) {
			s.removeLocked(el.Value.(int64), e)
			removed++
		}
		el = prev
	}
	return removed
}

// RunJanitor sweeps on every tick until ctx is done.
func (s *Store) RunJanitor(ctx context.Context, interval time.Duration, onSweep func(removed, remaining int)) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed := s.Sweep()
			if onSweep != nil {
				onSweep(removed, s.Len())
			}
		}
	}
}

func (s *Store) acquire(chatID int64) *entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[chatID]
	if !ok {
		e = &entry{session: Session{ChatID: chatID, State: StateNew}}
		e.elem = s.lru.PushFront(chatID)
		s.entries[chatID] = e
	} else {
		s.lru.MoveToFront(e.elem)
	}
	e.refs++
	e.lastSeen = s.clock.Now()
	s.evictOverflowLocked()
	return e
}

func (s *Store) release(e *entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.refs--
	e.lastSeen = s.clock.Now()
}

// evictOverflowLocked drops least recently used idle sessions beyond the
// bound. If every session is busy the store temporarily exceeds it.
func (s *Store) evictOverflowLocked() {
	if s.opts.MaxSessions <= 0 {
		return
	}
	for el := s.lru.Back(); el != nil && len(s.entries) > s.opts.MaxSessions; {
		prev := el.Prev()
		id := el.Value.(int64)
		if e := s.entries[id]; e.refs == 0 {
			s.removeLocked(id, e)
		}
		el = prev
	}
}

func (s *Store) removeLocked(chatID int64, e *entry) {
	s.lru.Remove(e.elem)
	delete(s.entries, chatID)
}

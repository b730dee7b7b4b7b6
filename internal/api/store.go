package api

import (
	"sync"

	"github.com/google/uuid"

	"github.com/samcharles93/gridscan/pkg/iterator"
)

// cursor is one live iterator. mu serializes the requests driving it;
// closed is set under mu once the store has released the iterator.
type cursor struct {
	mu     sync.Mutex
	id     string
	it     *iterator.Iterator
	index  int
	closed bool
}

func (c *cursor) release() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		_ = c.it.Close()
		c.closed = true
	}
}

type CursorStore struct {
	mu      sync.Mutex
	cursors map[string]*cursor
	max     int
}

// NewCursorStore keeps at most max cursors; max <= 0 means no limit.
func NewCursorStore(max int) *CursorStore {
	return &CursorStore{
		cursors: make(map[string]*cursor),
		max:     max,
	}
}

func (s *CursorStore) Add(it *iterator.Iterator, index int) (*cursor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.max > 0 && len(s.cursors) >= s.max {
		return nil, ErrTooManyCursors
	}
	c := &cursor{id: newCursorID(), it: it, index: index}
	s.cursors[c.id] = c
	return c, nil
}

func (s *CursorStore) Get(id string) (*cursor, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cursors[id]
	return c, ok
}

func (s *CursorStore) Delete(id string) bool {
	s.mu.Lock()
	c, ok := s.cursors[id]
	delete(s.cursors, id)
	s.mu.Unlock()
	if !ok {
		return false
	}
	c.release()
	return true
}

func (s *CursorStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cursors)
}

// Close releases every cursor.
func (s *CursorStore) Close() {
	s.mu.Lock()
	all := s.cursors
	s.cursors = make(map[string]*cursor)
	s.mu.Unlock()
	for _, c := range all {
		c.release()
	}
}

func newCursorID() string {
	return "cur_" + uuid.NewString()
}

package services

import (
	"sync"
	"time"

	e "nuclight.org/filevault-tg-bot/pkg/entities"
)

// Staging holds the pre-commit working set of submitted items. There is at
// most one buffer per operator; beginning a new one silently discards any
// uncommitted predecessor. Buffers live in process memory only: a restart
// loses in-flight staging by design, only finalized sessions are durable.
type Staging struct {
	mu      sync.Mutex
	buffers map[int64]*buffer
}

type buffer struct {
	excludePlainText bool
	createdAt        time.Time
	items            []e.Item
}

func NewStaging() *Staging {
	return &Staging{
		buffers: make(map[int64]*buffer),
	}
}

// Begin replaces any existing buffer for the operator with a new empty one.
func (s *Staging) Begin(operatorID int64, excludePlainText bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.buffers[operatorID] = &buffer{
		excludePlainText: excludePlainText,
		createdAt:        time.Now(),
	}
}

// Append adds an item to the operator's buffer and returns its position.
func (s *Staging) Append(operatorID int64, item e.Item) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	buf, ok := s.buffers[operatorID]
	if !ok {
		return 0, ErrNoActiveBuffer
	}

	if buf.excludePlainText && item.PlainText() {
		return 0, ErrItemExcluded
	}

	buf.items = append(buf.items, item)

	return len(buf.items), nil
}

// Cancel discards the operator's buffer. No-op if none exists.
func (s *Staging) Cancel(operatorID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.buffers, operatorID)
}

// Active reports whether the operator has a buffer open.
func (s *Staging) Active(operatorID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.buffers[operatorID]
	return ok
}

// Len returns the number of staged items, zero if no buffer exists.
func (s *Staging) Len(operatorID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	buf, ok := s.buffers[operatorID]
	if !ok {
		return 0
	}

	return len(buf.items)
}

// Items returns a copy of the staged items in submission order. The buffer
// itself is untouched; Clear removes it once finalization has committed.
func (s *Staging) Items(operatorID int64) ([]e.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	buf, ok := s.buffers[operatorID]
	if !ok {
		return nil, ErrNoActiveBuffer
	}

	items := make([]e.Item, len(buf.items))
	copy(items, buf.items)

	return items, nil
}

// Clear drops the operator's buffer after a successful finalization.
func (s *Staging) Clear(operatorID int64) {
	s.Cancel(operatorID)
}

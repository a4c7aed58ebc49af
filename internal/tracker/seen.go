package tracker

import (
	"container/list"
	"sync"
)

// SeenSet records listing ids that were already detected. With max <= 0 it
// grows for the life of the process; otherwise the oldest ids are evicted
// once it holds max entries.
type SeenSet struct {
	mu    sync.Mutex
	max   int
	ids   map[string]*list.Element
	order *list.List

	evicted uint64
}

func NewSeenSet(max int) *SeenSet {
	s := &SeenSet{max: max, ids: map[string]*list.Element{}}
	if max > 0 {
		s.order = list.New()
	}
	return s
}

func (s *SeenSet) Has(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.ids[id]
	return ok
}

// Add marks id seen and reports whether it was new.
func (s *SeenSet) Add(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ids[id]; ok {
		return false
	}
	if s.order == nil {
		s.ids[id] = nil
		return true
	}
	s.ids[id] = s.order.PushBack(id)
	for s.order.Len() > s.max {
		front := s.order.Front()
		s.order.Remove(front)
		delete(s.ids, front.Value.(string))
		s.evicted++
	}
	return true
}

func (s *SeenSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids)
}

func (s *SeenSet) Evicted() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.evicted
}

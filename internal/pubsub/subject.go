// Package pubsub implements a tiny typed observable used to push state
// changes (queue size, connectivity, session) to interested parties.
package pubsub

import "sync"

// Subject fans out published values to subscribers. Handlers run
// synchronously on the publishing goroutine in subscription order; a
// handler doing I/O should start its own goroutine.
type Subject[T any] struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]func(T)
	order  []int
}

// Subscribe registers fn and returns a function that removes it.
// Calling the returned function more than once is safe.
func (s *Subject[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.subs == nil {
		s.subs = make(map[int]func(T))
	}
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.order = append(s.order, id)

	var once sync.Once
	return func() {
		once.Do(func() { s.remove(id) })
	}
}

func (s *Subject[T]) remove(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.subs, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Publish delivers v to every current subscriber.
func (s *Subject[T]) Publish(v T) {
	s.mu.RLock()
	handlers := make([]func(T), 0, len(s.order))
	for _, id := range s.order {
		handlers = append(handlers, s.subs[id])
	}
	s.mu.RUnlock()

	for _, h := range handlers {
		h(v)
	}
}

// Len reports the number of subscribers.
func (s *Subject[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs)
}

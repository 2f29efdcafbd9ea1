package channels

import (
	"context"
	"sync"
)

// Broadcaster keeps the latest published value and hands it to subscribers.
type Broadcaster[T any] struct {
	lock        *sync.RWMutex
	subscribers map[*Subscriber[T]]struct{}
	value       T
}

func NewBroadcaster[T any](value T) *Broadcaster[T] {
	lock := new(sync.RWMutex)
	return &Broadcaster[T]{
		lock:        lock,
		subscribers: make(map[*Subscriber[T]]struct{}),
		value:       value,
	}
}

func (b *Broadcaster[T]) Publish(value T) {
	b.lock.Lock()
	defer b.lock.Unlock()

	b.value = value
	for s := range b.subscribers {
		select {
		case s.in <- value:
		case <-s.ctx.Done():
		}
	}
}

func (b *Broadcaster[T]) Value() T {
	b.lock.RLock()
	defer b.lock.RUnlock()

	return b.value
}

// Subscriber receives the values published by a Broadcaster until its
// context is done. Wait yields the current value first, then each newer one;
// intermediate values may be coalesced.
type Subscriber[T any] struct {
	ctx    context.Context
	source *Broadcaster[T]
	in     chan T
	out    chan chan T
}

func NewSubscriber[T any](ctx context.Context, source *Broadcaster[T]) *Subscriber[T] {
	source.lock.Lock()
	defer source.lock.Unlock()

	s := &Subscriber[T]{
		ctx:    ctx,
		source: source,
		in:     make(chan T),
		out:    make(chan chan T),
	}
	source.subscribers[s] = struct{}{}

	go s.subscribe(source.value)

	return s
}

func (s *Subscriber[T]) subscribe(value T) {
	defer func() {
		s.source.lock.Lock()
		defer s.source.lock.Unlock()

		delete(s.source.subscribers, s)
	}()

	fresh := true
	var waiter chan T
	for {
		if waiter != nil && fresh {
			waiter <- value
			close(waiter)
			waiter = nil
			fresh = false
		}

		var out chan chan T
		if waiter == nil {
			out = s.out
		}

		select {
		case <-s.ctx.Done():
			return
		case waiter = <-out:
		case next := <-s.in:
			value = next
			fresh = true
		}
	}
}

// Wait returns a channel receiving the next unseen value. It returns nil once
// the subscriber context is done.
func (s *Subscriber[T]) Wait() <-chan T {
	if s.ctx.Err() != nil {
		return nil
	}
	ch := make(chan T, 1)
	select {
	case s.out <- ch:
		return ch
	case <-s.ctx.Done():
		return nil
	}
}

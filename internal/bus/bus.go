// Package bus is a small synchronous publish/subscribe hub with typed payloads.
package bus

import "sync"

const allKeys = "*"

type subscriber[T any] struct {
	id int
	fn func(T)
}

// Bus delivers values of type T to subscribers registered under a key, plus
// subscribers registered for every key. Delivery happens in the publishing
// goroutine, in registration order.
type Bus[T any] struct {
	mu     sync.Mutex
	nextID int
	subs   map[string][]subscriber[T]
}

func New[T any]() *Bus[T] {
	return &Bus[T]{subs: make(map[string][]subscriber[T])}
}

// Subscribe registers fn for values published under key. The returned cancel
// func removes the registration and may be called more than once.
func (b *Bus[T]) Subscribe(key string, fn func(T)) (cancel func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.subs[key] = append(b.subs[key], subscriber[T]{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(key, id) })
	}
}

// SubscribeAll registers fn for values published under any key.
func (b *Bus[T]) SubscribeAll(fn func(T)) (cancel func()) {
	return b.Subscribe(allKeys, fn)
}

func (b *Bus[T]) remove(key string, id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	list := b.subs[key]
	for i, s := range list {
		if s.id == id {
			b.subs[key] = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	if len(b.subs[key]) == 0 {
		delete(b.subs, key)
	}
}

// Publish hands v to the key's subscribers, then to the catch-all ones.
// Handlers may subscribe or cancel while being called.
func (b *Bus[T]) Publish(key string, v T) {
	b.mu.Lock()
	targets := make([]subscriber[T], 0, len(b.subs[key])+len(b.subs[allKeys]))
	targets = append(targets, b.subs[key]...)
	if key != allKeys {
		targets = append(targets, b.subs[allKeys]...)
	}
	b.mu.Unlock()

	for _, s := range targets {
		s.fn(v)
	}
}

// Len returns the number of live registrations.
func (b *Bus[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, list := range b.subs {
		n += len(list)
	}
	return n
}

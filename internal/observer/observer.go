// Package observer provides a small typed callback registry with removable handles.
package observer

import "sync"

type entry[T any] struct {
	id uint32
	fn func(T)
}

// Registry holds callbacks for a single event type.
type Registry[T any] struct {
	mu     sync.RWMutex
	nextID uint32
	subs   []entry[T]
}

// Handle removes a registered callback.
type Handle struct {
	remove func()
}

// Remove unregisters the callback. Safe to call more than once and on a zero Handle.
func (h Handle) Remove() {
	if h.remove != nil {
		h.remove()
	}
}

// Subscribe registers fn and returns a handle to remove it.
func (r *Registry[T]) Subscribe(fn func(T)) Handle {
	r.mu.Lock()
	r.nextID++
	id := r.nextID
	r.subs = append(r.subs, entry[T]{id: id, fn: fn})
	r.mu.Unlock()

	var once sync.Once
	return Handle{remove: func() {
		once.Do(func() { r.unsubscribe(id) })
	}}
}

func (r *Registry[T]) unsubscribe(id uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.subs {
		if r.subs[i].id == id {
			copy(r.subs[i:], r.subs[i+1:])
			r.subs[len(r.subs)-1] = entry[T]{}
			r.subs = r.subs[:len(r.subs)-1]
			return
		}
	}
}

// Notify calls every registered callback in registration order.
// Callbacks may subscribe or unsubscribe during delivery; changes apply to the next Notify.
func (r *Registry[T]) Notify(v T) {
	r.mu.RLock()
	subs := make([]entry[T], len(r.subs))
	copy(subs, r.subs)
	r.mu.RUnlock()

	for _, s := range subs {
		s.fn(v)
	}
}

// Len returns the number of registered callbacks.
func (r *Registry[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}

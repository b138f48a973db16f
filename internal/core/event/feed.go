package event

import "sync"

// Feed is a synchronous observer list for a single event type.
// Emit runs every handler on the caller's goroutine, in subscription order.
// The mutex only protects the handler list; handlers are invoked unlocked
// so a handler may subscribe or unsubscribe without deadlocking.
type Feed[T any] struct {
	mu       sync.Mutex
	nextID   uint64
	handlers []feedHandler[T]
}

type feedHandler[T any] struct {
	id uint64
	fn func(T)
}

// Subscribe registers fn and returns a function that removes it again.
// Calling the returned function more than once is harmless.
func (f *Feed[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}
	f.mu.Lock()
	f.nextID++
	id := f.nextID
	f.handlers = append(f.handlers, feedHandler[T]{id: id, fn: fn})
	f.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { f.remove(id) })
	}
}

func (f *Feed[T]) remove(id uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, h := range f.handlers {
		if h.id == id {
			// copy-on-write: an in-flight Emit keeps iterating its own slice
			next := make([]feedHandler[T], 0, len(f.handlers)-1)
			next = append(next, f.handlers[:i]...)
			f.handlers = append(next, f.handlers[i+1:]...)
			return
		}
	}
}

// Emit delivers ev to every current subscriber.
func (f *Feed[T]) Emit(ev T) {
	f.mu.Lock()
	handlers := f.handlers
	f.mu.Unlock()
	for _, h := range handlers {
		h.fn(ev)
	}
}

// Len returns the number of active subscribers.
func (f *Feed[T]) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.handlers)
}

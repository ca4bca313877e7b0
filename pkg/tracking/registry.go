package tracking

import (
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
)

// entry is one registration. mu is held while the listener runs, so Unregister
// can wait for an in-flight callback by acquiring it.
type entry struct {
	handle   ListenerHandle
	listener Listener

	mu      sync.Mutex
	removed bool
}

// Registry is the handle-keyed set of listeners.
//
// Register and Unregister are safe at any time, including from inside a
// callback (except a listener unregistering itself). Dispatch iterates a
// snapshot taken under the read lock, so registry mutations never wait for
// callbacks of other listeners.
type Registry struct {
	mu      sync.RWMutex
	entries map[ListenerHandle]*entry
	next    atomic.Uint64

	batchSize int
	observer  Observer
	logger    *slog.Logger
}

// NewRegistry returns an empty registry.
func NewRegistry(cfg Config) *Registry {
	cfg = cfg.withDefaults()
	return &Registry{
		entries:   make(map[ListenerHandle]*entry),
		batchSize: cfg.FanOutBatchSize,
		observer:  cfg.Observer,
		logger:    cfg.Logger,
	}
}

// Register adds l and returns a new handle. Registering the same listener twice
// yields two independent handles.
func (r *Registry) Register(l Listener) (ListenerHandle, error) {
	if l == nil {
		return InvalidListenerHandle, ErrNilListener
	}
	h := ListenerHandle(r.next.Add(1))

	r.mu.Lock()
	r.entries[h] = &entry{handle: h, listener: l}
	n := len(r.entries)
	r.mu.Unlock()

	r.observer.ListenerCount(n)
	return h, nil
}

// Unregister removes h. Unknown or already removed handles are ignored.
//
// When the listener is currently running a callback, Unregister blocks until that
// callback returns. Once Unregister returns the listener is never invoked again.
// It reports whether h was registered.
func (r *Registry) Unregister(h ListenerHandle) bool {
	r.mu.Lock()
	e, ok := r.entries[h]
	if ok {
		delete(r.entries, h)
	}
	n := len(r.entries)
	r.mu.Unlock()

	if !ok {
		return false
	}

	e.mu.Lock()
	e.removed = true
	e.mu.Unlock()

	r.observer.ListenerCount(n)
	return true
}

// Len returns the number of registered listeners.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// NotifyStatus delivers status to every listener and returns how many were called.
func (r *Registry) NotifyStatus(status ReceptionStatus) int {
	return r.each(func(l Listener) {
		l.OnReceptionStatusChanged(status)
	})
}

// NotifyFrame delivers frame to every listener and returns how many were called.
func (r *Registry) NotifyFrame(frame *Frame, ts Timestamp) int {
	return r.each(func(l Listener) {
		l.OnTrackingFrame(frame, ts)
	})
}

// each runs fn for every listener in registration order. Above batchSize listeners
// the snapshot is split into batches run in parallel; each returns after all batches.
func (r *Registry) each(fn func(Listener)) int {
	entries := r.snapshot()
	count := len(entries)

	if r.batchSize <= 0 || count <= r.batchSize {
		for _, e := range entries {
			r.invoke(e, fn)
		}
		return count
	}

	var wg sync.WaitGroup
	for i := 0; i < count; i += r.batchSize {
		end := min(i+r.batchSize, count)
		batch := entries[i:end]
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, e := range batch {
				r.invoke(e, fn)
			}
		}()
	}
	wg.Wait()
	return count
}

func (r *Registry) snapshot() []*entry {
	r.mu.RLock()
	entries := make([]*entry, 0, len(r.entries))
	for _, e := range r.entries {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	slices.SortFunc(entries, func(a, b *entry) int {
		switch {
		case a.handle < b.handle:
			return -1
		case a.handle > b.handle:
			return 1
		}
		return 0
	})
	return entries
}

func (r *Registry) invoke(e *entry, fn func(Listener)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.removed {
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("listener panicked", "handle", uint64(e.handle), "panic", rec)
			r.observer.ListenerPanicked(e.handle)
		}
	}()
	fn(e.listener)
}

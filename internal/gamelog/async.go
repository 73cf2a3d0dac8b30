package gamelog

import (
	"sync"
	"sync/atomic"
)

const defaultBuffer = 256

// AsyncSink forwards entries to an inner sink from a background goroutine.
// Write never blocks: when the buffer is full the entry is dropped and counted.
type AsyncSink struct {
	inner   Sink
	ch      chan Entry
	done    chan struct{}
	once    sync.Once
	mu      sync.RWMutex
	closed  bool
	dropped atomic.Int64
}

// NewAsync starts a goroutine draining into inner. A non-positive size uses
// the default buffer. Close must be called to release the goroutine.
func NewAsync(inner Sink, size int) *AsyncSink {
	if size <= 0 {
		size = defaultBuffer
	}
	a := &AsyncSink{
		inner: inner,
		ch:    make(chan Entry, size),
		done:  make(chan struct{}),
	}
	go a.run()
	return a
}

func (a *AsyncSink) run() {
	defer close(a.done)
	for e := range a.ch {
		a.inner.Write(e)
	}
}

// Write implements Sink.
func (a *AsyncSink) Write(e Entry) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		a.dropped.Add(1)
		return
	}
	select {
	case a.ch <- e:
	default:
		a.dropped.Add(1)
	}
}

// Dropped reports how many entries were discarded.
func (a *AsyncSink) Dropped() int64 { return a.dropped.Load() }

// Close stops accepting entries and waits until the buffered ones reach the
// inner sink.
func (a *AsyncSink) Close() {
	a.once.Do(func() {
		a.mu.Lock()
		a.closed = true
		close(a.ch)
		a.mu.Unlock()
	})
	<-a.done
}

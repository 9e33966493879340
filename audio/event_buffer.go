package audio

import (
	"runtime"
	"sync/atomic"
)

// eventBuffer is a lock-free spsc queue.
type eventBuffer[T any] struct {
	events      []T
	read, write *uint32
}

func newEventBuffer[T any](size int) *eventBuffer[T] {
	if size <= 0 || size&(size-1) != 0 {
		panic("event buffer size must be a power of 2")
	}
	return &eventBuffer[T]{
		events: make([]T, size),
		read:   new(uint32),
		write:  new(uint32),
	}
}

// push appends ev, yielding until the consumer has made room.
func (b *eventBuffer[T]) push(ev T) {
	for atomic.LoadUint32(b.write)-atomic.LoadUint32(b.read) == uint32(len(b.events)) {
		runtime.Gosched()
	}
	write := atomic.LoadUint32(b.write)
	b.events[write%uint32(len(b.events))] = ev
	atomic.StoreUint32(b.write, write+1)
}

// drain calls f for every queued event, in order, without blocking.
func (b *eventBuffer[T]) drain(f func(T)) {
	read := atomic.LoadUint32(b.read)
	write := atomic.LoadUint32(b.write)
	if read == write {
		return
	}
	var zero T
	for read != write {
		i := read % uint32(len(b.events))
		event := b.events[i]
		b.events[i] = zero
		f(event)
		read++
	}
	atomic.StoreUint32(b.read, read)
}

func (b *eventBuffer[T]) len() int {
	return int(atomic.LoadUint32(b.write) - atomic.LoadUint32(b.read))
}

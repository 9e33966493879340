package audio

import (
	"context"
	"runtime"
	"testing"
)

type testEvent struct {
	seq int
}

func TestEventBufferDrain(t *testing.T) {
	buf := newEventBuffer[testEvent](8)
	buf.push(testEvent{seq: 2})
	buf.push(testEvent{seq: 3})

	if want, got := 2, buf.len(); want != got {
		t.Errorf("expected %v queued events, got %v", want, got)
	}

	var events []testEvent
	buf.drain(func(ev testEvent) {
		events = append(events, ev)
	})
	if want, got := 2, len(events); want != got {
		t.Errorf("expected %v events, got %v", want, got)
	}
	if want, got := 0, buf.len(); want != got {
		t.Errorf("expected empty buffer after drain, got %v events", got)
	}

	buf.drain(func(ev testEvent) {
		t.Errorf("unexpected event after drain: %+v", ev)
	})
}

func TestEventBufferSize(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Errorf("expected panic for buffer size that is not a power of 2")
		}
	}()
	newEventBuffer[testEvent](6)
}

func TestEventBuffer(t *testing.T) {
	buf := newEventBuffer[testEvent](8)

	done := make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())

	var events []testEvent
	go func() {
		for {
			select {
			case <-ctx.Done():
				buf.drain(func(ev testEvent) {
					events = append(events, ev)
				})
				done <- struct{}{}
				return
			default:
				buf.drain(func(ev testEvent) {
					events = append(events, ev)
				})
				runtime.Gosched()
			}
		}
	}()

	const numEvents = 100_000
	for n := 0; n < numEvents; n++ {
		buf.push(testEvent{seq: n})
	}

	cancel()
	<-done

	if len(events) != numEvents {
		t.Errorf("wrong number of events: want %v, got %v", numEvents, len(events))
	}

	prev := -1
	for _, ev := range events {
		if want, got := prev+1, ev.seq; want != got {
			t.Errorf("discontinuous event sequence: want: %v, got %v", want, ev.seq)
		}
		prev++
	}
}

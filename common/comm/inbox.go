package comm

import (
	"context"
	"sync"
)

// inbox is an unbounded queue in front of a comm's Incoming channel. The manager pushes
// without blocking and a pump goroutine feeds the comm at whatever pace it reads.
type inbox struct {
	out chan<- Msg

	mu      sync.Mutex
	queue   []Msg
	closed  bool
	stopped bool
	notify  chan struct{}
}

func newInbox(out chan<- Msg) *inbox {
	return &inbox{
		out:    out,
		notify: make(chan struct{}, 1),
	}
}

// push queues msg. Once the pump has stopped, msg is handed to the comm only if its
// channel has room. push reports whether msg was accepted.
func (b *inbox) push(msg Msg) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return false
	}
	if b.stopped {
		select {
		case b.out <- msg:
			return true
		default:
			return false
		}
	}

	b.queue = append(b.queue, msg)
	b.wake()
	return true
}

// close stops accepting messages. Queued messages are still delivered.
func (b *inbox) close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	b.wake()
}

func (b *inbox) wake() {
	select {
	case b.notify <- struct{}{}:
	default:
	}
}

// pump delivers queued messages in order until the inbox is closed and drained, or ctx is done.
func (b *inbox) pump(ctx context.Context) {
	defer b.stop()

	for {
		b.mu.Lock()
		if len(b.queue) == 0 {
			closed := b.closed
			b.mu.Unlock()
			if closed {
				return
			}
			select {
			case <-b.notify:
				continue
			case <-ctx.Done():
				return
			}
		}
		msg := b.queue[0]
		b.queue[0] = Msg{}
		b.queue = b.queue[1:]
		b.mu.Unlock()

		select {
		case b.out <- msg:
		case <-ctx.Done():
			return
		}
	}
}

// stop hands what is left to the comm without blocking and drops the rest.
func (b *inbox) stop() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.stopped = true
	for len(b.queue) > 0 {
		select {
		case b.out <- b.queue[0]:
			b.queue = b.queue[1:]
		default:
			b.queue = nil
			return
		}
	}
	b.queue = nil
}

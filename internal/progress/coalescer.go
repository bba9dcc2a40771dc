package progress

import (
	"sync"
	"time"
)

// Coalescer is a Sink that forwards only the newest update to a bounded
// channel on every tick. Bursts between ticks collapse into one update.
type Coalescer struct {
	out      chan Update
	interval time.Duration

	mu      sync.Mutex
	pending *Update
	last    *Update
	closed  bool

	stop chan struct{}
	done chan struct{}
}

// NewCoalescer starts a coalescer flushing every interval into a channel of
// the given capacity (at least 1).
func NewCoalescer(capacity int, interval time.Duration) *Coalescer {
	if capacity < 1 {
		capacity = 1
	}
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	c := &Coalescer{
		out:      make(chan Update, capacity),
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go c.loop()
	return c
}

// Updates is the consumer side. It is closed by Close after the final update.
func (c *Coalescer) Updates() <-chan Update {
	return c.out
}

// Send replaces the pending update unless u is older than what consumers have
// already been given or are about to be given.
func (c *Coalescer) Send(u Update) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if c.pending != nil && !u.After(*c.pending) {
		return
	}
	if c.pending == nil && c.last != nil && !u.After(*c.last) {
		return
	}
	c.pending = &u
}

func (c *Coalescer) loop() {
	defer close(c.done)
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.flush()
		case <-c.stop:
			return
		}
	}
}

func (c *Coalescer) flush() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == nil {
		return
	}
	select {
	case c.out <- *c.pending:
		c.last = c.pending
		c.pending = nil
	default:
		// Consumer is behind; keep the update and retry next tick.
	}
}

// Close stops the timer, delivers the newest pending update, and closes the
// channel. When the channel is full the oldest queued update is dropped to
// make room, so the final state is always observable.
func (c *Coalescer) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	close(c.stop)
	<-c.done

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending != nil {
		select {
		case c.out <- *c.pending:
		default:
			select {
			case <-c.out:
			default:
			}
			c.out <- *c.pending
		}
		c.last = c.pending
		c.pending = nil
	}
	close(c.out)
}

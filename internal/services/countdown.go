package services

import (
	"context"
	"math"
	"sync"
	"time"
)

// Countdown ticks down to a deadline, publishing whole seconds remaining on every tick.
// It finishes by itself at zero and can be stopped earlier; both close Done.
type Countdown struct {
	until  time.Time
	clock  Clock
	cancel context.CancelFunc
	done   chan struct{}

	mu   sync.Mutex
	subs map[chan int]struct{}
}

func StartCountdown(parent context.Context, until time.Time, clock Clock, tick time.Duration) *Countdown {
	if clock == nil {
		clock = SystemClock
	}
	if tick <= 0 {
		tick = time.Second
	}
	ctx, cancel := context.WithCancel(parent)
	c := &Countdown{
		until:  until,
		clock:  clock,
		cancel: cancel,
		done:   make(chan struct{}),
		subs:   make(map[chan int]struct{}),
	}
	go c.run(ctx, tick)
	return c
}

func (c *Countdown) run(ctx context.Context, tick time.Duration) {
	t := time.NewTicker(tick)
	defer t.Stop()
	defer c.finish()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			left := c.Seconds()
			c.publish(left)
			if left == 0 {
				return
			}
		}
	}
}

func (c *Countdown) Remaining() time.Duration {
	if d := c.until.Sub(c.clock.Now()); d > 0 {
		return d
	}
	return 0
}

// Seconds is Remaining rounded up, so a display never shows 0 while resend is still locked.
func (c *Countdown) Seconds() int {
	return int(math.Ceil(c.Remaining().Seconds()))
}

func (c *Countdown) Until() time.Time { return c.until }

func (c *Countdown) Done() <-chan struct{} { return c.done }

func (c *Countdown) Stop() { c.cancel() }

// Subscribe returns a channel of remaining seconds, closed when the countdown ends,
// and a function to unsubscribe early. Slow readers miss ticks rather than block the timer.
func (c *Countdown) Subscribe() (<-chan int, func()) {
	ch := make(chan int, 1)
	c.mu.Lock()
	select {
	case <-c.done:
		c.mu.Unlock()
		close(ch)
		return ch, func() {}
	default:
	}
	c.subs[ch] = struct{}{}
	c.mu.Unlock()

	return ch, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if _, ok := c.subs[ch]; ok {
			delete(c.subs, ch)
			close(ch)
		}
	}
}

func (c *Countdown) publish(left int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for ch := range c.subs {
		select {
		case ch <- left:
		default:
		}
	}
}

func (c *Countdown) finish() {
	c.mu.Lock()
	defer c.mu.Unlock()
	close(c.done)
	for ch := range c.subs {
		close(ch)
		delete(c.subs, ch)
	}
}

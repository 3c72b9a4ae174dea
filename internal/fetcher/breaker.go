package fetcher

import (
	"sync"
	"time"

	"github.com/rotisserie/eris"
)

// ErrHostUnavailable is returned when a host has failed enough consecutive
// downloads that further requests are refused until the cooldown elapses.
var ErrHostUnavailable = eris.New("host temporarily unavailable")

type breakerState int

const (
	breakerClosed breakerState = iota
	breakerOpen
	breakerHalfOpen
)

func (s breakerState) String() string {
	switch s {
	case breakerClosed:
		return "closed"
	case breakerOpen:
		return "open"
	case breakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// hostBreaker trips after threshold consecutive failed downloads against one
// host. Once the cooldown passes a single trial request is let through; its outcome
// closes or reopens the breaker.
type hostBreaker struct {
	threshold int
	cooldown  time.Duration
	now       func() time.Time

	mu       sync.Mutex
	state    breakerState
	failures int
	openedAt time.Time
}

func newHostBreaker(threshold int, cooldown time.Duration) *hostBreaker {
	return &hostBreaker{
		threshold: threshold,
		cooldown:  cooldown,
		now:       time.Now,
	}
}

func (b *hostBreaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case breakerOpen:
		if b.now().Sub(b.openedAt) < b.cooldown {
			return false
		}
		b.state = breakerHalfOpen
		return true
	case breakerHalfOpen:
		// One trial request at a time.
		return false
	default:
		return true
	}
}

func (b *hostBreaker) record(ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ok {
		b.state = breakerClosed
		b.failures = 0
		return
	}

	b.failures++
	if b.state == breakerHalfOpen || b.failures >= b.threshold {
		b.state = breakerOpen
		b.openedAt = b.now()
	}
}

// abandon returns an interrupted trial request to the open state so the next call
// tries again.
func (b *hostBreaker) abandon() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == breakerHalfOpen {
		b.state = breakerOpen
	}
}

func (b *hostBreaker) current() breakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

package session

import (
	"sync"
	"sync/atomic"
	"time"
)

// CountdownTimer is the single authoritative wall-clock countdown for a
// session. It decrements once per second, reporting each decrement via
// onTick, and fires onExpire exactly once when the remaining time hits
// zero, after which it is inert.
//
// Stop is idempotent. While the timer is running, Stop returns only
// after the timer goroutine has exited, so no callback fires after Stop
// returns. Once expired the timer is already inert and Stop returns
// immediately, which keeps it safe to call from inside the onExpire
// call chain.
type CountdownTimer struct {
	interval time.Duration

	mu       sync.Mutex
	started  bool
	stopOnce sync.Once
	stopCh   chan struct{}
	done     chan struct{}
	expired  atomic.Bool
}

func NewCountdownTimer() *CountdownTimer {
	return &CountdownTimer{
		interval: time.Second,
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start begins the countdown. A totalSeconds of zero or less expires
// immediately. Start may be called at most once.
func (t *CountdownTimer) Start(totalSeconds int, onTick func(remaining int), onExpire func()) {
	t.mu.Lock()
	if t.started {
		t.mu.Unlock()
		return
	}
	t.started = true
	t.mu.Unlock()

	go t.run(totalSeconds, onTick, onExpire)
}

func (t *CountdownTimer) run(remaining int, onTick func(int), onExpire func()) {
	defer close(t.done)

	if remaining <= 0 {
		t.expired.Store(true)
		onTick(0)
		onExpire()
		return
	}

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-t.stopCh:
			return
		case <-ticker.C:
			remaining--
			if remaining <= 0 {
				// Mark inert before the callbacks so that a Stop issued
				// from within onExpire does not wait on this goroutine.
				t.expired.Store(true)
				onTick(0)
				onExpire()
				return
			}
			onTick(remaining)
		}
	}
}

// Stop cancels the countdown. Safe to call multiple times and before
// Start. At the expiry instant expired is set before the callbacks
// run, so a Stop racing expiry may return while that final onExpire
// is still completing; this is the same property that lets Stop be
// called from inside the onExpire call chain without deadlocking.
func (t *CountdownTimer) Stop() {
	t.stopOnce.Do(func() { close(t.stopCh) })

	t.mu.Lock()
	started := t.started
	t.mu.Unlock()

	if !started || t.expired.Load() {
		return
	}
	<-t.done
}

// Expired reports whether the countdown ran to zero.
func (t *CountdownTimer) Expired() bool {
	return t.expired.Load()
}

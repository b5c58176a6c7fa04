package player

import "sync"

// notifier delivers queued notifications one at a time, in queue order.
// Whoever queues onto an idle notifier drains it; anyone queueing while a
// drain is running, including a listener calling back into the player,
// appends and returns. No lock is held while a notification runs.
type notifier struct {
	mu      sync.Mutex
	pending []func()
	running bool
}

// enqueue appends fns and reports whether the caller must drain.
func (n *notifier) enqueue(fns ...func()) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.pending = append(n.pending, fns...)
	if n.running || len(n.pending) == 0 {
		return false
	}
	n.running = true
	return true
}

// post queues fns and, when nobody else is draining, runs them before returning.
func (n *notifier) post(fns ...func()) {
	if n.enqueue(fns...) {
		n.drain()
	}
}

// postAsync queues fns and drains on a new goroutine when nobody else is.
func (n *notifier) postAsync(fns ...func()) {
	if n.enqueue(fns...) {
		go n.drain()
	}
}

func (n *notifier) drain() {
	for {
		n.mu.Lock()
		if len(n.pending) == 0 {
			n.running = false
			n.mu.Unlock()
			return
		}
		fn := n.pending[0]
		n.pending[0] = nil
		n.pending = n.pending[1:]
		n.mu.Unlock()

		fn()
	}
}

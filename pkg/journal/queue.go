package journal

import "sync"

// QueuedListener hands entries from the task goroutine to another
// goroutine, delivering them to next in emission order.
type QueuedListener struct {
	next   Listener
	ch     chan Entry
	done   chan struct{}
	mu     sync.RWMutex
	closed bool
}

// NewQueuedListener starts the delivery goroutine
func NewQueuedListener(next Listener, buffer int) *QueuedListener {
	if buffer < 0 {
		buffer = 0
	}
	q := &QueuedListener{
		next: next,
		ch:   make(chan Entry, buffer),
		done: make(chan struct{}),
	}
	go q.run()
	return q
}

func (q *QueuedListener) run() {
	defer close(q.done)
	for e := range q.ch {
		q.next.OnProgress(e)
	}
}

// OnProgress enqueues e. Entries sent after Close are dropped.
func (q *QueuedListener) OnProgress(e Entry) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return
	}
	q.ch <- e
}

// Close stops accepting entries and waits until queued ones are delivered
func (q *QueuedListener) Close() {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.ch)
	}
	q.mu.Unlock()
	<-q.done
}

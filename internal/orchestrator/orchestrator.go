package orchestrator

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"imgharvest/pkg/journal"
	"imgharvest/pkg/logger"
	"imgharvest/pkg/task"
)

// ErrClosed is returned by Submit after Close
var ErrClosed = errors.New("orchestrator is closed")

// Summary is the final record of one task run
type Summary struct {
	ID        string
	Name      string
	State     journal.State
	Successes int
	Failures  int
	Elapsed   time.Duration
}

type job struct {
	id   string
	task task.Task
}

// Orchestrator runs submitted tasks one at a time in submission order
type Orchestrator struct {
	queue    chan job
	results  chan Summary
	listener journal.Listener
	logger   logger.Logger
	wg       sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc

	closeMu sync.RWMutex
	closed  bool

	mu         sync.Mutex
	current    string
	cancelTask context.CancelFunc
}

// New starts the worker. Entries of every task go to listener. Summaries
// are delivered on Results, which must be drained and is closed by Close.
func New(listener journal.Listener, queueSize int, log logger.Logger) *Orchestrator {
	if listener == nil {
		listener = journal.Discard
	}
	ctx, cancel := context.WithCancel(context.Background())
	o := &Orchestrator{
		queue:    make(chan job, queueSize),
		results:  make(chan Summary, queueSize+1),
		listener: listener,
		logger:   logger.OrDefault(log).WithField("component", "orchestrator"),
		ctx:      ctx,
		cancel:   cancel,
	}
	o.wg.Add(1)
	go o.worker()
	return o
}

// Submit queues t and returns its id
func (o *Orchestrator) Submit(t task.Task) (string, error) {
	o.closeMu.RLock()
	defer o.closeMu.RUnlock()
	if o.closed {
		return "", ErrClosed
	}

	id := uuid.NewString()
	select {
	case o.queue <- job{id: id, task: t}:
	case <-o.ctx.Done():
		return "", ErrClosed
	}
	o.logger.DebugWithFields("task submitted", map[string]interface{}{
		"task_id": id,
		"name":    t.Name(),
	})
	return id, nil
}

// Cancel interrupts the running task if its id matches, or any running
// task when id is empty. It reports whether a task was signalled.
func (o *Orchestrator) Cancel(id string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.cancelTask == nil || (id != "" && id != o.current) {
		return false
	}
	o.cancelTask()
	return true
}

// Results delivers one Summary per finished task
func (o *Orchestrator) Results() <-chan Summary {
	return o.results
}

// Close stops accepting tasks, lets queued ones finish and waits
func (o *Orchestrator) Close() {
	o.closeMu.Lock()
	if !o.closed {
		o.closed = true
		close(o.queue)
	}
	o.closeMu.Unlock()
	o.wg.Wait()
}

// Shutdown cancels the running task, drops queued ones and waits
func (o *Orchestrator) Shutdown() {
	o.cancel()
	o.Close()
}

func (o *Orchestrator) worker() {
	defer o.wg.Done()
	defer close(o.results)

	for j := range o.queue {
		if o.ctx.Err() != nil {
			o.logger.DebugWithFields("dropping queued task", map[string]interface{}{"task_id": j.id})
			continue
		}
		o.results <- o.run(j)
	}
}

func (o *Orchestrator) run(j job) Summary {
	ctx, cancel := context.WithCancel(o.ctx)
	defer cancel()

	o.mu.Lock()
	o.current = j.id
	o.cancelTask = cancel
	o.mu.Unlock()
	defer func() {
		o.mu.Lock()
		o.current = ""
		o.cancelTask = nil
		o.mu.Unlock()
	}()

	log := o.logger.WithFields(map[string]interface{}{"task_id": j.id, "name": j.task.Name()})
	jr := journal.New(j.task.Name(),
		journal.WithID(j.id),
		journal.WithListener(o.listener),
		journal.WithLogger(log),
	)

	log.Info("task started")
	start := time.Now()
	j.task.Run(ctx, jr)
	elapsed := time.Since(start)

	snap := jr.Snapshot()
	log.InfoWithFields("task finished", map[string]interface{}{
		"state":     snap.State.String(),
		"successes": snap.Successes,
		"failures":  snap.Failures,
		"elapsed":   elapsed.String(),
	})
	return Summary{
		ID:        j.id,
		Name:      snap.Name,
		State:     snap.State,
		Successes: snap.Successes,
		Failures:  snap.Failures,
		Elapsed:   elapsed,
	}
}

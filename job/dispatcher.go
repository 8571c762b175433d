package job

import (
	"context"
	"sync"

	"github.com/Ultra2000/pdfBot/config"
	"github.com/Ultra2000/pdfBot/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// Task identifies one job lifecycle to run.
type Task struct {
	DocumentID string
	JobID      string
	ReplyTo    string
}

// Dispatcher feeds tasks from a bounded queue into a limited worker pool.
// Enqueue never blocks: a full queue rejects the task so the caller can
// tell the user to retry instead of stalling the webhook.
type Dispatcher struct {
	engine *Engine
	queue  chan Task
	group  *errgroup.Group
	done   chan struct{}

	mu     sync.Mutex
	closed bool
}

func NewDispatcher(engine *Engine, cfg *config.WorkerConfig) *Dispatcher {
	return &Dispatcher{
		engine: engine,
		queue:  make(chan Task, cfg.QueueSize),
		group:  newWorkerGroup(cfg.Count),
		done:   make(chan struct{}),
	}
}

func newWorkerGroup(limit int) *errgroup.Group {
	g := &errgroup.Group{}
	g.SetLimit(limit)
	return g
}

// Start consumes the queue until Shutdown closes it. Each task runs in its
// own goroutine, bounded by the pool limit.
func (d *Dispatcher) Start(ctx context.Context) {
	go func() {
		defer close(d.done)
		for task := range d.queue {
			task := task
			d.group.Go(func() error {
				d.engine.Run(ctx, task.DocumentID, task.JobID, task.ReplyTo)
				return nil
			})
		}
	}()
	logger.Info(ctx, "dispatcher started", "queue_size", cap(d.queue))
}

// Enqueue submits a task, reporting false when the dispatcher is stopped
// or its queue is full.
func (d *Dispatcher) Enqueue(task Task) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return false
	}
	select {
	case d.queue <- task:
		return true
	default:
		return false
	}
}

// Shutdown stops accepting tasks and waits for in-flight jobs to finish.
func (d *Dispatcher) Shutdown() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	<-d.done
	d.group.Wait()
}

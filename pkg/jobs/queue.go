package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Task is one unit of queued work. The payload travels with the task so
// handlers never need a side lookup to find their input.
type Task[T any] struct {
	ID       string
	Payload  T
	Attempt  int
	Enqueued time.Time
}

// Handler processes a task. Returning an error triggers a retry until the
// queue's retry budget is spent.
type Handler[T any] func(context.Context, Task[T]) error

// Options tune the worker pool. Zero values get sensible defaults.
type Options struct {
	Workers    int
	Buffer     int
	MaxRetries int
	RetryDelay time.Duration
	Logger     *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = 1
	}
	if o.Buffer <= 0 {
		o.Buffer = o.Workers * 4
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = time.Second
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// Queue is an in-process worker pool. It is the backing for export renders,
// where losing queued work on restart is acceptable because submissions are
// cheap to repeat.
type Queue[T any] struct {
	name    string
	handler Handler[T]
	opts    Options

	tasks   chan Task[T]
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	started bool
}

// New builds a queue around handler. Call Start before Enqueue.
func New[T any](name string, handler Handler[T], opts Options) *Queue[T] {
	opts = opts.withDefaults()
	return &Queue[T]{
		name:    name,
		handler: handler,
		opts:    opts,
		tasks:   make(chan Task[T], opts.Buffer),
	}
}

// Start launches the workers. Calling Start twice is a no-op.
func (q *Queue[T]) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return
	}
	q.ctx, q.cancel = context.WithCancel(ctx)
	q.started = true
	for i := 0; i < q.opts.Workers; i++ {
		q.wg.Add(1)
		go q.run()
	}
	q.opts.Logger.Info("queue started",
		zap.String("queue", q.name),
		zap.Int("workers", q.opts.Workers),
	)
}

// Stop cancels the workers and waits for in-flight tasks to finish.
func (q *Queue[T]) Stop() {
	q.mu.Lock()
	if !q.started {
		q.mu.Unlock()
		return
	}
	q.cancel()
	q.mu.Unlock()

	q.wg.Wait()
	q.opts.Logger.Info("queue stopped", zap.String("queue", q.name))
}

// Enqueue submits a payload for processing.
func (q *Queue[T]) Enqueue(id string, payload T) error {
	q.mu.Lock()
	ctx := q.ctx
	started := q.started
	q.mu.Unlock()

	if !started {
		return fmt.Errorf("queue %s: not started", q.name)
	}

	task := Task[T]{ID: id, Payload: payload, Enqueued: time.Now().UTC()}
	select {
	case <-ctx.Done():
		return fmt.Errorf("queue %s: shut down: %w", q.name, ctx.Err())
	case q.tasks <- task:
		return nil
	}
}

func (q *Queue[T]) run() {
	defer q.wg.Done()
	for {
		select {
		case <-q.ctx.Done():
			return
		case task := <-q.tasks:
			if err := q.handler(q.ctx, task); err != nil {
				q.retry(task, err)
			}
		}
	}
}

// retry requeues the task after a linear backoff, capped by MaxRetries.
func (q *Queue[T]) retry(task Task[T], cause error) {
	task.Attempt++
	log := q.opts.Logger.With(
		zap.String("queue", q.name),
		zap.String("task_id", task.ID),
		zap.Int("attempt", task.Attempt),
	)
	if task.Attempt > q.opts.MaxRetries {
		log.Error("task failed permanently", zap.Error(cause))
		return
	}
	log.Warn("task failed, retrying", zap.Error(cause))

	delay := time.Duration(task.Attempt) * q.opts.RetryDelay
	go func() {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-q.ctx.Done():
		case <-timer.C:
			select {
			case <-q.ctx.Done():
			case q.tasks <- task:
			}
		}
	}()
}

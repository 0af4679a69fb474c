package worker

import (
	"container/list"
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"betai/internal/logger"
	"betai/internal/metrics"
)

var (
	ErrQueueFull = errors.New("chat queue full")
	ErrClosed    = errors.New("chat dispatcher closed")
)

// Config sizes the worker pool behind a Dispatcher.
type Config struct {
	MinWorkers  int
	MaxWorkers  int
	QueueSize   int
	IdleTimeout time.Duration
	Logger      *zap.Logger
}

type userQueue struct {
	jobs     []Job
	enqueued bool
}

// Dispatcher hands jobs to workers one user at a time in round-robin order,
// so a user with many requests in flight cannot starve the others.
type Dispatcher struct {
	pool  *jobChannelPool
	jobs  chan Job
	done  chan struct{}
	once  sync.Once
	limit int
	log   *zap.Logger

	mu      sync.Mutex
	pending int // submitted but not yet handed to a worker
	queues  map[string]*userQueue
	ready   *list.List // user keys waiting for a worker
}

func NewDispatcher(cfg Config) *Dispatcher {
	log := logger.OrNop(cfg.Logger)
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	d := &Dispatcher{
		pool:   newJobChannelPool(cfg.MinWorkers, cfg.MaxWorkers, cfg.IdleTimeout, log),
		jobs:   make(chan Job, cfg.QueueSize),
		done:   make(chan struct{}),
		limit:  cfg.QueueSize,
		log:    log,
		queues: make(map[string]*userQueue),
		ready:  list.New(),
	}
	for i := 0; i < d.pool.min; i++ {
		d.pool.spawnWorker()
	}
	go d.run()
	return d
}

// Submit queues fn for userKey. It never blocks; once QueueSize jobs are waiting it returns ErrQueueFull.
func (d *Dispatcher) Submit(ctx context.Context, userKey string, fn func(ctx context.Context)) error {
	select {
	case <-d.done:
		return ErrClosed
	default:
	}
	d.mu.Lock()
	if d.pending >= d.limit {
		d.mu.Unlock()
		return ErrQueueFull
	}
	d.pending++
	d.mu.Unlock()
	metrics.ChatQueued.Inc()

	// pending bounds the buffered channel, so this send does not block.
	d.jobs <- Job{Type: Run, UserKey: userKey, Ctx: ctx, Fn: fn}
	return nil
}

// Pending reports jobs not yet handed to a worker.
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

// Done is closed once Close has been called.
func (d *Dispatcher) Done() <-chan struct{} {
	return d.done
}

// Close stops dispatching. Jobs still queued are dropped.
func (d *Dispatcher) Close() {
	d.once.Do(func() {
		close(d.done)
		d.pool.close()
	})
}

func (d *Dispatcher) run() {
	for {
		d.drain()
		if !d.dispatchOne() {
			select {
			case job := <-d.jobs:
				d.enqueueJob(job)
			case <-d.done:
				return
			}
			continue
		}
		select {
		case <-d.done:
			return
		default:
		}
	}
}

// drain moves every submitted job into its user queue.
func (d *Dispatcher) drain() {
	for {
		select {
		case job := <-d.jobs:
			d.enqueueJob(job)
		default:
			return
		}
	}
}

func (d *Dispatcher) enqueueJob(job Job) {
	d.mu.Lock()
	defer d.mu.Unlock()

	q := d.queues[job.UserKey]
	if q == nil {
		q = &userQueue{}
		d.queues[job.UserKey] = q
	}
	q.jobs = append(q.jobs, job)
	if q.enqueued {
		return
	}
	q.enqueued = true
	d.ready.PushBack(job.UserKey)
}

// next pops the next job of the user at the front of the ready list and moves that user to the back.
func (d *Dispatcher) next() (Job, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	elem := d.ready.Front()
	if elem == nil {
		return Job{}, false
	}
	key := elem.Value.(string)
	q := d.queues[key]
	job := q.jobs[0]
	q.jobs = q.jobs[1:]
	if len(q.jobs) == 0 {
		d.ready.Remove(elem)
		delete(d.queues, key)
	} else {
		d.ready.MoveToBack(elem)
	}
	d.pending--
	metrics.ChatQueued.Dec()
	return job, true
}

// dispatchOne hands the next job to a worker, blocking until one is free.
func (d *Dispatcher) dispatchOne() bool {
	job, ok := d.next()
	if !ok {
		return false
	}
	if job.Ctx != nil && job.Ctx.Err() != nil {
		d.log.Debug("skipping cancelled chat job", zap.String("user", job.UserKey))
		return true
	}
	ch, ok := d.pool.acquire()
	if !ok {
		return false
	}
	ch <- job
	return true
}

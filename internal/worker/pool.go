package worker

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"betai/internal/logger"
	"betai/internal/metrics"
)

type workerMeta struct {
	ch        chan Job
	lastUsed  time.Time
	enqueued  bool // is in the idle queue
	discarded bool // is targeted as delete
}

type jobChannelPool struct {
	mu       sync.Mutex
	cond     *sync.Cond
	idle     []*workerMeta
	metadata map[chan Job]*workerMeta
	min      int
	max      int
	running  int
	expiry   time.Duration
	closed   bool
	stop     chan struct{}
	log      *zap.Logger
}

const defaultWorkerIdle = 30 * time.Second

func newJobChannelPool(minWorkers, maxWorkers int, idle time.Duration, log *zap.Logger) *jobChannelPool {
	if idle <= 0 {
		idle = defaultWorkerIdle
	}
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	if minWorkers > maxWorkers {
		minWorkers = maxWorkers
	}
	p := &jobChannelPool{
		metadata: make(map[chan Job]*workerMeta),
		min:      minWorkers,
		max:      maxWorkers,
		expiry:   idle,
		stop:     make(chan struct{}),
		log:      logger.OrNop(log),
	}
	p.cond = sync.NewCond(&p.mu)
	go p.purgeStaleWorkers()
	return p
}

// spawnWorker adds an idle worker, used to warm the pool up to min.
func (p *jobChannelPool) spawnWorker() {
	p.mu.Lock()
	if p.closed || p.running >= p.max {
		p.mu.Unlock()
		return
	}
	meta := p.newWorkerLocked()
	p.mu.Unlock()
	p.release(meta.ch)
}

// newWorkerLocked starts a worker that is not yet in the idle queue.
func (p *jobChannelPool) newWorkerLocked() *workerMeta {
	w := newWorker(p)
	meta := &workerMeta{ch: w.jobs, lastUsed: time.Now()}
	p.metadata[w.jobs] = meta
	p.running++
	metrics.ChatWorkers.Set(float64(p.running))
	w.Start()
	return meta
}

// acquire returns an idle worker, spawning one when under max, and blocks otherwise.
// It reports false once the pool is closed.
func (p *jobChannelPool) acquire() (chan Job, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for {
		if p.closed {
			return nil, false
		}
		if meta := p.popIdleLocked(); meta != nil {
			return meta.ch, true
		}
		if p.running < p.max {
			return p.newWorkerLocked().ch, true
		}
		p.cond.Wait()
	}
}

// release puts a worker back into the idle queue. False tells the worker to exit.
func (p *jobChannelPool) release(ch chan Job) bool {
	p.mu.Lock()
	meta, ok := p.metadata[ch]
	if !ok || meta.discarded {
		p.mu.Unlock()
		return false
	}
	if p.closed {
		p.removeLocked(ch, meta)
		p.mu.Unlock()
		p.cond.Broadcast()
		return false
	}
	if !meta.enqueued {
		meta.enqueued = true
		meta.lastUsed = time.Now()
		p.idle = append(p.idle, meta)
	}
	p.mu.Unlock()
	p.cond.Signal()
	return true
}

// retire deletes a worker.
func (p *jobChannelPool) retire(ch chan Job) {
	p.mu.Lock()
	if meta, ok := p.metadata[ch]; ok {
		p.removeLocked(ch, meta)
	}
	p.mu.Unlock()
	p.cond.Broadcast()
}

func (p *jobChannelPool) removeLocked(ch chan Job, meta *workerMeta) {
	delete(p.metadata, ch)
	meta.discarded = true
	if p.running > 0 {
		p.running--
	}
	metrics.ChatWorkers.Set(float64(p.running))
}

// popIdleLocked takes the oldest idle worker that is still alive.
func (p *jobChannelPool) popIdleLocked() *workerMeta {
	for len(p.idle) > 0 {
		meta := p.idle[0]
		p.idle = p.idle[1:]
		if meta.discarded {
			continue
		}
		meta.enqueued = false
		return meta
	}
	return nil
}

func (p *jobChannelPool) purgeStaleWorkers() {
	ticker := time.NewTicker(p.expiry)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.shutdownExpired(time.Now())
		case <-p.stop:
			return
		}
	}
}

// shutdownExpired retires idle workers unused for longer than expiry, keeping min alive.
func (p *jobChannelPool) shutdownExpired(now time.Time) {
	var stale []*workerMeta

	p.mu.Lock()
	if len(p.idle) == 0 || p.running <= p.min {
		p.mu.Unlock()
		return
	}
	remaining := p.idle[:0]
	for _, meta := range p.idle {
		if meta.discarded {
			continue
		}
		if now.Sub(meta.lastUsed) >= p.expiry && p.running-len(stale) > p.min {
			meta.discarded = true
			meta.enqueued = false
			stale = append(stale, meta)
			continue
		}
		remaining = append(remaining, meta)
	}
	p.idle = remaining
	p.mu.Unlock()

	for _, meta := range stale {
		meta.ch <- Job{Type: Stop}
	}
	if len(stale) > 0 {
		p.log.Debug("retired idle chat workers", zap.Int("count", len(stale)))
	}
}

// size reports running and idle workers.
func (p *jobChannelPool) size() (running, idle int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running, len(p.idle)
}

// close stops idle workers now; busy workers exit after their current job.
func (p *jobChannelPool) close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.stop)
	idle := p.idle
	p.idle = nil
	for _, meta := range idle {
		meta.discarded = true
		meta.enqueued = false
	}
	p.mu.Unlock()
	p.cond.Broadcast()

	for _, meta := range idle {
		meta.ch <- Job{Type: Stop}
	}
}

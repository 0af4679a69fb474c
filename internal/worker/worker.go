package worker

import (
	"context"

	"go.uber.org/zap"
)

type JobType string

const (
	Run  JobType = "run"
	Stop JobType = "stop"
)

// Job is one queued unit of work. Fn runs on a pool worker with Ctx.
type Job struct {
	Type    JobType
	UserKey string
	Ctx     context.Context
	Fn      func(ctx context.Context)
}

type Worker struct {
	pool *jobChannelPool
	jobs chan Job
}

func newWorker(pool *jobChannelPool) *Worker {
	return &Worker{
		pool: pool,
		jobs: make(chan Job),
	}
}

func (w *Worker) Start() {
	go func() {
		for {
			job := <-w.jobs
			if job.Type == Stop {
				w.pool.retire(w.jobs)
				return
			}
			w.run(job)
			if !w.pool.release(w.jobs) {
				return
			}
		}
	}()
}

func (w *Worker) run(job Job) {
	defer func() {
		if r := recover(); r != nil {
			w.pool.log.Error("chat job panicked", zap.String("user", job.UserKey), zap.Any("panic", r))
		}
	}()
	ctx := job.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	if ctx.Err() != nil {
		return
	}
	job.Fn(ctx)
}

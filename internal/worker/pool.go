package worker

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
)

// Pool runs background jobs bound to a root context with at most size jobs
// running at once.
//
// A job that cannot get a slot before the root context is done, or that is
// submitted after Close, still runs once with a done context so it can tell
// its owner it was cancelled.
type Pool struct {
	name string
	ctx  context.Context
	sem  *semaphore.Weighted
	log  *logrus.Entry

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func New(ctx context.Context, name string, size int) *Pool {
	return &Pool{
		name: name,
		ctx:  ctx,
		sem:  semaphore.NewWeighted(int64(size)),
		log:  logrus.WithFields(logrus.Fields{"component": "worker", "pool": name}),
	}
}

// Go schedules fn without blocking the caller. After Close, fn runs
// synchronously with a cancelled context.
func (p *Pool) Go(job string, fn func(ctx context.Context)) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.log.Warnf("pool is closed, cancelling job %s", job)
		ctx, cancel := context.WithCancel(p.ctx)
		cancel()
		p.run(ctx, job, fn)
		return
	}
	p.wg.Add(1)
	p.mu.Unlock()

	go func() {
		defer p.wg.Done()

		if err := p.sem.Acquire(p.ctx, 1); err != nil {
			p.log.Warnf("cancelling job %s: %v", job, err)
			p.run(p.ctx, job, fn)
			return
		}
		defer p.sem.Release(1)

		p.log.Debugf("running job %s", job)
		p.run(p.ctx, job, fn)
	}()
}

func (p *Pool) run(ctx context.Context, job string, fn func(ctx context.Context)) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Errorf("job %s panicked: %v", job, r)
		}
	}()
	fn(ctx)
}

// Close stops accepting jobs and blocks until every scheduled one returned.
func (p *Pool) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	p.wg.Wait()
}

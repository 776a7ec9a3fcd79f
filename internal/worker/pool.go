// Package worker provides the bounded worker pool, the per-host rate limiter
// and the batch processor used by the paper stage.
package worker

import (
	"context"
	"sync"
	"sync/atomic"
)

// Job represents a unit of work to be executed
type Job interface {
	Execute(ctx context.Context) Result
}

// Result represents the result of a job execution
type Result interface {
	GetError() error
}

type indexedJob struct {
	index int
	job   Job
}

type indexedResult struct {
	index  int
	result Result
}

// Pool manages a pool of workers that execute jobs concurrently. Results are
// returned in submission order.
type Pool struct {
	workers    int
	jobQueue   chan indexedJob
	results    chan indexedResult
	wg         sync.WaitGroup
	ctx        context.Context
	cancelFunc context.CancelFunc
	closeOnce  sync.Once
	queueOnce  sync.Once
	submitted  atomic.Int64

	collected   []Result
	collectDone chan struct{}
}

// NewPool creates a new worker pool with the specified number of workers
func NewPool(workers int) *Pool {
	return NewPoolWithContext(context.Background(), workers)
}

// NewPoolWithContext creates a pool whose jobs observe ctx; cancelling ctx
// stops workers from picking up further jobs
func NewPoolWithContext(ctx context.Context, workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}

	ctx, cancel := context.WithCancel(ctx)

	return &Pool{
		workers:     workers,
		jobQueue:    make(chan indexedJob, workers*2),
		results:     make(chan indexedResult, workers*2),
		ctx:         ctx,
		cancelFunc:  cancel,
		collectDone: make(chan struct{}),
	}
}

// Start starts the workers and the result collector
func (p *Pool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	go p.collect()
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case item, ok := <-p.jobQueue:
			if !ok {
				return
			}
			if p.ctx.Err() != nil {
				return
			}
			p.results <- indexedResult{index: item.index, result: item.job.Execute(p.ctx)}
		}
	}
}

// collect drains results as they arrive so workers never block on a full
// results channel while jobs are still being submitted
func (p *Pool) collect() {
	defer close(p.collectDone)
	for r := range p.results {
		for len(p.collected) <= r.index {
			p.collected = append(p.collected, nil)
		}
		p.collected[r.index] = r.result
	}
}

// Submit submits a job to the pool. It must not be called after Wait.
func (p *Pool) Submit(job Job) {
	index := int(p.submitted.Add(1) - 1)
	select {
	case <-p.ctx.Done():
		return
	case p.jobQueue <- indexedJob{index: index, job: job}:
	}
}

// Wait waits for all submitted jobs and returns their results in submission
// order, then releases the pool context. Jobs skipped because the pool was
// cancelled have no result.
func (p *Pool) Wait() []Result {
	p.closeQueue()
	p.wg.Wait()
	p.closeResults()
	<-p.collectDone
	p.cancelFunc()

	results := make([]Result, 0, len(p.collected))
	for _, r := range p.collected {
		if r != nil {
			results = append(results, r)
		}
	}
	return results
}

// Shutdown cancels the pool and waits for running jobs to return
func (p *Pool) Shutdown() {
	p.cancelFunc()
	p.wg.Wait()
	p.closeResults()
	<-p.collectDone
}

func (p *Pool) closeQueue() {
	p.queueOnce.Do(func() {
		close(p.jobQueue)
	})
}

func (p *Pool) closeResults() {
	p.closeOnce.Do(func() {
		close(p.results)
	})
}

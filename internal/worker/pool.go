package worker

import (
	"context"
	"sync"
)

// Job is one unit of batch work
type Job interface {
	Execute(ctx context.Context) Result
}

// Result is the outcome of one executed job
type Result interface {
	GetError() error
}

// Pool runs jobs with bounded concurrency. The pool context derives from
// the caller's, so a batch deadline cancels in-flight jobs.
type Pool struct {
	workers   int
	jobs      chan Job
	results   chan Result
	wg        sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// NewPool creates a pool bound to the given context
func NewPool(ctx context.Context, workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}

	poolCtx, cancel := context.WithCancel(ctx)

	return &Pool{
		workers: workers,
		jobs:    make(chan Job, workers*2), // Buffered to prevent blocking
		results: make(chan Result, workers*2),
		ctx:     poolCtx,
		cancel:  cancel,
	}
}

// Start launches the workers
func (p *Pool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.run()
	}
}

func (p *Pool) run() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case job, ok := <-p.jobs:
			if !ok {
				return
			}
			result := job.Execute(p.ctx)
			select {
			case p.results <- result:
			case <-p.ctx.Done():
				return
			}
		}
	}
}

// Submit queues a job. Submissions after cancellation are dropped.
func (p *Pool) Submit(job Job) {
	select {
	case <-p.ctx.Done():
	case p.jobs <- job:
	}
}

// Wait closes the queue, drains every result, and releases the pool context
func (p *Pool) Wait() []Result {
	close(p.jobs)

	go func() {
		p.wg.Wait()
		p.closeResults()
	}()

	var results []Result
	for result := range p.results {
		results = append(results, result)
	}

	p.cancel()
	return results
}

// Shutdown cancels in-flight jobs and waits for workers to exit
func (p *Pool) Shutdown() {
	p.cancel()
	p.wg.Wait()
	p.closeResults()
}

func (p *Pool) closeResults() {
	p.closeOnce.Do(func() {
		close(p.results)
	})
}

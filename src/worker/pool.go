package worker

import (
	"context"
	"log"
	"sync"

	"screen-mcq-llm/src/capture"
)

// ResultCallback is invoked on cycle completion (from a worker
// goroutine). The event loop passes a closure that posts back into the
// loop safely.
type ResultCallback func(out capture.Outcome, err error)

// CycleFunc runs one capture-and-answer cycle under ctx.
type CycleFunc func(ctx context.Context) (capture.Outcome, error)

// Pool runs cycles off the event-loop goroutine. The queue has one
// slot: a second submission while one is in flight is dropped, which
// backs up the loop's own busy flag.
type Pool struct {
	jobs chan job
	wg   sync.WaitGroup
}

type job struct {
	ctx context.Context
	run CycleFunc
	cb  ResultCallback
}

// New creates a worker pool. Cycles are serialized, so size defaults
// to 1 when size<=0.
func New(size int) *Pool {
	if size <= 0 {
		size = 1
	}
	p := &Pool{jobs: make(chan job, 1)}
	p.start(size)
	return p
}

func (p *Pool) start(n int) {
	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for j := range p.jobs {
				out, err := j.run(j.ctx)
				log.Printf("Worker: cycle completed, content=%q, err=%v", out.Content, err)
				j.cb(out, err)
			}
		}()
	}
}

// Submit enqueues a cycle if the single-slot queue is free. Returns
// false if dropped.
func (p *Pool) Submit(ctx context.Context, run CycleFunc, cb ResultCallback) bool {
	select {
	case p.jobs <- job{ctx: ctx, run: run, cb: cb}:
		return true
	default:
		return false
	}
}

// Close stops the pool after draining current work.
func (p *Pool) Close() {
	close(p.jobs)
	p.wg.Wait()
}

package worker

import (
	"sync"

	"github.com/roundupgames/audit-backend/internal/metrics"
)

type task func()

// Pool is a fixed-size goroutine pool for background work (async audit
// appends). Submit blocks once the buffer is full, which back-pressures
// request handlers instead of dropping audit entries.
type Pool struct {
	wg   sync.WaitGroup
	jobs chan task
}

func NewPool(n int) *Pool {
	p := &Pool{jobs: make(chan task, 1024)}
	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for job := range p.jobs {
				job()
				metrics.WorkerQueueDepth.Dec()
			}
		}()
	}
	return p
}

func (p *Pool) Submit(f task) {
	metrics.WorkerQueueDepth.Inc()
	p.jobs <- f
}

func (p *Pool) Stop() {
	close(p.jobs)
	p.wg.Wait()
}

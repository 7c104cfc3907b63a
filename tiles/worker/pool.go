// Package worker runs blocking work, such as tile fetches, off the render
// thread on a bounded number of goroutines.
package worker

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

type Pool struct {
	workers chan struct{}
	tasks   chan Task
	quit    chan struct{}
	timeout time.Duration
	wg      sync.WaitGroup
	stop    sync.Once
}

// Task is one unit of background work. Work receives a context that is
// cancelled when the task times out or the pool shuts down.
type Task struct {
	Ctx  context.Context
	Name string
	Work func(ctx context.Context) error
}

// NewPool starts a pool running at most maxWorkers tasks at once, buffering
// up to queue submitted tasks. A positive timeout bounds each task.
func NewPool(maxWorkers, queue int, timeout time.Duration) *Pool {
	p := &Pool{
		workers: make(chan struct{}, max(1, maxWorkers)),
		tasks:   make(chan Task, max(1, queue)),
		quit:    make(chan struct{}),
		timeout: timeout,
	}

	go p.dispatcher()
	return p
}

func (p *Pool) dispatcher() {
	for {
		select {
		case <-p.quit:
			return
		case task := <-p.tasks:
			select {
			case p.workers <- struct{}{}:
			case <-p.quit:
				p.wg.Done()
				return
			}
			go p.run(task)
		}
	}
}

func (p *Pool) run(task Task) {
	defer func() {
		<-p.workers
		p.wg.Done()
	}()

	ctx := task.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if p.timeout > 0 {
		var stop context.CancelFunc
		ctx, stop = context.WithTimeout(ctx, p.timeout)
		defer stop()
	}
	go func() {
		select {
		case <-p.quit:
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := task.Work(ctx); err != nil {
		log.Debugf("task %s failed: %v", task.Name, err)
	}
}

// Submit queues a task without ever blocking the caller. It reports false
// when the pool has been shut down and the task will not run.
func (p *Pool) Submit(task Task) bool {
	select {
	case <-p.quit:
		return false
	default:
	}

	p.wg.Add(1)
	select {
	case p.tasks <- task:
	default:
		// queue full: hand off to a goroutine so the caller keeps going
		go func() {
			select {
			case p.tasks <- task:
			case <-p.quit:
				p.wg.Done()
			}
		}()
	}
	return true
}

// Shutdown stops dispatching, cancels running tasks and waits for them.
// Tasks still queued are dropped.
func (p *Pool) Shutdown() {
	p.stop.Do(func() {
		close(p.quit)
	})

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	for {
		select {
		case <-p.tasks:
			p.wg.Done()
		case <-done:
			return
		}
	}
}

package dispatch

import (
	"errors"
	"sync"
	"time"
)

var (
	ErrPoolClosed = errors.New("worker pool closed")
	ErrQueueFull  = errors.New("user queue full")
)

// Drained queues linger this long before their goroutine exits. The
// timer only runs while the worker is waiting, never during a job.
const queueIdleAfter = 2 * time.Minute

type userQueue struct {
	jobs chan func()
}

// Pool runs jobs FIFO per user under a global concurrency cap. Jobs
// for different users run in parallel up to the cap; jobs for one user
// never overlap or reorder.
type Pool struct {
	sem      chan struct{}
	queueCap int

	mu     sync.Mutex
	queues map[string]*userQueue
	closed bool
	quit   chan struct{}
	wg     sync.WaitGroup
}

func NewPool(maxConcurrent, queueCap int) *Pool {
	if maxConcurrent <= 0 {
		maxConcurrent = 8
	}
	if queueCap <= 0 {
		queueCap = 16
	}
	return &Pool{
		sem:      make(chan struct{}, maxConcurrent),
		queueCap: queueCap,
		queues:   make(map[string]*userQueue),
		quit:     make(chan struct{}),
	}
}

// Submit queues job on userID's FIFO queue, starting a worker for the
// user if none is live. ErrQueueFull when the user already has queueCap
// jobs waiting.
func (p *Pool) Submit(userID string, job func()) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPoolClosed
	}
	q, ok := p.queues[userID]
	if !ok {
		q = &userQueue{jobs: make(chan func(), p.queueCap)}
		p.queues[userID] = q
		p.wg.Add(1)
		go p.drain(userID, q)
	}
	// Push under the same lock as the worker's idle-exit check, so a
	// job can never land on a queue whose worker has already left.
	select {
	case q.jobs <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops accepting jobs, lets every queued job finish, and waits
// for the workers to exit.
func (p *Pool) Close() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.quit)
	}
	p.mu.Unlock()
	p.wg.Wait()
}

// ActiveUsers reports the number of live per-user queues.
func (p *Pool) ActiveUsers() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queues)
}

func (p *Pool) run(job func()) {
	p.sem <- struct{}{}
	defer func() { <-p.sem }()
	job()
}

func (p *Pool) drain(userID string, q *userQueue) {
	defer p.wg.Done()
	idle := time.NewTimer(queueIdleAfter)
	defer idle.Stop()
	for {
		select {
		case job := <-q.jobs:
			p.run(job)
			if !idle.Stop() {
				select {
				case <-idle.C:
				default:
				}
			}
			idle.Reset(queueIdleAfter)
		case <-p.quit:
			for {
				select {
				case job := <-q.jobs:
					p.run(job)
				default:
					p.mu.Lock()
					delete(p.queues, userID)
					p.mu.Unlock()
					return
				}
			}
		case <-idle.C:
			p.mu.Lock()
			if len(q.jobs) == 0 {
				delete(p.queues, userID)
				p.mu.Unlock()
				return
			}
			p.mu.Unlock()
			idle.Reset(queueIdleAfter)
		}
	}
}

package dispatch

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func TestPoolRunsJobsInOrderPerUser(t *testing.T) {
	p := NewPool(4, 16)
	defer p.Close()

	var mu sync.Mutex
	var order []int
	done := make(chan struct{})
	for i := 0; i < 5; i++ {
		i := i
		err := p.Submit("u1", func() {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			if i == 4 {
				close(done)
			}
		})
		if err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("queued jobs did not run")
	}
	mu.Lock()
	defer mu.Unlock()
	for i, got := range order {
		if got != i {
			t.Fatalf("jobs ran out of order: %v", order)
		}
	}
}

func TestPoolRejectsWhenUserQueueFull(t *testing.T) {
	p := NewPool(1, 2)
	defer p.Close()

	started := make(chan struct{})
	release := make(chan struct{})
	if err := p.Submit("u1", func() { close(started); <-release }); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	<-started // the worker is busy, the queue is empty again

	for i := 0; i < 2; i++ {
		if err := p.Submit("u1", func() {}); err != nil {
			t.Fatalf("Submit %d: %v", i, err)
		}
	}
	if err := p.Submit("u1", func() {}); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
	// Another user is unaffected by u1's backlog.
	if err := p.Submit("u2", func() {}); err != nil {
		t.Fatalf("Submit for second user: %v", err)
	}
	close(release)
}

func TestPoolGlobalConcurrencyCap(t *testing.T) {
	p := NewPool(1, 4)

	var mu sync.Mutex
	var running, peak int
	job := func() {
		mu.Lock()
		running++
		if running > peak {
			peak = running
		}
		mu.Unlock()
		time.Sleep(10 * time.Millisecond)
		mu.Lock()
		running--
		mu.Unlock()
	}
	for _, u := range []string{"a", "b", "c"} {
		if err := p.Submit(u, job); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}
	p.Close()

	mu.Lock()
	defer mu.Unlock()
	if peak != 1 {
		t.Fatalf("peak concurrency %d, want 1", peak)
	}
}

func TestPoolUsersRunInParallel(t *testing.T) {
	p := NewPool(2, 4)
	defer p.Close()

	var barrier sync.WaitGroup
	barrier.Add(2)
	done := make(chan struct{}, 2)
	job := func() {
		barrier.Done()
		barrier.Wait() // passes only if both users' jobs are in flight
		done <- struct{}{}
	}
	if err := p.Submit("a", job); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if err := p.Submit("b", job); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatalf("jobs for distinct users did not run in parallel")
		}
	}
}

func TestPoolCloseDrainsThenRejects(t *testing.T) {
	p := NewPool(2, 8)

	var mu sync.Mutex
	ran := 0
	for i := 0; i < 6; i++ {
		err := p.Submit("u", func() {
			mu.Lock()
			ran++
			mu.Unlock()
		})
		if err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}
	p.Close()

	mu.Lock()
	if ran != 6 {
		t.Fatalf("%d jobs ran before Close returned, want 6", ran)
	}
	mu.Unlock()
	if err := p.Submit("u", func() {}); !errors.Is(err, ErrPoolClosed) {
		t.Fatalf("expected ErrPoolClosed, got %v", err)
	}
	if n := p.ActiveUsers(); n != 0 {
		t.Fatalf("%d queues alive after Close", n)
	}
}

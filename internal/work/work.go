// Package work provides the bounded parallel dispatcher the main build
// orchestrator uses for its one genuinely concurrent region: compiling
// translation units (spec §5). It is adapted from the teacher's MVS
// work-queue (internal/mvs/par.Work[T], used there to visit each module
// path at most once); here the work item is a compile job instead of a
// module path, and the caller always knows the full item set up front, so
// the random-pick contention-avoidance behavior carries over unchanged.
package work

import (
	"math/rand"
	"sync"
)

// Pool runs f over a fixed set of items with at most n invocations of f
// running at a time, and returns once every item has been processed; an
// error does not stop the remaining items from running. Unlike the
// teacher's open-ended Work[T], Pool
// is sized once from a known item slice — the orchestrator always knows
// its full set of translation units before dispatch.
type Pool[T any] struct {
	mu   sync.Mutex
	todo []T

	firstErr error
	errOnce  sync.Once
}

// New returns a Pool preloaded with items.
func New[T any](items []T) *Pool[T] {
	todo := make([]T, len(items))
	copy(todo, items)
	return &Pool[T]{todo: todo}
}

// Run executes f(item) for every item in the pool, at most n at a time.
// After the first failure the workers keep taking items until the pool
// is empty, so every item still runs (their results are simply ignored),
// and Run returns only when all of them have finished. Run returns the
// first error observed, if any.
func (p *Pool[T]) Run(n int, f func(item T) error) error {
	if n < 1 {
		n = 1
	}

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.runner(f)
		}()
	}
	wg.Wait()
	return p.firstErr
}

func (p *Pool[T]) runner(f func(item T) error) {
	for {
		item, ok := p.next()
		if !ok {
			return
		}
		if err := f(item); err != nil {
			p.errOnce.Do(func() {
				p.mu.Lock()
				p.firstErr = err
				p.mu.Unlock()
			})
		}
	}
}

// next pops a random remaining item, to avoid pathological contention when
// many goroutines start around the same time (same rationale as the
// teacher's par.Work.runner).
func (p *Pool[T]) next() (item T, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.todo) == 0 {
		return item, false
	}
	i := rand.Intn(len(p.todo))
	item = p.todo[i]
	p.todo[i] = p.todo[len(p.todo)-1]
	p.todo = p.todo[:len(p.todo)-1]
	return item, true
}

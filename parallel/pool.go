// Package parallel runs closures on a fixed set of worker goroutines.
package parallel

import (
	"runtime"
	"sync"
)

type (
	WorkerFunc func(func())
	WaitFunc   func(done bool)
	CancelFunc func()
)

// Pool is a fixed-size worker pool. Do queues work, Wait(true) closes the
// queue and blocks until every queued closure has returned. A pool with a
// single worker runs closures inline from Do.
type Pool struct {
	wg     sync.WaitGroup
	Do     WorkerFunc
	Wait   WaitFunc
	Cancel CancelFunc
}

// Start creates a pool of numWorkers goroutines, or GOMAXPROCS goroutines
// when numWorkers is less than 1.
func Start(numWorkers int) *Pool {
	if numWorkers < 1 {
		numWorkers = runtime.GOMAXPROCS(0)
	}

	pool := &Pool{
		Do: func(f func()) {
			f()
		},
		Wait:   func(bool) {},
		Cancel: func() {},
	}

	if numWorkers > 1 {
		workChan := make(chan func(), numWorkers)

		for range numWorkers {
			pool.wg.Go(func() {
				for f := range workChan {
					f()
				}
			})
		}

		pool.Do = func(f func()) {
			workChan <- f
		}

		pool.Wait = func(done bool) {
			if done {
				pool.Cancel()
			}
			pool.wg.Wait()
		}
		pool.Cancel = sync.OnceFunc(func() { close(workChan) })
	}

	return pool
}

// Map calls fn for every index in [0, n) on a pool of numWorkers and
// returns the results in index order, whatever order they completed in.
func Map[T any](numWorkers, n int, fn func(i int) T) []T {
	res := make([]T, n)
	if n == 0 {
		return res
	}

	pool := Start(min(numWorkers, n))
	for i := range n {
		pool.Do(func() {
			res[i] = fn(i)
		})
	}
	pool.Wait(true)

	return res
}

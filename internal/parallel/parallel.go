// Package parallel provides the bounded data-parallel fan-out used by
// per-operator propagation.
//
// The engine owns no long-lived threads: each call spins up a short-lived
// group of workers dedicated to that operation, so the host's own pool can
// re-enter the monitor without risking mutual starvation.
package parallel

import (
	"runtime"

	"golang.org/x/sync/errgroup"
)

// minChunk is the smallest work slice worth a goroutine; below it the loop
// runs inline.
const minChunk = 1024

// ForEach runs fn over [0, n) in index chunks, fanning out across up to
// GOMAXPROCS workers. fn must be safe for concurrent invocation on disjoint
// ranges. ForEach returns the first error; chunks already started are not
// cancelled and run to completion.
func ForEach(n int, fn func(start, end int) error) error {
	if n <= 0 {
		return nil
	}
	workers := runtime.GOMAXPROCS(0)
	if n <= minChunk || workers <= 1 {
		return fn(0, n)
	}
	chunk := (n + workers - 1) / workers
	if chunk < minChunk {
		chunk = minChunk
	}
	var g errgroup.Group
	for start := 0; start < n; start += chunk {
		end := start + chunk
		if end > n {
			end = n
		}
		g.Go(func() error {
			return fn(start, end)
		})
	}
	return g.Wait()
}

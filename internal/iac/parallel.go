package iac

import (
	"golang.org/x/sync/errgroup"
)

// updateParallel computes the next activation of every node on up to
// Workers goroutines. Each goroutine reads the previous step's map, which is
// not written during the step, and writes a disjoint range of a slice that
// is copied into next once all goroutines finish.
func (e *Engine) updateParallel(next map[string]float64) {
	values := make([]float64, len(e.nodes))

	workers := e.config.Workers
	if workers > len(e.nodes) {
		workers = len(e.nodes)
	}
	chunk := (len(e.nodes) + workers - 1) / workers

	var g errgroup.Group
	for start := 0; start < len(e.nodes); start += chunk {
		end := start + chunk
		if end > len(e.nodes) {
			end = len(e.nodes)
		}
		g.Go(func() error {
			for i := start; i < end; i++ {
				values[i] = e.nextActivation(e.nodes[i])
			}
			return nil
		})
	}
	// Workers never return an error.
	_ = g.Wait()

	for i, id := range e.nodes {
		next[id] = values[i]
	}
}

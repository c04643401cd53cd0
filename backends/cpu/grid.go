// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package cpu

import (
	"sync"
	"sync/atomic"
)

// dim3 is the 3D index of a block in the grid, or the size of the grid.
type dim3 struct {
	X, Y, Z int
}

func makeDim3(dims [3]uint32) dim3 {
	return dim3{X: int(dims[0]), Y: int(dims[1]), Z: int(dims[2])}
}

// Volume returns X*Y*Z.
func (d dim3) Volume() int {
	return d.X * d.Y * d.Z
}

// Unlinearize converts a linear block number to its 3D index in the grid d, with X varying fastest.
func (d dim3) Unlinearize(i int) dim3 {
	return dim3{
		X: i % d.X,
		Y: (i / d.X) % d.Y,
		Z: i / (d.X * d.Y),
	}
}

// runGrid calls blockFn for every block of grid, distributing the blocks over the backend's workers.
//
// It returns the error of a failing block, if any: once a block fails the remaining ones are skipped.
func (b *Backend) runGrid(grid dim3, blockFn func(block dim3) error) error {
	var (
		failed   atomic.Bool
		firstErr error
		once     sync.Once
	)
	b.workers.ParallelFor(grid.Volume(), func(i int) {
		if failed.Load() {
			return
		}
		if err := blockFn(grid.Unlinearize(i)); err != nil {
			once.Do(func() {
				firstErr = err
				failed.Store(true)
			})
		}
	})
	return firstErr
}

// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package workerspool

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool_Saturate(t *testing.T) {
	pool := New()
	wantTasks := 5
	pool.SetMaxParallelism(wantTasks)

	// All workers must be running at the same time for the barrier to open.
	var count atomic.Int32
	var barrier sync.WaitGroup
	barrier.Add(wantTasks)
	done := make(chan struct{})
	go func() {
		pool.Saturate(func() {
			count.Add(1)
			barrier.Done()
			barrier.Wait()
		})
		close(done)
	}()
	select {
	case <-done:
		// Success
	case <-time.After(5 * time.Second):
		t.Fatal("Timeout before all tasks were executed.")
	}
	assert.Equal(t, int32(wantTasks), count.Load())

	// No parallelism: run inline once.
	pool.SetMaxParallelism(0)
	count.Store(0)
	pool.Saturate(func() { count.Add(1) })
	assert.Equal(t, int32(1), count.Load())

	// Unlimited.
	pool.SetMaxParallelism(-1)
	count.Store(0)
	pool.Saturate(func() { count.Add(1) })
	assert.Greater(t, int(count.Load()), 0)
}

func TestPool_ParallelFor(t *testing.T) {
	for _, parallelism := range []int{0, 1, 3, -1} {
		pool := New()
		pool.SetMaxParallelism(parallelism)
		const n = 1000
		hits := make([]int32, n)
		pool.ParallelFor(n, func(i int) {
			atomic.AddInt32(&hits[i], 1)
		})
		for i, h := range hits {
			require.Equalf(t, int32(1), h, "parallelism=%d: index %d called %d times", parallelism, i, h)
		}
	}

	var called bool
	New().ParallelFor(0, func(int) { called = true })
	assert.False(t, called)
}

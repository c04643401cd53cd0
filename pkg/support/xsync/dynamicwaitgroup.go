// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package xsync implements synchronization primitives not covered by the standard sync package.
package xsync

import (
	"sync"

	"github.com/pkg/errors"
)

// DynamicWaitGroup is a WaitGroup-like synchronization primitive that allows the count
// to be increased while someone is waiting for it. E.g.: tasks enqueued on a stream
// while another goroutine synchronizes it.
type DynamicWaitGroup struct {
	mu    sync.Mutex
	cond  *sync.Cond
	count int64
}

// NewDynamicWaitGroup creates a new DynamicWaitGroup.
func NewDynamicWaitGroup() *DynamicWaitGroup {
	cwg := &DynamicWaitGroup{}
	cwg.cond = sync.NewCond(&cwg.mu)
	return cwg
}

// Add changes the DynamicWaitGroup counter by the given delta.
// If the counter becomes zero, it wakes up all waiting goroutines.
// It panics if the counter goes negative.
func (cwg *DynamicWaitGroup) Add(delta int) {
	cwg.mu.Lock()
	defer cwg.mu.Unlock()
	cwg.count += int64(delta)
	if cwg.count < 0 {
		panic(errors.Errorf("DynamicWaitGroup: negative counter"))
	}
	if cwg.count == 0 {
		cwg.cond.Broadcast()
	}
}

// Done decrements the DynamicWaitGroup counter by one.
func (cwg *DynamicWaitGroup) Done() {
	cwg.Add(-1)
}

// Count returns the current value of the counter.
func (cwg *DynamicWaitGroup) Count() int {
	cwg.mu.Lock()
	defer cwg.mu.Unlock()
	return int(cwg.count)
}

// Wait blocks until the DynamicWaitGroup counter is zero.
func (cwg *DynamicWaitGroup) Wait() {
	cwg.mu.Lock()
	defer cwg.mu.Unlock()
	for cwg.count > 0 {
		cwg.cond.Wait()
	}
}

// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package xsync

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDynamicWaitGroup(t *testing.T) {
	wg := NewDynamicWaitGroup()
	wg.Wait() // Zero count returns immediately.

	var finished atomic.Int32
	release := make(chan struct{})
	wg.Add(1)
	go func() {
		<-release
		// Work added while the other goroutine is waiting.
		wg.Add(1)
		go func() {
			finished.Add(1)
			wg.Done()
		}()
		finished.Add(1)
		wg.Done()
	}()

	waited := make(chan struct{})
	go func() {
		wg.Wait()
		close(waited)
	}()
	assert.Equal(t, 1, wg.Count())
	close(release)
	select {
	case <-waited:
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for DynamicWaitGroup")
	}
	assert.Equal(t, int32(2), finished.Load())
	assert.Equal(t, 0, wg.Count())

	require.Panics(t, func() { wg.Done() })
}

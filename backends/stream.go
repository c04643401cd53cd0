// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package backends

// Stream is an ordered (FIFO) queue of device work.
//
// Work is enqueued by kernels (see GatherKernel.Launch) and runs asynchronously.
type Stream interface {
	// Synchronize blocks until all work enqueued so far is finished.
	//
	// It returns the first device fault reported by the finished work, if any, and clears it.
	Synchronize() error

	// Finalize waits for pending work and releases the stream. It can't be used afterwards.
	Finalize()
}

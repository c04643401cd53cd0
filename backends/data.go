// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package backends

import "github.com/gomlx/gatherop/pkg/core/shapes"

// Buffer represents actual data (a tensor) stored in the device that is going to execute the kernels.
//
// It is opaque from the caller's perspective: only the backend that created it can use it.
type Buffer any

// DataInterface is the Backend's subinterface that defines the API to transfer Buffer to/from the device.
type DataInterface interface {
	// BufferFinalize allows the client to inform backend that buffer is no longer needed and associated resources can be
	// freed immediately -- as opposed to waiting for a GC.
	//
	// A finalized buffer should never be used again.
	BufferFinalize(buffer Buffer) error

	// BufferShape returns the shape for the buffer.
	BufferShape(buffer Buffer) (shapes.Shape, error)

	// BufferToFlatData transfers the flat values of buffer to the Go flat array.
	// The slice flat must have the exact number of elements required to store the Buffer shape.
	//
	// Pending work on streams writing to buffer must be synchronized before calling it.
	BufferToFlatData(buffer Buffer, flat any) error

	// BufferFromFlatData transfers data from Go given as a flat slice (of the type corresponding to the shape DType)
	// to the device, and returns the corresponding Buffer.
	BufferFromFlatData(flat any, shape shapes.Shape) (Buffer, error)

	// NewBuffer allocates a zero-initialized buffer for the given static shape.
	NewBuffer(shape shapes.Shape) (Buffer, error)
}

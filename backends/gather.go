// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package backends

import (
	"fmt"

	"github.com/gomlx/gatherop/pkg/core/dtypes"
)

// GatherConfig is the fully resolved configuration of a gather kernel launch.
//
// It is built once when an operation is configured and is read-only afterwards.
// All counts are in elements, not bytes.
type GatherConfig struct {
	// DType of the dictionary and of the output, IndicesDType of the indices.
	DType, IndicesDType dtypes.DType

	// NumDicts is the number of independent dictionaries per batch: dimensions between the batch axes and the
	// gather axis.
	NumDicts uint32

	// IndexRange is the dimension of the gathered axis: valid indices are in [-IndexRange, IndexRange).
	IndexRange uint32

	// DataLength is the number of contiguous elements copied per gathered index.
	DataLength uint32

	// IndicesSize is the number of indices per batch.
	IndicesSize uint32

	// BatchCount is the number of batches: the product of the leading batch dimensions.
	BatchCount uint32

	// GatherChunks selects the chunk-parallel kernel. Otherwise, the dict-parallel kernel is used.
	GatherChunks bool

	// BlocksPerGrid, ThreadsPerBlock and GridDimX are the launch dimensions.
	// The grid is (GridDimX, IndicesSize, BlocksPerGrid), each block has ThreadsPerBlock threads.
	BlocksPerGrid, ThreadsPerBlock, GridDimX uint32

	// DictsBatchStride, IndicesBatchStride and OutBatchStride are the per-batch strides of the
	// dictionary, indices and output.
	DictsBatchStride, IndicesBatchStride, OutBatchStride uint32

	// ElsPerThreadChunks and ElsPerThreadDicts are the number of elements copied by each thread
	// in the chunk-parallel and dict-parallel kernels respectively.
	ElsPerThreadChunks, ElsPerThreadDicts uint32
}

// Grid returns the 3 grid dimensions (x, y, z) of the launch.
func (c GatherConfig) Grid() [3]uint32 {
	return [3]uint32{c.GridDimX, c.IndicesSize, c.BlocksPerGrid}
}

// ElsPerThread returns the number of elements each thread copies for the selected kernel.
func (c GatherConfig) ElsPerThread() uint32 {
	if c.GatherChunks {
		return c.ElsPerThreadChunks
	}
	return c.ElsPerThreadDicts
}

// String implements fmt.Stringer.
func (c GatherConfig) String() string {
	kernel := "dicts"
	if c.GatherChunks {
		kernel = "chunks"
	}
	grid := c.Grid()
	return fmt.Sprintf("Gather<%s, indices=%s, kernel=%s, grid=%dx%dx%d, block=%d, num_dicts=%d, "+
		"index_range=%d, data_length=%d, indices_size=%d, batch_count=%d>",
		c.DType, c.IndicesDType, kernel, grid[0], grid[1], grid[2], c.ThreadsPerBlock,
		c.NumDicts, c.IndexRange, c.DataLength, c.IndicesSize, c.BatchCount)
}

// GatherKernel is a gather kernel compiled for one GatherConfig.
//
// A GatherKernel is immutable and can be launched concurrently on different streams, as long as each launch
// uses distinct output buffers.
type GatherKernel interface {
	// Launch enqueues one execution of the kernel on stream and returns without waiting for it.
	//
	// The dictionary, indices and output buffers are borrowed until the stream is synchronized.
	// It returns an error if the work could not be enqueued; device faults during execution are reported
	// by Stream.Synchronize.
	//
	// The configuration was validated when the kernel was compiled. Device backends shouldn't re-validate
	// it here; the reference "cpu" backend still checks each buffer's dtype and size against the
	// configuration on every launch, since a mismatch would otherwise index past a Go slice.
	Launch(stream Stream, dictionary, indices, output Buffer) error
}

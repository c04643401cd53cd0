// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package gather

import (
	"fmt"
	"math"

	"github.com/dustin/go-humanize"
	"github.com/gomlx/gatherop/backends"
	"github.com/pkg/errors"
	"golang.org/x/exp/constraints"
	"k8s.io/klog/v2"
)

const (
	// ElsPerThreadChunks is the number of elements of a gathered slice copied by each thread
	// of the chunk-parallel kernel.
	ElsPerThreadChunks = 2

	// ElsPerThreadDicts is the number of elements copied by each thread of the dict-parallel kernel.
	ElsPerThreadDicts = 1
)

// Strategy is the parallel decomposition of a gather.
type Strategy int

const (
	// ChunkParallel parallelizes over chunks of each gathered slice: one thread per ElsPerThreadChunks elements.
	ChunkParallel Strategy = iota

	// DictParallel parallelizes over the independent dictionaries: one thread per dictionary.
	DictParallel
)

// String implements fmt.Stringer.
func (s Strategy) String() string {
	switch s {
	case ChunkParallel:
		return "ChunkParallel"
	case DictParallel:
		return "DictParallel"
	}
	return fmt.Sprintf("Strategy(%d)", int(s))
}

// LaunchPlan is the grid decomposition chosen for a Geometry.
type LaunchPlan struct {
	Strategy Strategy

	// NumChunks is ceil(DataLength / ElsPerThreadChunks).
	NumChunks uint32

	BlocksPerGrid, ThreadsPerBlock uint32

	// Grid is (GridDimX, IndicesSize, BlocksPerGrid).
	Grid [3]uint32
}

// GridDimX is the primary grid dimension: NumDicts*BatchCount for ChunkParallel, DataLength*BatchCount for DictParallel.
func (p LaunchPlan) GridDimX() uint32 { return p.Grid[0] }

// NumThreads returns the total number of threads launched.
func (p LaunchPlan) NumThreads() uint64 {
	return uint64(p.Grid[0]) * uint64(p.Grid[1]) * uint64(p.Grid[2]) * uint64(p.ThreadsPerBlock)
}

// String implements fmt.Stringer.
func (p LaunchPlan) String() string {
	return fmt.Sprintf("%s{grid=%dx%dx%d, block=%d, threads=%s}", p.Strategy,
		p.Grid[0], p.Grid[1], p.Grid[2], p.ThreadsPerBlock, humanize.Comma(int64(p.NumThreads())))
}

// Planner chooses the LaunchPlan of a Geometry within the limits of a device.
type Planner struct {
	caps backends.Capabilities
}

// NewPlanner returns a Planner for a device with the given capabilities.
// Invalid capabilities are reported by Plan.
func NewPlanner(caps backends.Capabilities) *Planner {
	return &Planner{caps: caps}
}

// Plan picks the strategy for g and computes its grid.
//
// ChunkParallel is selected if there are at least as many chunks as dictionaries.
// It returns an error wrapping ErrDeviceLimitExceeded if any grid dimension exceeds the device limits.
func (p *Planner) Plan(g Geometry) (LaunchPlan, error) {
	var plan LaunchPlan
	if err := p.caps.Validate(); err != nil {
		return plan, errors.Wrapf(ErrDeviceLimitExceeded, "%v", err)
	}
	maxThreads := uint64(p.caps.MaxThreadsPerBlock)

	numChunks := ceilDiv(uint64(g.DataLength), ElsPerThreadChunks)
	plan.NumChunks = uint32(numChunks)
	var primary, gridDimX uint64
	if numChunks >= uint64(g.NumDicts) {
		plan.Strategy = ChunkParallel
		primary = numChunks
		gridDimX = uint64(g.NumDicts) * uint64(g.BatchCount)
	} else {
		plan.Strategy = DictParallel
		primary = uint64(g.NumDicts)
		gridDimX = uint64(g.DataLength) * uint64(g.BatchCount)
	}
	blocks := ceilDiv(primary, maxThreads)
	threads := maxThreads
	if blocks == 1 {
		threads = primary
	}

	grid := [3]uint64{gridDimX, uint64(g.IndicesSize), blocks}
	for axis, dim := range grid {
		if dim > uint64(p.caps.MaxGridSize[axis]) || dim > math.MaxUint32 {
			return plan, errors.Wrapf(ErrDeviceLimitExceeded,
				"%s grid dimension %d is %d, but the device allows at most %d, for geometry %s",
				plan.Strategy, axis, dim, p.caps.MaxGridSize[axis], g)
		}
		plan.Grid[axis] = uint32(dim)
	}
	plan.BlocksPerGrid = uint32(blocks)
	plan.ThreadsPerBlock = uint32(threads)
	klog.V(1).Infof("gather plan: %s", plan)
	klog.V(2).Infof("gather plan for geometry %s: num_chunks=%d", g, numChunks)
	return plan, nil
}

// ceilDiv returns ceil(a/b) for positive b.
func ceilDiv[T constraints.Integer](a, b T) T {
	return (a + b - 1) / b
}

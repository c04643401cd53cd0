// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package gather_test

import (
	"fmt"
	"testing"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gatherop/backends"
	"github.com/gomlx/gatherop/backends/cpu"
	"github.com/gomlx/gatherop/pkg/core/dtypes"
	"github.com/gomlx/gatherop/pkg/core/graph"
	"github.com/gomlx/gatherop/pkg/core/shapes"
	"github.com/gomlx/gatherop/pkg/gather"
	"github.com/gomlx/gatherop/pkg/ops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Aliases
var (
	MS  = shapes.Make
	F32 = dtypes.Float32
	I32 = dtypes.Int32
	I64 = dtypes.Int64
)

func newBackend(t *testing.T, config string) backends.Backend {
	backend, err := backends.NewWithConfig(cpu.BackendName + ":" + config)
	require.NoError(t, err)
	t.Cleanup(backend.Finalize)
	return backend
}

// referenceGather is a straightforward implementation of gather over flat row-major values.
func referenceGather[T any](dictionary []T, dictDims []int, indices []int64, indicesDims []int, axis, batchDims int) []T {
	product := func(dims []int) int {
		p := 1
		for _, d := range dims {
			p *= d
		}
		return p
	}
	batchCount := product(dictDims[:batchDims])
	outer := product(dictDims[batchDims:axis])
	indexRange := dictDims[axis]
	inner := product(dictDims[axis+1:])
	numIndices := product(indicesDims[batchDims:])
	var output []T
	for b := range batchCount {
		for o := range outer {
			for i := range numIndices {
				index := int(indices[b*numIndices+i])
				if index < 0 {
					index += indexRange
				}
				start := ((b*outer+o)*indexRange + index) * inner
				output = append(output, dictionary[start:start+inner]...)
			}
		}
	}
	return output
}

// executeGather runs the node on backend with iota dictionary and the given indices, and returns the output.
func executeGather(t *testing.T, backend backends.Backend, node *graph.Node, indices []int64) []float32 {
	op, err := ops.New(node.OpName(), backend, node)
	require.NoError(t, err)

	dictShape, indicesShape, outShape := node.InputShape(0), node.InputShape(1), node.OutputShape(0)
	dictFlat := make([]float32, dictShape.Size())
	for i := range dictFlat {
		dictFlat[i] = float32(i)
	}
	dict, err := backend.BufferFromFlatData(dictFlat, dictShape)
	require.NoError(t, err)
	var indicesBuf backends.Buffer
	if indicesShape.DType == I32 {
		indices32 := make([]int32, len(indices))
		for i, v := range indices {
			indices32[i] = int32(v)
		}
		indicesBuf, err = backend.BufferFromFlatData(indices32, indicesShape)
	} else {
		indicesBuf, err = backend.BufferFromFlatData(indices, indicesShape)
	}
	require.NoError(t, err)
	axis, err := backend.BufferFromFlatData([]int64{int64(node.Axis())}, graph.AxisShape)
	require.NoError(t, err)
	out, err := backend.NewBuffer(outShape)
	require.NoError(t, err)

	stream := backend.NewStream()
	defer stream.Finalize()
	op.Execute(stream, []backends.Buffer{dict, indicesBuf, axis}, []backends.Buffer{out})
	require.NoError(t, stream.Synchronize())
	got := make([]float32, outShape.Size())
	require.NoError(t, backend.BufferToFlatData(out, got))
	return got
}

func TestExecute(t *testing.T) {
	testCases := []struct {
		dictDims, indicesDims []int
		indicesDType          dtypes.DType
		indices               []int64
		axis, batchDims       int
		v7                    bool
	}{
		{[]int{4, 3}, []int{2}, I32, []int64{3, -4}, 0, 0, false},
		{[]int{5, 2, 1}, []int{1}, I64, []int64{1}, 1, 0, false},               // Dict-parallel.
		{[]int{6, 4, 12}, []int{2, 2}, I32, []int64{0, 3, -1, 2}, 1, 0, false}, // Tie, chunk-parallel.
		{[]int{3, 7}, []int{}, I64, []int64{-2}, 1, 0, false},                  // Scalar index.
		{[]int{2, 5, 4, 3}, []int{2, 6}, I64, []int64{0, 1, 2, 3, -1, -2, 3, 3, 2, 2, 1, 0}, 2, 1, true},
		{[]int{3, 300, 2}, []int{3, 2}, I32, []int64{0, 1, 1, 0, 1, 1}, 2, 1, true}, // Batched dict-parallel.
		{[]int{2, 2500}, []int{2, 3}, I32, []int64{0, 1, 1, 1, 0, 0}, 0, 0, true},   // Multiple blocks.
	}
	for _, parallelism := range []int{0, 4} {
		backend := newBackend(t, fmt.Sprintf("max_threads_per_block=64,parallelism=%d", parallelism))
		for _, tc := range testCases {
			name := fmt.Sprintf("parallelism=%d/dict=%v/indices=%v/axis=%d/batch_dims=%d",
				parallelism, tc.dictDims, tc.indicesDims, tc.axis, tc.batchDims)
			t.Run(name, func(t *testing.T) {
				dictShape := MS(F32, tc.dictDims...)
				indicesShape := MS(tc.indicesDType, tc.indicesDims...)
				var node *graph.Node
				if tc.v7 {
					node = graph.GatherV7(dictShape, indicesShape, tc.axis, tc.batchDims)
				} else {
					node = graph.Gather(dictShape, indicesShape, tc.axis)
				}
				got := executeGather(t, backend, node, tc.indices)
				dictFlat := make([]float32, dictShape.Size())
				for i := range dictFlat {
					dictFlat[i] = float32(i)
				}
				want := referenceGather(dictFlat, tc.dictDims, tc.indices, tc.indicesDims, tc.axis, tc.batchDims)
				require.Equal(t, want, got)
			})
		}
	}
}

func TestNew(t *testing.T) {
	backend := newBackend(t, "")
	node := graph.Gather(MS(F32, 4, 3), MS(I32, 2), 0)
	params, err := gather.ParamsV1(node)
	require.NoError(t, err)
	op, err := gather.New(backend, node, params)
	require.NoError(t, err)

	config := op.Config()
	assert.Equal(t, backends.GatherConfig{
		DType: F32, IndicesDType: I32,
		NumDicts: 1, IndexRange: 4, DataLength: 3, IndicesSize: 2, BatchCount: 1,
		GatherChunks:  true,
		BlocksPerGrid: 1, ThreadsPerBlock: 2, GridDimX: 1,
		DictsBatchStride: 12, IndicesBatchStride: 2, OutBatchStride: 6,
		ElsPerThreadChunks: gather.ElsPerThreadChunks, ElsPerThreadDicts: gather.ElsPerThreadDicts,
	}, config)
	assert.Equal(t, gather.ChunkParallel, op.Plan().Strategy)
	assert.Equal(t, uint32(6), op.Geometry().OutSize)
	assert.Contains(t, op.String(), "kernel=chunks")

	// Errors are reported at configuration time.
	_, err = gather.New(backend, node.WithOutputShape(MS(F32, 5)), params)
	require.ErrorIs(t, err, gather.ErrOutOfBoundsGeometry)
	_, err = gather.New(backend, node.WithOutputShape(MS(dtypes.Int8, 2, 3)), params)
	require.ErrorIs(t, err, gather.ErrTypeMismatch)
	_, err = gather.New(backend, node, gather.Params{Axis: 2})
	require.ErrorIs(t, err, gather.ErrInvalidAxis)

	// The output batch axes must match the dictionary's, or the kernel would write past the output.
	batched := graph.GatherV7(MS(F32, 2, 4, 3), MS(I32, 2, 1), 1, 1)
	batchedParams, err := gather.ParamsV7(batched)
	require.NoError(t, err)
	_, err = gather.New(backend, batched.WithOutputShape(MS(F32, 1, 1, 3)), batchedParams)
	require.ErrorIs(t, err, gather.ErrOutOfBoundsGeometry)

	// Device limits come from the backend.
	small := newBackend(t, "max_grid=1x1x1")
	_, err = gather.New(small, node, params)
	require.ErrorIs(t, err, gather.ErrDeviceLimitExceeded)

	// Packed dtypes have no kernel.
	node = graph.Gather(MS(dtypes.S4, 4, 3), MS(I32, 2), 0)
	_, err = gather.New(backend, node, params)
	require.ErrorIs(t, err, gather.ErrUnsupportedElementType)
}

// fakeNode has no version specific accessors, and can hold unranked shapes.
type fakeNode struct {
	inputs  []shapes.Shape
	outputs []shapes.Shape
}

func (n *fakeNode) NumInputs() int                 { return len(n.inputs) }
func (n *fakeNode) NumOutputs() int                { return len(n.outputs) }
func (n *fakeNode) InputShape(i int) shapes.Shape  { return n.inputs[i] }
func (n *fakeNode) OutputShape(i int) shapes.Shape { return n.outputs[i] }

func TestNewWithFakeNode(t *testing.T) {
	backend := newBackend(t, "")
	node := &fakeNode{
		inputs:  []shapes.Shape{shapes.MakeUnranked(F32), MS(I32, 2), graph.AxisShape},
		outputs: []shapes.Shape{MS(F32, 2, 3)},
	}
	_, err := gather.New(backend, node, gather.Params{})
	require.ErrorIs(t, err, gather.ErrUnsupportedShape)

	node.inputs[0] = MS(dtypes.Dynamic, 4, 3)
	node.outputs[0] = MS(dtypes.Dynamic, 2, 3)
	_, err = gather.New(backend, node, gather.Params{})
	require.ErrorIs(t, err, gather.ErrUnsupportedElementType)

	node.outputs = nil
	_, err = gather.New(backend, node, gather.Params{})
	require.Error(t, err)

	// Version adapters require the accessors.
	_, err = gather.ParamsV1(node)
	require.Error(t, err)
	_, err = gather.ParamsV7(node)
	require.Error(t, err)
	_, err = ops.New(gather.OpNameV7, backend, node)
	require.Error(t, err)
	_, err = gather.ParamsV7(graph.Gather(MS(F32, 4, 3), MS(I32, 2), 0))
	require.NoError(t, err)
}

func TestExecuteContract(t *testing.T) {
	backend := newBackend(t, "")
	node := graph.Gather(MS(F32, 4, 3), MS(I32, 2), 0)
	op, err := ops.New(gather.OpNameV1, backend, node)
	require.NoError(t, err)
	stream := backend.NewStream()
	defer stream.Finalize()

	dict, err := backend.NewBuffer(MS(F32, 4, 3))
	require.NoError(t, err)
	indices, err := backend.BufferFromFlatData([]int32{0, 9}, MS(I32, 2))
	require.NoError(t, err)
	axis, err := backend.NewBuffer(graph.AxisShape)
	require.NoError(t, err)
	out, err := backend.NewBuffer(MS(F32, 2, 3))
	require.NoError(t, err)

	// Arity violations panic.
	err = exceptions.TryCatch[error](func() {
		op.Execute(stream, []backends.Buffer{dict, indices}, []backends.Buffer{out})
	})
	require.Error(t, err)
	err = exceptions.TryCatch[error](func() {
		op.Execute(stream, []backends.Buffer{dict, indices, axis}, nil)
	})
	require.Error(t, err)

	// Launch failures panic.
	err = exceptions.TryCatch[error](func() {
		op.Execute(stream, []backends.Buffer{dict, indices, axis}, []backends.Buffer{dict})
	})
	require.Error(t, err)

	// Out of range indices are device faults reported by the stream.
	op.Execute(stream, []backends.Buffer{dict, indices, axis}, []backends.Buffer{out})
	require.ErrorIs(t, stream.Synchronize(), cpu.ErrIndexOutOfRange)
}

func TestRegistered(t *testing.T) {
	assert.Subset(t, ops.List(), []string{gather.OpNameV1, gather.OpNameV7})
}

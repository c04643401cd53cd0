// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graph

import (
	"testing"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gatherop/pkg/core/dtypes"
	"github.com/gomlx/gatherop/pkg/core/shapes"
	"github.com/gomlx/gatherop/pkg/gather"
	"github.com/pkg/errors"
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

func TestGather(t *testing.T) {
	node := Gather(MS(F32, 4, 3), MS(I32, 2), 0)
	assert.Equal(t, gather.OpNameV1, node.OpName())
	assert.Equal(t, 3, node.NumInputs())
	assert.Equal(t, 1, node.NumOutputs())
	assert.True(t, node.OutputShape(0).Equal(MS(F32, 2, 3)))
	assert.True(t, node.InputShape(2).Equal(AxisShape))
	assert.Equal(t, 0, node.BatchDims())
	assert.Panics(t, func() { node.InputShape(3) })
	assert.Panics(t, func() { node.OutputShape(1) })

	// Negative axis.
	node = Gather(MS(F32, 5, 4, 3), MS(I64, 7, 2), -2)
	assert.Equal(t, 1, node.Axis())
	assert.True(t, node.OutputShape(0).Equal(MS(F32, 5, 7, 2, 3)))
	params, err := gather.ParamsV1(node)
	require.NoError(t, err)
	assert.Equal(t, gather.Params{Axis: 1}, params)

	err = exceptions.TryCatch[error](func() { Gather(MS(F32, 4, 3), MS(I32, 2), 2) })
	require.ErrorIs(t, err, gather.ErrInvalidAxis)
	err = exceptions.TryCatch[error](func() { Gather(MS(F32, 4, 3), MS(F32, 2), 0) })
	require.ErrorIs(t, err, gather.ErrUnsupportedElementType)
}

func TestGatherV7(t *testing.T) {
	node := GatherV7(MS(F32, 2, 5, 4, 3), MS(I32, 2, 6), 2, -1)
	assert.Equal(t, gather.OpNameV7, node.OpName())
	assert.Equal(t, 1, node.BatchDims())
	assert.True(t, node.OutputShape(0).Equal(MS(F32, 2, 5, 6, 3)))
	assert.Contains(t, node.String(), "batch_dims=1")

	params, err := gather.ParamsV7(node)
	require.NoError(t, err)
	assert.Equal(t, gather.Params{Axis: 2, BatchDims: 1, HasBatchDims: true}, params)

	err = exceptions.TryCatch[error](func() { GatherV7(MS(F32, 2, 5, 4, 3), MS(I32, 2, 6), 0, 1) })
	require.True(t, errors.Is(err, gather.ErrInvalidBatchDims))
	err = exceptions.TryCatch[error](func() { GatherV7(MS(F32, 2, 4, 3), MS(I32, 3, 1), 1, 1) })
	require.ErrorIs(t, err, gather.ErrInvalidBatchDims)

	// Output override.
	small := node.WithOutputShape(MS(F32, 2, 1))
	assert.True(t, small.OutputShape(0).Equal(MS(F32, 2, 1)))
	assert.True(t, node.OutputShape(0).Equal(MS(F32, 2, 5, 6, 3)))
}

// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package graph holds the static graph nodes device operations are configured from.
//
// Node constructors validate their inputs and panic (see package github.com/gomlx/exceptions) with an error
// on invalid arguments: use exceptions.TryCatch[error] to convert them to errors.
package graph

import (
	"fmt"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gatherop/pkg/core/dtypes"
	"github.com/gomlx/gatherop/pkg/core/shapes"
	"github.com/gomlx/gatherop/pkg/gather"
	"github.com/gomlx/gatherop/pkg/ops"
	"github.com/pkg/errors"
)

// Node is a gather node of a graph, of version 1 (no batch dimensions) or version 7 (batched).
//
// It implements gather.Node, gather.GatherLike and gather.Batched.
type Node struct {
	opName    string
	axis      int
	batchDims int
	inputs    [3]shapes.Shape
	output    shapes.Shape
}

var (
	_ ops.Node          = (*Node)(nil)
	_ gather.GatherLike = (*Node)(nil)
	_ gather.Batched    = (*Node)(nil)
)

// AxisShape is the shape of the axis input of gather nodes: a scalar.
var AxisShape = shapes.Make(dtypes.Int64)

// Gather returns a version 1 gather node: it gathers the slices of dictionary along axis selected by indices.
//
// A negative axis counts from the end of the dictionary axes.
func Gather(dictionary, indices shapes.Shape, axis int) *Node {
	return newGather(gather.OpNameV1, dictionary, indices, axis, 0, false)
}

// GatherV7 returns a version 7 gather node: like Gather, but the first batchDims axes of dictionary and
// indices are batch axes, gathered independently.
//
// Negative axis and batchDims count from the end of the dictionary and indices axes respectively.
func GatherV7(dictionary, indices shapes.Shape, axis, batchDims int) *Node {
	if batchDims < 0 && indices.HasStaticRank() {
		batchDims += indices.Rank()
	}
	return newGather(gather.OpNameV7, dictionary, indices, axis, batchDims, true)
}

func newGather(opName string, dictionary, indices shapes.Shape, axis, batchDims int, hasBatchDims bool) *Node {
	if axis < 0 && dictionary.HasStaticRank() {
		axis += dictionary.Rank()
	}
	params := gather.Params{Axis: axis, BatchDims: batchDims, HasBatchDims: hasBatchDims}
	output, err := gather.OutputShape(dictionary, indices, params)
	if err != nil {
		panic(errors.WithMessagef(err, "%s", opName))
	}
	return &Node{
		opName:    opName,
		axis:      axis,
		batchDims: batchDims,
		inputs:    [3]shapes.Shape{dictionary, indices, AxisShape},
		output:    output,
	}
}

// WithOutputShape returns a copy of the node with its output shape replaced.
func (n *Node) WithOutputShape(output shapes.Shape) *Node {
	n2 := *n
	n2.output = output
	return &n2
}

// OpName is the name of the operation in package ops. E.g.: "Gather-7".
func (n *Node) OpName() string { return n.opName }

// Axis implements gather.GatherLike.
func (n *Node) Axis() int { return n.axis }

// BatchDims implements gather.Batched. It is always 0 for version 1 nodes.
func (n *Node) BatchDims() int { return n.batchDims }

// NumInputs returns 3: dictionary, indices and axis.
func (n *Node) NumInputs() int { return len(n.inputs) }

// NumOutputs returns 1.
func (n *Node) NumOutputs() int { return 1 }

// InputShape returns the shape of the i-th input.
func (n *Node) InputShape(i int) shapes.Shape {
	if i < 0 || i >= len(n.inputs) {
		exceptions.Panicf("%s has %d inputs, input #%d requested", n.opName, len(n.inputs), i)
	}
	return n.inputs[i]
}

// OutputShape returns the shape of the only output.
func (n *Node) OutputShape(i int) shapes.Shape {
	if i != 0 {
		exceptions.Panicf("%s has 1 output, output #%d requested", n.opName, i)
	}
	return n.output
}

// String implements fmt.Stringer.
func (n *Node) String() string {
	if n.opName == gather.OpNameV7 {
		return fmt.Sprintf("%s(dictionary=%s, indices=%s, axis=%d, batch_dims=%d) -> %s",
			n.opName, n.inputs[0], n.inputs[1], n.axis, n.batchDims, n.output)
	}
	return fmt.Sprintf("%s(dictionary=%s, indices=%s, axis=%d) -> %s",
		n.opName, n.inputs[0], n.inputs[1], n.axis, n.output)
}

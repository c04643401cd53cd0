// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package gather

import (
	"github.com/gomlx/gatherop/backends"
	"github.com/gomlx/gatherop/pkg/ops"
	"github.com/pkg/errors"
)

// Node is the view of the graph node a gather is configured from.
// Its inputs are (dictionary, indices, axis) and its only output is the gathered tensor.
type Node = ops.Node

// GatherLike is implemented by the nodes of all gather versions.
type GatherLike interface {
	// Axis of the dictionary being gathered, already normalized to be non-negative.
	Axis() int
}

// Batched is implemented by gather nodes with batch dimensions.
type Batched interface {
	BatchDims() int
}

// ParamsV1 returns the Params of a version 1 gather node: it has no batch dimensions.
func ParamsV1(node Node) (Params, error) {
	gatherLike, ok := node.(GatherLike)
	if !ok {
		return Params{}, errors.Errorf("node %T is not a gather: it has no Axis()", node)
	}
	return Params{Axis: gatherLike.Axis()}, nil
}

// ParamsV7 returns the Params of a version 7 gather node, with batch dimensions.
func ParamsV7(node Node) (Params, error) {
	params, err := ParamsV1(node)
	if err != nil {
		return params, err
	}
	batched, ok := node.(Batched)
	if !ok {
		return Params{}, errors.Errorf("node %T is not a batched gather: it has no BatchDims()", node)
	}
	params.BatchDims = batched.BatchDims()
	params.HasBatchDims = true
	return params, nil
}

// Names the gather operation is registered with in package ops, per version.
const (
	OpNameV1 = "Gather-1"
	OpNameV7 = "Gather-7"
)

func init() {
	register := func(name string, paramsFn func(Node) (Params, error)) {
		ops.Register(name, func(backend backends.Backend, node ops.Node) (ops.Operation, error) {
			params, err := paramsFn(node)
			if err != nil {
				return nil, err
			}
			return New(backend, node, params)
		})
	}
	register(OpNameV1, ParamsV1)
	register(OpNameV7, ParamsV7)
}

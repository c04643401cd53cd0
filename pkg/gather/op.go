// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package gather configures and dispatches the gather operation on a device backend.
//
// Gather copies, for every index, the slice of the dictionary selected along an axis:
//
//	output[b..., d..., i..., r...] = dictionary[b..., d..., indices[b..., i...], r...]
//
// where b are the (optional) batch axes shared by dictionary and indices, d the dictionary axes before the
// gathered axis, i the indices axes and r the dictionary axes after the gathered axis.
//
// Configuration is done once per node (see New): ResolveGeometry flattens the shapes into a Geometry,
// a Planner picks the parallel decomposition within the device limits, and the backend compiles the
// resulting backends.GatherConfig. Execution (Op.Execute) is a single enqueue on a stream.
package gather

import (
	"github.com/gomlx/exceptions"
	"github.com/gomlx/gatherop/backends"
	"github.com/gomlx/gatherop/pkg/ops"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Op is a gather configured for one node. It is immutable and can be executed concurrently on
// different streams, as long as the outputs are distinct.
type Op struct {
	backend  backends.Backend
	geometry Geometry
	plan     LaunchPlan
	config   backends.GatherConfig
	kernel   backends.GatherKernel
}

var _ ops.Operation = (*Op)(nil)

// New configures a gather for node, to be executed by backend.
//
// The node must have 3 inputs (dictionary, indices, axis) and 1 output.
// Errors wrap one of the package sentinels (see ErrUnsupportedShape and others).
func New(backend backends.Backend, node Node, params Params) (*Op, error) {
	if node.NumInputs() != 3 || node.NumOutputs() != 1 {
		return nil, errors.Errorf("gather node must have 3 inputs and 1 output, got %d inputs and %d outputs",
			node.NumInputs(), node.NumOutputs())
	}
	dictionary, indices, output := node.InputShape(0), node.InputShape(1), node.OutputShape(0)
	geometry, err := ResolveGeometry(dictionary, indices, node.InputShape(2), output, params)
	if err != nil {
		return nil, err
	}
	caps := backend.Capabilities()
	plan, err := NewPlanner(caps).Plan(geometry)
	if err != nil {
		return nil, err
	}
	op := &Op{
		backend:  backend,
		geometry: geometry,
		plan:     plan,
		config: backends.GatherConfig{
			DType:              dictionary.DType,
			IndicesDType:       indices.DType,
			NumDicts:           geometry.NumDicts,
			IndexRange:         geometry.IndexRange,
			DataLength:         geometry.DataLength,
			IndicesSize:        geometry.IndicesSize,
			BatchCount:         geometry.BatchCount,
			GatherChunks:       plan.Strategy == ChunkParallel,
			BlocksPerGrid:      plan.BlocksPerGrid,
			ThreadsPerBlock:    plan.ThreadsPerBlock,
			GridDimX:           plan.GridDimX(),
			DictsBatchStride:   geometry.DictsBatchStride,
			IndicesBatchStride: geometry.IndicesBatchStride,
			OutBatchStride:     geometry.OutBatchStride,
			ElsPerThreadChunks: ElsPerThreadChunks,
			ElsPerThreadDicts:  ElsPerThreadDicts,
		},
	}
	if !caps.DTypes[dictionary.DType] {
		return nil, errors.Wrapf(ErrUnsupportedElementType, "backend %q doesn't support dtype %s (dictionary %s)",
			backend.Name(), dictionary.DType, dictionary)
	}
	op.kernel, err = backend.CompileGather(op.config)
	if err != nil {
		return nil, errors.Wrapf(ErrUnsupportedElementType, "%v", err)
	}
	klog.V(1).Infof("gather configured: dictionary=%s, indices=%s, output=%s, %s", dictionary, indices, output, plan)
	klog.V(2).Infof("gather geometry: %s", geometry)
	return op, nil
}

// Config returns the execution descriptor the kernel was compiled with.
func (op *Op) Config() backends.GatherConfig { return op.config }

// Geometry returns the resolved geometry.
func (op *Op) Geometry() Geometry { return op.geometry }

// Plan returns the launch plan.
func (op *Op) Plan() LaunchPlan { return op.plan }

// String implements fmt.Stringer.
func (op *Op) String() string { return op.config.String() }

// Execute enqueues the gather on stream, and returns without waiting for it.
//
// The inputs are (dictionary, indices, axis) and the only output receives the result, once the stream is
// synchronized. The axis buffer is not read. The buffers are borrowed until then.
//
// It panics if the number of buffers is wrong, or if the kernel can't be launched.
func (op *Op) Execute(stream backends.Stream, inputs, outputs []backends.Buffer) {
	if len(inputs) != 3 || len(outputs) != 1 {
		exceptions.Panicf("gather expects 3 inputs and 1 output, got %d inputs and %d outputs",
			len(inputs), len(outputs))
	}
	if err := op.kernel.Launch(stream, inputs[0], inputs[1], outputs[0]); err != nil {
		panic(errors.WithMessagef(err, "failed to launch %s on backend %q", op, op.backend.Name()))
	}
}

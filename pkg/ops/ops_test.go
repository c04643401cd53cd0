// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package ops

import (
	"testing"

	"github.com/gomlx/gatherop/backends"
	"github.com/gomlx/gatherop/pkg/core/shapes"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNode struct{}

func (fakeNode) NumInputs() int               { return 0 }
func (fakeNode) NumOutputs() int              { return 0 }
func (fakeNode) InputShape(int) shapes.Shape  { return shapes.Invalid() }
func (fakeNode) OutputShape(int) shapes.Shape { return shapes.Invalid() }

type fakeOp struct{ executed int }

func (op *fakeOp) Execute(backends.Stream, []backends.Buffer, []backends.Buffer) { op.executed++ }

func TestRegistry(t *testing.T) {
	op := &fakeOp{}
	Register("Fake-1", func(backends.Backend, Node) (Operation, error) { return op, nil })
	errConfig := errors.New("bad node")
	Register("Fake-2", func(backends.Backend, Node) (Operation, error) { return nil, errConfig })
	assert.Subset(t, List(), []string{"Fake-1", "Fake-2"})

	got, err := New("Fake-1", nil, fakeNode{})
	require.NoError(t, err)
	got.Execute(nil, nil, nil)
	assert.Equal(t, 1, op.executed)

	_, err = New("Fake-2", nil, fakeNode{})
	require.ErrorIs(t, err, errConfig)
	assert.Contains(t, err.Error(), "Fake-2")

	_, err = New("Unknown-1", nil, fakeNode{})
	require.Error(t, err)
}

// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package ops is the registry of device operations: each operation registers a constructor under its
// versioned name (e.g. "Gather-7"), used to configure it from a graph node.
package ops

import (
	"github.com/gomlx/gatherop/backends"
	"github.com/gomlx/gatherop/pkg/core/shapes"
	"github.com/gomlx/gatherop/pkg/support/sets"
	"github.com/pkg/errors"
)

// Node is the view of a graph node an operation is configured from.
//
// Operations may require further capabilities from the node (e.g. an axis accessor), by type assertion.
type Node interface {
	NumInputs() int
	NumOutputs() int
	InputShape(i int) shapes.Shape
	OutputShape(i int) shapes.Shape
}

// Operation is a configured operation, ready to be executed many times.
type Operation interface {
	// Execute enqueues the operation on the stream. It panics on contract violations or device errors.
	Execute(stream backends.Stream, inputs, outputs []backends.Buffer)
}

// Constructor configures an operation for the node, to be executed by backend.
type Constructor func(backend backends.Backend, node Node) (Operation, error)

var registeredConstructors = make(map[string]Constructor)

// Register the constructor of an operation under the given name.
// It overwrites any previous registration with the same name.
//
// To be safe, call Register during initialization of a package.
func Register(name string, constructor Constructor) {
	registeredConstructors[name] = constructor
}

// List returns the registered operation names, sorted.
func List() []string {
	names := sets.Make[string](len(registeredConstructors))
	for name := range registeredConstructors {
		names.Insert(name)
	}
	return sets.Sorted(names)
}

// New configures the operation registered under name for the node.
func New(name string, backend backends.Backend, node Node) (Operation, error) {
	constructor, found := registeredConstructors[name]
	if !found {
		return nil, errors.Errorf("operation %q not registered, registered operations: %v", name, List())
	}
	op, err := constructor(backend, node)
	if err != nil {
		return nil, errors.WithMessagef(err, "configuring operation %q", name)
	}
	return op, nil
}

// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package shapes defines Shape and associated tools.
//
// Shape represents the shape (rank, dimensions and DType) of a tensor as seen by a device kernel, or as
// declared by a node of a computation graph. Graph nodes may declare shapes that are not fully known yet: either
// the rank itself is unknown (see MakeUnranked) or some axes have a dynamic dimension (DimDynamic).
// Only static shapes -- known rank, all dimensions known -- can be laid out in device buffers.
//
// ## Glossary
//
//   - Rank: number of axes (dimensions) of a Tensor.
//   - Axis: is the index of a dimension on a multidimensional Tensor. Sometimes used
//     interchangeably with Dimension, but here we try to refer to a dimension index as "axis"
//     (plural axes), and its size as its dimension.
//   - Dimension: the size of a multi-dimensions Tensor in one of its axes.
//   - DType: the data type of the unit element in a tensor.
//   - Scalar: is a shape where there are no axes (or dimensions), only a single value
//     of the associated DType.
//
// Example: The multi-dimensional array `[][]int32{{0, 1, 2}, {3, 4, 5}}` if converted to a Tensor
// would have shape `(Int32)[2 3]`. We say it has rank 2 (so 2 axes), axis 0 has
// dimension 2, and axis 1 has dimension 3. This shape could be created with
// `shapes.Make(dtypes.Int32, 2, 3)`.
package shapes

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gatherop/pkg/core/dtypes"
)

// DimDynamic is the dimension of an axis whose size is not known yet.
const DimDynamic = -1

// Shape represents the shape of either a Tensor or the expected shape
// of the value from a computation node.
//
// Use Make to create a new shape.
type Shape struct {
	DType      dtypes.DType
	Dimensions []int

	// unranked is set for shapes whose rank is not known, see MakeUnranked.
	unranked bool
}

// Make returns a static Shape structure filled with the values given.
//
// Dimensions can be 0 (an empty axis), but not negative: see MakeDynamic for axes with unknown dimensions.
func Make(dtype dtypes.DType, dimensions ...int) Shape {
	s := Shape{Dimensions: slices.Clone(dimensions), DType: dtype}
	for _, dim := range dimensions {
		if dim < 0 {
			exceptions.Panicf("shapes.Make(%s): cannot create a shape with an axis with dimension < 0", s)
		}
	}
	return s
}

// MakeDynamic returns a Shape where some axes may have the dimension DimDynamic.
func MakeDynamic(dtype dtypes.DType, dimensions ...int) Shape {
	s := Shape{Dimensions: slices.Clone(dimensions), DType: dtype}
	for _, dim := range dimensions {
		if dim < 0 && dim != DimDynamic {
			exceptions.Panicf("shapes.MakeDynamic(%s): invalid dimension %d", s, dim)
		}
	}
	return s
}

// MakeUnranked returns a Shape of the given dtype whose rank is not known.
func MakeUnranked(dtype dtypes.DType) Shape {
	return Shape{DType: dtype, unranked: true}
}

// Invalid returns an invalid shape.
//
// Invalid().Ok() == false.
func Invalid() Shape {
	return Shape{DType: dtypes.InvalidDType}
}

// Ok returns whether this is a valid Shape. A "zero" shape, that is just instantiating it with Shape{} will be invalid.
func (s Shape) Ok() bool { return s.DType != dtypes.InvalidDType }

// Rank of the shape, that is, the number of dimensions.
// It returns -1 if the rank is not known.
func (s Shape) Rank() int {
	if s.unranked {
		return -1
	}
	return len(s.Dimensions)
}

// HasStaticRank returns whether the rank of the shape is known.
func (s Shape) HasStaticRank() bool { return !s.unranked }

// IsDynamic returns whether any of the axes has a dynamic dimension, or if the rank is unknown.
func (s Shape) IsDynamic() bool {
	return s.unranked || slices.Contains(s.Dimensions, DimDynamic)
}

// IsStatic returns whether the rank and all dimensions are known.
func (s Shape) IsStatic() bool { return !s.IsDynamic() }

// IsScalar returns whether the shape represents a scalar, that is there are no dimensions (rank==0).
func (s Shape) IsScalar() bool { return s.Ok() && s.Rank() == 0 }

// Dim returns the dimension of the given axis. axis can take negative numbers, in which
// case it counts as starting from the end -- so axis=-1 refers to the last axis.
// Like with a slice indexing, it panics for an out-of-bound axis.
func (s Shape) Dim(axis int) int {
	adjustedAxis := axis
	if adjustedAxis < 0 {
		adjustedAxis += s.Rank()
	}
	if adjustedAxis < 0 || adjustedAxis >= s.Rank() {
		exceptions.Panicf("Shape.Dim(%d) out-of-bounds for rank %d (shape=%s)", axis, s.Rank(), s)
	}
	return s.Dimensions[adjustedAxis]
}

// String implements stringer, pretty-prints the shape.
func (s Shape) String() string {
	if s.unranked {
		return fmt.Sprintf("(%s)[...]", s.DType)
	}
	if s.Rank() == 0 {
		return fmt.Sprintf("(%s)", s.DType)
	}
	parts := make([]string, len(s.Dimensions))
	for ii, dim := range s.Dimensions {
		if dim == DimDynamic {
			parts[ii] = "?"
		} else {
			parts[ii] = fmt.Sprintf("%d", dim)
		}
	}
	return fmt.Sprintf("(%s)[%s]", s.DType, strings.Join(parts, " "))
}

// Size returns the number of elements of DType are needed for this shape. It's the product of all dimensions.
// It panics for dynamic shapes.
func (s Shape) Size() (size int) {
	if s.IsDynamic() {
		exceptions.Panicf("Shape.Size() undefined for dynamic shape %s", s)
	}
	size = 1
	for _, d := range s.Dimensions {
		size *= d
	}
	return
}

// Memory returns the memory used to store an array of the given shape, the same as the size in bytes.
func (s Shape) Memory() uintptr {
	return uintptr(s.DType.SizeForDimensions(s.Dimensions...))
}

// Equal compares two shapes for equality: dtype and dimensions are compared.
func (s Shape) Equal(s2 Shape) bool {
	if s.DType != s2.DType || s.unranked != s2.unranked {
		return false
	}
	return slices.Equal(s.Dimensions, s2.Dimensions)
}

// Clone returns a new deep copy of the shape.
func (s Shape) Clone() (s2 Shape) {
	s2.DType = s.DType
	s2.Dimensions = slices.Clone(s.Dimensions)
	s2.unranked = s.unranked
	return
}

// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package gather

import (
	"slices"

	"github.com/gomlx/gatherop/pkg/core/shapes"
	"github.com/pkg/errors"
)

// OutputShape returns the shape of gathering indices from dictionary: the dictionary dimensions before the axis,
// followed by the indices dimensions after the batch dimensions, followed by the dictionary dimensions after the axis.
//
// Dynamic dimensions are carried over, but the ranks must be known.
func OutputShape(dictionary, indices shapes.Shape, params Params) (shapes.Shape, error) {
	if !dictionary.HasStaticRank() || !indices.HasStaticRank() {
		return shapes.Invalid(), errors.Wrapf(ErrUnsupportedShape,
			"gather requires known ranks, got dictionary %s and indices %s", dictionary, indices)
	}
	if !IndicesDTypes.Has(indices.DType) {
		return shapes.Invalid(), errors.Wrapf(ErrUnsupportedElementType,
			"gather indices must be Int32 or Int64, got %s", indices)
	}
	rank := dictionary.Rank()
	axis := params.Axis
	if axis < 0 || axis >= rank {
		return shapes.Invalid(), errors.Wrapf(ErrInvalidAxis, "axis=%d for gather dictionary %s", axis, dictionary)
	}
	batchDims := 0
	if params.HasBatchDims {
		batchDims = params.BatchDims
		if batchDims < 0 || batchDims >= rank || batchDims >= indices.Rank() || batchDims > axis {
			return shapes.Invalid(), errors.Wrapf(ErrInvalidBatchDims,
				"batch_dims=%d for gather dictionary %s, indices %s and axis=%d", batchDims, dictionary, indices, axis)
		}
		for ii := range batchDims {
			dictDim, indicesDim := dictionary.Dimensions[ii], indices.Dimensions[ii]
			if dictDim != indicesDim && dictDim != shapes.DimDynamic && indicesDim != shapes.DimDynamic {
				return shapes.Invalid(), errors.Wrapf(ErrInvalidBatchDims,
					"batch axis %d of gather dictionary %s and indices %s don't match", ii, dictionary, indices)
			}
		}
	}
	dims := slices.Concat(dictionary.Dimensions[:axis], indices.Dimensions[batchDims:], dictionary.Dimensions[axis+1:])
	return shapes.MakeDynamic(dictionary.DType, dims...), nil
}

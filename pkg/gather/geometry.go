// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package gather

import (
	"fmt"
	"math"
	"math/bits"
	"slices"

	"github.com/gomlx/gatherop/pkg/core/dtypes"
	"github.com/gomlx/gatherop/pkg/core/shapes"
	"github.com/gomlx/gatherop/pkg/support/sets"
	"github.com/pkg/errors"
)

// Geometry is the flattened iteration space of a gather.
//
// The dictionary is seen as [BatchCount, NumDicts, IndexRange, DataLength], the indices as
// [BatchCount, IndicesSize] and the output as [BatchCount, NumDicts, IndicesSize, DataLength].
type Geometry struct {
	// NumDicts is the product of the dictionary dimensions between the batch dimensions and the axis.
	NumDicts uint32

	// IndexRange is the dictionary dimension at the axis.
	IndexRange uint32

	// DataLength is the product of the dictionary dimensions after the axis. Never 0.
	DataLength uint32

	// IndicesSize is the product of the indices dimensions after the batch dimensions.
	IndicesSize uint32

	// OutSize is the product of the output dimensions after the batch dimensions.
	OutSize uint32

	// BatchCount is the product of the batch dimensions.
	BatchCount uint32

	// Per-batch strides, in elements.
	DictsBatchStride, IndicesBatchStride, OutBatchStride uint32
}

// String implements fmt.Stringer.
func (g Geometry) String() string {
	return fmt.Sprintf("{num_dicts=%d, index_range=%d, data_length=%d, indices_size=%d, out_size=%d, "+
		"batch_count=%d, strides=(%d, %d, %d)}",
		g.NumDicts, g.IndexRange, g.DataLength, g.IndicesSize, g.OutSize, g.BatchCount,
		g.DictsBatchStride, g.IndicesBatchStride, g.OutBatchStride)
}

// Params are the gather attributes, independent of the operator version.
// See ParamsV1 and ParamsV7 to build them from a node.
type Params struct {
	// Axis of the dictionary being gathered.
	Axis int

	// BatchDims is the number of leading dimensions shared by the dictionary and the indices.
	// It is only used if HasBatchDims is set.
	BatchDims    int
	HasBatchDims bool
}

// IndicesDTypes are the dtypes accepted for the indices.
var IndicesDTypes = sets.MakeWith(dtypes.Int32, dtypes.Int64)

// unsupportedDictDTypes can't be gathered: they have no layout of whole elements.
var unsupportedDictDTypes = sets.MakeWith(dtypes.InvalidDType, dtypes.Dynamic, dtypes.U1)

// ResolveGeometry validates the shapes of a gather and returns its flattened Geometry.
//
// The axisSelector is only checked for being static: the axis itself is given in params.
// Errors wrap one of the package sentinels, with the offending shapes.
func ResolveGeometry(dictionary, indices, axisSelector, output shapes.Shape, params Params) (Geometry, error) {
	var g Geometry
	for _, operand := range []struct {
		name  string
		shape shapes.Shape
	}{{"dictionary", dictionary}, {"indices", indices}, {"axis", axisSelector}, {"output", output}} {
		if !operand.shape.IsStatic() {
			return g, errors.Wrapf(ErrUnsupportedShape, "gather %s shape %s is not static", operand.name, operand.shape)
		}
	}
	if unsupportedDictDTypes.Has(dictionary.DType) {
		return g, errors.Wrapf(ErrUnsupportedElementType, "gather dictionary dtype %s (shape %s)",
			dictionary.DType, dictionary)
	}
	if output.DType != dictionary.DType {
		return g, errors.Wrapf(ErrTypeMismatch, "gather output %s, dictionary %s", output, dictionary)
	}
	if !IndicesDTypes.Has(indices.DType) {
		return g, errors.Wrapf(ErrUnsupportedElementType, "gather indices must be Int32 or Int64, got %s", indices)
	}

	dictDims, indicesDims, outDims := dictionary.Dimensions, indices.Dimensions, output.Dimensions
	axis := params.Axis
	if axis < 0 || axis >= len(dictDims) {
		return g, errors.Wrapf(ErrInvalidAxis, "axis=%d for gather dictionary %s", axis, dictionary)
	}
	batchDims := 0
	if params.HasBatchDims {
		batchDims = params.BatchDims
		if batchDims < 0 || batchDims >= len(dictDims) || batchDims >= len(indicesDims) || batchDims > axis {
			return g, errors.Wrapf(ErrInvalidBatchDims,
				"batch_dims=%d must be in [0, min(%d, %d)) and <= axis=%d, for dictionary %s and indices %s",
				batchDims, len(dictDims), len(indicesDims), axis, dictionary, indices)
		}
		if !slices.Equal(dictDims[:batchDims], indicesDims[:batchDims]) {
			return g, errors.Wrapf(ErrInvalidBatchDims,
				"the first batch_dims=%d dimensions of dictionary %s and indices %s must match",
				batchDims, dictionary, indices)
		}
	}
	if batchDims > len(outDims) {
		return g, errors.Wrapf(ErrOutOfBoundsGeometry, "output %s has less than batch_dims=%d axes", output, batchDims)
	}
	if !slices.Equal(outDims[:batchDims], dictDims[:batchDims]) {
		return g, errors.Wrapf(ErrOutOfBoundsGeometry,
			"the first batch_dims=%d dimensions of output %s must match those of dictionary %s",
			batchDims, output, dictionary)
	}

	dataLength := product(dictDims[axis+1:])
	if dataLength == 0 {
		return g, errors.Wrapf(ErrEmptyDataLength, "dictionary %s has no elements after axis %d", dictionary, axis)
	}
	counts := []struct {
		name  string
		value uint64
		field *uint32
	}{
		{"num_dicts", product(dictDims[batchDims:axis]), &g.NumDicts},
		{"index_range", uint64(dictDims[axis]), &g.IndexRange},
		{"data_length", dataLength, &g.DataLength},
		{"indices_size", product(indicesDims[batchDims:]), &g.IndicesSize},
		{"out_size", product(outDims[batchDims:]), &g.OutSize},
		{"batch_count", product(dictDims[:batchDims]), &g.BatchCount},
		{"dicts_batch_stride", product(dictDims[batchDims:]), &g.DictsBatchStride},
		{"indices_batch_stride", product(indicesDims[batchDims:]), &g.IndicesBatchStride},
		{"out_batch_stride", product(outDims[batchDims:]), &g.OutBatchStride},
	}
	for _, count := range counts {
		if count.value > math.MaxUint32 {
			return g, errors.Wrapf(ErrOutOfBoundsGeometry,
				"%s=%d doesn't fit 32 bits, for dictionary %s, indices %s and output %s",
				count.name, count.value, dictionary, indices, output)
		}
		*count.field = uint32(count.value)
	}

	if required := g.requiredOutSize(); required > uint64(g.OutSize) {
		return g, errors.Wrapf(ErrOutOfBoundsGeometry,
			"gather writes up to %d elements per batch, but output %s only holds %d, for dictionary %s and indices %s",
			required, output, g.OutSize, dictionary, indices)
	}
	return g, nil
}

// requiredOutSize is one past the last element the kernels write per batch:
// DataLength*(IndicesSize*maxDictIndex + maxIndicesIndex) + DataLength.
//
// It is 0 if there is nothing to write, and saturates at math.MaxUint64.
func (g Geometry) requiredOutSize() uint64 {
	if g.NumDicts == 0 || g.IndicesSize == 0 {
		return 0
	}
	maxDictIndex := uint64(g.NumDicts) - 1
	maxIndicesIndex := uint64(g.IndicesSize) - 1
	dataLength := uint64(g.DataLength)
	// IndicesSize*maxDictIndex+maxIndicesIndex < 2^64, since both factors are < 2^32.
	lastRow := uint64(g.IndicesSize)*maxDictIndex + maxIndicesIndex
	return addSaturated(mulSaturated(dataLength, lastRow), dataLength)
}

// product folds dims with multiplication, seed 1. It saturates at math.MaxUint64 instead of wrapping.
func product(dims []int) uint64 {
	result := uint64(1)
	for _, dim := range dims {
		result = mulSaturated(result, uint64(dim))
	}
	return result
}

func mulSaturated(a, b uint64) uint64 {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 {
		return math.MaxUint64
	}
	return lo
}

func addSaturated(a, b uint64) uint64 {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return math.MaxUint64
	}
	return sum
}

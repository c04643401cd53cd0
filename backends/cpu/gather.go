// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package cpu

import (
	"github.com/gomlx/gatherop/backends"
	"github.com/gomlx/gatherop/pkg/core/dtypes"
	"github.com/gomlx/gatherop/pkg/core/dtypes/bfloat16"
	"github.com/pkg/errors"
	"github.com/x448/float16"
	"k8s.io/klog/v2"
)

// ErrIndexOutOfRange is reported by Stream.Synchronize when a gathered index falls outside the gathered axis.
var ErrIndexOutOfRange = errors.New("gather index out of range")

// gatherFn executes one launch of the gather kernel on flat slices of the corresponding dtypes.
type gatherFn func(k *gatherKernel, dictionary, indices, output any) error

type dtypePair struct {
	data, indices dtypes.DType
}

// gatherDispatcher holds the generic instances of the gather kernel, per (data dtype, indices dtype).
var gatherDispatcher = make(map[dtypePair]gatherFn)

// registerGather instantiates the gather kernel for the data type T with both supported indices types.
func registerGather[T dtypes.Supported]() {
	dtype := dtypes.FromGenericsType[T]()
	gatherDispatcher[dtypePair{dtype, dtypes.Int32}] = gatherGeneric[T, int32]
	gatherDispatcher[dtypePair{dtype, dtypes.Int64}] = gatherGeneric[T, int64]
}

func init() {
	registerGather[bool]()
	registerGather[int8]()
	registerGather[int16]()
	registerGather[int32]()
	registerGather[int64]()
	registerGather[uint8]()
	registerGather[uint16]()
	registerGather[uint32]()
	registerGather[uint64]()
	registerGather[float16.Float16]()
	registerGather[bfloat16.BFloat16]()
	registerGather[float32]()
	registerGather[float64]()
	registerGather[complex64]()
	registerGather[complex128]()
}

// gatherKernel implements backends.GatherKernel.
type gatherKernel struct {
	backend *Backend
	config  backends.GatherConfig
	fn      gatherFn
}

var _ backends.GatherKernel = (*gatherKernel)(nil)

// CompileGather implements backends.Backend.
func (b *Backend) CompileGather(config backends.GatherConfig) (backends.GatherKernel, error) {
	if b.isFinalized {
		return nil, errors.Errorf("%q backend already finalized", BackendName)
	}
	fn, found := gatherDispatcher[dtypePair{config.DType, config.IndicesDType}]
	if !found {
		return nil, errors.Errorf("%q backend has no gather kernel for dtype %s with indices of dtype %s",
			BackendName, config.DType, config.IndicesDType)
	}
	klog.V(2).Infof("cpu backend: compiled %s", config)
	return &gatherKernel{backend: b, config: config, fn: fn}, nil
}

// Launch implements backends.GatherKernel.
func (k *gatherKernel) Launch(stream backends.Stream, dictionary, indices, output backends.Buffer) error {
	s, err := toStream(stream)
	if err != nil {
		return err
	}
	c := &k.config
	batchCount := uint64(c.BatchCount)
	operands := []struct {
		name     string
		buffer   backends.Buffer
		dtype    dtypes.DType
		wantSize uint64
	}{
		{"dictionary", dictionary, c.DType, batchCount * uint64(c.DictsBatchStride)},
		{"indices", indices, c.IndicesDType, batchCount * uint64(c.IndicesBatchStride)},
		{"output", output, c.DType, batchCount * uint64(c.OutBatchStride)},
	}
	flats := make([]any, len(operands))
	for ii, op := range operands {
		buf, err := toBuffer(op.buffer)
		if err != nil {
			return errors.WithMessagef(err, "gather %s", op.name)
		}
		if buf.shape.DType != op.dtype || uint64(buf.shape.Size()) != op.wantSize {
			return errors.Errorf("gather %s buffer has shape %s, but the kernel expects dtype %s with %d elements",
				op.name, buf.shape, op.dtype, op.wantSize)
		}
		flats[ii] = buf.flat
	}
	return s.enqueue(func() error {
		return k.fn(k, flats[0], flats[1], flats[2])
	})
}

// gatherGeneric runs the grid of the configured kernel, emulating each thread of each block.
//
// The dictionary is seen as [BatchCount, NumDicts, IndexRange, DataLength], the indices as
// [BatchCount, IndicesSize] and the output as [BatchCount, NumDicts, IndicesSize, DataLength].
func gatherGeneric[T any, I int32 | int64](k *gatherKernel, dictionaryAny, indicesAny, outputAny any) error {
	dictionary, indices, output := dictionaryAny.([]T), indicesAny.([]I), outputAny.([]T)
	c := &k.config
	numDicts, indexRange, dataLength, indicesSize := int(c.NumDicts), int(c.IndexRange), int(c.DataLength), int(c.IndicesSize)
	dictsBatchStride, indicesBatchStride, outBatchStride := int(c.DictsBatchStride), int(c.IndicesBatchStride), int(c.OutBatchStride)
	threadsPerBlock := int(c.ThreadsPerBlock)

	// thread copies up to els elements starting at chunk, for one index of one dictionary.
	thread := func(batch, dict, indicesIndex, chunk, els int) error {
		rawIndex := int64(indices[batch*indicesBatchStride+indicesIndex])
		dictIndex := rawIndex
		if dictIndex < 0 {
			dictIndex += int64(indexRange)
		}
		if dictIndex < 0 || dictIndex >= int64(indexRange) {
			return errors.Wrapf(ErrIndexOutOfRange, "index %d (batch %d, position %d) is outside [-%d, %d)",
				rawIndex, batch, indicesIndex, indexRange, indexRange)
		}
		n := min(els, dataLength-chunk)
		src := batch*dictsBatchStride + dataLength*(int(dictIndex)+dict*indexRange) + chunk
		dst := batch*outBatchStride + dataLength*(indicesIndex+dict*indicesSize) + chunk
		copy(output[dst:dst+n], dictionary[src:src+n])
		return nil
	}

	var blockFn func(block dim3) error
	if c.GatherChunks {
		els := int(c.ElsPerThreadChunks)
		blockFn = func(block dim3) error {
			dict, batch := block.X%numDicts, block.X/numDicts
			for threadIdx := range threadsPerBlock {
				chunk := (block.Z*threadsPerBlock + threadIdx) * els
				if chunk >= dataLength {
					break
				}
				if err := thread(batch, dict, block.Y, chunk, els); err != nil {
					return err
				}
			}
			return nil
		}
	} else {
		els := int(c.ElsPerThreadDicts)
		blockFn = func(block dim3) error {
			chunk, batch := (block.X%dataLength)*els, block.X/dataLength
			if chunk >= dataLength {
				return nil
			}
			for threadIdx := range threadsPerBlock {
				dict := block.Z*threadsPerBlock + threadIdx
				if dict >= numDicts {
					break
				}
				if err := thread(batch, dict, block.Y, chunk, els); err != nil {
					return err
				}
			}
			return nil
		}
	}
	return k.backend.runGrid(makeDim3(c.Grid()), blockFn)
}

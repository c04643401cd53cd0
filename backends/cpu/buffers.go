// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package cpu

import (
	"reflect"

	"github.com/gomlx/gatherop/backends"
	"github.com/gomlx/gatherop/pkg/core/dtypes"
	"github.com/gomlx/gatherop/pkg/core/shapes"
	"github.com/pkg/errors"
)

// Compile-time check:
var _ backends.DataInterface = (*Backend)(nil)

// Buffer for the CPU backend holds a shape and the flat data, owned by the buffer.
type Buffer struct {
	shape shapes.Shape
	valid bool

	// flat is always a slice of the underlying data type (shape.DType).
	flat any
}

// Flat returns the flat slice of the buffer's data.
// It should only be read after the streams writing to it are synchronized.
func (buf *Buffer) Flat() any {
	return buf.flat
}

// Shape of the buffer.
func (buf *Buffer) Shape() shapes.Shape {
	return buf.shape
}

// checkShape returns an error if shape can't be stored in a flat buffer of whole elements.
func checkShape(shape shapes.Shape) error {
	if !shape.Ok() || !shape.IsStatic() {
		return errors.Errorf("%q backend can only hold buffers of static shapes, got %s", BackendName, shape)
	}
	if !shape.DType.IsSupported() {
		return errors.Errorf("%q backend can't hold buffers of dtype %s (shape %s)", BackendName, shape.DType, shape)
	}
	return nil
}

// NewBuffer creates a zero-initialized buffer with a newly allocated flat space.
func (b *Backend) NewBuffer(shape shapes.Shape) (backends.Buffer, error) {
	if err := checkShape(shape); err != nil {
		return nil, err
	}
	return b.newBuffer(shape), nil
}

func (b *Backend) newBuffer(shape shapes.Shape) *Buffer {
	size := shape.Size()
	return &Buffer{
		shape: shape.Clone(),
		valid: true,
		flat:  reflect.MakeSlice(reflect.SliceOf(shape.DType.GoType()), size, size).Interface(),
	}
}

// toBuffer casts a backends.Buffer to a valid *Buffer of this backend.
func toBuffer(buffer backends.Buffer) (*Buffer, error) {
	buf, ok := buffer.(*Buffer)
	if !ok || buf == nil {
		return nil, errors.Errorf("buffer (%T) is not a %q backend buffer", buffer, BackendName)
	}
	if !buf.valid {
		return nil, errors.Errorf("buffer %p (shape %s) was already finalized", buf, buf.shape)
	}
	return buf, nil
}

// BufferFinalize allows the client to inform backend that buffer is no longer needed and associated resources can be
// freed immediately.
//
// A finalized buffer should never be used again. Preferably, the caller should set its references to it to nil.
func (b *Backend) BufferFinalize(buffer backends.Buffer) error {
	buf, err := toBuffer(buffer)
	if err != nil {
		return errors.WithMessage(err, "BufferFinalize")
	}
	buf.valid = false
	buf.flat = nil
	return nil
}

// BufferShape returns the shape for the buffer.
func (b *Backend) BufferShape(buffer backends.Buffer) (shapes.Shape, error) {
	buf, err := toBuffer(buffer)
	if err != nil {
		return shapes.Invalid(), err
	}
	return buf.shape, nil
}

// BufferToFlatData transfers the flat values of the buffer to the Go flat array.
// The slice flat must have the exact number of elements required to store the backends.Buffer shape.
func (b *Backend) BufferToFlatData(buffer backends.Buffer, flat any) error {
	buf, err := toBuffer(buffer)
	if err != nil {
		return err
	}
	if err := checkFlat(flat, buf.shape); err != nil {
		return errors.WithMessage(err, "BufferToFlatData")
	}
	reflect.Copy(reflect.ValueOf(flat), reflect.ValueOf(buf.flat))
	return nil
}

// BufferFromFlatData transfers data from Go given as a flat slice (of the type corresponding to the shape DType)
// to the device, and returns the corresponding backends.Buffer.
func (b *Backend) BufferFromFlatData(flat any, shape shapes.Shape) (backends.Buffer, error) {
	if err := checkShape(shape); err != nil {
		return nil, err
	}
	if err := checkFlat(flat, shape); err != nil {
		return nil, errors.WithMessage(err, "BufferFromFlatData")
	}
	buffer := b.newBuffer(shape)
	reflect.Copy(reflect.ValueOf(buffer.flat), reflect.ValueOf(flat))
	return buffer, nil
}

// checkFlat verifies flat is a slice with the dtype and number of elements of shape.
func checkFlat(flat any, shape shapes.Shape) error {
	flatType := reflect.TypeOf(flat)
	if flatType == nil || flatType.Kind() != reflect.Slice {
		return errors.Errorf("flat data must be a slice, got %T", flat)
	}
	if dtype := dtypes.FromGoType(flatType.Elem()); dtype != shape.DType {
		return errors.Errorf("flat data type (%s) does not match shape DType (%s)", flatType.Elem(), shape.DType)
	}
	if length := reflect.ValueOf(flat).Len(); length != shape.Size() {
		return errors.Errorf("flat data has %d elements, but shape %s requires %d", length, shape, shape.Size())
	}
	return nil
}

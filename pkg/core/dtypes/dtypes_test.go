// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package dtypes

import (
	"reflect"
	"testing"

	"github.com/gomlx/gatherop/pkg/core/dtypes/bfloat16"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/x448/float16"
)

func TestMapOfNames(t *testing.T) {
	assert.Equal(t, Float16, MapOfNames["Float16"])
	assert.Equal(t, Float16, MapOfNames["float16"])
	assert.Equal(t, Float16, MapOfNames["f16"])
	assert.Equal(t, BFloat16, MapOfNames["bf16"])
	assert.Equal(t, Dynamic, MapOfNames["dynamic"])
	assert.Equal(t, U1, MapOfNames["u1"])
}

func TestFromName(t *testing.T) {
	dtype, err := FromName("Int32")
	require.NoError(t, err)
	require.Equal(t, Int32, dtype)
	dtype, err = FromName("S64")
	require.NoError(t, err)
	require.Equal(t, Int64, dtype)
	_, err = FromName("int3")
	require.Error(t, err)
}

func TestString(t *testing.T) {
	assert.Equal(t, "Float32", Float32.String())
	assert.Equal(t, "InvalidDType", InvalidDType.String())
	assert.Equal(t, "Dynamic", Dynamic.String())
	assert.Equal(t, "DType(99)", DType(99).String())
}

func TestFromGoType(t *testing.T) {
	assert.Equal(t, Int64, FromGoType(reflect.TypeOf(int64(7))))
	assert.Equal(t, Float32, FromGoType(reflect.TypeOf(float32(13))))
	assert.Equal(t, BFloat16, FromGoType(reflect.TypeOf(bfloat16.FromFloat32(1.0))))
	assert.Equal(t, Float16, FromGoType(reflect.TypeOf(float16.Fromfloat32(3.0))))
	assert.Equal(t, InvalidDType, FromGoType(reflect.TypeOf("string")))
	assert.Equal(t, Int32, FromGenericsType[int32]())
	assert.Equal(t, Complex64, FromGenericsType[complex64]())
}

func TestSize(t *testing.T) {
	assert.Equal(t, 8, Int64.Size())
	assert.Equal(t, 4, Float32.Size())
	assert.Equal(t, 2, BFloat16.Size())
	assert.Equal(t, 1, U1.Bits())
	assert.Equal(t, 32, Int32.Bits())
	assert.Equal(t, reflect.TypeOf(float16.Float16(0)), Float16.GoType())
	require.Panics(t, func() { _ = Dynamic.Size() })
	require.Panics(t, func() { _ = U1.Size() })
}

func TestSizeForDimensions(t *testing.T) {
	assert.Equal(t, 2*3*8, Int64.SizeForDimensions(2, 3))
	assert.Equal(t, 4, Float32.SizeForDimensions())
	assert.Equal(t, 2, U1.SizeForDimensions(3, 3))
	assert.Equal(t, 2, S4.SizeForDimensions(3))
}

func TestPredicates(t *testing.T) {
	for _, dtype := range []DType{InvalidDType, Dynamic, U1, S4, U2} {
		assert.False(t, dtype.IsSupported(), "dtype=%s", dtype)
	}
	for _, dtype := range []DType{Bool, Int8, Int32, Int64, Uint16, Float16, BFloat16, Float64, Complex128} {
		assert.True(t, dtype.IsSupported(), "dtype=%s", dtype)
	}
	assert.True(t, U1.IsPacked())
	assert.False(t, Uint8.IsPacked())
	assert.False(t, Int32.IsUnsigned())
	assert.True(t, Uint16.IsUnsigned())
	assert.True(t, BFloat16.IsFloat())
	assert.True(t, Complex64.IsComplex())
	assert.False(t, Complex64.IsFloat())
}

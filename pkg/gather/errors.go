// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package gather

import "github.com/pkg/errors"

// Configuration errors returned by ResolveGeometry, Planner.Plan and New wrap one of these sentinels:
// test for them with errors.Is.
var (
	// ErrUnsupportedShape is returned when an operand's rank or dimensions are not known.
	ErrUnsupportedShape = errors.New("unsupported shape")

	// ErrUnsupportedElementType is returned for dictionaries of undefined, dynamic or 1-bit dtypes,
	// for indices that are not Int32 or Int64, and for dtypes the backend has no kernel for.
	ErrUnsupportedElementType = errors.New("unsupported element type")

	// ErrTypeMismatch is returned when the output dtype differs from the dictionary dtype.
	ErrTypeMismatch = errors.New("output and dictionary element types mismatch")

	// ErrInvalidAxis is returned when the axis is outside [0, rank(dictionary)).
	ErrInvalidAxis = errors.New("invalid axis")

	// ErrInvalidBatchDims is returned when the batch dimensions are out of range, after the axis,
	// or the leading dimensions of dictionary and indices differ.
	ErrInvalidBatchDims = errors.New("invalid batch dimensions")

	// ErrEmptyDataLength is returned when the dimensions after the axis have zero elements.
	ErrEmptyDataLength = errors.New("empty data length")

	// ErrOutOfBoundsGeometry is returned when the kernel could write outside the output buffer,
	// or when a count doesn't fit the kernel's 32-bit arithmetic.
	ErrOutOfBoundsGeometry = errors.New("gather geometry out of bounds")

	// ErrDeviceLimitExceeded is returned when the launch grid exceeds the device limits,
	// or the device limits themselves are invalid.
	ErrDeviceLimitExceeded = errors.New("device limit exceeded")
)

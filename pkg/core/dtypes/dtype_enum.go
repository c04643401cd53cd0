// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package dtypes

// DType is an enum represents the data type of a buffer or a scalar.
//
// The numeric values of the first kinds follow the PJRT buffer types, so they can be passed
// to device runtimes without translation. U1 and Dynamic are not device buffer types: they
// describe graph values that cannot be laid out as a flat buffer of whole elements.
type DType int32

const (
	// InvalidDType is the zero value: an undefined data type.
	InvalidDType DType = 0

	// Bool holds two-state booleans, one byte per element.
	Bool DType = 1

	// Int8 and the following are signed integral values of fixed width.
	Int8  DType = 2
	Int16 DType = 3
	Int32 DType = 4
	Int64 DType = 5

	// Uint8 and the following are unsigned integral values of fixed width.
	Uint8  DType = 6
	Uint16 DType = 7
	Uint32 DType = 8
	Uint64 DType = 9

	// Float16 and the following are floating-point values of fixed width.
	Float16 DType = 10
	Float32 DType = 11
	Float64 DType = 12

	// BFloat16 is the truncated 16 bit floating-point format: 1 bit for the sign, 8 bits for the
	// exponent and 7 bits for the mantissa.
	BFloat16 DType = 13

	// Complex64 is a pair of Float32 (real, imag).
	Complex64 DType = 14

	// Complex128 is a pair of Float64 (real, imag).
	Complex128 DType = 15

	// S4 and U4 are 4-bit integers, packed two per byte.
	S4 DType = 21
	U4 DType = 22

	// S2 and U2 are 2-bit integers, packed four per byte.
	S2 DType = 24
	U2 DType = 25

	// U1 is a 1-bit value, packed eight per byte.
	U1 DType = 30

	// Dynamic marks a value whose data type is only known at execution time.
	Dynamic DType = 31
)

// Aliases from PJRT C API.
const (
	INVALID = InvalidDType
	PRED    = Bool
	S8      = Int8
	S16     = Int16
	S32     = Int32
	S64     = Int64
	U8      = Uint8
	U16     = Uint16
	U32     = Uint32
	U64     = Uint64
	F16     = Float16
	F32     = Float32
	F64     = Float64
	BF16    = BFloat16
	C64     = Complex64
	C128    = Complex128
)

// MapOfNames to their dtypes. It includes also aliases to the various dtypes.
// It is also later initialized to include the lower-case version of the names.
var MapOfNames = map[string]DType{
	"InvalidDType": InvalidDType,
	"INVALID":      InvalidDType,
	"Bool":         Bool,
	"PRED":         Bool,
	"Int8":         Int8,
	"S8":           Int8,
	"Int16":        Int16,
	"S16":          Int16,
	"Int32":        Int32,
	"S32":          Int32,
	"Int64":        Int64,
	"S64":          Int64,
	"Uint8":        Uint8,
	"U8":           Uint8,
	"Uint16":       Uint16,
	"U16":          Uint16,
	"Uint32":       Uint32,
	"U32":          Uint32,
	"Uint64":       Uint64,
	"U64":          Uint64,
	"Float16":      Float16,
	"F16":          Float16,
	"Float32":      Float32,
	"F32":          Float32,
	"Float64":      Float64,
	"F64":          Float64,
	"BFloat16":     BFloat16,
	"BF16":         BFloat16,
	"Complex64":    Complex64,
	"C64":          Complex64,
	"Complex128":   Complex128,
	"C128":         Complex128,
	"S4":           S4,
	"U4":           U4,
	"S2":           S2,
	"U2":           U2,
	"U1":           U1,
	"Dynamic":      Dynamic,
}

var dtypeNames = map[DType]string{
	InvalidDType: "InvalidDType",
	Bool:         "Bool",
	Int8:         "Int8",
	Int16:        "Int16",
	Int32:        "Int32",
	Int64:        "Int64",
	Uint8:        "Uint8",
	Uint16:       "Uint16",
	Uint32:       "Uint32",
	Uint64:       "Uint64",
	Float16:      "Float16",
	Float32:      "Float32",
	Float64:      "Float64",
	BFloat16:     "BFloat16",
	Complex64:    "Complex64",
	Complex128:   "Complex128",
	S4:           "S4",
	U4:           "U4",
	S2:           "S2",
	U2:           "U2",
	U1:           "U1",
	Dynamic:      "Dynamic",
}

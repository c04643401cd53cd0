// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package cpu

import (
	"github.com/gomlx/gatherop/backends"
	"github.com/gomlx/gatherop/pkg/core/dtypes"
)

// Capabilities of the CPU backend, before configuration.
//
// The limits mirror a typical CUDA device.
var Capabilities = backends.Capabilities{
	MaxThreadsPerBlock: 1024,
	MaxGridSize:        [3]int{2147483647, 65535, 65535},
	DTypes: map[dtypes.DType]bool{
		dtypes.Bool:       true,
		dtypes.Int8:       true,
		dtypes.Int16:      true,
		dtypes.Int32:      true,
		dtypes.Int64:      true,
		dtypes.Uint8:      true,
		dtypes.Uint16:     true,
		dtypes.Uint32:     true,
		dtypes.Uint64:     true,
		dtypes.Float16:    true,
		dtypes.BFloat16:   true,
		dtypes.Float32:    true,
		dtypes.Float64:    true,
		dtypes.Complex64:  true,
		dtypes.Complex128: true,
	},
}

// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package backends

import (
	"fmt"
	"maps"

	"github.com/gomlx/gatherop/pkg/core/dtypes"
	"github.com/pkg/errors"
)

// Capabilities holds the device limits and what is supported by a backend.
type Capabilities struct {
	// MaxThreadsPerBlock is the maximum number of threads in one thread block.
	MaxThreadsPerBlock int

	// MaxGridSize is the maximum number of blocks per grid dimension (x, y, z).
	MaxGridSize [3]int

	// DTypes list the data types supported by a backend.
	// If not listed, it's assumed to be false, hence not supported.
	DTypes map[dtypes.DType]bool
}

// Validate returns an error if any of the limits is not positive.
func (c Capabilities) Validate() error {
	if c.MaxThreadsPerBlock <= 0 {
		return errors.Errorf("invalid device capabilities: MaxThreadsPerBlock=%d must be positive", c.MaxThreadsPerBlock)
	}
	for axis, maxSize := range c.MaxGridSize {
		if maxSize <= 0 {
			return errors.Errorf("invalid device capabilities: MaxGridSize[%d]=%d must be positive", axis, maxSize)
		}
	}
	return nil
}

// Clone makes a deep copy of the Capabilities.
func (c Capabilities) Clone() Capabilities {
	c2 := c
	c2.DTypes = make(map[dtypes.DType]bool, len(c.DTypes))
	maps.Copy(c2.DTypes, c.DTypes)
	return c2
}

// String implements fmt.Stringer.
func (c Capabilities) String() string {
	return fmt.Sprintf("{max_threads_per_block=%d, max_grid=%dx%dx%d, #dtypes=%d}",
		c.MaxThreadsPerBlock, c.MaxGridSize[0], c.MaxGridSize[1], c.MaxGridSize[2], len(c.DTypes))
}

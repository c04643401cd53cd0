// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package cpu implements a portable reference backend that emulates a device on the CPU.
//
// Kernels run over an emulated 3D grid of thread blocks: every block is a unit of work for
// the backend's pool of workers, and the threads within a block run sequentially.
//
// The configuration string is a comma-separated list of options:
//
//   - "max_threads_per_block=N": maximum number of threads per block reported in Capabilities (default 1024).
//   - "max_grid=XxYxZ": maximum grid size reported in Capabilities (default 2147483647x65535x65535).
//   - "parallelism=N": number of workers running blocks in parallel: 0 runs blocks sequentially, -1 is unlimited
//     (default runtime.NumCPU()).
//
// Example: GATHER_BACKEND="cpu:max_threads_per_block=256,parallelism=0".
package cpu

import (
	"strconv"
	"strings"

	"github.com/gomlx/gatherop/backends"
	"github.com/gomlx/gatherop/internal/workerspool"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// BackendName to be used in GATHER_BACKEND to specify this backend.
const BackendName = "cpu"

// Registers New() as the default constructor for the "cpu" backend.
func init() {
	backends.Register(BackendName, New)
}

// Backend implements the backends.Backend interface.
type Backend struct {
	capabilities backends.Capabilities
	workers      *workerspool.Pool
	isFinalized  bool
}

// Compile-time check that cpu.Backend implements backends.Backend.
var _ backends.Backend = &Backend{}

// New constructs a new CPU Backend configured by config. See package documentation for the options.
func New(config string) (backends.Backend, error) {
	return NewBackend(config)
}

// NewBackend is like New, but returns the concrete type.
func NewBackend(config string) (*Backend, error) {
	b := &Backend{
		capabilities: Capabilities.Clone(),
		workers:      workerspool.New(),
	}
	for _, part := range strings.Split(config, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, found := strings.Cut(part, "=")
		if !found {
			return nil, errors.Errorf("invalid configuration option %q for %q backend: expected \"key=value\"",
				part, BackendName)
		}
		var err error
		switch key {
		case "max_threads_per_block":
			b.capabilities.MaxThreadsPerBlock, err = parsePositive(key, value)
		case "max_grid":
			b.capabilities.MaxGridSize, err = parseGrid(value)
		case "parallelism":
			var parallelism int
			parallelism, err = strconv.Atoi(value)
			if err == nil && parallelism < -1 {
				err = errors.Errorf("parallelism=%d must be >= -1", parallelism)
			}
			b.workers.SetMaxParallelism(parallelism)
		default:
			err = errors.Errorf("unknown configuration option %q", key)
		}
		if err != nil {
			return nil, errors.WithMessagef(err, "configuring %q backend with %q", BackendName, config)
		}
	}
	klog.V(2).Infof("cpu backend: capabilities=%s, parallelism=%d", b.capabilities, b.workers.MaxParallelism())
	return b, nil
}

func parsePositive(key, value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid value for %q", key)
	}
	if n <= 0 {
		return 0, errors.Errorf("%s=%d must be positive", key, n)
	}
	return n, nil
}

// parseGrid parses "XxYxZ".
func parseGrid(value string) (grid [3]int, err error) {
	parts := strings.Split(value, "x")
	if len(parts) != 3 {
		return grid, errors.Errorf("invalid max_grid=%q, expected 3 dimensions formatted as \"XxYxZ\"", value)
	}
	for axis, part := range parts {
		grid[axis], err = parsePositive("max_grid", part)
		if err != nil {
			return
		}
	}
	return
}

// Name returns the short name of the backend.
func (b *Backend) Name() string {
	return BackendName
}

// String implements fmt.Stringer.
func (b *Backend) String() string { return BackendName }

// Description is a longer description of the Backend that can be used to pretty-print.
func (b *Backend) Description() string {
	return "Emulated device on CPU (reference backend)"
}

// Capabilities returns the emulated device limits.
func (b *Backend) Capabilities() backends.Capabilities {
	return b.capabilities.Clone()
}

// Parallelism returns the soft limit of workers used to run blocks in parallel.
func (b *Backend) Parallelism() int {
	return b.workers.MaxParallelism()
}

// Finalize releases all the associated resources immediately, and makes the backend invalid.
func (b *Backend) Finalize() {
	b.isFinalized = true
}

// IsFinalized returns true if the backend has been finalized.
func (b *Backend) IsFinalized() bool {
	return b.isFinalized
}

// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package backends defines the interface a device runtime needs to implement to execute
// gather operations configured by package gather.
//
// A backend reports its device limits (Capabilities), owns device buffers, provides ordered
// execution streams, and compiles a fully resolved GatherConfig into a launchable kernel.
//
// Configuration errors are returned as errors. Programming errors (e.g. a buffer from another backend)
// may be thrown (panic) with a stack trace, see package github.com/gomlx/exceptions.
package backends

import (
	"os"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gatherop/pkg/support/sets"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Backend is the API that needs to be implemented by a device backend.
type Backend interface {
	// Name returns the short name of the backend. E.g.: "cpu" for the reference CPU backend.
	Name() string

	// Description is a longer description of the Backend that can be used to pretty-print.
	Description() string

	// Capabilities returns the device limits used to plan kernel launches.
	Capabilities() Capabilities

	// NewStream creates a new ordered execution stream.
	NewStream() Stream

	// CompileGather resolves the kernel implementation for the given configuration.
	//
	// It is called once per operation, at configuration time. It returns an error if the
	// pair (config.DType, config.IndicesDType) has no kernel in this backend.
	CompileGather(config GatherConfig) (GatherKernel, error)

	// DataInterface is the sub-interface that defines the API to transfer Buffer to/from the device.
	DataInterface

	// Finalize releases all the associated resources immediately, and makes the backend invalid.
	Finalize()
}

// Constructor takes a config string (optionally empty) and returns a Backend.
type Constructor func(config string) (Backend, error)

var (
	registeredConstructors = make(map[string]Constructor)
	firstRegistered        string
)

// Register backend with the given name, and a default constructor that takes as input a configuration string that is
// passed along to the backend constructor.
//
// To be safe, call Register during initialization of a package.
func Register(name string, constructor Constructor) {
	if len(registeredConstructors) == 0 {
		firstRegistered = name
	}
	registeredConstructors[name] = constructor
}

// List returns the names of the registered backends, sorted.
func List() []string {
	names := sets.Make[string](len(registeredConstructors))
	for name := range registeredConstructors {
		names.Insert(name)
	}
	return sets.Sorted(names)
}

// DefaultConfig is the name of the default backend configuration to use if specified.
//
// See NewWithConfig for the format of the configuration string.
var DefaultConfig string

// GATHER_BACKEND is the environment variable with the default backend configuration to use.
//
// The format of config is "<backend_name>:<backend_configuration>".
// The "<backend_name>" is the name of a registered backend (e.g.: "cpu") and
// "<backend_configuration>" is backend specific.
const GATHER_BACKEND = "GATHER_BACKEND"

// New returns a new default Backend.
//
// The default is:
//
// 1. The environment GATHER_BACKEND is used as a configuration if defined.
// 2. Next the variable DefaultConfig is used as a configuration if defined.
// 3. The first registered backend is used with an empty configuration.
//
// It panics if no backend was registered.
func New() (Backend, error) {
	config, found := os.LookupEnv(GATHER_BACKEND)
	if found {
		return NewWithConfig(config)
	}
	if DefaultConfig != "" {
		return NewWithConfig(DefaultConfig)
	}
	return NewWithConfig("")
}

// NewWithConfig takes a configurations string formatted as "<backend_name>:<backend_configuration>".
//
// The "<backend_name>" is the name of a registered backend (e.g.: "cpu") and
// "<backend_configuration>" is backend specific. If there is no ":", the whole string is taken as the backend
// name, and if it is empty the first registered backend is used.
func NewWithConfig(config string) (Backend, error) {
	if len(registeredConstructors) == 0 {
		exceptions.Panicf(`no registered backends -- maybe import the reference one with import _ "github.com/gomlx/gatherop/backends/cpu"?`)
	}
	backendName := config
	backendConfig := ""
	if idx := strings.Index(config, ":"); idx != -1 {
		backendName = config[:idx]
		backendConfig = config[idx+1:]
	}
	if backendName == "" {
		backendName = firstRegistered
	}
	constructor, found := registeredConstructors[backendName]
	if !found {
		return nil, errors.Errorf("can't find backend %q for configuration %q given, registered backends: %v",
			backendName, config, List())
	}
	backend, err := constructor(backendConfig)
	if err != nil {
		return nil, errors.WithMessagef(err, "failed to create backend %q", backendName)
	}
	klog.V(1).Infof("created backend %s: %s", backend.Name(), backend.Capabilities())
	return backend, nil
}

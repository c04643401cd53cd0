// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package xslices provides missing functionality to the slices package.
package xslices

import (
	"flag"
	"fmt"
	"reflect"
	"strings"
)

// Map executes the given function sequentially for every element on in, and returns a mapped slice.
func Map[In, Out any](in []In, fn func(e In) Out) (out []Out) {
	out = make([]Out, len(in))
	for ii, e := range in {
		out[ii] = fn(e)
	}
	return
}

// Flag creates a flag for []T with the given name, description and default value.
// It takes as input a parser for an individual T value.
//
// An empty value on the command line sets the flag to an empty slice.
func Flag[T any](name string, defaultValue []T, usage string,
	parserFn func(valueStr string) (T, error)) *[]T {
	f := newSliceFlag(defaultValue, parserFn)
	flag.Var(f, name, usage)
	return &f.parsedSlice
}

func newSliceFlag[T any](defaultValue []T, parserFn func(valueStr string) (T, error)) *SliceFlag[T] {
	return &SliceFlag[T]{parsedSlice: defaultValue, parserFn: parserFn}
}

// SliceFlag implements flag.Value for a comma-separated list of T.
type SliceFlag[T any] struct {
	parsedSlice []T
	parserFn    func(valueStr string) (T, error)
}

var _ flag.Value = (*SliceFlag[int])(nil)

// String implements flag.Value.
func (f *SliceFlag[T]) String() string {
	if f == nil || len(f.parsedSlice) == 0 {
		return ""
	}
	stringerType := reflect.TypeOf((*fmt.Stringer)(nil)).Elem()
	parts := Map(f.parsedSlice, func(elem T) string {
		v := reflect.ValueOf(elem)
		if v.IsValid() && v.Type().Implements(stringerType) {
			return v.Interface().(fmt.Stringer).String()
		}
		return fmt.Sprintf("%v", elem)
	})
	return strings.Join(parts, ",")
}

// Set implements flag.Value. The previous value is only replaced if all elements parse.
func (f *SliceFlag[T]) Set(listStr string) error {
	if strings.TrimSpace(listStr) == "" {
		f.parsedSlice = make([]T, 0)
		return nil
	}
	parts := strings.Split(listStr, ",")
	parsed := make([]T, len(parts))
	for ii, part := range parts {
		var err error
		parsed[ii], err = f.parserFn(part)
		if err != nil {
			return err
		}
	}
	f.parsedSlice = parsed
	return nil
}

// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package cpu

import (
	"fmt"
	"sync"

	"github.com/gomlx/gatherop/backends"
	"github.com/gomlx/gatherop/pkg/support/xsync"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// streamQueueSize is the number of tasks that can be enqueued before Launch blocks.
const streamQueueSize = 64

// Stream is an ordered queue of work, run by one goroutine.
//
// Each task may itself distribute its work over the backend's workers, but tasks never overlap.
type Stream struct {
	backend *Backend
	id      string

	mu        sync.Mutex // Protects tasks against closing.
	tasks     chan func() error
	finalized bool
	pending   *xsync.DynamicWaitGroup
	done      chan struct{}

	faultMu sync.Mutex
	fault   error
}

// Compile-time check.
var _ backends.Stream = (*Stream)(nil)

// NewStream creates a new ordered execution stream, with its own goroutine.
func (b *Backend) NewStream() backends.Stream {
	s := &Stream{
		backend: b,
		id:      uuid.NewString(),
		tasks:   make(chan func() error, streamQueueSize),
		pending: xsync.NewDynamicWaitGroup(),
		done:    make(chan struct{}),
	}
	go s.worker()
	return s
}

// String implements fmt.Stringer.
func (s *Stream) String() string {
	return fmt.Sprintf("<Stream id=%s pending=%d>", s.id, s.pending.Count())
}

func (s *Stream) worker() {
	defer close(s.done)
	for task := range s.tasks {
		err := task()
		if err != nil {
			s.faultMu.Lock()
			if s.fault == nil {
				s.fault = err
			} else {
				klog.V(1).Infof("%s: dropping device fault after the first one: %v", s, err)
			}
			s.faultMu.Unlock()
		}
		s.pending.Done()
	}
}

// enqueue task to the stream. It may block if the queue is full.
func (s *Stream) enqueue(task func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finalized {
		return errors.Errorf("%s already finalized", s)
	}
	s.pending.Add(1)
	s.tasks <- task
	return nil
}

// Synchronize blocks until all tasks enqueued so far are finished.
//
// It returns the first fault reported since the last call to Synchronize, and clears it.
func (s *Stream) Synchronize() error {
	s.pending.Wait()
	s.faultMu.Lock()
	defer s.faultMu.Unlock()
	err := s.fault
	s.fault = nil
	if err != nil {
		return errors.WithMessagef(err, "%s", s)
	}
	return nil
}

// Finalize waits for pending tasks and stops the stream's goroutine.
// Faults not yet collected by Synchronize are logged and discarded.
func (s *Stream) Finalize() {
	s.mu.Lock()
	if s.finalized {
		s.mu.Unlock()
		return
	}
	s.finalized = true
	close(s.tasks)
	s.mu.Unlock()
	<-s.done
	if s.fault != nil {
		klog.Warningf("%s finalized with uncollected fault: %v", s, s.fault)
	}
}

// toStream casts a backends.Stream to a *Stream of this backend.
func toStream(stream backends.Stream) (*Stream, error) {
	s, ok := stream.(*Stream)
	if !ok || s == nil {
		return nil, errors.Errorf("stream (%T) is not a %q backend stream", stream, BackendName)
	}
	return s, nil
}

// Copyright 2026 The gmii-to-fifo Authors.
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package gmii

import (
	"context"
	"sync"
	"time"
)

// Source defines the interface for the upstream octet stream feeding the
// frame gate. Implementations deliver exactly one InputEvent per logical
// step, in strict arrival order. A Valid=false event represents an
// inter-frame gap; implementations map their idle condition (read timeout,
// explicit gap marker) onto it.
type Source interface {
	// ReadEvent blocks until the next event is available and returns it.
	ReadEvent() (InputEvent, error)

	// ReadEventContext reads the next event with context support.
	ReadEventContext(ctx context.Context) (InputEvent, error)

	// Close closes the source
	Close() error

	// SetTimeout sets the read timeout; a timed-out read yields a
	// Valid=false gap event rather than an error where the medium
	// supports it.
	SetTimeout(timeout time.Duration) error

	// Type returns the source type
	Type() SourceType
}

// SourceType represents the type of octet source
type SourceType string

const (
	// SourceUART represents a UART/serial octet source.
	SourceUART SourceType = "uart"
	// SourceSPI represents an SPI-attached PHY octet source.
	SourceSPI SourceType = "spi"
	// SourceMock represents a scripted in-memory source for testing
	SourceMock SourceType = "mock"
)

// MockSource provides a scripted implementation of Source for testing.
// Events are returned in the order they were queued; once the script is
// exhausted, reads return gap events until an EOF error is configured.
type MockSource struct {
	eofErr  error
	errAt   map[int]error
	events  []InputEvent
	pos     int
	timeout time.Duration
	mu      sync.Mutex
	closed  bool
}

// NewMockSource creates a new mock source with an empty script.
func NewMockSource() *MockSource {
	return &MockSource{
		errAt:   make(map[int]error),
		timeout: time.Second,
	}
}

// ReadEvent implements Source.
func (m *MockSource) ReadEvent() (InputEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return InputEvent{}, ErrSourceClosed
	}

	idx := m.pos
	m.pos++

	if err, exists := m.errAt[idx]; exists {
		return InputEvent{}, err
	}

	if idx < len(m.events) {
		return m.events[idx], nil
	}

	if m.eofErr != nil {
		return InputEvent{}, m.eofErr
	}

	// Script exhausted: the line is quiet.
	return InputEvent{}, nil
}

// ReadEventContext implements Source with context support.
func (m *MockSource) ReadEventContext(ctx context.Context) (InputEvent, error) {
	select {
	case <-ctx.Done():
		return InputEvent{}, ctx.Err()
	default:
	}
	return m.ReadEvent()
}

// Close implements Source.
func (m *MockSource) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

// SetTimeout implements Source.
func (m *MockSource) SetTimeout(timeout time.Duration) error {
	m.mu.Lock()
	m.timeout = timeout
	m.mu.Unlock()
	return nil
}

// Type implements Source.
func (*MockSource) Type() SourceType {
	return SourceMock
}

// Test helper methods

// QueueEvents appends events to the script.
func (m *MockSource) QueueEvents(events ...InputEvent) {
	m.mu.Lock()
	m.events = append(m.events, events...)
	m.mu.Unlock()
}

// QueueOctets appends one valid, error-free event per octet.
func (m *MockSource) QueueOctets(octets ...byte) {
	m.mu.Lock()
	for _, b := range octets {
		m.events = append(m.events, InputEvent{Octet: b, Valid: true})
	}
	m.mu.Unlock()
}

// QueueGap appends n Valid=false gap events.
func (m *MockSource) QueueGap(n int) {
	m.mu.Lock()
	for range n {
		m.events = append(m.events, InputEvent{})
	}
	m.mu.Unlock()
}

// SetErrorAt configures an error to be returned for the read at a given
// script index, in place of that event.
func (m *MockSource) SetErrorAt(index int, err error) {
	m.mu.Lock()
	m.errAt[index] = err
	m.mu.Unlock()
}

// SetEOF configures the error returned once the script is exhausted.
// Without it, an exhausted script reads as an endless inter-frame gap.
func (m *MockSource) SetEOF(err error) {
	m.mu.Lock()
	m.eofErr = err
	m.mu.Unlock()
}

// Reset rewinds the script and reopens the source.
func (m *MockSource) Reset() {
	m.mu.Lock()
	m.pos = 0
	m.closed = false
	m.mu.Unlock()
}

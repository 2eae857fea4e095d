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

// Package testing provides test utilities including a GMII receive-stream
// simulator.
//
// The StreamBuilder type composes realistic event sequences (inter-frame
// gaps, preamble octets, the start delimiter, payload, injected mid-frame
// errors) so tests can exercise the frame gate and the receive loop
// against streams shaped like real link traffic rather than hand-rolled
// event literals.
package testing

import (
	"math/rand/v2"

	gmii "github.com/Spenser309/gmii-to-fifo"
)

// PreambleOctet is the idle-line preamble pattern preceding the start
// delimiter on the wire (binary 01010101).
const PreambleOctet byte = 0x55

// StandardPreambleLen is the number of preamble octets preceding the
// start delimiter in a canonical frame.
const StandardPreambleLen = 7

// StreamBuilder accumulates an event sequence for the frame gate.
// The zero value is ready to use.
type StreamBuilder struct {
	events []gmii.InputEvent
}

// NewStreamBuilder creates an empty stream builder.
func NewStreamBuilder() *StreamBuilder {
	return &StreamBuilder{}
}

// Gap appends n inter-frame gap steps (Valid=false).
func (b *StreamBuilder) Gap(n int) *StreamBuilder {
	for range n {
		b.events = append(b.events, gmii.InputEvent{})
	}
	return b
}

// Preamble appends n valid preamble octets.
func (b *StreamBuilder) Preamble(n int) *StreamBuilder {
	for range n {
		b.events = append(b.events, gmii.InputEvent{Octet: PreambleOctet, Valid: true})
	}
	return b
}

// Delimiter appends the valid start-of-frame delimiter octet.
func (b *StreamBuilder) Delimiter() *StreamBuilder {
	b.events = append(b.events, gmii.InputEvent{Octet: gmii.StartDelimiter, Valid: true})
	return b
}

// Payload appends one valid, error-free event per octet.
func (b *StreamBuilder) Payload(octets ...byte) *StreamBuilder {
	for _, o := range octets {
		b.events = append(b.events, gmii.InputEvent{Octet: o, Valid: true})
	}
	return b
}

// ErrorOctet appends a valid octet with the upstream error flag asserted.
func (b *StreamBuilder) ErrorOctet(octet byte) *StreamBuilder {
	b.events = append(b.events, gmii.InputEvent{Octet: octet, Valid: true, Error: true})
	return b
}

// Frame appends a canonical clean frame: preamble, delimiter, payload,
// then a single-step gap ending the frame.
func (b *StreamBuilder) Frame(payload []byte) *StreamBuilder {
	return b.Preamble(StandardPreambleLen).Delimiter().Payload(payload...).Gap(1)
}

// Events returns the accumulated sequence.
func (b *StreamBuilder) Events() []gmii.InputEvent {
	return b.events
}

// Len returns the number of accumulated steps.
func (b *StreamBuilder) Len() int {
	return len(b.events)
}

// RandomPayload returns n deterministic pseudo-random payload octets that
// never collide with the start delimiter, so injected frames cannot grow
// accidental delimiters.
func RandomPayload(n int, seed uint64) []byte {
	rng := rand.New(rand.NewPCG(seed, seed^0xDEADBEEF)) //nolint:gosec // Test code, not crypto
	out := make([]byte, n)
	for i := range out {
		b := byte(rng.UintN(256))
		if b == gmii.StartDelimiter {
			b = PreambleOctet
		}
		out[i] = b
	}
	return out
}

// BackpressureWindow marks a half-open step range [From, To) during which
// the downstream backpressure flag reads true.
type BackpressureWindow struct {
	From int
	To   int
}

// BackpressureSchedule maps step indices onto a backpressure flag, so a
// test can assert gate behavior against a scripted downstream occupancy.
type BackpressureSchedule struct {
	windows []BackpressureWindow
}

// NewBackpressureSchedule creates a schedule from the given windows.
func NewBackpressureSchedule(windows ...BackpressureWindow) *BackpressureSchedule {
	return &BackpressureSchedule{windows: windows}
}

// Sample reports whether backpressure is asserted at the given step.
func (s *BackpressureSchedule) Sample(step int) bool {
	for _, w := range s.windows {
		if step >= w.From && step < w.To {
			return true
		}
	}
	return false
}

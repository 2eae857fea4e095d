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

package testing

import (
	"testing"

	gmii "github.com/Spenser309/gmii-to-fifo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamBuilderFrameShape(t *testing.T) {
	t.Parallel()

	payload := []byte{0x01, 0x02, 0x03}
	events := NewStreamBuilder().Frame(payload).Events()

	require.Len(t, events, StandardPreambleLen+1+len(payload)+1)

	for i := range StandardPreambleLen {
		assert.Equal(t, gmii.InputEvent{Octet: PreambleOctet, Valid: true}, events[i])
	}
	assert.Equal(t, gmii.InputEvent{Octet: gmii.StartDelimiter, Valid: true}, events[StandardPreambleLen])
	for i, b := range payload {
		assert.Equal(t, gmii.InputEvent{Octet: b, Valid: true}, events[StandardPreambleLen+1+i])
	}
	assert.False(t, events[len(events)-1].Valid, "frame ends with a gap step")
}

func TestStreamBuilderErrorOctet(t *testing.T) {
	t.Parallel()

	events := NewStreamBuilder().ErrorOctet(0x7F).Events()

	require.Len(t, events, 1)
	assert.Equal(t, gmii.InputEvent{Octet: 0x7F, Valid: true, Error: true}, events[0])
}

func TestStreamBuilderComposes(t *testing.T) {
	t.Parallel()

	b := NewStreamBuilder().Gap(2).Preamble(3).Delimiter().Payload(0xAA)
	assert.Equal(t, 7, b.Len())
}

func TestRandomPayloadAvoidsDelimiter(t *testing.T) {
	t.Parallel()

	payload := RandomPayload(4096, 42)
	require.Len(t, payload, 4096)
	for i, b := range payload {
		require.NotEqual(t, gmii.StartDelimiter, b, "octet %d", i)
	}

	// Deterministic for a given seed.
	assert.Equal(t, payload, RandomPayload(4096, 42))
	assert.NotEqual(t, payload, RandomPayload(4096, 43))
}

func TestBackpressureSchedule(t *testing.T) {
	t.Parallel()

	s := NewBackpressureSchedule(
		BackpressureWindow{From: 2, To: 4},
		BackpressureWindow{From: 10, To: 11},
	)

	want := map[int]bool{0: false, 1: false, 2: true, 3: true, 4: false, 9: false, 10: true, 11: false}
	for step, expected := range want {
		assert.Equal(t, expected, s.Sample(step), "step %d", step)
	}
}

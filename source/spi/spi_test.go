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

package spi

import (
	"context"
	"errors"
	"testing"
	"time"

	gmii "github.com/Spenser309/gmii-to-fifo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/spi"
)

// sample is one scripted shim poll response
type sample struct {
	status byte
	octet  byte
}

// MockSPIConn implements the spi.Conn interface over scripted samples.
// Once the script is exhausted, polls report not-ready.
type MockSPIConn struct {
	txErr   error
	samples []sample
}

// Tx implements the shim poll protocol: [cmdRxPoll, 0, 0] in,
// [_, status, octet] out.
func (m *MockSPIConn) Tx(w, r []byte) error {
	if m.txErr != nil {
		return m.txErr
	}
	if len(w) != 3 || w[0] != cmdRxPoll {
		return errors.New("unexpected shim command")
	}
	if len(m.samples) == 0 {
		r[1] = 0x00 // not ready
		return nil
	}
	s := m.samples[0]
	m.samples = m.samples[1:]
	r[1] = s.status
	r[2] = s.octet
	return nil
}

func (*MockSPIConn) TxPackets(_ []spi.Packet) error {
	return errors.New("not implemented")
}

func (*MockSPIConn) Duplex() conn.Duplex {
	return conn.Full
}

func (*MockSPIConn) String() string {
	return "mock-spi"
}

func newTestSource(mock *MockSPIConn) *Source {
	return &Source{
		conn:     mock,
		portName: "mock",
		timeout:  5 * time.Millisecond,
	}
}

func TestReadEventMapsStatusFlags(t *testing.T) {
	t.Parallel()

	mock := &MockSPIConn{samples: []sample{
		{status: statusReady | statusValid, octet: 0xAB},
		{status: statusReady | statusValid, octet: 0x42},
		{status: statusReady | statusValid | statusError, octet: 0x13},
		{status: statusReady, octet: 0x00}, // sample without RX_DV: a gap
	}}
	source := newTestSource(mock)

	want := []gmii.InputEvent{
		{Octet: 0xAB, Valid: true},
		{Octet: 0x42, Valid: true},
		{Octet: 0x13, Valid: true, Error: true},
		{},
	}
	for i, w := range want {
		ev, err := source.ReadEvent()
		require.NoError(t, err, "sample %d", i)
		assert.Equal(t, w, ev, "sample %d", i)
	}
}

func TestReadEventTimesOutAsGap(t *testing.T) {
	t.Parallel()

	source := newTestSource(&MockSPIConn{})

	start := time.Now()
	ev, err := source.ReadEvent()
	require.NoError(t, err)

	assert.False(t, ev.Valid, "no sample within the timeout reads as idle")
	assert.GreaterOrEqual(t, time.Since(start), 5*time.Millisecond)
}

func TestReadEventTransactionFailure(t *testing.T) {
	t.Parallel()

	mock := &MockSPIConn{txErr: errors.New("bus contention")}
	source := newTestSource(mock)

	_, err := source.ReadEvent()
	require.Error(t, err)
	assert.True(t, gmii.IsRetryable(err))
}

func TestReadEventContextCancelled(t *testing.T) {
	t.Parallel()

	source := newTestSource(&MockSPIConn{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := source.ReadEventContext(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSetTimeout(t *testing.T) {
	t.Parallel()

	source := newTestSource(&MockSPIConn{})
	require.NoError(t, source.SetTimeout(time.Second))

	source.mu.Lock()
	assert.Equal(t, time.Second, source.timeout)
	source.mu.Unlock()
	assert.Equal(t, gmii.SourceSPI, source.Type())
}

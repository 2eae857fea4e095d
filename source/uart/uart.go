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

// Package uart provides a serial-port octet source for the frame gate.
//
// Every byte read from the port arrives as one valid event; a read
// timeout with no data is reported as a single inter-frame gap event
// (Valid=false), which is what ends a frame. The port hardware handles
// parity, so this source never asserts the per-octet error flag; error
// injection paths are exercised through the mock and SPI sources.
package uart

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	gmii "github.com/Spenser309/gmii-to-fifo"
	"go.bug.st/serial"
)

const defaultBaudRate = 115200

// Source implements the gmii.Source interface over a serial port.
type Source struct {
	port     serial.Port
	portName string
	pending  []byte
	mu       sync.Mutex
}

// New opens the named serial port as an octet source at the default
// baud rate (115200 8N1).
func New(portName string) (*Source, error) {
	return NewWithBaudRate(portName, defaultBaudRate)
}

// NewWithBaudRate opens the named serial port at the given baud rate.
func NewWithBaudRate(portName string, baudRate int) (*Source, error) {
	port, err := serial.Open(portName, &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open UART port %s: %w", portName, err)
	}

	if err := port.SetReadTimeout(50 * time.Millisecond); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("failed to set UART read timeout: %w", err)
	}

	return &Source{
		port:     port,
		portName: portName,
	}, nil
}

// ReadEvent implements gmii.Source. It returns the next buffered octet as
// a valid event, refilling from the port when the buffer is empty. A read
// that times out with no data yields one gap event.
func (s *Source) ReadEvent() (gmii.InputEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.pending) == 0 {
		buf := make([]byte, 256)
		n, err := s.port.Read(buf)
		if err != nil {
			return gmii.InputEvent{}, s.wrapReadError(err)
		}
		if n == 0 {
			// Timeout with no data: the line is idle.
			return gmii.InputEvent{}, nil
		}
		s.pending = buf[:n]
	}

	octet := s.pending[0]
	s.pending = s.pending[1:]
	return gmii.InputEvent{Octet: octet, Valid: true}, nil
}

// ReadEventContext implements gmii.Source with context support.
func (s *Source) ReadEventContext(ctx context.Context) (gmii.InputEvent, error) {
	select {
	case <-ctx.Done():
		return gmii.InputEvent{}, ctx.Err()
	default:
	}
	return s.ReadEvent()
}

// wrapReadError classifies a port read failure. Unplugged USB adapters
// surface as permanent errors so the receive loop stops rather than
// spinning on a dead descriptor.
func (s *Source) wrapReadError(err error) error {
	var portErr *serial.PortError
	if (errors.As(err, &portErr) && portErr.Code() == serial.PortClosed) || gmii.IsFatal(err) {
		return gmii.NewSourceError("ReadEvent", s.portName, err, gmii.ErrorTypePermanent)
	}
	return gmii.NewSourceError("ReadEvent", s.portName, err, gmii.ErrorTypeTransient)
}

// Close implements gmii.Source.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.port.Close(); err != nil {
		return fmt.Errorf("failed to close UART port %s: %w", s.portName, err)
	}
	return nil
}

// SetTimeout implements gmii.Source. The timeout bounds how long a read
// waits before reporting an inter-frame gap.
func (s *Source) SetTimeout(timeout time.Duration) error {
	if err := s.port.SetReadTimeout(timeout); err != nil {
		return fmt.Errorf("failed to set UART read timeout: %w", err)
	}
	return nil
}

// Type implements gmii.Source.
func (*Source) Type() gmii.SourceType {
	return gmii.SourceUART
}

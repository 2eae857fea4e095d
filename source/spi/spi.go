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

// Package spi provides an octet source over an SPI-attached receive shim.
//
// The shim buffers per-cycle receive samples from the PHY and exposes
// them through a poll command: each transaction returns a status octet
// carrying the ready/valid/error flags and the sampled data octet. Unlike
// the UART source, this medium carries the upstream error flag, so error
// mid-frame handling can be exercised on real hardware.
package spi

import (
	"context"
	"fmt"
	"sync"
	"time"

	gmii "github.com/Spenser309/gmii-to-fifo"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

const (
	// Shim poll protocol
	cmdRxPoll = 0x03

	// Status flag bits in the poll response
	statusReady = 0x01 // a sample is present
	statusValid = 0x02 // the sample's RX_DV flag
	statusError = 0x04 // the sample's RX_ER flag

	// Default SPI settings
	defaultFreq = 1 * physic.MegaHertz
	mode        = spi.Mode0 // CPOL=0, CPHA=0

	// Pacing between polls while waiting for a sample
	pollInterval = 100 * time.Microsecond
)

// Source implements the gmii.Source interface for an SPI-attached shim.
type Source struct {
	port     spi.PortCloser
	conn     spi.Conn
	portName string
	timeout  time.Duration
	mu       sync.Mutex
}

// New opens the named SPI port as an octet source.
func New(portName string) (*Source, error) {
	// Initialize host
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph host: %w", err)
	}

	// Open SPI port
	port, err := spireg.Open(portName)
	if err != nil {
		return nil, fmt.Errorf("failed to open SPI port %s: %w", portName, err)
	}

	// Connect with SPI parameters
	conn, err := port.Connect(defaultFreq, mode, 8)
	if err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("failed to connect SPI: %w", err)
	}

	return &Source{
		port:     port,
		conn:     conn,
		portName: portName,
		timeout:  50 * time.Millisecond,
	}, nil
}

// ReadEvent implements gmii.Source. It polls the shim until a sample is
// ready or the timeout elapses; a timeout reads as one inter-frame gap
// event.
func (s *Source) ReadEvent() (gmii.InputEvent, error) {
	return s.ReadEventContext(context.Background())
}

// ReadEventContext implements gmii.Source with context support.
func (s *Source) ReadEventContext(ctx context.Context) (gmii.InputEvent, error) {
	s.mu.Lock()
	timeout := s.timeout
	s.mu.Unlock()

	deadline := time.Now().Add(timeout)
	for {
		select {
		case <-ctx.Done():
			return gmii.InputEvent{}, ctx.Err()
		default:
		}

		status, octet, err := s.poll()
		if err != nil {
			return gmii.InputEvent{}, gmii.NewSourceError("ReadEvent", s.portName, err, gmii.ErrorTypeTransient)
		}

		if status&statusReady != 0 {
			return gmii.InputEvent{
				Octet: octet,
				Valid: status&statusValid != 0,
				Error: status&statusError != 0,
			}, nil
		}

		if time.Now().After(deadline) {
			// No sample within the timeout: the line is idle.
			return gmii.InputEvent{}, nil
		}
		time.Sleep(pollInterval)
	}
}

// poll runs one shim transaction and returns the status flags and the
// sampled octet.
func (s *Source) poll() (status, octet byte, err error) {
	tx := []byte{cmdRxPoll, 0x00, 0x00}
	rx := make([]byte, len(tx))
	if err := s.conn.Tx(tx, rx); err != nil {
		return 0, 0, fmt.Errorf("SPI poll transaction failed: %w", err)
	}
	return rx[1], rx[2], nil
}

// Close implements gmii.Source.
func (s *Source) Close() error {
	if err := s.port.Close(); err != nil {
		return fmt.Errorf("failed to close SPI port %s: %w", s.portName, err)
	}
	return nil
}

// SetTimeout implements gmii.Source. The timeout bounds how long a read
// polls for a sample before reporting an inter-frame gap.
func (s *Source) SetTimeout(timeout time.Duration) error {
	s.mu.Lock()
	s.timeout = timeout
	s.mu.Unlock()
	return nil
}

// Type implements gmii.Source.
func (*Source) Type() gmii.SourceType {
	return gmii.SourceSPI
}

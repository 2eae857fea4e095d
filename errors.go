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
	"errors"
	"fmt"
	"io"
	"syscall"
)

// Error categories for the gate's collaborators. The frame gate itself
// never returns an error: every input maps to a defined transition. These
// errors belong to the octet sources and the downstream queue.
var (
	// Source errors - potentially retryable
	ErrSourceTimeout = errors.New("source read timeout")
	ErrSourceRead    = errors.New("source read failed")
	ErrSourceClosed  = errors.New("source is closed")

	// Device errors - generally not retryable
	ErrDeviceNotFound     = errors.New("device not found")
	ErrDeviceNotSupported = errors.New("device not supported")

	// Queue errors
	ErrQueueFull   = errors.New("queue full")
	ErrQueueClosed = errors.New("queue is closed")

	// Data errors - not retryable
	ErrInvalidParameter = errors.New("invalid parameter")
)

// ErrorType represents the category of error for retry logic
type ErrorType int

const (
	// ErrorTypeTransient indicates a potentially retryable error
	ErrorTypeTransient ErrorType = iota
	// ErrorTypePermanent indicates a non-retryable error
	ErrorTypePermanent
	// ErrorTypeTimeout indicates a timeout error (special handling)
	ErrorTypeTimeout
)

// SourceError wraps octet-source errors with additional context
type SourceError struct {
	Err       error     // Underlying error
	Op        string    // Operation that failed
	Port      string    // Port or device identifier
	Type      ErrorType // Error category
	Retryable bool      // Whether the error is retryable
}

func (e *SourceError) Error() string {
	if e.Port != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Port, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// NewSourceError creates a standard source error with consistent formatting
func NewSourceError(op, port string, err error, errType ErrorType) *SourceError {
	return &SourceError{
		Op:        op,
		Port:      port,
		Err:       err,
		Type:      errType,
		Retryable: errType == ErrorTypeTransient || errType == ErrorTypeTimeout,
	}
}

// NewTimeoutError creates a timeout error for source operations
func NewTimeoutError(op, port string) *SourceError {
	return NewSourceError(op, port, ErrSourceTimeout, ErrorTypeTimeout)
}

// NewSourceReadError creates a read error (transient)
func NewSourceReadError(op, port string) *SourceError {
	return NewSourceError(op, port, ErrSourceRead, ErrorTypeTransient)
}

// IsRetryable returns true if the error is potentially retryable
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var se *SourceError
	if errors.As(err, &se) {
		return se.Retryable
	}

	switch {
	case errors.Is(err, ErrSourceTimeout),
		errors.Is(err, ErrSourceRead):
		return true
	default:
		return false
	}
}

// IsFatal returns true if the error indicates the source device is gone
// and the receive loop should stop entirely. This is distinct from
// IsRetryable which indicates whether a single read can be retried.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}

	var se *SourceError
	if errors.As(err, &se) {
		return se.Type == ErrorTypePermanent
	}

	// OS-level errors that indicate the device is gone
	if isDeviceGoneError(err) {
		return true
	}

	switch {
	case errors.Is(err, ErrSourceClosed),
		errors.Is(err, ErrDeviceNotFound),
		errors.Is(err, ErrDeviceNotSupported),
		errors.Is(err, io.EOF),
		errors.Is(err, io.ErrClosedPipe):
		return true
	default:
		return false
	}
}

// isDeviceGoneError checks for OS-level errors indicating device
// disconnection, as happens when a USB serial adapter is unplugged
// during a read.
func isDeviceGoneError(err error) bool {
	if err == nil {
		return false
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		//nolint:exhaustive // Only checking specific device-gone errors, not all errno values
		switch errno {
		case syscall.EIO, syscall.ENXIO, syscall.ENODEV:
			return true
		}
	}

	return false
}

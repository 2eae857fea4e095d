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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSourceErrorFormatting(t *testing.T) {
	t.Parallel()

	withPort := NewSourceError("ReadEvent", "/dev/ttyUSB0", ErrSourceRead, ErrorTypeTransient)
	assert.Equal(t, "ReadEvent /dev/ttyUSB0: source read failed", withPort.Error())

	withoutPort := NewSourceError("ReadEvent", "", ErrSourceRead, ErrorTypeTransient)
	assert.Equal(t, "ReadEvent: source read failed", withoutPort.Error())

	assert.ErrorIs(t, withPort, ErrSourceRead, "Unwrap exposes the sentinel")
}

func TestIsRetryable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		name string
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "transient source error", err: NewSourceReadError("ReadEvent", "mock"), want: true},
		{name: "timeout source error", err: NewTimeoutError("ReadEvent", "mock"), want: true},
		{
			name: "permanent source error",
			err:  NewSourceError("ReadEvent", "mock", ErrDeviceNotFound, ErrorTypePermanent),
			want: false,
		},
		{name: "bare read sentinel", err: fmt.Errorf("wrapped: %w", ErrSourceRead), want: true},
		{name: "unrelated error", err: errors.New("nope"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestIsFatal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		name string
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{
			name: "permanent source error",
			err:  NewSourceError("ReadEvent", "mock", ErrSourceClosed, ErrorTypePermanent),
			want: true,
		},
		{name: "transient source error", err: NewSourceReadError("ReadEvent", "mock"), want: false},
		{name: "source closed sentinel", err: ErrSourceClosed, want: true},
		{name: "eof", err: io.EOF, want: true},
		{name: "closed pipe", err: io.ErrClosedPipe, want: true},
		{name: "device gone errno", err: fmt.Errorf("read: %w", syscall.ENODEV), want: true},
		{name: "io errno", err: fmt.Errorf("read: %w", syscall.EIO), want: true},
		{name: "interrupted errno", err: fmt.Errorf("read: %w", syscall.EINTR), want: false},
		{name: "unrelated error", err: errors.New("nope"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsFatal(tt.err))
		})
	}
}

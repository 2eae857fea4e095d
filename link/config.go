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

package link

import "time"

// Config holds receive-loop configuration options
type Config struct {
	// GapTimeout is the source read timeout. Sources that support it map
	// a timed-out read onto a Valid=false gap event, which is what ends a
	// frame; it should sit comfortably above the inter-octet spacing of
	// the medium and below the inter-frame gap.
	GapTimeout time.Duration

	// MaxConsecutiveRetries bounds how many transient source errors in a
	// row are tolerated (each is consumed as a gap step) before the loop
	// gives up and returns the last error. 0 means unbounded.
	MaxConsecutiveRetries int
}

// DefaultConfig returns the default receive-loop configuration
func DefaultConfig() *Config {
	return &Config{
		GapTimeout:            50 * time.Millisecond,
		MaxConsecutiveRetries: 8,
	}
}

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

// Package fifo provides the bounded downstream octet queue consumed by
// the frame gate's forwarding decisions. The queue stores forwarded
// octets with their tags in arrival order and exposes an almost-full
// watermark as the backpressure signal sampled by the gate.
package fifo

import (
	"context"
	"fmt"

	gmii "github.com/Spenser309/gmii-to-fifo"
	"github.com/Spenser309/gmii-to-fifo/internal/syncutil"
)

// Entry is one forwarded octet with its upstream tags. Valid is implied:
// only Enable && Valid octets are admitted, so every stored entry was a
// valid data octet; the error tag travels with it so the consumer can
// detect faulted frames without re-deriving framing.
type Entry struct {
	Octet byte
	Error bool
}

// Queue is a fixed-capacity FIFO of tagged octets with an almost-full
// watermark. Push never blocks; it fails with gmii.ErrQueueFull when the
// buffer is at capacity. Consumers dequeue in arrival order.
//
// AlmostFull is the backpressure signal of the receive path. It may be
// stale by one step from the gate's perspective; that latency is expected
// and is exactly why the watermark sits below the true capacity.
type Queue struct {
	avail     chan struct{}
	buf       []Entry
	head      int
	count     int
	watermark int
	mu        syncutil.RWMutex
	closed    bool
}

// New creates a queue with the given capacity and almost-full watermark.
// A watermark outside (0, capacity] defaults to three quarters of the
// capacity, with a floor of one. Capacity must be positive.
func New(capacity, watermark int) (*Queue, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: capacity %d", gmii.ErrInvalidParameter, capacity)
	}
	if watermark <= 0 || watermark > capacity {
		watermark = capacity * 3 / 4
		if watermark < 1 {
			watermark = 1
		}
	}
	return &Queue{
		buf:       make([]Entry, capacity),
		watermark: watermark,
		avail:     make(chan struct{}, 1),
	}, nil
}

// Push appends an entry. It returns gmii.ErrQueueFull when the queue is
// at capacity and gmii.ErrQueueClosed after Close. Push never blocks.
func (q *Queue) Push(e Entry) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return gmii.ErrQueueClosed
	}
	if q.count == len(q.buf) {
		q.mu.Unlock()
		return gmii.ErrQueueFull
	}
	q.buf[(q.head+q.count)%len(q.buf)] = e
	q.count++
	q.mu.Unlock()

	// Wake one waiting consumer.
	select {
	case q.avail <- struct{}{}:
	default:
	}
	return nil
}

// Pop removes and returns the oldest entry. The second return value is
// false when the queue is empty.
func (q *Queue) Pop() (Entry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.count == 0 {
		return Entry{}, false
	}
	e := q.buf[q.head]
	q.head = (q.head + 1) % len(q.buf)
	q.count--
	return e, true
}

// PopWait removes and returns the oldest entry, blocking until one is
// available, the queue is closed, or the context is cancelled.
func (q *Queue) PopWait(ctx context.Context) (Entry, error) {
	for {
		q.mu.Lock()
		if q.count > 0 {
			e := q.buf[q.head]
			q.head = (q.head + 1) % len(q.buf)
			q.count--
			q.mu.Unlock()
			return e, nil
		}
		closed := q.closed
		q.mu.Unlock()

		if closed {
			return Entry{}, gmii.ErrQueueClosed
		}

		select {
		case <-q.avail:
		case <-ctx.Done():
			return Entry{}, ctx.Err()
		}
	}
}

// AlmostFull reports whether occupancy has reached the watermark. This is
// the backpressure flag sampled once per step by the frame gate.
func (q *Queue) AlmostFull() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.count >= q.watermark
}

// Len returns the current occupancy.
func (q *Queue) Len() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.count
}

// Cap returns the fixed capacity.
func (q *Queue) Cap() int {
	return len(q.buf)
}

// Watermark returns the almost-full threshold.
func (q *Queue) Watermark() int {
	return q.watermark
}

// Close marks the queue closed. Pending entries remain poppable; Push
// fails and PopWait returns gmii.ErrQueueClosed once drained.
func (q *Queue) Close() error {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	// Unblock any waiter so it can observe the closed flag.
	select {
	case q.avail <- struct{}{}:
	default:
	}
	return nil
}

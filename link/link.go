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

// Package link runs the receive path end to end: it pumps events from an
// octet source through the frame gate and pushes forwarded octets into
// the downstream FIFO, one synchronous step per arriving event.
package link

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	gmii "github.com/Spenser309/gmii-to-fifo"
	"github.com/Spenser309/gmii-to-fifo/fifo"
)

// Stats holds advisory receive-loop counters.
type Stats struct {
	EventsProcessed uint64
	SourceRetries   uint64
	// PushFailures counts octets the gate admitted but the queue refused
	// anyway (the one-step staleness window of the backpressure flag).
	// Those octets are lost; the gate's decision is never revisited.
	PushFailures uint64
}

// Link owns one octet source, one frame gate, and one downstream queue,
// and drives the synchronous receive loop between them.
//
// The loop is strictly single-threaded: events are read and stepped in
// arrival order, with no buffering or lookahead, so the gate's ordering
// contract holds by construction.
type Link struct {
	// OnFrameStart, if set, is called when forwarding transitions from
	// absent to present (the first octet of an admitted frame reaches
	// the queue).
	OnFrameStart func()
	// OnFrameEnd, if set, is called when forwarding ceases, with the
	// number of octets forwarded for that frame. Frame boundaries are
	// inferred here from the enable transitions; the gate itself emits
	// no boundary events.
	OnFrameEnd func(octets int)

	source gmii.Source
	gate   *gmii.Gate
	queue  *fifo.Queue
	config *Config

	eventsProcessed atomic.Uint64
	sourceRetries   atomic.Uint64
	pushFailures    atomic.Uint64
}

// New creates a receive loop over the given source and queue.
func New(source gmii.Source, queue *fifo.Queue, config *Config) *Link {
	if config == nil {
		config = DefaultConfig()
	}
	return &Link{
		source: source,
		gate:   gmii.NewGate(),
		queue:  queue,
		config: config,
	}
}

// Gate returns the frame gate, for wiring diagnostics callbacks and
// reading its counters.
func (l *Link) Gate() *gmii.Gate {
	return l.gate
}

// Stats returns a snapshot of the loop counters.
func (l *Link) Stats() Stats {
	return Stats{
		EventsProcessed: l.eventsProcessed.Load(),
		SourceRetries:   l.sourceRetries.Load(),
		PushFailures:    l.pushFailures.Load(),
	}
}

// Run pumps events until the context is cancelled or the source fails
// fatally. Transient source errors are consumed as inter-frame gap steps
// (bounded by Config.MaxConsecutiveRetries); a gap is the safe reading of
// a read fault, since it ends any frame in flight rather than corrupting
// it with a fabricated octet.
func (l *Link) Run(ctx context.Context) error {
	if err := l.source.SetTimeout(l.config.GapTimeout); err != nil {
		return fmt.Errorf("failed to set source timeout: %w", err)
	}

	forwarding := false
	frameOctets := 0
	retries := 0

	for {
		ev, err := l.source.ReadEventContext(ctx)
		switch {
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return err
		case err != nil && gmii.IsFatal(err):
			return fmt.Errorf("octet source failed: %w", err)
		case err != nil:
			retries++
			l.sourceRetries.Add(1)
			if limit := l.config.MaxConsecutiveRetries; limit > 0 && retries > limit {
				return fmt.Errorf("octet source failed after %d retries: %w", retries-1, err)
			}
			gmii.Debugf("link: transient source error, treating step as gap: %v", err)
			ev = gmii.InputEvent{}
		default:
			retries = 0
		}

		rec := l.gate.Step(ev, l.queue.AlmostFull())
		l.eventsProcessed.Add(1)

		forward := rec.Enable && rec.Valid
		if forward {
			if pushErr := l.queue.Push(fifo.Entry{Octet: rec.Octet, Error: rec.Error}); pushErr != nil {
				// Watermark staleness raced us to a full queue. The octet
				// is lost; admission is not re-decided.
				l.pushFailures.Add(1)
				gmii.Debugf("link: queue push failed, octet lost: %v", pushErr)
			}
			frameOctets++
		}

		switch {
		case forward && !forwarding:
			forwarding = true
			if l.OnFrameStart != nil {
				l.OnFrameStart()
			}
		case !forward && forwarding:
			forwarding = false
			if l.OnFrameEnd != nil {
				l.OnFrameEnd(frameOctets)
			}
			frameOctets = 0
		}
	}
}

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

// Package gmii implements the receive-side deframer of a GMII-style
// octet stream: a per-octet admission state machine (the frame gate)
// that decides which octets of the raw stream belong to a frame that
// should be forwarded into a bounded downstream FIFO.
package gmii

// StartDelimiter is the start-of-frame delimiter octet (binary 10101011).
// A validly received StartDelimiter while the gate is idle marks the
// first payload octet of a new frame; the delimiter itself is not
// forwarded downstream.
const StartDelimiter byte = 0xAB

// InputEvent is one synchronous step of the upstream octet stream.
// Valid=false means no frame activity this step (inter-frame gap);
// octet and error content are ignored for such steps.
type InputEvent struct {
	Octet byte
	Valid bool
	Error bool
}

// OutputRecord is the per-step result of the frame gate. Enable reflects
// the state the gate was in when the event arrived (the pre-transition
// state), never the state it moved to. An octet is forwarded downstream
// iff Enable && Valid.
type OutputRecord struct {
	Octet  byte
	Error  bool
	Valid  bool
	Enable bool
}

// State is the frame gate state. Values outside the three declared
// constants are unreachable through normal transitions; Step treats
// them as memory corruption and force-resets to StateIdle.
type State int

const (
	// StateIdle scans the inter-frame stream for the start delimiter.
	StateIdle State = iota
	// StateReceiving forwards frame octets downstream.
	StateReceiving
	// StateDropping discards the remainder of an already-faulted frame.
	StateDropping
)

// String returns a human-readable state name for diagnostics.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateReceiving:
		return "receiving"
	case StateDropping:
		return "dropping"
	default:
		return "invalid"
	}
}

// DropCause identifies why the gate committed a frame to StateDropping.
type DropCause int

const (
	// DropBackpressureAtStart means the downstream queue refused the frame
	// at its delimiter, before any octet was admitted.
	DropBackpressureAtStart DropCause = iota
	// DropBackpressureMidFrame means backpressure asserted after admission;
	// the already-forwarded head of the frame is truncated downstream.
	DropBackpressureMidFrame
	// DropErrorMidFrame means the upstream error flag asserted inside an
	// admitted frame.
	DropErrorMidFrame
)

// String returns a human-readable cause for diagnostics.
func (c DropCause) String() string {
	switch c {
	case DropBackpressureAtStart:
		return "backpressure at delimiter"
	case DropBackpressureMidFrame:
		return "backpressure mid-frame"
	case DropErrorMidFrame:
		return "error mid-frame"
	default:
		return "unknown"
	}
}

// Stats holds advisory counters maintained by the gate. They exist for
// observability only and never feed back into admission decisions.
type Stats struct {
	FramesStarted            uint64
	FramesCompleted          uint64
	FramesDropped            uint64
	OctetsForwarded          uint64
	DropsBackpressureAtStart uint64
	DropsBackpressureMid     uint64
	DropsErrorMid            uint64
	StateFaults              uint64
}

// Gate is the frame gate: a deterministic finite-state machine making one
// irrevocable forward/drop decision per arriving octet.
//
// Gate is not safe for concurrent use. The caller must invoke Step exactly
// once per arriving event, in strict arrival order, from a single
// goroutine. There is no internal locking because the synchronous step
// model admits no concurrent access.
type Gate struct {
	// OnDrop, if set, is called once per frame committed to dropping,
	// with the triggering cause. Advisory only.
	OnDrop func(DropCause)
	// OnFault, if set, is called when Step observes a state value outside
	// the declared enum, after the forced reset to idle. Advisory only.
	OnFault func(State)

	state State
	stats Stats
}

// NewGate returns a gate in StateIdle with zeroed counters.
func NewGate() *Gate {
	return &Gate{state: StateIdle}
}

// State returns the current gate state.
func (g *Gate) State() State {
	return g.state
}

// Stats returns a snapshot of the gate's counters.
func (g *Gate) Stats() Stats {
	return g.stats
}

// Reset forces the gate back to StateIdle. Counters are preserved.
func (g *Gate) Reset() {
	g.state = StateIdle
}

// Step consumes one input event plus the sampled downstream backpressure
// flag and returns the output record for this step. Enable is computed
// from the state the gate was in when the event arrived; the transition
// is applied afterwards. Identical (state, event, backpressure) always
// yields an identical result.
//
// Step never fails: every input combination, including malformed ones,
// maps to a defined transition. A corrupted state value is surfaced
// through OnFault and the StateFaults counter, then processing continues
// from StateIdle.
func (g *Gate) Step(ev InputEvent, backpressure bool) OutputRecord {
	// The decision first, from the pre-transition state. The octet that
	// carries the delimiter is judged from StateIdle and therefore not
	// forwarded; the first payload octet after it is.
	rec := OutputRecord{
		Octet:  ev.Octet,
		Error:  ev.Error,
		Valid:  ev.Valid,
		Enable: g.state == StateReceiving,
	}
	if rec.Enable && rec.Valid {
		g.stats.OctetsForwarded++
	}

	switch g.state {
	case StateIdle:
		if ev.Valid && ev.Octet == StartDelimiter {
			if backpressure {
				g.drop(DropBackpressureAtStart)
			} else {
				g.state = StateReceiving
				g.stats.FramesStarted++
			}
		}
		// Any other octet, valid or not, keeps scanning.

	case StateReceiving:
		switch {
		case !ev.Valid:
			// End of frame.
			g.state = StateIdle
			g.stats.FramesCompleted++
		case backpressure:
			g.drop(DropBackpressureMidFrame)
		case ev.Error:
			g.drop(DropErrorMidFrame)
		}

	case StateDropping:
		// Committed for the remainder of the frame: backpressure clearing
		// or the error flag deasserting must not re-admit mid-frame.
		if !ev.Valid {
			g.state = StateIdle
		}

	default:
		// State value outside the enum: only reachable through memory
		// corruption. Force-reset and keep the link alive.
		faulted := g.state
		g.state = StateIdle
		g.stats.StateFaults++
		Debugf("frame gate: invalid state %d, forced reset to idle", int(faulted))
		if g.OnFault != nil {
			g.OnFault(faulted)
		}
	}

	return rec
}

// drop commits the gate to StateDropping and records the cause.
func (g *Gate) drop(cause DropCause) {
	g.state = StateDropping
	g.stats.FramesDropped++
	switch cause {
	case DropBackpressureAtStart:
		g.stats.DropsBackpressureAtStart++
	case DropBackpressureMidFrame:
		g.stats.DropsBackpressureMid++
	case DropErrorMidFrame:
		g.stats.DropsErrorMid++
	}
	Debugf("frame gate: dropping frame (%s)", cause)
	if g.OnDrop != nil {
		g.OnDrop(cause)
	}
}

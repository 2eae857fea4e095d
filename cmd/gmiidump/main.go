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

// gmiidump runs the receive path against a UART or SPI octet source (or a
// built-in simulated stream) and prints every forwarded frame as hex,
// with drop and fault statistics on exit.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	gmii "github.com/Spenser309/gmii-to-fifo"
	"github.com/Spenser309/gmii-to-fifo/fifo"
	testutil "github.com/Spenser309/gmii-to-fifo/internal/testing"
	"github.com/Spenser309/gmii-to-fifo/link"
	"github.com/Spenser309/gmii-to-fifo/source/spi"
	"github.com/Spenser309/gmii-to-fifo/source/uart"
)

type config struct {
	devicePath string
	capacity   int
	watermark  int
	simulate   bool
	debug      bool
}

// Package-level flag variables
var (
	flagDevicePath string
	flagCapacity   int
	flagWatermark  int
	flagSimulate   bool
	flagDebug      bool
)

func init() {
	flag.StringVar(&flagDevicePath, "device", "", "Device path (serial port, or a path containing 'spi' for SPI)")
	flag.IntVar(&flagCapacity, "capacity", 1024, "Downstream FIFO capacity in octets")
	flag.IntVar(&flagWatermark, "watermark", 0, "FIFO almost-full watermark (0 = three quarters of capacity)")
	flag.BoolVar(&flagSimulate, "simulate", false, "Run against a built-in simulated stream instead of hardware")
	flag.BoolVar(&flagDebug, "debug", false, "Enable debug output")
}

func parseConfig() *config {
	cfg := &config{
		devicePath: flagDevicePath,
		capacity:   flagCapacity,
		watermark:  flagWatermark,
		simulate:   flagSimulate,
		debug:      flagDebug,
	}

	if cfg.debug {
		gmii.SetDebugEnabled(true)
	}

	return cfg
}

// newSource creates an octet source from the configuration.
func newSource(cfg *config) (gmii.Source, error) {
	if cfg.simulate {
		return newSimulatedSource(), nil
	}

	if cfg.devicePath == "" {
		return nil, errors.New("empty device path (use -device or -simulate)")
	}

	if strings.Contains(strings.ToLower(cfg.devicePath), "spi") {
		source, err := spi.New(cfg.devicePath)
		if err != nil {
			return nil, fmt.Errorf("failed to create SPI source for %s: %w", cfg.devicePath, err)
		}
		return source, nil
	}

	// Default to UART for serial ports
	source, err := uart.New(cfg.devicePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create UART source for %s: %w", cfg.devicePath, err)
	}
	return source, nil
}

// newSimulatedSource scripts a short demonstration stream: two clean
// frames, one frame with a mid-frame error, and trailing idle.
func newSimulatedSource() gmii.Source {
	builder := testutil.NewStreamBuilder().
		Gap(4).
		Frame(testutil.RandomPayload(60, 1)).
		Frame(testutil.RandomPayload(28, 2)).
		Preamble(testutil.StandardPreambleLen).
		Delimiter().
		Payload(testutil.RandomPayload(10, 3)...).
		ErrorOctet(0x00).
		Payload(testutil.RandomPayload(10, 4)...).
		Gap(1).
		Frame(testutil.RandomPayload(16, 5))

	source := gmii.NewMockSource()
	source.QueueEvents(builder.Events()...)
	source.SetEOF(gmii.ErrSourceClosed)
	return source
}

// dumpFrame prints one reconstructed frame as hex, flagging tagged octets.
func dumpFrame(queue *fifo.Queue, octets int) {
	var sb strings.Builder
	errored := false
	for range octets {
		entry, ok := queue.Pop()
		if !ok {
			break
		}
		if entry.Error {
			errored = true
		}
		_, _ = fmt.Fprintf(&sb, "%02X ", entry.Octet)
	}

	suffix := ""
	if errored {
		suffix = " [error tagged]"
	}
	_, _ = fmt.Printf("frame (%d octets)%s: %s\n", octets, suffix, strings.TrimSpace(sb.String()))
}

func printStats(l *link.Link) {
	gate := l.Gate().Stats()
	loop := l.Stats()

	_, _ = fmt.Printf("\nevents processed:   %d\n", loop.EventsProcessed)
	_, _ = fmt.Printf("frames started:     %d\n", gate.FramesStarted)
	_, _ = fmt.Printf("frames completed:   %d\n", gate.FramesCompleted)
	_, _ = fmt.Printf("frames dropped:     %d\n", gate.FramesDropped)
	_, _ = fmt.Printf("  at delimiter:     %d\n", gate.DropsBackpressureAtStart)
	_, _ = fmt.Printf("  backpressure:     %d\n", gate.DropsBackpressureMid)
	_, _ = fmt.Printf("  upstream error:   %d\n", gate.DropsErrorMid)
	_, _ = fmt.Printf("octets forwarded:   %d\n", gate.OctetsForwarded)
	_, _ = fmt.Printf("state faults:       %d\n", gate.StateFaults)
	_, _ = fmt.Printf("push failures:      %d\n", loop.PushFailures)
}

func run(ctx context.Context, cfg *config) error {
	source, err := newSource(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := source.Close(); closeErr != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Failed to close source: %v\n", closeErr)
		}
	}()

	queue, err := fifo.New(cfg.capacity, cfg.watermark)
	if err != nil {
		return fmt.Errorf("failed to create FIFO: %w", err)
	}
	defer func() { _ = queue.Close() }()

	l := link.New(source, queue, link.DefaultConfig())

	// Frame boundaries surface here, in the pump goroutine, immediately
	// after the last octet of the frame was pushed; draining the frame's
	// octets inside the callback keeps the dump ordered.
	l.OnFrameEnd = func(octets int) {
		dumpFrame(queue, octets)
	}
	l.Gate().OnDrop = func(cause gmii.DropCause) {
		_, _ = fmt.Printf("frame dropped: %s\n", cause)
	}

	defer printStats(l)

	if cfg.debug {
		_, _ = fmt.Printf("Reading from %s source. Press Ctrl+C to stop...\n", source.Type())
	}

	if err := l.Run(ctx); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, gmii.ErrSourceClosed) {
			return nil
		}
		return fmt.Errorf("receive loop failed: %w", err)
	}
	return nil
}

func main() {
	flag.Parse()
	os.Exit(mainWithExitCode())
}

func mainWithExitCode() int {
	cfg := parseConfig()

	// Setup signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		_, _ = fmt.Print("\nShutting down gracefully...\n")
		cancel()
	}()

	if err := run(ctx, cfg); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

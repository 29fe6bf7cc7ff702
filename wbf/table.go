// Copyright 2025 The Waved Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package wbf

import (
	"errors"
	"fmt"
	"log"

	"periph.io/x/conn/v3/physic"
)

// ErrRange is returned by lookups whose mode or temperature falls outside
// the table.
var ErrRange = errors.New("wbf: mode or temperature out of range")

// Opts holds decoding options.
type Opts struct {
	// SampleTemperature is the temperature, in Celsius, of the waveform
	// sampled when classifying each mode into a kind. The no-op pattern
	// of a mode could in principle differ at extreme temperatures, so the
	// sample should sit well inside the panel's operating range.
	SampleTemperature int
}

// DefaultOpts are the options used when Decode or Load receive nil.
var DefaultOpts = Opts{
	SampleTemperature: 21,
}

// Table is a decoded waveform table. It is immutable after decoding and
// safe for concurrent lookups.
type Table struct {
	frameRate uint8
	modeCount int

	kinds    []ModeKind
	idByKind map[ModeKind]ModeID

	// Temperature range thresholds. The waveform for range i covers
	// [temperatures[i], temperatures[i+1]); the last value is the exclusive
	// upper bound of the operating range.
	temperatures []int8

	// Unique waveform blocks. This slice may be smaller than
	// modeCount*(len(temperatures)-1) since several mode and temperature
	// combinations can share one block.
	waveforms []Waveform

	// lookup[mode][range] indexes into waveforms.
	lookup [][]int
}

// Lookup returns the waveform driving transitions for the given mode in
// the temperature range containing the given reading.
func (t *Table) Lookup(mode ModeID, temperature int) (Waveform, error) {
	if int(mode) >= t.modeCount {
		return nil, fmt.Errorf("mode %d not supported, available modes are 0-%d: %w", mode, t.modeCount-1, ErrRange)
	}

	if len(t.temperatures) == 0 {
		return nil, fmt.Errorf("no temperature range available: %w", ErrRange)
	}

	if temperature < int(t.temperatures[0]) {
		return nil, fmt.Errorf("temperature %d °C too low, minimum operating temperature is %d °C: %w",
			temperature, t.temperatures[0], ErrRange)
	}

	last := len(t.temperatures) - 1
	if temperature >= int(t.temperatures[last]) {
		return nil, fmt.Errorf("temperature %d °C too high, maximum operating temperature is %d °C: %w",
			temperature, int(t.temperatures[last])-1, ErrRange)
	}

	rng := 0
	for rng+1 < last && temperature >= int(t.temperatures[rng+1]) {
		rng++
	}

	return t.waveforms[t.lookup[mode][rng]], nil
}

// FrameRate returns the panel refresh rate the waveforms are timed for.
func (t *Table) FrameRate() physic.Frequency {
	return physic.Frequency(t.frameRate) * physic.Hertz
}

// ModeCount returns the number of modes defined by the file.
func (t *Table) ModeCount() int {
	return t.modeCount
}

// ModeKind returns the kind classified for the given mode ID.
func (t *Table) ModeKind(mode ModeID) ModeKind {
	if int(mode) >= len(t.kinds) {
		return Unknown
	}
	return t.kinds[mode]
}

// ModeID returns the first mode ID classified as the given kind.
func (t *Table) ModeID(kind ModeKind) (ModeID, error) {
	id, ok := t.idByKind[kind]
	if !ok {
		return 0, fmt.Errorf("mode kind %s is not supported: %w", kind, ErrRange)
	}
	return id, nil
}

// Temperatures returns the operating temperature thresholds in Celsius.
// The waveform for range i covers temperatures[i] up to but excluding
// temperatures[i+1].
func (t *Table) Temperatures() []int8 {
	out := make([]int8, len(t.temperatures))
	copy(out, t.temperatures)
	return out
}

// classify assigns a kind to every mode by sampling one waveform per mode.
// Modes whose waveform cannot be classified stay addressable by ID and are
// reported as Unknown.
func (t *Table) classify(sampleTemperature int) {
	t.kinds = make([]ModeKind, t.modeCount)
	t.idByKind = make(map[ModeKind]ModeID)

	for mode := 0; mode < t.modeCount; mode++ {
		wf, err := t.Lookup(ModeID(mode), sampleTemperature)
		if err != nil {
			log.Printf("wbf: cannot sample mode %d at %d °C: %v", mode, sampleTemperature, err)
			t.kinds[mode] = Unknown
			continue
		}

		kind := classifyModeKind(wf)
		if kind == Unknown {
			log.Printf("wbf: could not detect mode kind for mode %d", mode)
		} else if _, dup := t.idByKind[kind]; !dup {
			t.idByKind[kind] = ModeID(mode)
		}
		t.kinds[mode] = kind
	}
}

// Copyright 2025 The Waved Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package wbf decodes E-Ink waveform definition (WBF) files.
//
// A WBF file describes, for every update mode and operating temperature
// range of a panel, the sequence of per-cell commands that transitions a
// cell from one grayscale intensity to another. The format is not
// officially documented; this decoder is based on the following unofficial
// sources:
//
//   - https://www.waveshare.net/w/upload/c/c4/E-paper-mode-declaration.pdf
//   - https://github.com/fread-ink/inkwave
//   - https://github.com/torvalds/linux/blob/master/drivers/video/fbdev/metronomefb.c
//
// All multi-byte values in WBF files are little-endian.
package wbf

// Phase is a command applied to an individual EPD cell for one frame
// interval.
type Phase uint8

const (
	// Noop leaves the cell in its present state.
	Noop Phase = 0b00
	// Black applies a current bringing black particles to the top.
	Black Phase = 0b01
	// White applies a current bringing white particles to the top.
	White Phase = 0b10
)

// Intensity is a 5-bit cell grayscale value. Only even values are used:
// 0 denotes full black, 30 full white.
type Intensity = uint8

// IntensityValues is the number of representable intensity levels.
const IntensityValues = 1 << 5

// PhaseMatrix gives the phase to apply during one frame to transition a
// cell between two intensities, indexed [from][to].
type PhaseMatrix [IntensityValues][IntensityValues]Phase

// Waveform is an ordered sequence of phase matrices. Its length is the
// number of frames needed to complete any transition in the mode and
// temperature range it was looked up for.
type Waveform []PhaseMatrix

// ModeID is an integer index of an update mode within a waveform file.
type ModeID uint8

// ModeKind is the semantic family of an update mode. Several mode IDs may
// share a kind.
type ModeKind int

const (
	// Unknown marks modes the classifier could not identify.
	Unknown ModeKind = iota
	// Init forces all cells back to a known white state.
	Init
	// DU is a fast, non-flashy update that only supports transitions to
	// full black or full white.
	DU
	// DU4 is like DU but supports 4 gray tones.
	DU4
	// A2 is faster than DU and only supports transitions between full
	// black and full white.
	A2
	// GC16 is the full resolution mode (16 gray tones).
	GC16
	// GLR16 is the full resolution mode with support for Regal
	// transitions.
	GLR16
)

// String returns the conventional name of the mode kind.
func (k ModeKind) String() string {
	switch k {
	case Init:
		return "INIT"
	case DU:
		return "DU"
	case DU4:
		return "DU4"
	case A2:
		return "A2"
	case GC16:
		return "GC16"
	case GLR16:
		return "GLR16"
	default:
		return "UNKNOWN"
	}
}

// ParseModeKind converts a conventional mode kind name to a ModeKind.
// Unrecognized names map to Unknown.
func ParseModeKind(s string) ModeKind {
	switch s {
	case "INIT":
		return Init
	case "DU":
		return DU
	case "DU4":
		return DU4
	case "A2":
		return A2
	case "GC16":
		return GC16
	case "GLR16":
		return GLR16
	default:
		return Unknown
	}
}

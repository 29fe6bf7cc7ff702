// Copyright 2025 The Waved Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package epd

// Sync flags carried in the third byte of every buffer pixel. The scanout
// hardware recovers line and frame timing from these; data bytes only
// carry cell commands.
const (
	frameSync  = 0x01
	frameBegin = 0x02
	frameData  = 0x04
	frameEnd   = 0x08
	lineSync   = 0x10
	lineBegin  = 0x20
	lineData   = 0x40
	lineEnd    = 0x80
)

// syncRun is a horizontal run of buffer pixels sharing one sync byte.
type syncRun struct {
	count uint32
	flags byte
}

// Sync patterns of the reference panel, one run list per row class. Every
// generated frame must preserve this pattern; a frame carrying only these
// flags and zeroed data bytes leaves the display unchanged.
var (
	blankRowFirst = []syncRun{
		{20, frameSync | frameBegin | lineData},
		{20, frameSync | frameBegin | frameData | lineData},
		{63, frameSync | frameData | lineData},
		{40, frameSync | frameBegin | frameData | lineData},
		{117, frameSync | frameBegin | lineData},
	}
	blankRowEarly = []syncRun{
		{8, frameSync | lineData},
		{11, frameSync | lineBegin | lineData},
		{36, frameSync | lineData},
		{200, frameSync | frameBegin | lineData},
		{5, frameSync | lineData},
	}
	blankRowRest = []syncRun{
		{8, frameSync | lineData},
		{11, frameSync | lineBegin | lineData},
		{7, frameSync | lineData},
		{29, frameSync | lineSync | lineData},
		{200, frameSync | frameBegin | lineSync | lineData},
		{5, frameSync | lineSync | lineData},
	}
)

// buildBlankFrame returns a frame that drives the panel's sync inputs but
// leaves every cell idle.
func buildBlankFrame(dims Dims) []byte {
	frame := make([]byte, dims.FrameSize())

	writeRow := func(row uint32, runs []syncRun) {
		pos := row*dims.Stride() + 2
		for _, run := range runs {
			for i := uint32(0); i < run.count; i++ {
				frame[pos] = run.flags
				pos += dims.Depth
			}
		}
	}

	writeRow(0, blankRowFirst)
	for y := uint32(1); y < 3 && y < dims.Height; y++ {
		writeRow(y, blankRowEarly)
	}
	for y := uint32(3); y < dims.Height; y++ {
		writeRow(y, blankRowRest)
	}

	return frame
}

// Copyright 2025 The Waved Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package wbf

// classifyModeKind infers the kind of a mode from the shape of a sample
// waveform. Vendors do not store kinds in the file, so the classification
// is heuristic: the set of (from, to) transitions a mode actually drives
// is characteristic of its family.
func classifyModeKind(wf Waveform) ModeKind {
	// An INIT waveform applies the same phase sequence regardless of the
	// initial or target intensity.
	isInit := true
detect:
	for _, matrix := range wf {
		for from := 0; from < IntensityValues; from++ {
			for to := 0; to < IntensityValues; to++ {
				if matrix[from][to] != matrix[0][0] {
					isInit = false
					break detect
				}
			}
		}
	}
	if isInit {
		return Init
	}

	// Detect which intensity transitions are no-ops across every frame.
	var noop [IntensityValues][IntensityValues]bool
	for from := 0; from < IntensityValues; from++ {
		for to := 0; to < IntensityValues; to++ {
			noop[from][to] = true
			for _, matrix := range wf {
				if matrix[from][to] != Noop {
					noop[from][to] = false
					break
				}
			}
		}
	}

	// Regal waveforms drive a set of special transitions near white.
	regalable := !noop[28][29] && !noop[28][31] &&
		!noop[29][29] && !noop[29][31] &&
		!noop[30][29] && !noop[30][31]

	// Quantify how many source intensities are driven and how many
	// targets each drives on average.
	sources := 0
	targets := 0
	for from := 0; from < IntensityValues; from++ {
		defined := false
		for to := 0; to < IntensityValues; to++ {
			if !noop[from][to] {
				targets++
				defined = true
			}
		}
		if defined {
			sources++
		}
	}
	if sources == 0 {
		return Unknown
	}
	avgTargets := float64(targets) / float64(sources)

	if sources >= 16 {
		switch {
		case avgTargets < 2:
			return DU
		case avgTargets < 4:
			return DU4
		case avgTargets >= 16 && regalable:
			return GLR16
		case avgTargets >= 16:
			return GC16
		}
	}

	if sources <= 8 && avgTargets <= 1 {
		return A2
	}

	return Unknown
}

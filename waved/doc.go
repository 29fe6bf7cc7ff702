// Copyright 2025 The Waved Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package waved turns rectangular grayscale update requests into the
// frame stream an electrophoretic display panel needs.
//
// A cell of an E-Ink panel has no "set intensity" input: its final tone
// is the integral of many per-frame pull-black/pull-white/hold commands.
// A single logical update therefore expands into a temperature-dependent
// sequence of phase frames sourced from a vendor waveform table. The
// driver runs two workers: a generator that dequeues updates, coalesces
// compatible ones, and produces bit-packed frames; and a sender that
// copies each frame into the panel's back buffer and page-flips it in
// lockstep with vsync. Idle periods power the panel down.
//
// Batch updates generate every frame of the waveform before any is sent;
// quality modes use them. Immediate updates emit one frame at a time and
// accept new work mid-stroke, which keeps stylus latency low.
//
// Clients submit updates from any goroutine and may block on their
// completion. The driver assumes exclusive ownership of the panel.
package waved

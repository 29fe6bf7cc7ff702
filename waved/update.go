// Copyright 2025 The Waved Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package waved

import (
	"time"

	"github.com/epd-drivers/waved/wbf"
)

// UpdateID identifies a submitted update. IDs are unique for the lifetime
// of a driver.
type UpdateID uint32

// Update is one queued display update. An update is owned by exactly one
// stage at a time: the pending queue, the generator, then the sender,
// which finalizes it.
type Update struct {
	// IDs carried by this update. A single ID at submission; more after
	// compatible updates are merged in.
	IDs []UpdateID

	Mode      wbf.ModeID
	Immediate bool

	// Region touched by the update, in panel coordinates.
	Region Region

	// Target intensities of the region, row-major, Width*Height entries.
	Buffer []wbf.Intensity

	// Per-stage timing marks. Each GenerateStart/GenerateEnd pair
	// brackets the emission of one frame; VsyncStart/VsyncEnd pairs
	// bracket one page flip.
	Enqueue       []time.Time
	Dequeue       []time.Time
	GenerateStart []time.Time
	GenerateEnd   []time.Time
	VsyncStart    []time.Time
	VsyncEnd      []time.Time
}

// mergeWith extends the update to cover another one: the region becomes
// the bounding union and the ID and timing lists are concatenated. The
// target buffer is left alone; merge decisions are made against the
// generator's staging state, not by resampling buffers.
func (u *Update) mergeWith(o *Update) {
	u.IDs = append(u.IDs, o.IDs...)
	u.Region.Extend(o.Region)

	u.Enqueue = append(u.Enqueue, o.Enqueue...)
	u.Dequeue = append(u.Dequeue, o.Dequeue...)
	u.GenerateStart = append(u.GenerateStart, o.GenerateStart...)
	u.GenerateEnd = append(u.GenerateEnd, o.GenerateEnd...)
	u.VsyncStart = append(u.VsyncStart, o.VsyncStart...)
	u.VsyncEnd = append(u.VsyncEnd, o.VsyncEnd...)
}

// apply copies the update's target intensities into a cell buffer of the
// given row stride.
func (u *Update) apply(dst []wbf.Intensity, stride uint32) {
	src := u.Buffer
	for y := uint32(0); y < u.Region.Height; y++ {
		row := (u.Region.Top+y)*stride + u.Region.Left
		copy(dst[row:row+u.Region.Width], src[:u.Region.Width])
		src = src[u.Region.Width:]
	}
}

// setRegion shrinks the update to the cells still in motion. Immediate
// mode uses this so later frames only scan active cells.
func (u *Update) setRegion(r Region) {
	u.Region = r
}

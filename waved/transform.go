// Copyright 2025 The Waved Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package waved

import "github.com/epd-drivers/waved/wbf"

// intensityMask keeps the even 5-bit intensity values; odd values are
// reserved.
const intensityMask = 0x1E

// transformBuffer converts a row-major host-orientation buffer into panel
// orientation: the axes swap and both flip, and intensities are masked to
// the supported values. The host rectangle is width w and height h.
func transformBuffer(buf []wbf.Intensity, w, h uint32) []wbf.Intensity {
	out := make([]wbf.Intensity, len(buf))
	for k := range buf {
		i := h - uint32(k)%h - 1
		j := w - uint32(k)/h - 1
		out[k] = buf[i*w+j] & intensityMask
	}
	return out
}

// transformRegion converts a host-orientation rectangle into panel
// coordinates on a panel of the given visible size.
func transformRegion(r Region, panelW, panelH uint32) Region {
	return Region{
		Top:    panelH - r.Left - r.Width,
		Left:   panelW - r.Top - r.Height,
		Width:  r.Height,
		Height: r.Width,
	}
}

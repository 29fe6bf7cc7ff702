// Copyright 2025 The Waved Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package waved

// Region is a rectangular area of the panel. For compatibility with other
// display drivers, the top coordinate comes before the left one while
// width comes before height.
type Region struct {
	Top    uint32
	Left   uint32
	Width  uint32
	Height uint32
}

// Empty reports whether the region covers no cells.
func (r Region) Empty() bool {
	return r.Width == 0 || r.Height == 0
}

// Extend grows the region to the bounding union with another region. An
// empty region acts as the identity.
func (r *Region) Extend(o Region) {
	if o.Empty() {
		return
	}
	if r.Empty() {
		*r = o
		return
	}

	top := min(r.Top, o.Top)
	left := min(r.Left, o.Left)
	bottom := max(r.Top+r.Height, o.Top+o.Height)
	right := max(r.Left+r.Width, o.Left+o.Width)

	*r = Region{Top: top, Left: left, Width: right - left, Height: bottom - top}
}

// ExtendCell grows the region to include the given cell.
func (r *Region) ExtendCell(x, y uint32) {
	r.Extend(Region{Top: y, Left: x, Width: 1, Height: 1})
}

// Contains reports whether the region includes the given cell.
func (r Region) Contains(x, y uint32) bool {
	return x >= r.Left && x < r.Left+r.Width && y >= r.Top && y < r.Top+r.Height
}

// alignRegion widens a region so that both horizontal ends fall on a
// packed-pixel boundary. Cells brought in by the padding are expected to
// hold their current intensity, so they generate hold phases only.
func alignRegion(r Region, packedPixels uint32) Region {
	mask := packedPixels - 1
	if r.Left&mask == 0 && r.Width&mask == 0 {
		return r
	}

	pad := r.Left & mask
	r.Left &^= mask
	r.Width = (pad + r.Width + mask) &^ mask
	return r
}

// Copyright 2025 The Waved Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package waved

import (
	"fmt"
	"image"
	"image/color"

	"periph.io/x/conn/v3/display"

	"github.com/epd-drivers/waved/wbf"
)

var _ display.Drawer = &Driver{}

// ColorModel returns the grayscale color model of the panel.
func (d *Driver) ColorModel() color.Model {
	return color.GrayModel
}

// Bounds returns the panel bounds in host orientation: portrait, with the
// origin at the top left of the tablet.
func (d *Driver) Bounds() image.Rectangle {
	return image.Rect(0, 0, int(d.dims.VisibleHeight()), int(d.dims.VisibleWidth()))
}

// Draw paints the destination rectangle with the source image as one
// batch update in the best quality mode, and waits for it to reach the
// panel.
func (d *Driver) Draw(dstRect image.Rectangle, src image.Image, srcPts image.Point) error {
	dstRect = dstRect.Intersect(d.Bounds())
	if dstRect.Empty() {
		return nil
	}

	w := uint32(dstRect.Dx())
	h := uint32(dstRect.Dy())
	buffer := make([]wbf.Intensity, w*h)

	i := 0
	for y := dstRect.Min.Y; y < dstRect.Max.Y; y++ {
		for x := dstRect.Min.X; x < dstRect.Max.X; x++ {
			c := color.GrayModel.Convert(src.At(srcPts.X+x-dstRect.Min.X, srcPts.Y+y-dstRect.Min.Y)).(color.Gray)
			buffer[i] = wbf.Intensity(c.Y>>3) & intensityMask
			i++
		}
	}

	region := Region{
		Top:    uint32(dstRect.Min.Y),
		Left:   uint32(dstRect.Min.X),
		Width:  w,
		Height: h,
	}

	kind := wbf.GC16
	id, err := d.SubmitKind(kind, false, region, buffer)
	if err != nil {
		return fmt.Errorf("waved: draw: %w", err)
	}

	d.WaitFor(id)
	return nil
}

// String implements conn.Resource.
func (d *Driver) String() string {
	return fmt.Sprintf("waved.Driver{%dx%d}", d.dims.VisibleHeight(), d.dims.VisibleWidth())
}

// Halt waits for pending updates to settle. The sender powers the panel
// down on its own once the idle timeout elapses.
func (d *Driver) Halt() error {
	d.WaitForAll()
	return nil
}

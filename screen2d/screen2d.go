// Copyright 2025 The Waved Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package screen2d implements a display.Drawer that renders a grayscale
// cell grid to the terminal (stdout) using ANSI color codes.
//
// Useful for watching what a panel driver would paint while developing on
// a machine without the panel hardware.
package screen2d

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"io"

	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"
	"periph.io/x/conn/v3/display"

	"github.com/epd-drivers/waved/wbf"
)

// Opts represents the options available for this display.
type Opts struct {
	X       int
	Y       int
	Palette *ansi256.Palette

	_ struct{}
}

// Dev is a panel emulator that outputs to the console.
type Dev struct {
	w       io.Writer
	x, y    int
	palette ansi256.Palette

	cells []wbf.Intensity
	buf   bytes.Buffer
}

var _ display.Drawer = &Dev{}

// New returns a Dev that displays at the console.
func New(opts *Opts) *Dev {
	p := opts.Palette
	if p == nil {
		p = ansi256.Default
	}
	d := &Dev{
		w:       colorable.NewColorableStdout(),
		x:       opts.X,
		y:       opts.Y,
		palette: *p,
		cells:   make([]wbf.Intensity, opts.X*opts.Y),
	}
	return d
}

func (d *Dev) String() string {
	return "Screen2D"
}

// Halt implements conn.Resource.
//
// It resets the terminal colors so the console is not corrupted.
func (d *Dev) Halt() error {
	_, err := d.w.Write([]byte("\n\033[0m"))
	return err
}

// Write accepts a row-major stream of 5-bit intensities and renders it.
func (d *Dev) Write(cells []wbf.Intensity) (int, error) {
	if len(cells) != len(d.cells) {
		return 0, errors.New("invalid intensity grid length")
	}
	copy(d.cells, cells)
	return d.refresh()
}

// ColorModel implements display.Drawer.
func (d *Dev) ColorModel() color.Model {
	return color.GrayModel
}

// Bounds implements display.Drawer.
func (d *Dev) Bounds() image.Rectangle {
	return image.Rect(0, 0, d.x, d.y)
}

// Draw implements display.Drawer.
func (d *Dev) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	r = r.Intersect(d.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			c := color.GrayModel.Convert(src.At(sp.X+x-r.Min.X, sp.Y+y-r.Min.Y)).(color.Gray)
			d.cells[y*d.x+x] = wbf.Intensity(c.Y>>3) &^ 1
		}
	}
	_, err := d.refresh()
	return err
}

func (d *Dev) refresh() (int, error) {
	// This code is designed to minimize the amount of memory allocated
	// per call.
	d.buf.Reset()
	_, _ = d.buf.WriteString("\033[H\033[0m")
	for y := 0; y < d.y; y++ {
		for x := 0; x < d.x; x++ {
			v := byte(d.cells[y*d.x+x]) << 3
			c := color.NRGBA{v, v, v, 255}
			_, _ = io.WriteString(&d.buf, d.palette.Block(c))
		}
		_, _ = d.buf.WriteString("\033[0m\n")
	}
	_, err := d.buf.WriteTo(d.w)
	return len(d.cells), err
}

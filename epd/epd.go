// Copyright 2025 The Waved Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package epd gives access to the scanout controller of an electrophoretic
// display panel exposed as a Linux framebuffer device.
//
// The controller scans out fixed-size frames at the panel's native refresh
// rate. Each frame tells every cell whether to pull black, pull white, or
// hold; a picture emerges from the sequence of frames scanned out, not
// from any single one. This package owns the memory-mapped scanout region,
// the double-buffered page flip, the panel power state, and the panel
// temperature sensor. Frame contents are produced elsewhere.
//
// The package assumes exclusive access to the panel device. Concurrent
// access from other processes leads to unpredictable behavior.
package epd

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"periph.io/x/conn/v3/physic"
)

// ErrGeometry is returned by Start when the device reports a geometry
// other than the compiled-in expectation.
var ErrGeometry = errors.New("epd: framebuffer has invalid dimensions")

// Dims describes the scanout framebuffer geometry of a panel.
type Dims struct {
	// Width is the number of buffer pixels in a frame line and Depth the
	// number of bytes per buffer pixel.
	Width uint32
	Depth uint32

	// PackedPixels is the number of display cells encoded in one buffer
	// pixel.
	PackedPixels uint32

	// Height is the number of lines in a frame and FrameCount the number
	// of frame slots allocated in the framebuffer.
	Height     uint32
	FrameCount uint32

	// Blanking margins within each frame.
	LeftMargin  uint32
	RightMargin uint32
	UpperMargin uint32
	LowerMargin uint32
}

// ReMarkable2 is the geometry of the reMarkable 2 scanout framebuffer.
var ReMarkable2 = Dims{
	Width:        260,
	Depth:        4,
	PackedPixels: 8,
	Height:       1408,
	FrameCount:   17,
	LeftMargin:   26,
	RightMargin:  0,
	UpperMargin:  3,
	LowerMargin:  1,
}

// Stride returns the number of bytes per frame line.
func (d Dims) Stride() uint32 { return d.Width * d.Depth }

// FrameSize returns the number of bytes per frame.
func (d Dims) FrameSize() uint32 { return d.Stride() * d.Height }

// TotalSize returns the number of bytes of all frame slots.
func (d Dims) TotalSize() uint32 { return d.FrameSize() * d.FrameCount }

// VisibleWidth returns the number of display cells in a line.
func (d Dims) VisibleWidth() uint32 {
	return (d.Width - d.LeftMargin - d.RightMargin) * d.PackedPixels
}

// VisibleHeight returns the number of usable lines in a frame.
func (d Dims) VisibleHeight() uint32 {
	return d.Height - d.UpperMargin - d.LowerMargin
}

// VisibleSize returns the number of display cells on the panel.
func (d Dims) VisibleSize() uint32 { return d.VisibleWidth() * d.VisibleHeight() }

// temperatureReadInterval is how long a temperature reading stays fresh.
const temperatureReadInterval = 30 * time.Second

// readSeekCloser is the access needed on the temperature sensor file.
type readSeekCloser interface {
	io.ReadSeeker
	io.Closer
}

// Dev drives the scanout controller of one panel.
type Dev struct {
	io     panelIO
	sensor readSeekCloser
	dims   Dims

	varInfo VarScreeninfo
	fixInfo FixScreeninfo

	// Memory-mapped scanout region, nil until Start.
	scanout []byte

	// Frame that leaves every cell idle, with the per-row sync pattern
	// preloaded.
	blank []byte

	// Slot indices of the double buffer. frontIndex is -1 until the
	// first page flip after power-on.
	frontIndex int
	backIndex  int

	power bool

	mu       sync.Mutex
	tempC    int
	tempRead time.Time
	now      func() time.Time
}

// New opens the panel controller on the given framebuffer and temperature
// sensor device paths.
func New(framebufferPath, sensorPath string, dims Dims) (*Dev, error) {
	fb, err := openFramebuffer(framebufferPath)
	if err != nil {
		return nil, err
	}

	sensor, err := openSensor(sensorPath)
	if err != nil {
		fb.close()
		return nil, err
	}

	return newDev(fb, sensor, dims), nil
}

func newDev(io panelIO, sensor readSeekCloser, dims Dims) *Dev {
	return &Dev{
		io:         io,
		sensor:     sensor,
		dims:       dims,
		frontIndex: -1,
		now:        time.Now,
	}
}

// Dims returns the framebuffer geometry.
func (d *Dev) Dims() Dims { return d.dims }

// Start powers the panel on, validates the reported geometry, maps the
// scanout region, and preloads every frame slot with the blank frame.
func (d *Dev) Start() error {
	if err := d.SetPower(true); err != nil {
		return err
	}
	d.Temperature()

	if err := d.io.getVarScreeninfo(&d.varInfo); err != nil {
		return fmt.Errorf("epd: fetch vscreeninfo: %w", err)
	}
	if err := d.io.getFixScreeninfo(&d.fixInfo); err != nil {
		return fmt.Errorf("epd: fetch fscreeninfo: %w", err)
	}

	if d.varInfo.Xres != d.dims.Width ||
		d.varInfo.Yres != d.dims.Height ||
		d.varInfo.XresVirtual != d.dims.Width ||
		d.varInfo.YresVirtual != d.dims.Height*d.dims.FrameCount ||
		d.fixInfo.SmemLen < d.dims.TotalSize() {
		return fmt.Errorf("%w: reported %dx%d virtual %dx%d mem %d",
			ErrGeometry, d.varInfo.Xres, d.varInfo.Yres,
			d.varInfo.XresVirtual, d.varInfo.YresVirtual, d.fixInfo.SmemLen)
	}

	scanout, err := d.io.mmap(int(d.fixInfo.SmemLen))
	if err != nil {
		return fmt.Errorf("epd: map framebuffer: %w", err)
	}
	d.scanout = scanout

	d.blank = buildBlankFrame(d.dims)
	for slot := uint32(0); slot < d.dims.FrameCount; slot++ {
		copy(d.scanout[slot*d.dims.FrameSize():], d.blank)
	}

	d.frontIndex = -1
	d.backIndex = 0
	return nil
}

// Stop unmaps the scanout region and powers the panel off.
func (d *Dev) Stop() error {
	if d.scanout != nil {
		if err := d.io.munmap(d.scanout); err != nil {
			return fmt.Errorf("epd: unmap framebuffer: %w", err)
		}
		d.scanout = nil
	}
	return d.SetPower(false)
}

// Close stops the controller and releases the device files.
func (d *Dev) Close() error {
	err := d.Stop()
	if cerr := d.sensor.Close(); err == nil {
		err = cerr
	}
	if cerr := d.io.close(); err == nil {
		err = cerr
	}
	return err
}

// SetPower turns the panel power supply on or off. The call is idempotent
// and leaves the recorded state unchanged if the device rejects the
// transition.
func (d *Dev) SetPower(on bool) error {
	if on != d.power {
		if err := d.io.blank(on); err != nil {
			return fmt.Errorf("epd: set power: %w", err)
		}
		d.power = on
	}

	if !d.power {
		// The controller loses its scanout position when unpowered; the
		// next flip must reprogram it from scratch.
		d.frontIndex = -1
	}
	return nil
}

// Temperature returns the panel temperature, refreshing the reading at
// most every 30 seconds. While the panel is powered off, the last reading
// is returned unchanged.
func (d *Dev) Temperature() physic.Temperature {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.power && d.now().Sub(d.tempRead) > temperatureReadInterval {
		if c, err := d.readSensor(); err == nil {
			d.tempC = c
			d.tempRead = d.now()
		}
	}

	return physic.ZeroCelsius + physic.Temperature(d.tempC)*physic.Celsius
}

func (d *Dev) readSensor() (int, error) {
	if _, err := d.sensor.Seek(0, io.SeekStart); err != nil {
		return 0, fmt.Errorf("epd: seek temperature file: %w", err)
	}

	buf := make([]byte, 12)
	n, err := d.sensor.Read(buf)
	if n == 0 && err != nil {
		return 0, fmt.Errorf("epd: read temperature: %w", err)
	}

	c, err := strconv.Atoi(strings.TrimSpace(string(buf[:n])))
	if err != nil {
		return 0, fmt.Errorf("epd: parse temperature: %w", err)
	}
	return c, nil
}

// BackBuffer returns the frame slot currently safe to write.
func (d *Dev) BackBuffer() []byte {
	off := uint32(d.backIndex) * d.dims.FrameSize()
	return d.scanout[off : off+d.dims.FrameSize()]
}

// BlankFrame returns the preloaded blank frame template. Callers must not
// modify it.
func (d *Dev) BlankFrame() []byte { return d.blank }

// PageFlip programs the back slot as the next scanout source and swaps
// the double buffer. The first flip after power-on schedules immediately;
// subsequent flips block until the panel's next vsync interval.
func (d *Dev) PageFlip() error {
	d.varInfo.Yoffset = uint32(d.backIndex) * d.dims.Height

	var err error
	if d.frontIndex == -1 {
		err = d.io.putVarScreeninfo(&d.varInfo)
	} else {
		err = d.io.panDisplay(&d.varInfo)
	}
	if err != nil {
		return fmt.Errorf("epd: page flip: %w", err)
	}

	d.frontIndex = d.backIndex
	d.backIndex = (d.frontIndex + 1) % 2
	return nil
}

// Copyright 2025 The Waved Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package epd

// Framebuffer ioctl requests and blanking levels from linux/fb.h.
const (
	fbioGetVScreeninfo = 0x4600
	fbioPutVScreeninfo = 0x4601
	fbioGetFScreeninfo = 0x4602
	fbioPanDisplay     = 0x4606
	fbioBlank          = 0x4611

	fbBlankUnblank   = 0
	fbBlankPowerdown = 4
)

// Bitfield mirrors struct fb_bitfield.
type Bitfield struct {
	Offset   uint32
	Length   uint32
	MSBRight uint32
}

// VarScreeninfo mirrors struct fb_var_screeninfo.
type VarScreeninfo struct {
	Xres        uint32
	Yres        uint32
	XresVirtual uint32
	YresVirtual uint32
	Xoffset     uint32
	Yoffset     uint32

	BitsPerPixel uint32
	Grayscale    uint32

	Red    Bitfield
	Green  Bitfield
	Blue   Bitfield
	Transp Bitfield

	Nonstd   uint32
	Activate uint32

	Height uint32
	Width  uint32

	AccelFlags uint32

	Pixclock    uint32
	LeftMargin  uint32
	RightMargin uint32
	UpperMargin uint32
	LowerMargin uint32
	HsyncLen    uint32
	VsyncLen    uint32
	Sync        uint32
	Vmode       uint32
	Rotate      uint32
	Colorspace  uint32
	Reserved    [4]uint32
}

// FixScreeninfo mirrors struct fb_fix_screeninfo.
type FixScreeninfo struct {
	ID           [16]byte
	SmemStart    uintptr
	SmemLen      uint32
	Type         uint32
	TypeAux      uint32
	Visual       uint32
	Xpanstep     uint16
	Ypanstep     uint16
	Ywrapstep    uint16
	LineLength   uint32
	MmioStart    uintptr
	MmioLen      uint32
	Accel        uint32
	Capabilities uint16
	Reserved     [2]uint16
}

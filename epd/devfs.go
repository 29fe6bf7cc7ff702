// Copyright 2025 The Waved Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package epd

import (
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// panelIO is the device access the controller needs. The production
// implementation issues ioctls on the framebuffer node; tests substitute
// a fake.
type panelIO interface {
	getVarScreeninfo(*VarScreeninfo) error
	putVarScreeninfo(*VarScreeninfo) error
	panDisplay(*VarScreeninfo) error
	getFixScreeninfo(*FixScreeninfo) error
	blank(on bool) error
	mmap(length int) ([]byte, error)
	munmap([]byte) error
	close() error
}

// fbdev is the panelIO implementation backed by a framebuffer device node.
type fbdev struct {
	fd int
}

func openFramebuffer(path string) (*fbdev, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("epd: open %s: %w", path, err)
	}
	return &fbdev{fd: fd}, nil
}

func openSensor(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("epd: open %s: %w", path, err)
	}
	return f, nil
}

func (f *fbdev) ioctl(request uintptr, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(f.fd), request, uintptr(arg))
	if errno != 0 {
		return errno
	}
	return nil
}

func (f *fbdev) getVarScreeninfo(v *VarScreeninfo) error {
	return f.ioctl(fbioGetVScreeninfo, unsafe.Pointer(v))
}

func (f *fbdev) putVarScreeninfo(v *VarScreeninfo) error {
	return f.ioctl(fbioPutVScreeninfo, unsafe.Pointer(v))
}

// panDisplay schedules the programmed offset for the next scanout. The
// kernel driver blocks the caller until the vsync interval of the
// previous frame has elapsed.
func (f *fbdev) panDisplay(v *VarScreeninfo) error {
	return f.ioctl(fbioPanDisplay, unsafe.Pointer(v))
}

func (f *fbdev) getFixScreeninfo(v *FixScreeninfo) error {
	return f.ioctl(fbioGetFScreeninfo, unsafe.Pointer(v))
}

func (f *fbdev) blank(on bool) error {
	level := uintptr(fbBlankPowerdown)
	if on {
		level = fbBlankUnblank
	}

	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(f.fd), fbioBlank, level)
	if errno != 0 {
		return errno
	}
	return nil
}

func (f *fbdev) mmap(length int) ([]byte, error) {
	return unix.Mmap(f.fd, 0, length, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
}

func (f *fbdev) munmap(b []byte) error {
	return unix.Munmap(b)
}

func (f *fbdev) close() error {
	return unix.Close(f.fd)
}

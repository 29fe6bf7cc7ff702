// Copyright 2025 The Waved Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package waved

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/epd-drivers/waved/wbf"
)

func TestTransformBuffer(t *testing.T) {
	// A 2x1 host row maps to a flipped 1x2 panel column.
	got := transformBuffer([]wbf.Intensity{2, 4}, 2, 1)
	if diff := cmp.Diff(got, []wbf.Intensity{4, 2}); diff != "" {
		t.Errorf("transformBuffer() difference (-got +want):\n%s", diff)
	}
}

func TestTransformBufferMasksIntensities(t *testing.T) {
	got := transformBuffer([]wbf.Intensity{31, 255, 7}, 3, 1)
	for _, v := range got {
		if v&1 != 0 || v >= 32 {
			t.Errorf("transformed intensity %d is not an even 5-bit value", v)
		}
	}
}

func TestTransformBufferSelfInverse(t *testing.T) {
	const w, h = 3, 4
	buf := make([]wbf.Intensity, w*h)
	for i := range buf {
		buf[i] = wbf.Intensity(2 * (i % 16))
	}

	once := transformBuffer(buf, w, h)
	twice := transformBuffer(once, h, w)

	if diff := cmp.Diff(twice, buf); diff != "" {
		t.Errorf("double transform difference (-got +want):\n%s", diff)
	}
}

func TestTransformRegionSelfInverse(t *testing.T) {
	const panelW, panelH = 32, 6
	r := Region{Top: 1, Left: 2, Width: 3, Height: 8}

	once := transformRegion(r, panelW, panelH)
	twice := transformRegion(once, panelH, panelW)

	if diff := cmp.Diff(twice, r); diff != "" {
		t.Errorf("double transform difference (-got +want):\n%s", diff)
	}
}

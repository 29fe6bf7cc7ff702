// Copyright 2025 The Waved Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package waved

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/epd-drivers/waved/wbf"
)

func TestUpdateMergeWith(t *testing.T) {
	u := &Update{
		IDs:    []UpdateID{1},
		Region: Region{Top: 0, Left: 0, Width: 100, Height: 100},
	}
	o := &Update{
		IDs:    []UpdateID{2},
		Region: Region{Top: 200, Left: 200, Width: 100, Height: 100},
	}

	u.mergeWith(o)

	if diff := cmp.Diff(u.IDs, []UpdateID{1, 2}); diff != "" {
		t.Errorf("IDs difference (-got +want):\n%s", diff)
	}
	want := Region{Top: 0, Left: 0, Width: 300, Height: 300}
	if diff := cmp.Diff(u.Region, want); diff != "" {
		t.Errorf("Region difference (-got +want):\n%s", diff)
	}
}

func TestUpdateMergeWithEmptyRegion(t *testing.T) {
	u := &Update{
		IDs:    []UpdateID{1},
		Region: Region{Top: 4, Left: 8, Width: 16, Height: 2},
	}

	u.mergeWith(&Update{IDs: []UpdateID{2}})

	want := Region{Top: 4, Left: 8, Width: 16, Height: 2}
	if diff := cmp.Diff(u.Region, want); diff != "" {
		t.Errorf("Region difference (-got +want):\n%s", diff)
	}
}

func TestUpdateApply(t *testing.T) {
	dst := make([]wbf.Intensity, 4*4)
	u := &Update{
		Region: Region{Top: 1, Left: 2, Width: 2, Height: 2},
		Buffer: []wbf.Intensity{2, 4, 6, 8},
	}

	u.apply(dst, 4)

	want := []wbf.Intensity{
		0, 0, 0, 0,
		0, 0, 2, 4,
		0, 0, 6, 8,
		0, 0, 0, 0,
	}
	if diff := cmp.Diff(dst, want); diff != "" {
		t.Errorf("apply() difference (-got +want):\n%s", diff)
	}
}

// Copyright 2025 The Waved Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package waved

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestRegionExtend(t *testing.T) {
	for _, tc := range []struct {
		name string
		r    Region
		o    Region
		want Region
	}{
		{
			name: "empty is identity",
			r:    Region{Top: 2, Left: 3, Width: 4, Height: 5},
			o:    Region{},
			want: Region{Top: 2, Left: 3, Width: 4, Height: 5},
		},
		{
			name: "into empty",
			r:    Region{},
			o:    Region{Top: 2, Left: 3, Width: 4, Height: 5},
			want: Region{Top: 2, Left: 3, Width: 4, Height: 5},
		},
		{
			name: "disjoint",
			r:    Region{Top: 0, Left: 0, Width: 100, Height: 100},
			o:    Region{Top: 200, Left: 200, Width: 100, Height: 100},
			want: Region{Top: 0, Left: 0, Width: 300, Height: 300},
		},
		{
			name: "contained",
			r:    Region{Top: 0, Left: 0, Width: 10, Height: 10},
			o:    Region{Top: 2, Left: 2, Width: 2, Height: 2},
			want: Region{Top: 0, Left: 0, Width: 10, Height: 10},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.r
			got.Extend(tc.o)
			if diff := cmp.Diff(got, tc.want); diff != "" {
				t.Errorf("Extend() difference (-got +want):\n%s", diff)
			}
		})
	}
}

func TestRegionContains(t *testing.T) {
	r := Region{Top: 2, Left: 3, Width: 4, Height: 5}

	for _, tc := range []struct {
		x, y uint32
		want bool
	}{
		{3, 2, true},
		{6, 6, true},
		{7, 2, false},
		{3, 7, false},
		{2, 2, false},
		{0, 0, false},
	} {
		if got := r.Contains(tc.x, tc.y); got != tc.want {
			t.Errorf("Contains(%d, %d) = %v, want %v", tc.x, tc.y, got, tc.want)
		}
	}
}

func TestAlignRegion(t *testing.T) {
	for _, tc := range []struct {
		name string
		r    Region
		want Region
	}{
		{
			name: "already aligned",
			r:    Region{Top: 1, Left: 8, Width: 16, Height: 2},
			want: Region{Top: 1, Left: 8, Width: 16, Height: 2},
		},
		{
			name: "unaligned left",
			r:    Region{Top: 0, Left: 11, Width: 8, Height: 1},
			want: Region{Top: 0, Left: 8, Width: 16, Height: 1},
		},
		{
			name: "unaligned width",
			r:    Region{Top: 0, Left: 8, Width: 3, Height: 1},
			want: Region{Top: 0, Left: 8, Width: 8, Height: 1},
		},
		{
			name: "unaligned both",
			r:    Region{Top: 0, Left: 13, Width: 14, Height: 1},
			want: Region{Top: 0, Left: 8, Width: 24, Height: 1},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got := alignRegion(tc.r, 8)
			if diff := cmp.Diff(got, tc.want); diff != "" {
				t.Errorf("alignRegion() difference (-got +want):\n%s", diff)
			}

			if got.Left%8 != 0 || got.Width%8 != 0 {
				t.Error("aligned region is not on a packed-pixel boundary")
			}
			if got.Left > tc.r.Left || got.Left+got.Width < tc.r.Left+tc.r.Width {
				t.Error("aligned region does not cover the original")
			}
		})
	}
}

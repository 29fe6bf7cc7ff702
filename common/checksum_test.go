// Copyright 2025 The Waved Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package common

import "testing"

func TestSum8(t *testing.T) {
	var tests = []struct {
		bytes  []byte
		result byte
	}{
		{bytes: nil, result: 0x00},
		{bytes: []byte{0xbe, 0xef}, result: 0xad},
		{bytes: []byte{0x01, 0xa4}, result: 0xa5},
		{bytes: []byte{0xff, 0x01, 0x02}, result: 0x02},
	}
	for _, test := range tests {
		res := Sum8(test.bytes)
		if res != test.result {
			t.Errorf("Sum8(%#v)!=0x%x received 0x%x", test.bytes, test.result, res)
		}
	}
}

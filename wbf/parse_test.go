// Copyright 2025 The Waved Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package wbf

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/epd-drivers/waved/common"
)

// encodeWaveform serializes a waveform the way WBF files store blocks,
// using non-repeat encoding throughout: a 0xFC toggle followed by one byte
// per four matrix entries, column-major, plus the two trailing bytes every
// block carries.
func encodeWaveform(wf Waveform) []byte {
	out := []byte{0xFC}
	for _, matrix := range wf {
		for to := 0; to < IntensityValues; to++ {
			for from := 0; from < IntensityValues; from += 4 {
				b := byte(matrix[from][to])<<6 |
					byte(matrix[from+1][to])<<4 |
					byte(matrix[from+2][to])<<2 |
					byte(matrix[from+3][to])
				out = append(out, b)
			}
		}
	}
	return append(out, 0, 0)
}

func encodePointer(target uint32) []byte {
	b1 := byte(target)
	b2 := byte(target >> 8)
	b3 := byte(target >> 16)
	return []byte{b1, b2, b3, b1 + b2 + b3}
}

// buildWBF assembles a checksummed WBF file holding the given temperature
// thresholds and one waveform per mode, each shared by every temperature
// range of its mode.
func buildWBF(t *testing.T, frameRate uint8, temps []int8, modes []Waveform) []byte {
	t.Helper()

	rangeCount := len(temps) - 1
	header := make([]byte, headerSize)
	header[12] = expectedRunType
	header[13] = expectedFPLPlatform
	binary.LittleEndian.PutUint16(header[14:], testFPLLot)
	header[16] = expectedAdhesiveRun
	header[19] = expectedWaveformType
	header[22] = expectedWaveformRevision
	header[24] = frameRate
	header[25] = expectedVcomOffset
	header[35] = expectedFVSN
	header[36] = expectedLUTS
	header[37] = byte(len(modes) - 1)
	header[38] = byte(rangeCount - 1)
	header[39] = expectedAdvancedWfmFlags
	header[31] = common.Sum8(header[8:31])
	header[47] = common.Sum8(header[32:47])

	var body bytes.Buffer
	body.Write(header)

	tempSection := make([]byte, 0, len(temps))
	for _, temp := range temps {
		tempSection = append(tempSection, byte(temp))
	}
	body.Write(tempSection)
	body.WriteByte(common.Sum8(tempSection))

	// Empty extra-info string plus its checksum byte.
	body.Write([]byte{0, 0})

	modeTableOff := body.Len()
	tempTablesOff := modeTableOff + 4*len(modes)
	blocksOff := tempTablesOff + 4*rangeCount*len(modes)

	encoded := make([][]byte, len(modes))
	blockOffsets := make([]uint32, len(modes))
	off := uint32(blocksOff)
	for i, wf := range modes {
		encoded[i] = encodeWaveform(wf)
		blockOffsets[i] = off
		off += uint32(len(encoded[i]))
	}

	for i := range modes {
		body.Write(encodePointer(uint32(tempTablesOff + 4*rangeCount*i)))
	}
	for i := range modes {
		for r := 0; r < rangeCount; r++ {
			body.Write(encodePointer(blockOffsets[i]))
		}
	}
	for _, block := range encoded {
		body.Write(block)
	}

	buf := body.Bytes()
	binary.LittleEndian.PutUint32(buf[4:], uint32(len(buf)))

	crc := crc32.Update(0, crc32.IEEETable, []byte{0, 0, 0, 0})
	crc = crc32.Update(crc, crc32.IEEETable, buf[4:])
	binary.LittleEndian.PutUint32(buf[0:], crc)

	return buf
}

// uniformWaveform returns a waveform applying the same phase to every
// transition in every frame.
func uniformWaveform(frames int, p Phase) Waveform {
	wf := make(Waveform, frames)
	for k := range wf {
		for from := 0; from < IntensityValues; from++ {
			for to := 0; to < IntensityValues; to++ {
				wf[k][from][to] = p
			}
		}
	}
	return wf
}

// duWaveform returns a waveform driving every source to full black only.
func duWaveform(frames int) Waveform {
	wf := make(Waveform, frames)
	for k := range wf {
		for from := 0; from < IntensityValues; from++ {
			wf[k][from][0] = Black
		}
	}
	return wf
}

func TestDecode(t *testing.T) {
	temps := []int8{0, 10, 20, 30}
	file := buildWBF(t, 85, temps, []Waveform{
		uniformWaveform(2, Black),
		duWaveform(3),
	})

	table, err := Decode(bytes.NewReader(file), nil)
	if err != nil {
		t.Fatalf("Decode() failed: %v", err)
	}

	if got, want := table.ModeCount(), 2; got != want {
		t.Errorf("ModeCount() = %d, want %d", got, want)
	}
	if got := table.FrameRate(); got.String() != "85Hz" {
		t.Errorf("FrameRate() = %s, want 85Hz", got)
	}
	if diff := cmp.Diff(table.Temperatures(), temps); diff != "" {
		t.Errorf("Temperatures() difference (-got +want):\n%s", diff)
	}

	wf, err := table.Lookup(0, 21)
	if err != nil {
		t.Fatalf("Lookup(0, 21) failed: %v", err)
	}
	if got, want := len(wf), 2; got != want {
		t.Errorf("Lookup(0, 21) length = %d, want %d", got, want)
	}

	wf, err = table.Lookup(1, 5)
	if err != nil {
		t.Fatalf("Lookup(1, 5) failed: %v", err)
	}
	if got, want := len(wf), 3; got != want {
		t.Errorf("Lookup(1, 5) length = %d, want %d", got, want)
	}
	for k := range wf {
		for from := 0; from < IntensityValues; from++ {
			if got, want := wf[k][from][0], Black; got != want {
				t.Fatalf("phase [%d][%d][0] = %d, want %d", k, from, got, want)
			}
			if got := wf[k][from][30]; got != Noop {
				t.Fatalf("phase [%d][%d][30] = %d, want Noop", k, from, got)
			}
		}
	}

	// Repeated lookups return the same waveform.
	again, err := table.Lookup(1, 5)
	if err != nil {
		t.Fatalf("repeated Lookup(1, 5) failed: %v", err)
	}
	if &again[0] != &wf[0] {
		t.Error("repeated lookup returned a different waveform")
	}

	if got := table.ModeKind(0); got != Init {
		t.Errorf("ModeKind(0) = %s, want INIT", got)
	}
	if got := table.ModeKind(1); got != DU {
		t.Errorf("ModeKind(1) = %s, want DU", got)
	}
	if id, err := table.ModeID(DU); err != nil || id != 1 {
		t.Errorf("ModeID(DU) = %d, %v, want 1, nil", id, err)
	}
	if _, err := table.ModeID(A2); !errors.Is(err, ErrRange) {
		t.Errorf("ModeID(A2) error = %v, want ErrRange", err)
	}
}

func TestLookupRange(t *testing.T) {
	file := buildWBF(t, 85, []int8{0, 10, 20, 30}, []Waveform{duWaveform(2)})
	table, err := Decode(bytes.NewReader(file), nil)
	if err != nil {
		t.Fatalf("Decode() failed: %v", err)
	}

	for _, tc := range []struct {
		name string
		mode ModeID
		temp int
		ok   bool
	}{
		{name: "bottom threshold", mode: 0, temp: 0, ok: true},
		{name: "inside last range", mode: 0, temp: 29, ok: true},
		{name: "max temperature", mode: 0, temp: 30},
		{name: "too hot", mode: 0, temp: 50},
		{name: "too cold", mode: 0, temp: -5},
		{name: "bad mode", mode: 7, temp: 21},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := table.Lookup(tc.mode, tc.temp)
			if tc.ok && err != nil {
				t.Errorf("Lookup(%d, %d) failed: %v", tc.mode, tc.temp, err)
			}
			if !tc.ok && !errors.Is(err, ErrRange) {
				t.Errorf("Lookup(%d, %d) error = %v, want ErrRange", tc.mode, tc.temp, err)
			}
		})
	}
}

func TestDecodeCorrupted(t *testing.T) {
	valid := buildWBF(t, 85, []int8{0, 10, 20, 30}, []Waveform{duWaveform(2)})

	corrupt := func(mutate func([]byte)) []byte {
		buf := bytes.Clone(valid)
		mutate(buf)
		return buf
	}

	for _, tc := range []struct {
		name string
		file []byte
	}{
		{name: "truncated", file: valid[:20]},
		{name: "flipped body byte", file: corrupt(func(b []byte) { b[len(b)-3] ^= 0xFF })},
		{name: "bad header checksum", file: corrupt(func(b []byte) { b[31] ^= 0xFF })},
		{name: "bad sentinel", file: corrupt(func(b []byte) {
			b[12] = 3
			b[31] = common.Sum8(b[8:31])
		})},
		{name: "bad filesize", file: corrupt(func(b []byte) {
			binary.LittleEndian.PutUint32(b[4:], 12)
		})},
		{name: "bad temperature checksum", file: corrupt(func(b []byte) { b[headerSize+4] ^= 0xFF })},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Decode(bytes.NewReader(tc.file), nil); !errors.Is(err, ErrParse) {
				t.Errorf("Decode() error = %v, want ErrParse", err)
			}
		})
	}
}

func TestDecodeRepeatEncoding(t *testing.T) {
	// One full matrix expressed as a single repeated byte: repeat mode is
	// on at block start, and 256 repetitions of four phases fill 32x32.
	block := []byte{0x55, 0xFF, 0, 0}

	wf, err := parseWaveform(block)
	if err != nil {
		t.Fatalf("parseWaveform() failed: %v", err)
	}
	if got, want := len(wf), 1; got != want {
		t.Fatalf("waveform length = %d, want %d", got, want)
	}
	for from := 0; from < IntensityValues; from++ {
		for to := 0; to < IntensityValues; to++ {
			if got, want := wf[0][from][to], Black; got != want {
				t.Fatalf("phase [%d][%d] = %d, want %d", from, to, got, want)
			}
		}
	}
}

func TestDecodeFPLNumber(t *testing.T) {
	for _, tc := range []struct {
		barcode string
		want    int16
	}{
		{barcode: "XQ123406", want: 6},
		{barcode: "XQ123443", want: 43},
		{barcode: "XQ1234AT", want: 346},
		{barcode: "XQ1234", want: -1},
		{barcode: "XQ12340I", want: -1},
	} {
		if got := decodeFPLNumber(tc.barcode); got != tc.want {
			t.Errorf("decodeFPLNumber(%q) = %d, want %d", tc.barcode, got, tc.want)
		}
	}
}

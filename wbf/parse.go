// Copyright 2025 The Waved Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package wbf

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"sort"

	"github.com/epd-drivers/waved/common"
)

// ErrParse is returned when a file violates the WBF structure.
var ErrParse = errors.New("wbf: malformed waveform file")

// headerSize is the fixed length of the WBF header.
const headerSize = 48

// header carries the WBF header fields the decoder acts on. Reserved and
// informational fields are verified where possible and otherwise skipped.
type header struct {
	checksum         uint32 // CRC-32 of the file with this field zeroed
	filesize         uint32
	serial           uint32
	runType          uint8
	fplPlatform      uint8
	fplLot           uint16
	adhesiveRun      uint8
	waveformType     uint8
	waveformRevision uint8
	frameRate        uint8
	vcomOffset       uint8
	fvsn             uint8
	luts             uint8
	modeCount        uint8 // index of the last mode
	tempRangeCount   uint8 // index of the last temperature range
	advancedWfmFlags uint8
}

// Values that are not expected to vary between files for the supported
// panel family. Since their exact meaning is unknown, decoding does not
// proceed if they differ.
const (
	expectedRunType          = 17
	expectedFPLPlatform      = 0
	expectedAdhesiveRun      = 25
	expectedWaveformType     = 81
	expectedWaveformRevision = 0
	expectedVcomOffset       = 0
	expectedFVSN             = 1
	expectedLUTS             = 4
	expectedAdvancedWfmFlags = 3
)

func parseHeader(buf []byte) (header, error) {
	var h header

	if len(buf) < headerSize {
		return h, fmt.Errorf("too short to be a WBF file: %d bytes, minimum header size is %d: %w",
			len(buf), headerSize, ErrParse)
	}

	h.checksum = binary.LittleEndian.Uint32(buf[0:])
	h.filesize = binary.LittleEndian.Uint32(buf[4:])
	h.serial = binary.LittleEndian.Uint32(buf[8:])
	h.runType = buf[12]
	h.fplPlatform = buf[13]
	h.fplLot = binary.LittleEndian.Uint16(buf[14:])
	h.adhesiveRun = buf[16]
	h.waveformType = buf[19]
	h.waveformRevision = buf[22]
	h.frameRate = buf[24]
	h.vcomOffset = buf[25]
	h.fvsn = buf[35]
	h.luts = buf[36]
	h.modeCount = buf[37]
	h.tempRangeCount = buf[38]
	h.advancedWfmFlags = buf[39]

	// The first byte checksum covers bytes 8-30, the second bytes 32-46.
	if got, want := common.Sum8(buf[8:31]), buf[31]; got != want {
		return h, fmt.Errorf("corrupted header: expected checksum1 %#02x, actual %#02x: %w", want, got, ErrParse)
	}
	if got, want := common.Sum8(buf[32:47]), buf[47]; got != want {
		return h, fmt.Errorf("corrupted header: expected checksum2 %#02x, actual %#02x: %w", want, got, ErrParse)
	}

	for _, check := range []struct {
		name     string
		got      int
		expected int
	}{
		{"run type", int(h.runType), expectedRunType},
		{"FPL platform", int(h.fplPlatform), expectedFPLPlatform},
		{"adhesive run", int(h.adhesiveRun), expectedAdhesiveRun},
		{"waveform type", int(h.waveformType), expectedWaveformType},
		{"waveform revision", int(h.waveformRevision), expectedWaveformRevision},
		{"VCOM offset", int(h.vcomOffset), expectedVcomOffset},
		{"FVSN", int(h.fvsn), expectedFVSN},
		{"LUTS", int(h.luts), expectedLUTS},
		{"advanced WFM flags", int(h.advancedWfmFlags), expectedAdvancedWfmFlags},
	} {
		if check.got != check.expected {
			return h, fmt.Errorf("invalid %s in header: expected %d, actual %d: %w",
				check.name, check.expected, check.got, ErrParse)
		}
	}

	return h, nil
}

// parsePointer reads a 24-bit little-endian section pointer followed by an
// additive checksum byte, returning the pointer and the position after it.
func parsePointer(buf []byte, off int) (uint32, int, error) {
	if off < 0 || off+4 > len(buf) {
		return 0, 0, fmt.Errorf("truncated section pointer at %d: %w", off, ErrParse)
	}

	b1, b2, b3 := buf[off], buf[off+1], buf[off+2]
	pointer := uint32(b1) | uint32(b2)<<8 | uint32(b3)<<16

	if got, want := b1+b2+b3, buf[off+3]; got != want {
		return 0, 0, fmt.Errorf("corrupted pointer at %d: expected checksum %#02x, actual %#02x: %w",
			off, want, got, ErrParse)
	}

	return pointer, off + 4, nil
}

func parseTemperatures(h header, buf []byte, off int) ([]int8, int, error) {
	count := int(h.tempRangeCount) + 2

	if off+count+1 > len(buf) {
		return nil, 0, fmt.Errorf("truncated temperature table: %w", ErrParse)
	}

	result := make([]int8, count)
	for i := 0; i < count; i++ {
		result[i] = int8(buf[off+i])
	}

	if got, want := common.Sum8(buf[off:off+count]), buf[off+count]; got != want {
		return nil, 0, fmt.Errorf("corrupted temperature table: expected checksum %#02x, actual %#02x: %w",
			want, got, ErrParse)
	}

	return result, off + count + 1, nil
}

// parseWaveform decodes one run-length encoded waveform block into a
// sequence of phase matrices.
//
// Each byte packs four 2-bit phases. While repeat mode is on, a byte is
// followed by a repetition count (stored minus one). A 0xFC byte toggles
// repeat mode; a 0xFF byte while repeat mode is on ends the block. Phases
// fill the matrix column-major: a full column per target intensity, a full
// matrix per frame.
func parseWaveform(block []byte) (Waveform, error) {
	if len(block) < 2 {
		return nil, fmt.Errorf("waveform block too short: %w", ErrParse)
	}
	// The last two bytes are not part of the encoded stream.
	block = block[:len(block)-2]

	var matrix PhaseMatrix
	var result Waveform

	i, j := 0, 0
	repeatMode := true

	for pos := 0; pos < len(block); {
		b := block[pos]
		pos++

		if b == 0xFC {
			repeatMode = !repeatMode
			continue
		}

		p1 := Phase(b >> 6)
		p2 := Phase((b >> 4) & 3)
		p3 := Phase((b >> 2) & 3)
		p4 := Phase(b & 3)

		repeat := 1
		if repeatMode && pos < len(block) {
			repeat = int(block[pos]) + 1
			pos++

			if b == 0xFF {
				break
			}
		}

		for n := 0; n < repeat; n++ {
			matrix[j][i] = p1
			matrix[j+1][i] = p2
			matrix[j+2][i] = p3
			matrix[j+3][i] = p4
			j += 4

			if j == IntensityValues {
				j = 0
				i++
			}
			if i == IntensityValues {
				i = 0
				result = append(result, matrix)
			}
		}
	}

	return result, nil
}

// findWaveformBlocks walks the two-level pointer table and returns the
// sorted set of unique waveform block addresses. Distinct mode and
// temperature combinations commonly share a block.
func findWaveformBlocks(h header, buf []byte, tableOff int) ([]uint32, error) {
	modeCount := int(h.modeCount) + 1
	tempCount := int(h.tempRangeCount) + 1

	seen := make(map[uint32]struct{})
	off := tableOff

	for mode := 0; mode < modeCount; mode++ {
		modeBegin, next, err := parsePointer(buf, off)
		if err != nil {
			return nil, err
		}
		off = next

		pos := int(modeBegin)
		for temp := 0; temp < tempCount; temp++ {
			block, next, err := parsePointer(buf, pos)
			if err != nil {
				return nil, err
			}
			pos = next
			seen[block] = struct{}{}
		}
	}

	blocks := make([]uint32, 0, len(seen))
	for block := range seen {
		blocks = append(blocks, block)
	}
	sort.Slice(blocks, func(a, b int) bool { return blocks[a] < blocks[b] })
	return blocks, nil
}

// parseWaveforms decodes every unique block and builds the per-mode,
// per-range lookup into the decoded slice.
func parseWaveforms(h header, blocks []uint32, buf []byte, tableOff int) ([]Waveform, [][]int, error) {
	waveforms := make([]Waveform, 0, len(blocks)-1)
	for i := 0; i+1 < len(blocks); i++ {
		begin, end := int(blocks[i]), int(blocks[i+1])
		if begin > end || end > len(buf) {
			return nil, nil, fmt.Errorf("waveform block %d out of bounds: %w", i, ErrParse)
		}

		wf, err := parseWaveform(buf[begin:end])
		if err != nil {
			return nil, nil, err
		}
		waveforms = append(waveforms, wf)
	}

	modeCount := int(h.modeCount) + 1
	tempCount := int(h.tempRangeCount) + 1
	lookup := make([][]int, 0, modeCount)
	off := tableOff

	for mode := 0; mode < modeCount; mode++ {
		modeBegin, next, err := parsePointer(buf, off)
		if err != nil {
			return nil, nil, err
		}
		off = next

		tempLookup := make([]int, 0, tempCount)
		pos := int(modeBegin)
		for temp := 0; temp < tempCount; temp++ {
			block, next, err := parsePointer(buf, pos)
			if err != nil {
				return nil, nil, err
			}
			pos = next

			idx := sort.Search(len(blocks), func(i int) bool { return blocks[i] >= block })
			if idx >= len(waveforms) {
				return nil, nil, fmt.Errorf("waveform pointer %#x outside decoded blocks: %w", block, ErrParse)
			}
			tempLookup = append(tempLookup, idx)
		}
		lookup = append(lookup, tempLookup)
	}

	return waveforms, lookup, nil
}

// Decode reads a complete WBF stream and returns the waveform table.
func Decode(r io.Reader, opts *Opts) (*Table, error) {
	if opts == nil {
		opts = &DefaultOpts
	}

	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("wbf: read file: %w", err)
	}

	h, err := parseHeader(buf)
	if err != nil {
		return nil, err
	}

	if int(h.filesize) != len(buf) {
		return nil, fmt.Errorf("invalid filesize in header: specified %d bytes, actual %d bytes: %w",
			h.filesize, len(buf), ErrParse)
	}

	// The stored CRC-32 covers the whole file with the checksum field
	// read as zero.
	crc := crc32.Update(0, crc32.IEEETable, []byte{0, 0, 0, 0})
	crc = crc32.Update(crc, crc32.IEEETable, buf[4:])
	if crc != h.checksum {
		return nil, fmt.Errorf("corrupted file: expected CRC32 %#08x, actual %#08x: %w", h.checksum, crc, ErrParse)
	}

	t := &Table{
		frameRate: h.frameRate,
		modeCount: int(h.modeCount) + 1,
	}
	if t.frameRate == 0 {
		t.frameRate = 85
	}

	temps, off, err := parseTemperatures(h, buf, headerSize)
	if err != nil {
		return nil, err
	}
	t.temperatures = temps

	// Skip the extra information string (length prefix, content, and a
	// trailing checksum byte). It usually repeats the file name.
	if off >= len(buf) {
		return nil, fmt.Errorf("truncated extra info section: %w", ErrParse)
	}
	off += int(buf[off]) + 2

	blocks, err := findWaveformBlocks(h, buf, off)
	if err != nil {
		return nil, err
	}
	blocks = append(blocks, uint32(len(buf)))

	waveforms, lookup, err := parseWaveforms(h, blocks, buf, off)
	if err != nil {
		return nil, err
	}
	t.waveforms = waveforms
	t.lookup = lookup

	t.classify(opts.SampleTemperature)
	return t, nil
}

// Load decodes the WBF file at the given path.
func Load(path string, opts *Opts) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("wbf: open file: %w", err)
	}
	defer f.Close()

	return Decode(f, opts)
}

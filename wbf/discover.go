// Copyright 2025 The Waved Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package wbf

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Default locations of the panel metadata device and the vendor waveform
// directory on the reference tablet.
const (
	metadataDevice    = "/dev/mmcblk2boot1"
	waveformDirectory = "/usr/share/remarkable"
)

// DiscoverFile locates the WBF file matching the installed panel.
//
// The metadata device holds a set of length-prefixed fields; the fourth
// one is a barcode identifying the panel's front panel laminate (FPL)
// batch. The candidate whose header fpl_lot field matches the decoded FPL
// number is selected.
func DiscoverFile() (string, error) {
	return discoverFile(metadataDevice, waveformDirectory)
}

func discoverFile(metadataPath, dir string) (string, error) {
	metadata, err := readMetadata(metadataPath)
	if err != nil {
		return "", err
	}

	if len(metadata) < 4 {
		return "", errors.New("wbf: panel metadata holds no barcode")
	}

	fplLot := decodeFPLNumber(metadata[3])
	if fplLot < 0 {
		return "", fmt.Errorf("wbf: cannot decode panel barcode %q", metadata[3])
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("wbf: scan waveform directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".wbf") {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		h, err := readHeader(path)
		if err != nil {
			// Ignore malformed candidates.
			continue
		}

		if int16(h.fplLot) == fplLot {
			return path, nil
		}
	}

	return "", fmt.Errorf("wbf: no waveform file for FPL lot %d in %s", fplLot, dir)
}

func readHeader(path string) (header, error) {
	f, err := os.Open(path)
	if err != nil {
		return header{}, err
	}
	defer f.Close()

	buf := make([]byte, headerSize)
	if _, err := io.ReadFull(f, buf); err != nil {
		return header{}, err
	}

	return parseHeader(buf)
}

// readMetadata reads the length-prefixed metadata fields from the metadata
// device. Lengths are big-endian; a zero length ends the list.
func readMetadata(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("wbf: open panel metadata: %w", err)
	}
	defer f.Close()

	var result []string
	for {
		var length uint32
		if err := binary.Read(f, binary.BigEndian, &length); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			return nil, fmt.Errorf("wbf: read panel metadata: %w", err)
		}

		if length == 0 {
			break
		}

		data := make([]byte, length)
		if _, err := io.ReadFull(f, data); err != nil {
			break
		}
		result = append(result, string(data))
	}

	return result, nil
}

// barcodeSymbolToInt maps a barcode symbol to its numeric value: digits to
// 0-9, then A-H, J-N and Q-Z to 10-32 (I, O and P are not used).
func barcodeSymbolToInt(symbol byte) int16 {
	switch {
	case '0' <= symbol && symbol <= '9':
		return int16(symbol - '0')
	case 'A' <= symbol && symbol <= 'H':
		return int16(symbol-'A') + 10
	case 'J' <= symbol && symbol <= 'N':
		return int16(symbol-'J') + 18
	case 'Q' <= symbol && symbol <= 'Z':
		return int16(symbol-'Q') + 23
	default:
		return -1
	}
}

// decodeFPLNumber extracts the FPL lot number from symbols 6 and 7 of a
// panel barcode, or -1 if the barcode cannot be decoded.
func decodeFPLNumber(barcode string) int16 {
	if len(barcode) < 8 {
		return -1
	}

	d6 := barcodeSymbolToInt(barcode[6])
	d7 := barcodeSymbolToInt(barcode[7])
	if d6 == -1 || d7 == -1 {
		return -1
	}

	if d7 < 10 {
		// Values from 0 to 329.
		return d7 + d6*10
	}

	// Symbol 7 is a letter: values from 330 upwards when symbol 6 is a
	// letter as well.
	return d7 + 320 + (d6-10)*23
}

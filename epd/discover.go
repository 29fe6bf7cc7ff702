// Copyright 2025 The Waved Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package epd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Device names of the reference panel's scanout controller and power
// management chip.
const (
	framebufferName = "mxs-lcdif"
	sensorName      = "sy7636a_temperature"
)

// DiscoverFramebuffer locates the panel's framebuffer device node by
// matching names under /sys/class/graphics.
func DiscoverFramebuffer() (string, error) {
	return discoverFramebuffer("/sys/class/graphics", "/dev")
}

func discoverFramebuffer(classDir, devDir string) (string, error) {
	entries, err := os.ReadDir(classDir)
	if err != nil {
		return "", fmt.Errorf("epd: scan %s: %w", classDir, err)
	}

	for _, entry := range entries {
		name, err := os.ReadFile(filepath.Join(classDir, entry.Name(), "name"))
		if err != nil || strings.TrimSpace(string(name)) != framebufferName {
			continue
		}

		dev, err := os.ReadFile(filepath.Join(classDir, entry.Name(), "dev"))
		if err != nil {
			continue
		}

		_, minor, ok := strings.Cut(strings.TrimSpace(string(dev)), ":")
		if !ok {
			continue
		}

		path := filepath.Join(devDir, "fb"+minor)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("epd: could not find framebuffer device %s", framebufferName)
}

// DiscoverTemperatureSensor locates the panel temperature pseudo-file by
// matching names under /sys/class/hwmon.
func DiscoverTemperatureSensor() (string, error) {
	return discoverTemperatureSensor("/sys/class/hwmon")
}

func discoverTemperatureSensor(classDir string) (string, error) {
	entries, err := os.ReadDir(classDir)
	if err != nil {
		return "", fmt.Errorf("epd: scan %s: %w", classDir, err)
	}

	for _, entry := range entries {
		name, err := os.ReadFile(filepath.Join(classDir, entry.Name(), "name"))
		if err != nil || strings.TrimSpace(string(name)) != sensorName {
			continue
		}

		path := filepath.Join(classDir, entry.Name(), "temp0")
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("epd: could not find temperature sensor %s", sensorName)
}

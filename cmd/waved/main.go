// Copyright 2025 The Waved Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// waved drives an electrophoretic display panel from userspace.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/epd-drivers/waved/epd"
	"github.com/epd-drivers/waved/waved"
	"github.com/epd-drivers/waved/wbf"
)

var rootCmd = &cobra.Command{
	Use:          "waved",
	Short:        "waved drives an E-Ink panel from userspace",
	SilenceUsage: true,
}

var (
	framebufferPath string
	sensorPath      string
	wbfPath         string
	perfPath        string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&framebufferPath, "framebuffer", "", "framebuffer device path (discovered when empty)")
	rootCmd.PersistentFlags().StringVar(&sensorPath, "sensor", "", "temperature sensor file path (discovered when empty)")
	rootCmd.PersistentFlags().StringVar(&wbfPath, "wbf", "", "waveform file path (discovered when empty)")
	rootCmd.PersistentFlags().StringVar(&perfPath, "perf", "", "write a per-update performance report to this CSV file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadTable() (*wbf.Table, error) {
	path := wbfPath
	if path == "" {
		var err error
		if path, err = wbf.DiscoverFile(); err != nil {
			return nil, err
		}
	}
	return wbf.Load(path, nil)
}

// openDriver assembles the full pipeline: panel controller, waveform
// table, and driver, started and ready for updates.
func openDriver() (*waved.Driver, func(), error) {
	table, err := loadTable()
	if err != nil {
		return nil, nil, err
	}

	fb := framebufferPath
	if fb == "" {
		if fb, err = epd.DiscoverFramebuffer(); err != nil {
			return nil, nil, err
		}
	}

	sensor := sensorPath
	if sensor == "" {
		if sensor, err = epd.DiscoverTemperatureSensor(); err != nil {
			return nil, nil, err
		}
	}

	dev, err := epd.New(fb, sensor, epd.ReMarkable2)
	if err != nil {
		return nil, nil, err
	}

	drv := waved.New(dev, table, nil)

	var perfFile *os.File
	if perfPath != "" {
		if perfFile, err = os.Create(perfPath); err != nil {
			dev.Close()
			return nil, nil, err
		}
		if err := drv.EnablePerfReport(perfFile); err != nil {
			perfFile.Close()
			dev.Close()
			return nil, nil, err
		}
	}

	if err := drv.Start(); err != nil {
		if perfFile != nil {
			perfFile.Close()
		}
		dev.Close()
		return nil, nil, err
	}

	cleanup := func() {
		if err := drv.Stop(); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
		if err := dev.Close(); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
		if perfFile != nil {
			perfFile.Close()
		}
	}
	return drv, cleanup, nil
}

// clearScreen paints the whole panel white with the initialization mode
// and waits for it to settle.
func clearScreen(drv *waved.Driver) error {
	bounds := drv.Bounds()
	w := uint32(bounds.Dx())
	h := uint32(bounds.Dy())

	buffer := make([]wbf.Intensity, w*h)
	for i := range buffer {
		buffer[i] = 30
	}

	id, err := drv.SubmitKind(wbf.Init, false, waved.Region{Width: w, Height: h}, buffer)
	if err != nil {
		return err
	}
	drv.WaitFor(id)
	return nil
}

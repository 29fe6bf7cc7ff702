// Copyright 2025 The Waved Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/epd-drivers/waved/wbf"
)

var infoCmd = &cobra.Command{
	Use:   "info [file.wbf]",
	Short: "Inspect a waveform definition file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 {
			wbfPath = args[0]
		}

		table, err := loadTable()
		if err != nil {
			return err
		}

		fmt.Printf("frame rate: %s\n", table.FrameRate())

		temps := table.Temperatures()
		fmt.Printf("temperature thresholds (°C):")
		for _, temp := range temps {
			fmt.Printf(" %d", temp)
		}
		fmt.Println()

		fmt.Printf("modes: %d\n", table.ModeCount())
		sample := wbf.DefaultOpts.SampleTemperature
		for mode := 0; mode < table.ModeCount(); mode++ {
			wf, err := table.Lookup(wbf.ModeID(mode), sample)
			if err != nil {
				return err
			}
			fmt.Printf("  %2d: %-7s %3d frames at %d °C\n",
				mode, table.ModeKind(wbf.ModeID(mode)), len(wf), sample)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

// Copyright 2025 The Waved Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"image"

	"github.com/fogleman/gg"
	"github.com/spf13/cobra"

	"github.com/epd-drivers/waved/screen2d"
)

var previewSize int

var previewCmd = &cobra.Command{
	Use:   "preview image.png",
	Short: "Render an image in the terminal as the panel would show it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		img, err := gg.LoadImage(args[0])
		if err != nil {
			return err
		}

		bounds := img.Bounds()
		w := previewSize
		h := bounds.Dy() * w / bounds.Dx()
		if h < 1 {
			h = 1
		}

		dc := gg.NewContext(w, h)
		dc.Scale(float64(w)/float64(bounds.Dx()), float64(h)/float64(bounds.Dy()))
		dc.DrawImage(img, 0, 0)

		screen := screen2d.New(&screen2d.Opts{X: w, Y: h})
		defer screen.Halt()
		return screen.Draw(screen.Bounds(), dc.Image(), image.Point{})
	},
}

func init() {
	previewCmd.Flags().IntVar(&previewSize, "width", 80, "preview width in terminal cells")
	rootCmd.AddCommand(previewCmd)
}

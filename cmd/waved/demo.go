// Copyright 2025 The Waved Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"image"
	"os"
	"time"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/spf13/cobra"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"

	"github.com/epd-drivers/waved/waved"
	"github.com/epd-drivers/waved/wbf"
)

var (
	demoFontPath string
	demoSpiral   int
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Exercise the panel: clear, text banner, stylus spiral",
	RunE: func(cmd *cobra.Command, args []string) error {
		drv, cleanup, err := openDriver()
		if err != nil {
			return err
		}
		defer cleanup()

		if err := clearScreen(drv); err != nil {
			return err
		}

		if err := drawBanner(drv); err != nil {
			return err
		}

		if err := drawSpiral(drv, demoSpiral); err != nil {
			return err
		}

		drv.WaitForAll()
		return nil
	},
}

func init() {
	demoCmd.Flags().StringVar(&demoFontPath, "font", "", "TTF font for the banner (built-in face when empty)")
	demoCmd.Flags().IntVar(&demoSpiral, "spiral", 700, "number of spiral strokes")
	rootCmd.AddCommand(demoCmd)
}

func loadFace() (font.Face, error) {
	if demoFontPath == "" {
		return basicfont.Face7x13, nil
	}

	data, err := os.ReadFile(demoFontPath)
	if err != nil {
		return nil, err
	}
	f, err := truetype.Parse(data)
	if err != nil {
		return nil, err
	}
	return truetype.NewFace(f, &truetype.Options{Size: 64}), nil
}

// drawBanner renders a text banner and sends it as one quality update.
func drawBanner(drv *waved.Driver) error {
	face, err := loadFace()
	if err != nil {
		return err
	}

	bounds := drv.Bounds()
	dc := gg.NewContext(bounds.Dx(), bounds.Dy()/4)
	dc.SetRGB(1, 1, 1)
	dc.Clear()
	dc.SetFontFace(face)
	dc.SetRGB(0, 0, 0)
	dc.DrawStringAnchored("waved", float64(dc.Width())/2, float64(dc.Height())/2, 0.5, 0.5)

	return drv.Draw(image.Rect(0, 0, dc.Width(), dc.Height()), dc.Image(), image.Point{})
}

// drawSpiral emits small immediate black squares along an expanding
// spiral, the access pattern of a stylus trail.
func drawSpiral(drv *waved.Driver, strokes int) error {
	bounds := drv.Bounds()
	cx := bounds.Dx() / 2
	cy := bounds.Dy() / 2

	x, y := cx, cy
	dx, dy := 6, 0
	arm := 1
	left := arm
	turns := 0

	buffer := make([]wbf.Intensity, 36)

	for i := 0; i < strokes; i++ {
		r := waved.Region{
			Top:    uint32(y),
			Left:   uint32(x),
			Width:  6,
			Height: 6,
		}
		if _, err := drv.SubmitKind(wbf.A2, true, r, buffer); err != nil {
			return err
		}
		time.Sleep(5 * time.Millisecond)

		x += dx
		y += dy
		left--
		if left == 0 {
			dx, dy = -dy, dx
			turns++
			if turns%2 == 0 {
				arm++
			}
			left = arm
		}

		if x < 0 || y < 0 || x+6 > bounds.Dx() || y+6 > bounds.Dy() {
			break
		}
	}

	return nil
}

// Copyright 2025 The Waved Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Clear the panel and serve updates until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		drv, cleanup, err := openDriver()
		if err != nil {
			return err
		}
		defer cleanup()

		if err := clearScreen(drv); err != nil {
			return err
		}
		log.Printf("panel ready: %s", drv)

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig

		drv.WaitForAll()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}

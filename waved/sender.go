// Copyright 2025 The Waved Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package waved

import (
	"log"
	"time"
)

// runSender consumes frame slabs, copies each frame into the next back
// buffer, and page-flips it on the panel's vsync. Quiet periods power the
// panel down; I/O failures are logged and end the loop without crossing
// the goroutine boundary.
func (d *Driver) runSender() {
	defer d.wg.Done()

	// Vsync timestamps of frames sent for the update currently being
	// processed; attached to its record when it finalizes.
	var vsyncStart, vsyncEnd []time.Time

	timer := time.NewTimer(d.opts.IdleTimeout)
	defer timer.Stop()

	for {
		var slab *frameSlab

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(d.opts.IdleTimeout)

		select {
		case slab = <-d.handoff:
		case <-d.stopChan:
			return
		case <-timer.C:
			// No work is coming; save the battery until some does.
			if err := d.ctrl.SetPower(false); err != nil {
				log.Printf("waved: power off: %v", err)
			}
			select {
			case slab = <-d.handoff:
			case <-d.stopChan:
				return
			}
		}

		if err := d.ctrl.SetPower(true); err != nil {
			log.Printf("waved: power on: %v", err)
		}
		d.ctrl.Temperature()

		for _, frame := range slab.frames {
			copy(d.ctrl.BackBuffer(), frame)

			vsyncStart = append(vsyncStart, time.Now())
			if err := d.ctrl.PageFlip(); err != nil {
				log.Printf("waved: %v", err)
				return
			}
			vsyncEnd = append(vsyncEnd, time.Now())
		}

		if u := slab.update; u != nil {
			u.VsyncStart = append(u.VsyncStart, vsyncStart...)
			u.VsyncEnd = append(u.VsyncEnd, vsyncEnd...)
			vsyncStart = vsyncStart[:0]
			vsyncEnd = vsyncEnd[:0]

			d.writePerfRecord(u)
			d.finalize(u.IDs)
		}

		d.free <- slab
	}
}

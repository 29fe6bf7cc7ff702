// Copyright 2025 The Waved Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package waved

import (
	"log"
	"time"

	"periph.io/x/conn/v3/physic"

	"github.com/epd-drivers/waved/wbf"
)

func (d *Driver) runGenerator() {
	defer d.wg.Done()

	for {
		u := d.pop()
		if u == nil {
			return
		}

		if u.Immediate {
			d.generateImmediate(u)
		} else {
			d.generateBatch(u)
		}
	}
}

// pop blocks until an update is pending or the driver stops, and returns
// the head of the queue.
func (d *Driver) pop() *Update {
	d.mu.Lock()
	defer d.mu.Unlock()

	for len(d.pending) == 0 && !d.stopping {
		d.cond.Wait()
	}
	if d.stopping {
		return nil
	}

	u := d.pending[0]
	d.pending = d.pending[1:]
	u.Dequeue = append(u.Dequeue, time.Now())
	return u
}

// mergeUpdates folds compatible pending updates into the in-flight one:
// their targets are applied to the staging buffer and their IDs and
// region join the record. Merging stops at the first incompatible head.
//
// An immediate merge is rejected if it would change the target of a cell
// already mid-waveform: the cell's remaining steps would then drive it
// toward a value the step counter no longer describes, leaving a
// permanent ghost.
func (d *Driver) mergeUpdates(u *Update) {
	stride := d.dims.VisibleWidth()

	d.mu.Lock()
	defer d.mu.Unlock()

	for len(d.pending) > 0 {
		head := d.pending[0]
		if head.Immediate != u.Immediate || head.Mode != u.Mode {
			return
		}
		if u.Immediate && !d.immediateMergeOK(head) {
			return
		}

		d.pending = d.pending[1:]
		head.Dequeue = append(head.Dequeue, time.Now())
		head.apply(d.next, stride)
		u.mergeWith(head)
	}
}

// immediateMergeOK reports whether a candidate changes no cell that is
// currently transitioning. Called with the queue lock held.
func (d *Driver) immediateMergeOK(head *Update) bool {
	stride := d.dims.VisibleWidth()

	src := head.Buffer
	for y := uint32(0); y < head.Region.Height; y++ {
		row := (head.Region.Top+y)*stride + head.Region.Left
		for x := uint32(0); x < head.Region.Width; x++ {
			idx := row + x
			if src[x] != d.next[idx] && d.steps[idx] != 0 {
				return false
			}
		}
		src = src[head.Region.Width:]
	}
	return true
}

// celsius converts the controller's reading to the integer Celsius value
// waveform lookup works in.
func celsius(t physic.Temperature) int {
	return int((t - physic.ZeroCelsius) / physic.Celsius)
}

// generateBatch produces every frame of the waveform before any is sent.
// The phase of each cell is derived start-to-end from the committed and
// target intensities, so later merges may freely overwrite the staging
// buffer.
func (d *Driver) generateBatch(u *Update) {
	stride := d.dims.VisibleWidth()

	copy(d.next, d.current)
	u.apply(d.next, stride)
	d.mergeUpdates(u)

	waveform, err := d.table.Lookup(u.Mode, celsius(d.ctrl.Temperature()))
	if err != nil {
		// The update cannot be rendered; release its waiters.
		log.Printf("waved: dropping update: %v", err)
		d.finalize(u.IDs)
		return
	}

	region := alignRegion(u.Region, d.dims.PackedPixels)

	slab, ok := d.acquireSlab(len(waveform))
	if !ok {
		return
	}

	for k := range waveform {
		u.GenerateStart = append(u.GenerateStart, time.Now())
		d.packFrame(slab.frames[k], &waveform[k], region, true)
		u.GenerateEnd = append(u.GenerateEnd, time.Now())
	}

	slab.update = u
	if !d.sendSlab(slab) {
		return
	}

	// Commit the staged intensities.
	for y := uint32(0); y < region.Height; y++ {
		row := (region.Top+y)*stride + region.Left
		copy(d.current[row:row+region.Width], d.next[row:row+region.Width])
	}
}

// generateImmediate advances every cell of the update by one waveform
// step per frame, sending each frame as soon as it is ready. New
// compatible updates are merged in between frames, which lets a stylus
// stroke extend an update that is already on the panel.
func (d *Driver) generateImmediate(u *Update) {
	stride := d.dims.VisibleWidth()

	copy(d.next, d.current)
	u.apply(d.next, stride)

	waveform, err := d.table.Lookup(u.Mode, celsius(d.ctrl.Temperature()))
	if err != nil || len(waveform) == 0 {
		log.Printf("waved: dropping update: %v", err)
		d.finalize(u.IDs)
		return
	}
	steps := uint32(len(waveform))
	clear(d.steps)

	for {
		d.mergeUpdates(u)
		region := alignRegion(u.Region, d.dims.PackedPixels)

		slab, ok := d.acquireSlab(1)
		if !ok {
			return
		}

		u.GenerateStart = append(u.GenerateStart, time.Now())

		frame := slab.frames[0]
		copy(frame, d.ctrl.BlankFrame())

		var active Region
		finished := true

		for y := uint32(0); y < region.Height; y++ {
			cellRow := (region.Top+y)*stride + region.Left
			pos := (d.dims.UpperMargin+region.Top+y)*d.dims.Stride() +
				(d.dims.LeftMargin+region.Left/d.dims.PackedPixels)*d.dims.Depth

			for x := uint32(0); x < region.Width; x += d.dims.PackedPixels {
				var word uint16
				for p := uint32(0); p < d.dims.PackedPixels; p++ {
					idx := cellRow + x + p

					var phase wbf.Phase
					if d.next[idx] != d.current[idx] {
						phase = waveform[d.steps[idx]][d.current[idx]][d.next[idx]]
						active.ExtendCell(region.Left+x+p, region.Top+y)

						d.steps[idx]++
						if d.steps[idx] == steps {
							d.current[idx] = d.next[idx]
							d.steps[idx] = 0
						} else {
							finished = false
						}
					}
					word = word<<2 | uint16(phase)
				}

				// Low data byte carries the last four phases, high byte
				// the first four.
				frame[pos] = byte(word)
				frame[pos+1] = byte(word >> 8)
				pos += d.dims.Depth
			}
		}

		u.GenerateEnd = append(u.GenerateEnd, time.Now())

		if finished {
			slab.update = u
		}
		if !d.sendSlab(slab) {
			return
		}
		if finished {
			return
		}

		u.setRegion(active)
	}
}

// packFrame renders one phase frame for the given matrix over the aligned
// region. When skipConsecutive is set, a packed column whose eight
// (current, next) pairs equal the previous column's reuses the previous
// word instead of indexing the matrix again.
func (d *Driver) packFrame(frame []byte, matrix *wbf.PhaseMatrix, region Region, skipConsecutive bool) {
	stride := d.dims.VisibleWidth()
	copy(frame, d.ctrl.BlankFrame())

	lastCur := make([]wbf.Intensity, d.dims.PackedPixels)
	lastNext := make([]wbf.Intensity, d.dims.PackedPixels)
	var lastLow, lastHigh byte
	havePrev := false

	for y := uint32(0); y < region.Height; y++ {
		cellRow := (region.Top+y)*stride + region.Left
		pos := (d.dims.UpperMargin+region.Top+y)*d.dims.Stride() +
			(d.dims.LeftMargin+region.Left/d.dims.PackedPixels)*d.dims.Depth

		for x := uint32(0); x < region.Width; x += d.dims.PackedPixels {
			cur := d.current[cellRow+x : cellRow+x+d.dims.PackedPixels]
			next := d.next[cellRow+x : cellRow+x+d.dims.PackedPixels]

			same := skipConsecutive && havePrev
			if same {
				for p := range cur {
					if cur[p] != lastCur[p] || next[p] != lastNext[p] {
						same = false
						break
					}
				}
			}

			if !same {
				var word uint16
				for p := range cur {
					word = word<<2 | uint16(matrix[cur[p]][next[p]])
				}
				lastLow = byte(word)
				lastHigh = byte(word >> 8)
				copy(lastCur, cur)
				copy(lastNext, next)
				havePrev = true
			}

			frame[pos] = lastLow
			frame[pos+1] = lastHigh
			pos += d.dims.Depth
		}
	}
}

// acquireSlab takes ownership of a recycled slab sized for n frames.
func (d *Driver) acquireSlab(n int) (*frameSlab, bool) {
	select {
	case slab := <-d.free:
		slab.resize(n, d.dims.FrameSize())
		return slab, true
	case <-d.stopChan:
		return nil, false
	}
}

// sendSlab hands a filled slab to the sender.
func (d *Driver) sendSlab(slab *frameSlab) bool {
	select {
	case d.handoff <- slab:
		return true
	case <-d.stopChan:
		return false
	}
}

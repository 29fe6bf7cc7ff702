// Copyright 2025 The Waved Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package waved

import (
	"errors"
	"sync"
	"time"

	"periph.io/x/conn/v3/physic"

	"github.com/epd-drivers/waved/epd"
	"github.com/epd-drivers/waved/wbf"
)

// ErrInvalidUpdate is returned by Submit when the buffer size does not
// match the rectangle or the rectangle falls outside the visible area.
var ErrInvalidUpdate = errors.New("waved: invalid update")

// ErrStopped is returned by Submit after the driver has been stopped.
var ErrStopped = errors.New("waved: driver stopped")

// Controller is the panel access the driver needs. *epd.Dev implements
// it; tests substitute an in-memory panel.
type Controller interface {
	Start() error
	Stop() error
	SetPower(on bool) error
	Temperature() physic.Temperature
	Dims() epd.Dims
	BackBuffer() []byte
	PageFlip() error
	BlankFrame() []byte
}

// WaveformSource yields the waveform for a mode and temperature.
// *wbf.Table implements it.
type WaveformSource interface {
	Lookup(mode wbf.ModeID, temperature int) (wbf.Waveform, error)
	ModeID(kind wbf.ModeKind) (wbf.ModeID, error)
}

// Opts holds driver options.
type Opts struct {
	// IdleTimeout is how long the sender waits for work before powering
	// the panel down.
	IdleTimeout time.Duration
}

// DefaultOpts are the options used when New receives nil.
var DefaultOpts = Opts{
	IdleTimeout: 3 * time.Second,
}

// frameSlab is the unit of hand-off between the generator and the sender:
// a batch of ready frames, plus the finalized update when these are its
// last frames.
type frameSlab struct {
	frames [][]byte
	update *Update
}

func (s *frameSlab) resize(n int, frameSize uint32) {
	for len(s.frames) < n {
		s.frames = append(s.frames, make([]byte, frameSize))
	}
	s.frames = s.frames[:n]
	s.update = nil
}

// Driver owns the update pipeline for one panel.
type Driver struct {
	ctrl  Controller
	table WaveformSource
	dims  epd.Dims
	opts  Opts

	// Queue monitor: pending updates, the generator wake-up, and the
	// generator stop flag.
	mu       sync.Mutex
	cond     *sync.Cond
	pending  []*Update
	stopping bool
	nextID   UpdateID

	// In-flight monitor: IDs submitted but not yet finalized.
	inflightMu   sync.Mutex
	inflightCond *sync.Cond
	inflight     map[UpdateID]struct{}
	stopped      bool

	// Cell state, owned by the generator. current holds the last
	// committed intensity of every cell, next is the staging target, and
	// steps tracks the waveform position of each cell during immediate
	// updates (0 means idle).
	current []wbf.Intensity
	next    []wbf.Intensity
	steps   []uint32

	// Frame hand-off. Slabs cycle between free and handoff; whoever
	// holds a slab owns its frames.
	handoff  chan *frameSlab
	free     chan *frameSlab
	stopChan chan struct{}

	wg      sync.WaitGroup
	started bool

	perfMu   sync.Mutex
	perfSink perfWriter
}

// New creates a driver for the given panel controller and waveform table.
// The controller is started by Start, not here.
func New(ctrl Controller, table WaveformSource, opts *Opts) *Driver {
	if opts == nil {
		opts = &DefaultOpts
	}

	dims := ctrl.Dims()
	size := dims.VisibleSize()

	d := &Driver{
		ctrl:     ctrl,
		table:    table,
		dims:     dims,
		opts:     *opts,
		inflight: make(map[UpdateID]struct{}),
		current:  make([]wbf.Intensity, size),
		next:     make([]wbf.Intensity, size),
		steps:    make([]uint32, size),
		handoff:  make(chan *frameSlab, 1),
		free:     make(chan *frameSlab, 2),
		stopChan: make(chan struct{}),
	}
	d.cond = sync.NewCond(&d.mu)
	d.inflightCond = sync.NewCond(&d.inflightMu)

	d.free <- &frameSlab{}
	d.free <- &frameSlab{}
	return d
}

// Start powers the panel and launches the generator and sender workers.
func (d *Driver) Start() error {
	if d.started {
		return nil
	}

	if err := d.ctrl.Start(); err != nil {
		return err
	}

	d.wg.Add(2)
	go d.runGenerator()
	go d.runSender()
	d.started = true
	return nil
}

// Stop halts both workers and powers the panel off. Updates still in the
// queue are discarded; an update whose frames have begun emission may be
// partially displayed. Call WaitForAll first to avoid that.
func (d *Driver) Stop() error {
	if !d.started {
		return nil
	}
	d.started = false

	d.mu.Lock()
	d.stopping = true
	d.pending = nil
	d.cond.Broadcast()
	d.mu.Unlock()

	close(d.stopChan)
	d.wg.Wait()

	// Whatever was not finalized never will be; release the waiters.
	d.inflightMu.Lock()
	d.stopped = true
	d.inflight = make(map[UpdateID]struct{})
	d.inflightCond.Broadcast()
	d.inflightMu.Unlock()

	return d.ctrl.Stop()
}

// Submit queues an update painting the given host-orientation rectangle
// with the given row-major target intensities.
func (d *Driver) Submit(mode wbf.ModeID, immediate bool, r Region, buffer []wbf.Intensity) (UpdateID, error) {
	if uint32(len(buffer)) != r.Width*r.Height || r.Empty() {
		return 0, ErrInvalidUpdate
	}

	panelW := d.dims.VisibleWidth()
	panelH := d.dims.VisibleHeight()

	trans := transformBuffer(buffer, r.Width, r.Height)
	region := transformRegion(r, panelW, panelH)

	if region.Left >= panelW || region.Top >= panelH ||
		region.Left+region.Width > panelW || region.Top+region.Height > panelH {
		return 0, ErrInvalidUpdate
	}

	d.mu.Lock()
	if d.stopping {
		d.mu.Unlock()
		return 0, ErrStopped
	}

	id := d.nextID
	d.nextID++

	u := &Update{
		IDs:       []UpdateID{id},
		Mode:      mode,
		Immediate: immediate,
		Region:    region,
		Buffer:    trans,
		Enqueue:   []time.Time{time.Now()},
	}

	d.inflightMu.Lock()
	d.inflight[id] = struct{}{}
	d.inflightMu.Unlock()

	d.pending = append(d.pending, u)
	d.cond.Signal()
	d.mu.Unlock()

	return id, nil
}

// SubmitKind is Submit with the mode chosen by kind.
func (d *Driver) SubmitKind(kind wbf.ModeKind, immediate bool, r Region, buffer []wbf.Intensity) (UpdateID, error) {
	mode, err := d.table.ModeID(kind)
	if err != nil {
		return 0, err
	}
	return d.Submit(mode, immediate, r, buffer)
}

// WaitFor blocks until the given update has been finalized or the driver
// stops.
func (d *Driver) WaitFor(id UpdateID) {
	d.inflightMu.Lock()
	defer d.inflightMu.Unlock()

	for {
		if _, ok := d.inflight[id]; !ok || d.stopped {
			return
		}
		d.inflightCond.Wait()
	}
}

// WaitForAll blocks until every submitted update has been finalized or
// the driver stops.
func (d *Driver) WaitForAll() {
	d.inflightMu.Lock()
	defer d.inflightMu.Unlock()

	for len(d.inflight) > 0 && !d.stopped {
		d.inflightCond.Wait()
	}
}

// finalize removes every ID carried by a finished update from the
// in-flight set, atomically, and wakes waiters.
func (d *Driver) finalize(ids []UpdateID) {
	d.inflightMu.Lock()
	for _, id := range ids {
		delete(d.inflight, id)
	}
	d.inflightCond.Broadcast()
	d.inflightMu.Unlock()
}

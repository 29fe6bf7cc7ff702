// Copyright 2025 The Waved Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package waved

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// perfHeader lists the report columns. Multi-valued fields hold
// colon-separated microsecond-since-epoch integers.
var perfHeader = []string{
	"id", "mode", "immediate", "width", "height",
	"enqueue_times", "dequeue_times",
	"generate_start_times", "generate_end_times",
	"vsync_start_times", "vsync_end_times",
}

type perfWriter struct {
	csv *csv.Writer
}

// EnablePerfReport starts writing one CSV row per finalized update batch
// to the given sink.
func (d *Driver) EnablePerfReport(w io.Writer) error {
	d.perfMu.Lock()
	defer d.perfMu.Unlock()

	sink := perfWriter{csv: csv.NewWriter(w)}
	if err := sink.csv.Write(perfHeader); err != nil {
		return fmt.Errorf("waved: write perf header: %w", err)
	}
	sink.csv.Flush()
	if err := sink.csv.Error(); err != nil {
		return fmt.Errorf("waved: write perf header: %w", err)
	}

	d.perfSink = sink
	return nil
}

// DisablePerfReport stops performance reporting.
func (d *Driver) DisablePerfReport() {
	d.perfMu.Lock()
	defer d.perfMu.Unlock()
	d.perfSink = perfWriter{}
}

func joinIDs(ids []UpdateID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatUint(uint64(id), 10)
	}
	return strings.Join(parts, ":")
}

func joinTimes(ts []time.Time) string {
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = strconv.FormatInt(t.UnixMicro(), 10)
	}
	return strings.Join(parts, ":")
}

func (d *Driver) writePerfRecord(u *Update) {
	d.perfMu.Lock()
	defer d.perfMu.Unlock()

	if d.perfSink.csv == nil {
		return
	}

	record := []string{
		joinIDs(u.IDs),
		strconv.Itoa(int(u.Mode)),
		strconv.FormatBool(u.Immediate),
		strconv.FormatUint(uint64(u.Region.Width), 10),
		strconv.FormatUint(uint64(u.Region.Height), 10),
		joinTimes(u.Enqueue),
		joinTimes(u.Dequeue),
		joinTimes(u.GenerateStart),
		joinTimes(u.GenerateEnd),
		joinTimes(u.VsyncStart),
		joinTimes(u.VsyncEnd),
	}

	if err := d.perfSink.csv.Write(record); err != nil {
		return
	}
	d.perfSink.csv.Flush()
}

package runner

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"
)

// intervalMetric is one monitor sample: per-second operation rates and
// per-kind latency summaries over the sampling interval.
type intervalMetric struct {
	timestamp  time.Time
	reads      uint64
	inserts    uint64
	updates    uint64
	ckptActive bool
	read       latencySummary
	insert     latencySummary
	update     latencySummary
}

// metricsExporter appends one CSV line per monitoring interval.
type metricsExporter struct {
	file   *os.File
	writer *csv.Writer
	mu     sync.Mutex
}

func newMetricsExporter(filename, runID string) (*metricsExporter, error) {
	file, err := os.Create(filename)
	if err != nil {
		return nil, err
	}
	if _, err := fmt.Fprintf(file, "#run %s\n", runID); err != nil {
		file.Close()
		return nil, err
	}

	writer := csv.NewWriter(file)
	err = writer.Write([]string{
		"time",
		"reads_per_sec",
		"inserts_per_sec",
		"updates_per_sec",
		"checkpoint",
		"read_avg_ns", "read_min_ns", "read_max_ns",
		"insert_avg_ns", "insert_min_ns", "insert_max_ns",
		"update_avg_ns", "update_min_ns", "update_max_ns",
	})
	if err != nil {
		file.Close()
		return nil, err
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		file.Close()
		return nil, err
	}

	return &metricsExporter{file: file, writer: writer}, nil
}

func (e *metricsExporter) add(m intervalMetric) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	ckpt := "N"
	if m.ckptActive {
		ckpt = "Y"
	}
	err := e.writer.Write([]string{
		m.timestamp.Format("Jan 02 15:04:05"),
		strconv.FormatUint(m.reads, 10),
		strconv.FormatUint(m.inserts, 10),
		strconv.FormatUint(m.updates, 10),
		ckpt,
		strconv.FormatUint(m.read.avg, 10),
		strconv.FormatUint(m.read.min, 10),
		strconv.FormatUint(m.read.max, 10),
		strconv.FormatUint(m.insert.avg, 10),
		strconv.FormatUint(m.insert.min, 10),
		strconv.FormatUint(m.insert.max, 10),
		strconv.FormatUint(m.update.avg, 10),
		strconv.FormatUint(m.update.min, 10),
		strconv.FormatUint(m.update.max, 10),
	})
	if err != nil {
		return err
	}
	e.writer.Flush()
	return e.writer.Error()
}

func (e *metricsExporter) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.writer.Flush()
	if err := e.writer.Error(); err != nil {
		e.file.Close()
		return err
	}
	return e.file.Close()
}

// monitor samples global operation counters at the configured interval
// and appends the deltas and latency summaries to the metrics file.
func (r *Runner) monitor(runID string) {
	exp, err := newMetricsExporter(r.cfg.MonitorFile, runID)
	if err != nil {
		r.fatal("monitor: %s: %v", r.cfg.MonitorFile, err)
		return
	}
	defer exp.Close()

	var lastReads, lastInserts, lastUpdates uint64
	for !r.state.stop.Load() {
		// Break the sleep up, so we notice the stop flag faster.
		for i := 0; i < r.cfg.SampleInterval; i++ {
			time.Sleep(time.Second)
			if r.state.stop.Load() {
				break
			}
		}
		// If the workers are done, don't bother with a final sample.
		if r.state.stop.Load() {
			break
		}

		workers := r.snapshotThreads(&r.workers)
		reads := sumOps(workers, readTrack)
		inserts := sumOps(workers, insertTrack)
		updates := sumOps(workers, updateTrack)

		secs := uint64(r.cfg.SampleInterval)
		m := intervalMetric{
			timestamp:  time.Now(),
			reads:      (reads - lastReads) / secs,
			inserts:    (inserts - lastInserts) / secs,
			updates:    (updates - lastUpdates) / secs,
			ckptActive: r.state.ckpt.Load(),
			read:       summarize(workers, readTrack),
			insert:     summarize(workers, insertTrack),
			update:     summarize(workers, updateTrack),
		}
		if err := exp.add(m); err != nil {
			r.fatal("monitor: writing sample: %v", err)
			return
		}

		lastReads, lastInserts, lastUpdates = reads, inserts, updates
	}
}

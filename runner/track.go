package runner

import (
	"math"
	"sync/atomic"
	"time"
)

// Histogram tiers: microsecond buckets below 1ms, millisecond buckets
// below 1s, second buckets below 100s, with the last second bucket
// collecting everything larger.
const (
	usBuckets  = 1000
	msBuckets  = 1000
	secBuckets = 100
)

// track accumulates running statistics for one operation kind. It is
// owned by a single worker; the atomic fields are additionally read by
// the monitor while the run is in progress, the histogram only after
// the owner has stopped.
type track struct {
	ops     atomic.Uint64
	latency atomic.Uint64 // cumulative nanoseconds
	min     atomic.Uint64 // minimum per-batch average, nanoseconds
	max     atomic.Uint64 // maximum per-batch average, nanoseconds

	// aggregated counts operations performed since the last latency
	// sample was folded in.
	aggregated uint64

	us  [usBuckets]uint64
	ms  [msBuckets]uint64
	sec [secBuckets]uint64
}

func (t *track) reset() {
	t.min.Store(math.MaxUint64)
}

// record folds one batched latency sample into the track: elapsed
// covers total back-to-back operations, all of the same kind, performed
// since the previous timestamp. The whole batch is charged to a single
// histogram bucket at the batch's average per-operation latency.
func (t *track) record(elapsed time.Duration, total uint64) {
	if t.aggregated == 0 || total == 0 {
		return
	}

	nsecs := uint64(elapsed.Nanoseconds())
	avg := nsecs / total

	t.latency.Add(nsecs)
	if avg > t.max.Load() {
		t.max.Store(avg)
	}
	if avg < t.min.Load() {
		t.min.Store(avg)
	}

	switch {
	case avg < uint64(time.Millisecond):
		t.us[avg/uint64(time.Microsecond)] += t.aggregated
	case avg < uint64(time.Second):
		t.ms[avg/uint64(time.Millisecond)] += t.aggregated
	case avg < secBuckets*uint64(time.Second):
		t.sec[avg/uint64(time.Second)] += t.aggregated
	default:
		t.sec[secBuckets-1] += t.aggregated
	}

	t.aggregated = 0
}

// latencySummary merges the statistics of one operation kind across a
// set of threads. All values are nanoseconds.
type latencySummary struct {
	ops uint64
	avg uint64
	min uint64
	max uint64
}

func summarize(threads []*thread, pick func(*thread) *track) latencySummary {
	s := latencySummary{min: math.MaxUint64}
	var total uint64
	for _, t := range threads {
		trk := pick(t)
		s.ops += trk.ops.Load()
		total += trk.latency.Load()
		if m := trk.min.Load(); m < s.min {
			s.min = m
		}
		if m := trk.max.Load(); m > s.max {
			s.max = m
		}
	}
	if s.ops > 0 {
		s.avg = total / s.ops
	}
	if s.min == math.MaxUint64 {
		s.min = 0
	}
	return s
}

func sumOps(threads []*thread, pick func(*thread) *track) uint64 {
	var n uint64
	for _, t := range threads {
		n += pick(t).ops.Load()
	}
	return n
}

func readTrack(t *thread) *track   { return &t.read }
func insertTrack(t *thread) *track { return &t.insert }
func updateTrack(t *thread) *track { return &t.update }
func ckptTrack(t *thread) *track   { return &t.ckpt }

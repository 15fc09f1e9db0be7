package runner

import (
	"math"
	"testing"
	"time"
)

func TestTrackRecordSkipsEmptyBatches(t *testing.T) {
	var trk track
	trk.reset()

	trk.record(time.Millisecond, 10)
	if got := trk.latency.Load(); got != 0 {
		t.Errorf("latency recorded with no aggregated ops: %d", got)
	}

	trk.aggregated = 5
	trk.record(time.Millisecond, 0)
	if got := trk.latency.Load(); got != 0 {
		t.Errorf("latency recorded with a zero-op batch: %d", got)
	}
	if trk.aggregated != 5 {
		t.Errorf("aggregated consumed by a zero-op batch: %d", trk.aggregated)
	}
}

func TestTrackRecordBuckets(t *testing.T) {
	tests := []struct {
		name    string
		elapsed time.Duration
		total   uint64
		check   func(trk *track) uint64
	}{
		{
			"microsecond tier",
			500 * time.Microsecond, 1,
			func(trk *track) uint64 { return trk.us[500] },
		},
		{
			"sub-microsecond lands in the first bucket",
			800 * time.Nanosecond, 1,
			func(trk *track) uint64 { return trk.us[0] },
		},
		{
			"millisecond tier",
			20 * time.Millisecond, 1,
			func(trk *track) uint64 { return trk.ms[20] },
		},
		{
			"second tier",
			3 * time.Second, 1,
			func(trk *track) uint64 { return trk.sec[3] },
		},
		{
			"overflow collects in the last second bucket",
			250 * time.Second, 1,
			func(trk *track) uint64 { return trk.sec[secBuckets-1] },
		},
		{
			"batch average picks the bucket",
			100 * time.Millisecond, 200, // avg 500us
			func(trk *track) uint64 { return trk.us[500] },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var trk track
			trk.reset()
			trk.aggregated = 7
			trk.record(tt.elapsed, tt.total)
			if got := tt.check(&trk); got != 7 {
				t.Errorf("bucket holds %d ops, want the whole batch of 7", got)
			}
			if trk.aggregated != 0 {
				t.Errorf("aggregated not consumed: %d", trk.aggregated)
			}
		})
	}
}

func TestTrackRecordRunningStats(t *testing.T) {
	var trk track
	trk.reset()

	trk.aggregated = 2
	trk.record(2*time.Millisecond, 2) // avg 1ms
	trk.aggregated = 3
	trk.record(9*time.Millisecond, 3) // avg 3ms

	if got := trk.latency.Load(); got != uint64(11*time.Millisecond) {
		t.Errorf("cumulative latency = %d ns, want %d", got, 11*time.Millisecond)
	}
	if got := trk.min.Load(); got != uint64(time.Millisecond) {
		t.Errorf("min = %d ns, want %d", got, time.Millisecond)
	}
	if got := trk.max.Load(); got != uint64(3*time.Millisecond) {
		t.Errorf("max = %d ns, want %d", got, 3*time.Millisecond)
	}
}

func TestSummarize(t *testing.T) {
	t1 := &thread{}
	t1.read.reset()
	t1.read.ops.Store(10)
	t1.read.latency.Store(1000)
	t1.read.min.Store(50)
	t1.read.max.Store(200)

	t2 := &thread{}
	t2.read.reset()
	t2.read.ops.Store(30)
	t2.read.latency.Store(3000)
	t2.read.min.Store(20)
	t2.read.max.Store(500)

	s := summarize([]*thread{t1, t2}, readTrack)
	if s.ops != 40 {
		t.Errorf("ops = %d, want 40", s.ops)
	}
	if s.avg != 100 {
		t.Errorf("avg = %d, want 100", s.avg)
	}
	if s.min != 20 {
		t.Errorf("min = %d, want 20", s.min)
	}
	if s.max != 500 {
		t.Errorf("max = %d, want 500", s.max)
	}
}

// An idle track never recorded a sample, so its sentinel minimum must
// not leak into the merged summary.
func TestSummarizeIdleThreads(t *testing.T) {
	t1 := &thread{}
	t1.read.reset()

	s := summarize([]*thread{t1}, readTrack)
	if s.ops != 0 || s.avg != 0 || s.min != 0 || s.max != 0 {
		t.Errorf("idle summary = %+v, want all zeros", s)
	}
	if t1.read.min.Load() != math.MaxUint64 {
		t.Errorf("reset did not install the sentinel minimum")
	}
}

func TestSumOps(t *testing.T) {
	t1 := &thread{}
	t2 := &thread{}
	t1.insert.ops.Store(4)
	t2.insert.ops.Store(6)
	if got := sumOps([]*thread{t1, t2}, insertTrack); got != 10 {
		t.Errorf("sumOps = %d, want 10", got)
	}
	if got := sumOps(nil, insertTrack); got != 0 {
		t.Errorf("sumOps(nil) = %d, want 0", got)
	}
}

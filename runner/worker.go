package runner

import (
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"

	"kvperf/store"
)

// runState is the only state shared by every thread in a run: the
// monotonically increasing insert-key counter and the stop, error and
// checkpoint-in-progress flags. Everything else is thread-owned.
type runState struct {
	insertKey atomic.Uint64
	stop      atomic.Bool
	err       atomic.Bool
	ckpt      atomic.Bool
}

// nextInsertKey claims the next unique key id.
func (s *runState) nextInsertKey() uint64 {
	return s.insertKey.Add(1)
}

// thread is the per-worker context: scratch buffers sized once at
// start, the operation schedule and the per-kind statistics it owns.
type thread struct {
	rng *rand.Rand

	keyBuf   []byte
	valueBuf []byte

	schedule schedule

	read   track
	insert track
	update track
	ckpt   track
}

func (r *Runner) newThread() *thread {
	t := &thread{
		rng:      rand.New(rand.NewSource(r.cfg.Seed + int64(r.nthreads))),
		keyBuf:   make([]byte, r.cfg.KeySize),
		valueBuf: make([]byte, r.cfg.ValueSize),
	}
	r.nthreads++
	for i := range t.valueBuf {
		t.valueBuf[i] = 'a'
	}
	t.read.reset()
	t.insert.reset()
	t.update.reset()
	t.ckpt.reset()
	return t
}

// formatKey writes v as a zero-padded decimal filling buf.
func formatKey(buf []byte, v uint64) {
	for i := len(buf) - 1; i >= 0; i-- {
		buf[i] = byte('0' + v%10)
		v /= 10
	}
}

// fatal records a run-wide failure: the error and stop flags end every
// thread within one polling interval.
func (r *Runner) fatal(format string, args ...interface{}) {
	r.log.Printf(format, args...)
	r.state.err.Store(true)
	r.state.stop.Store(true)
}

func (r *Runner) opFatal(op opKind, key []byte, err error) {
	r.fatal("%s failed for %s, range %d: %v", op, key, r.valueRange(), err)
}

// worker runs one thread's share of the workload phase until the stop
// flag is observed. Latency is sampled in batches: a timestamp is taken
// only when the batch reaches the configured size or the next scheduled
// operation is of a different kind.
func (r *Runner) worker(t *thread) {
	sess, err := r.conn.OpenSession()
	if err != nil {
		r.fatal("worker: open session: %v", err)
		return
	}
	defer sess.Close()
	cur, err := sess.OpenCursor(r.cfg.Table)
	if err != nil {
		r.fatal("worker: open cursor on %s: %v", r.cfg.Table, err)
		return
	}
	defer cur.Close()

	var (
		op         int
		aggregated uint64
		last       = time.Now()
	)
	for !r.state.stop.Load() {
		kind := t.schedule[op]

		var nextVal uint64
		switch kind {
		case opInsert, opInsertRMW:
			if r.cfg.RandomRange != 0 {
				nextVal = r.randomKey(t.rng)
			} else {
				nextVal = r.cfg.InitialCount + r.state.nextInsertKey()
			}
		case opRead, opUpdate:
			nextVal = r.randomKey(t.rng)
			// A concurrent insert may not have advanced the bound yet;
			// skip without counting an operation.
			if r.valueRange() < nextVal {
				continue
			}
		}

		formatKey(t.keyBuf, nextVal)
		cur.SetKey(t.keyBuf)

		var trk *track
		switch kind {
		case opRead:
			// A miss is still a read: the key may sit in an unfilled
			// part of a fixed random range, or just ahead of an insert
			// that has not finished yet.
			switch res := cur.Search(); res.Status {
			case store.StatusOK, store.StatusNotFound:
				trk = &t.read
			default:
				r.opFatal(kind, t.keyBuf, res.Err)
				return
			}
		case opInsertRMW:
			// The key is new, so anything but a miss breaks the
			// protocol.
			res := cur.Search()
			if res.Status != store.StatusNotFound {
				if res.Err == nil {
					res.Err = fmt.Errorf("key unexpectedly present")
				}
				r.opFatal(kind, t.keyBuf, res.Err)
				return
			}
			cur.SetKey(t.keyBuf)
			fallthrough
		case opInsert:
			cur.SetValue(t.valueBuf)
			res := cur.Insert()
			if res.Status != store.StatusOK {
				r.opFatal(kind, t.keyBuf, res.Err)
				return
			}
			trk = &t.insert
		case opUpdate:
			switch res := cur.Search(); res.Status {
			case store.StatusOK:
				copy(t.valueBuf, cur.Value())
				if t.valueBuf[0] == 'a' {
					t.valueBuf[0] = 'b'
				} else {
					t.valueBuf[0] = 'a'
				}
				cur.SetValue(t.valueBuf)
				if res := cur.Update(); res.Status != store.StatusOK {
					r.opFatal(kind, t.keyBuf, res.Err)
					return
				}
				trk = &t.update
			case store.StatusNotFound:
				// Same tolerance as reads: count the failed search as
				// a read.
				trk = &t.read
			default:
				r.opFatal(kind, t.keyBuf, res.Err)
				return
			}
		}

		trk.ops.Add(1)
		trk.aggregated++
		aggregated++

		lastKind := kind
		op++
		if op == scheduleSize {
			op = 0
		}

		// Keep batching while the operation kind stays the same and
		// the batch is under the configured limit.
		if aggregated < uint64(r.cfg.LatencyAggregate) && lastKind == t.schedule[op] {
			continue
		}

		now := time.Now()
		elapsed := now.Sub(last)
		t.insert.record(elapsed, aggregated)
		t.read.record(elapsed, aggregated)
		t.update.record(elapsed, aggregated)
		aggregated = 0
		last = now
	}
}

// populate claims unique keys from the shared counter and inserts them
// until the counter passes the initial count, optionally batching the
// inserts into transactions.
func (r *Runner) populate(t *thread) {
	sess, err := r.conn.OpenSession()
	if err != nil {
		r.fatal("populate: open session: %v", err)
		return
	}
	defer sess.Close()
	cur, err := sess.OpenCursor(r.cfg.Table)
	if err != nil {
		r.fatal("populate: open cursor on %s: %v", r.cfg.Table, err)
		return
	}
	defer cur.Close()

	if r.cfg.PopulateOpsPerTxn == 0 {
		for !r.state.stop.Load() {
			op := r.state.nextInsertKey()
			if op > r.cfg.InitialCount {
				break
			}
			formatKey(t.keyBuf, op)
			cur.SetKey(t.keyBuf)
			cur.SetValue(t.valueBuf)
			if res := cur.Insert(); res.Status != store.StatusOK {
				r.fatal("populate: insert failed for %s: %v", t.keyBuf, res.Err)
				return
			}
			t.insert.ops.Add(1)
		}
		return
	}

	inTxn := false
	opcount := 0
	for !r.state.stop.Load() {
		op := r.state.nextInsertKey()
		if op > r.cfg.InitialCount {
			break
		}
		if !inTxn {
			if err := sess.BeginTransaction(); err != nil {
				r.fatal("populate: begin transaction: %v", err)
				return
			}
			inTxn = true
		}
		formatKey(t.keyBuf, op)
		cur.SetKey(t.keyBuf)
		cur.SetValue(t.valueBuf)
		if res := cur.Insert(); res.Status != store.StatusOK {
			r.fatal("populate: insert failed for %s: %v", t.keyBuf, res.Err)
			return
		}
		t.insert.ops.Add(1)

		if opcount++; opcount < r.cfg.PopulateOpsPerTxn {
			continue
		}
		opcount = 0

		// Batched commits are a throughput optimization, not a
		// correctness requirement; a failed commit is logged and the
		// load continues.
		if err := sess.CommitTransaction(); err != nil {
			r.log.Printf("populate: commit failed, transaction was aborted: %v", err)
		}
		inTxn = false
	}
	if inTxn {
		if err := sess.CommitTransaction(); err != nil {
			r.log.Printf("populate: commit failed, transaction was aborted: %v", err)
		}
	}
}

// checkpointWorker periodically checkpoints the store, recording the
// duration of each checkpoint and raising the in-progress flag for the
// monitor while one runs.
func (r *Runner) checkpointWorker(t *thread) {
	sess, err := r.conn.OpenSession()
	if err != nil {
		r.fatal("checkpoint: open session: %v", err)
		return
	}
	defer sess.Close()

	for !r.state.stop.Load() {
		// Break the sleep up, so we notice the stop flag faster.
		for i := 0; i < r.cfg.CheckpointInterval; i++ {
			time.Sleep(time.Second)
			if r.state.stop.Load() {
				break
			}
		}
		// If the workers are done, don't bother with a final call.
		if r.state.stop.Load() {
			break
		}

		start := time.Now()
		r.state.ckpt.Store(true)
		err := sess.Checkpoint()
		r.state.ckpt.Store(false)
		if err != nil {
			r.fatal("checkpoint failed: %v", err)
			return
		}
		t.ckpt.ops.Add(1)
		t.ckpt.aggregated++
		t.ckpt.record(time.Since(start), 1)
	}
}

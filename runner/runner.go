// Package runner implements the concurrent workload engine: phased
// populate and mixed read/insert/update traffic against a key/value
// store, with per-thread latency tracking and coordinated start/stop.
package runner

import (
	"errors"
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"kvperf/store"

	"github.com/google/uuid"
)

// Runner owns the thread pools of a single run and drives the phase
// state machine: populate, workload (with optional checkpoint and
// monitor threads), shutdown.
type Runner struct {
	cfg    Config
	opener store.Opener
	conn   store.Connection
	log    *log.Logger

	state    runState
	nthreads int

	// threadsMu guards the thread slices while phases assemble them;
	// the monitor snapshots under the same lock. Worker hot paths
	// never touch it.
	threadsMu   sync.Mutex
	popThreads  []*thread
	workers     []*thread
	ckptThreads []*thread

	monitorWG sync.WaitGroup
	ckptWG    sync.WaitGroup
}

func New(cfg Config, opener store.Opener, logger *log.Logger) *Runner {
	return &Runner{cfg: cfg, opener: opener, log: logger}
}

// Stop asks every thread to wind down; the run then finishes as if its
// time bound had elapsed.
func (r *Runner) Stop() {
	r.state.stop.Store(true)
}

// Run executes the configured phases and returns an error if any
// thread reported a failure.
func (r *Runner) Run() error {
	runID := uuid.NewString()
	r.log.Printf("starting run %s", runID)

	conn, err := r.opener.Open()
	if err != nil {
		return fmt.Errorf("opening store connection: %w", err)
	}
	r.conn = conn
	defer func() {
		if r.conn != nil {
			r.conn.Close()
		}
	}()

	if r.cfg.SampleInterval > 0 {
		r.monitorWG.Add(1)
		go func() {
			defer r.monitorWG.Done()
			r.monitor(runID)
		}()
	}

	if r.cfg.Create {
		if err := r.executePopulate(); err != nil {
			r.Stop()
			r.monitorWG.Wait()
			return err
		}
	}

	if r.cfg.RunTime > 0 || r.cfg.RunOps > 0 {
		// Running against an existing table: discover how many records
		// it holds so key draws stay in range.
		if !r.cfg.Create {
			if err := r.findTableCount(); err != nil {
				r.Stop()
				r.monitorWG.Wait()
				return err
			}
		}

		// Checkpoint threads without an interval would spin; both
		// knobs have to be set.
		if r.cfg.CheckpointThreads > 0 && r.cfg.CheckpointInterval > 0 {
			r.log.Printf("starting %d checkpoint thread(s)", r.cfg.CheckpointThreads)
			r.startCheckpointThreads()
		}

		err = r.executeWorkload()
		if err == nil {
			r.reportFinal()
		}
	}

	r.Stop()
	r.ckptWG.Wait()
	r.monitorWG.Wait()
	if err != nil {
		return err
	}
	if r.state.err.Load() {
		return errors.New("run failed: a worker thread reported an error")
	}
	r.log.Printf("run %s completed", runID)
	return nil
}

func (r *Runner) startCheckpointThreads() {
	threads := make([]*thread, r.cfg.CheckpointThreads)
	for i := range threads {
		threads[i] = r.newThread()
	}
	r.threadsMu.Lock()
	r.ckptThreads = threads
	r.threadsMu.Unlock()

	for _, t := range threads {
		r.ckptWG.Add(1)
		go func(t *thread) {
			defer r.ckptWG.Done()
			r.checkpointWorker(t)
		}(t)
	}
}

// executePopulate loads the initial records, reporting progress at the
// configured interval, then closes and reopens the connection so the
// workload phase starts from persisted state.
func (r *Runner) executePopulate() error {
	r.log.Printf("starting %d populate thread(s)", r.cfg.PopulateThreads)

	r.state.insertKey.Store(0)
	threads := make([]*thread, r.cfg.PopulateThreads)
	for i := range threads {
		threads[i] = r.newThread()
	}
	r.threadsMu.Lock()
	r.popThreads = threads
	r.threadsMu.Unlock()

	var wg sync.WaitGroup
	for _, t := range threads {
		wg.Add(1)
		go func(t *thread) {
			defer wg.Done()
			r.populate(t)
		}(t)
	}

	start := time.Now()
	var lastOps uint64
	// The poll is 10ms; every 100 polls is one second of elapsed time
	// against the report interval.
	elapsed, interval := 0, 0
	for r.state.insertKey.Load() < r.cfg.InitialCount &&
		!r.state.err.Load() && !r.state.stop.Load() {
		time.Sleep(10 * time.Millisecond)
		if r.cfg.ReportInterval == 0 {
			continue
		}
		if elapsed++; elapsed < 100 {
			continue
		}
		elapsed = 0
		if interval++; interval < r.cfg.ReportInterval {
			continue
		}
		interval = 0
		ops := sumOps(threads, insertTrack)
		r.log.Printf("%d populate inserts in %d secs", ops-lastOps, r.cfg.ReportInterval)
		lastOps = ops
	}
	wg.Wait()

	if r.state.err.Load() {
		return errors.New("populate thread(s) exited without finishing")
	}

	secs := time.Since(start).Seconds()
	if secs == 0 {
		secs++
	}
	r.log.Printf("finished load of %d items", r.cfg.InitialCount)
	r.log.Printf("load time: %.2f secs, load ops/sec: %.2f", secs, float64(r.cfg.InitialCount)/secs)

	// Reopen the connection so the workload phase always observes
	// on-disk state.
	if err := r.conn.Close(); err != nil {
		r.conn = nil
		return fmt.Errorf("closing the connection: %w", err)
	}
	conn, err := r.opener.Open()
	if err != nil {
		r.conn = nil
		return fmt.Errorf("re-opening the connection: %w", err)
	}
	r.conn = conn
	return nil
}

// executeWorkload runs the mixed traffic phase until the run-time or
// run-ops bound is hit or a worker fails, then stops and joins every
// worker.
func (r *Runner) executeWorkload() error {
	r.state.insertKey.Store(0)

	total := r.cfg.ReadThreads + r.cfg.InsertThreads + r.cfg.UpdateThreads
	mixed := r.cfg.RunMixInserts != 0 || r.cfg.RunMixUpdates != 0
	if mixed {
		r.log.Printf("starting %d worker threads", total)
	} else {
		r.log.Printf("starting worker threads: read %d, insert %d, update %d",
			r.cfg.ReadThreads, r.cfg.InsertThreads, r.cfg.UpdateThreads)
	}

	var mix schedule
	if mixed {
		mix = buildMixSchedule(r.cfg.RunMixInserts, r.cfg.RunMixUpdates, r.cfg.InsertRMW)
	}
	insertOp := opInsert
	if r.cfg.InsertRMW {
		insertOp = opInsertRMW
	}

	threads := make([]*thread, 0, total)
	setup := func(n int, fixed opKind) {
		for i := 0; i < n; i++ {
			t := r.newThread()
			if mixed {
				t.schedule = mix
			} else {
				for j := range t.schedule {
					t.schedule[j] = fixed
				}
			}
			threads = append(threads, t)
		}
	}
	setup(r.cfg.ReadThreads, opRead)
	setup(r.cfg.InsertThreads, insertOp)
	setup(r.cfg.UpdateThreads, opUpdate)

	r.threadsMu.Lock()
	r.workers = threads
	r.threadsMu.Unlock()

	var wg sync.WaitGroup
	for _, t := range threads {
		wg.Add(1)
		go func(t *thread) {
			defer wg.Done()
			r.worker(t)
		}(t)
	}

	interval := r.cfg.ReportInterval
	runTime := r.cfg.RunTime
	var lastReads, lastInserts, lastUpdates, lastCkpts uint64
	for !r.state.err.Load() && !r.state.stop.Load() {
		// Sleep for one second at a time. If we are tracking run time,
		// check whether we are done, and if run time is the only bound
		// go back to sleep.
		time.Sleep(time.Second)
		if runTime != 0 {
			if runTime--; runTime == 0 {
				break
			}
			if interval == 0 && r.cfg.RunOps == 0 {
				continue
			}
		}

		reads := sumOps(threads, readTrack)
		inserts := sumOps(threads, insertTrack)
		updates := sumOps(threads, updateTrack)
		ckpts := sumOps(r.ckptThreads, ckptTrack)

		if r.cfg.RunOps != 0 && r.cfg.RunOps <= reads+inserts+updates {
			break
		}

		if interval == 0 {
			continue
		}
		if interval--; interval > 0 {
			continue
		}
		interval = r.cfg.ReportInterval
		r.log.Printf("%d reads, %d inserts, %d updates, %d checkpoints in %d secs",
			reads-lastReads, inserts-lastInserts, updates-lastUpdates,
			ckpts-lastCkpts, r.cfg.ReportInterval)
		lastReads, lastInserts, lastUpdates, lastCkpts = reads, inserts, updates, ckpts
	}

	r.Stop()
	wg.Wait()

	if r.state.err.Load() {
		return errors.New("worker thread(s) exited without finishing")
	}
	return nil
}

// findTableCount discovers the record count of an existing table from
// its last key.
func (r *Runner) findTableCount() error {
	sess, err := r.conn.OpenSession()
	if err != nil {
		return fmt.Errorf("finding table count: open session: %w", err)
	}
	defer sess.Close()
	cur, err := sess.OpenCursor(r.cfg.Table)
	if err != nil {
		return fmt.Errorf("finding table count: open cursor: %w", err)
	}
	defer cur.Close()

	if res := cur.Prev(); res.Status != store.StatusOK {
		if res.Err != nil {
			return fmt.Errorf("finding table count: %w", res.Err)
		}
		return errors.New("finding table count: table is empty")
	}
	n, err := strconv.ParseUint(string(cur.Key()), 10, 64)
	if err != nil {
		return fmt.Errorf("finding table count: parsing key %q: %w", cur.Key(), err)
	}
	r.cfg.InitialCount = n
	return nil
}

// reportFinal sums the per-thread tracks and logs per-kind totals and
// latency summaries.
func (r *Runner) reportFinal() {
	workers := r.snapshotThreads(&r.workers)
	read := summarize(workers, readTrack)
	insert := summarize(workers, insertTrack)
	update := summarize(workers, updateTrack)
	ckpts := sumOps(r.snapshotThreads(&r.ckptThreads), ckptTrack)

	total := read.ops + insert.ops + update.ops
	if total == 0 {
		total = 1
	}
	r.log.Printf("executed %d read operations (%d%%)", read.ops, read.ops*100/total)
	r.log.Printf("executed %d insert operations (%d%%)", insert.ops, insert.ops*100/total)
	r.log.Printf("executed %d update operations (%d%%)", update.ops, update.ops*100/total)
	r.log.Printf("executed %d checkpoint operations", ckpts)

	for _, kind := range []struct {
		name string
		sum  latencySummary
	}{
		{"read", read},
		{"insert", insert},
		{"update", update},
	} {
		if kind.sum.ops == 0 {
			continue
		}
		r.log.Printf("%s latency: avg %d ns, min %d ns, max %d ns",
			kind.name, kind.sum.avg, kind.sum.min, kind.sum.max)
	}
}

func (r *Runner) snapshotThreads(list *[]*thread) []*thread {
	r.threadsMu.Lock()
	defer r.threadsMu.Unlock()
	out := make([]*thread, len(*list))
	copy(out, *list)
	return out
}

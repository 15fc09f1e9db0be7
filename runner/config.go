package runner

// Config holds the resolved workload parameters for one run. Interval
// and run-time fields are whole seconds; the orchestrator polls on a
// one-second cadence.
type Config struct {
	Seed int64

	Table     string
	KeySize   int
	ValueSize int

	// Populate phase
	Create            bool
	InitialCount      uint64
	PopulateThreads   int
	PopulateOpsPerTxn int

	// Workload phase
	ReadThreads       int
	InsertThreads     int
	UpdateThreads     int
	CheckpointThreads int
	RunTime           int
	RunOps            uint64
	RunMixInserts     int
	RunMixUpdates     int
	InsertRMW         bool

	// Key distribution: a non-zero RandomRange fixes the key-space
	// upper bound at InitialCount+RandomRange, otherwise the bound
	// grows with acknowledged inserts.
	RandomRange uint64
	Pareto      bool

	// Reporting
	ReportInterval     int
	CheckpointInterval int
	SampleInterval     int
	LatencyAggregate   int
	MonitorFile        string
}

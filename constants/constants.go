package constants

const (
	// config
	DEFAULT_CONFIG_DIR        = ".kvperf"
	DEFAULT_CONFIG_FILE       = "config.json"
	DEFAULT_SEED        int64 = 0x5DEECE66D
	DEFAULT_TABLE_NAME        = "test"
	DEFAULT_HOME              = "kvperf_home"

	// Zero-padded decimal keys need room for the largest key the run can
	// produce; 8 digits covers the preset configurations.
	MIN_KEY_SIZE = 8

	DEFAULT_KEY_SIZE   = 20
	DEFAULT_VALUE_SIZE = 100

	// store backends
	BACKEND_MEMORY = "memory"
	BACKEND_SQLITE = "sqlite"
	BACKEND_ETCD   = "etcd"

	// output files, created inside the home directory
	DEFAULT_RUN_LOG_FILE = "run.log"
	DEFAULT_MONITOR_FILE = "monitor.csv"

	// latency sampling
	DEFAULT_LATENCY_AGGREGATE = 100
)

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"kvperf/constants"

	validator "github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// BenchConfig describes one harness run: store backend, key space,
// thread counts per role, run bounds and reporting intervals. It is
// immutable once validated and shared by every worker thread.
type BenchConfig struct {
	Seed      int64    `json:"seed" yaml:"seed" validate:"required,gt=0"`
	Backend   string   `json:"backend" yaml:"backend" validate:"required,valid_backend"`
	Home      string   `json:"home" yaml:"home" validate:"required"`
	Endpoints []string `json:"endpoints" yaml:"endpoints"`
	TableName string   `json:"table_name" yaml:"table_name" validate:"required"`

	KeySize   int `json:"key_size" yaml:"key_size" validate:"required,valid_key_size"`
	ValueSize int `json:"value_size" yaml:"value_size" validate:"required,gt=0"`

	// Populate phase
	Create            bool `json:"create" yaml:"create"`
	InitialCount      int  `json:"icount" yaml:"icount" validate:"gte=0"`
	PopulateThreads   int  `json:"populate_threads" yaml:"populate_threads" validate:"gte=0"`
	PopulateOpsPerTxn int  `json:"populate_ops_per_txn" yaml:"populate_ops_per_txn" validate:"gte=0"`

	// Workload phase
	ReadThreads       int      `json:"read_threads" yaml:"read_threads" validate:"gte=0"`
	InsertThreads     int      `json:"insert_threads" yaml:"insert_threads" validate:"gte=0"`
	UpdateThreads     int      `json:"update_threads" yaml:"update_threads" validate:"gte=0"`
	CheckpointThreads int      `json:"checkpoint_threads" yaml:"checkpoint_threads" validate:"gte=0"`
	RunTime           Duration `json:"run_time" yaml:"run_time"`
	RunOps            int      `json:"run_ops" yaml:"run_ops" validate:"gte=0"`
	RunMixInserts     int      `json:"run_mix_inserts" yaml:"run_mix_inserts" validate:"gte=0,lte=100"`
	RunMixUpdates     int      `json:"run_mix_updates" yaml:"run_mix_updates" validate:"gte=0,lte=100"`
	InsertRMW         bool     `json:"insert_rmw" yaml:"insert_rmw"`

	// Key distribution
	RandomRange int  `json:"random_range" yaml:"random_range" validate:"gte=0"`
	Pareto      bool `json:"pareto" yaml:"pareto"`

	// Reporting
	ReportInterval     Duration `json:"report_interval" yaml:"report_interval"`
	CheckpointInterval Duration `json:"checkpoint_interval" yaml:"checkpoint_interval"`
	SampleInterval     Duration `json:"sample_interval" yaml:"sample_interval"`
	LatencyAggregate   int      `json:"latency_aggregate" yaml:"latency_aggregate" validate:"required,gt=0"`
	MonitorFile        string   `json:"monitor_file" yaml:"monitor_file" validate:"required"`
	LogFile            string   `json:"log_file" yaml:"log_file" validate:"required"`
}

// Custom validation tags
const (
	backendTag = "valid_backend"
	keySizeTag = "valid_key_size"
)

// RegisterCustomValidators registers all custom validators for BenchConfig
func RegisterCustomValidators(v *validator.Validate) error {
	if err := v.RegisterValidation(backendTag, validateBackend); err != nil {
		return fmt.Errorf("failed to register backend validator: %w", err)
	}
	if err := v.RegisterValidation(keySizeTag, validateKeySize); err != nil {
		return fmt.Errorf("failed to register key size validator: %w", err)
	}
	v.RegisterStructValidation(validateBenchConfig, BenchConfig{})
	return nil
}

func validateKeySize(fl validator.FieldLevel) bool {
	keySize := fl.Field().Int()
	return keySize >= int64(constants.MIN_KEY_SIZE)
}

// validateBackend ensures the backend is one of the supported stores
func validateBackend(fl validator.FieldLevel) bool {
	backend := fl.Field().String()
	validBackends := map[string]bool{
		constants.BACKEND_MEMORY: true,
		constants.BACKEND_SQLITE: true,
		constants.BACKEND_ETCD:   true,
	}
	return validBackends[backend]
}

// validateBenchConfig checks cross-field constraints: the run mix must
// leave room for reads, the etcd backend needs endpoints, and the key
// space has to fit the key width.
func validateBenchConfig(sl validator.StructLevel) {
	cfg := sl.Current().Interface().(BenchConfig)

	if cfg.RunMixInserts+cfg.RunMixUpdates > 100 {
		sl.ReportError(cfg.RunMixInserts, "RunMixInserts", "run_mix_inserts", "run_mix_sum", "")
	}
	if cfg.Backend == constants.BACKEND_ETCD && len(cfg.Endpoints) == 0 {
		sl.ReportError(cfg.Endpoints, "Endpoints", "endpoints", "required_for_etcd", "")
	}

	// Zero-padded decimal keys truncate to their low digits once the
	// key space outgrows key_size, so keys would collide. 19 digits
	// already exceeds any representable count.
	if cfg.KeySize > 0 && cfg.KeySize < 19 {
		limit := 1
		for i := 0; i < cfg.KeySize; i++ {
			limit *= 10
		}
		if cfg.InitialCount+cfg.RandomRange >= limit {
			sl.ReportError(cfg.InitialCount, "InitialCount", "icount", "key_space_fits_key_size", "")
		}
	}
}

func GetDefaultConfig() *BenchConfig {
	return &BenchConfig{
		Seed:               constants.DEFAULT_SEED,
		Backend:            constants.BACKEND_SQLITE,
		Home:               constants.DEFAULT_HOME,
		Endpoints:          []string{},
		TableName:          constants.DEFAULT_TABLE_NAME,
		KeySize:            constants.DEFAULT_KEY_SIZE,
		ValueSize:          constants.DEFAULT_VALUE_SIZE,
		Create:             true,
		InitialCount:       5000,
		PopulateThreads:    1,
		ReadThreads:        2,
		InsertThreads:      1,
		UpdateThreads:      1,
		RunTime:            Duration(20 * time.Second),
		ReportInterval:     Duration(5 * time.Second),
		CheckpointInterval: 0,
		SampleInterval:     0,
		LatencyAggregate:   constants.DEFAULT_LATENCY_AGGREGATE,
		MonitorFile:        constants.DEFAULT_MONITOR_FILE,
		LogFile:            constants.DEFAULT_RUN_LOG_FILE,
	}
}

// SmallConfig is a short smoke-test run against a freshly loaded table.
func SmallConfig() *BenchConfig {
	cfg := GetDefaultConfig()
	cfg.InitialCount = 500000
	cfg.ValueSize = 100
	cfg.KeySize = 20
	cfg.ReportInterval = Duration(5 * time.Second)
	cfg.RunTime = Duration(20 * time.Second)
	cfg.PopulateThreads = 1
	cfg.ReadThreads = 8
	cfg.InsertThreads = 0
	cfg.UpdateThreads = 0
	return cfg
}

// MediumConfig loads fifty million records and reads for 100 seconds.
func MediumConfig() *BenchConfig {
	cfg := SmallConfig()
	cfg.InitialCount = 50000000
	cfg.RunTime = Duration(100 * time.Second)
	cfg.ReadThreads = 16
	return cfg
}

// LargeConfig loads half a billion records and reads for ten minutes.
func LargeConfig() *BenchConfig {
	cfg := SmallConfig()
	cfg.InitialCount = 500000000
	cfg.RunTime = Duration(600 * time.Second)
	cfg.ReadThreads = 16
	return cfg
}

func ValidateConfig(config *BenchConfig) error {
	v := validator.New()
	if err := RegisterCustomValidators(v); err != nil {
		return fmt.Errorf("failed to register custom validators: %w", err)
	}
	return v.Struct(config)
}

// ReadConfig loads and validates a configuration file. The format is
// chosen by extension: .yaml/.yml is YAML, anything else is JSON.
func ReadConfig(path string) (*BenchConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	benchConfig := &BenchConfig{}
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, benchConfig)
	default:
		err = json.Unmarshal(data, benchConfig)
	}
	if err != nil {
		return nil, err
	}
	err = ValidateConfig(benchConfig)
	if err != nil {
		return nil, err
	}
	return benchConfig, nil
}

func (cfg *BenchConfig) WriteConfig(path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	err = os.WriteFile(path, data, 0644)
	if err != nil {
		return err
	}
	return nil
}

package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	benchCfg "kvperf/config"
	"kvperf/constants"
	"kvperf/logger"
	"kvperf/runner"
	"kvperf/store"
	etcdstore "kvperf/store/etcd"
	"kvperf/store/memory"
	sqlitestore "kvperf/store/sqlite"

	"github.com/spf13/cobra"
)

var (
	runConfigFile string
	runPreset     string
	runOverrides  []string
)

var RunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the configured benchmark",
	Long:  "Run the populate and workload phases against the configured store backend, reporting throughput as the run progresses and a latency summary at the end",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := resolveRunConfig()
		if err != nil {
			return err
		}
		return runBenchmark(cfg)
	},
}

func init() {
	RunCmd.Flags().StringVarP(&runConfigFile, "config", "c", "", "path to a JSON or YAML config file")
	RunCmd.Flags().StringVarP(&runPreset, "preset", "p", "", "built-in configuration: small, medium or large")
	RunCmd.Flags().StringArrayVarP(&runOverrides, "option", "o", nil, "config override as field=value, repeatable")
}

// resolveRunConfig picks the base configuration (preset, explicit file,
// persisted file, built-in default, in that order) and applies -o
// overrides on top.
func resolveRunConfig() (*benchCfg.BenchConfig, error) {
	var cfg *benchCfg.BenchConfig
	switch {
	case runPreset != "":
		switch runPreset {
		case "small":
			cfg = benchCfg.SmallConfig()
		case "medium":
			cfg = benchCfg.MediumConfig()
		case "large":
			cfg = benchCfg.LargeConfig()
		default:
			return nil, fmt.Errorf("unknown preset %q, expected small, medium or large", runPreset)
		}
	case runConfigFile != "":
		var err error
		cfg, err = benchCfg.ReadConfig(runConfigFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	case GConfig.benchConfig != nil:
		cfg = GConfig.benchConfig
	default:
		cfg = benchCfg.GetDefaultConfig()
	}

	for _, o := range runOverrides {
		if err := setField(cfg, o); err != nil {
			return nil, err
		}
	}
	if err := benchCfg.ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newOpener(cfg *benchCfg.BenchConfig) (store.Opener, error) {
	switch cfg.Backend {
	case constants.BACKEND_MEMORY:
		return memory.NewStore(), nil
	case constants.BACKEND_SQLITE:
		return &sqlitestore.Opener{Home: cfg.Home, Table: cfg.TableName}, nil
	case constants.BACKEND_ETCD:
		return &etcdstore.Opener{Endpoints: cfg.Endpoints}, nil
	}
	return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
}

func runnerConfig(cfg *benchCfg.BenchConfig) runner.Config {
	return runner.Config{
		Seed:               cfg.Seed,
		Table:              cfg.TableName,
		KeySize:            cfg.KeySize,
		ValueSize:          cfg.ValueSize,
		Create:             cfg.Create,
		InitialCount:       uint64(cfg.InitialCount),
		PopulateThreads:    cfg.PopulateThreads,
		PopulateOpsPerTxn:  cfg.PopulateOpsPerTxn,
		ReadThreads:        cfg.ReadThreads,
		InsertThreads:      cfg.InsertThreads,
		UpdateThreads:      cfg.UpdateThreads,
		CheckpointThreads:  cfg.CheckpointThreads,
		RunTime:            cfg.RunTime.Seconds(),
		RunOps:             uint64(cfg.RunOps),
		RunMixInserts:      cfg.RunMixInserts,
		RunMixUpdates:      cfg.RunMixUpdates,
		InsertRMW:          cfg.InsertRMW,
		RandomRange:        uint64(cfg.RandomRange),
		Pareto:             cfg.Pareto,
		ReportInterval:     cfg.ReportInterval.Seconds(),
		CheckpointInterval: cfg.CheckpointInterval.Seconds(),
		SampleInterval:     cfg.SampleInterval.Seconds(),
		LatencyAggregate:   cfg.LatencyAggregate,
		MonitorFile:        filepath.Join(cfg.Home, cfg.MonitorFile),
	}
}

func runBenchmark(cfg *benchCfg.BenchConfig) error {
	if err := os.MkdirAll(cfg.Home, 0755); err != nil {
		return fmt.Errorf("failed to create home directory: %w", err)
	}
	lg, err := logger.NewLogger(filepath.Join(cfg.Home, cfg.LogFile))
	if err != nil {
		return fmt.Errorf("failed to set up the log file: %w", err)
	}
	defer lg.Close()

	opener, err := newOpener(cfg)
	if err != nil {
		return err
	}

	r := runner.New(runnerConfig(cfg), opener, lg.Logger)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		<-sigChan
		lg.Println("Interrupt received, stopping the run")
		r.Stop()
	}()

	return r.Run()
}

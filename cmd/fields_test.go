package cmd

import (
	"testing"
	"time"

	benchCfg "kvperf/config"
)

func TestSetField(t *testing.T) {
	tests := []struct {
		name    string
		arg     string
		check   func(cfg *benchCfg.BenchConfig) bool
		wantErr bool
	}{
		{
			"integer field",
			"read_threads=8",
			func(cfg *benchCfg.BenchConfig) bool { return cfg.ReadThreads == 8 },
			false,
		},
		{
			"boolean field",
			"pareto=true",
			func(cfg *benchCfg.BenchConfig) bool { return cfg.Pareto },
			false,
		},
		{
			"string field",
			"backend=memory",
			func(cfg *benchCfg.BenchConfig) bool { return cfg.Backend == "memory" },
			false,
		},
		{
			"duration field",
			"run_time=1m30s",
			func(cfg *benchCfg.BenchConfig) bool { return cfg.RunTime == benchCfg.Duration(90*time.Second) },
			false,
		},
		{
			"string slice field",
			"endpoints=host1:2379, host2:2379",
			func(cfg *benchCfg.BenchConfig) bool {
				return len(cfg.Endpoints) == 2 && cfg.Endpoints[1] == "host2:2379"
			},
			false,
		},
		{
			"unknown field",
			"nope=1",
			nil,
			true,
		},
		{
			"missing equals sign",
			"read_threads",
			nil,
			true,
		},
		{
			"bad integer",
			"read_threads=lots",
			nil,
			true,
		},
		{
			"bad duration",
			"run_time=fast",
			nil,
			true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := benchCfg.GetDefaultConfig()
			err := setField(cfg, tt.arg)
			if tt.wantErr {
				if err == nil {
					t.Error("setField succeeded, want an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("setField: %v", err)
			}
			if !tt.check(cfg) {
				t.Errorf("field not applied by %q", tt.arg)
			}
		})
	}
}

func TestGetField(t *testing.T) {
	cfg := benchCfg.GetDefaultConfig()
	cfg.ReadThreads = 4
	cfg.RunTime = benchCfg.Duration(20 * time.Second)

	if got, err := getField(cfg, "read_threads"); err != nil || got != "4" {
		t.Errorf("getField(read_threads) = %q, %v, want 4", got, err)
	}
	if got, err := getField(cfg, "run_time"); err != nil || got != "20s" {
		t.Errorf("getField(run_time) = %q, %v, want 20s", got, err)
	}
	if _, err := getField(cfg, "nope"); err == nil {
		t.Error("getField accepted an unknown field")
	}
}

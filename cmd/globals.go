package cmd

import (
	"os"
	"path"

	"kvperf/config"
	"kvperf/constants"
)

type globalConfig struct {
	benchConfig *config.BenchConfig
	configPath  string
}

var GConfig globalConfig

func init() {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	GConfig.configPath = path.Join(home, constants.DEFAULT_CONFIG_DIR)
}

func (g *globalConfig) GetConfigFilePath() string {
	return path.Join(g.configPath, constants.DEFAULT_CONFIG_FILE)
}

// loadIfPresent reads the persisted configuration if one has been
// initialized, leaving benchConfig nil otherwise.
func (g *globalConfig) loadIfPresent() {
	cfgFile := g.GetConfigFilePath()
	if _, err := os.Stat(cfgFile); err != nil {
		return
	}
	cfg, err := config.ReadConfig(cfgFile)
	if err != nil {
		return
	}
	g.benchConfig = cfg
}

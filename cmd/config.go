package cmd

import (
	"fmt"
	"os"

	benchCfg "kvperf/config"

	"github.com/spf13/cobra"
)

var ConfigCmd = &cobra.Command{
	Use:   "config [command]",
	Short: "Manage the persisted benchmark configuration",
	Long:  "Initialize, inspect and edit the configuration file used by the run command when no explicit config is given",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := os.MkdirAll(GConfig.configPath, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
		cfgFile := GConfig.GetConfigFilePath()
		if _, err := os.Stat(cfgFile); err == nil {
			return fmt.Errorf("config file already exists at %s", cfgFile)
		}
		cfg := benchCfg.GetDefaultConfig()
		if err := cfg.WriteConfig(cfgFile); err != nil {
			return fmt.Errorf("failed to write config file: %w", err)
		}
		fmt.Printf("Config file created at %s\n", cfgFile)
		return nil
	},
}

var configViewCmd = &cobra.Command{
	Use:   "view",
	Short: "Print the persisted configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(GConfig.GetConfigFilePath())
		if err != nil {
			return fmt.Errorf("failed to read config file, run \"kvperf config init\" first: %w", err)
		}
		fmt.Println(string(data))
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set [field=value ...]",
	Short: "Set configuration fields by their json name",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if GConfig.benchConfig == nil {
			return fmt.Errorf("no config file found, run \"kvperf config init\" first")
		}
		cfg := GConfig.benchConfig
		for _, arg := range args {
			if err := setField(cfg, arg); err != nil {
				return err
			}
		}
		if err := benchCfg.ValidateConfig(cfg); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		if err := cfg.WriteConfig(GConfig.GetConfigFilePath()); err != nil {
			return fmt.Errorf("failed to write config file: %w", err)
		}
		fmt.Println("Config updated")
		return nil
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get [field ...]",
	Short: "Print configuration fields by their json name",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if GConfig.benchConfig == nil {
			return fmt.Errorf("no config file found, run \"kvperf config init\" first")
		}
		for _, arg := range args {
			val, err := getField(GConfig.benchConfig, arg)
			if err != nil {
				return err
			}
			fmt.Printf("%s = %s\n", arg, val)
		}
		return nil
	},
}

func init() {
	ConfigCmd.AddCommand(configInitCmd)
	ConfigCmd.AddCommand(configViewCmd)
	ConfigCmd.AddCommand(configSetCmd)
	ConfigCmd.AddCommand(configGetCmd)
}

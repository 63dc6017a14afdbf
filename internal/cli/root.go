// cmd/genbench/root.go
package genbench

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mwiater/genbench/internal/benchconfig"
)

var (
	cfgFile       string
	currentConfig *benchconfig.Config
)

var rootCmd = &cobra.Command{
	Use:           "genbench",
	Short:         "genbench — text-generation latency and throughput benchmark harness",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// 1) Load config (file or defaults)
		if err := ensureConfigLoaded(); err != nil {
			return err
		}

		// 2) Materialize the fully merged configuration (flags > config >
		//    defaults). This gives other packages a stable snapshot.
		var cfg benchconfig.Config
		if err := viper.Unmarshal(&cfg); err != nil {
			return fmt.Errorf("unmarshal config: %w", err)
		}
		currentConfig = &cfg

		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		color.Red("benchmark failed: %v", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// --config (optional; flags alone are enough for a run)
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config/config.json", "config file (e.g., config/config.json)")
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}
}

// ensureConfigLoaded reads the config and sets safe defaults.
func ensureConfigLoaded() error {
	viper.SetDefault("prompt", "")
	viper.SetDefault("length", 4096)
	viper.SetDefault("temperature", 1.0)
	viper.SetDefault("repetitionPenalty", 1.0)
	viper.SetDefault("topK", 0)
	viper.SetDefault("topP", 0.9)
	viper.SetDefault("seed", 42)
	viper.SetDefault("useCache", "True")
	viper.SetDefault("numReturnSequences", 1)
	viper.SetDefault("nWarmupRuns", 1)
	viper.SetDefault("nRuns", 1)
	viper.SetDefault("recordsFile", "records.json")
	viper.SetDefault("metricsFile", "metrics.json")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// No file: fine, we'll use defaults/flags
			return nil
		}
		// A missing explicitly-set file also falls back to defaults.
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to load config: %w", err)
	}
	return nil
}

// GetConfig returns the loaded configuration for other packages.
func GetConfig() *benchconfig.Config {
	return currentConfig
}

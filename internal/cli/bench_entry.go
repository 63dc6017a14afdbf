package genbench

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mwiater/genbench/internal/benchconfig"
	"github.com/mwiater/genbench/internal/benchmark"
	"github.com/mwiater/genbench/internal/logging"
)

func runBench(cmd *cobra.Command) error {
	var cfg benchconfig.Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Finalize(); err != nil {
		return err
	}

	if err := logging.Init(cfg.LogFilePath()); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer logging.Close()

	return benchmark.RunBenchmark(context.Background(), &cfg)
}

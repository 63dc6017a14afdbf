// internal/benchmark/command.go
package benchmark

import (
	"context"
	"fmt"
	"log"

	"github.com/mwiater/genbench/internal/benchconfig"
	"github.com/mwiater/genbench/internal/logging"
	"github.com/mwiater/genbench/internal/models"
	"github.com/mwiater/genbench/internal/preprocess"
	"github.com/mwiater/genbench/internal/providerfactory"
	"github.com/mwiater/genbench/internal/providers"
	"github.com/mwiater/genbench/internal/trace"
)

// RunBenchmark wires the full flow: resolve the model family, construct the
// backend, optionally trace-compile it, run the loop, aggregate, persist.
func RunBenchmark(ctx context.Context, cfg *benchconfig.Config) error {
	spec, err := models.Resolve(cfg.ModelType)
	if err != nil {
		return err
	}

	gen, err := providerfactory.NewGenerator(cfg, spec)
	if err != nil {
		return fmt.Errorf("load model: %w", err)
	}
	defer func() {
		if err := gen.Close(); err != nil {
			log.Printf("close backend: %v", err)
		}
	}()

	info := gen.Info()
	adjusted := AdjustLengthToModel(cfg.Length, info.MaxSequenceLength)
	if adjusted != cfg.Length {
		logging.LogEvent("benchmark - length adjusted from %d to %d for %s", cfg.Length, adjusted, info.Model)
		cfg.Length = adjusted
	}

	var active providers.Generator = gen
	if cfg.TraceCompile {
		compiled, err := trace.Compile(ctx, gen)
		if err != nil {
			return err
		}
		active = compiled
	}

	if spec.Preprocess == models.PreprocessLanguage {
		lang, err := preprocess.ResolveLanguage(cfg, info)
		if err != nil {
			return err
		}
		cfg.ResolvedLanguage = lang
	}

	pre, _ := preprocess.For(spec)

	records, err := Run(ctx, cfg, active, pre)
	if err != nil {
		return err
	}

	aggregates, err := Aggregate(records)
	if err != nil {
		return err
	}

	if cfg.PrintRecords {
		PrintRecords(records)
	}

	if err := WriteRecords(cfg.RecordsFile, records); err != nil {
		return err
	}
	if err := WriteMetrics(cfg.MetricsFile, aggregates); err != nil {
		return err
	}

	fmt.Println(RenderSummary(info.Model, aggregates))
	return nil
}

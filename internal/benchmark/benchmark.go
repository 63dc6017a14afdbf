// internal/benchmark/benchmark.go
// Package benchmark runs the warmup+measured generation loop and aggregates
// the per-iteration records into the two median throughput metrics.
package benchmark

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mwiater/genbench/internal/benchconfig"
	"github.com/mwiater/genbench/internal/logging"
	"github.com/mwiater/genbench/internal/metrics"
	"github.com/mwiater/genbench/internal/preprocess"
	"github.com/mwiater/genbench/internal/providers"
	"github.com/mwiater/genbench/internal/util"
)

// MaxLengthFallback bounds generation when neither the user nor the model
// provides a length, avoiding an unbounded loop.
const MaxLengthFallback = 10000

// AdjustLengthToModel clamps the requested generation length to the model's
// maximum sequence length. A negative request means "as long as the model
// allows", falling back to MaxLengthFallback when the model reports none.
func AdjustLengthToModel(length, maxSequenceLength int) int {
	switch {
	case length < 0 && maxSequenceLength > 0:
		return maxSequenceLength
	case 0 < maxSequenceLength && maxSequenceLength < length:
		return maxSequenceLength
	case length < 0:
		return MaxLengthFallback
	default:
		return length
	}
}

// Run executes cfg.WarmupRuns + cfg.Runs iterations against the generator.
// Each iteration measures tokenize + generate + decode as one wall-clock
// span. pre is the family's preprocessing function, nil for pass-through
// families.
func Run(ctx context.Context, cfg *benchconfig.Config, gen providers.Generator, pre preprocess.Func) ([]Record, error) {
	codec, hasCodec := gen.(providers.TokenCodec)
	promptText := cfg.Prompt

	records := make([]Record, 0, cfg.TotalRuns())
	logging.LogEvent("benchmark - start (%d warmup + %d measured runs)", cfg.WarmupRuns, cfg.Runs)

	for i := 0; i < cfg.TotalRuns(); i++ {
		logging.LogEvent("benchmark - iteration[%d] - start", i)
		start := time.Now()

		var text string
		var err error
		if pre != nil {
			text, err = pre(cfg, promptText)
			if err != nil {
				return nil, fmt.Errorf("preprocess prompt: %w", err)
			}
		} else {
			text = preprocess.ApplyDefaultPrefix(cfg, promptText)
		}

		var inputTokens []int
		if hasCodec {
			encoded, err := codec.Tokenize(ctx, text)
			if err != nil {
				return nil, fmt.Errorf("tokenize prompt: %w", err)
			}
			// An empty encoding means unconditional generation.
			if len(encoded) > 0 {
				inputTokens = encoded
			}
		}

		maxLength := cfg.Length + len(inputTokens)

		seed := cfg.Seed
		if !cfg.SameSeed {
			// Without same-seed mode each iteration advances the seed,
			// mirroring the drift of a shared RNG consumed by sampling.
			seed = cfg.Seed + int64(i)
		}

		result, err := gen.Generate(ctx, providers.GenerateRequest{
			InputTokens:        inputTokens,
			PromptText:         text,
			MaxLength:          maxLength,
			MaxNewTokens:       cfg.MaxNewTokens,
			MinNewTokens:       cfg.MinNewTokens,
			Temperature:        cfg.Temperature,
			TopK:               cfg.TopK,
			TopP:               cfg.TopP,
			RepetitionPenalty:  cfg.RepetitionPenalty,
			Sample:             true,
			NumReturnSequences: cfg.NumReturnSequences,
			UseCache:           cfg.UseCache,
			Seed:               seed,
		})
		if err != nil {
			return nil, fmt.Errorf("generate (iteration %d): %w", i, err)
		}

		outputs, err := decodeOutputs(ctx, cfg, codec, hasCodec, promptText, inputTokens, result)
		if err != nil {
			return nil, fmt.Errorf("decode outputs (iteration %d): %w", i, err)
		}

		latency := time.Since(start).Seconds()
		logging.LogEvent("benchmark - iteration[%d] - end (%.3fs)", i, latency)
		if len(outputs) > 0 {
			logging.LogEvent("benchmark - iteration[%d] - output: %s", i, util.TruncateRunes(outputs[0], 120))
		}

		record := Record{
			Latency:       latency,
			Warmup:        i < cfg.WarmupRuns,
			InputLengths:  result.InputLengths,
			OutputLengths: result.OutputLengths,
			TotalTokens:   sum(result.OutputLengths),
			BatchSize:     len(result.OutputLengths),
			MaxLength:     maxLength,
			MaxNewTokens:  cfg.MaxNewTokens,
			MinNewTokens:  cfg.MinNewTokens,
		}
		if latency > 0 {
			record.TokensPerSecond = float64(record.TotalTokens) / latency
		} else {
			// Sub-resolution latency: throughput is undefined, record zero.
			logging.LogEvent("benchmark - iteration[%d] - zero latency, recording 0 tokens/second", i)
		}
		if cfg.OutputSequences {
			if inputTokens != nil {
				for range result.OutputLengths {
					record.InputSequences = append(record.InputSequences, inputTokens)
				}
			}
			record.OutputSequences = result.Sequences
			record.Outputs = outputs
		}

		records = append(records, record)
	}

	logging.LogEvent("benchmark - end")
	return records, nil
}

// decodeOutputs turns the generation result into displayed texts: decoded
// continuation truncated at the stop token, re-attached to the original
// prompt with any preprocessing prefix stripped.
func decodeOutputs(ctx context.Context, cfg *benchconfig.Config, codec providers.TokenCodec, hasCodec bool, promptText string, inputTokens []int, result providers.GenerateResult) ([]string, error) {
	if hasCodec && len(result.Sequences) > 0 {
		decodedPrompt := ""
		if len(inputTokens) > 0 {
			var err error
			decodedPrompt, err = codec.Detokenize(ctx, inputTokens)
			if err != nil {
				return nil, err
			}
		}
		outputs := make([]string, 0, len(result.Sequences))
		for _, sequence := range result.Sequences {
			text, err := codec.Detokenize(ctx, sequence)
			if err != nil {
				return nil, err
			}
			text = truncateAtStopToken(text, cfg.StopToken)
			continuation := ""
			if len(text) > len(decodedPrompt) {
				continuation = text[len(decodedPrompt):]
			}
			outputs = append(outputs, promptText+continuation)
		}
		return outputs, nil
	}

	outputs := make([]string, 0, len(result.Texts))
	for _, text := range result.Texts {
		text = truncateAtStopToken(text, cfg.StopToken)
		outputs = append(outputs, promptText+text)
	}
	return outputs, nil
}

func truncateAtStopToken(text, stopToken string) string {
	if stopToken == "" {
		return text
	}
	if idx := strings.Index(text, stopToken); idx >= 0 {
		return text[:idx]
	}
	return text
}

// Aggregate computes the two median throughput metrics. Either subset being
// empty is an error: the run was misconfigured.
func Aggregate(records []Record) (Metrics, error) {
	var warmup, measured []float64
	for _, record := range records {
		if record.Warmup {
			warmup = append(warmup, record.TokensPerSecond)
		} else {
			measured = append(measured, record.TokensPerSecond)
		}
	}
	if len(warmup) == 0 {
		return Metrics{}, fmt.Errorf("no warmup records to aggregate")
	}
	if len(measured) == 0 {
		return Metrics{}, fmt.Errorf("no measured records to aggregate")
	}
	return Metrics{
		MedianWarmupTokensPerSecond: metrics.Median(warmup),
		MedianTokensPerSecond:       metrics.Median(measured),
	}, nil
}

func sum(values []int) int {
	total := 0
	for _, v := range values {
		total += v
	}
	return total
}

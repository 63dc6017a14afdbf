// internal/providers/llama2bin/provider.go
// Package llama2bin provides an in-process Generator for karpathy-format
// llama2 checkpoints. Generation runs entirely inside the process through
// nikolaydubina/llama2.go; sampling state is seeded explicitly per request.
package llama2bin

import (
	"bytes"
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/nikolaydubina/llama2.go/llama2"

	"github.com/mwiater/genbench/internal/benchconfig"
	"github.com/mwiater/genbench/internal/logging"
	"github.com/mwiater/genbench/internal/models"
	"github.com/mwiater/genbench/internal/providers"
)

// Provider implements providers.Generator and providers.TokenCodec over a
// loaded checkpoint. The weights are float32 and placement is the host CPU;
// precision and device requests that cannot be honored are logged, not fatal.
type Provider struct {
	config    llama2.Config
	weights   llama2.TransformerWeights
	tokenizer llama2.Tokenizer
	info      providers.ModelInfo

	checkpointFile *os.File
	tokenizerFile  *os.File
}

// New loads the checkpoint at cfg.ModelPath and the tokenizer vocabulary
// expected alongside it as tokenizer.bin (or under cfg.CacheDir when set).
func New(cfg *benchconfig.Config, spec models.FamilySpec) (*Provider, error) {
	checkpointFile, err := os.Open(cfg.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("llama2bin: open checkpoint: %w", err)
	}

	config, err := llama2.NewConfigFromCheckpoint(checkpointFile)
	if err != nil {
		_ = checkpointFile.Close()
		return nil, fmt.Errorf("llama2bin: read checkpoint config: %w", err)
	}

	// Negative vocab size signals unshared embedding/output weights.
	isSharedWeights := config.VocabSize > 0
	if config.VocabSize < 0 {
		config.VocabSize = -config.VocabSize
	}

	tokenizerPath := filepath.Join(filepath.Dir(cfg.ModelPath), "tokenizer.bin")
	if cfg.CacheDir != "" {
		if _, err := os.Stat(tokenizerPath); err != nil {
			tokenizerPath = filepath.Join(cfg.CacheDir, "tokenizer.bin")
		}
	}
	tokenizerFile, err := os.Open(tokenizerPath)
	if err != nil {
		_ = checkpointFile.Close()
		return nil, fmt.Errorf("llama2bin: open tokenizer: %w", err)
	}

	tokenizer := llama2.NewTokenizerFromFile(config.VocabSize, tokenizerFile)
	weights := llama2.NewTransformerWeightsFromCheckpoint(config, checkpointFile, isSharedWeights)

	if cfg.Dtype == "float16" {
		logging.LogEvent("llama2bin: checkpoint weights are float32; ignoring dtype %s", cfg.Dtype)
	}
	if cfg.GPUOrdinal != nil {
		logging.LogEvent("llama2bin: inference runs on CPU; ignoring device map %d", *cfg.GPUOrdinal)
	}

	return &Provider{
		config:         config,
		weights:        weights,
		tokenizer:      tokenizer,
		checkpointFile: checkpointFile,
		tokenizerFile:  tokenizerFile,
		info: providers.ModelInfo{
			Model:             cfg.ModelPath,
			Family:            spec.Family,
			MaxSequenceLength: config.SeqLen,
		},
	}, nil
}

// Info returns the loaded model's metadata.
func (p *Provider) Info() providers.ModelInfo {
	return p.info
}

// Tokenize encodes text without special tokens; Generate adds BOS itself.
func (p *Provider) Tokenize(_ context.Context, text string) ([]int, error) {
	return p.tokenizer.Encode(text), nil
}

// Detokenize decodes token ids to text through the vocabulary decoder.
func (p *Provider) Detokenize(_ context.Context, tokens []int) (string, error) {
	var buf bytes.Buffer
	decoder := p.tokenizer.Decoder(&buf)
	for _, token := range tokens {
		if token == p.tokenizer.BOS_ID {
			continue
		}
		decoder.WriteToken(token)
	}
	return buf.String(), nil
}

// Generate produces the requested number of sequences, each driven by its
// own explicitly seeded RNG so runs are reproducible without global state.
func (p *Provider) Generate(ctx context.Context, req providers.GenerateRequest) (providers.GenerateResult, error) {
	result := providers.GenerateResult{}
	for s := 0; s < req.NumReturnSequences; s++ {
		rng := rand.New(rand.NewSource(req.Seed + int64(s)))
		sequence, err := p.generateOne(ctx, req, rng)
		if err != nil {
			return providers.GenerateResult{}, err
		}
		text, err := p.Detokenize(ctx, sequence)
		if err != nil {
			return providers.GenerateResult{}, err
		}
		result.Sequences = append(result.Sequences, sequence)
		result.Texts = append(result.Texts, text)
		result.InputLengths = append(result.InputLengths, len(req.InputTokens))
		result.OutputLengths = append(result.OutputLengths, len(sequence))
	}
	return result, nil
}

func (p *Provider) generateOne(ctx context.Context, req providers.GenerateRequest, rng *rand.Rand) ([]int, error) {
	prompt := make([]int, 0, len(req.InputTokens)+1)
	prompt = append(prompt, p.tokenizer.BOS_ID)
	prompt = append(prompt, req.InputTokens...)

	limit := req.MaxLength
	if limit <= 0 || limit > p.config.SeqLen {
		limit = p.config.SeqLen
	}
	if req.MaxNewTokens > 0 && len(prompt)+req.MaxNewTokens < limit {
		limit = len(prompt) + req.MaxNewTokens
	}
	if limit < len(prompt) {
		limit = len(prompt)
	}

	state := llama2.NewRunState(p.config)
	sequence := make([]int, 0, limit)
	sequence = append(sequence, prompt[0])

	for pos := 0; len(sequence) < limit; pos++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if req.UseCache {
			llama2.TransformerForward(sequence[pos], pos, p.config, state, p.weights)
		} else {
			// Without the kv cache every step replays the whole sequence
			// through a fresh state, recomputing all attention.
			state = llama2.NewRunState(p.config)
			for i := 0; i <= pos; i++ {
				llama2.TransformerForward(sequence[i], i, p.config, state, p.weights)
			}
		}

		var next int
		if pos+1 < len(prompt) {
			next = prompt[pos+1]
		} else {
			generated := len(sequence) - len(prompt) + 1
			suppressEOS := req.MinNewTokens > 0 && generated <= req.MinNewTokens
			next = sampleNext(state.Logits, req, rng, sequence, p.tokenizer.EOS_ID, suppressEOS)
		}

		sequence = append(sequence, next)
		if next == p.tokenizer.EOS_ID && len(sequence) > len(prompt) {
			break
		}
	}

	return sequence, nil
}

// Close releases the checkpoint and tokenizer files.
func (p *Provider) Close() error {
	var first error
	if p.checkpointFile != nil {
		if err := p.checkpointFile.Close(); err != nil {
			first = err
		}
		p.checkpointFile = nil
	}
	if p.tokenizerFile != nil {
		if err := p.tokenizerFile.Close(); err != nil && first == nil {
			first = err
		}
		p.tokenizerFile = nil
	}
	return first
}

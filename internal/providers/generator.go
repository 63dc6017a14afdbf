// internal/providers/generator.go

// Package providers defines the interfaces for the generation backends the
// benchmark harness can drive. A backend is constructed once, with device
// placement and precision fixed at load time, and is then invoked
// synchronously by the benchmark loop.
package providers

import (
	"context"
	"errors"
)

// ErrNoTokenAccess is returned by backends that cannot expose raw token-id
// sequences (they still report token counts through GenerateResult).
var ErrNoTokenAccess = errors.New("backend does not expose token sequences")

// ModelInfo describes the loaded model as reported by its backend.
type ModelInfo struct {
	Model             string
	Family            string
	MaxSequenceLength int
	// Languages lists the embedding languages of multilingual checkpoints.
	// Empty for monolingual models.
	Languages []string
}

// GenerateRequest carries one invocation's sampling parameters. The seed is
// explicit: backends must not consume hidden global RNG state.
type GenerateRequest struct {
	// InputTokens is the encoded prompt; nil means generate unconditionally.
	InputTokens []int
	// PromptText is used by backends without token access.
	PromptText string

	MaxLength    int
	MaxNewTokens int
	MinNewTokens int

	Temperature       float64
	TopK              int
	TopP              float64
	RepetitionPenalty float64
	Sample            bool

	NumReturnSequences int
	UseCache           bool
	Seed               int64
}

// GenerateResult holds the sequences produced by one generation call.
// Backends with token access fill Sequences (prompt tokens included, as the
// generation routine returns them); backends without fill Texts and the
// length fields only.
type GenerateResult struct {
	Sequences     [][]int
	Texts         []string
	InputLengths  []int
	OutputLengths []int
}

// Generator is the calling interface of a loaded model. The trace-compiled
// variant implements the same interface; callers never test which one they
// hold.
type Generator interface {
	// Info returns static metadata about the loaded model.
	Info() ModelInfo
	// Generate runs one sampling invocation and returns all requested sequences.
	Generate(ctx context.Context, req GenerateRequest) (GenerateResult, error)
	// Close releases any resources held by the backend.
	Close() error
}

// TokenCodec is implemented by backends that expose their tokenizer.
type TokenCodec interface {
	// Tokenize encodes text to token ids without adding special tokens.
	Tokenize(ctx context.Context, text string) ([]int, error)
	// Detokenize decodes token ids back to text.
	Detokenize(ctx context.Context, tokens []int) (string, error)
}

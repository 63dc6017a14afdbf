package benchmark

import (
	"context"
	"testing"

	"github.com/mwiater/genbench/internal/benchconfig"
	"github.com/mwiater/genbench/internal/providers"
)

type stubGenerator struct {
	requests []providers.GenerateRequest
	result   providers.GenerateResult
}

func (s *stubGenerator) Info() providers.ModelInfo {
	return providers.ModelInfo{Model: "stub", MaxSequenceLength: 2048}
}

func (s *stubGenerator) Generate(_ context.Context, req providers.GenerateRequest) (providers.GenerateResult, error) {
	s.requests = append(s.requests, req)
	return s.result, nil
}

func (s *stubGenerator) Close() error { return nil }

type stubCodecGenerator struct {
	stubGenerator
}

func (s *stubCodecGenerator) Tokenize(_ context.Context, text string) ([]int, error) {
	tokens := make([]int, 0, len(text))
	for range text {
		tokens = append(tokens, 7)
	}
	return tokens, nil
}

func (s *stubCodecGenerator) Detokenize(_ context.Context, tokens []int) (string, error) {
	out := make([]byte, len(tokens))
	for i := range out {
		out[i] = 'x'
	}
	return string(out), nil
}

func testConfig() *benchconfig.Config {
	return &benchconfig.Config{
		Prompt:             "hi",
		Length:             16,
		WarmupRuns:         2,
		Runs:               3,
		Seed:               42,
		NumReturnSequences: 1,
	}
}

func TestRunProducesWarmupPlusMeasuredRecords(t *testing.T) {
	gen := &stubGenerator{result: providers.GenerateResult{
		Texts:         []string{" there"},
		InputLengths:  []int{2},
		OutputLengths: []int{8},
	}}

	cfg := testConfig()
	records, err := Run(context.Background(), cfg, gen, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(records) != cfg.TotalRuns() {
		t.Fatalf("len(records) = %d, want %d", len(records), cfg.TotalRuns())
	}
	for i, record := range records {
		wantWarmup := i < cfg.WarmupRuns
		if record.Warmup != wantWarmup {
			t.Fatalf("record[%d].Warmup = %v, want %v", i, record.Warmup, wantWarmup)
		}
		if record.TotalTokens != 8 {
			t.Fatalf("record[%d].TotalTokens = %d, want 8", i, record.TotalTokens)
		}
		if record.Latency <= 0 {
			t.Fatalf("record[%d].Latency = %v, want > 0", i, record.Latency)
		}
		if record.TokensPerSecond <= 0 {
			t.Fatalf("record[%d].TokensPerSecond = %v, want > 0", i, record.TokensPerSecond)
		}
	}
}

func TestRunDriftsSeedPerIteration(t *testing.T) {
	gen := &stubGenerator{result: providers.GenerateResult{
		Texts:         []string{"a"},
		OutputLengths: []int{1},
	}}

	cfg := testConfig()
	if _, err := Run(context.Background(), cfg, gen, nil); err != nil {
		t.Fatalf("Run: %v", err)
	}
	for i, req := range gen.requests {
		if req.Seed != cfg.Seed+int64(i) {
			t.Fatalf("request[%d].Seed = %d, want %d", i, req.Seed, cfg.Seed+int64(i))
		}
	}
}

func TestRunSameSeedHoldsSeedFixed(t *testing.T) {
	gen := &stubGenerator{result: providers.GenerateResult{
		Texts:         []string{"a"},
		OutputLengths: []int{1},
	}}

	cfg := testConfig()
	cfg.SameSeed = true
	if _, err := Run(context.Background(), cfg, gen, nil); err != nil {
		t.Fatalf("Run: %v", err)
	}
	for i, req := range gen.requests {
		if req.Seed != cfg.Seed {
			t.Fatalf("request[%d].Seed = %d, want %d", i, req.Seed, cfg.Seed)
		}
	}
}

func TestRunTokenizesPromptWhenBackendExposesCodec(t *testing.T) {
	gen := &stubCodecGenerator{}
	gen.result = providers.GenerateResult{
		Sequences:     [][]int{{7, 7, 3}},
		InputLengths:  []int{2},
		OutputLengths: []int{3},
	}

	cfg := testConfig()
	if _, err := Run(context.Background(), cfg, gen, nil); err != nil {
		t.Fatalf("Run: %v", err)
	}
	req := gen.requests[0]
	if len(req.InputTokens) != len(cfg.Prompt) {
		t.Fatalf("len(InputTokens) = %d, want %d", len(req.InputTokens), len(cfg.Prompt))
	}
	if req.MaxLength != cfg.Length+len(req.InputTokens) {
		t.Fatalf("MaxLength = %d, want %d", req.MaxLength, cfg.Length+len(req.InputTokens))
	}
}

func TestRunRecordsSequencesWhenRequested(t *testing.T) {
	gen := &stubCodecGenerator{}
	gen.result = providers.GenerateResult{
		Sequences:     [][]int{{7, 7, 3, 4}},
		InputLengths:  []int{2},
		OutputLengths: []int{4},
	}

	cfg := testConfig()
	cfg.OutputSequences = true
	records, err := Run(context.Background(), cfg, gen, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	record := records[0]
	if len(record.OutputSequences) != 1 {
		t.Fatalf("OutputSequences = %v", record.OutputSequences)
	}
	if len(record.InputSequences) != 1 {
		t.Fatalf("InputSequences = %v", record.InputSequences)
	}
	if len(record.Outputs) != 1 {
		t.Fatalf("Outputs = %v", record.Outputs)
	}
}

func TestTruncateAtStopToken(t *testing.T) {
	if got := truncateAtStopToken("hello<stop>world", "<stop>"); got != "hello" {
		t.Fatalf("got %q", got)
	}
	if got := truncateAtStopToken("hello world", "<stop>"); got != "hello world" {
		t.Fatalf("got %q", got)
	}
	if got := truncateAtStopToken("hello", ""); got != "hello" {
		t.Fatalf("got %q", got)
	}
}

func TestAdjustLengthToModel(t *testing.T) {
	cases := []struct {
		name   string
		length int
		max    int
		want   int
	}{
		{"negative with model limit", -1, 512, 512},
		{"negative without model limit", -1, 0, MaxLengthFallback},
		{"request above model limit", 50, 20, 20},
		{"request within model limit", 10, 20, 10},
		{"no model limit", 10, 0, 10},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := AdjustLengthToModel(tc.length, tc.max); got != tc.want {
				t.Fatalf("AdjustLengthToModel(%d, %d) = %d, want %d", tc.length, tc.max, got, tc.want)
			}
		})
	}
}

func TestAggregateMedians(t *testing.T) {
	records := []Record{
		{Warmup: true, TokensPerSecond: 10},
		{Warmup: true, TokensPerSecond: 20},
		{Warmup: false, TokensPerSecond: 30},
		{Warmup: false, TokensPerSecond: 40},
		{Warmup: false, TokensPerSecond: 50},
	}
	m, err := Aggregate(records)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if m.MedianWarmupTokensPerSecond != 15 {
		t.Fatalf("warmup median = %v, want 15", m.MedianWarmupTokensPerSecond)
	}
	if m.MedianTokensPerSecond != 40 {
		t.Fatalf("measured median = %v, want 40", m.MedianTokensPerSecond)
	}
}

func TestAggregateRejectsEmptySubsets(t *testing.T) {
	if _, err := Aggregate([]Record{{Warmup: true}}); err == nil {
		t.Fatal("expected error for missing measured records")
	}
	if _, err := Aggregate([]Record{{Warmup: false}}); err == nil {
		t.Fatal("expected error for missing warmup records")
	}
	if _, err := Aggregate(nil); err == nil {
		t.Fatal("expected error for no records")
	}
}

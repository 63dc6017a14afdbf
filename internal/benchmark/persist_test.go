package benchmark

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteRecordsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.json")
	records := []Record{
		{Latency: 1.5, Warmup: true, TotalTokens: 12, BatchSize: 1, MaxLength: 40, TokensPerSecond: 8},
		{Latency: 1.2, Warmup: false, TotalTokens: 12, BatchSize: 1, MaxLength: 40, TokensPerSecond: 10},
	}

	if err := WriteRecords(path, records); err != nil {
		t.Fatalf("WriteRecords: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	var decoded []Record
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(decoded) != 2 {
		t.Fatalf("len(decoded) = %d, want 2", len(decoded))
	}
	if decoded[0].Latency != 1.5 || !decoded[0].Warmup {
		t.Fatalf("decoded[0] = %+v", decoded[0])
	}
	if strings.Contains(string(data), "input_sequences") {
		t.Fatal("empty sequences should be omitted")
	}
}

func TestWriteRecordsRejectsNegativeLatency(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.json")
	records := []Record{{Latency: -1, Warmup: true, MaxLength: 40}}

	if err := WriteRecords(path, records); err == nil {
		t.Fatal("expected validation error for negative latency")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("invalid records should not be written")
	}
}

func TestWriteMetrics(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metrics.json")
	if err := WriteMetrics(path, Metrics{MedianWarmupTokensPerSecond: 8.5, MedianTokensPerSecond: 10.25}); err != nil {
		t.Fatalf("WriteMetrics: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	var decoded map[string]float64
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["median_warmup_tokens_per_second"] != 8.5 {
		t.Fatalf("warmup median = %v", decoded["median_warmup_tokens_per_second"])
	}
	if decoded["median_tokens_per_second"] != 10.25 {
		t.Fatalf("measured median = %v", decoded["median_tokens_per_second"])
	}
}

func TestRenderSummaryIncludesMedians(t *testing.T) {
	out := RenderSummary("llama-7b", Metrics{MedianWarmupTokensPerSecond: 8.5, MedianTokensPerSecond: 10.25})
	if !strings.Contains(out, "llama-7b") {
		t.Fatalf("model name missing: %q", out)
	}
	if !strings.Contains(out, "10.25") || !strings.Contains(out, "8.50") {
		t.Fatalf("medians missing: %q", out)
	}
}

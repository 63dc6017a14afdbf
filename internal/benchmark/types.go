// internal/benchmark/types.go
package benchmark

// Record captures one benchmark iteration. Records are append-only: once
// built they are never mutated.
type Record struct {
	Latency         float64  `json:"latency"`
	Warmup          bool     `json:"warmup"`
	InputLengths    []int    `json:"input_lengths"`
	OutputLengths   []int    `json:"output_lengths"`
	TotalTokens     int      `json:"total_tokens"`
	BatchSize       int      `json:"batch_size"`
	MaxLength       int      `json:"max_length"`
	MaxNewTokens    int      `json:"max_new_tokens"`
	MinNewTokens    int      `json:"min_new_tokens"`
	TokensPerSecond float64  `json:"tokens_per_second"`
	InputSequences  [][]int  `json:"input_sequences,omitempty"`
	OutputSequences [][]int  `json:"output_sequences,omitempty"`
	Outputs         []string `json:"outputs,omitempty"`
}

// Metrics holds the two aggregate medians derived once after the loop.
type Metrics struct {
	MedianWarmupTokensPerSecond float64 `json:"median_warmup_tokens_per_second"`
	MedianTokensPerSecond       float64 `json:"median_tokens_per_second"`
}

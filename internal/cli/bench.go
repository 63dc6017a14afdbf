package genbench

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var benchCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a warmup + measured generation benchmark against a model",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBench(cmd)
	},
}

func init() {
	rootCmd.AddCommand(benchCmd)

	flags := benchCmd.Flags()

	flags.StringP("model-type", "t", "", "model family (e.g. gpt2, llama, mistral, llama2)")
	flags.StringP("model-path", "m", "", "model name, path, or checkpoint file")
	flags.String("host-url", "", "backend base URL for HTTP backends")
	flags.String("prompt", "", "prompt text")
	flags.String("preset-prompt", "", "named prompt loaded from the prompt directory")
	flags.String("prompt-dir", "", "directory holding preset prompt files")

	flags.Int("length", 4096, "number of new tokens to generate")
	flags.String("stop-token", "", "token at which text generation is stopped")
	flags.Float64("temperature", 1.0, "sampling temperature; 1.0 has no effect, lower tends toward greedy")
	flags.Float64("repetition-penalty", 1.0, "primarily useful for CTRL models; in that case, use 1.2")
	flags.Int("k", 0, "top-k sampling cutoff")
	flags.Float64("p", 0.9, "nucleus sampling probability mass")
	flags.Int("max-new-tokens", 0, "maximum new tokens generated")
	flags.Int("min-new-tokens", 0, "minimum new tokens generated")

	flags.String("prefix", "", "text added prior to input")
	flags.String("padding-text", "", "deprecated, the use of --prefix is preferred")
	flags.String("xlm-language", "", "optional language when used with a multilingual model")

	flags.Int64("seed", 42, "random seed for initialization")
	flags.Bool("same-seed", false, "use the same random seed for each inference")
	flags.Bool("use-cpu", false, "force CPU execution")
	flags.Int("num-return-sequences", 1, "the number of samples to generate")

	flags.Bool("fp16", false, "load the model in half precision")
	flags.String("dtype", "", "datatype used to load the model (auto, float16, float32)")
	flags.Bool("trace-compile", false, "warm-compile the model before benchmarking")

	flags.String("use-cache", "True", "toggle kv caching")
	flags.String("device-map", "", "device placement; a bare ordinal selects that GPU")
	flags.String("cache-dir", "", "directory for model and tokenizer artifacts")

	flags.Int("n-warmup-runs", 1, "number of warmup runs")
	flags.Int("n-runs", 1, "number of measured runs")

	flags.Bool("output-sequences", false, "store input/output token sequences in the records")
	flags.Bool("print-records", false, "print output records")
	flags.String("records-file", "records.json", "filename for generated output data records")
	flags.String("metrics-file", "metrics.json", "filename for generated output data metrics")

	flags.Int("timeout", 0, "backend request timeout in seconds")
	flags.String("log-file", "", "log file path")

	// Bind flags to Viper keys (flags override config)
	for flagName, key := range map[string]string{
		"model-type":           "modelType",
		"model-path":           "modelPath",
		"host-url":             "hostURL",
		"prompt":               "prompt",
		"preset-prompt":        "presetPrompt",
		"prompt-dir":           "promptDir",
		"length":               "length",
		"stop-token":           "stopToken",
		"temperature":          "temperature",
		"repetition-penalty":   "repetitionPenalty",
		"k":                    "topK",
		"p":                    "topP",
		"max-new-tokens":       "maxNewTokens",
		"min-new-tokens":       "minNewTokens",
		"prefix":               "prefix",
		"padding-text":         "paddingText",
		"xlm-language":         "xlmLanguage",
		"seed":                 "seed",
		"same-seed":            "sameSeed",
		"use-cpu":              "useCPU",
		"num-return-sequences": "numReturnSequences",
		"fp16":                 "fp16",
		"dtype":                "dtype",
		"trace-compile":        "traceCompile",
		"use-cache":            "useCache",
		"device-map":           "deviceMap",
		"cache-dir":            "cacheDir",
		"n-warmup-runs":        "nWarmupRuns",
		"n-runs":               "nRuns",
		"output-sequences":     "outputSequences",
		"print-records":        "printRecords",
		"records-file":         "recordsFile",
		"metrics-file":         "metricsFile",
		"timeout":              "timeout",
		"log-file":             "logFile",
	} {
		_ = viper.BindPFlag(key, flags.Lookup(flagName))
	}
}

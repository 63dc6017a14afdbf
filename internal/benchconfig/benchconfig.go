// internal/benchconfig/benchconfig.go
// Package benchconfig holds the run configuration for a generation benchmark.
// A Config is assembled once from flags and an optional config file, finalized,
// and treated as read-only for the rest of the process.
package benchconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	// defaultRequestTimeout is the fallback timeout for backend HTTP requests.
	defaultRequestTimeout = 600 * time.Second
	// DefaultPrompt is used when neither --prompt nor --preset-prompt is given.
	DefaultPrompt = "Who invented the game of chess?"
)

// Config represents the full set of scalar run parameters. Raw* fields hold
// values exactly as given on the command line; Finalize derives the effective
// typed values from them.
type Config struct {
	ModelType    string `mapstructure:"modelType" json:"modelType"`
	ModelPath    string `mapstructure:"modelPath" json:"modelPath"`
	HostURL      string `mapstructure:"hostURL" json:"hostURL,omitempty"`
	Prompt       string `mapstructure:"prompt" json:"prompt"`
	PresetPrompt string `mapstructure:"presetPrompt" json:"presetPrompt,omitempty"`
	PromptDir    string `mapstructure:"promptDir" json:"promptDir,omitempty"`

	Length            int     `mapstructure:"length" json:"length"`
	StopToken         string  `mapstructure:"stopToken" json:"stopToken,omitempty"`
	Temperature       float64 `mapstructure:"temperature" json:"temperature"`
	RepetitionPenalty float64 `mapstructure:"repetitionPenalty" json:"repetitionPenalty"`
	TopK              int     `mapstructure:"topK" json:"topK"`
	TopP              float64 `mapstructure:"topP" json:"topP"`
	MaxNewTokens      int     `mapstructure:"maxNewTokens" json:"maxNewTokens,omitempty"`
	MinNewTokens      int     `mapstructure:"minNewTokens" json:"minNewTokens,omitempty"`

	Prefix      string `mapstructure:"prefix" json:"prefix,omitempty"`
	PaddingText string `mapstructure:"paddingText" json:"paddingText,omitempty"`
	XLMLanguage string `mapstructure:"xlmLanguage" json:"xlmLanguage,omitempty"`

	Seed               int64 `mapstructure:"seed" json:"seed"`
	SameSeed           bool  `mapstructure:"sameSeed" json:"sameSeed"`
	UseCPU             bool  `mapstructure:"useCPU" json:"useCPU"`
	NumReturnSequences int   `mapstructure:"numReturnSequences" json:"numReturnSequences"`

	FP16         bool   `mapstructure:"fp16" json:"fp16"`
	Dtype        string `mapstructure:"dtype" json:"dtype"`
	TraceCompile bool   `mapstructure:"traceCompile" json:"traceCompile"`

	RawUseCache  string `mapstructure:"useCache" json:"useCache"`
	RawDeviceMap string `mapstructure:"deviceMap" json:"deviceMap,omitempty"`
	CacheDir     string `mapstructure:"cacheDir" json:"cacheDir,omitempty"`

	WarmupRuns int `mapstructure:"nWarmupRuns" json:"nWarmupRuns"`
	Runs       int `mapstructure:"nRuns" json:"nRuns"`

	OutputSequences bool   `mapstructure:"outputSequences" json:"outputSequences"`
	PrintRecords    bool   `mapstructure:"printRecords" json:"printRecords"`
	RecordsFile     string `mapstructure:"recordsFile" json:"recordsFile"`
	MetricsFile     string `mapstructure:"metricsFile" json:"metricsFile"`

	TimeoutSeconds int    `mapstructure:"timeout" json:"timeout,omitempty"`
	LogFile        string `mapstructure:"logFile" json:"logFile,omitempty"`

	// Derived by Finalize.
	UseCache   bool `mapstructure:"-" json:"-"`
	GPUOrdinal *int `mapstructure:"-" json:"-"`

	// ResolvedLanguage is set once during setup when the model family
	// requires language disambiguation.
	ResolvedLanguage string `mapstructure:"-" json:"-"`
}

// Finalize derives the typed fields from their raw string forms and resolves
// the preset prompt, validating everything that can fail before a backend is
// constructed.
func (c *Config) Finalize() error {
	if strings.TrimSpace(c.ModelType) == "" {
		return fmt.Errorf("model type is required")
	}
	if strings.TrimSpace(c.ModelPath) == "" {
		return fmt.Errorf("model path is required")
	}
	c.ModelType = strings.ToLower(strings.TrimSpace(c.ModelType))

	c.UseCache = ParseUseCache(c.RawUseCache)

	ordinal, err := ParseDeviceMap(c.RawDeviceMap)
	if err != nil {
		return err
	}
	c.GPUOrdinal = ordinal

	if c.FP16 {
		c.Dtype = "float16"
	}
	switch c.Dtype {
	case "", "auto":
	case "float16", "float32":
	default:
		return fmt.Errorf("unsupported dtype %q", c.Dtype)
	}

	if c.NumReturnSequences < 1 {
		c.NumReturnSequences = 1
	}

	if c.PresetPrompt != "" {
		prompt, err := c.loadPresetPrompt()
		if err != nil {
			return err
		}
		c.Prompt = prompt
	}
	if c.Prompt == "" {
		c.Prompt = DefaultPrompt
	}

	return nil
}

// ParseUseCache interprets the stringified cache flag: the literal "False"
// disables the cache, any other value leaves it enabled.
func ParseUseCache(raw string) bool {
	return raw != "False"
}

// ParseDeviceMap interprets the device-map value. A string of digits selects
// a GPU ordinal; anything else is passed through untyped (nil ordinal).
func ParseDeviceMap(raw string) (*int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, nil
	}
	if isDigits(trimmed) {
		n, err := strconv.Atoi(trimmed)
		if err != nil {
			return nil, fmt.Errorf("parse device map %q: %w", raw, err)
		}
		return &n, nil
	}
	return nil, nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

// loadPresetPrompt reads prompts/<name>.txt relative to the prompt directory.
// A missing file is a hard error raised before any model is loaded.
func (c *Config) loadPresetPrompt() (string, error) {
	dir := c.PromptDir
	if dir == "" {
		dir = "prompts"
	}
	path := filepath.Join(dir, c.PresetPrompt+".txt")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("prompt file does not exist: %s", path)
		}
		return "", fmt.Errorf("read prompt file %s: %w", path, err)
	}
	return string(data), nil
}

// RequestTimeout returns the timeout for backend HTTP requests, falling back
// to the default when unset.
func (c Config) RequestTimeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return defaultRequestTimeout
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// LogFilePath returns the log file path, applying a default when unset.
func (c Config) LogFilePath() string {
	if path := strings.TrimSpace(c.LogFile); path != "" {
		return path
	}
	return "genbench.log"
}

// TotalRuns returns the combined warmup plus measured iteration count.
func (c Config) TotalRuns() int {
	return c.WarmupRuns + c.Runs
}

// internal/providers/ollama/provider.go
// Package ollama provides a Generator backed by Ollama-compatible HTTP
// endpoints. Ollama does not expose its tokenizer, so this backend reports
// token counts from the generate response instead of raw id sequences.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mwiater/genbench/internal/benchconfig"
	"github.com/mwiater/genbench/internal/logging"
	"github.com/mwiater/genbench/internal/models"
	"github.com/mwiater/genbench/internal/providers"
)

// Provider implements providers.Generator using the Ollama HTTP API.
type Provider struct {
	client  *http.Client
	timeout time.Duration
	hostURL string
	model   string
	info    providers.ModelInfo

	gpuOrdinal *int
	useCPU     bool

	warnedUseCache bool
}

type showResponse struct {
	ModelInfo map[string]json.RawMessage `json:"model_info"`
}

type generateResponse struct {
	Model           string `json:"model"`
	Response        string `json:"response"`
	Done            bool   `json:"done"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
	TotalDuration   int64  `json:"total_duration"`
	LoadDuration    int64  `json:"load_duration"`
}

// New constructs a Provider and queries /api/show for the model's context
// window. A failure here is a load failure and is fatal to the run.
func New(cfg *benchconfig.Config, spec models.FamilySpec) (*Provider, error) {
	hostURL := strings.TrimSpace(cfg.HostURL)
	if hostURL == "" {
		hostURL = spec.DefaultHostURL
	}
	hostURL = strings.TrimRight(hostURL, "/")

	timeout := cfg.RequestTimeout()
	p := &Provider{
		client: &http.Client{
			Timeout:   timeout,
			Transport: &http.Transport{ForceAttemptHTTP2: false},
		},
		timeout:    timeout,
		hostURL:    hostURL,
		model:      cfg.ModelPath,
		gpuOrdinal: cfg.GPUOrdinal,
		useCPU:     cfg.UseCPU,
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	contextLength, err := p.fetchContextLength(ctx)
	if err != nil {
		return nil, fmt.Errorf("ollama: load model %s: %w", cfg.ModelPath, err)
	}
	p.info = providers.ModelInfo{
		Model:             cfg.ModelPath,
		Family:            spec.Family,
		MaxSequenceLength: contextLength,
		Languages:         spec.Languages,
	}
	return p, nil
}

// Info returns the loaded model's metadata.
func (p *Provider) Info() providers.ModelInfo {
	return p.info
}

// Generate runs one non-streaming /api/generate call per requested sequence.
func (p *Provider) Generate(ctx context.Context, req providers.GenerateRequest) (providers.GenerateResult, error) {
	if !req.UseCache && !p.warnedUseCache {
		logging.LogEvent("ollama: the kv cache cannot be disabled per request; recorded but not enforced")
		p.warnedUseCache = true
	}

	numPredict := req.MaxNewTokens
	if numPredict <= 0 && req.MaxLength > 0 {
		numPredict = req.MaxLength
	}

	result := providers.GenerateResult{}
	for s := 0; s < req.NumReturnSequences; s++ {
		options := map[string]any{
			"top_k":          req.TopK,
			"top_p":          req.TopP,
			"repeat_penalty": req.RepetitionPenalty,
			"seed":           req.Seed + int64(s),
			"num_predict":    numPredict,
		}
		if req.Sample {
			options["temperature"] = req.Temperature
		} else {
			options["temperature"] = 0
		}
		if p.useCPU {
			options["num_gpu"] = 0
		}
		if p.gpuOrdinal != nil {
			options["main_gpu"] = *p.gpuOrdinal
		}

		payload := map[string]any{
			"model":   p.model,
			"prompt":  req.PromptText,
			"options": options,
			"stream":  false,
		}

		body, err := json.Marshal(payload)
		if err != nil {
			return providers.GenerateResult{}, err
		}
		logging.LogTraffic("BENCH->LLM", p.hostURL, p.model, body)

		respBody, err := p.post(ctx, "/api/generate", body)
		if err != nil {
			return providers.GenerateResult{}, err
		}
		logging.LogTraffic("LLM->BENCH", p.hostURL, p.model, respBody)

		var gen generateResponse
		if err := json.Unmarshal(respBody, &gen); err != nil {
			return providers.GenerateResult{}, err
		}

		result.Texts = append(result.Texts, gen.Response)
		result.InputLengths = append(result.InputLengths, gen.PromptEvalCount)
		result.OutputLengths = append(result.OutputLengths, gen.PromptEvalCount+gen.EvalCount)
	}
	return result, nil
}

// Close releases any resources held by the provider.
func (p *Provider) Close() error {
	return nil
}

func (p *Provider) fetchContextLength(ctx context.Context) (int, error) {
	body, err := json.Marshal(map[string]string{"model": p.model})
	if err != nil {
		return 0, err
	}
	logging.LogTraffic("BENCH->LLM", p.hostURL, p.model, body)

	respBody, err := p.post(ctx, "/api/show", body)
	if err != nil {
		return 0, err
	}
	logging.LogTraffic("LLM->BENCH", p.hostURL, p.model, respBody)

	var show showResponse
	if err := json.Unmarshal(respBody, &show); err != nil {
		return 0, err
	}
	// The context window is reported under an architecture-prefixed key,
	// e.g. "llama.context_length".
	for key, raw := range show.ModelInfo {
		if strings.HasSuffix(key, ".context_length") {
			var n int
			if err := json.Unmarshal(raw, &n); err == nil {
				return n, nil
			}
		}
	}
	return 0, nil
}

func (p *Provider) post(ctx context.Context, path string, body []byte) ([]byte, error) {
	reqCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, p.hostURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama: %s returned %s: %s", path, resp.Status, strings.TrimSpace(string(respBody)))
	}
	return respBody, nil
}

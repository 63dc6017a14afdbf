// internal/providers/llamacpp/provider.go
// Package llamacpp provides a Generator backed by a llama.cpp HTTP server.
// It is the only HTTP backend with full token access: /tokenize and
// /detokenize expose the server-side tokenizer and /completion can return
// the raw predicted token ids.
package llamacpp

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

// Provider implements providers.Generator and providers.TokenCodec against
// llama.cpp HTTP endpoints.
type Provider struct {
	client  *http.Client
	timeout time.Duration
	hostURL string
	model   string
	info    providers.ModelInfo

	warnedMinNewTokens bool
}

type propsResponse struct {
	DefaultGenerationSettings struct {
		NCtx int `json:"n_ctx"`
	} `json:"default_generation_settings"`
	ModelPath string `json:"model_path"`
}

type tokenizeResponse struct {
	Tokens []int `json:"tokens"`
}

type detokenizeResponse struct {
	Content string `json:"content"`
}

type completionResponse struct {
	Content         string `json:"content"`
	Tokens          []int  `json:"tokens"`
	TokensPredicted int    `json:"tokens_predicted"`
	TokensEvaluated int    `json:"tokens_evaluated"`
}

// New constructs a Provider and queries the server's /props endpoint for the
// model's context window. A failure here is a load failure and is fatal to
// the run.
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
		timeout: timeout,
		hostURL: hostURL,
		model:   cfg.ModelPath,
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	props, err := p.fetchProps(ctx)
	if err != nil {
		return nil, fmt.Errorf("llama.cpp: load model %s: %w", cfg.ModelPath, err)
	}
	p.info = providers.ModelInfo{
		Model:             cfg.ModelPath,
		Family:            spec.Family,
		MaxSequenceLength: props.DefaultGenerationSettings.NCtx,
		Languages:         spec.Languages,
	}

	if cfg.GPUOrdinal != nil {
		logging.LogEvent("llama.cpp: device placement is fixed at server start; ignoring device map %d", *cfg.GPUOrdinal)
	}
	if cfg.UseCPU {
		logging.LogEvent("llama.cpp: device placement is fixed at server start; ignoring use-cpu")
	}
	if cfg.Dtype == "float16" {
		logging.LogEvent("llama.cpp: numeric precision is fixed by the loaded GGUF; ignoring dtype %s", cfg.Dtype)
	}

	return p, nil
}

// Info returns the loaded model's metadata.
func (p *Provider) Info() providers.ModelInfo {
	return p.info
}

// Tokenize encodes text using the server-side tokenizer, without special tokens.
func (p *Provider) Tokenize(ctx context.Context, text string) ([]int, error) {
	payload := map[string]any{
		"content":     text,
		"add_special": false,
	}
	var result tokenizeResponse
	if err := p.post(ctx, "/tokenize", payload, &result); err != nil {
		return nil, err
	}
	return result.Tokens, nil
}

// Detokenize decodes token ids back to text.
func (p *Provider) Detokenize(ctx context.Context, tokens []int) (string, error) {
	if tokens == nil {
		tokens = []int{}
	}
	payload := map[string]any{"tokens": tokens}
	var result detokenizeResponse
	if err := p.post(ctx, "/detokenize", payload, &result); err != nil {
		return "", err
	}
	return result.Content, nil
}

// Generate runs one /completion call per requested sequence. Each sequence
// gets a distinct seed derived from the request seed so sampled outputs
// differ while staying reproducible.
func (p *Provider) Generate(ctx context.Context, req providers.GenerateRequest) (providers.GenerateResult, error) {
	if req.MinNewTokens > 0 && !p.warnedMinNewTokens {
		logging.LogEvent("llama.cpp: min_new_tokens is not supported by /completion; recorded but not enforced")
		p.warnedMinNewTokens = true
	}

	input := req.InputTokens
	if input == nil {
		input = []int{}
	}

	nPredict := req.MaxNewTokens
	if nPredict <= 0 {
		nPredict = req.MaxLength - len(input)
	}
	if nPredict < 0 {
		nPredict = 0
	}

	temperature := req.Temperature
	if !req.Sample {
		// Greedy decoding.
		temperature = 0
	}

	result := providers.GenerateResult{}
	for s := 0; s < req.NumReturnSequences; s++ {
		payload := map[string]any{
			"prompt":         input,
			"n_predict":      nPredict,
			"temperature":    temperature,
			"top_k":          req.TopK,
			"top_p":          req.TopP,
			"repeat_penalty": req.RepetitionPenalty,
			"seed":           req.Seed + int64(s),
			"cache_prompt":   req.UseCache,
			"return_tokens":  true,
		}

		var completion completionResponse
		if err := p.post(ctx, "/completion", payload, &completion); err != nil {
			return providers.GenerateResult{}, err
		}

		sequence := make([]int, 0, len(input)+len(completion.Tokens))
		sequence = append(sequence, input...)
		sequence = append(sequence, completion.Tokens...)

		result.Sequences = append(result.Sequences, sequence)
		result.Texts = append(result.Texts, completion.Content)
		result.InputLengths = append(result.InputLengths, len(input))
		result.OutputLengths = append(result.OutputLengths, len(sequence))
	}
	return result, nil
}

// Close releases any resources held by the provider.
func (p *Provider) Close() error {
	return nil
}

func (p *Provider) fetchProps(ctx context.Context) (propsResponse, error) {
	endpoint := p.hostURL + "/props"
	logging.LogTraffic("BENCH->LLM", p.hostURL, p.model, map[string]string{"method": http.MethodGet, "url": endpoint})

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return propsResponse{}, err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return propsResponse{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return propsResponse{}, err
	}
	logging.LogTraffic("LLM->BENCH", p.hostURL, p.model, body)

	if resp.StatusCode != http.StatusOK {
		return propsResponse{}, fmt.Errorf("llama.cpp: /props returned %s", resp.Status)
	}

	var props propsResponse
	if err := json.Unmarshal(body, &props); err != nil {
		return propsResponse{}, err
	}
	return props, nil
}

func (p *Provider) post(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	logging.LogTraffic("BENCH->LLM", p.hostURL, p.model, body)

	reqCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, p.hostURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	logging.LogTraffic("LLM->BENCH", p.hostURL, p.model, respBody)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("llama.cpp: %s returned %s: %s", path, resp.Status, strings.TrimSpace(string(respBody)))
	}
	return json.Unmarshal(respBody, out)
}

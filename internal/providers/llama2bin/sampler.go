// internal/providers/llama2bin/sampler.go
package llama2bin

import (
	"math"
	"math/rand"
	"sort"

	"github.com/nikolaydubina/llama2.go/nn"

	"github.com/mwiater/genbench/internal/providers"
)

// sampleNext picks the next token from raw logits, applying repetition
// penalty, temperature, top-k and top-p in that order. With sampling
// disabled or temperature zero it degrades to greedy argmax.
func sampleNext(logits []float32, req providers.GenerateRequest, rng *rand.Rand, prior []int, eosID int, suppressEOS bool) int {
	work := make([]float32, len(logits))
	copy(work, logits)

	if req.RepetitionPenalty > 0 && req.RepetitionPenalty != 1 {
		applyRepetitionPenalty(work, prior, float32(req.RepetitionPenalty))
	}
	if suppressEOS && eosID >= 0 && eosID < len(work) {
		work[eosID] = float32(math.Inf(-1))
	}

	if !req.Sample || req.Temperature == 0 {
		return nn.ArgMax(work)
	}

	for i := range work {
		work[i] /= float32(req.Temperature)
	}
	if req.TopK > 0 && req.TopK < len(work) {
		maskBelowTopK(work, req.TopK)
	}
	nn.SoftMax(work)
	if req.TopP > 0 && req.TopP < 1 {
		return sampleTopP(work, req.TopP, rng)
	}
	return sampleProbs(work, rng)
}

// applyRepetitionPenalty discounts the logits of already-seen tokens:
// positive logits are divided by the penalty, negative ones multiplied.
func applyRepetitionPenalty(logits []float32, prior []int, penalty float32) {
	seen := make(map[int]struct{}, len(prior))
	for _, token := range prior {
		if token < 0 || token >= len(logits) {
			continue
		}
		if _, ok := seen[token]; ok {
			continue
		}
		seen[token] = struct{}{}
		if logits[token] > 0 {
			logits[token] /= penalty
		} else {
			logits[token] *= penalty
		}
	}
}

// maskBelowTopK sets every logit outside the k largest to -inf.
func maskBelowTopK(logits []float32, k int) {
	order := make([]int, len(logits))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		return logits[order[a]] > logits[order[b]]
	})
	negInf := float32(math.Inf(-1))
	for _, idx := range order[k:] {
		logits[idx] = negInf
	}
}

// sampleTopP samples from the smallest set of tokens whose cumulative
// probability reaches p (nucleus sampling).
func sampleTopP(probs []float32, p float64, rng *rand.Rand) int {
	order := make([]int, len(probs))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		return probs[order[a]] > probs[order[b]]
	})

	var cumulative float64
	cut := len(order)
	for i, idx := range order {
		cumulative += float64(probs[idx])
		if cumulative >= p {
			cut = i + 1
			break
		}
	}

	r := rng.Float64() * cumulative
	var acc float64
	for _, idx := range order[:cut] {
		acc += float64(probs[idx])
		if r < acc {
			return idx
		}
	}
	return order[cut-1]
}

// sampleProbs samples an index from a full probability distribution.
func sampleProbs(probs []float32, rng *rand.Rand) int {
	r := rng.Float64()
	var acc float64
	for i, p := range probs {
		acc += float64(p)
		if r < acc {
			return i
		}
	}
	return len(probs) - 1
}

// internal/providerfactory/factory.go
// Package providerfactory constructs the generation backend selected by the
// model-family registry.
package providerfactory

import (
	"fmt"

	"github.com/mwiater/genbench/internal/benchconfig"
	"github.com/mwiater/genbench/internal/models"
	"github.com/mwiater/genbench/internal/providers"
	"github.com/mwiater/genbench/internal/providers/llama2bin"
	"github.com/mwiater/genbench/internal/providers/llamacpp"
	"github.com/mwiater/genbench/internal/providers/ollama"
)

// NewGenerator loads the backend for the resolved family spec. Any failure
// here is a model-load failure and terminates the run.
func NewGenerator(cfg *benchconfig.Config, spec models.FamilySpec) (providers.Generator, error) {
	switch spec.Backend {
	case models.BackendLlamaCpp:
		return llamacpp.New(cfg, spec)
	case models.BackendOllama:
		return ollama.New(cfg, spec)
	case models.BackendLlama2Bin:
		return llama2bin.New(cfg, spec)
	default:
		return nil, fmt.Errorf("no backend registered for %q", spec.Backend)
	}
}

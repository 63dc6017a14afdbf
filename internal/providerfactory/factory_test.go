package providerfactory

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mwiater/genbench/internal/benchconfig"
	"github.com/mwiater/genbench/internal/models"
	"github.com/mwiater/genbench/internal/providers"
)

func TestNewGeneratorUnknownBackend(t *testing.T) {
	cfg := &benchconfig.Config{ModelPath: "x"}
	if _, err := NewGenerator(cfg, models.FamilySpec{Backend: "mystery"}); err == nil {
		t.Fatal("expected error for unregistered backend")
	}
}

func TestNewGeneratorLlamaCpp(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"default_generation_settings":{"n_ctx":512}}`))
	}))
	defer server.Close()

	cfg := &benchconfig.Config{ModelPath: "model.gguf", HostURL: server.URL, TimeoutSeconds: 5}
	gen, err := NewGenerator(cfg, models.FamilySpec{Family: "llama", Backend: models.BackendLlamaCpp})
	if err != nil {
		t.Fatalf("NewGenerator: %v", err)
	}
	defer gen.Close()

	if _, ok := gen.(providers.TokenCodec); !ok {
		t.Fatal("llama.cpp backend should expose the tokenizer")
	}
	if gen.Info().MaxSequenceLength != 512 {
		t.Fatalf("MaxSequenceLength = %d", gen.Info().MaxSequenceLength)
	}
}

func TestNewGeneratorLlama2BinMissingCheckpoint(t *testing.T) {
	cfg := &benchconfig.Config{ModelPath: t.TempDir() + "/missing.bin"}
	if _, err := NewGenerator(cfg, models.FamilySpec{Family: "llama2", Backend: models.BackendLlama2Bin}); err == nil {
		t.Fatal("expected error for missing checkpoint")
	}
}

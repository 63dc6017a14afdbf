package preprocess

import (
	"strings"
	"testing"

	"github.com/mwiater/genbench/internal/benchconfig"
	"github.com/mwiater/genbench/internal/models"
	"github.com/mwiater/genbench/internal/providers"
)

func TestForReturnsNothingForPlainFamilies(t *testing.T) {
	spec, err := models.Resolve("gpt2")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if _, ok := For(spec); ok {
		t.Fatal("gpt2 should not require preprocessing")
	}
}

func TestFillerPrependsFixedPassage(t *testing.T) {
	spec, err := models.Resolve("xlnet")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	fn, ok := For(spec)
	if !ok {
		t.Fatal("xlnet should require preprocessing")
	}

	cfg := &benchconfig.Config{}
	out, err := fn(cfg, "Hello there")
	if err != nil {
		t.Fatalf("preprocess: %v", err)
	}
	if !strings.HasPrefix(out, "In 1991,") {
		t.Fatalf("expected filler passage prefix, got: %q", out[:20])
	}
	if !strings.HasSuffix(out, "Hello there") {
		t.Fatalf("prompt lost: %q", out)
	}
}

func TestFillerPrefersUserPrefix(t *testing.T) {
	spec, _ := models.Resolve("transfo-xl")
	fn, _ := For(spec)

	cfg := &benchconfig.Config{Prefix: "custom: "}
	out, err := fn(cfg, "prompt")
	if err != nil {
		t.Fatalf("preprocess: %v", err)
	}
	if out != "custom: prompt" {
		t.Fatalf("out = %q", out)
	}

	cfg = &benchconfig.Config{PaddingText: "pad "}
	out, err = fn(cfg, "prompt")
	if err != nil {
		t.Fatalf("preprocess: %v", err)
	}
	if out != "pad prompt" {
		t.Fatalf("out = %q", out)
	}
}

func TestControlCodeLeavesPromptUnchanged(t *testing.T) {
	spec, _ := models.Resolve("ctrl")
	fn, ok := For(spec)
	if !ok {
		t.Fatal("ctrl should require preprocessing")
	}

	cfg := &benchconfig.Config{Temperature: 0.3}
	out, err := fn(cfg, "Wikipedia The history of chess")
	if err != nil {
		t.Fatalf("preprocess: %v", err)
	}
	if out != "Wikipedia The history of chess" {
		t.Fatalf("prompt changed: %q", out)
	}

	out, err = fn(cfg, "no control code here")
	if err != nil {
		t.Fatalf("preprocess should warn, not fail: %v", err)
	}
	if out != "no control code here" {
		t.Fatalf("prompt changed: %q", out)
	}
}

func TestStartsWithControlCode(t *testing.T) {
	codes := []string{"Wikipedia", "Books"}
	if !StartsWithControlCode("Books about dragons", codes) {
		t.Fatal("expected control code match")
	}
	if StartsWithControlCode("books about dragons", codes) {
		t.Fatal("control codes are case-sensitive")
	}
	if StartsWithControlCode("", codes) {
		t.Fatal("empty prompt cannot match")
	}
}

func TestApplyDefaultPrefix(t *testing.T) {
	cfg := &benchconfig.Config{}
	if got := ApplyDefaultPrefix(cfg, "p"); got != "p" {
		t.Fatalf("got %q", got)
	}
	cfg.PaddingText = "pad "
	if got := ApplyDefaultPrefix(cfg, "p"); got != "pad p" {
		t.Fatalf("got %q", got)
	}
	cfg.Prefix = "pre "
	if got := ApplyDefaultPrefix(cfg, "p"); got != "pre p" {
		t.Fatalf("prefix should win over padding text, got %q", got)
	}
}

func TestResolveLanguageUsesOverride(t *testing.T) {
	cfg := &benchconfig.Config{XLMLanguage: "en"}
	info := providers.ModelInfo{Languages: []string{"de", "en", "fr"}}
	lang, err := ResolveLanguage(cfg, info)
	if err != nil {
		t.Fatalf("ResolveLanguage: %v", err)
	}
	if lang != "en" {
		t.Fatalf("lang = %q, want en", lang)
	}
}

func TestResolveLanguageMonolingual(t *testing.T) {
	cfg := &benchconfig.Config{XLMLanguage: "en"}
	lang, err := ResolveLanguage(cfg, providers.ModelInfo{})
	if err != nil {
		t.Fatalf("ResolveLanguage: %v", err)
	}
	if lang != "" {
		t.Fatalf("lang = %q, want empty", lang)
	}
}

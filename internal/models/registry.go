// internal/models/registry.go
// Package models holds the static lookup table that maps a model family key
// to a concrete generation backend and the prompt conventions the family
// needs. Resolution happens once, before any backend is constructed.
package models

import (
	"fmt"
	"sort"
	"strings"
)

// Backend identifies which provider implementation serves a family.
type Backend string

const (
	// BackendLlamaCpp drives a llama.cpp HTTP server with full token access.
	BackendLlamaCpp Backend = "llamacpp"
	// BackendOllama drives an Ollama HTTP server (token counts only).
	BackendOllama Backend = "ollama"
	// BackendLlama2Bin runs a karpathy-format checkpoint in process.
	BackendLlama2Bin Backend = "llama2bin"
)

// Preprocessing step names, dispatched per family before tokenization.
const (
	PreprocessNone        = ""
	PreprocessFiller      = "filler"
	PreprocessControlCode = "controlcode"
	PreprocessLanguage    = "language"
)

// FamilySpec describes how one model family is loaded and prompted.
type FamilySpec struct {
	Family         string
	Backend        Backend
	Preprocess     string
	ControlCodes   []string
	Languages      []string
	DefaultHostURL string
}

const (
	defaultLlamaCppURL = "http://localhost:8080"
	defaultOllamaURL   = "http://localhost:11434"
)

// ctrlControlCodes are the recognized generation control markers for the
// ctrl family. Prompts that do not start with one still run, with a warning.
var ctrlControlCodes = []string{
	"Books", "Diet", "Explain", "Finance", "Horror", "Legal", "Links",
	"Movies", "News", "Opinion", "Politics", "Questions", "Relationships",
	"Reviews", "Running", "Saving", "Science", "Technologies", "Translation",
	"Wikipedia",
}

// xlmLanguages are the embedding languages of the multilingual xlm
// checkpoints this harness supports.
var xlmLanguages = []string{"ar", "bg", "de", "el", "en", "es", "fr", "hi", "ru", "sw", "th", "tr", "ur", "vi", "zh"}

var families = map[string]FamilySpec{
	"gpt2":       {Backend: BackendLlamaCpp, DefaultHostURL: defaultLlamaCppURL},
	"gptj":       {Backend: BackendLlamaCpp, DefaultHostURL: defaultLlamaCppURL},
	"bloom":      {Backend: BackendLlamaCpp, DefaultHostURL: defaultLlamaCppURL},
	"opt":        {Backend: BackendLlamaCpp, DefaultHostURL: defaultLlamaCppURL},
	"llama":      {Backend: BackendLlamaCpp, DefaultHostURL: defaultLlamaCppURL},
	"ctrl":       {Backend: BackendLlamaCpp, DefaultHostURL: defaultLlamaCppURL, Preprocess: PreprocessControlCode, ControlCodes: ctrlControlCodes},
	"xlnet":      {Backend: BackendLlamaCpp, DefaultHostURL: defaultLlamaCppURL, Preprocess: PreprocessFiller},
	"transfo-xl": {Backend: BackendLlamaCpp, DefaultHostURL: defaultLlamaCppURL, Preprocess: PreprocessFiller},
	"xlm":        {Backend: BackendLlamaCpp, DefaultHostURL: defaultLlamaCppURL, Preprocess: PreprocessLanguage, Languages: xlmLanguages},
	"mistral":    {Backend: BackendOllama, DefaultHostURL: defaultOllamaURL},
	"qwen2":      {Backend: BackendOllama, DefaultHostURL: defaultOllamaURL},
	"gemma":      {Backend: BackendOllama, DefaultHostURL: defaultOllamaURL},
	"llama2":     {Backend: BackendLlama2Bin},
}

// Resolve looks up a model family key. Unknown keys fail here, before any
// tokenizer or model is loaded.
func Resolve(family string) (FamilySpec, error) {
	key := strings.ToLower(strings.TrimSpace(family))
	spec, ok := families[key]
	if !ok {
		return FamilySpec{}, fmt.Errorf("the model type %q is not supported; supported types: %s", family, strings.Join(SupportedFamilies(), ", "))
	}
	spec.Family = key
	return spec, nil
}

// SupportedFamilies returns the sorted list of registered family keys.
func SupportedFamilies() []string {
	keys := make([]string, 0, len(families))
	for key := range families {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

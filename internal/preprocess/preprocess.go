// internal/preprocess/preprocess.go
// Package preprocess rewrites prompt text per model family before
// tokenization. Families without an entry pass through unchanged, with the
// optional user prefix applied.
package preprocess

import (
	"strings"

	"github.com/fatih/color"

	"github.com/mwiater/genbench/internal/benchconfig"
	"github.com/mwiater/genbench/internal/logging"
	"github.com/mwiater/genbench/internal/models"
)

// Func rewrites a prompt for one model family.
type Func func(cfg *benchconfig.Config, prompt string) (string, error)

// FillerPassage helps families that degrade on short prompts, as proposed by
// Aman Rusia in https://github.com/rusiaaman/XLNet-gen#methodology.
const FillerPassage = `In 1991, the remains of Russian Tsar Nicholas II and his family
(except for Alexei and Maria) are discovered.
The voice of Nicholas's young son, Tsarevich Alexei Nikolaevich, narrates the
remainder of the story. 1883 Western Siberia,
a young Grigori Rasputin is asked by his father and a group of men to perform magic.
Rasputin has a vision and denounces one of the men as a horse thief. Although his
father initially slaps him for making such an accusation, Rasputin watches as the
man is chased outside and beaten. Twenty years later, Rasputin sees a vision of
the Virgin Mary, prompting him to become a priest. Rasputin quickly becomes famous,
with people, even a bishop, begging for his blessing. <eod> </s> <eos>`

// For returns the preprocessing function for a family spec, or false when
// the family needs none.
func For(spec models.FamilySpec) (Func, bool) {
	switch spec.Preprocess {
	case models.PreprocessFiller:
		return prepareFillerInput, true
	case models.PreprocessControlCode:
		controlCodes := spec.ControlCodes
		return func(cfg *benchconfig.Config, prompt string) (string, error) {
			return prepareControlCodeInput(cfg, controlCodes, prompt)
		}, true
	case models.PreprocessLanguage:
		return prepareLanguageInput, true
	default:
		return nil, false
	}
}

// ApplyDefaultPrefix is the pass-through path for families without a
// preprocessing entry: an optional static prefix (or the deprecated padding
// text) is prepended.
func ApplyDefaultPrefix(cfg *benchconfig.Config, prompt string) string {
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = cfg.PaddingText
	}
	return prefix + prompt
}

// prepareFillerInput prepends the user prefix, the padding text, or the
// fixed filler passage, in that order of preference.
func prepareFillerInput(cfg *benchconfig.Config, prompt string) (string, error) {
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = cfg.PaddingText
	}
	if prefix == "" {
		prefix = FillerPassage
	}
	return prefix + prompt, nil
}

// prepareControlCodeInput verifies the prompt starts with a recognized
// generation control code. A miss is a warning, never an error.
func prepareControlCodeInput(cfg *benchconfig.Config, controlCodes []string, prompt string) (string, error) {
	if cfg.Temperature > 0.7 {
		logging.LogEvent("ctrl models typically work better with lower temperatures (and lower top-k)")
	}
	if !StartsWithControlCode(prompt, controlCodes) {
		color.Yellow("WARNING! You are not starting your generation from a control code so you won't get good results")
		logging.LogEvent("prompt does not start with a control code; generation quality will suffer")
	}
	return prompt, nil
}

// prepareLanguageInput is the in-loop step for multilingual families; the
// language itself is resolved once during setup (see ResolveLanguage).
func prepareLanguageInput(cfg *benchconfig.Config, prompt string) (string, error) {
	if cfg.ResolvedLanguage != "" {
		logging.LogEvent("generating with embedding language %s", cfg.ResolvedLanguage)
	}
	return prompt, nil
}

// StartsWithControlCode reports whether the first word of prompt is one of
// the recognized control codes.
func StartsWithControlCode(prompt string, controlCodes []string) bool {
	fields := strings.Fields(prompt)
	if len(fields) == 0 {
		return false
	}
	first := fields[0]
	for _, code := range controlCodes {
		if first == code {
			return true
		}
	}
	return false
}

// internal/preprocess/language.go
package preprocess

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mwiater/genbench/internal/benchconfig"
	"github.com/mwiater/genbench/internal/logging"
	"github.com/mwiater/genbench/internal/providers"
)

// ResolveLanguage picks the embedding language for a multilingual model.
// A configured override that matches an available language wins; otherwise
// the user is asked interactively, blocking the process until a choice is
// made. Models without language embeddings resolve to "".
func ResolveLanguage(cfg *benchconfig.Config, info providers.ModelInfo) (string, error) {
	available := info.Languages
	if len(available) == 0 {
		return "", nil
	}

	for _, lang := range available {
		if lang == cfg.XLMLanguage {
			return lang, nil
		}
	}

	if cfg.XLMLanguage != "" {
		logging.LogEvent("language %q is not available for this model; asking interactively", cfg.XLMLanguage)
	}
	return pickLanguage(available)
}

var (
	pickerTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	pickerHelpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type languageItem string

func (l languageItem) FilterValue() string { return string(l) }
func (l languageItem) Title() string       { return string(l) }
func (l languageItem) Description() string { return "embedding language" }

type languagePicker struct {
	list   list.Model
	choice string
	done   bool
}

func newLanguagePicker(languages []string) languagePicker {
	items := make([]list.Item, 0, len(languages))
	for _, lang := range languages {
		items = append(items, languageItem(lang))
	}
	l := list.New(items, list.NewDefaultDelegate(), 40, 14)
	l.Title = "Select the model's embedding language"
	l.Styles.Title = pickerTitleStyle
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	return languagePicker{list: l}
}

func (m languagePicker) Init() tea.Cmd {
	return nil
}

func (m languagePicker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.list.SetSize(msg.Width, msg.Height)
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "enter":
			if item, ok := m.list.SelectedItem().(languageItem); ok {
				m.choice = string(item)
				m.done = true
			}
			return m, tea.Quit
		case "ctrl+c", "q", "esc":
			return m, tea.Quit
		}
	}
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m languagePicker) View() string {
	return m.list.View() + "\n" + pickerHelpStyle.Render("enter: select • q: abort")
}

func pickLanguage(languages []string) (string, error) {
	program := tea.NewProgram(newLanguagePicker(languages))
	final, err := program.Run()
	if err != nil {
		return "", fmt.Errorf("language selection failed: %w", err)
	}
	picker, ok := final.(languagePicker)
	if !ok || !picker.done {
		return "", fmt.Errorf("no embedding language selected")
	}
	logging.LogEvent("selected embedding language %s", picker.choice)
	return picker.choice, nil
}

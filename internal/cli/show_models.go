// internal/cli/show_models.go
package genbench

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mwiater/genbench/internal/models"
)

// showModelsCmd implements 'show models', which prints every supported model
// family and the backend it maps to.
var showModelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Show supported model families",
	Run: func(cmd *cobra.Command, args []string) {
		runShowModels()
	},
}

func init() {
	showCmd.AddCommand(showModelsCmd)
}

// runShowModels prints the family table in a two-column layout.
func runShowModels() {
	families := models.SupportedFamilies()

	maxNameLength := 0
	for _, family := range families {
		if len(family) > maxNameLength {
			maxNameLength = len(family)
		}
	}

	fmt.Println("Supported model families:")
	for _, family := range families {
		spec, err := models.Resolve(family)
		if err != nil {
			continue
		}
		detail := string(spec.Backend)
		if spec.Preprocess != models.PreprocessNone {
			detail += fmt.Sprintf(" (preprocess: %s)", spec.Preprocess)
		}
		fmt.Printf("  %s%s%s\n", family, strings.Repeat(" ", maxNameLength-len(family)+2), detail)
	}
}

// internal/benchmark/persist.go
package benchmark

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/k0kubun/pp"
	"github.com/xeipuuv/gojsonschema"

	"github.com/mwiater/genbench/internal/util"
)

// recordSchema is the shape every persisted record must satisfy. Validation
// runs before the file is written so a malformed payload never lands on disk.
var recordSchema = map[string]any{
	"type": "object",
	"required": []string{
		"latency", "warmup", "total_tokens", "batch_size",
		"max_length", "tokens_per_second",
	},
	"properties": map[string]any{
		"latency":           map[string]any{"type": "number", "minimum": 0},
		"warmup":            map[string]any{"type": "boolean"},
		"input_lengths":     map[string]any{"type": []string{"array", "null"}},
		"output_lengths":    map[string]any{"type": []string{"array", "null"}},
		"total_tokens":      map[string]any{"type": "integer", "minimum": 0},
		"batch_size":        map[string]any{"type": "integer", "minimum": 0},
		"max_length":        map[string]any{"type": "integer"},
		"max_new_tokens":    map[string]any{"type": "integer"},
		"min_new_tokens":    map[string]any{"type": "integer"},
		"tokens_per_second": map[string]any{"type": "number", "minimum": 0},
	},
}

// WriteRecords validates and persists the per-iteration records as a JSON
// array.
func WriteRecords(path string, records []Record) error {
	if err := validateRecords(records); err != nil {
		return err
	}
	payload, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal records: %w", err)
	}
	if err := util.WriteFile(path, payload); err != nil {
		return fmt.Errorf("write records: %w", err)
	}
	log.Printf("Benchmark records written to %s", path)
	return nil
}

// WriteMetrics persists the aggregate medians as a JSON object.
func WriteMetrics(path string, m Metrics) error {
	payload, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal metrics: %w", err)
	}
	if err := util.WriteFile(path, payload); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	log.Printf("Benchmark metrics written to %s", path)
	return nil
}

// validateRecords checks each record against recordSchema.
func validateRecords(records []Record) error {
	schemaLoader := gojsonschema.NewGoLoader(recordSchema)
	for i, record := range records {
		payload, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("marshal record %d for validation: %w", i, err)
		}
		result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(payload))
		if err != nil {
			return fmt.Errorf("schema validation error: %w", err)
		}
		if !result.Valid() {
			var reasons []string
			for _, desc := range result.Errors() {
				reasons = append(reasons, desc.String())
			}
			return fmt.Errorf("record %d is invalid: %s", i, strings.Join(reasons, "; "))
		}
	}
	return nil
}

// PrintRecords pretty-prints every record to stdout.
func PrintRecords(records []Record) {
	for i, record := range records {
		fmt.Printf("=== record[%d] ===\n", i)
		pp.Println(record)
	}
}

var (
	summaryBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 2)
	summaryTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
	summaryLabelStyle = lipgloss.NewStyle().Faint(true)
)

// RenderSummary formats the aggregate medians for terminal display.
func RenderSummary(model string, m Metrics) string {
	var builder strings.Builder
	builder.WriteString(summaryTitleStyle.Render("Benchmark Summary") + "\n")
	builder.WriteString(summaryLabelStyle.Render("model: ") + model + "\n\n")
	builder.WriteString(fmt.Sprintf("%s %.2f tok/s\n",
		summaryLabelStyle.Render("median warmup throughput: "), m.MedianWarmupTokensPerSecond))
	builder.WriteString(fmt.Sprintf("%s %.2f tok/s",
		summaryLabelStyle.Render("median throughput:        "), m.MedianTokensPerSecond))
	return summaryBoxStyle.Render(builder.String())
}

package output

import (
	"fmt"
	"strings"
	"time"

	"github.com/plainly/plainly/internal/core"
)

// Format represents an output format.
type Format string

const (
	FormatTable    Format = "table"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
)

// Formatter renders command results.
type Formatter interface {
	FormatResult(result *core.SimplifyResult) (string, error)
	FormatLevels(levels []core.DetailLevel) (string, error)
}

// ParseFormat validates and normalizes a format string.
func ParseFormat(value string) (Format, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	switch normalized {
	case "", string(FormatTable):
		return FormatTable, nil
	case string(FormatJSON):
		return FormatJSON, nil
	case string(FormatMarkdown), "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", value)
	}
}

// NewFormatter returns a formatter for the requested format.
func NewFormatter(format Format) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Indent: true}
	case FormatMarkdown:
		return &MarkdownFormatter{}
	default:
		return &TableFormatter{}
	}
}

// levelRow is the shared view of one detail level across formats.
type levelRow struct {
	Name        string   `json:"name"`
	ID          string   `json:"id"`
	Aliases     []string `json:"aliases,omitempty"`
	Instruction string   `json:"instruction"`
}

func levelRows(levels []core.DetailLevel) []levelRow {
	rows := make([]levelRow, 0, len(levels))
	for _, level := range levels {
		rows = append(rows, levelRow{
			Name:        level.String(),
			ID:          level.ID(),
			Aliases:     level.Aliases(),
			Instruction: level.Instruction(),
		})
	}
	return rows
}

func usageLabel(usage *core.TokenUsage) string {
	if usage == nil {
		return "-"
	}
	return fmt.Sprintf("%d prompt / %d completion / %d total",
		usage.PromptTokens, usage.CompletionTokens, usage.TotalTokens)
}

func durationLabel(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	return d.Round(time.Millisecond).String()
}

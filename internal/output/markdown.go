package output

import (
	"fmt"
	"strings"

	"github.com/plainly/plainly/internal/core"
)

// MarkdownFormatter renders results as markdown.
type MarkdownFormatter struct{}

// FormatResult renders the output text under a heading with a metadata table.
func (f *MarkdownFormatter) FormatResult(result *core.SimplifyResult) (string, error) {
	if result == nil {
		return "", nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## %s (%s)\n\n", escapeMarkdownCell(result.Level), escapeMarkdownCell(result.TargetLanguage)))
	sb.WriteString(result.Output)
	sb.WriteString("\n\n")
	sb.WriteString("| Field | Value |\n")
	sb.WriteString("|-------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Model | %s |\n", escapeMarkdownCell(result.ModelUsed)))
	sb.WriteString(fmt.Sprintf("| Tier | %s |\n", escapeMarkdownCell(string(result.Tier))))
	sb.WriteString(fmt.Sprintf("| Tokens | %s |\n", escapeMarkdownCell(usageLabel(result.Usage))))
	sb.WriteString(fmt.Sprintf("| Duration | %s |\n", durationLabel(result.Duration)))
	return sb.String(), nil
}

// FormatLevels renders the detail-level catalog as a markdown table.
func (f *MarkdownFormatter) FormatLevels(levels []core.DetailLevel) (string, error) {
	var sb strings.Builder
	sb.WriteString("| Level | ID | Aliases | Instruction |\n")
	sb.WriteString("|-------|----|---------|-------------|\n")
	for _, row := range levelRows(levels) {
		sb.WriteString(fmt.Sprintf("| %s | `%s` | %s | %s |\n",
			escapeMarkdownCell(row.Name),
			row.ID,
			escapeMarkdownCell(strings.Join(row.Aliases, ", ")),
			escapeMarkdownCell(row.Instruction),
		))
	}
	return sb.String(), nil
}

func escapeMarkdownCell(value string) string {
	value = strings.ReplaceAll(value, "|", "\\|")
	return strings.ReplaceAll(value, "\n", " ")
}

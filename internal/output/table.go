package output

import (
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/plainly/plainly/internal/core"
)

// instructionWidth wraps long level instructions in the terminal table.
const instructionWidth = 60

// TableFormatter renders results as an ASCII table.
type TableFormatter struct{}

// FormatResult renders the run metadata as a table followed by the output text.
func (f *TableFormatter) FormatResult(result *core.SimplifyResult) (string, error) {
	if result == nil {
		return "", nil
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Field", "Value"})
	t.AppendRow(table.Row{"Model", result.ModelUsed})
	t.AppendRow(table.Row{"Tier", string(result.Tier)})
	t.AppendRow(table.Row{"Level", result.Level})
	t.AppendRow(table.Row{"Language", result.TargetLanguage})
	if result.FinishReason != "" {
		t.AppendRow(table.Row{"Finish", result.FinishReason})
	}
	t.AppendRow(table.Row{"Tokens", usageLabel(result.Usage)})
	t.AppendRow(table.Row{"Duration", durationLabel(result.Duration)})

	var sb strings.Builder
	sb.WriteString(t.Render())
	sb.WriteString("\n\n")
	sb.WriteString(result.Output)
	sb.WriteString("\n")
	return sb.String(), nil
}

// FormatLevels renders the detail-level catalog.
func (f *TableFormatter) FormatLevels(levels []core.DetailLevel) (string, error) {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Level", "ID", "Aliases", "Instruction"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 4, WidthMax: instructionWidth, WidthMaxEnforcer: text.WrapSoft},
	})

	for _, row := range levelRows(levels) {
		t.AppendRow(table.Row{
			row.Name,
			row.ID,
			strings.Join(row.Aliases, ", "),
			row.Instruction,
		})
	}
	return t.Render(), nil
}

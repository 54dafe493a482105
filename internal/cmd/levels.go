package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/plainly/plainly/internal/core"
	"github.com/plainly/plainly/internal/output"
)

var levelsOutput string

var levelsCmd = &cobra.Command{
	Use:   "levels",
	Short: "List the supported detail levels",
	Long: `List the detail levels accepted by simplify and POST /api/simplify.

Names are matched case-insensitively and aliases are accepted. Any other name
falls back to a generic "clear and simple" instruction.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := output.ParseFormat(levelsOutput)
		if err != nil {
			return err
		}
		rendered, err := output.NewFormatter(format).FormatLevels(core.Levels)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), strings.TrimRight(rendered, "\n"))
		return err
	},
}

func init() {
	rootCmd.AddCommand(levelsCmd)
	levelsCmd.Flags().StringVar(&levelsOutput, "output-format", string(output.FormatTable), "Output format: table|json|markdown")
}

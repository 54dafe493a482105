package cmd

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/plainly/plainly/internal/core"
	"github.com/plainly/plainly/internal/core/engine"
	"github.com/plainly/plainly/internal/observability"
	"github.com/plainly/plainly/internal/output"
)

// cliClientID is the usage-store key for one-shot runs.
const cliClientID = "cli"

var (
	simplifyLevel  string
	simplifyLang   string
	simplifyModel  string
	simplifyOutput string
	simplifyOut    string
)

var simplifyCmd = &cobra.Command{
	Use:   "simplify [text|-]",
	Short: "Rewrite text once and print the result",
	Long: `Rewrite text at a detail level and target language through the configured model.

Reads the text from the argument, or from stdin when the argument is "-" or absent.

Examples:
  plainly simplify "Photosynthesis converts light energy..." --level ELI5
  cat contract.txt | plainly simplify - --level "Legal summary" --lang Spanish
  plainly simplify "$(cat notes.txt)" --model gpt-4-0613 --output-format json`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadedConfig()

		format, err := output.ParseFormat(simplifyOutput)
		if err != nil {
			return err
		}

		text, err := readInputText(cmd.InOrStdin(), args)
		if err != nil {
			return err
		}

		model := strings.TrimSpace(simplifyModel)
		if model == "" {
			model = cfg.Upstream.StandardModel
		}

		rt, err := newSimplifyRuntime(cfg)
		if err != nil {
			return err
		}

		req := core.SimplifyRequest{
			Text:           text,
			DetailLevel:    simplifyLevel,
			TargetLanguage: simplifyLang,
			ModelChoice:    model,
		}
		if _, ok := core.ParseDetailLevel(simplifyLevel); !ok && strings.TrimSpace(simplifyLevel) != "" {
			observability.CLILogger.Warn("Unknown detail level; using the generic instruction",
				zap.String("level", simplifyLevel))
		}

		result, err := runSimplify(cmd.Context(), rt.Simplifier, req)
		if err != nil {
			exitForSimplifyError(err)
			return err
		}

		rendered, err := output.NewFormatter(format).FormatResult(result)
		if err != nil {
			return err
		}

		sink, err := openSink(simplifyOut)
		if err != nil {
			return err
		}
		defer func() { _ = sink.close() }()

		_, err = fmt.Fprintln(sink.writer, strings.TrimRight(rendered, "\n"))
		return err
	},
}

func init() {
	rootCmd.AddCommand(simplifyCmd)

	simplifyCmd.Flags().StringVarP(&simplifyLevel, "level", "l", core.LevelPlainEnglish.String(), "detail level (run the levels command for the list)")
	simplifyCmd.Flags().StringVar(&simplifyLang, "lang", core.DefaultTargetLanguage, "target language")
	simplifyCmd.Flags().StringVarP(&simplifyModel, "model", "m", "", "model id (defaults to the standard model)")
	simplifyCmd.Flags().StringVar(&simplifyOutput, "output-format", string(output.FormatTable), "Output format: table|json|markdown")
	simplifyCmd.Flags().StringVar(&simplifyOut, "out", "", "Write output to a file (default stdout)")
}

func runSimplify(ctx context.Context, s *engine.Simplifier, req core.SimplifyRequest) (*core.SimplifyResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	return s.Simplify(ctx, cliClientID, req)
}

func readInputText(stdin io.Reader, args []string) (string, error) {
	if len(args) == 1 && args[0] != "-" {
		return args[0], nil
	}
	if stdin == nil {
		stdin = os.Stdin
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(data), nil
}

// exitForSimplifyError maps engine error kinds onto foundry exit codes.
func exitForSimplifyError(err error) {
	var simplifyErr *engine.Error
	if !stderrors.As(err, &simplifyErr) {
		return
	}
	switch simplifyErr.Kind {
	case engine.KindMissingCredential:
		ExitWithCode(observability.CLILogger, foundry.ExitConfigInvalid, simplifyErr.Message, err)
	case engine.KindUpstreamFailure:
		ExitWithCode(observability.CLILogger, foundry.ExitExternalServiceUnavailable, simplifyErr.Message, err)
	default:
		ExitWithCode(observability.CLILogger, foundry.ExitFailure, simplifyErr.Message, err)
	}
}

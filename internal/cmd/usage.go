package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fulmenhq/gofulmen/ascii"
	"github.com/spf13/cobra"

	"github.com/plainly/plainly/internal/output"
	"github.com/plainly/plainly/internal/server/handlers"
)

var (
	usageServer string
	usageOutput string
	usageOut    string
	usageOutDir string
)

var usageHTTPClient = &http.Client{Timeout: 10 * time.Second}

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Show premium usage held by a running server",
	Long: `Fetch GET /api/usage from a running server and print each client's window.

The server must run with debug.enabled (PLAINLY_DEBUG=true); otherwise the
endpoint does not exist and this command reports 404.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := output.ParseFormat(usageOutput)
		if err != nil {
			return err
		}
		if format != output.FormatJSON && format != output.FormatTable {
			return fmt.Errorf("unsupported output format: %s", format)
		}

		snapshot, err := fetchUsage(cmd.Context(), usageServer)
		if err != nil {
			return err
		}

		path, err := sinkPath(usageOut, usageOutDir, "usage", format)
		if err != nil {
			return err
		}
		sink, err := openSink(path)
		if err != nil {
			return err
		}
		defer func() { _ = sink.close() }()

		if format == output.FormatJSON {
			payload, err := json.MarshalIndent(snapshot, "", "  ")
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(sink.writer, string(payload))
			return err
		}

		_, err = fmt.Fprint(sink.writer, renderUsageBox(snapshot))
		return err
	},
}

func init() {
	rootCmd.AddCommand(usageCmd)
	usageCmd.Flags().StringVar(&usageServer, "server", "http://localhost:8080", "base URL of the running server")
	usageCmd.Flags().StringVar(&usageOutput, "output-format", string(output.FormatTable), "Output format: table|json")
	usageCmd.Flags().StringVar(&usageOut, "out", "", "Write output to a file (default stdout)")
	usageCmd.Flags().StringVar(&usageOutDir, "out-dir", "", "Write output to a directory")
}

func fetchUsage(ctx context.Context, baseURL string) (*handlers.UsageResponse, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	endpoint := strings.TrimRight(strings.TrimSpace(baseURL), "/") + "/api/usage"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := usageHTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", endpoint, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read usage response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s returned status %d: %s", endpoint, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var snapshot handlers.UsageResponse
	if err := json.Unmarshal(body, &snapshot); err != nil {
		return nil, fmt.Errorf("decode usage response: %w", err)
	}
	return &snapshot, nil
}

func renderUsageBox(snapshot *handlers.UsageResponse) string {
	lines := []string{fmt.Sprintf("Premium usage (limit %d per window)", snapshot.Limit), ""}
	if len(snapshot.Clients) == 0 {
		lines = append(lines, "(no tracked clients)")
		return ascii.DrawBox(strings.Join(lines, "\n"), 0)
	}

	for _, client := range snapshot.Clients {
		state := "active"
		if client.Expired {
			state = "expired"
		}
		lines = append(lines, fmt.Sprintf("%s: count=%d window_end=%s %s",
			client.ClientID, client.Count, client.WindowEnd.UTC().Format(time.RFC3339), state))
	}
	return ascii.DrawBox(strings.Join(lines, "\n"), 0)
}

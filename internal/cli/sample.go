package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/accordhq/accord/internal/executor"
	"github.com/accordhq/accord/internal/pipeline"
	"github.com/accordhq/accord/internal/sqlgen"
)

var (
	sampleFields  []string
	sampleTimeout time.Duration
)

// sampleCmd represents the sample command
var sampleCmd = &cobra.Command{
	Use:   "sample <evidence-table>",
	Short: "Preview rows from one evidence table in the sample database",
	Long: `Fetches a capped row preview from a single evidence table:
- Build a plain SELECT over the named table
- Execute it read-only against the configured sample database
- Print the rows as JSON

The row cap is clamped to 1-10 regardless of flags.

Example:
  accord sample iam_users --dsn postgres://localhost/evidence
  accord sample iam_users --fields account_id,mfa_enabled --records 5`,
	Args: cobra.ExactArgs(1),
	RunE: runSample,
}

func init() {
	rootCmd.AddCommand(sampleCmd)

	sampleCmd.Flags().StringVar(&sampleDSN, "dsn", "", "sample database DSN (overrides config)")
	sampleCmd.Flags().IntVar(&sampleRecords, "records", 3, "sample row cap (1-10)")
	sampleCmd.Flags().StringSliceVar(&sampleFields, "fields", nil, "columns to select (default all)")
	sampleCmd.Flags().DurationVar(&sampleTimeout, "timeout", 30*time.Second, "query timeout")
}

func runSample(cmd *cobra.Command, args []string) error {
	table := args[0]

	cfg := loadConfig()
	if sampleDSN != "" {
		cfg.Sample.DSN = sampleDSN
	}
	if cmd.Flags().Changed("records") {
		cfg.Sample.Records = sampleRecords
	}

	runner, err := executor.Open(cfg.Sample)
	if err != nil {
		return fmt.Errorf("open sample database: %w", err)
	}
	if runner == nil {
		return fmt.Errorf("sample database not configured: set sample.dsn or pass --dsn")
	}
	defer runner.Close()

	ctx, cancel := context.WithTimeout(context.Background(), sampleTimeout)
	defer cancel()

	query := sqlgen.SampleQuery(table, sampleFields)
	if verbose {
		fmt.Fprintf(os.Stderr, "⚙️  %s\n", query)
	}

	rows, err := runner.FetchSample(ctx, query, cfg.Sample.Records)
	if err != nil {
		return fmt.Errorf("fetch sample: %w", err)
	}

	return pipeline.NewRenderer(false).RenderJSON(rows, "")
}

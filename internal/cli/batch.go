package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/accordhq/accord/internal/model"
	"github.com/accordhq/accord/internal/pipeline"
	"github.com/accordhq/accord/internal/worker"
)

var (
	batchWorkers int
	batchOutDir  string
	batchTimeout time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <list-file>",
	Short: "Compile multiple policy sources from a file in parallel",
	Long: `Batch compiles multiple policy documents concurrently:
- Read sources from an input file (one path or URL per line)
- Skip blank lines and # comments; duplicates compile once
- Compile sources in parallel with a configurable worker count
- Write one assessment document per source plus a batch summary

Example:
  accord batch policies.txt
  accord batch policies.txt --workers 10 --out-dir ./assessments
  accord batch policies.txt --llm --llm-provider openai`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	// Concurrency flags
	batchCmd.Flags().IntVar(&batchWorkers, "workers", runtime.NumCPU(), "number of concurrent workers")
	batchCmd.Flags().StringVar(&batchOutDir, "out-dir", "./accord-assessments", "output directory for documents")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "total timeout for batch processing")

	// Inherit flags from compile command
	batchCmd.Flags().DurationVar(&timeout, "compile-timeout", 2*time.Minute, "timeout for individual compiles")
	batchCmd.Flags().StringVar(&userAgent, "ua", "", "HTTP User-Agent (default from config)")
	batchCmd.Flags().Int64Var(&maxBytes, "max-bytes", 2_000_000, "max response bytes to read")
	batchCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable cache (force fresh fetch)")
	batchCmd.Flags().BoolVar(&insecureTLS, "insecure", false, "skip TLS certificate verification (use for self-signed certs)")
	batchCmd.Flags().BoolVar(&ignoreRobots, "ignore-robots", false, "fetch URL sources even when robots.txt disallows them")
	batchCmd.Flags().StringVar(&httpProxy, "http-proxy", "", "HTTP proxy URL (overrides HTTP_PROXY env var)")
	batchCmd.Flags().StringVar(&httpsProxy, "https-proxy", "", "HTTPS proxy URL (overrides HTTPS_PROXY env var)")

	// Assist flags
	batchCmd.Flags().BoolVar(&llmEnabled, "llm", false, "enable the LLM grouping assist")
	batchCmd.Flags().StringVar(&llmProvider, "llm-provider", "openai", "LLM provider (openai, anthropic, ollama)")
	batchCmd.Flags().StringVar(&llmModel, "llm-model", "gpt-4o-mini", "LLM model name")
}

// batchEntry is one line of the batch summary report
type batchEntry struct {
	Source   string         `json:"source"`
	Document string         `json:"document,omitempty"` // Written file, empty on failure
	Error    string         `json:"error,omitempty"`
	Warning  *model.Warning `json:"warning,omitempty"` // Classified failure condition
}

// batchSummary is the machine-readable outcome of one batch run
type batchSummary struct {
	Total   int          `json:"total"`
	Ok      int          `json:"ok"`
	Failed  int          `json:"failed"`
	Entries []batchEntry `json:"entries"`
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Accord Batch Compile\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Input file:   %s\n", file)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", batchWorkers)
	fmt.Fprintf(os.Stderr, "  Output dir:   %s\n", batchOutDir)
	fmt.Fprintf(os.Stderr, "  Timeout:      %v\n", batchTimeout)

	// Build configuration
	cfg := loadConfig()
	applyCompileFlags(cmd, cfg)
	if cmd.Flags().Changed("compile-timeout") {
		cfg.HTTP.Timeout = timeout
	}
	if err := configureLLM(cfg); err != nil {
		return err
	}
	if cfg.LLM.Provider != "" {
		fmt.Fprintf(os.Stderr, "  LLM:          %s/%s\n", cfg.LLM.Provider, cfg.LLM.Model)
	}
	fmt.Fprintf(os.Stderr, "\n")

	// Create output directory
	if err := os.MkdirAll(batchOutDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	compiler := pipeline.NewCompiler(cfg)
	processor := worker.NewBatchProcessor(compiler, batchWorkers)

	fmt.Fprintf(os.Stderr, "⚙️  Reading sources from file...\n")
	results, err := processor.ProcessFile(ctx, file)
	if err != nil {
		return fmt.Errorf("process file: %w", err)
	}

	fmt.Fprintf(os.Stderr, "✓ Loaded %d sources\n", len(results))
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "⚙️  Compiling with %d workers...\n", batchWorkers)
	fmt.Fprintf(os.Stderr, "\n")

	renderer := pipeline.NewRenderer(cfg.Output.IncludeFooter)
	summary := batchSummary{Total: len(results)}
	usedNames := make(map[string]int)

	for _, result := range results {
		entry := batchEntry{Source: result.Source}

		if result.Error != nil {
			summary.Failed++
			entry.Error = result.Error.Error()
			entry.Warning = classifyBatchFailure(result.Error)
			summary.Entries = append(summary.Entries, entry)
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", result.Source, result.Error)
			continue
		}

		name := uniqueFilename(usedNames, sanitizeFilename(result.Report.Document.Metadata.Name))
		docPath := filepath.Join(batchOutDir, name+".yaml")

		if err := renderer.RenderDocumentYAML(result.Report.Document, docPath); err != nil {
			summary.Failed++
			entry.Error = fmt.Sprintf("write document: %v", err)
			summary.Entries = append(summary.Entries, entry)
			fmt.Fprintf(os.Stderr, "✗ %s: failed to write document: %v\n", result.Source, err)
			continue
		}

		summary.Ok++
		entry.Document = docPath
		summary.Entries = append(summary.Entries, entry)
		fmt.Fprintf(os.Stderr, "✓ %s (%d requirements)\n",
			result.Report.Document.Metadata.Name, len(result.Report.Requirements))
	}

	summaryPath := filepath.Join(batchOutDir, "batch-summary.json")
	if err := renderer.RenderJSON(summary, summaryPath); err != nil {
		fmt.Fprintf(os.Stderr, "✗ failed to write batch summary: %v\n", err)
	}

	// Summary
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Batch Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:     %d sources\n", summary.Total)
	fmt.Fprintf(os.Stderr, "  Ok:        %d\n", summary.Ok)
	fmt.Fprintf(os.Stderr, "  Failed:    %d\n", summary.Failed)
	fmt.Fprintf(os.Stderr, "  Output:    %s\n", batchOutDir)
	fmt.Fprintf(os.Stderr, "\n")

	return nil
}

// classifyBatchFailure maps known failure conditions onto report warnings so
// batch summaries can be filtered without parsing error strings.
func classifyBatchFailure(err error) *model.Warning {
	if errors.Is(err, pipeline.ErrRobotsBlocked) {
		return &model.Warning{
			Type:        model.WarnRobotsDisallowed,
			Severity:    model.SeverityWarning,
			Description: "policy URL disallowed by robots.txt; compile with --ignore-robots to override",
		}
	}
	return nil
}

// sanitizeFilename makes a document name safe to use as a file name
func sanitizeFilename(s string) string {
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
		" ", "-",
	)
	s = replacer.Replace(strings.TrimSpace(s))

	// Limit length
	if len(s) > 100 {
		s = s[:100]
	}
	if s == "" {
		return "assessment"
	}
	return s
}

// uniqueFilename suffixes repeated names so parallel documents never
// overwrite each other.
func uniqueFilename(used map[string]int, name string) string {
	used[name]++
	if used[name] == 1 {
		return name
	}
	return fmt.Sprintf("%s-%d", name, used[name])
}

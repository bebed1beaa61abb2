package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/accordhq/accord/internal/extract"
	"github.com/accordhq/accord/internal/model"
	"github.com/accordhq/accord/internal/pipeline"
)

var (
	docName      string
	docDesc      string
	docCategory  string
	outDoc       string
	outJSON      string
	timeout      time.Duration
	userAgent    string
	maxBytes     int64
	noCache      bool
	noFooter     bool
	insecureTLS  bool
	ignoreRobots bool
	httpProxy    string
	httpsProxy   string
	llmEnabled   bool
	llmProvider  string
	llmModel     string
)

// compileCmd represents the compile command
var compileCmd = &cobra.Command{
	Use:   "compile <path-or-url>",
	Short: "Compile a policy document into an assessment",
	Long: `Compile turns one policy document into an assessment hierarchy:
- Extract obligation statements from markdown, plain text, or HTML
- Group related requirements under synthesized parent controls
- Assign dotted aliases and validate the tree
- Write the assessment document as YAML

Sources may be file paths, http(s) URLs, or "-" for stdin.

Example:
  accord compile policy.md
  accord compile https://example.com/security-policy --out access.yaml
  accord compile policy.md --llm --llm-provider openai --llm-model gpt-4o-mini
  cat policy.md | accord compile -`,
	Args: cobra.ExactArgs(1),
	RunE: runCompile,
}

func init() {
	rootCmd.AddCommand(compileCmd)

	// Document flags
	compileCmd.Flags().StringVar(&docName, "name", "", "assessment name (default: derived from the document)")
	compileCmd.Flags().StringVar(&docDesc, "description", "", "assessment description")
	compileCmd.Flags().StringVar(&docCategory, "category", "", "category override (default: derived from requirement themes)")

	// Output flags
	compileCmd.Flags().StringVar(&outDoc, "out", "assessment.yaml", "output document path (\"-\" for stdout)")
	compileCmd.Flags().StringVar(&outJSON, "json", "", "also write the full compile report as JSON")

	// HTTP flags
	compileCmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "overall compile timeout")
	compileCmd.Flags().StringVar(&userAgent, "ua", "", "HTTP User-Agent (default from config)")
	compileCmd.Flags().Int64Var(&maxBytes, "max-bytes", 2_000_000, "max response bytes to read")
	compileCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable cache (force fresh fetch)")
	compileCmd.Flags().BoolVar(&insecureTLS, "insecure", false, "skip TLS certificate verification (use for self-signed certs)")
	compileCmd.Flags().BoolVar(&ignoreRobots, "ignore-robots", false, "fetch URL sources even when robots.txt disallows them")
	compileCmd.Flags().StringVar(&httpProxy, "http-proxy", "", "HTTP proxy URL (overrides HTTP_PROXY env var)")
	compileCmd.Flags().StringVar(&httpsProxy, "https-proxy", "", "HTTPS proxy URL (overrides HTTPS_PROXY env var)")

	// Assist flags
	compileCmd.Flags().BoolVar(&llmEnabled, "llm", false, "enable the LLM grouping assist")
	compileCmd.Flags().StringVar(&llmProvider, "llm-provider", "openai", "LLM provider (openai, anthropic, ollama)")
	compileCmd.Flags().StringVar(&llmModel, "llm-model", "gpt-4o-mini", "LLM model name")
}

func runCompile(cmd *cobra.Command, args []string) error {
	source := args[0]

	cfg := loadConfig()
	applyCompileFlags(cmd, cfg)
	if err := configureLLM(cfg); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.Timeout)
	defer cancel()

	if verbose {
		fmt.Fprintf(os.Stderr, "Compiling: %s\n", source)
		fmt.Fprintf(os.Stderr, "Timeout: %v\n", cfg.HTTP.Timeout)
		fmt.Fprintf(os.Stderr, "Cache: %v\n", cfg.Cache.Enabled)
		fmt.Fprintln(os.Stderr)
	}

	compiler := pipeline.NewCompiler(cfg)
	report, err := compiler.CompileWithOptions(ctx, source, pipeline.CompileOptions{
		Name:        docName,
		Description: docDesc,
		Category:    docCategory,
	})
	if err != nil {
		if errors.Is(err, extract.ErrNoRequirements) {
			return fmt.Errorf("no obligation statements found in %s", source)
		}
		if errors.Is(err, pipeline.ErrRobotsBlocked) {
			return fmt.Errorf("%v (use --ignore-robots to fetch anyway)", err)
		}
		return fmt.Errorf("compile failed: %w", err)
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "✓ Extracted %d requirements\n", len(report.Requirements))
		fmt.Fprintf(os.Stderr, "✓ Built %d root controls, %d leaves\n",
			len(report.Document.Spec.PlanControls), len(report.Document.Assessment().Leaves()))
		if report.Outline != nil && report.Outline.Enabled {
			fmt.Fprintf(os.Stderr, "✓ Assist %s/%s: applied=%v\n",
				report.Outline.Provider, report.Outline.Model, report.Outline.Applied)
		}
		fmt.Fprintln(os.Stderr)
	}

	renderer := pipeline.NewRenderer(cfg.Output.IncludeFooter)
	if err := renderer.RenderDocumentYAML(report.Document, outDoc); err != nil {
		return fmt.Errorf("write document: %w", err)
	}
	if outJSON != "" {
		if err := renderer.RenderJSON(report, outJSON); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	}

	renderer.CompileSummary(os.Stderr, report)
	if outDoc != "" && outDoc != "-" {
		fmt.Fprintf(os.Stderr, "✓ Wrote %s\n", outDoc)
	}

	return nil
}

// applyCompileFlags overlays compile-surface flags onto the configuration.
// Only flags the user actually set override config-file values; flags the
// command does not define are skipped.
func applyCompileFlags(cmd *cobra.Command, cfg *model.Config) {
	flags := cmd.Flags()

	if flags.Changed("timeout") {
		cfg.HTTP.Timeout = timeout
	}
	if flags.Changed("ua") {
		cfg.HTTP.UserAgent = userAgent
	}
	if flags.Changed("max-bytes") {
		cfg.HTTP.MaxBodyBytes = maxBytes
	}
	if flags.Changed("insecure") {
		cfg.HTTP.InsecureTLS = insecureTLS
	}
	if flags.Changed("ignore-robots") {
		cfg.HTTP.IgnoreRobots = ignoreRobots
	}
	if flags.Changed("http-proxy") {
		cfg.HTTP.HTTPProxy = httpProxy
	}
	if flags.Changed("https-proxy") {
		cfg.HTTP.HTTPSProxy = httpsProxy
	}
	if flags.Changed("no-cache") {
		cfg.Cache.Enabled = !noCache
	}
	cfg.Output.Verbose = verbose
}

// configureLLM finishes assist configuration: the --llm flags select the
// provider, and missing API keys are taken from the environment. A provider
// that still has no key is an error up front, not at proposal time.
func configureLLM(cfg *model.Config) error {
	if llmEnabled {
		cfg.LLM.Provider = llmProvider
		cfg.LLM.Model = llmModel
	}

	switch cfg.LLM.Provider {
	case "":
		return nil
	case "openai":
		if cfg.LLM.APIKey == "" {
			cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		}
		if cfg.LLM.APIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY environment variable not set")
		}
	case "anthropic", "claude":
		if cfg.LLM.APIKey == "" {
			cfg.LLM.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		}
		if cfg.LLM.APIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY environment variable not set")
		}
	case "ollama":
		// Ollama doesn't need an API key
		if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" && cfg.LLM.BaseURL == "" {
			cfg.LLM.BaseURL = baseURL
		}
	}

	return nil
}

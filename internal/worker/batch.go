package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/accordhq/accord/internal/model"
)

// Compiler compiles one policy source (file path or URL) into an
// assessment document
type Compiler interface {
	Compile(ctx context.Context, source string) (*model.CompileReport, error)
}

// CompileJob compiles a single policy source
type CompileJob struct {
	Source   string
	Compiler Compiler
}

// Execute runs the compile job
func (j *CompileJob) Execute(ctx context.Context) Result {
	report, err := j.Compiler.Compile(ctx, j.Source)
	if err != nil {
		return &CompileResult{
			Source: j.Source,
			Error:  err,
		}
	}
	return &CompileResult{
		Source: j.Source,
		Report: report,
	}
}

// CompileResult is the outcome of one batch entry
type CompileResult struct {
	Source string
	Report *model.CompileReport
	Error  error
}

// GetError returns the error from the compile result
func (r *CompileResult) GetError() error {
	return r.Error
}

// BatchProcessor compiles multiple policy sources concurrently
type BatchProcessor struct {
	compiler    Compiler
	concurrency int
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(compiler Compiler, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		compiler:    compiler,
		concurrency: concurrency,
	}
}

// ProcessSources compiles the given sources through the worker pool
func (b *BatchProcessor) ProcessSources(ctx context.Context, sources []string) []*CompileResult {
	if len(sources) == 0 {
		return []*CompileResult{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	for _, source := range sources {
		pool.Submit(&CompileJob{
			Source:   source,
			Compiler: b.compiler,
		})
	}

	results := pool.Wait()

	compileResults := make([]*CompileResult, len(results))
	for i, result := range results {
		compileResults[i] = result.(*CompileResult)
	}

	return compileResults
}

// ProcessFile reads policy sources from a list file and compiles them
func (b *BatchProcessor) ProcessFile(ctx context.Context, listPath string) ([]*CompileResult, error) {
	sources, err := ReadSourcesFromFile(listPath)
	if err != nil {
		return nil, fmt.Errorf("read sources: %w", err)
	}

	return b.ProcessSources(ctx, sources), nil
}

// ReadSourcesFromFile reads policy paths or URLs from a file, one per line.
// Blank lines and # comments are skipped; duplicates compile once.
func ReadSourcesFromFile(listPath string) ([]string, error) {
	file, err := os.Open(listPath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var sources []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !seen[line] {
			seen[line] = true
			sources = append(sources, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return sources, nil
}

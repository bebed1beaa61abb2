package pipeline

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/accordhq/accord/internal/model"
)

// SourceKind identifies how a policy source is loaded
type SourceKind string

const (
	SourceFile  SourceKind = "file"
	SourceURL   SourceKind = "url"
	SourceStdin SourceKind = "stdin"
)

// ClassifySource decides how a source argument will be loaded: "-" reads
// stdin, http(s) schemes fetch, everything else is a file path.
func ClassifySource(source string) SourceKind {
	if source == "-" {
		return SourceStdin
	}
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return SourceURL
	}
	return SourceFile
}

// LoadedSource is policy text plus where it came from
type LoadedSource struct {
	Text     string
	Name     string // Document name derived from content or source
	Kind     SourceKind
	Meta     *model.FetchMeta // Set for URL sources
	FinalURL string           // Set for URL sources, after redirects
}

// Loader resolves policy sources into text. URL sources go through the
// Fetcher; file and stdin sources are read directly.
type Loader struct {
	fetcher *Fetcher
	stdin   io.Reader
}

// NewLoader creates a Loader backed by the given fetcher
func NewLoader(fetcher *Fetcher) *Loader {
	return &Loader{fetcher: fetcher, stdin: os.Stdin}
}

// Load resolves the source into policy text
func (l *Loader) Load(ctx context.Context, source string) (*LoadedSource, error) {
	switch ClassifySource(source) {
	case SourceStdin:
		data, err := io.ReadAll(l.stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		text := string(data)
		return &LoadedSource{
			Text: text,
			Name: deriveName(text, "", ""),
			Kind: SourceStdin,
		}, nil

	case SourceURL:
		result, err := l.fetcher.FetchWithRetry(ctx, source)
		if err != nil {
			return nil, err
		}
		meta := result.Meta
		return &LoadedSource{
			Text:     result.Body,
			Name:     deriveName(result.Body, "", urlSlug(result.FinalURL)),
			Kind:     SourceURL,
			Meta:     &meta,
			FinalURL: result.FinalURL,
		}, nil

	default:
		data, err := os.ReadFile(source)
		if err != nil {
			return nil, fmt.Errorf("read file: %w", err)
		}
		text := string(data)
		return &LoadedSource{
			Text: text,
			Name: deriveName(text, fileSlug(source), ""),
			Kind: SourceFile,
		}, nil
	}
}

// deriveName picks a document name: the first markdown heading near the top
// of the text, then a source-derived slug, then a generic fallback.
func deriveName(text, fileName, urlName string) string {
	lines := strings.Split(text, "\n")
	limit := len(lines)
	if limit > 20 {
		limit = 20
	}
	for _, line := range lines[:limit] {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") {
			heading := strings.TrimSpace(strings.TrimLeft(trimmed, "#"))
			if heading != "" {
				return heading
			}
		}
	}

	if fileName != "" {
		return fileName
	}
	if urlName != "" {
		return urlName
	}
	return "Policy Document"
}

// fileSlug turns a file path into a readable name: base name without
// extension, underscores and hyphens replaced with spaces.
func fileSlug(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return deslug(base)
}

// urlSlug extracts a readable name from the last URL path segment.
func urlSlug(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}

	path := strings.Trim(parsed.Path, "/")
	if path == "" {
		return parsed.Host
	}

	segments := strings.Split(path, "/")
	last := segments[len(segments)-1]
	if idx := strings.LastIndex(last, "."); idx > 0 {
		last = last[:idx]
	}
	return deslug(last)
}

func deslug(s string) string {
	s = strings.ReplaceAll(s, "_", " ")
	s = strings.ReplaceAll(s, "-", " ")
	return strings.TrimSpace(s)
}

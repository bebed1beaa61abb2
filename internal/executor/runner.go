package executor

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/accordhq/accord/internal/model"
)

const (
	minSampleRecords     = 1
	maxSampleRecords     = 10
	defaultSampleRecords = 3
)

// Runner executes synthesized SQL against an evidence database to preview
// sample output. The database is treated as read-only.
type Runner struct {
	db *sqlx.DB
}

// Open connects using the configured driver and DSN. An empty DSN means
// sample execution is not configured; callers get (nil, nil).
func Open(cfg model.SampleConfig) (*Runner, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, nil
	}

	driver := strings.TrimSpace(cfg.Driver)
	if driver == "" {
		driver = "postgres"
	}

	db, err := sqlx.Open(driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open sample database: %w", err)
	}
	return &Runner{db: db}, nil
}

// NewRunner wraps an existing connection
func NewRunner(db *sqlx.DB) *Runner {
	return &Runner{db: db}
}

func (r *Runner) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// Ping verifies the connection is usable.
func (r *Runner) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// ClampRecords bounds a requested sample size to 1..10, defaulting to 3
// when unset.
func ClampRecords(n int) int {
	if n <= 0 {
		return defaultSampleRecords
	}
	if n < minSampleRecords {
		return minSampleRecords
	}
	if n > maxSampleRecords {
		return maxSampleRecords
	}
	return n
}

// FetchSample runs the statement(s) and returns up to records rows across
// them. Multi-statement artifacts (the per-table fallback) execute in
// order until the cap is reached.
func (r *Runner) FetchSample(ctx context.Context, query string, records int) ([]map[string]interface{}, error) {
	records = ClampRecords(records)

	var sample []map[string]interface{}
	for _, stmt := range SplitStatements(query) {
		if len(sample) >= records {
			break
		}
		rows, err := r.fetchRows(ctx, stmt, records-len(sample))
		if err != nil {
			return nil, err
		}
		sample = append(sample, rows...)
	}
	return sample, nil
}

// fetchRows reads up to limit rows from one statement. Rows are read
// incrementally and the cursor closed early, so the statement itself never
// needs a LIMIT clause bolted on.
func (r *Runner) fetchRows(ctx context.Context, stmt string, limit int) ([]map[string]interface{}, error) {
	rows, err := r.db.QueryxContext(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("execute sample query: %w", err)
	}
	defer rows.Close()

	var out []map[string]interface{}
	for len(out) < limit && rows.Next() {
		row := make(map[string]interface{})
		if err := rows.MapScan(row); err != nil {
			return nil, fmt.Errorf("scan sample row: %w", err)
		}
		out = append(out, normalizeRow(row))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read sample rows: %w", err)
	}
	return out, nil
}

// SplitStatements splits a multi-statement artifact on its ";" separators.
// A separator inside a single-quoted literal is part of the literal, not a
// split point; doubled quotes are the usual SQL escape.
func SplitStatements(query string) []string {
	var statements []string
	quoted := false
	start := 0

	for i := 0; i < len(query); i++ {
		c := query[i]
		if c == '\'' {
			quoted = !quoted
			continue
		}
		if c == ';' && !quoted && i+1 < len(query) && query[i+1] == '\n' {
			statements = appendStatement(statements, query[start:i])
			start = i + 2
			i++
		}
	}
	return appendStatement(statements, query[start:])
}

func appendStatement(statements []string, part string) []string {
	part = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(part), ";"))
	if part == "" {
		return statements
	}
	return append(statements, part)
}

// normalizeRow converts driver byte slices to strings so sampled rows
// render cleanly as JSON.
func normalizeRow(row map[string]interface{}) map[string]interface{} {
	for key, val := range row {
		if b, ok := val.([]byte); ok {
			row[key] = string(b)
		}
	}
	return row
}

package db

import (
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// Placeholder renders the n-th (1-based) bind parameter for a SQL dialect.
type Placeholder func(n int) string

// Dollar renders Postgres-style $n parameters.
func Dollar(n int) string { return fmt.Sprintf("$%d", n) }

// Question renders SQLite-style ? parameters.
func Question(int) string { return "?" }

// UpsertConfig defines a single-row insert that updates on conflict.
type UpsertConfig struct {
	Table        string   // target table (e.g., "sources")
	Columns      []string // all columns being inserted
	ConflictKeys []string // columns forming the unique constraint
	UpdateCols   []string // columns to update on conflict; nil = all non-conflict columns
	Returning    []string // columns to return; nil = none
}

// BuildUpsert renders INSERT ... ON CONFLICT (keys) DO UPDATE SET ... for one
// row. The statement is valid for both Postgres and SQLite.
func BuildUpsert(cfg UpsertConfig, ph Placeholder) (string, error) {
	if len(cfg.Columns) == 0 {
		return "", eris.New("db: upsert: no columns specified")
	}
	if len(cfg.ConflictKeys) == 0 {
		return "", eris.New("db: upsert: no conflict keys specified")
	}

	updateCols := cfg.UpdateCols
	if updateCols == nil {
		conflictSet := make(map[string]bool, len(cfg.ConflictKeys))
		for _, k := range cfg.ConflictKeys {
			conflictSet[k] = true
		}
		for _, c := range cfg.Columns {
			if !conflictSet[c] {
				updateCols = append(updateCols, c)
			}
		}
	}
	if len(updateCols) == 0 {
		return "", eris.Errorf("db: upsert: nothing to update for %s", cfg.Table)
	}

	params := make([]string, len(cfg.Columns))
	for i := range cfg.Columns {
		params[i] = ph(i + 1)
	}

	setClauses := make([]string, len(updateCols))
	for i, col := range updateCols {
		q := pgx.Identifier{col}.Sanitize()
		setClauses[i] = fmt.Sprintf("%s = excluded.%s", q, q)
	}

	stmt := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO UPDATE SET %s",
		sanitizeTable(cfg.Table),
		quoteAndJoin(cfg.Columns),
		strings.Join(params, ", "),
		quoteAndJoin(cfg.ConflictKeys),
		strings.Join(setClauses, ", "),
	)
	if len(cfg.Returning) > 0 {
		stmt += " RETURNING " + quoteAndJoin(cfg.Returning)
	}
	return stmt, nil
}

// Assignment is one column = value pair of a partial update.
type Assignment struct {
	Column string
	Value  any
}

// Assignments accumulates columns for a partial update, skipping unset fields.
type Assignments []Assignment

// Add appends a column unconditionally.
func (a *Assignments) Add(col string, v any) {
	*a = append(*a, Assignment{Column: col, Value: v})
}

// BuildUpdate renders UPDATE table SET a = ?, b = ? WHERE key = ? and returns
// the bound arguments in order. The key value is bound last.
func BuildUpdate(table string, set Assignments, keyCol string, key any, ph Placeholder) (string, []any, error) {
	if len(set) == 0 {
		return "", nil, eris.Errorf("db: update: no columns for %s", table)
	}

	clauses := make([]string, len(set))
	args := make([]any, 0, len(set)+1)
	for i, a := range set {
		clauses[i] = fmt.Sprintf("%s = %s", pgx.Identifier{a.Column}.Sanitize(), ph(i+1))
		args = append(args, a.Value)
	}
	args = append(args, key)

	stmt := fmt.Sprintf(
		"UPDATE %s SET %s WHERE %s = %s",
		sanitizeTable(table),
		strings.Join(clauses, ", "),
		pgx.Identifier{keyCol}.Sanitize(),
		ph(len(set)+1),
	)
	return stmt, args, nil
}

// sanitizeTable handles schema-qualified table names like "public.properties".
func sanitizeTable(table string) string {
	parts := strings.SplitN(table, ".", 2)
	if len(parts) == 2 {
		return pgx.Identifier{parts[0], parts[1]}.Sanitize()
	}
	return pgx.Identifier{table}.Sanitize()
}

// quoteAndJoin quotes each column name and joins with commas.
func quoteAndJoin(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}
	return strings.Join(quoted, ", ")
}

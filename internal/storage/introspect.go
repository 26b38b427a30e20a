package storage

import (
	"database/sql"
	"fmt"
	"sort"

	mperrors "github.com/catherinevee/mixport/internal/errors"
	"github.com/catherinevee/mixport/pkg/models"
)

// Schema returns the column layout of a table.
func (e *Engine) Schema(name string) ([]models.ColumnInfo, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	e.mu.RLock()
	defer e.mu.RUnlock()

	exists, err := e.exists(name)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, mperrors.NewTableNotFound(name)
	}

	rows, err := e.db.Query(fmt.Sprintf(`PRAGMA table_info(%q)`, name))
	if err != nil {
		return nil, fmt.Errorf("read schema for %q: %w", name, err)
	}
	defer rows.Close()

	var columns []models.ColumnInfo
	for rows.Next() {
		var cid int
		var colName, colType string
		var notNull, primary int
		var dflt sql.NullString
		if err := rows.Scan(&cid, &colName, &colType, &notNull, &dflt, &primary); err != nil {
			return nil, fmt.Errorf("scan schema row: %w", err)
		}
		columns = append(columns, models.ColumnInfo{
			Name:     colName,
			Type:     colType,
			Nullable: notNull == 0,
			Primary:  primary > 0,
		})
	}
	return columns, rows.Err()
}

// Sample returns up to n rows of a table.
func (e *Engine) Sample(name string, n int) (*models.SQLResult, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	if n <= 0 {
		n = 10
	}
	exists, err := e.Exists(name)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, mperrors.NewTableNotFound(name)
	}
	return e.SQL(fmt.Sprintf(`SELECT * FROM %q LIMIT %d`, name, n))
}

// SQL runs an arbitrary query and returns its rows. Byte blobs come back as
// strings.
func (e *Engine) SQL(query string) (*models.SQLResult, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	rows, err := e.db.Query(query)
	if err != nil {
		return nil, mperrors.Wrap(mperrors.KindQuery, "sql query failed", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}
	result := &models.SQLResult{Columns: columns}
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		result.Rows = append(result.Rows, values)
	}
	return result, rows.Err()
}

// SQLScalar runs a query expected to yield one value.
func (e *Engine) SQLScalar(query string) (any, error) {
	result, err := e.SQL(query)
	if err != nil {
		return nil, err
	}
	if len(result.Rows) == 0 || len(result.Rows[0]) == 0 {
		return nil, mperrors.New(mperrors.KindQuery, "scalar query returned no rows")
	}
	return result.Rows[0][0], nil
}

// JSONKeys returns the distinct top-level keys of a JSON column, sorted.
func (e *Engine) JSONKeys(table, column string) ([]string, error) {
	if err := validateName(table); err != nil {
		return nil, err
	}
	if err := validateName(column); err != nil {
		return nil, err
	}
	exists, err := e.Exists(table)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, mperrors.NewTableNotFound(table)
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	rows, err := e.db.Query(fmt.Sprintf(
		`SELECT DISTINCT je.key FROM %q t, json_each(t.%q) je WHERE t.%q IS NOT NULL`,
		table, column, column))
	if err != nil {
		return nil, mperrors.Wrap(mperrors.KindQuery, "json keys query failed", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.Strings(keys)
	return keys, nil
}

// ColumnStats computes summary statistics for one column. Min/Max/Avg stay
// nil when the column has no numeric values.
func (e *Engine) ColumnStats(table, column string) (*models.ColumnStats, error) {
	if err := validateName(table); err != nil {
		return nil, err
	}
	if err := validateName(column); err != nil {
		return nil, err
	}
	exists, err := e.Exists(table)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, mperrors.NewTableNotFound(table)
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	stats := &models.ColumnStats{Column: column}
	err = e.db.QueryRow(fmt.Sprintf(
		`SELECT COUNT(*), COUNT(*) - COUNT(%q), COUNT(DISTINCT %q) FROM %q`,
		column, column, table)).Scan(&stats.Count, &stats.Nulls, &stats.Distinct)
	if err != nil {
		return nil, fmt.Errorf("column counts: %w", err)
	}

	var numeric int64
	err = e.db.QueryRow(fmt.Sprintf(
		`SELECT COUNT(*) FROM %q WHERE typeof(%q) IN ('integer', 'real')`,
		table, column)).Scan(&numeric)
	if err != nil {
		return nil, fmt.Errorf("numeric count: %w", err)
	}
	if numeric > 0 {
		var min, max, avg sql.NullFloat64
		err = e.db.QueryRow(fmt.Sprintf(
			`SELECT MIN(%q), MAX(%q), AVG(%q) FROM %q WHERE typeof(%q) IN ('integer', 'real')`,
			column, column, column, table, column)).Scan(&min, &max, &avg)
		if err != nil {
			return nil, fmt.Errorf("numeric stats: %w", err)
		}
		if min.Valid {
			stats.Min = &min.Float64
		}
		if max.Valid {
			stats.Max = &max.Float64
		}
		if avg.Valid {
			stats.Avg = &avg.Float64
		}
	}
	return stats, nil
}

// Summarize computes per-column statistics for a whole table.
func (e *Engine) Summarize(name string) ([]models.ColumnStats, error) {
	columns, err := e.Schema(name)
	if err != nil {
		return nil, err
	}
	stats := make([]models.ColumnStats, 0, len(columns))
	for _, col := range columns {
		s, err := e.ColumnStats(name, col.Name)
		if err != nil {
			return nil, err
		}
		stats = append(stats, *s)
	}
	return stats, nil
}

package models

import "time"

// TableKind distinguishes the two ingestion table layouts.
type TableKind string

const (
	TableKindEvents   TableKind = "events"
	TableKindProfiles TableKind = "profiles"
)

// TableMetadata is the per-table record kept in the _metadata system table.
// From/To cover the fetched date range and are only set for event tables.
type TableMetadata struct {
	Name      string    `json:"name"`
	Kind      TableKind `json:"kind"`
	RowCount  int64     `json:"row_count"`
	ByteSize  int64     `json:"byte_size"`
	CreatedAt time.Time `json:"created_at"`
	From      string    `json:"from,omitempty"`
	To        string    `json:"to,omitempty"`
}

// ColumnInfo describes one column of a stored table.
type ColumnInfo struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Nullable bool   `json:"nullable"`
	Primary  bool   `json:"primary"`
}

// ColumnStats holds summary statistics for one column. Min/Max/Avg are nil
// for columns with no numeric interpretation.
type ColumnStats struct {
	Column   string   `json:"column"`
	Count    int64    `json:"count"`
	Nulls    int64    `json:"nulls"`
	Distinct int64    `json:"distinct"`
	Min      *float64 `json:"min,omitempty"`
	Max      *float64 `json:"max,omitempty"`
	Avg      *float64 `json:"avg,omitempty"`
}

// SQLResult holds the rows of an arbitrary SQL query in column order.
type SQLResult struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// Package storage is the embedded analytical store: SQLite tables for
// ingested events and profiles, a _metadata system table, schema
// introspection, and arbitrary SQL. Writes are exclusive behind a single
// lock; readers run concurrently and are unaffected by the writer.
package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	mperrors "github.com/catherinevee/mixport/internal/errors"
	"github.com/catherinevee/mixport/pkg/models"
)

const metadataTable = "_metadata"

// identifierPattern gates every table name before it is interpolated into
// DDL. Names starting with an underscore are reserved for system tables.
var identifierPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// Engine owns one SQLite database, file-backed or in-memory.
type Engine struct {
	db        *sql.DB
	mu        sync.RWMutex
	path      string
	logger    zerolog.Logger
	closeOnce sync.Once
	closeErr  error
}

// Open creates an Engine. An empty path opens a private in-memory database;
// otherwise the file is created as needed with WAL journaling.
func Open(path string, logger zerolog.Logger) (*Engine, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000", path)
	if path == "" {
		// A unique shared-cache name keeps the pool's connections on one
		// database while isolating engines from each other.
		dsn = fmt.Sprintf("file:mixport-%s?mode=memory&cache=shared", uuid.NewString())
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(0)

	e := &Engine{db: db, path: path, logger: logger}
	if err := e.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return e, nil
}

func (e *Engine) initSchema() error {
	_, err := e.db.Exec(`
	CREATE TABLE IF NOT EXISTS _metadata (
		name TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		row_count INTEGER NOT NULL DEFAULT 0,
		byte_size INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL,
		from_date TEXT,
		to_date TEXT
	)`)
	if err != nil {
		return fmt.Errorf("initialize metadata table: %w", err)
	}
	return nil
}

// Close closes the database exactly once.
func (e *Engine) Close() error {
	e.closeOnce.Do(func() {
		e.closeErr = e.db.Close()
	})
	return e.closeErr
}

// Path returns the backing file path, empty for in-memory engines.
func (e *Engine) Path() string {
	return e.path
}

func validateName(name string) error {
	if !identifierPattern.MatchString(name) {
		return mperrors.Newf(mperrors.KindQuery, "invalid table name %q", name)
	}
	return nil
}

// exists reports whether a table is registered in metadata.
func (e *Engine) exists(name string) (bool, error) {
	var one int
	err := e.db.QueryRow(`SELECT 1 FROM _metadata WHERE name = ?`, name).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check table %q: %w", name, err)
	}
	return true, nil
}

// Exists reports whether a table is registered.
func (e *Engine) Exists(name string) (bool, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.exists(name)
}

// CreateTable creates an ingestion table of the given kind. An existing
// table fails with TableExists unless replace is set.
func (e *Engine) CreateTable(name string, kind models.TableKind, replace bool) error {
	if err := validateName(name); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	exists, err := e.exists(name)
	if err != nil {
		return err
	}
	if exists && !replace {
		return mperrors.NewTableExists(name)
	}
	if exists {
		if err := e.dropLocked(name); err != nil {
			return err
		}
	}

	var ddl string
	switch kind {
	case models.TableKindEvents:
		ddl = fmt.Sprintf(`CREATE TABLE %q (
			distinct_id TEXT,
			event_name TEXT,
			event_time TIMESTAMP,
			insert_id TEXT,
			properties TEXT
		)`, name)
	case models.TableKindProfiles:
		ddl = fmt.Sprintf(`CREATE TABLE %q (
			distinct_id TEXT PRIMARY KEY,
			properties TEXT,
			last_seen TIMESTAMP
		)`, name)
	default:
		return mperrors.Newf(mperrors.KindQuery, "unknown table kind %q", kind)
	}
	if _, err := e.db.Exec(ddl); err != nil {
		return fmt.Errorf("create table %q: %w", name, err)
	}
	_, err = e.db.Exec(
		`INSERT INTO _metadata (name, kind, row_count, byte_size, created_at) VALUES (?, ?, 0, 0, ?)`,
		name, string(kind), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("register table %q: %w", name, err)
	}
	e.logger.Debug().Str("table", name).Str("kind", string(kind)).Msg("table created")
	return nil
}

// AppendEvents writes a batch of normalized events in one transaction and
// updates the table's row count, byte size, and covered date range at the
// same commit boundary. rng is the requested fetch range for this batch; the
// range only widens when a batch actually lands, so a day that exported no
// rows contributes nothing to the recorded from/to.
func (e *Engine) AppendEvents(name string, rows []models.EventRecord, rng *models.DateRange) error {
	if err := validateName(name); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	exists, err := e.exists(name)
	if err != nil {
		return err
	}
	if !exists {
		return mperrors.NewTableNotFound(name)
	}

	tx, err := e.db.Begin()
	if err != nil {
		return fmt.Errorf("begin append: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(fmt.Sprintf(
		`INSERT INTO %q (distinct_id, event_name, event_time, insert_id, properties) VALUES (?, ?, ?, ?, ?)`, name))
	if err != nil {
		return fmt.Errorf("prepare append: %w", err)
	}
	defer stmt.Close()

	var byteSize int64
	for i := range rows {
		props, err := json.Marshal(rows[i].Properties)
		if err != nil {
			return fmt.Errorf("encode properties: %w", err)
		}
		if _, err := stmt.Exec(rows[i].DistinctID, rows[i].Name, rows[i].Time, rows[i].InsertID, string(props)); err != nil {
			return fmt.Errorf("insert event: %w", err)
		}
		byteSize += int64(len(props) + len(rows[i].DistinctID) + len(rows[i].Name) + len(rows[i].InsertID))
	}

	if err := e.bumpMetadata(tx, name, int64(len(rows)), byteSize, rng); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit append: %w", err)
	}
	e.logger.Debug().Str("table", name).Int("rows", len(rows)).Msg("events appended")
	return nil
}

// AppendProfiles upserts a batch of normalized profiles on distinct_id in
// one transaction. Row count is recomputed after the upsert so re-fetched
// profiles do not double count.
func (e *Engine) AppendProfiles(name string, rows []models.ProfileRecord) error {
	if err := validateName(name); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	exists, err := e.exists(name)
	if err != nil {
		return err
	}
	if !exists {
		return mperrors.NewTableNotFound(name)
	}

	tx, err := e.db.Begin()
	if err != nil {
		return fmt.Errorf("begin append: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(fmt.Sprintf(
		`INSERT INTO %q (distinct_id, properties, last_seen) VALUES (?, ?, ?)
		 ON CONFLICT(distinct_id) DO UPDATE SET properties = excluded.properties, last_seen = excluded.last_seen`, name))
	if err != nil {
		return fmt.Errorf("prepare append: %w", err)
	}
	defer stmt.Close()

	var byteSize int64
	for i := range rows {
		props, err := json.Marshal(rows[i].Properties)
		if err != nil {
			return fmt.Errorf("encode properties: %w", err)
		}
		var lastSeen any
		if rows[i].LastSeen != nil {
			lastSeen = *rows[i].LastSeen
		}
		if _, err := stmt.Exec(rows[i].DistinctID, string(props), lastSeen); err != nil {
			return fmt.Errorf("insert profile: %w", err)
		}
		byteSize += int64(len(props) + len(rows[i].DistinctID))
	}

	var count int64
	if err := tx.QueryRow(fmt.Sprintf(`SELECT COUNT(*) FROM %q`, name)).Scan(&count); err != nil {
		return fmt.Errorf("count rows: %w", err)
	}
	_, err = tx.Exec(`UPDATE _metadata SET row_count = ?, byte_size = byte_size + ? WHERE name = ?`,
		count, byteSize, name)
	if err != nil {
		return fmt.Errorf("update metadata: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit append: %w", err)
	}
	e.logger.Debug().Str("table", name).Int("rows", len(rows)).Msg("profiles appended")
	return nil
}

// bumpMetadata applies a row/byte delta and widens the covered date range
// inside the caller's transaction.
func (e *Engine) bumpMetadata(tx *sql.Tx, name string, rowDelta, byteDelta int64, rng *models.DateRange) error {
	var fromDate, toDate sql.NullString
	err := tx.QueryRow(`SELECT from_date, to_date FROM _metadata WHERE name = ?`, name).
		Scan(&fromDate, &toDate)
	if err != nil {
		return fmt.Errorf("read metadata: %w", err)
	}
	current := models.DateRange{From: fromDate.String, To: toDate.String}
	if rng != nil {
		current = current.Union(*rng)
	}
	_, err = tx.Exec(
		`UPDATE _metadata SET row_count = row_count + ?, byte_size = byte_size + ?, from_date = ?, to_date = ? WHERE name = ?`,
		rowDelta, byteDelta, nullable(current.From), nullable(current.To), name)
	if err != nil {
		return fmt.Errorf("update metadata: %w", err)
	}
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func (e *Engine) dropLocked(name string) error {
	if _, err := e.db.Exec(fmt.Sprintf(`DROP TABLE IF EXISTS %q`, name)); err != nil {
		return fmt.Errorf("drop table %q: %w", name, err)
	}
	if _, err := e.db.Exec(`DELETE FROM _metadata WHERE name = ?`, name); err != nil {
		return fmt.Errorf("deregister table %q: %w", name, err)
	}
	return nil
}

// DropTable removes a table and its metadata.
func (e *Engine) DropTable(name string) error {
	if err := validateName(name); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	exists, err := e.exists(name)
	if err != nil {
		return err
	}
	if !exists {
		return mperrors.NewTableNotFound(name)
	}
	if err := e.dropLocked(name); err != nil {
		return err
	}
	e.logger.Debug().Str("table", name).Msg("table dropped")
	return nil
}

// DropAll removes every table, optionally filtered by kind.
func (e *Engine) DropAll(kind models.TableKind) (int, error) {
	tables, err := e.Tables(kind)
	if err != nil {
		return 0, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	dropped := 0
	for _, table := range tables {
		if err := e.dropLocked(table.Name); err != nil {
			return dropped, err
		}
		dropped++
	}
	return dropped, nil
}

// Tables lists registered tables, optionally filtered by kind.
func (e *Engine) Tables(kind models.TableKind) ([]models.TableMetadata, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	query := `SELECT name, kind, row_count, byte_size, created_at, from_date, to_date FROM _metadata ORDER BY name`
	args := []any{}
	if kind != "" {
		query = `SELECT name, kind, row_count, byte_size, created_at, from_date, to_date FROM _metadata WHERE kind = ? ORDER BY name`
		args = append(args, string(kind))
	}
	rows, err := e.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var tables []models.TableMetadata
	for rows.Next() {
		meta, err := scanMetadata(rows)
		if err != nil {
			return nil, err
		}
		tables = append(tables, meta)
	}
	return tables, rows.Err()
}

// Metadata returns the metadata record for one table.
func (e *Engine) Metadata(name string) (*models.TableMetadata, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	e.mu.RLock()
	defer e.mu.RUnlock()

	row := e.db.QueryRow(
		`SELECT name, kind, row_count, byte_size, created_at, from_date, to_date FROM _metadata WHERE name = ?`, name)
	meta, err := scanMetadata(row)
	if err == sql.ErrNoRows {
		return nil, mperrors.NewTableNotFound(name)
	}
	if err != nil {
		return nil, err
	}
	return &meta, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMetadata(r rowScanner) (models.TableMetadata, error) {
	var meta models.TableMetadata
	var kind string
	var createdAt time.Time
	var fromDate, toDate sql.NullString
	err := r.Scan(&meta.Name, &kind, &meta.RowCount, &meta.ByteSize, &createdAt, &fromDate, &toDate)
	if err != nil {
		return models.TableMetadata{}, err
	}
	meta.Kind = models.TableKind(kind)
	meta.CreatedAt = createdAt.UTC()
	meta.From = fromDate.String
	meta.To = toDate.String
	return meta, nil
}

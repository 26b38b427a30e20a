// Package workspace is the top-level entry point: one Workspace binds a
// credential bundle, a Provider client, and a local analytical store, and
// exposes every operation as a method. Construct with New, share freely
// across goroutines, and Close when done.
package workspace

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/catherinevee/mixport/internal/config"
	"github.com/catherinevee/mixport/internal/credentials"
	"github.com/catherinevee/mixport/internal/fetcher"
	"github.com/catherinevee/mixport/internal/livequery"
	"github.com/catherinevee/mixport/internal/storage"
	"github.com/catherinevee/mixport/internal/transport"
	"github.com/catherinevee/mixport/pkg/models"
)

// Options configures a Workspace. Credentials resolve in order: the explicit
// Username/Secret/ProjectID triple, then the MP_* environment quad, then the
// named or default account from the config file.
type Options struct {
	// Explicit credentials. All three of Username, Secret, and ProjectID
	// must be set for this path; Region defaults to us.
	Username  string
	Secret    string
	ProjectID string
	Region    string

	// Account names a config-file entry; empty selects the default account.
	Account string
	// ConfigPath overrides ~/.mixport/config.yaml.
	ConfigPath string

	// Path is the database file. Empty opens an in-memory store.
	Path string

	// Logger receives structured logs; nil disables logging.
	Logger *zerolog.Logger

	// HTTPTimeout bounds non-streaming Provider requests.
	HTTPTimeout time.Duration

	// QueryBaseURL and DataBaseURL override the regional endpoints. Tests
	// and proxies use these; leave empty for normal operation.
	QueryBaseURL string
	DataBaseURL  string
}

// Workspace is a live session against one Provider project and one local
// store.
type Workspace struct {
	creds  credentials.Credentials
	client *transport.Client
	store  *storage.Engine
	query  *livequery.Service
	fetch  *fetcher.Fetcher
	logger zerolog.Logger

	closeOnce sync.Once
	closeErr  error
}

// New opens a workspace.
func New(opts Options) (*Workspace, error) {
	creds, err := resolveCredentials(opts)
	if err != nil {
		return nil, err
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	clientOpts := []transport.Option{transport.WithLogger(logger)}
	if opts.HTTPTimeout > 0 {
		clientOpts = append(clientOpts, transport.WithTimeout(opts.HTTPTimeout))
	}
	if opts.QueryBaseURL != "" || opts.DataBaseURL != "" {
		clientOpts = append(clientOpts, transport.WithBaseURLs(opts.QueryBaseURL, opts.DataBaseURL))
	}
	client := transport.New(creds, clientOpts...)

	store, err := storage.Open(opts.Path, logger)
	if err != nil {
		client.Close()
		return nil, err
	}

	w := &Workspace{
		creds:  creds,
		client: client,
		store:  store,
		query:  livequery.New(client, logger),
		fetch:  fetcher.New(client, store, logger),
		logger: logger,
	}
	logger.Debug().Object("credentials", creds).Str("path", opts.Path).Msg("workspace opened")
	return w, nil
}

func resolveCredentials(opts Options) (credentials.Credentials, error) {
	if opts.Username != "" || opts.Secret != "" || opts.ProjectID != "" {
		region, err := credentials.ParseRegion(opts.Region)
		if err != nil {
			return credentials.Credentials{}, err
		}
		return credentials.New(opts.Username, opts.Secret, opts.ProjectID, region)
	}
	return config.Resolve(opts.Account, opts.ConfigPath)
}

// Close releases the Provider client and the store. Safe to call more than
// once; later calls return the first result.
func (w *Workspace) Close() error {
	w.closeOnce.Do(func() {
		w.client.Close()
		w.closeErr = w.store.Close()
		w.logger.Debug().Msg("workspace closed")
	})
	return w.closeErr
}

// ProjectID returns the bound project id.
func (w *Workspace) ProjectID() string {
	return w.creds.ProjectID
}

// Region returns the bound data-residency region.
func (w *Workspace) Region() string {
	return string(w.creds.Region)
}

// DatabasePath returns the store's backing file, empty for in-memory.
func (w *Workspace) DatabasePath() string {
	return w.store.Path()
}

// CreateTable creates an empty stored table of the given kind. replace
// drops any existing table of the same name first.
func (w *Workspace) CreateTable(name string, kind models.TableKind, replace bool) error {
	return w.store.CreateTable(name, kind, replace)
}

// Tables lists stored tables. kind filters when non-empty.
func (w *Workspace) Tables(kind models.TableKind) ([]models.TableMetadata, error) {
	return w.store.Tables(kind)
}

// TableMetadata returns one table's metadata record.
func (w *Workspace) TableMetadata(name string) (*models.TableMetadata, error) {
	return w.store.Metadata(name)
}

// TableExists reports whether a table is present.
func (w *Workspace) TableExists(name string) (bool, error) {
	return w.store.Exists(name)
}

// Schema returns a table's column layout.
func (w *Workspace) Schema(name string) ([]models.ColumnInfo, error) {
	return w.store.Schema(name)
}

// Sample returns up to n rows of a table.
func (w *Workspace) Sample(name string, n int) (*models.SQLResult, error) {
	return w.store.Sample(name, n)
}

// SQL runs an arbitrary query against the store.
func (w *Workspace) SQL(query string) (*models.SQLResult, error) {
	return w.store.SQL(query)
}

// SQLScalar runs a query expected to yield a single value.
func (w *Workspace) SQLScalar(query string) (any, error) {
	return w.store.SQLScalar(query)
}

// PropertyKeys returns the distinct top-level keys of a table's properties
// column, sorted.
func (w *Workspace) PropertyKeys(table string) ([]string, error) {
	return w.store.JSONKeys(table, "properties")
}

// ColumnStats computes summary statistics for one column.
func (w *Workspace) ColumnStats(table, column string) (*models.ColumnStats, error) {
	return w.store.ColumnStats(table, column)
}

// Summarize computes per-column statistics for a whole table.
func (w *Workspace) Summarize(name string) ([]models.ColumnStats, error) {
	return w.store.Summarize(name)
}

// DropTable removes a table and its metadata.
func (w *Workspace) DropTable(name string) error {
	return w.store.DropTable(name)
}

// DropAll removes every table, optionally filtered by kind. It returns the
// number of tables dropped.
func (w *Workspace) DropAll(kind models.TableKind) (int, error) {
	return w.store.DropAll(kind)
}

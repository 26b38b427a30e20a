// Package fetcher moves bulk export data into the local store. The
// sequential fetcher consumes one stream into batched appends; the parallel
// fetcher shards work across calendar days (events) or engage pages
// (profiles), fans reads out over a worker pool, and funnels every write
// through a single writer goroutine to honor the store's single-writer
// invariant.
package fetcher

import (
	"sort"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	mperrors "github.com/catherinevee/mixport/internal/errors"
	"github.com/catherinevee/mixport/internal/transport"
	"github.com/catherinevee/mixport/pkg/models"
)

const (
	defaultBatchSize = 1000
	defaultWorkers   = 5

	// Worker ceilings per the Provider's budgets: engage allows 5
	// concurrent queries; the export endpoint tolerates more but is capped
	// at its concurrency budget.
	maxProfileWorkers = 5
	maxEventWorkers   = 100
)

const dateLayout = "2006-01-02"

// Store is the storage surface a fetch needs. *storage.Engine satisfies it;
// the indirection lets tests observe write traffic.
type Store interface {
	Exists(name string) (bool, error)
	CreateTable(name string, kind models.TableKind, replace bool) error
	AppendEvents(table string, rows []models.EventRecord, rng *models.DateRange) error
	AppendProfiles(table string, rows []models.ProfileRecord) error
}

// Fetcher acquires Provider data into the storage engine.
type Fetcher struct {
	client    *transport.Client
	store     Store
	logger    zerolog.Logger
	batchSize int
}

// New creates a Fetcher over the given transport and store.
func New(client *transport.Client, store Store, logger zerolog.Logger) *Fetcher {
	return &Fetcher{
		client:    client,
		store:     store,
		logger:    logger,
		batchSize: defaultBatchSize,
	}
}

// EventFetchOptions parameterizes an event fetch. From and To are inclusive
// calendar dates. Exactly one of Append or Replace must be set when the
// target table already exists.
type EventFetchOptions struct {
	Table    string
	From     string
	To       string
	Events   []string
	Where    string
	Append   bool
	Replace  bool
	Workers  int
	Progress func(models.ParallelFetchProgress)
}

// ProfileFetchOptions parameterizes a profile fetch.
type ProfileFetchOptions struct {
	Table            string
	Where            string
	CohortID         string
	OutputProperties []string
	Append           bool
	Replace          bool
	Workers          int
	Progress         func(models.ParallelFetchProgress)
}

// prepareTable enforces the fetch-target precondition: an existing table
// fails unless append or replace is explicit, and append requires the table
// to exist already.
func (f *Fetcher) prepareTable(name string, kind models.TableKind, appendTo, replace bool) error {
	if appendTo {
		exists, err := f.store.Exists(name)
		if err != nil {
			return err
		}
		if !exists {
			return mperrors.NewTableNotFound(name)
		}
		return nil
	}
	return f.store.CreateTable(name, kind, replace)
}

// dateSlices enumerates the calendar days of an inclusive range.
func dateSlices(from, to string) ([]string, error) {
	start, err := time.Parse(dateLayout, from)
	if err != nil {
		return nil, mperrors.Newf(mperrors.KindQuery, "invalid from date %q", from)
	}
	end, err := time.Parse(dateLayout, to)
	if err != nil {
		return nil, mperrors.Newf(mperrors.KindQuery, "invalid to date %q", to)
	}
	if end.Before(start) {
		return nil, mperrors.Newf(mperrors.KindQuery, "date range %s..%s is inverted", from, to)
	}
	var days []string
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		days = append(days, d.Format(dateLayout))
	}
	return days, nil
}

// sortSliceKeys orders slice keys naturally: numeric page indices by value,
// calendar dates lexically.
func sortSliceKeys(keys []string) {
	sort.Slice(keys, func(i, j int) bool {
		a, aerr := strconv.Atoi(keys[i])
		b, berr := strconv.Atoi(keys[j])
		if aerr == nil && berr == nil {
			return a < b
		}
		return keys[i] < keys[j]
	})
}

package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catherinevee/mixport/internal/credentials"
	mperrors "github.com/catherinevee/mixport/internal/errors"
	"github.com/catherinevee/mixport/internal/retry"
	"github.com/catherinevee/mixport/internal/storage"
	"github.com/catherinevee/mixport/internal/transport"
	"github.com/catherinevee/mixport/pkg/models"
)

func newTestClient(t *testing.T, handler http.Handler) *transport.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	creds, err := credentials.New("svc.test", "secret", "12345", credentials.RegionUS)
	require.NoError(t, err)
	client := transport.New(creds,
		transport.WithBaseURLs(server.URL, server.URL),
		transport.WithRetryPolicy(retry.Policy{MaxAttempts: 2, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Multiplier: 2}),
	)
	t.Cleanup(client.Close)
	return client
}

func newTestFetcher(t *testing.T, handler http.Handler) (*Fetcher, *storage.Engine) {
	t.Helper()
	client := newTestClient(t, handler)

	store, err := storage.Open("", zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return New(client, store, zerolog.Nop()), store
}

// exportFixture serves a per-day event export. Days listed in fail always
// return 500; days listed in empty succeed with no rows.
type exportFixture struct {
	mu         sync.Mutex
	rowsPerDay int
	fail       map[string]bool
	empty      map[string]bool
	days       []string
}

func (f *exportFixture) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	day := r.URL.Query().Get("from_date")
	f.mu.Lock()
	f.days = append(f.days, day)
	failed := f.fail[day]
	f.mu.Unlock()

	if failed {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	if f.empty[day] {
		return
	}
	ts, _ := time.Parse("2006-01-02", day)
	for i := 0; i < f.rowsPerDay; i++ {
		fmt.Fprintf(w, `{"event": "signup", "properties": {"distinct_id": "u-%s-%d", "time": %d, "$insert_id": "ins-%s-%d"}}`+"\n",
			day, i, ts.Unix()+int64(i), day, i)
	}
}

func TestFetchEventsSequential(t *testing.T) {
	fixture := &exportFixture{rowsPerDay: 7}
	f, store := newTestFetcher(t, fixture)

	result, err := f.FetchEvents(context.Background(), EventFetchOptions{
		Table: "ev", From: "2024-01-01", To: "2024-01-01",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(7), result.Rows)
	assert.Equal(t, models.TableKindEvents, result.Kind)
	require.NotNil(t, result.Range)
	assert.Equal(t, "2024-01-01", result.Range.From)

	n, err := store.SQLScalar(`SELECT COUNT(*) FROM "ev"`)
	require.NoError(t, err)
	assert.EqualValues(t, 7, n)
}

func TestFetchEventsBatchesCommits(t *testing.T) {
	fixture := &exportFixture{rowsPerDay: 9}
	f, store := newTestFetcher(t, fixture)
	f.batchSize = 4

	result, err := f.FetchEvents(context.Background(), EventFetchOptions{
		Table: "ev", From: "2024-01-01", To: "2024-01-01",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(9), result.Rows)

	n, err := store.SQLScalar(`SELECT COUNT(*) FROM "ev"`)
	require.NoError(t, err)
	assert.EqualValues(t, 9, n)
}

func TestFetchEventsMidStreamFailureKeepsCommittedBatches(t *testing.T) {
	// Three good records, then a malformed line the normalizer rejects.
	f, store := newTestFetcher(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for i := 0; i < 3; i++ {
			fmt.Fprintf(w, `{"event": "signup", "properties": {"distinct_id": "u%d", "time": %d, "$insert_id": "i%d"}}`+"\n", i, 1700000000+i, i)
		}
		fmt.Fprintln(w, `{"properties": {}}`)
	}))
	f.batchSize = 2

	_, err := f.FetchEvents(context.Background(), EventFetchOptions{
		Table: "ev", From: "2024-01-01", To: "2024-01-01",
	})
	require.Error(t, err)
	assert.True(t, mperrors.IsKind(err, mperrors.KindProtocol))

	// The first full batch committed before the stream broke.
	n, err := store.SQLScalar(`SELECT COUNT(*) FROM "ev"`)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}

func TestFetchEventsInvalidRange(t *testing.T) {
	f, store := newTestFetcher(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	_, err := f.FetchEvents(context.Background(), EventFetchOptions{
		Table: "ev", From: "2024-01-05", To: "2024-01-01",
	})
	assert.True(t, mperrors.IsKind(err, mperrors.KindQuery))

	// Validation failed before the table was created.
	exists, err := store.Exists("ev")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestPrepareTablePreconditions(t *testing.T) {
	f, store := newTestFetcher(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	require.NoError(t, store.CreateTable("taken", models.TableKindEvents, false))

	t.Run("existing table without flags", func(t *testing.T) {
		err := f.prepareTable("taken", models.TableKindEvents, false, false)
		assert.True(t, mperrors.IsKind(err, mperrors.KindTableExists))
	})

	t.Run("append requires existing table", func(t *testing.T) {
		err := f.prepareTable("absent", models.TableKindEvents, true, false)
		assert.True(t, mperrors.IsKind(err, mperrors.KindTableNotFound))
	})

	t.Run("append to existing", func(t *testing.T) {
		assert.NoError(t, f.prepareTable("taken", models.TableKindEvents, true, false))
	})

	t.Run("replace existing", func(t *testing.T) {
		assert.NoError(t, f.prepareTable("taken", models.TableKindEvents, false, true))
	})
}

func TestDateSlices(t *testing.T) {
	days, err := dateSlices("2024-02-27", "2024-03-02")
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-02-27", "2024-02-28", "2024-02-29", "2024-03-01", "2024-03-02"}, days)

	days, err = dateSlices("2024-01-01", "2024-01-01")
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-01-01"}, days)

	_, err = dateSlices("yesterday", "2024-01-01")
	assert.True(t, mperrors.IsKind(err, mperrors.KindQuery))
}

func TestSortSliceKeys(t *testing.T) {
	pages := []string{"10", "2", "1", "0"}
	sortSliceKeys(pages)
	assert.Equal(t, []string{"0", "1", "2", "10"}, pages)

	dates := []string{"2024-01-10", "2024-01-02", "2024-01-01"}
	sortSliceKeys(dates)
	assert.Equal(t, []string{"2024-01-01", "2024-01-02", "2024-01-10"}, dates)
}

func TestFetchEventsParallelPartialFailure(t *testing.T) {
	fixture := &exportFixture{rowsPerDay: 4, fail: map[string]bool{"2024-01-02": true}}
	f, store := newTestFetcher(t, fixture)

	var mu sync.Mutex
	var seen []models.ParallelFetchProgress
	result, err := f.FetchEventsParallel(context.Background(), EventFetchOptions{
		Table: "ev", From: "2024-01-01", To: "2024-01-03", Workers: 3,
		Progress: func(p models.ParallelFetchProgress) {
			mu.Lock()
			seen = append(seen, p)
			mu.Unlock()
		},
	})
	require.NoError(t, err)

	assert.Equal(t, int64(8), result.TotalRows)
	assert.Equal(t, 2, result.Successful)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, []string{"2024-01-02"}, result.FailedSliceKeys)
	assert.True(t, result.HasFailures())

	// Surviving slices committed in full.
	n, err := store.SQLScalar(`SELECT COUNT(*) FROM "ev"`)
	require.NoError(t, err)
	assert.EqualValues(t, 8, n)

	// One progress report per slice, serialized by the writer.
	require.Len(t, seen, 3)
	for _, p := range seen {
		assert.Equal(t, 3, p.SliceTotal)
	}
}

func TestFetchEventsParallelDeterministicAcrossWorkerCounts(t *testing.T) {
	counts := make(map[int]any)
	for _, workers := range []int{1, 4} {
		fixture := &exportFixture{rowsPerDay: 3}
		f, store := newTestFetcher(t, fixture)

		result, err := f.FetchEventsParallel(context.Background(), EventFetchOptions{
			Table: "ev", From: "2024-01-01", To: "2024-01-05", Workers: workers,
		})
		require.NoError(t, err)
		assert.Equal(t, 5, result.Successful)

		n, err := store.SQLScalar(`SELECT COUNT(DISTINCT insert_id) FROM "ev"`)
		require.NoError(t, err)
		counts[workers] = n
	}
	assert.Equal(t, counts[1], counts[4])
	assert.EqualValues(t, 15, counts[1])
}

// concurrencyStore tracks the high-water mark of in-flight appends.
type concurrencyStore struct {
	*storage.Engine
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (s *concurrencyStore) enter() {
	n := s.inFlight.Add(1)
	for {
		p := s.peak.Load()
		if n <= p || s.peak.CompareAndSwap(p, n) {
			return
		}
	}
}

func (s *concurrencyStore) AppendEvents(table string, rows []models.EventRecord, rng *models.DateRange) error {
	s.enter()
	defer s.inFlight.Add(-1)
	// Hold the write open long enough for a second writer to overlap if one
	// ever existed.
	time.Sleep(time.Millisecond)
	return s.Engine.AppendEvents(table, rows, rng)
}

func (s *concurrencyStore) AppendProfiles(table string, rows []models.ProfileRecord) error {
	s.enter()
	defer s.inFlight.Add(-1)
	time.Sleep(time.Millisecond)
	return s.Engine.AppendProfiles(table, rows)
}

func TestFetchEventsParallelSingleWriter(t *testing.T) {
	fixture := &exportFixture{rowsPerDay: 6}
	client := newTestClient(t, fixture)

	engine, err := storage.Open("", zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { engine.Close() })
	cs := &concurrencyStore{Engine: engine}

	f := New(client, cs, zerolog.Nop())
	f.batchSize = 2

	result, err := f.FetchEventsParallel(context.Background(), EventFetchOptions{
		Table: "ev", From: "2024-01-01", To: "2024-01-10", Workers: 5,
	})
	require.NoError(t, err)
	assert.Equal(t, 10, result.Successful)
	assert.Equal(t, int64(60), result.TotalRows)

	assert.EqualValues(t, 1, cs.peak.Load())
}

func TestFetchEventsParallelEmptyDayOutsideMetadataRange(t *testing.T) {
	fixture := &exportFixture{rowsPerDay: 3, empty: map[string]bool{"2024-01-02": true}}
	f, store := newTestFetcher(t, fixture)

	result, err := f.FetchEventsParallel(context.Background(), EventFetchOptions{
		Table: "ev", From: "2024-01-01", To: "2024-01-02",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Successful)
	assert.Equal(t, 0, result.Failed)
	assert.Equal(t, int64(3), result.TotalRows)

	// A zero-row slice appends nothing, so the covered range reflects only
	// the days that landed rows.
	meta, err := store.Metadata("ev")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01", meta.From)
	assert.Equal(t, "2024-01-01", meta.To)
}

func TestFetchEventsParallelCancelledContext(t *testing.T) {
	fixture := &exportFixture{rowsPerDay: 1}
	f, _ := newTestFetcher(t, fixture)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := f.FetchEventsParallel(ctx, EventFetchOptions{
		Table: "ev", From: "2024-01-01", To: "2024-01-03",
	})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Failed)
	assert.Equal(t, int64(0), result.TotalRows)
}

// engageFixture serves a paged profile export. When status is nonzero every
// request fails with it.
type engageFixture struct {
	mu       sync.Mutex
	total    int
	pageSize int
	status   int
	requests []string
}

func (f *engageFixture) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if f.status != 0 {
		w.WriteHeader(f.status)
		return
	}
	r.ParseForm()
	page := 0
	fmt.Sscanf(r.PostFormValue("page"), "%d", &page)
	f.mu.Lock()
	f.requests = append(f.requests, r.PostFormValue("page")+"/"+r.PostFormValue("session_id"))
	f.mu.Unlock()

	start := page * f.pageSize
	end := start + f.pageSize
	if end > f.total {
		end = f.total
	}
	fmt.Fprintf(w, `{"page": %d, "page_size": %d, "total": %d, "session_id": "sess-9", "results": [`, page, f.pageSize, f.total)
	for i := start; i < end; i++ {
		if i > start {
			fmt.Fprint(w, ",")
		}
		fmt.Fprintf(w, `{"$distinct_id": "u%d", "$properties": {"n": %d}}`, i, i)
	}
	fmt.Fprint(w, `]}`)
}

func TestFetchProfilesParallel(t *testing.T) {
	fixture := &engageFixture{total: 7, pageSize: 3}
	f, store := newTestFetcher(t, fixture)

	result, err := f.FetchProfilesParallel(context.Background(), ProfileFetchOptions{
		Table: "prof", Workers: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(7), result.TotalRows)
	assert.Equal(t, 3, result.Successful)
	assert.Equal(t, 0, result.Failed)

	n, err := store.SQLScalar(`SELECT COUNT(DISTINCT distinct_id) FROM "prof"`)
	require.NoError(t, err)
	assert.EqualValues(t, 7, n)

	// The probe has no session id; scheduled pages carry the probe's.
	fixture.mu.Lock()
	defer fixture.mu.Unlock()
	require.Len(t, fixture.requests, 3)
	assert.Equal(t, "/", fixture.requests[0])
	assert.ElementsMatch(t, []string{"1/sess-9", "2/sess-9"}, fixture.requests[1:])
}

func TestFetchProfilesParallelAuthFailureLeavesNoTable(t *testing.T) {
	fixture := &engageFixture{status: http.StatusUnauthorized}
	f, store := newTestFetcher(t, fixture)

	_, err := f.FetchProfilesParallel(context.Background(), ProfileFetchOptions{Table: "prof"})
	require.Error(t, err)
	assert.True(t, mperrors.IsKind(err, mperrors.KindAuth))

	exists, err := store.Exists("prof")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestFetchProfilesParallelEmptyProject(t *testing.T) {
	fixture := &engageFixture{total: 0, pageSize: 1000}
	f, store := newTestFetcher(t, fixture)

	result, err := f.FetchProfilesParallel(context.Background(), ProfileFetchOptions{Table: "prof"})
	require.NoError(t, err)
	assert.Equal(t, int64(0), result.TotalRows)
	assert.Equal(t, 1, result.Successful)

	// The empty probe still creates the table.
	exists, err := store.Exists("prof")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestWriteSliceBatches(t *testing.T) {
	f, store := newTestFetcher(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	f.batchSize = 3
	require.NoError(t, store.CreateTable("ev", models.TableKindEvents, false))

	events := make([]models.EventRecord, 10)
	for i := range events {
		events[i] = models.EventRecord{
			Name:       "e",
			Time:       time.Unix(1700000000+int64(i), 0).UTC(),
			DistinctID: fmt.Sprintf("u%d", i),
			InsertID:   fmt.Sprintf("i%d", i),
			Properties: map[string]any{},
		}
	}
	task := writeTask{key: "2024-01-01", events: events, rng: &models.DateRange{From: "2024-01-01", To: "2024-01-01"}}
	require.NoError(t, f.writeSlice("ev", task))

	n, err := store.SQLScalar(`SELECT COUNT(*) FROM "ev"`)
	require.NoError(t, err)
	assert.EqualValues(t, 10, n)
}

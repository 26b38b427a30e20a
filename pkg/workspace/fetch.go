package workspace

import (
	"context"

	"github.com/catherinevee/mixport/internal/export"
	"github.com/catherinevee/mixport/internal/fetcher"
	"github.com/catherinevee/mixport/pkg/models"
)

// EventFetchOptions parameterizes FetchEvents and FetchEventsParallel. From
// and To are inclusive calendar dates. An existing target table fails the
// fetch unless Append or Replace is set; Append requires it to exist.
type EventFetchOptions struct {
	Table   string
	From    string
	To      string
	Events  []string
	Where   string
	Append  bool
	Replace bool

	// Workers applies to the parallel variant only. Zero picks the default;
	// values above the export concurrency budget are reduced.
	Workers int

	// Progress, when set, receives one callback per completed slice during a
	// parallel fetch. Callbacks arrive serialized from a single goroutine.
	Progress func(models.ParallelFetchProgress)
}

// ProfileFetchOptions parameterizes FetchProfiles and FetchProfilesParallel.
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

// FetchEvents streams an event export into a stored table sequentially.
func (w *Workspace) FetchEvents(ctx context.Context, opts EventFetchOptions) (*models.FetchResult, error) {
	return w.fetch.FetchEvents(ctx, fetcher.EventFetchOptions(opts))
}

// FetchEventsParallel fetches an event export with day-sliced concurrency.
// The stored rows are independent of worker count and completion order;
// failed slices are reported, not fatal.
func (w *Workspace) FetchEventsParallel(ctx context.Context, opts EventFetchOptions) (*models.ParallelFetchResult, error) {
	return w.fetch.FetchEventsParallel(ctx, fetcher.EventFetchOptions(opts))
}

// FetchProfiles streams a profile export into a stored table sequentially.
func (w *Workspace) FetchProfiles(ctx context.Context, opts ProfileFetchOptions) (*models.FetchResult, error) {
	return w.fetch.FetchProfiles(ctx, fetcher.ProfileFetchOptions(opts))
}

// FetchProfilesParallel fetches a profile export with page-sliced
// concurrency.
func (w *Workspace) FetchProfilesParallel(ctx context.Context, opts ProfileFetchOptions) (*models.ParallelFetchResult, error) {
	return w.fetch.FetchProfilesParallel(ctx, fetcher.ProfileFetchOptions(opts))
}

// EventStreamOptions parameterizes StreamEvents. Raw yields undecoded
// Provider envelopes instead of normalized records.
type EventStreamOptions struct {
	From   string
	To     string
	Events []string
	Where  string
	Raw    bool
}

// EventStream iterates exported events lazily, one at a time, in Provider
// order. The stream is finite and not restartable.
type EventStream struct {
	s *export.EventStream
}

// StreamEvents opens an event export stream without storing anything.
func (w *Workspace) StreamEvents(ctx context.Context, opts EventStreamOptions) (*EventStream, error) {
	s, err := export.Events(ctx, w.client, export.EventExportQuery(opts))
	if err != nil {
		return nil, err
	}
	return &EventStream{s: s}, nil
}

// Next advances the stream. It returns false at end of stream or on error;
// Err distinguishes the two.
func (s *EventStream) Next() bool { return s.s.Next() }

// Event returns the normalized record from the last successful Next. Only
// valid for non-raw streams.
func (s *EventStream) Event() models.EventRecord { return s.s.Event() }

// Raw returns the undecoded envelope from the last successful Next.
func (s *EventStream) Raw() any { return s.s.Raw() }

// Err returns the first error encountered, if any.
func (s *EventStream) Err() error { return s.s.Err() }

// Close releases the underlying connection. Abandoning a stream without
// Close leaks it.
func (s *EventStream) Close() error { return s.s.Close() }

// ProfileStreamOptions parameterizes StreamProfiles.
type ProfileStreamOptions struct {
	Where            string
	CohortID         string
	OutputProperties []string
	Raw              bool
}

// ProfileStream iterates exported profiles lazily, concatenating engage
// pages transparently.
type ProfileStream struct {
	s *export.ProfileStream
}

// StreamProfiles opens a profile export stream without storing anything. The
// first Provider call happens on the first Next.
func (w *Workspace) StreamProfiles(ctx context.Context, opts ProfileStreamOptions) *ProfileStream {
	return &ProfileStream{s: export.Profiles(ctx, w.client, export.ProfileExportQuery(opts))}
}

// Next advances the stream, fetching pages as needed.
func (s *ProfileStream) Next() bool { return s.s.Next() }

// Profile returns the normalized record from the last successful Next. Only
// valid for non-raw streams.
func (s *ProfileStream) Profile() models.ProfileRecord { return s.s.Profile() }

// Raw returns the Provider envelope from the last successful Next.
func (s *ProfileStream) Raw() map[string]any { return s.s.Raw() }

// Err returns the first error encountered, if any.
func (s *ProfileStream) Err() error { return s.s.Err() }

// Close ends the stream early.
func (s *ProfileStream) Close() error { return s.s.Close() }

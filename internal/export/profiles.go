package export

import (
	"context"

	"github.com/catherinevee/mixport/internal/shape"
	"github.com/catherinevee/mixport/internal/transport"
	"github.com/catherinevee/mixport/pkg/models"
)

// ProfileExportQuery parameterizes a profile export.
type ProfileExportQuery struct {
	Where            string
	CohortID         string
	OutputProperties []string
	Raw              bool
}

// ProfileStream yields profiles one at a time, concatenating engage pages
// transparently. The first page's session id is reused for every later page
// so the export stays consistent.
type ProfileStream struct {
	ctx    context.Context
	client *transport.Client
	query  ProfileExportQuery

	sessionID string
	page      int
	total     int
	pageSize  int
	started   bool
	done      bool

	buffer  []map[string]any
	idx     int
	current map[string]any
	profile models.ProfileRecord
	err     error
}

// Profiles opens a profile export stream. The first Provider call happens
// lazily on the first Next.
func Profiles(ctx context.Context, client *transport.Client, q ProfileExportQuery) *ProfileStream {
	return &ProfileStream{ctx: ctx, client: client, query: q}
}

// Next advances to the next profile, fetching pages as needed.
func (s *ProfileStream) Next() bool {
	if s.err != nil || (s.done && s.idx >= len(s.buffer)) {
		return false
	}
	for s.idx >= len(s.buffer) {
		if s.done {
			return false
		}
		if !s.fetchPage() {
			return false
		}
	}
	s.current = s.buffer[s.idx]
	s.idx++
	if !s.query.Raw {
		profile, err := shape.NormalizeProfile(s.current)
		if err != nil {
			s.err = err
			return false
		}
		s.profile = profile
	}
	return true
}

// fetchPage pulls the next engage page into the buffer. It reports whether
// any records became available.
func (s *ProfileStream) fetchPage() bool {
	q := transport.EngageQuery{
		Where:            s.query.Where,
		CohortID:         s.query.CohortID,
		OutputProperties: s.query.OutputProperties,
		Page:             s.page,
		SessionID:        s.sessionID,
	}
	page, err := s.client.QueryEngagePage(s.ctx, q)
	if err != nil {
		s.err = err
		s.done = true
		return false
	}
	if !s.started {
		s.started = true
		s.sessionID = page.SessionID
		s.total = page.Total
		s.pageSize = page.PageSize
	}
	s.buffer = page.Results
	s.idx = 0
	if !page.HasMore() || len(page.Results) == 0 {
		s.done = true
	}
	s.page++
	return len(page.Results) > 0
}

// Profile returns the normalized record from the last successful Next. Only
// valid for non-raw streams.
func (s *ProfileStream) Profile() models.ProfileRecord {
	return s.profile
}

// Raw returns the Provider envelope from the last successful Next.
func (s *ProfileStream) Raw() map[string]any {
	return s.current
}

// Err returns the first error encountered, if any.
func (s *ProfileStream) Err() error {
	return s.err
}

// Close ends the stream early. Pages are request-scoped, so there is no
// connection to release; Close just stops further fetches.
func (s *ProfileStream) Close() error {
	s.done = true
	s.buffer = nil
	s.idx = 0
	return nil
}

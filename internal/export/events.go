// Package export produces lazy, single-pass streams over the Provider's
// bulk endpoints: raw event export (newline-delimited JSON) and paged
// profile export. Streams are finite and not restartable; iterating again
// means a fresh call to the Provider.
package export

import (
	"context"
	"encoding/json"
	"net/url"

	"github.com/catherinevee/mixport/internal/shape"
	"github.com/catherinevee/mixport/internal/transport"
	"github.com/catherinevee/mixport/pkg/models"
)

// ExportEndpoint is the raw event export path under the data base URL.
const ExportEndpoint = "/2.0/export"

// EventExportQuery parameterizes an event export. From and To are inclusive
// calendar dates in the project timezone, passed to the Provider verbatim.
type EventExportQuery struct {
	From   string
	To     string
	Events []string
	Where  string
	Raw    bool
}

func (q EventExportQuery) params() (url.Values, error) {
	params := url.Values{}
	params.Set("from_date", q.From)
	params.Set("to_date", q.To)
	if len(q.Events) > 0 {
		encoded, err := json.Marshal(q.Events)
		if err != nil {
			return nil, err
		}
		params.Set("event", string(encoded))
	}
	if q.Where != "" {
		params.Set("where", q.Where)
	}
	return params, nil
}

// EventStream yields exported events one at a time in Provider order.
type EventStream struct {
	ndjson *transport.NDJSONStream
	raw    bool
	event  models.EventRecord
	err    error
}

// Events opens an event export stream. When the query is not raw, each
// record is normalized as it is read.
func Events(ctx context.Context, client *transport.Client, q EventExportQuery) (*EventStream, error) {
	params, err := q.params()
	if err != nil {
		return nil, err
	}
	ndjson, err := client.StreamNDJSON(ctx, ExportEndpoint, params)
	if err != nil {
		return nil, err
	}
	return &EventStream{ndjson: ndjson, raw: q.Raw}, nil
}

// Next advances to the next record. It returns false at end of stream or on
// error; Err distinguishes the two.
func (s *EventStream) Next() bool {
	if s.err != nil {
		return false
	}
	if !s.ndjson.Next() {
		return false
	}
	if s.raw {
		return true
	}
	event, err := shape.NormalizeEvent(s.ndjson.Value())
	if err != nil {
		s.err = err
		s.ndjson.Close()
		return false
	}
	s.event = event
	return true
}

// Event returns the normalized record from the last successful Next. Only
// valid for non-raw streams.
func (s *EventStream) Event() models.EventRecord {
	return s.event
}

// Raw returns the undecoded Provider envelope from the last successful
// Next.
func (s *EventStream) Raw() any {
	return s.ndjson.Value()
}

// Err returns the first error encountered, if any.
func (s *EventStream) Err() error {
	if s.err != nil {
		return s.err
	}
	return s.ndjson.Err()
}

// Close releases the underlying connection.
func (s *EventStream) Close() error {
	return s.ndjson.Close()
}

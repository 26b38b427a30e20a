package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/catherinevee/mixport/pkg/models"
)

// EngageEndpoint is the paged profile-export endpoint.
const EngageEndpoint = "/query/engage"

// EngageQuery parameterizes one page of the profile export. SessionID is
// empty for the page-0 probe and carries the Provider's session for every
// later page so the export stays consistent.
type EngageQuery struct {
	Where            string
	CohortID         string
	OutputProperties []string
	Page             int
	SessionID        string
}

// params serializes the query. List parameters go over the wire as JSON
// arrays.
func (q EngageQuery) params() (url.Values, error) {
	params := url.Values{}
	if q.Where != "" {
		params.Set("where", q.Where)
	}
	if q.CohortID != "" {
		params.Set("filter_by_cohort", `{"id":`+q.CohortID+`}`)
	}
	if len(q.OutputProperties) > 0 {
		encoded, err := json.Marshal(q.OutputProperties)
		if err != nil {
			return nil, err
		}
		params.Set("output_properties", string(encoded))
	}
	if q.Page > 0 {
		params.Set("page", strconv.Itoa(q.Page))
	}
	if q.SessionID != "" {
		params.Set("session_id", q.SessionID)
	}
	return params, nil
}

// QueryEngagePage fetches one profile page, surfacing the Provider's full
// envelope: total, page size, session id, page index, and raw results.
func (c *Client) QueryEngagePage(ctx context.Context, q EngageQuery) (*models.EngagePage, error) {
	params, err := q.params()
	if err != nil {
		return nil, err
	}
	var page models.EngagePage
	if err := c.requestStruct(ctx, http.MethodPost, EngageEndpoint, params, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

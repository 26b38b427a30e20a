// Package livequery wraps the Provider's analytical query endpoints, one
// method per endpoint. Each method validates its options before any network
// I/O, issues one request through the transport, and shapes the envelope
// into a typed result.
package livequery

import (
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	mperrors "github.com/catherinevee/mixport/internal/errors"
	"github.com/catherinevee/mixport/internal/transport"
)

// Service issues live analytical queries.
type Service struct {
	client   *transport.Client
	validate *validator.Validate
	logger   zerolog.Logger
}

// New creates a query service over the given transport.
func New(client *transport.Client, logger zerolog.Logger) *Service {
	return &Service{
		client:   client,
		validate: validator.New(),
		logger:   logger,
	}
}

// check validates a query-option struct. Violations are caller errors and
// fail before any request is issued.
func (s *Service) check(q any) error {
	if err := s.validate.Struct(q); err != nil {
		return mperrors.Newf(mperrors.KindQuery, "invalid query options: %v", err)
	}
	return nil
}

func invalidQuery(msg string) error {
	return mperrors.NewQuery(msg)
}

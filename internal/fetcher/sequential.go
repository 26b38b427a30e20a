package fetcher

import (
	"context"
	"time"

	"github.com/catherinevee/mixport/internal/export"
	"github.com/catherinevee/mixport/pkg/models"
)

// FetchEvents streams one event export into the target table, committing in
// batches. On mid-stream failure the table keeps every batch committed so
// far and the error is returned.
func (f *Fetcher) FetchEvents(ctx context.Context, opts EventFetchOptions) (*models.FetchResult, error) {
	if _, err := dateSlices(opts.From, opts.To); err != nil {
		return nil, err
	}
	if err := f.prepareTable(opts.Table, models.TableKindEvents, opts.Append, opts.Replace); err != nil {
		return nil, err
	}

	started := time.Now()
	rng := models.DateRange{From: opts.From, To: opts.To}
	stream, err := export.Events(ctx, f.client, export.EventExportQuery{
		From:   opts.From,
		To:     opts.To,
		Events: opts.Events,
		Where:  opts.Where,
	})
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	var total int64
	batch := make([]models.EventRecord, 0, f.batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := f.store.AppendEvents(opts.Table, batch, &rng); err != nil {
			return err
		}
		total += int64(len(batch))
		batch = batch[:0]
		return nil
	}

	for stream.Next() {
		batch = append(batch, stream.Event())
		if len(batch) >= f.batchSize {
			if err := flush(); err != nil {
				return nil, err
			}
		}
	}
	if err := stream.Err(); err != nil {
		// Committed batches stay in place; only the tail is lost.
		f.logger.Warn().Str("table", opts.Table).Int64("rows", total).Err(err).
			Msg("event fetch aborted mid-stream")
		return nil, err
	}
	if err := flush(); err != nil {
		return nil, err
	}

	f.logger.Info().Str("table", opts.Table).Int64("rows", total).
		Dur("elapsed", time.Since(started)).Msg("event fetch complete")
	return &models.FetchResult{
		Table:     opts.Table,
		Rows:      total,
		Kind:      models.TableKindEvents,
		Range:     &rng,
		Duration:  time.Since(started),
		FetchedAt: time.Now().UTC(),
	}, nil
}

// FetchProfiles streams one paged profile export into the target table.
func (f *Fetcher) FetchProfiles(ctx context.Context, opts ProfileFetchOptions) (*models.FetchResult, error) {
	if err := f.prepareTable(opts.Table, models.TableKindProfiles, opts.Append, opts.Replace); err != nil {
		return nil, err
	}

	started := time.Now()
	stream := export.Profiles(ctx, f.client, export.ProfileExportQuery{
		Where:            opts.Where,
		CohortID:         opts.CohortID,
		OutputProperties: opts.OutputProperties,
	})
	defer stream.Close()

	var total int64
	batch := make([]models.ProfileRecord, 0, f.batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := f.store.AppendProfiles(opts.Table, batch); err != nil {
			return err
		}
		total += int64(len(batch))
		batch = batch[:0]
		return nil
	}

	for stream.Next() {
		batch = append(batch, stream.Profile())
		if len(batch) >= f.batchSize {
			if err := flush(); err != nil {
				return nil, err
			}
		}
	}
	if err := stream.Err(); err != nil {
		f.logger.Warn().Str("table", opts.Table).Int64("rows", total).Err(err).
			Msg("profile fetch aborted mid-stream")
		return nil, err
	}
	if err := flush(); err != nil {
		return nil, err
	}

	f.logger.Info().Str("table", opts.Table).Int64("rows", total).
		Dur("elapsed", time.Since(started)).Msg("profile fetch complete")
	return &models.FetchResult{
		Table:     opts.Table,
		Rows:      total,
		Kind:      models.TableKindProfiles,
		Duration:  time.Since(started),
		FetchedAt: time.Now().UTC(),
	}, nil
}

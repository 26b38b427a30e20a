package fetcher

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/catherinevee/mixport/internal/shape"
	"github.com/catherinevee/mixport/internal/transport"
	"github.com/catherinevee/mixport/pkg/models"
)

// FetchProfilesParallel fetches engage pages concurrently. Page zero is a
// probe: it fixes the session id, total, and page size, so the remaining
// pages form a precomputed schedule instead of a has-more walk. The probe
// runs before the target table is touched, so an auth or query failure
// leaves no table behind.
func (f *Fetcher) FetchProfilesParallel(ctx context.Context, opts ProfileFetchOptions) (*models.ParallelFetchResult, error) {
	workers := opts.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	if workers > maxProfileWorkers {
		f.logger.Warn().Int("requested", opts.Workers).Int("cap", maxProfileWorkers).
			Msg("worker count reduced to engage concurrency budget")
		workers = maxProfileWorkers
	}

	started := time.Now()
	query := transport.EngageQuery{
		Where:            opts.Where,
		CohortID:         opts.CohortID,
		OutputProperties: opts.OutputProperties,
	}
	probe, err := f.client.QueryEngagePage(ctx, query)
	if err != nil {
		return nil, err
	}
	numPages := probe.NumPages()
	if numPages > 0 && numPages > transport.QueryBudget.WarnAt() {
		f.logger.Warn().Int("pages", numPages).Int("hourly_budget", transport.QueryBudget.PerHour).
			Msg("page count approaches the hourly query budget")
	}

	if err := f.prepareTable(opts.Table, models.TableKindProfiles, opts.Append, opts.Replace); err != nil {
		return nil, err
	}

	sliceTotal := numPages
	if sliceTotal == 0 {
		sliceTotal = 1
	}
	if workers > sliceTotal {
		workers = sliceTotal
	}

	taskCh := make(chan writeTask, 2*workers)
	state := &writerState{table: opts.Table, sliceTotal: sliceTotal, progress: opts.Progress}
	writerDone := make(chan struct{})
	go f.runWriter(state, taskCh, writerDone)

	pageCh := make(chan int)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for page := range pageCh {
				taskCh <- f.fetchPageSlice(ctx, query, probe.SessionID, page)
			}
		}()
	}

	taskCh <- pageTask(0, probe.Results)
	for page := 1; page < numPages; page++ {
		pageCh <- page
	}
	close(pageCh)
	wg.Wait()
	close(taskCh)
	<-writerDone

	sortSliceKeys(state.failedKeys)
	result := &models.ParallelFetchResult{
		Table:           opts.Table,
		TotalRows:       state.totalRows,
		Successful:      state.successful,
		Failed:          state.failed,
		FailedSliceKeys: state.failedKeys,
		Duration:        time.Since(started),
		FetchedAt:       time.Now().UTC(),
	}
	f.logger.Info().Str("table", opts.Table).Int64("rows", result.TotalRows).
		Int("successful", result.Successful).Int("failed", result.Failed).
		Dur("elapsed", result.Duration).Msg("parallel profile fetch complete")
	return result, nil
}

// fetchPageSlice pulls one engage page under the probe's session id.
func (f *Fetcher) fetchPageSlice(ctx context.Context, query transport.EngageQuery, sessionID string, page int) writeTask {
	if err := ctx.Err(); err != nil {
		return writeTask{key: strconv.Itoa(page), err: err}
	}
	query.Page = page
	query.SessionID = sessionID
	result, err := f.client.QueryEngagePage(ctx, query)
	if err != nil {
		return writeTask{key: strconv.Itoa(page), err: err}
	}
	return pageTask(page, result.Results)
}

// pageTask normalizes one page of engage results into a write task.
func pageTask(page int, results []map[string]any) writeTask {
	task := writeTask{key: strconv.Itoa(page)}
	rows := make([]models.ProfileRecord, 0, len(results))
	for _, raw := range results {
		profile, err := shape.NormalizeProfile(raw)
		if err != nil {
			task.err = err
			return task
		}
		rows = append(rows, profile)
	}
	task.profiles = rows
	return task
}

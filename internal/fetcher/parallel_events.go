package fetcher

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/catherinevee/mixport/internal/export"
	"github.com/catherinevee/mixport/internal/transport"
	"github.com/catherinevee/mixport/pkg/models"
)

// FetchEventsParallel shards the date range into single-day slices and
// fetches them concurrently. Each slice either commits fully or lands in
// FailedSliceKeys; the fetch as a whole succeeds even when some slices fail.
// The resulting table contents are independent of worker count and slice
// completion order.
func (f *Fetcher) FetchEventsParallel(ctx context.Context, opts EventFetchOptions) (*models.ParallelFetchResult, error) {
	days, err := dateSlices(opts.From, opts.To)
	if err != nil {
		return nil, err
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	if workers > maxEventWorkers {
		f.logger.Warn().Int("requested", opts.Workers).Int("cap", maxEventWorkers).
			Msg("worker count reduced to export concurrency budget")
		workers = maxEventWorkers
	}
	if workers > len(days) {
		workers = len(days)
	}
	if warn := transport.ExportBudget.WarnAt(); len(days) > warn {
		f.logger.Warn().Int("slices", len(days)).Int("hourly_budget", transport.ExportBudget.PerHour).
			Msg("slice count approaches the hourly export budget")
	}

	if err := f.prepareTable(opts.Table, models.TableKindEvents, opts.Append, opts.Replace); err != nil {
		return nil, err
	}

	started := time.Now()
	limiter := rate.NewLimiter(rate.Limit(transport.ExportBudget.PerSecond), 1)

	sliceCh := make(chan string)
	taskCh := make(chan writeTask, 2*workers)
	state := &writerState{table: opts.Table, sliceTotal: len(days), progress: opts.Progress}
	writerDone := make(chan struct{})
	go f.runWriter(state, taskCh, writerDone)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for day := range sliceCh {
				taskCh <- f.fetchDaySlice(ctx, limiter, opts, day)
			}
		}()
	}

	for _, day := range days {
		sliceCh <- day
	}
	close(sliceCh)
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
		Dur("elapsed", result.Duration).Msg("parallel event fetch complete")
	return result, nil
}

// fetchDaySlice reads one day's export fully into memory so the writer can
// commit it as a unit. Retries happen inside the transport; an error here
// means the slice's budget is spent.
func (f *Fetcher) fetchDaySlice(ctx context.Context, limiter *rate.Limiter, opts EventFetchOptions, day string) writeTask {
	task := writeTask{key: day}
	if err := limiter.Wait(ctx); err != nil {
		task.err = err
		return task
	}
	stream, err := export.Events(ctx, f.client, export.EventExportQuery{
		From:   day,
		To:     day,
		Events: opts.Events,
		Where:  opts.Where,
	})
	if err != nil {
		task.err = err
		return task
	}
	defer stream.Close()

	var rows []models.EventRecord
	for stream.Next() {
		rows = append(rows, stream.Event())
	}
	if err := stream.Err(); err != nil {
		task.err = err
		return task
	}
	task.events = rows
	task.rng = &models.DateRange{From: day, To: day}
	return task
}

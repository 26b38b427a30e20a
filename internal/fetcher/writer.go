package fetcher

import (
	"github.com/catherinevee/mixport/pkg/models"
)

// writeTask carries one fetched slice from a worker to the writer. Exactly
// one of events or profiles is set on success; err marks a failed slice.
type writeTask struct {
	key      string
	events   []models.EventRecord
	profiles []models.ProfileRecord
	rng      *models.DateRange
	err      error
}

// writerState accumulates the outcome of one parallel fetch. It is touched
// only by the writer goroutine.
type writerState struct {
	table      string
	sliceTotal int
	progress   func(models.ParallelFetchProgress)

	totalRows  int64
	successful int
	failed     int
	failedKeys []string
}

func (w *writerState) report(p models.ParallelFetchProgress) {
	if w.progress != nil {
		p.SliceTotal = w.sliceTotal
		p.Cumulative = w.totalRows
		w.progress(p)
	}
}

func (w *writerState) fail(key string, err error) {
	w.failed++
	w.failedKeys = append(w.failedKeys, key)
	w.report(models.ParallelFetchProgress{SliceKey: key, Err: err.Error()})
}

func (w *writerState) succeed(key string, rows int64) {
	w.successful++
	w.totalRows += rows
	w.report(models.ParallelFetchProgress{SliceKey: key, Rows: rows, Success: true})
}

// runWriter drains the task channel, committing each successful slice in
// batches. It is the only goroutine that touches the store, so engage and
// export workers can never interleave partial slices. All progress callbacks
// fire here, serialized.
func (f *Fetcher) runWriter(state *writerState, tasks <-chan writeTask, done chan<- struct{}) {
	defer close(done)
	for task := range tasks {
		if task.err != nil {
			f.logger.Warn().Str("table", state.table).Str("slice", task.key).
				Err(task.err).Msg("slice failed")
			state.fail(task.key, task.err)
			continue
		}
		if err := f.writeSlice(state.table, task); err != nil {
			f.logger.Warn().Str("table", state.table).Str("slice", task.key).
				Err(err).Msg("slice write failed")
			state.fail(task.key, err)
			continue
		}
		rows := int64(len(task.events) + len(task.profiles))
		state.succeed(task.key, rows)
		f.logger.Debug().Str("table", state.table).Str("slice", task.key).
			Int64("rows", rows).Msg("slice committed")
	}
}

// writeSlice appends one slice's rows in batchSize transactions. A zero-row
// slice appends nothing, so its requested range never reaches the metadata
// union: an empty boundary day is a successful slice that stays outside the
// table's recorded from/to.
func (f *Fetcher) writeSlice(table string, task writeTask) error {
	for start := 0; start < len(task.events); start += f.batchSize {
		end := start + f.batchSize
		if end > len(task.events) {
			end = len(task.events)
		}
		if err := f.store.AppendEvents(table, task.events[start:end], task.rng); err != nil {
			return err
		}
	}
	for start := 0; start < len(task.profiles); start += f.batchSize {
		end := start + f.batchSize
		if end > len(task.profiles) {
			end = len(task.profiles)
		}
		if err := f.store.AppendProfiles(table, task.profiles[start:end]); err != nil {
			return err
		}
	}
	return nil
}

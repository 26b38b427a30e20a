package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	mperrors "github.com/catherinevee/mixport/internal/errors"
	"github.com/catherinevee/mixport/pkg/models"
	"github.com/catherinevee/mixport/pkg/workspace"
)

func newFetchCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Land bulk exports in the local store",
	}
	cmd.AddCommand(
		newFetchEventsCmd(flags),
		newFetchProfilesCmd(flags),
	)
	return cmd
}

// sliceProgress renders a per-slice progress bar for parallel fetches.
func sliceProgress(label string) (func(models.ParallelFetchProgress), func()) {
	var bar *progressbar.ProgressBar
	callback := func(p models.ParallelFetchProgress) {
		if bar == nil {
			bar = progressbar.NewOptions(p.SliceTotal,
				progressbar.OptionSetDescription(label),
				progressbar.OptionShowCount(),
				progressbar.OptionClearOnFinish(),
			)
		}
		bar.Add(1)
	}
	finish := func() {
		if bar != nil {
			bar.Finish()
		}
	}
	return callback, finish
}

// printParallelResult renders a parallel fetch outcome. Failed slices make
// the command exit nonzero, so the result error is returned after rendering.
func printParallelResult(result *models.ParallelFetchResult) error {
	fmt.Printf("Fetched %d rows into %q (%d/%d slices, %s)\n",
		result.TotalRows, result.Table, result.Successful, result.TotalSlices(),
		result.Duration.Round(timeRound))
	if result.HasFailures() {
		color.New(color.FgYellow).Printf("Failed slices: %v\n", result.FailedSliceKeys)
		return mperrors.NewPartialf("%d of %d slices failed", result.Failed, result.TotalSlices())
	}
	return nil
}

func newFetchEventsCmd(flags *rootFlags) *cobra.Command {
	var opts workspace.EventFetchOptions
	var parallel bool
	cmd := &cobra.Command{
		Use:   "events TABLE",
		Short: "Fetch an event export into a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			ws, cleanup, err := openWorkspace(ctx, flags)
			if err != nil {
				return err
			}
			defer cleanup()
			opts.Table = args[0]

			if parallel {
				callback, finish := sliceProgress("fetching days")
				opts.Progress = callback
				result, err := ws.FetchEventsParallel(ctx, opts)
				finish()
				if err != nil {
					return err
				}
				return printParallelResult(result)
			}
			result, err := ws.FetchEvents(ctx, opts)
			if err != nil {
				return err
			}
			fmt.Printf("Fetched %d rows into %q (%s)\n",
				result.Rows, result.Table, result.Duration.Round(timeRound))
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.From, "from", "", "start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.To, "to", "", "end date (YYYY-MM-DD)")
	cmd.Flags().StringSliceVar(&opts.Events, "event", nil, "restrict to specific events")
	cmd.Flags().StringVar(&opts.Where, "where", "", "filter expression")
	cmd.Flags().BoolVar(&opts.Append, "append", false, "append to an existing table")
	cmd.Flags().BoolVar(&opts.Replace, "replace", false, "replace an existing table")
	cmd.Flags().BoolVar(&parallel, "parallel", false, "fetch days concurrently")
	cmd.Flags().IntVar(&opts.Workers, "workers", 0, "parallel worker count (0 = default)")
	cmd.MarkFlagRequired("from")
	cmd.MarkFlagRequired("to")
	return cmd
}

func newFetchProfilesCmd(flags *rootFlags) *cobra.Command {
	var opts workspace.ProfileFetchOptions
	var parallel bool
	cmd := &cobra.Command{
		Use:   "profiles TABLE",
		Short: "Fetch a profile export into a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			ws, cleanup, err := openWorkspace(ctx, flags)
			if err != nil {
				return err
			}
			defer cleanup()
			opts.Table = args[0]

			if parallel {
				callback, finish := sliceProgress("fetching pages")
				opts.Progress = callback
				result, err := ws.FetchProfilesParallel(ctx, opts)
				finish()
				if err != nil {
					return err
				}
				return printParallelResult(result)
			}
			result, err := ws.FetchProfiles(ctx, opts)
			if err != nil {
				return err
			}
			fmt.Printf("Fetched %d rows into %q (%s)\n",
				result.Rows, result.Table, result.Duration.Round(timeRound))
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.Where, "where", "", "filter expression")
	cmd.Flags().StringVar(&opts.CohortID, "cohort", "", "restrict to a saved cohort id")
	cmd.Flags().StringSliceVar(&opts.OutputProperties, "property", nil, "restrict to specific profile properties")
	cmd.Flags().BoolVar(&opts.Append, "append", false, "append to an existing table")
	cmd.Flags().BoolVar(&opts.Replace, "replace", false, "replace an existing table")
	cmd.Flags().BoolVar(&parallel, "parallel", false, "fetch pages concurrently")
	cmd.Flags().IntVar(&opts.Workers, "workers", 0, "parallel worker count (0 = default)")
	return cmd
}

package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/catherinevee/mixport/pkg/workspace"
)

func newQueryCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Run live analytical queries",
	}
	cmd.AddCommand(
		newSegmentationCmd(flags),
		newFunnelCmd(flags),
		newRetentionCmd(flags),
		newFrequencyCmd(flags),
		newActivityCmd(flags),
		newInsightsCmd(flags),
		newJQLCmd(flags),
	)
	return cmd
}

func newSegmentationCmd(flags *rootFlags) *cobra.Command {
	var q workspace.SegmentationQuery
	cmd := &cobra.Command{
		Use:   "segmentation EVENT",
		Short: "Count an event over time, optionally segmented by a property",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			ws, cleanup, err := openWorkspace(ctx, flags)
			if err != nil {
				return err
			}
			defer cleanup()
			q.Event = args[0]
			result, err := ws.Segmentation(ctx, q)
			if err != nil {
				return err
			}
			if flags.jsonOut {
				return printJSON(result)
			}
			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"Segment", "Bucket", "Count"})
			for _, segment := range sortedKeys(result.Series) {
				buckets := result.Series[segment]
				for _, bucket := range sortedKeys(buckets) {
					table.Append([]string{segment, bucket, formatFloat(buckets[bucket])})
				}
			}
			table.Render()
			fmt.Printf("Total: %s\n", formatFloat(result.Total))
			return nil
		},
	}
	cmd.Flags().StringVar(&q.From, "from", "", "start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&q.To, "to", "", "end date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&q.Unit, "unit", "day", "bucket unit (minute, hour, day, week, month)")
	cmd.Flags().StringVar(&q.On, "on", "", "property expression to segment by")
	cmd.Flags().StringVar(&q.Where, "where", "", "filter expression")
	cmd.MarkFlagRequired("from")
	cmd.MarkFlagRequired("to")
	return cmd
}

func newFunnelCmd(flags *rootFlags) *cobra.Command {
	var q workspace.FunnelQuery
	cmd := &cobra.Command{
		Use:   "funnel FUNNEL_ID",
		Short: "Compute a saved funnel over a date range",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid funnel id %q", args[0])
			}
			ctx := context.Background()
			ws, cleanup, err := openWorkspace(ctx, flags)
			if err != nil {
				return err
			}
			defer cleanup()
			q.FunnelID = id
			result, err := ws.Funnel(ctx, q)
			if err != nil {
				return err
			}
			if flags.jsonOut {
				return printJSON(result)
			}
			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"Step", "Event", "Count", "Conversion", "Overall"})
			for _, step := range result.Steps {
				table.Append([]string{
					strconv.Itoa(step.StepIndex + 1),
					step.Event,
					formatFloat(step.Count),
					formatPercent(step.ConversionRate),
					formatPercent(step.OverallConversionRate),
				})
			}
			table.Render()
			fmt.Printf("Overall conversion: %s\n", formatPercent(result.OverallConversion))
			return nil
		},
	}
	cmd.Flags().StringVar(&q.From, "from", "", "start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&q.To, "to", "", "end date (YYYY-MM-DD)")
	cmd.MarkFlagRequired("from")
	cmd.MarkFlagRequired("to")
	return cmd
}

func newRetentionCmd(flags *rootFlags) *cobra.Command {
	var q workspace.RetentionQuery
	cmd := &cobra.Command{
		Use:   "retention BORN_EVENT",
		Short: "Compute a birth/return cohort matrix",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			ws, cleanup, err := openWorkspace(ctx, flags)
			if err != nil {
				return err
			}
			defer cleanup()
			q.BornEvent = args[0]
			result, err := ws.Retention(ctx, q)
			if err != nil {
				return err
			}
			if flags.jsonOut {
				return printJSON(result)
			}
			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"Cohort", "Size", "Retention"})
			for _, cohort := range result.Cohorts {
				row := fmt.Sprintf("%v", cohort.Retention)
				table.Append([]string{cohort.Date, strconv.Itoa(cohort.Size), row})
			}
			table.Render()
			return nil
		},
	}
	cmd.Flags().StringVar(&q.ReturnEvent, "return-event", "", "returning event (default: any event)")
	cmd.Flags().StringVar(&q.From, "from", "", "start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&q.To, "to", "", "end date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&q.Interval, "interval", "day", "cohort interval (day, week, month)")
	cmd.Flags().IntVar(&q.IntervalCount, "intervals", 7, "number of return intervals")
	cmd.Flags().StringVar(&q.Where, "where", "", "filter expression")
	cmd.MarkFlagRequired("from")
	cmd.MarkFlagRequired("to")
	return cmd
}

func newFrequencyCmd(flags *rootFlags) *cobra.Command {
	var q workspace.FrequencyQuery
	cmd := &cobra.Command{
		Use:   "frequency",
		Short: "Compute how often users act within each period",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			ws, cleanup, err := openWorkspace(ctx, flags)
			if err != nil {
				return err
			}
			defer cleanup()
			result, err := ws.Frequency(ctx, q)
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}
	cmd.Flags().StringVar(&q.Event, "event", "", "event to measure (default: any event)")
	cmd.Flags().StringVar(&q.From, "from", "", "start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&q.To, "to", "", "end date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&q.Unit, "unit", "week", "outer bucket (day, week, month)")
	cmd.Flags().StringVar(&q.Granularity, "granularity", "day", "sub-period counted within each bucket (hour, day)")
	cmd.Flags().StringVar(&q.Where, "where", "", "filter expression")
	cmd.MarkFlagRequired("from")
	cmd.MarkFlagRequired("to")
	return cmd
}

func newActivityCmd(flags *rootFlags) *cobra.Command {
	var q workspace.ActivityQuery
	cmd := &cobra.Command{
		Use:   "activity DISTINCT_ID...",
		Short: "Show the raw event feed for specific users",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			ws, cleanup, err := openWorkspace(ctx, flags)
			if err != nil {
				return err
			}
			defer cleanup()
			q.DistinctIDs = args
			result, err := ws.ActivityFeed(ctx, q)
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}
	cmd.Flags().StringVar(&q.From, "from", "", "start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&q.To, "to", "", "end date (YYYY-MM-DD)")
	return cmd
}

func newInsightsCmd(flags *rootFlags) *cobra.Command {
	var q workspace.SavedReportQuery
	cmd := &cobra.Command{
		Use:   "insights BOOKMARK_ID",
		Short: "Re-execute a saved Insights report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid bookmark id %q", args[0])
			}
			ctx := context.Background()
			ws, cleanup, err := openWorkspace(ctx, flags)
			if err != nil {
				return err
			}
			defer cleanup()
			q.BookmarkID = id
			result, err := ws.SavedReport(ctx, q)
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}
	cmd.Flags().StringVar(&q.From, "from", "", "override start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&q.To, "to", "", "override end date (YYYY-MM-DD)")
	return cmd
}

func newJQLCmd(flags *rootFlags) *cobra.Command {
	var scriptFile string
	cmd := &cobra.Command{
		Use:   "jql [SCRIPT]",
		Short: "Run a JQL script",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var script string
			switch {
			case scriptFile != "":
				data, err := os.ReadFile(scriptFile)
				if err != nil {
					return err
				}
				script = string(data)
			case len(args) == 1:
				script = args[0]
			default:
				return fmt.Errorf("provide a script argument or --file")
			}
			ctx := context.Background()
			ws, cleanup, err := openWorkspace(ctx, flags)
			if err != nil {
				return err
			}
			defer cleanup()
			result, err := ws.JQL(ctx, script, nil)
			if err != nil {
				return err
			}
			return printJSON(result.Rows)
		},
	}
	cmd.Flags().StringVar(&scriptFile, "file", "", "read the script from a file")
	return cmd
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func formatPercent(f float64) string {
	return fmt.Sprintf("%.1f%%", f*100)
}

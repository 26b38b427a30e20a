package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/catherinevee/mixport/pkg/workspace"
)

func newDiscoverCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Explore what the project contains",
	}
	cmd.AddCommand(
		newDiscoverEventsCmd(flags),
		newDiscoverPropertiesCmd(flags),
		newDiscoverValuesCmd(flags),
		newDiscoverTopCmd(flags),
		newDiscoverFunnelsCmd(flags),
		newDiscoverCohortsCmd(flags),
		newDiscoverBookmarksCmd(flags),
	)
	return cmd
}

func newDiscoverEventsCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "events",
		Short: "List the project's event names",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			ws, cleanup, err := openWorkspace(ctx, flags)
			if err != nil {
				return err
			}
			defer cleanup()
			events, err := ws.ListEvents(ctx)
			if err != nil {
				return err
			}
			if flags.jsonOut {
				return printJSON(events)
			}
			printList(events)
			return nil
		},
	}
}

func newDiscoverPropertiesCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "properties [EVENT]",
		Short: "List an event's properties, or profile properties with no event",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			event := ""
			if len(args) == 1 {
				event = args[0]
			}
			ctx := context.Background()
			ws, cleanup, err := openWorkspace(ctx, flags)
			if err != nil {
				return err
			}
			defer cleanup()
			props, err := ws.ListProperties(ctx, event)
			if err != nil {
				return err
			}
			if flags.jsonOut {
				return printJSON(props)
			}
			printList(props)
			return nil
		},
	}
}

func newDiscoverValuesCmd(flags *rootFlags) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "values EVENT PROPERTY",
		Short: "Sample the values of an event property",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			ws, cleanup, err := openWorkspace(ctx, flags)
			if err != nil {
				return err
			}
			defer cleanup()
			values, err := ws.PropertyValues(ctx, args[0], args[1], limit)
			if err != nil {
				return err
			}
			if flags.jsonOut {
				return printJSON(values)
			}
			printList(values)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 25, "maximum values to return")
	return cmd
}

func newDiscoverTopCmd(flags *rootFlags) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "top",
		Short: "Show today's top events by volume",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			ws, cleanup, err := openWorkspace(ctx, flags)
			if err != nil {
				return err
			}
			defer cleanup()
			result, err := ws.TopEvents(ctx, limit)
			if err != nil {
				return err
			}
			if flags.jsonOut {
				return printJSON(result)
			}
			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"Event", "Count", "Change"})
			for _, e := range result.Events {
				table.Append([]string{e.Event, formatFloat(e.Count), formatPercent(e.PercentChange)})
			}
			table.Render()
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "maximum events to return")
	return cmd
}

func newDiscoverFunnelsCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "funnels",
		Short: "List the project's saved funnels",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			ws, cleanup, err := openWorkspace(ctx, flags)
			if err != nil {
				return err
			}
			defer cleanup()
			funnels, err := ws.ListFunnels(ctx)
			if err != nil {
				return err
			}
			if flags.jsonOut {
				return printJSON(funnels)
			}
			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"ID", "Name"})
			for _, f := range funnels {
				table.Append([]string{strconv.FormatInt(f.FunnelID, 10), f.Name})
			}
			table.Render()
			return nil
		},
	}
}

func newDiscoverCohortsCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "cohorts",
		Short: "List the project's saved cohorts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			ws, cleanup, err := openWorkspace(ctx, flags)
			if err != nil {
				return err
			}
			defer cleanup()
			cohorts, err := ws.ListCohorts(ctx)
			if err != nil {
				return err
			}
			if flags.jsonOut {
				return printJSON(cohorts)
			}
			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"ID", "Name", "Members", "Visible"})
			for _, c := range cohorts {
				table.Append([]string{
					strconv.FormatInt(c.ID, 10),
					c.Name,
					strconv.FormatInt(c.Count, 10),
					strconv.FormatBool(c.IsVisible),
				})
			}
			table.Render()
			return nil
		},
	}
}

func newDiscoverBookmarksCmd(flags *rootFlags) *cobra.Command {
	var q workspace.BookmarkQuery
	cmd := &cobra.Command{
		Use:   "bookmarks",
		Short: "List the project's saved reports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			ws, cleanup, err := openWorkspace(ctx, flags)
			if err != nil {
				return err
			}
			defer cleanup()
			page, err := ws.ListBookmarks(ctx, q)
			if err != nil {
				return err
			}
			if flags.jsonOut {
				return printJSON(page)
			}
			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"ID", "Type", "Name"})
			for _, b := range page.Bookmarks {
				table.Append([]string{strconv.FormatInt(b.ID, 10), b.Type, b.Name})
			}
			table.Render()
			fmt.Printf("Page %d (%d total", page.Page, page.Total)
			if page.HasMore {
				fmt.Printf(", more available")
			}
			fmt.Println(")")
			return nil
		},
	}
	cmd.Flags().IntVar(&q.Page, "page", 0, "zero-based page")
	cmd.Flags().IntVar(&q.PerPage, "per-page", 50, "reports per page (max 200)")
	cmd.Flags().StringSliceVar(&q.Fields, "fields", nil, "optional fields to include (created, modified, description, ...)")
	return cmd
}

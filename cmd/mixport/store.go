package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/catherinevee/mixport/pkg/models"
)

const timeRound = 10 * time.Millisecond

func newStoreCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "store",
		Short: "Inspect and query the local store",
	}
	cmd.AddCommand(
		newStoreTablesCmd(flags),
		newStoreSchemaCmd(flags),
		newStoreSampleCmd(flags),
		newStoreSQLCmd(flags),
		newStoreSummarizeCmd(flags),
		newStoreDropCmd(flags),
	)
	return cmd
}

func newStoreTablesCmd(flags *rootFlags) *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "tables",
		Short: "List stored tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			ws, cleanup, err := openWorkspace(ctx, flags)
			if err != nil {
				return err
			}
			defer cleanup()
			tables, err := ws.Tables(models.TableKind(kind))
			if err != nil {
				return err
			}
			if flags.jsonOut {
				return printJSON(tables)
			}
			out := tablewriter.NewWriter(os.Stdout)
			out.SetHeader([]string{"Name", "Kind", "Rows", "Bytes", "From", "To"})
			for _, t := range tables {
				out.Append([]string{
					t.Name, string(t.Kind),
					strconv.FormatInt(t.RowCount, 10),
					strconv.FormatInt(t.ByteSize, 10),
					t.From, t.To,
				})
			}
			out.Render()
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "", "filter by kind (events, profiles)")
	return cmd
}

func newStoreSchemaCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "schema TABLE",
		Short: "Show a table's column layout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			ws, cleanup, err := openWorkspace(ctx, flags)
			if err != nil {
				return err
			}
			defer cleanup()
			columns, err := ws.Schema(args[0])
			if err != nil {
				return err
			}
			if flags.jsonOut {
				return printJSON(columns)
			}
			out := tablewriter.NewWriter(os.Stdout)
			out.SetHeader([]string{"Column", "Type", "Nullable", "Primary"})
			for _, c := range columns {
				out.Append([]string{
					c.Name, c.Type,
					strconv.FormatBool(c.Nullable),
					strconv.FormatBool(c.Primary),
				})
			}
			out.Render()
			return nil
		},
	}
}

func newStoreSampleCmd(flags *rootFlags) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "sample TABLE",
		Short: "Show a few rows of a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			ws, cleanup, err := openWorkspace(ctx, flags)
			if err != nil {
				return err
			}
			defer cleanup()
			result, err := ws.Sample(args[0], limit)
			if err != nil {
				return err
			}
			return renderSQLResult(flags, result)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "rows to show")
	return cmd
}

func newStoreSQLCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "sql QUERY",
		Short: "Run SQL against the store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			ws, cleanup, err := openWorkspace(ctx, flags)
			if err != nil {
				return err
			}
			defer cleanup()
			result, err := ws.SQL(args[0])
			if err != nil {
				return err
			}
			return renderSQLResult(flags, result)
		},
	}
}

func newStoreSummarizeCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "summarize TABLE",
		Short: "Show per-column statistics for a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			ws, cleanup, err := openWorkspace(ctx, flags)
			if err != nil {
				return err
			}
			defer cleanup()
			stats, err := ws.Summarize(args[0])
			if err != nil {
				return err
			}
			if flags.jsonOut {
				return printJSON(stats)
			}
			out := tablewriter.NewWriter(os.Stdout)
			out.SetHeader([]string{"Column", "Count", "Nulls", "Distinct", "Min", "Max", "Avg"})
			for _, s := range stats {
				out.Append([]string{
					s.Column,
					strconv.FormatInt(s.Count, 10),
					strconv.FormatInt(s.Nulls, 10),
					strconv.FormatInt(s.Distinct, 10),
					formatNullable(s.Min),
					formatNullable(s.Max),
					formatNullable(s.Avg),
				})
			}
			out.Render()
			return nil
		},
	}
}

func newStoreDropCmd(flags *rootFlags) *cobra.Command {
	var all bool
	var kind string
	cmd := &cobra.Command{
		Use:   "drop [TABLE]",
		Short: "Remove stored tables",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			ws, cleanup, err := openWorkspace(ctx, flags)
			if err != nil {
				return err
			}
			defer cleanup()
			if all {
				n, err := ws.DropAll(models.TableKind(kind))
				if err != nil {
					return err
				}
				fmt.Printf("Dropped %d tables\n", n)
				return nil
			}
			if len(args) != 1 {
				return fmt.Errorf("provide a table name or --all")
			}
			if err := ws.DropTable(args[0]); err != nil {
				return err
			}
			fmt.Printf("Dropped %q\n", args[0])
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "drop every table")
	cmd.Flags().StringVar(&kind, "kind", "", "with --all, restrict to a kind (events, profiles)")
	return cmd
}

func renderSQLResult(flags *rootFlags, result *models.SQLResult) error {
	if flags.jsonOut {
		return printJSON(result)
	}
	out := tablewriter.NewWriter(os.Stdout)
	out.SetHeader(result.Columns)
	for _, row := range result.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = fmt.Sprintf("%v", v)
		}
		out.Append(cells)
	}
	out.Render()
	fmt.Printf("%d rows\n", len(result.Rows))
	return nil
}

func formatNullable(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}

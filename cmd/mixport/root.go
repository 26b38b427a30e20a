package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/catherinevee/mixport/internal/logging"
	"github.com/catherinevee/mixport/internal/telemetry"
	"github.com/catherinevee/mixport/pkg/workspace"
)

const version = "1.0.0"

// rootFlags carries the persistent flags shared by every subcommand.
type rootFlags struct {
	account    string
	configPath string
	dbPath     string
	logLevel   string
	verbose    bool
	trace      bool
	jsonOut    bool
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	cmd := &cobra.Command{
		Use:   "mixport",
		Short: "Mixpanel analytics workspace - query, export, and store project data locally",
		Long: `mixport binds a Mixpanel project to a local SQLite store. It runs live
analytical queries (segmentation, funnels, retention), streams bulk event
and profile exports, and lands them in queryable tables.

Credentials resolve from the MP_USERNAME/MP_SECRET/MP_PROJECT_ID/MP_REGION
environment variables, or from named accounts in ~/.mixport/config.yaml.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&flags.account, "account", "", "named account from the config file")
	cmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "config file (default is $HOME/.mixport/config.yaml)")
	cmd.PersistentFlags().StringVar(&flags.dbPath, "db", "", "database file (default is in-memory)")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "warn", "set log level (debug, info, warn, error)")
	cmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "enable verbose output")
	cmd.PersistentFlags().BoolVar(&flags.trace, "trace", false, "emit request traces to stderr")
	cmd.PersistentFlags().BoolVar(&flags.jsonOut, "json", false, "render results as JSON")

	cmd.AddCommand(
		newAuthCmd(flags),
		newQueryCmd(flags),
		newDiscoverCmd(flags),
		newFetchCmd(flags),
		newStoreCmd(flags),
	)
	return cmd
}

// openWorkspace builds the workspace for one command invocation. The
// returned cleanup closes the workspace and flushes traces.
func openWorkspace(ctx context.Context, flags *rootFlags) (*workspace.Workspace, func(), error) {
	level := flags.logLevel
	if flags.verbose {
		level = "debug"
	}
	logger := logging.New(os.Stderr, level, true)

	shutdownTrace := func(context.Context) error { return nil }
	if flags.trace {
		var err error
		shutdownTrace, err = telemetry.Init(ctx)
		if err != nil {
			return nil, nil, err
		}
	}

	ws, err := workspace.New(workspace.Options{
		Account:    flags.account,
		ConfigPath: flags.configPath,
		Path:       flags.dbPath,
		Logger:     &logger,
	})
	if err != nil {
		shutdownTrace(ctx)
		return nil, nil, err
	}
	cleanup := func() {
		ws.Close()
		shutdownTrace(ctx)
	}
	return ws, cleanup, nil
}

// printJSON renders any result as indented JSON on stdout.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printList writes one string per line.
func printList(items []string) {
	for _, item := range items {
		fmt.Println(item)
	}
}

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/catherinevee/mixport/internal/config"
	"github.com/catherinevee/mixport/internal/credentials"
)

func newAuthCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage named accounts",
	}
	cmd.AddCommand(
		newAuthAddCmd(flags),
		newAuthListCmd(flags),
		newAuthRemoveCmd(flags),
		newAuthUseCmd(flags),
		newAuthCheckCmd(flags),
	)
	return cmd
}

// resolveConfigPath applies the --config override.
func resolveConfigPath(flags *rootFlags) (string, error) {
	if flags.configPath != "" {
		return flags.configPath, nil
	}
	return config.DefaultPath()
}

func newAuthAddCmd(flags *rootFlags) *cobra.Command {
	var username, secret, projectID, region string
	var makeDefault bool
	cmd := &cobra.Command{
		Use:   "add NAME",
		Short: "Add or update a named account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := credentials.ParseRegion(region); err != nil {
				return err
			}
			path, err := resolveConfigPath(flags)
			if err != nil {
				return err
			}
			f, err := config.Load(path)
			if err != nil {
				return err
			}
			f.Upsert(config.Account{
				Name:      args[0],
				Username:  username,
				Secret:    secret,
				ProjectID: projectID,
				Region:    region,
				Default:   makeDefault,
			})
			if makeDefault {
				f.SetDefault(args[0])
			}
			if err := config.Save(path, f); err != nil {
				return err
			}
			fmt.Printf("Account %q saved to %s\n", args[0], path)
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "service account username")
	cmd.Flags().StringVar(&secret, "secret", "", "service account secret")
	cmd.Flags().StringVar(&projectID, "project-id", "", "project id")
	cmd.Flags().StringVar(&region, "region", "us", "data residency region (us, eu, in)")
	cmd.Flags().BoolVar(&makeDefault, "default", false, "make this the default account")
	cmd.MarkFlagRequired("username")
	cmd.MarkFlagRequired("secret")
	cmd.MarkFlagRequired("project-id")
	return cmd
}

func newAuthListCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := resolveConfigPath(flags)
			if err != nil {
				return err
			}
			f, err := config.Load(path)
			if err != nil {
				return err
			}
			if len(f.Accounts) == 0 {
				fmt.Println("No accounts configured.")
				return nil
			}
			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"Name", "Username", "Secret", "Project", "Region", "Default"})
			for _, a := range f.Accounts {
				def := ""
				if a.Default {
					def = "*"
				}
				table.Append([]string{a.Name, a.Username, credentials.Redacted, a.ProjectID, a.Region, def})
			}
			table.Render()
			return nil
		},
	}
}

func newAuthRemoveCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "remove NAME",
		Short: "Remove a named account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := resolveConfigPath(flags)
			if err != nil {
				return err
			}
			f, err := config.Load(path)
			if err != nil {
				return err
			}
			if !f.Remove(args[0]) {
				return fmt.Errorf("account %q not found", args[0])
			}
			if err := config.Save(path, f); err != nil {
				return err
			}
			fmt.Printf("Account %q removed\n", args[0])
			return nil
		},
	}
}

func newAuthUseCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "use NAME",
		Short: "Make an account the default",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := resolveConfigPath(flags)
			if err != nil {
				return err
			}
			f, err := config.Load(path)
			if err != nil {
				return err
			}
			if !f.SetDefault(args[0]) {
				return fmt.Errorf("account %q not found", args[0])
			}
			if err := config.Save(path, f); err != nil {
				return err
			}
			fmt.Printf("Default account is now %q\n", args[0])
			return nil
		},
	}
}

func newAuthCheckCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify the resolved credentials against the Provider",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			ws, cleanup, err := openWorkspace(ctx, flags)
			if err != nil {
				return err
			}
			defer cleanup()
			if _, err := ws.ListEvents(ctx); err != nil {
				return err
			}
			color.New(color.FgGreen).Printf("OK")
			fmt.Printf(" project %s (%s)\n", ws.ProjectID(), ws.Region())
			return nil
		},
	}
}

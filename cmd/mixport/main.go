// mixport is the command-line front end: account management, live
// analytical queries, bulk fetches into the local store, and store
// inspection.
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"

	mperrors "github.com/catherinevee/mixport/internal/errors"
)

func main() {
	cmd := newRootCmd()
	if err := cmd.Execute(); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "Error: ")
		fmt.Fprintln(os.Stderr, err)
		os.Exit(mperrors.ExitCode(err))
	}
}

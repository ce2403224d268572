// Command setfield manages models whose set fields are stored as integer
// bitmasks: migrations, records, lookups, fixtures and the admin API.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/setfield/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		// Commands report their own errors through the output formatter;
		// only unreported ones (flag parsing, unknown commands) print here.
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}

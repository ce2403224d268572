package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/setfield/internal/fixture"
)

// LoadDataResult is the output of the loaddata command.
type LoadDataResult struct {
	Objects  int      `json:"objects"`
	Fixtures []string `json:"fixtures"`
}

func (r LoadDataResult) String() string {
	return fmt.Sprintf("Installed %d object(s) from %d fixture(s)", r.Objects, len(r.Fixtures))
}

// NewLoadDataCommand creates the loaddata command.
func NewLoadDataCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "loaddata <fixture>...",
		Short: "Load fixtures into the database",
		Long: `Load one or more fixture files. Objects with a pk replace the existing row.

All fixtures are loaded in a single transaction: if any object is invalid,
nothing is written. The format is chosen by extension (.json, .yaml, .yml),
optionally compressed (.gz, .zst, .lz4, .br).

Example:
  setfield loaddata fixtures/tags.json
  setfield loaddata base.yaml extra.json.zst`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoadData(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runLoadData(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	st, err := opts.openStore()
	if err != nil {
		return reportError(formatter, "failed to open database", err)
	}
	defer opts.closeStore(st)

	for _, path := range paths {
		format, compression, err := fixture.Detect(path)
		if err != nil {
			return reportError(formatter, "invalid fixture", err)
		}
		formatter.VerboseLog("Reading %s (%s, %s)", path, format, compression)
	}

	n, err := fixture.Load(cmd.Context(), st, paths...)
	if err != nil {
		return reportError(formatter, "failed to load fixtures", err)
	}

	opts.Logger().Info("fixtures loaded", "objects", n, "fixtures", len(paths))
	return formatter.Success(LoadDataResult{Objects: n, Fixtures: paths})
}

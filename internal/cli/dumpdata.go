package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/setfield/internal/fixture"
)

// DumpDataOptions holds flags for the dumpdata command.
type DumpDataOptions struct {
	*RootOptions
	Indent int
	Output string
}

// DumpDataResult is the output of dumpdata when writing to a file.
type DumpDataResult struct {
	Objects int    `json:"objects"`
	Output  string `json:"output"`
}

func (r DumpDataResult) String() string {
	return fmt.Sprintf("Dumped %d object(s) to %s", r.Objects, r.Output)
}

// NewDumpDataCommand creates the dumpdata command.
func NewDumpDataCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DumpDataOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "dumpdata [model...]",
		Short: "Write records as a fixture",
		Long: `Write every record of the given models (all models when none are named) as
a fixture. Set members are sorted, so the same rows always dump the same bytes.

Without --output the fixture is written to stdout as JSON. With --output the
format and compression follow the file extension.

Example:
  setfield dumpdata tests.testmodel --indent 4
  setfield dumpdata --output backup.json.zst`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDumpData(opts, args, cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Indent, "indent", 0, "spaces per indentation level (0 for compact JSON)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write to this file instead of stdout")

	return cmd
}

func runDumpData(opts *DumpDataOptions, labels []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	if opts.Indent < 0 {
		return reportError(formatter, "invalid arguments",
			fmt.Errorf("%w: --indent must not be negative", errBadArgument))
	}

	st, err := opts.openStore()
	if err != nil {
		return reportError(formatter, "failed to open database", err)
	}
	defer opts.closeStore(st)

	records, err := fixture.Dump(cmd.Context(), st, labels...)
	if err != nil {
		return reportError(formatter, "failed to dump records", err)
	}

	if opts.Output == "" {
		if err := fixture.Encode(cmd.OutOrStdout(), records, fixture.JSON, opts.Indent); err != nil {
			return WrapExitError(ExitFailure, "failed to write fixture", err)
		}
		return nil
	}

	if err := fixture.WriteFile(opts.Output, records, opts.Indent); err != nil {
		if outErr := formatter.Error(ErrCodeWriteFailed, err.Error(), nil); outErr != nil {
			return outErr
		}
		return WrapExitError(ExitCommandError, "failed to write fixture", err)
	}

	opts.Logger().Info("fixture written", "output", opts.Output, "objects", len(records))
	return formatter.Success(DumpDataResult{Objects: len(records), Output: opts.Output})
}

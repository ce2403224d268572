package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/setfield/internal/store"
)

// RecordResult is one record in command output.
type RecordResult struct {
	*store.Record
}

func (r RecordResult) String() string {
	names := make([]string, 0, len(r.Fields))
	for name := range r.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	fmt.Fprintf(&b, "%s pk=%d", r.Model, r.PK)
	for _, name := range names {
		fmt.Fprintf(&b, " %s=%s", name, r.Fields[name])
	}
	return b.String()
}

// NewCreateCommand creates the create command.
func NewCreateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create <model> [field=OPT,OPT ...]",
		Short: "Create a record",
		Long: `Create a record of a model. Each field=... argument sets a set field to a
comma-separated list of options; omitted fields take their default.

Example:
  setfield create tests.testmodel tags=NANA,TOMTOM
  setfield create tests.testmodelwithdefault`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCreate(rootOpts, args[0], args[1:], cmd)
		},
	}

	return cmd
}

func runCreate(opts *RootOptions, label string, assignments []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	raw, err := parseAssignments(assignments)
	if err != nil {
		return reportError(formatter, "invalid arguments", err)
	}
	values := make(map[string]any, len(raw))
	for name, list := range raw {
		values[name] = splitOptions(list)
	}

	st, err := opts.openStore()
	if err != nil {
		return reportError(formatter, "failed to open database", err)
	}
	defer opts.closeStore(st)

	rec, err := st.Create(cmd.Context(), label, values)
	if err != nil {
		return reportError(formatter, "failed to create record", err)
	}

	opts.Logger().Info("record created", "model", rec.Model, "pk", rec.PK)
	return formatter.Success(RecordResult{rec})
}

package cli

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/setfield/internal/lookup"
)

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	*RootOptions
	Count bool
}

// QueryResult is the output of the query command.
type QueryResult struct {
	Model   string         `json:"model"`
	Count   int64          `json:"count"`
	Records []RecordResult `json:"records,omitempty"`
}

func (r QueryResult) String() string {
	var b strings.Builder
	for _, rec := range r.Records {
		fmt.Fprintln(&b, rec)
	}
	fmt.Fprintf(&b, "%d record(s)", r.Count)
	return b.String()
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query <model> [field__lookup=value ...]",
		Short: "List records matching lookups",
		Long: `List records of a model, in primary key order, matching every filter.

Lookups on set fields:
  field__includes=OPT     rows holding OPT
  field__excludes=OPT     rows not holding OPT
  field__any=OPT,OPT      rows holding at least one of the options
  field__exact=OPT,OPT    rows holding exactly these options (also field=OPT,OPT)
  id=N                    the row with primary key N

Example:
  setfield query tests.testmodel tags__includes=NANA
  setfield query tests.testmodel tags__includes=NANA tags__excludes=TOMTOM --count`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, args[0], args[1:], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Count, "count", false, "print only the number of matching records")

	return cmd
}

func runQuery(opts *QueryOptions, label string, filters []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	values := url.Values{}
	for _, arg := range filters {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return reportError(formatter, "invalid arguments",
				fmt.Errorf("%w: %q is not field__lookup=value", errBadArgument, arg))
		}
		values.Add(key, value)
	}

	st, err := opts.openStore()
	if err != nil {
		return reportError(formatter, "failed to open database", err)
	}
	defer opts.closeStore(st)

	m, err := st.Schema().Model(label)
	if err != nil {
		return reportError(formatter, "query failed", err)
	}
	pred, err := lookup.ParseQuery(m, values)
	if err != nil {
		return reportError(formatter, "invalid filter", err)
	}

	result := QueryResult{Model: m.Label}
	if opts.Count {
		result.Count, err = st.Count(cmd.Context(), m.Label, pred)
		if err != nil {
			return reportError(formatter, "query failed", err)
		}
		return formatter.Success(result)
	}

	records, err := st.Filter(cmd.Context(), m.Label, pred)
	if err != nil {
		return reportError(formatter, "query failed", err)
	}
	for _, rec := range records {
		result.Records = append(result.Records, RecordResult{rec})
	}
	result.Count = int64(len(records))

	opts.Logger().Debug("query done", "model", m.Label, "filters", len(filters), "matched", result.Count)
	return formatter.Success(result)
}

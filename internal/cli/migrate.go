package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// MigrateResult is the output of the migrate command.
type MigrateResult struct {
	Database string   `json:"database"`
	Driver   string   `json:"driver"`
	Models   []string `json:"models"`
}

func (r MigrateResult) String() string {
	return fmt.Sprintf("Database ready: %s (%d model(s))", r.Database, len(r.Models))
}

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create tables and record field options",
		Long: `Open the database, apply pending migrations and create one table per model.

The options of every set field are recorded on first use. Reordering or
removing options afterwards is refused, since it would change the meaning of
stored bits; appending new options is allowed.

Example:
  setfield migrate --db ./setfield.db --schema ./models.cue`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(rootOpts, cmd)
		},
	}

	return cmd
}

func runMigrate(opts *RootOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	st, err := opts.openStore()
	if err != nil {
		return reportError(formatter, "failed to open database", err)
	}
	defer opts.closeStore(st)

	result := MigrateResult{Database: opts.Database, Driver: st.Dialect().String()}
	for _, m := range st.Schema().Models() {
		result.Models = append(result.Models, m.Label)
	}

	opts.Logger().Info("database ready", "db", opts.Database, "models", len(result.Models))
	return formatter.Success(result)
}

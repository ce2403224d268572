package cli

import (
	"fmt"
	"log/slog"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/roach88/setfield/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose  bool
	Format   string // "json" | "text"
	Database string
	Driver   string
	Schema   string
	EnvFile  string

	config *config.Config
	logger *slog.Logger
	charm  *charmlog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the setfield CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "setfield",
		Short: "setfield - option sets stored as integer bitmasks",
		Long: `Manage models whose set fields are stored as one integer bitmask per row.

Models are declared in a CUE schema. Each option of a set field owns one bit,
so "tags includes NANA" is a single bitwise test in SQL.

Settings come from flags, then SETFIELD_* environment variables (optionally
from a .env file), then defaults.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Validate format flag
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return opts.resolve(cmd)
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", config.DefaultDB, "database path or DSN ($"+config.EnvDB+")")
	cmd.PersistentFlags().StringVar(&opts.Driver, "driver", config.DefaultDriver, "database driver: sqlite3|postgres ($"+config.EnvDriver+")")
	cmd.PersistentFlags().StringVar(&opts.Schema, "schema", config.DefaultSchema, "CUE schema file or directory ($"+config.EnvSchema+")")
	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", ".env", "dotenv file to read before resolving settings")

	// Add subcommands
	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewCreateCommand(opts))
	cmd.AddCommand(NewQueryCommand(opts))
	cmd.AddCommand(NewLoadDataCommand(opts))
	cmd.AddCommand(NewDumpDataCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))

	return cmd
}

// resolve fills settings not given as flags from the environment and sets
// up logging.
func (o *RootOptions) resolve(cmd *cobra.Command) error {
	conf, err := config.Load(o.EnvFile)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	o.config = conf

	if !flagChanged(cmd, "db") {
		o.Database = conf.DBPath
	}
	if !flagChanged(cmd, "driver") {
		o.Driver = conf.Driver
	}
	if !flagChanged(cmd, "schema") {
		o.Schema = conf.SchemaPath
	}

	o.logger, o.charm = newLogger(cmd.ErrOrStderr(), o.Verbose)
	slog.SetDefault(o.logger)
	return nil
}

// Logger returns the command logger, or slog.Default() before resolve.
func (o *RootOptions) Logger() *slog.Logger {
	if o.logger == nil {
		return slog.Default()
	}
	return o.logger
}

// Config returns the resolved config, or the defaults before resolve.
func (o *RootOptions) Config() *config.Config {
	if o.config == nil {
		return &config.Config{
			DBPath:     config.DefaultDB,
			Driver:     config.DefaultDriver,
			SchemaPath: config.DefaultSchema,
			Addr:       config.DefaultAddr,
		}
	}
	return o.config
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   o.Verbose,
	}
}

func flagChanged(cmd *cobra.Command, name string) bool {
	f := cmd.Flag(name)
	return f != nil && f.Changed
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/setfield/internal/lookup"
	"github.com/roach88/setfield/internal/schema"
	"github.com/roach88/setfield/internal/store"
)

// errBadArgument marks malformed positional arguments.
var errBadArgument = errors.New("bad argument")

// openStore loads the schema and opens the database it describes.
func (o *RootOptions) openStore() (*store.Store, error) {
	logger := o.Logger()

	logger.Debug("loading schema", "path", o.Schema)
	sch, err := schema.Load(o.Schema)
	if err != nil {
		return nil, err
	}

	storeOpts := store.Options{
		Driver: o.Driver,
		DSN:    o.Database,
		Schema: sch,
		Logger: logger,
	}
	if o.charm != nil {
		storeOpts.MigrationLogger = o.charm
	}

	logger.Debug("opening database", "driver", o.Driver, "db", o.Database)
	st, err := store.OpenWith(storeOpts)
	if err != nil {
		return nil, err
	}
	return st, nil
}

// closeStore closes st, logging any error.
func (o *RootOptions) closeStore(st *store.Store) {
	if err := st.Close(); err != nil {
		o.Logger().Error("error closing database", "error", err)
	}
}

// parseAssignments splits "key=value" arguments. Keys must be unique.
func parseAssignments(args []string) (map[string]string, error) {
	out := make(map[string]string, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("%w: %q is not key=value", errBadArgument, arg)
		}
		if _, dup := out[key]; dup {
			return nil, fmt.Errorf("%w: %q given twice", errBadArgument, key)
		}
		out[key] = value
	}
	return out, nil
}

// splitOptions splits a comma-separated option list.
func splitOptions(raw string) []string {
	return lookup.SplitValues(raw)
}

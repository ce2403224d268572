package schema

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/setfield/internal/setfield"
)

// CompileError reports a problem in a schema source, with its CUE position
// when one is known.
type CompileError struct {
	Path    string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Path, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// CompileString compiles CUE source text. filename is only used in error
// positions.
func CompileString(src, filename string) (*Schema, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(src, cue.Filename(filename))
	return Compile(v)
}

// Compile reads every model under the top-level "model" struct of v.
func Compile(v cue.Value) (*Schema, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	modelsVal := v.LookupPath(cue.ParsePath("model"))
	if !modelsVal.Exists() {
		return nil, &CompileError{Path: "model", Message: "no models declared", Pos: v.Pos()}
	}

	apps, err := modelsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var models []*Model
	for apps.Next() {
		app := apps.Label()
		entries, err := apps.Value().Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for entries.Next() {
			m, err := compileModel(app+"."+entries.Label(), entries.Value())
			if err != nil {
				return nil, err
			}
			models = append(models, m)
		}
	}

	if len(models) == 0 {
		return nil, &CompileError{Path: "model", Message: "no models declared", Pos: modelsVal.Pos()}
	}

	s, err := New(models...)
	if err != nil {
		return nil, &CompileError{Path: "model", Message: err.Error(), Pos: modelsVal.Pos()}
	}
	return s, nil
}

func compileModel(label string, v cue.Value) (*Model, error) {
	path := "model." + label

	fieldsVal := v.LookupPath(cue.ParsePath("fields"))
	if !fieldsVal.Exists() {
		return nil, &CompileError{Path: path, Message: "fields is required", Pos: v.Pos()}
	}

	iter, err := fieldsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var fields []*setfield.Field
	for iter.Next() {
		f, err := compileField(path+".fields."+iter.Label(), iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}

	m := NewModel(label, fields...)

	tableVal := v.LookupPath(cue.ParsePath("table"))
	if tableVal.Exists() {
		table, err := tableVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		m.Table = table
	}

	if err := m.validate(); err != nil {
		return nil, &CompileError{Path: path, Message: err.Error(), Pos: v.Pos()}
	}
	return m, nil
}

func compileField(path, name string, v cue.Value) (*setfield.Field, error) {
	optionsVal := v.LookupPath(cue.ParsePath("options"))
	if !optionsVal.Exists() {
		return nil, &CompileError{Path: path, Message: "options is required", Pos: v.Pos()}
	}
	var options []string
	if err := optionsVal.Decode(&options); err != nil {
		return nil, formatCUEError(err)
	}

	var opts []setfield.Option

	defaultVal := v.LookupPath(cue.ParsePath("default"))
	if defaultVal.Exists() {
		var def []string
		if err := defaultVal.Decode(&def); err != nil {
			return nil, formatCUEError(err)
		}
		opts = append(opts, setfield.WithDefault(def...))
	}

	colorsVal := v.LookupPath(cue.ParsePath("colors"))
	if colorsVal.Exists() {
		var colors map[string]string
		if err := colorsVal.Decode(&colors); err != nil {
			return nil, formatCUEError(err)
		}
		opts = append(opts, setfield.WithColors(colors))
	}

	f, err := setfield.New(name, options, opts...)
	if err != nil {
		return nil, &CompileError{Path: path, Message: err.Error(), Pos: v.Pos()}
	}
	return f, nil
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Path:    "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}

package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/roach88/setfield/internal/lookup"
	"github.com/roach88/setfield/internal/schema"
	"github.com/roach88/setfield/internal/setfield"
	"github.com/roach88/setfield/internal/store"
)

// Process exit codes.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // a value was rejected: unknown option, invalid fixture object
	ExitCommandError = 2 // the command could not run: bad arguments, unknown model, schema or database trouble
)

// Error codes reported in CLIError.Code and the text "Error [Exxx]" prefix.
const (
	ErrCodeGeneric        = "E001"
	ErrCodeValidation     = "E002" // not a valid choice
	ErrCodeBadQuery       = "E003" // unknown lookup or field, malformed argument
	ErrCodeSchema         = "E004" // CUE schema did not compile
	ErrCodeNotFound       = "E005" // unknown model, missing row, missing file
	ErrCodeOptionsChanged = "E006" // options reordered or removed
	ErrCodeWriteFailed    = "E007"
)

// ExitError carries the process exit code for a failed command.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

// WrapExitError returns err annotated with message and exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode returns the exit code carried by err, or ExitFailure.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter writes command results as text or as a JSON envelope.
type OutputFormatter struct {
	Format    string // "text" or "json"
	Writer    io.Writer
	ErrWriter io.Writer // diagnostics; Writer when nil
	Verbose   bool
}

// CLIResponse is the JSON envelope of --format json.
type CLIResponse struct {
	Status string    `json:"status"` // "ok" or "error"
	Data   any       `json:"data,omitempty"`
	Error  *CLIError `json:"error,omitempty"`
}

// CLIError describes a failed command.
type CLIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Success writes data. Text output uses data's String method when it has one.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{Status: "ok", Data: data})
	}
	_, err := fmt.Fprintln(f.Writer, data)
	return err
}

// Error writes a failure. Details are printed in text mode only when verbose.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error:  &CLIError{Code: code, Message: message, Details: details},
		})
	}

	if _, err := fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message); err != nil {
		return err
	}
	if f.Verbose && details != nil {
		_, err := fmt.Fprintf(f.Writer, "Details: %v\n", details)
		return err
	}
	return nil
}

// VerboseLog writes a diagnostic line when verbose. It never goes to Writer
// if ErrWriter is set, so JSON output stays parseable.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}

// classifyError maps err to an exit code and error code.
func classifyError(err error) (int, string) {
	var (
		exitErr    *ExitError
		compileErr *schema.CompileError
	)
	switch {
	case setfield.IsValidationError(err):
		return ExitFailure, ErrCodeValidation
	case errors.Is(err, lookup.ErrUnknownLookup),
		errors.Is(err, lookup.ErrUnknownField),
		errors.Is(err, errBadArgument):
		return ExitCommandError, ErrCodeBadQuery
	case errors.As(err, &compileErr):
		return ExitCommandError, ErrCodeSchema
	case errors.Is(err, store.ErrOptionsChanged):
		return ExitCommandError, ErrCodeOptionsChanged
	case errors.Is(err, store.ErrUnknownModel),
		errors.Is(err, store.ErrNotFound),
		errors.Is(err, fs.ErrNotExist):
		return ExitCommandError, ErrCodeNotFound
	case errors.As(err, &exitErr):
		return exitErr.Code, ErrCodeGeneric
	default:
		return ExitFailure, ErrCodeGeneric
	}
}

// errorDetails returns the rejected values of a validation error, or nil.
func errorDetails(err error) any {
	var verr *setfield.ValidationError
	if !errors.As(err, &verr) {
		return nil
	}
	return map[string]any{"field": verr.Field, "invalid": verr.Invalid}
}

// reportError writes err through f and returns it wrapped with its exit code.
func reportError(f *OutputFormatter, message string, err error) error {
	code, errCode := classifyError(err)
	if outErr := f.Error(errCode, fmt.Sprintf("%s: %v", message, err), errorDetails(err)); outErr != nil {
		return outErr
	}
	return WrapExitError(code, message, err)
}

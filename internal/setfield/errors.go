package setfield

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidOptions is returned by New when the options list is empty,
	// too long, or holds an empty or duplicate option.
	ErrInvalidOptions = errors.New("invalid options")

	// ErrNegativeMask is returned when decoding a negative stored value.
	ErrNegativeMask = errors.New("negative mask")
)

// ValidationError reports set members that are not options of a field.
type ValidationError struct {
	Field   string   // Field name
	Invalid []string // Unknown members, sorted
}

func (e *ValidationError) Error() string {
	quoted := make([]string, len(e.Invalid))
	for i, v := range e.Invalid {
		quoted[i] = fmt.Sprintf("%q", v)
	}
	if len(quoted) == 1 {
		return fmt.Sprintf("field %s: value %s is not a valid choice", e.Field, quoted[0])
	}
	return fmt.Sprintf("field %s: values %s are not valid choices", e.Field, strings.Join(quoted, ", "))
}

// IsValidationError reports whether err wraps a *ValidationError.
func IsValidationError(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}

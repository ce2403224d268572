package lookup

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/roach88/setfield/internal/queryir"
	"github.com/roach88/setfield/internal/schema"
	"github.com/roach88/setfield/internal/setfield"
)

// Separator splits a filter key into field name and lookup name.
const Separator = "__"

// Lookup names registered by NewRegistry.
const (
	Includes = "includes"
	Excludes = "excludes"
	Any      = "any"
	Exact    = "exact"
)

var (
	// ErrUnknownLookup is returned for lookup names with no registered builder.
	ErrUnknownLookup = errors.New("unknown lookup")

	// ErrUnknownField is returned for filter keys naming no field of the model.
	ErrUnknownField = schema.ErrUnknownField
)

// Builder builds the predicate for one lookup on a set field from its raw
// query-string value.
type Builder func(f *setfield.Field, raw string) (queryir.Predicate, error)

// Registry maps lookup names to builders. It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	builders map[string]Builder
}

// NewRegistry returns a registry holding the includes, excludes, any and
// exact lookups.
func NewRegistry() *Registry {
	r := &Registry{builders: make(map[string]Builder)}
	r.Register(Includes, buildIncludes)
	r.Register(Excludes, buildExcludes)
	r.Register(Any, buildAny)
	r.Register(Exact, buildExact)
	return r
}

// Default is the registry used by the package-level Build and ParseQuery.
var Default = NewRegistry()

// Register adds or replaces the builder for name.
func (r *Registry) Register(name string, b Builder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.builders[name] = b
}

// Names returns the registered lookup names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.builders))
	for name := range r.builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) builder(name string) (Builder, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.builders[name]
	return b, ok
}

// Build returns the predicate for a single filter key and value on m.
// A key without a lookup suffix means exact.
func (r *Registry) Build(m *schema.Model, key, raw string) (queryir.Predicate, error) {
	name, lookupName := SplitKey(key)

	if name == schema.PrimaryKey {
		if lookupName != Exact {
			return nil, fmt.Errorf("%w %q for %s", ErrUnknownLookup, lookupName, name)
		}
		pk, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: %q is not an integer", name, raw)
		}
		return queryir.Equals{Field: name, Value: pk}, nil
	}

	f, ok := m.Field(name)
	if !ok {
		return nil, fmt.Errorf("%w %q on %s", ErrUnknownField, name, m.Label)
	}
	b, ok := r.builder(lookupName)
	if !ok {
		return nil, fmt.Errorf("%w %q for %s", ErrUnknownLookup, lookupName, name)
	}
	return b(f, raw)
}

// ParseQuery returns the conjunction of every filter in values, or nil when
// values is empty. Keys are processed in sorted order and repeated keys each
// add a filter, so the result is deterministic.
func (r *Registry) ParseQuery(m *schema.Model, values url.Values) (queryir.Predicate, error) {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var preds []queryir.Predicate
	for _, key := range keys {
		for _, raw := range values[key] {
			p, err := r.Build(m, key, raw)
			if err != nil {
				return nil, err
			}
			preds = append(preds, p)
		}
	}
	return queryir.AllOf(preds...), nil
}

// Build uses the Default registry.
func Build(m *schema.Model, key, raw string) (queryir.Predicate, error) {
	return Default.Build(m, key, raw)
}

// ParseQuery uses the Default registry.
func ParseQuery(m *schema.Model, values url.Values) (queryir.Predicate, error) {
	return Default.ParseQuery(m, values)
}

// Key joins a field and lookup name: Key("tags", "includes") is
// "tags__includes".
func Key(field, lookupName string) string {
	return field + Separator + lookupName
}

// SplitKey splits "tags__includes" into ("tags", "includes"). A key with no
// separator is an exact lookup.
func SplitKey(key string) (field, lookupName string) {
	field, lookupName, ok := strings.Cut(key, Separator)
	if !ok {
		return key, Exact
	}
	return field, lookupName
}

// TrimValue normalizes a single option value from a query string.
func TrimValue(raw string) string {
	return strings.TrimSpace(raw)
}

// SplitValues splits a comma-separated option list, trimming blanks.
func SplitValues(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func buildIncludes(f *setfield.Field, raw string) (queryir.Predicate, error) {
	bit, err := f.Bit(TrimValue(raw))
	if err != nil {
		return nil, err
	}
	return queryir.BitAnd{Field: f.Name(), Mask: bit}, nil
}

func buildExcludes(f *setfield.Field, raw string) (queryir.Predicate, error) {
	p, err := buildIncludes(f, raw)
	if err != nil {
		return nil, err
	}
	return queryir.Not{Predicate: p}, nil
}

func buildAny(f *setfield.Field, raw string) (queryir.Predicate, error) {
	set, err := f.Clean(SplitValues(raw))
	if err != nil {
		return nil, err
	}
	mask, err := f.Encode(set)
	if err != nil {
		return nil, err
	}
	if mask == 0 {
		// Nothing to match against.
		return queryir.Or{}, nil
	}
	return queryir.BitAnd{Field: f.Name(), Mask: mask}, nil
}

func buildExact(f *setfield.Field, raw string) (queryir.Predicate, error) {
	set, err := f.Clean(SplitValues(raw))
	if err != nil {
		return nil, err
	}
	mask, err := f.Encode(set)
	if err != nil {
		return nil, err
	}
	return queryir.Equals{Field: f.Name(), Value: mask}, nil
}

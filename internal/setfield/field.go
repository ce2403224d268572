package setfield

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// MaxOptions is the largest options list a Field accepts. Bit 63 is the
// int64 sign bit and is never used, which keeps stored values non-negative.
const MaxOptions = 63

// Field maps a Set to and from an int64 bitmask.
//
// A Field is immutable after New returns and is safe for concurrent use.
type Field struct {
	name    string
	options []string
	index   map[string]int
	def     Set
	colors  map[string]string
}

// Option configures a Field in New.
type Option func(*fieldConfig)

type fieldConfig struct {
	def    []string
	colors map[string]string
}

// WithDefault sets the value new rows receive when none is given.
// Every item must be one of the field's options.
func WithDefault(items ...string) Option {
	return func(c *fieldConfig) {
		c.def = append(c.def, items...)
	}
}

// WithColors sets the background color used when displaying an option.
func WithColors(colors map[string]string) Option {
	return func(c *fieldConfig) {
		if c.colors == nil {
			c.colors = make(map[string]string, len(colors))
		}
		for k, v := range colors {
			c.colors[norm.NFC.String(k)] = v
		}
	}
}

// New creates a field named name over the ordered options list.
// Option i owns bit i.
func New(name string, options []string, opts ...Option) (*Field, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: field name is empty", ErrInvalidOptions)
	}
	if len(options) == 0 {
		return nil, fmt.Errorf("%w: field %s has no options", ErrInvalidOptions, name)
	}
	if len(options) > MaxOptions {
		return nil, fmt.Errorf("%w: field %s has %d options, at most %d fit in an int64",
			ErrInvalidOptions, name, len(options), MaxOptions)
	}

	f := &Field{
		name:    name,
		options: make([]string, len(options)),
		index:   make(map[string]int, len(options)),
	}
	for i, opt := range options {
		opt = norm.NFC.String(opt)
		if strings.TrimSpace(opt) == "" {
			return nil, fmt.Errorf("%w: field %s option %d is empty", ErrInvalidOptions, name, i)
		}
		if j, dup := f.index[opt]; dup {
			return nil, fmt.Errorf("%w: field %s option %q repeated at %d and %d",
				ErrInvalidOptions, name, opt, j, i)
		}
		f.options[i] = opt
		f.index[opt] = i
	}

	cfg := &fieldConfig{}
	for _, o := range opts {
		o(cfg)
	}

	def := NewSet(cfg.def...)
	if err := f.Validate(def); err != nil {
		return nil, fmt.Errorf("default: %w", err)
	}
	f.def = f.normalize(def)
	f.colors = cfg.colors

	return f, nil
}

// MustNew is like New but panics on error. For package-level fields.
func MustNew(name string, options []string, opts ...Option) *Field {
	f, err := New(name, options, opts...)
	if err != nil {
		panic(err)
	}
	return f
}

// Name returns the field (and column) name.
func (f *Field) Name() string {
	return f.name
}

// Options returns a copy of the ordered options list.
func (f *Field) Options() []string {
	out := make([]string, len(f.options))
	copy(out, f.options)
	return out
}

// Index returns the bit position of option.
func (f *Field) Index(option string) (int, bool) {
	i, ok := f.index[norm.NFC.String(option)]
	return i, ok
}

// Bit returns the stored value of a set holding only option.
func (f *Field) Bit(option string) (int64, error) {
	i, ok := f.Index(option)
	if !ok {
		return 0, &ValidationError{Field: f.name, Invalid: []string{option}}
	}
	return int64(1) << i, nil
}

// Default returns a copy of the default set. Empty when no default was set.
func (f *Field) Default() Set {
	return f.def.Clone()
}

// DefaultMask returns the encoded default set.
func (f *Field) DefaultMask() int64 {
	mask, _ := f.Encode(f.def)
	return mask
}

// Color returns the display color configured for option, or "".
func (f *Field) Color(option string) string {
	return f.colors[norm.NFC.String(option)]
}

// Validate fails with *ValidationError when s holds any member that is not
// an option. All unknown members are reported.
func (f *Field) Validate(s Set) error {
	var invalid []string
	for item := range s {
		if _, ok := f.index[norm.NFC.String(item)]; !ok {
			invalid = append(invalid, item)
		}
	}
	if len(invalid) == 0 {
		return nil
	}
	sort.Strings(invalid)
	return &ValidationError{Field: f.name, Invalid: invalid}
}

// Encode ORs 1<<index for every member of s.
func (f *Field) Encode(s Set) (int64, error) {
	if err := f.Validate(s); err != nil {
		return 0, err
	}
	var mask int64
	for item := range s {
		mask |= int64(1) << f.index[norm.NFC.String(item)]
	}
	return mask, nil
}

// Decode returns the options whose bits are set in mask.
// Bits at or above len(options) are ignored.
func (f *Field) Decode(mask int64) (Set, error) {
	if mask < 0 {
		return nil, fmt.Errorf("field %s: %w: %d", f.name, ErrNegativeMask, mask)
	}
	s := make(Set)
	for i, opt := range f.options {
		if mask&(int64(1)<<i) != 0 {
			s[opt] = struct{}{}
		}
	}
	return s, nil
}

// Clean coerces an assigned value into a validated Set.
//
// Accepted inputs are Set, []string, a single string (one member), and nil
// (empty set). Members are returned in NFC form.
func (f *Field) Clean(v any) (Set, error) {
	var s Set
	switch val := v.(type) {
	case nil:
		s = NewSet()
	case Set:
		s = val.Clone()
	case []string:
		s = NewSet(val...)
	case string:
		s = NewSet(val)
	case []any:
		s = make(Set, len(val))
		for i, item := range val {
			str, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("field %s: item %d is %T, not a string", f.name, i, item)
			}
			s.Add(str)
		}
	default:
		return nil, fmt.Errorf("field %s: cannot assign %T", f.name, v)
	}
	if err := f.Validate(s); err != nil {
		return nil, err
	}
	return f.normalize(s), nil
}

// normalize rewrites members of an already validated set to NFC.
func (f *Field) normalize(s Set) Set {
	out := make(Set, len(s))
	for item := range s {
		out[norm.NFC.String(item)] = struct{}{}
	}
	return out
}

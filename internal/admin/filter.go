package admin

import (
	"fmt"
	"net/url"

	"github.com/RoaringBitmap/roaring/v2/roaring64"

	"github.com/roach88/setfield/internal/lookup"
	"github.com/roach88/setfield/internal/queryir"
	"github.com/roach88/setfield/internal/schema"
	"github.com/roach88/setfield/internal/setfield"
	"github.com/roach88/setfield/internal/store"
)

// SetFieldFilter is the list filter for one set field. Its query parameter
// is "<field>__includes", repeated once per selected option.
type SetFieldFilter struct {
	model *schema.Model
	field *setfield.Field
}

// Choice is one entry of a filter's choice list.
type Choice struct {
	Display  string `json:"display"`
	Value    string `json:"value"`
	Selected bool   `json:"selected"`
	Count    uint64 `json:"count"`

	// Query is the query string that toggles this choice, keeping every
	// other parameter.
	Query string `json:"query"`
}

// NewSetFieldFilter returns the filter for the set field named field of m.
func NewSetFieldFilter(m *schema.Model, field string) (*SetFieldFilter, error) {
	f, ok := m.Field(field)
	if !ok {
		return nil, fmt.Errorf("%w %q on %s", lookup.ErrUnknownField, field, m.Label)
	}
	return &SetFieldFilter{model: m, field: f}, nil
}

// Title is the field name.
func (sf *SetFieldFilter) Title() string {
	return sf.field.Name()
}

// Parameter returns the query parameter the filter reads.
func (sf *SetFieldFilter) Parameter() string {
	return lookup.Key(sf.field.Name(), lookup.Includes)
}

// Selected returns the options selected in values, in option order. Values
// are trimmed the same way lookups trim them. Unknown options fail with *setfield.ValidationError.
func (sf *SetFieldFilter) Selected(values url.Values) ([]string, error) {
	raw := values[sf.Parameter()]
	opts := make([]string, len(raw))
	for i, v := range raw {
		opts[i] = lookup.TrimValue(v)
	}
	set, err := sf.field.Clean(opts)
	if err != nil {
		return nil, err
	}
	return sf.ordered(set), nil
}

// Predicate keeps rows holding every selected option. It is nil when
// nothing is selected.
func (sf *SetFieldFilter) Predicate(selected []string) (queryir.Predicate, error) {
	preds := make([]queryir.Predicate, 0, len(selected))
	for _, opt := range selected {
		bit, err := sf.field.Bit(opt)
		if err != nil {
			return nil, err
		}
		preds = append(preds, queryir.BitAnd{Field: sf.field.Name(), Mask: bit})
	}
	return queryir.AllOf(preds...), nil
}

// Choices returns the "All" choice followed by one choice per option, in
// option order. values is the current query; facets may be nil, leaving
// every count at zero.
func (sf *SetFieldFilter) Choices(values url.Values, selected []string, facets *Facets) []Choice {
	current := setfield.NewSet(selected...)

	all := Choice{
		Display:  "All",
		Selected: current.Len() == 0,
		Query:    sf.query(values, nil),
	}
	if facets != nil {
		all.Count = facets.Total()
	}

	choices := []Choice{all}
	for _, opt := range sf.field.Options() {
		next := current.Clone()
		if next.Has(opt) {
			next.Remove(opt)
		} else {
			next.Add(opt)
		}

		c := Choice{
			Display:  opt,
			Value:    opt,
			Selected: current.Has(opt),
			Query:    sf.query(values, sf.ordered(next)),
		}
		if facets != nil {
			c.Count = facets.Count(opt)
		}
		choices = append(choices, c)
	}
	return choices
}

// query returns values with the filter parameter replaced by selected.
func (sf *SetFieldFilter) query(values url.Values, selected []string) string {
	out := make(url.Values, len(values)+1)
	for k, v := range values {
		if k != sf.Parameter() {
			out[k] = append([]string(nil), v...)
		}
	}
	if len(selected) > 0 {
		out[sf.Parameter()] = selected
	}
	return out.Encode()
}

func (sf *SetFieldFilter) ordered(s setfield.Set) []string {
	var out []string
	for _, opt := range sf.field.Options() {
		if s.Has(opt) {
			out = append(out, opt)
		}
	}
	return out
}

// Facets holds, per option, the rows whose mask has that option's bit set,
// and the rows matching the current selection.
type Facets struct {
	options  []string
	matched  *roaring64.Bitmap
	byOption map[string]*roaring64.Bitmap
}

// NewFacets indexes rows for f. A row is matched when its mask holds every
// bit of selectedMask.
func NewFacets(f *setfield.Field, rows []store.MaskRow, selectedMask int64) *Facets {
	options := f.Options()
	fc := &Facets{
		options:  options,
		matched:  roaring64.New(),
		byOption: make(map[string]*roaring64.Bitmap, len(options)),
	}
	for _, opt := range options {
		fc.byOption[opt] = roaring64.New()
	}

	for _, row := range rows {
		id := uint64(row.ID)
		if row.Mask&selectedMask == selectedMask {
			fc.matched.Add(id)
		}
		for i, opt := range options {
			if row.Mask&(int64(1)<<i) != 0 {
				fc.byOption[opt].Add(id)
			}
		}
	}
	return fc
}

// Total is the number of rows matching the selection.
func (fc *Facets) Total() uint64 {
	return fc.matched.GetCardinality()
}

// Count is the number of rows matching the selection that also hold option.
func (fc *Facets) Count(option string) uint64 {
	bm, ok := fc.byOption[option]
	if !ok {
		return 0
	}
	hits := bm.Clone()
	hits.And(fc.matched)
	return hits.GetCardinality()
}

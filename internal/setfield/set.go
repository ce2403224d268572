package setfield

import (
	"encoding/json"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

// Set is an unordered collection of option strings.
//
// A nil Set is empty and read-only; use NewSet (or make) before calling Add.
// Membership is not checked against any Field until the set is validated.
type Set map[string]struct{}

// NewSet creates a set holding items.
func NewSet(items ...string) Set {
	s := make(Set, len(items))
	for _, item := range items {
		s[item] = struct{}{}
	}
	return s
}

// Add inserts items into the set.
func (s Set) Add(items ...string) {
	for _, item := range items {
		s[item] = struct{}{}
	}
}

// Remove deletes item from the set. Removing an absent item is a no-op.
func (s Set) Remove(item string) {
	delete(s, item)
}

// Has reports whether item is a member.
func (s Set) Has(item string) bool {
	_, ok := s[item]
	return ok
}

// Len returns the number of members.
func (s Set) Len() int {
	return len(s)
}

// Sorted returns the members in ascending byte order.
// Never returns nil.
func (s Set) Sorted() []string {
	items := make([]string, 0, len(s))
	for item := range s {
		items = append(items, item)
	}
	sort.Strings(items)
	return items
}

// Clone returns an independent copy. Cloning a nil set yields an empty set.
func (s Set) Clone() Set {
	c := make(Set, len(s))
	for item := range s {
		c[item] = struct{}{}
	}
	return c
}

// Equal reports whether s and other hold the same members.
// A nil set equals an empty one.
func (s Set) Equal(other Set) bool {
	if len(s) != len(other) {
		return false
	}
	for item := range s {
		if !other.Has(item) {
			return false
		}
	}
	return true
}

// String renders the sorted members, e.g. "[NANA TOMTOM]".
func (s Set) String() string {
	return fmt.Sprintf("%v", s.Sorted())
}

// MarshalJSON encodes the set as a sorted JSON list of strings.
func (s Set) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

// UnmarshalJSON decodes a JSON list of strings. null decodes to an empty set.
func (s *Set) UnmarshalJSON(data []byte) error {
	var items []string
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("decode set: %w", err)
	}
	*s = NewSet(items...)
	return nil
}

// MarshalYAML encodes the set as a sorted YAML sequence.
func (s Set) MarshalYAML() (any, error) {
	return s.Sorted(), nil
}

// UnmarshalYAML decodes a YAML sequence of strings.
func (s *Set) UnmarshalYAML(node *yaml.Node) error {
	var items []string
	if err := node.Decode(&items); err != nil {
		return fmt.Errorf("decode set: %w", err)
	}
	*s = NewSet(items...)
	return nil
}

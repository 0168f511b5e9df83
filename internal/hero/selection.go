package hero

import "slices"

// Selection is an ordered, duplicate-free set of record identifiers. The zero
// value is an empty selection ready for use.
//
// Selection does not validate identifiers against a catalog; callers resolve
// them through a catalog.Index before adding.
type Selection struct {
	ids []string
}

// NewSelection returns a Selection holding ids in order, skipping repeats.
func NewSelection(ids ...string) Selection {
	var s Selection
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Add appends id unless it is already present.
//
// Postcondition: Returns true iff id was appended.
func (s *Selection) Add(id string) bool {
	if s.Contains(id) {
		return false
	}
	s.ids = append(s.ids, id)
	return true
}

// Remove deletes id, preserving the order of the remaining identifiers.
//
// Postcondition: Returns true iff id was present.
func (s *Selection) Remove(id string) bool {
	i := slices.Index(s.ids, id)
	if i < 0 {
		return false
	}
	s.ids = slices.Delete(s.ids, i, i+1)
	if len(s.ids) == 0 {
		s.ids = nil
	}
	return true
}

// Clear empties the selection.
func (s *Selection) Clear() {
	s.ids = nil
}

// Contains reports whether id is selected.
func (s Selection) Contains(id string) bool {
	return slices.Contains(s.ids, id)
}

// Len returns the number of selected identifiers.
func (s Selection) Len() int {
	return len(s.ids)
}

// List returns the identifiers in insertion order.
//
// Postcondition: the result is non-nil and owned by the caller.
func (s Selection) List() []string {
	out := make([]string, len(s.ids))
	copy(out, s.ids)
	return out
}

package catalog

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
)

// Index answers read-only queries over a loaded Catalog.
type Index struct {
	catalog *Catalog
	folded  []string // case-folded names, parallel to catalog.records
}

// NewIndex builds an Index over c.
//
// Precondition: c must be non-nil.
// Postcondition: Returns a non-nil *Index; c is never modified afterwards.
func NewIndex(c *Catalog) *Index {
	if c == nil {
		panic("catalog.NewIndex: precondition violated: catalog must be non-nil")
	}
	fold := cases.Fold()
	folded := make([]string, len(c.records))
	for i, r := range c.records {
		folded[i] = fold.String(r.Name)
	}
	return &Index{catalog: c, folded: folded}
}

// Kind returns the kind of records held by the index.
func (x *Index) Kind() Kind {
	return x.catalog.kind
}

// Len returns the number of indexed records.
func (x *Index) Len() int {
	return x.catalog.Len()
}

// All returns every record in catalog order.
func (x *Index) All() []Record {
	return x.catalog.Records()
}

// Categories returns the power set names in alphabetical order. It is empty
// for trait catalogs.
func (x *Index) Categories() []string {
	return x.catalog.PowerSets()
}

// ByCategory returns the records in the named power set, in catalog order.
//
// Postcondition: Returns an empty, non-nil slice for an unknown set.
func (x *Index) ByCategory(set string) []Record {
	return x.catalog.inSet(set)
}

// Search returns the records whose name contains substr, ignoring case, in
// catalog order. An empty substr matches every record.
//
// Postcondition: the result is an ordered subsequence of All().
func (x *Index) Search(substr string) []Record {
	needle := cases.Fold().String(substr)
	out := make([]Record, 0)
	for i, name := range x.folded {
		if strings.Contains(name, needle) {
			out = append(out, x.catalog.records[i].clone())
		}
	}
	return out
}

// Filter returns the records for which keep returns true, in catalog order.
//
// Precondition: keep must be non-nil.
func (x *Index) Filter(keep func(Record) bool) []Record {
	out := make([]Record, 0)
	for _, r := range x.catalog.records {
		if keep(r.clone()) {
			out = append(out, r.clone())
		}
	}
	return out
}

// Get returns the record with the given name.
//
// Postcondition: Returns the record, or an error wrapping ErrRecordNotFound.
func (x *Index) Get(name string) (Record, error) {
	r, ok := x.catalog.lookup(name)
	if !ok {
		return Record{}, fmt.Errorf("%w: %s %q", ErrRecordNotFound, x.catalog.kind, name)
	}
	return r, nil
}

// Contains reports whether a record with the given name exists.
func (x *Index) Contains(name string) bool {
	_, ok := x.catalog.byName[name]
	return ok
}

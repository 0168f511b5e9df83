package catalog

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
)

// Load-time and lookup-time errors. Callers test with errors.Is.
var (
	// ErrCatalogNotFound is returned when the catalog file does not exist.
	ErrCatalogNotFound = errors.New("catalog not found")
	// ErrMalformedCatalog is returned when the catalog cannot be parsed or holds a malformed record.
	ErrMalformedCatalog = errors.New("malformed catalog")
	// ErrDuplicateRecord is returned when two records in one catalog share a name.
	ErrDuplicateRecord = errors.New("duplicate record")
	// ErrRecordNotFound is returned when a lookup names no record in the catalog.
	ErrRecordNotFound = errors.New("record not found")
)

// Catalog is the ordered, immutable collection of records of one kind.
//
// Invariant: every record in the power-set mapping appears in the flat
// sequence, and every power's sets appear in the mapping.
type Catalog struct {
	kind    Kind
	records []Record
	byName  map[string]int
	bySet   map[string][]int
	sets    []string
}

// New validates records and builds a Catalog preserving their order.
//
// Precondition: kind must be KindPower or KindTrait.
// Postcondition: Returns a Catalog, or an error wrapping ErrMalformedCatalog
// or ErrDuplicateRecord. No partial catalog is ever returned.
func New(kind Kind, records []Record) (*Catalog, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: unknown kind %q", ErrMalformedCatalog, kind)
	}
	c := &Catalog{
		kind:    kind,
		records: make([]Record, 0, len(records)),
		byName:  make(map[string]int, len(records)),
		bySet:   make(map[string][]int),
	}
	for i, r := range records {
		r = r.clone()
		r.Name = strings.TrimSpace(r.Name)
		if r.Kind == "" {
			r.Kind = kind
		}
		if r.Kind != kind {
			return nil, fmt.Errorf("%w: record %d (%q) is a %s in a %s catalog", ErrMalformedCatalog, i+1, r.Name, r.Kind, kind)
		}
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("%w: record %d: %w", ErrMalformedCatalog, i+1, err)
		}
		r.PowerSets = uniqueSets(r.PowerSets)
		if _, exists := c.byName[r.Name]; exists {
			return nil, fmt.Errorf("%w: %s %q", ErrDuplicateRecord, kind, r.Name)
		}
		pos := len(c.records)
		c.records = append(c.records, r)
		c.byName[r.Name] = pos
		for _, set := range r.PowerSets {
			c.bySet[set] = append(c.bySet[set], pos)
		}
	}
	c.sets = make([]string, 0, len(c.bySet))
	for set := range c.bySet {
		c.sets = append(c.sets, set)
	}
	sort.Strings(c.sets)
	return c, nil
}

// Kind returns the kind of every record in the catalog.
func (c *Catalog) Kind() Kind {
	return c.kind
}

// Len returns the number of records.
func (c *Catalog) Len() int {
	return len(c.records)
}

// Records returns a copy of all records in catalog order.
func (c *Catalog) Records() []Record {
	out := make([]Record, len(c.records))
	for i, r := range c.records {
		out[i] = r.clone()
	}
	return out
}

// PowerSets returns the distinct power set names in alphabetical order.
func (c *Catalog) PowerSets() []string {
	out := make([]string, len(c.sets))
	copy(out, c.sets)
	return out
}

func (c *Catalog) lookup(name string) (Record, bool) {
	i, ok := c.byName[name]
	if !ok {
		return Record{}, false
	}
	return c.records[i].clone(), true
}

func (c *Catalog) inSet(set string) []Record {
	positions := c.bySet[set]
	out := make([]Record, 0, len(positions))
	for _, i := range positions {
		out = append(out, c.records[i].clone())
	}
	return out
}

func uniqueSets(sets []string) []string {
	var out []string
	for _, s := range sets {
		s = strings.TrimSpace(s)
		if !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	return out
}

// Package catalog loads the static power and trait catalogs and indexes them
// for lookup by name, by power set, and by case-insensitive name search.
package catalog

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Kind distinguishes the two record variants held in a catalog.
type Kind string

// Kind constants.
const (
	KindPower Kind = "power"
	KindTrait Kind = "trait"
)

// Valid reports whether k is a known record kind.
func (k Kind) Valid() bool {
	return k == KindPower || k == KindTrait
}

// Plural returns the collection name used in catalog files and headings.
func (k Kind) Plural() string {
	return string(k) + "s"
}

// Placeholder values that carry no information; exporters skip them.
var placeholders = map[string]bool{
	"N/A":                      true,
	"None":                     true,
	"No description provided.": true,
}

// IsPlaceholder reports whether v is empty or one of the catalog's filler values.
func IsPlaceholder(v string) bool {
	v = strings.TrimSpace(v)
	return v == "" || placeholders[v]
}

// Record is a single power or trait. Records are values: callers receive
// copies and cannot mutate catalog state through them.
//
// Invariant: Name is non-empty and unique within its catalog; PowerSets is
// empty for traits.
type Record struct {
	Kind          Kind
	Name          string
	PowerSets     []string
	Description   string
	Prerequisites string
	Action        string
	Trigger       string
	Duration      string
	Range         string
	Cost          string
	Effect        string
}

// Field is a labelled attribute of a record, in display order.
type Field struct {
	Label string
	Value string
}

// Fields returns every attribute after the name in the fixed display order.
// Traits carry only a description.
func (r Record) Fields() []Field {
	if r.Kind == KindTrait {
		return []Field{{Label: "Description", Value: r.Description}}
	}
	return []Field{
		{Label: "Description", Value: r.Description},
		{Label: "PowerSet", Value: strings.Join(r.PowerSets, ", ")},
		{Label: "Prerequisites", Value: r.Prerequisites},
		{Label: "Action", Value: r.Action},
		{Label: "Trigger", Value: r.Trigger},
		{Label: "Duration", Value: r.Duration},
		{Label: "Range", Value: r.Range},
		{Label: "Cost", Value: r.Cost},
		{Label: "Effect", Value: r.Effect},
	}
}

// InSet reports whether the record belongs to the named power set.
func (r Record) InSet(set string) bool {
	return slices.Contains(r.PowerSets, set)
}

// Validate checks that the record satisfies its invariants.
//
// Postcondition: returns nil iff the record is well formed.
func (r Record) Validate() error {
	var errs []error
	if !r.Kind.Valid() {
		errs = append(errs, fmt.Errorf("kind must be power or trait, got %q", r.Kind))
	}
	if strings.TrimSpace(r.Name) == "" {
		errs = append(errs, errors.New("name must not be empty"))
	}
	if r.Kind == KindTrait && len(r.PowerSets) > 0 {
		errs = append(errs, fmt.Errorf("trait %q must not declare power sets", r.Name))
	}
	for _, s := range r.PowerSets {
		if strings.TrimSpace(s) == "" {
			errs = append(errs, fmt.Errorf("power %q has an empty power set name", r.Name))
		}
	}
	return errors.Join(errs...)
}

func (r Record) clone() Record {
	r.PowerSets = slices.Clone(r.PowerSets)
	return r
}

// SplitPowerSets parses the comma-joined power set list used by the XML
// catalog ("Strength, Agility") into trimmed, de-duplicated names.
func SplitPowerSets(s string) []string {
	var sets []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" || slices.Contains(sets, part) {
			continue
		}
		sets = append(sets, part)
	}
	return sets
}

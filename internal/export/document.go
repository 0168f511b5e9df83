// Package export renders a hero's selected powers and traits, with every
// record attribute, as PDF, Markdown or styled terminal text.
package export

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/cory-johannsen/powerforge/internal/atomicfile"
	"github.com/cory-johannsen/powerforge/internal/catalog"
	"github.com/cory-johannsen/powerforge/internal/hero"
)

// ErrIOFailure is returned when an exported document cannot be written.
var ErrIOFailure = errors.New("export I/O failure")

// Entry is one record's name and its informative attributes in display order.
type Entry struct {
	Name   string
	Fields []catalog.Field
}

// Section groups the entries of one record kind.
type Section struct {
	Kind    catalog.Kind
	Title   string
	Entries []Entry
}

// Document is the renderer-independent layout of an export.
type Document struct {
	// Title is empty when the hero has no name.
	Title    string
	Sections []Section
}

// Build resolves every selected identifier to its record. Sections follow
// the order powers then traits, and entries follow selection order. Kinds
// with nothing selected produce no section.
//
// Precondition: h, powers and traits must be non-nil.
// Postcondition: Returns a Document, or an error wrapping catalog.ErrRecordNotFound.
func Build(h *hero.Hero, powers, traits *catalog.Index) (Document, error) {
	var doc Document
	if name := strings.TrimSpace(h.Name); name != "" {
		doc.Title = name + "'s Powers and Traits"
	}
	for _, idx := range []*catalog.Index{powers, traits} {
		ids := h.Selection(idx.Kind()).List()
		if len(ids) == 0 {
			continue
		}
		sec := Section{
			Kind:    idx.Kind(),
			Title:   sectionTitles[idx.Kind()],
			Entries: make([]Entry, 0, len(ids)),
		}
		for _, id := range ids {
			r, err := idx.Get(id)
			if err != nil {
				return Document{}, fmt.Errorf("building export for %q: %w", h.Name, err)
			}
			sec.Entries = append(sec.Entries, entryFor(r))
		}
		doc.Sections = append(doc.Sections, sec)
	}
	return doc, nil
}

var sectionTitles = map[catalog.Kind]string{
	catalog.KindPower: "Selected Powers:",
	catalog.KindTrait: "Selected Traits:",
}

func entryFor(r catalog.Record) Entry {
	e := Entry{Name: r.Name}
	for _, f := range r.Fields() {
		if catalog.IsPlaceholder(f.Value) {
			continue
		}
		e.Fields = append(e.Fields, f)
	}
	return e
}

// Exporter renders a Document to a writer.
type Exporter interface {
	// Extension returns the file extension for the output, without the dot.
	Extension() string
	Export(doc Document, w io.Writer) error
}

// WriteFile renders doc with exp into path, replacing any existing file.
//
// Postcondition: Returns nil or an error wrapping ErrIOFailure; on error any
// previous file at path is unchanged.
func WriteFile(exp Exporter, doc Document, path string) error {
	if err := atomicfile.Write(path, 0644, func(w io.Writer) error {
		return exp.Export(doc, w)
	}); err != nil {
		return fmt.Errorf("%w: %w", ErrIOFailure, err)
	}
	return nil
}

// Write renders doc with exp to w, wrapping failures in ErrIOFailure.
func Write(exp Exporter, doc Document, w io.Writer) error {
	if err := exp.Export(doc, w); err != nil {
		return fmt.Errorf("%w: %w", ErrIOFailure, err)
	}
	return nil
}

// Options configures the exporters returned by ByName.
type Options struct {
	FontSize float64
	Columns  int
	Margin   float64
	Width    int
}

// ByName returns the exporter for "pdf", "markdown" (or "md") or "terminal".
//
// Postcondition: Returns an Exporter or an error for unknown names.
func ByName(name string, opts Options) (Exporter, error) {
	switch strings.ToLower(name) {
	case "pdf":
		return PDF{FontSize: opts.FontSize, Columns: opts.Columns, Margin: opts.Margin}, nil
	case "markdown", "md":
		return Markdown{}, nil
	case "terminal":
		return Terminal{Width: opts.Width}, nil
	default:
		return nil, fmt.Errorf("unknown export format %q", name)
	}
}

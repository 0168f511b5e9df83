package hero

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/cory-johannsen/powerforge/internal/atomicfile"
	"github.com/cory-johannsen/powerforge/internal/catalog"
)

// StalePolicy decides what happens to selected identifiers that the loaded
// catalog no longer contains.
type StalePolicy string

// StalePolicy constants.
const (
	// StaleDrop removes stale identifiers and reports them in LoadResult.Dropped.
	StaleDrop StalePolicy = "drop"
	// StaleStrict fails the load with ErrStaleReference.
	StaleStrict StalePolicy = "strict"
)

// DroppedRef names a selected identifier removed because the catalog lacks it.
type DroppedRef struct {
	Kind catalog.Kind
	ID   string
}

func (d DroppedRef) String() string {
	return fmt.Sprintf("%s %q", d.Kind, d.ID)
}

// LoadResult is a hero resolved against the current catalogs.
type LoadResult struct {
	Hero    *Hero
	Dropped []DroppedRef
}

// Encode serializes h with codec.
//
// Precondition: h must be non-nil.
func Encode(h *Hero, codec Codec) ([]byte, error) {
	doc := document{
		Name:   h.Name,
		Powers: h.Powers.List(),
		Traits: h.Traits.List(),
	}
	if h.ID != uuid.Nil {
		doc.ID = h.ID.String()
	}
	data, err := codec.marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encoding hero %q as %s: %w", h.Name, codec.Name(), err)
	}
	return data, nil
}

// Decode parses a hero document without consulting any catalog. Files
// without an ID, such as those written by earlier releases, get a fresh one.
//
// Postcondition: Returns a hero, or an error wrapping ErrCorruptHeroFile.
func Decode(data []byte, codec Codec) (*Hero, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrCorruptHeroFile)
	}
	var doc document
	if err := codec.unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCorruptHeroFile, codec.Name(), err)
	}
	id := uuid.New()
	if doc.ID != "" {
		parsed, err := uuid.Parse(doc.ID)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid id %q: %w", ErrCorruptHeroFile, doc.ID, err)
		}
		id = parsed
	}
	return &Hero{
		ID:     id,
		Name:   strings.TrimSpace(doc.Name),
		Powers: NewSelection(doc.Powers...),
		Traits: NewSelection(doc.Traits...),
	}, nil
}

// Save writes h to path, replacing any existing file. The encoding follows
// the path's extension. The previous file is left intact if the write fails.
//
// Precondition: h must be non-nil.
// Postcondition: Returns nil, ErrHeroNameRequired, or an error wrapping ErrIOFailure.
func Save(h *Hero, path string) error {
	if strings.TrimSpace(h.Name) == "" {
		return ErrHeroNameRequired
	}
	data, err := Encode(h, CodecFor(path))
	if err != nil {
		return err
	}

	err = atomicfile.Write(path, 0644, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrIOFailure, err)
	}
	return nil
}

// Load reads the hero file at path and resolves it against the catalogs
// according to policy.
//
// Precondition: powers and traits must be non-nil.
// Postcondition: Returns a LoadResult, or an error wrapping ErrIOFailure,
// ErrCorruptHeroFile or ErrStaleReference.
func Load(path string, powers, traits *catalog.Index, policy StalePolicy) (LoadResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return LoadResult{}, fmt.Errorf("%w: %w", ErrIOFailure, err)
	}
	h, err := Decode(data, CodecFor(path))
	if err != nil {
		return LoadResult{}, fmt.Errorf("loading %s: %w", path, err)
	}
	return Resolve(h, powers, traits, policy)
}

// Resolve checks every selected identifier against the catalogs. Under
// StaleDrop the returned hero omits identifiers the catalogs lack and
// Dropped lists them; under StaleStrict any such identifier is an error.
// h itself is not modified.
//
// Precondition: h, powers and traits must be non-nil.
func Resolve(h *Hero, powers, traits *catalog.Index, policy StalePolicy) (LoadResult, error) {
	out := &Hero{ID: h.ID, Name: h.Name}
	var dropped []DroppedRef
	for _, idx := range []*catalog.Index{powers, traits} {
		kind := idx.Kind()
		for _, id := range h.Selection(kind).List() {
			if idx.Contains(id) {
				out.Selection(kind).Add(id)
				continue
			}
			dropped = append(dropped, DroppedRef{Kind: kind, ID: id})
		}
	}
	if len(dropped) > 0 && policy == StaleStrict {
		return LoadResult{}, fmt.Errorf("%w: %w: %s", ErrCorruptHeroFile, ErrStaleReference, describe(dropped))
	}
	return LoadResult{Hero: out, Dropped: dropped}, nil
}

func describe(refs []DroppedRef) string {
	parts := make([]string, len(refs))
	for i, r := range refs {
		parts[i] = r.String()
	}
	return strings.Join(parts, ", ")
}

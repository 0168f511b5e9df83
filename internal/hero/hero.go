// Package hero models a hero's power and trait selection and persists it to
// hero files.
package hero

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/cory-johannsen/powerforge/internal/catalog"
)

var (
	// ErrCorruptHeroFile is returned when a hero file does not match the expected shape.
	ErrCorruptHeroFile = errors.New("corrupt hero file")
	// ErrIOFailure is returned when a hero file cannot be read or written.
	ErrIOFailure = errors.New("hero file I/O failure")
	// ErrStaleReference is returned under the strict policy when a hero selects
	// an identifier the catalog does not contain.
	ErrStaleReference = errors.New("stale catalog reference")
	// ErrHeroNameRequired is returned when saving a hero without a name.
	ErrHeroNameRequired = errors.New("hero name required")
	// ErrHeroNotFound is returned when a hero library lookup yields no results.
	ErrHeroNotFound = errors.New("hero not found")
)

// Hero is a character in progress: a name plus its selected powers and traits.
type Hero struct {
	ID     uuid.UUID
	Name   string
	Powers Selection
	Traits Selection
}

// New returns an empty hero with a fresh ID.
//
// Postcondition: Returns a hero with no selections.
func New(name string) *Hero {
	return &Hero{ID: uuid.New(), Name: strings.TrimSpace(name)}
}

// Selection returns the selection holding records of the given kind.
//
// Precondition: kind must be catalog.KindPower or catalog.KindTrait.
func (h *Hero) Selection(kind catalog.Kind) *Selection {
	switch kind {
	case catalog.KindPower:
		return &h.Powers
	case catalog.KindTrait:
		return &h.Traits
	default:
		panic(fmt.Sprintf("hero.Selection: precondition violated: unknown kind %q", kind))
	}
}

// Clone returns a deep copy of h.
func (h *Hero) Clone() *Hero {
	return &Hero{
		ID:     h.ID,
		Name:   h.Name,
		Powers: NewSelection(h.Powers.ids...),
		Traits: NewSelection(h.Traits.ids...),
	}
}

// Empty reports whether the hero has no selections.
func (h *Hero) Empty() bool {
	return h.Powers.Len() == 0 && h.Traits.Len() == 0
}

var unsafeFileChars = regexp.MustCompile(`[\\/*?:"<>|]`)

// DefaultFileName suggests a file name for saving or exporting the hero:
// "<name>_powers_and_traits.<ext>", or "selected_powers_and_traits.<ext>" when
// name is blank. Characters that are invalid in file names are removed.
func DefaultFileName(name, ext string) string {
	ext = strings.TrimPrefix(ext, ".")
	name = strings.TrimSpace(name)
	base := "selected_powers_and_traits"
	if name != "" {
		base = name + "_powers_and_traits"
	}
	return unsafeFileChars.ReplaceAllString(base+"."+ext, "")
}

// Repository persists heroes in a hero library.
type Repository interface {
	// Put inserts or replaces the hero with h.ID.
	Put(ctx context.Context, h *Hero) error
	// Get returns the hero with the given ID or ErrHeroNotFound.
	Get(ctx context.Context, id uuid.UUID) (*Hero, error)
	// List returns every stored hero ordered by name.
	List(ctx context.Context) ([]*Hero, error)
	// Delete removes the hero with the given ID or returns ErrHeroNotFound.
	Delete(ctx context.Context, id uuid.UUID) error
}

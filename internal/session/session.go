// Package session holds the hero being edited and the handlers that apply
// user commands to it.
package session

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/powerforge/internal/catalog"
	"github.com/cory-johannsen/powerforge/internal/export"
	"github.com/cory-johannsen/powerforge/internal/hero"
)

// Session tracks the current hero against a pair of loaded catalogs.
// All methods are safe for concurrent use. A handler that fails leaves the
// current hero exactly as it was.
type Session struct {
	mu      sync.RWMutex
	powers  *catalog.Index
	traits  *catalog.Index
	policy  hero.StalePolicy
	current *hero.Hero
	logger  *zap.Logger
}

// New creates a Session editing an unnamed, empty hero.
//
// Precondition: powers must index powers, traits must index traits, and logger must be non-nil.
// Postcondition: Returns a non-nil Session.
func New(powers, traits *catalog.Index, policy hero.StalePolicy, logger *zap.Logger) *Session {
	if powers == nil || powers.Kind() != catalog.KindPower {
		panic("session.New: precondition violated: powers must be a non-nil power index")
	}
	if traits == nil || traits.Kind() != catalog.KindTrait {
		panic("session.New: precondition violated: traits must be a non-nil trait index")
	}
	if logger == nil {
		panic("session.New: precondition violated: logger must be non-nil")
	}
	if policy == "" {
		policy = hero.StaleDrop
	}
	return &Session{
		powers:  powers,
		traits:  traits,
		policy:  policy,
		current: hero.New(""),
		logger:  logger,
	}
}

// Hero returns a copy of the current hero.
func (s *Session) Hero() *hero.Hero {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Clone()
}

// Powers returns the power index the session validates against.
func (s *Session) Powers() *catalog.Index { return s.powers }

// Traits returns the trait index the session validates against.
func (s *Session) Traits() *catalog.Index { return s.traits }

// OnNew discards the current hero and starts an empty one named name.
func (s *Session) OnNew(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = hero.New(name)
	s.logger.Debug("new hero", zap.String("hero", s.current.Name), zap.Stringer("id", s.current.ID))
}

// OnRename changes the current hero's name, keeping its selections.
func (s *Session) OnRename(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.current.Clone()
	next.Name = strings.TrimSpace(name)
	s.current = next
}

// OnAddPower selects the named power.
//
// Postcondition: Returns whether the selection changed, or an error wrapping
// catalog.ErrRecordNotFound.
func (s *Session) OnAddPower(id string) (bool, error) {
	return s.add(s.powers, id)
}

// OnRemovePower deselects the named power. Removing an unselected power is a no-op.
func (s *Session) OnRemovePower(id string) bool {
	return s.remove(catalog.KindPower, id)
}

// OnAddTrait selects the named trait.
//
// Postcondition: Returns whether the selection changed, or an error wrapping
// catalog.ErrRecordNotFound.
func (s *Session) OnAddTrait(id string) (bool, error) {
	return s.add(s.traits, id)
}

// OnRemoveTrait deselects the named trait. Removing an unselected trait is a no-op.
func (s *Session) OnRemoveTrait(id string) bool {
	return s.remove(catalog.KindTrait, id)
}

func (s *Session) add(idx *catalog.Index, id string) (bool, error) {
	if !idx.Contains(id) {
		return false, fmt.Errorf("selecting %s %q: %w", idx.Kind(), id, catalog.ErrRecordNotFound)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.Selection(idx.Kind()).Add(id), nil
}

func (s *Session) remove(kind catalog.Kind, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.Selection(kind).Remove(id)
}

// OnSave writes the current hero to path.
//
// Postcondition: Returns nil or an error from hero.Save; the hero is unchanged either way.
func (s *Session) OnSave(path string) error {
	h := s.Hero()
	if err := hero.Save(h, path); err != nil {
		return err
	}
	s.logger.Info("hero saved",
		zap.String("hero", h.Name),
		zap.String("path", path),
		zap.Int("powers", h.Powers.Len()),
		zap.Int("traits", h.Traits.Len()),
	)
	return nil
}

// OnLoad replaces the current hero with the one stored at path.
//
// Postcondition: On success returns the identifiers dropped as stale; on
// error the current hero is unchanged.
func (s *Session) OnLoad(path string) ([]hero.DroppedRef, error) {
	res, err := hero.Load(path, s.powers, s.traits, s.policy)
	if err != nil {
		return nil, err
	}
	s.replace(res, zap.String("path", path))
	return res.Dropped, nil
}

// OnExport renders the current hero with exp into path.
//
// Postcondition: Returns nil, an error wrapping catalog.ErrRecordNotFound, or
// an error wrapping export.ErrIOFailure.
func (s *Session) OnExport(exp export.Exporter, path string) error {
	h := s.Hero()
	doc, err := export.Build(h, s.powers, s.traits)
	if err != nil {
		return err
	}
	if err := export.WriteFile(exp, doc, path); err != nil {
		return err
	}
	s.logger.Info("hero exported",
		zap.String("hero", h.Name),
		zap.String("path", path),
		zap.String("format", exp.Extension()),
	)
	return nil
}

// OnStore saves the current hero into a hero library.
//
// Postcondition: Returns nil, hero.ErrHeroNameRequired, or the repository's error.
func (s *Session) OnStore(ctx context.Context, repo hero.Repository) error {
	h := s.Hero()
	if h.Name == "" {
		return hero.ErrHeroNameRequired
	}
	if err := repo.Put(ctx, h); err != nil {
		return fmt.Errorf("storing hero %q: %w", h.Name, err)
	}
	s.logger.Info("hero stored", zap.String("hero", h.Name), zap.Stringer("id", h.ID))
	return nil
}

// OnFetch replaces the current hero with the one stored in repo under id,
// applying the session's stale identifier policy.
//
// Postcondition: On error the current hero is unchanged.
func (s *Session) OnFetch(ctx context.Context, repo hero.Repository, id uuid.UUID) ([]hero.DroppedRef, error) {
	stored, err := repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetching hero %s: %w", id, err)
	}
	res, err := hero.Resolve(stored, s.powers, s.traits, s.policy)
	if err != nil {
		return nil, err
	}
	s.replace(res, zap.Stringer("id", id))
	return res.Dropped, nil
}

func (s *Session) replace(res hero.LoadResult, source zap.Field) {
	s.mu.Lock()
	s.current = res.Hero
	s.mu.Unlock()

	for _, d := range res.Dropped {
		s.logger.Warn("dropped stale selection",
			zap.String("hero", res.Hero.Name),
			zap.String("kind", string(d.Kind)),
			zap.String("identifier", d.ID),
			source,
		)
	}
	s.logger.Info("hero loaded", zap.String("hero", res.Hero.Name), source)
}

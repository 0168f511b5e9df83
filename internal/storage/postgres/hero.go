package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/powerforge/internal/hero"
)

// ErrSchemaMissing is returned when the heroes table does not exist; run cmd/migrate first.
var ErrSchemaMissing = errors.New("hero library schema missing")

// HeroRepository persists heroes in the heroes table.
type HeroRepository struct {
	db *pgxpool.Pool
}

// NewHeroRepository creates a HeroRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewHeroRepository(db *pgxpool.Pool) *HeroRepository {
	return &HeroRepository{db: db}
}

// Put inserts h or replaces the stored hero with the same ID.
//
// Precondition: h.ID must not be uuid.Nil.
// Postcondition: The stored row matches h.
func (r *HeroRepository) Put(ctx context.Context, h *hero.Hero) error {
	if h.ID == uuid.Nil {
		return fmt.Errorf("storing hero %q: id must be set", h.Name)
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO heroes (id, name, powers, traits)
		VALUES ($1::uuid, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name,
		    powers = EXCLUDED.powers,
		    traits = EXCLUDED.traits,
		    updated_at = NOW()`,
		h.ID.String(), h.Name, h.Powers.List(), h.Traits.List(),
	)
	if err != nil {
		return wrap("upserting hero", err)
	}
	return nil
}

// Get retrieves a hero by ID.
//
// Postcondition: Returns the hero or an error wrapping hero.ErrHeroNotFound.
func (r *HeroRepository) Get(ctx context.Context, id uuid.UUID) (*hero.Hero, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id::text, name, powers, traits
		FROM heroes WHERE id = $1::uuid`,
		id.String(),
	)
	h, err := scanHero(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", hero.ErrHeroNotFound, id)
		}
		return nil, wrap("querying hero", err)
	}
	return h, nil
}

// List returns every stored hero ordered by name, then ID.
//
// Postcondition: Returns a slice (may be empty) or a non-nil error.
func (r *HeroRepository) List(ctx context.Context) ([]*hero.Hero, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id::text, name, powers, traits
		FROM heroes ORDER BY name ASC, id ASC`)
	if err != nil {
		return nil, wrap("listing heroes", err)
	}
	defer rows.Close()

	heroes := make([]*hero.Hero, 0)
	for rows.Next() {
		h, err := scanHero(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning hero row: %w", err)
		}
		heroes = append(heroes, h)
	}
	return heroes, rows.Err()
}

// Delete removes the hero with the given ID.
//
// Postcondition: Returns nil or an error wrapping hero.ErrHeroNotFound.
func (r *HeroRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM heroes WHERE id = $1::uuid`, id.String())
	if err != nil {
		return wrap("deleting hero", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", hero.ErrHeroNotFound, id)
	}
	return nil
}

func scanHero(row pgx.Row) (*hero.Hero, error) {
	var (
		id             string
		name           string
		powers, traits []string
	)
	if err := row.Scan(&id, &name, &powers, &traits); err != nil {
		return nil, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("parsing hero id %q: %w", id, err)
	}
	return &hero.Hero{
		ID:     parsed,
		Name:   name,
		Powers: hero.NewSelection(powers...),
		Traits: hero.NewSelection(traits...),
	}, nil
}

func wrap(op string, err error) error {
	if isUndefinedTableError(err) {
		return fmt.Errorf("%s: %w: %w", op, ErrSchemaMissing, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

var _ hero.Repository = (*HeroRepository)(nil)

// Package sqlite keeps a local hero library in a single SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/cory-johannsen/powerforge/internal/hero"
)

//go:embed schema.sql
var schema string

// HeroStore is a hero.Repository backed by SQLite. Selections are stored as
// JSON arrays of identifiers.
type HeroStore struct {
	db *sql.DB
}

// Open opens or creates the library at path and ensures its schema.
//
// Postcondition: Returns a ready HeroStore the caller must Close, or an error.
func Open(path string) (*HeroStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply sqlite schema: %w", err)
	}
	return &HeroStore{db: db}, nil
}

// Close closes the underlying database.
func (s *HeroStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Put implements hero.Repository.
func (s *HeroStore) Put(ctx context.Context, h *hero.Hero) error {
	if h.ID == uuid.Nil {
		return fmt.Errorf("storing hero %q: id must be set", h.Name)
	}
	powers, err := json.Marshal(h.Powers.List())
	if err != nil {
		return fmt.Errorf("encoding powers: %w", err)
	}
	traits, err := json.Marshal(h.Traits.List())
	if err != nil {
		return fmt.Errorf("encoding traits: %w", err)
	}
	now := time.Now().UTC().UnixMilli()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO heroes (id, name, powers, traits, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE
		SET name = excluded.name,
		    powers = excluded.powers,
		    traits = excluded.traits,
		    updated_at = excluded.updated_at`,
		h.ID.String(), h.Name, string(powers), string(traits), now, now,
	)
	if err != nil {
		return fmt.Errorf("upsert hero: %w", err)
	}
	return nil
}

// Get implements hero.Repository.
func (s *HeroStore) Get(ctx context.Context, id uuid.UUID) (*hero.Hero, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, name, powers, traits FROM heroes WHERE id = ?`, id.String())
	h, err := scanHero(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", hero.ErrHeroNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("query hero: %w", err)
	}
	return h, nil
}

// List implements hero.Repository.
func (s *HeroStore) List(ctx context.Context) ([]*hero.Hero, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, powers, traits FROM heroes ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("list heroes: %w", err)
	}
	defer rows.Close()

	heroes := make([]*hero.Hero, 0)
	for rows.Next() {
		h, err := scanHero(rows)
		if err != nil {
			return nil, fmt.Errorf("scan hero row: %w", err)
		}
		heroes = append(heroes, h)
	}
	return heroes, rows.Err()
}

// Delete implements hero.Repository.
func (s *HeroStore) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM heroes WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("delete hero: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete hero: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", hero.ErrHeroNotFound, id)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanHero(row scanner) (*hero.Hero, error) {
	var id, name, powersJSON, traitsJSON string
	if err := row.Scan(&id, &name, &powersJSON, &traitsJSON); err != nil {
		return nil, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("parse hero id %q: %w", id, err)
	}
	var powers, traits []string
	if err := json.Unmarshal([]byte(powersJSON), &powers); err != nil {
		return nil, fmt.Errorf("decode powers of %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(traitsJSON), &traits); err != nil {
		return nil, fmt.Errorf("decode traits of %s: %w", id, err)
	}
	return &hero.Hero{
		ID:     parsed,
		Name:   name,
		Powers: hero.NewSelection(powers...),
		Traits: hero.NewSelection(traits...),
	}, nil
}

var _ hero.Repository = (*HeroStore)(nil)
